package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgpulse/pgpulse/src/models"
	"github.com/pgpulse/pgpulse/src/provider"
)

// stubProvider returns canned results per sub-query.
type stubProvider struct {
	conn    provider.ConnectionStats
	connErr error

	size    uint64
	sizeErr error

	queryStats    provider.QueryStats
	queryStatsErr error

	tables    []provider.TableRow
	tablesErr error

	indexes    []provider.IndexRow
	indexesErr error

	slow    []provider.QueryRow
	slowErr error
}

func (s *stubProvider) ConnectionStats(ctx context.Context) (provider.ConnectionStats, error) {
	return s.conn, s.connErr
}

func (s *stubProvider) DatabaseSize(ctx context.Context) (uint64, error) {
	return s.size, s.sizeErr
}

func (s *stubProvider) QueryStats(ctx context.Context) (provider.QueryStats, error) {
	return s.queryStats, s.queryStatsErr
}

func (s *stubProvider) TableStats(ctx context.Context) ([]provider.TableRow, error) {
	return s.tables, s.tablesErr
}

func (s *stubProvider) IndexStats(ctx context.Context) ([]provider.IndexRow, error) {
	return s.indexes, s.indexesErr
}

func (s *stubProvider) SlowQueries(ctx context.Context, limit int) ([]provider.QueryRow, error) {
	return s.slow, s.slowErr
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testThresholds() models.AlertThresholds {
	return models.AlertThresholds{
		MaxConnections:       80,
		SlowQueryMillis:      1000,
		MaxDatabaseSizeBytes: 10 << 30,
		MaxTableSizeBytes:    1 << 30,
		MinIndexUsage:        50,
	}
}

func TestCollectAssemblesSnapshot(t *testing.T) {
	p := &stubProvider{
		conn:       provider.ConnectionStats{Active: 12, Idle: 3, Total: 15, Max: 100},
		size:       4 << 30,
		queryStats: provider.QueryStats{TotalQueries: 50000},
		tables: []provider.TableRow{
			{Name: "orders", SequentialScans: 10, IndexScans: 90, TuplesInserted: 1000, TuplesDeleted: 200, TotalSizeBytes: 2 << 20},
		},
		indexes: []provider.IndexRow{
			{Table: "orders", Name: "orders_user_idx", Scans: 500, SizeBytes: 5 * models.MiB},
			{Table: "orders", Name: "orders_note_idx", Scans: 2, SizeBytes: 5 * models.MiB},
		},
	}
	c := NewMetricsCollector(p, testLogger(), time.Second)

	snapshot, err := c.Collect(context.Background(), testThresholds())

	require.NoError(t, err)
	assert.Equal(t, uint(12), snapshot.ActiveConnections)
	assert.Equal(t, uint64(4<<30), snapshot.DatabaseSizeBytes)
	assert.Equal(t, uint64(50000), snapshot.TotalQueries)
	assert.Empty(t, snapshot.Issues, "analysis is a separate step")

	require.Len(t, snapshot.Tables, 1)
	assert.Equal(t, int64(800), snapshot.Tables[0].RowCount, "insertions minus deletions")

	require.Len(t, snapshot.Indexes, 2)
	assert.False(t, snapshot.Indexes[0].IsUnused)
	assert.True(t, snapshot.Indexes[1].IsUnused, "2 scans, 5 MiB")
}

func TestCollectRequiredSubQueryFailure(t *testing.T) {
	p := &stubProvider{
		connErr: errors.New("connection refused"),
		size:    1 << 30,
	}
	c := NewMetricsCollector(p, testLogger(), time.Second)

	snapshot, err := c.Collect(context.Background(), testThresholds())

	require.Error(t, err)
	assert.Nil(t, snapshot, "no partial snapshot on required failure")

	p = &stubProvider{
		conn:    provider.ConnectionStats{Active: 5},
		sizeErr: errors.New("permission denied"),
	}
	c = NewMetricsCollector(p, testLogger(), time.Second)

	snapshot, err = c.Collect(context.Background(), testThresholds())
	require.Error(t, err)
	assert.Nil(t, snapshot)
}

func TestCollectDegradesWhenQueryStatsUnavailable(t *testing.T) {
	p := &stubProvider{
		conn:          provider.ConnectionStats{Active: 5},
		size:          1 << 30,
		queryStatsErr: provider.ErrStatStatementsUnavailable,
		slowErr:       provider.ErrStatStatementsUnavailable,
	}
	c := NewMetricsCollector(p, testLogger(), time.Second)

	snapshot, err := c.Collect(context.Background(), testThresholds())

	require.NoError(t, err, "missing optional extension is not a collection error")
	assert.Equal(t, uint64(0), snapshot.TotalQueries)
	assert.Equal(t, uint(0), snapshot.SlowQueryCount)
	assert.Empty(t, snapshot.SlowQueries)
}

func TestCollectDegradesOnOptionalSubQueryError(t *testing.T) {
	p := &stubProvider{
		conn:       provider.ConnectionStats{Active: 5},
		size:       1 << 30,
		tablesErr:  errors.New("timeout"),
		indexesErr: errors.New("timeout"),
		slowErr:    errors.New("timeout"),
	}
	c := NewMetricsCollector(p, testLogger(), time.Second)

	snapshot, err := c.Collect(context.Background(), testThresholds())

	require.NoError(t, err)
	assert.Empty(t, snapshot.Tables)
	assert.Empty(t, snapshot.Indexes)
}

func TestCollectCancelledContext(t *testing.T) {
	p := &stubProvider{
		conn: provider.ConnectionStats{Active: 5},
		size: 1 << 30,
	}
	c := NewMetricsCollector(p, testLogger(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snapshot, err := c.Collect(ctx, testThresholds())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, snapshot, "completed sub-results are discarded on cancellation")
}

func TestCollectFiltersAndOrdersSlowQueries(t *testing.T) {
	p := &stubProvider{
		conn: provider.ConnectionStats{Active: 5},
		size: 1 << 30,
		slow: []provider.QueryRow{
			{Query: "SELECT fast FROM t", MeanTimeMillis: 200},
			{Query: "SELECT b FROM t2", MeanTimeMillis: 1500},
			{Query: "SELECT a FROM t1", MeanTimeMillis: 1500},
			{Query: "SELECT slowest FROM t3", MeanTimeMillis: 4000},
		},
	}
	c := NewMetricsCollector(p, testLogger(), time.Second)

	snapshot, err := c.Collect(context.Background(), testThresholds())

	require.NoError(t, err)
	require.Len(t, snapshot.SlowQueries, 3, "queries at or below the threshold are excluded")
	assert.Equal(t, uint(3), snapshot.SlowQueryCount)

	assert.Equal(t, float64(4000), snapshot.SlowQueries[0].MeanTimeMillis)
	// Equal mean times tie-break on the query text's lexical order.
	assert.Contains(t, snapshot.SlowQueries[1].Query, "t1")
	assert.Contains(t, snapshot.SlowQueries[2].Query, "t2")
}

func TestCollectCapsSlowQuerySamples(t *testing.T) {
	rows := make([]provider.QueryRow, 0, 15)
	for i := 0; i < 15; i++ {
		rows = append(rows, provider.QueryRow{
			Query:          "SELECT pg_sleep(1)",
			MeanTimeMillis: 2000 + float64(i),
		})
	}
	p := &stubProvider{
		conn: provider.ConnectionStats{Active: 5},
		size: 1 << 30,
		slow: rows,
	}
	c := NewMetricsCollector(p, testLogger(), time.Second)

	snapshot, err := c.Collect(context.Background(), testThresholds())

	require.NoError(t, err)
	assert.Len(t, snapshot.SlowQueries, maxSlowQuerySamples)
}

func TestNormalizeQueryCollapsesWhitespace(t *testing.T) {
	got := normalizeQuery("SELECT  a\n\tFROM t")
	assert.Equal(t, "SELECT a FROM t", got)
}
