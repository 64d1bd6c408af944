// Package collector assembles point-in-time snapshots from a
// StatisticsProvider.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pgpulse/pgpulse/src/models"
	"github.com/pgpulse/pgpulse/src/provider"
)

// maxSlowQuerySamples caps the number of slow-query samples retained per
// snapshot to bound payload size.
const maxSlowQuerySamples = 10

// MetricsCollector fans out independent read-only sub-queries against a
// StatisticsProvider and assembles one Snapshot per collection cycle.
type MetricsCollector struct {
	provider   provider.StatisticsProvider
	log        *logrus.Logger
	subTimeout time.Duration
}

// NewMetricsCollector creates a new MetricsCollector instance. subTimeout is
// applied to each sub-query individually, not to the cycle as a whole.
func NewMetricsCollector(p provider.StatisticsProvider, log *logrus.Logger, subTimeout time.Duration) *MetricsCollector {
	if subTimeout <= 0 {
		subTimeout = 10 * time.Second
	}
	return &MetricsCollector{
		provider:   p,
		log:        log,
		subTimeout: subTimeout,
	}
}

// subResults gathers the fan-out results. Each sub-query has its own failure
// domain.
type subResults struct {
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

// Collect runs all sub-queries concurrently and assembles a Snapshot with
// issues still empty; analysis is a separate step composed by the caller.
//
// Connection stats and database size are required: if either fails, no
// snapshot is produced. The aggregate query statistics source is optional;
// when unavailable the snapshot carries zero-valued stand-ins. Thresholds are
// passed in because IndexStat.IsUnused is derived during collection.
func (mc *MetricsCollector) Collect(ctx context.Context, thresholds models.AlertThresholds) (*models.Snapshot, error) {
	var (
		res subResults
		wg  sync.WaitGroup
	)

	run := func(f func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			subCtx, cancel := context.WithTimeout(ctx, mc.subTimeout)
			defer cancel()
			f(subCtx)
		}()
	}

	run(func(ctx context.Context) { res.conn, res.connErr = mc.provider.ConnectionStats(ctx) })
	run(func(ctx context.Context) { res.size, res.sizeErr = mc.provider.DatabaseSize(ctx) })
	run(func(ctx context.Context) { res.queryStats, res.queryStatsErr = mc.provider.QueryStats(ctx) })
	run(func(ctx context.Context) { res.tables, res.tablesErr = mc.provider.TableStats(ctx) })
	run(func(ctx context.Context) { res.indexes, res.indexesErr = mc.provider.IndexStats(ctx) })
	run(func(ctx context.Context) { res.slow, res.slowErr = mc.provider.SlowQueries(ctx, maxSlowQuerySamples) })

	wg.Wait()

	// A cancelled cycle publishes nothing, even if some sub-queries finished.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("collection cancelled: %w", err)
	}

	if res.connErr != nil {
		return nil, fmt.Errorf("failed to collect connection stats: %w", res.connErr)
	}
	if res.sizeErr != nil {
		return nil, fmt.Errorf("failed to collect database size: %w", res.sizeErr)
	}

	snapshot := models.NewSnapshot()
	snapshot.ActiveConnections = res.conn.Active
	snapshot.DatabaseSizeBytes = res.size

	if res.queryStatsErr != nil {
		mc.logDegraded("query stats", res.queryStatsErr)
	} else {
		snapshot.TotalQueries = res.queryStats.TotalQueries
	}

	if res.tablesErr != nil {
		mc.log.Warnf("Failed to collect table stats: %v", res.tablesErr)
	} else {
		snapshot.Tables = buildTableStats(res.tables)
	}

	if res.indexesErr != nil {
		mc.log.Warnf("Failed to collect index stats: %v", res.indexesErr)
	} else {
		snapshot.Indexes = buildIndexStats(res.indexes, thresholds.MinIndexUsage)
	}

	if res.slowErr != nil {
		mc.logDegraded("slow queries", res.slowErr)
	} else {
		snapshot.SlowQueries = buildSlowQuerySamples(res.slow, thresholds.SlowQueryMillis)
		snapshot.SlowQueryCount = uint(len(snapshot.SlowQueries))
	}

	return snapshot, nil
}

// logDegraded records a degraded optional sub-result. A missing
// pg_stat_statements extension is expected and logged quietly.
func (mc *MetricsCollector) logDegraded(what string, err error) {
	if errors.Is(err, provider.ErrStatStatementsUnavailable) {
		mc.log.Debugf("Skipping %s: %v", what, err)
		return
	}
	mc.log.Warnf("Degraded collection of %s: %v", what, err)
}

func buildTableStats(rows []provider.TableRow) []models.TableStat {
	tables := make([]models.TableStat, 0, len(rows))
	for _, r := range rows {
		tables = append(tables, models.TableStat{
			Name: r.Name,
			// Insertions minus deletions: an estimate, not a live row count.
			RowCount:        int64(r.TuplesInserted) - int64(r.TuplesDeleted),
			TotalSizeBytes:  r.TotalSizeBytes,
			IndexSizeBytes:  r.IndexSizeBytes,
			TableSizeBytes:  r.TableSizeBytes,
			SequentialScans: r.SequentialScans,
			IndexScans:      r.IndexScans,
		})
	}
	return tables
}

func buildIndexStats(rows []provider.IndexRow, minIndexUsage uint64) []models.IndexStat {
	indexes := make([]models.IndexStat, 0, len(rows))
	for _, r := range rows {
		indexes = append(indexes, models.IndexStat{
			Table:         r.Table,
			Name:          r.Name,
			Scans:         r.Scans,
			TuplesRead:    r.TuplesRead,
			TuplesFetched: r.TuplesFetched,
			SizeBytes:     r.SizeBytes,
			IsUnused:      models.IndexUnused(r.Scans, r.SizeBytes, minIndexUsage),
		})
	}
	return indexes
}

// buildSlowQuerySamples keeps only queries whose mean execution time exceeds
// the slow-query threshold, ordered by descending mean time with ties broken
// by the query text's lexical order, capped at maxSlowQuerySamples. Query
// text is normalized so bound parameter values never enter a snapshot.
func buildSlowQuerySamples(rows []provider.QueryRow, slowQueryMillis float64) []models.QuerySample {
	samples := make([]models.QuerySample, 0, len(rows))
	for _, r := range rows {
		if r.MeanTimeMillis <= slowQueryMillis {
			continue
		}
		samples = append(samples, models.QuerySample{
			Query:           normalizeQuery(r.Query),
			Calls:           r.Calls,
			MeanTimeMillis:  r.MeanTimeMillis,
			TotalTimeMillis: r.TotalTimeMillis,
		})
	}

	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].MeanTimeMillis != samples[j].MeanTimeMillis {
			return samples[i].MeanTimeMillis > samples[j].MeanTimeMillis
		}
		return samples[i].Query < samples[j].Query
	})

	if len(samples) > maxSlowQuerySamples {
		samples = samples[:maxSlowQuerySamples]
	}

	return samples
}
