// Package recorder persists summarized snapshot views to a long-term sink.
package recorder

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/pgpulse/pgpulse/src/models"
)

// topTableCount is how many tables, by total size, get a per-table row.
const topTableCount = 5

// Sink is the append-only write interface of the long-term metrics store.
// The engine requires no read contract from it.
type Sink interface {
	Write(ctx context.Context, name string, value float64, unit string, metadata map[string]string) error
}

// MetricsRecorder writes one summary sample per tracked counter plus one row
// per top table. Persistence is best effort: the engine calls Persist
// fire-and-forget and the in-memory history keeps functioning when the sink
// is down.
type MetricsRecorder struct {
	sink Sink
	log  *logrus.Logger
}

// NewMetricsRecorder creates a new MetricsRecorder instance.
func NewMetricsRecorder(sink Sink, log *logrus.Logger) *MetricsRecorder {
	return &MetricsRecorder{
		sink: sink,
		log:  log,
	}
}

// Persist writes the snapshot summary. Individual write failures are logged
// and do not abort the remaining samples; the first error is returned for
// the caller's log line.
func (r *MetricsRecorder) Persist(ctx context.Context, snapshot *models.Snapshot) error {
	ts := snapshot.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00")
	base := map[string]string{"collected_at": ts}

	var firstErr error
	write := func(name string, value float64, unit string, metadata map[string]string) {
		if err := r.sink.Write(ctx, name, value, unit, metadata); err != nil {
			r.log.Warnf("Failed to persist %s: %v", name, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to persist %s: %w", name, err)
			}
		}
	}

	write("active_connections", float64(snapshot.ActiveConnections), "connections", base)
	write("database_size", float64(snapshot.DatabaseSizeBytes), "bytes", base)
	write("total_queries", float64(snapshot.TotalQueries), "queries", base)
	write("slow_query_count", float64(snapshot.SlowQueryCount), "queries", base)
	write("issue_count", float64(len(snapshot.Issues)), "issues", base)

	for _, t := range topTables(snapshot.Tables) {
		write("table_size", float64(t.TotalSizeBytes), "bytes", map[string]string{
			"collected_at": ts,
			"table":        t.Name,
			"row_estimate": strconv.FormatInt(t.RowCount, 10),
		})
	}

	return firstErr
}

// topTables returns the largest tables by total size, at most topTableCount.
func topTables(tables []models.TableStat) []models.TableStat {
	sorted := make([]models.TableStat, len(tables))
	copy(sorted, tables)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalSizeBytes > sorted[j].TotalSizeBytes
	})
	if len(sorted) > topTableCount {
		sorted = sorted[:topTableCount]
	}
	return sorted
}
