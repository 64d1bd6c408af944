package models

import (
	"fmt"
	"time"
)

// MiB is the size floor below which an index is never flagged as unused.
const MiB uint64 = 1 << 20

// Snapshot represents one point-in-time bundle of collected database
// statistics plus the issues derived from it. Issues are attached exactly
// once, by the analyzer, before the snapshot is exposed to any consumer;
// after that the snapshot is treated as immutable.
type Snapshot struct {
	Timestamp         time.Time          `json:"timestamp"`
	ActiveConnections uint               `json:"active_connections"`
	DatabaseSizeBytes uint64             `json:"database_size_bytes"`
	TotalQueries      uint64             `json:"total_queries"`
	SlowQueryCount    uint               `json:"slow_query_count"`
	SlowQueries       []QuerySample      `json:"slow_queries,omitempty"`
	Tables            []TableStat        `json:"tables,omitempty"`
	Indexes           []IndexStat        `json:"indexes,omitempty"`
	Issues            []PerformanceIssue `json:"issues"`
}

// NewSnapshot creates a Snapshot stamped with the current time and no issues.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Timestamp: time.Now(),
		Issues:    make([]PerformanceIssue, 0),
	}
}

// QuerySample is one sampled slow query. Query text is normalized (literal
// values stripped) before it enters a snapshot.
type QuerySample struct {
	Query           string  `json:"query"`
	Calls           int64   `json:"calls"`
	MeanTimeMillis  float64 `json:"mean_time_ms"`
	TotalTimeMillis float64 `json:"total_time_ms"`
}

// TableStat represents per-table statistics.
//
// RowCount is insertions minus deletions as reported by the statistics
// collector. It is an estimate that can drift or go negative after stats
// resets and must never be displayed as an authoritative row count.
type TableStat struct {
	Name            string `json:"name"`
	RowCount        int64  `json:"row_count"`
	TotalSizeBytes  uint64 `json:"total_size_bytes"`
	IndexSizeBytes  uint64 `json:"index_size_bytes"`
	TableSizeBytes  uint64 `json:"table_size_bytes"`
	SequentialScans uint64 `json:"sequential_scans"`
	IndexScans      uint64 `json:"index_scans"`
}

// SeqScanRatio returns the fraction of scans that were sequential, or 0 when
// the table has not been scanned at all.
func (t TableStat) SeqScanRatio() float64 {
	total := t.SequentialScans + t.IndexScans
	if total == 0 {
		return 0
	}
	return float64(t.SequentialScans) / float64(total)
}

// IndexStat represents per-index statistics. IsUnused is a derived field,
// computed at collection time via IndexUnused; it is never set directly.
type IndexStat struct {
	Table         string `json:"table"`
	Name          string `json:"name"`
	Scans         uint64 `json:"scans"`
	TuplesRead    uint64 `json:"tuples_read"`
	TuplesFetched uint64 `json:"tuples_fetched"`
	SizeBytes     uint64 `json:"size_bytes"`
	IsUnused      bool   `json:"is_unused"`
}

// IndexUnused reports whether an index with the given scan count and size
// qualifies as unused. An index is unused only when it has fewer scans than
// minIndexUsage AND is strictly larger than 1 MiB; both boundary values
// (scans == minIndexUsage, size == 1 MiB) fall on the "used" side.
func IndexUnused(scans, sizeBytes, minIndexUsage uint64) bool {
	return scans < minIndexUsage && sizeBytes > MiB
}

// FormatBytes renders a byte count with a binary unit suffix.
func FormatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
