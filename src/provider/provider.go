// Package provider defines the read-only statistics interface the monitoring
// engine collects from, plus its PostgreSQL implementation.
package provider

import (
	"context"
	"errors"
)

// ErrStatStatementsUnavailable is reported when the aggregate query
// statistics source (the pg_stat_statements extension) is not installed.
// Callers treat it as a degraded sub-result, not a collection failure.
var ErrStatStatementsUnavailable = errors.New("pg_stat_statements is not available")

// ConnectionStats holds connection counts by state.
type ConnectionStats struct {
	Active uint
	Idle   uint
	Total  uint
	Max    uint
}

// QueryStats holds aggregate query statistics from the optional
// pg_stat_statements source.
type QueryStats struct {
	TotalQueries uint64
}

// TableRow is one per-table statistics row.
type TableRow struct {
	Name            string
	SequentialScans uint64
	IndexScans      uint64
	TuplesInserted  uint64
	TuplesDeleted   uint64
	TotalSizeBytes  uint64
	IndexSizeBytes  uint64
	TableSizeBytes  uint64
}

// IndexRow is one per-index statistics row.
type IndexRow struct {
	Table         string
	Name          string
	Scans         uint64
	TuplesRead    uint64
	TuplesFetched uint64
	SizeBytes     uint64
}

// QueryRow is one sampled query from the optional slow-query source.
type QueryRow struct {
	Query           string
	Calls           int64
	MeanTimeMillis  float64
	TotalTimeMillis float64
}

// StatisticsProvider is the read-only interface the engine queries for raw
// counters. QueryStats and SlowQueries may report
// ErrStatStatementsUnavailable; the remaining methods are required sources.
type StatisticsProvider interface {
	ConnectionStats(ctx context.Context) (ConnectionStats, error)
	DatabaseSize(ctx context.Context) (uint64, error)
	QueryStats(ctx context.Context) (QueryStats, error)
	TableStats(ctx context.Context) ([]TableRow, error)
	IndexStats(ctx context.Context) ([]IndexRow, error)
	SlowQueries(ctx context.Context, limit int) ([]QueryRow, error)
}
