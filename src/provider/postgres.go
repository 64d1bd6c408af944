package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// undefinedTable is the SQLSTATE PostgreSQL reports when a relation does not
// exist, which for our probes means pg_stat_statements is not installed.
const undefinedTable = "42P01"

// PostgresProvider implements StatisticsProvider against a live PostgreSQL
// database through a pgx connection pool.
type PostgresProvider struct {
	pool *pgxpool.Pool
}

// NewPostgresProvider creates a provider backed by the given pool.
func NewPostgresProvider(pool *pgxpool.Pool) *PostgresProvider {
	return &PostgresProvider{pool: pool}
}

// ConnectionStats returns connection counts by state plus the configured
// connection ceiling.
func (p *PostgresProvider) ConnectionStats(ctx context.Context) (ConnectionStats, error) {
	query := `
		SELECT
			count(*) FILTER (WHERE state = 'active') AS active,
			count(*) FILTER (WHERE state = 'idle') AS idle,
			count(*) AS total,
			(SELECT setting::int FROM pg_settings WHERE name = 'max_connections') AS max_conn
		FROM pg_stat_activity
	`

	var stats ConnectionStats
	if err := p.pool.QueryRow(ctx, query).Scan(&stats.Active, &stats.Idle, &stats.Total, &stats.Max); err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to collect connection stats: %w", err)
	}

	return stats, nil
}

// DatabaseSize returns the size of the current database in bytes.
func (p *PostgresProvider) DatabaseSize(ctx context.Context) (uint64, error) {
	var size uint64
	if err := p.pool.QueryRow(ctx, `SELECT pg_database_size(current_database())`).Scan(&size); err != nil {
		return 0, fmt.Errorf("failed to collect database size: %w", err)
	}

	return size, nil
}

// QueryStats returns aggregate query statistics from pg_stat_statements.
func (p *PostgresProvider) QueryStats(ctx context.Context) (QueryStats, error) {
	var stats QueryStats
	err := p.pool.QueryRow(ctx, `SELECT coalesce(sum(calls), 0)::bigint FROM pg_stat_statements`).Scan(&stats.TotalQueries)
	if err != nil {
		if isUndefinedTable(err) {
			return QueryStats{}, ErrStatStatementsUnavailable
		}
		return QueryStats{}, fmt.Errorf("failed to collect query stats: %w", err)
	}

	return stats, nil
}

// TableStats returns per-table statistics for user tables, largest first.
func (p *PostgresProvider) TableStats(ctx context.Context) ([]TableRow, error) {
	query := `
		SELECT
			relname,
			seq_scan,
			coalesce(idx_scan, 0),
			n_tup_ins,
			n_tup_del,
			pg_total_relation_size(relid),
			pg_indexes_size(relid),
			pg_relation_size(relid)
		FROM pg_stat_user_tables
		ORDER BY pg_total_relation_size(relid) DESC
		LIMIT 100
	`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to collect table stats: %w", err)
	}
	defer rows.Close()

	tables := make([]TableRow, 0)
	for rows.Next() {
		var t TableRow
		if err := rows.Scan(
			&t.Name,
			&t.SequentialScans,
			&t.IndexScans,
			&t.TuplesInserted,
			&t.TuplesDeleted,
			&t.TotalSizeBytes,
			&t.IndexSizeBytes,
			&t.TableSizeBytes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan table stats row: %w", err)
		}
		tables = append(tables, t)
	}

	return tables, rows.Err()
}

// IndexStats returns per-index statistics for user indexes, largest first.
// Unique indexes are excluded; they enforce constraints and are never
// candidates for unused-index detection.
func (p *PostgresProvider) IndexStats(ctx context.Context) ([]IndexRow, error) {
	query := `
		SELECT
			s.relname,
			s.indexrelname,
			s.idx_scan,
			s.idx_tup_read,
			s.idx_tup_fetch,
			pg_relation_size(s.indexrelid)
		FROM pg_stat_user_indexes s
		JOIN pg_index i ON i.indexrelid = s.indexrelid
		WHERE NOT i.indisunique
		ORDER BY pg_relation_size(s.indexrelid) DESC
		LIMIT 200
	`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to collect index stats: %w", err)
	}
	defer rows.Close()

	indexes := make([]IndexRow, 0)
	for rows.Next() {
		var idx IndexRow
		if err := rows.Scan(
			&idx.Table,
			&idx.Name,
			&idx.Scans,
			&idx.TuplesRead,
			&idx.TuplesFetched,
			&idx.SizeBytes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan index stats row: %w", err)
		}
		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}

// SlowQueries returns the top queries by mean execution time from
// pg_stat_statements.
func (p *PostgresProvider) SlowQueries(ctx context.Context, limit int) ([]QueryRow, error) {
	query := `
		SELECT query, calls, mean_exec_time, total_exec_time
		FROM pg_stat_statements
		ORDER BY mean_exec_time DESC, query ASC
		LIMIT $1
	`

	rows, err := p.pool.Query(ctx, query, limit)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, ErrStatStatementsUnavailable
		}
		return nil, fmt.Errorf("failed to collect slow queries: %w", err)
	}
	defer rows.Close()

	queries := make([]QueryRow, 0, limit)
	for rows.Next() {
		var q QueryRow
		if err := rows.Scan(&q.Query, &q.Calls, &q.MeanTimeMillis, &q.TotalTimeMillis); err != nil {
			return nil, fmt.Errorf("failed to scan slow query row: %w", err)
		}
		queries = append(queries, q)
	}

	return queries, rows.Err()
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}
