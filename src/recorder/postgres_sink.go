package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresSink appends metric samples to a metric_samples table in a separate
// long-term store, over a plain database/sql connection.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink opens the sink. The DSN is a lib/pq connection string.
func NewPostgresSink(dsn string) (*PostgresSink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open recorder sink: %w", err)
	}
	return &PostgresSink{db: db}, nil
}

// EnsureSchema creates the metric_samples table when it does not exist.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS metric_samples (
			id          BIGSERIAL PRIMARY KEY,
			name        TEXT NOT NULL,
			value       DOUBLE PRECISION NOT NULL,
			unit        TEXT NOT NULL,
			metadata    JSONB NOT NULL DEFAULT '{}',
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure recorder schema: %w", err)
	}
	return nil
}

// Write appends one sample row.
func (s *PostgresSink) Write(ctx context.Context, name string, value float64, unit string, metadata map[string]string) error {
	md, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode sample metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO metric_samples (name, value, unit, metadata) VALUES ($1, $2, $3, $4)`,
		name, value, unit, md,
	)
	if err != nil {
		return fmt.Errorf("failed to write sample: %w", err)
	}
	return nil
}

// Close releases the sink's connections.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}
