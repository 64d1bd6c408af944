package models

import "fmt"

// AlertThresholds is the configuration the analyzer evaluates snapshots
// against. It is an immutable value: the engine replaces it wholesale at
// runtime rather than merging individual fields, so concurrent readers never
// observe a partially updated set.
type AlertThresholds struct {
	MaxConnections       uint    `yaml:"max_connections" json:"max_connections"`
	SlowQueryMillis      float64 `yaml:"slow_query_ms" json:"slow_query_ms"`
	MaxDatabaseSizeBytes uint64  `yaml:"max_database_size_bytes" json:"max_database_size_bytes"`
	MaxTableSizeBytes    uint64  `yaml:"max_table_size_bytes" json:"max_table_size_bytes"`
	MinIndexUsage        uint64  `yaml:"min_index_usage" json:"min_index_usage"`
}

// DefaultThresholds returns the default alert thresholds.
func DefaultThresholds() AlertThresholds {
	return AlertThresholds{
		MaxConnections:       80,
		SlowQueryMillis:      1000,
		MaxDatabaseSizeBytes: 50 << 30, // 50 GiB
		MaxTableSizeBytes:    10 << 30, // 10 GiB
		MinIndexUsage:        50,
	}
}

// Validate checks that the thresholds are usable.
func (t AlertThresholds) Validate() error {
	if t.MaxConnections == 0 {
		return fmt.Errorf("max_connections must be positive")
	}
	if t.SlowQueryMillis <= 0 {
		return fmt.Errorf("slow_query_ms must be positive")
	}
	if t.MaxDatabaseSizeBytes == 0 {
		return fmt.Errorf("max_database_size_bytes must be positive")
	}
	if t.MaxTableSizeBytes == 0 {
		return fmt.Errorf("max_table_size_bytes must be positive")
	}
	// A zero floor would make every index count as used and silently turn
	// unused-index detection off.
	if t.MinIndexUsage == 0 {
		return fmt.Errorf("min_index_usage must be positive")
	}
	return nil
}
