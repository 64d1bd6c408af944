package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultThresholdsAreValid(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
}

func TestValidateRejectsZeroFields(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*AlertThresholds)
		message string
	}{
		{"zero max connections", func(a *AlertThresholds) { a.MaxConnections = 0 }, "max_connections"},
		{"zero slow query ms", func(a *AlertThresholds) { a.SlowQueryMillis = 0 }, "slow_query_ms"},
		{"zero max database size", func(a *AlertThresholds) { a.MaxDatabaseSizeBytes = 0 }, "max_database_size_bytes"},
		{"zero max table size", func(a *AlertThresholds) { a.MaxTableSizeBytes = 0 }, "max_table_size_bytes"},
		// A zero floor would silently disable unused-index detection.
		{"zero min index usage", func(a *AlertThresholds) { a.MinIndexUsage = 0 }, "min_index_usage"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			thresholds := DefaultThresholds()
			tc.mutate(&thresholds)

			err := thresholds.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}
