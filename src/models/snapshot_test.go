package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexUnused(t *testing.T) {
	const minUsage = 50

	tests := []struct {
		name      string
		scans     uint64
		sizeBytes uint64
		want      bool
	}{
		{"rarely scanned and large", 10, 2 * MiB, true},
		{"zero scans and large", 0, MiB + 1, true},
		{"scans at threshold", minUsage, 2 * MiB, false},
		{"scans above threshold", minUsage + 1, 2 * MiB, false},
		{"size exactly 1 MiB", 10, MiB, false},
		{"size below 1 MiB", 0, MiB - 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IndexUnused(tt.scans, tt.sizeBytes, minUsage))
		})
	}
}

func TestTableStatSeqScanRatio(t *testing.T) {
	assert.Equal(t, 0.0, TableStat{}.SeqScanRatio())
	assert.InDelta(t, 0.9, TableStat{SequentialScans: 900, IndexScans: 100}.SeqScanRatio(), 1e-9)
	assert.Equal(t, 1.0, TableStat{SequentialScans: 5}.SeqScanRatio())
}

func TestRowCountIsAnEstimate(t *testing.T) {
	// Insertions minus deletions can go negative after stats resets; the
	// model carries the estimate as-is.
	stat := TableStat{Name: "events", RowCount: -42}
	assert.Equal(t, int64(-42), stat.RowCount)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KiB", FormatBytes(1024))
	assert.Equal(t, "2.5 MiB", FormatBytes(5*MiB/2))
	assert.Equal(t, "1.0 GiB", FormatBytes(1<<30))
}
