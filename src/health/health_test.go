package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgpulse/pgpulse/src/models"
)

func testThresholds() models.AlertThresholds {
	t := models.DefaultThresholds()
	t.MaxConnections = 80
	return t
}

func TestCheckHealthySnapshot(t *testing.T) {
	hc := NewHealthChecker()
	s := models.Snapshot{ActiveConnections: 10}

	healthy, reasons := hc.Check(s, testThresholds())

	assert.True(t, healthy)
	assert.Empty(t, reasons)
}

func TestCheckConnectionsOverThreshold(t *testing.T) {
	hc := NewHealthChecker()
	s := models.Snapshot{ActiveConnections: 85}

	healthy, reasons := hc.Check(s, testThresholds())

	assert.False(t, healthy)
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "connections exceed threshold")
}

func TestCheckConnectionsAtThreshold(t *testing.T) {
	hc := NewHealthChecker()
	s := models.Snapshot{ActiveConnections: 80}

	healthy, reasons := hc.Check(s, testThresholds())

	assert.True(t, healthy)
	assert.Empty(t, reasons)
}

func TestCheckSlowQueryCeiling(t *testing.T) {
	hc := NewHealthChecker()

	healthy, _ := hc.Check(models.Snapshot{SlowQueryCount: SlowQueryCeiling}, testThresholds())
	assert.True(t, healthy, "ceiling itself is acceptable")

	healthy, reasons := hc.Check(models.Snapshot{SlowQueryCount: SlowQueryCeiling + 1}, testThresholds())
	assert.False(t, healthy)
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "slow query count")
}

func TestCheckCriticalIssues(t *testing.T) {
	hc := NewHealthChecker()
	s := models.Snapshot{
		Issues: []models.PerformanceIssue{
			{Kind: models.IssueSlowQuery, Severity: models.SeverityCritical},
			{Kind: models.IssueUnusedIndex, Severity: models.SeverityLow},
		},
	}

	healthy, reasons := hc.Check(s, testThresholds())

	assert.False(t, healthy)
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "critical")
}

func TestCheckCollectsEveryFailingCondition(t *testing.T) {
	hc := NewHealthChecker()
	s := models.Snapshot{
		ActiveConnections: 85,
		SlowQueryCount:    20,
		Issues: []models.PerformanceIssue{
			{Severity: models.SeverityCritical},
		},
	}

	healthy, reasons := hc.Check(s, testThresholds())

	assert.False(t, healthy)
	assert.Len(t, reasons, 3)
}
