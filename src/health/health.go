// Package health derives a pass/fail verdict with reasons from the latest
// snapshot.
package health

import (
	"fmt"

	"github.com/pgpulse/pgpulse/src/models"
)

// SlowQueryCeiling is a fixed operational ceiling on slow queries per
// snapshot, distinct from the alert threshold the analyzer evaluates.
const SlowQueryCeiling = 10

// HealthChecker evaluates a snapshot against thresholds. It is stateless;
// collection failures are never fed to it as fabricated snapshots — the
// engine reports those as "monitoring unavailable" on its own.
type HealthChecker struct{}

// NewHealthChecker creates a new HealthChecker instance.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{}
}

// Check returns healthy == true iff the snapshot has zero critical issues,
// connections within the threshold, and a slow-query count at or below the
// operational ceiling. Each failing condition contributes one reason; the
// reasons list is empty exactly when healthy is true.
func (hc *HealthChecker) Check(snapshot models.Snapshot, thresholds models.AlertThresholds) (bool, []string) {
	reasons := make([]string, 0)

	critical := 0
	for _, issue := range snapshot.Issues {
		if issue.Severity == models.SeverityCritical {
			critical++
		}
	}
	if critical > 0 {
		reasons = append(reasons, fmt.Sprintf("%d critical issues active", critical))
	}

	if snapshot.ActiveConnections > thresholds.MaxConnections {
		reasons = append(reasons, fmt.Sprintf("connections exceed threshold (%d > %d)",
			snapshot.ActiveConnections, thresholds.MaxConnections))
	}

	if snapshot.SlowQueryCount > SlowQueryCeiling {
		reasons = append(reasons, fmt.Sprintf("slow query count exceeds operational ceiling (%d > %d)",
			snapshot.SlowQueryCount, SlowQueryCeiling))
	}

	return len(reasons) == 0, reasons
}
