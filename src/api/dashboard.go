package api

import "github.com/pgpulse/pgpulse/src/models"

// Dashboard is the JSON contract the UI layer consumes. The score is a
// presentation value derived here, outside the analyzer, so detection stays
// separate from scoring policy.
type Dashboard struct {
	Summary         DashboardSummary `json:"summary"`
	Breakdown       map[string]int   `json:"breakdown"`
	Alerts          []string         `json:"alerts"`
	Recommendations []string         `json:"recommendations"`
	Healthy         bool             `json:"healthy"`
	Score           int              `json:"score"`
}

// DashboardSummary holds the headline counters.
type DashboardSummary struct {
	ActiveConnections uint   `json:"active_connections"`
	DatabaseSizeBytes uint64 `json:"database_size_bytes"`
	TotalQueries      uint64 `json:"total_queries"`
	SlowQueryCount    uint   `json:"slow_query_count"`
	IssueCount        int    `json:"issue_count"`
}

// severityPenalty is the score deduction per issue, by severity.
var severityPenalty = map[models.IssueSeverity]int{
	models.SeverityCritical: 30,
	models.SeverityHigh:     20,
	models.SeverityMedium:   10,
	models.SeverityLow:      5,
}

func buildDashboard(snapshot models.Snapshot, healthy bool, reasons []string) Dashboard {
	breakdown := make(map[string]int)
	alerts := make([]string, 0, len(snapshot.Issues))
	recommendations := make([]string, 0, len(snapshot.Issues))

	score := 100
	for _, issue := range snapshot.Issues {
		breakdown[string(issue.Kind)]++
		alerts = append(alerts, issue.Description)
		recommendations = append(recommendations, issue.Recommendation)
		score -= severityPenalty[issue.Severity]
	}
	if score < 0 {
		score = 0
	}

	// Engine-level reasons (e.g. monitoring unavailable) surface as alerts
	// alongside the analyzer's findings.
	if !healthy {
		alerts = append(alerts, reasons...)
	}

	return Dashboard{
		Summary: DashboardSummary{
			ActiveConnections: snapshot.ActiveConnections,
			DatabaseSizeBytes: snapshot.DatabaseSizeBytes,
			TotalQueries:      snapshot.TotalQueries,
			SlowQueryCount:    snapshot.SlowQueryCount,
			IssueCount:        len(snapshot.Issues),
		},
		Breakdown:       breakdown,
		Alerts:          alerts,
		Recommendations: recommendations,
		Healthy:         healthy,
		Score:           score,
	}
}
