package models

import "time"

// Report is the structured document rendered from the latest snapshot plus a
// history window. Section order matches the exported markdown: current
// status, performance issues, top tables by size, unused indexes, trends.
type Report struct {
	GeneratedAt   time.Time     `json:"generated_at"`
	Status        StatusSection `json:"status"`
	Issues        []IssueGroup  `json:"issues"`
	TopTables     []TableStat   `json:"top_tables"`
	UnusedIndexes []IndexStat   `json:"unused_indexes"`
	// Trends is nil when the history window holds fewer than two snapshots;
	// the section is omitted entirely, not zero-filled.
	Trends *TrendSection `json:"trends,omitempty"`
}

// StatusSection summarizes the latest snapshot's counters.
type StatusSection struct {
	Timestamp         time.Time `json:"timestamp"`
	ActiveConnections uint      `json:"active_connections"`
	DatabaseSizeBytes uint64    `json:"database_size_bytes"`
	TotalQueries      uint64    `json:"total_queries"`
	SlowQueryCount    uint      `json:"slow_query_count"`
	IssueCount        int       `json:"issue_count"`
}

// IssueGroup collects the issues of one kind.
type IssueGroup struct {
	Kind   IssueKind          `json:"kind"`
	Issues []PerformanceIssue `json:"issues"`
}

// TrendSection holds deltas between the oldest and newest snapshot in the
// supplied window, signed newest minus oldest.
type TrendSection struct {
	WindowStart      time.Time `json:"window_start"`
	WindowEnd        time.Time `json:"window_end"`
	Samples          int       `json:"samples"`
	ConnectionGrowth int64     `json:"connection_growth"`
	QueryGrowth      int64     `json:"query_growth"`
	SizeGrowthBytes  int64     `json:"size_growth_bytes"`
}
