package models

// IssueKind identifies the class of a performance issue.
type IssueKind string

const (
	IssueSlowQuery       IssueKind = "slow_query"
	IssueUnusedIndex     IssueKind = "unused_index"
	IssueMissingIndex    IssueKind = "missing_index"
	IssueHighConnections IssueKind = "high_connections"
	IssueLargeTable      IssueKind = "large_table"
)

// IssueSeverity represents the severity level of a performance issue.
type IssueSeverity string

const (
	SeverityLow      IssueSeverity = "low"
	SeverityMedium   IssueSeverity = "medium"
	SeverityHigh     IssueSeverity = "high"
	SeverityCritical IssueSeverity = "critical"
)

// PerformanceIssue is a typed, severity-ranked finding produced by comparing
// a snapshot against thresholds. Immutable once created.
type PerformanceIssue struct {
	Kind           IssueKind     `json:"kind"`
	Severity       IssueSeverity `json:"severity"`
	Description    string        `json:"description"`
	Recommendation string        `json:"recommendation"`
	Metadata       IssueMetadata `json:"metadata,omitempty"`
}

// IssueMetadata is the per-kind payload attached to an issue. Each issue kind
// has its own metadata type so the analyzer's output stays strongly typed.
type IssueMetadata interface {
	issueMetadata()
}

// HighConnectionsMetadata carries the observed and configured connection counts.
type HighConnectionsMetadata struct {
	ActiveConnections uint `json:"active_connections"`
	MaxConnections    uint `json:"max_connections"`
}

// LargeTableMetadata carries the database size that tripped the threshold and
// up to 5 individual tables exceeding the per-table size threshold.
type LargeTableMetadata struct {
	DatabaseSizeBytes    uint64     `json:"database_size_bytes"`
	MaxDatabaseSizeBytes uint64     `json:"max_database_size_bytes"`
	OversizedTables      []TableRef `json:"oversized_tables,omitempty"`
}

// SlowQueryMetadata carries up to 5 sampled slow queries.
type SlowQueryMetadata struct {
	Samples []QuerySample `json:"samples"`
}

// UnusedIndexMetadata carries up to 5 unused indexes.
type UnusedIndexMetadata struct {
	Indexes []IndexRef `json:"indexes"`
}

// MissingIndexMetadata names every table dominated by sequential scans.
type MissingIndexMetadata struct {
	Tables []string `json:"tables"`
}

// TableRef identifies a table together with its total size.
type TableRef struct {
	Name      string `json:"name"`
	SizeBytes uint64 `json:"size_bytes"`
}

// IndexRef identifies an index together with its size.
type IndexRef struct {
	Table     string `json:"table"`
	Name      string `json:"name"`
	SizeBytes uint64 `json:"size_bytes"`
}

func (HighConnectionsMetadata) issueMetadata() {}
func (LargeTableMetadata) issueMetadata()      {}
func (SlowQueryMetadata) issueMetadata()       {}
func (UnusedIndexMetadata) issueMetadata()     {}
func (MissingIndexMetadata) issueMetadata()    {}
