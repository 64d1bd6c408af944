// Package analyzer evaluates snapshots against alert thresholds and produces
// the ordered list of performance issues.
package analyzer

import (
	"fmt"
	"strings"

	"github.com/pgpulse/pgpulse/src/models"
)

// seqScanRatioLimit is the sequential-scan share above which a scanned table
// is considered to be missing an index.
const seqScanRatioLimit = 0.8

// metadataSampleCap bounds the samples carried in issue metadata.
const metadataSampleCap = 5

// IssueAnalyzer derives performance issues from a snapshot. It is pure and
// deterministic: the same snapshot and thresholds always yield the same
// issues in the same order.
type IssueAnalyzer struct{}

// NewIssueAnalyzer creates a new IssueAnalyzer instance.
func NewIssueAnalyzer() *IssueAnalyzer {
	return &IssueAnalyzer{}
}

// Analyze evaluates every rule independently and returns all applicable
// issues. The returned order (connections, database size, slow queries,
// unused indexes, missing indexes) is part of the contract; report rendering
// and consumers rely on it. An empty result means no issues were detected.
func (a *IssueAnalyzer) Analyze(snapshot *models.Snapshot, thresholds models.AlertThresholds) []models.PerformanceIssue {
	issues := make([]models.PerformanceIssue, 0)

	if issue, ok := a.checkConnections(snapshot, thresholds); ok {
		issues = append(issues, issue)
	}
	if issue, ok := a.checkDatabaseSize(snapshot, thresholds); ok {
		issues = append(issues, issue)
	}
	if issue, ok := a.checkSlowQueries(snapshot); ok {
		issues = append(issues, issue)
	}
	if issue, ok := a.checkUnusedIndexes(snapshot); ok {
		issues = append(issues, issue)
	}
	if issue, ok := a.checkMissingIndexes(snapshot); ok {
		issues = append(issues, issue)
	}

	return issues
}

func (a *IssueAnalyzer) checkConnections(snapshot *models.Snapshot, thresholds models.AlertThresholds) (models.PerformanceIssue, bool) {
	if snapshot.ActiveConnections <= thresholds.MaxConnections {
		return models.PerformanceIssue{}, false
	}

	return models.PerformanceIssue{
		Kind:     models.IssueHighConnections,
		Severity: models.SeverityHigh,
		Description: fmt.Sprintf("%d active connections exceed the configured maximum of %d",
			snapshot.ActiveConnections, thresholds.MaxConnections),
		Recommendation: "Review connection pooling and close idle sessions; raise max_connections only after ruling out connection leaks",
		Metadata: models.HighConnectionsMetadata{
			ActiveConnections: snapshot.ActiveConnections,
			MaxConnections:    thresholds.MaxConnections,
		},
	}, true
}

func (a *IssueAnalyzer) checkDatabaseSize(snapshot *models.Snapshot, thresholds models.AlertThresholds) (models.PerformanceIssue, bool) {
	if snapshot.DatabaseSizeBytes <= thresholds.MaxDatabaseSizeBytes {
		return models.PerformanceIssue{}, false
	}

	oversized := make([]models.TableRef, 0)
	for _, t := range snapshot.Tables {
		if t.TotalSizeBytes > thresholds.MaxTableSizeBytes {
			oversized = append(oversized, models.TableRef{Name: t.Name, SizeBytes: t.TotalSizeBytes})
			if len(oversized) == metadataSampleCap {
				break
			}
		}
	}

	return models.PerformanceIssue{
		Kind:     models.IssueLargeTable,
		Severity: models.SeverityMedium,
		Description: fmt.Sprintf("database size %s exceeds the configured maximum of %s",
			models.FormatBytes(snapshot.DatabaseSizeBytes), models.FormatBytes(thresholds.MaxDatabaseSizeBytes)),
		Recommendation: "Archive or partition the largest tables and review data retention policies",
		Metadata: models.LargeTableMetadata{
			DatabaseSizeBytes:    snapshot.DatabaseSizeBytes,
			MaxDatabaseSizeBytes: thresholds.MaxDatabaseSizeBytes,
			OversizedTables:      oversized,
		},
	}, true
}

func (a *IssueAnalyzer) checkSlowQueries(snapshot *models.Snapshot) (models.PerformanceIssue, bool) {
	if len(snapshot.SlowQueries) == 0 {
		return models.PerformanceIssue{}, false
	}

	samples := snapshot.SlowQueries
	if len(samples) > metadataSampleCap {
		samples = samples[:metadataSampleCap]
	}

	return models.PerformanceIssue{
		Kind:           models.IssueSlowQuery,
		Severity:       models.SeverityHigh,
		Description:    fmt.Sprintf("%d queries exceed the slow-query threshold", len(snapshot.SlowQueries)),
		Recommendation: "Analyze the sampled queries with EXPLAIN ANALYZE and add missing indexes or rewrite the worst offenders",
		Metadata:       models.SlowQueryMetadata{Samples: samples},
	}, true
}

func (a *IssueAnalyzer) checkUnusedIndexes(snapshot *models.Snapshot) (models.PerformanceIssue, bool) {
	unused := make([]models.IndexRef, 0)
	total := 0
	for _, idx := range snapshot.Indexes {
		if !idx.IsUnused {
			continue
		}
		total++
		if len(unused) < metadataSampleCap {
			unused = append(unused, models.IndexRef{Table: idx.Table, Name: idx.Name, SizeBytes: idx.SizeBytes})
		}
	}

	if total == 0 {
		return models.PerformanceIssue{}, false
	}

	return models.PerformanceIssue{
		Kind:           models.IssueUnusedIndex,
		Severity:       models.SeverityLow,
		Description:    fmt.Sprintf("%d indexes are rarely scanned yet occupy more than 1 MiB each", total),
		Recommendation: "Confirm the indexes are not needed for constraint enforcement or rare batch jobs, then drop them to save write overhead",
		Metadata:       models.UnusedIndexMetadata{Indexes: unused},
	}, true
}

func (a *IssueAnalyzer) checkMissingIndexes(snapshot *models.Snapshot) (models.PerformanceIssue, bool) {
	tables := make([]string, 0)
	for _, t := range snapshot.Tables {
		if t.SequentialScans > 0 && t.IndexScans > 0 && t.SeqScanRatio() > seqScanRatioLimit {
			tables = append(tables, t.Name)
		}
	}

	if len(tables) == 0 {
		return models.PerformanceIssue{}, false
	}

	return models.PerformanceIssue{
		Kind:     models.IssueMissingIndex,
		Severity: models.SeverityMedium,
		Description: fmt.Sprintf("tables dominated by sequential scans: %s",
			strings.Join(tables, ", ")),
		Recommendation: "Inspect the filter columns of frequent queries on these tables and add covering indexes",
		Metadata:       models.MissingIndexMetadata{Tables: tables},
	}, true
}
