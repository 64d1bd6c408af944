// Package report renders snapshots and history windows into structured
// reports and their markdown export.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pgpulse/pgpulse/src/models"
)

// topTableCount is how many tables the "Top Tables by Size" section shows.
const topTableCount = 5

// ReportGenerator renders a snapshot plus a history window into a Report.
type ReportGenerator struct{}

// NewReportGenerator creates a new ReportGenerator instance.
func NewReportGenerator() *ReportGenerator {
	return &ReportGenerator{}
}

// Render builds the structured report. The trend section is computed from the
// oldest and newest snapshot of the supplied window and omitted entirely when
// fewer than two snapshots are available.
func (g *ReportGenerator) Render(latest models.Snapshot, history []models.Snapshot) models.Report {
	return models.Report{
		GeneratedAt: time.Now(),
		Status: models.StatusSection{
			Timestamp:         latest.Timestamp,
			ActiveConnections: latest.ActiveConnections,
			DatabaseSizeBytes: latest.DatabaseSizeBytes,
			TotalQueries:      latest.TotalQueries,
			SlowQueryCount:    latest.SlowQueryCount,
			IssueCount:        len(latest.Issues),
		},
		Issues:        groupIssues(latest.Issues),
		TopTables:     topTables(latest.Tables),
		UnusedIndexes: unusedIndexes(latest.Indexes),
		Trends:        trends(history),
	}
}

// groupIssues buckets issues by kind, preserving first-appearance order.
func groupIssues(issues []models.PerformanceIssue) []models.IssueGroup {
	groups := make([]models.IssueGroup, 0)
	index := make(map[models.IssueKind]int)

	for _, issue := range issues {
		i, ok := index[issue.Kind]
		if !ok {
			i = len(groups)
			index[issue.Kind] = i
			groups = append(groups, models.IssueGroup{Kind: issue.Kind})
		}
		groups[i].Issues = append(groups[i].Issues, issue)
	}

	return groups
}

func topTables(tables []models.TableStat) []models.TableStat {
	sorted := make([]models.TableStat, len(tables))
	copy(sorted, tables)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalSizeBytes > sorted[j].TotalSizeBytes
	})
	if len(sorted) > topTableCount {
		sorted = sorted[:topTableCount]
	}
	return sorted
}

func unusedIndexes(indexes []models.IndexStat) []models.IndexStat {
	unused := make([]models.IndexStat, 0)
	for _, idx := range indexes {
		if idx.IsUnused {
			unused = append(unused, idx)
		}
	}
	return unused
}

// trends computes deltas between the oldest and newest snapshot, signed
// newest minus oldest. Returns nil for windows with fewer than two samples.
func trends(history []models.Snapshot) *models.TrendSection {
	if len(history) < 2 {
		return nil
	}

	oldest := history[0]
	newest := history[len(history)-1]

	return &models.TrendSection{
		WindowStart:      oldest.Timestamp,
		WindowEnd:        newest.Timestamp,
		Samples:          len(history),
		ConnectionGrowth: int64(newest.ActiveConnections) - int64(oldest.ActiveConnections),
		QueryGrowth:      int64(newest.TotalQueries) - int64(oldest.TotalQueries),
		SizeGrowthBytes:  int64(newest.DatabaseSizeBytes) - int64(oldest.DatabaseSizeBytes),
	}
}

// Markdown renders the report for logging or operator consumption. Section
// order: Current Status, Performance Issues, Top Tables by Size, Unused
// Indexes, Trends.
func (g *ReportGenerator) Markdown(r models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Database Performance Report\n\n")
	fmt.Fprintf(&b, "Generated at %s\n\n", r.GeneratedAt.Format(time.RFC3339))

	fmt.Fprintf(&b, "## Current Status\n\n")
	fmt.Fprintf(&b, "- Snapshot: %s\n", r.Status.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Active connections: %d\n", r.Status.ActiveConnections)
	fmt.Fprintf(&b, "- Database size: %s\n", models.FormatBytes(r.Status.DatabaseSizeBytes))
	fmt.Fprintf(&b, "- Total queries: %d\n", r.Status.TotalQueries)
	fmt.Fprintf(&b, "- Slow queries: %d\n", r.Status.SlowQueryCount)
	fmt.Fprintf(&b, "- Issues: %d\n\n", r.Status.IssueCount)

	fmt.Fprintf(&b, "## Performance Issues\n\n")
	if len(r.Issues) == 0 {
		fmt.Fprintf(&b, "No issues detected.\n\n")
	} else {
		for _, group := range r.Issues {
			fmt.Fprintf(&b, "### %s\n\n", issueKindTitle(group.Kind))
			for _, issue := range group.Issues {
				fmt.Fprintf(&b, "- [%s] %s\n", strings.ToUpper(string(issue.Severity)), issue.Description)
				fmt.Fprintf(&b, "  - Recommendation: %s\n", issue.Recommendation)
			}
			fmt.Fprintf(&b, "\n")
		}
	}

	fmt.Fprintf(&b, "## Top Tables by Size\n\n")
	if len(r.TopTables) == 0 {
		fmt.Fprintf(&b, "No table statistics collected.\n\n")
	} else {
		for _, t := range r.TopTables {
			fmt.Fprintf(&b, "- %s: %s (~%d rows)\n", t.Name, models.FormatBytes(t.TotalSizeBytes), t.RowCount)
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "## Unused Indexes\n\n")
	if len(r.UnusedIndexes) == 0 {
		fmt.Fprintf(&b, "No unused indexes detected.\n\n")
	} else {
		for _, idx := range r.UnusedIndexes {
			fmt.Fprintf(&b, "- %s.%s: %s, %d scans\n", idx.Table, idx.Name, models.FormatBytes(idx.SizeBytes), idx.Scans)
		}
		fmt.Fprintf(&b, "\n")
	}

	if r.Trends != nil {
		fmt.Fprintf(&b, "## Trends\n\n")
		fmt.Fprintf(&b, "Window: %s to %s (%d samples)\n\n",
			r.Trends.WindowStart.Format(time.RFC3339),
			r.Trends.WindowEnd.Format(time.RFC3339),
			r.Trends.Samples)
		fmt.Fprintf(&b, "- Connection growth: %+d\n", r.Trends.ConnectionGrowth)
		fmt.Fprintf(&b, "- Query growth: %+d\n", r.Trends.QueryGrowth)
		fmt.Fprintf(&b, "- Size growth: %+d bytes\n", r.Trends.SizeGrowthBytes)
	}

	return b.String()
}

func issueKindTitle(kind models.IssueKind) string {
	switch kind {
	case models.IssueHighConnections:
		return "High Connections"
	case models.IssueLargeTable:
		return "Large Tables"
	case models.IssueSlowQuery:
		return "Slow Queries"
	case models.IssueUnusedIndex:
		return "Unused Indexes"
	case models.IssueMissingIndex:
		return "Missing Indexes"
	default:
		return string(kind)
	}
}
