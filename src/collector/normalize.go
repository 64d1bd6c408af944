package collector

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// normalizeQuery replaces literal values in a sampled query with placeholders
// and collapses whitespace. Queries that fail to parse are kept verbatim;
// pg_stat_statements already normalizes most of them.
func normalizeQuery(query string) string {
	normalized, err := pg_query.Normalize(query)
	if err != nil {
		return strings.Join(strings.Fields(query), " ")
	}
	return strings.Join(strings.Fields(normalized), " ")
}
