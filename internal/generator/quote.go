// Package generator turns a sorted difference list into a reversible SQL
// sync script: a forward statement and a rollback statement per
// auto-fixable difference, direction-aware and redundancy-filtered.
package generator

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// QuoteIdentifier backtick-quotes a MySQL identifier, doubling any
// embedded backtick per MySQL's escaping rule.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteQualified quotes a schema.object pair as `schema`.`object`.
func QuoteQualified(schema, name string) string {
	if schema == "" {
		return QuoteIdentifier(name)
	}
	return QuoteIdentifier(schema) + "." + QuoteIdentifier(name)
}

// QuoteString single-quotes a SQL string literal, escaping embedded quotes
// and backslashes.
func QuoteString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "''")
	return "'" + s + "'"
}

var reFuncCall = regexp.MustCompile(`(?i)^[a-z_][a-z0-9_]*\s*\(.*\)$`)

var literalKeywords = []string{"NULL", "CURRENT_TIMESTAMP", "CURRENT_DATE", "CURRENT_TIME", "NOW()", "TRUE", "FALSE"}

// FormatDefaultValue renders a DEFAULT clause's value: bare for keywords,
// function calls, and numerics; quoted otherwise.
func FormatDefaultValue(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "''"
	}
	upper := strings.ToUpper(v)
	if slices.Contains(literalKeywords, upper) {
		return upper
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return v
	}
	if reFuncCall.MatchString(v) {
		return v
	}
	return QuoteString(v)
}
