package apply

import "regexp"

// ddlVerb matches a DDL verb as a whole word, case-insensitive (spec.md
// §6): CREATE, ALTER, DROP, ADD, MODIFY, CHANGE, RENAME.
var ddlVerb = regexp.MustCompile(`(?i)\b(CREATE|ALTER|DROP|ADD|MODIFY|CHANGE|RENAME)\b`)

// setOrUseStatement matches the framing statements the sync-script
// generator wraps forward/rollback SQL in (SET FOREIGN_KEY_CHECKS, SET
// SQL_MODE) plus any USE <schema> statement a hand-edited script might add.
// Neither carries schema intent of its own, so §6 drops them even though
// SET technically parses as a statement.
var setOrUseStatement = regexp.MustCompile(`(?i)^\s*(SET|USE)\b`)

// FilterDDLStatements keeps only statements that carry a DDL verb, in
// order, dropping SET/USE framing statements (spec.md §6). A statement
// with no DDL verb at all (e.g. a stray SELECT) is also dropped.
func FilterDDLStatements(statements []string) []string {
	var out []string
	for _, stmt := range statements {
		if setOrUseStatement.MatchString(stmt) {
			continue
		}
		if !ddlVerb.MatchString(stmt) {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
