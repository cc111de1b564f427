package generator

import (
	"regexp"
	"strings"

	"schemasync/internal/core"
)

var reBaseType = regexp.MustCompile(`(?i)^\s*([a-z0-9_]+)`)

func baseType(columnType string) string {
	m := reBaseType.FindStringSubmatch(columnType)
	if len(m) < 2 {
		return ""
	}
	return strings.ToLower(m[1])
}

func supportsCharsetCollation(columnType string) bool {
	switch baseType(columnType) {
	case "char", "varchar", "tinytext", "text", "mediumtext", "longtext", "enum", "set":
		return true
	default:
		return false
	}
}

// BuildColumnDefinition renders the full column definition MySQL's
// CHANGE/MODIFY COLUMN clause needs. MySQL's ALTER COLUMN grammar takes one
// complete definition, not a diff of attributes — a MODIFY COLUMN that only
// states the new type silently drops every attribute it doesn't repeat
// (AUTO_INCREMENT, the column's comment, its charset). Every caller that
// emits ADD COLUMN, MODIFY COLUMN, or CHANGE COLUMN must go through this
// function rather than stitching together a partial clause by hand.
func BuildColumnDefinition(c *core.Column) string {
	var parts []string

	parts = append(parts, QuoteIdentifier(c.Name), c.ColumnType)

	if supportsCharsetCollation(c.ColumnType) {
		if c.Charset != "" {
			parts = append(parts, "CHARACTER SET", c.Charset)
		}
		if c.Collation != "" {
			parts = append(parts, "COLLATE", c.Collation)
		}
	}

	if c.Nullable {
		parts = append(parts, "NULL")
	} else {
		parts = append(parts, "NOT NULL")
	}

	if c.Default != nil {
		parts = append(parts, "DEFAULT", FormatDefaultValue(*c.Default))
	}

	if extra := normalizedExtra(c.Extra); extra != "" {
		parts = append(parts, extra)
	}

	if c.Comment != "" {
		parts = append(parts, "COMMENT", QuoteString(c.Comment))
	}

	return strings.Join(parts, " ")
}

// normalizedExtra uppercases the handful of EXTRA tokens MySQL reports in
// lowercase (auto_increment) while leaving ON UPDATE clauses, which already
// carry their own casing, untouched.
func normalizedExtra(extra string) string {
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return ""
	}
	if strings.EqualFold(extra, "auto_increment") {
		return "AUTO_INCREMENT"
	}
	return extra
}
