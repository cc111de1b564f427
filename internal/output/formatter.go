// Package output formats a ComparisonResult or SyncScript for display: as
// SQL, JSON, or a compact human summary. Adapted from the teacher's
// internal/output, which formatted diff.SchemaDiff/migration.Migration the
// same three ways; the Format enum and Formatter/NewFormatter shape carry
// over unchanged, only the payload types differ.
package output

import (
	"fmt"
	"strings"

	"schemasync/internal/core"
)

// Format is an enum type representing the available output formats.
type Format string

const (
	FormatSQL     Format = "sql"
	FormatJSON    Format = "json"
	FormatSummary Format = "summary"
)

// Formatter renders a comparison result or a generated sync script.
type Formatter interface {
	FormatComparison(*core.ComparisonResult) (string, error)
	FormatSyncScript(*core.SyncScript) (string, error)
}

// NewFormatter creates a new Formatter instance based on the given name.
// If no format is specified, defaults to SQL format.
func NewFormatter(name string) (Formatter, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))
	switch format {
	case "", FormatSQL:
		return sqlFormatter{}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	case FormatSummary:
		return summaryFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s; use 'sql', 'json', or 'summary'", name)
	}
}
