package output

import (
	"fmt"
	"strings"

	"schemasync/internal/core"
)

// formatComparisonText renders a ComparisonResult's differences as a
// sequence of SQL comment lines, grouped by table in first-seen order.
func formatComparisonText(result *core.ComparisonResult) string {
	if result == nil || len(result.Differences) == 0 {
		return "-- No differences detected.\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "-- Comparison %s: %d difference(s)\n", result.ComparisonID, len(result.Differences))

	if len(result.Errors) > 0 {
		sb.WriteString("--\n-- Errors:\n")
		for _, e := range result.Errors {
			fmt.Fprintf(&sb, "--   - %s\n", e)
		}
	}
	if len(result.Warnings) > 0 {
		sb.WriteString("--\n-- Warnings:\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(&sb, "--   - %s\n", w)
		}
	}

	byTable := make(map[string][]core.Difference)
	var tableOrder []string
	for _, d := range result.Differences {
		key := d.TableKey()
		if _, seen := byTable[key]; !seen {
			tableOrder = append(tableOrder, key)
		}
		byTable[key] = append(byTable[key], d)
	}

	for _, table := range tableOrder {
		fmt.Fprintf(&sb, "--\n-- %s\n", table)
		for _, d := range byTable[table] {
			writeDifferenceComment(&sb, d)
		}
	}

	return sb.String()
}

func writeDifferenceComment(sb *strings.Builder, d core.Difference) {
	name := d.ObjectName
	if d.SubObjectName != "" {
		name = fmt.Sprintf("%s.%s", d.ObjectName, d.SubObjectName)
	}
	fmt.Fprintf(sb, "--   [%s] %s %s: %s\n", d.Severity, d.DiffType, name, d.Description)
	for _, w := range d.Warnings {
		fmt.Fprintf(sb, "--     ! %s\n", w)
	}
}
