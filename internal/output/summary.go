package output

import (
	"fmt"
	"sort"
	"strings"

	"schemasync/internal/core"
)

type summaryFormatter struct{}

// FormatComparison formats a comparison result as a compact summary.
// Example output:
//
//	Comparison Summary
//	===================
//
//	Comparison ID: cmp-1
//	Differences:   12 (3 critical)
//	By severity:   CRITICAL=3, HIGH=5, MEDIUM=4
//	By object:     COLUMN=8, INDEX=2, TABLE=2
//	Tables:        shop.orders, shop.users
func (summaryFormatter) FormatComparison(result *core.ComparisonResult) (string, error) {
	if result == nil || len(result.Differences) == 0 {
		return "No differences detected.\n", nil
	}

	var sb strings.Builder
	sb.WriteString("Comparison Summary\n")
	sb.WriteString("===================\n\n")

	fmt.Fprintf(&sb, "Comparison ID: %s\n", result.ComparisonID)
	fmt.Fprintf(&sb, "Differences:   %d (%d critical)\n", len(result.Differences), result.Summary.CriticalCount)
	fmt.Fprintf(&sb, "By severity:   %s\n", joinCounts(severityCounts(result.Summary.CountsBySeverity)))
	fmt.Fprintf(&sb, "By object:     %s\n", joinCounts(objectTypeCounts(result.Summary.CountsByObject)))

	if len(result.Summary.AffectedTables) > 0 {
		fmt.Fprintf(&sb, "Tables:        %s\n", strings.Join(result.Summary.AffectedTables, ", "))
	}
	if len(result.Summary.DataLossRisk) > 0 {
		fmt.Fprintf(&sb, "\nData loss risk on: %s\n", strings.Join(result.Summary.DataLossRisk, ", "))
	}
	if len(result.Errors) > 0 {
		fmt.Fprintf(&sb, "\nErrors: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(&sb, "   - %s\n", e)
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintf(&sb, "\nWarnings: %d\n", len(result.Warnings))
		for _, w := range result.Warnings {
			fmt.Fprintf(&sb, "   - %s\n", w)
		}
	}

	return sb.String(), nil
}

func joinCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}

// FormatSyncScript formats a sync script as a compact summary.
func (summaryFormatter) FormatSyncScript(s *core.SyncScript) (string, error) {
	if s == nil {
		return "No sync script generated.\n", nil
	}

	var sb strings.Builder
	sb.WriteString("Sync Script Summary\n")
	sb.WriteString("====================\n\n")

	fmt.Fprintf(&sb, "Comparison ID:     %s\n", s.ComparisonID)
	fmt.Fprintf(&sb, "Direction:         %s\n", s.Direction)
	fmt.Fprintf(&sb, "Forward lines:     %d\n", strings.Count(s.ForwardSQL, "\n"))
	fmt.Fprintf(&sb, "Rollback lines:    %d\n", strings.Count(s.RollbackSQL, "\n"))
	fmt.Fprintf(&sb, "Estimated runtime: %ds\n", s.EstimatedDurationSecs)
	fmt.Fprintf(&sb, "Requires downtime: %t\n", s.RequiresDowntime)
	fmt.Fprintf(&sb, "Data loss risk:    %t\n", s.DataLossRisk)
	fmt.Fprintf(&sb, "Validated:         %t\n", s.Validated)

	if len(s.ValidationErrors) > 0 {
		fmt.Fprintf(&sb, "\nValidation Errors: %d\n", len(s.ValidationErrors))
		for _, e := range s.ValidationErrors {
			fmt.Fprintf(&sb, "   - %s\n", e)
		}
	}

	if len(s.Warnings) > 0 {
		fmt.Fprintf(&sb, "\nWarnings: %d\n", len(s.Warnings))
		for _, w := range s.Warnings {
			fmt.Fprintf(&sb, "   - %s\n", w)
		}
	}

	return sb.String(), nil
}
