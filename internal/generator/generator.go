package generator

import (
	"fmt"
	"sort"
	"strings"

	"schemasync/internal/core"
)

// Options controls sync-script generation beyond the direction choice
// itself (spec.md §4.4).
type Options struct {
	Direction        core.SyncDirection
	IncludeDataLoss  bool // when false, destructive diffs are downgraded to warnings-only
}

// section groups forward statements under one of the four headers spec.md
// §4.4.7 names, in the fixed order tables -> columns -> indexes ->
// constraints.
type section struct {
	title      string
	statements []string
}

func sectionTitleFor(objectType core.ObjectType) string {
	switch objectType {
	case core.ObjectTable:
		return "TABLE CREATION"
	case core.ObjectColumn:
		return "COLUMN MODIFICATIONS"
	case core.ObjectIndex:
		return "INDEX MODIFICATIONS"
	case core.ObjectConstraint:
		return "CONSTRAINT MODIFICATIONS"
	default:
		return "OTHER MODIFICATIONS"
	}
}

// Generate turns a sorted difference list into a SyncScript: direction
// applied, redundant sub-object diffs dropped, each remaining difference
// dispatched to its forward/rollback statement pair, and an impact estimate
// attached (spec.md §4.4, §4.5).
func Generate(comparisonID string, diffs []core.Difference, opts Options) *core.SyncScript {
	oriented := ApplyDirection(diffs, opts.Direction)
	filtered := FilterRedundant(oriented)

	script := &core.SyncScript{
		ComparisonID: comparisonID,
		Direction:    opts.Direction,
	}

	sectionOrder := []string{"TABLE CREATION", "COLUMN MODIFICATIONS", "INDEX MODIFICATIONS", "CONSTRAINT MODIFICATIONS", "OTHER MODIFICATIONS"}
	byTitle := make(map[string]*section, len(sectionOrder))
	for _, title := range sectionOrder {
		byTitle[title] = &section{title: title}
	}

	var rollback []string
	dataLossRisk := false
	requiresDowntime := false
	impactByObject := make(map[string]any)

	for _, d := range filtered {
		if isDestructive(d.DiffType) {
			dataLossRisk = true
			if !opts.IncludeDataLoss {
				script.Warnings = append(script.Warnings, "skipped destructive statement for "+d.TableKey()+": "+d.Description)
				continue
			}
		}
		if isDataLossWarning(d) {
			dataLossRisk = true
		}
		if requiresDowntimeFor(d) {
			requiresDowntime = true
		}

		pair := Dispatch(d)
		if pair.Forward != "" {
			sec := byTitle[sectionTitleFor(d.ObjectType)]
			sec.statements = append(sec.statements, pair.Forward)
		}
		if pair.Rollback != "" {
			rollback = append(rollback, pair.Rollback)
		}
		script.Warnings = append(script.Warnings, pair.Warnings...)
		if len(pair.Warnings) > 0 && pair.Forward == "" {
			continue
		}
		impactByObject[d.TableKey()] = d.Severity
	}

	script.ForwardSQL = frameForward(sectionOrder, byTitle)
	script.RollbackSQL = frameRollback(reverseOrder(rollback))
	script.DataLossRisk = dataLossRisk
	script.RequiresDowntime = requiresDowntime
	script.EstimatedImpact = impactByObject
	script.EstimatedDurationSecs = estimateDurationSecs(filtered)
	script.Validated = len(script.ValidationErrors) == 0

	return script
}

// frameForward wraps grouped statements in the literal framing spec.md
// §4.4.7 gives: FK-check/SQL-mode guards, section headers for non-empty
// groups in fixed order, and a closing FK-check re-enable. It returns ""
// when no section has a statement, as frameRollback does.
func frameForward(order []string, byTitle map[string]*section) string {
	empty := true
	for _, title := range order {
		if len(byTitle[title].statements) > 0 {
			empty = false
			break
		}
	}
	if empty {
		return ""
	}
	var b strings.Builder
	b.WriteString("SET FOREIGN_KEY_CHECKS = 0;\n")
	b.WriteString("SET SQL_MODE = 'NO_AUTO_VALUE_ON_ZERO';\n")
	for _, title := range order {
		sec := byTitle[title]
		if len(sec.statements) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n-- %s\n", sec.title)
		for _, stmt := range sec.statements {
			b.WriteString(stmt)
			b.WriteString("\n")
		}
	}
	b.WriteString("\nSET FOREIGN_KEY_CHECKS = 1;\n")
	return b.String()
}

// frameRollback applies the same FK-check framing to the reversed rollback
// sequence (spec.md §4.4.7: "same framing").
func frameRollback(stmts []string) string {
	if len(stmts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("SET FOREIGN_KEY_CHECKS = 0;\n")
	b.WriteString("SET SQL_MODE = 'NO_AUTO_VALUE_ON_ZERO';\n\n")
	for _, stmt := range stmts {
		b.WriteString(stmt)
		b.WriteString("\n")
	}
	b.WriteString("\nSET FOREIGN_KEY_CHECKS = 1;\n")
	return b.String()
}

// isDataLossWarning reports spec.md §4.4.6's data_loss_risk triggers beyond
// the destructive-diff-type check already covered by isDestructive:
// anything that already carries a "data loss" warning string.
func isDataLossWarning(d core.Difference) bool {
	for _, w := range d.Warnings {
		if strings.Contains(strings.ToLower(w), "data loss") {
			return true
		}
	}
	return false
}

// requiresDowntimeFor implements spec.md §4.4.6's literal trigger: any
// PRIMARY KEY change, or any CRITICAL column-type change.
func requiresDowntimeFor(d core.Difference) bool {
	if d.ObjectType == core.ObjectConstraint && isPrimaryKeyDiff(d) {
		return true
	}
	if d.DiffType == core.ColumnTypeChanged && d.Severity == core.SeverityCritical {
		return true
	}
	return false
}

func isPrimaryKeyDiff(d core.Difference) bool {
	switch d.DiffType {
	case core.ConstraintMissingSource, core.ConstraintMissingTarget, core.ConstraintDefinitionChanged:
		return strings.Contains(d.Description, "PRIMARY KEY")
	default:
		return false
	}
}

// reverseOrder reverses rollback statements so they undo the forward script
// in LIFO order: a rollback that recreates a column a later statement's
// constraint depends on must run before that constraint is re-added.
func reverseOrder(stmts []string) []string {
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[len(stmts)-1-i] = s
	}
	return out
}

func isDestructive(t core.DiffType) bool {
	switch t {
	case core.TableMissingSource, core.ColumnRemoved, core.ColumnTypeChanged:
		return true
	default:
		return false
	}
}

// estimateDurationSecs gives a rough, deterministic cost estimate per
// spec.md §4.4.6's literal weights: tables 5s, indexes 30s, type changes
// 60s, else 2s.
func estimateDurationSecs(diffs []core.Difference) int {
	total := 0
	for _, d := range diffs {
		switch {
		case d.DiffType == core.TableMissingTarget || d.DiffType == core.TableMissingSource:
			total += 5
		case d.DiffType == core.ColumnTypeChanged:
			total += 60
		case d.ObjectType == core.ObjectIndex:
			total += 30
		default:
			total += 2
		}
	}
	return total
}

// SortDifferences orders diffs the way Run already does, exposed here for
// callers (e.g. a loaded/re-applied ComparisonResult) that assemble a
// difference list outside of compare.Run.
func SortDifferences(diffs []core.Difference) {
	sort.SliceStable(diffs, func(i, j int) bool {
		a, b := diffs[i], diffs[j]
		if a.FixOrder != b.FixOrder {
			return a.FixOrder < b.FixOrder
		}
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		return a.ObjectName < b.ObjectName
	})
}
