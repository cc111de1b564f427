package compare

import (
	"fmt"

	"schemasync/internal/core"
)

// Columns compares the columns of one matched table pair. Columns are
// matched by exact name only — rename detection is scoped to indexes and
// constraints, whose fingerprints are stable identity signals; a column's
// "fingerprint" would just be its type, which many unrelated columns share,
// making a rename call there too unreliable to offer automatically.
func Columns(st, tt *core.Table, opts core.ComparisonOptions) []core.Difference {
	var diffs []core.Difference

	for _, sc := range st.Columns {
		tc, ok := tt.ColumnByName(sc.Name, opts.CaseSensitive)
		if !ok {
			diffs = append(diffs, core.Difference{
				DiffType:      core.ColumnRemoved,
				Severity:      core.SeverityHigh,
				ObjectType:    core.ObjectColumn,
				Schema:        st.Schema,
				ObjectName:    st.Name,
				SubObjectName: sc.Name,
				SourceValue:   sc,
				FixOrder:      core.FixOrder(core.ObjectColumn),
				CanAutoFix:    true,
				Warnings:      []string{"dropping this column on the target discards data stored there"},
				Description:   fmt.Sprintf("column %s.%s.%s exists in source but not target", st.Schema, st.Name, sc.Name),
			})
			continue
		}
		diffs = append(diffs, columnChanges(st, sc, tc, opts)...)
	}

	for _, tc := range tt.Columns {
		if _, ok := st.ColumnByName(tc.Name, opts.CaseSensitive); ok {
			continue
		}
		diffs = append(diffs, core.Difference{
			DiffType:      core.ColumnAdded,
			Severity:      core.SeverityHigh,
			ObjectType:    core.ObjectColumn,
			Schema:        st.Schema,
			ObjectName:    st.Name,
			SubObjectName: tc.Name,
			TargetValue:   tc,
			FixOrder:      core.FixOrder(core.ObjectColumn),
			CanAutoFix:    true,
			Description:   fmt.Sprintf("column %s.%s.%s exists in target but not source", st.Schema, st.Name, tc.Name),
		})
	}

	return diffs
}

func columnChanges(table *core.Table, sc, tc *core.Column, opts core.ComparisonOptions) []core.Difference {
	var diffs []core.Difference

	base := func(diffType core.DiffType, severity core.SeverityLevel, field, sourceDisplay, targetDisplay string) core.Difference {
		return core.Difference{
			DiffType:      diffType,
			Severity:      severity,
			ObjectType:    core.ObjectColumn,
			Schema:        table.Schema,
			ObjectName:    table.Name,
			SubObjectName: sc.Name,
			SourceValue:   sc,
			TargetValue:   tc,
			SourceDisplay: sourceDisplay,
			TargetDisplay: targetDisplay,
			FixOrder:      core.FixOrder(core.ObjectColumn),
			CanAutoFix:    true,
			Description:   fmt.Sprintf("column %s.%s.%s: %s differs (%s vs %s)", table.Schema, table.Name, sc.Name, field, sourceDisplay, targetDisplay),
		}
	}

	if sc.ColumnType != tc.ColumnType {
		diffs = append(diffs, base(core.ColumnTypeChanged, core.SeverityCritical, "type", sc.ColumnType, tc.ColumnType))
	}
	if sc.Nullable != tc.Nullable {
		diffs = append(diffs, base(core.ColumnNullableChanged, core.SeverityHigh, "nullable", boolDisplay(sc.Nullable), boolDisplay(tc.Nullable)))
	}
	if ptrDisplay(sc.Default) != ptrDisplay(tc.Default) {
		diffs = append(diffs, base(core.ColumnDefaultChanged, core.SeverityMedium, "default", ptrDisplay(sc.Default), ptrDisplay(tc.Default)))
	}
	if sc.Extra != tc.Extra {
		diffs = append(diffs, base(core.ColumnExtraChanged, core.SeverityMedium, "extra", sc.Extra, tc.Extra))
	}
	if !opts.IgnoreCharset && sc.Charset != tc.Charset {
		diffs = append(diffs, base(core.ColumnTypeChanged, core.SeverityLow, "charset", sc.Charset, tc.Charset))
	}
	if !opts.IgnoreCollation && sc.Collation != tc.Collation {
		diffs = append(diffs, base(core.ColumnTypeChanged, core.SeverityLow, "collation", sc.Collation, tc.Collation))
	}

	return diffs
}

func boolDisplay(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

func ptrDisplay(p *string) string {
	if p == nil {
		return "<NULL>"
	}
	return *p
}
