package compare

import (
	"fmt"

	"schemasync/internal/core"
	"schemasync/internal/introspect"
)

// Indexes matches and diffs the indexes of one table pair using the
// fingerprint-aware four-pass algorithm (spec.md §4.2.1): a renamed index
// produces a single INDEX_RENAMED difference instead of a spurious
// missing+added pair.
func Indexes(schema, table string, source, target introspect.Keyed[*core.Index], opts core.ComparisonOptions) []core.Difference {
	result := Match(source, target, func(i *core.Index) string { return i.Name })

	var diffs []core.Difference

	for _, pair := range result.Exact {
		diffs = append(diffs, indexPropertyChanges(schema, table, pair.Source, pair.Target)...)
	}

	for _, r := range result.Renamed {
		diffs = append(diffs, core.Difference{
			DiffType:      core.IndexRenamed,
			Severity:      core.SeverityLow,
			ObjectType:    core.ObjectIndex,
			Schema:        schema,
			ObjectName:    table,
			SubObjectName: r.TargetName,
			SourceValue:   r.SourceName,
			TargetValue:   r.TargetName,
			SourceDisplay: r.SourceName,
			TargetDisplay: r.TargetName,
			FixOrder:      core.FixOrder(core.ObjectIndex),
			CanAutoFix:    true,
			Description:   fmt.Sprintf("index on %s.%s renamed from %s to %s", schema, table, r.SourceName, r.TargetName),
		})
	}

	for _, dup := range result.DuplicateSource {
		idx := dup.Item
		diffs = append(diffs, core.Difference{
			DiffType:      core.IndexDuplicateSource,
			Severity:      core.SeverityLow,
			ObjectType:    core.ObjectIndex,
			Schema:        schema,
			ObjectName:    table,
			SubObjectName: idx.Name,
			SourceValue:   dup.CanonicalName,
			SourceDisplay: dup.CanonicalName,
			FixOrder:      core.FixOrder(core.ObjectIndex),
			CanAutoFix:    true,
			Description:   fmt.Sprintf("index %s on %s.%s duplicates canonical index %s in source", idx.Name, schema, table, dup.CanonicalName),
		})
	}
	for _, dup := range result.DuplicateTarget {
		idx := dup.Item
		diffs = append(diffs, core.Difference{
			DiffType:      core.IndexDuplicateTarget,
			Severity:      core.SeverityLow,
			ObjectType:    core.ObjectIndex,
			Schema:        schema,
			ObjectName:    table,
			SubObjectName: idx.Name,
			SourceValue:   dup.CanonicalName,
			SourceDisplay: dup.CanonicalName,
			FixOrder:      core.FixOrder(core.ObjectIndex),
			CanAutoFix:    true,
			Description:   fmt.Sprintf("index %s on %s.%s duplicates canonical index %s in target", idx.Name, schema, table, dup.CanonicalName),
		})
	}

	for _, idx := range result.MissingInTarget {
		diffs = append(diffs, core.Difference{
			DiffType:      core.IndexMissingTarget,
			Severity:      core.SeverityHigh,
			ObjectType:    core.ObjectIndex,
			Schema:        schema,
			ObjectName:    table,
			SubObjectName: idx.Name,
			SourceValue:   idx,
			FixOrder:      core.FixOrder(core.ObjectIndex),
			CanAutoFix:    true,
			Description:   fmt.Sprintf("index %s on %s.%s exists in source but not target", idx.Name, schema, table),
		})
	}
	for _, idx := range result.MissingInSource {
		diffs = append(diffs, core.Difference{
			DiffType:      core.IndexMissingSource,
			Severity:      core.SeverityHigh,
			ObjectType:    core.ObjectIndex,
			Schema:        schema,
			ObjectName:    table,
			SubObjectName: idx.Name,
			TargetValue:   idx,
			FixOrder:      core.FixOrder(core.ObjectIndex),
			CanAutoFix:    true,
			Description:   fmt.Sprintf("index %s on %s.%s exists in target but not source", idx.Name, schema, table),
		})
	}

	return diffs
}

func indexPropertyChanges(schema, table string, si, ti *core.Index) []core.Difference {
	var diffs []core.Difference

	if si.Columns != ti.Columns {
		diffs = append(diffs, core.Difference{
			DiffType:      core.IndexColumnsChanged,
			Severity:      core.SeverityHigh,
			ObjectType:    core.ObjectIndex,
			Schema:        schema,
			ObjectName:    table,
			SubObjectName: si.Name,
			SourceValue:   si,
			TargetValue:   ti,
			SourceDisplay: si.Columns,
			TargetDisplay: ti.Columns,
			FixOrder:      core.FixOrder(core.ObjectIndex),
			CanAutoFix:    true,
			Description:   fmt.Sprintf("index %s on %s.%s: columns differ (%s vs %s)", si.Name, schema, table, si.Columns, ti.Columns),
		})
	}
	if si.IsUnique != ti.IsUnique {
		diffs = append(diffs, core.Difference{
			DiffType:      core.IndexUniqueChanged,
			Severity:      core.SeverityHigh,
			ObjectType:    core.ObjectIndex,
			Schema:        schema,
			ObjectName:    table,
			SubObjectName: si.Name,
			SourceValue:   si,
			TargetValue:   ti,
			SourceDisplay: boolDisplay(si.IsUnique),
			TargetDisplay: boolDisplay(ti.IsUnique),
			FixOrder:      core.FixOrder(core.ObjectIndex),
			CanAutoFix:    true,
			Description:   fmt.Sprintf("index %s on %s.%s: uniqueness differs", si.Name, schema, table),
		})
	}
	if si.IndexType != ti.IndexType {
		diffs = append(diffs, core.Difference{
			DiffType:      core.IndexTypeChanged,
			Severity:      core.SeverityMedium,
			ObjectType:    core.ObjectIndex,
			Schema:        schema,
			ObjectName:    table,
			SubObjectName: si.Name,
			SourceValue:   si,
			TargetValue:   ti,
			SourceDisplay: si.IndexType,
			TargetDisplay: ti.IndexType,
			FixOrder:      core.FixOrder(core.ObjectIndex),
			CanAutoFix:    true,
			Description:   fmt.Sprintf("index %s on %s.%s: type differs (%s vs %s)", si.Name, schema, table, si.IndexType, ti.IndexType),
		})
	}

	return diffs
}
