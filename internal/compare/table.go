package compare

import (
	"fmt"

	"schemasync/internal/core"
	"schemasync/internal/introspect"
)

// Tables matches source/target tables by exact (schema, name) key only —
// tables are never fingerprint-renamed, since a table's "fingerprint"
// would be its full column set, and a single added/removed column would
// then look indistinguishable from a rename (spec.md §4.2.1 scopes
// structural rename detection to indexes and constraints).
func Tables(source, target introspect.Keyed[*core.Table], opts core.ComparisonOptions) []core.Difference {
	var diffs []core.Difference

	for _, key := range source.Order {
		st, _ := source.Get(key)
		if _, ok := target.Get(key); ok {
			continue
		}
		diffs = append(diffs, core.Difference{
			DiffType:    core.TableMissingTarget,
			Severity:    core.SeverityCritical,
			ObjectType:  core.ObjectTable,
			Schema:      st.Schema,
			ObjectName:  st.Name,
			SourceValue: st,
			FixOrder:    core.FixOrder(core.ObjectTable),
			CanAutoFix:  true,
			Description: fmt.Sprintf("table %s.%s exists in source but not target", st.Schema, st.Name),
		})
	}

	for _, key := range target.Order {
		tt, _ := target.Get(key)
		if _, ok := source.Get(key); ok {
			continue
		}
		diffs = append(diffs, core.Difference{
			DiffType:    core.TableMissingSource,
			Severity:    core.SeverityCritical,
			ObjectType:  core.ObjectTable,
			Schema:      tt.Schema,
			ObjectName:  tt.Name,
			TargetValue: tt,
			FixOrder:    core.FixOrder(core.ObjectTable),
			CanAutoFix:  true,
			Description: fmt.Sprintf("table %s.%s exists in target but not source", tt.Schema, tt.Name),
		})
	}

	for _, key := range source.Order {
		st, ok := source.Get(key)
		if !ok {
			continue
		}
		tt, ok := target.Get(key)
		if !ok {
			continue
		}
		diffs = append(diffs, tableProperties(st, tt, opts)...)
	}

	return diffs
}

func tableProperties(st, tt *core.Table, opts core.ComparisonOptions) []core.Difference {
	var diffs []core.Difference

	add := func(field, sourceVal, targetVal string) {
		diffs = append(diffs, core.Difference{
			DiffType:      core.TablePropertyChanged,
			Severity:      core.SeverityMedium,
			ObjectType:    core.ObjectTable,
			Schema:        st.Schema,
			ObjectName:    st.Name,
			SubObjectName: field,
			SourceValue:   sourceVal,
			TargetValue:   targetVal,
			SourceDisplay: sourceVal,
			TargetDisplay: targetVal,
			FixOrder:      core.FixOrder(core.ObjectTable),
			CanAutoFix:    true,
			Description:   fmt.Sprintf("table %s.%s: %s differs (%s vs %s)", st.Schema, st.Name, field, sourceVal, targetVal),
		})
	}

	if st.Engine != tt.Engine {
		add("engine", st.Engine, tt.Engine)
	}
	if !opts.IgnoreCharset && st.Charset != tt.Charset {
		add("charset", st.Charset, tt.Charset)
	}
	if !opts.IgnoreCollation && st.Collation != tt.Collation {
		add("collation", st.Collation, tt.Collation)
	}
	if !opts.IgnoreComments && st.Comment != tt.Comment {
		add("comment", st.Comment, tt.Comment)
	}

	return diffs
}
