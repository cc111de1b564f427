package compare

import (
	"context"
	"sort"

	"schemasync/internal/core"
	"schemasync/internal/introspect"
)

// ProgressFunc receives progress events as Run advances. nil is a valid
// no-op subscriber.
type ProgressFunc func(core.ProgressEvent)

// Run compares two catalogs and returns every difference, sorted by
// (fix_order, severity_rank desc, object_name) per spec.md §4.2.5.
// Comparison proceeds table, index, then constraint in that fixed order so
// progress reporting is predictable regardless of catalog size.
func Run(ctx context.Context, comparisonID string, source, target *introspect.Catalog, opts core.ComparisonOptions, progress ProgressFunc) []core.Difference {
	var diffs []core.Difference
	report := func(phase core.Phase, current, total int, object, msg string) {
		if progress == nil {
			return
		}
		progress(core.ProgressEvent{
			ComparisonID:  comparisonID,
			Phase:         phase,
			Current:       current,
			Total:         total,
			CurrentObject: object,
			Message:       msg,
		})
	}

	if opts.CompareTables {
		report(core.PhaseComparison, 0, 1, "tables", "comparing tables")
		diffs = append(diffs, Tables(source.Tables, target.Tables, opts)...)
	}

	if opts.CompareColumns {
		total := len(source.Tables.Order)
		for i, key := range source.Tables.Order {
			select {
			case <-ctx.Done():
				return diffs
			default:
			}
			st, _ := source.Tables.Get(key)
			report(core.PhaseComparison, i+1, total, st.Name, "comparing columns")
			tt, ok := target.Tables.Get(key)
			if !ok {
				continue
			}
			diffs = append(diffs, Columns(st, tt, opts)...)
		}
	}

	if opts.CompareIndexes {
		sourceByTable := groupIndexesByTable(source.Indexes, opts.CaseSensitive)
		targetByTable := groupIndexesByTable(target.Indexes, opts.CaseSensitive)
		for _, key := range source.Tables.Order {
			st, _ := source.Tables.Get(key)
			diffs = append(diffs, Indexes(st.Schema, st.Name, sourceByTable[key], targetByTable[key], opts)...)
		}
	}

	if opts.CompareConstraints {
		sourceByTable := groupConstraintsByTable(source.Constraints, opts.CaseSensitive)
		targetByTable := groupConstraintsByTable(target.Constraints, opts.CaseSensitive)
		for _, key := range source.Tables.Order {
			st, _ := source.Tables.Get(key)
			diffs = append(diffs, Constraints(st.Schema, st.Name, sourceByTable[key], targetByTable[key], opts)...)
		}
	}

	sortDifferences(diffs)
	report(core.PhaseReport, 1, 1, "", "comparison complete")
	return diffs
}

func groupIndexesByTable(all introspect.Keyed[*core.Index], caseSensitive bool) map[string]introspect.Keyed[*core.Index] {
	byTable := make(map[string]introspect.Keyed[*core.Index])
	for _, key := range all.Order {
		idx, _ := all.Get(key)
		tk := idx.TableKey(caseSensitive)
		group, ok := byTable[tk]
		if !ok {
			group = introspect.NewKeyed[*core.Index]()
		}
		group.Add(key, idx)
		byTable[tk] = group
	}
	return byTable
}

func groupConstraintsByTable(all introspect.Keyed[*core.Constraint], caseSensitive bool) map[string]introspect.Keyed[*core.Constraint] {
	byTable := make(map[string]introspect.Keyed[*core.Constraint])
	for _, key := range all.Order {
		c, _ := all.Get(key)
		tk := c.TableKey(caseSensitive)
		group, ok := byTable[tk]
		if !ok {
			group = introspect.NewKeyed[*core.Constraint]()
		}
		group.Add(key, c)
		byTable[tk] = group
	}
	return byTable
}

func sortDifferences(diffs []core.Difference) {
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

// Summarize builds a Summary from a difference list (spec.md §3).
func Summarize(diffs []core.Difference) core.Summary {
	s := core.Summary{
		CountsBySeverity: make(map[core.SeverityLevel]int),
		CountsByDiffType: make(map[core.DiffType]int),
		CountsByObject:   make(map[core.ObjectType]int),
	}
	schemas := make(map[string]struct{})
	tables := make(map[string]struct{})

	for _, d := range diffs {
		s.CountsBySeverity[d.Severity]++
		s.CountsByDiffType[d.DiffType]++
		s.CountsByObject[d.ObjectType]++
		if d.Severity == core.SeverityCritical {
			s.CriticalCount++
			if isDataLossRisk(d.DiffType) {
				s.DataLossRisk = append(s.DataLossRisk, d.TableKey())
			}
		} else if isDataLossRisk(d.DiffType) {
			s.DataLossRisk = append(s.DataLossRisk, d.TableKey())
		}
		schemas[d.Schema] = struct{}{}
		tables[d.TableKey()] = struct{}{}
	}

	for schema := range schemas {
		s.AffectedSchemas = append(s.AffectedSchemas, schema)
	}
	for table := range tables {
		s.AffectedTables = append(s.AffectedTables, table)
	}
	sort.Strings(s.AffectedSchemas)
	sort.Strings(s.AffectedTables)

	return s
}

// isDataLossRisk flags the diff types counted as data-loss risks: a table
// that only exists in the target (forward statement DROP TABLE), a column
// that only exists in the source (ColumnRemoved), and a column type change.
// A table missing from the target and a column that only exists in the
// target (ColumnAdded, forward statement DROP COLUMN) are not flagged.
func isDataLossRisk(t core.DiffType) bool {
	switch t {
	case core.TableMissingSource, core.ColumnRemoved, core.ColumnTypeChanged:
		return true
	default:
		return false
	}
}
