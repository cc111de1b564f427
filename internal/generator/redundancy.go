package generator

import "schemasync/internal/core"

// FilterRedundant drops any non-table difference scoped to a table that is
// itself being created or dropped whole: a CREATE TABLE already emits every
// column/index/constraint the target needs, so an ADD COLUMN against a
// table that doesn't exist yet is redundant noise, and a DROP TABLE against
// a table being removed makes every COLUMN/INDEX/CONSTRAINT diff under it
// moot (spec.md §4.4.2).
func FilterRedundant(diffs []core.Difference) []core.Difference {
	tablesBeingCreatedOrDropped := make(map[string]bool)
	for _, d := range diffs {
		if d.DiffType == core.TableMissingSource || d.DiffType == core.TableMissingTarget {
			tablesBeingCreatedOrDropped[d.TableKey()] = true
		}
	}

	if len(tablesBeingCreatedOrDropped) == 0 {
		return diffs
	}

	out := make([]core.Difference, 0, len(diffs))
	for _, d := range diffs {
		if d.ObjectType != core.ObjectTable && tablesBeingCreatedOrDropped[d.TableKey()] {
			continue
		}
		out = append(out, d)
	}
	return out
}
