package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"schemasync/internal/core"
)

func TestFilterRedundantDropsColumnDiffUnderNewTable(t *testing.T) {
	diffs := []core.Difference{
		{DiffType: core.TableMissingTarget, ObjectType: core.ObjectTable, Schema: "shop", ObjectName: "orders"},
		{DiffType: core.ColumnAdded, ObjectType: core.ObjectColumn, Schema: "shop", ObjectName: "orders"},
	}
	out := FilterRedundant(diffs)
	assert.Len(t, out, 1)
	assert.Equal(t, core.TableMissingTarget, out[0].DiffType)
}

func TestFilterRedundantKeepsUnrelatedTableDiffs(t *testing.T) {
	diffs := []core.Difference{
		{DiffType: core.TableMissingTarget, ObjectType: core.ObjectTable, Schema: "shop", ObjectName: "orders"},
		{DiffType: core.ColumnAdded, ObjectType: core.ObjectColumn, Schema: "shop", ObjectName: "customers"},
	}
	out := FilterRedundant(diffs)
	assert.Len(t, out, 2)
}

func TestFilterRedundantNoOpWhenNoTableDiffs(t *testing.T) {
	diffs := []core.Difference{
		{DiffType: core.ColumnAdded, ObjectType: core.ObjectColumn, Schema: "shop", ObjectName: "orders"},
	}
	out := FilterRedundant(diffs)
	assert.Equal(t, diffs, out)
}
