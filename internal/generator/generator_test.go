package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemasync/internal/core"
)

func TestGenerateBuildsForwardAndRollback(t *testing.T) {
	diffs := []core.Difference{
		{DiffType: core.TableMissingTarget, ObjectType: core.ObjectTable, Schema: "shop", ObjectName: "orders", SourceValue: sampleTable()},
	}
	script := Generate("cmp-1", diffs, Options{Direction: core.SourceToTarget, IncludeDataLoss: true})
	assert.Contains(t, script.ForwardSQL, "CREATE TABLE")
	assert.Contains(t, script.RollbackSQL, "DROP TABLE")
	assert.False(t, script.DataLossRisk)
}

func TestGenerateSkipsDestructiveWhenDataLossExcluded(t *testing.T) {
	diffs := []core.Difference{
		{DiffType: core.ColumnRemoved, ObjectType: core.ObjectColumn, Schema: "shop", ObjectName: "orders", SourceValue: &core.Column{Name: "legacy_flag", ColumnType: "tinyint(1)"}},
	}
	script := Generate("cmp-2", diffs, Options{Direction: core.SourceToTarget, IncludeDataLoss: false})
	assert.Empty(t, script.ForwardSQL)
	assert.True(t, script.DataLossRisk)
	assert.Len(t, script.Warnings, 1)
}

func TestGenerateIncludesDestructiveWhenAllowed(t *testing.T) {
	diffs := []core.Difference{
		{DiffType: core.ColumnRemoved, ObjectType: core.ObjectColumn, Schema: "shop", ObjectName: "orders", SourceValue: &core.Column{Name: "legacy_flag", ColumnType: "tinyint(1)"}},
	}
	script := Generate("cmp-3", diffs, Options{Direction: core.SourceToTarget, IncludeDataLoss: true})
	assert.Contains(t, script.ForwardSQL, "ADD COLUMN `legacy_flag`")
}

func TestGenerateFiltersRedundantColumnUnderNewTable(t *testing.T) {
	diffs := []core.Difference{
		{DiffType: core.TableMissingTarget, ObjectType: core.ObjectTable, Schema: "shop", ObjectName: "orders", SourceValue: sampleTable()},
		{DiffType: core.ColumnAdded, ObjectType: core.ObjectColumn, Schema: "shop", ObjectName: "orders", TargetValue: &core.Column{Name: "note", ColumnType: "text", Nullable: true}},
	}
	script := Generate("cmp-4", diffs, Options{Direction: core.SourceToTarget, IncludeDataLoss: true})
	assert.Equal(t, 0, strings.Count(script.ForwardSQL, "ALTER TABLE"))
}

func TestGenerateFramesForwardAndRollbackWithForeignKeyChecks(t *testing.T) {
	diffs := []core.Difference{
		{DiffType: core.TableMissingTarget, ObjectType: core.ObjectTable, Schema: "shop", ObjectName: "orders", SourceValue: sampleTable()},
	}
	script := Generate("cmp-5", diffs, Options{Direction: core.SourceToTarget, IncludeDataLoss: true})

	assert.True(t, strings.HasPrefix(script.ForwardSQL, "SET FOREIGN_KEY_CHECKS = 0;"))
	assert.Contains(t, script.ForwardSQL, "SET SQL_MODE = 'NO_AUTO_VALUE_ON_ZERO';")
	assert.Contains(t, script.ForwardSQL, "-- TABLE CREATION")
	assert.True(t, strings.HasSuffix(strings.TrimRight(script.ForwardSQL, "\n"), "SET FOREIGN_KEY_CHECKS = 1;"))

	assert.Contains(t, script.RollbackSQL, "SET FOREIGN_KEY_CHECKS = 0;")
	assert.True(t, strings.HasSuffix(strings.TrimRight(script.RollbackSQL, "\n"), "SET FOREIGN_KEY_CHECKS = 1;"))
}

func TestGenerateGroupsStatementsBySectionInFixedOrder(t *testing.T) {
	diffs := []core.Difference{
		{DiffType: core.IndexMissingTarget, ObjectType: core.ObjectIndex, Schema: "shop", ObjectName: "orders", SubObjectName: "idx_customer", SourceValue: &core.Index{Name: "idx_customer", Columns: "customer_id"}},
		{DiffType: core.ColumnAdded, ObjectType: core.ObjectColumn, Schema: "shop", ObjectName: "orders", TargetValue: &core.Column{Name: "note", ColumnType: "text", Nullable: true}},
	}
	script := Generate("cmp-6", diffs, Options{Direction: core.SourceToTarget, IncludeDataLoss: true})

	colIdx := strings.Index(script.ForwardSQL, "COLUMN MODIFICATIONS")
	idxIdx := strings.Index(script.ForwardSQL, "INDEX MODIFICATIONS")
	require.NotEqual(t, -1, colIdx)
	require.NotEqual(t, -1, idxIdx)
	assert.Less(t, colIdx, idxIdx)
}

func TestGenerateRequiresDowntimeOnPrimaryKeyChange(t *testing.T) {
	diffs := []core.Difference{
		{DiffType: core.ConstraintMissingTarget, ObjectType: core.ObjectConstraint, Schema: "shop", ObjectName: "orders", Description: "PRIMARY KEY pk_orders on shop.orders exists in source but not target", SourceValue: &core.Constraint{Kind: core.ConstraintPrimaryKey, Columns: "id"}},
	}
	script := Generate("cmp-7", diffs, Options{Direction: core.SourceToTarget, IncludeDataLoss: true})
	assert.True(t, script.RequiresDowntime)
}

func TestGenerateNoDowntimeForOrdinaryColumnAdd(t *testing.T) {
	diffs := []core.Difference{
		{DiffType: core.ColumnAdded, ObjectType: core.ObjectColumn, Schema: "shop", ObjectName: "orders", TargetValue: &core.Column{Name: "note", ColumnType: "text", Nullable: true}},
	}
	script := Generate("cmp-8", diffs, Options{Direction: core.SourceToTarget, IncludeDataLoss: true})
	assert.False(t, script.RequiresDowntime)
}

func TestSortDifferencesOrdersByFixOrderThenSeverity(t *testing.T) {
	diffs := []core.Difference{
		{ObjectName: "z_table", FixOrder: core.FixOrder(core.ObjectColumn), Severity: core.SeverityLow},
		{ObjectName: "a_table", FixOrder: core.FixOrder(core.ObjectTable), Severity: core.SeverityCritical},
	}
	SortDifferences(diffs)
	assert.Equal(t, "a_table", diffs[0].ObjectName)
}
