package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemasync/internal/core"
)

func TestSQLFormatterFormatSyncScriptIncludesForwardSQL(t *testing.T) {
	script := &core.SyncScript{
		ComparisonID: "cmp-sql-1",
		ForwardSQL:   "SET FOREIGN_KEY_CHECKS = 0;\n\n-- TABLE CREATION\nCREATE TABLE t1 (id INT);\n\nSET FOREIGN_KEY_CHECKS = 1;\n",
		RollbackSQL:  "SET FOREIGN_KEY_CHECKS = 0;\n\nDROP TABLE t1;\n\nSET FOREIGN_KEY_CHECKS = 1;\n",
	}

	out, err := sqlFormatter{}.FormatSyncScript(script)
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE t1 (id INT);")
	assert.Contains(t, out, "-- ROLLBACK SQL (run separately)")
	assert.Contains(t, out, "-- DROP TABLE t1;")
}

func TestSQLFormatterFormatSyncScriptWarnsOnDowntimeAndDataLoss(t *testing.T) {
	script := &core.SyncScript{RequiresDowntime: true, DataLossRisk: true, ForwardSQL: "ALTER TABLE t1 DROP COLUMN c1;"}
	out, err := sqlFormatter{}.FormatSyncScript(script)
	require.NoError(t, err)
	assert.Contains(t, out, "WARNING: requires downtime")
	assert.Contains(t, out, "WARNING: data loss risk")
}

func TestSQLFormatterFormatSyncScriptEmptyForward(t *testing.T) {
	script := &core.SyncScript{Warnings: []string{"no changes needed"}}
	out, err := sqlFormatter{}.FormatSyncScript(script)
	require.NoError(t, err)
	assert.Contains(t, out, "No SQL statements generated.")
	assert.Contains(t, out, "-- WARNINGS")
	assert.Contains(t, out, "- no changes needed")
}

func TestSQLFormatterFormatSyncScriptNil(t *testing.T) {
	out, err := sqlFormatter{}.FormatSyncScript(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSQLFormatterFormatComparisonNil(t *testing.T) {
	out, err := sqlFormatter{}.FormatComparison(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSQLFormatterFormatComparisonListsDifferences(t *testing.T) {
	result := sampleComparisonResult()
	out, err := sqlFormatter{}.FormatComparison(result)
	require.NoError(t, err)
	assert.Contains(t, out, "shop.orders")
	assert.Contains(t, out, "COLUMN_ADDED")
}

func TestFormatComparisonTextNoDifferences(t *testing.T) {
	out := formatComparisonText(&core.ComparisonResult{ComparisonID: "cmp-empty"})
	assert.Equal(t, "-- No differences detected.\n", out)
}

func TestWriteRollbackAsCommentsPrefixesEachLine(t *testing.T) {
	out, err := sqlFormatter{}.FormatSyncScript(&core.SyncScript{
		ForwardSQL:  "CREATE TABLE t1 (id INT);",
		RollbackSQL: "DROP TABLE t1;\nDROP TABLE t2;",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "-- DROP TABLE t1;")
	assert.Contains(t, out, "-- DROP TABLE t2;")
}
