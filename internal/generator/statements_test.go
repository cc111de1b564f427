package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"schemasync/internal/core"
)

func TestDispatchTableMissingTarget(t *testing.T) {
	d := core.Difference{DiffType: core.TableMissingTarget, Schema: "shop", ObjectName: "orders", SourceValue: sampleTable()}
	pair := Dispatch(d)
	assert.Contains(t, pair.Forward, "CREATE TABLE `shop`.`orders`")
	assert.Equal(t, "DROP TABLE `shop`.`orders`;", pair.Rollback)
}

func TestDispatchUnsupportedReturnsWarning(t *testing.T) {
	d := core.Difference{DiffType: core.DiffType("NOT_A_REAL_TYPE"), Schema: "shop", ObjectName: "orders"}
	pair := Dispatch(d)
	assert.Empty(t, pair.Forward)
	assert.Len(t, pair.Warnings, 1)
}

func TestGenIndexRebuildUsesBothDefinitions(t *testing.T) {
	si := &core.Index{Name: "ix_email", Columns: "email", IsUnique: false}
	ti := &core.Index{Name: "ix_email", Columns: "email", IsUnique: true}
	d := core.Difference{DiffType: core.IndexUniqueChanged, Schema: "shop", ObjectName: "customers", SourceValue: si, TargetValue: ti}
	pair := Dispatch(d)
	assert.Contains(t, pair.Forward, "DROP INDEX `ix_email`")
	assert.Contains(t, pair.Forward, "CREATE INDEX `ix_email`")
	assert.Contains(t, pair.Rollback, "CREATE UNIQUE INDEX `ix_email`")
}

func TestGenConstraintRenamedReturnsWarningOnly(t *testing.T) {
	d := core.Difference{DiffType: core.ConstraintRenamed, Schema: "shop", ObjectName: "orders"}
	pair := Dispatch(d)
	assert.Empty(t, pair.Forward)
	assert.Len(t, pair.Warnings, 1)
}

func TestGenColumnAddedDropsOnForwardAddsOnRollback(t *testing.T) {
	c := &core.Column{Name: "note", ColumnType: "text", Nullable: true}
	d := core.Difference{DiffType: core.ColumnAdded, Schema: "shop", ObjectName: "orders", TargetValue: c}
	pair := Dispatch(d)
	assert.Equal(t, "ALTER TABLE `shop`.`orders` DROP COLUMN `note`;", pair.Forward)
	assert.Contains(t, pair.Rollback, "ADD COLUMN `note`")
}

func TestAlterTableOptionEngine(t *testing.T) {
	d := core.Difference{DiffType: core.TablePropertyChanged, Schema: "shop", ObjectName: "orders", SubObjectName: "engine", SourceValue: "InnoDB", TargetValue: "MyISAM"}
	pair := Dispatch(d)
	assert.Equal(t, "ALTER TABLE `shop`.`orders` ENGINE=InnoDB;", pair.Forward)
	assert.Equal(t, "ALTER TABLE `shop`.`orders` ENGINE=MyISAM;", pair.Rollback)
}

func TestGenIndexRenamedForwardActsOnTarget(t *testing.T) {
	d := core.Difference{DiffType: core.IndexRenamed, Schema: "shop", ObjectName: "users", SourceValue: "idx_email", TargetValue: "uq_email"}
	pair := Dispatch(d)
	assert.Equal(t, "ALTER TABLE `shop`.`users` RENAME INDEX `uq_email` TO `idx_email`;", pair.Forward)
	assert.Equal(t, "ALTER TABLE `shop`.`users` RENAME INDEX `idx_email` TO `uq_email`;", pair.Rollback)
}

func TestGenIndexDuplicateSourceDropsWithCanonicalComment(t *testing.T) {
	d := core.Difference{DiffType: core.IndexDuplicateSource, Schema: "shop", ObjectName: "users", SubObjectName: "idx_a2", SourceValue: "idx_a"}
	pair := Dispatch(d)
	assert.Contains(t, pair.Forward, "idx_a2 duplicates idx_a")
	assert.Contains(t, pair.Forward, "DROP INDEX `idx_a2` ON `shop`.`users`;")
	assert.Len(t, pair.Warnings, 1)
}

func TestGenIndexDuplicateTargetDropsWithCanonicalComment(t *testing.T) {
	d := core.Difference{DiffType: core.IndexDuplicateTarget, Schema: "shop", ObjectName: "users", SubObjectName: "idx_b2", SourceValue: "idx_b"}
	pair := Dispatch(d)
	assert.Contains(t, pair.Forward, "idx_b2 duplicates idx_b")
	assert.Contains(t, pair.Forward, "DROP INDEX `idx_b2` ON `shop`.`users`;")
}
