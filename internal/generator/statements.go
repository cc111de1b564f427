package generator

import (
	"fmt"
	"strings"

	"schemasync/internal/core"
)

// StatementPair is one difference's forward and rollback SQL.
type StatementPair struct {
	Forward  string
	Rollback string
	Warnings []string
}

// generatorFunc produces a StatementPair for one difference. Returning an
// empty Forward means the difference has no safe auto-generated statement
// (e.g. an unnamed constraint MySQL gives no DROP syntax for); callers
// surface that as a validation warning rather than silently skipping it.
type generatorFunc func(d core.Difference) StatementPair

// dispatch is the total function from DiffType to statement generator that
// spec.md §4.4 calls for: every DiffType the comparer can produce has an
// entry here, or falls through to unsupported().
var dispatch = map[core.DiffType]generatorFunc{
	core.TableMissingTarget: genTableMissingTarget,
	core.TableMissingSource: genTableMissingSource,
	core.TablePropertyChanged: genTablePropertyChanged,

	core.ColumnAdded:           genColumnAdded,
	core.ColumnRemoved:         genColumnRemoved,
	core.ColumnTypeChanged:     genColumnRebuild,
	core.ColumnNullableChanged: genColumnRebuild,
	core.ColumnDefaultChanged:  genColumnRebuild,
	core.ColumnExtraChanged:    genColumnRebuild,

	core.IndexMissingTarget:    genIndexMissingTarget,
	core.IndexMissingSource:    genIndexMissingSource,
	core.IndexColumnsChanged:   genIndexRebuild,
	core.IndexUniqueChanged:    genIndexRebuild,
	core.IndexTypeChanged:      genIndexRebuild,
	core.IndexRenamed:          genIndexRenamed,
	core.IndexDuplicateSource:  genIndexDuplicateSource,
	core.IndexDuplicateTarget:  genIndexDuplicateTarget,

	core.ConstraintMissingTarget:     genConstraintMissingTarget,
	core.ConstraintMissingSource:     genConstraintMissingSource,
	core.ConstraintDefinitionChanged: genConstraintRebuild,
	core.ConstraintRenamed:           genConstraintRenamed,
}

func unsupported(d core.Difference) StatementPair {
	return StatementPair{Warnings: []string{fmt.Sprintf("no auto-fix statement for %s on %s.%s", d.DiffType, d.Schema, d.ObjectName)}}
}

// Dispatch resolves and runs the generator for d.
func Dispatch(d core.Difference) StatementPair {
	fn, ok := dispatch[d.DiffType]
	if !ok {
		return unsupported(d)
	}
	return fn(d)
}

func genTableMissingTarget(d core.Difference) StatementPair {
	t, ok := d.SourceValue.(*core.Table)
	if !ok {
		return unsupported(d)
	}
	return StatementPair{Forward: CreateTable(t), Rollback: DropTable(t.Schema, t.Name)}
}

func genTableMissingSource(d core.Difference) StatementPair {
	t, ok := d.TargetValue.(*core.Table)
	if !ok {
		return unsupported(d)
	}
	return StatementPair{Forward: DropTable(d.Schema, d.ObjectName), Rollback: CreateTable(t)}
}

func genTablePropertyChanged(d core.Difference) StatementPair {
	field, ok1 := d.SourceValue.(string)
	target, ok2 := d.TargetValue.(string)
	if !ok1 || !ok2 {
		return unsupported(d)
	}
	return StatementPair{
		Forward:  alterTableOption(d.Schema, d.ObjectName, d.SubObjectName, field),
		Rollback: alterTableOption(d.Schema, d.ObjectName, d.SubObjectName, target),
	}
}

func alterTableOption(schema, table, field, value string) string {
	q := QuoteQualified(schema, table)
	switch strings.ToLower(field) {
	case "engine":
		return fmt.Sprintf("ALTER TABLE %s ENGINE=%s;", q, value)
	case "charset":
		return fmt.Sprintf("ALTER TABLE %s DEFAULT CHARACTER SET=%s;", q, value)
	case "collation":
		return fmt.Sprintf("ALTER TABLE %s DEFAULT COLLATE=%s;", q, value)
	case "comment":
		return fmt.Sprintf("ALTER TABLE %s COMMENT=%s;", q, QuoteString(value))
	default:
		return fmt.Sprintf("ALTER TABLE %s %s=%s;", q, strings.ToUpper(field), value)
	}
}

func genColumnAdded(d core.Difference) StatementPair {
	c, ok := d.TargetValue.(*core.Column)
	if !ok {
		return unsupported(d)
	}
	return StatementPair{
		Forward:  DropColumn(d.Schema, d.ObjectName, c.Name),
		Rollback: AddColumn(d.Schema, d.ObjectName, c),
	}
}

func genColumnRemoved(d core.Difference) StatementPair {
	c, ok := d.SourceValue.(*core.Column)
	if !ok {
		return unsupported(d)
	}
	return StatementPair{
		Forward:  AddColumn(d.Schema, d.ObjectName, c),
		Rollback: DropColumn(d.Schema, d.ObjectName, c.Name),
	}
}

func genColumnRebuild(d core.Difference) StatementPair {
	sc, ok1 := d.SourceValue.(*core.Column)
	tc, ok2 := d.TargetValue.(*core.Column)
	if !ok1 || !ok2 {
		return unsupported(d)
	}
	return StatementPair{
		Forward:  ModifyColumn(d.Schema, d.ObjectName, sc),
		Rollback: ModifyColumn(d.Schema, d.ObjectName, tc),
	}
}

func genIndexMissingTarget(d core.Difference) StatementPair {
	idx, ok := d.SourceValue.(*core.Index)
	if !ok {
		return unsupported(d)
	}
	return StatementPair{Forward: CreateIndex(d.Schema, d.ObjectName, idx), Rollback: DropIndex(d.Schema, d.ObjectName, idx.Name)}
}

func genIndexMissingSource(d core.Difference) StatementPair {
	idx, ok := d.TargetValue.(*core.Index)
	if !ok {
		return unsupported(d)
	}
	return StatementPair{Forward: DropIndex(d.Schema, d.ObjectName, idx.Name), Rollback: CreateIndex(d.Schema, d.ObjectName, idx)}
}

func genIndexRebuild(d core.Difference) StatementPair {
	si, ok1 := d.SourceValue.(*core.Index)
	ti, ok2 := d.TargetValue.(*core.Index)
	if !ok1 || !ok2 {
		return unsupported(d)
	}
	return StatementPair{
		Forward:  DropIndex(d.Schema, d.ObjectName, ti.Name) + "\n" + CreateIndex(d.Schema, d.ObjectName, si),
		Rollback: DropIndex(d.Schema, d.ObjectName, si.Name) + "\n" + CreateIndex(d.Schema, d.ObjectName, ti),
	}
}

func genIndexRenamed(d core.Difference) StatementPair {
	oldName, ok1 := d.SourceValue.(string)
	newName, ok2 := d.TargetValue.(string)
	if !ok1 || !ok2 {
		return unsupported(d)
	}
	// Forward runs against the target to bring it in line with source, so it
	// renames the target's current name (newName) back to source's (oldName);
	// rollback undoes that.
	return StatementPair{
		Forward:  fmt.Sprintf("ALTER TABLE %s RENAME INDEX %s TO %s;", QuoteQualified(d.Schema, d.ObjectName), QuoteIdentifier(newName), QuoteIdentifier(oldName)),
		Rollback: fmt.Sprintf("ALTER TABLE %s RENAME INDEX %s TO %s;", QuoteQualified(d.Schema, d.ObjectName), QuoteIdentifier(oldName), QuoteIdentifier(newName)),
	}
}

func genIndexDuplicate(d core.Difference, side string) StatementPair {
	canonical, ok := d.SourceValue.(string)
	if !ok {
		return unsupported(d)
	}
	return StatementPair{
		Forward: fmt.Sprintf("-- index %s duplicates %s, dropping\n%s", d.SubObjectName, canonical, DropIndex(d.Schema, d.ObjectName, d.SubObjectName)),
		Warnings: []string{fmt.Sprintf(
			"duplicate index %s on %s.%s (%s side) was dropped; recreating it on rollback needs its original definition, which this diff does not carry",
			d.SubObjectName, d.Schema, d.ObjectName, side,
		)},
	}
}

func genIndexDuplicateSource(d core.Difference) StatementPair {
	return genIndexDuplicate(d, "source")
}

func genIndexDuplicateTarget(d core.Difference) StatementPair {
	return genIndexDuplicate(d, "target")
}

func genConstraintMissingTarget(d core.Difference) StatementPair {
	c, ok := d.SourceValue.(*core.Constraint)
	if !ok {
		return unsupported(d)
	}
	return StatementPair{Forward: AddConstraint(d.Schema, d.ObjectName, c), Rollback: dropConstraintStmt(d.Schema, d.ObjectName, c)}
}

func genConstraintMissingSource(d core.Difference) StatementPair {
	c, ok := d.TargetValue.(*core.Constraint)
	if !ok {
		return unsupported(d)
	}
	return StatementPair{Forward: dropConstraintStmt(d.Schema, d.ObjectName, c), Rollback: AddConstraint(d.Schema, d.ObjectName, c)}
}

func genConstraintRebuild(d core.Difference) StatementPair {
	sc, ok1 := d.SourceValue.(*core.Constraint)
	tc, ok2 := d.TargetValue.(*core.Constraint)
	if !ok1 || !ok2 {
		return unsupported(d)
	}
	return StatementPair{
		Forward:  dropConstraintStmt(d.Schema, d.ObjectName, tc) + "\n" + AddConstraint(d.Schema, d.ObjectName, sc),
		Rollback: dropConstraintStmt(d.Schema, d.ObjectName, sc) + "\n" + AddConstraint(d.Schema, d.ObjectName, tc),
	}
}

func genConstraintRenamed(d core.Difference) StatementPair {
	// MySQL has no RENAME CONSTRAINT for FOREIGN KEY/CHECK; the only safe
	// path is drop-and-recreate under the new name, which needs both full
	// definitions. Comparer only records names here, so surface a warning
	// instead of guessing at a destructive statement.
	return StatementPair{Warnings: []string{fmt.Sprintf("constraint rename on %s.%s requires a manual drop-and-recreate under the new name", d.Schema, d.ObjectName)}}
}
