package generator

import (
	"fmt"
	"strings"

	"schemasync/internal/core"
)

// CreateTable renders a full CREATE TABLE statement from a canonical table
// record, column definitions in ordinal order, grounded on the teacher's
// table-options/column-definition assembly (internal/dialect/mysql/table.go).
func CreateTable(t *core.Table) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(QuoteQualified(t.Schema, t.Name))
	sb.WriteString(" (\n")

	defs := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		defs = append(defs, "  "+BuildColumnDefinition(c))
	}
	sb.WriteString(strings.Join(defs, ",\n"))
	sb.WriteString("\n)")
	sb.WriteString(tableOptions(t))
	sb.WriteString(";")
	return sb.String()
}

func tableOptions(t *core.Table) string {
	var parts []string
	if t.Engine != "" {
		parts = append(parts, "ENGINE="+t.Engine)
	}
	if t.Charset != "" {
		parts = append(parts, "DEFAULT CHARSET="+t.Charset)
	}
	if t.Collation != "" {
		parts = append(parts, "COLLATE="+t.Collation)
	}
	if t.Comment != "" {
		parts = append(parts, "COMMENT="+QuoteString(t.Comment))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

// DropTable renders a DROP TABLE statement for a (schema, name) pair.
func DropTable(schema, name string) string {
	return fmt.Sprintf("DROP TABLE %s;", QuoteQualified(schema, name))
}

// AddColumn renders an ADD COLUMN statement, placing it after its recorded
// predecessor when known so a rollback restores the original ordinal order.
func AddColumn(schema, table string, c *core.Column) string {
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", QuoteQualified(schema, table), BuildColumnDefinition(c))
	if c.AfterColumn != nil {
		stmt += " AFTER " + QuoteIdentifier(*c.AfterColumn)
	} else if c.OrdinalPosition == 1 {
		stmt += " FIRST"
	}
	return stmt + ";"
}

// DropColumn renders a DROP COLUMN statement.
func DropColumn(schema, table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", QuoteQualified(schema, table), QuoteIdentifier(column))
}

// ModifyColumn renders a MODIFY COLUMN statement carrying the column's full
// definition (see BuildColumnDefinition for why a partial one is unsafe).
func ModifyColumn(schema, table string, c *core.Column) string {
	return fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s;", QuoteQualified(schema, table), BuildColumnDefinition(c))
}

func formatIndexColumns(idx *core.Index) string {
	if len(idx.ColumnDetails) == 0 {
		return "(" + idx.Columns + ")"
	}
	parts := make([]string, 0, len(idx.ColumnDetails))
	for _, cd := range idx.ColumnDetails {
		col := QuoteIdentifier(cd.Name)
		if cd.PrefixLength != nil {
			col = fmt.Sprintf("%s(%d)", col, *cd.PrefixLength)
		}
		parts = append(parts, col)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// CreateIndex renders a CREATE [UNIQUE] INDEX statement.
func CreateIndex(schema, table string, idx *core.Index) string {
	cols := formatIndexColumns(idx)
	kind := "INDEX"
	if idx.IsUnique {
		kind = "UNIQUE INDEX"
	}
	using := ""
	if idx.IndexType != "" && !strings.EqualFold(idx.IndexType, "BTREE") {
		using = " USING " + strings.ToUpper(idx.IndexType)
	}
	return fmt.Sprintf("CREATE %s %s ON %s %s%s;", kind, QuoteIdentifier(idx.Name), QuoteQualified(schema, table), cols, using)
}

// DropIndex renders a DROP INDEX statement.
func DropIndex(schema, table, name string) string {
	return fmt.Sprintf("DROP INDEX %s ON %s;", QuoteIdentifier(name), QuoteQualified(schema, table))
}

// AddConstraint renders an ALTER TABLE ADD statement for a primary key,
// foreign key, or check constraint (UNIQUE is owned by the index comparer).
func AddConstraint(schema, table string, c *core.Constraint) string {
	q := QuoteQualified(schema, table)
	switch c.Kind {
	case core.ConstraintPrimaryKey:
		return fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s);", q, c.Columns)
	case core.ConstraintForeignKey:
		stmt := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
			q, QuoteIdentifier(c.Name), c.Columns, QuoteQualified(c.ReferencedSchema, c.ReferencedTable), c.ReferencedColumns)
		if c.UpdateRule != "" {
			stmt += " ON UPDATE " + c.UpdateRule
		}
		if c.DeleteRule != "" {
			stmt += " ON DELETE " + c.DeleteRule
		}
		return stmt + ";"
	case core.ConstraintCheck:
		return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s);", q, QuoteIdentifier(c.Name), c.CheckClause)
	default:
		return ""
	}
}

// dropConstraintStmt renders the DROP clause matching a constraint's kind.
// MySQL uses a different DROP verb for each kind: PRIMARY KEY has no name to
// reference, FOREIGN KEY and CHECK both drop by name.
func dropConstraintStmt(schema, table string, c *core.Constraint) string {
	q := QuoteQualified(schema, table)
	switch c.Kind {
	case core.ConstraintPrimaryKey:
		return fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY;", q)
	case core.ConstraintForeignKey:
		return fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s;", q, QuoteIdentifier(c.Name))
	case core.ConstraintCheck:
		return fmt.Sprintf("ALTER TABLE %s DROP CHECK %s;", q, QuoteIdentifier(c.Name))
	default:
		return ""
	}
}
