package core

import "fmt"

// Column is a canonical MySQL column record (spec.md §3).
type Column struct {
	Name            string
	OrdinalPosition int
	ColumnType      string // full textual type, e.g. "varchar(255)"
	DataType        string // bare type, e.g. "varchar"
	Nullable        bool
	Default         *string
	Extra           string // AUTO_INCREMENT, ON UPDATE CURRENT_TIMESTAMP, ...
	Charset         string
	Collation       string
	ColumnKey       string // PRI, MUL, UNI, ...
	Comment         string
	AfterColumn     *string // previous column by ordinal order, used to place ADD COLUMN
}

// Table is a canonical MySQL table record. Columns is kept in ordinal order
// (invariant I1); ColumnByName finds a column by scanning it.
type Table struct {
	Schema        string
	Name          string
	Engine        string
	Charset       string
	Collation     string
	Comment       string
	CreateOptions string
	Columns       []*Column
}

// Key returns the canonical object key for a table (spec.md §4.2.2).
func (t *Table) Key(caseSensitive bool) string {
	return objectKey(caseSensitive, t.Schema, t.Name)
}

// TableKey builds the same key a Table.Key would produce, for callers that
// only have the schema/name pair on hand (e.g. a discovery query scanning
// rows before a *Table exists).
func TableKey(schema, name string, caseSensitive bool) string {
	return objectKey(caseSensitive, schema, name)
}

// ColumnByName looks up a column by name, case-sensitivity controlled by
// the caller's comparison options.
func (t *Table) ColumnByName(name string, caseSensitive bool) (*Column, bool) {
	for _, c := range t.Columns {
		if columnNameEqual(c.Name, name, caseSensitive) {
			return c, true
		}
	}
	return nil, false
}

func columnNameEqual(a, b string, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}
	return lower(a) == lower(b)
}

// IndexColumnDetail carries a column's participation in an index, including
// any key-prefix length (spec.md §3, Index.column_details).
type IndexColumnDetail struct {
	Name         string
	PrefixLength *int
}

// Index is a canonical MySQL index record. PRIMARY is never represented
// here — it is owned by Constraint (spec.md §3).
type Index struct {
	Schema        string
	Table         string
	Name          string
	IsUnique      bool
	IndexType     string // BTREE, HASH, FULLTEXT, ...
	Columns       string // ordered, comma-joined column list
	ColumnDetails []IndexColumnDetail
	Comment       string
}

// Key returns the canonical object key for an index (spec.md §4.2.2).
func (i *Index) Key(caseSensitive bool) string {
	return objectKey(caseSensitive, i.Schema, i.Table, i.Name)
}

// IndexKey builds the same key Index.Key would produce, for callers
// assembling an index row by row before constructing the struct.
func IndexKey(schema, table, name string, caseSensitive bool) string {
	return objectKey(caseSensitive, schema, table, name)
}

// TableKey returns the key of the table this index belongs to, for
// grouping catalog-wide index sets by table.
func (i *Index) TableKey(caseSensitive bool) string {
	return TableKey(i.Schema, i.Table, caseSensitive)
}

// Fingerprint returns the structural signature used for rename/duplicate
// detection (spec.md §4.2.1). Name is deliberately excluded.
func (i *Index) Fingerprint() string {
	return fmt.Sprintf("%s.%s|%s|%t|%s", i.Schema, i.Table, i.Columns, i.IsUnique, i.IndexType)
}

// ConstraintKind enumerates the constraint kinds this model tracks. UNIQUE
// is deliberately absent — MySQL exposes it as an index, and the
// IndexComparer owns it exclusively (spec.md §9).
type ConstraintKind string

const (
	ConstraintPrimaryKey ConstraintKind = "PRIMARY KEY"
	ConstraintForeignKey ConstraintKind = "FOREIGN KEY"
	ConstraintCheck      ConstraintKind = "CHECK"
)

// Constraint is a canonical MySQL constraint record (spec.md §3).
type Constraint struct {
	Schema            string
	Table             string
	Name              string
	Kind              ConstraintKind
	Columns           string // comma-joined, ordered
	ReferencedSchema  string
	ReferencedTable   string
	ReferencedColumns string
	UpdateRule        string
	DeleteRule        string
	CheckClause       string
}

// Key returns the canonical object key for a constraint (spec.md §4.2.2).
func (c *Constraint) Key(caseSensitive bool) string {
	return objectKey(caseSensitive, c.Schema, c.Table, c.Name)
}

// ConstraintKey builds the same key Constraint.Key would produce, for
// callers assembling a constraint row by row before constructing the struct.
func ConstraintKey(schema, table, name string, caseSensitive bool) string {
	return objectKey(caseSensitive, schema, table, name)
}

// TableKey returns the key of the table this constraint belongs to, for
// grouping catalog-wide constraint sets by table.
func (c *Constraint) TableKey(caseSensitive bool) string {
	return TableKey(c.Schema, c.Table, caseSensitive)
}

// Fingerprint returns the structural signature used for rename/duplicate
// detection (spec.md §4.2.1). PRIMARY KEY constraints must never be
// fingerprint-matched across names (I4) — callers enforce that by never
// feeding PRIMARY KEY rows into the fingerprint pass at all.
func (c *Constraint) Fingerprint() string {
	base := fmt.Sprintf("%s.%s|%s|%s", c.Schema, c.Table, c.Kind, c.Columns)
	if c.Kind == ConstraintForeignKey {
		return fmt.Sprintf("%s|%s.%s|%s|%s|%s", base, c.ReferencedSchema, c.ReferencedTable, c.ReferencedColumns, c.UpdateRule, c.DeleteRule)
	}
	return base
}

func objectKey(caseSensitive bool, parts ...string) string {
	key := ""
	for i, p := range parts {
		if !caseSensitive {
			p = lower(p)
		}
		if i > 0 {
			key += "."
		}
		key += p
	}
	return key
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
