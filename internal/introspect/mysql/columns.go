package mysql

import (
	"context"
	"database/sql"

	"schemasync/internal/core"
	"schemasync/internal/introspect"
)

// discoverColumns fills in Columns on every table already present in
// tables, in ordinal order (spec.md §3, invariant I1).
func discoverColumns(ctx context.Context, q introspect.Querier, opts core.ComparisonOptions, tables introspect.Keyed[*core.Table]) error {
	rows, err := q.QueryContext(ctx, `
		SELECT
			c.table_schema,
			c.table_name,
			c.column_name,
			c.ordinal_position,
			c.column_type,
			c.data_type,
			c.is_nullable,
			c.column_default,
			c.extra,
			c.character_set_name,
			c.collation_name,
			c.column_key,
			c.column_comment
		FROM information_schema.columns c
		ORDER BY c.table_schema, c.table_name, c.ordinal_position
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	prevByTable := make(map[string]string)

	for rows.Next() {
		var schema, name, colName, colType, dataType, nullable, extra string
		var ordinal int
		var defaultVal, charset, collation, colKey, comment sql.NullString
		if err := rows.Scan(&schema, &name, &colName, &ordinal, &colType, &dataType, &nullable, &defaultVal, &extra, &charset, &collation, &colKey, &comment); err != nil {
			return err
		}
		if core.IsSystemSchema(schema) {
			continue
		}
		if !introspect.ShouldInclude(schema, name, opts) {
			continue
		}

		tableKey := core.TableKey(schema, name, opts.CaseSensitive)
		t, ok := tables.Get(tableKey)
		if !ok {
			continue
		}

		col := &core.Column{
			Name:            colName,
			OrdinalPosition: ordinal,
			ColumnType:      colType,
			DataType:        dataType,
			Nullable:        nullable == "YES",
			Extra:           extra,
			Charset:         charset.String,
			Collation:       collation.String,
			ColumnKey:       colKey.String,
			Comment:         comment.String,
		}
		if defaultVal.Valid {
			v := defaultVal.String
			col.Default = &v
		}
		if prev, ok := prevByTable[tableKey]; ok {
			p := prev
			col.AfterColumn = &p
		}
		prevByTable[tableKey] = colName

		t.Columns = append(t.Columns, col)
	}
	return rows.Err()
}
