package mysql

import (
	"context"
	"database/sql"
	"strings"

	"schemasync/internal/core"
	"schemasync/internal/introspect"
)

// discoverTables enumerates base tables across every non-system schema
// visible to the connection, filtered by opts (spec.md §4.1).
func discoverTables(ctx context.Context, q introspect.Querier, opts core.ComparisonOptions) (introspect.Keyed[*core.Table], error) {
	tables := introspect.NewKeyed[*core.Table]()

	rows, err := q.QueryContext(ctx, `
		SELECT table_schema, table_name, table_comment, engine, table_collation, create_options
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
	`)
	if err != nil {
		return tables, err
	}
	defer rows.Close()

	for rows.Next() {
		var schema, name, comment string
		var engine, collation, createOptions sql.NullString
		if err := rows.Scan(&schema, &name, &comment, &engine, &collation, &createOptions); err != nil {
			return tables, err
		}
		if core.IsSystemSchema(schema) {
			continue
		}
		if !introspect.ShouldInclude(schema, name, opts) {
			continue
		}

		t := &core.Table{
			Schema:        schema,
			Name:          name,
			Comment:       comment,
			Engine:        engine.String,
			Charset:       charsetFromCollation(collation.String),
			Collation:     collation.String,
			CreateOptions: createOptions.String,
		}
		tables.Add(t.Key(opts.CaseSensitive), t)
	}
	return tables, rows.Err()
}

// charsetFromCollation splits a collation name's leading charset component,
// e.g. "utf8mb4_general_ci" -> "utf8mb4".
func charsetFromCollation(collation string) string {
	if idx := strings.Index(collation, "_"); idx > 0 {
		return collation[:idx]
	}
	return ""
}
