package mysql

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"schemasync/internal/core"
	"schemasync/internal/introspect"
)

// discoverIndexes enumerates every secondary index. PRIMARY is skipped here
// entirely — it is owned by discoverConstraints (spec.md §3, §9).
func discoverIndexes(ctx context.Context, q introspect.Querier, opts core.ComparisonOptions) (introspect.Keyed[*core.Index], error) {
	indexes := introspect.NewKeyed[*core.Index]()

	rows, err := q.QueryContext(ctx, `
		SELECT
			table_schema, table_name, index_name, non_unique, index_type, index_comment,
			column_name, seq_in_index, sub_part
		FROM information_schema.statistics
		WHERE index_name <> 'PRIMARY'
		ORDER BY table_schema, table_name, index_name, seq_in_index
	`)
	if err != nil {
		return indexes, err
	}
	defer rows.Close()

	for rows.Next() {
		var schema, table, name, indexType string
		var nonUnique int
		var comment sql.NullString
		var colName string
		var seq int
		var subPart sql.NullInt64
		if err := rows.Scan(&schema, &table, &name, &nonUnique, &indexType, &comment, &colName, &seq, &subPart); err != nil {
			return indexes, err
		}
		if core.IsSystemSchema(schema) {
			continue
		}
		if !introspect.ShouldInclude(schema, table, opts) {
			continue
		}

		key := core.IndexKey(schema, table, name, opts.CaseSensitive)
		idx, ok := indexes.Get(key)
		if !ok {
			idx = &core.Index{
				Schema:    schema,
				Table:     table,
				Name:      name,
				IsUnique:  nonUnique == 0,
				IndexType: strings.ToUpper(indexType),
				Comment:   comment.String,
			}
			indexes.Add(key, idx)
		}

		detail := core.IndexColumnDetail{Name: colName}
		if subPart.Valid {
			n := int(subPart.Int64)
			detail.PrefixLength = &n
		}
		idx.ColumnDetails = append(idx.ColumnDetails, detail)
	}
	if err := rows.Err(); err != nil {
		return indexes, err
	}

	for _, key := range indexes.Order {
		idx, _ := indexes.Get(key)
		parts := make([]string, 0, len(idx.ColumnDetails))
		for _, d := range idx.ColumnDetails {
			if d.PrefixLength != nil {
				parts = append(parts, d.Name+"("+strconv.Itoa(*d.PrefixLength)+")")
			} else {
				parts = append(parts, d.Name)
			}
		}
		idx.Columns = strings.Join(parts, ",")
	}

	return indexes, nil
}
