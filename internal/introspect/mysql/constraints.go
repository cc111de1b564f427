package mysql

import (
	"context"
	"database/sql"
	"strings"

	"schemasync/internal/core"
	"schemasync/internal/introspect"
)

// discoverConstraints enumerates PRIMARY KEY and FOREIGN KEY constraints via
// TABLE_CONSTRAINTS/KEY_COLUMN_USAGE/REFERENTIAL_CONSTRAINTS, then CHECK
// constraints via CHECK_CONSTRAINTS (spec.md §4.1). UNIQUE is never read
// here — the IndexComparer owns it (spec.md §9).
func discoverConstraints(ctx context.Context, q introspect.Querier, opts core.ComparisonOptions) (introspect.Keyed[*core.Constraint], error) {
	constraints := introspect.NewKeyed[*core.Constraint]()

	rows, err := q.QueryContext(ctx, `
		SELECT
			tc.table_schema, tc.table_name, tc.constraint_name, tc.constraint_type,
			kcu.column_name, kcu.ordinal_position,
			kcu.referenced_table_schema, kcu.referenced_table_name, kcu.referenced_column_name,
			rc.update_rule, rc.delete_rule
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_schema = kcu.constraint_schema
			AND tc.constraint_name = kcu.constraint_name
			AND tc.table_name = kcu.table_name
		LEFT JOIN information_schema.referential_constraints rc
			ON tc.constraint_schema = rc.constraint_schema
			AND tc.constraint_name = rc.constraint_name
		WHERE tc.constraint_type IN ('PRIMARY KEY', 'FOREIGN KEY')
		ORDER BY tc.table_schema, tc.table_name, tc.constraint_name, kcu.ordinal_position
	`)
	if err != nil {
		return constraints, err
	}
	defer rows.Close()

	type colAcc struct {
		cols    []string
		refCols []string
	}
	acc := make(map[string]*colAcc)

	for rows.Next() {
		var schema, table, name, kind string
		var column string
		var ordinal int
		var refSchema, refTable, refColumn sql.NullString
		var updateRule, deleteRule sql.NullString
		if err := rows.Scan(&schema, &table, &name, &kind, &column, &ordinal, &refSchema, &refTable, &refColumn, &updateRule, &deleteRule); err != nil {
			return constraints, err
		}
		if core.IsSystemSchema(schema) {
			continue
		}
		if !introspect.ShouldInclude(schema, table, opts) {
			continue
		}

		key := core.ConstraintKey(schema, table, name, opts.CaseSensitive)
		c, ok := constraints.Get(key)
		if !ok {
			ck := core.ConstraintPrimaryKey
			if kind == "FOREIGN KEY" {
				ck = core.ConstraintForeignKey
			}
			c = &core.Constraint{
				Schema:           schema,
				Table:            table,
				Name:             name,
				Kind:             ck,
				ReferencedSchema: refSchema.String,
				ReferencedTable:  refTable.String,
				UpdateRule:       updateRule.String,
				DeleteRule:       deleteRule.String,
			}
			constraints.Add(key, c)
			acc[key] = &colAcc{}
		}
		acc[key].cols = append(acc[key].cols, column)
		if refColumn.Valid {
			acc[key].refCols = append(acc[key].refCols, refColumn.String)
		}
	}
	if err := rows.Err(); err != nil {
		return constraints, err
	}

	for _, key := range constraints.Order {
		c, _ := constraints.Get(key)
		c.Columns = strings.Join(acc[key].cols, ",")
		c.ReferencedColumns = strings.Join(acc[key].refCols, ",")
	}

	if err := discoverCheckConstraints(ctx, q, opts, &constraints); err != nil {
		// CHECK_CONSTRAINTS is unavailable on some MySQL-compatible builds
		// (pre-8.0.16 MySQL, some MariaDB builds without the table).
		// Missing CHECK support degrades comparisons, it does not fail them.
		_ = err
	}

	return constraints, nil
}

func discoverCheckConstraints(ctx context.Context, q introspect.Querier, opts core.ComparisonOptions, constraints *introspect.Keyed[*core.Constraint]) error {
	rows, err := q.QueryContext(ctx, `
		SELECT tc.table_schema, tc.table_name, tc.constraint_name, cc.check_clause
		FROM information_schema.table_constraints tc
		JOIN information_schema.check_constraints cc
			ON tc.constraint_schema = cc.constraint_schema
			AND tc.constraint_name = cc.constraint_name
		WHERE tc.constraint_type = 'CHECK'
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var schema, table, name, clause string
		if err := rows.Scan(&schema, &table, &name, &clause); err != nil {
			return err
		}
		if core.IsSystemSchema(schema) {
			continue
		}
		if !introspect.ShouldInclude(schema, table, opts) {
			continue
		}

		key := core.ConstraintKey(schema, table, name, opts.CaseSensitive)
		if _, exists := constraints.Get(key); exists {
			continue
		}
		constraints.Add(key, &core.Constraint{
			Schema:      schema,
			Table:       table,
			Name:        name,
			Kind:        core.ConstraintCheck,
			CheckClause: clause,
		})
	}
	return rows.Err()
}
