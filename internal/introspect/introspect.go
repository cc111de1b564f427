// Package introspect issues the canonical catalog queries of spec.md §4.1:
// one query per object kind against information_schema, returning rows in
// a stable order so downstream fingerprinting and matching is deterministic.
package introspect

import (
	"context"
	"database/sql"

	"schemasync/internal/core"
)

// Keyed pairs a lookup map with the discovery order of its keys. The
// matching pass (internal/compare) needs the order field: pairing renamed
// objects by fingerprint walks sides in discovery order, never sorted, so a
// rename is attributed to whichever candidate information_schema returned
// first rather than to an arbitrary alphabetical pick.
type Keyed[T any] struct {
	ByKey map[string]T
	Order []string
}

// NewKeyed returns an empty Keyed ready for Add.
func NewKeyed[T any]() Keyed[T] {
	return Keyed[T]{ByKey: make(map[string]T)}
}

// Add inserts v under key, recording key's first-seen position in Order.
func (k *Keyed[T]) Add(key string, v T) {
	if _, exists := k.ByKey[key]; !exists {
		k.Order = append(k.Order, key)
	}
	k.ByKey[key] = v
}

// Get looks up v by key.
func (k *Keyed[T]) Get(key string) (T, bool) {
	v, ok := k.ByKey[key]
	return v, ok
}

// Catalog is the set of objects a single discovery pass returns, keyed the
// way the comparers need them (spec.md §4.2.2).
type Catalog struct {
	Tables      Keyed[*core.Table]
	Indexes     Keyed[*core.Index]
	Constraints Keyed[*core.Constraint]
}

// Querier is satisfied by *sql.DB and *sql.Conn, letting callers introspect
// over either a pool handle or a single dedicated connection.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Introspecter discovers catalog objects for one SQL dialect. schemasync
// ships a single implementation (MySQL/MariaDB/TiDB, which all expose the
// same information_schema surface) — non-goal per spec.md §1.
type Introspecter interface {
	// DiscoverTables returns every base table visible to the connection,
	// subject to options' include/exclude filters, keyed by
	// core.Table.Key, in discovery order.
	DiscoverTables(ctx context.Context, q Querier, opts core.ComparisonOptions) (Keyed[*core.Table], error)
	// DiscoverIndexes returns every secondary index (PRIMARY excluded),
	// keyed by core.Index.Key, in discovery order.
	DiscoverIndexes(ctx context.Context, q Querier, opts core.ComparisonOptions) (Keyed[*core.Index], error)
	// DiscoverConstraints returns every PRIMARY KEY, FOREIGN KEY, and CHECK
	// constraint, keyed by core.Constraint.Key, in discovery order.
	DiscoverConstraints(ctx context.Context, q Querier, opts core.ComparisonOptions) (Keyed[*core.Constraint], error)
}

// DiscoverAll runs every discovery query and assembles a Catalog.
func DiscoverAll(ctx context.Context, i Introspecter, q Querier, opts core.ComparisonOptions) (*Catalog, error) {
	tables, err := i.DiscoverTables(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	indexes, err := i.DiscoverIndexes(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	constraints, err := i.DiscoverConstraints(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	return &Catalog{Tables: tables, Indexes: indexes, Constraints: constraints}, nil
}

// ShouldInclude applies the include/exclude schema and table filters
// in-process (spec.md §4.1: "the SQL fetches the union").
func ShouldInclude(schema, table string, opts core.ComparisonOptions) bool {
	if len(opts.IncludedSchemas) > 0 && !contains(opts.IncludedSchemas, schema) {
		return false
	}
	if contains(opts.ExcludedSchemas, schema) {
		return false
	}
	if table != "" {
		if len(opts.IncludedTables) > 0 && !contains(opts.IncludedTables, table) {
			return false
		}
		if contains(opts.ExcludedTables, table) {
			return false
		}
	}
	return true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
