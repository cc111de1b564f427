// Package mysql implements catalog discovery against MySQL, MariaDB, and
// TiDB, which all expose a compatible information_schema surface.
package mysql

import (
	"context"

	"schemasync/internal/core"
	"schemasync/internal/introspect"
)

type Introspecter struct{}

func New() *Introspecter {
	return &Introspecter{}
}

var _ introspect.Introspecter = (*Introspecter)(nil)

func (i *Introspecter) DiscoverTables(ctx context.Context, q introspect.Querier, opts core.ComparisonOptions) (introspect.Keyed[*core.Table], error) {
	tables, err := discoverTables(ctx, q, opts)
	if err != nil {
		return tables, err
	}
	if err := discoverColumns(ctx, q, opts, tables); err != nil {
		return tables, err
	}
	return tables, nil
}

func (i *Introspecter) DiscoverIndexes(ctx context.Context, q introspect.Querier, opts core.ComparisonOptions) (introspect.Keyed[*core.Index], error) {
	return discoverIndexes(ctx, q, opts)
}

func (i *Introspecter) DiscoverConstraints(ctx context.Context, q introspect.Querier, opts core.ComparisonOptions) (introspect.Keyed[*core.Constraint], error) {
	return discoverConstraints(ctx, q, opts)
}
