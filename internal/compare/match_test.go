package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"schemasync/internal/core"
	"schemasync/internal/introspect"
)

func keyedIndexes(idxs ...*core.Index) introspect.Keyed[*core.Index] {
	k := introspect.NewKeyed[*core.Index]()
	for _, idx := range idxs {
		k.Add(idx.Name, idx)
	}
	return k
}

func TestMatchExactName(t *testing.T) {
	source := keyedIndexes(&core.Index{Name: "idx_email", Columns: "email", IndexType: "BTREE"})
	target := keyedIndexes(&core.Index{Name: "idx_email", Columns: "email", IndexType: "BTREE"})

	result := Match(source, target, func(i *core.Index) string { return i.Name })

	assert.Len(t, result.Exact, 1)
	assert.Empty(t, result.Renamed)
	assert.Empty(t, result.MissingInTarget)
	assert.Empty(t, result.MissingInSource)
}

func TestMatchRenameByFingerprint(t *testing.T) {
	source := keyedIndexes(&core.Index{Schema: "s", Table: "t", Name: "idx_old", Columns: "email", IsUnique: true, IndexType: "BTREE"})
	target := keyedIndexes(&core.Index{Schema: "s", Table: "t", Name: "idx_new", Columns: "email", IsUnique: true, IndexType: "BTREE"})

	result := Match(source, target, func(i *core.Index) string { return i.Name })

	assert.Empty(t, result.Exact)
	if assert.Len(t, result.Renamed, 1) {
		assert.Equal(t, "idx_old", result.Renamed[0].SourceName)
		assert.Equal(t, "idx_new", result.Renamed[0].TargetName)
	}
}

func TestMatchDuplicateWithinSideIsNotARename(t *testing.T) {
	source := keyedIndexes(
		&core.Index{Schema: "s", Table: "t", Name: "idx_a", Columns: "x", IndexType: "BTREE"},
		&core.Index{Schema: "s", Table: "t", Name: "idx_a2", Columns: "x", IndexType: "BTREE"},
	)
	target := keyedIndexes(&core.Index{Schema: "s", Table: "t", Name: "idx_c", Columns: "y", IndexType: "BTREE"})

	result := Match(source, target, func(i *core.Index) string { return i.Name })

	if assert.Len(t, result.DuplicateSource, 1) {
		assert.Equal(t, "idx_a2", result.DuplicateSource[0].Item.Name)
		assert.Equal(t, "idx_a", result.DuplicateSource[0].CanonicalName)
	}
	assert.Empty(t, result.Renamed)
	assert.Len(t, result.MissingInTarget, 1)
	assert.Len(t, result.MissingInSource, 1)
}

func TestMatchSweepReportsMissing(t *testing.T) {
	source := keyedIndexes(&core.Index{Schema: "s", Table: "t", Name: "idx_only_source", Columns: "a", IndexType: "BTREE"})
	target := keyedIndexes(&core.Index{Schema: "s", Table: "t", Name: "idx_only_target", Columns: "b", IndexType: "BTREE"})

	result := Match(source, target, func(i *core.Index) string { return i.Name })

	assert.Len(t, result.MissingInTarget, 1)
	assert.Len(t, result.MissingInSource, 1)
}
