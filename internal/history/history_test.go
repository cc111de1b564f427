package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemasync/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "comparison_history.json"), nil)
	require.NoError(t, err)
	return s
}

func sampleResult(id string, critical int) *core.ComparisonResult {
	return &core.ComparisonResult{
		ComparisonID: id,
		CompletedAt:  time.Now(),
		Source:       core.EndpointSnapshot{Host: "source.internal", Port: 3306, Database: "app"},
		Target:       core.EndpointSnapshot{Host: "target.internal", Port: 3306, Database: "app"},
		Differences:  make([]core.Difference, critical),
		Summary:      core.Summary{CriticalCount: critical},
	}
}

func TestNewCreatesEmptyFile(t *testing.T) {
	s := newTestStore(t)
	entries, err := s.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAddInsertsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add(sampleResult("first", 0)))
	require.NoError(t, s.Add(sampleResult("second", 1)))

	entries, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].ID)
	assert.Equal(t, "first", entries[1].ID)
}

func TestAddTruncatesAtMaxEntries(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < MaxEntries+5; i++ {
		require.NoError(t, s.Add(sampleResult(string(rune('a'+i%26))+string(rune(i)), 0)))
	}

	entries, err := s.Recent(100)
	require.NoError(t, err)
	assert.Len(t, entries, MaxEntries)
}

func TestRecentRespectsLimit(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Add(sampleResult(string(rune('a'+i)), 0)))
	}

	entries, err := s.Recent(2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestByIDFindsEntry(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add(sampleResult("target-id", 2)))

	entry, ok := s.ByID("target-id")
	require.True(t, ok)
	assert.Equal(t, 2, entry.Summary["critical_count"])
}

func TestByIDMissingReturnsFalse(t *testing.T) {
	s := newTestStore(t)
	_, ok := s.ByID("nope")
	assert.False(t, ok)
}

func TestClearEmptiesHistory(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add(sampleResult("x", 0)))
	require.NoError(t, s.Clear())

	entries, err := s.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
