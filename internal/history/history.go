// Package history persists a capped, newest-first log of past comparisons
// to a JSON file, grounded on the original implementation's HistoryManager
// (_examples/original_source/backend/services/history_manager.py), adapted
// to the teacher's file-persistence idiom (os.ReadFile/os.WriteFile with
// 0600 permissions, mutex-guarded struct, zap audit logging) from
// internal/secret/secret.go's master-key file handling.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"schemasync/internal/core"
)

// MaxEntries is the retention cap: the 20 most recent comparisons are kept,
// oldest dropped first.
const MaxEntries = 20

// EndpointRef is the non-secret endpoint summary recorded per entry.
type EndpointRef struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Database    string `json:"database"`
	DisplayName string `json:"display_name"`
}

// Entry is one recorded comparison.
type Entry struct {
	ID              string         `json:"id"`
	Timestamp       time.Time      `json:"timestamp"`
	Source          EndpointRef    `json:"source"`
	Target          EndpointRef    `json:"target"`
	DifferenceCount int            `json:"difference_count"`
	Summary         map[string]int `json:"summary"`
}

// Store manages the comparison_history.json file.
type Store struct {
	mu   sync.Mutex
	path string
	log  *zap.Logger
}

// New opens (creating if absent) the history file at path.
func New(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{path: path, log: log}
	if err := s.ensureFile(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureFile() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("history: stat %s: %w", s.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("history: creating directory: %w", err)
	}
	return s.save(nil)
}

func (s *Store) load() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		s.log.Error("history_load_failed", zap.Error(err))
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log.Error("history_load_failed", zap.Error(err))
		return nil, nil
	}
	return entries, nil
}

func (s *Store) save(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("history: marshaling: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("history: writing %s: %w", s.path, err)
	}
	return nil
}

// Add records a completed comparison, inserting it at the front and
// truncating to MaxEntries.
func (s *Store) Add(result *core.ComparisonResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}

	summary := map[string]int{
		"critical_count": result.Summary.CriticalCount,
	}
	for sev, count := range result.Summary.CountsBySeverity {
		summary[string(sev)] = count
	}

	entry := Entry{
		ID:              result.ComparisonID,
		Timestamp:       result.CompletedAt,
		Source:          endpointRef(result.Source),
		Target:          endpointRef(result.Target),
		DifferenceCount: len(result.Differences),
		Summary:         summary,
	}

	entries = append([]Entry{entry}, entries...)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}

	if err := s.save(entries); err != nil {
		return err
	}
	s.log.Info("comparison_history_recorded", zap.String("comparison_id", result.ComparisonID))
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

// ByID returns the entry with the given comparison ID, if present.
func (s *Store) ByID(id string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return Entry{}, false
	}
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Clear truncates the history file to empty.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(nil); err != nil {
		return err
	}
	s.log.Info("comparison_history_cleared")
	return nil
}

func endpointRef(snap core.EndpointSnapshot) EndpointRef {
	return EndpointRef{Host: snap.Host, Port: snap.Port, Database: snap.Database, DisplayName: snap.DisplayName}
}
