package protection

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Store holds the per-process protection record map, persisted as a single
// JSON file so records survive restarts.
type Store struct {
	path string

	mu      sync.Mutex
	records map[string]Record
}

// NewStore loads (or initialises) the record map at path.
func NewStore(path string) (*Store, error) {
	store := &Store{path: path, records: make(map[string]Record)}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return store, nil
		}
		return nil, fmt.Errorf("read protection records: %w", err)
	}
	if err := json.Unmarshal(data, &store.records); err != nil {
		return nil, fmt.Errorf("decode protection records: %w", err)
	}
	return store, nil
}

// Get returns the record for a position.
func (s *Store) Get(positionID string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[positionID]
	return record, ok
}

// Put overwrites the record for record.PositionID and persists the map.
func (s *Store) Put(record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.PositionID] = record
	return s.flushLocked()
}

// All returns every record sorted by position id.
func (s *Store) All() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]Record, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].PositionID < records[j].PositionID })
	return records
}

// update applies fn to the record under positionID while holding the store
// lock, giving callers an atomic read-modify-write.
func (s *Store) update(positionID string, fn func(record Record, exists bool) Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[positionID]
	updated := fn(existing, ok)
	s.records[positionID] = updated
	if err := s.flushLocked(); err != nil {
		return Record{}, err
	}
	return updated, nil
}

func (s *Store) flushLocked() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal protection records: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create protection dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write protection records: %w", err)
	}
	return nil
}
