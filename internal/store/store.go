// Package store implements the durable observation store: an ordered,
// append-only sequence of observation records persisted as a CSV table with
// a single header row.
//
// The full record set is held in memory and every mutation re-persists the
// entire collection by writing to a temporary file in the same directory and
// atomically renaming it over the durable file. A torn write therefore never
// corrupts previously committed records; a failed operation is safe to retry
// wholesale. A whole-store mutex serializes mutations, which is sufficient
// for the expected load and guarantees that concurrent updates to the same
// record never lose increments.
package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"raincast/internal/types"
)

// Store is the durable source of truth for observations. Safe for concurrent
// use by multiple request handlers.
type Store struct {
	mu      sync.RWMutex
	path    string
	logger  *slog.Logger
	records []types.Observation
	nextID  int64
}

// Open loads (or initializes) the observation store at path. A missing file
// is created with a header row; a present file is read fully so the store
// can serve scans from memory.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:   path,
		logger: logger,
		nextID: 1,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, types.NewAppError(types.ErrCodeStorageWrite,
			"creating data directory", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
		return s, nil
	}

	records, err := readAll(path)
	if err != nil {
		return nil, err
	}
	s.records = records
	for i := range records {
		if records[i].ID >= s.nextID {
			s.nextID = records[i].ID + 1
		}
	}
	return s, nil
}

// Append adds a new record and returns its assigned sequence ID. The ID is
// monotonically increasing in store order and immutable once assigned.
func (s *Store) Append(obs types.Observation) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obs.ID = s.nextID
	if obs.CreatedAt.IsZero() {
		obs.CreatedAt = time.Now().UTC()
	}
	if obs.TrustLabel == "" {
		obs.TrustLabel = types.TrustPending
	}
	s.records = append(s.records, obs)

	if err := s.persistLocked(); err != nil {
		// Roll back the in-memory append so memory and disk stay in sync.
		s.records = s.records[:len(s.records)-1]
		return 0, err
	}
	s.nextID++
	return obs.ID, nil
}

// Scan returns all records passing the filter, in store order (oldest
// first). Callers receive copies; mutating them does not affect the store.
func (s *Store) Scan(filter types.ObservationFilter) []types.Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Observation
	for i := range s.records {
		if filter.Matches(&s.records[i]) {
			out = append(out, s.records[i])
		}
	}
	return out
}

// Get returns the record with the given sequence ID.
func (s *Store) Get(id int64) (types.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.records[i], nil
	}
	return types.Observation{}, notFound(id)
}

// Update applies mutate to the record with the given sequence ID under the
// store lock and re-persists the entire collection. The mutator may return
// an error to abort the update; in that case nothing is written and the
// in-memory record is untouched.
//
// Read-modify-write on the whole record is deliberate: there are no partial
// row updates, so the persisted table can never hold a structurally torn row.
func (s *Store) Update(id int64, mutate func(*types.Observation) error) (types.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return types.Observation{}, notFound(id)
	}

	// Mutate a copy first so a failed persist leaves memory consistent
	// with the durable file.
	updated := s.records[i]
	if err := mutate(&updated); err != nil {
		return types.Observation{}, err
	}
	updated.ID = id // sequence IDs are immutable

	prev := s.records[i]
	s.records[i] = updated
	if err := s.persistLocked(); err != nil {
		s.records[i] = prev
		return types.Observation{}, err
	}
	return updated, nil
}

// Delete physically removes the record with the given sequence ID and
// returns the removed record so the caller can cascade proof artifact
// cleanup.
func (s *Store) Delete(id int64) (types.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return types.Observation{}, notFound(id)
	}

	removed := s.records[i]
	rest := append(append([]types.Observation{}, s.records[:i]...), s.records[i+1:]...)

	prev := s.records
	s.records = rest
	if err := s.persistLocked(); err != nil {
		s.records = prev
		return types.Observation{}, err
	}
	return removed, nil
}

// Reset removes every record, leaving an empty table with just the header
// row. Sequence IDs keep increasing; they are never reused.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.records
	s.records = nil
	if err := s.persistLocked(); err != nil {
		s.records = prev
		return err
	}
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// indexLocked returns the slice index of the record with the given ID, or -1.
// Callers must hold at least the read lock.
func (s *Store) indexLocked(id int64) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked writes the full current record set to a temporary file in
// the store's directory and atomically renames it over the durable file.
// Callers must hold the write lock.
func (s *Store) persistLocked() error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".observations-*.csv")
	if err != nil {
		return types.NewAppError(types.ErrCodeStorageWrite,
			"creating temporary store file", err)
	}
	tmpName := tmp.Name()

	if err := writeAll(tmp, s.records); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return types.NewAppError(types.ErrCodeStorageWrite,
			"writing store records", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return types.NewAppError(types.ErrCodeStorageWrite,
			"syncing store file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return types.NewAppError(types.ErrCodeStorageWrite,
			"closing store file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return types.NewAppError(types.ErrCodeStorageWrite,
			"replacing store file", err)
	}
	return nil
}

func notFound(id int64) *types.AppError {
	return types.NewAppError(types.ErrCodeNotFoundObservation,
		fmt.Sprintf("observation %d not found", id), nil)
}
