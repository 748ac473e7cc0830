package merge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// DecidedStore tracks pairs with a terminal decision (auto-merged, manually
// merged, rejected) keyed by the unordered entity-ID pair, so a decided
// pair is never re-suggested. The store is a parameter of the engine, not
// process-wide state: callers hold one store per domain.
type DecidedStore interface {
	// Has reports whether the pair key has a terminal decision.
	Has(key string) bool

	// Add records a terminal decision (a types.Pair* state).
	Add(key, state string) error

	// Remove clears a decision, used by merge undo so the pair can be
	// re-evaluated on the next scan.
	Remove(key string) error

	// All returns a copy of the decision map, keyed by pair key.
	All() map[string]string
}

// MemoryDecidedStore is the in-memory implementation, used in tests and as
// the base of the file-backed store.
type MemoryDecidedStore struct {
	mu      sync.RWMutex
	decided map[string]string
}

// NewMemoryDecidedStore creates an empty in-memory store.
func NewMemoryDecidedStore() *MemoryDecidedStore {
	return &MemoryDecidedStore{decided: make(map[string]string)}
}

func (s *MemoryDecidedStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.decided[key]
	return ok
}

func (s *MemoryDecidedStore) Add(key, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decided[key] = state
	return nil
}

func (s *MemoryDecidedStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.decided, key)
	return nil
}

func (s *MemoryDecidedStore) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.decided))
	for k, v := range s.decided {
		out[k] = v
	}
	return out
}

var _ DecidedStore = (*MemoryDecidedStore)(nil)

// FileDecidedStore persists decisions to a JSON file guarded by a lock
// file, so a CLI invocation and a daemon sharing one data directory never
// clobber each other's writes. Every Add/Remove re-reads the file and
// rewrites it in one critical section, so decisions committed by another
// process since startup survive.
type FileDecidedStore struct {
	path string
	lock *flock.Flock

	mu      sync.Mutex
	decided map[string]string
}

// NewFileDecidedStore loads (or creates) the store at path. The lock file
// sits next to the JSON file.
func NewFileDecidedStore(path string) (*FileDecidedStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("merge: create decided store dir: %w", err)
	}

	s := &FileDecidedStore{
		path:    path,
		lock:    flock.New(path + ".lock"),
		decided: make(map[string]string),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileDecidedStore) load() error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("merge: lock decided store: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()
	return s.readLocked()
}

// readLocked replaces the in-memory map with the file's contents. The file
// is authoritative: every committed mutation is already on disk, so nothing
// in memory is newer than what it holds. Caller holds the file lock.
func (s *FileDecidedStore) readLocked() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("merge: read decided store: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	decided := make(map[string]string)
	if err := json.Unmarshal(data, &decided); err != nil {
		return fmt.Errorf("merge: decided store %s is corrupt: %w", s.path, err)
	}
	s.decided = decided
	return nil
}

func (s *FileDecidedStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.decided[key]
	return ok
}

func (s *FileDecidedStore) Add(key, state string) error {
	return s.mutate(func(decided map[string]string) {
		decided[key] = state
	})
}

func (s *FileDecidedStore) Remove(key string) error {
	return s.mutate(func(decided map[string]string) {
		delete(decided, key)
	})
}

// mutate runs one read-modify-write cycle under the cross-process lock:
// re-read the file, apply the change, write the file back atomically.
func (s *FileDecidedStore) mutate(apply func(map[string]string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("merge: lock decided store: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	if err := s.readLocked(); err != nil {
		return err
	}
	apply(s.decided)
	return s.writeLocked()
}

func (s *FileDecidedStore) All() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.decided))
	for k, v := range s.decided {
		out[k] = v
	}
	return out
}

// writeLocked writes the map atomically: temp file then rename. Caller
// holds the file lock.
func (s *FileDecidedStore) writeLocked() error {
	data, err := json.MarshalIndent(s.decided, "", "  ")
	if err != nil {
		return fmt.Errorf("merge: marshal decided store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("merge: write decided store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("merge: replace decided store: %w", err)
	}
	return nil
}

var _ DecidedStore = (*FileDecidedStore)(nil)
