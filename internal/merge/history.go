package merge

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mgraessle/grist/pkg/types"
)

// ErrRecordNotFound is returned when a merge record ID does not exist.
var ErrRecordNotFound = fmt.Errorf("merge record not found")

// ErrAlreadyUndone is returned when undoing a record twice.
var ErrAlreadyUndone = fmt.Errorf("merge record already undone")

// HistoryStore is the append-only log of consolidation events. Records are
// never deleted; undo flags them. ULID record IDs sort chronologically, so
// List order doubles as event order.
type HistoryStore interface {
	Append(rec types.MergeRecord) error
	Get(id string) (types.MergeRecord, error)

	// List returns all records sorted by ID ascending (oldest first).
	List() ([]types.MergeRecord, error)

	// MarkUndone flags a record as undone and returns the updated record.
	// Returns ErrRecordNotFound or ErrAlreadyUndone as appropriate.
	MarkUndone(id string, at time.Time) (types.MergeRecord, error)
}

// MemoryHistory is the in-memory HistoryStore, used in tests and for
// single-shot CLI scans that do not need durable history.
type MemoryHistory struct {
	mu      sync.RWMutex
	records map[string]types.MergeRecord
}

// NewMemoryHistory creates an empty in-memory history.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{records: make(map[string]types.MergeRecord)}
}

func (h *MemoryHistory) Append(rec types.MergeRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("merge: record has no ID")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.records[rec.ID]; exists {
		return fmt.Errorf("merge: record %s already exists", rec.ID)
	}
	h.records[rec.ID] = rec
	return nil
}

func (h *MemoryHistory) Get(id string) (types.MergeRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rec, ok := h.records[id]
	if !ok {
		return types.MergeRecord{}, ErrRecordNotFound
	}
	return rec, nil
}

func (h *MemoryHistory) List() ([]types.MergeRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]types.MergeRecord, 0, len(h.records))
	for _, rec := range h.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (h *MemoryHistory) MarkUndone(id string, at time.Time) (types.MergeRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.records[id]
	if !ok {
		return types.MergeRecord{}, ErrRecordNotFound
	}
	if rec.Undone {
		return types.MergeRecord{}, ErrAlreadyUndone
	}
	rec.Undone = true
	rec.UndoneAt = &at
	h.records[id] = rec
	return rec, nil
}

var _ HistoryStore = (*MemoryHistory)(nil)
