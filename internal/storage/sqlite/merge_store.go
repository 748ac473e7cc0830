package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/mgraessle/grist/internal/merge"
	"github.com/mgraessle/grist/pkg/types"
)

// The Store doubles as the merge engine's persistence: the decided-pairs
// set and the append-only merge history live in the same database as the
// entities they describe.

// Has reports whether a pair key has a terminal decision. Query errors log
// and report false: the worst case is a re-suggested pair, never a lost one.
func (s *Store) Has(key string) bool {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM decided_pairs WHERE pair_key = ?`, key).Scan(&one)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		log.Printf("sqlite: decided-pair lookup failed for %s: %v", key, err)
		return false
	}
	return true
}

// Add records a terminal decision for a pair.
func (s *Store) Add(key, state string) error {
	if !types.IsValidPairState(state) {
		return fmt.Errorf("sqlite: invalid pair state %q", state)
	}
	_, err := s.db.Exec(`
		INSERT INTO decided_pairs (pair_key, state)
		VALUES (?, ?)
		ON CONFLICT(pair_key) DO UPDATE SET
			state = excluded.state,
			decided_at = CURRENT_TIMESTAMP
	`, key, state)
	if err != nil {
		return fmt.Errorf("sqlite: record decision for %s: %w", key, err)
	}
	return nil
}

// Remove clears a pair's decision, used by merge undo.
func (s *Store) Remove(key string) error {
	if _, err := s.db.Exec(`DELETE FROM decided_pairs WHERE pair_key = ?`, key); err != nil {
		return fmt.Errorf("sqlite: clear decision for %s: %w", key, err)
	}
	return nil
}

// All returns the decision map.
func (s *Store) All() map[string]string {
	out := make(map[string]string)
	rows, err := s.db.Query(`SELECT pair_key, state FROM decided_pairs`)
	if err != nil {
		log.Printf("sqlite: list decided pairs failed: %v", err)
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var key, state string
		if err := rows.Scan(&key, &state); err != nil {
			log.Printf("sqlite: scan decided pair: %v", err)
			continue
		}
		out[key] = state
	}
	return out
}

var _ merge.DecidedStore = (*Store)(nil)

// History is the durable merge log backed by the Store's database. It is a
// separate type because the Store's Get is taken by the entity side.
type History struct {
	db *sql.DB
}

// History returns the merge log view of the store.
func (s *Store) History() *History {
	return &History{db: s.db}
}

// Append stores one merge record. Records are append-only; a duplicate ID
// is an error, never an overwrite.
func (h *History) Append(rec types.MergeRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("sqlite: merge record has no ID")
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sqlite: marshal merge record: %w", err)
	}
	_, err = h.db.Exec(`
		INSERT INTO merge_history (id, merge_type, payload, undone, created_at)
		VALUES (?, ?, ?, 0, ?)
	`, rec.ID, rec.Type, string(payload), rec.Timestamp)
	if err != nil {
		return fmt.Errorf("sqlite: append merge record %s: %w", rec.ID, err)
	}
	return nil
}

// Get retrieves one merge record by ID.
func (h *History) Get(id string) (types.MergeRecord, error) {
	var payload string
	err := h.db.QueryRow(`SELECT payload FROM merge_history WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return types.MergeRecord{}, merge.ErrRecordNotFound
	}
	if err != nil {
		return types.MergeRecord{}, fmt.Errorf("sqlite: get merge record %s: %w", id, err)
	}
	var rec types.MergeRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return types.MergeRecord{}, fmt.Errorf("sqlite: corrupt merge record %s: %w", id, err)
	}
	return rec, nil
}

// List returns all merge records oldest first. ULID IDs sort
// chronologically, so ordering by ID is ordering by time.
func (h *History) List() ([]types.MergeRecord, error) {
	rows, err := h.db.Query(`SELECT payload FROM merge_history ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list merge history: %w", err)
	}
	defer rows.Close()

	var out []types.MergeRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("sqlite: scan merge record: %w", err)
		}
		var rec types.MergeRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("sqlite: corrupt merge record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MarkUndone flags a record undone and returns the updated record.
func (h *History) MarkUndone(id string, at time.Time) (types.MergeRecord, error) {
	rec, err := h.Get(id)
	if err != nil {
		return types.MergeRecord{}, err
	}
	if rec.Undone {
		return types.MergeRecord{}, merge.ErrAlreadyUndone
	}

	rec.Undone = true
	rec.UndoneAt = &at
	payload, err := json.Marshal(rec)
	if err != nil {
		return types.MergeRecord{}, fmt.Errorf("sqlite: marshal merge record: %w", err)
	}
	_, err = h.db.Exec(`
		UPDATE merge_history SET payload = ?, undone = 1, undone_at = ? WHERE id = ?
	`, string(payload), at, id)
	if err != nil {
		return types.MergeRecord{}, fmt.Errorf("sqlite: mark merge %s undone: %w", id, err)
	}
	return rec, nil
}

var _ merge.HistoryStore = (*History)(nil)
