// Package storage defines the persistence contracts for extracted entities,
// the relationship registry, the decided-pairs set, and the merge history.
// The interfaces are small and composable; the sqlite and postgres
// subpackages implement all of them on one handle.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mgraessle/grist/pkg/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidInput is returned for malformed arguments (empty IDs, nil
// entities) before any query is issued.
var ErrInvalidInput = errors.New("invalid input")

// EntityRecord is the storage envelope around one persisted entity.
type EntityRecord struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversation_id"`
	Entity         types.Entity `json:"entity"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// QueryFilter selects entity records. Zero-value fields do not constrain.
type QueryFilter struct {
	EntityType     string  // exact match on entity type
	Category       string  // exact match on category bucket
	ConversationID string  // exact match on source conversation
	TextSubstring  string  // case-insensitive substring over name and description
	MinConfidence  float64 // inclusive lower bound
	Limit          int     // 0 means no limit
}

// Stats summarizes the store's contents.
type Stats struct {
	EntityCount       int       `json:"entity_count"`
	ConversationCount int       `json:"conversation_count"`
	MergeCount        int       `json:"merge_count"`
	LastUpdated       time.Time `json:"last_updated"`
}

// EntityStore persists extracted entities and their conversation index.
type EntityStore interface {
	// StoreResult persists every entity of an extraction result under the
	// given conversation and returns the stored record IDs.
	StoreResult(ctx context.Context, conversationID string, result *types.ExtractionResult) ([]string, error)

	// Get retrieves one record by entity ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*EntityRecord, error)

	// Update rewrites a stored entity, used after merges mutate the
	// primary in place. Returns ErrNotFound if absent.
	Update(ctx context.Context, entity *types.Entity) error

	// Delete tombstones a record, used when a merge consumes the
	// secondary. The record leaves the active working set but is not
	// physically removed.
	Delete(ctx context.Context, id string) error

	// Query retrieves records matching the filter, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]EntityRecord, error)

	// ListAll retrieves every active record, the merge engine's input.
	ListAll(ctx context.Context) ([]EntityRecord, error)

	// Stats summarizes the store.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases the underlying handle.
	Close() error
}
