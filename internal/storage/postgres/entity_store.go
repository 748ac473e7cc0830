package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mgraessle/grist/internal/storage"
	"github.com/mgraessle/grist/pkg/types"
)

// StoreResult persists every entity of an extraction result under the
// conversation, upserting by entity ID, and returns the stored IDs.
func (s *Store) StoreResult(ctx context.Context, conversationID string, result *types.ExtractionResult) ([]string, error) {
	if result == nil {
		return nil, fmt.Errorf("postgres: %w: result is nil", storage.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if conversationID != "" {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conversations (id, communication_type, summary)
			VALUES ($1, $2, $3)
			ON CONFLICT(id) DO UPDATE SET
				communication_type = excluded.communication_type,
				summary = excluded.summary
		`, conversationID, result.Metadata.CommunicationType, result.Summary)
		if err != nil {
			return nil, fmt.Errorf("postgres: upsert conversation: %w", err)
		}
	}

	var ids []string
	for _, entity := range result.AllEntities() {
		if entity.ID == "" {
			return nil, fmt.Errorf("postgres: %w: entity %q has no ID", storage.ErrInvalidInput, entity.DisplayName())
		}
		if err := upsertEntity(ctx, tx, conversationID, &entity); err != nil {
			return nil, err
		}
		ids = append(ids, entity.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("postgres: commit: %w", err)
	}
	return ids, nil
}

func upsertEntity(ctx context.Context, tx *sql.Tx, conversationID string, entity *types.Entity) error {
	payload, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("postgres: marshal entity %s: %w", entity.ID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO entities (id, conversation_id, entity_type, category, name, description, confidence, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT(id) DO UPDATE SET
			entity_type = excluded.entity_type,
			category = excluded.category,
			name = excluded.name,
			description = excluded.description,
			confidence = excluded.confidence,
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP,
			deleted_at = NULL
	`, entity.ID, conversationID, entity.Type, entity.Category, entity.Name, entity.Description, entity.Confidence, string(payload))
	if err != nil {
		return fmt.Errorf("postgres: upsert entity %s: %w", entity.ID, err)
	}
	return nil
}

// Get retrieves one record by entity ID.
func (s *Store) Get(ctx context.Context, id string) (*storage.EntityRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("postgres: %w: id is empty", storage.ErrInvalidInput)
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, payload, created_at, updated_at
		FROM entities
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get entity %s: %w", id, err)
	}
	return record, nil
}

// Update rewrites a stored entity, used after a merge mutates the primary.
func (s *Store) Update(ctx context.Context, entity *types.Entity) error {
	if entity == nil || entity.ID == "" {
		return fmt.Errorf("postgres: %w: entity has no ID", storage.ErrInvalidInput)
	}
	payload, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("postgres: marshal entity %s: %w", entity.ID, err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE entities
		SET entity_type = $1, category = $2, name = $3, description = $4, confidence = $5, payload = $6, updated_at = CURRENT_TIMESTAMP
		WHERE id = $7 AND deleted_at IS NULL
	`, entity.Type, entity.Category, entity.Name, entity.Description, entity.Confidence, string(payload), entity.ID)
	if err != nil {
		return fmt.Errorf("postgres: update entity %s: %w", entity.ID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete tombstones a record.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("postgres: %w: id is empty", storage.ErrInvalidInput)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE entities SET deleted_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete entity %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Query retrieves active records matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter storage.QueryFilter) ([]storage.EntityRecord, error) {
	conditions := []string{"deleted_at IS NULL"}
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.EntityType != "" {
		conditions = append(conditions, "entity_type = "+arg(filter.EntityType))
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = "+arg(filter.Category))
	}
	if filter.ConversationID != "" {
		conditions = append(conditions, "conversation_id = "+arg(filter.ConversationID))
	}
	if filter.TextSubstring != "" {
		pattern := "%" + filter.TextSubstring + "%"
		p := arg(pattern)
		conditions = append(conditions, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", p, p))
	}
	if filter.MinConfidence > 0 {
		conditions = append(conditions, "confidence >= "+arg(filter.MinConfidence))
	}

	query := `
		SELECT id, conversation_id, payload, created_at, updated_at
		FROM entities
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY updated_at DESC, id`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query entities: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ListAll retrieves every active record.
func (s *Store) ListAll(ctx context.Context) ([]storage.EntityRecord, error) {
	return s.Query(ctx, storage.QueryFilter{})
}

// Stats summarizes the store's contents.
func (s *Store) Stats(ctx context.Context) (*storage.Stats, error) {
	stats := &storage.Stats{}
	var lastUpdated sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM entities WHERE deleted_at IS NULL),
			(SELECT COUNT(*) FROM conversations),
			(SELECT COUNT(*) FROM merge_history),
			(SELECT MAX(updated_at) FROM entities WHERE deleted_at IS NULL)
	`).Scan(&stats.EntityCount, &stats.ConversationCount, &stats.MergeCount, &lastUpdated)
	if err != nil {
		return nil, fmt.Errorf("postgres: stats: %w", err)
	}
	if lastUpdated.Valid {
		stats.LastUpdated = lastUpdated.Time
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*storage.EntityRecord, error) {
	var record storage.EntityRecord
	var payload []byte
	var createdAt, updatedAt time.Time
	if err := row.Scan(&record.ID, &record.ConversationID, &payload, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &record.Entity); err != nil {
		return nil, fmt.Errorf("corrupt entity payload for %s: %w", record.ID, err)
	}
	record.CreatedAt = createdAt
	record.UpdatedAt = updatedAt
	return &record, nil
}

func collectRecords(rows *sql.Rows) ([]storage.EntityRecord, error) {
	var records []storage.EntityRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan entity: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate entities: %w", err)
	}
	return records, nil
}

var _ storage.EntityStore = (*Store)(nil)
