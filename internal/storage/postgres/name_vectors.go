package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/mgraessle/grist/internal/llm"
	"github.com/mgraessle/grist/internal/storage"
)

// NameMatch is one embedding-similarity hit against stored entity names.
type NameMatch struct {
	Record storage.EntityRecord

	// Similarity is cosine similarity in [0, 1] for normalized embeddings.
	Similarity float64
}

// IndexNames embeds and stores the name vector for every active entity that
// does not have one yet. Returns the number of vectors written. Embedding
// failures on individual names log and skip; a systematic provider outage
// surfaces as zero progress, not a hard error mid-batch.
func (s *Store) IndexNames(ctx context.Context, gen llm.EmbeddingGenerator) (int, error) {
	if !s.pgvectorAvailable {
		return 0, fmt.Errorf("postgres: pgvector not available")
	}
	if gen == nil {
		return 0, fmt.Errorf("postgres: no embedding generator")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name FROM entities
		WHERE deleted_at IS NULL AND name_vec IS NULL AND name <> ''
	`)
	if err != nil {
		return 0, fmt.Errorf("postgres: list unindexed names: %w", err)
	}
	type pending struct{ id, name string }
	var todo []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.name); err != nil {
			rows.Close()
			return 0, fmt.Errorf("postgres: scan unindexed name: %w", err)
		}
		todo = append(todo, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	indexed := 0
	for _, p := range todo {
		vec, err := gen.Embed(ctx, p.name)
		if err != nil {
			log.Printf("postgres: embed name %q failed: %v", p.name, err)
			continue
		}
		_, err = s.db.ExecContext(ctx,
			`UPDATE entities SET name_vec = $1 WHERE id = $2`,
			pgvector.NewVector(vec), p.id)
		if err != nil {
			return indexed, fmt.Errorf("postgres: store name vector for %s: %w", p.id, err)
		}
		indexed++
	}
	return indexed, nil
}

// SimilarByName returns up to limit active entities whose stored name
// vectors are nearest to the query name by cosine distance. It is a cheap
// prefilter for duplicate scans over large stores: callers still run the
// exact Levenshtein-based scoring on the returned candidates.
func (s *Store) SimilarByName(ctx context.Context, gen llm.EmbeddingGenerator, name string, limit int) ([]NameMatch, error) {
	if !s.pgvectorAvailable {
		return nil, fmt.Errorf("postgres: pgvector not available")
	}
	if gen == nil {
		return nil, fmt.Errorf("postgres: no embedding generator")
	}
	if limit <= 0 {
		limit = 20
	}

	vec, err := gen.Embed(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("postgres: embed query name: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, payload, created_at, updated_at,
		       1 - (name_vec <=> $1) AS similarity
		FROM entities
		WHERE deleted_at IS NULL AND name_vec IS NOT NULL
		ORDER BY name_vec <=> $1
		LIMIT $2
	`, pgvector.NewVector(vec), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: name vector search: %w", err)
	}
	defer rows.Close()

	var out []NameMatch
	for rows.Next() {
		var m NameMatch
		var payload []byte
		err := rows.Scan(&m.Record.ID, &m.Record.ConversationID, &payload,
			&m.Record.CreatedAt, &m.Record.UpdatedAt, &m.Similarity)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan name match: %w", err)
		}
		if err := json.Unmarshal(payload, &m.Record.Entity); err != nil {
			return nil, fmt.Errorf("postgres: corrupt entity payload for %s: %w", m.Record.ID, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
