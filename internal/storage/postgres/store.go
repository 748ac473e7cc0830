// Package postgres is the shared-deployment storage backend. It mirrors the
// sqlite backend's contracts over lib/pq, with JSONB payloads and an
// optional pgvector column for embedding-based name similarity.
package postgres

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Store wraps the PostgreSQL handle.
type Store struct {
	db *sql.DB

	// pgvectorAvailable is true when the vector extension loaded and the
	// name_vec column exists. Without it, SimilarByName degrades to a
	// trigram-free substring scan in the caller.
	pgvectorAvailable bool
}

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	communication_type TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS entities (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL DEFAULT '',
	entity_type TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	confidence REAL NOT NULL DEFAULT 0,
	payload JSONB NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	deleted_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(entity_type);
CREATE INDEX IF NOT EXISTS idx_entities_conversation ON entities(conversation_id);
CREATE INDEX IF NOT EXISTS idx_entities_deleted ON entities(deleted_at);

CREATE TABLE IF NOT EXISTS relationship_registry (
	name TEXT PRIMARY KEY,
	description TEXT NOT NULL DEFAULT '',
	domains JSONB NOT NULL DEFAULT '[]',
	confidence REAL NOT NULL DEFAULT 0,
	provenance TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS unknown_type_stats (
	name TEXT PRIMARY KEY,
	count INTEGER NOT NULL DEFAULT 0,
	first_seen TIMESTAMP NOT NULL,
	last_seen TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS decided_pairs (
	pair_key TEXT PRIMARY KEY,
	state TEXT NOT NULL,
	decided_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS merge_history (
	id TEXT PRIMARY KEY,
	merge_type TEXT NOT NULL,
	payload JSONB NOT NULL,
	undone BOOLEAN NOT NULL DEFAULT FALSE,
	undone_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// migrationPgvector adds the name embedding column. Applied only when the
// vector extension is present. The DO block keeps it idempotent across
// PostgreSQL versions without IF NOT EXISTS on ADD COLUMN.
const migrationPgvector = `
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM information_schema.columns
        WHERE table_name = 'entities' AND column_name = 'name_vec'
    ) THEN
        ALTER TABLE entities ADD COLUMN name_vec vector;
    END IF;
END
$$;
`

// Open connects to the database at dsn and applies the schema. The pgvector
// extension is attempted but optional; name-vector search is disabled when
// it is missing.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: apply schema: %w", err)
	}

	s := &Store{db: db}
	if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		log.Printf("postgres: pgvector extension not available (name-vector search disabled): %v", err)
	} else if _, err := db.Exec(migrationPgvector); err != nil {
		log.Printf("postgres: name_vec migration failed (name-vector search disabled): %v", err)
	} else {
		s.pgvectorAvailable = true
	}

	return s, nil
}

// DB exposes the handle for maintenance commands.
func (s *Store) DB() *sql.DB {
	return s.db
}

// VectorSearchEnabled reports whether name-vector similarity is usable.
func (s *Store) VectorSearchEnabled() bool {
	return s.pgvectorAvailable
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
