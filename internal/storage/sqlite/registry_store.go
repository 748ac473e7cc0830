package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mgraessle/grist/internal/extract"
)

// LoadAdmittedTypes returns every runtime-admitted relationship type.
func (s *Store) LoadAdmittedTypes(ctx context.Context) ([]extract.AdmittedType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, description, domains, confidence, provenance, created_at
		FROM relationship_registry
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load admitted types: %w", err)
	}
	defer rows.Close()

	var out []extract.AdmittedType
	for rows.Next() {
		var t extract.AdmittedType
		var domains string
		if err := rows.Scan(&t.Name, &t.Def.Description, &domains, &t.Confidence, &t.Provenance, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan admitted type: %w", err)
		}
		if err := json.Unmarshal([]byte(domains), &t.Def.Domains); err != nil {
			return nil, fmt.Errorf("sqlite: corrupt domains for %s: %w", t.Name, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SaveAdmittedType upserts one runtime admission.
func (s *Store) SaveAdmittedType(ctx context.Context, t extract.AdmittedType) error {
	domains, err := json.Marshal(t.Def.Domains)
	if err != nil {
		return fmt.Errorf("sqlite: marshal domains: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO relationship_registry (name, description, domains, confidence, provenance, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			domains = excluded.domains,
			confidence = excluded.confidence,
			provenance = excluded.provenance
	`, t.Name, t.Def.Description, string(domains), t.Confidence, t.Provenance, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: save admitted type %s: %w", t.Name, err)
	}
	return nil
}

// LoadUnknownTypeStats returns the rejection stats for unregistered types.
func (s *Store) LoadUnknownTypeStats(ctx context.Context) ([]extract.UnknownTypeStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, count, first_seen, last_seen
		FROM unknown_type_stats
		ORDER BY count DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load unknown type stats: %w", err)
	}
	defer rows.Close()

	var out []extract.UnknownTypeStat
	for rows.Next() {
		var stat extract.UnknownTypeStat
		if err := rows.Scan(&stat.Name, &stat.Count, &stat.FirstSeen, &stat.LastSeen); err != nil {
			return nil, fmt.Errorf("sqlite: scan unknown type stat: %w", err)
		}
		out = append(out, stat)
	}
	return out, rows.Err()
}

// RecordUnknownType increments the rejection counter for one type.
func (s *Store) RecordUnknownType(ctx context.Context, name string, seen time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO unknown_type_stats (name, count, first_seen, last_seen)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			count = count + 1,
			last_seen = excluded.last_seen
	`, name, seen, seen)
	if err != nil {
		return fmt.Errorf("sqlite: record unknown type %s: %w", name, err)
	}
	return nil
}

// Compile-time assertion.
var _ extract.RegistryStore = (*Store)(nil)
