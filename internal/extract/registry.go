package extract

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mgraessle/grist/pkg/types"
)

// AdmittedType is a relationship type admitted at runtime, layered on top
// of the compiled-in system registry. Provenance records who admitted it.
type AdmittedType struct {
	Name       string                    `json:"name"`
	Def        types.RelationshipTypeDef `json:"def"`
	Confidence float64                   `json:"confidence"`
	Provenance string                    `json:"provenance"`
	CreatedAt  time.Time                 `json:"created_at"`
}

// UnknownTypeStat counts rejections of one unregistered relationship type,
// kept for operator review: a frequently-rejected type is a candidate for
// admission into the domain pack.
type UnknownTypeStat struct {
	Name      string    `json:"name"`
	Count     int       `json:"count"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// RegistryStore persists runtime registry state. The SQLite backend
// implements it; a nil store leaves the registry purely in-memory.
type RegistryStore interface {
	LoadAdmittedTypes(ctx context.Context) ([]AdmittedType, error)
	SaveAdmittedType(ctx context.Context, t AdmittedType) error
	LoadUnknownTypeStats(ctx context.Context) ([]UnknownTypeStat, error)
	RecordUnknownType(ctx context.Context, name string, seen time.Time) error
}

// Registry is the relationship-type registry: the immutable system
// definitions plus runtime-admitted custom types, with rejection stats for
// unknown types. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	system   map[string]types.RelationshipTypeDef
	admitted map[string]AdmittedType
	unknown  map[string]*UnknownTypeStat

	// admissionThreshold is the minimum confidence a runtime admission
	// needs. Default 0.7; a tuning knob, not a constant.
	admissionThreshold float64

	store RegistryStore
}

// NewRegistry creates a registry seeded with the system definitions.
func NewRegistry(admissionThreshold float64) *Registry {
	system := make(map[string]types.RelationshipTypeDef, len(types.SystemRelationshipTypes))
	for name, def := range types.SystemRelationshipTypes {
		system[name] = def
	}
	return &Registry{
		system:             system,
		admitted:           make(map[string]AdmittedType),
		unknown:            make(map[string]*UnknownTypeStat),
		admissionThreshold: admissionThreshold,
	}
}

// AddSystemTypes overlays additional definitions onto the system base,
// used when a domain pack ships its own relationship vocabulary.
func (r *Registry) AddSystemTypes(defs map[string]types.RelationshipTypeDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, def := range defs {
		r.system[name] = def
	}
}

// Attach wires a persistence backend and loads its saved state.
func (r *Registry) Attach(ctx context.Context, store RegistryStore) error {
	admitted, err := store.LoadAdmittedTypes(ctx)
	if err != nil {
		return fmt.Errorf("registry: load admitted types: %w", err)
	}
	stats, err := store.LoadUnknownTypeStats(ctx)
	if err != nil {
		return fmt.Errorf("registry: load unknown type stats: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.store = store
	for _, t := range admitted {
		r.admitted[t.Name] = t
	}
	for i := range stats {
		s := stats[i]
		r.unknown[s.Name] = &s
	}
	return nil
}

// ValidateType reports whether a relationship type is registered, either in
// the system base or among runtime admissions.
func (r *Registry) ValidateType(relType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.system[relType]; ok {
		return true
	}
	_, ok := r.admitted[relType]
	return ok
}

// Definition returns the definition for a registered type.
func (r *Registry) Definition(relType string) (types.RelationshipTypeDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if def, ok := r.system[relType]; ok {
		return def, true
	}
	if t, ok := r.admitted[relType]; ok {
		return t.Def, true
	}
	return types.RelationshipTypeDef{}, false
}

// TypesForDomain returns every registered definition applicable to the
// given domain, system and admitted combined.
func (r *Registry) TypesForDomain(domain string) map[string]types.RelationshipTypeDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]types.RelationshipTypeDef)
	for name, def := range r.system {
		if def.AppliesTo(domain) {
			out[name] = def
		}
	}
	for name, t := range r.admitted {
		if t.Def.AppliesTo(domain) {
			out[name] = t.Def
		}
	}
	return out
}

// Admit registers a new relationship type at runtime. The admission is
// rejected when the confidence is below the threshold or the type already
// exists. Persisted when a store is attached.
func (r *Registry) Admit(ctx context.Context, name string, def types.RelationshipTypeDef, confidence float64, provenance string) error {
	if name == "" {
		return fmt.Errorf("registry: relationship type name is empty")
	}
	if confidence < r.admissionThreshold {
		return fmt.Errorf("registry: confidence %.2f below admission threshold %.2f", confidence, r.admissionThreshold)
	}
	if !types.IsValidProvenance(provenance) {
		return fmt.Errorf("registry: invalid provenance %q", provenance)
	}

	r.mu.Lock()
	if _, exists := r.system[name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("registry: %q is already a system type", name)
	}
	if _, exists := r.admitted[name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("registry: %q is already admitted", name)
	}
	t := AdmittedType{
		Name:       name,
		Def:        def,
		Confidence: confidence,
		Provenance: provenance,
		CreatedAt:  time.Now(),
	}
	r.admitted[name] = t
	store := r.store
	delete(r.unknown, name)
	r.mu.Unlock()

	if store != nil {
		if err := store.SaveAdmittedType(ctx, t); err != nil {
			return fmt.Errorf("registry: persist admitted type: %w", err)
		}
	}
	return nil
}

// RecordUnknown counts one rejection of an unregistered type. Persistence
// errors are swallowed: the stat is advisory, the drop already happened.
func (r *Registry) RecordUnknown(ctx context.Context, name string) {
	now := time.Now()

	r.mu.Lock()
	stat, ok := r.unknown[name]
	if !ok {
		stat = &UnknownTypeStat{Name: name, FirstSeen: now}
		r.unknown[name] = stat
	}
	stat.Count++
	stat.LastSeen = now
	store := r.store
	r.mu.Unlock()

	if store != nil {
		_ = store.RecordUnknownType(ctx, name, now)
	}
}

// UnknownTypes returns the rejection stats sorted by count descending.
func (r *Registry) UnknownTypes() []UnknownTypeStat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]UnknownTypeStat, 0, len(r.unknown))
	for _, s := range r.unknown {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// AdmittedTypes returns the runtime admissions sorted by name.
func (r *Registry) AdmittedTypes() []AdmittedType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]AdmittedType, 0, len(r.admitted))
	for _, t := range r.admitted {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
