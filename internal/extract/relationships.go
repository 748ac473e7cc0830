package extract

import (
	"context"
	"log"
	"time"

	"github.com/mgraessle/grist/pkg/types"
)

// RelationshipValidator gatekeeps relationship admission into the final
// graph: unknown types are dropped with a warning, sub-threshold confidence
// is dropped silently, and every admitted relationship is stamped with its
// creation time and provenance.
type RelationshipValidator struct {
	registry *Registry

	// minConfidence is the admission threshold (default 0.7).
	minConfidence float64
}

// NewRelationshipValidator creates a validator over the given registry.
func NewRelationshipValidator(registry *Registry, minConfidence float64) *RelationshipValidator {
	return &RelationshipValidator{registry: registry, minConfidence: minConfidence}
}

// Validate filters a result's relationships in place. Dropped counts land
// in the result metadata; validation never fails the extraction.
func (v *RelationshipValidator) Validate(ctx context.Context, result *types.ExtractionResult, provenance string) {
	if result == nil || len(result.Relationships) == 0 {
		return
	}

	now := time.Now()
	kept := result.Relationships[:0]
	dropped := 0

	for _, rel := range result.Relationships {
		if !v.registry.ValidateType(rel.Type) {
			log.Printf("extract: dropping relationship with unknown type %q (%s -> %s)", rel.Type, rel.Source, rel.Target)
			v.registry.RecordUnknown(ctx, rel.Type)
			dropped++
			continue
		}
		if rel.Confidence < v.minConfidence {
			dropped++
			continue
		}
		rel.CreatedAt = now
		if rel.Provenance == "" {
			rel.Provenance = provenance
		}
		kept = append(kept, rel)
	}

	result.Relationships = kept
	result.Metadata.DroppedRelationships += dropped
}
