package extract

import (
	"context"
	"testing"

	"github.com/mgraessle/grist/pkg/types"
)

func TestValidatorDropsUnknownType(t *testing.T) {
	registry := NewRegistry(0.7)
	v := NewRelationshipValidator(registry, 0.7)

	result := types.NewExtractionResult()
	result.Relationships = []types.Relationship{
		{Type: "teleports_to", Source: "A", Target: "B", Confidence: 0.9},
		{Type: types.RelWorksOn, Source: "Mike", Target: "Foundation", Confidence: 0.9},
	}

	v.Validate(context.Background(), result, types.ProvenanceLLM)

	if len(result.Relationships) != 1 || result.Relationships[0].Type != types.RelWorksOn {
		t.Fatalf("relationships = %+v", result.Relationships)
	}
	if result.Metadata.DroppedRelationships != 1 {
		t.Errorf("DroppedRelationships = %d, want 1", result.Metadata.DroppedRelationships)
	}

	// The rejection is recorded for operator review.
	stats := registry.UnknownTypes()
	if len(stats) != 1 || stats[0].Name != "teleports_to" {
		t.Errorf("unknown stats = %+v", stats)
	}
}

func TestValidatorDropsBelowThresholdSilently(t *testing.T) {
	registry := NewRegistry(0.7)
	v := NewRelationshipValidator(registry, 0.7)

	result := types.NewExtractionResult()
	result.Relationships = []types.Relationship{
		{Type: types.RelWorksOn, Source: "Mike", Target: "Foundation", Confidence: 0.65},
	}

	v.Validate(context.Background(), result, types.ProvenanceLLM)

	if len(result.Relationships) != 0 {
		t.Fatalf("sub-threshold relationship kept: %+v", result.Relationships)
	}
	if result.Metadata.DroppedRelationships != 1 {
		t.Errorf("DroppedRelationships = %d, want 1", result.Metadata.DroppedRelationships)
	}
	// No unknown-type stat: the type itself was fine.
	if len(registry.UnknownTypes()) != 0 {
		t.Errorf("threshold drop should not record an unknown type")
	}
}

func TestValidatorStampsProvenance(t *testing.T) {
	registry := NewRegistry(0.7)
	v := NewRelationshipValidator(registry, 0.7)

	result := types.NewExtractionResult()
	result.Relationships = []types.Relationship{
		{Type: types.RelWorksOn, Source: "Mike", Target: "Foundation", Confidence: 0.9},
		{Type: types.RelManages, Source: "Sarah", Target: "Mike", Confidence: 0.9, Provenance: types.ProvenanceManual},
	}

	v.Validate(context.Background(), result, types.ProvenanceLLM)

	if result.Relationships[0].Provenance != types.ProvenanceLLM {
		t.Errorf("missing provenance not stamped: %+v", result.Relationships[0])
	}
	if result.Relationships[1].Provenance != types.ProvenanceManual {
		t.Errorf("existing provenance overwritten: %+v", result.Relationships[1])
	}
	for _, rel := range result.Relationships {
		if rel.CreatedAt.IsZero() {
			t.Errorf("admitted relationship missing timestamp: %+v", rel)
		}
	}
}

func TestValidatorNilAndEmpty(t *testing.T) {
	v := NewRelationshipValidator(NewRegistry(0.7), 0.7)
	v.Validate(context.Background(), nil, types.ProvenanceLLM)

	result := types.NewExtractionResult()
	v.Validate(context.Background(), result, types.ProvenanceLLM)
	if result.Metadata.DroppedRelationships != 0 {
		t.Errorf("empty result mutated: %+v", result.Metadata)
	}
}
