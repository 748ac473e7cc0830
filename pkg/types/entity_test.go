package types_test

import (
	"testing"

	"github.com/mgraessle/grist/pkg/types"
)

func TestEntityDisplayName(t *testing.T) {
	named := types.Entity{Name: "Mike", Description: "site foreman"}
	if got := named.DisplayName(); got != "Mike" {
		t.Errorf("DisplayName() = %q, want %q", got, "Mike")
	}

	unnamed := types.Entity{Description: "pour foundation by Friday"}
	if got := unnamed.DisplayName(); got != "pour foundation by Friday" {
		t.Errorf("DisplayName() = %q, want the description", got)
	}
}

func TestEntityAddRelationship_DeduplicatesByTargetAndType(t *testing.T) {
	e := types.Entity{ID: "a", Name: "Mike"}

	first := types.Relationship{Type: types.RelWorksOn, Source: "Mike", Target: "Foundation", TargetID: "b", Confidence: 0.9}
	if !e.AddRelationship(first) {
		t.Fatal("first AddRelationship returned false")
	}

	// Same target and type: rejected even though confidence differs.
	dup := types.Relationship{Type: types.RelWorksOn, Source: "Mike", Target: "Foundation", TargetID: "b", Confidence: 0.7}
	if e.AddRelationship(dup) {
		t.Error("duplicate edge (same target, same type) was added")
	}

	// Same target, different type: kept.
	other := types.Relationship{Type: types.RelManages, Source: "Mike", Target: "Foundation", TargetID: "b", Confidence: 0.8}
	if !e.AddRelationship(other) {
		t.Error("edge with different type was rejected")
	}

	if len(e.Relationships) != 2 {
		t.Errorf("got %d relationships, want 2", len(e.Relationships))
	}
}

func TestEntityAddRelationship_UnresolvedTargetFallsBackToName(t *testing.T) {
	e := types.Entity{ID: "a"}

	unresolved := types.Relationship{Type: types.RelMentions, Source: "doc", Target: "Permit 42", Confidence: 0.8}
	e.AddRelationship(unresolved)
	if e.AddRelationship(unresolved) {
		t.Error("unresolved duplicate (matching target name) was added")
	}
}

func TestEntityClone_IsDeep(t *testing.T) {
	orig := types.Entity{
		ID:         "a",
		Name:       "SIEM Tool",
		Attributes: map[string]interface{}{"vendor": "Splunk"},
		Relationships: []types.Relationship{
			{Type: types.RelRequires, Target: "License", Metadata: map[string]interface{}{"note": "annual"}},
		},
		Tags: []string{"security"},
	}

	clone := orig.Clone()
	clone.Attributes["vendor"] = "Elastic"
	clone.Relationships[0].Metadata["note"] = "monthly"
	clone.Tags[0] = "networking"

	if orig.Attributes["vendor"] != "Splunk" {
		t.Error("clone shares the attributes map")
	}
	if orig.Relationships[0].Metadata["note"] != "annual" {
		t.Error("clone shares relationship metadata")
	}
	if orig.Tags[0] != "security" {
		t.Error("clone shares the tags slice")
	}
}

func TestExtractionResultAddEntity_DerivesCategory(t *testing.T) {
	result := types.NewExtractionResult()
	result.AddEntity(types.Entity{Name: "Mike", Type: types.EntityTypePerson})
	result.AddEntity(types.Entity{Name: "$25,000", Type: types.EntityTypeCost, Category: "costs"})

	if len(result.Entities["people"]) != 1 {
		t.Errorf("got %d people, want 1", len(result.Entities["people"]))
	}
	if len(result.Entities["costs"]) != 1 {
		t.Errorf("got %d costs, want 1", len(result.Entities["costs"]))
	}
	if result.EntityCount() != 2 {
		t.Errorf("EntityCount() = %d, want 2", result.EntityCount())
	}
}

func TestExtractionResultMeanConfidence(t *testing.T) {
	result := types.NewExtractionResult()
	if got := result.MeanConfidence(); got != 0 {
		t.Errorf("empty result MeanConfidence() = %v, want 0", got)
	}

	result.AddEntity(types.Entity{Name: "Mike", Type: types.EntityTypePerson, Confidence: 0.8})
	result.AddEntity(types.Entity{Name: "Monday", Type: types.EntityTypeTimeline, Confidence: 0.6})
	result.Relationships = append(result.Relationships, types.Relationship{
		Type: types.RelWorksOn, Source: "Mike", Target: "Foundation", Confidence: 1.0,
	})

	want := (0.8 + 0.6 + 1.0) / 3
	if got := result.MeanConfidence(); got != want {
		t.Errorf("MeanConfidence() = %v, want %v", got, want)
	}
}

func TestPairKey_Unordered(t *testing.T) {
	if types.PairKey("a", "b") != types.PairKey("b", "a") {
		t.Error("PairKey must be order-independent")
	}
	if types.PairKey("a", "b") == types.PairKey("a", "c") {
		t.Error("distinct pairs must produce distinct keys")
	}

	candidate := types.MergeCandidate{
		Primary:   &types.Entity{ID: "z9"},
		Secondary: &types.Entity{ID: "a1"},
	}
	if candidate.PairKey() != types.PairKey("a1", "z9") {
		t.Errorf("PairKey() = %q, want canonical ordering", candidate.PairKey())
	}
}
