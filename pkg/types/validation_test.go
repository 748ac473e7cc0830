package types_test

import (
	"testing"

	"github.com/mgraessle/grist/pkg/types"
)

// TestIsValidEntityType_AllValidTypes tests that all 12 entity types are recognized as valid
func TestIsValidEntityType_AllValidTypes(t *testing.T) {
	validEntityTypes := []string{
		// Core domain types
		types.EntityTypePerson,
		types.EntityTypeProject,
		types.EntityTypeDecision,
		types.EntityTypeTimeline,
		types.EntityTypeLocation,
		types.EntityTypeMaterial,
		types.EntityTypeCost,
		types.EntityTypeIssue,
		types.EntityTypeTask,
		types.EntityTypeDocument,
		// System types
		types.EntityTypeSystemCommand,
		types.EntityTypeSystemQuery,
	}

	for _, entityType := range validEntityTypes {
		t.Run("valid_"+entityType, func(t *testing.T) {
			if !types.IsValidEntityType(entityType) {
				t.Errorf("IsValidEntityType(%q) = false, want true", entityType)
			}
		})
	}
}

// TestIsValidEntityType_InvalidTypes tests that invalid entity types are rejected
func TestIsValidEntityType_InvalidTypes(t *testing.T) {
	invalidTypes := []string{
		"",             // empty string
		"PERSON",       // uppercase
		"Person",       // mixed case
		"organization", // not in the closed set
		"foo",          // random string
		" person",      // leading whitespace
		"person ",      // trailing whitespace
		"per",          // prefix of valid type
		"person_type",  // suffix addition
		"people",       // category, not type
		"123",          // numeric
		"person!",      // special character
	}

	for _, invalidType := range invalidTypes {
		t.Run("invalid_"+invalidType, func(t *testing.T) {
			if types.IsValidEntityType(invalidType) {
				t.Errorf("IsValidEntityType(%q) = true, want false", invalidType)
			}
		})
	}
}

// TestCategoryForType tests the type-to-category table including the
// irregular plural forms
func TestCategoryForType(t *testing.T) {
	testCases := []struct {
		entityType string
		want       string
	}{
		{types.EntityTypePerson, "people"},
		{types.EntityTypeProject, "projects"},
		{types.EntityTypeDecision, "decisions"},
		{types.EntityTypeTimeline, "timeline"},
		{types.EntityTypeLocation, "locations"},
		{types.EntityTypeMaterial, "materials"},
		{types.EntityTypeCost, "costs"},
		{types.EntityTypeIssue, "issues"},
		{types.EntityTypeTask, "tasks"},
		{types.EntityTypeDocument, "documents"},
		{types.EntityTypeSystemCommand, "system_commands"},
		{types.EntityTypeSystemQuery, "system_queries"},
		{"widget", "widget"}, // unknown types map to themselves
	}

	for _, tc := range testCases {
		t.Run(tc.entityType, func(t *testing.T) {
			if got := types.CategoryForType(tc.entityType); got != tc.want {
				t.Errorf("CategoryForType(%q) = %q, want %q", tc.entityType, got, tc.want)
			}
		})
	}
}

// TestTypeForCategory tests the inverse mapping and the trailing-s fallback
func TestTypeForCategory(t *testing.T) {
	testCases := []struct {
		category string
		want     string
	}{
		{"people", types.EntityTypePerson},
		{"timeline", types.EntityTypeTimeline},
		{"costs", types.EntityTypeCost},
		{"materials", types.EntityTypeMaterial},
		{"documents", types.EntityTypeDocument},
		{"widgets", "widget"}, // unknown plural strips the suffix
		{"widget", "widget"},  // unknown singular passes through
		{"s", "s"},            // single "s" is left alone
	}

	for _, tc := range testCases {
		t.Run(tc.category, func(t *testing.T) {
			if got := types.TypeForCategory(tc.category); got != tc.want {
				t.Errorf("TypeForCategory(%q) = %q, want %q", tc.category, got, tc.want)
			}
		})
	}
}

// TestCategoryRoundTrip tests that every valid type survives the
// type -> category -> type round trip
func TestCategoryRoundTrip(t *testing.T) {
	for _, entityType := range types.ValidEntityTypes {
		t.Run(entityType, func(t *testing.T) {
			category := types.CategoryForType(entityType)
			if !types.IsValidCategory(category) {
				t.Fatalf("IsValidCategory(%q) = false for valid type %q", category, entityType)
			}
			if got := types.TypeForCategory(category); got != entityType {
				t.Errorf("round trip %q -> %q -> %q", entityType, category, got)
			}
		})
	}
}

// TestIsValidProvenance tests provenance tag validation
func TestIsValidProvenance(t *testing.T) {
	testCases := []struct {
		provenance string
		want       bool
	}{
		{types.ProvenanceLLM, true},
		{types.ProvenanceBatch, true},
		{types.ProvenanceManual, true},
		{"", false},
		{"llm", false},
		{"LLM_EXTRACTION", false},
	}

	for _, tc := range testCases {
		t.Run(tc.provenance, func(t *testing.T) {
			if got := types.IsValidProvenance(tc.provenance); got != tc.want {
				t.Errorf("IsValidProvenance(%q) = %v, want %v", tc.provenance, got, tc.want)
			}
		})
	}
}

// TestIsValidDesignation tests designation validation
func TestIsValidDesignation(t *testing.T) {
	for _, d := range types.ValidDesignations {
		if !types.IsValidDesignation(d) {
			t.Errorf("IsValidDesignation(%q) = false, want true", d)
		}
	}
	for _, d := range []string{"", "Generic", "model", "specific"} {
		if types.IsValidDesignation(d) {
			t.Errorf("IsValidDesignation(%q) = true, want false", d)
		}
	}
}

// TestIsSystemRelationshipType tests membership in the built-in registry
func TestIsSystemRelationshipType(t *testing.T) {
	for _, relType := range types.ValidRelationshipTypes {
		t.Run("valid_"+relType, func(t *testing.T) {
			if !types.IsSystemRelationshipType(relType) {
				t.Errorf("IsSystemRelationshipType(%q) = false, want true", relType)
			}
		})
	}

	for _, relType := range []string{"", "owns", "MANAGES", "manages "} {
		t.Run("invalid_"+relType, func(t *testing.T) {
			if types.IsSystemRelationshipType(relType) {
				t.Errorf("IsSystemRelationshipType(%q) = true, want false", relType)
			}
		})
	}
}

// TestRelationshipTypeDef_AppliesTo tests domain scoping of registry entries
func TestRelationshipTypeDef_AppliesTo(t *testing.T) {
	universal := types.RelationshipTypeDef{Description: "everywhere"}
	if !universal.AppliesTo(types.DomainConstruction) || !universal.AppliesTo(types.DomainCybersecurity) {
		t.Error("definition with no domains should apply to every domain")
	}

	scoped := types.RelationshipTypeDef{
		Description: "construction only",
		Domains:     []string{types.DomainConstruction},
	}
	if !scoped.AppliesTo(types.DomainConstruction) {
		t.Error("scoped definition should apply to its own domain")
	}
	if scoped.AppliesTo(types.DomainCybersecurity) {
		t.Error("scoped definition should not apply to other domains")
	}

	if def, ok := types.SystemRelationshipTypes[types.RelSuppliedBy]; !ok {
		t.Fatalf("supplied_by missing from system registry")
	} else if def.AppliesTo(types.DomainCybersecurity) {
		t.Error("supplied_by should be scoped to construction")
	}
}
