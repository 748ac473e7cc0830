package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/mgraessle/grist/pkg/types"
)

func TestRegistryValidateSystemTypes(t *testing.T) {
	r := NewRegistry(0.7)
	if !r.ValidateType(types.RelWorksOn) {
		t.Error("system type should validate")
	}
	if r.ValidateType("teleports_to") {
		t.Error("unregistered type should not validate")
	}
}

func TestRegistryAdmit(t *testing.T) {
	r := NewRegistry(0.7)
	ctx := context.Background()
	def := types.RelationshipTypeDef{Description: "a host communicates with a C2 server", Domains: []string{types.DomainCybersecurity}}

	if err := r.Admit(ctx, "beacons_to", def, 0.9, types.ProvenanceManual); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if !r.ValidateType("beacons_to") {
		t.Error("admitted type should validate")
	}
	got, ok := r.Definition("beacons_to")
	if !ok || got.Description != def.Description {
		t.Errorf("Definition = %+v, %v", got, ok)
	}
}

func TestRegistryAdmitBelowThreshold(t *testing.T) {
	r := NewRegistry(0.7)
	err := r.Admit(context.Background(), "beacons_to", types.RelationshipTypeDef{}, 0.5, types.ProvenanceManual)
	if err == nil || !strings.Contains(err.Error(), "threshold") {
		t.Errorf("expected threshold rejection, got %v", err)
	}
}

func TestRegistryAdmitDuplicates(t *testing.T) {
	r := NewRegistry(0.7)
	ctx := context.Background()

	if err := r.Admit(ctx, types.RelWorksOn, types.RelationshipTypeDef{}, 0.9, types.ProvenanceManual); err == nil {
		t.Error("re-admitting a system type must fail")
	}
	if err := r.Admit(ctx, "beacons_to", types.RelationshipTypeDef{}, 0.9, types.ProvenanceManual); err != nil {
		t.Fatal(err)
	}
	if err := r.Admit(ctx, "beacons_to", types.RelationshipTypeDef{}, 0.9, types.ProvenanceManual); err == nil {
		t.Error("double admission must fail")
	}
}

func TestRegistryAdmitBadProvenance(t *testing.T) {
	r := NewRegistry(0.7)
	if err := r.Admit(context.Background(), "beacons_to", types.RelationshipTypeDef{}, 0.9, "folklore"); err == nil {
		t.Error("invalid provenance must be rejected")
	}
}

func TestRegistryUnknownStats(t *testing.T) {
	r := NewRegistry(0.7)
	ctx := context.Background()

	r.RecordUnknown(ctx, "teleports_to")
	r.RecordUnknown(ctx, "teleports_to")
	r.RecordUnknown(ctx, "haunts")

	stats := r.UnknownTypes()
	if len(stats) != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats[0].Name != "teleports_to" || stats[0].Count != 2 {
		t.Errorf("expected teleports_to first with count 2, got %+v", stats[0])
	}
}

func TestRegistryAdmitClearsUnknownStat(t *testing.T) {
	r := NewRegistry(0.7)
	ctx := context.Background()

	r.RecordUnknown(ctx, "beacons_to")
	if err := r.Admit(ctx, "beacons_to", types.RelationshipTypeDef{}, 0.9, types.ProvenanceManual); err != nil {
		t.Fatal(err)
	}
	for _, s := range r.UnknownTypes() {
		if s.Name == "beacons_to" {
			t.Error("admitted type still listed as unknown")
		}
	}
}

func TestRegistryTypesForDomain(t *testing.T) {
	r := NewRegistry(0.7)
	ctx := context.Background()
	cyberOnly := types.RelationshipTypeDef{Description: "d", Domains: []string{types.DomainCybersecurity}}
	if err := r.Admit(ctx, "beacons_to", cyberOnly, 0.9, types.ProvenanceManual); err != nil {
		t.Fatal(err)
	}

	construction := r.TypesForDomain(types.DomainConstruction)
	if _, ok := construction["beacons_to"]; ok {
		t.Error("cyber-scoped admission leaked into construction")
	}
	if _, ok := construction[types.RelSuppliedBy]; !ok {
		t.Error("construction-scoped system type missing")
	}

	cyber := r.TypesForDomain(types.DomainCybersecurity)
	if _, ok := cyber["beacons_to"]; !ok {
		t.Error("cyber admission missing from its own domain")
	}
	if _, ok := cyber[types.RelSuppliedBy]; ok {
		t.Error("construction-scoped type leaked into cybersecurity")
	}
	if _, ok := cyber[types.RelWorksOn]; !ok {
		t.Error("unscoped system type should apply everywhere")
	}
}
