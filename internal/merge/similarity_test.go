package merge

import (
	"math"
	"testing"

	"github.com/mgraessle/grist/pkg/types"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNameSimilarityExactAndCase(t *testing.T) {
	if got := NameSimilarity("SIEM Tool", "SIEM Tool"); got != 1 {
		t.Errorf("identical names = %v, want 1", got)
	}
	if got := NameSimilarity("SIEM Tool", "Siem Tool"); got != 1 {
		t.Errorf("case-insensitive match = %v, want 1", got)
	}
	if got := NameSimilarity("", ""); got != 0 {
		t.Errorf("two empty names = %v, want 0", got)
	}
}

func TestNameSimilarityEditDistance(t *testing.T) {
	// One substitution in a ten-byte name: 1 - 1/10.
	got := NameSimilarity("Firewall A", "Firewall B")
	if !almostEqual(got, 0.9) {
		t.Errorf("one substitution in ten = %v, want 0.9", got)
	}

	if got := NameSimilarity("Firewall A", "Router B"); got > 0.5 {
		t.Errorf("unrelated names = %v, want low", got)
	}
}

func TestComputeWeightsAndSymmetry(t *testing.T) {
	a := &types.Entity{Name: "SIEM Tool", Category: "materials"}
	b := &types.Entity{Name: "Siem Tool", Category: "materials"}

	s := Compute(a, b)
	if s.Name != 1 || s.Category != 1 || s.Designation != 0 {
		t.Fatalf("similarity = %+v", s)
	}
	if !almostEqual(s.Overall, 0.7+0.2) {
		t.Errorf("Overall = %v, want 0.9", s.Overall)
	}

	rev := Compute(b, a)
	if !almostEqual(rev.Overall, s.Overall) {
		t.Errorf("asymmetric: %v vs %v", rev.Overall, s.Overall)
	}
}

func TestComputeEmptyCategoryNoBonus(t *testing.T) {
	a := &types.Entity{Name: "X"}
	b := &types.Entity{Name: "X"}
	s := Compute(a, b)
	if s.Category != 0 {
		t.Errorf("empty categories must not count as agreement: %+v", s)
	}
}

func TestMergeConfidence(t *testing.T) {
	a := &types.Entity{Name: "SIEM Tool", Category: "materials", Confidence: 0.9, ConversationID: "doc-1"}
	b := &types.Entity{Name: "Siem Tool", Category: "materials", Confidence: 0.7, ConversationID: "doc-1"}
	s := Compute(a, b)

	got := MergeConfidence(a, b, s)
	want := 0.6*1 + 0.2*1 + 0.1*1 + 0.1*0.8
	if !almostEqual(got, want) {
		t.Errorf("MergeConfidence = %v, want %v", got, want)
	}

	// Different documents lose the co-occurrence term.
	b2 := &types.Entity{Name: "Siem Tool", Category: "materials", Confidence: 0.7, ConversationID: "doc-2"}
	got = MergeConfidence(a, b2, Compute(a, b2))
	if !almostEqual(got, want-0.1) {
		t.Errorf("MergeConfidence without co-occurrence = %v, want %v", got, want-0.1)
	}
}

func TestReasons(t *testing.T) {
	a := &types.Entity{Name: "SIEM Tool", Category: "materials", ConversationID: "doc-1"}
	b := &types.Entity{Name: "Siem Tool", Category: "materials", ConversationID: "doc-1"}
	got := Reasons(a, b, Compute(a, b))

	want := map[string]bool{"Identical names": true, "Same category": true, "Same document": true}
	if len(got) != len(want) {
		t.Fatalf("reasons = %v", got)
	}
	for _, r := range got {
		if !want[r] {
			t.Errorf("unexpected reason %q", r)
		}
	}
}

func TestReasonsSharedRelationships(t *testing.T) {
	a := &types.Entity{Name: "Mike", Relationships: []types.Relationship{
		{Type: types.RelWorksOn, Target: "Foundation"},
	}}
	b := &types.Entity{Name: "Mike J", Relationships: []types.Relationship{
		{Type: types.RelWorksOn, Target: "Foundation"},
		{Type: types.RelManages, Target: "Crew"},
	}}
	got := Reasons(a, b, Compute(a, b))

	found := false
	for _, r := range got {
		if r == "1 shared relationships" {
			found = true
		}
	}
	if !found {
		t.Errorf("shared-relationship reason missing: %v", got)
	}
}
