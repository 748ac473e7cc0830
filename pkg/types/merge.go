package types

import "time"

// Merge classification constants for candidate pairs.
const (
	// MergeTypeAuto marks a pair confident enough to consolidate without
	// human review.
	MergeTypeAuto = "auto"

	// MergeTypeSuggest marks a pair that requires human confirmation.
	MergeTypeSuggest = "suggest"

	// MergeTypeManual marks a consolidation a human confirmed or initiated.
	MergeTypeManual = "manual"
)

// Similarity is the per-dimension breakdown of how alike two entities are.
// Overall is dominated by name similarity; category and designation
// agreement contribute bonuses. Both Overall and the distinct merge
// confidence score are exposed because thresholds and display consume them
// differently.
type Similarity struct {
	Overall     float64 `json:"overall"`
	Name        float64 `json:"name"`        // Normalized Levenshtein similarity
	Category    float64 `json:"category"`    // 1 if categories equal, else 0
	Designation float64 `json:"designation"` // 1 if designations equal, else 0
}

// MergeCandidate is an ephemeral duplicate-pair proposal, recomputed fresh
// on every scan. Only the decision it leads to is persisted (in the
// decided-pairs set and, for performed merges, a MergeRecord).
type MergeCandidate struct {
	Primary   *Entity `json:"primary"`
	Secondary *Entity `json:"secondary"`

	Similarity      Similarity `json:"similarity"`
	MergeConfidence float64    `json:"merge_confidence"`

	// MergeType is "auto" or "suggest".
	MergeType string   `json:"merge_type"`
	Reasons   []string `json:"reasons,omitempty"` // Explanatory only, never affects classification
}

// PairKey returns the unordered identity of the candidate pair, used to key
// the decided-pairs set so a rejected pair is not re-suggested.
func (c *MergeCandidate) PairKey() string {
	return PairKey(c.Primary.ID, c.Secondary.ID)
}

// PairKey builds the canonical unordered key for two entity IDs.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// MergeRecord is an append-only audit entry describing one consolidation
// event. IDs are ULIDs, so records sort chronologically by ID. Undo is
// best-effort and single-level: the record is flagged undone, but a re-split
// is not guaranteed lossless if the primary was merged again afterward.
type MergeRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"` // "auto" or "manual"

	PrimaryBefore   Entity `json:"primary_before"`
	SecondaryBefore Entity `json:"secondary_before"`
	Result          Entity `json:"result"`

	Similarity      Similarity `json:"similarity"`
	MergeConfidence float64    `json:"merge_confidence"`
	Reasons         []string   `json:"reasons,omitempty"`

	Undone   bool       `json:"undone"`
	UndoneAt *time.Time `json:"undone_at,omitempty"`
}

// MergeOutcome is the result of one auto-merge batch pass.
type MergeOutcome struct {
	// Entities is the surviving working set: merged secondaries removed,
	// primaries mutated in place.
	Entities []*Entity `json:"entities"`

	// Merges lists the consolidations performed during this pass.
	Merges []MergeRecord `json:"merges"`

	// Suggestions lists the remaining candidates that need human review.
	Suggestions []MergeCandidate `json:"suggestions"`
}
