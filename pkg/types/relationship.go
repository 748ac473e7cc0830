package types

import "time"

// Relationship represents a directed, typed edge from one entity to another,
// or to an external string reference before resolution. Relationships are
// not independently identified; each exists as an attribute of its source
// entity, and its confidence and provenance travel with it.
type Relationship struct {
	Type   string `json:"type"`   // Relationship type; must exist in the registry
	Source string `json:"source"` // Source entity name as extracted
	Target string `json:"target"` // Target entity name as extracted

	// Resolved type tags. Filled by the normalizer by cross-referencing
	// extracted entities; "unknown" when no match was found.
	SourceType string `json:"source_type,omitempty"`
	TargetType string `json:"target_type,omitempty"`

	// TargetID is a weak reference to the target entity. It need not
	// resolve against the currently-loaded working set.
	TargetID string `json:"target_id,omitempty"`

	// Confidence in [0,1]. Relationships below the admission threshold
	// are dropped during validation.
	Confidence float64 `json:"confidence"`

	// Provenance records how the edge entered the graph
	// (llm_extraction, batch_processing, manual).
	Provenance string `json:"provenance,omitempty"`

	CreatedAt     time.Time  `json:"created_at,omitempty"`
	EstablishedOn *time.Time `json:"established_on,omitempty"` // When the real-world relationship began, if stated

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// TargetKey returns the identity used for duplicate-edge detection: the
// resolved TargetID when present, otherwise the extracted target name.
func (r *Relationship) TargetKey() string {
	if r.TargetID != "" {
		return r.TargetID
	}
	return r.Target
}

// Clone returns a deep copy of the relationship.
func (r Relationship) Clone() Relationship {
	out := r
	if r.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	if r.EstablishedOn != nil {
		t := *r.EstablishedOn
		out.EstablishedOn = &t
	}
	return out
}
