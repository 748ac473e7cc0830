package types

import "time"

// Entity represents a typed record extracted from a communication.
// Entities can be people, projects, costs, decisions, timelines, etc.
// Confidence reflects extraction certainty; entities below the caller's
// minimum confidence are discarded before storage.
type Entity struct {
	// Core identification fields
	ID          string `json:"id"`                    // Unique identifier, assigned at creation, immutable
	Name        string `json:"name"`                  // Primary display string
	Type        string `json:"type"`                  // Entity type (see EntityType constants)
	Category    string `json:"category"`              // Plural category bucket, used for merge grouping
	Description string `json:"description,omitempty"` // Stands in for the name on issue/task/decision/timeline schemas
	Designation string `json:"designation,omitempty"` // generic | product | instance

	// Extraction certainty, in [0,1]
	Confidence float64 `json:"confidence"`

	// Type-specific structured fields (person.role, cost.amount, ...)
	// validated against the type's schema.
	Attributes map[string]interface{} `json:"attributes,omitempty"`

	// Ordered list of outgoing edges. Target references are weak: a
	// TargetID need not resolve to a currently-loaded entity.
	Relationships []Relationship `json:"relationships,omitempty"`

	// Classification and provenance
	Tags           []string  `json:"tags,omitempty"`            // Free-form labels, unioned on merge
	Aliases        []string  `json:"aliases,omitempty"`         // Alternative names absorbed from merged duplicates
	ConversationID string    `json:"conversation_id,omitempty"` // Communication the entity was extracted from
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DisplayName returns the name, falling back to the description for
// schemas without a natural name.
func (e *Entity) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Description
}

// HasRelationship reports whether the entity already carries an edge with
// the same target and type. The target key is the resolved TargetID when
// present, otherwise the target name, so unresolved edges still dedupe.
func (e *Entity) HasRelationship(rel Relationship) bool {
	key := rel.TargetKey()
	for _, existing := range e.Relationships {
		if existing.Type == rel.Type && existing.TargetKey() == key {
			return true
		}
	}
	return false
}

// AddRelationship appends an edge if an equivalent one is not present.
// Returns true when the edge was added.
func (e *Entity) AddRelationship(rel Relationship) bool {
	if e.HasRelationship(rel) {
		return false
	}
	e.Relationships = append(e.Relationships, rel)
	return true
}

// HasTag reports whether the entity carries the given tag.
func (e *Entity) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the entity. Merge records snapshot entities
// with Clone so later in-place mutation cannot corrupt history.
func (e *Entity) Clone() Entity {
	out := *e
	if e.Attributes != nil {
		out.Attributes = make(map[string]interface{}, len(e.Attributes))
		for k, v := range e.Attributes {
			out.Attributes[k] = v
		}
	}
	if e.Relationships != nil {
		out.Relationships = make([]Relationship, len(e.Relationships))
		for i, rel := range e.Relationships {
			out.Relationships[i] = rel.Clone()
		}
	}
	out.Tags = append([]string(nil), e.Tags...)
	out.Aliases = append([]string(nil), e.Aliases...)
	return out
}
