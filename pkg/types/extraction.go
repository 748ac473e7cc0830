package types

import "time"

// ResultMetadata describes how an extraction was produced: which strategy
// and model ran, what it cost, and how trustworthy the output is. Degraded
// results are flagged honestly so downstream consumers can treat them with
// lower trust.
type ResultMetadata struct {
	Model    string `json:"model,omitempty"`
	Provider string `json:"provider,omitempty"`
	Strategy string `json:"strategy,omitempty"` // Tier name that produced the result

	DurationMS int64   `json:"duration_ms"` // Wall-clock time of the extraction call
	Cost       float64 `json:"cost"`        // Estimated cost in USD
	Confidence float64 `json:"confidence"`  // Mean confidence across retained entities and relationships

	// Degradation flags. IsFallback marks any non-primary path (parse
	// failure or tier exhaustion); IsBasic marks the regex-only extractor.
	IsFallback bool `json:"is_fallback,omitempty"`
	IsBasic    bool `json:"is_basic,omitempty"`

	CommunicationType string    `json:"communication_type,omitempty"`
	Timestamp         time.Time `json:"timestamp"`

	// Items dropped during normalization and validation. Drops are
	// counted, never fatal.
	DroppedEntities      int      `json:"dropped_entities,omitempty"`
	DroppedRelationships int      `json:"dropped_relationships,omitempty"`
	Warnings             []string `json:"warnings,omitempty"`
}

// ExtractionResult is the canonical output of one extraction call. Entities
// are keyed by plural category bucket ("people", "costs", "timeline", ...).
// The result is ephemeral: the caller persists it through the storage
// adapter and may feed the entities to the merge engine later.
type ExtractionResult struct {
	Entities      map[string][]Entity `json:"entities"`
	Relationships []Relationship      `json:"relationships"`
	Summary       string              `json:"summary,omitempty"`
	Metadata      ResultMetadata      `json:"metadata"`
}

// NewExtractionResult returns an empty result with initialized containers.
func NewExtractionResult() *ExtractionResult {
	return &ExtractionResult{
		Entities:      make(map[string][]Entity),
		Relationships: []Relationship{},
		Metadata:      ResultMetadata{Timestamp: time.Now()},
	}
}

// AddEntity appends an entity under its category bucket, deriving the
// bucket from the entity type when the category is unset.
func (r *ExtractionResult) AddEntity(e Entity) {
	if e.Category == "" {
		e.Category = CategoryForType(e.Type)
	}
	if r.Entities == nil {
		r.Entities = make(map[string][]Entity)
	}
	r.Entities[e.Category] = append(r.Entities[e.Category], e)
}

// AllEntities flattens the category map into a single slice. Iteration
// order follows the category buckets, not insertion order across buckets.
func (r *ExtractionResult) AllEntities() []Entity {
	var out []Entity
	for _, list := range r.Entities {
		out = append(out, list...)
	}
	return out
}

// EntityCount returns the number of entities across all categories.
func (r *ExtractionResult) EntityCount() int {
	n := 0
	for _, list := range r.Entities {
		n += len(list)
	}
	return n
}

// MeanConfidence computes the mean confidence across all retained entities
// and relationships combined, 0 when nothing was retained.
func (r *ExtractionResult) MeanConfidence() float64 {
	sum := 0.0
	n := 0
	for _, list := range r.Entities {
		for _, e := range list {
			sum += e.Confidence
			n++
		}
	}
	for _, rel := range r.Relationships {
		sum += rel.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
