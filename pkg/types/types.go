// Package types defines the core data structures for the grist extraction
// pipeline: entities and relationships pulled out of project communications,
// extraction results, and the merge-engine records that track how duplicate
// entities were consolidated over time.
package types

// Entity type constants. The set is closed: every extractable entity carries
// one of these types, and each type has a field schema registered with the
// validator.
const (
	// Core domain types
	EntityTypePerson   = "person"
	EntityTypeProject  = "project"
	EntityTypeDecision = "decision"
	EntityTypeTimeline = "timeline"
	EntityTypeLocation = "location"
	EntityTypeMaterial = "material"
	EntityTypeCost     = "cost"
	EntityTypeIssue    = "issue"
	EntityTypeTask     = "task"
	EntityTypeDocument = "document"

	// System types used for meta-tracking of executed commands and queries
	EntityTypeSystemCommand = "system_command"
	EntityTypeSystemQuery   = "system_query"
)

// ValidEntityTypes is a slice of all valid entity types for validation.
var ValidEntityTypes = []string{
	EntityTypePerson,
	EntityTypeProject,
	EntityTypeDecision,
	EntityTypeTimeline,
	EntityTypeLocation,
	EntityTypeMaterial,
	EntityTypeCost,
	EntityTypeIssue,
	EntityTypeTask,
	EntityTypeDocument,
	EntityTypeSystemCommand,
	EntityTypeSystemQuery,
}

// categoryForType maps each entity type to the plural category bucket used
// as the key in ExtractionResult.Entities and for merge grouping. Most
// categories are regular plurals; "people" and the uninflected "timeline"
// are not, which is why this is a table and not a suffix rule.
var categoryForType = map[string]string{
	EntityTypePerson:        "people",
	EntityTypeProject:       "projects",
	EntityTypeDecision:      "decisions",
	EntityTypeTimeline:      "timeline",
	EntityTypeLocation:      "locations",
	EntityTypeMaterial:      "materials",
	EntityTypeCost:          "costs",
	EntityTypeIssue:         "issues",
	EntityTypeTask:          "tasks",
	EntityTypeDocument:      "documents",
	EntityTypeSystemCommand: "system_commands",
	EntityTypeSystemQuery:   "system_queries",
}

// typeForCategory is the inverse of categoryForType.
var typeForCategory = func() map[string]string {
	m := make(map[string]string, len(categoryForType))
	for t, c := range categoryForType {
		m[c] = t
	}
	return m
}()

// CategoryForType returns the plural category bucket for an entity type.
// Unknown types map to themselves so callers never lose the original tag.
func CategoryForType(entityType string) string {
	if c, ok := categoryForType[entityType]; ok {
		return c
	}
	return entityType
}

// TypeForCategory returns the singular entity type for a category bucket.
// For categories outside the table it strips a trailing "s" as a best
// effort, so LLM output using ad hoc plural keys still resolves.
func TypeForCategory(category string) string {
	if t, ok := typeForCategory[category]; ok {
		return t
	}
	if len(category) > 1 && category[len(category)-1] == 's' {
		return category[:len(category)-1]
	}
	return category
}

// IsValidEntityType checks if the given entity type is valid.
func IsValidEntityType(entityType string) bool {
	for _, validType := range ValidEntityTypes {
		if validType == entityType {
			return true
		}
	}
	return false
}

// IsValidCategory checks if the given category bucket maps to a known type.
func IsValidCategory(category string) bool {
	_, ok := typeForCategory[category]
	return ok
}

// Relationship provenance constants. Every admitted relationship records how
// it entered the graph; the tag participates in merge-reason explanations
// and audit displays.
const (
	ProvenanceLLM    = "llm_extraction"
	ProvenanceBatch  = "batch_processing"
	ProvenanceManual = "manual"
)

// ValidProvenances is a slice of all valid provenance tags.
var ValidProvenances = []string{ProvenanceLLM, ProvenanceBatch, ProvenanceManual}

// IsValidProvenance checks if the given provenance tag is valid.
func IsValidProvenance(p string) bool {
	for _, valid := range ValidProvenances {
		if valid == p {
			return true
		}
	}
	return false
}

// Communication type constants describe the channel a message arrived on.
// They bias complexity scoring and prompt construction but are not a closed
// set; unknown values are passed through.
const (
	CommunicationSMS      = "sms"
	CommunicationEmail    = "email"
	CommunicationDocument = "document"
)

// Designation constants classify how specific an entity name is, from a
// bare generic noun up to a concrete instance. Designation agreement feeds
// the merge engine's similarity scoring.
const (
	DesignationGeneric  = "generic"  // "firewall", "permit"
	DesignationProduct  = "product"  // "Cisco ASA 5506", "DeWalt DW745"
	DesignationInstance = "instance" // "the firewall in building 3"
)

// ValidDesignations is a slice of all valid designation values.
var ValidDesignations = []string{DesignationGeneric, DesignationProduct, DesignationInstance}

// IsValidDesignation checks if the given designation is valid.
func IsValidDesignation(d string) bool {
	for _, valid := range ValidDesignations {
		if valid == d {
			return true
		}
	}
	return false
}
