package types

// RelationshipTypeDef describes one registered relationship type. Domains
// lists the extraction domains the type applies to; an empty list means the
// type applies everywhere.
type RelationshipTypeDef struct {
	Description string   `json:"description" yaml:"description"`
	Domains     []string `json:"domains,omitempty" yaml:"domains,omitempty"`
}

// AppliesTo reports whether the definition covers the given domain.
func (d RelationshipTypeDef) AppliesTo(domain string) bool {
	if len(d.Domains) == 0 {
		return true
	}
	for _, dom := range d.Domains {
		if dom == domain {
			return true
		}
	}
	return false
}

// Extraction domain constants. Domains partition prompt vocabulary, entity
// schemas, and relationship registries; new verticals are added by data
// changes alone.
const (
	DomainConstruction  = "construction"
	DomainCybersecurity = "cybersecurity"
)

// DefaultDomain is the domain assumed when a caller does not specify one.
const DefaultDomain = DomainConstruction

// Relationship type constants
const (
	RelManages      = "manages"
	RelWorksOn      = "works_on"
	RelAssignedTo   = "assigned_to"
	RelDependsOn    = "depends_on"
	RelBlocks       = "blocks"
	RelScheduledFor = "scheduled_for"
	RelLocatedAt    = "located_at"
	RelPartOf       = "part_of"
	RelRequires     = "requires"
	RelSuppliedBy   = "supplied_by"
	RelBudgetedAt   = "budgeted_at"
	RelDecidedBy    = "decided_by"
	RelAffects      = "affects"
	RelDocumentedIn = "documented_in"
	RelMentions     = "mentions"
	RelRelatesTo    = "relates_to"
)

// SystemRelationshipTypes is the built-in registry of relationship type
// definitions. Runtime-admitted custom types are layered on top by the
// extract registry; this map is the immutable system base.
var SystemRelationshipTypes = map[string]RelationshipTypeDef{
	RelManages:      {Description: "A person manages another person, a project, or a resource"},
	RelWorksOn:      {Description: "A person works on a project or task"},
	RelAssignedTo:   {Description: "A task or issue is assigned to a person"},
	RelDependsOn:    {Description: "A task or project depends on another task, project, or material"},
	RelBlocks:       {Description: "An issue or task blocks another task or project"},
	RelScheduledFor: {Description: "A task, decision, or project is scheduled for a timeline"},
	RelLocatedAt:    {Description: "A project, material, or person is located at a location"},
	RelPartOf:       {Description: "An entity is a component of a larger project or task"},
	RelRequires:     {Description: "A project or task requires a material or resource"},
	RelSuppliedBy:   {Description: "A material or service is supplied by a person or vendor", Domains: []string{DomainConstruction}},
	RelBudgetedAt:   {Description: "A project or task carries a cost or budget figure"},
	RelDecidedBy:    {Description: "A decision was made by a person"},
	RelAffects:      {Description: "A decision or issue affects a project, task, or person"},
	RelDocumentedIn: {Description: "An entity is described in a document"},
	RelMentions:     {Description: "A document mentions an entity"},
	RelRelatesTo:    {Description: "Generic association between two entities"},
}

// ValidRelationshipTypes is a slice of the built-in relationship type names.
var ValidRelationshipTypes = func() []string {
	out := make([]string, 0, len(SystemRelationshipTypes))
	for name := range SystemRelationshipTypes {
		out = append(out, name)
	}
	return out
}()

// IsSystemRelationshipType checks membership in the built-in registry. The
// runtime registry in internal/extract consults admitted custom types too;
// this covers only the compiled-in base.
func IsSystemRelationshipType(relType string) bool {
	_, ok := SystemRelationshipTypes[relType]
	return ok
}
