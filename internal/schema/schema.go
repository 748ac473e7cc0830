// Package schema defines the field schemas for each entity type and
// validates extracted entities against them. Schemas are plain declarative
// data: a domain pack can replace or extend the built-in table without any
// code change.
package schema

// FieldSpec constrains one attribute of an entity type.
type FieldSpec struct {
	// Type is the expected JSON type: "string", "number", "integer",
	// "boolean", or "array". Empty means any type is accepted.
	Type string `yaml:"type,omitempty"`

	// Enum restricts string values to a fixed set.
	Enum []string `yaml:"enum,omitempty"`

	// Minimum and Maximum bound numeric values (inclusive).
	Minimum *float64 `yaml:"minimum,omitempty"`
	Maximum *float64 `yaml:"maximum,omitempty"`
}

// TypeSchema describes the required fields and field constraints of one
// entity type. The field names "name" and "description" refer to the
// entity's own fields; all other names refer to attributes.
type TypeSchema struct {
	Required   []string             `yaml:"required,omitempty"`
	Properties map[string]FieldSpec `yaml:"properties,omitempty"`
}

// Library is a lookup table of entity type schemas.
type Library struct {
	schemas map[string]TypeSchema
}

// NewLibrary builds a library from a schema table. The table is copied, so
// later mutation of the argument does not affect the library.
func NewLibrary(table map[string]TypeSchema) *Library {
	schemas := make(map[string]TypeSchema, len(table))
	for name, s := range table {
		schemas[name] = s
	}
	return &Library{schemas: schemas}
}

// DefaultLibrary returns a library with the built-in schema table.
func DefaultLibrary() *Library {
	return NewLibrary(defaultSchemas)
}

// Schema returns the schema registered for an entity type.
func (l *Library) Schema(entityType string) (TypeSchema, bool) {
	s, ok := l.schemas[entityType]
	return s, ok
}

// Has reports whether a schema is registered for the entity type.
func (l *Library) Has(entityType string) bool {
	_, ok := l.schemas[entityType]
	return ok
}

// Register adds or replaces the schema for an entity type. Domain packs use
// this to overlay the built-in table.
func (l *Library) Register(entityType string, s TypeSchema) {
	l.schemas[entityType] = s
}

// Types returns the entity types with a registered schema.
func (l *Library) Types() []string {
	out := make([]string, 0, len(l.schemas))
	for name := range l.schemas {
		out = append(out, name)
	}
	return out
}

func floatPtr(v float64) *float64 { return &v }

// defaultSchemas is the built-in schema table. Enum values and numeric
// bounds mirror the attribute vocabulary the prompts ask the model for.
var defaultSchemas = map[string]TypeSchema{
	"person": {
		Required: []string{"name"},
		Properties: map[string]FieldSpec{
			"role":         {Type: "string"},
			"organization": {Type: "string"},
			"contact":      {Type: "string"},
		},
	},
	"project": {
		Required: []string{"name"},
		Properties: map[string]FieldSpec{
			"status": {Type: "string", Enum: []string{"planned", "active", "on_hold", "completed"}},
			"phase":  {Type: "string"},
		},
	},
	"decision": {
		Required: []string{"description"},
		Properties: map[string]FieldSpec{
			"status":     {Type: "string", Enum: []string{"proposed", "approved", "rejected", "deferred"}},
			"decided_on": {Type: "string"},
		},
	},
	"timeline": {
		Required: []string{"description"},
		Properties: map[string]FieldSpec{
			"date":          {Type: "string"},
			"resolved_date": {Type: "string"},
			"recurrence":    {Type: "string"},
		},
	},
	"location": {
		Required: []string{"name"},
		Properties: map[string]FieldSpec{
			"address": {Type: "string"},
			"site":    {Type: "string"},
		},
	},
	"material": {
		Required: []string{"name"},
		Properties: map[string]FieldSpec{
			"quantity": {Type: "number", Minimum: floatPtr(0)},
			"unit":     {Type: "string"},
			"status":   {Type: "string", Enum: []string{"needed", "ordered", "delivered", "installed"}},
		},
	},
	"cost": {
		Required: []string{"name", "amount"},
		Properties: map[string]FieldSpec{
			"amount":    {Type: "number", Minimum: floatPtr(0)},
			"currency":  {Type: "string"},
			"cost_type": {Type: "string", Enum: []string{"estimate", "quote", "invoice", "payment", "budget"}},
		},
	},
	"issue": {
		Required: []string{"description"},
		Properties: map[string]FieldSpec{
			"severity": {Type: "string", Enum: []string{"low", "medium", "high", "critical"}},
			"status":   {Type: "string", Enum: []string{"open", "in_progress", "resolved"}},
		},
	},
	"task": {
		Required: []string{"description"},
		Properties: map[string]FieldSpec{
			"status":   {Type: "string", Enum: []string{"todo", "in_progress", "blocked", "done"}},
			"due":      {Type: "string"},
			"assignee": {Type: "string"},
		},
	},
	"document": {
		Required: []string{"name"},
		Properties: map[string]FieldSpec{
			"doc_type": {Type: "string"},
			"url":      {Type: "string"},
		},
	},
	"system_command": {
		Required: []string{"command"},
		Properties: map[string]FieldSpec{
			"command":   {Type: "string"},
			"issued_by": {Type: "string"},
			"status":    {Type: "string", Enum: []string{"pending", "executed", "failed"}},
		},
	},
	"system_query": {
		Required: []string{"query"},
		Properties: map[string]FieldSpec{
			"query":     {Type: "string"},
			"issued_by": {Type: "string"},
		},
	},
}
