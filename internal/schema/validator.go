package schema

import (
	"fmt"

	"github.com/mgraessle/grist/pkg/types"
)

// ValidationResult reports whether an entity conforms to its type schema.
// Errors lists every violation found, not just the first.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Validate checks an entity against the schema registered for its type.
// An unregistered type is itself a validation failure; the caller decides
// whether to drop the entity or surface the result.
func (l *Library) Validate(e *types.Entity) ValidationResult {
	if e == nil {
		return ValidationResult{Errors: []string{"entity is nil"}}
	}

	s, ok := l.schemas[e.Type]
	if !ok {
		return ValidationResult{Errors: []string{fmt.Sprintf("no schema registered for type %q", e.Type)}}
	}

	var errs []string

	for _, field := range s.Required {
		if !hasRequiredField(e, field) {
			errs = append(errs, fmt.Sprintf("missing required field %q", field))
		}
	}

	for field, spec := range s.Properties {
		value, ok := e.Attributes[field]
		if !ok || value == nil {
			continue // absence is handled by the required list
		}
		errs = append(errs, checkField(field, value, spec)...)
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// hasRequiredField resolves "name" and "description" to the entity's own
// fields and everything else to attributes. A name requirement is satisfied
// by the description standing in, matching DisplayName semantics.
func hasRequiredField(e *types.Entity, field string) bool {
	switch field {
	case "name":
		return e.Name != "" || e.Description != ""
	case "description":
		return e.Description != "" || e.Name != ""
	}
	value, ok := e.Attributes[field]
	if !ok || value == nil {
		return false
	}
	if s, isString := value.(string); isString && s == "" {
		return false
	}
	return true
}

func checkField(field string, value interface{}, spec FieldSpec) []string {
	var errs []string

	switch spec.Type {
	case "string":
		s, ok := value.(string)
		if !ok {
			return []string{fmt.Sprintf("field %q: expected string, got %T", field, value)}
		}
		if len(spec.Enum) > 0 && !enumContains(spec.Enum, s) {
			errs = append(errs, fmt.Sprintf("field %q: %q is not one of %v", field, s, spec.Enum))
		}

	case "number", "integer":
		n, ok := numericValue(value)
		if !ok {
			return []string{fmt.Sprintf("field %q: expected %s, got %T", field, spec.Type, value)}
		}
		if spec.Type == "integer" && n != float64(int64(n)) {
			errs = append(errs, fmt.Sprintf("field %q: expected integer, got %v", field, n))
		}
		if spec.Minimum != nil && n < *spec.Minimum {
			errs = append(errs, fmt.Sprintf("field %q: %v is below minimum %v", field, n, *spec.Minimum))
		}
		if spec.Maximum != nil && n > *spec.Maximum {
			errs = append(errs, fmt.Sprintf("field %q: %v is above maximum %v", field, n, *spec.Maximum))
		}

	case "boolean":
		if _, ok := value.(bool); !ok {
			errs = append(errs, fmt.Sprintf("field %q: expected boolean, got %T", field, value))
		}

	case "array":
		if _, ok := value.([]interface{}); !ok {
			errs = append(errs, fmt.Sprintf("field %q: expected array, got %T", field, value))
		}

	case "":
		// No type constraint; enum may still apply to strings.
		if s, ok := value.(string); ok && len(spec.Enum) > 0 && !enumContains(spec.Enum, s) {
			errs = append(errs, fmt.Sprintf("field %q: %q is not one of %v", field, s, spec.Enum))
		}
	}

	return errs
}

// numericValue accepts the numeric shapes JSON decoding and callers
// produce: float64 from encoding/json plus the common Go integer types.
func numericValue(value interface{}) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func enumContains(enum []string, value string) bool {
	for _, e := range enum {
		if e == value {
			return true
		}
	}
	return false
}
