package extract

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mgraessle/grist/internal/schema"
	"github.com/mgraessle/grist/pkg/types"
)

// Parser converts raw LLM text into the canonical ExtractionResult shape,
// tolerating near-miss formatting. A parse failure is never fatal: the
// parser degrades to the shared basic extractor and flags the result.
type Parser struct {
	schemas *schema.Library
}

// NewParser creates a parser that validates entities against the given
// schema library.
func NewParser(schemas *schema.Library) *Parser {
	return &Parser{schemas: schemas}
}

// rawResponse is the loosely-typed shape decoded from LLM output. Entities
// and relationships are untyped maps so one malformed field never discards
// its siblings.
type rawResponse struct {
	Entities      map[string][]map[string]interface{} `json:"entities"`
	Relationships []map[string]interface{}            `json:"relationships"`
	Summary       string                              `json:"summary"`
}

// Parse normalizes one LLM response. The tier supplies the confidence
// calibration: its default replaces missing or invalid confidences and its
// floor discards weak entities. Parse never fails; unparseable input
// produces a flagged fallback result.
func (p *Parser) Parse(raw string, tier Tier, opts Options) *types.ExtractionResult {
	cleaned := extractJSON(raw)

	var decoded rawResponse
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		log.Printf("extract: LLM response was not parseable JSON, using basic sweep: %v", err)
		result := BasicExtract(raw, opts)
		result.Summary = fmt.Sprintf("LLM response could not be parsed (%v); basic keyword sweep used instead", err)
		result.Metadata.Strategy = tier.Name
		result.Metadata.Warnings = append(result.Metadata.Warnings, fmt.Sprintf("parse failure: %v", err))
		return result
	}

	result := types.NewExtractionResult()
	result.Summary = decoded.Summary
	now := time.Now()

	for category, rawEntities := range decoded.Entities {
		entityType := types.TypeForCategory(category)
		for _, rawEntity := range rawEntities {
			entity, ok := p.normalizeEntity(rawEntity, entityType, tier, opts, now, result)
			if !ok {
				continue
			}
			result.AddEntity(entity)
		}
	}

	for _, rawRel := range decoded.Relationships {
		rel, ok := normalizeRelationship(rawRel, tier)
		if !ok {
			result.Metadata.DroppedRelationships++
			continue
		}
		inferEndpointTypes(&rel, result)
		result.Relationships = append(result.Relationships, rel)
	}

	result.Metadata.Confidence = result.MeanConfidence()
	result.Metadata.Timestamp = now
	result.Metadata.CommunicationType = opts.CommunicationType
	return result
}

// normalizeEntity builds a typed entity from one decoded map. Returns false
// when the entity is discarded (below the confidence floor or failing its
// type schema); drop counters and warnings accumulate on the result.
func (p *Parser) normalizeEntity(raw map[string]interface{}, entityType string, tier Tier, opts Options, now time.Time, result *types.ExtractionResult) (types.Entity, bool) {
	entity := types.Entity{
		ID:             uuid.NewString(),
		Name:           stringField(raw, "name"),
		Description:    stringField(raw, "description"),
		Type:           entityType,
		Category:       types.CategoryForType(entityType),
		Designation:    stringField(raw, "designation"),
		Confidence:     confidenceField(raw, tier.DefaultConfidence),
		ConversationID: opts.ConversationID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if attrs, ok := raw["attributes"].(map[string]interface{}); ok {
		entity.Attributes = attrs
	}
	if tags, ok := raw["tags"].([]interface{}); ok {
		for _, t := range tags {
			if s, isString := t.(string); isString {
				entity.Tags = append(entity.Tags, s)
			}
		}
	}
	if entity.Designation != "" && !types.IsValidDesignation(entity.Designation) {
		entity.Designation = ""
	}

	if entity.Confidence < tier.MinConfidence {
		result.Metadata.DroppedEntities++
		return types.Entity{}, false
	}

	if check := p.schemas.Validate(&entity); !check.Valid {
		result.Metadata.DroppedEntities++
		result.Metadata.Warnings = append(result.Metadata.Warnings,
			fmt.Sprintf("dropped %s %q: %s", entityType, entity.DisplayName(), strings.Join(check.Errors, "; ")))
		return types.Entity{}, false
	}

	return entity, true
}

// normalizeRelationship builds a typed relationship from one decoded map.
// "relationship_type" is accepted as an alias for "type"; a relationship
// missing type, source, or target is discarded.
func normalizeRelationship(raw map[string]interface{}, tier Tier) (types.Relationship, bool) {
	rel := types.Relationship{
		Type:       stringField(raw, "type", "relationship_type"),
		Source:     stringField(raw, "source", "from"),
		Target:     stringField(raw, "target", "to"),
		SourceType: stringField(raw, "source_type"),
		TargetType: stringField(raw, "target_type"),
		Confidence: confidenceField(raw, tier.DefaultConfidence),
	}
	if rel.Type == "" || rel.Source == "" || rel.Target == "" {
		return types.Relationship{}, false
	}
	return rel, true
}

// inferEndpointTypes fills missing source/target type tags by scanning the
// already-extracted entities for a name match and using that entity's
// category minus its pluralizing suffix. No match tags "unknown" rather
// than failing.
func inferEndpointTypes(rel *types.Relationship, result *types.ExtractionResult) {
	if rel.SourceType == "" {
		rel.SourceType = lookupEntityType(rel.Source, result)
	}
	if rel.TargetType == "" {
		rel.TargetType = lookupEntityType(rel.Target, result)
	}
}

func lookupEntityType(name string, result *types.ExtractionResult) string {
	for category, entities := range result.Entities {
		for i := range entities {
			if strings.EqualFold(entities[i].DisplayName(), name) {
				return types.TypeForCategory(category)
			}
		}
	}
	return "unknown"
}

// extractJSON extracts the first complete JSON object from text that may
// contain extra prose. LLMs add explanations before and after the JSON
// despite instructions, and wrap it in markdown fences.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return text // no JSON found, let the decoder fail
	}

	// Walk to the matching closing brace, skipping braces inside strings.
	braceCount := 0
	inString := false
	escape := false

	for i := start; i < len(text); i++ {
		char := text[i]

		if escape {
			escape = false
			continue
		}
		if char == '\\' {
			escape = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			switch char {
			case '{':
				braceCount++
			case '}':
				braceCount--
				if braceCount == 0 {
					return text[start : i+1]
				}
			}
		}
	}

	// No complete object; fall back to slicing first "{" to last "}".
	if end := strings.LastIndex(text, "}"); end > start {
		return text[start : end+1]
	}
	return text
}

// stringField returns the first present string value among the keys.
func stringField(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key].(string); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// confidenceField reads a confidence value, clamping to [0,1] and replacing
// a missing or non-numeric value with the tier default.
func confidenceField(m map[string]interface{}, defaultConfidence float64) float64 {
	v, ok := m["confidence"]
	if !ok {
		return defaultConfidence
	}
	n, ok := v.(float64)
	if !ok {
		return defaultConfidence
	}
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}
