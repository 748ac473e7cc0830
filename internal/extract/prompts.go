package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mgraessle/grist/pkg/types"
)

// systemPrompt keeps the model on task across providers. Tiers pass it as
// the system turn when the provider supports one.
const systemPrompt = `You are an information extraction engine for project communications. You respond with a single JSON object and nothing else: no prose, no markdown fences, no explanations.`

// extractionPromptTemplate is the body of every extraction prompt. The
// entity vocabulary and relationship vocabulary are substituted per domain,
// keeping the prompt itself declarative.
const extractionPromptTemplate = `Extract structured entities and relationships from this %s.

Entity types (use the plural form as the JSON key):
%s

Relationship types:
%s

Rules:
- Every entity needs a "name" (or "description" for decisions, timelines, issues, and tasks) and a "confidence" between 0 and 1.
- Cost entities need a numeric "amount" attribute.
- Relationships need "type", "source", "target", and "confidence"; source and target are entity names from this message.
- Only extract what the message actually states. Do not invent entities.

Respond with exactly this JSON shape:
{
  "entities": {
    "people": [{"name": "...", "confidence": 0.9, "attributes": {"role": "..."}}],
    "costs": [{"name": "...", "confidence": 0.9, "attributes": {"amount": 25000}}]
  },
  "relationships": [
    {"type": "works_on", "source": "...", "target": "...", "confidence": 0.8}
  ],
  "summary": "one sentence"
}

Message:
%s`

// BuildExtractionPrompt renders the extraction prompt for one message. The
// domain controls which relationship types are offered to the model.
func BuildExtractionPrompt(text string, opts Options, registry *Registry) string {
	commType := opts.CommunicationType
	if commType == "" {
		commType = "message"
	}
	domain := opts.Domain
	if domain == "" {
		domain = types.DefaultDomain
	}
	return fmt.Sprintf(extractionPromptTemplate,
		commType,
		entityVocabulary(),
		relationshipVocabulary(registry, domain),
		text,
	)
}

func entityVocabulary() string {
	var b strings.Builder
	for _, t := range types.ValidEntityTypes {
		if t == types.EntityTypeSystemCommand || t == types.EntityTypeSystemQuery {
			continue // system types are written by the CLI, never extracted
		}
		fmt.Fprintf(&b, "- %s (%s)\n", types.CategoryForType(t), t)
	}
	return strings.TrimRight(b.String(), "\n")
}

func relationshipVocabulary(registry *Registry, domain string) string {
	defs := registry.TypesForDomain(domain)
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "- %s: %s\n", name, defs[name].Description)
	}
	return strings.TrimRight(b.String(), "\n")
}
