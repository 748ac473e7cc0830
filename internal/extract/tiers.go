package extract

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mgraessle/grist/internal/llm"
)

// Tier names in the default ladder.
const (
	TierFast     = "fast"
	TierBalanced = "balanced"
	TierAccurate = "accurate"
)

// Tier is one LLM configuration in the strategy ladder: a provider plus its
// cost and time ceilings and its confidence calibration. The tier table is
// declarative data consumed by one generic executor; adding a tier is a
// data change, not code.
type Tier struct {
	Name     string `yaml:"name"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url,omitempty"`

	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`

	// MaxCost is the per-call cost ceiling in USD; MaxTime is the
	// wall-clock timeout the call is raced against.
	MaxCost float64       `yaml:"max_cost"`
	MaxTime time.Duration `yaml:"max_time"`

	// DefaultConfidence replaces a missing or invalid confidence on
	// parsed entities; MinConfidence is the floor below which entities
	// are discarded. Local models are calibrated lower than cloud ones.
	DefaultConfidence float64 `yaml:"default_confidence"`
	MinConfidence     float64 `yaml:"min_confidence"`

	// ContextBudget is the rough character budget before a document is
	// chunked. 0 means never chunk.
	ContextBudget int `yaml:"context_budget,omitempty"`
}

// UnmarshalYAML decodes a tier with max_time written as a duration string
// ("30s", "2m"), which yaml.v3 cannot decode into time.Duration directly.
func (t *Tier) UnmarshalYAML(value *yaml.Node) error {
	type rawTier struct {
		Name              string  `yaml:"name"`
		Provider          string  `yaml:"provider"`
		Model             string  `yaml:"model"`
		BaseURL           string  `yaml:"base_url"`
		MaxTokens         int     `yaml:"max_tokens"`
		Temperature       float64 `yaml:"temperature"`
		MaxCost           float64 `yaml:"max_cost"`
		MaxTime           string  `yaml:"max_time"`
		DefaultConfidence float64 `yaml:"default_confidence"`
		MinConfidence     float64 `yaml:"min_confidence"`
		ContextBudget     int     `yaml:"context_budget"`
	}
	var raw rawTier
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*t = Tier{
		Name:              raw.Name,
		Provider:          raw.Provider,
		Model:             raw.Model,
		BaseURL:           raw.BaseURL,
		MaxTokens:         raw.MaxTokens,
		Temperature:       raw.Temperature,
		MaxCost:           raw.MaxCost,
		DefaultConfidence: raw.DefaultConfidence,
		MinConfidence:     raw.MinConfidence,
		ContextBudget:     raw.ContextBudget,
	}
	if raw.MaxTime != "" {
		d, err := time.ParseDuration(raw.MaxTime)
		if err != nil {
			return fmt.Errorf("invalid max_time %q: %w", raw.MaxTime, err)
		}
		t.MaxTime = d
	}
	return nil
}

// ProviderConfig converts the tier into the llm factory's input.
func (t Tier) ProviderConfig(apiKey string) llm.ProviderConfig {
	return llm.ProviderConfig{
		Provider: t.Provider,
		Model:    t.Model,
		APIKey:   apiKey,
		BaseURL:  t.BaseURL,
		Timeout:  t.MaxTime,
	}
}

// TierTable is the strategy ladder plus the fallback order walked when the
// selected tier fails.
type TierTable struct {
	Tiers    map[string]Tier `yaml:"tiers"`
	Fallback []string        `yaml:"fallback"`
}

// DefaultTierTable returns the built-in ladder: a local fast tier, a cheap
// cloud balanced tier, and an accurate cloud tier. Fallback always ends at
// the fast tier; the basic extractor sits below the table entirely.
func DefaultTierTable() *TierTable {
	return &TierTable{
		Tiers: map[string]Tier{
			TierFast: {
				Name:              TierFast,
				Provider:          "ollama",
				Model:             "qwen2.5:7b",
				MaxTokens:         1024,
				MaxCost:           0,
				MaxTime:           15 * time.Second,
				DefaultConfidence: 0.5,
				MinConfidence:     0.4,
				ContextBudget:     8000,
			},
			TierBalanced: {
				Name:              TierBalanced,
				Provider:          "openai",
				Model:             "gpt-4o-mini",
				MaxTokens:         2048,
				MaxCost:           0.05,
				MaxTime:           30 * time.Second,
				DefaultConfidence: 0.7,
				MinConfidence:     0.5,
				ContextBudget:     24000,
			},
			TierAccurate: {
				Name:              TierAccurate,
				Provider:          "anthropic",
				Model:             "claude-sonnet-4-20250514",
				MaxTokens:         4096,
				MaxCost:           0.50,
				MaxTime:           60 * time.Second,
				DefaultConfidence: 0.7,
				MinConfidence:     0.5,
				ContextBudget:     48000,
			},
		},
		Fallback: []string{TierFast},
	}
}

// LoadTierTable reads a tier table from YAML, overlaying the defaults so a
// file only needs the tiers it changes.
func LoadTierTable(path string) (*TierTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("extract: failed to read tier table: %w", err)
	}
	var overlay TierTable
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("extract: invalid tier table YAML: %w", err)
	}
	table := DefaultTierTable()
	for name, tier := range overlay.Tiers {
		if tier.Name == "" {
			tier.Name = name
		}
		table.Tiers[name] = tier
	}
	if len(overlay.Fallback) > 0 {
		table.Fallback = overlay.Fallback
	}
	return table, nil
}

// Select maps a complexity level and caller hints onto a tier.
// ForceHighAccuracy or a high level picks the accurate tier; medium picks
// balanced; low (or urgent) picks fast.
func (tt *TierTable) Select(level string, opts Options) Tier {
	switch {
	case opts.ForceHighAccuracy:
		return tt.Tiers[TierAccurate]
	case opts.Urgent:
		return tt.Tiers[TierFast]
	case level == ComplexityHigh:
		return tt.Tiers[TierAccurate]
	case level == ComplexityMedium:
		return tt.Tiers[TierBalanced]
	default:
		return tt.Tiers[TierFast]
	}
}

// Chain returns the ordered list of tiers to walk: the selected tier first,
// then the fallback list with the selected tier filtered out.
func (tt *TierTable) Chain(selected Tier) []Tier {
	chain := []Tier{selected}
	for _, name := range tt.Fallback {
		if name == selected.Name {
			continue
		}
		if tier, ok := tt.Tiers[name]; ok {
			chain = append(chain, tier)
		}
	}
	return chain
}

// Options are the caller-supplied hints for one extraction.
type Options struct {
	// CommunicationType is the channel the text arrived on (sms, email,
	// document). It feeds prompt construction and chunking decisions.
	CommunicationType string

	// Domain selects the vocabulary (schemas, relationship registry,
	// prompt guidance). Empty means the default domain.
	Domain string

	// ForceHighAccuracy pins the accurate tier regardless of complexity.
	ForceHighAccuracy bool

	// Urgent pins the fast tier: lowest latency wins over accuracy.
	Urgent bool

	// ReceivedAt anchors relative schedule phrases ("Monday", "next
	// week") during date resolution. Zero means now.
	ReceivedAt time.Time

	// ConversationID tags extracted entities with their source
	// communication.
	ConversationID string
}
