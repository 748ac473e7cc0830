package llm

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rate is the price of one model in USD per 1,000 tokens.
type Rate struct {
	InputPer1K  float64 `yaml:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k"`
}

// RateTable maps "provider/model" keys to prices. Cost estimation is a pure
// function of reported usage and this table; no provider is consulted.
type RateTable struct {
	rates map[string]Rate
}

// defaultRates is the built-in price table. Local models are free; unlisted
// cloud models fall back to the provider's default entry.
var defaultRates = map[string]Rate{
	"openai/gpt-4":              {InputPer1K: 0.03, OutputPer1K: 0.06},
	"openai/gpt-4o":             {InputPer1K: 0.0025, OutputPer1K: 0.01},
	"openai/gpt-4o-mini":        {InputPer1K: 0.001, OutputPer1K: 0.002},
	"openai/default":            {InputPer1K: 0.001, OutputPer1K: 0.002},
	"anthropic/claude-sonnet-4": {InputPer1K: 0.003, OutputPer1K: 0.015},
	"anthropic/default":         {InputPer1K: 0.001, OutputPer1K: 0.005},
	"ollama/default":            {},
}

// DefaultRateTable returns a table with the built-in prices.
func DefaultRateTable() *RateTable {
	return newRateTable(defaultRates)
}

func newRateTable(rates map[string]Rate) *RateTable {
	t := &RateTable{rates: make(map[string]Rate, len(rates))}
	for k, r := range rates {
		t.rates[k] = r
	}
	return t
}

// LoadRateTable reads a YAML price file and overlays it on the built-in
// table, so an operator only lists the models whose prices changed.
func LoadRateTable(path string) (*RateTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("llm: failed to read rate table: %w", err)
	}
	var overlay map[string]Rate
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("llm: invalid rate table YAML: %w", err)
	}
	t := DefaultRateTable()
	for k, r := range overlay {
		t.rates[k] = r
	}
	return t, nil
}

// Lookup returns the rate for a provider/model pair, falling back to the
// provider default and then to a zero rate.
func (t *RateTable) Lookup(provider, model string) Rate {
	if r, ok := t.rates[provider+"/"+model]; ok {
		return r
	}
	// Versioned model names ("claude-sonnet-4-20250514") match their base entry.
	for key, r := range t.rates {
		if base, found := strings.CutPrefix(key, provider+"/"); found && base != "default" && strings.HasPrefix(model, base) {
			return r
		}
	}
	if r, ok := t.rates[provider+"/default"]; ok {
		return r
	}
	return Rate{}
}

// EstimateCost computes the USD cost of one call from its reported usage.
func (t *RateTable) EstimateCost(provider, model string, usage Usage) float64 {
	r := t.Lookup(provider, model)
	return float64(usage.PromptTokens)/1000*r.InputPer1K +
		float64(usage.CompletionTokens)/1000*r.OutputPer1K
}
