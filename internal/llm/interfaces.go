// Package llm is the gateway to the language-model providers the extraction
// pipeline calls. Every provider client implements TextGenerator, reports
// token usage for cost accounting, and wraps its HTTP calls in a circuit
// breaker so a failing provider cannot cascade into the pipeline.
package llm

import "context"

// CallOptions carries the per-call knobs a strategy tier sets.
type CallOptions struct {
	// MaxTokens caps the completion length. 0 means the provider default.
	MaxTokens int

	// Temperature for sampling. Extraction tiers run at 0.
	Temperature float64

	// SystemPrompt, when non-empty, is sent as the system turn for
	// providers that support one and prepended to the prompt otherwise.
	SystemPrompt string
}

// Usage is the token accounting a provider reports for one call. Providers
// that do not report usage leave it zero; cost estimation then charges
// nothing rather than guessing.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Completion is the result of one text-generation call.
type Completion struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// TextGenerator is the interface for LLM text completion. All extraction
// prompts use single-turn completion style (not multi-turn chat).
type TextGenerator interface {
	Complete(ctx context.Context, prompt string, opts CallOptions) (*Completion, error)
	GetModel() string
	GetProvider() string
}

// EmbeddingGenerator is the interface for generating vector embeddings.
// Returns float32 slices; the pgvector storage backend consumes them for
// name-similarity prefiltering.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}
