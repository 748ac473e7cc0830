package extract

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/mgraessle/grist/internal/llm"
	"github.com/mgraessle/grist/internal/schema"
	"github.com/mgraessle/grist/pkg/types"
)

// GeneratorFactory builds a live client for a tier. Tests substitute stubs
// here; production wires llm.NewTextGenerator.
type GeneratorFactory func(tier Tier) (llm.TextGenerator, error)

// PipelineConfig carries the tuning knobs of the extraction pipeline. The
// defaults are tuning knobs, not constants of the algorithm.
type PipelineConfig struct {
	// DailyCostLimit is the USD ceiling on the day's LLM spend. 0
	// disables the check.
	DailyCostLimit float64

	// RelationshipMinConfidence is the admission threshold for extracted
	// relationships. Default 0.7.
	RelationshipMinConfidence float64

	// MaxRetries is the number of additional attempts per tier after the
	// first failure. Default 2.
	MaxRetries int

	// RetryBackoff is the linear backoff unit between attempts at one
	// tier: attempt n waits n * RetryBackoff.
	RetryBackoff time.Duration

	// DisableBasic turns off the regex fallback. Only then can
	// ExtractEntities fail with AllStrategiesFailedError; normally the
	// basic path guarantees a result.
	DisableBasic bool

	// ChunkOverlap is the shared window between adjacent document chunks.
	ChunkOverlap int
}

// DefaultPipelineConfig returns the default tuning.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		DailyCostLimit:            10.0,
		RelationshipMinConfidence: 0.7,
		MaxRetries:                2,
		RetryBackoff:              500 * time.Millisecond,
		ChunkOverlap:              200,
	}
}

// Pipeline is the extraction strategy selector and executor: it scores a
// message, picks a tier, runs the LLM call under the tier's ceilings,
// normalizes and validates the output, and degrades down the fallback chain
// when things go wrong.
type Pipeline struct {
	tiers     *TierTable
	parser    *Parser
	validator *RelationshipValidator
	registry  *Registry
	meter     *CostMeter
	rates     *llm.RateTable
	factory   GeneratorFactory
	cfg       PipelineConfig

	mu         sync.Mutex
	generators map[string]llm.TextGenerator
}

// NewPipeline wires a pipeline. A nil rates table uses the built-in prices;
// a nil tier table uses the default ladder.
func NewPipeline(tiers *TierTable, schemas *schema.Library, registry *Registry, factory GeneratorFactory, rates *llm.RateTable, cfg PipelineConfig) *Pipeline {
	if tiers == nil {
		tiers = DefaultTierTable()
	}
	if rates == nil {
		rates = llm.DefaultRateTable()
	}
	if cfg.RelationshipMinConfidence == 0 {
		cfg.RelationshipMinConfidence = 0.7
	}
	return &Pipeline{
		tiers:      tiers,
		parser:     NewParser(schemas),
		validator:  NewRelationshipValidator(registry, cfg.RelationshipMinConfidence),
		registry:   registry,
		meter:      NewCostMeter(cfg.DailyCostLimit),
		rates:      rates,
		factory:    factory,
		cfg:        cfg,
		generators: make(map[string]llm.TextGenerator),
	}
}

// Meter exposes the daily cost meter for the scheduler's midnight rollover
// and the stats command.
func (p *Pipeline) Meter() *CostMeter {
	return p.meter
}

// Registry exposes the relationship registry for CLI admission commands.
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// ExtractEntities runs one extraction. The only errors that reach the
// caller are an empty input, a tripped daily cost ceiling, and (with the
// basic extractor disabled) tier exhaustion. Everything else degrades: the
// result is always populated, with honest IsFallback/IsBasic flags.
func (p *Pipeline) ExtractEntities(ctx context.Context, text string, opts Options) (*types.ExtractionResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("extract: text is empty")
	}

	complexity := ScoreComplexity(text)
	selected := p.tiers.Select(complexity.Level, opts)
	chain := p.tiers.Chain(selected)

	// The ceiling is checked before any call is issued; CostLimitExceeded
	// is fatal to this call, not retried, and does not degrade to basic.
	if err := p.meter.Allow(); err != nil {
		return nil, err
	}

	log.Printf("extract: complexity %s (score %d, %s), tier %s",
		complexity.Level, complexity.Score, strings.Join(complexity.Signals, ", "), selected.Name)

	var attempts []string
	var lastErr error
	for _, tier := range chain {
		result, err := p.runTier(ctx, tier, text, opts)
		if err == nil {
			return result, nil
		}
		// A ceiling tripped mid-call (a later chunk, or a later tier) is
		// still fatal: it must not fall through to basic extraction.
		var costErr *CostLimitError
		if errors.As(err, &costErr) {
			return nil, err
		}
		attempts = append(attempts, tier.Name)
		lastErr = err
		log.Printf("extract: tier %s failed: %v", tier.Name, err)
		if ctx.Err() != nil {
			break
		}
	}

	if p.cfg.DisableBasic {
		return nil, &AllStrategiesFailedError{Attempts: attempts, LastErr: lastErr}
	}

	log.Printf("extract: all %d tiers failed, degrading to basic extraction", len(attempts))
	result := BasicExtract(text, opts)
	ResolveTimelineDates(result, opts.ReceivedAt)
	return result, nil
}

// runTier attempts one tier with linear-backoff retries. Transient provider
// errors (timeouts, network failures, rate limits) are retried; permanent
// ones (auth, bad request, budget misfit) fail the tier immediately.
func (p *Pipeline) runTier(ctx context.Context, tier Tier, text string, opts Options) (*types.ExtractionResult, error) {
	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * p.cfg.RetryBackoff
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := p.attempt(ctx, tier, text, opts)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !llm.IsTransient(err) {
			break
		}
		var costErr *CostLimitError
		if errors.As(err, &costErr) {
			break
		}
	}
	return nil, lastErr
}

// attempt runs one LLM call (or one per chunk for long documents) through
// the tier, racing it against the tier's wall-clock ceiling.
func (p *Pipeline) attempt(ctx context.Context, tier Tier, text string, opts Options) (*types.ExtractionResult, error) {
	gen, err := p.generator(tier)
	if err != nil {
		return nil, err
	}

	chunks := []string{text}
	if tier.ContextBudget > 0 && len(text) > tier.ContextBudget {
		chunks = ChunkText(text, tier.ContextBudget, p.cfg.ChunkOverlap)
		log.Printf("extract: document exceeds tier %s context budget, split into %d chunks", tier.Name, len(chunks))
	}

	var merged *types.ExtractionResult
	for _, chunk := range chunks {
		result, err := p.extractOnce(ctx, gen, tier, chunk, opts)
		if err != nil {
			return nil, err
		}
		merged = mergeChunkResults(merged, result)
	}

	p.validator.Validate(ctx, merged, types.ProvenanceLLM)
	ResolveTimelineDates(merged, opts.ReceivedAt)
	merged.Metadata.Confidence = merged.MeanConfidence()
	return merged, nil
}

func (p *Pipeline) extractOnce(ctx context.Context, gen llm.TextGenerator, tier Tier, text string, opts Options) (*types.ExtractionResult, error) {
	if err := p.meter.Allow(); err != nil {
		return nil, err
	}

	prompt := BuildExtractionPrompt(text, opts, p.registry)
	callOpts := llm.CallOptions{
		MaxTokens:    tier.MaxTokens,
		Temperature:  tier.Temperature,
		SystemPrompt: systemPrompt,
	}

	// Per-call cost ceiling, estimated up front from the prompt size and
	// the completion cap. A tier whose worst case exceeds its own ceiling
	// is skipped so the chain falls to a cheaper one.
	if tier.MaxCost > 0 {
		worstCase := p.rates.EstimateCost(tier.Provider, tier.Model, llm.Usage{
			PromptTokens:     len(prompt) / 4,
			CompletionTokens: tier.MaxTokens,
		})
		if worstCase > tier.MaxCost {
			return nil, &llm.APIError{
				Provider:   tier.Provider,
				StatusCode: 400,
				Message:    fmt.Sprintf("estimated cost $%.4f exceeds tier ceiling $%.4f", worstCase, tier.MaxCost),
			}
		}
	}

	start := time.Now()
	comp, err := p.race(ctx, gen, tier, prompt, callOpts)
	if err != nil {
		return nil, err
	}

	cost := p.rates.EstimateCost(gen.GetProvider(), gen.GetModel(), comp.Usage)
	p.meter.Charge(cost)

	result := p.parser.Parse(comp.Content, tier, opts)
	result.Metadata.Model = gen.GetModel()
	result.Metadata.Provider = gen.GetProvider()
	result.Metadata.Strategy = tier.Name
	result.Metadata.DurationMS = time.Since(start).Milliseconds()
	result.Metadata.Cost = cost
	return result, nil
}

// race runs the completion against the tier's wall-clock ceiling. A timeout
// surfaces as a *TimeoutError, distinct from provider API errors, and the
// in-flight call is abandoned: it may still complete on the provider side,
// but its result is treated as lost, not retried mid-flight.
func (p *Pipeline) race(ctx context.Context, gen llm.TextGenerator, tier Tier, prompt string, callOpts llm.CallOptions) (*llm.Completion, error) {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		comp *llm.Completion
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		comp, err := gen.Complete(callCtx, prompt, callOpts)
		ch <- outcome{comp, err}
	}()

	timer := time.NewTimer(tier.MaxTime)
	defer timer.Stop()

	select {
	case out := <-ch:
		return out.comp, out.err
	case <-timer.C:
		cancel()
		return nil, &TimeoutError{Tier: tier.Name, MaxTime: tier.MaxTime}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// mergeChunkResults concatenates a chunk's entities per category and
// appends its relationships. Metadata accumulates cost and duration; the
// summary keeps the first chunk's sentence.
func mergeChunkResults(acc, next *types.ExtractionResult) *types.ExtractionResult {
	if acc == nil {
		return next
	}
	for category, entities := range next.Entities {
		acc.Entities[category] = append(acc.Entities[category], entities...)
	}
	acc.Relationships = append(acc.Relationships, next.Relationships...)
	if acc.Summary == "" {
		acc.Summary = next.Summary
	}
	acc.Metadata.Cost += next.Metadata.Cost
	acc.Metadata.DurationMS += next.Metadata.DurationMS
	acc.Metadata.DroppedEntities += next.Metadata.DroppedEntities
	acc.Metadata.DroppedRelationships += next.Metadata.DroppedRelationships
	acc.Metadata.Warnings = append(acc.Metadata.Warnings, next.Metadata.Warnings...)
	acc.Metadata.IsFallback = acc.Metadata.IsFallback || next.Metadata.IsFallback
	acc.Metadata.IsBasic = acc.Metadata.IsBasic || next.Metadata.IsBasic
	return acc
}

// generator returns the cached client for a tier, building it on first use.
func (p *Pipeline) generator(tier Tier) (llm.TextGenerator, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen, ok := p.generators[tier.Name]; ok {
		return gen, nil
	}
	gen, err := p.factory(tier)
	if err != nil {
		return nil, fmt.Errorf("extract: build %s tier client: %w", tier.Name, err)
	}
	p.generators[tier.Name] = gen
	return gen, nil
}
