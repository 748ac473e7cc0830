package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mgraessle/grist/internal/llm"
	"github.com/mgraessle/grist/internal/schema"
	"github.com/mgraessle/grist/pkg/types"
)

const goodResponse = `{
	"entities": {"people": [{"name": "Mike Johnson", "confidence": 0.9}]},
	"relationships": [{"type": "works_on", "source": "Mike Johnson", "target": "Foundation", "confidence": 0.9}],
	"summary": "Mike is on the foundation work."
}`

// Messages engineered to score into each complexity band.
const (
	lowText    = "ok sounds good, see you there"
	mediumText = "talked to Mike Johnson about the $15,000 quote"
)

var highText = func() string {
	s := ""
	for i := 0; i < 110; i++ {
		s += "filler "
	}
	return s + "Mike Johnson approved the $50,000 budget, deadline friday"
}()

// stubGenerator scripts one tier's responses call by call.
type stubGenerator struct {
	provider string
	model    string
	respond  func(call int) (*llm.Completion, error)

	mu    sync.Mutex
	calls int
}

func (g *stubGenerator) Complete(ctx context.Context, prompt string, opts llm.CallOptions) (*llm.Completion, error) {
	g.mu.Lock()
	g.calls++
	n := g.calls
	g.mu.Unlock()
	return g.respond(n)
}

func (g *stubGenerator) GetModel() string    { return g.model }
func (g *stubGenerator) GetProvider() string { return g.provider }

func (g *stubGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func alwaysSucceed(call int) (*llm.Completion, error) {
	return &llm.Completion{Content: goodResponse}, nil
}

func alwaysFail(status int) func(int) (*llm.Completion, error) {
	return func(call int) (*llm.Completion, error) {
		return nil, &llm.APIError{Provider: "stub", StatusCode: status, Message: "scripted failure"}
	}
}

// newTestPipeline wires a pipeline whose tiers resolve to scripted stubs.
func newTestPipeline(cfg PipelineConfig, respond map[string]func(int) (*llm.Completion, error)) (*Pipeline, map[string]*stubGenerator) {
	gens := make(map[string]*stubGenerator)
	factory := func(tier Tier) (llm.TextGenerator, error) {
		fn, ok := respond[tier.Name]
		if !ok {
			return nil, fmt.Errorf("no script for tier %s", tier.Name)
		}
		g := &stubGenerator{provider: tier.Provider, model: tier.Model, respond: fn}
		gens[tier.Name] = g
		return g, nil
	}
	p := NewPipeline(DefaultTierTable(), schema.DefaultLibrary(), NewRegistry(0.7), factory, nil, cfg)
	return p, gens
}

func fastRetryConfig() PipelineConfig {
	cfg := DefaultPipelineConfig()
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

func TestPipelineSelectsTierByComplexity(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{lowText, TierFast},
		{mediumText, TierBalanced},
		{highText, TierAccurate},
	}
	for _, tc := range cases {
		p, _ := newTestPipeline(fastRetryConfig(), map[string]func(int) (*llm.Completion, error){
			TierFast:     alwaysSucceed,
			TierBalanced: alwaysSucceed,
			TierAccurate: alwaysSucceed,
		})
		result, err := p.ExtractEntities(context.Background(), tc.text, Options{})
		if err != nil {
			t.Fatalf("%s: %v", tc.want, err)
		}
		if result.Metadata.Strategy != tc.want {
			t.Errorf("text %q ran on %s, want %s", tc.text[:20], result.Metadata.Strategy, tc.want)
		}
	}
}

func TestPipelineUrgentPinsFastTier(t *testing.T) {
	p, _ := newTestPipeline(fastRetryConfig(), map[string]func(int) (*llm.Completion, error){
		TierFast: alwaysSucceed,
	})
	result, err := p.ExtractEntities(context.Background(), highText, Options{Urgent: true})
	if err != nil {
		t.Fatal(err)
	}
	if result.Metadata.Strategy != TierFast {
		t.Errorf("urgent extraction ran on %s", result.Metadata.Strategy)
	}
}

func TestPipelineResultShape(t *testing.T) {
	p, _ := newTestPipeline(fastRetryConfig(), map[string]func(int) (*llm.Completion, error){
		TierBalanced: alwaysSucceed,
		TierFast:     alwaysSucceed,
	})
	result, err := p.ExtractEntities(context.Background(), mediumText, Options{ConversationID: "conv-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entities["people"]) != 1 {
		t.Fatalf("people = %+v", result.Entities["people"])
	}
	if len(result.Relationships) != 1 {
		t.Fatalf("relationships = %+v", result.Relationships)
	}
	if result.Relationships[0].Provenance != types.ProvenanceLLM {
		t.Errorf("provenance = %q", result.Relationships[0].Provenance)
	}
	if result.Metadata.IsFallback || result.Metadata.IsBasic {
		t.Error("clean extraction should not be flagged")
	}
	if result.Metadata.Provider != "openai" || result.Metadata.Model != "gpt-4o-mini" {
		t.Errorf("metadata provider/model = %s/%s", result.Metadata.Provider, result.Metadata.Model)
	}
}

func TestPipelineRetriesTransientFailures(t *testing.T) {
	flaky := func(call int) (*llm.Completion, error) {
		if call <= 2 {
			return nil, &llm.APIError{Provider: "stub", StatusCode: http.StatusServiceUnavailable, Message: "overloaded"}
		}
		return &llm.Completion{Content: goodResponse}, nil
	}
	p, gens := newTestPipeline(fastRetryConfig(), map[string]func(int) (*llm.Completion, error){
		TierBalanced: flaky,
		TierFast:     alwaysSucceed,
	})

	result, err := p.ExtractEntities(context.Background(), mediumText, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Metadata.Strategy != TierBalanced {
		t.Errorf("strategy = %s, want balanced after retries", result.Metadata.Strategy)
	}
	if gens[TierBalanced].callCount() != 3 {
		t.Errorf("balanced calls = %d, want 3", gens[TierBalanced].callCount())
	}
}

func TestPipelinePermanentErrorSkipsRetries(t *testing.T) {
	p, gens := newTestPipeline(fastRetryConfig(), map[string]func(int) (*llm.Completion, error){
		TierBalanced: alwaysFail(http.StatusUnauthorized),
		TierFast:     alwaysSucceed,
	})

	result, err := p.ExtractEntities(context.Background(), mediumText, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Metadata.Strategy != TierFast {
		t.Errorf("strategy = %s, want fallback to fast", result.Metadata.Strategy)
	}
	if gens[TierBalanced].callCount() != 1 {
		t.Errorf("auth failure retried: %d calls", gens[TierBalanced].callCount())
	}
}

func TestPipelineDegradesToBasic(t *testing.T) {
	p, _ := newTestPipeline(fastRetryConfig(), map[string]func(int) (*llm.Completion, error){
		TierBalanced: alwaysFail(http.StatusUnauthorized),
		TierFast:     alwaysFail(http.StatusUnauthorized),
	})

	result, err := p.ExtractEntities(context.Background(), mediumText, Options{})
	if err != nil {
		t.Fatalf("basic degradation must not error: %v", err)
	}
	if !result.Metadata.IsBasic || !result.Metadata.IsFallback {
		t.Errorf("degraded result not flagged: %+v", result.Metadata)
	}
	if len(result.Entities["people"]) == 0 {
		t.Error("basic sweep should still find the proper noun")
	}
}

func TestPipelineDisableBasicSurfacesExhaustion(t *testing.T) {
	cfg := fastRetryConfig()
	cfg.DisableBasic = true
	p, _ := newTestPipeline(cfg, map[string]func(int) (*llm.Completion, error){
		TierBalanced: alwaysFail(http.StatusUnauthorized),
		TierFast:     alwaysFail(http.StatusUnauthorized),
	})

	_, err := p.ExtractEntities(context.Background(), mediumText, Options{})
	var exhausted *AllStrategiesFailedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected AllStrategiesFailedError, got %v", err)
	}
	if len(exhausted.Attempts) != 2 || exhausted.Attempts[0] != TierBalanced || exhausted.Attempts[1] != TierFast {
		t.Errorf("attempts = %v", exhausted.Attempts)
	}
}

func TestPipelineCostCeilingIsFatal(t *testing.T) {
	cfg := fastRetryConfig()
	cfg.DailyCostLimit = 0.01
	p, _ := newTestPipeline(cfg, map[string]func(int) (*llm.Completion, error){
		TierBalanced: alwaysSucceed,
		TierFast:     alwaysSucceed,
	})
	p.Meter().Charge(0.01)

	result, err := p.ExtractEntities(context.Background(), mediumText, Options{})
	var limitErr *CostLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected CostLimitError, got %v", err)
	}
	if result != nil {
		t.Error("tripped ceiling must not degrade to basic")
	}
}

func TestPipelineCostCeilingTrippedMidCallIsFatal(t *testing.T) {
	// One tier with a tiny context budget: the document splits into
	// chunks, chunk 1 charges past the daily limit, and chunk 2's
	// pre-call check trips. That must surface as CostLimitError, not
	// fall through to basic extraction.
	tiers := &TierTable{
		Tiers: map[string]Tier{
			TierFast: {
				Name:              TierFast,
				Provider:          "openai",
				Model:             "gpt-4o-mini",
				MaxTokens:         256,
				MaxTime:           time.Second,
				DefaultConfidence: 0.5,
				MinConfidence:     0.4,
				ContextBudget:     40,
			},
		},
		Fallback: []string{TierFast},
	}
	cfg := fastRetryConfig()
	cfg.DailyCostLimit = 0.01
	cfg.ChunkOverlap = 0
	factory := func(tier Tier) (llm.TextGenerator, error) {
		return &stubGenerator{provider: tier.Provider, model: tier.Model, respond: func(int) (*llm.Completion, error) {
			// 100k prompt tokens at gpt-4o-mini rates is $0.10, well
			// past the $0.01 daily limit.
			return &llm.Completion{Content: goodResponse, Usage: llm.Usage{PromptTokens: 100000}}, nil
		}}, nil
	}
	p := NewPipeline(tiers, schema.DefaultLibrary(), NewRegistry(0.7), factory, nil, cfg)

	text := "permit review notes. permit review notes. permit review notes."
	result, err := p.ExtractEntities(context.Background(), text, Options{Urgent: true})
	var limitErr *CostLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected CostLimitError, got %v", err)
	}
	if result != nil {
		t.Errorf("mid-call ceiling trip must not degrade to basic: %+v", result.Metadata)
	}
}

func TestPipelineEmptyInput(t *testing.T) {
	p, _ := newTestPipeline(fastRetryConfig(), nil)
	if _, err := p.ExtractEntities(context.Background(), "   \n ", Options{}); err == nil {
		t.Error("empty input must error")
	}
}

func TestPipelinePermitApprovalMessage(t *testing.T) {
	const message = "Hey Mike, permits approved! Foundation work starts Monday. Budget is $25,000."
	const response = `{
		"entities": {
			"people": [{"name": "Mike", "confidence": 0.95}],
			"costs": [{"name": "project budget", "attributes": {"amount": 25000, "currency": "USD", "cost_type": "budget"}, "confidence": 0.9}],
			"timeline": [{"description": "Foundation work starts Monday", "attributes": {"date": "Monday"}, "confidence": 0.85}]
		},
		"summary": "Permits approved; foundation work starts Monday."
	}`
	p, _ := newTestPipeline(fastRetryConfig(), map[string]func(int) (*llm.Completion, error){
		TierAccurate: func(int) (*llm.Completion, error) {
			return &llm.Completion{Content: response}, nil
		},
		TierFast: alwaysSucceed,
	})

	result, err := p.ExtractEntities(context.Background(), message, Options{ForceHighAccuracy: true})
	if err != nil {
		t.Fatal(err)
	}
	if result.Metadata.Strategy != TierAccurate {
		t.Errorf("strategy = %s, want accurate", result.Metadata.Strategy)
	}
	people := result.Entities["people"]
	if len(people) == 0 || people[0].Name != "Mike" {
		t.Errorf("people = %+v", people)
	}
	costs := result.Entities["costs"]
	if len(costs) != 1 {
		t.Fatalf("costs = %+v", costs)
	}
	if got := costs[0].Attributes["amount"]; got != float64(25000) {
		t.Errorf("amount = %v (%T), want 25000", got, got)
	}
	timeline := result.Entities["timeline"]
	if len(timeline) != 1 || !strings.Contains(timeline[0].Description, "Monday") {
		t.Errorf("timeline = %+v", timeline)
	}
	if result.Metadata.Confidence <= 0 {
		t.Errorf("confidence = %v, want > 0", result.Metadata.Confidence)
	}
}

func TestPipelineResolvesTimelineDates(t *testing.T) {
	response := `{
		"entities": {"timeline": [{"description": "pour tomorrow", "attributes": {"date": "tomorrow"}, "confidence": 0.9}]},
		"summary": "schedule note"
	}`
	p, _ := newTestPipeline(fastRetryConfig(), map[string]func(int) (*llm.Completion, error){
		TierBalanced: func(int) (*llm.Completion, error) {
			return &llm.Completion{Content: response}, nil
		},
		TierFast: alwaysSucceed,
	})

	receivedAt := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	result, err := p.ExtractEntities(context.Background(), mediumText, Options{ReceivedAt: receivedAt})
	if err != nil {
		t.Fatal(err)
	}
	timeline := result.Entities["timeline"]
	if len(timeline) != 1 {
		t.Fatalf("timeline = %+v", timeline)
	}
	if got := timeline[0].Attributes["resolved_date"]; got != "2025-06-03" {
		t.Errorf("resolved_date = %v, want 2025-06-03", got)
	}
}
