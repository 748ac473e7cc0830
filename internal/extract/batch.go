package extract

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mgraessle/grist/internal/ingest"
	"github.com/mgraessle/grist/pkg/types"
)

// BatchConfig tunes the batch extractor's scheduling policy.
type BatchConfig struct {
	// WindowSize is the number of messages extracted concurrently.
	// Default 4.
	WindowSize int

	// CoolingDelay is the pause between windows, respecting provider
	// rate limits. A scheduling policy, not a correctness requirement.
	CoolingDelay time.Duration
}

// DefaultBatchConfig returns the default scheduling policy.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		WindowSize:   4,
		CoolingDelay: 2 * time.Second,
	}
}

// BatchItem pairs one message with its extraction outcome. Err is only
// non-nil for the error classes ExtractEntities surfaces (cost ceiling,
// empty input); ordinary provider failures degrade into the result.
type BatchItem struct {
	Message ingest.Message
	Result  *types.ExtractionResult
	Err     error
}

// BatchExtractor processes windows of messages concurrently through one
// pipeline. Within a window, execution is unordered but results are
// collected in submission order; a window fully settles before the next
// starts, bounding concurrent load on the provider.
type BatchExtractor struct {
	pipeline *Pipeline
	cfg      BatchConfig
	limiter  *rate.Limiter
}

// NewBatchExtractor creates a batch extractor. The cooling delay is
// expressed as a rate limit of one window per delay.
func NewBatchExtractor(pipeline *Pipeline, cfg BatchConfig) *BatchExtractor {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultBatchConfig().WindowSize
	}
	limit := rate.Inf
	if cfg.CoolingDelay > 0 {
		limit = rate.Every(cfg.CoolingDelay)
	}
	return &BatchExtractor{
		pipeline: pipeline,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Run extracts every message and returns the items in submission order.
// A context cancellation stops scheduling new windows; items already in
// flight settle first.
func (b *BatchExtractor) Run(ctx context.Context, messages []ingest.Message) ([]BatchItem, error) {
	items := make([]BatchItem, len(messages))
	for i := range messages {
		items[i].Message = messages[i]
	}

	for start := 0; start < len(messages); start += b.cfg.WindowSize {
		if err := b.limiter.Wait(ctx); err != nil {
			return items[:start], err
		}

		end := start + b.cfg.WindowSize
		if end > len(messages) {
			end = len(messages)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				msg := messages[i]
				opts := Options{
					CommunicationType: msg.CommunicationType,
					ReceivedAt:        msg.ReceivedAt,
					ConversationID:    msg.ID,
				}
				result, err := b.pipeline.ExtractEntities(ctx, msg.Text, opts)
				if result != nil {
					// Batch provenance replaces the per-call tag on
					// every admitted relationship.
					for j := range result.Relationships {
						result.Relationships[j].Provenance = types.ProvenanceBatch
					}
				}
				items[i].Result = result
				items[i].Err = err
			}(i)
		}
		wg.Wait()

		log.Printf("extract: batch window %d-%d settled", start, end-1)
	}

	return items, nil
}
