// cmd/gristd is the ingest daemon: it watches an inbox directory for
// message files, extracts entities from each as it arrives, and runs
// periodic merge scans plus the midnight cost-meter rollover.
//
// Startup sequence:
//  1. Load configuration from environment variables.
//  2. Open the storage backend and attach the relationship registry.
//  3. Build the extraction pipeline and merge engine.
//  4. Start the inbox watcher and the job scheduler.
//  5. Block until SIGINT or SIGTERM, then shut down in reverse order.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mgraessle/grist/internal/cli"
	"github.com/mgraessle/grist/internal/config"
	"github.com/mgraessle/grist/internal/extract"
	"github.com/mgraessle/grist/internal/ingest"
	"github.com/mgraessle/grist/internal/llm"
	"github.com/mgraessle/grist/internal/merge"
	"github.com/mgraessle/grist/internal/notify"
	"github.com/mgraessle/grist/internal/schedule"
	"github.com/mgraessle/grist/internal/schema"
	"github.com/mgraessle/grist/pkg/types"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("gristd: %v", err)
	}

	if cfg.Daemon.LogFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.Daemon.LogFile,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, err := cli.OpenStores(cfg.Storage)
	if err != nil {
		log.Fatalf("gristd: open storage: %v", err)
	}
	defer func() { _ = stores.Close() }()

	pipeline, err := buildPipeline(ctx, cfg, stores)
	if err != nil {
		log.Fatalf("gristd: %v", err)
	}
	engine := merge.NewEngine(merge.Config{
		SuggestThreshold: cfg.Merge.SuggestThreshold,
		AutoThreshold:    cfg.Merge.AutoThreshold,
	}, stores.Decided, stores.History)
	notifier := notify.NewEventWriter(cfg.Storage.DataPath)

	watcher := ingest.NewInboxWatcher(cfg.Daemon.InboxPath, func(msg ingest.Message) {
		result, err := pipeline.ExtractEntities(ctx, msg.Text, extract.Options{
			CommunicationType: msg.CommunicationType,
			Domain:            cfg.Extraction.Domain,
			ReceivedAt:        msg.ReceivedAt,
			ConversationID:    msg.ID,
		})
		if err != nil {
			log.Printf("gristd: extraction of %s failed: %v", msg.ID, err)
			return
		}
		if _, err := stores.Entities.StoreResult(ctx, msg.ID, result); err != nil {
			log.Printf("gristd: store %s failed: %v", msg.ID, err)
			return
		}
		_ = notifier.Notify(notify.EventExtractionComplete, msg.ID)
		log.Printf("gristd: extracted %d entities from %s (strategy=%s cost=$%.4f)",
			result.EntityCount(), msg.ID, result.Metadata.Strategy, result.Metadata.Cost)
	})
	if err := watcher.Start(); err != nil {
		log.Fatalf("gristd: inbox watcher: %v", err)
	}
	log.Printf("gristd: watching inbox %s", cfg.Daemon.InboxPath)

	scheduler := schedule.New()
	if err := scheduler.AddJob("merge-scan", cfg.Daemon.ScanCron, func() error {
		return runMergeScan(ctx, stores, engine, notifier)
	}); err != nil {
		log.Fatalf("gristd: %v", err)
	}
	if err := scheduler.AddJob("cost-rollover", "0 0 * * *", func() error {
		pipeline.Meter().Rollover()
		return nil
	}); err != nil {
		log.Fatalf("gristd: %v", err)
	}
	scheduler.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Printf("gristd: received %v, shutting down", s)

	cancel()
	watcher.Stop()
	scheduler.Stop()
}

// buildPipeline wires the schema library, registry, tier ladder, and
// provider factory into an extraction pipeline.
func buildPipeline(ctx context.Context, cfg *config.Config, stores *cli.Stores) (*extract.Pipeline, error) {
	registry := extract.NewRegistry(cfg.Extraction.RelationshipMinConfidence)
	schemas := schema.DefaultLibrary()
	if err := registry.Attach(ctx, stores.Registry); err != nil {
		return nil, err
	}

	tiers := extract.DefaultTierTable()
	if cfg.LLM.TierTablePath != "" {
		loaded, err := extract.LoadTierTable(cfg.LLM.TierTablePath)
		if err != nil {
			return nil, err
		}
		tiers = loaded
	}
	rates := llm.DefaultRateTable()
	if cfg.LLM.RateTablePath != "" {
		loaded, err := llm.LoadRateTable(cfg.LLM.RateTablePath)
		if err != nil {
			return nil, err
		}
		rates = loaded
	}

	factory := func(t extract.Tier) (llm.TextGenerator, error) {
		pc := t.ProviderConfig(apiKeyFor(cfg, t.Provider))
		if pc.BaseURL == "" && (t.Provider == "ollama" || t.Provider == "") {
			pc.BaseURL = cfg.LLM.OllamaURL
		}
		return llm.NewTextGenerator(pc)
	}

	return extract.NewPipeline(tiers, schemas, registry, factory, rates, extract.PipelineConfig{
		DailyCostLimit:            cfg.Extraction.DailyCostLimit,
		RelationshipMinConfidence: cfg.Extraction.RelationshipMinConfidence,
		MaxRetries:                cfg.Extraction.MaxRetries,
		RetryBackoff:              cfg.Extraction.RetryBackoff,
		DisableBasic:              cfg.Extraction.DisableBasic,
	}), nil
}

func apiKeyFor(cfg *config.Config, provider string) string {
	switch provider {
	case "openai":
		return cfg.LLM.OpenAIAPIKey
	case "anthropic":
		return cfg.LLM.AnthropicAPIKey
	}
	return ""
}

// runMergeScan performs the unattended portion of a merge pass and
// announces what it did.
func runMergeScan(ctx context.Context, stores *cli.Stores, engine *merge.Engine, notifier *notify.EventWriter) error {
	records, err := stores.Entities.ListAll(ctx)
	if err != nil {
		return err
	}
	entities := make([]*types.Entity, 0, len(records))
	for i := range records {
		e := records[i].Entity
		entities = append(entities, &e)
	}

	outcome, err := engine.PerformAutoMerges(entities)
	if err != nil {
		return err
	}
	for _, rec := range outcome.Merges {
		result := rec.Result
		if err := stores.Entities.Update(ctx, &result); err != nil {
			return err
		}
		if err := stores.Entities.Delete(ctx, rec.SecondaryBefore.ID); err != nil {
			return err
		}
		_ = notifier.Notify(notify.EventMergePerformed, rec.Result.ID)
	}
	for _, c := range outcome.Suggestions {
		_ = notifier.Notify(notify.EventMergeSuggested, c.Primary.ID)
	}
	log.Printf("gristd: merge scan: %d merged, %d suggested", len(outcome.Merges), len(outcome.Suggestions))
	return nil
}
