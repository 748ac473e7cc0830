// Package cli implements the grist command tree: extraction, batch
// ingestion, duplicate scanning, interactive merge review, undo, registry
// administration, and database maintenance.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mgraessle/grist/internal/config"
	"github.com/mgraessle/grist/internal/extract"
	"github.com/mgraessle/grist/internal/llm"
	"github.com/mgraessle/grist/internal/merge"
	"github.com/mgraessle/grist/internal/notify"
	"github.com/mgraessle/grist/internal/schema"
	"github.com/mgraessle/grist/internal/storage"
	"github.com/mgraessle/grist/internal/storage/postgres"
	"github.com/mgraessle/grist/internal/storage/sqlite"
)

// App carries the flag values and lazily-built dependencies shared by every
// command. One App lives for one CLI invocation.
type App struct {
	cfg *config.Config

	// Flag overrides. Empty means "use the config value".
	dataPath string
	domain   string
	format   string
	packPath string

	stores   *Stores
	pipeline *extract.Pipeline
	engine   *merge.Engine
}

// Stores bundles the persistence views one backend provides.
type Stores struct {
	Entities storage.EntityStore
	Registry extract.RegistryStore
	Decided  merge.DecidedStore
	History  merge.HistoryStore

	// SQLite is non-nil only for the sqlite engine; the backup command
	// needs the concrete store.
	SQLite *sqlite.Store

	closer io.Closer
}

// Close releases the backend connection.
func (s *Stores) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	app := &App{}

	root := &cobra.Command{
		Use:   "grist",
		Short: "Extract and reconcile entities from project communications",
		Long: `Grist extracts people, costs, timelines, decisions and their
relationships from project communications (SMS, email, documents) using a
tiered LLM strategy, and reconciles duplicate entities across
conversations with reviewable, reversible merges.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			app.cfg = config.Load()
			if app.dataPath != "" {
				app.cfg.Storage.DataPath = app.dataPath
			}
			if app.domain != "" {
				app.cfg.Extraction.Domain = app.domain
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.stores != nil {
				_ = app.stores.Close()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.dataPath, "data", "", "data directory (default ./data, env GRIST_DATA_PATH)")
	flags.StringVar(&app.domain, "domain", "", "extraction domain (default construction, env GRIST_DOMAIN)")
	flags.StringVarP(&app.format, "format", "f", "text", "output format: text or json")
	flags.StringVar(&app.packPath, "pack", "", "domain pack YAML overlaying schemas and relationship types")

	root.AddCommand(
		newExtractCmd(app),
		newBatchCmd(app),
		newScanCmd(app),
		newAutoMergeCmd(app),
		newReviewCmd(app),
		newUndoCmd(app),
		newHistoryCmd(app),
		newRegistryCmd(app),
		newStatsCmd(app),
		newBackupCmd(app),
		newWatchCmd(app),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// Stores opens (once) the configured storage backend.
func (a *App) Stores() (*Stores, error) {
	if a.stores != nil {
		return a.stores, nil
	}
	s, err := OpenStores(a.cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.stores = s
	return s, nil
}

// OpenStores connects the configured backend and exposes its views.
func OpenStores(cfg config.StorageConfig) (*Stores, error) {
	switch cfg.Engine {
	case "postgres":
		store, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Entities: store,
			Registry: store,
			Decided:  store,
			History:  store.History(),
			closer:   store,
		}, nil
	default:
		store, err := sqlite.Open(filepath.Join(cfg.DataPath, "grist.db"))
		if err != nil {
			return nil, err
		}
		return &Stores{
			Entities: store,
			Registry: store,
			Decided:  store,
			History:  store.History(),
			SQLite:   store,
			closer:   store,
		}, nil
	}
}

// Pipeline builds (once) the extraction pipeline: schema library plus
// optional domain pack, relationship registry attached to the backend, the
// tier ladder, and the provider factory.
func (a *App) Pipeline(ctx context.Context) (*extract.Pipeline, error) {
	if a.pipeline != nil {
		return a.pipeline, nil
	}

	stores, err := a.Stores()
	if err != nil {
		return nil, err
	}

	registry := extract.NewRegistry(a.cfg.Extraction.RelationshipMinConfidence)
	schemas := schema.DefaultLibrary()
	if a.packPath != "" {
		pack, err := schema.LoadDomainPack(a.packPath)
		if err != nil {
			return nil, err
		}
		registry.AddSystemTypes(pack.Apply(schemas))
	}
	if err := registry.Attach(ctx, stores.Registry); err != nil {
		return nil, err
	}

	tiers, err := a.tierTable()
	if err != nil {
		return nil, err
	}
	rates, err := a.rateTable()
	if err != nil {
		return nil, err
	}

	a.pipeline = extract.NewPipeline(tiers, schemas, registry, a.generatorFactory(), rates, extract.PipelineConfig{
		DailyCostLimit:            a.cfg.Extraction.DailyCostLimit,
		RelationshipMinConfidence: a.cfg.Extraction.RelationshipMinConfidence,
		MaxRetries:                a.cfg.Extraction.MaxRetries,
		RetryBackoff:              a.cfg.Extraction.RetryBackoff,
		DisableBasic:              a.cfg.Extraction.DisableBasic,
	})
	return a.pipeline, nil
}

func (a *App) tierTable() (*extract.TierTable, error) {
	if a.cfg.LLM.TierTablePath == "" {
		return extract.DefaultTierTable(), nil
	}
	return extract.LoadTierTable(a.cfg.LLM.TierTablePath)
}

func (a *App) rateTable() (*llm.RateTable, error) {
	if a.cfg.LLM.RateTablePath == "" {
		return llm.DefaultRateTable(), nil
	}
	return llm.LoadRateTable(a.cfg.LLM.RateTablePath)
}

// generatorFactory maps a tier to a live provider client, filling in
// credentials and the Ollama endpoint from the environment config.
func (a *App) generatorFactory() extract.GeneratorFactory {
	cfg := a.cfg
	return func(t extract.Tier) (llm.TextGenerator, error) {
		pc := t.ProviderConfig(apiKeyFor(cfg, t.Provider))
		if pc.BaseURL == "" && (t.Provider == "ollama" || t.Provider == "") {
			pc.BaseURL = cfg.LLM.OllamaURL
		}
		return llm.NewTextGenerator(pc)
	}
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

// Engine builds (once) the merge engine over the backend's decided-pairs
// set and merge history.
func (a *App) Engine() (*merge.Engine, error) {
	if a.engine != nil {
		return a.engine, nil
	}
	stores, err := a.Stores()
	if err != nil {
		return nil, err
	}
	a.engine = merge.NewEngine(merge.Config{
		SuggestThreshold: a.cfg.Merge.SuggestThreshold,
		AutoThreshold:    a.cfg.Merge.AutoThreshold,
	}, stores.Decided, stores.History)
	return a.engine, nil
}

// Notifier returns the event writer for the shared data directory.
func (a *App) Notifier() *notify.EventWriter {
	return notify.NewEventWriter(a.cfg.Storage.DataPath)
}
