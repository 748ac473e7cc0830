// Package config loads settings from environment variables with the GRIST_
// prefix and provides defaults for every option. Tier and rate tables are
// YAML files referenced by path; everything else is flat env vars so the
// CLI and the daemon configure identically.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all settings for the grist CLI and daemon.
type Config struct {
	Storage    StorageConfig
	LLM        LLMConfig
	Extraction ExtractionConfig
	Merge      MergeConfig
	Daemon     DaemonConfig
}

// StorageConfig selects and locates the storage backend.
type StorageConfig struct {
	Engine      string // Storage engine: sqlite, postgres (default: sqlite)
	DataPath    string // Data directory for sqlite and the decided-pairs file (default: ./data)
	PostgresDSN string // Connection string when Engine is postgres
	BackupPath  string // Backup directory (default: ./backups)
}

// LLMConfig holds provider credentials and endpoints. Tier selection picks
// the provider per call; these settings supply the keys and base URLs.
type LLMConfig struct {
	OllamaURL            string // Ollama API URL (default: http://localhost:11434)
	OllamaEmbeddingModel string // Ollama embedding model (default: nomic-embed-text)
	OpenAIAPIKey         string
	AnthropicAPIKey      string
	TierTablePath        string // Optional YAML tier table overriding the built-in ladder
	RateTablePath        string // Optional YAML rate table overriding built-in pricing
}

// ExtractionConfig tunes the extraction pipeline.
type ExtractionConfig struct {
	Domain                    string        // Active domain pack (default: construction)
	DailyCostLimit            float64       // USD ceiling per day, 0 disables (default: 10)
	MaxRetries                int           // Extra attempts per tier (default: 2)
	RetryBackoff              time.Duration // Base linear backoff between retries (default: 1s)
	RelationshipMinConfidence float64       // Relationship admission threshold (default: 0.7)
	BatchWindowSize           int           // Concurrent extractions per batch window (default: 4)
	BatchCoolingDelay         time.Duration // Pause between batch windows (default: 2s)
	DisableBasic              bool          // Fail instead of degrading to the regex extractor
}

// MergeConfig tunes the duplicate scanner.
type MergeConfig struct {
	SuggestThreshold float64 // Minimum overall similarity to surface a pair (default: 0.6)
	AutoThreshold    float64 // Minimum merge confidence for unattended merges (default: 0.8)
}

// DaemonConfig configures the long-running ingest daemon.
type DaemonConfig struct {
	InboxPath string // Directory watched for message files (default: ./inbox)
	LogFile   string // Rotating log file; empty logs to stderr
	ScanCron  string // Cron spec for periodic merge scans (default: every 6 hours)
}

// Load builds the configuration from environment variables.
func Load() *Config {
	return &Config{
		Storage: StorageConfig{
			Engine:      getEnv("GRIST_STORAGE_ENGINE", "sqlite"),
			DataPath:    getEnv("GRIST_DATA_PATH", "./data"),
			PostgresDSN: getEnv("GRIST_POSTGRES_DSN", ""),
			BackupPath:  getEnv("GRIST_BACKUP_PATH", "./backups"),
		},
		LLM: LLMConfig{
			OllamaURL:            getEnv("GRIST_OLLAMA_URL", "http://localhost:11434"),
			OllamaEmbeddingModel: getEnv("GRIST_EMBEDDING_MODEL", "nomic-embed-text"),
			OpenAIAPIKey:         getEnv("GRIST_OPENAI_API_KEY", ""),
			AnthropicAPIKey:      getEnv("GRIST_ANTHROPIC_API_KEY", ""),
			TierTablePath:        getEnv("GRIST_TIER_TABLE", ""),
			RateTablePath:        getEnv("GRIST_RATE_TABLE", ""),
		},
		Extraction: ExtractionConfig{
			Domain:                    getEnv("GRIST_DOMAIN", "construction"),
			DailyCostLimit:            getEnvFloat("GRIST_DAILY_COST_LIMIT", 10.0),
			MaxRetries:                getEnvInt("GRIST_MAX_RETRIES", 2),
			RetryBackoff:              getEnvDuration("GRIST_RETRY_BACKOFF", time.Second),
			RelationshipMinConfidence: getEnvFloat("GRIST_RELATIONSHIP_MIN_CONFIDENCE", 0.7),
			BatchWindowSize:           getEnvInt("GRIST_BATCH_WINDOW", 4),
			BatchCoolingDelay:         getEnvDuration("GRIST_BATCH_COOLING", 2*time.Second),
			DisableBasic:              getEnvBool("GRIST_DISABLE_BASIC_EXTRACTOR", false),
		},
		Merge: MergeConfig{
			SuggestThreshold: getEnvFloat("GRIST_SUGGEST_THRESHOLD", 0.6),
			AutoThreshold:    getEnvFloat("GRIST_AUTO_THRESHOLD", 0.8),
		},
		Daemon: DaemonConfig{
			InboxPath: getEnv("GRIST_INBOX_PATH", "./inbox"),
			LogFile:   getEnv("GRIST_LOG_FILE", ""),
			ScanCron:  getEnv("GRIST_SCAN_CRON", "0 */6 * * *"),
		},
	}
}

// Validate checks for configurations that cannot work, not merely ones that
// are unusual. Threshold ordering matters: an auto threshold below the
// suggest threshold would auto-merge pairs never surfaced as candidates.
func (c *Config) Validate() error {
	switch c.Storage.Engine {
	case "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("config: GRIST_POSTGRES_DSN is required when GRIST_STORAGE_ENGINE=postgres")
		}
	default:
		return fmt.Errorf("config: unknown storage engine %q", c.Storage.Engine)
	}

	if c.Merge.SuggestThreshold < 0 || c.Merge.SuggestThreshold > 1 {
		return fmt.Errorf("config: suggest threshold %v out of range [0,1]", c.Merge.SuggestThreshold)
	}
	if c.Merge.AutoThreshold < 0 || c.Merge.AutoThreshold > 1 {
		return fmt.Errorf("config: auto threshold %v out of range [0,1]", c.Merge.AutoThreshold)
	}
	if c.Merge.AutoThreshold < c.Merge.SuggestThreshold {
		return fmt.Errorf("config: auto threshold %v below suggest threshold %v",
			c.Merge.AutoThreshold, c.Merge.SuggestThreshold)
	}

	if c.Extraction.RelationshipMinConfidence < 0 || c.Extraction.RelationshipMinConfidence > 1 {
		return fmt.Errorf("config: relationship confidence threshold %v out of range [0,1]",
			c.Extraction.RelationshipMinConfidence)
	}
	if c.Extraction.DailyCostLimit < 0 {
		return fmt.Errorf("config: daily cost limit cannot be negative")
	}
	if c.Extraction.BatchWindowSize < 1 {
		return fmt.Errorf("config: batch window size must be at least 1")
	}

	return nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable. Unparseable values
// fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable. Unparseable values
// fall back to the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable. It recognizes
// "true", "1", "yes" and "false", "0", "no" (case-insensitive).
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable in Go duration
// syntax ("30s", "2m"). Unparseable values fall back to the default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
