// Package config loads pipeline configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Store settings
	DatabaseURL string

	// Gemini settings: ordered list of API keys (comma-separated in env)
	GeminiAPIKeys []string

	// Source settings
	FeedsConfigPath string
	MirrorTimeout   time.Duration
	RequestTimeout  time.Duration

	// Relevance gates
	LookbackDays int
	FloorDate    time.Time

	// Clustering
	WindowHours         int
	SimilarityThreshold int

	// Deep scraping
	DeepScrapeMinChars int
	DeepScrapeMaxChars int

	// Summarization batching and pacing
	SummaryBatchSize int
	MaxProviderCalls int // 0 = unlimited
	CallDelay        time.Duration
	CallJitter       time.Duration
	BatchCooldown    time.Duration

	// Processed-URL cache
	URLCachePath     string
	URLCacheTTLHours int

	// App settings
	Debug bool
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		FeedsConfigPath:     "configs/feeds.yaml",
		MirrorTimeout:       5 * time.Second,
		RequestTimeout:      15 * time.Second,
		LookbackDays:        10,
		WindowHours:         72,
		SimilarityThreshold: 75,
		DeepScrapeMinChars:  500,
		DeepScrapeMaxChars:  4000,
		SummaryBatchSize:    3,
		CallDelay:           2 * time.Second,
		CallJitter:          3 * time.Second,
		BatchCooldown:       10 * time.Second,
		URLCachePath:        "processed_urls.json",
		URLCacheTTLHours:    14 * 24,
	}

	// Load from environment
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	for _, k := range strings.Split(os.Getenv("GEMINI_API_KEY"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			cfg.GeminiAPIKeys = append(cfg.GeminiAPIKeys, k)
		}
	}

	cfg.FeedsConfigPath = getEnvOrDefault("FEEDS_CONFIG_PATH", cfg.FeedsConfigPath)
	cfg.URLCachePath = getEnvOrDefault("URL_CACHE_PATH", cfg.URLCachePath)
	cfg.URLCacheTTLHours = getEnvIntOrDefault("URL_CACHE_TTL_HOURS", cfg.URLCacheTTLHours)
	cfg.LookbackDays = getEnvIntOrDefault("INGEST_LOOKBACK_DAYS", cfg.LookbackDays)
	cfg.WindowHours = getEnvIntOrDefault("CLUSTER_WINDOW_HOURS", cfg.WindowHours)
	cfg.SimilarityThreshold = getEnvIntOrDefault("SIMILARITY_THRESHOLD", cfg.SimilarityThreshold)
	cfg.SummaryBatchSize = getEnvIntOrDefault("SUMMARY_BATCH_SIZE", cfg.SummaryBatchSize)
	cfg.MaxProviderCalls = getEnvIntOrDefault("MAX_PROVIDER_CALLS", cfg.MaxProviderCalls)
	cfg.DeepScrapeMinChars = getEnvIntOrDefault("DEEP_SCRAPE_MIN_CHARS", cfg.DeepScrapeMinChars)
	cfg.DeepScrapeMaxChars = getEnvIntOrDefault("DEEP_SCRAPE_MAX_CHARS", cfg.DeepScrapeMaxChars)

	floor := getEnvOrDefault("INGEST_FLOOR_DATE", "2025-01-01")
	parsed, err := time.Parse("2006-01-02", floor)
	if err != nil {
		return nil, fmt.Errorf("invalid INGEST_FLOOR_DATE %q: %w", floor, err)
	}
	cfg.FloorDate = parsed

	if v := os.Getenv("BATCH_COOLDOWN_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 0 {
			cfg.BatchCooldown = time.Duration(val) * time.Second
		}
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// Validate fails fast before any network activity happens. A missing store
// credential aborts the run; missing Gemini keys only degrade summaries.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.SummaryBatchSize <= 0 {
		return fmt.Errorf("SUMMARY_BATCH_SIZE must be positive")
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 100 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in (0,100]")
	}
	return nil
}

// Window returns the clustering lookback as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowHours) * time.Hour
}

// Lookback returns the relevance recency gate as a duration.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.LookbackDays) * 24 * time.Hour
}
