package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/pth-in/cprn/internal/config"
	"github.com/pth-in/cprn/internal/gemini"
	"github.com/pth-in/cprn/internal/logger"
	"github.com/pth-in/cprn/internal/metrics"
	"github.com/pth-in/cprn/internal/pipeline"
	"github.com/pth-in/cprn/internal/ratelimit"
	"github.com/pth-in/cprn/internal/retry"
	"github.com/pth-in/cprn/internal/storage"
)

func main() {
	// Load .env file if present; production runs configure through the
	// environment directly.
	_ = godotenv.Load()

	logger.Init()
	logger.Info("starting persecution report ingestion")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	if len(cfg.GeminiAPIKeys) == 0 {
		logger.Warn("no GEMINI_API_KEY set, summaries will be extractive")
	}

	// Optional HTTP monitoring endpoints
	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		go startMonitoringServer()
	}

	ctx := context.Background()
	start := time.Now()

	var store *storage.Store
	err = retry.WithRetry(ctx, retry.Config{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true}, func() error {
		var connErr error
		store, connErr = storage.New(ctx, cfg.DatabaseURL)
		return connErr
	})
	if err != nil {
		logger.Error("database connection failed", "error", err)
		metrics.Global.SetError(err.Error())
		os.Exit(1)
	}
	defer store.Close()

	urls := storage.NewProcessedURLCache(cfg.URLCachePath, cfg.URLCacheTTLHours)
	urls.Load()
	defer urls.Save()

	pacer := ratelimit.NewPacer(cfg.CallDelay, cfg.CallJitter, cfg.BatchCooldown, cfg.MaxProviderCalls)
	summarizer := gemini.NewManager(cfg.GeminiAPIKeys, nil, pacer)

	p := pipeline.New(cfg, store, summarizer, urls)
	if err := p.Run(ctx); err != nil {
		logger.Error("ingestion run failed", "error", err)
		metrics.Global.SetError(err.Error())
		os.Exit(1)
	}

	metrics.Global.RecordRun(time.Since(start))
	logger.Info("done", "duration", time.Since(start).Round(time.Millisecond))
}

func startMonitoringServer() {
	port := os.Getenv("MONITORING_PORT")
	if port == "" {
		port = "8080"
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := metrics.Global.GetStats()
		w.Header().Set("Content-Type", "application/json")

		if stats["is_healthy"].(bool) {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     stats["is_healthy"],
			"last_run":   stats["last_run_time"],
			"last_error": stats["last_error"],
		})
	})

	http.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(metrics.Global.GetStats())
	})

	logger.Info("monitoring server listening", "port", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		logger.Error("monitoring server failed", "error", err)
	}
}
