// Kanuni - Procurement document risk assessment.
// Copyright (c) 2025 kanuni.ai
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kanuni-ai/kanuni/internal/analyzer"
	"github.com/kanuni-ai/kanuni/internal/api"
	"github.com/kanuni-ai/kanuni/internal/bus"
	"github.com/kanuni-ai/kanuni/internal/cache"
	"github.com/kanuni-ai/kanuni/internal/domain"
	"github.com/kanuni-ai/kanuni/internal/forensic"
	"github.com/kanuni-ai/kanuni/internal/opinion"
	"github.com/kanuni-ai/kanuni/internal/repository"
	"github.com/kanuni-ai/kanuni/internal/rules"
	"github.com/kanuni-ai/kanuni/internal/scoring"
	"github.com/kanuni-ai/kanuni/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("KANUNI_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting kanuni",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("KANUNI_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	// Optional audit-opinion generator
	if apiKey := os.Getenv("KANUNI_OPENAI_API_KEY"); apiKey != "" {
		cfg.Opinion.Enabled = true
		cfg.Opinion.APIKey = apiKey
		if model := os.Getenv("KANUNI_OPINION_MODEL"); model != "" {
			cfg.Opinion.Model = model
		}
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"opinions", cfg.Opinion.Enabled,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Tenants to serve (comma-separated)
	tenantIDs := parseTenants(os.Getenv("KANUNI_TENANTS"))

	// Initialize Custom Rule Engine
	customEngine, err := rules.NewCustomEngine()
	if err != nil {
		slog.Error("failed to initialize custom rule engine", "error", err)
		os.Exit(1)
	}

	// Load custom rules from database (configure via POST /rules API)
	if err := loadCustomRulesFromDatabase(ctx, repo, customEngine, tenantIDs); err != nil {
		slog.Error("failed to load custom rules", "error", err)
		os.Exit(1)
	}
	slog.Info("custom rule engine initialized", "rules_count", customEngine.RulesCount())

	// Initialize Analysis Pipeline
	evaluator := rules.NewEvaluator(rules.DefaultEvaluatorConfig(), forensic.DefaultConfig(), customEngine)
	scorer := scoring.NewScorer(scoring.DefaultConfig())
	pipeline := analyzer.New(evaluator, scorer)
	slog.Info("analysis pipeline initialized", "builtin_rules", len(rules.Registry()))

	// Initialize Opinion Generator
	opinions := opinion.New(cfg.Opinion)

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("KANUNI_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, repo, pipeline)

		workerCfg := worker.Config{
			TenantIDs: tenantIDs,
		}

		if err := asyncWorker.Start(workerCfg); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "tenant_count", len(tenantIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, pipeline, customEngine, opinions, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kanuni is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kanuni shutdown complete")
}

// parseTenants splits a comma-separated tenant list, dropping blanks.
func parseTenants(raw string) []string {
	if raw == "" {
		return nil
	}
	var tenants []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tenants = append(tenants, t)
		}
	}
	return tenants
}

// loadCustomRulesFromDatabase loads each configured tenant's custom
// rules into the engine. Rules are created via POST /rules - no
// hardcoded defaults beyond the compiled-in registry.
func loadCustomRulesFromDatabase(ctx context.Context, repo domain.Repository, engine *rules.CustomEngine, tenantIDs []string) error {
	total := 0
	for _, tenantID := range tenantIDs {
		dbRules, err := repo.ListCustomRules(ctx, tenantID)
		if err != nil {
			slog.Warn("failed to list custom rules", "tenant_id", tenantID, "error", err)
			continue
		}
		if err := engine.LoadRules(dbRules); err != nil {
			return err
		}
		total += len(dbRules)
	}

	if total == 0 {
		slog.Info("no custom rules in database - configure via POST /rules API")
	} else {
		slog.Info("loaded custom rules from database", "count", total)
	}
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               ⚖️  KANUNI                   ║")
	fmt.Println("  ║   Procurement Risk Assessment Engine      ║")
	fmt.Println("  ║     Every shilling accounted for.         ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /analyze           - Analyze a document")
	fmt.Println("    GET  /assessments/{id}  - Get assessment by ID")
	fmt.Println("    GET  /documents/{id}    - Get document by ID")
	fmt.Println("    GET  /rules             - List all rules")
	fmt.Println("    POST /rules             - Create a custom rule")
	fmt.Println("    POST /rules/reload      - Hot-reload rules from database")
	fmt.Println("    GET  /analytics         - Tenant analytics summary")
	fmt.Println("    GET  /audit             - Tenant audit trail")
	fmt.Println("    GET  /health            - Health check")
	fmt.Println()
}
