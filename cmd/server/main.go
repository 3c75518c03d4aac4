// Package main is the entry point for the aiengine server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quillforge/aiengine/internal/config"
	"github.com/quillforge/aiengine/internal/handler"
	"github.com/quillforge/aiengine/internal/metrics"
	"github.com/quillforge/aiengine/internal/orchestrator"
	"github.com/quillforge/aiengine/internal/registry"
	"github.com/quillforge/aiengine/internal/security"
	"github.com/quillforge/aiengine/internal/store"
	"github.com/quillforge/aiengine/internal/ui"
	"github.com/quillforge/aiengine/internal/usage"
)

func main() {
	ui.PrintBanner()

	// =========================================================================
	// 1. Load configuration
	// =========================================================================
	configPath := os.Getenv("AIENGINE_CONFIG")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// =========================================================================
	// 2. Setup structured logger with secret redaction
	// =========================================================================
	logger := setupLogger(cfg.Logging)

	logger.Info("starting aiengine",
		slog.String("host", cfg.Server.Host),
		slog.Int("port", cfg.Server.Port),
		slog.Int("seed_keys", len(cfg.SeedKeys)),
	)

	// =========================================================================
	// 3. Restore registry state and wire persistence
	// =========================================================================
	fileStore := store.NewFileStore(cfg.Engine.StatePath, logger)

	reg := registry.New(
		registry.WithLogger(logger),
		registry.WithStore(fileStore),
	)

	if state, ok, err := fileStore.Load(); err != nil {
		logger.Error("failed to load persisted state", slog.String("error", err.Error()))
	} else if ok {
		reg.Import(state)
	}

	if order := cfg.ProviderOrder(); len(order) > 0 {
		reg.SetOrder(order)
	}

	// Seed keys from the environment; validation runs in the background so
	// startup never blocks on vendor probes.
	for _, seed := range cfg.SeedKeys {
		reg.SetKey(seed.Provider, seed.Secret, seed.Label)
	}
	if cfg.Engine.AutoEnable && len(cfg.SeedKeys) > 0 {
		go validateSeedKeys(reg, cfg.SeedKeys, logger)
	}

	// =========================================================================
	// 4. Build the failover engine with metrics
	// =========================================================================
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	engineMetrics := metrics.New(promRegistry)

	engine := orchestrator.New(reg,
		orchestrator.WithAttemptTimeout(cfg.AttemptTimeout()),
		orchestrator.WithLogger(logger),
		orchestrator.WithMetrics(engineMetrics),
	)

	// =========================================================================
	// 5. Setup Gin router with middleware
	// =========================================================================
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(handler.RecoveryMiddleware(logger))
	router.Use(handler.CORSMiddleware())
	router.Use(handler.RequestIDMiddleware())
	router.Use(handler.LoggingMiddleware(logger))

	if cfg.Cache.Enabled {
		cache := handler.NewResponseCache(
			handler.WithCacheTTL(time.Duration(cfg.Cache.TTLSeconds)*time.Second),
			handler.WithCacheMaxEntries(cfg.Cache.MaxEntries),
			handler.WithCacheLogger(logger),
		)
		router.Use(handler.CacheMiddleware(cache, logger))
	}

	api := handler.NewAPI(engine, reg,
		handler.WithLogger(logger),
		handler.WithUsageTracker(usage.NewTracker()),
	)
	api.Register(router)
	router.GET("/health", api.HandleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})))

	// =========================================================================
	// 6. Start HTTP server with graceful shutdown
	// =========================================================================
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	go func() {
		logger.Info("server starting", slog.String("address", addr))
		ui.PrintStartupInfo(cfg.Server.Host, cfg.Server.Port, reg.Statuses())

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// =========================================================================
	// 7. Graceful shutdown on SIGTERM/SIGINT
	// =========================================================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	ui.PrintShutdown()

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := fileStore.Save(reg.Export()); err != nil {
		logger.Error("failed to persist state on shutdown", slog.String("error", err.Error()))
	}

	logger.Info("server stopped gracefully")
	ui.PrintGoodbye()
}

// validateSeedKeys probes each environment-seeded key and enables its
// provider on success. Runs off the startup path.
func validateSeedKeys(reg *registry.Registry, seeds []config.SeedKey, logger *slog.Logger) {
	for _, seed := range seeds {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		result := reg.TestKey(ctx, seed.Provider, seed.Secret)
		cancel()

		if !result.Valid {
			logger.Warn("seed key failed validation",
				slog.String("provider", string(seed.Provider)),
				slog.String("label", seed.Label),
				slog.String("reason", result.Err),
			)
			continue
		}

		if reg.SetEnabled(seed.Provider, true) {
			ui.PrintEngineInfo(fmt.Sprintf("%s enabled with %d models", seed.Provider, len(result.Models)))
		}
	}
}

// setupLogger creates a structured logger with secret redaction from the
// logging config.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	out := os.Stdout
	if cfg.OutputPath != "" {
		if f, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			out = f
		}
	}

	opts := &slog.HandlerOptions{Level: level}

	var base slog.Handler
	if cfg.Format == "text" {
		base = slog.NewTextHandler(out, opts)
	} else {
		base = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(security.NewHandler(base))
	slog.SetDefault(logger)
	return logger
}
