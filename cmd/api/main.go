package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nyashahama/safeserve-backend/internal/ai"
	"github.com/nyashahama/safeserve-backend/internal/api"
	"github.com/nyashahama/safeserve-backend/internal/config"
	"github.com/nyashahama/safeserve-backend/internal/dashboard"
	"github.com/nyashahama/safeserve-backend/internal/gateway"
	"github.com/nyashahama/safeserve-backend/internal/metrics"
	"github.com/nyashahama/safeserve-backend/internal/resilience"
	"github.com/nyashahama/safeserve-backend/internal/session"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port, "provider", cfg.Provider)

	// ── AI ────────────────────────────────────────────────────────────────────
	// The configured provider is primary. With AI_FAILOVER on, the first other
	// provider that has a key takes over when the primary fails.
	gen := newGenerator(cfg, cfg.Provider)
	if secondary := cfg.Secondary(); secondary != "" {
		gen = ai.NewFailover(gen, newGenerator(cfg, secondary), logger)
		logger.Info("ai: failover enabled", "primary", cfg.Provider, "secondary", secondary)
	} else {
		logger.Info("ai: single provider", "provider", cfg.Provider)
	}

	// ── Resilience ────────────────────────────────────────────────────────────
	m := metrics.NewGateway()
	breaker := resilience.NewBreaker(cfg.QuotaCooldown, nil)
	exec := resilience.NewExecutor(resilience.RetryConfig{
		MaxAttempts:    cfg.MaxAttempts,
		InitialDelay:   cfg.InitialDelay,
		MaxDelay:       cfg.MaxDelay,
		MaxJitter:      cfg.MaxJitter,
		AttemptTimeout: cfg.AttemptTimeout,
	}, breaker, logger)

	// ── Gateway & consumers ───────────────────────────────────────────────────
	gw := gateway.New(gen, exec, cfg.RiskModel, m, logger)
	loader := dashboard.NewLoader(gw, cfg.RiskModel, logger)

	sessionCfg := session.DefaultConfig()
	sessionCfg.TTL = cfg.ChatSessionTTL
	sessionCfg.MaxSessions = cfg.MaxChatSessions
	registry := session.NewRegistry(gw, sessionCfg, m, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	// A request may wait out every attempt plus its back-off. The write
	// timeout sits slightly above it so chi can still write its 504.
	requestTimeout := cfg.RequestTimeout()
	handler := api.NewServer(gw, loader, registry, m, api.Config{
		Env:            cfg.Env,
		CORSOrigin:     cfg.CORSOrigin,
		RequestTimeout: requestTimeout,
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	// Root context cancelled by OS signal. Janitor and HTTP server both respect it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go registry.Start(ctx)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until either a signal arrives or the server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// Give in-flight HTTP requests up to 20 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete", "open_chat_sessions", registry.Len())
	return nil
}

// newGenerator builds the client for provider. config.Load has already
// checked that the primary has a key, and Secondary only names providers
// that do.
func newGenerator(cfg *config.Config, provider string) ai.Generator {
	switch provider {
	case config.ProviderAnthropic:
		return ai.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	case config.ProviderDeepSeek:
		return ai.NewDeepSeekClient(cfg.DeepSeekAPIKey, cfg.DeepSeekModel)
	default:
		return ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
}
