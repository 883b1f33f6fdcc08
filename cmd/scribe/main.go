package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MikeSquared-Agency/scribe/internal/api"
	"github.com/MikeSquared-Agency/scribe/internal/config"
	"github.com/MikeSquared-Agency/scribe/internal/gaps"
	"github.com/MikeSquared-Agency/scribe/internal/hermes"
	"github.com/MikeSquared-Agency/scribe/internal/llm/provider"
	"github.com/MikeSquared-Agency/scribe/internal/mapping"
	"github.com/MikeSquared-Agency/scribe/internal/processor"
	"github.com/MikeSquared-Agency/scribe/internal/slack"
	"github.com/MikeSquared-Agency/scribe/internal/store"
)

var version = "dev"

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("scribe starting", "port", cfg.Port, "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Language model
	llmClient, err := provider.New(cfg)
	if err != nil {
		slog.Error("failed to create LLM client", "error", err)
		os.Exit(1)
	}
	slog.Info("llm client ready", "provider", cfg.LLMProvider, "model", cfg.Model)

	// Engines
	detector := gaps.New(llmClient, cfg.GapConfig(), slog.Default())
	engine := mapping.New(llmClient, detector, cfg.MappingConfig(), slog.Default())

	// Database (optional: without it results are only published)
	var db *store.Store
	if cfg.DatabaseURL != "" {
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set, running without persistence")
	}

	// NATS/Hermes
	hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer hermesClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Processor: transcript events in, note events out
	var procStore processor.Store
	var apiStore api.Store
	if db != nil {
		procStore = db
		apiStore = db
	}

	// Slack review notices (optional)
	var notifier processor.Notifier
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		notifier = slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	} else {
		slog.Warn("slack not configured, review notices go to NATS only")
	}

	proc := processor.New(engine, procStore, hermesClient, notifier, slog.Default())

	if err := hermesClient.Subscribe(hermes.SubjectSessionTranscribed, proc.HandleTranscribed); err != nil {
		slog.Error("failed to subscribe to transcript events", "error", err)
		os.Exit(1)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, engine, apiStore, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce registration
	if err := hermesClient.Publish(hermes.SubjectAgentRegistered, hermes.Registration(version)); err != nil {
		slog.Warn("failed to publish registration", "error", err)
	}

	if !engine.CheckHealth(ctx) {
		slog.Warn("llm health check failed, requests will fail until the model is reachable", "model", cfg.Model)
	}

	slog.Info("scribe ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("scribe stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
