package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"ai-interview-engine/internal/config"
	"ai-interview-engine/internal/events"
	ihttp "ai-interview-engine/internal/http"
	"ai-interview-engine/internal/observability"
	"ai-interview-engine/internal/observability/logging"
	"ai-interview-engine/internal/realtime"
	"ai-interview-engine/internal/realtime/upstream"
	"ai-interview-engine/internal/service/analysis"
	"ai-interview-engine/internal/service/boundary"
	"ai-interview-engine/internal/service/completion"
	"ai-interview-engine/internal/service/completion/mock"
	"ai-interview-engine/internal/service/completion/openai"
	"ai-interview-engine/internal/service/interview"
	"ai-interview-engine/internal/service/memory"
	"ai-interview-engine/internal/service/progression"
	"ai-interview-engine/internal/service/question"
	"ai-interview-engine/internal/store"
)

func main() {
	// Optional local env file; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})
	logger := logging.Logger()

	repo, err := openRepository(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open repository")
	}
	defer repo.Close()

	// Kafka publisher with separate topics for usage accounting and
	// transcript audit events
	publisher := events.New(&events.Config{
		Enabled:         cfg.Kafka.Enabled,
		Brokers:         cfg.Kafka.Brokers,
		TopicUsage:      cfg.Kafka.TopicUsage,
		TopicTranscript: cfg.Kafka.TopicTranscript,
		Principal:       cfg.Kafka.Principal,
	})
	defer publisher.Close()

	provider := newProvider(cfg)
	detector := boundary.NewDetector(cfg.Interview.BoundaryConfidenceThreshold, logging.WithComponent(logger, "boundary"))
	controller := progression.NewController(progression.Thresholds{
		WarmupMinQuestions:     cfg.Interview.WarmupMinQuestions,
		WarmupMinAvgConfidence: cfg.Interview.WarmupMinAvgConfidence,
		StandardMinQuestions:   cfg.Interview.StandardMinQuestions,
		StandardMinAvgAccuracy: cfg.Interview.StandardMinAvgAccuracy,
	}, logging.WithComponent(logger, "progression"))
	orchestrator := interview.NewOrchestrator(
		repo,
		analysis.NewAnalyzer(provider, cfg.Provider.Timeout, logging.WithComponent(logger, "analysis")),
		detector,
		controller,
		question.NewGenerator(provider, cfg.Provider.Timeout, logging.WithComponent(logger, "question")),
		memory.NewCodec(cfg.Interview.MemoryKeepLastN, cfg.Interview.MemoryMaxBytes),
		publisher,
		logging.WithComponent(logger, "interview"),
	)

	registry := realtime.NewRegistry()
	realtimeLogger := logging.WithComponent(logger, "realtime")
	realtimeHandler := realtime.NewHandler(
		repo,
		realtime.NewSessionManager(cfg.Realtime, realtimeLogger),
		&upstream.Dialer{
			URL:    cfg.Realtime.UpstreamURL,
			APIKey: cfg.Realtime.APIKey,
			Model:  cfg.Realtime.Model,
		},
		detector,
		publisher,
		registry,
		nil, // auth is enforced by the platform gateway in front of this service
		realtimeLogger,
	)

	obsServer := observability.NewServer(":"+cfg.Service.ObservabilityPort, func() error {
		return nil
	})
	obsServer.Start()

	httpServer := &http.Server{
		Addr: ":" + cfg.Service.HTTPPort,
		Handler: ihttp.NewRouter(ihttp.Deps{
			Repo:         repo,
			Orchestrator: orchestrator,
			Realtime:     realtimeHandler,
			Logger:       logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Service.HTTPPort).Msg("Interview engine started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down")
	registry.CancelAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Observability server shutdown error")
	}
}

func openRepository(cfg *config.Configuration) (store.Repository, error) {
	switch cfg.Store.Driver {
	case "memory":
		return store.NewMemStore(), nil
	default:
		return store.NewSQLite(cfg.Store.Path)
	}
}

func newProvider(cfg *config.Configuration) completion.Provider {
	switch cfg.Provider.Mode {
	case "openai":
		return openai.New(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Model, cfg.Provider.Timeout)
	default:
		log.Info().Msg("Using mock completion provider")
		return mock.New()
	}
}
