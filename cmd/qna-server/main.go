package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/carlosalonso99-tajamar/qna-conversational/internal/api"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/config"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/health"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/language"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/metrics"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/orchestrator"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/retry"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/routing"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/session"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	// Project catalog (routing keywords + example questions)
	catalog, err := config.LoadCatalog(cfg.ProjectsFile)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.ProjectsFile).Msg("failed to load project catalog")
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("addr", cfg.ListenAddr).
		Str("endpoint", cfg.ServiceEndpoint).
		Strs("projects", catalog.ProjectNames()).
		Msg("starting qna server")

	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Metrics registry
	m := metrics.New()

	// Azure Language client, shared by classification and retrieval
	retryCfg := retry.DefaultConfig()
	if cfg.RetryAttempts > 0 {
		retryCfg.MaxAttempts = cfg.RetryAttempts
	}
	languageClient := language.NewClient(cfg.ServiceEndpoint, cfg.ServiceKey,
		language.WithLogger(logger),
		language.WithRetry(retryCfg),
		language.WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout}),
		language.WithAnswerCache(cfg.AnswerCacheSize, cfg.AnswerCacheTTL),
	)

	// Routing table from the catalog
	keywords := make([]routing.ProjectKeywords, 0, len(catalog.Projects))
	for _, p := range catalog.Projects {
		keywords = append(keywords, routing.ProjectKeywords{Project: p.Name, Keywords: p.Keywords})
	}
	table := routing.NewTable(keywords, catalog.RoutingCategories)

	orch := orchestrator.New(languageClient, languageClient, table, orchestrator.Config{
		NLUProject:    cfg.NLUProject,
		NLUDeployment: cfg.NLUDeployment,
		QADeployment:  cfg.QADeployment,
		Language:      cfg.Language,
	}, m, logger)

	// Session registry with idle expiry
	store := session.NewStore(cfg.SessionTTL, cfg.MaxSessions, logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.RunCleanup(ctx, time.Minute)
	}()

	// Health checker
	checker := health.NewChecker(logger)
	checker.Register("config", func(ctx context.Context) health.Status {
		if cfg.LanguageConfigured() {
			return health.StatusOK
		}
		return health.StatusDown
	})
	checker.Register("sessions", func(ctx context.Context) health.Status {
		if cfg.MaxSessions > 0 && store.Len() >= cfg.MaxSessions {
			return health.StatusDegraded
		}
		return health.StatusOK
	})

	handlers := api.NewHandlers(store, orch, catalog, checker, m, logger)

	server := api.NewServer(api.ServerConfig{
		ListenAddr: cfg.ListenAddr,
		Auth: api.AuthConfig{
			Mode:      cfg.AuthMode,
			APIKey:    cfg.APIKey,
			JWTSecret: cfg.JWTSecret,
		},
		RateLimit: api.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
		CORSOrigins: cfg.CORSOrigins,
	}, handlers, m, logger)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("API server error")
		}
	}()

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	cancel()

	if err := server.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("API server shutdown error")
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("all goroutines stopped")
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
	}

	logger.Info().Msg("qna server stopped")
}
