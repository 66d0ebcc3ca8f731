package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/p-blackswan/audit-intake/internal/api"
	"github.com/p-blackswan/audit-intake/internal/config"
	"github.com/p-blackswan/audit-intake/internal/conversation"
	"github.com/p-blackswan/audit-intake/internal/health"
	"github.com/p-blackswan/audit-intake/internal/integrations"
	"github.com/p-blackswan/audit-intake/internal/llm"
	"github.com/p-blackswan/audit-intake/internal/metrics"
	"github.com/p-blackswan/audit-intake/internal/opportunity"
	"github.com/p-blackswan/audit-intake/internal/report"
	"github.com/p-blackswan/audit-intake/internal/retry"
	"github.com/p-blackswan/audit-intake/internal/session"
	"github.com/p-blackswan/audit-intake/internal/store"
	"github.com/p-blackswan/audit-intake/pkg/kvstore"
)

const summarySystemPrompt = "You are a senior automation consultant. Rewrite executive summaries for " +
	"business owners in plain, confident language. Keep every number unchanged."

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("http_addr", cfg.HTTPAddr).
		Str("session_backend", cfg.SessionBackend).
		Bool("email_enabled", cfg.EmailEnabled()).
		Bool("crm_enabled", cfg.CRMEnabled()).
		Bool("slack_enabled", cfg.SlackEnabled()).
		Bool("llm_enabled", cfg.LLMEnabled()).
		Msg("starting audit intake")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	m := metrics.New()
	checker := health.NewChecker(logger)

	// Session store
	var kv kvstore.Store
	if cfg.RedisEnabled() {
		rs, err := kvstore.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer rs.Close()
		kv = rs
		logger.Info().Msg("Redis session store initialized")
	} else {
		kv = kvstore.NewMemoryStore(10 * time.Minute)
		logger.Info().Msg("In-memory session store initialized (sessions are lost on restart)")
	}
	checker.Register("sessions", true, kv.Ping)

	// Durable records
	db, err := store.New(cfg.SQLitePath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open SQLite store")
	}
	defer db.Close()
	checker.Register("sqlite", true, db.Ping)

	links := report.NewLinkSigner(cfg.ReportSigningKey, cfg.ReportBaseURL, cfg.ReportLinkTTL)
	if cfg.ReportSigningKey == "" {
		logger.Warn().Msg("REPORT_SIGNING_KEY not set, report links are signed with an empty key")
	}

	// Integrations
	var handlers []integrations.Handler
	if cfg.EmailEnabled() {
		client := integrations.NewEmailClient(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom, logger)
		handlers = append(handlers, integrations.NewReportEmailer(client))
		logger.Info().Msg("Email integration initialized")
	} else {
		logger.Info().Msg("Email not configured, skipping")
	}
	if cfg.CRMEnabled() {
		client := integrations.NewCRMClient(cfg.CRMAPIURL, cfg.CRMAPIKey, logger)
		handlers = append(handlers, integrations.NewCRMSync(client, db))
		logger.Info().Msg("CRM integration initialized")
	} else {
		logger.Info().Msg("CRM not configured, skipping")
	}
	if cfg.SlackEnabled() {
		handlers = append(handlers, integrations.NewSlackNotifier(cfg.SlackWebhookURL, logger))
		logger.Info().Msg("Slack notifications initialized")
	} else {
		logger.Info().Msg("Slack not configured, skipping")
	}

	dispatcher := integrations.NewDispatcher(integrations.DispatcherConfig{
		Workers:   cfg.Workers,
		QueueSize: cfg.QueueSize,
		Retry: retry.Config{
			MaxAttempts: cfg.RetryMax + 1,
			BaseDelay:   cfg.RetryBackoff,
			MaxDelay:    10 * time.Second,
			Jitter:      true,
		},
		ReplayBackoff: cfg.DeadLetterInterval,
	}, db, logger, handlers...)
	dispatcher.SetRecorder(m)
	dispatcher.Start(ctx)
	logger.Info().Interface("integrations", dispatcher.Enabled()).Msg("Integration dispatcher started")

	scheduler, err := integrations.NewScheduler(integrations.SchedulerConfig{
		RetentionInterval:  cfg.RetentionInterval,
		LeadRetention:      cfg.LeadRetention,
		DeadLetterInterval: cfg.DeadLetterInterval,
	}, dispatcher, db, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create scheduler")
	}
	scheduler.Start()

	// Summary polishing (optional)
	var polisher *report.Polisher
	if cfg.LLMEnabled() {
		provider := llm.NewAnthropicProvider(cfg.AnthropicAPIKey,
			llm.WithModel(cfg.AnthropicModel),
			llm.WithLogger(logger),
		)
		polisher = report.NewPolisher(
			llm.NewTextCompleter(provider, summarySystemPrompt, 600),
			retry.Policy{MaxRetries: cfg.RetryMax, Backoff: cfg.RetryBackoff, MaxBackoff: 5 * time.Second},
			logger,
		)
		logger.Info().Str("model", provider.ModelID()).Msg("LLM summary polishing enabled")
	} else {
		logger.Info().Msg("Anthropic not configured, using template summaries")
	}

	catalog, err := opportunity.DefaultCatalog()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load opportunity catalog")
	}

	engine := conversation.New(
		session.NewRepository(kv, cfg.SessionTTL),
		report.NewBuilder(opportunity.NewMatcher(catalog)),
		logger,
		conversation.WithLeadStore(db),
		conversation.WithDispatcher(dispatcher),
		conversation.WithPolisher(polisher),
		conversation.WithLinkSigner(links),
		conversation.WithRecorder(m),
	)

	deps := api.Deps{
		Engine:   engine,
		Leads:    db,
		Admin:    db,
		Replayer: dispatcher,
		Links:    links,
		Checker:  checker,
		Metrics:  m,
	}
	if !cfg.AdminEnabled() {
		logger.Info().Msg("ADMIN_API_KEY not set, admin API disabled")
	}
	server := api.NewServer(api.ServerConfig{
		ListenAddr:  cfg.HTTPAddr,
		CORSOrigins: cfg.CORSOriginList(),
		RateLimit: api.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
		AdminAPIKey: cfg.AdminAPIKey,
	}, deps, logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("API server error")
			select {
			case sigCh <- syscall.SIGTERM:
			default:
			}
		}
	}()

	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("API server shutdown error")
	}
	if err := scheduler.Stop(); err != nil {
		logger.Error().Err(err).Msg("scheduler shutdown error")
	}
	dispatcher.Stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("all goroutines stopped")
	case <-time.After(15 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
	}

	logger.Info().Msg("audit intake stopped")
}
