// Package api exposes the audit conversation over HTTP.
package api

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/audit-intake/internal/conversation"
	"github.com/p-blackswan/audit-intake/internal/health"
	"github.com/p-blackswan/audit-intake/internal/integrations"
	"github.com/p-blackswan/audit-intake/internal/metrics"
	"github.com/p-blackswan/audit-intake/internal/report"
	"github.com/p-blackswan/audit-intake/internal/requestid"
	"github.com/p-blackswan/audit-intake/internal/store"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	ListenAddr  string
	CORSOrigins []string
	RateLimit   RateLimitConfig
	AdminAPIKey string
}

// LeadReader loads stored reports for download links.
type LeadReader interface {
	GetLead(id string) (*store.Lead, error)
}

// AdminStore lists what the sales team and operators look at.
type AdminStore interface {
	ListLeads(limit int) ([]*store.Lead, error)
	ListDeadLetters(includeResolved bool, limit int) ([]*store.DeadLetter, error)
}

// Replayer retries parked integration jobs on demand.
type Replayer interface {
	ReplayDeadLetters(ctx context.Context) (integrations.ReplayStats, error)
}

// Deps are the collaborators the handlers need. Only Engine is required.
type Deps struct {
	Engine   *conversation.Engine
	Leads    LeadReader
	Admin    AdminStore
	Replayer Replayer
	Links    *report.LinkSigner
	Checker  *health.Checker
	Metrics  *metrics.Metrics
}

// Server is the intake API Fiber application.
type Server struct {
	app    *fiber.App
	logger zerolog.Logger
	config ServerConfig
}

// NewServer creates and configures the API server.
func NewServer(cfg ServerConfig, deps Deps, logger zerolog.Logger) *Server {
	logger = logger.With().Str("component", "api").Logger()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger, deps.Metrics),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
	})

	s := &Server{app: app, logger: logger, config: cfg}
	s.setupMiddleware(cfg, deps.Metrics)
	s.setupRoutes(cfg, deps)
	return s
}

func (s *Server) setupMiddleware(cfg ServerConfig, m *metrics.Metrics) {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(func(c *fiber.Ctx) error {
		ctx, reqID := requestid.New(c.UserContext(), c.Get("X-Request-ID"))
		c.SetUserContext(ctx)
		c.Set("X-Request-ID", reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	if len(cfg.CORSOrigins) > 0 {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(cfg.CORSOrigins, ","),
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods: "GET, POST, OPTIONS",
		}))
	}

	if cfg.RateLimit.RPS > 0 {
		s.app.Use(NewRateLimitMiddleware(cfg.RateLimit))
	}

	// Access log and request metrics.
	s.app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}
		path := c.Path()
		if m != nil {
			m.RecordRequest(c.Route().Path, strconv.Itoa(status), time.Since(start).Seconds())
		}
		if !isProbe(path) {
			log := requestid.Logger(c.UserContext(), s.logger)
			log.Info().
				Str("method", c.Method()).
				Str("path", path).
				Str("ip", c.IP()).
				Int("status", status).
				Dur("duration", time.Since(start)).
				Msg("api request")
		}
		return err
	})
}

func (s *Server) setupRoutes(cfg ServerConfig, deps Deps) {
	h := NewHandlers(deps, s.logger)

	s.app.Get("/health", health.LivenessHandler())
	if deps.Checker != nil {
		s.app.Get("/ready", deps.Checker.ReadinessHandler())
	} else {
		s.app.Get("/ready", health.LivenessHandler())
	}
	if deps.Metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	audit := s.app.Group("/api/audit")
	audit.Post("/start", h.Start)
	audit.Post("/message", h.Message)
	audit.Get("/session/:id", h.Session)
	audit.Get("/session/:id/coverage", h.Coverage)
	audit.Post("/generate", h.Generate)

	s.app.Get("/api/reports/:token", h.DownloadReport)

	// Without a key the admin API is not exposed at all.
	if cfg.AdminAPIKey != "" && deps.Admin != nil {
		admin := s.app.Group("/api/admin", NewAdminAuthMiddleware(cfg.AdminAPIKey, s.logger))
		admin.Get("/leads", h.ListLeads)
		admin.Get("/dead-letters", h.ListDeadLetters)
		if deps.Replayer != nil {
			admin.Post("/dead-letters/replay", h.ReplayDeadLetters)
		}
	}
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	s.logger.Info().Str("addr", addr).Msg("API server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("API server shutting down")
	return s.app.ShutdownWithContext(ctx)
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}
