// Package health serves the liveness and readiness probes.
package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Status of a single dependency.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// CheckFunc probes one dependency. Ping methods of the session store and
// SQLite fit as is.
type CheckFunc func(ctx context.Context) error

// Result is the outcome of one check.
type Result struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// Report is the readiness body.
type Report struct {
	Ready  bool              `json:"-"`
	Status string            `json:"status"`
	Checks map[string]Result `json:"checks"`
}

type check struct {
	name     string
	fn       CheckFunc
	required bool
}

// Checker runs registered checks. Results are reused for maxAge so a burst
// of probes does not hammer the backends.
type Checker struct {
	mu      sync.Mutex
	checks  []check
	last    Report
	lastAt  time.Time
	maxAge  time.Duration
	timeout time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

// NewChecker creates a checker with no checks; it reports ready until one
// is registered.
func NewChecker(logger zerolog.Logger) *Checker {
	return &Checker{
		maxAge:  time.Second,
		timeout: 3 * time.Second,
		now:     time.Now,
		logger:  logger.With().Str("component", "health").Logger(),
	}
}

// Register adds a check. A failing required check makes the service not
// ready; a failing optional one only marks it degraded.
func (c *Checker) Register(name string, required bool, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, check{name: name, fn: fn, required: required})
	sort.Slice(c.checks, func(i, j int) bool { return c.checks[i].name < c.checks[j].name })
	c.lastAt = time.Time{}
}

// Check runs every check concurrently, or returns the cached report if it
// is fresh enough.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.lastAt.IsZero() && c.now().Sub(c.lastAt) < c.maxAge {
		return c.last
	}

	results := make([]Result, len(c.checks))
	var wg sync.WaitGroup
	for i, ch := range c.checks {
		wg.Add(1)
		go func(i int, ch check) {
			defer wg.Done()
			results[i] = c.run(ctx, ch)
		}(i, ch)
	}
	wg.Wait()

	r := Report{Ready: true, Status: "ready", Checks: make(map[string]Result, len(results))}
	for i, ch := range c.checks {
		res := results[i]
		r.Checks[ch.name] = res
		if res.Status == StatusDown {
			r.Ready = false
			r.Status = "not_ready"
		}
	}
	c.last, c.lastAt = r, c.now()
	return r
}

func (c *Checker) run(ctx context.Context, ch check) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := ch.fn(ctx)
	res := Result{Status: StatusOK, LatencyMs: time.Since(start).Milliseconds()}
	if err == nil {
		return res
	}
	res.Status, res.Error = StatusDegraded, err.Error()
	if ch.required {
		res.Status = StatusDown
	}
	c.logger.Warn().Err(err).Str("check", ch.name).Str("status", string(res.Status)).Msg("Health check failed")
	return res
}

// LivenessHandler answers /health. It never touches dependencies.
func LivenessHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

// ReadinessHandler answers /ready with 503 while a required check is down.
func (c *Checker) ReadinessHandler() fiber.Handler {
	return func(fc *fiber.Ctx) error {
		r := c.Check(fc.UserContext())
		status := fiber.StatusOK
		if !r.Ready {
			status = fiber.StatusServiceUnavailable
		}
		return fc.Status(status).JSON(r)
	}
}
