package health

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error { return nil }

func failing(context.Context) error { return errors.New("connection refused") }

func serve(t *testing.T, path string, h fiber.Handler) (int, string) {
	t.Helper()
	app := fiber.New()
	app.Get(path, h)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestLivenessHandler(t *testing.T) {
	code, body := serve(t, "/health", LivenessHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "ok")
}

func TestChecker_Statuses(t *testing.T) {
	tests := []struct {
		name      string
		register  func(c *Checker)
		ready     bool
		wantState map[string]Status
	}{
		{
			name:      "no checks",
			register:  func(*Checker) {},
			ready:     true,
			wantState: map[string]Status{},
		},
		{
			name: "all healthy",
			register: func(c *Checker) {
				c.Register("sessions", true, ok)
				c.Register("sqlite", true, ok)
			},
			ready:     true,
			wantState: map[string]Status{"sessions": StatusOK, "sqlite": StatusOK},
		},
		{
			name: "required down",
			register: func(c *Checker) {
				c.Register("sessions", true, failing)
				c.Register("sqlite", true, ok)
			},
			ready:     false,
			wantState: map[string]Status{"sessions": StatusDown, "sqlite": StatusOK},
		},
		{
			name: "optional down is degraded",
			register: func(c *Checker) {
				c.Register("crm", false, failing)
			},
			ready:     true,
			wantState: map[string]Status{"crm": StatusDegraded},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(zerolog.Nop())
			tt.register(c)
			r := c.Check(context.Background())
			assert.Equal(t, tt.ready, r.Ready)
			got := map[string]Status{}
			for name, res := range r.Checks {
				got[name] = res.Status
			}
			assert.Equal(t, tt.wantState, got)
		})
	}
}

func TestChecker_CachesResults(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	calls := 0
	c.Register("sqlite", true, func(context.Context) error {
		calls++
		return nil
	})

	c.Check(context.Background())
	c.Check(context.Background())
	assert.Equal(t, 1, calls)

	now = now.Add(2 * time.Second)
	c.Check(context.Background())
	assert.Equal(t, 2, calls)
}

func TestChecker_RecordsError(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("sessions", true, failing)
	r := c.Check(context.Background())
	assert.Equal(t, "connection refused", r.Checks["sessions"].Error)
}

func TestReadinessHandler(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("sessions", true, ok)
	code, body := serve(t, "/ready", c.ReadinessHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"status":"ready"`)
	assert.Contains(t, body, `"sessions":{"status":"ok"`)

	down := NewChecker(zerolog.Nop())
	down.Register("sessions", true, failing)
	code, body = serve(t, "/ready", down.ReadinessHandler())
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "not_ready")
}
