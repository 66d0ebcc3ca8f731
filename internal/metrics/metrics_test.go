package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m := New()

	m.RecordRequest("/api/audit/message", "200", 0.05)
	m.RecordMessage("discovery")
	m.RecordMessage("discovery")
	m.RecordTransition("discovery", "pain_points")
	m.RecordTransition("pain_points", "pain_points")
	m.RecordReport("generated")
	m.RecordIntegration("crm", "success")
	m.RecordConflict()
	m.RecordError("api", "internal")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/api/audit/message", "200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesTotal.WithLabelValues("discovery")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PhaseTransitions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsTotal.WithLabelValues("generated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IntegrationsTotal.WithLabelValues("crm", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionConflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("api", "internal")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordMessage("contact_info")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `intake_messages_total{phase="contact_info"} 1`)
}
