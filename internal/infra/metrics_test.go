package infra

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_HandlerExposesCounters(t *testing.T) {
	m := NewMetrics()
	m.Job("efactura_submit", "ok")
	m.ANAF("upload", "ok")
	m.ObserveBreaker("anaf", CBClosed, CBOpen)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, `documentiulia_jobs_total{outcome="ok",type="efactura_submit"} 1`)
	assert.Contains(t, body, `documentiulia_anaf_calls_total{operation="upload",outcome="ok"} 1`)
	assert.Contains(t, body, `documentiulia_circuit_breaker_state{breaker="anaf"} 1`)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Job("x", "ok")
		m.ANAF("upload", "ok")
		m.ObserveBreaker("anaf", CBClosed, CBOpen)
	})
}
