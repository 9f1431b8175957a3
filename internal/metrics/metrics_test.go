package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.TransactionStarted()
	m.TransactionStarted()
	m.ObserveAttempt("TRANSIENT_FAILURE", 10*time.Millisecond)
	m.ObserveAttempt("SUCCESS", 20*time.Millisecond)
	m.ObserveTerminal("SUCCEEDED")
	m.SetQueueDepth(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("SUCCESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("TRANSIENT_FAILURE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransactionsTotal.WithLabelValues("SUCCEEDED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InFlight))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.WorkerQueueDepth))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SendLatency))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TransactionStarted()
		m.ObserveAttempt("SUCCESS", time.Millisecond)
		m.ObserveTerminal("SUCCEEDED")
		m.SetQueueDepth(1)
	})
}

func TestNew_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestHandler_ServesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHTTP(reg)
	h.RequestsTotal.WithLabelValues("/processPurchase", "POST", "200").Inc()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "sandbox_http_requests_total")
}
