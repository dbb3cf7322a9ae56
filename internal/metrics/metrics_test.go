package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JabirHus/NCTB/internal/logger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SetState("EURUSD", 1)
		m.Order("EURUSD", "ok", time.Second)
		m.Cycle("ok")
		m.Dropped()
		m.Reconnected()
	})
}

func TestCounters(t *testing.T) {
	m := New()
	m.SetState("EURUSD", 4)
	m.Order("EURUSD", "rejected", 10*time.Millisecond)
	m.Order("EURUSD", "rejected", 10*time.Millisecond)
	m.SlaveOrder("7002", "copy", "ok")
	m.SetCopied(3)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.SchedulerState.WithLabelValues("EURUSD")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Orders.WithLabelValues("EURUSD", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SlaveOrders.WithLabelValues("7002", "copy", "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CopiedTickets))
}

func TestServerExposesRegistry(t *testing.T) {
	m := New()
	m.Resynced()
	srv := NewServer(":0", m, logger.Discard())

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "nctb_resyncs_total 1")

	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthzReportsFailingChecks(t *testing.T) {
	srv := NewServer(":0", New(), logger.Discard())
	srv.AddCheck("sqlite", func(context.Context) error { return nil })

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	srv.AddCheck("redis", func(context.Context) error { return errors.New("connection refused") })
	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "redis: connection refused\n", string(body))
}

func TestReconnectCounter(t *testing.T) {
	m := New()
	m.Reconnected()
	m.Reconnected()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TickReconnects))
}
