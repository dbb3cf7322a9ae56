package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/JabirHus/NCTB/internal/logger"
	"github.com/JabirHus/NCTB/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	alerts []Alert
}

func (r *recorder) Send(_ context.Context, a Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return nil
}

func TestDispatcherDeliversQueuedAlertsOnStop(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(8, logger.Discard(), nil, rec, NewLogNotifier(logger.Discard()))
	d.Start()

	d.Log("copied 1001")
	d.Alert(Alert{Level: LevelWarning, Title: "order", Message: "rejected"})
	d.Stop()

	require.Len(t, rec.alerts, 2)
	assert.Equal(t, "copied 1001", rec.alerts[0].Message)
	assert.Equal(t, LevelWarning, rec.alerts[1].Level)
}

func TestDispatcherNeverBlocks(t *testing.T) {
	m := metrics.New()
	d := NewDispatcher(1, logger.Discard(), m)

	d.Log("first")
	d.Log("second")
	d.Log("third")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.NotifyDropped))
}

func TestWebhookNotifier(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	require.NoError(t, n.Send(context.Background(), Alert{Level: LevelInfo, Title: "copy", Message: "ok"}))
	assert.Equal(t, "copy", got["title"])
	assert.Equal(t, "INFO", got["level"])
}

func TestWebhookNotifierStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL).Send(context.Background(), Alert{})
	assert.ErrorContains(t, err, "unexpected status 502")
}
