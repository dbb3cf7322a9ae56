package ws

import (
	"context"
	"fmt"
	"time"

	"github.com/JabirHus/NCTB/internal/logger"
	"github.com/JabirHus/NCTB/internal/models"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

func New(url, apiKey, secret string, log *logger.Logger) *Client {
	return &Client{
		url:          url,
		apiKey:       apiKey,
		secret:       secret,
		log:          log,
		stopCh:       make(chan struct{}),
		ticks:        map[string]models.Tick{},
		reconnectMin: 1 * time.Second,
		reconnectMax: 30 * time.Second,
	}
}

// OnReconnect registers fn to run after every successful reconnect. It must
// be called before Connect.
func (w *Client) OnReconnect(fn func()) {
	w.onReconnect = fn
}

// Connect dials, authenticates, subscribes to symbols and starts the read loop.
func (w *Client) Connect(ctx context.Context, symbols []string) error {
	w.logEntry().WithField("url", w.url).Info("connecting to tick stream")

	if err := w.dial(ctx); err != nil {
		return err
	}
	if err := w.Subscribe(symbols); err != nil {
		return err
	}

	w.logEntry().Info("tick stream connected")

	go w.readLoop()

	return nil
}

func (w *Client) dial(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("dial tick stream: %w", err)
	}
	conn.SetReadLimit(2 << 20)

	w.connMu.Lock()
	if w.conn != nil {
		_ = w.conn.Close()
	}
	w.conn = conn
	w.connMu.Unlock()

	if w.apiKey != "" && w.secret != "" {
		if err := w.authenticate(); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the read loop and closes the connection.
func (w *Client) Close() error {
	w.stopOnce.Do(func() { close(w.stopCh) })

	w.connMu.Lock()
	defer w.connMu.Unlock()
	if w.conn == nil {
		return nil
	}
	return w.conn.Close()
}

// Latest returns the cached quote for symbol when it is younger than maxAge.
func (w *Client) Latest(symbol string, maxAge time.Duration) (models.Tick, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	tick, ok := w.ticks[symbol]
	if !ok {
		return models.Tick{}, false
	}
	if maxAge > 0 && time.Since(tick.Time) > maxAge {
		return models.Tick{}, false
	}
	return tick, true
}

func (w *Client) logEntry() *logrus.Entry {
	return w.log.WithComponent("bridge_ws")
}
