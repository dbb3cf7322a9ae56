package ws

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

func (w *Client) readLoop() {
	w.logEntry().Debug("read loop started")

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		w.connMu.Lock()
		conn := w.conn
		w.connMu.Unlock()

		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.stopCh:
				return
			default:
			}
			w.logEntry().WithError(err).Warn("tick stream read failed")

			if !w.reconnect() {
				return
			}
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			w.logEntry().WithError(err).Warn("failed to decode stream message")
			continue
		}

		if strings.HasPrefix(msg.Topic, "tick.") {
			w.handleTick(msg)
		}
	}
}

func (w *Client) reconnect() bool {
	backoff := w.reconnectMin

	for {
		w.logEntry().Info("reconnecting tick stream")

		select {
		case <-w.stopCh:
			return false
		case <-time.After(backoff):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := w.dial(ctx)
		cancel()
		if err != nil {
			w.logEntry().WithError(err).Warn("tick stream reconnect failed")
			backoff = w.nextBackoff(backoff)
			continue
		}

		if err := w.Subscribe(w.symbols); err != nil {
			w.logEntry().WithError(err).Warn("tick stream resubscribe failed")
			backoff = w.nextBackoff(backoff)
			continue
		}

		if w.onReconnect != nil {
			w.onReconnect()
		}
		w.logEntry().Info("tick stream reconnected and resubscribed")
		return true
	}
}

func (w *Client) nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > w.reconnectMax {
		return w.reconnectMax
	}
	return next
}
