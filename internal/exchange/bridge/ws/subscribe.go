package ws

import "fmt"

func topicFor(symbol string) string {
	return "tick." + symbol
}

func (w *Client) Subscribe(symbols []string) error {
	w.symbols = symbols
	if len(symbols) == 0 {
		return nil
	}

	topics := make([]string, 0, len(symbols))
	for _, s := range symbols {
		topics = append(topics, topicFor(s))
	}

	if err := w.writeJSON(SubscribeMessage{Op: "subscribe", Args: topics}); err != nil {
		return fmt.Errorf("subscribe %v: %w", symbols, err)
	}
	return nil
}

func (w *Client) writeJSON(v any) error {
	w.connMu.Lock()
	defer w.connMu.Unlock()
	if w.conn == nil {
		return fmt.Errorf("tick stream not connected")
	}
	return w.conn.WriteJSON(v)
}
