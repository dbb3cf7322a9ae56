package ws

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/JabirHus/NCTB/internal/models"
)

type tickData struct {
	Symbol string `json:"symbol"`
	Bid    string `json:"bid"`
	Ask    string `json:"ask"`
	Time   int64  `json:"time"`
}

func (w *Client) handleTick(msg Message) {
	var data []tickData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		var single tickData
		if err := json.Unmarshal(msg.Data, &single); err != nil {
			w.logEntry().WithError(err).Warn("failed to decode tick")
			return
		}
		data = append(data, single)
	}

	for _, item := range data {
		symbol := item.Symbol
		if symbol == "" {
			symbol = strings.TrimPrefix(msg.Topic, "tick.")
		}
		bid, _ := strconv.ParseFloat(item.Bid, 64)
		ask, _ := strconv.ParseFloat(item.Ask, 64)
		if bid <= 0 || ask <= 0 {
			continue
		}

		ts := item.Time
		if ts == 0 {
			ts = msg.TS
		}
		tick := models.Tick{Symbol: symbol, Bid: bid, Ask: ask, Time: time.UnixMilli(ts)}
		if ts == 0 {
			tick.Time = time.Now()
		}

		w.mu.Lock()
		w.ticks[symbol] = tick
		w.mu.Unlock()
	}
}
