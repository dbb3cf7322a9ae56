// Package notify delivers operator-facing messages: order outcomes,
// copies, closures and resyncs. Delivery never blocks the trading loops.
package notify

import (
	"context"

	"github.com/JabirHus/NCTB/internal/logger"
)

type Level string

const (
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelCritical Level = "CRITICAL"
)

type Alert struct {
	Level   Level  `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the structured logger.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, alert Alert) error {
	entry := n.log.WithComponent("notify").WithField("title", alert.Title)
	switch alert.Level {
	case LevelCritical:
		entry.Error(alert.Message)
	case LevelWarning:
		entry.Warn(alert.Message)
	default:
		entry.Info(alert.Message)
	}
	return nil
}
