package engine

import (
	"github.com/sirupsen/logrus"
)

func (e *Engine) logEntry() *logrus.Entry {
	return e.log.WithComponent("engine")
}

func (e *Engine) symbolEntry(symbol string) *logrus.Entry {
	return e.logEntry().WithField("symbol", symbol)
}

func logOrderContext(entry *logrus.Entry, requestID string, fields logrus.Fields) *logrus.Entry {
	if requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	return entry
}
