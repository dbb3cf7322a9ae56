package copier

import (
	"github.com/sirupsen/logrus"
)

func (r *Replicator) logEntry() *logrus.Entry {
	return r.log.WithComponent("copier")
}

func (r *Replicator) slaveEntry(requestID string, login int64, ticket int64) *logrus.Entry {
	return r.logEntry().WithFields(logrus.Fields{
		"request_id": requestID,
		"login":      login,
		"ticket":     ticket,
	})
}
