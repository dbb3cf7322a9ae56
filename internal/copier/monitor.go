package copier

import (
	"strings"

	"github.com/JabirHus/NCTB/internal/metrics"
	"github.com/JabirHus/NCTB/internal/models"
	"github.com/sirupsen/logrus"
)

// monitor tells bot-placed master positions from manual ones and reports
// manual opens and closes once each.
type monitor struct {
	botMagic map[int64]bool
	manual   map[int64]models.Position
}

func newMonitor(magic int64) *monitor {
	return &monitor{
		botMagic: map[int64]bool{magic: true},
		manual:   map[int64]models.Position{},
	}
}

func (m *monitor) isBot(p models.Position) bool {
	if p.Magic != 0 && m.botMagic[p.Magic] {
		return true
	}
	return strings.HasPrefix(p.Comment, "Trade-") || strings.HasPrefix(p.Comment, copyPrefix)
}

func (m *monitor) observe(entry *logrus.Entry, mt *metrics.Metrics, login int64, positions []models.Position) (opened, closed []models.Position) {
	bot := 0
	open := make(map[int64]bool, len(positions))
	for _, p := range positions {
		if m.isBot(p) {
			bot++
			continue
		}
		open[p.Ticket] = true
		if _, known := m.manual[p.Ticket]; known {
			continue
		}
		m.manual[p.Ticket] = p
		opened = append(opened, p)
		entry.WithFields(logrus.Fields{
			"login":  login,
			"ticket": p.Ticket,
			"symbol": p.Symbol,
			"side":   p.Side,
			"volume": p.Volume,
		}).Info("manual trade detected")
	}

	for ticket, p := range m.manual {
		if open[ticket] {
			continue
		}
		delete(m.manual, ticket)
		closed = append(closed, p)
		entry.WithFields(logrus.Fields{
			"login":  login,
			"ticket": ticket,
			"symbol": p.Symbol,
		}).Info("manual trade closed")
	}

	mt.SetOpen(loginLabel(login), "bot", bot)
	mt.SetOpen(loginLabel(login), "manual", len(open))
	return opened, closed
}
