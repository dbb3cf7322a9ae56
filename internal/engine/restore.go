package engine

import (
	"context"

	"github.com/JabirHus/NCTB/internal/exchange"
	"github.com/JabirHus/NCTB/internal/models"
	"github.com/JabirHus/NCTB/internal/retry"
)

// restoreActive rebuilds the active markers from the master's open positions
// carrying the engine's magic number, so a restart never doubles up on an
// instrument that already has a bot position.
func (e *Engine) restoreActive(ctx context.Context) error {
	entry := e.logEntry()

	sess, err := retry.Do(ctx, e.retry, entry, func() (exchange.Session, error) {
		return e.sessionFor(ctx)
	})
	if err != nil {
		return err
	}

	positions, err := retry.Do(ctx, e.retry, entry, func() ([]models.Position, error) {
		ps, err := sess.Positions(ctx, "")
		e.checkSession(err)
		return ps, err
	})
	if err != nil {
		return err
	}

	restored := 0
	for _, p := range positions {
		if p.Magic != e.cfg.Magic {
			continue
		}
		if _, ok := e.locks[p.Symbol]; !ok {
			continue
		}
		e.update(p.Symbol, func(st *InstrumentState) {
			st.Active = true
			st.Ticket = p.Ticket
		})
		restored++
		entry.WithFields(map[string]interface{}{
			"symbol": p.Symbol,
			"ticket": p.Ticket,
			"side":   p.Side,
			"volume": p.Volume,
		}).Debug("active position restored")
	}

	if restored > 0 {
		entry.WithField("count", restored).Info("restored active positions")
	}
	return nil
}
