package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/JabirHus/NCTB/internal/models"
)

func (e *Engine) runInstrument(ctx context.Context, symbol string) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		e.Cycle(ctx, symbol)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Cycle runs one pass of the instrument's state machine. It never returns an
// error: failures are logged and the instrument goes back to IDLE.
func (e *Engine) Cycle(ctx context.Context, symbol string) {
	entry := e.symbolEntry(symbol)
	defer func() {
		if r := recover(); r != nil {
			entry.WithField("panic", r).Error("instrument cycle panicked")
			e.setState(symbol, StateIdle)
		}
	}()

	lock, ok := e.locks[symbol]
	if !ok {
		entry.Warn("instrument is not configured")
		return
	}
	// one pass per instrument at a time
	lock.Lock()
	defer lock.Unlock()

	st := e.snapshot(symbol)
	if st.State == StateCooldown {
		if e.now().Before(st.CooldownUntil) {
			return
		}
		e.setState(symbol, StateIdle)
	}

	e.setState(symbol, StateSignalWait)

	bars, err := e.broker.Bars(ctx, symbol, e.cfg.Timeframe, e.cfg.Bars)
	if err != nil {
		entry.WithError(err).Debug("market data unavailable, skipping cycle")
		e.setState(symbol, StateIdle)
		return
	}

	verdict := e.evaluator.Evaluate(bars)
	e.metrics.Signal(symbol, string(verdict))
	e.update(symbol, func(st *InstrumentState) { st.LastVerdict = string(verdict) })

	side, ok := verdict.Side()
	if !ok {
		e.setState(symbol, StateIdle)
		return
	}

	e.setState(symbol, StateLocked)

	if e.hasOpenPosition(ctx, symbol) {
		entry.WithField("verdict", verdict).Debug("bot position already open, ignoring signal")
		e.setState(symbol, StateIdle)
		return
	}

	e.setState(symbol, StateSubmitting)
	ticket, err := e.Place(ctx, symbol, side)
	if err != nil {
		e.reportFailure(symbol, side, err)
		e.update(symbol, func(st *InstrumentState) {
			st.State = StateIdle
			st.LastError = err.Error()
		})
		return
	}

	until := e.now().Add(e.cfg.Cooldown)
	e.update(symbol, func(st *InstrumentState) {
		st.State = StateCooldown
		st.Active = true
		st.Ticket = ticket
		st.CooldownUntil = until
		st.LastError = ""
	})
	entry.WithFields(map[string]interface{}{
		"side":   side,
		"ticket": ticket,
		"until":  until,
	}).Info("order placed, cooling down")
	e.notify(fmt.Sprintf("%s %s placed, ticket %d", side, symbol, ticket))
}

// hasOpenPosition reports whether the instrument still holds a bot-placed
// position. A marker whose position is gone from the broker is cleared. When
// the broker cannot be asked the marker is trusted.
func (e *Engine) hasOpenPosition(ctx context.Context, symbol string) bool {
	st := e.snapshot(symbol)
	if !st.Active {
		return false
	}

	sess, err := e.sessionFor(ctx)
	if err != nil {
		e.symbolEntry(symbol).WithError(err).Debug("cannot verify active position")
		return true
	}
	positions, err := sess.Positions(ctx, symbol)
	if err != nil {
		e.checkSession(err)
		e.symbolEntry(symbol).WithError(err).Debug("cannot verify active position")
		return true
	}
	for _, p := range positions {
		if p.Magic == e.cfg.Magic {
			return true
		}
	}

	e.update(symbol, func(st *InstrumentState) {
		st.Active = false
		st.Ticket = 0
	})
	e.symbolEntry(symbol).WithField("ticket", st.Ticket).Info("bot position closed, instrument released")
	return false
}

func (e *Engine) reportFailure(symbol string, side models.Side, err error) {
	entry := e.symbolEntry(symbol).WithError(err).WithFields(map[string]interface{}{
		"side": side,
		"kind": string(exception.KindOf(err)),
	})
	entry.Error("order failed")
	e.notify(fmt.Sprintf("%s %s failed: %v", side, symbol, err))
}

func (e *Engine) notify(message string) {
	if e.notifier != nil {
		e.notifier.Log(message)
	}
}
