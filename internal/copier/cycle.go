package copier

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/JabirHus/NCTB/internal/models"
	"github.com/google/uuid"
)

// Cycle runs one replication pass. A failed master fetch returns early
// without touching any slave: an unreadable snapshot is never read as "no
// positions".
func (r *Replicator) Cycle(ctx context.Context) error {
	requestID := newCycleID()
	entry := r.logEntry().WithField("request_id", requestID)

	accts, err := r.accounts.Load()
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	if accts.Master == nil {
		return exception.ErrNoMaster
	}
	master := *accts.Master

	sess, err := r.session(ctx, master)
	if err != nil {
		return fmt.Errorf("master: %w", err)
	}
	positions, err := sess.Positions(ctx, "")
	if err != nil {
		r.checkSession(master.Login, err)
		return fmt.Errorf("master %d positions: %w", master.Login, err)
	}

	current := make(map[int64]models.Position, len(positions))
	for _, p := range positions {
		current[p.Ticket] = p
	}

	r.monitor.observe(r.logEntry(), r.metrics, master.Login, positions)

	if !r.bootstrapped {
		r.bootstrap(ctx, current)
		r.metrics.Cycle("bootstrap")
		return nil
	}

	// every copy of this cycle happens before closed-trade detection
	for _, ticket := range sortedTickets(current) {
		if r.copied.Has(ticket) {
			continue
		}
		pos := current[ticket]
		ok := r.copyToSlaves(ctx, requestID, pos, accts.Slaves)
		if ok == 0 {
			entry.WithField("ticket", ticket).Warn("trade not copied to any slave, retrying next cycle")
			continue
		}
		r.copied.Add(ticket)
		r.justCopied[ticket] = r.now()
		r.notify(fmt.Sprintf("copied master %s %s %.2f (ticket %d) to %d/%d slaves",
			pos.Side, pos.Symbol, pos.Volume, ticket, ok, len(accts.Slaves)))
	}

	next := make(map[int64]models.Position, len(current))
	for t, p := range current {
		next[t] = p
	}

	for _, ticket := range sortedTickets(r.prev) {
		if _, open := current[ticket]; open {
			continue
		}
		pos := r.prev[ticket]
		if r.suppressed(ticket) {
			// carried forward and rechecked once the window passes
			next[ticket] = pos
			entry.WithField("ticket", ticket).Debug("closure suppressed, trade copied moments ago")
			continue
		}
		r.handleClosed(ctx, requestID, pos, accts.Slaves)
	}

	r.prev = next
	r.pruneJustCopied()
	r.persist(ctx)
	r.metrics.SetCopied(len(r.copied))
	r.metrics.Cycle("ok")
	return nil
}

// bootstrap adopts every open master position as copied without touching
// the slaves, and drops persisted tickets that are no longer open.
func (r *Replicator) bootstrap(ctx context.Context, current map[int64]models.Position) {
	entry := r.logEntry()

	persisted, err := r.store.LoadCopiedTickets(ctx)
	if err != nil {
		r.metrics.PersistFailed("tickets")
		entry.WithError(err).Warn("could not load copied tickets, adopting open positions only")
	}

	stale := 0
	for _, t := range persisted {
		if _, open := current[t]; !open {
			stale++
		}
	}

	r.copied = NewTicketSet(sortedTickets(current)...)
	r.prev = current
	r.bootstrapped = true
	r.persist(ctx)
	r.metrics.SetCopied(len(r.copied))

	entry.WithFields(map[string]interface{}{
		"adopted":   len(current),
		"persisted": len(persisted),
		"dropped":   stale,
	}).Info("replication bootstrapped")
}

func (r *Replicator) handleClosed(ctx context.Context, requestID string, pos models.Position, slaves []models.Credentials) {
	ticket := pos.Ticket
	entry := r.logEntry().WithFields(map[string]interface{}{
		"request_id": requestID,
		"ticket":     ticket,
		"symbol":     pos.Symbol,
	})

	if r.copied.Has(ticket) {
		links := r.links[ticket]
		targets := slaves
		if len(links) > 0 {
			targets = linkedSlaves(slaves, links)
		}
		closed := 0
		for _, slave := range targets {
			link := findLink(links, slave.Login)
			if err := r.closeOnSlave(ctx, requestID, slave, pos, link); err != nil {
				r.metrics.SlaveOrder(loginLabel(slave.Login), "close", string(exception.KindOf(err)))
				r.slaveEntry(requestID, slave.Login, ticket).WithError(err).Warn("slave close failed")
				continue
			}
			closed++
			r.metrics.SlaveOrder(loginLabel(slave.Login), "close", "ok")
		}
		r.notify(fmt.Sprintf("master closed %s %s (ticket %d), closed on %d/%d slaves",
			pos.Side, pos.Symbol, ticket, closed, len(targets)))
	}

	r.copied.Remove(ticket)
	delete(r.links, ticket)
	delete(r.justCopied, ticket)

	trade := models.ClosedTrade{
		Ticket:   ticket,
		Symbol:   pos.Symbol,
		Side:     pos.Side,
		Volume:   pos.Volume,
		Reason:   closeReason(pos),
		ClosedAt: r.now().UTC(),
	}
	if err := r.store.AppendClosedTrade(ctx, trade); err != nil {
		r.metrics.PersistFailed("closed_trades")
		entry.WithError(err).Warn("closed trade not recorded")
	}
	entry.Info("master trade closed")
}

func (r *Replicator) suppressed(ticket int64) bool {
	at, ok := r.justCopied[ticket]
	return ok && r.now().Sub(at) < r.cfg.SuppressionWindow
}

func (r *Replicator) pruneJustCopied() {
	for t, at := range r.justCopied {
		if r.now().Sub(at) >= r.cfg.SuppressionWindow {
			delete(r.justCopied, t)
		}
	}
}

func (r *Replicator) persist(ctx context.Context) {
	if err := r.store.SaveCopiedTickets(ctx, r.copied.Sorted()); err != nil {
		r.metrics.PersistFailed("tickets")
		r.logEntry().WithError(err).Warn("could not persist copied tickets")
	}
}

func sortedTickets(m map[int64]models.Position) []int64 {
	out := make([]int64, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func linkedSlaves(slaves []models.Credentials, links []Link) []models.Credentials {
	var out []models.Credentials
	for _, s := range slaves {
		if findLink(links, s.Login) != nil {
			out = append(out, s)
		}
	}
	return out
}

func findLink(links []Link, login int64) *Link {
	for i := range links {
		if links[i].Login == login {
			return &links[i]
		}
	}
	return nil
}

func newCycleID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

const (
	ReasonTakeProfit = "take_profit"
	ReasonStopLoss   = "stop_loss"
	ReasonManual     = "manual"
)

// closeReason classifies a master closure from the last comment the broker
// reported for the position, such as "[tp 1.10220]" or "[sl 1.09920]".
func closeReason(pos models.Position) string {
	comment := strings.ToLower(pos.Comment)
	switch {
	case strings.Contains(comment, "tp"):
		return ReasonTakeProfit
	case strings.Contains(comment, "sl"):
		return ReasonStopLoss
	default:
		return ReasonManual
	}
}
