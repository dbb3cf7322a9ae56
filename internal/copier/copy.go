package copier

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/JabirHus/NCTB/internal/models"
)

// copyToSlaves mirrors pos on every slave and returns how many succeeded.
func (r *Replicator) copyToSlaves(ctx context.Context, requestID string, pos models.Position, slaves []models.Credentials) int {
	ok := 0
	for _, slave := range slaves {
		link, err := r.copyToSlave(ctx, requestID, slave, pos)
		if err != nil {
			r.metrics.SlaveOrder(loginLabel(slave.Login), "copy", string(exception.KindOf(err)))
			r.slaveEntry(requestID, slave.Login, pos.Ticket).WithError(err).Warn("slave copy failed")
			continue
		}
		ok++
		r.metrics.SlaveOrder(loginLabel(slave.Login), "copy", "ok")
		r.links[pos.Ticket] = append(r.links[pos.Ticket], link)
	}
	return ok
}

func (r *Replicator) copyToSlave(ctx context.Context, requestID string, slave models.Credentials, pos models.Position) (Link, error) {
	entry := r.slaveEntry(requestID, slave.Login, pos.Ticket)

	sess, err := r.session(ctx, slave)
	if err != nil {
		return Link{}, err
	}

	inst, err := sess.SymbolInfo(ctx, pos.Symbol)
	if err != nil {
		r.checkSession(slave.Login, err)
		return Link{}, fmt.Errorf("%s: %w: %w", pos.Symbol, exception.ErrNoMarketData, err)
	}
	if !inst.Visible {
		if err := sess.SelectSymbol(ctx, pos.Symbol); err != nil {
			r.checkSession(slave.Login, err)
			return Link{}, fmt.Errorf("%s: %w: %w", pos.Symbol, exception.ErrSymbolUnavailable, err)
		}
	}

	volume := inst.NormalizeVolume(pos.Volume)
	if volume <= 0 {
		return Link{}, fmt.Errorf("%s: %w: %v", pos.Symbol, exception.ErrInvalidVolume, pos.Volume)
	}

	existing, err := sess.Positions(ctx, pos.Symbol)
	if err != nil {
		r.checkSession(slave.Login, err)
		return Link{}, fmt.Errorf("dedup check: %w", err)
	}
	if dup := findEquivalent(existing, pos, volume); dup != nil {
		entry.WithField("slave_ticket", dup.Ticket).Info("equivalent slave position exists, adopting it")
		return Link{Master: pos.Ticket, Login: slave.Login, SlaveTicket: dup.Ticket, Symbol: pos.Symbol, Side: pos.Side, Volume: dup.Volume}, nil
	}

	tick, err := sess.LatestTick(ctx, pos.Symbol)
	if err != nil {
		r.checkSession(slave.Login, err)
		return Link{}, fmt.Errorf("%s: %w: %w", pos.Symbol, exception.ErrNoMarketData, err)
	}
	price := tick.Bid
	if pos.Side == models.SideBuy {
		price = tick.Ask
	}

	req := models.OrderRequest{
		Action:     models.ActionDeal,
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		Volume:     volume,
		Price:      price,
		StopLoss:   pos.StopLoss,
		TakeProfit: pos.TakeProfit,
		Deviation:  r.cfg.Deviation,
		Magic:      r.cfg.Magic,
		Comment:    CopyComment(pos.Ticket),
		Filling:    models.FillingIOC,
		LinkID:     requestID,
	}
	res, err := sess.SendOrder(ctx, req)
	if err != nil || res == nil {
		r.checkSession(slave.Login, err)
		return Link{}, fmt.Errorf("%w: %v", exception.ErrBrokerUnreachable, err)
	}
	if !res.Done() {
		return Link{}, &exception.OrderRejectedError{Code: res.RetCode, Comment: res.Comment}
	}

	entry.WithFields(map[string]interface{}{
		"symbol":       pos.Symbol,
		"side":         pos.Side,
		"volume":       volume,
		"price":        res.Price,
		"slave_ticket": res.Order,
	}).Info("trade copied")

	return Link{Master: pos.Ticket, Login: slave.Login, SlaveTicket: res.Order, Symbol: pos.Symbol, Side: pos.Side, Volume: volume}, nil
}

// findEquivalent looks for a slave position that already mirrors pos:
// first one tagged with pos's ticket, then any untagged one with the same
// side and normalized volume. Copies of other master trades never match.
func findEquivalent(positions []models.Position, pos models.Position, volume float64) *models.Position {
	comment := CopyComment(pos.Ticket)
	var match *models.Position
	for i := range positions {
		p := &positions[i]
		if p.Symbol != pos.Symbol || p.Side != pos.Side || !models.SameVolume(p.Volume, volume) {
			continue
		}
		if p.Comment == comment {
			return p
		}
		if strings.HasPrefix(p.Comment, copyPrefix) {
			continue
		}
		if match == nil {
			match = p
		}
	}
	return match
}

func loginLabel(login int64) string {
	return strconv.FormatInt(login, 10)
}
