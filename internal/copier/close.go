package copier

import (
	"context"
	"fmt"

	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/JabirHus/NCTB/internal/models"
)

// closeOnSlave closes the slave position mirroring master. link may be nil
// for trades adopted at bootstrap; the position is then found by comment or
// by symbol, side and volume.
func (r *Replicator) closeOnSlave(ctx context.Context, requestID string, slave models.Credentials, master models.Position, link *Link) error {
	sess, err := r.session(ctx, slave)
	if err != nil {
		return err
	}

	positions, err := sess.Positions(ctx, master.Symbol)
	if err != nil {
		r.checkSession(slave.Login, err)
		return fmt.Errorf("slave positions: %w", err)
	}

	target := findByTicket(positions, link)
	if target == nil {
		volume := master.Volume
		if link != nil {
			volume = link.Volume
		} else if inst, err := sess.SymbolInfo(ctx, master.Symbol); err == nil {
			volume = inst.NormalizeVolume(master.Volume)
		}
		target = findEquivalent(positions, master, volume)
	}
	if target == nil {
		return fmt.Errorf("ticket %d on %d: %w", master.Ticket, slave.Login, exception.ErrPositionNotFound)
	}

	tick, err := sess.LatestTick(ctx, target.Symbol)
	if err != nil {
		r.checkSession(slave.Login, err)
		return fmt.Errorf("%s: %w: %w", target.Symbol, exception.ErrNoMarketData, err)
	}
	// a long closes by selling at bid, a short by buying at ask
	closeSide := target.Side.Opposite()
	price := tick.Bid
	if closeSide == models.SideBuy {
		price = tick.Ask
	}

	req := models.OrderRequest{
		Action:    models.ActionDeal,
		Symbol:    target.Symbol,
		Side:      closeSide,
		Volume:    target.Volume,
		Price:     price,
		Deviation: r.cfg.Deviation,
		Magic:     r.cfg.Magic,
		Comment:   closeComment(master.Ticket),
		Filling:   models.FillingIOC,
		Position:  target.Ticket,
		LinkID:    requestID,
	}
	res, err := sess.SendOrder(ctx, req)
	if err != nil || res == nil {
		r.checkSession(slave.Login, err)
		return fmt.Errorf("%w: %v", exception.ErrBrokerUnreachable, err)
	}
	if !res.Done() {
		return &exception.OrderRejectedError{Code: res.RetCode, Comment: res.Comment}
	}

	r.slaveEntry(requestID, slave.Login, master.Ticket).WithFields(map[string]interface{}{
		"slave_ticket": target.Ticket,
		"price":        res.Price,
	}).Info("slave position closed")
	return nil
}

func findByTicket(positions []models.Position, link *Link) *models.Position {
	if link == nil {
		return nil
	}
	for i := range positions {
		if positions[i].Ticket == link.SlaveTicket {
			return &positions[i]
		}
	}
	return nil
}
