package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/JabirHus/NCTB/internal/models"
)

// Place opens a market position on the master account and returns its
// ticket. The trade is appended to history on success; a history failure is
// logged and does not undo the order.
func (e *Engine) Place(ctx context.Context, symbol string, side models.Side) (int64, error) {
	started := e.now()
	requestID := newRequestID()
	entry := logOrderContext(e.symbolEntry(symbol), requestID, nil)

	ticket, err := e.place(ctx, symbol, side, requestID)
	e.metrics.Order(symbol, orderResult(err), e.now().Sub(started))
	if err != nil {
		entry.WithError(err).Debug("order attempt failed")
		return 0, err
	}
	return ticket, nil
}

func (e *Engine) place(ctx context.Context, symbol string, side models.Side, requestID string) (int64, error) {
	sess, err := e.sessionFor(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %w", symbol, exception.ErrBrokerUnreachable, err)
	}

	inst, err := sess.SymbolInfo(ctx, symbol)
	if err != nil {
		e.checkSession(err)
		return 0, fmt.Errorf("%s: %w: %w", symbol, exception.ErrNoMarketData, err)
	}
	tick, err := sess.LatestTick(ctx, symbol)
	if err != nil {
		e.checkSession(err)
		return 0, fmt.Errorf("%s: %w: %w", symbol, exception.ErrNoMarketData, err)
	}
	if tick.Bid <= 0 || tick.Ask <= 0 {
		return 0, fmt.Errorf("%s: %w: empty quote", symbol, exception.ErrNoMarketData)
	}

	if !inst.Visible {
		if err := sess.SelectSymbol(ctx, symbol); err != nil {
			e.checkSession(err)
			return 0, fmt.Errorf("%s: %w: %w", symbol, exception.ErrSymbolUnavailable, err)
		}
	}

	volume := inst.NormalizeVolume(e.cfg.Volume)
	if volume <= 0 {
		return 0, fmt.Errorf("%s: %w: %v normalizes to %v", symbol, exception.ErrInvalidVolume, e.cfg.Volume, volume)
	}

	price := tick.Bid
	if side == models.SideBuy {
		price = tick.Ask
	}
	sl, tp := StopLevels(inst, side, price, e.cfg.StopLossPips, e.cfg.TakeProfitPips)

	req := models.OrderRequest{
		Action:     models.ActionDeal,
		Symbol:     symbol,
		Side:       side,
		Volume:     volume,
		Price:      price,
		StopLoss:   sl,
		TakeProfit: tp,
		Deviation:  e.cfg.Deviation,
		Magic:      e.cfg.Magic,
		Comment:    TradeComment(symbol),
		Filling:    models.FillingIOC,
		LinkID:     requestID,
	}

	logOrderContext(e.symbolEntry(symbol), requestID, map[string]interface{}{
		"side":   side,
		"volume": volume,
		"price":  price,
		"sl":     sl,
		"tp":     tp,
	}).Info("sending market order")

	res, err := sess.SendOrder(ctx, req)
	if err != nil || res == nil {
		e.checkSession(err)
		return 0, fmt.Errorf("%s: %w: %v", symbol, exception.ErrBrokerUnreachable, err)
	}
	if !res.Done() {
		return 0, &exception.OrderRejectedError{Code: res.RetCode, Comment: res.Comment}
	}

	fill := res.Price
	if fill == 0 {
		fill = price
	}
	e.recordTrade(ctx, models.TradeRecord{
		Symbol:     symbol,
		Side:       side,
		Volume:     volume,
		EntryPrice: fill,
		Ticket:     res.Order,
		Timestamp:  e.now().UTC(),
	})
	return res.Order, nil
}

func (e *Engine) recordTrade(ctx context.Context, rec models.TradeRecord) {
	if e.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := e.history.AppendTrade(ctx, rec); err != nil {
		e.metrics.PersistFailed("history")
		e.symbolEntry(rec.Symbol).WithError(err).WithField("ticket", rec.Ticket).Warn("trade placed but not recorded in history")
	}
}

// TradeComment tags positions opened by the execution engine.
func TradeComment(symbol string) string {
	return "Trade-" + symbol
}

func orderResult(err error) string {
	if err == nil {
		return "ok"
	}
	return string(exception.KindOf(err))
}
