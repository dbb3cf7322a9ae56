package paper

import (
	"context"
	"fmt"
	"sort"

	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/JabirHus/NCTB/internal/models"
)

type session struct {
	broker     *Broker
	login      int64
	generation int
}

func (s *session) Login() int64 { return s.login }

// acquire locks the broker and returns the session's account.
func (s *session) acquire(ctx context.Context) (*account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.broker.mu.Lock()
	if s.generation != s.broker.generation {
		s.broker.mu.Unlock()
		return nil, exception.ErrSessionClosed
	}
	acc, ok := s.broker.accounts[s.login]
	if !ok {
		s.broker.mu.Unlock()
		return nil, fmt.Errorf("login %d: %w", s.login, exception.ErrUnknownAccount)
	}
	return acc, nil
}

func (s *session) Symbols(ctx context.Context) ([]string, error) {
	acc, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.broker.mu.Unlock()

	out := make([]string, 0, len(acc.instruments))
	for sym := range acc.instruments {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out, nil
}

func (s *session) SymbolInfo(ctx context.Context, symbol string) (models.Instrument, error) {
	acc, err := s.acquire(ctx)
	if err != nil {
		return models.Instrument{}, err
	}
	defer s.broker.mu.Unlock()

	inst, ok := acc.instruments[symbol]
	if !ok {
		return models.Instrument{}, fmt.Errorf("%s: %w", symbol, exception.ErrUnknownSymbol)
	}
	return inst, nil
}

func (s *session) SelectSymbol(ctx context.Context, symbol string) error {
	acc, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer s.broker.mu.Unlock()

	inst, ok := acc.instruments[symbol]
	if !ok || acc.unselectable[symbol] {
		return fmt.Errorf("select %s: %w", symbol, exception.ErrSymbolUnavailable)
	}
	inst.Visible = true
	acc.instruments[symbol] = inst
	return nil
}

func (s *session) LatestTick(ctx context.Context, symbol string) (models.Tick, error) {
	if _, err := s.acquire(ctx); err != nil {
		return models.Tick{}, err
	}
	s.broker.mu.Unlock()
	return s.broker.LatestTick(ctx, symbol)
}

func (s *session) Positions(ctx context.Context, symbol string) ([]models.Position, error) {
	acc, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.broker.mu.Unlock()

	if acc.positionsErr != nil {
		return nil, acc.positionsErr
	}
	return sortedPositions(acc.positions, symbol), nil
}

func (s *session) SendOrder(ctx context.Context, req models.OrderRequest) (*models.OrderResult, error) {
	acc, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.broker.mu.Unlock()

	if acc.orderErr != nil {
		return nil, acc.orderErr
	}

	b := s.broker
	record := func(res models.OrderResult) *models.OrderResult {
		b.sent = append(b.sent, SentOrder{Login: s.login, Request: req, Result: res})
		return &res
	}

	if acc.rejectCode != 0 {
		return record(models.OrderResult{RetCode: acc.rejectCode, Comment: "rejected"}), nil
	}
	inst, ok := acc.instruments[req.Symbol]
	if !ok {
		return record(models.OrderResult{RetCode: retcodeInvalid, Comment: "unknown symbol"}), nil
	}
	tick, ok := b.ticks[req.Symbol]
	if !ok {
		return record(models.OrderResult{RetCode: retcodeNoQuotes, Comment: "no quotes"}), nil
	}
	if req.Volume < inst.VolumeMin || req.Volume <= 0 {
		return record(models.OrderResult{RetCode: retcodeInvalidVolume, Comment: "invalid volume"}), nil
	}

	price := tick.Bid
	if req.Side == models.SideBuy {
		price = tick.Ask
	}

	if req.Position != 0 {
		pos, ok := acc.positions[req.Position]
		if !ok || pos.Side == req.Side {
			return record(models.OrderResult{RetCode: retcodePositionClosed, Comment: "position not found"}), nil
		}
		delete(acc.positions, req.Position)
		b.nextTicket++
		return record(models.OrderResult{RetCode: models.RetCodeDone, Comment: "done", Order: b.nextTicket, Deal: b.nextTicket, Volume: req.Volume, Price: price}), nil
	}

	b.nextTicket++
	ticket := b.nextTicket
	acc.positions[ticket] = models.Position{
		Ticket:     ticket,
		Login:      s.login,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Volume:     req.Volume,
		PriceOpen:  price,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Magic:      req.Magic,
		Comment:    req.Comment,
		OpenTime:   b.now(),
	}
	return record(models.OrderResult{RetCode: models.RetCodeDone, Comment: "done", Order: ticket, Deal: ticket, Volume: req.Volume, Price: price}), nil
}

// Return codes used by the paper broker besides RetCodeDone.
const (
	retcodeInvalid        = 10013
	retcodeInvalidVolume  = 10014
	retcodeNoQuotes       = 10021
	retcodePositionClosed = 10036
)
