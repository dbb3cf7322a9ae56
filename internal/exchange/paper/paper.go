// Package paper is an in-memory multi-account broker used for dry runs and
// tests. Positions, quotes and bars live in memory; orders fill instantly at
// the current bid/ask.
package paper

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/JabirHus/NCTB/internal/exchange"
	"github.com/JabirHus/NCTB/internal/models"
)

type account struct {
	creds        models.Credentials
	instruments  map[string]models.Instrument
	positions    map[int64]models.Position
	unselectable map[string]bool

	loginErr     error
	positionsErr error
	orderErr     error
	rejectCode   int
}

// SentOrder records one SendOrder call that reached the broker.
type SentOrder struct {
	Login   int64
	Request models.OrderRequest
	Result  models.OrderResult
}

type Broker struct {
	mu         sync.Mutex
	accounts   map[int64]*account
	ticks      map[string]models.Tick
	bars       map[string][]models.Bar
	barsErr    error
	nextTicket int64
	generation int
	sent       []SentOrder
	now        func() time.Time
}

var _ exchange.Broker = (*Broker)(nil)

func New() *Broker {
	return &Broker{
		accounts:   map[int64]*account{},
		ticks:      map[string]models.Tick{},
		bars:       map[string][]models.Bar{},
		nextTicket: 1000,
		now:        time.Now,
	}
}

// AddAccount registers an account with its tradable instruments.
func (b *Broker) AddAccount(creds models.Credentials, instruments ...models.Instrument) {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc := &account{
		creds:        creds,
		instruments:  map[string]models.Instrument{},
		positions:    map[int64]models.Position{},
		unselectable: map[string]bool{},
	}
	for _, inst := range instruments {
		acc.instruments[inst.Symbol] = inst
	}
	b.accounts[creds.Login] = acc
}

func (b *Broker) SetInstrument(login int64, inst models.Instrument) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if acc, ok := b.accounts[login]; ok {
		acc.instruments[inst.Symbol] = inst
	}
}

// SetUnselectable makes SelectSymbol fail for symbol on login.
func (b *Broker) SetUnselectable(login int64, symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if acc, ok := b.accounts[login]; ok {
		acc.unselectable[symbol] = true
	}
}

func (b *Broker) SetTick(tick models.Tick) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if tick.Time.IsZero() {
		tick.Time = b.now()
	}
	b.ticks[tick.Symbol] = tick
}

func (b *Broker) RemoveTick(symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.ticks, symbol)
}

func (b *Broker) SetBars(symbol string, bars []models.Bar) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bars[symbol] = append([]models.Bar(nil), bars...)
}

// FailBars makes every Bars call fail with err until reset with nil.
func (b *Broker) FailBars(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.barsErr = err
}

func (b *Broker) FailLogin(login int64, err error) {
	b.withAccount(login, func(acc *account) { acc.loginErr = err })
}

func (b *Broker) FailPositions(login int64, err error) {
	b.withAccount(login, func(acc *account) { acc.positionsErr = err })
}

// FailOrders makes SendOrder return err with a nil result.
func (b *Broker) FailOrders(login int64, err error) {
	b.withAccount(login, func(acc *account) { acc.orderErr = err })
}

// RejectOrders makes SendOrder answer with retcode code. Zero restores fills.
func (b *Broker) RejectOrders(login int64, code int) {
	b.withAccount(login, func(acc *account) { acc.rejectCode = code })
}

func (b *Broker) withAccount(login int64, fn func(*account)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if acc, ok := b.accounts[login]; ok {
		fn(acc)
	}
}

// OpenPosition places a position directly, as a manual trade would.
func (b *Broker) OpenPosition(login int64, pos models.Position) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc, ok := b.accounts[login]
	if !ok {
		return 0
	}
	if pos.Ticket == 0 {
		b.nextTicket++
		pos.Ticket = b.nextTicket
	}
	pos.Login = login
	if pos.OpenTime.IsZero() {
		pos.OpenTime = b.now()
	}
	acc.positions[pos.Ticket] = pos
	return pos.Ticket
}

// ClosePosition removes a position directly, as SL/TP or a manual close would.
func (b *Broker) ClosePosition(login int64, ticket int64) {
	b.withAccount(login, func(acc *account) { delete(acc.positions, ticket) })
}

// OpenPositions returns a snapshot of login's positions ordered by ticket.
func (b *Broker) OpenPositions(login int64) []models.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[login]
	if !ok {
		return nil
	}
	return sortedPositions(acc.positions, "")
}

// Sent returns every order that reached login, oldest first.
func (b *Broker) Sent(login int64) []SentOrder {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []SentOrder
	for _, s := range b.sent {
		if s.Login == login {
			out = append(out, s)
		}
	}
	return out
}

func (b *Broker) Login(ctx context.Context, creds models.Credentials) (exchange.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	acc, ok := b.accounts[creds.Login]
	if !ok {
		return nil, fmt.Errorf("login %d: %w", creds.Login, exception.ErrUnknownAccount)
	}
	if acc.loginErr != nil {
		return nil, acc.loginErr
	}
	if acc.creds.Password != creds.Password || acc.creds.Server != creds.Server {
		return nil, fmt.Errorf("login %d: %w", creds.Login, exception.ErrAuthFailed)
	}
	return &session{broker: b, login: creds.Login, generation: b.generation}, nil
}

func (b *Broker) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generation++
	return nil
}

func (b *Broker) Bars(ctx context.Context, symbol, timeframe string, count int) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.barsErr != nil {
		return nil, b.barsErr
	}
	bars, ok := b.bars[symbol]
	if !ok || len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, exception.ErrNotEnoughBars)
	}
	if count > 0 && len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	return append([]models.Bar(nil), bars...), nil
}

func (b *Broker) LatestTick(ctx context.Context, symbol string) (models.Tick, error) {
	if err := ctx.Err(); err != nil {
		return models.Tick{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	tick, ok := b.ticks[symbol]
	if !ok {
		return models.Tick{}, fmt.Errorf("%s: %w", symbol, exception.ErrUnknownSymbol)
	}
	return tick, nil
}

func sortedPositions(positions map[int64]models.Position, symbol string) []models.Position {
	out := make([]models.Position, 0, len(positions))
	for _, p := range positions {
		if symbol == "" || p.Symbol == symbol {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out
}
