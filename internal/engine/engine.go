// Package engine runs the signal-driven execution loop: one scheduler per
// configured instrument, each evaluating the strategy on fresh bars and
// placing at most one bot position per instrument at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JabirHus/NCTB/internal/config"
	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/JabirHus/NCTB/internal/exchange"
	"github.com/JabirHus/NCTB/internal/logger"
	"github.com/JabirHus/NCTB/internal/metrics"
	"github.com/JabirHus/NCTB/internal/models"
	"github.com/JabirHus/NCTB/internal/retry"
	"github.com/JabirHus/NCTB/internal/strategy"
)

type TradeHistory interface {
	AppendTrade(ctx context.Context, rec models.TradeRecord) error
}

type Notifier interface {
	Log(message string)
}

type Option func(*Engine)

func WithHistory(h TradeHistory) Option { return func(e *Engine) { e.history = h } }

func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithRetryPolicy(p retry.Policy) Option { return func(e *Engine) { e.retry = p } }

type Engine struct {
	cfg       config.ExecutionConfig
	broker    exchange.Broker
	master    models.Credentials
	evaluator *strategy.Evaluator
	history   TradeHistory
	notifier  Notifier
	metrics   *metrics.Metrics
	log       *logger.Logger
	now       func() time.Time
	retry     retry.Policy

	// one per configured instrument, never added to after New
	locks map[string]*sync.Mutex

	mu     sync.Mutex
	states map[string]*InstrumentState

	sessMu  sync.Mutex
	session exchange.Session

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg config.ExecutionConfig, broker exchange.Broker, master models.Credentials, evaluator *strategy.Evaluator, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg,
		broker:    broker,
		master:    master,
		evaluator: evaluator,
		log:       log,
		now:       time.Now,
		retry:     retry.Default,
		locks:     make(map[string]*sync.Mutex, len(cfg.Instruments)),
		states:    make(map[string]*InstrumentState, len(cfg.Instruments)),
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, symbol := range cfg.Instruments {
		e.locks[symbol] = &sync.Mutex{}
		e.states[symbol] = &InstrumentState{Symbol: symbol, State: StateIdle}
	}
	return e
}

// Start restores active markers from the broker and launches one scheduler
// goroutine per instrument. The loops run until Stop or until ctx ends.
func (e *Engine) Start(ctx context.Context) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.cancel != nil {
		return errors.New("engine: already running")
	}
	if e.evaluator.Enabled() == 0 {
		e.logEntry().Warn("no indicators enabled, the engine will never trade")
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	if err := e.restoreActive(runCtx); err != nil {
		e.logEntry().WithError(err).Warn("could not restore active positions, continuing with empty markers")
	}

	for _, symbol := range e.cfg.Instruments {
		e.wg.Add(1)
		go e.runInstrument(runCtx, symbol)
	}
	e.logEntry().WithField("instruments", e.cfg.Instruments).Info("execution engine started")
	return nil
}

// Stop cancels every scheduler and waits for them to return.
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.cancel == nil {
		return
	}
	e.cancel()
	e.wg.Wait()
	e.cancel = nil
	e.dropSession()
	e.logEntry().Info("execution engine stopped")
}

// ClearActive forgets every active marker. Called on resync.
func (e *Engine) ClearActive() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, st := range e.states {
		st.Active = false
		st.Ticket = 0
	}
}

func (e *Engine) State(symbol string) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[symbol]
	if !ok {
		return StateIdle
	}
	return st.State
}

// States returns a copy of every instrument's state ordered by symbol.
func (e *Engine) States() []InstrumentState {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]InstrumentState, 0, len(e.states))
	for _, st := range e.states {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (e *Engine) snapshot(symbol string) InstrumentState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.states[symbol]; ok {
		return *st
	}
	return InstrumentState{Symbol: symbol}
}

func (e *Engine) update(symbol string, fn func(*InstrumentState)) {
	e.mu.Lock()
	st, ok := e.states[symbol]
	if !ok {
		e.mu.Unlock()
		return
	}
	fn(st)
	st.UpdatedAt = e.now()
	state := st.State
	e.mu.Unlock()

	e.metrics.SetState(symbol, int(state))
}

func (e *Engine) setState(symbol string, s State) {
	e.update(symbol, func(st *InstrumentState) { st.State = s })
}

// sessionFor returns the master session, logging in when there is none.
func (e *Engine) sessionFor(ctx context.Context) (exchange.Session, error) {
	e.sessMu.Lock()
	defer e.sessMu.Unlock()
	if e.session != nil {
		return e.session, nil
	}
	sess, err := e.broker.Login(ctx, e.master)
	if err != nil {
		return nil, fmt.Errorf("master login %d: %w", e.master.Login, err)
	}
	e.session = sess
	return sess, nil
}

func (e *Engine) dropSession() {
	e.sessMu.Lock()
	e.session = nil
	e.sessMu.Unlock()
}

// checkSession forgets the session when err says the broker dropped it.
func (e *Engine) checkSession(err error) {
	if errors.Is(err, exception.ErrSessionClosed) {
		e.dropSession()
	}
}
