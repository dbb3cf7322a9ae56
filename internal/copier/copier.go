// Package copier mirrors the master account's open positions onto every
// slave account. Each cycle copies new master trades before it looks for
// closed ones, and persists the set of copied tickets so a restart never
// copies a trade twice.
package copier

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/JabirHus/NCTB/internal/config"
	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/JabirHus/NCTB/internal/exchange"
	"github.com/JabirHus/NCTB/internal/logger"
	"github.com/JabirHus/NCTB/internal/metrics"
	"github.com/JabirHus/NCTB/internal/models"
)

// StateStore persists replication state between runs.
type StateStore interface {
	LoadCopiedTickets(ctx context.Context) ([]int64, error)
	SaveCopiedTickets(ctx context.Context, tickets []int64) error
	AppendClosedTrade(ctx context.Context, trade models.ClosedTrade) error
}

// AccountSource is read at the start of every cycle so account changes take
// effect without a restart.
type AccountSource interface {
	Load() (models.Accounts, error)
}

type Notifier interface {
	Log(message string)
}

// Link ties a master ticket to the position copied on one slave.
type Link struct {
	Master      int64
	Login       int64
	SlaveTicket int64
	Symbol      string
	Side        models.Side
	Volume      float64
}

type Option func(*Replicator)

func WithNotifier(n Notifier) Option { return func(r *Replicator) { r.notifier = n } }

func WithMetrics(m *metrics.Metrics) Option { return func(r *Replicator) { r.metrics = m } }

func WithClock(now func() time.Time) Option { return func(r *Replicator) { r.now = now } }

// WithBotMagic marks positions carrying magic as bot-placed for the manual
// trade monitor. The replicator's own magic is always included.
func WithBotMagic(magic ...int64) Option {
	return func(r *Replicator) {
		for _, m := range magic {
			r.monitor.botMagic[m] = true
		}
	}
}

type sessionEntry struct {
	creds   models.Credentials
	session exchange.Session
}

type Replicator struct {
	cfg      config.ReplicationConfig
	broker   exchange.Broker
	accounts AccountSource
	store    StateStore
	notifier Notifier
	metrics  *metrics.Metrics
	log      *logger.Logger
	now      func() time.Time

	// owned by the cycle goroutine
	copied       TicketSet
	prev         map[int64]models.Position
	justCopied   map[int64]time.Time
	links        map[int64][]Link
	sessions     map[int64]sessionEntry
	bootstrapped bool
	monitor      *monitor

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg config.ReplicationConfig, broker exchange.Broker, accounts AccountSource, store StateStore, log *logger.Logger, opts ...Option) *Replicator {
	r := &Replicator{
		cfg:      cfg,
		broker:   broker,
		accounts: accounts,
		store:    store,
		log:      log,
		now:      time.Now,
		monitor:  newMonitor(cfg.Magic),
	}
	r.clear()
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Replicator) clear() {
	r.copied = NewTicketSet()
	r.prev = map[int64]models.Position{}
	r.justCopied = map[int64]time.Time{}
	r.links = map[int64][]Link{}
	r.sessions = map[int64]sessionEntry{}
	r.bootstrapped = false
}

// Start runs the replication loop in its own goroutine until Stop or ctx
// ends. The first cycle adopts every open master position.
func (r *Replicator) Start(ctx context.Context) error {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if r.cancel != nil {
		return errors.New("copier: already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.run(runCtx)
	r.logEntry().WithField("poll", r.cfg.PollInterval).Info("replicator started")
	return nil
}

func (r *Replicator) Stop() {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.wg.Wait()
	r.cancel = nil
	r.logEntry().Info("replicator stopped")
}

// Reset forgets every copied ticket, link and session and persists an empty
// ticket set. The next cycle bootstraps again. Call only while stopped.
func (r *Replicator) Reset(ctx context.Context) error {
	r.clear()
	r.metrics.SetCopied(0)
	if err := r.store.SaveCopiedTickets(ctx, nil); err != nil {
		r.metrics.PersistFailed("tickets")
		return fmt.Errorf("reset copied tickets: %w", err)
	}
	return nil
}

// Copied returns the copied tickets in ascending order.
func (r *Replicator) Copied() []int64 {
	return r.copied.Sorted()
}

// Links returns the slave links recorded for a master ticket.
func (r *Replicator) Links(ticket int64) []Link {
	return append([]Link(nil), r.links[ticket]...)
}

func (r *Replicator) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		r.safeCycle(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Replicator) safeCycle(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			r.metrics.Cycle("panic")
			r.logEntry().WithField("panic", p).Error("replication cycle panicked")
		}
	}()

	if err := r.Cycle(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.metrics.Cycle(string(exception.KindOf(err)))
		entry := r.logEntry().WithError(err)
		if errors.Is(err, exception.ErrTransientIO) {
			entry.Debug("replication cycle skipped")
			return
		}
		entry.Warn("replication cycle failed")
	}
}

// session returns a cached session for creds, logging in when there is none
// or the stored credentials changed.
func (r *Replicator) session(ctx context.Context, creds models.Credentials) (exchange.Session, error) {
	if cached, ok := r.sessions[creds.Login]; ok && cached.creds == creds {
		return cached.session, nil
	}
	sess, err := r.broker.Login(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("login %d: %w", creds.Login, err)
	}
	r.sessions[creds.Login] = sessionEntry{creds: creds, session: sess}
	return sess, nil
}

func (r *Replicator) checkSession(login int64, err error) {
	if errors.Is(err, exception.ErrSessionClosed) {
		delete(r.sessions, login)
	}
}

func (r *Replicator) notify(message string) {
	if r.notifier != nil {
		r.notifier.Log(message)
	}
}

const copyPrefix = "Copy"

// CopyComment tags a slave position with the master ticket it mirrors.
func CopyComment(ticket int64) string {
	return copyPrefix + strconv.FormatInt(ticket, 10)
}

func closeComment(ticket int64) string {
	return "Close" + strconv.FormatInt(ticket, 10)
}
