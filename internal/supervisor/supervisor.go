// Package supervisor owns the trading workers and periodically tears the
// broker sessions down and rebuilds them from the broker's own state.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JabirHus/NCTB/internal/logger"
	"github.com/JabirHus/NCTB/internal/metrics"
	"github.com/sirupsen/logrus"
)

type Worker interface {
	Start(ctx context.Context) error
	Stop()
}

// Engine is the execution engine as seen by the supervisor.
type Engine interface {
	Worker
	ClearActive()
}

// Replicator is the position copier as seen by the supervisor.
type Replicator interface {
	Worker
	Reset(ctx context.Context) error
}

type Broker interface {
	Shutdown(ctx context.Context) error
}

type Notifier interface {
	Log(message string)
}

type Supervisor struct {
	engine     Engine
	replicator Replicator
	broker     Broker
	interval   time.Duration
	notifier   Notifier
	metrics    *metrics.Metrics
	log        *logger.Logger

	// serializes Start, Stop and Resync
	mu      sync.Mutex
	ctx     context.Context
	running bool

	loopCancel context.CancelFunc
	loopWG     sync.WaitGroup
}

// New builds a supervisor. engine or replicator may be nil when disabled.
// interval <= 0 disables periodic resync.
func New(engine Engine, replicator Replicator, broker Broker, interval time.Duration, log *logger.Logger, m *metrics.Metrics, n Notifier) *Supervisor {
	return &Supervisor{
		engine:     engine,
		replicator: replicator,
		broker:     broker,
		interval:   interval,
		notifier:   n,
		metrics:    m,
		log:        log,
	}
}

func (s *Supervisor) logEntry() *logrus.Entry {
	return s.log.WithComponent("supervisor")
}

// Start launches the workers and, when enabled, the resync loop.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("supervisor: already running")
	}
	s.ctx = ctx

	if err := s.startWorkers(ctx); err != nil {
		return err
	}
	s.running = true

	if s.interval > 0 {
		loopCtx, cancel := context.WithCancel(ctx)
		s.loopCancel = cancel
		s.loopWG.Add(1)
		go s.resyncLoop(loopCtx)
	}
	s.logEntry().WithField("resync_interval", s.interval).Info("supervisor started")
	return nil
}

// Stop ends the resync loop and every worker.
func (s *Supervisor) Stop() {
	if s.loopCancel != nil {
		s.loopCancel()
		s.loopWG.Wait()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.stopWorkers()
	s.running = false
	s.logEntry().Info("supervisor stopped")
}

// Resync stops every worker, clears active markers, persists an empty
// copied-ticket set, shuts the broker sessions down and starts the workers
// again. The workers rebuild their state from the broker on start.
func (s *Supervisor) Resync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return errors.New("supervisor: not running")
	}
	entry := s.logEntry()
	entry.Info("resync started")

	s.stopWorkers()

	var errs []error
	if s.engine != nil {
		s.engine.ClearActive()
	}
	if s.replicator != nil {
		if err := s.replicator.Reset(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.broker.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("broker shutdown: %w", err))
	}

	if err := s.startWorkers(s.ctx); err != nil {
		s.running = false
		errs = append(errs, err)
		entry.WithError(err).Error("workers failed to restart after resync")
		return errors.Join(errs...)
	}

	s.metrics.Resynced()
	if s.notifier != nil {
		s.notifier.Log("sessions resynced")
	}
	if len(errs) > 0 {
		entry.WithError(errors.Join(errs...)).Warn("resync finished with errors")
		return errors.Join(errs...)
	}
	entry.Info("resync finished")
	return nil
}

func (s *Supervisor) resyncLoop(ctx context.Context) {
	defer s.loopWG.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Resync(ctx); err != nil && ctx.Err() == nil {
				s.logEntry().WithError(err).Warn("resync failed")
			}
		}
	}
}

func (s *Supervisor) startWorkers(ctx context.Context) error {
	if s.engine != nil {
		if err := s.engine.Start(ctx); err != nil {
			return fmt.Errorf("start engine: %w", err)
		}
	}
	if s.replicator != nil {
		if err := s.replicator.Start(ctx); err != nil {
			if s.engine != nil {
				s.engine.Stop()
			}
			return fmt.Errorf("start replicator: %w", err)
		}
	}
	return nil
}

func (s *Supervisor) stopWorkers() {
	if s.replicator != nil {
		s.replicator.Stop()
	}
	if s.engine != nil {
		s.engine.Stop()
	}
}
