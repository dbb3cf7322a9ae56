package notify

import (
	"context"
	"sync"
	"time"

	"github.com/JabirHus/NCTB/internal/logger"
	"github.com/JabirHus/NCTB/internal/metrics"
)

const sendTimeout = 10 * time.Second

// Dispatcher queues alerts and fans them out to every notifier from a single
// goroutine. Log and Alert never block; when the queue is full the alert is
// dropped and counted.
type Dispatcher struct {
	notifiers []Notifier
	queue     chan Alert
	log       *logger.Logger
	metrics   *metrics.Metrics

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewDispatcher(size int, log *logger.Logger, m *metrics.Metrics, notifiers ...Notifier) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{
		notifiers: notifiers,
		queue:     make(chan Alert, size),
		log:       log,
		metrics:   m,
		stopCh:    make(chan struct{}),
	}
}

// Log queues an informational message.
func (d *Dispatcher) Log(message string) {
	d.Alert(Alert{Level: LevelInfo, Title: "nctb", Message: message})
}

func (d *Dispatcher) Alert(a Alert) {
	select {
	case d.queue <- a:
	default:
		d.metrics.Dropped()
	}
}

// Start drains the queue until Stop. Alerts still queued at Stop are
// delivered before Stop returns.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case a := <-d.queue:
				d.deliver(a)
			case <-d.stopCh:
				for {
					select {
					case a := <-d.queue:
						d.deliver(a)
					default:
						return
					}
				}
			}
		}
	}()
}

func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
	d.wg.Wait()
}

func (d *Dispatcher) deliver(a Alert) {
	for _, n := range d.notifiers {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := n.Send(ctx, a); err != nil {
			d.log.WithComponent("notify").WithError(err).Warn("alert delivery failed")
		}
		cancel()
	}
}
