// Package metrics exposes scheduler, executor and replicator counters to
// Prometheus. Every method is safe on a nil *Metrics so components can run
// without a registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Registry *prometheus.Registry

	SchedulerState *prometheus.GaugeVec   // labels: symbol
	Signals        *prometheus.CounterVec // labels: symbol, verdict
	Orders         *prometheus.CounterVec // labels: symbol, result
	OrderLatency   prometheus.Histogram

	ReplicationCycles *prometheus.CounterVec // labels: result
	SlaveOrders       *prometheus.CounterVec // labels: login, action, result
	CopiedTickets     prometheus.Gauge
	OpenPositions     *prometheus.GaugeVec // labels: login, origin

	PersistFailures *prometheus.CounterVec // labels: store
	NotifyDropped   prometheus.Counter
	Resyncs         prometheus.Counter
	TickReconnects  prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		SchedulerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nctb_scheduler_state",
			Help: "Current scheduler state per instrument (0=idle 1=signal_wait 2=locked 3=submitting 4=cooldown)",
		}, []string{"symbol"}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nctb_signals_total",
			Help: "Strategy verdicts per instrument",
		}, []string{"symbol", "verdict"}),
		Orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nctb_orders_total",
			Help: "Orders placed by the execution engine, by result",
		}, []string{"symbol", "result"}),
		OrderLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nctb_order_latency_seconds",
			Help:    "Time from metadata fetch to order result",
			Buckets: prometheus.DefBuckets,
		}),
		ReplicationCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nctb_replication_cycles_total",
			Help: "Replication cycles by outcome",
		}, []string{"result"}),
		SlaveOrders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nctb_slave_orders_total",
			Help: "Copy and close orders sent to slave accounts",
		}, []string{"login", "action", "result"}),
		CopiedTickets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nctb_copied_tickets",
			Help: "Master tickets currently tracked as copied",
		}),
		OpenPositions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nctb_open_positions",
			Help: "Open master positions by origin (bot or manual)",
		}, []string{"login", "origin"}),
		PersistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nctb_persist_failures_total",
			Help: "Failed writes to durable stores",
		}, []string{"store"}),
		NotifyDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nctb_notify_dropped_total",
			Help: "Log messages dropped because the dispatch queue was full",
		}),
		Resyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nctb_resyncs_total",
			Help: "Completed session resyncs",
		}),
		TickReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nctb_tick_stream_reconnects_total",
			Help: "Successful reconnects of the broker tick stream",
		}),
	}

	m.Registry.MustRegister(
		m.SchedulerState,
		m.Signals,
		m.Orders,
		m.OrderLatency,
		m.ReplicationCycles,
		m.SlaveOrders,
		m.CopiedTickets,
		m.OpenPositions,
		m.PersistFailures,
		m.NotifyDropped,
		m.Resyncs,
		m.TickReconnects,
	)
	return m
}

func (m *Metrics) SetState(symbol string, state int) {
	if m == nil {
		return
	}
	m.SchedulerState.WithLabelValues(symbol).Set(float64(state))
}

func (m *Metrics) Signal(symbol, verdict string) {
	if m == nil {
		return
	}
	m.Signals.WithLabelValues(symbol, verdict).Inc()
}

func (m *Metrics) Order(symbol, result string, took time.Duration) {
	if m == nil {
		return
	}
	m.Orders.WithLabelValues(symbol, result).Inc()
	m.OrderLatency.Observe(took.Seconds())
}

func (m *Metrics) Cycle(result string) {
	if m == nil {
		return
	}
	m.ReplicationCycles.WithLabelValues(result).Inc()
}

func (m *Metrics) SlaveOrder(login, action, result string) {
	if m == nil {
		return
	}
	m.SlaveOrders.WithLabelValues(login, action, result).Inc()
}

func (m *Metrics) SetCopied(n int) {
	if m == nil {
		return
	}
	m.CopiedTickets.Set(float64(n))
}

func (m *Metrics) SetOpen(login, origin string, n int) {
	if m == nil {
		return
	}
	m.OpenPositions.WithLabelValues(login, origin).Set(float64(n))
}

func (m *Metrics) PersistFailed(store string) {
	if m == nil {
		return
	}
	m.PersistFailures.WithLabelValues(store).Inc()
}

func (m *Metrics) Dropped() {
	if m == nil {
		return
	}
	m.NotifyDropped.Inc()
}

func (m *Metrics) Resynced() {
	if m == nil {
		return
	}
	m.Resyncs.Inc()
}

func (m *Metrics) Reconnected() {
	if m == nil {
		return
	}
	m.TickReconnects.Inc()
}
