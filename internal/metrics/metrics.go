package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters for the pipeline.
type Metrics struct {
	eventsObserved  prometheus.Counter
	messagesSent    prometheus.Counter
	messagesDropped prometheus.Counter
	reinits         prometheus.Counter
	errors          prometheus.Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// Init initializes global metrics (idempotent).
func Init() *Metrics {
	once.Do(func() {
		metrics = &Metrics{
			eventsObserved: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "stakewatch_events_observed_total",
				Help: "Total number of raw events returned by polling",
			}),
			messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "stakewatch_messages_sent_total",
				Help: "Total number of notifications delivered to channels",
			}),
			messagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "stakewatch_messages_dropped_total",
				Help: "Total number of messages dropped (dedup or enrichment failure)",
			}),
			reinits: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "stakewatch_reinits_total",
				Help: "Total number of pipeline reinitializations",
			}),
			errors: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "stakewatch_errors_total",
				Help: "Total number of errors encountered",
			}),
		}
		prometheus.MustRegister(
			metrics.eventsObserved,
			metrics.messagesSent,
			metrics.messagesDropped,
			metrics.reinits,
			metrics.errors,
		)
	})
	return metrics
}

// EventsObserved adds to the observed events counter.
func (m *Metrics) EventsObserved(n int) {
	if m != nil {
		m.eventsObserved.Add(float64(n))
	}
}

// MessagesSent increments the sent counter.
func (m *Metrics) MessagesSent() {
	if m != nil {
		m.messagesSent.Inc()
	}
}

// MessagesDropped increments the dropped counter.
func (m *Metrics) MessagesDropped() {
	if m != nil {
		m.messagesDropped.Inc()
	}
}

// Reinits increments the reinitialization counter.
func (m *Metrics) Reinits() {
	if m != nil {
		m.reinits.Inc()
	}
}

// Errors increments the errors counter.
func (m *Metrics) Errors() {
	if m != nil {
		m.errors.Inc()
	}
}

// Handler returns an HTTP handler for /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
