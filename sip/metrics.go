package sip

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors of the ingestion pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ActiveCalls     prometheus.Gauge
	Framed          prometheus.Counter
	Delivered       prometheus.Counter
	Dropped         *prometheus.CounterVec
	FramingErrors   prometheus.Counter
	KeepAlives      prometheus.Counter
	DispatchLatency prometheus.Histogram
}

// Drop reasons used as the "reason" label of [Metrics.Dropped].
const (
	dropGateTimeout   = "gate_timeout"
	dropParseError    = "parse_error"
	dropConsumerError = "consumer_error"
	dropClosed        = "closed"
)

// NewMetrics creates the collectors and registers them with reg.
// If reg is nil, the collectors are not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ActiveCalls: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "sipingest",
			Name:      "active_calls",
			Help:      "Number of calls with queued messages",
		}),
		Framed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "sipingest",
			Name:      "framed_messages_total",
			Help:      "Total number of framed messages",
		}),
		Delivered: f.NewCounter(prometheus.CounterOpts{
			Namespace: "sipingest",
			Name:      "delivered_messages_total",
			Help:      "Total number of messages delivered to the consumer",
		}),
		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sipingest",
			Name:      "dropped_messages_total",
			Help:      "Total number of dropped messages",
		}, []string{"reason"}),
		FramingErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "sipingest",
			Name:      "framing_errors_total",
			Help:      "Total number of streams closed because of framing errors",
		}),
		KeepAlives: f.NewCounter(prometheus.CounterOpts{
			Namespace: "sipingest",
			Name:      "keepalives_total",
			Help:      "Total number of answered keep-alive pings",
		}),
		DispatchLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sipingest",
			Name:      "dispatch_latency_seconds",
			Help:      "Time from dispatch to the end of delivery",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 20),
		}),
	}
}

func (m *Metrics) callOpened() {
	if m != nil {
		m.ActiveCalls.Inc()
	}
}

func (m *Metrics) callsClosed(n int) {
	if m != nil {
		m.ActiveCalls.Sub(float64(n))
	}
}

func (m *Metrics) framed() {
	if m != nil {
		m.Framed.Inc()
	}
}

func (m *Metrics) delivered(since time.Time) {
	if m != nil {
		m.Delivered.Inc()
		m.DispatchLatency.Observe(time.Since(since).Seconds())
	}
}

func (m *Metrics) dropped(reason string) {
	if m != nil {
		m.Dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) framingError() {
	if m != nil {
		m.FramingErrors.Inc()
	}
}

func (m *Metrics) keepAlive() {
	if m != nil {
		m.KeepAlives.Inc()
	}
}
