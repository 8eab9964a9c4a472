// Package metrics exports protocol activity as prometheus counters.
package metrics

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nm-morais/go-por/pkg/errors"
	"github.com/nm-morais/go-por/pkg/message"
	"github.com/nm-morais/go-por/pkg/peer"
	"github.com/nm-morais/go-por/pkg/schema"
)

const namespace = "por"

// Metrics owns its registry so several nodes can run in one process.
type Metrics struct {
	Registry *prometheus.Registry

	processed    *prometheus.CounterVec
	sent         *prometheus.CounterVec
	decodeErrors *prometheus.CounterVec
	roundTrip    prometheus.Histogram
	sendFailures prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		processed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_processed_total",
				Help:      "Messages dispatched by the handler, by kind.",
			},
			[]string{"kind"},
		),
		sent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_sent_total",
				Help:      "Messages handed to the transport, by kind.",
			},
			[]string{"kind"},
		),
		decodeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decode_errors_total",
				Help:      "Inbound payloads dropped because they did not decode, by reason.",
			},
			[]string{"reason"},
		),
		roundTrip: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "probe_round_trip_seconds",
				Help:      "Time between issuing a Request and receiving its Response.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
		),
		sendFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "send_failures_total",
				Help:      "Outbound messages the transport could not deliver.",
			},
		),
	}
	m.Registry.MustRegister(m.processed, m.sent, m.decodeErrors, m.roundTrip, m.sendFailures)
	return m
}

// Handler exposes the registry. Mount it with mux.Handle("/metrics", m.Handler()).
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) MessageProcessed(_ peer.Peer, msg message.Message) {
	m.processed.WithLabelValues(msg.Type().String()).Inc()
}

func (m *Metrics) MessageSent(_ peer.Peer, msg message.Message) {
	m.sent.WithLabelValues(msg.Type().String()).Inc()
}

func (m *Metrics) DecodeFailed(_ peer.Peer, err error) {
	m.decodeErrors.WithLabelValues(Reason(err)).Inc()
}

func (m *Metrics) ObserveRoundTrip(d time.Duration) {
	m.roundTrip.Observe(d.Seconds())
}

func (m *Metrics) SendFailed() {
	m.sendFailures.Inc()
}

// Reason maps a decode error to a low-cardinality label.
func Reason(err error) string {
	var decodeErr *errors.DecodeError
	switch {
	case stderrors.Is(err, schema.ErrMissingField):
		return "missing_field"
	case stderrors.Is(err, schema.ErrNoResponseType):
		return "no_response_type"
	case stderrors.Is(err, schema.ErrMultipleResponseTypes):
		return "multiple_response_types"
	case stderrors.As(err, &decodeErr):
		return decodeErr.Kind.String()
	default:
		return "other"
	}
}
