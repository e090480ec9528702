package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for order submissions.
const (
	OutcomeSuccess  = "success"
	OutcomePartial  = "partial"
	OutcomeFallback = "fallback"
	OutcomeEmpty    = "empty"
)

// Metrics groups the storefront collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	cartMutations      *prometheus.CounterVec
	submissions        *prometheus.CounterVec
	lineAttachments    *prometheus.CounterVec
	submissionDuration prometheus.Histogram
	ingestionFailures  *prometheus.CounterVec
	transitions        *prometheus.CounterVec
}

// New registers the collectors on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		cartMutations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "tienda_cart_mutations_total",
			Help: "Cart mutations by operation",
		}, []string{"op"}),
		submissions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "tienda_order_submissions_total",
			Help: "Order submissions by outcome",
		}, []string{"outcome"}),
		lineAttachments: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "tienda_order_line_attachments_total",
			Help: "Line attachment requests by result",
		}, []string{"result"}),
		submissionDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "tienda_order_submission_duration_seconds",
			Help:    "Duration of the whole submission protocol",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ingestionFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "tienda_order_ingestion_failures_total",
			Help: "Order list payloads rejected by reason",
		}, []string{"reason"}),
		transitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "tienda_order_transitions_total",
			Help: "Order status transitions by operation and result",
		}, []string{"op", "result"}),
	}
}

func (m *Metrics) CartMutation(op string) {
	if m == nil {
		return
	}
	m.cartMutations.WithLabelValues(op).Inc()
}

func (m *Metrics) Submission(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	if outcome != OutcomeEmpty {
		m.submissionDuration.Observe(took.Seconds())
	}
}

func (m *Metrics) LineAttachment(ok bool) {
	if m == nil {
		return
	}
	m.lineAttachments.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) IngestionFailure(reason string) {
	if m == nil {
		return
	}
	m.ingestionFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) Transition(op string, ok bool) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(op, result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}
