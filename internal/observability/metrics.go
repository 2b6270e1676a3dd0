package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects runtime metrics for monitoring and alerting.
type Metrics struct {
	// MessageCounter tracks canonical messages by channel and direction.
	// Labels: channel, direction (inbound|outbound)
	MessageCounter *prometheus.CounterVec

	// ProviderRequestDuration measures provider call latency in seconds.
	// Labels: provider, model
	ProviderRequestDuration *prometheus.HistogramVec

	// ProviderRequestCounter counts provider requests.
	// Labels: provider, model, status (success|error)
	ProviderRequestCounter *prometheus.CounterVec

	// ProviderTokensUsed tracks token consumption.
	// Labels: provider, model, type (prompt|completion)
	ProviderTokensUsed *prometheus.CounterVec

	// BusyRejections counts ConversationBusy rejections by channel.
	BusyRejections *prometheus.CounterVec

	// ActiveGenerations gauges in-flight generations by channel.
	ActiveGenerations *prometheus.GaugeVec

	// RetrievalFailures counts swallowed knowledge-retrieval errors.
	RetrievalFailures prometheus.Counter

	// CancelledGenerations counts generations stopped by an explicit cancel.
	CancelledGenerations prometheus.Counter
}

// NewMetrics creates and registers runtime metrics on the given registerer.
// Passing nil registers on the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promautoWith(reg)

	return &Metrics{
		MessageCounter: factory.counterVec(prometheus.CounterOpts{
			Namespace: "linkai",
			Name:      "messages_total",
			Help:      "Canonical messages processed by channel and direction.",
		}, []string{"channel", "direction"}),

		ProviderRequestDuration: factory.histogramVec(prometheus.HistogramOpts{
			Namespace: "linkai",
			Name:      "provider_request_duration_seconds",
			Help:      "Language-model provider call latency.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider", "model"}),

		ProviderRequestCounter: factory.counterVec(prometheus.CounterOpts{
			Namespace: "linkai",
			Name:      "provider_requests_total",
			Help:      "Language-model provider requests by outcome.",
		}, []string{"provider", "model", "status"}),

		ProviderTokensUsed: factory.counterVec(prometheus.CounterOpts{
			Namespace: "linkai",
			Name:      "provider_tokens_total",
			Help:      "Token consumption by provider, model and type.",
		}, []string{"provider", "model", "type"}),

		BusyRejections: factory.counterVec(prometheus.CounterOpts{
			Namespace: "linkai",
			Name:      "conversation_busy_total",
			Help:      "Requests rejected because a generation was already in flight.",
		}, []string{"channel"}),

		ActiveGenerations: factory.gaugeVec(prometheus.GaugeOpts{
			Namespace: "linkai",
			Name:      "active_generations",
			Help:      "Generations currently in flight.",
		}, []string{"channel"}),

		RetrievalFailures: factory.counter(prometheus.CounterOpts{
			Namespace: "linkai",
			Name:      "retrieval_failures_total",
			Help:      "Knowledge-retrieval errors degraded to no augmentation.",
		}),

		CancelledGenerations: factory.counter(prometheus.CounterOpts{
			Namespace: "linkai",
			Name:      "cancelled_generations_total",
			Help:      "Generations stopped by an explicit cancel.",
		}),
	}
}

// factory mirrors promauto but against an explicit registerer, so tests can
// use private registries without collisions.
type factory struct {
	reg prometheus.Registerer
}

func promautoWith(reg prometheus.Registerer) factory {
	return factory{reg: reg}
}

func (f factory) counter(opts prometheus.CounterOpts) prometheus.Counter {
	c := prometheus.NewCounter(opts)
	f.reg.MustRegister(c)
	return c
}

func (f factory) counterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	f.reg.MustRegister(c)
	return c
}

func (f factory) gaugeVec(opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	g := prometheus.NewGaugeVec(opts, labels)
	f.reg.MustRegister(g)
	return g
}

func (f factory) histogramVec(opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(opts, labels)
	f.reg.MustRegister(h)
	return h
}
