package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the dashboard's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	correlationRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletdash",
			Subsystem: "correlation",
			Name:      "requests_total",
			Help:      "Correlated requests by outcome.",
		},
		[]string{"outcome"},
	)

	correlationPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "walletdash",
			Subsystem: "correlation",
			Name:      "pending",
			Help:      "Waiters currently awaiting a response.",
		},
	)

	correlationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "walletdash",
			Subsystem: "correlation",
			Name:      "duration_seconds",
			Help:      "Time from publish to settlement of correlated requests.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
	)

	inboundMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletdash",
			Subsystem: "inbound",
			Name:      "messages_total",
			Help:      "Inbound bus messages by category and result.",
		},
		[]string{"category", "result"},
	)

	busConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "walletdash",
			Subsystem: "bus",
			Name:      "connected",
			Help:      "1 while the broker connection is up.",
		},
	)
)

func init() {
	Registry.MustRegister(
		correlationRequests,
		correlationPending,
		correlationDuration,
		inboundMessages,
		busConnected,
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveCorrelation records a settled waiter.
func ObserveCorrelation(outcome string, seconds float64) {
	correlationRequests.WithLabelValues(outcome).Inc()
	correlationDuration.Observe(seconds)
}

func SetPending(n int) {
	correlationPending.Set(float64(n))
}

func RecordInbound(category, result string) {
	inboundMessages.WithLabelValues(category, result).Inc()
}

func SetConnected(up bool) {
	if up {
		busConnected.Set(1)
		return
	}
	busConnected.Set(0)
}
