package metrics

import "github.com/prometheus/client_golang/prometheus"

// Card extraction Prometheus metrics.
var (
	ExtractionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardex",
			Name:      "extraction_requests_total",
			Help:      "Total number of card extraction requests",
		},
		[]string{"model", "status"},
	)

	ExtractionRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cardex",
			Name:      "extraction_request_duration_seconds",
			Help:      "Card extraction request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	ExtractionTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardex",
			Name:      "extraction_tokens_total",
			Help:      "Total vision tokens consumed by card extraction",
		},
		[]string{"model", "type"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardex",
			Name:      "search_requests_total",
			Help:      "Total number of contact searches by retrieval path",
		},
		[]string{"path"}, // "vector" / "text_fallback"
	)
)

var extMetricsRegistered bool

// RegisterExtractionMetrics registers Prometheus extraction and search metrics. Must be called once from main.
func RegisterExtractionMetrics() {
	if extMetricsRegistered {
		return
	}
	prometheus.MustRegister(ExtractionRequestsTotal)
	prometheus.MustRegister(ExtractionRequestDuration)
	prometheus.MustRegister(ExtractionTokensTotal)
	prometheus.MustRegister(SearchRequestsTotal)
	extMetricsRegistered = true
}
