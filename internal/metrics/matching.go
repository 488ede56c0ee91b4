package metrics

import "github.com/prometheus/client_golang/prometheus"

// Matching, ingestion and LLM metrics.
var (
	MatchOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_outcomes_total",
			Help:      "Matching requests by final status",
		},
		[]string{"status"}, // accepted / fallback / not_found / error
	)

	MatchStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_stage_duration_seconds",
			Help:      "Duration of matching pipeline stages",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	MatchQuality = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_quality",
			Help:      "Match quality of re-ranked top candidates",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.75, 0.8, 0.9, 1},
		},
	)

	IngestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_total",
			Help:      "Document ingestions by result",
		},
		[]string{"origin", "result"}, // origin: upload/web, result: created/duplicate/error
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Chat completion requests by operation",
		},
		[]string{"operation", "model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Chat completion duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"operation", "model"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Chat completion tokens consumed",
		},
		[]string{"operation", "model", "type"},
	)

	WebSearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websearch_requests_total",
			Help:      "Web search and page fetch requests",
		},
		[]string{"operation", "status"},
	)
)

var matchMetricsRegistered bool

// RegisterMatchMetrics registers matching, ingestion and LLM metrics. Must be called once from main.
func RegisterMatchMetrics() {
	if matchMetricsRegistered {
		return
	}
	prometheus.MustRegister(MatchOutcomesTotal)
	prometheus.MustRegister(MatchStageDuration)
	prometheus.MustRegister(MatchQuality)
	prometheus.MustRegister(IngestTotal)
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(LLMTokensTotal)
	prometheus.MustRegister(WebSearchRequestsTotal)
	matchMetricsRegistered = true
}
