package pipeline

import "github.com/prometheus/client_golang/prometheus"

var (
	strategyAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ttn_pipeline_strategy_total",
			Help: "Extraction strategy attempts by outcome",
		},
		[]string{"strategy", "outcome"},
	)

	recognitionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ttn_pipeline_duration_seconds",
			Help:    "Time spent recognizing a document, by the strategy that produced the result",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"strategy"},
	)
)

func init() {
	prometheus.MustRegister(strategyAttempts)
	prometheus.MustRegister(recognitionDuration)
}

const (
	outcomeHit      = "hit"
	outcomeEmpty    = "empty"
	outcomeRejected = "rejected"
)

func observeAttempt(strategy, outcome string) {
	strategyAttempts.WithLabelValues(strategy, outcome).Inc()
}
