package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline run outcomes: done or failed.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vigia",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vigia",
			Subsystem: "pipeline",
			Name:      "alerts_total",
			Help:      "Total alerts raised by risk label",
		},
		[]string{"label"},
	)

	ClassificationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vigia",
			Subsystem: "classifier",
			Name:      "classification_duration_seconds",
			Help:      "Judgment service round trip duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	RepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vigia",
			Subsystem: "classifier",
			Name:      "replies_total",
			Help:      "Classifier verdicts by label, unparsable replies included",
		},
		[]string{"label"},
	)
)
