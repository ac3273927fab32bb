package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attribution_events_processed_total",
		Help: "Total number of events processed, labelled by trust action.",
	}, []string{"action"})

	EventsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attribution_events_rejected_total",
		Help: "Total number of malformed events discarded before evaluation.",
	})

	DispatchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attribution_dispatch_outcomes_total",
		Help: "Total number of platform dispatch outcomes, labelled by platform and result.",
	}, []string{"platform", "result"})

	OracleFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attribution_oracle_fallbacks_total",
		Help: "Total number of events scored with the oracle-unavailable fallback.",
	})

	ProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "attribution_event_processing_duration_ms",
		Help:    "End-to-end event processing latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
)
