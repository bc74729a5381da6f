// Package metrics exposes Prometheus collectors for the conversation list
// engine.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels fetches whose response was committed.
	OutcomeSuccess = "success"
	// OutcomeError labels fetches rejected by the listing service.
	OutcomeError = "error"
	// OutcomeStale labels responses dropped because a newer fetch was issued.
	OutcomeStale = "stale"
)

var (
	fetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inboxq",
			Name:      "conversation_fetches_total",
			Help:      "Conversation list fetches, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	fetchDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "inboxq",
			Name:      "conversation_fetch_seconds",
			Help:      "Conversation list fetch latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	mutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inboxq",
			Name:      "session_mutations_total",
			Help:      "Session mutations, partitioned by operation.",
		},
		[]string{"op"},
	)
)

// Register attaches the collectors to reg. Registering twice is not an error.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		fetchesTotal,
		fetchDurationSeconds,
		mutationsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveFetch records one fetch duration and its outcome.
func ObserveFetch(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeSuccess, OutcomeError, OutcomeStale:
	default:
		outcome = OutcomeError
	}
	fetchesTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	fetchDurationSeconds.Observe(duration.Seconds())
}

// CountMutation increments the counter for a session operation.
func CountMutation(op string) {
	mutationsTotal.WithLabelValues(op).Inc()
}
