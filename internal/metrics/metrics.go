// Package metrics holds the Prometheus collectors of the practice engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SchedulerTicks counts auto-session ticks by outcome.
	SchedulerTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lingodrill_scheduler_ticks_total",
		Help: "Auto-session ticks by outcome",
	}, []string{"outcome"})

	// GenerationDuration tracks how long a generate-and-validate round takes.
	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lingodrill_generation_duration_seconds",
		Help:    "Question generation latency including validation",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to 32s
	})

	// GateRejections counts rejected generator batches by reason.
	GateRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lingodrill_gate_rejections_total",
		Help: "Generated batches rejected by the validation gate",
	}, []string{"reason"})

	// SessionTransitions counts session state changes by target status.
	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lingodrill_session_transitions_total",
		Help: "Session state transitions by target status",
	}, []string{"status"})

	// AnswersRecorded counts answer submissions by result.
	AnswersRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lingodrill_answers_total",
		Help: "Answer submissions by result",
	}, []string{"result"})

	// SweepPurged counts rows removed by the retention sweep.
	SweepPurged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lingodrill_sweep_purged_total",
		Help: "Rows removed or expired by the retention sweep",
	}, []string{"kind"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
