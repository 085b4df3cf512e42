package fsm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
	outcomeStale   = "stale"
	outcomeTimeout = "timeout"
)

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_transitions_total",
		Help: "Total number of state changes by machine, from state, to state and event",
	}, []string{"machine", "from", "to", "event"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_errors_total",
		Help: "Total number of contained errors by machine and error code",
	}, []string{"machine", "code"})

	// JobsTotal counts settled jobs, including the ones discarded as stale.
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_jobs_total",
		Help: "Total number of jobs by machine, state and outcome (success, error, stale or timeout)",
	}, []string{"machine", "state", "outcome"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fsm_job_duration_seconds",
		Help:    "Duration of state jobs by machine and state",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"machine", "state"})

	machinesActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fsm_machines_active",
		Help: "Number of started machines that have not stopped yet",
	}, []string{"machine"})
)

func sanitizeMachine(name string) string {
	if name == "" {
		return "unnamed"
	}

	return name
}
