package fsm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transition outcomes, used as metric labels.
const (
	outcomeSuccess           = "success"
	outcomeError             = "error"
	outcomeInvalidState      = "invalid_state"
	outcomeInvalidTransition = "invalid_transition"
	outcomeGuardRejected     = "guard_rejected"
	outcomeGuardError        = "guard_error"
	outcomeActionError       = "action_error"

	// unknownLabel stands in for names that are not part of a definition.
	unknownLabel = "unknown"
)

var (
	// transitionsTotal counts transition attempts by machine, edge and outcome.
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "fsm_transitions_total",
		Help: "Total number of state transitions attempted by machine, from, to and outcome",
	}, []string{"machine", "from", "to", "outcome"})

	// transitionDuration tracks the time spent in guard and actions per transition.
	transitionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{ //nolint:gochecknoglobals
		Name:    "fsm_transition_duration_seconds",
		Help:    "Duration of state transitions by machine and outcome",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}, []string{"machine", "outcome"})

	// guardEvaluations counts guard verdicts by machine and guarded state.
	guardEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "fsm_guard_evaluations_total",
		Help: "Total number of guard evaluations by machine, state and verdict",
	}, []string{"machine", "state", "verdict"})

	// definitionsBuilt counts calls to Builder.Build by outcome.
	definitionsBuilt = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "fsm_definitions_built_total",
		Help: "Total number of state machine definitions built by machine and outcome",
	}, []string{"machine", "outcome"})
)

func sanitizeMachine(name string) string {
	if name == "" {
		return unknownLabel
	}

	return name
}

func recordTransition(machine, from, to, outcome string, elapsed time.Duration) {
	machine = sanitizeMachine(machine)

	transitionsTotal.WithLabelValues(machine, from, to, outcome).Inc()
	transitionDuration.WithLabelValues(machine, outcome).Observe(elapsed.Seconds())
}

func recordGuard(machine, state string, allowed bool, err error) {
	verdict := "allowed"

	switch {
	case err != nil:
		verdict = outcomeError
	case !allowed:
		verdict = "rejected"
	}

	guardEvaluations.WithLabelValues(sanitizeMachine(machine), state, verdict).Inc()
}

func recordBuild(machine string, err error) {
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
	}

	definitionsBuilt.WithLabelValues(sanitizeMachine(machine), outcome).Inc()
}
