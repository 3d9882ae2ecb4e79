package mailbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
	outcomePanic = "panic"
)

var (
	// processed counts requests handled by the loop, by outcome.
	processed = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "fsm_mailbox_processed_total",
		Help: "Total number of mailbox requests processed by subsystem, mailbox and outcome",
	}, []string{"subsystem", "mailbox", "outcome"})

	// depth is the number of requests waiting in the inbox.
	depth = promauto.NewGaugeVec(prometheus.GaugeOpts{ //nolint:gochecknoglobals
		Name: "fsm_mailbox_depth",
		Help: "Number of requests waiting in the mailbox",
	}, []string{"subsystem", "mailbox"})

	// alive is the number of running mailbox loops.
	alive = promauto.NewGaugeVec(prometheus.GaugeOpts{ //nolint:gochecknoglobals
		Name: "fsm_mailbox_alive",
		Help: "Number of running mailbox loops",
	}, []string{"subsystem", "mailbox"})
)
