// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values for dispatcher runs.
const (
	OutcomeOK        = "ok"
	OutcomeFailed    = "failed"
	OutcomeUnknown   = "unknown_command"
	OutcomeForbidden = "forbidden"
)

// sourceUnresolved labels runs whose command name matched nothing.
const sourceUnresolved = "unresolved"

// Runs counts dispatcher runs. source is the extension that registered the
// command, empty for built-ins.
var Runs = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "plugincall_dispatcher_runs_total",
		Help: "Commands run through the dispatcher, by command, source and outcome",
	},
	[]string{"command", "source", "outcome"},
)

// RunSeconds observes dispatcher run latency, including role checks.
var RunSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "plugincall_dispatcher_run_seconds",
		Help:    "Wall time of a dispatcher run",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"command", "source"},
)

// RegisterMetrics adds the dispatcher collectors to reg. It panics on
// duplicate registration.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Runs, RunSeconds)
}

func observeRun(command, source string, err error, took time.Duration) {
	Runs.WithLabelValues(command, source, outcomeOf(err)).Inc()
	RunSeconds.WithLabelValues(command, source).Observe(took.Seconds())
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case HasCode(err, CodeUnknownCommand):
		return OutcomeUnknown
	case HasCode(err, CodePermissionDenied):
		return OutcomeForbidden
	default:
		return OutcomeFailed
	}
}
