// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugincall

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for execution metrics.
const (
	OutcomeSuccess = "success"
)

// Executions counts plugin call executions by call name and outcome.
var Executions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "plugincall_executions_total",
		Help: "Total number of plugin call executions",
	},
	[]string{"call", "outcome"},
)

// Duration observes the wall time of plugin call executions.
var Duration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "plugincall_execution_duration_seconds",
		Help:    "Plugin call execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"call"},
)

// RegisterMetrics registers plugin call metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Executions)
	reg.MustRegister(Duration)
}

// RecordExecution increments the execution counter.
func RecordExecution(call, outcome string) {
	Executions.WithLabelValues(call, outcome).Inc()
}

// RecordDuration observes one execution's duration.
func RecordDuration(call string, d time.Duration) {
	Duration.WithLabelValues(call).Observe(d.Seconds())
}

func outcomeOf(err error) string {
	code := FailureCode(err)
	if code == "" {
		return "error"
	}
	return strings.ToLower(code)
}
