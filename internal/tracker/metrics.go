// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package tracker

import "github.com/prometheus/client_golang/prometheus"

// inFlight reports the number of tracked plugin calls.
var inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "plugincall_tracked_calls",
	Help: "Number of plugin calls currently tracked for callbacks",
})

// RegisterMetrics registers tracker metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(inFlight)
}
