// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/plugincall/internal/jsonrpc"
)

// OutcomeSuccess labels requests answered with a result.
const OutcomeSuccess = "success"

// methodUnknown labels requests that never resolved to a registered method.
const methodUnknown = "unknown"

var (
	gatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plugincall_gateway_requests_total",
			Help: "Total number of gateway requests by method and outcome",
		},
		[]string{"method", "outcome"},
	)
	gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plugincall_gateway_request_duration_seconds",
			Help:    "Gateway request handling duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
	gatewayConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "plugincall_gateway_open_connections",
		Help: "Number of gateway connections currently open",
	})
)

// RegisterMetrics registers gateway metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(gatewayRequests, gatewayDuration, gatewayConnections)
}

func recordRequest(method string, resp *jsonrpc.Response, d time.Duration) {
	outcome := OutcomeSuccess
	if resp.IsError() {
		outcome = jsonrpc.CodeName(resp.Error.Code)
	}
	gatewayRequests.WithLabelValues(method, outcome).Inc()
	gatewayDuration.WithLabelValues(method).Observe(d.Seconds())
}
