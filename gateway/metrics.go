// Package gateway provides the provider-neutral envelope and middleware.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var requestTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cloudemu_requests_total",
		Help: "Dispatched requests by provider, service and status code.",
	},
	[]string{"provider", "service", "code"},
)

// MetricsHandler serves the default registry; the AWS listener mounts it
// at /-/metrics.
func MetricsHandler() http.Handler { return promhttp.Handler() }
