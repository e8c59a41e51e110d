// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package stats tracks request totals for the hopen file server and
// exposes them as plain text, JSON and Prometheus metrics.
package stats

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace used for Prometheus metrics.
const MetricNamespace = "hopen"
const MetricSubsystem = "server"

var (
	registry = prometheus.NewRegistry()

	requestsServed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNamespace,
			Subsystem: MetricSubsystem,
			Name:      "requests_total",
			Help:      "The number of requests served, by status code.",
		},
		[]string{"code"},
	)
	bytesServed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNamespace,
			Subsystem: MetricSubsystem,
			Name:      "response_bytes_total",
			Help:      "The number of response body bytes written.",
		},
	)
)

func init() {
	registry.MustRegister(
		requestsServed,
		bytesServed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		versioncollector.NewCollector(MetricNamespace),
	)
}

func observe(status int, bc int64) {
	requestsServed.WithLabelValues(strconv.Itoa(status)).Inc()
	if bc > 0 {
		bytesServed.Add(float64(bc))
	}
}

// MetricsHandler returns the Prometheus exposition handler.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
