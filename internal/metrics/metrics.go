// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

// Package metrics exposes Prometheus instrumentation for the tracking
// pipeline: realtime channel activity, persistence outcomes, environmental
// provider health, and API latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Realtime channel metrics
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "geopulse_connected_clients",
			Help: "Current number of connected WebSocket clients",
		},
	)

	SessionsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geopulse_sessions_opened_total",
			Help: "Total number of tracking sessions opened",
		},
	)

	SessionsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geopulse_sessions_closed_total",
			Help: "Total number of tracking sessions closed",
		},
	)

	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geopulse_events_received_total",
			Help: "Total realtime events received, by event type",
		},
		[]string{"type"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geopulse_events_dropped_total",
			Help: "Total realtime events dropped, by reason",
		},
		[]string{"reason"}, // "no_session", "malformed", "unknown_type", "slow_client"
	)

	BroadcastsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geopulse_broadcasts_sent_total",
			Help: "Total messages fanned out to peer clients",
		},
	)

	// Persistence metrics
	LocationRecordsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geopulse_location_records_written_total",
			Help: "Total location records appended to the store",
		},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geopulse_store_errors_total",
			Help: "Total store operation failures, by operation",
		},
		[]string{"operation"},
	)

	// Environmental provider metrics
	WeatherRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geopulse_weather_requests_total",
			Help: "Total environmental data requests, by outcome",
		},
		[]string{"outcome"}, // "live", "cached", "synthetic"
	)

	WeatherFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geopulse_weather_failures_total",
			Help: "Total live weather call failures, by cause",
		},
		[]string{"cause"}, // "auth", "rate_limit", "network", "decode", "breaker_open"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "geopulse_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geopulse_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geopulse_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)
