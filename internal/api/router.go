// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

// Package api provides the HTTP surface: location ingestion, admin
// analytics, health, the websocket upgrade endpoint, and Prometheus
// metrics, routed with Chi.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/geopulse/internal/config"
	"github.com/tomtom215/geopulse/internal/middleware"
)

// Router assembles the route table around a handler set.
type Router struct {
	cfg     *config.Config
	handler *Handler
}

// NewRouter creates a Router.
func NewRouter(cfg *config.Config, handler *Handler) *Router {
	return &Router{cfg: cfg, handler: handler}
}

// Setup builds the Chi handler tree.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rt.cfg.Server.RateLimit, rt.cfg.Server.RateWindow))
		r.Use(middleware.PrometheusMetrics)

		r.Get("/health", rt.handler.Health)
		r.Post("/location", rt.handler.IngestLocation)
		r.Get("/ws", rt.handler.WebSocket)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rt.cfg.Server.RateLimit, rt.cfg.Server.RateWindow))
		r.Use(middleware.PrometheusMetrics)

		r.Get("/analytics", rt.handler.AdminAnalytics)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
