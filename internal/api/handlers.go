// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/geopulse/internal/config"
	"github.com/tomtom215/geopulse/internal/logging"
	"github.com/tomtom215/geopulse/internal/models"
	"github.com/tomtom215/geopulse/internal/store"
	"github.com/tomtom215/geopulse/internal/tracker"
	"github.com/tomtom215/geopulse/internal/validation"
	"github.com/tomtom215/geopulse/internal/weather"
	"github.com/tomtom215/geopulse/internal/websocket"
)

// Handler holds the dependencies of every HTTP endpoint.
type Handler struct {
	cfg     *config.Config
	tracker *tracker.Tracker
	weather *weather.Provider
	hub     *websocket.Hub
	store   *store.Store
}

// NewHandler creates the API handler set.
func NewHandler(cfg *config.Config, tr *tracker.Tracker, wp *weather.Provider, hub *websocket.Hub, s *store.Store) *Handler {
	return &Handler{cfg: cfg, tracker: tr, weather: wp, hub: hub, store: s}
}

// healthResponse is the GET /api/health body.
type healthResponse struct {
	Status           string `json:"status"`
	StoreAvailable   bool   `json:"store_available"`
	WeatherMode      string `json:"weather_mode"`
	ConnectedClients int    `json:"connected_clients"`
}

// Health reports liveness plus a thin view of the degradable parts.
// Always 200: a degraded store or synthetic-only weather still serves.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	mode := "live"
	if h.cfg.Weather.APIKey == "" {
		mode = "synthetic"
	}
	respondJSON(w, http.StatusOK, healthResponse{
		Status:           "ok",
		StoreAvailable:   h.store.Available(),
		WeatherMode:      mode,
		ConnectedClients: h.hub.ClientCount(),
	})
}

// locationResponse is the POST /api/location body.
type locationResponse struct {
	Status        string                       `json:"status"`
	Location      models.LocationUpdatePayload `json:"location"`
	Environmental models.Reading               `json:"environmental"`
	Timestamp     int64                        `json:"timestamp"`
}

// IngestLocation accepts a one-shot location over plain HTTP, enriches it,
// and echoes it back. No session is involved; this is the REST sibling of
// the websocket locationUpdate for clients that cannot hold a socket open.
func (h *Handler) IngestLocation(w http.ResponseWriter, r *http.Request) {
	var payload models.LocationUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON")
		return
	}
	if verr := validation.ValidateStruct(&payload); verr != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error())
		return
	}

	reading := h.weather.Current(r.Context(), payload.Latitude, payload.Longitude)
	respondJSON(w, http.StatusOK, locationResponse{
		Status:        "ok",
		Location:      payload,
		Environmental: reading,
		Timestamp:     time.Now().UnixMilli(),
	})
}

// AdminAnalytics returns the aggregate counts across every session the
// store has seen. 503 when persistence is disabled - there is nothing to
// aggregate.
func (h *Handler) AdminAnalytics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tracker.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "analytics store is not available")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// upgrader builds the websocket upgrader. Origins follow the CORS
// configuration; "*" disables the check.
func (h *Handler) upgrader() gorillaws.Upgrader {
	return gorillaws.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.Server.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// WebSocket upgrades the connection and hands it to the hub. Each
// connection gets a fresh socket identifier; the hub opens the tracking
// session during registration.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn, uuid.NewString(), r.UserAgent(), r.RemoteAddr)
	h.hub.Register <- client
	client.Start()
}
