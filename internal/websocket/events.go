// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

package websocket

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/geopulse/internal/logging"
	"github.com/tomtom215/geopulse/internal/metrics"
	"github.com/tomtom215/geopulse/internal/models"
	"github.com/tomtom215/geopulse/internal/validation"
)

// handleEvent dispatches one inbound event. Runs on the client's read
// goroutine, so handlers for different clients execute concurrently; the
// tracker and weather provider are safe for that. A malformed or unknown
// event gets a private error ack - the connection, the session, and the
// peers are never affected.
func (h *Hub) handleEvent(c *Client, event models.Event) {
	metrics.EventsReceived.WithLabelValues(event.Type).Inc()

	switch event.Type {
	case models.EventLocationUpdate:
		h.handleLocationUpdate(c, event)
	case models.EventFeatureUsed:
		h.handleFeatureUsed(c, event)
	case models.EventDeviceConnected:
		h.relayToPeers(c, event, models.EventDeviceJoined, &models.DeviceConnectedPayload{})
	case models.EventDeviceDisconnect:
		h.relayToPeers(c, event, models.EventDeviceLeft, &models.DeviceDisconnectedPayload{})
	case models.EventDeviceStatus:
		h.relayToPeers(c, event, models.EventDeviceStatusUpdate, &models.DeviceStatusPayload{})
	case models.EventRequestEnviroData:
		h.handleEnvironmentalRequest(c, event)
	case models.EventPing:
		c.enqueue(models.Event{Type: models.EventPong})
	default:
		metrics.EventsDropped.WithLabelValues("unknown_type").Inc()
		c.sendError(event.Type, "unknown event type")
	}
}

// decodePayload unmarshals and validates an event payload. On failure the
// sender gets an error ack and the event is dropped.
func (h *Hub) decodePayload(c *Client, event models.Event, dst any) bool {
	if err := json.Unmarshal(event.Data, dst); err != nil {
		metrics.EventsDropped.WithLabelValues("malformed").Inc()
		c.sendError(event.Type, "malformed payload")
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		metrics.EventsDropped.WithLabelValues("malformed").Inc()
		c.sendError(event.Type, verr.Error())
		return false
	}
	return true
}

// handleLocationUpdate is the hot path: validate, enrich with an
// environmental reading, persist, fan out to peers, ack the sender.
// Enrichment never fails - the provider falls back to a synthetic reading
// - so the update always reaches the peers.
func (h *Hub) handleLocationUpdate(c *Client, event models.Event) {
	var payload models.LocationUpdatePayload
	if !h.decodePayload(c, event, &payload) {
		return
	}

	ctx := context.Background()
	reading := h.weather.Current(ctx, payload.Latitude, payload.Longitude)

	h.tracker.RecordLocation(ctx, c.socketID, payload, reading)

	broadcast, err := models.NewEvent(models.EventUserLocationUpdate, models.UserLocationBroadcast{
		SocketID:      c.socketID,
		Latitude:      payload.Latitude,
		Longitude:     payload.Longitude,
		Accuracy:      payload.Accuracy,
		Altitude:      payload.Altitude,
		Speed:         payload.Speed,
		Timestamp:     payload.Timestamp,
		Environmental: reading,
	})
	if err != nil {
		logging.Error().Err(err).Msg("failed to encode location broadcast")
		return
	}
	h.BroadcastExcept(broadcast, c)

	ack, err := models.NewEvent(models.EventLocationReceived, models.LocationReceivedAck{
		Status:        "ok",
		Timestamp:     time.Now().UnixMilli(),
		Environmental: &reading,
	})
	if err != nil {
		return
	}
	c.enqueue(ack)
}

func (h *Hub) handleFeatureUsed(c *Client, event models.Event) {
	var payload models.FeatureUsedPayload
	if !h.decodePayload(c, event, &payload) {
		return
	}
	h.tracker.ApplyFeatureToggle(context.Background(), c.socketID, payload.Feature)
}

func (h *Hub) handleEnvironmentalRequest(c *Client, event models.Event) {
	var payload models.EnvironmentalRequestPayload
	if !h.decodePayload(c, event, &payload) {
		return
	}

	reading := h.weather.Current(context.Background(), payload.Latitude, payload.Longitude)
	response, err := models.NewEvent(models.EventEnvironmentalData, reading)
	if err != nil {
		return
	}
	c.enqueue(response)
}

// relayToPeers validates a payload and rebroadcasts it to everyone except
// the sender under the server-side event type. The payload passes through
// unchanged; only the envelope tag is rewritten.
func (h *Hub) relayToPeers(c *Client, event models.Event, outType string, dst any) {
	if !h.decodePayload(c, event, dst) {
		return
	}
	out, err := models.NewEvent(outType, dst)
	if err != nil {
		return
	}
	h.BroadcastExcept(out, c)
}
