// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

package models

import "github.com/goccy/go-json"

// Client-to-server event types.
const (
	EventLocationUpdate    = "locationUpdate"
	EventFeatureUsed       = "feature-used"
	EventDeviceConnected   = "device-connected"
	EventDeviceDisconnect  = "device-disconnected"
	EventDeviceStatus      = "device-status"
	EventRequestEnviroData = "request-environmental-data"
	EventPing              = "ping"
)

// Server-to-client event types.
const (
	EventUserLocationUpdate = "user-location-update"
	EventEnvironmentalData  = "environmental-data"
	EventLocationReceived   = "location-received"
	EventDeviceJoined       = "device-joined"
	EventDeviceLeft         = "device-left"
	EventDeviceStatusUpdate = "device-status-update"
	EventUserDisconnected   = "user-disconnected"
	EventError              = "error"
	EventPong               = "pong"
)

// Event is the wire envelope for every realtime message in either
// direction: a tag plus a payload whose schema is fixed per tag. Payloads
// are validated at the channel boundary before they reach the tracker.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// LocationUpdatePayload is the client's locationUpdate event body.
// Timestamp is client-supplied unix milliseconds.
type LocationUpdatePayload struct {
	Latitude  float64  `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64  `json:"longitude" validate:"min=-180,max=180"`
	Accuracy  *float64 `json:"accuracy,omitempty" validate:"omitempty,min=0"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Speed     *float64 `json:"speed,omitempty" validate:"omitempty,min=0"`
	Timestamp int64    `json:"timestamp" validate:"min=0"`
}

// Coordinates converts the payload into the persisted coordinate tuple.
func (p LocationUpdatePayload) Coordinates() Coordinates {
	return Coordinates{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Accuracy:  p.Accuracy,
		Altitude:  p.Altitude,
		Speed:     p.Speed,
	}
}

// FeatureUsedPayload is the client's feature-used event body.
type FeatureUsedPayload struct {
	Feature string `json:"feature" validate:"required"`
}

// DeviceConnectedPayload announces a device to peers.
type DeviceConnectedPayload struct {
	DeviceID   string `json:"deviceId" validate:"required"`
	DeviceName string `json:"deviceName,omitempty"`
}

// DeviceDisconnectedPayload announces a device leaving.
type DeviceDisconnectedPayload struct {
	DeviceID string `json:"deviceId" validate:"required"`
}

// DeviceStatusPayload carries a free-form device status relayed to peers.
type DeviceStatusPayload struct {
	DeviceID string  `json:"deviceId" validate:"required"`
	Status   string  `json:"status,omitempty"`
	Battery  *int    `json:"battery,omitempty" validate:"omitempty,min=0,max=100"`
	Signal   *string `json:"signal,omitempty"`
}

// EnvironmentalRequestPayload asks for a reading at a coordinate.
type EnvironmentalRequestPayload struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

// UserLocationBroadcast is the enriched update fanned out to peers.
type UserLocationBroadcast struct {
	SocketID      string   `json:"socketId"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	Accuracy      *float64 `json:"accuracy,omitempty"`
	Altitude      *float64 `json:"altitude,omitempty"`
	Speed         *float64 `json:"speed,omitempty"`
	Timestamp     int64    `json:"timestamp"`
	Environmental Reading  `json:"environmental"`
}

// LocationReceivedAck is the private acknowledgment to the sender.
type LocationReceivedAck struct {
	Status        string   `json:"status"`
	Timestamp     int64    `json:"timestamp"`
	Environmental *Reading `json:"environmental,omitempty"`
}

// UserDisconnectedBroadcast notifies peers that a socket went away.
type UserDisconnectedBroadcast struct {
	SocketID string `json:"socketId"`
}

// ErrorAck is the best-effort error acknowledgment for malformed events.
// It goes to the sender only; peers and sessions are unaffected.
type ErrorAck struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

// NewEvent marshals data into an envelope with the given tag.
func NewEvent(eventType string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Data: raw}, nil
}
