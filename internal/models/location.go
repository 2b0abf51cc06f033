// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

package models

import "time"

// Coordinates is a latitude/longitude pair with the optional fields a
// browser geolocation fix can carry. Speed is in m/s as reported by the
// client; conversion to km/h happens in the analytics aggregate.
type Coordinates struct {
	Latitude  float64  `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64  `json:"longitude" validate:"min=-180,max=180"`
	Accuracy  *float64 `json:"accuracy,omitempty" validate:"omitempty,min=0"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Speed     *float64 `json:"speed,omitempty" validate:"omitempty,min=0"`
}

// SpeedValue returns the reported speed in m/s, or 0 when absent.
func (c Coordinates) SpeedValue() float64 {
	if c.Speed == nil {
		return 0
	}
	return *c.Speed
}

// LocationRecord is one persisted location update, linked to a session by
// its identifier. Records are immutable once written and never pruned.
type LocationRecord struct {
	SessionID     string      `json:"session_id"`
	SocketID      string      `json:"socket_id"`
	Coordinates   Coordinates `json:"coordinates"`
	Environmental Reading     `json:"environmental"`
	Timestamp     time.Time   `json:"timestamp"`
}
