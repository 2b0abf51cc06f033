// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

package models

import (
	"time"

	"github.com/tomtom215/geopulse/internal/device"
)

// Session describes one connected-client lifetime, from channel open to
// channel close. Created when the WebSocket registers; mutated exactly once
// on close (DisconnectedAt, DurationSeconds, Active=false); never deleted
// by the server - retention is an external concern.
type Session struct {
	ID              string      `json:"id"`
	SocketID        string      `json:"socket_id"`
	UserAgent       string      `json:"user_agent"`
	IPAddress       string      `json:"ip_address"`
	Device          device.Info `json:"device"`
	ConnectedAt     time.Time   `json:"connected_at"`
	DisconnectedAt  *time.Time  `json:"disconnected_at,omitempty"`
	DurationSeconds *int64      `json:"duration_seconds,omitempty"`
	Active          bool        `json:"active"`
}

// Close stamps the disconnection time and computes the whole-second
// duration. Duration is only computed once; calling Close on an already
// closed session is a no-op.
func (s *Session) Close(now time.Time) {
	if !s.Active && s.DisconnectedAt != nil {
		return
	}
	seconds := int64(now.Sub(s.ConnectedAt).Seconds())
	s.DisconnectedAt = &now
	s.DurationSeconds = &seconds
	s.Active = false
}
