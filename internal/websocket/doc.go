// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

// Package websocket implements the realtime channel: a hub fanning
// location updates out to connected peers, with one client goroutine pair
// per connection.
//
// Lifecycle: registering a client opens a tracking session; unregistering
// closes it and notifies the remaining peers with a user-disconnected
// event. Inbound events are validated at the boundary and dispatched on
// the reader goroutine; outbound fan-out runs through the hub loop in
// deterministic client order.
//
// Degradation: malformed or unknown events produce a private error ack
// and nothing else. Slow clients are dropped rather than allowed to stall
// the broadcast path. Persistence failures never interrupt streaming.
package websocket
