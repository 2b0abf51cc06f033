// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/geopulse/internal/logging"
	"github.com/tomtom215/geopulse/internal/metrics"
	"github.com/tomtom215/geopulse/internal/models"
	"github.com/tomtom215/geopulse/internal/tracker"
	"github.com/tomtom215/geopulse/internal/weather"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// envelope pairs an outbound event with an optional excluded client, so
// location updates fan out to everyone except their sender.
type envelope struct {
	event   models.Event
	exclude *Client
}

// Hub maintains the set of connected clients and fans events out to them.
// Session lifecycle is tied to the hub: registration opens a tracking
// session, unregistration closes it and tells the remaining peers.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan envelope
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	tracker *tracker.Tracker
	weather *weather.Provider
}

// NewHub creates a Hub wired to the tracking pipeline and the
// environmental provider.
func NewHub(tr *tracker.Tracker, wp *weather.Provider) *Hub {
	return &Hub{
		broadcast:  make(chan envelope, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		tracker:    tr,
		weather:    wp,
	}
}

// RunWithContext runs the hub loop until the context is canceled. Designed
// for suture supervision: on cancellation every client is closed and the
// context error is returned, so a supervisor restart starts clean.
//
// Channel selection is prioritized - shutdown first, then client
// lifecycle, then broadcasts - because Go's select picks randomly among
// ready channels and client state must be settled before fan-out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(ctx, client)
			continue
		case client := <-h.Unregister:
			h.removeClient(ctx, client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.addClient(ctx, client)

		case client := <-h.Unregister:
			h.removeClient(ctx, client)

		case env := <-h.broadcast:
			h.broadcastToClients(ctx, env)
		}
	}
}

// addClient admits a client and opens its tracking session. An empty
// session id means persistence is degraded; the connection stays up and
// streaming continues untracked.
func (h *Hub) addClient(ctx context.Context, client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	client.sessionID = h.tracker.OpenSession(ctx, client.socketID, client.userAgent, client.remoteAddr)

	metrics.ConnectedClients.Inc()
	logging.Info().
		Str("socket_id", client.socketID).
		Int("total_clients", total).
		Msg("websocket client connected")
}

// removeClient drops a client, closes its session, and tells the
// remaining peers. Safe against double unregistration.
func (h *Hub) removeClient(ctx context.Context, client *Client) {
	h.mu.Lock()
	_, known := h.clients[client]
	if known {
		delete(h.clients, client)
		client.close()
	}
	total := len(h.clients)
	h.mu.Unlock()
	if !known {
		return
	}

	h.tracker.CloseSession(ctx, client.socketID)

	metrics.ConnectedClients.Dec()
	logging.Info().
		Str("socket_id", client.socketID).
		Int("total_clients", total).
		Msg("websocket client disconnected")

	if event, err := models.NewEvent(models.EventUserDisconnected, models.UserDisconnectedBroadcast{
		SocketID: client.socketID,
	}); err == nil {
		h.BroadcastExcept(event, client)
	}
}

// shutdown closes every client, stamps their sessions closed, and logs
// the reason. Context cancellation is expected during graceful shutdown,
// so it is not logged as an error.
func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	clients := sortedClients(h.clients)
	for _, client := range clients {
		client.close()
		delete(h.clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.tracker.CloseSession(ctx, client.socketID)
		metrics.ConnectedClients.Dec()
	}

	reason := ShutdownReasonContextCanceled
	if ctx.Err() == context.DeadlineExceeded {
		reason = ShutdownReasonContextDeadline
	}
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(reason)).
		Int("clients_closed", len(clients)).
		Msg("websocket hub stopped")
}

// broadcastToClients delivers one envelope to every connected client
// except the excluded one. Clients are visited in id order so delivery is
// deterministic; a client with a full send buffer is dropped rather than
// allowed to stall the rest.
func (h *Hub) broadcastToClients(ctx context.Context, env envelope) {
	h.mu.Lock()
	clients := sortedClients(h.clients)

	var toRemove []*Client
	for _, client := range clients {
		if client == env.exclude {
			continue
		}
		select {
		case client.send <- env.event:
			metrics.BroadcastsSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		client.close()
		delete(h.clients, client)
	}
	h.mu.Unlock()

	// A dropped client never reaches removeClient with a live entry, so
	// its session is closed here.
	for _, client := range toRemove {
		metrics.EventsDropped.WithLabelValues("slow_client").Inc()
		metrics.ConnectedClients.Dec()
		logging.Warn().Str("socket_id", client.socketID).Msg("send buffer full, dropping client")
		h.tracker.CloseSession(ctx, client.socketID)
	}
}

// sortedClients snapshots the client set ordered by id. Callers must hold
// the mutex.
func sortedClients(set map[*Client]bool) []*Client {
	clients := make([]*Client, 0, len(set))
	for client := range set {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// Broadcast queues an event for every connected client. Non-blocking: a
// full hub queue drops the event with a warning.
func (h *Hub) Broadcast(event models.Event) {
	h.BroadcastExcept(event, nil)
}

// BroadcastExcept queues an event for every client except the given one.
func (h *Hub) BroadcastExcept(event models.Event, exclude *Client) {
	select {
	case h.broadcast <- envelope{event: event, exclude: exclude}:
	default:
		logging.Warn().Str("event_type", event.Type).Msg("broadcast channel full, dropping event")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
