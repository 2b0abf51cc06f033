// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/geopulse/internal/logging"
	"github.com/tomtom215/geopulse/internal/metrics"
	"github.com/tomtom215/geopulse/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // 64 KB, location payloads are tiny
)

// clientIDCounter assigns monotonically increasing ids so broadcast
// iteration order is stable within a process run.
var clientIDCounter atomic.Uint64

// Client is the middleman between one websocket connection and the hub.
// socketID is the public identifier peers see in broadcasts; sessionID is
// the tracking session, empty when persistence is degraded.
type Client struct {
	id         uint64
	socketID   string
	sessionID  string
	userAgent  string
	remoteAddr string

	hub  *Hub
	conn *websocket.Conn
	send chan models.Event

	// done signals teardown. The send channel itself is never closed:
	// the read goroutine may still be dispatching an event for this
	// client when the hub drops it, and enqueue must stay safe then.
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a Client for an upgraded connection. socketID should
// be unique per connection; the handler uses a fresh UUID.
func NewClient(hub *Hub, conn *websocket.Conn, socketID, userAgent, remoteAddr string) *Client {
	return &Client{
		id:         clientIDCounter.Add(1),
		socketID:   socketID,
		userAgent:  userAgent,
		remoteAddr: remoteAddr,
		hub:        hub,
		conn:       conn,
		send:       make(chan models.Event, 256),
		done:       make(chan struct{}),
	}
}

// close marks the client torn down. Idempotent; the write pump sends the
// websocket close frame and exits when it observes the signal.
func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// SocketID returns the public connection identifier.
func (c *Client) SocketID() string {
	return c.socketID
}

// enqueue queues an event for this client only. Non-blocking: events to a
// stalled client are dropped, the read/write pumps will tear it down.
func (c *Client) enqueue(event models.Event) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- event:
	default:
		metrics.EventsDropped.WithLabelValues("slow_client").Inc()
	}
}

// sendError delivers a best-effort error ack to this client only.
func (c *Client) sendError(eventType, message string) {
	event, err := models.NewEvent(models.EventError, models.ErrorAck{
		Event:   eventType,
		Message: message,
	})
	if err != nil {
		return
	}
	c.enqueue(event)
}

// readPump reads events off the connection and dispatches them to the
// hub. One goroutine per connection; exits on any read error and triggers
// unregistration.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var event models.Event
		if err := c.conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Str("socket_id", c.socketID).Msg("unexpected websocket close")
			}
			break
		}
		c.hub.handleEvent(c, event)
	}
}

// writePump writes queued events and keepalive pings to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
				logging.Error().Err(err).Msg("failed to write close message")
			}
			return

		case event := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if err := c.conn.WriteJSON(event); err != nil {
				logging.Error().Err(err).Msg("failed to write event")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins the read and write pumps for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
