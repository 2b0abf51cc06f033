// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

package websocket

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/geopulse/internal/logging"
	"github.com/tomtom215/geopulse/internal/models"
	"github.com/tomtom215/geopulse/internal/store"
	"github.com/tomtom215/geopulse/internal/tracker"
	"github.com/tomtom215/geopulse/internal/weather"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

// setupHub starts a hub over an in-memory store, with the weather
// provider in synthetic-only mode.
func setupHub(t *testing.T) (*Hub, *store.Store) {
	t.Helper()
	s, err := store.Open(store.Options{InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	hub := NewHub(tracker.New(s), weather.New(weather.Config{}))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.RunWithContext(ctx) }()
	return hub, s
}

// createTestClient builds a client with no underlying connection; the
// pumps are never started so the send channel can be read directly.
func createTestClient(hub *Hub, userAgent string) *Client {
	return NewClient(hub, nil, uuid.NewString(), userAgent, "127.0.0.1:1234")
}

// registerClient registers and waits until the client's session is open,
// so events handled right after cannot race the registration.
func registerClient(t *testing.T, hub *Hub, s *store.Store, client *Client) string {
	t.Helper()
	hub.Register <- client
	var sessionID string
	waitFor(t, func() bool {
		session, err := s.ActiveSessionBySocket(context.Background(), client.socketID)
		if err != nil {
			return false
		}
		sessionID = session.ID
		return true
	})
	return sessionID
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// receiveEvent waits for the next event of the given type on the client's
// send channel, skipping others.
func receiveEvent(t *testing.T, c *Client, eventType string) models.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-c.send:
			if event.Type == eventType {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q event", eventType)
		}
	}
}

func TestRegisterOpensSession(t *testing.T) {
	hub, s := setupHub(t)

	client := createTestClient(hub, "Mozilla/5.0 (Linux; Android 14) Chrome/120.0 Mobile")
	registerClient(t, hub, s, client)

	session, err := s.ActiveSessionBySocket(context.Background(), client.socketID)
	if err != nil {
		t.Fatalf("active session: %v", err)
	}
	if session.Device.Platform != "Android" {
		t.Errorf("platform = %q, want Android", session.Device.Platform)
	}
}

func TestUnregisterClosesSessionAndNotifiesPeers(t *testing.T) {
	hub, s := setupHub(t)

	leaver := createTestClient(hub, "ua")
	peer := createTestClient(hub, "ua")
	registerClient(t, hub, s, leaver)
	hub.Register <- peer
	waitFor(t, func() bool { return hub.ClientCount() == 2 })

	hub.Unregister <- leaver
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	event := receiveEvent(t, peer, models.EventUserDisconnected)
	var payload models.UserDisconnectedBroadcast
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.SocketID != leaver.socketID {
		t.Errorf("socketId = %q, want %q", payload.SocketID, leaver.socketID)
	}

	if _, err := s.ActiveSessionBySocket(context.Background(), leaver.socketID); err == nil {
		t.Error("leaver's session should be closed")
	}
}

func TestLocationUpdateFanOutAndAck(t *testing.T) {
	hub, s := setupHub(t)

	sender := createTestClient(hub, "ua")
	peer := createTestClient(hub, "ua")
	sessionID := registerClient(t, hub, s, sender)
	hub.Register <- peer
	waitFor(t, func() bool { return hub.ClientCount() == 2 })

	event, err := models.NewEvent(models.EventLocationUpdate, models.LocationUpdatePayload{
		Latitude: 51.5, Longitude: -0.12, Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	hub.handleEvent(sender, event)

	// Peer sees the enriched broadcast; sender does not.
	broadcast := receiveEvent(t, peer, models.EventUserLocationUpdate)
	var out models.UserLocationBroadcast
	if err := json.Unmarshal(broadcast.Data, &out); err != nil {
		t.Fatalf("decode broadcast: %v", err)
	}
	if out.SocketID != sender.socketID {
		t.Errorf("broadcast socketId = %q, want sender's", out.SocketID)
	}
	if out.Environmental.Source != models.ReadingSourceSynthetic {
		t.Errorf("reading source = %q, want synthetic", out.Environmental.Source)
	}

	// Sender gets a private ack with the same reading.
	ack := receiveEvent(t, sender, models.EventLocationReceived)
	var ackPayload models.LocationReceivedAck
	if err := json.Unmarshal(ack.Data, &ackPayload); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ackPayload.Status != "ok" || ackPayload.Environmental == nil {
		t.Errorf("ack = %+v, want ok with reading", ackPayload)
	}

	// And the update was persisted.
	records, err := s.LocationsBySession(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("locations: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}

func TestLocationUpdateInvalidCoordinates(t *testing.T) {
	hub, s := setupHub(t)

	sender := createTestClient(hub, "ua")
	sessionID := registerClient(t, hub, s, sender)

	event, _ := models.NewEvent(models.EventLocationUpdate, models.LocationUpdatePayload{
		Latitude: 95, Longitude: 0, Timestamp: 1,
	})
	hub.handleEvent(sender, event)

	errAck := receiveEvent(t, sender, models.EventError)
	var payload models.ErrorAck
	if err := json.Unmarshal(errAck.Data, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Event != models.EventLocationUpdate {
		t.Errorf("error ack event = %q", payload.Event)
	}

	records, err := s.LocationsBySession(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("locations: %v", err)
	}
	if len(records) != 0 {
		t.Error("invalid update must not be persisted")
	}
}

func TestMalformedPayload(t *testing.T) {
	hub, s := setupHub(t)

	sender := createTestClient(hub, "ua")
	registerClient(t, hub, s, sender)

	hub.handleEvent(sender, models.Event{
		Type: models.EventLocationUpdate,
		Data: json.RawMessage(`{"latitude": "not-a-number"}`),
	})

	receiveEvent(t, sender, models.EventError)
}

func TestUnknownEventType(t *testing.T) {
	hub, s := setupHub(t)

	sender := createTestClient(hub, "ua")
	registerClient(t, hub, s, sender)

	hub.handleEvent(sender, models.Event{Type: "time-travel"})

	errAck := receiveEvent(t, sender, models.EventError)
	var payload models.ErrorAck
	if err := json.Unmarshal(errAck.Data, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Event != "time-travel" {
		t.Errorf("error ack should echo the offending type, got %q", payload.Event)
	}
}

func TestPingPong(t *testing.T) {
	hub, s := setupHub(t)

	sender := createTestClient(hub, "ua")
	registerClient(t, hub, s, sender)

	hub.handleEvent(sender, models.Event{Type: models.EventPing})
	receiveEvent(t, sender, models.EventPong)
}

func TestFeatureUsedUpdatesAnalytics(t *testing.T) {
	hub, s := setupHub(t)

	sender := createTestClient(hub, "ua")
	sessionID := registerClient(t, hub, s, sender)

	event, _ := models.NewEvent(models.EventFeatureUsed, models.FeatureUsedPayload{Feature: models.FeatureTrailMode})
	hub.handleEvent(sender, event)

	analytics, err := s.GetAnalytics(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if !analytics.Features.TrailMode {
		t.Error("trailMode flag should be set")
	}
}

func TestDeviceStatusRelay(t *testing.T) {
	hub, s := setupHub(t)

	sender := createTestClient(hub, "ua")
	peer := createTestClient(hub, "ua")
	registerClient(t, hub, s, sender)
	hub.Register <- peer
	waitFor(t, func() bool { return hub.ClientCount() == 2 })

	battery := 80
	event, _ := models.NewEvent(models.EventDeviceStatus, models.DeviceStatusPayload{
		DeviceID: "dev-1", Status: "moving", Battery: &battery,
	})
	hub.handleEvent(sender, event)

	relayed := receiveEvent(t, peer, models.EventDeviceStatusUpdate)
	var payload models.DeviceStatusPayload
	if err := json.Unmarshal(relayed.Data, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.DeviceID != "dev-1" || payload.Battery == nil || *payload.Battery != 80 {
		t.Errorf("relayed payload = %+v", payload)
	}
}

func TestEnvironmentalRequest(t *testing.T) {
	hub, s := setupHub(t)

	sender := createTestClient(hub, "ua")
	registerClient(t, hub, s, sender)

	event, _ := models.NewEvent(models.EventRequestEnviroData, models.EnvironmentalRequestPayload{
		Latitude: 40.7, Longitude: -74.0,
	})
	hub.handleEvent(sender, event)

	response := receiveEvent(t, sender, models.EventEnvironmentalData)
	var reading models.Reading
	if err := json.Unmarshal(response.Data, &reading); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if reading.Source != models.ReadingSourceSynthetic {
		t.Errorf("source = %q, want synthetic", reading.Source)
	}
}

func TestEnqueueAfterSlowClientDrop(t *testing.T) {
	hub, s := setupHub(t)
	slow := createTestClient(hub, "ua")
	registerClient(t, hub, s, slow)

	// Fill the send buffer so the next broadcast finds the client stalled
	// and drops it.
	for i := 0; i < cap(slow.send); i++ {
		slow.enqueue(models.Event{Type: models.EventPong})
	}
	hub.Broadcast(models.Event{Type: models.EventPong})
	waitFor(t, func() bool { return hub.ClientCount() == 0 })

	// The read goroutine may still be dispatching a final event for the
	// dropped client; queueing to it must be a safe no-op.
	slow.enqueue(models.Event{Type: models.EventPong})
	slow.sendError(models.EventLocationUpdate, "late delivery")

	if _, err := s.ActiveSessionBySocket(context.Background(), slow.socketID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("dropped client's session still active, err = %v", err)
	}
}

func TestShutdownClosesClients(t *testing.T) {
	s, err := store.Open(store.Options{InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	hub := NewHub(tracker.New(s), weather.New(weather.Config{}))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()

	client := createTestClient(hub, "ua")
	hub.Register <- client
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("clients after shutdown = %d, want 0", hub.ClientCount())
	}
}
