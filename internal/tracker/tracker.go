// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

package tracker

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/tomtom215/geopulse/internal/device"
	"github.com/tomtom215/geopulse/internal/geo"
	"github.com/tomtom215/geopulse/internal/logging"
	"github.com/tomtom215/geopulse/internal/metrics"
	"github.com/tomtom215/geopulse/internal/models"
	"github.com/tomtom215/geopulse/internal/store"
)

// Tracker is the session/analytics aggregation pipeline. It owns session
// lifecycle, location ingestion, and the per-session analytics aggregate.
// All persistence failures degrade per policy: log, count, continue -
// nothing propagates to the realtime channel.
type Tracker struct {
	store *store.Store

	// now is injectable for tests.
	now func() time.Time
}

// New creates a Tracker backed by the given store. A nil store is valid
// and puts the tracker in persistence-disabled mode: OpenSession returns
// "" and every subsequent write is skipped silently.
func New(s *store.Store) *Tracker {
	return &Tracker{store: s, now: time.Now}
}

// newSessionID generates a session identifier unique with overwhelming
// probability: unix milliseconds plus a random hex suffix. Collisions are
// not defended against.
func (t *Tracker) newSessionID() string {
	return fmt.Sprintf("%d-%08x", t.now().UnixMilli(), rand.Uint32())
}

// OpenSession records a new session for the socket and synchronously
// creates its paired, zeroed analytics aggregate. Returns the session
// identifier, or "" when persistence is unavailable - callers must treat
// "" as tracking-degraded and not report an error to the client.
func (t *Tracker) OpenSession(ctx context.Context, socketID, userAgent, remoteAddr string) string {
	session := &models.Session{
		ID:          t.newSessionID(),
		SocketID:    socketID,
		UserAgent:   userAgent,
		IPAddress:   remoteAddr,
		Device:      device.Parse(userAgent),
		ConnectedAt: t.now().UTC(),
		Active:      true,
	}

	if err := t.store.CreateSession(ctx, session); err != nil {
		t.logStoreErr("create_session", err)
		return ""
	}

	// The analytics aggregate exists iff the session exists; it is created
	// here, before any location event can reference it.
	if err := t.store.PutAnalytics(ctx, models.NewSessionAnalytics(session.ID)); err != nil {
		t.logStoreErr("create_analytics", err)
		return ""
	}

	metrics.SessionsOpened.Inc()
	logging.Info().
		Str("session_id", session.ID).
		Str("socket_id", socketID).
		Str("platform", session.Device.Platform).
		Str("browser", session.Device.Browser).
		Bool("mobile", session.Device.IsMobile).
		Msg("session opened")
	return session.ID
}

// CloseSession closes the single active session for the socket: stamps the
// disconnection time, computes the whole-second duration, and clears the
// active flag in one write. A socket with no active session is a no-op,
// not an error - the close may race a failed open or arrive twice.
func (t *Tracker) CloseSession(ctx context.Context, socketID string) {
	session, err := t.store.ActiveSessionBySocket(ctx, socketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logging.Debug().Str("socket_id", socketID).Msg("close for socket with no active session")
			return
		}
		t.logStoreErr("find_session", err)
		return
	}

	session.Close(t.now().UTC())
	if err := t.store.UpdateSession(ctx, session); err != nil {
		t.logStoreErr("close_session", err)
		return
	}

	t.stampTrackingDuration(ctx, session.ID, *session.DurationSeconds)

	metrics.SessionsClosed.Inc()
	logging.Info().
		Str("session_id", session.ID).
		Str("socket_id", socketID).
		Int64("duration_seconds", *session.DurationSeconds).
		Msg("session closed")
}

// RecordLocation appends a location record for the socket's active session
// and folds the coordinates into the analytics aggregate. Updates for a
// socket with no active session are dropped with a warning: no buffering,
// no implicit session creation. Fire-and-forget for the caller.
func (t *Tracker) RecordLocation(ctx context.Context, socketID string, payload models.LocationUpdatePayload, reading models.Reading) {
	session, err := t.store.ActiveSessionBySocket(ctx, socketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.EventsDropped.WithLabelValues("no_session").Inc()
			logging.Warn().Str("socket_id", socketID).Msg("location update for socket with no active session, dropped")
			return
		}
		t.logStoreErr("find_session", err)
		return
	}

	record := &models.LocationRecord{
		SessionID:     session.ID,
		SocketID:      socketID,
		Coordinates:   payload.Coordinates(),
		Environmental: reading,
		Timestamp:     time.UnixMilli(payload.Timestamp).UTC(),
	}
	if err := t.store.AppendLocation(ctx, record); err != nil {
		t.logStoreErr("append_location", err)
		return
	}
	metrics.LocationRecordsWritten.Inc()

	t.applyLocationUpdate(ctx, session.ID, record.Coordinates)
}

// applyLocationUpdate folds one coordinate into the session's aggregate:
// update counter, running max speed, start/end coordinates, and the
// server-side distance accumulation. Read-modify-write without a
// transaction; last write wins on the aggregate document.
func (t *Tracker) applyLocationUpdate(ctx context.Context, sessionID string, coords models.Coordinates) {
	analytics, err := t.store.GetAnalytics(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Should not happen: the aggregate is created with the session.
			logging.Warn().Str("session_id", sessionID).Msg("analytics aggregate missing, recreating")
			analytics = models.NewSessionAnalytics(sessionID)
		} else {
			t.logStoreErr("get_analytics", err)
			return
		}
	}

	analytics.ApplyLocation(coords, geo.DistanceKm)

	if err := t.store.PutAnalytics(ctx, analytics); err != nil {
		t.logStoreErr("put_analytics", err)
	}
}

// stampTrackingDuration copies the session's final duration into its
// analytics aggregate, once, at close time.
func (t *Tracker) stampTrackingDuration(ctx context.Context, sessionID string, seconds int64) {
	analytics, err := t.store.GetAnalytics(ctx, sessionID)
	if err != nil {
		t.logStoreErr("get_analytics", err)
		return
	}
	analytics.TrackingDurationSeconds = seconds
	if err := t.store.PutAnalytics(ctx, analytics); err != nil {
		t.logStoreErr("put_analytics", err)
	}
}

// ApplyFeatureToggle flips the named feature flag for the socket's active
// session. Unknown feature names are ignored - the flag set is fixed and
// closed. A socket with no active session drops the event silently.
func (t *Tracker) ApplyFeatureToggle(ctx context.Context, socketID, feature string) {
	session, err := t.store.ActiveSessionBySocket(ctx, socketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.EventsDropped.WithLabelValues("no_session").Inc()
			return
		}
		t.logStoreErr("find_session", err)
		return
	}

	analytics, err := t.store.GetAnalytics(ctx, session.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			analytics = models.NewSessionAnalytics(session.ID)
		} else {
			t.logStoreErr("get_analytics", err)
			return
		}
	}

	if !analytics.Features.Set(feature) {
		logging.Debug().Str("feature", feature).Msg("unknown feature name ignored")
		return
	}

	if err := t.store.PutAnalytics(ctx, analytics); err != nil {
		t.logStoreErr("put_analytics", err)
	}
}

// Analytics returns the aggregate for a session identifier.
func (t *Tracker) Analytics(ctx context.Context, sessionID string) (*models.SessionAnalytics, error) {
	return t.store.GetAnalytics(ctx, sessionID)
}

// Stats returns the aggregate counts across all sessions.
func (t *Tracker) Stats(ctx context.Context) (*store.Stats, error) {
	return t.store.Stats(ctx)
}

// logStoreErr records a persistence failure per the degradation policy:
// the decision to continue is made here, visibly, not inside the store.
func (t *Tracker) logStoreErr(operation string, err error) {
	metrics.StoreErrors.WithLabelValues(operation).Inc()
	if errors.Is(err, store.ErrUnavailable) {
		// Persistence-disabled mode: expected, keep the noise down.
		logging.Debug().Str("operation", operation).Msg("store unavailable, tracking degraded")
		return
	}
	logging.Warn().Err(err).Str("operation", operation).Msg("store operation failed, continuing")
}
