// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

package tracker

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/geopulse/internal/models"
	"github.com/tomtom215/geopulse/internal/store"
)

func newTestTracker(t *testing.T) (*Tracker, *store.Store) {
	t.Helper()
	s, err := store.Open(store.Options{InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return New(s), s
}

func locationPayload(lat, lon float64, speed *float64) models.LocationUpdatePayload {
	return models.LocationUpdatePayload{
		Latitude:  lat,
		Longitude: lon,
		Speed:     speed,
		Timestamp: time.Now().UnixMilli(),
	}
}

func TestOpenSessionIDFormat(t *testing.T) {
	tr, _ := newTestTracker(t)
	fixed := time.UnixMilli(1700000000123)
	tr.now = func() time.Time { return fixed }

	id := tr.OpenSession(context.Background(), "sock-1", "Mozilla/5.0 (Linux; Android 14) Chrome/120.0 Mobile", "10.0.0.1")
	if id == "" {
		t.Fatal("expected session id, got empty string")
	}
	prefix, suffix, ok := strings.Cut(id, "-")
	if !ok {
		t.Fatalf("session id %q missing separator", id)
	}
	if prefix != strconv.FormatInt(fixed.UnixMilli(), 10) {
		t.Errorf("session id prefix = %q, want %d", prefix, fixed.UnixMilli())
	}
	if len(suffix) != 8 {
		t.Errorf("session id suffix %q should be 8 hex chars", suffix)
	}
}

func TestOpenSessionParsesDeviceAndCreatesAnalytics(t *testing.T) {
	tr, s := newTestTracker(t)
	ctx := context.Background()

	id := tr.OpenSession(ctx, "sock-1", "Mozilla/5.0 (Linux; Android 14) Chrome/120.0 Mobile Safari/537.36", "10.0.0.1")

	session, err := s.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.Device.Platform != "Android" || session.Device.Browser != "Chrome" || !session.Device.IsMobile {
		t.Errorf("device = %+v, want Android/Chrome/mobile", session.Device)
	}
	if !session.Active {
		t.Error("new session should be active")
	}

	analytics, err := s.GetAnalytics(ctx, id)
	if err != nil {
		t.Fatalf("analytics should be created with the session: %v", err)
	}
	if analytics.TotalLocationUpdates != 0 || analytics.TotalDistanceKm != 0 {
		t.Errorf("new aggregate should be zeroed, got %+v", analytics)
	}
}

func TestOpenSessionDegradedStore(t *testing.T) {
	tr := New(nil)
	if id := tr.OpenSession(context.Background(), "sock-1", "ua", "addr"); id != "" {
		t.Errorf("degraded open should return empty id, got %q", id)
	}
}

func TestCloseSessionStampsDuration(t *testing.T) {
	tr, s := newTestTracker(t)
	ctx := context.Background()

	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return start }
	id := tr.OpenSession(ctx, "sock-1", "ua", "addr")

	tr.now = func() time.Time { return start.Add(95 * time.Second) }
	tr.CloseSession(ctx, "sock-1")

	session, err := s.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.Active {
		t.Error("closed session should not be active")
	}
	if session.DurationSeconds == nil || *session.DurationSeconds != 95 {
		t.Errorf("duration = %v, want 95", session.DurationSeconds)
	}

	analytics, err := s.GetAnalytics(ctx, id)
	if err != nil {
		t.Fatalf("get analytics: %v", err)
	}
	if analytics.TrackingDurationSeconds != 95 {
		t.Errorf("tracking duration = %d, want 95", analytics.TrackingDurationSeconds)
	}

	// Socket index must be gone: a second close is a no-op.
	if _, err := s.ActiveSessionBySocket(ctx, "sock-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("socket index should be cleared, got err=%v", err)
	}
	tr.CloseSession(ctx, "sock-1")
}

func TestCloseUnknownSocketIsNoOp(t *testing.T) {
	tr, _ := newTestTracker(t)
	tr.CloseSession(context.Background(), "never-seen")
}

func TestRecordLocationAppendsAndAggregates(t *testing.T) {
	tr, s := newTestTracker(t)
	ctx := context.Background()

	id := tr.OpenSession(ctx, "sock-1", "ua", "addr")

	speed := 10.0
	tr.RecordLocation(ctx, "sock-1", locationPayload(0, 0, &speed), models.Reading{Source: models.ReadingSourceSynthetic})
	tr.RecordLocation(ctx, "sock-1", locationPayload(0, 1, nil), models.Reading{Source: models.ReadingSourceSynthetic})

	records, err := s.LocationsBySession(ctx, id)
	if err != nil {
		t.Fatalf("locations: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d location records, want 2", len(records))
	}

	analytics, err := s.GetAnalytics(ctx, id)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if analytics.TotalLocationUpdates != 2 {
		t.Errorf("updates = %d, want 2", analytics.TotalLocationUpdates)
	}
	// One degree of longitude at the equator.
	if math.Abs(analytics.TotalDistanceKm-111.19) > 0.05 {
		t.Errorf("distance = %f, want ~111.19", analytics.TotalDistanceKm)
	}
	if analytics.MaxSpeedKmh != 36.0 {
		t.Errorf("max speed = %f, want 36.0 (10 m/s)", analytics.MaxSpeedKmh)
	}
	if analytics.StartLocation == nil || analytics.StartLocation.Longitude != 0 {
		t.Errorf("start location should pin the first update, got %+v", analytics.StartLocation)
	}
	if analytics.EndLocation == nil || analytics.EndLocation.Longitude != 1 {
		t.Errorf("end location should follow the last update, got %+v", analytics.EndLocation)
	}
}

func TestRecordLocationNoSessionDropped(t *testing.T) {
	tr, s := newTestTracker(t)
	ctx := context.Background()

	tr.RecordLocation(ctx, "ghost", locationPayload(1, 2, nil), models.Reading{})

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalLocationRecords != 0 {
		t.Errorf("dropped update must not be persisted, got %d records", stats.TotalLocationRecords)
	}
}

func TestApplyFeatureToggle(t *testing.T) {
	tr, s := newTestTracker(t)
	ctx := context.Background()

	id := tr.OpenSession(ctx, "sock-1", "ua", "addr")

	tr.ApplyFeatureToggle(ctx, "sock-1", models.FeatureSatelliteView)
	tr.ApplyFeatureToggle(ctx, "sock-1", models.FeatureSatelliteView) // idempotent
	tr.ApplyFeatureToggle(ctx, "sock-1", "darkMode")                  // unknown, ignored

	analytics, err := s.GetAnalytics(ctx, id)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if !analytics.Features.SatelliteView {
		t.Error("satelliteView should be set")
	}
	if analytics.Features.TrailMode || analytics.Features.SpeedMode {
		t.Errorf("other flags should stay false, got %+v", analytics.Features)
	}
}

func TestApplyFeatureToggleNoSession(t *testing.T) {
	tr, _ := newTestTracker(t)
	tr.ApplyFeatureToggle(context.Background(), "ghost", models.FeatureTrailMode)
}
