// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

package models

// Feature flag names accepted by the analytics aggregate. The set is fixed
// and closed; unknown names are ignored, not rejected.
const (
	FeatureSatelliteView = "satelliteView"
	FeatureTrailMode     = "trailMode"
	FeatureSpeedMode     = "speedMode"
)

// KnownFeatures lists every feature flag the aggregate tracks.
var KnownFeatures = []string{
	FeatureSatelliteView,
	FeatureTrailMode,
	FeatureSpeedMode,
}

// MpsToKmh converts m/s (client-reported speed unit) to km/h.
const MpsToKmh = 3.6

// FeatureUsage holds the per-session boolean feature flags. Flags only
// ever flip from false to true; toggles are idempotent.
type FeatureUsage struct {
	SatelliteView bool `json:"satellite_view"`
	TrailMode     bool `json:"trail_mode"`
	SpeedMode     bool `json:"speed_mode"`
}

// Set flips the named flag to true. Unknown names are ignored and reported
// via the return value so callers can log them.
func (f *FeatureUsage) Set(name string) bool {
	switch name {
	case FeatureSatelliteView:
		f.SatelliteView = true
	case FeatureTrailMode:
		f.TrailMode = true
	case FeatureSpeedMode:
		f.SpeedMode = true
	default:
		return false
	}
	return true
}

// SessionAnalytics is the running per-session summary, one-to-one with a
// Session. It exists iff the session exists: both are created together at
// session-open time, before any location event can reference them.
//
// AverageSpeedKmh is intentionally quiescent: it is zeroed at creation and
// never recomputed as updates arrive. TrackingDurationSeconds is stamped
// once, at session close. Concurrent writers follow last-write-wins; the
// one-connection-per-session assumption makes real contention unexpected.
type SessionAnalytics struct {
	SessionID               string       `json:"session_id"`
	TotalLocationUpdates    int64        `json:"total_location_updates"`
	TotalDistanceKm         float64      `json:"total_distance_km"`
	MaxSpeedKmh             float64      `json:"max_speed_kmh"`
	AverageSpeedKmh         float64      `json:"average_speed_kmh"`
	TrackingDurationSeconds int64        `json:"tracking_duration_seconds"`
	Features                FeatureUsage `json:"features"`
	StartLocation           *Coordinates `json:"start_location,omitempty"`
	EndLocation             *Coordinates `json:"end_location,omitempty"`
}

// NewSessionAnalytics returns a zeroed aggregate for the given session.
func NewSessionAnalytics(sessionID string) *SessionAnalytics {
	return &SessionAnalytics{SessionID: sessionID}
}

// ApplyLocation folds one location update into the aggregate: counter,
// running max speed (converted to km/h), start coordinate on the first
// update, end coordinate on every update, and server-side distance
// accumulation from the previous end coordinate.
func (a *SessionAnalytics) ApplyLocation(coords Coordinates, distanceKm func(lat1, lon1, lat2, lon2 float64) float64) {
	prev := a.EndLocation

	a.TotalLocationUpdates++

	if kmh := coords.SpeedValue() * MpsToKmh; kmh > a.MaxSpeedKmh {
		a.MaxSpeedKmh = kmh
	}

	if a.TotalLocationUpdates == 1 {
		start := coords
		a.StartLocation = &start
	}

	if prev != nil && distanceKm != nil {
		a.TotalDistanceKm += distanceKm(prev.Latitude, prev.Longitude, coords.Latitude, coords.Longitude)
	}

	end := coords
	a.EndLocation = &end
}
