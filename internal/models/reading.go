// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

package models

// Reading source values for operator visibility.
const (
	ReadingSourceLive      = "live"
	ReadingSourceSynthetic = "synthetic"
)

// Reading is a bundle of environmental measurements attached to a location
// update. All measurement fields are optional: a live provider may omit
// values the upstream API did not return.
type Reading struct {
	TemperatureC *float64 `json:"temperature_c,omitempty"`
	HumidityPct  *float64 `json:"humidity_pct,omitempty"`
	WindSpeedKmh *float64 `json:"wind_speed_kmh,omitempty"`
	VisibilityKm *float64 `json:"visibility_km,omitempty"`
	AirQuality   string   `json:"air_quality,omitempty"`
	PressureHPa  *float64 `json:"pressure_hpa,omitempty"`
	UVIndex      *float64 `json:"uv_index,omitempty"`
	Source       string   `json:"source,omitempty"`
}

// Float returns a pointer to v. Convenience for building readings.
func Float(v float64) *float64 {
	return &v
}
