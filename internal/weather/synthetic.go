// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

package weather

import (
	"math/rand/v2"

	"github.com/tomtom215/geopulse/internal/models"
)

// Synthetic value ranges. Values are drawn uniformly; reproducibility
// across runs is not a requirement.
const (
	minTempC      = 15.0
	maxTempC      = 35.0
	minHumidity   = 40.0
	maxHumidity   = 80.0
	minPressure   = 1000.0
	maxPressure   = 1050.0
	minWindKmh    = 0.0
	maxWindKmh    = 25.0
	minVisibility = 5.0
	maxVisibility = 20.0
	minUVIndex    = 0.0
	maxUVIndex    = 11.0
)

// airQualityCategories is the fixed set the synthetic air-quality label is
// drawn from, independently of the numeric fields.
var airQualityCategories = []string{
	"Good",
	"Moderate",
	"Unhealthy for Sensitive Groups",
	"Unhealthy",
}

// Synthesizer generates synthetic environmental readings for the
// no-credential and upstream-failure paths. It is stateless and safe for
// concurrent use; randomness comes from the shared math/rand/v2 source.
type Synthesizer struct{}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// Reading generates one synthetic Reading with every field populated.
func (s *Synthesizer) Reading() models.Reading {
	return models.Reading{
		TemperatureC: models.Float(uniform(minTempC, maxTempC)),
		HumidityPct:  models.Float(uniform(minHumidity, maxHumidity)),
		WindSpeedKmh: models.Float(uniform(minWindKmh, maxWindKmh)),
		VisibilityKm: models.Float(uniform(minVisibility, maxVisibility)),
		AirQuality:   airQualityCategories[rand.IntN(len(airQualityCategories))],
		PressureHPa:  models.Float(uniform(minPressure, maxPressure)),
		UVIndex:      models.Float(uniform(minUVIndex, maxUVIndex)),
		Source:       models.ReadingSourceSynthetic,
	}
}

func uniform(min, max float64) float64 {
	return min + rand.Float64()*(max-min)
}
