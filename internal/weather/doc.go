// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

// Package weather provides the environmental data provider: a Reading per
// coordinate, fetched live from the configured upstream when a credential
// is present, synthesized otherwise.
//
// The live path sits behind a circuit breaker, a local rate limiter, and
// a per-coordinate-cell LRU cache so bursts from one area reuse a reading.
// Every failure mode - missing credential, exhausted budget, open breaker,
// non-2xx status, timeout, undecodable body - degrades to a synthetic
// Reading. Current never returns an error and must never block a location
// update on upstream weather availability.
package weather
