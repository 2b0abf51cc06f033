// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

package store

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/geopulse/internal/models"
)

// Stats holds the aggregate counts served by the admin analytics surface.
type Stats struct {
	TotalSessions        int64   `json:"total_sessions"`
	ActiveSessions       int64   `json:"active_sessions"`
	TotalLocationRecords int64   `json:"total_location_records"`
	TotalLocationUpdates int64   `json:"total_location_updates"`
	TotalDistanceKm      float64 `json:"total_distance_km"`
	MaxSpeedKmh          float64 `json:"max_speed_kmh"`
	FeatureUsage         map[string]int64 `json:"feature_usage"`
}

// Stats scans the collections and returns aggregate counts. This is a full
// scan; the admin surface is low-traffic diagnostics, not a query engine.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	stats := &Stats{FeatureUsage: make(map[string]int64, len(models.KnownFeatures))}
	for _, name := range models.KnownFeatures {
		stats.FeatureUsage[name] = 0
	}

	err := s.db.View(func(txn *badger.Txn) error {
		if err := s.countSessions(txn, stats); err != nil {
			return err
		}
		if err := s.countLocations(txn, stats); err != nil {
			return err
		}
		return s.sumAnalytics(txn, stats)
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) countSessions(txn *badger.Txn, stats *Stats) error {
	prefix := []byte(sessionKeyPrefix)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		stats.TotalSessions++
		var session models.Session
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		})
		if err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		if session.Active {
			stats.ActiveSessions++
		}
	}
	return nil
}

func (s *Store) countLocations(txn *badger.Txn, stats *Stats) error {
	prefix := []byte(locationKeyPrefix)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	// Key-only iteration: counting does not need values.
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		stats.TotalLocationRecords++
	}
	return nil
}

func (s *Store) sumAnalytics(txn *badger.Txn, stats *Stats) error {
	prefix := []byte(analyticsKeyPrefix)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var analytics models.SessionAnalytics
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &analytics)
		})
		if err != nil {
			return fmt.Errorf("decode analytics: %w", err)
		}

		stats.TotalLocationUpdates += analytics.TotalLocationUpdates
		stats.TotalDistanceKm += analytics.TotalDistanceKm
		if analytics.MaxSpeedKmh > stats.MaxSpeedKmh {
			stats.MaxSpeedKmh = analytics.MaxSpeedKmh
		}
		if analytics.Features.SatelliteView {
			stats.FeatureUsage[models.FeatureSatelliteView]++
		}
		if analytics.Features.TrailMode {
			stats.FeatureUsage[models.FeatureTrailMode]++
		}
		if analytics.Features.SpeedMode {
			stats.FeatureUsage[models.FeatureSpeedMode]++
		}
	}
	return nil
}
