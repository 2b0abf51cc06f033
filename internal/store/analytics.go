// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/geopulse/internal/models"
)

// PutAnalytics writes a session analytics document, replacing any previous
// version. Concurrent writers follow last-write-wins; no transaction spans
// the read-modify-write cycle.
func (s *Store) PutAnalytics(ctx context.Context, analytics *models.SessionAnalytics) error {
	if err := s.guard(); err != nil {
		return err
	}
	data, err := json.Marshal(analytics)
	if err != nil {
		return fmt.Errorf("marshal analytics: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(analyticsKeyPrefix+analytics.SessionID), data); err != nil {
			return fmt.Errorf("set analytics: %w", err)
		}
		return nil
	})
}

// GetAnalytics retrieves the analytics aggregate for a session.
func (s *Store) GetAnalytics(ctx context.Context, sessionID string) (*models.SessionAnalytics, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	var analytics models.SessionAnalytics
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(analyticsKeyPrefix + sessionID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get analytics: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &analytics)
		})
	})
	if err != nil {
		return nil, err
	}
	return &analytics, nil
}
