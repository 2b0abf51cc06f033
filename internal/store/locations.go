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

// AppendLocation persists one immutable location record. Keys carry a
// zero-padded per-process sequence so iteration returns records in append
// order within a session.
func (s *Store) AppendLocation(ctx context.Context, record *models.LocationRecord) error {
	if err := s.guard(); err != nil {
		return err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal location: %w", err)
	}

	seq := s.locationSeq.Add(1)
	key := fmt.Sprintf("%s%s:%016d", locationKeyPrefix, record.SessionID, seq)

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(key), data); err != nil {
			return fmt.Errorf("set location: %w", err)
		}
		return nil
	})
}

// LocationsBySession returns all location records for a session in append
// order. An unknown session yields an empty slice, not an error.
func (s *Store) LocationsBySession(ctx context.Context, sessionID string) ([]models.LocationRecord, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	var records []models.LocationRecord
	prefix := []byte(locationKeyPrefix + sessionID + ":")

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record models.LocationRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return fmt.Errorf("decode location: %w", err)
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
