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

// CreateSession stores a new session document and, while the session is
// active, a socket-to-session index entry for fast lookup on events.
func (s *Store) CreateSession(ctx context.Context, session *models.Session) error {
	if err := s.guard(); err != nil {
		return err
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(sessionKeyPrefix+session.ID), data); err != nil {
			return fmt.Errorf("set session: %w", err)
		}
		if session.Active {
			if err := txn.Set([]byte(socketKeyPrefix+session.SocketID), []byte(session.ID)); err != nil {
				return fmt.Errorf("set socket index: %w", err)
			}
		}
		return nil
	})
}

// UpdateSession rewrites a session document in one write. When the session
// is no longer active the socket index entry is removed in the same
// transaction so the socket can never resolve to a closed session.
func (s *Store) UpdateSession(ctx context.Context, session *models.Session) error {
	if err := s.guard(); err != nil {
		return err
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(sessionKeyPrefix+session.ID), data); err != nil {
			return fmt.Errorf("set session: %w", err)
		}
		if !session.Active {
			if err := txn.Delete([]byte(socketKeyPrefix + session.SocketID)); err != nil {
				return fmt.Errorf("delete socket index: %w", err)
			}
		}
		return nil
	})
}

// GetSession retrieves a session by its identifier.
func (s *Store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	var session models.Session
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		})
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ActiveSessionBySocket resolves the single active session for a socket
// identifier via the socket index. Returns ErrNotFound when the socket has
// no active session (never opened, or already closed).
func (s *Store) ActiveSessionBySocket(ctx context.Context, socketID string) (*models.Session, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	var sessionID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(socketKeyPrefix + socketID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get socket index: %w", err)
		}
		return item.Value(func(val []byte) error {
			sessionID = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Active {
		return nil, ErrNotFound
	}
	return session, nil
}
