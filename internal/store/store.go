// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/geopulse/internal/logging"
)

// Key prefixes for the persisted collections. Documents are JSON-encoded;
// the field names in internal/models are the de-facto schema contract.
const (
	sessionKeyPrefix   = "session:"
	socketKeyPrefix    = "socket:"
	locationKeyPrefix  = "location:"
	analyticsKeyPrefix = "analytics:"
)

// Sentinel errors. Callers are expected to branch on these and decide the
// degradation policy at the call site.
var (
	// ErrUnavailable indicates the store never opened or has been closed.
	// Every operation on a nil or closed store degrades to this error.
	ErrUnavailable = errors.New("store unavailable")

	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("document not found")
)

// Store is the BadgerDB-backed document store for sessions, location
// records, and session analytics. A nil *Store is valid and reports
// ErrUnavailable from every method, which is how the server runs in
// persistence-disabled mode.
type Store struct {
	db *badger.DB

	// locationSeq orders location keys within a process lifetime. Sessions
	// do not survive a restart, so a per-process counter is sufficient for
	// per-session ordering.
	locationSeq atomic.Uint64
}

// Options configures Open.
type Options struct {
	// Path is the Badger data directory. Ignored when InMemory is set.
	Path string

	// InMemory runs Badger without any files. Used by tests.
	InMemory bool
}

// Open opens (creating if needed) the document store.
func Open(opts Options) (*Store, error) {
	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dir := filepath.Dir(opts.Path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create store directory %s: %w", dir, err)
			}
		}
		badgerOpts = badger.DefaultOptions(opts.Path)
	}
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database. Safe on a nil store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Available reports whether the store can serve reads and writes.
func (s *Store) Available() bool {
	return s != nil && s.db != nil && !s.db.IsClosed()
}

// RunValueLogGC runs Badger value-log garbage collection until the context
// is done. Intended to run as a supervised service in the data layer.
func (s *Store) RunValueLogGC(done <-chan struct{}, interval time.Duration) {
	if !s.Available() || s.db.Opts().InMemory {
		<-done
		return
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			// Badger recommends rerunning while space is reclaimed.
			for {
				err := s.db.RunValueLogGC(0.5)
				if err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						logging.Warn().Err(err).Msg("value log gc failed")
					}
					break
				}
			}
		}
	}
}

// guard returns ErrUnavailable when the store cannot serve requests.
func (s *Store) guard() error {
	if !s.Available() {
		return ErrUnavailable
	}
	return nil
}
