// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

package services

import (
	"context"
	"time"

	"github.com/tomtom215/geopulse/internal/store"
)

// StoreGCService runs periodic Badger value-log garbage collection as a
// data-layer service. On-disk stores only; in-memory and disabled stores
// make this a no-op that blocks until shutdown.
type StoreGCService struct {
	store    *store.Store
	interval time.Duration
}

// NewStoreGCService wraps the store's GC loop for supervision.
func NewStoreGCService(s *store.Store, interval time.Duration) *StoreGCService {
	return &StoreGCService{store: s, interval: interval}
}

// Serve implements suture.Service.
func (s *StoreGCService) Serve(ctx context.Context) error {
	s.store.RunValueLogGC(ctx.Done(), s.interval)
	return ctx.Err()
}

// String identifies the service in supervisor logs.
func (s *StoreGCService) String() string {
	return "store-gc"
}
