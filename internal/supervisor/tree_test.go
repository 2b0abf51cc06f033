// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

package supervisor

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/geopulse/internal/logging"
)

// blockingService runs until canceled and counts its starts.
type blockingService struct {
	starts atomic.Int64
}

func (s *blockingService) Serve(ctx context.Context) error {
	s.starts.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func (s *blockingService) String() string { return "blocking-service" }

// crashingService fails a fixed number of times, then blocks.
type crashingService struct {
	remaining atomic.Int64
	starts    atomic.Int64
}

func (s *crashingService) Serve(ctx context.Context) error {
	s.starts.Add(1)
	if s.remaining.Add(-1) >= 0 {
		return errors.New("boom")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *crashingService) String() string { return "crashing-service" }

func newTestTree() *Tree {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
	return NewTree(logging.NewSlogLogger(), DefaultTreeConfig())
}

func TestTreeRunsServicesInAllLayers(t *testing.T) {
	tree := newTestTree()

	dataSvc := &blockingService{}
	msgSvc := &blockingService{}
	apiSvc := &blockingService{}
	tree.AddDataService(dataSvc)
	tree.AddMessagingService(msgSvc)
	tree.AddAPIService(apiSvc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	waitForStarts(t, 1, dataSvc, msgSvc, apiSvc)

	cancel()
	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop")
	}
}

func TestTreeRestartsCrashedService(t *testing.T) {
	tree := newTestTree()

	svc := &crashingService{}
	svc.remaining.Store(2)
	tree.AddMessagingService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if svc.starts.Load() >= 3 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := svc.starts.Load(); got < 3 {
		t.Errorf("service started %d times, want at least 3 (two crashes + recovery)", got)
	}

	cancel()
	<-errCh
}

func waitForStarts(t *testing.T, want int64, svcs ...*blockingService) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		done := true
		for _, svc := range svcs {
			if svc.starts.Load() < want {
				done = false
			}
		}
		if done {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("services did not start")
}
