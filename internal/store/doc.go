// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

// Package store persists sessions, location records, and session analytics
// as JSON documents in an embedded BadgerDB.
//
// Three collections share one keyspace via prefixes:
//
//	session:<id>              one document per connected-client lifetime
//	socket:<socketID>         index: socket -> active session id
//	location:<sessionID>:<n>  append-only location records
//	analytics:<id>            one aggregate per session
//
// Error policy: every method returns an explicit error; the caller decides
// whether to log-and-continue. A nil *Store reports ErrUnavailable from
// every method, which is the persistence-disabled mode the server falls
// back to when the store cannot open. No method panics, retries, or queues.
package store
