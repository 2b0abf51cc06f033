// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/geopulse/internal/logging"
)

// APIError is the error body every non-2xx response carries.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]APIError{"error": {Code: code, Message: message}})
}
