// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

// Package api exposes the administrative HTTP surface of the backup
// service: schedule management, ledger inspection, manual triggers, stats,
// health, and Prometheus metrics.
package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/facilium/facilium/internal/logging"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON parses the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
