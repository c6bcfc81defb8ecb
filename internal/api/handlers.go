// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/facilium/facilium/internal/backup"
	"github.com/facilium/facilium/internal/logging"
)

// Pinger reports data store liveness for the readiness endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the request handlers for the admin API.
type Handlers struct {
	registry *backup.Registry
	service  *backup.Service
	store    backup.Store
	pinger   Pinger
}

// NewHandlers wires the handler set.
func NewHandlers(registry *backup.Registry, service *backup.Service, store backup.Store, pinger Pinger) *Handlers {
	return &Handlers{registry: registry, service: service, store: store, pinger: pinger}
}

// Healthz reports process liveness and data store reachability.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
			logging.Warn().Err(err).Msg("Health check database ping failed")
		}
	}
	writeJSON(w, code, map[string]string{"status": status})
}

// ListSchedules returns all backup schedules.
func (h *Handlers) ListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.registry.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list schedules")
		return
	}
	if schedules == nil {
		schedules = []*backup.Schedule{}
	}
	writeJSON(w, http.StatusOK, schedules)
}

// CreateSchedule creates a new backup schedule.
func (h *Handlers) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var in backup.ScheduleInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s, err := h.registry.Create(r.Context(), &in)
	if err != nil {
		writeError(w, scheduleErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// GetSchedule returns one schedule by ID.
func (h *Handlers) GetSchedule(w http.ResponseWriter, r *http.Request) {
	s, err := h.registry.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, scheduleErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// UpdateSchedule replaces the caller-settable fields of a schedule.
func (h *Handlers) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var in backup.ScheduleInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s, err := h.registry.Update(r.Context(), chi.URLParam(r, "id"), &in)
	if err != nil {
		writeError(w, scheduleErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// DeleteSchedule removes a schedule.
func (h *Handlers) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, scheduleErrorStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RunSchedule triggers one schedule immediately.
func (h *Handlers) RunSchedule(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.RunSchedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, backup.ErrScheduleNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		// The run failed but was recorded; return the failed ledger entry.
		if record != nil {
			writeJSON(w, http.StatusBadGateway, record)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// RunManual triggers an ad-hoc backup not tied to any schedule.
func (h *Handlers) RunManual(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.RunManual(r.Context())
	if err != nil {
		if record != nil {
			writeJSON(w, http.StatusBadGateway, record)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// ListRecords returns ledger entries, newest first.
func (h *Handlers) ListRecords(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	if limit < 1 || limit > 500 {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
		return
	}
	if offset < 0 {
		writeError(w, http.StatusBadRequest, "offset must not be negative")
		return
	}

	records, err := h.store.ListRecords(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list backup records")
		return
	}
	if records == nil {
		records = []*backup.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// GetRecord returns one ledger entry by ID.
func (h *Handlers) GetRecord(w http.ResponseWriter, r *http.Request) {
	record, err := h.store.GetRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "backup record not found")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// Stats returns aggregate ledger and schedule statistics.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.ComputeStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type previewRequest struct {
	CronExpression string     `json:"cron_expression"`
	Timezone       string     `json:"timezone"`
	Reference      *time.Time `json:"reference,omitempty"`
}

type previewResponse struct {
	NextRunAt time.Time `json:"next_run_at"`
}

// PreviewNextRun validates a cron expression and returns the instant it
// would next fire, without persisting anything.
func (h *Handlers) PreviewNextRun(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reference := time.Now()
	if req.Reference != nil {
		reference = *req.Reference
	}

	next, err := backup.NextRun(req.CronExpression, req.Timezone, reference)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{NextRunAt: next.UTC()})
}

func scheduleErrorStatus(err error) int {
	switch {
	case errors.Is(err, backup.ErrScheduleNotFound):
		return http.StatusNotFound
	case errors.Is(err, backup.ErrDuplicateScheduleName):
		return http.StatusConflict
	case errors.Is(err, backup.ErrInvalidCronExpression):
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}
