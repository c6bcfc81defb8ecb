// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/facilium/facilium/internal/logging"
)

// DefaultScheduleName is the name of the schedule created on first start.
const DefaultScheduleName = "daily-full-backup"

// DefaultRetentionDays is the retention window of the bootstrap schedule.
const DefaultRetentionDays = 30

var (
	// ErrScheduleNotFound is returned when a schedule ID or name does not
	// resolve.
	ErrScheduleNotFound = errors.New("backup schedule not found")

	// ErrDuplicateScheduleName is returned when creating a schedule whose
	// name is already taken.
	ErrDuplicateScheduleName = errors.New("backup schedule name already exists")
)

// Registry manages persisted backup schedules. All mutations validate the
// cron expression and timezone synchronously and keep the next-run instant
// current, so the poller can trust next_run_at blindly.
type Registry struct {
	store Store
	now   func() time.Time
}

// NewRegistry creates a schedule registry backed by store.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store, now: time.Now}
}

// ScheduleInput carries the caller-settable fields of a schedule.
type ScheduleInput struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	CronExpression    string `json:"cron_expression"`
	Timezone          string `json:"timezone"`
	Enabled           bool   `json:"enabled"`
	RetentionDays     int    `json:"retention_days"`
	EncryptionEnabled bool   `json:"encryption_enabled"`
	NotifyOnSuccess   bool   `json:"notify_on_success"`
	NotifyOnFailure   bool   `json:"notify_on_failure"`
}

func (in *ScheduleInput) validate() error {
	if in.Name == "" {
		return errors.New("schedule name is required")
	}
	if in.Timezone == "" {
		in.Timezone = "UTC"
	}
	// Zero is a valid window: such backups expire on the next sweep.
	if in.RetentionDays < 0 {
		return fmt.Errorf("retention_days must not be negative, got %d", in.RetentionDays)
	}
	// NextRun validates both the expression and the timezone.
	if _, err := NextRun(in.CronExpression, in.Timezone, time.Now()); err != nil {
		return err
	}
	return nil
}

// Create validates the input, computes the first run instant, and persists a
// new schedule. Names are unique; a clash returns ErrDuplicateScheduleName.
func (r *Registry) Create(ctx context.Context, in *ScheduleInput) (*Schedule, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	if existing, err := r.store.GetScheduleByName(ctx, in.Name); err != nil && !errors.Is(err, ErrScheduleNotFound) {
		return nil, fmt.Errorf("failed to check schedule name: %w", err)
	} else if existing != nil {
		return nil, ErrDuplicateScheduleName
	}

	now := r.now().UTC()
	next, err := NextRun(in.CronExpression, in.Timezone, now)
	if err != nil {
		return nil, err
	}

	s := &Schedule{
		ID:                uuid.NewString(),
		Name:              in.Name,
		Description:       in.Description,
		CronExpression:    in.CronExpression,
		Timezone:          in.Timezone,
		Enabled:           in.Enabled,
		RetentionDays:     in.RetentionDays,
		EncryptionEnabled: in.EncryptionEnabled,
		NotifyOnSuccess:   in.NotifyOnSuccess,
		NotifyOnFailure:   in.NotifyOnFailure,
		NextRunAt:         next,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := r.store.CreateSchedule(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	logging.Info().
		Str("schedule_id", s.ID).
		Str("name", s.Name).
		Str("cron", s.CronExpression).
		Time("next_run_at", s.NextRunAt).
		Msg("Backup schedule created")

	return s, nil
}

// Update applies the input to an existing schedule. When the cron
// expression, timezone, or enabled flag changes, the next-run instant is
// recomputed from the current time.
func (r *Registry) Update(ctx context.Context, id string, in *ScheduleInput) (*Schedule, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	s, err := r.store.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != s.Name {
		if existing, err := r.store.GetScheduleByName(ctx, in.Name); err != nil && !errors.Is(err, ErrScheduleNotFound) {
			return nil, fmt.Errorf("failed to check schedule name: %w", err)
		} else if existing != nil {
			return nil, ErrDuplicateScheduleName
		}
	}

	timingChanged := in.CronExpression != s.CronExpression ||
		in.Timezone != s.Timezone ||
		in.Enabled != s.Enabled

	s.Name = in.Name
	s.Description = in.Description
	s.CronExpression = in.CronExpression
	s.Timezone = in.Timezone
	s.Enabled = in.Enabled
	s.RetentionDays = in.RetentionDays
	s.EncryptionEnabled = in.EncryptionEnabled
	s.NotifyOnSuccess = in.NotifyOnSuccess
	s.NotifyOnFailure = in.NotifyOnFailure
	s.UpdatedAt = r.now().UTC()

	if timingChanged {
		next, err := NextRun(s.CronExpression, s.Timezone, r.now())
		if err != nil {
			return nil, err
		}
		s.NextRunAt = next
	}

	if err := r.store.UpdateSchedule(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}

	logging.Info().
		Str("schedule_id", s.ID).
		Bool("timing_changed", timingChanged).
		Time("next_run_at", s.NextRunAt).
		Msg("Backup schedule updated")

	return s, nil
}

// Get returns one schedule by ID.
func (r *Registry) Get(ctx context.Context, id string) (*Schedule, error) {
	return r.store.GetSchedule(ctx, id)
}

// List returns all schedules.
func (r *Registry) List(ctx context.Context) ([]*Schedule, error) {
	return r.store.ListSchedules(ctx)
}

// Delete removes a schedule. Ledger records referencing it survive; the
// retention sweep treats them as unresolvable and leaves them alone.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if _, err := r.store.GetSchedule(ctx, id); err != nil {
		return err
	}
	if err := r.store.DeleteSchedule(ctx, id); err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	logging.Info().Str("schedule_id", id).Msg("Backup schedule deleted")
	return nil
}

// EnsureDefault creates the default daily schedule if no schedule with that
// name exists. Idempotent across restarts: an existing schedule is returned
// untouched, preserving any operator edits.
func (r *Registry) EnsureDefault(ctx context.Context, encryptionAvailable bool) (*Schedule, error) {
	existing, err := r.store.GetScheduleByName(ctx, DefaultScheduleName)
	if err != nil && !errors.Is(err, ErrScheduleNotFound) {
		return nil, fmt.Errorf("failed to look up default schedule: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	s, err := r.Create(ctx, &ScheduleInput{
		Name:              DefaultScheduleName,
		Description:       "Daily full snapshot of all assessment data",
		CronExpression:    "0 2 * * *",
		Timezone:          "UTC",
		Enabled:           true,
		RetentionDays:     DefaultRetentionDays,
		EncryptionEnabled: encryptionAvailable,
		NotifyOnFailure:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create default schedule: %w", err)
	}

	logging.Info().
		Str("schedule_id", s.ID).
		Bool("encryption_enabled", s.EncryptionEnabled).
		Msg("Default backup schedule created")

	return s, nil
}
