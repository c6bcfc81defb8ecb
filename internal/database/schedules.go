// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/facilium/facilium/internal/backup"
)

const scheduleColumns = `id, name, description, cron_expression, timezone, enabled,
	retention_days, encryption_enabled, notify_on_success, notify_on_failure,
	last_run_at, last_run_status, last_backup_id, next_run_at, created_at, updated_at`

// CreateSchedule implements backup.Store.
func (db *DB) CreateSchedule(ctx context.Context, s *backup.Schedule) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO backup_schedules (`+scheduleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Description, s.CronExpression, s.Timezone, s.Enabled,
		s.RetentionDays, s.EncryptionEnabled, s.NotifyOnSuccess, s.NotifyOnFailure,
		s.LastRunAt, nullString(s.LastRunStatus), nullString(s.LastBackupID),
		s.NextRunAt, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert schedule: %w", err)
	}
	return nil
}

// GetSchedule implements backup.Store.
func (db *DB) GetSchedule(ctx context.Context, id string) (*backup.Schedule, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM backup_schedules WHERE id = ?`, id)
	return scanSchedule(row)
}

// GetScheduleByName implements backup.Store.
func (db *DB) GetScheduleByName(ctx context.Context, name string) (*backup.Schedule, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM backup_schedules WHERE name = ?`, name)
	return scanSchedule(row)
}

// ListSchedules implements backup.Store.
func (db *DB) ListSchedules(ctx context.Context) ([]*backup.Schedule, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+scheduleColumns+` FROM backup_schedules ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var out []*backup.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DueSchedules implements backup.Store. It returns enabled schedules whose
// next run is at or before now, oldest first.
func (db *DB) DueSchedules(ctx context.Context, now time.Time) ([]*backup.Schedule, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+scheduleColumns+`
		FROM backup_schedules
		WHERE enabled AND next_run_at <= ?
		ORDER BY next_run_at`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query due schedules: %w", err)
	}
	defer rows.Close()

	var out []*backup.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateSchedule implements backup.Store.
func (db *DB) UpdateSchedule(ctx context.Context, s *backup.Schedule) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE backup_schedules SET
			name = ?, description = ?, cron_expression = ?, timezone = ?,
			enabled = ?, retention_days = ?, encryption_enabled = ?,
			notify_on_success = ?, notify_on_failure = ?,
			last_run_at = ?, last_run_status = ?, last_backup_id = ?,
			next_run_at = ?, updated_at = ?
		WHERE id = ?`,
		s.Name, s.Description, s.CronExpression, s.Timezone,
		s.Enabled, s.RetentionDays, s.EncryptionEnabled,
		s.NotifyOnSuccess, s.NotifyOnFailure,
		s.LastRunAt, nullString(s.LastRunStatus), nullString(s.LastBackupID),
		s.NextRunAt, s.UpdatedAt, s.ID)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return backup.ErrScheduleNotFound
	}
	return nil
}

// DeleteSchedule implements backup.Store.
func (db *DB) DeleteSchedule(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM backup_schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return backup.ErrScheduleNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*backup.Schedule, error) {
	var s backup.Schedule
	var description, lastRunStatus, lastBackupID sql.NullString
	var lastRunAt sql.NullTime

	err := row.Scan(
		&s.ID, &s.Name, &description, &s.CronExpression, &s.Timezone, &s.Enabled,
		&s.RetentionDays, &s.EncryptionEnabled, &s.NotifyOnSuccess, &s.NotifyOnFailure,
		&lastRunAt, &lastRunStatus, &lastBackupID,
		&s.NextRunAt, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, backup.ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedule: %w", err)
	}

	s.Description = description.String
	s.LastRunStatus = lastRunStatus.String
	s.LastBackupID = lastBackupID.String
	if lastRunAt.Valid {
		t := lastRunAt.Time.UTC()
		s.LastRunAt = &t
	}
	s.NextRunAt = s.NextRunAt.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
