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

	"github.com/facilium/facilium/internal/logging"
	"github.com/facilium/facilium/internal/metrics"
)

// RunCleanup performs one retention sweep over scheduled backups.
//
// The sweep is fail-safe: a record is deleted only when its metadata parses
// strictly, resolves to a live schedule, and the record is older than that
// schedule's retention cutoff. Unresolvable or orphaned records are retained
// indefinitely; losing track of a backup's provenance must never cause data
// loss. Manual backups are never swept.
func (s *Service) RunCleanup(ctx context.Context) error {
	now := s.now().UTC()

	schedules, err := s.store.ListSchedules(ctx)
	if err != nil {
		return fmt.Errorf("failed to list schedules for retention sweep: %w", err)
	}
	byID := make(map[string]*Schedule, len(schedules))
	for _, sched := range schedules {
		byID[sched.ID] = sched
	}

	candidates, err := s.store.RecordsOlderThan(ctx, KindScheduled, now)
	if err != nil {
		return fmt.Errorf("failed to list retention candidates: %w", err)
	}

	var deleted, retained int
	for _, record := range candidates {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if record.Status != StatusCompleted {
			retained++
			continue
		}

		meta, err := ParseRunMetadata(record.Metadata)
		if err != nil {
			if !errors.Is(err, ErrUnresolvableMetadata) {
				logging.Warn().Err(err).Str("backup_id", record.ID).Msg("Unexpected metadata parse error, retaining record")
			}
			retained++
			continue
		}

		schedule, ok := byID[meta.ScheduleID]
		if !ok {
			// Orphaned: its schedule was deleted. Retain.
			retained++
			continue
		}

		cutoff := now.AddDate(0, 0, -schedule.RetentionDays)
		if !record.CreatedAt.Before(cutoff) {
			retained++
			continue
		}

		s.deleteExpired(ctx, record, schedule)
		deleted++
	}

	if deleted > 0 || retained > 0 {
		logging.Info().
			Int("deleted", deleted).
			Int("retained", retained).
			Msg("Retention sweep completed")
	}

	return nil
}

// deleteExpired removes one expired backup: the stored object first, then
// the ledger entry. A storage delete failure is logged and the ledger entry
// still goes, so a vanished bucket cannot pin the ledger forever.
func (s *Service) deleteExpired(ctx context.Context, record *Record, schedule *Schedule) {
	if record.StorageKey != "" {
		if err := s.objects.Delete(ctx, record.StorageKey); err != nil {
			logging.Warn().
				Err(err).
				Str("backup_id", record.ID).
				Str("key", record.StorageKey).
				Msg("Failed to delete stored backup object")
		}
	}

	if err := s.store.DeleteRecord(ctx, record.ID); err != nil {
		logging.Error().
			Err(err).
			Str("backup_id", record.ID).
			Msg("Failed to delete expired backup record")
		return
	}

	metrics.RetentionDeletions.Inc()
	logging.Debug().
		Str("backup_id", record.ID).
		Str("schedule", schedule.Name).
		Int("retention_days", schedule.RetentionDays).
		Time("created_at", record.CreatedAt).
		Msg("Expired backup deleted")
}

// successRateWindow bounds the success-rate statistic to the most recent
// finished runs, so years of old history cannot mask a recent outage.
const successRateWindow = 50

// Stats summarizes the ledger for the admin surface. SuccessRate covers the
// newest successRateWindow finished runs only.
type Stats struct {
	TotalBackups     int64      `json:"total_backups"`
	CompletedBackups int64      `json:"completed_backups"`
	FailedBackups    int64      `json:"failed_backups"`
	InProgress       int64      `json:"in_progress"`
	TotalSizeBytes   int64      `json:"total_size_bytes"`
	LastCompletedAt  *time.Time `json:"last_completed_at,omitempty"`
	SuccessRate      float64    `json:"success_rate"`
	TotalSchedules   int        `json:"total_schedules"`
	EnabledSchedules int        `json:"enabled_schedules"`
	NextRunAt        *time.Time `json:"next_run_at,omitempty"`
}

// ComputeStats aggregates ledger and schedule state. The ledger is walked in
// pages so an old installation with thousands of records stays cheap on
// memory.
func (s *Service) ComputeStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	// Records come back newest first, so the first finished runs seen are
	// the ones the success-rate window covers.
	var recentFinished, recentCompleted int

	const pageSize = 500
	for offset := 0; ; offset += pageSize {
		page, err := s.store.ListRecords(ctx, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list backup records: %w", err)
		}
		for _, r := range page {
			stats.TotalBackups++
			switch r.Status {
			case StatusCompleted:
				stats.CompletedBackups++
				stats.TotalSizeBytes += r.SizeBytes
				if r.CompletedAt != nil && (stats.LastCompletedAt == nil || r.CompletedAt.After(*stats.LastCompletedAt)) {
					t := *r.CompletedAt
					stats.LastCompletedAt = &t
				}
				if recentFinished < successRateWindow {
					recentFinished++
					recentCompleted++
				}
			case StatusFailed:
				stats.FailedBackups++
				if recentFinished < successRateWindow {
					recentFinished++
				}
			case StatusInProgress:
				stats.InProgress++
			}
		}
		if len(page) < pageSize {
			break
		}
	}

	if recentFinished > 0 {
		stats.SuccessRate = float64(recentCompleted) / float64(recentFinished)
	}

	schedules, err := s.store.ListSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	stats.TotalSchedules = len(schedules)
	for _, sched := range schedules {
		if !sched.Enabled {
			continue
		}
		stats.EnabledSchedules++
		if stats.NextRunAt == nil || sched.NextRunAt.Before(*stats.NextRunAt) {
			t := sched.NextRunAt
			stats.NextRunAt = &t
		}
	}

	return stats, nil
}
