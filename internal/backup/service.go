// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

package backup

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/facilium/facilium/internal/logging"
	"github.com/facilium/facilium/internal/metrics"
)

// ServiceConfig carries the timing knobs of the backup service.
type ServiceConfig struct {
	// PollInterval is how often due schedules are checked.
	PollInterval time.Duration

	// CleanupInterval is how often the retention sweep runs.
	CleanupInterval time.Duration
}

// Service owns the backup lifecycle: the due-schedule poller, the retention
// sweep, and the execution pipeline. One Service instance exists per
// process.
type Service struct {
	cfg       ServiceConfig
	store     Store
	registry  *Registry
	collector *Collector
	objects   ObjectStore
	engine    *Engine
	notifier  Notifier

	// runMu serializes backup executions so concurrent triggers (poller
	// plus manual) never interleave snapshots.
	runMu sync.Mutex

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	now func() time.Time
}

// NewService wires the backup service. engine may be nil when no encryption
// secret is configured; schedules requesting encryption will then fail
// rather than write plaintext. notifier may be nil to disable notifications.
func NewService(cfg ServiceConfig, store Store, registry *Registry, collector *Collector, objects ObjectStore, engine *Engine, notifier Notifier) *Service {
	return &Service{
		cfg:       cfg,
		store:     store,
		registry:  registry,
		collector: collector,
		objects:   objects,
		engine:    engine,
		notifier:  notifier,
		now:       time.Now,
	}
}

// EncryptionAvailable reports whether an encryption engine is configured.
func (s *Service) EncryptionAvailable() bool {
	return s.engine != nil
}

// Start launches the poller and retention sweep goroutine. Calling Start on
// a running service is a logged no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		logging.Warn().Msg("Backup service already running, ignoring start")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.run(runCtx)

	logging.Info().
		Dur("poll_interval", s.cfg.PollInterval).
		Dur("cleanup_interval", s.cfg.CleanupInterval).
		Bool("encryption", s.engine != nil).
		Msg("Backup service started")

	return nil
}

// Stop halts the poller and waits for any in-flight execution to finish.
// Idempotent.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	logging.Info().Msg("Backup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	pollTicker := time.NewTicker(s.cfg.PollInterval)
	defer pollTicker.Stop()
	cleanupTicker := time.NewTicker(s.cfg.CleanupInterval)
	defer cleanupTicker.Stop()

	// One immediate poll so a restart never delays an overdue schedule by
	// a full interval.
	s.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			s.pollOnce(ctx)
		case <-cleanupTicker.C:
			if err := s.RunCleanup(ctx); err != nil {
				logging.Error().Err(err).Msg("Retention sweep failed")
			}
		}
	}
}

// pollOnce runs every due schedule. Errors are contained per schedule; a
// failing execution never stops the poll and never kills the loop.
func (s *Service) pollOnce(ctx context.Context) {
	due, err := s.store.DueSchedules(ctx, s.now().UTC())
	if err != nil {
		logging.Error().Err(err).Msg("Failed to query due backup schedules")
		metrics.PollerErrors.Inc()
		return
	}

	for _, schedule := range due {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.executeSchedule(ctx, schedule); err != nil {
			// Already recorded on the ledger; log and move on.
			logging.Error().
				Err(err).
				Str("schedule_id", schedule.ID).
				Str("name", schedule.Name).
				Msg("Scheduled backup failed")
		}
	}
}

// RunSchedule executes one schedule immediately, outside its cron timing.
// Used by the admin trigger endpoint.
func (s *Service) RunSchedule(ctx context.Context, scheduleID string) (*Record, error) {
	schedule, err := s.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	return s.executeSchedule(ctx, schedule)
}

// RunManual executes an ad-hoc backup not tied to any schedule. The payload
// is encrypted whenever an engine is configured.
func (s *Service) RunManual(ctx context.Context) (*Record, error) {
	return s.execute(ctx, nil)
}

// executeSchedule runs one schedule and updates its bookkeeping. The
// schedule's next run is always advanced, success or failure, so a broken
// schedule cannot wedge the poller into a retry storm.
func (s *Service) executeSchedule(ctx context.Context, schedule *Schedule) (*Record, error) {
	record, runErr := s.execute(ctx, schedule)

	now := s.now().UTC()
	schedule.LastRunAt = &now
	if runErr != nil {
		schedule.LastRunStatus = OutcomeFailed
	} else {
		schedule.LastRunStatus = OutcomeSuccess
	}
	if record != nil {
		schedule.LastBackupID = record.ID
	}
	if next, err := NextRun(schedule.CronExpression, schedule.Timezone, now); err != nil {
		logging.Error().
			Err(err).
			Str("schedule_id", schedule.ID).
			Msg("Failed to compute next run, disabling schedule")
		schedule.Enabled = false
	} else {
		schedule.NextRunAt = next
	}
	schedule.UpdatedAt = now

	if err := s.store.UpdateSchedule(ctx, schedule); err != nil {
		logging.Error().
			Err(err).
			Str("schedule_id", schedule.ID).
			Msg("Failed to persist schedule bookkeeping")
	}

	return record, runErr
}

// execute runs the full pipeline: collect, serialize, optionally encrypt,
// upload, and finalize the ledger record. schedule is nil for ad-hoc manual
// backups.
func (s *Service) execute(ctx context.Context, schedule *Schedule) (*Record, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	kind := KindManual
	encrypt := s.engine != nil
	meta := RunMetadata{}
	if schedule != nil {
		kind = KindScheduled
		encrypt = schedule.EncryptionEnabled
		meta.ScheduleID = schedule.ID
		meta.ScheduleName = schedule.Name
	}

	started := s.now()

	record := &Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusInProgress,
		CreatedAt: started.UTC(),
	}
	if blob, err := meta.Encode(); err == nil {
		record.Metadata = blob
	}
	if err := s.store.CreateRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create ledger record: %w", err)
	}

	finish := func(runErr error) (*Record, error) {
		duration := s.now().Sub(started)
		if runErr != nil {
			s.failRecord(ctx, record, meta, runErr)
			metrics.BackupRunsTotal.WithLabelValues(string(kind), "failed").Inc()
			metrics.BackupRunDuration.Observe(duration.Seconds())
			s.notify(ctx, schedule, record, runErr, duration)
			return record, runErr
		}
		metrics.BackupRunsTotal.WithLabelValues(string(kind), "completed").Inc()
		metrics.BackupRunDuration.Observe(duration.Seconds())
		metrics.BackupPayloadBytes.Observe(float64(record.SizeBytes))
		s.notify(ctx, schedule, record, nil, duration)
		return record, nil
	}

	payload, err := s.collector.Collect(ctx, kind)
	if err != nil {
		return finish(fmt.Errorf("snapshot collection failed: %w", err))
	}
	payload.Encrypted = encrypt
	meta.DomainCounts = payload.DomainCounts
	meta.Encrypted = encrypt

	plaintext, err := marshalPayload(payload)
	if err != nil {
		return finish(fmt.Errorf("failed to serialize snapshot: %w", err))
	}

	stored := plaintext
	var encMeta *EncryptionMetadata
	if encrypt {
		stored, encMeta, err = s.engine.Encrypt(plaintext)
		if err != nil {
			return finish(fmt.Errorf("encryption failed: %w", err))
		}
	}

	key, err := objectKey(kind, started.UTC(), encrypt)
	if err != nil {
		return finish(err)
	}

	locator, err := s.objects.Put(ctx, key, stored, "application/json")
	if err != nil {
		return finish(fmt.Errorf("upload failed: %w", err))
	}

	record.Status = StatusCompleted
	record.SizeBytes = int64(len(stored))
	record.RecordCount = payload.TotalRecords
	record.StorageKey = key
	record.StorageLocator = locator
	record.Checksum = ChecksumHex(stored)
	record.Encryption = encMeta
	completed := s.now().UTC()
	record.CompletedAt = &completed
	if blob, err := meta.Encode(); err == nil {
		record.Metadata = blob
	}

	if err := s.store.UpdateRecord(ctx, record); err != nil {
		return finish(fmt.Errorf("failed to finalize ledger record: %w", err))
	}

	logging.Info().
		Str("backup_id", record.ID).
		Str("kind", string(kind)).
		Int64("size_bytes", record.SizeBytes).
		Int64("records", record.RecordCount).
		Bool("encrypted", encrypt).
		Str("key", key).
		Msg("Backup completed")

	return finish(nil)
}

// failRecord transitions the ledger entry to failed with the error captured
// in its metadata. A failed record never references a retrievable artifact:
// any object uploaded before the failure is deleted best-effort, and the
// storage, checksum, and encryption fields are cleared before persisting.
func (s *Service) failRecord(ctx context.Context, record *Record, meta RunMetadata, runErr error) {
	if record.StorageKey != "" {
		if err := s.objects.Delete(ctx, record.StorageKey); err != nil {
			logging.Warn().
				Err(err).
				Str("backup_id", record.ID).
				Str("key", record.StorageKey).
				Msg("Failed to delete uploaded object of failed backup")
		}
	}

	record.Status = StatusFailed
	record.StorageKey = ""
	record.StorageLocator = ""
	record.Checksum = ""
	record.Encryption = nil
	record.SizeBytes = 0
	record.RecordCount = 0
	completed := s.now().UTC()
	record.CompletedAt = &completed
	meta.Error = runErr.Error()
	if blob, err := meta.Encode(); err == nil {
		record.Metadata = blob
	}
	if err := s.store.UpdateRecord(ctx, record); err != nil {
		logging.Error().
			Err(err).
			Str("backup_id", record.ID).
			Msg("Failed to mark backup record failed")
	}
}

// notify dispatches the outcome per the schedule's toggles. Best effort:
// dispatch errors are logged and counted, never propagated.
func (s *Service) notify(ctx context.Context, schedule *Schedule, record *Record, runErr error, duration time.Duration) {
	if s.notifier == nil || schedule == nil {
		return
	}

	n := Notification{
		ScheduleID:   schedule.ID,
		ScheduleName: schedule.Name,
		BackupID:     record.ID,
		SizeBytes:    record.SizeBytes,
		RecordCount:  record.RecordCount,
		Locator:      record.StorageLocator,
		Encrypted:    record.Encryption != nil,
		FinishedAt:   s.now().UTC(),
		Duration:     duration,
	}

	var err error
	var kind string
	switch {
	case runErr != nil && schedule.NotifyOnFailure:
		n.Error = runErr.Error()
		kind = "failure"
		err = s.notifier.NotifyFailure(ctx, n)
	case runErr == nil && schedule.NotifyOnSuccess:
		kind = "success"
		err = s.notifier.NotifySuccess(ctx, n)
	default:
		return
	}

	if err != nil {
		logging.Warn().
			Err(err).
			Str("schedule_id", schedule.ID).
			Msg("Backup notification failed")
		metrics.NotificationsSent.WithLabelValues(kind, "error").Inc()
		return
	}
	metrics.NotificationsSent.WithLabelValues(kind, "sent").Inc()
}

// objectKey builds the storage key for one backup payload. The timestamp is
// RFC3339 with colons replaced so keys stay safe for filesystem backends;
// the random suffix keeps same-minute runs from colliding.
func objectKey(kind Kind, ts time.Time, encrypted bool) (string, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("failed to generate key suffix: %w", err)
	}

	stamp := strings.ReplaceAll(ts.Format(time.RFC3339), ":", "-")
	ext := ".json"
	if encrypted {
		ext = ".json.encrypted"
	}
	return fmt.Sprintf("backups/%s/%s-%s%s", kind, stamp, hex.EncodeToString(suffix), ext), nil
}
