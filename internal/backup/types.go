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

	"github.com/goccy/go-json"
)

// PayloadVersion is the snapshot payload format version tag.
const PayloadVersion = "1"

// Kind indicates what initiated a backup.
type Kind string

const (
	// KindManual indicates the backup was triggered by an administrator.
	KindManual Kind = "manual"

	// KindScheduled indicates the backup was triggered by the scheduler.
	KindScheduled Kind = "scheduled"
)

// Status represents the state of a backup record. Transitions are strictly
// in_progress -> completed or in_progress -> failed; never backward, never
// skipped.
type Status string

const (
	// StatusInProgress indicates the backup is currently running.
	StatusInProgress Status = "in_progress"

	// StatusCompleted indicates the backup finished successfully.
	StatusCompleted Status = "completed"

	// StatusFailed indicates the backup failed.
	StatusFailed Status = "failed"
)

// Last-run outcomes recorded on a schedule.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Schedule is a persisted backup schedule configuration.
type Schedule struct {
	// Unique identifier for the schedule
	ID string `json:"id"`

	// Display name, unique across schedules
	Name string `json:"name"`

	// Free-form description
	Description string `json:"description,omitempty"`

	// 5-field cron expression (minute hour day-of-month month day-of-week)
	CronExpression string `json:"cron_expression"`

	// IANA timezone identifier the expression is evaluated in
	Timezone string `json:"timezone"`

	// Whether the scheduler considers this schedule
	Enabled bool `json:"enabled"`

	// Completed scheduled backups older than this many days are swept
	RetentionDays int `json:"retention_days"`

	// Whether payloads are encrypted before upload
	EncryptionEnabled bool `json:"encryption_enabled"`

	// Notification toggles
	NotifyOnSuccess bool `json:"notify_on_success"`
	NotifyOnFailure bool `json:"notify_on_failure"`

	// Bookkeeping from the most recent execution
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	LastRunStatus string     `json:"last_run_status,omitempty"`
	LastBackupID  string     `json:"last_backup_id,omitempty"`

	// Earliest future instant satisfying the cron expression, recomputed
	// after every execution and on every cron/timezone/enabled change
	NextRunAt time.Time `json:"next_run_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Record is one ledger entry: a durable trace of a single backup execution
// attempt and its outcome.
type Record struct {
	// Unique identifier for the record
	ID string `json:"id"`

	// What initiated this backup
	Kind Kind `json:"kind"`

	// Current state of the attempt
	Status Status `json:"status"`

	// Size of the uploaded payload in bytes, final once completed
	SizeBytes int64 `json:"size_bytes"`

	// Total records across all domains, final once completed
	RecordCount int64 `json:"record_count"`

	// Object storage key; empty until completed
	StorageKey string `json:"storage_key,omitempty"`

	// Stable retrieval locator returned by the object store; empty until
	// completed, and never populated on a failed record
	StorageLocator string `json:"storage_locator,omitempty"`

	// SHA-256 checksum over the stored bytes (ciphertext when encrypted)
	Checksum string `json:"checksum,omitempty"`

	// Encryption metadata; nil when the payload is unencrypted
	Encryption *EncryptionMetadata `json:"encryption,omitempty"`

	// Metadata is a JSON-serialized RunMetadata blob. It is parsed
	// strictly on read; unparsable content is treated as unresolvable,
	// never as an error to propagate.
	Metadata string `json:"metadata,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// EncryptionMetadata describes how a completed payload was encrypted.
// All fields are populated together or not at all.
type EncryptionMetadata struct {
	// Algorithm identifier, e.g. "AES-256-GCM"
	Algorithm string `json:"algorithm"`

	// Base64-encoded initialization vector (GCM nonce)
	IV string `json:"iv"`

	// Base64-encoded authentication tag
	AuthTag string `json:"auth_tag"`

	// Identifier of the key used, for rotation support
	KeyID string `json:"key_id"`
}

// RunMetadata is the structured content of a Record's metadata blob.
type RunMetadata struct {
	ScheduleID   string           `json:"schedule_id,omitempty"`
	ScheduleName string           `json:"schedule_name,omitempty"`
	DomainCounts map[string]int64 `json:"domain_counts,omitempty"`
	Encrypted    bool             `json:"encrypted"`

	// Error holds the failure message on a failed record.
	Error string `json:"error,omitempty"`
}

// ErrUnresolvableMetadata is returned when a metadata blob cannot be parsed
// or does not reference a schedule. The retention sweep treats such records
// as untouchable.
var ErrUnresolvableMetadata = errors.New("backup record metadata is unresolvable")

// Encode serializes the metadata for storage on a Record.
func (m *RunMetadata) Encode() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode run metadata: %w", err)
	}
	return string(data), nil
}

// ParseRunMetadata strictly parses a Record metadata blob. A blob that is
// empty, malformed, or missing a schedule reference yields
// ErrUnresolvableMetadata.
func ParseRunMetadata(blob string) (*RunMetadata, error) {
	if blob == "" {
		return nil, ErrUnresolvableMetadata
	}
	var meta RunMetadata
	if err := json.Unmarshal([]byte(blob), &meta); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvableMetadata, err.Error())
	}
	if meta.ScheduleID == "" {
		return nil, ErrUnresolvableMetadata
	}
	return &meta, nil
}

// SnapshotPayload is the ephemeral in-memory aggregate of all domain records
// collected for one backup. It is serialized, optionally encrypted, uploaded,
// and then discarded; it is never persisted as a row.
type SnapshotPayload struct {
	Version      string                      `json:"version"`
	Type         Kind                        `json:"type"`
	Encrypted    bool                        `json:"encrypted"`
	CreatedAt    time.Time                   `json:"created_at"`
	Domains      []string                    `json:"domains"`
	DomainCounts map[string]int64            `json:"domain_counts"`
	TotalRecords int64                       `json:"total_records"`
	Records      map[string][]map[string]any `json:"records"`
}

// marshalPayload serializes a snapshot payload for upload.
func marshalPayload(p *SnapshotPayload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot payload: %w", err)
	}
	return data, nil
}

// Store defines the persistence operations the backup subsystem needs from
// the relational data store.
type Store interface {
	// Schedule registry
	CreateSchedule(ctx context.Context, s *Schedule) error
	GetSchedule(ctx context.Context, id string) (*Schedule, error)
	GetScheduleByName(ctx context.Context, name string) (*Schedule, error)
	ListSchedules(ctx context.Context) ([]*Schedule, error)
	UpdateSchedule(ctx context.Context, s *Schedule) error
	DeleteSchedule(ctx context.Context, id string) error

	// DueSchedules returns enabled schedules whose next-run instant is at
	// or before now.
	DueSchedules(ctx context.Context, now time.Time) ([]*Schedule, error)

	// Ledger
	CreateRecord(ctx context.Context, r *Record) error
	UpdateRecord(ctx context.Context, r *Record) error
	GetRecord(ctx context.Context, id string) (*Record, error)
	ListRecords(ctx context.Context, limit, offset int) ([]*Record, error)
	RecordsOlderThan(ctx context.Context, kind Kind, cutoff time.Time) ([]*Record, error)
	DeleteRecord(ctx context.Context, id string) error
}

// DomainReader reads application domain tables for snapshotting.
type DomainReader interface {
	// Domains returns the snapshot domain names in dependency order.
	Domains() []string

	// ReadDomain returns every current record of one domain.
	ReadDomain(ctx context.Context, domain string) ([]map[string]any, error)
}

// ObjectStore durably persists backup payloads.
type ObjectStore interface {
	// Put writes the payload under key and returns a stable locator.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Delete removes a stored payload. Used by the retention sweep.
	Delete(ctx context.Context, key string) error
}

// Notification carries the details of a finished backup execution to the
// notification dispatcher.
type Notification struct {
	ScheduleID   string
	ScheduleName string
	BackupID     string
	SizeBytes    int64
	RecordCount  int64
	Locator      string
	Encrypted    bool
	Error        string
	FinishedAt   time.Time
	Duration     time.Duration
}

// Notifier dispatches success/failure notifications. Implementations are
// best-effort: a returned error is logged by the caller and never alters
// the outcome of the backup being reported on.
type Notifier interface {
	NotifySuccess(ctx context.Context, n Notification) error
	NotifyFailure(ctx context.Context, n Notification) error
}
