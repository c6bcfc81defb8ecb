// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/facilium/facilium/internal/backup"
	"github.com/facilium/facilium/internal/config"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})
	return db
}

func testSchedule(name string) *backup.Schedule {
	now := time.Now().UTC().Truncate(time.Second)
	return &backup.Schedule{
		ID:                "sched-" + name,
		Name:              name,
		Description:       "test schedule",
		CronExpression:    "0 2 * * *",
		Timezone:          "UTC",
		Enabled:           true,
		RetentionDays:     30,
		EncryptionEnabled: true,
		NotifyOnFailure:   true,
		NextRunAt:         now.Add(time.Hour),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestScheduleRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	want := testSchedule("nightly")
	if err := db.CreateSchedule(ctx, want); err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}

	got, err := db.GetSchedule(ctx, want.ID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	if got.Name != want.Name || got.CronExpression != want.CronExpression {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if !got.EncryptionEnabled || !got.NotifyOnFailure || got.NotifyOnSuccess {
		t.Error("boolean fields did not round trip")
	}
	if got.LastRunAt != nil {
		t.Error("last_run_at should be nil for a fresh schedule")
	}
	if !got.NextRunAt.Equal(want.NextRunAt) {
		t.Errorf("next_run_at = %v, want %v", got.NextRunAt, want.NextRunAt)
	}

	byName, err := db.GetScheduleByName(ctx, "nightly")
	if err != nil {
		t.Fatalf("GetScheduleByName failed: %v", err)
	}
	if byName.ID != want.ID {
		t.Errorf("lookup by name returned %q, want %q", byName.ID, want.ID)
	}
}

func TestScheduleNotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.GetSchedule(ctx, "missing"); !errors.Is(err, backup.ErrScheduleNotFound) {
		t.Errorf("GetSchedule: expected ErrScheduleNotFound, got: %v", err)
	}
	if _, err := db.GetScheduleByName(ctx, "missing"); !errors.Is(err, backup.ErrScheduleNotFound) {
		t.Errorf("GetScheduleByName: expected ErrScheduleNotFound, got: %v", err)
	}
	if err := db.UpdateSchedule(ctx, testSchedule("ghost")); !errors.Is(err, backup.ErrScheduleNotFound) {
		t.Errorf("UpdateSchedule: expected ErrScheduleNotFound, got: %v", err)
	}
	if err := db.DeleteSchedule(ctx, "missing"); !errors.Is(err, backup.ErrScheduleNotFound) {
		t.Errorf("DeleteSchedule: expected ErrScheduleNotFound, got: %v", err)
	}
}

func TestUpdateScheduleBookkeeping(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	s := testSchedule("nightly")
	if err := db.CreateSchedule(ctx, s); err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}

	ranAt := time.Now().UTC().Truncate(time.Second)
	s.LastRunAt = &ranAt
	s.LastRunStatus = backup.OutcomeSuccess
	s.LastBackupID = "backup-123"
	s.NextRunAt = ranAt.Add(24 * time.Hour)
	if err := db.UpdateSchedule(ctx, s); err != nil {
		t.Fatalf("UpdateSchedule failed: %v", err)
	}

	got, err := db.GetSchedule(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	if got.LastRunAt == nil || !got.LastRunAt.Equal(ranAt) {
		t.Errorf("last_run_at = %v, want %v", got.LastRunAt, ranAt)
	}
	if got.LastRunStatus != backup.OutcomeSuccess || got.LastBackupID != "backup-123" {
		t.Errorf("bookkeeping did not round trip: %+v", got)
	}
}

func TestDueSchedules(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	overdue := testSchedule("overdue")
	overdue.NextRunAt = now.Add(-time.Hour)
	future := testSchedule("future")
	future.NextRunAt = now.Add(time.Hour)
	disabled := testSchedule("disabled")
	disabled.NextRunAt = now.Add(-time.Hour)
	disabled.Enabled = false

	for _, s := range []*backup.Schedule{overdue, future, disabled} {
		if err := db.CreateSchedule(ctx, s); err != nil {
			t.Fatalf("CreateSchedule failed: %v", err)
		}
	}

	due, err := db.DueSchedules(ctx, now)
	if err != nil {
		t.Fatalf("DueSchedules failed: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("due count = %d, want 1", len(due))
	}
	if due[0].Name != "overdue" {
		t.Errorf("due schedule = %q, want overdue", due[0].Name)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	r := &backup.Record{
		ID:        "rec-1",
		Kind:      backup.KindScheduled,
		Status:    backup.StatusInProgress,
		Metadata:  `{"schedule_id":"sched-1","encrypted":true}`,
		CreatedAt: now,
	}
	if err := db.CreateRecord(ctx, r); err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}

	// Transition to completed with full payload details.
	completed := now.Add(time.Minute)
	r.Status = backup.StatusCompleted
	r.SizeBytes = 2048
	r.RecordCount = 17
	r.StorageKey = "backups/scheduled/2025-01-16T08-00-00Z-abcd1234.json.encrypted"
	r.StorageLocator = "s3://bucket/" + r.StorageKey
	r.Checksum = "deadbeef"
	r.Encryption = &backup.EncryptionMetadata{
		Algorithm: backup.AlgorithmAESGCM,
		IV:        "aXY=",
		AuthTag:   "dGFn",
		KeyID:     "primary",
	}
	r.CompletedAt = &completed
	if err := db.UpdateRecord(ctx, r); err != nil {
		t.Fatalf("UpdateRecord failed: %v", err)
	}

	got, err := db.GetRecord(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if got.Status != backup.StatusCompleted || got.SizeBytes != 2048 || got.RecordCount != 17 {
		t.Errorf("record did not round trip: %+v", got)
	}
	if got.Encryption == nil || got.Encryption.KeyID != "primary" {
		t.Errorf("encryption metadata did not round trip: %+v", got.Encryption)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completed) {
		t.Errorf("completed_at = %v, want %v", got.CompletedAt, completed)
	}
}

func TestRecordsOlderThan(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	old := &backup.Record{ID: "old", Kind: backup.KindScheduled, Status: backup.StatusCompleted, CreatedAt: now.AddDate(0, 0, -40)}
	fresh := &backup.Record{ID: "fresh", Kind: backup.KindScheduled, Status: backup.StatusCompleted, CreatedAt: now.AddDate(0, 0, -1)}
	manual := &backup.Record{ID: "manual", Kind: backup.KindManual, Status: backup.StatusCompleted, CreatedAt: now.AddDate(0, 0, -40)}
	for _, r := range []*backup.Record{old, fresh, manual} {
		if err := db.CreateRecord(ctx, r); err != nil {
			t.Fatalf("CreateRecord failed: %v", err)
		}
	}

	got, err := db.RecordsOlderThan(ctx, backup.KindScheduled, now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("RecordsOlderThan failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "old" {
		t.Errorf("got %d records, want only the old scheduled one", len(got))
	}
}

func TestListRecordsPagination(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		r := &backup.Record{
			ID:        string(rune('a' + i)),
			Kind:      backup.KindScheduled,
			Status:    backup.StatusCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.CreateRecord(ctx, r); err != nil {
			t.Fatalf("CreateRecord failed: %v", err)
		}
	}

	page, err := db.ListRecords(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	// Newest first.
	if page[0].ID != "e" || page[1].ID != "d" {
		t.Errorf("page order = %s,%s, want e,d", page[0].ID, page[1].ID)
	}

	rest, err := db.ListRecords(ctx, 10, 2)
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(rest) != 3 {
		t.Errorf("remaining = %d, want 3", len(rest))
	}
}

func TestReadDomain(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.conn.ExecContext(ctx, `
		INSERT INTO facilities (id, account_id, name, gross_area_sqft, year_built)
		VALUES ('f1', 'a1', 'Central Library', 42000.5, 1978)`); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	rows, err := db.ReadDomain(ctx, "facilities")
	if err != nil {
		t.Fatalf("ReadDomain failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0]["name"] != "Central Library" {
		t.Errorf("name = %v", rows[0]["name"])
	}
	if rows[0]["id"] != "f1" {
		t.Errorf("id = %v", rows[0]["id"])
	}

	empty, err := db.ReadDomain(ctx, "assets")
	if err != nil {
		t.Fatalf("ReadDomain on empty table failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("empty table returned %d rows", len(empty))
	}
}

func TestReadDomainRejectsUnknownTable(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.ReadDomain(context.Background(), "sqlite_master; DROP TABLE accounts"); err == nil {
		t.Error("expected error for unknown domain")
	}
}

func TestDomainOrderIsTopological(t *testing.T) {
	position := make(map[string]int, len(snapshotDomains))
	for i, d := range snapshotDomains {
		position[d] = i
	}

	for domain, deps := range domainDependencies {
		pos, ok := position[domain]
		if !ok {
			t.Errorf("domain %q has dependencies declared but is not in the snapshot order", domain)
			continue
		}
		for _, dep := range deps {
			depPos, ok := position[dep]
			if !ok {
				t.Errorf("domain %q depends on %q which is not a snapshot domain", domain, dep)
				continue
			}
			if depPos >= pos {
				t.Errorf("domain %q (pos %d) must come after its dependency %q (pos %d)", domain, pos, dep, depPos)
			}
		}
	}

	// Every snapshot domain has a declared dependency entry, so new tables
	// cannot silently skip the ordering check.
	for _, d := range snapshotDomains {
		if _, ok := domainDependencies[d]; !ok {
			t.Errorf("domain %q missing from the dependency map", d)
		}
	}
}
