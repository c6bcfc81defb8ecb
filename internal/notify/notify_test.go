// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/facilium/facilium/internal/backup"
	"github.com/facilium/facilium/internal/config"
)

func testConfig() config.NotifyConfig {
	return config.NotifyConfig{
		Enabled:      true,
		SMTPHost:     "mail.example.com",
		SMTPPort:     587,
		SMTPFrom:     "backups@example.com",
		SMTPFromName: "Facilium Backups",
		Recipients:   []string{"ops@example.com", "admin@example.com"},
	}
}

func testNotification() backup.Notification {
	return backup.Notification{
		ScheduleID:   "sched-1",
		ScheduleName: "nightly",
		BackupID:     "backup-1",
		SizeBytes:    4096,
		RecordCount:  120,
		Locator:      "s3://bucket/backups/scheduled/x.json.encrypted",
		Encrypted:    true,
		FinishedAt:   time.Date(2025, 1, 16, 8, 0, 5, 0, time.UTC),
		Duration:     5 * time.Second,
	}
}

func TestNotifySuccessDeliversToAllRecipients(t *testing.T) {
	n := NewEmailNotifier(testConfig())

	var sent []string
	var messages []string
	n.sendFn = func(_ context.Context, to, msg string) error {
		sent = append(sent, to)
		messages = append(messages, msg)
		return nil
	}

	if err := n.NotifySuccess(context.Background(), testNotification()); err != nil {
		t.Fatalf("NotifySuccess failed: %v", err)
	}

	if len(sent) != 2 {
		t.Fatalf("deliveries = %d, want 2", len(sent))
	}
	msg := messages[0]
	if !strings.Contains(msg, "Subject: Backup succeeded: nightly") {
		t.Errorf("missing subject in message:\n%s", msg)
	}
	if !strings.Contains(msg, "To: ops@example.com") {
		t.Errorf("missing recipient header in message:\n%s", msg)
	}
	if !strings.Contains(msg, "s3://bucket/backups/scheduled/x.json.encrypted") {
		t.Error("success body missing locator")
	}
	if !strings.Contains(msg, "Records:      120") {
		t.Error("success body missing record count")
	}
}

func TestNotifyFailureIncludesError(t *testing.T) {
	n := NewEmailNotifier(testConfig())

	var captured string
	n.sendFn = func(_ context.Context, _, msg string) error {
		captured = msg
		return nil
	}

	note := testNotification()
	note.Error = "upload failed: bucket unavailable"
	if err := n.NotifyFailure(context.Background(), note); err != nil {
		t.Fatalf("NotifyFailure failed: %v", err)
	}

	if !strings.Contains(captured, "Subject: Backup FAILED: nightly") {
		t.Errorf("missing failure subject:\n%s", captured)
	}
	if !strings.Contains(captured, "upload failed: bucket unavailable") {
		t.Error("failure body missing error text")
	}
	if strings.Contains(captured, "Location:") {
		t.Error("failure body should not advertise a storage location")
	}
}

func TestDeliverReturnsFirstErrorButTriesAll(t *testing.T) {
	n := NewEmailNotifier(testConfig())

	var attempts int
	n.sendFn = func(_ context.Context, to, _ string) error {
		attempts++
		if to == "ops@example.com" {
			return errors.New("mailbox full")
		}
		return nil
	}

	err := n.NotifySuccess(context.Background(), testNotification())
	if err == nil {
		t.Fatal("expected delivery error")
	}
	if !strings.Contains(err.Error(), "ops@example.com") {
		t.Errorf("error should name the failed recipient: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want both recipients tried", attempts)
	}
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cfg := testConfig()
	cfg.Recipients = []string{"ops@example.com"}
	n := NewEmailNotifier(cfg)

	var attempts int
	n.sendFn = func(_ context.Context, _, _ string) error {
		attempts++
		return errors.New("connection refused")
	}

	// Three failures trip the breaker; further sends are rejected without
	// touching the transport.
	for i := 0; i < 5; i++ {
		_ = n.NotifySuccess(context.Background(), testNotification())
	}

	if attempts != 3 {
		t.Errorf("transport attempts = %d, want 3 before the breaker opens", attempts)
	}
}
