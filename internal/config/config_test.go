// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

package config

import (
	"strings"
	"testing"
	"time"
)

func validTestConfig() *Config {
	cfg := defaultConfig()
	cfg.Database.Path = ":memory:"
	return cfg
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := validTestConfig().Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "poll interval too small",
			mutate:  func(c *Config) { c.Backup.PollInterval = 100 * time.Millisecond },
			wantErr: "poll_interval",
		},
		{
			name:    "cleanup interval too small",
			mutate:  func(c *Config) { c.Backup.CleanupInterval = 10 * time.Second },
			wantErr: "cleanup_interval",
		},
		{
			name: "s3 backend without bucket",
			mutate: func(c *Config) {
				c.Storage.Backend = "s3"
				c.Storage.S3.Bucket = ""
			},
			wantErr: "bucket",
		},
		{
			name:    "filesystem backend without dir",
			mutate:  func(c *Config) { c.Storage.Filesystem.Dir = "" },
			wantErr: "dir",
		},
		{
			name:    "unknown storage backend",
			mutate:  func(c *Config) { c.Storage.Backend = "ftp" },
			wantErr: "invalid configuration",
		},
		{
			name: "notifications enabled without host",
			mutate: func(c *Config) {
				c.Notify.Enabled = true
				c.Notify.SMTPFrom = "backups@example.com"
				c.Notify.Recipients = []string{"ops@example.com"}
			},
			wantErr: "smtp_host",
		},
		{
			name: "notifications enabled without recipients",
			mutate: func(c *Config) {
				c.Notify.Enabled = true
				c.Notify.SMTPHost = "mail.example.com"
				c.Notify.SMTPFrom = "backups@example.com"
			},
			wantErr: "recipients",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "invalid configuration",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"FACILIUM_BACKUP_POLL_INTERVAL", "backup.poll_interval"},
		{"FACILIUM_SERVER_PORT", "server.port"},
		{"FACILIUM_STORAGE_BACKEND", "storage.backend"},
		{"FACILIUM_NOTIFY_SMTP_HOST", "notify.smtp_host"},
	}

	for _, tt := range tests {
		if got := envTransform(tt.input); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
