// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

// Package config provides configuration management for the Facilium backup
// service. Configuration is loaded in three layers, each overriding the last:
// struct defaults, an optional YAML file, and FACILIUM_-prefixed environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the backup service process.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Database DatabaseConfig `koanf:"database"`
	Backup   BackupConfig   `koanf:"backup"`
	Storage  StorageConfig  `koanf:"storage"`
	Notify   NotifyConfig   `koanf:"notify"`
}

// ServerConfig holds HTTP server settings for the administrative API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig holds settings for the DuckDB data store.
type DatabaseConfig struct {
	// Path to the database file. ":memory:" is accepted for tests.
	Path string `koanf:"path" validate:"required"`

	// MaxMemory is the DuckDB memory limit (e.g. "2GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 means runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// BackupConfig holds settings for the backup scheduler itself.
type BackupConfig struct {
	// Enabled controls whether the scheduler service is armed at startup.
	Enabled bool `koanf:"enabled"`

	// PollInterval is how often due schedules are checked.
	PollInterval time.Duration `koanf:"poll_interval"`

	// CleanupInterval is how often the retention sweep runs.
	CleanupInterval time.Duration `koanf:"cleanup_interval"`

	// EncryptionSecret is the master secret from which the AES-256 backup
	// key is derived. Required when any schedule enables encryption.
	EncryptionSecret string `koanf:"encryption_secret"`

	// EncryptionKeyID identifies the active key for rotation support.
	EncryptionKeyID string `koanf:"encryption_key_id"`
}

// StorageConfig holds object storage settings for backup payloads.
type StorageConfig struct {
	// Backend selects the object store implementation: "s3" or "filesystem".
	Backend string `koanf:"backend" validate:"oneof=s3 filesystem"`

	S3         S3Config         `koanf:"s3"`
	Filesystem FilesystemConfig `koanf:"filesystem"`
}

// S3Config holds S3-compatible object storage settings.
type S3Config struct {
	Region string `koanf:"region"`
	Bucket string `koanf:"bucket"`

	// Endpoint overrides the AWS endpoint for S3-compatible stores
	// (MinIO, Ceph RGW). Empty means AWS.
	Endpoint string `koanf:"endpoint"`

	// UsePathStyle forces path-style addressing, required by most
	// S3-compatible stores.
	UsePathStyle bool `koanf:"use_path_style"`
}

// FilesystemConfig holds local-directory object storage settings.
type FilesystemConfig struct {
	Dir string `koanf:"dir"`
}

// NotifyConfig holds outbound email notification settings.
type NotifyConfig struct {
	Enabled bool `koanf:"enabled"`

	SMTPHost     string `koanf:"smtp_host"`
	SMTPPort     int    `koanf:"smtp_port"`
	SMTPUser     string `koanf:"smtp_user"`
	SMTPPassword string `koanf:"smtp_password"`
	SMTPFrom     string `koanf:"smtp_from"`
	SMTPFromName string `koanf:"smtp_from_name"`
	UseTLS       bool   `koanf:"use_tls"`

	// Recipients receive success/failure notifications.
	Recipients []string `koanf:"recipients"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8090,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Path:      "/data/facilium.duckdb",
			MaxMemory: "2GB",
			Threads:   0,
		},
		Backup: BackupConfig{
			Enabled:         true,
			PollInterval:    time.Minute,
			CleanupInterval: 24 * time.Hour,
			EncryptionKeyID: "primary",
		},
		Storage: StorageConfig{
			Backend: "filesystem",
			S3: S3Config{
				Region: "us-east-1",
			},
			Filesystem: FilesystemConfig{
				Dir: "/data/backups",
			},
		},
		Notify: NotifyConfig{
			Enabled:      false,
			SMTPPort:     587,
			SMTPFromName: "Facilium Backups",
			UseTLS:       true,
		},
	}
}

// Validate checks the configuration for structural and semantic errors.
// Configuration errors are fatal to startup and are never silently corrected.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Backup.PollInterval < time.Second {
		return fmt.Errorf("backup.poll_interval must be at least 1s, got %s", c.Backup.PollInterval)
	}
	if c.Backup.CleanupInterval < time.Minute {
		return fmt.Errorf("backup.cleanup_interval must be at least 1m, got %s", c.Backup.CleanupInterval)
	}

	switch c.Storage.Backend {
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when backend is s3")
		}
	case "filesystem":
		if c.Storage.Filesystem.Dir == "" {
			return fmt.Errorf("storage.filesystem.dir is required when backend is filesystem")
		}
	}

	if c.Notify.Enabled {
		if c.Notify.SMTPHost == "" {
			return fmt.Errorf("notify.smtp_host is required when notifications are enabled")
		}
		if c.Notify.SMTPFrom == "" {
			return fmt.Errorf("notify.smtp_from is required when notifications are enabled")
		}
		if len(c.Notify.Recipients) == 0 {
			return fmt.Errorf("notify.recipients must not be empty when notifications are enabled")
		}
	}

	return nil
}
