// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

// Command server runs the Facilium backup service: the schedule poller,
// retention sweep, and the administrative HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/facilium/facilium/internal/api"
	"github.com/facilium/facilium/internal/backup"
	"github.com/facilium/facilium/internal/config"
	"github.com/facilium/facilium/internal/database"
	"github.com/facilium/facilium/internal/logging"
	"github.com/facilium/facilium/internal/notify"
	"github.com/facilium/facilium/internal/storage"
	"github.com/facilium/facilium/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Fatal error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Msg("Starting Facilium backup service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close database")
		}
	}()

	objects, err := buildObjectStore(ctx, cfg)
	if err != nil {
		return err
	}

	var engine *backup.Engine
	if cfg.Backup.EncryptionSecret != "" {
		engine, err = backup.NewEngine(cfg.Backup.EncryptionSecret, cfg.Backup.EncryptionKeyID)
		if err != nil {
			return fmt.Errorf("failed to initialize encryption: %w", err)
		}
		logging.Info().Str("key_id", engine.KeyID()).Msg("Backup encryption enabled")
	} else {
		logging.Warn().Msg("No encryption secret configured, backups will be stored in plaintext")
	}

	var notifier backup.Notifier
	if cfg.Notify.Enabled {
		notifier = notify.NewEmailNotifier(cfg.Notify)
		logging.Info().
			Int("recipients", len(cfg.Notify.Recipients)).
			Msg("Email notifications enabled")
	}

	registry := backup.NewRegistry(db)
	if _, err := registry.EnsureDefault(ctx, engine != nil); err != nil {
		return fmt.Errorf("failed to bootstrap default schedule: %w", err)
	}

	service := backup.NewService(backup.ServiceConfig{
		PollInterval:    cfg.Backup.PollInterval,
		CleanupInterval: cfg.Backup.CleanupInterval,
	}, db, registry, backup.NewCollector(db), objects, engine, notifier)

	router := api.NewRouter(api.NewHandlers(registry, service, db, db))

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeCfg)

	if cfg.Backup.Enabled {
		tree.AddBackupService(&supervisor.BackupRunner{Service: service})
	} else {
		logging.Warn().Msg("Backup scheduler disabled by configuration")
	}
	tree.AddAPIService(&supervisor.HTTPServer{
		Server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	err = tree.Serve(ctx)
	if err != nil && err != context.Canceled {
		return fmt.Errorf("supervisor exited: %w", err)
	}
	logging.Info().Msg("Shutdown complete")
	return nil
}

// buildObjectStore constructs the configured storage backend.
func buildObjectStore(ctx context.Context, cfg *config.Config) (backup.ObjectStore, error) {
	switch cfg.Storage.Backend {
	case "s3":
		return storage.NewS3Store(ctx, cfg.Storage.S3)
	case "filesystem":
		return storage.NewFilesystemStore(cfg.Storage.Filesystem.Dir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
