// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/facilium/facilium/internal/backup"
	"github.com/facilium/facilium/internal/logging"
)

// BackupRunner adapts backup.Service to suture.Service. The scheduler runs
// until the context is canceled, then stops cleanly.
type BackupRunner struct {
	Service *backup.Service
}

// Serve implements suture.Service.
func (r *BackupRunner) Serve(ctx context.Context) error {
	if err := r.Service.Start(ctx); err != nil {
		return fmt.Errorf("failed to start backup service: %w", err)
	}
	<-ctx.Done()
	r.Service.Stop()
	return ctx.Err()
}

func (r *BackupRunner) String() string { return "backup-scheduler" }

// HTTPServer adapts an http.Server to suture.Service with graceful
// shutdown.
type HTTPServer struct {
	Server          *http.Server
	ShutdownTimeout time.Duration
}

// Serve implements suture.Service.
func (s *HTTPServer) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.Server.Addr).Msg("Admin API listening")
		errCh <- s.Server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.ShutdownTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Server.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("HTTP server shutdown was not clean")
	}
	<-errCh
	return ctx.Err()
}

func (s *HTTPServer) String() string { return "admin-api" }
