// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

// Package storage provides object store backends for backup payloads. Two
// implementations exist: a local filesystem store for single-node
// deployments and an S3 store for durable off-host storage. Both satisfy
// backup.ObjectStore.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/facilium/facilium/internal/logging"
)

// FilesystemStore persists payloads under a base directory, mirroring the
// object key as a relative path.
type FilesystemStore struct {
	baseDir string
}

// NewFilesystemStore creates the base directory if needed.
func NewFilesystemStore(baseDir string) (*FilesystemStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("filesystem storage directory must not be empty")
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FilesystemStore{baseDir: abs}, nil
}

// resolve maps an object key to an absolute path, rejecting any key that
// would escape the base directory.
func (s *FilesystemStore) resolve(key string) (string, error) {
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if !strings.HasPrefix(path, s.baseDir+string(os.PathSeparator)) {
		return "", fmt.Errorf("object key %q escapes storage directory", key)
	}
	return path, nil
}

// Put implements backup.ObjectStore. The write goes through a temp file and
// rename so a crash mid-write never leaves a truncated payload behind.
func (s *FilesystemStore) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil {
			logging.Warn().Err(rmErr).Str("path", tmp).Msg("Failed to remove temp object file")
		}
		return "", fmt.Errorf("failed to finalize object: %w", err)
	}

	return "file://" + path, nil
}

// Delete implements backup.ObjectStore. Deleting a missing object is not an
// error; the sweep may retry after a partial failure.
func (s *FilesystemStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
