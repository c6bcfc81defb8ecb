// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/facilium/facilium/internal/backup"
)

// ErrRecordNotFound is returned when a backup record ID does not resolve.
var ErrRecordNotFound = errors.New("backup record not found")

const recordColumns = `id, kind, status, size_bytes, record_count, storage_key,
	storage_locator, checksum, encryption_metadata, metadata, created_at, completed_at`

// CreateRecord implements backup.Store.
func (db *DB) CreateRecord(ctx context.Context, r *backup.Record) error {
	enc, err := encodeEncryption(r.Encryption)
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO backup_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Kind), string(r.Status), r.SizeBytes, r.RecordCount,
		nullString(r.StorageKey), nullString(r.StorageLocator), nullString(r.Checksum),
		enc, nullString(r.Metadata), r.CreatedAt, r.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to insert backup record: %w", err)
	}
	return nil
}

// UpdateRecord implements backup.Store.
func (db *DB) UpdateRecord(ctx context.Context, r *backup.Record) error {
	enc, err := encodeEncryption(r.Encryption)
	if err != nil {
		return err
	}
	res, err := db.conn.ExecContext(ctx, `
		UPDATE backup_records SET
			kind = ?, status = ?, size_bytes = ?, record_count = ?,
			storage_key = ?, storage_locator = ?, checksum = ?,
			encryption_metadata = ?, metadata = ?, completed_at = ?
		WHERE id = ?`,
		string(r.Kind), string(r.Status), r.SizeBytes, r.RecordCount,
		nullString(r.StorageKey), nullString(r.StorageLocator), nullString(r.Checksum),
		enc, nullString(r.Metadata), r.CompletedAt, r.ID)
	if err != nil {
		return fmt.Errorf("failed to update backup record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// GetRecord implements backup.Store.
func (db *DB) GetRecord(ctx context.Context, id string) (*backup.Record, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM backup_records WHERE id = ?`, id)
	return scanRecord(row)
}

// ListRecords implements backup.Store. Records are returned newest first.
func (db *DB) ListRecords(ctx context.Context, limit, offset int) ([]*backup.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM backup_records
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list backup records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// RecordsOlderThan implements backup.Store.
func (db *DB) RecordsOlderThan(ctx context.Context, kind backup.Kind, cutoff time.Time) ([]*backup.Record, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM backup_records
		WHERE kind = ? AND created_at < ?
		ORDER BY created_at`, string(kind), cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query old backup records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// DeleteRecord implements backup.Store.
func (db *DB) DeleteRecord(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM backup_records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete backup record: %w", err)
	}
	return nil
}

func scanRecords(rows *sql.Rows) ([]*backup.Record, error) {
	var out []*backup.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRecord(row rowScanner) (*backup.Record, error) {
	var r backup.Record
	var kind, status string
	var storageKey, storageLocator, checksum, enc, metadata sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&r.ID, &kind, &status, &r.SizeBytes, &r.RecordCount,
		&storageKey, &storageLocator, &checksum, &enc, &metadata,
		&r.CreatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan backup record: %w", err)
	}

	r.Kind = backup.Kind(kind)
	r.Status = backup.Status(status)
	r.StorageKey = storageKey.String
	r.StorageLocator = storageLocator.String
	r.Checksum = checksum.String
	r.Metadata = metadata.String
	r.CreatedAt = r.CreatedAt.UTC()
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		r.CompletedAt = &t
	}

	if enc.Valid && enc.String != "" {
		var em backup.EncryptionMetadata
		if err := json.Unmarshal([]byte(enc.String), &em); err != nil {
			return nil, fmt.Errorf("failed to decode encryption metadata: %w", err)
		}
		r.Encryption = &em
	}

	return &r, nil
}

func encodeEncryption(em *backup.EncryptionMetadata) (sql.NullString, error) {
	if em == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(em)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode encryption metadata: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
