// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

package database

// schemaStatements returns the DDL for every table, in creation order.
// All statements are idempotent.
func schemaStatements() []string {
	return []string{
		// Application domain tables, in dependency order. A restore that
		// replays them in this order never violates a foreign reference.
		`CREATE TABLE IF NOT EXISTS accounts (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL,
			plan VARCHAR NOT NULL DEFAULT 'standard',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR PRIMARY KEY,
			account_id VARCHAR NOT NULL,
			email VARCHAR NOT NULL,
			display_name VARCHAR,
			role VARCHAR NOT NULL DEFAULT 'assessor',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS trade_categories (
			id VARCHAR PRIMARY KEY,
			code VARCHAR NOT NULL,
			name VARCHAR NOT NULL,
			description VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS condition_ratings (
			id VARCHAR PRIMARY KEY,
			code VARCHAR NOT NULL,
			label VARCHAR NOT NULL,
			score INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS facilities (
			id VARCHAR PRIMARY KEY,
			account_id VARCHAR NOT NULL,
			name VARCHAR NOT NULL,
			address VARCHAR,
			gross_area_sqft DOUBLE,
			year_built INTEGER,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS assets (
			id VARCHAR PRIMARY KEY,
			facility_id VARCHAR NOT NULL,
			trade_category_id VARCHAR,
			name VARCHAR NOT NULL,
			manufacturer VARCHAR,
			model VARCHAR,
			serial_number VARCHAR,
			install_year INTEGER,
			expected_life_years INTEGER,
			replacement_cost DOUBLE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS assessments (
			id VARCHAR PRIMARY KEY,
			facility_id VARCHAR NOT NULL,
			assessor_id VARCHAR,
			status VARCHAR NOT NULL DEFAULT 'draft',
			started_at TIMESTAMP,
			completed_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS assessment_findings (
			id VARCHAR PRIMARY KEY,
			assessment_id VARCHAR NOT NULL,
			asset_id VARCHAR,
			condition_rating_id VARCHAR,
			notes VARCHAR,
			estimated_repair_cost DOUBLE,
			photo_count INTEGER DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS reports (
			id VARCHAR PRIMARY KEY,
			assessment_id VARCHAR NOT NULL,
			title VARCHAR NOT NULL,
			format VARCHAR NOT NULL DEFAULT 'pdf',
			generated_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// Backup subsystem tables.
		`CREATE TABLE IF NOT EXISTS backup_schedules (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL UNIQUE,
			description VARCHAR,
			cron_expression VARCHAR NOT NULL,
			timezone VARCHAR NOT NULL DEFAULT 'UTC',
			enabled BOOLEAN NOT NULL DEFAULT true,
			retention_days INTEGER NOT NULL DEFAULT 30,
			encryption_enabled BOOLEAN NOT NULL DEFAULT false,
			notify_on_success BOOLEAN NOT NULL DEFAULT false,
			notify_on_failure BOOLEAN NOT NULL DEFAULT true,
			last_run_at TIMESTAMP,
			last_run_status VARCHAR,
			last_backup_id VARCHAR,
			next_run_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS backup_records (
			id VARCHAR PRIMARY KEY,
			kind VARCHAR NOT NULL,
			status VARCHAR NOT NULL,
			size_bytes BIGINT NOT NULL DEFAULT 0,
			record_count BIGINT NOT NULL DEFAULT 0,
			storage_key VARCHAR,
			storage_locator VARCHAR,
			checksum VARCHAR,
			encryption_metadata VARCHAR,
			metadata VARCHAR,
			created_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_backup_records_kind_created
			ON backup_records (kind, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_backup_schedules_next_run
			ON backup_schedules (enabled, next_run_at)`,
	}
}
