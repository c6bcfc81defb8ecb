// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

package database

import (
	"context"
	"fmt"
	"time"
)

// snapshotDomains lists the application domain tables in dependency order.
// Referenced tables come before the tables that reference them, so a restore
// replaying domains in payload order never violates a foreign reference.
var snapshotDomains = []string{
	"accounts",
	"users",
	"trade_categories",
	"condition_ratings",
	"facilities",
	"assets",
	"assessments",
	"assessment_findings",
	"reports",
}

// domainDependencies maps each domain to the domains it references. Used by
// tests to verify snapshotDomains stays topologically sorted as tables are
// added.
var domainDependencies = map[string][]string{
	"accounts":            {},
	"users":               {"accounts"},
	"trade_categories":    {},
	"condition_ratings":   {},
	"facilities":          {"accounts"},
	"assets":              {"facilities", "trade_categories"},
	"assessments":         {"facilities", "users"},
	"assessment_findings": {"assessments", "assets", "condition_ratings"},
	"reports":             {"assessments"},
}

// Domains implements backup.DomainReader.
func (db *DB) Domains() []string {
	out := make([]string, len(snapshotDomains))
	copy(out, snapshotDomains)
	return out
}

// validDomain guards ReadDomain against table name injection; domain names
// come from code, but the check is cheap and keeps the query construction
// obviously safe.
func validDomain(domain string) bool {
	for _, d := range snapshotDomains {
		if d == domain {
			return true
		}
	}
	return false
}

// ReadDomain implements backup.DomainReader. It returns every row of the
// domain table as a generic map, with column names as keys.
func (db *DB) ReadDomain(ctx context.Context, domain string) ([]map[string]any, error) {
	if !validDomain(domain) {
		return nil, fmt.Errorf("unknown snapshot domain %q", domain)
	}

	rows, err := db.conn.QueryContext(ctx, "SELECT * FROM "+domain+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to read domain %s: %w", domain, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", domain, err)
	}

	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", domain, err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", domain, err)
	}

	return out, nil
}

// normalizeValue converts driver-specific values into JSON-friendly types.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}
