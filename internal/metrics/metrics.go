// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

// Package metrics provides Prometheus instrumentation for the backup service:
// run outcomes and durations, snapshot sizes, retention deletions, and
// notification failures. Metrics are registered via promauto and served on
// /metrics by the API router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BackupRunsTotal counts backup executions by kind and outcome.
	BackupRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "facilium_backup_runs_total",
			Help: "Total number of backup executions",
		},
		[]string{"kind", "outcome"},
	)

	// BackupRunDuration observes end-to-end backup execution time.
	BackupRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "facilium_backup_run_duration_seconds",
			Help:    "Duration of backup executions in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// BackupPayloadBytes observes uploaded payload sizes.
	BackupPayloadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "facilium_backup_payload_bytes",
			Help:    "Size of uploaded backup payloads in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB .. ~256GiB
		},
	)

	// SnapshotRecordsCollected counts records read per domain.
	SnapshotRecordsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "facilium_snapshot_records_collected_total",
			Help: "Total number of records collected into snapshots, per domain",
		},
		[]string{"domain"},
	)

	// SnapshotDomainFailures counts per-domain read failures during collection.
	SnapshotDomainFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "facilium_snapshot_domain_failures_total",
			Help: "Total number of per-domain read failures during snapshot collection",
		},
		[]string{"domain"},
	)

	// PollerErrors counts swallowed errors in the due-schedule poll.
	PollerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "facilium_backup_poller_errors_total",
			Help: "Total number of transient errors during due-schedule polling",
		},
	)

	// RetentionDeletions counts ledger entries removed by the cleanup sweep.
	RetentionDeletions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "facilium_backup_retention_deletions_total",
			Help: "Total number of backup records deleted by the retention sweep",
		},
	)

	// NotificationsSent counts notification attempts by result.
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "facilium_backup_notifications_total",
			Help: "Total number of backup notifications attempted",
		},
		[]string{"type", "result"},
	)
)
