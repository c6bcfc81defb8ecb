// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

// Package backup implements the automated backup and encrypted snapshot
// subsystem for Facilium.
//
// The package is a self-contained scheduler: it periodically captures a
// consistent full logical snapshot of the application's persisted state,
// encrypts and checksums it, uploads it to object storage, enforces a
// per-schedule retention policy, and reports outcomes. No external cron
// daemon or job queue is involved.
//
// Components:
//
//   - Cron expression evaluator (cron.go): parses 5-field cron expressions
//     and computes timezone-aware next-run instants.
//   - Snapshot collector (collector.go): reads every domain table in a fixed
//     dependency order; a single failing domain never aborts the snapshot.
//   - Encryption engine (crypto.go): AES-256-GCM with HKDF-derived keys and
//     a SHA-256 checksum over the ciphertext, wrapped in a JSON envelope.
//   - Ledger (types.go + Store): one record per execution attempt with a
//     strict in_progress -> completed|failed state machine.
//   - Schedule registry (registry.go): persisted schedule configuration with
//     next-run bookkeeping and a bootstrap default schedule.
//   - Service (service.go): owns the due-job poller and the retention sweep
//     timers, with an idempotent Start/Stop lifecycle.
//
// Control flow for one execution:
//
//	┌────────┐    ┌───────────┐    ┌────────┐    ┌──────────┐    ┌────────┐
//	│ Poller │───▶│ Collector │───▶│ Engine │───▶│ Uploader │───▶│ Ledger │
//	└────────┘    └───────────┘    └────────┘    └──────────┘    └────────┘
//	                                                                  │
//	                             next-run recompute ◀─────────────────┤
//	                             notification (best effort) ◀─────────┘
//
// Errors local to one schedule's execution are contained in its ledger
// record; nothing in this package should ever crash the hosting process.
package backup
