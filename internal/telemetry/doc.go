// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry records per-request usage for doubtbot.
//
// Each remote call becomes one row in a local SQLite database: when it
// happened, which model answered, how long it took, the prompt and reply
// sizes, and whether it succeeded.
//
// # Key Types
//
//   - Usage: one recorded request
//   - Store: SQLite-backed persistence
//   - Summary: aggregated statistics since a point in time
//
// # Usage
//
//	store, err := telemetry.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//	_ = store.Record(ctx, telemetry.Usage{Model: "gemini-2.0-flash", Outcome: telemetry.OutcomeOK})
//	summary, _ := store.Summary(ctx, time.Now().Add(-24*time.Hour))
//
// # Privacy
//
// Usage tracking is local-only and does not transmit any data.
// Prompt and reply content is never stored, only character counts.
package telemetry
