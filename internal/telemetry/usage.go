// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"fmt"
	"time"
)

// =============================================================================
// USAGE RECORD
// =============================================================================

// Outcome values stored with each request.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Usage is one remote request. It never carries prompt or reply text.
type Usage struct {
	ID          int64         `json:"id,omitempty"`
	At          time.Time     `json:"at"`
	Model       string        `json:"model"`
	Latency     time.Duration `json:"latency_ns"`
	PromptChars int           `json:"prompt_chars"`
	ReplyChars  int           `json:"reply_chars"`
	Outcome     string        `json:"outcome"`
	ErrorKind   string        `json:"error_kind,omitempty"`
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary aggregates usage since a point in time.
type Summary struct {
	Since        time.Time      `json:"since"`
	Requests     int            `json:"requests"`
	Succeeded    int            `json:"succeeded"`
	Failed       int            `json:"failed"`
	AvgLatency   time.Duration  `json:"avg_latency_ns"`
	MaxLatency   time.Duration  `json:"max_latency_ns"`
	PromptChars  int64          `json:"prompt_chars"`
	ReplyChars   int64          `json:"reply_chars"`
	ByModel      map[string]int `json:"by_model"`
	ByErrorKind  map[string]int `json:"by_error_kind"`
	LastActivity time.Time      `json:"last_activity,omitempty"`
}

// SuccessRate returns the fraction of requests that succeeded, or 0 with no
// requests.
func (s Summary) SuccessRate() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Requests)
}

// String renders the summary for the stats command.
func (s Summary) String() string {
	if s.Requests == 0 {
		return fmt.Sprintf("No requests since %s", s.Since.Format(time.RFC3339))
	}
	return fmt.Sprintf("%d requests since %s (%d ok, %d failed, %.0f%% success), avg latency %s, max %s",
		s.Requests, s.Since.Format(time.RFC3339), s.Succeeded, s.Failed,
		s.SuccessRate()*100, s.AvgLatency.Round(time.Millisecond), s.MaxLatency.Round(time.Millisecond))
}
