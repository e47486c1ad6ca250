// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - The --json envelope and the payloads it carries.
package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/jeranaias/doubtbot/internal/config"
	"github.com/jeranaias/doubtbot/internal/telemetry"
)

// JSONResponse wraps the output of every command run with --json. Exactly
// one of Data and Error is set.
type JSONResponse struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data"`
	Error     *string `json:"error"`
	Timestamp string  `json:"timestamp"` // RFC3339, UTC
	Command   string  `json:"command,omitempty"`
}

func newEnvelope(command string) *JSONResponse {
	return &JSONResponse{Command: command, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

// NewJSONResponse wraps a command's result.
func NewJSONResponse(command string, data any) *JSONResponse {
	r := newEnvelope(command)
	r.Success, r.Data = true, data
	return r
}

// NewJSONErrorResponse wraps a command's failure.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	r := newEnvelope(command)
	r.Error = &msg
	return r
}

// Write writes r to w as indented JSON followed by a newline.
func (r *JSONResponse) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// VersionData is the payload of "version --json".
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// StatsData is the payload of "stats --json".
type StatsData struct {
	Summary telemetry.Summary `json:"summary"`
	Recent  []telemetry.Usage `json:"recent,omitempty"`
	Path    string            `json:"path"`
}

// ConfigData is the payload of "config show --json". The API key is
// redacted before it gets here.
type ConfigData struct {
	Path   string         `json:"path"`
	Exists bool           `json:"exists"`
	Config *config.Config `json:"config"`
}
