// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/doubtbot/internal/model"
)

// Document is the structure written by the JSON and YAML exporters.
type Document struct {
	Title      string       `json:"title" yaml:"title"`
	Model      string       `json:"model,omitempty" yaml:"model,omitempty"`
	ExportedAt time.Time    `json:"exported_at" yaml:"exported_at"`
	TurnCount  int          `json:"turn_count" yaml:"turn_count"`
	Turns      []model.Turn `json:"turns" yaml:"turns"`
}

// NewDocument builds the export document for t.
func NewDocument(t model.Transcript, meta Meta) Document {
	meta = meta.withDefaults(t)
	return Document{
		Title:      meta.Title,
		Model:      meta.Model,
		ExportedAt: meta.ExportedAt,
		TurnCount:  t.Len(),
		Turns:      t.Turns(),
	}
}

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports transcripts to JSON. The output always carries every
// turn and field so that it can be read back.
type JSONExporter struct{}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Export converts a transcript to indented JSON.
func (e *JSONExporter) Export(t model.Transcript, meta Meta) ([]byte, error) {
	if t.IsEmpty() {
		return nil, ErrEmptyTranscript
	}
	return json.MarshalIndent(NewDocument(t, meta), "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}

// =============================================================================
// YAML EXPORTER
// =============================================================================

// YAMLExporter exports transcripts to YAML.
type YAMLExporter struct{}

// NewYAMLExporter creates a new YAML exporter.
func NewYAMLExporter() *YAMLExporter {
	return &YAMLExporter{}
}

// Export converts a transcript to YAML. Multi-line content is written as
// literal block scalars by the encoder.
func (e *YAMLExporter) Export(t model.Transcript, meta Meta) ([]byte, error) {
	if t.IsEmpty() {
		return nil, ErrEmptyTranscript
	}
	return yaml.Marshal(NewDocument(t, meta))
}

// FileExtension returns the file extension for YAML.
func (e *YAMLExporter) FileExtension() string {
	return ".yaml"
}

// MimeType returns the MIME type for YAML.
func (e *YAMLExporter) MimeType() string {
	return "application/yaml"
}
