// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/doubtbot/internal/model"
	"github.com/jeranaias/doubtbot/internal/util"
)

// ErrEmptyTranscript is returned when there is nothing to export.
var ErrEmptyTranscript = errors.New("transcript has no turns")

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for transcript exporters.
type Exporter interface {
	// Export converts a transcript to the target format.
	Export(t model.Transcript, meta Meta) ([]byte, error)

	// FileExtension returns the file extension, including the dot.
	FileExtension() string

	// MimeType returns the MIME type of the exported format.
	MimeType() string
}

// Meta describes the export itself.
type Meta struct {
	// Title defaults to a preview of the first user turn.
	Title string

	// Model is the model ID that produced the assistant turns.
	Model string

	// ExportedAt defaults to now.
	ExportedAt time.Time
}

// withDefaults fills Title and ExportedAt.
func (m Meta) withDefaults(t model.Transcript) Meta {
	if m.ExportedAt.IsZero() {
		m.ExportedAt = time.Now()
	}
	if strings.TrimSpace(m.Title) == "" {
		m.Title = "Conversation"
		for _, turn := range t.Turns() {
			if turn.Role == model.RoleUser {
				m.Title = turn.Preview(60)
				break
			}
		}
	}
	return m
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is where generated file names are placed. Default: "."
	OutputDir string

	// IncludeTimestamps includes per-turn timestamps.
	IncludeTimestamps bool

	// Theme for HTML export ("light" or "dark"). Default: "dark"
	Theme string

	// VerbatimCodeBlocks keeps fenced code in HTML export free of inline
	// formatting.
	VerbatimCodeBlocks bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeTimestamps: true,
		Theme:             "dark",
	}
}

// =============================================================================
// FORMAT REGISTRY
// =============================================================================

var constructors = map[string]func(*Options) Exporter{
	"html":     func(o *Options) Exporter { return NewHTMLExporter(o) },
	"markdown": func(o *Options) Exporter { return NewMarkdownExporter(o) },
	"json":     func(o *Options) Exporter { return NewJSONExporter() },
	"yaml":     func(o *Options) Exporter { return NewYAMLExporter() },
}

var aliases = map[string]string{
	"htm": "html",
	"md":  "markdown",
	"yml": "yaml",
}

// Formats returns the supported format names.
func Formats() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForFormat returns the exporter for a format name or alias.
func ForFormat(name string, opts *Options) (Exporter, error) {
	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "."))
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	ctor, ok := constructors[key]
	if !ok {
		return nil, fmt.Errorf("unsupported export format: %s (use one of %s)", name, strings.Join(Formats(), ", "))
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	return ctor(opts), nil
}

// ForPath picks the exporter from a file extension, defaulting to HTML.
func ForPath(path string, opts *Options) (Exporter, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return ForFormat("html", opts)
	}
	return ForFormat(ext, opts)
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ToFile exports t to path, or to a generated name in opts.OutputDir when
// path is empty. Returns the path written.
func ToFile(t model.Transcript, exporter Exporter, meta Meta, path string, opts *Options) (string, error) {
	if t.IsEmpty() {
		return "", ErrEmptyTranscript
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	meta = meta.withDefaults(t)

	content, err := exporter.Export(t, meta)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	if path == "" {
		filename := fmt.Sprintf("conversation_%s_%s%s",
			sanitizeFilename(meta.Title),
			meta.ExportedAt.Format("20060102_150405"),
			exporter.FileExtension(),
		)
		path = filepath.Join(opts.OutputDir, filename)
	}

	if err := util.AtomicWriteFile(path, content, 0600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(s, 50)

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}

	if b.Len() == 0 {
		return "conversation"
	}
	return b.String()
}

// formatTimestamp formats a timestamp for headers.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}

// roleLabel returns the bracketed label used in document exports.
func roleLabel(r model.Role) string {
	switch r {
	case model.RoleUser:
		return "[User]"
	case model.RoleAssistant:
		return "[Assistant]"
	case "":
		return "Unknown"
	default:
		runes := []rune(string(r))
		return strings.ToUpper(string(runes[0])) + string(runes[1:])
	}
}
