// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/doubtbot/internal/model"
)

var exportedAt = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func sampleTranscript() model.Transcript {
	at := exportedAt.Add(-time.Minute)
	return model.NewTranscript(
		model.Turn{ID: "u1", Role: model.RoleUser, Content: "What is <b>Go</b>?\nBriefly.", CreatedAt: at},
		model.Turn{ID: "a1", Role: model.RoleAssistant, Content: "**Go** is a language.\n\n- fast\n- simple <script>", CreatedAt: at},
	)
}

func sampleMeta() Meta {
	return Meta{Model: "gemini-2.0-flash", ExportedAt: exportedAt}
}

// =============================================================================
// REGISTRY
// =============================================================================

func TestForFormat(t *testing.T) {
	tests := []struct {
		name string
		ext  string
	}{
		{"html", ".html"},
		{"HTM", ".html"},
		{"markdown", ".md"},
		{"md", ".md"},
		{".json", ".json"},
		{"yaml", ".yaml"},
		{"yml", ".yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp, err := ForFormat(tt.name, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.ext, exp.FileExtension())
		})
	}

	_, err := ForFormat("pdf", nil)
	assert.ErrorContains(t, err, "unsupported export format")
	assert.Equal(t, []string{"html", "json", "markdown", "yaml"}, Formats())
}

func TestForPath(t *testing.T) {
	exp, err := ForPath("chat.md", nil)
	require.NoError(t, err)
	assert.Equal(t, ".md", exp.FileExtension())

	exp, err = ForPath("chat", nil)
	require.NoError(t, err)
	assert.Equal(t, ".html", exp.FileExtension())
}

// =============================================================================
// EXPORTERS
// =============================================================================

func TestExporters_RejectEmpty(t *testing.T) {
	for _, name := range Formats() {
		exp, err := ForFormat(name, nil)
		require.NoError(t, err)
		_, err = exp.Export(model.NewTranscript(), sampleMeta())
		assert.ErrorIs(t, err, ErrEmptyTranscript, name)
	}
}

func TestHTMLExporter(t *testing.T) {
	out, err := NewHTMLExporter(nil).Export(sampleTranscript(), sampleMeta())
	require.NoError(t, err)
	page := string(out)

	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, "<title>What is &lt;b&gt;Go&lt;/b&gt;?</title>")
	assert.Contains(t, page, "What is &lt;b&gt;Go&lt;/b&gt;?<br/>Briefly.")
	assert.Contains(t, page, "<strong>Go</strong> is a language.")
	assert.Contains(t, page, `<li class="list-disc">fast</li>`)
	assert.Contains(t, page, "simple &lt;script&gt;")
	assert.NotContains(t, page, "<script>")
	assert.Contains(t, page, "gemini-2.0-flash")
	assert.Contains(t, page, `class="dark-theme"`)
	assert.Contains(t, page, `<span class="timestamp">09:25:53</span>`)
}

func TestHTMLExporter_LightThemeNoTimestamps(t *testing.T) {
	opts := &Options{Theme: "light"}
	out, err := NewHTMLExporter(opts).Export(sampleTranscript(), sampleMeta())
	require.NoError(t, err)
	assert.Contains(t, string(out), `class="light-theme"`)
	assert.NotContains(t, string(out), `class="timestamp"`)
}

func TestHTMLExporter_VerbatimCodeBlocks(t *testing.T) {
	tr := model.NewTranscript(
		model.Turn{ID: "u1", Role: model.RoleUser, Content: "code?", CreatedAt: exportedAt},
		model.Turn{ID: "a1", Role: model.RoleAssistant, Content: "```a **b**```", CreatedAt: exportedAt},
	)

	out, err := NewHTMLExporter(&Options{VerbatimCodeBlocks: true}).Export(tr, sampleMeta())
	require.NoError(t, err)
	assert.Contains(t, string(out), `<pre class="code-block">a **b**</pre>`)

	out, err = NewHTMLExporter(nil).Export(tr, sampleMeta())
	require.NoError(t, err)
	assert.Contains(t, string(out), `<pre class="code-block">a <strong>b</strong></pre>`)
}

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleTranscript(), Meta{Title: "Go *notes*", ExportedAt: exportedAt})
	require.NoError(t, err)
	doc := string(out)

	require.True(t, strings.HasPrefix(doc, "---\n"))
	parts := strings.SplitN(doc, "---\n", 3)
	require.Len(t, parts, 3)

	var fm frontMatter
	require.NoError(t, yaml.Unmarshal([]byte(parts[1]), &fm))
	assert.Equal(t, "Go *notes*", fm.Title)
	assert.Equal(t, 2, fm.Turns)
	assert.Equal(t, "doubtbot", fm.Generator)

	assert.Contains(t, doc, `# Go \*notes\*`)
	assert.Contains(t, doc, "### [User] <sub>09:25:53</sub>")
	assert.Contains(t, doc, "**Go** is a language.")
}

func TestJSONExporter(t *testing.T) {
	out, err := NewJSONExporter().Export(sampleTranscript(), sampleMeta())
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "What is <b>Go</b>?", doc.Title)
	assert.Equal(t, 2, doc.TurnCount)
	require.Len(t, doc.Turns, 2)
	assert.Equal(t, model.RoleAssistant, doc.Turns[1].Role)
	assert.Equal(t, "a1", doc.Turns[1].ID)
}

func TestYAMLExporter(t *testing.T) {
	out, err := NewYAMLExporter().Export(sampleTranscript(), sampleMeta())
	require.NoError(t, err)

	var doc Document
	require.NoError(t, yaml.Unmarshal(out, &doc))
	assert.Equal(t, "gemini-2.0-flash", doc.Model)
	require.Len(t, doc.Turns, 2)
	assert.Equal(t, "What is <b>Go</b>?\nBriefly.", doc.Turns[0].Content)
	assert.True(t, doc.ExportedAt.Equal(exportedAt))
}

// =============================================================================
// FILES
// =============================================================================

func TestToFile_GeneratedName(t *testing.T) {
	dir := t.TempDir()
	opts := &Options{OutputDir: dir}

	path, err := ToFile(sampleTranscript(), NewJSONExporter(), sampleMeta(), "", opts)
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, "conversation_What_is_-b-Go--b--_20250314_092653.json", filepath.Base(path))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestToFile_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "chat.md")

	written, err := ToFile(sampleTranscript(), NewMarkdownExporter(nil), sampleMeta(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "generator: doubtbot")
}

func TestToFile_Empty(t *testing.T) {
	_, err := ToFile(model.NewTranscript(), NewJSONExporter(), Meta{}, filepath.Join(t.TempDir(), "x.json"), nil)
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a-b-c_d", sanitizeFilename("a/b:c d"))
	assert.Equal(t, "conversation", sanitizeFilename(""))
	assert.LessOrEqual(t, len([]rune(sanitizeFilename(strings.Repeat("x", 80)))), 50)
}

func TestMeta_DefaultTitle(t *testing.T) {
	meta := Meta{}.withDefaults(model.NewTranscript(model.NewTurn(model.RoleAssistant, "hi")))
	assert.Equal(t, "Conversation", meta.Title)
	assert.False(t, meta.ExportedAt.IsZero())
}
