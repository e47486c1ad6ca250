// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"html"
	"html/template"
	"strings"
	"time"

	"github.com/jeranaias/doubtbot/internal/format"
	"github.com/jeranaias/doubtbot/internal/model"
)

// HTMLExporter writes a transcript as one self-contained HTML page.
type HTMLExporter struct {
	options   *Options
	formatter *format.Formatter
}

// NewHTMLExporter returns an exporter whose assistant turns go through the
// HTML formatter with literal text escaped and opts.VerbatimCodeBlocks
// applied.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{
		options:   opts,
		formatter: format.New(format.HTML,
			format.WithEscapedText(true),
			format.WithVerbatimCodeBlocks(opts.VerbatimCodeBlocks)),
	}
}

// WithFormatter swaps the assistant-turn formatter. nil is ignored.
func (e *HTMLExporter) WithFormatter(f *format.Formatter) *HTMLExporter {
	if f != nil {
		e.formatter = f
	}
	return e
}

type htmlPage struct {
	Meta
	Theme    string
	Date     string
	Exported string
	Footer   string
	Turns    int
	Messages []htmlMessage
}

type htmlMessage struct {
	Role  string
	Label string
	Time  string
	Body  template.HTML
}

// Export renders t. Everything except formatter output is escaped by the
// template.
func (e *HTMLExporter) Export(t model.Transcript, meta Meta) ([]byte, error) {
	if t.IsEmpty() {
		return nil, ErrEmptyTranscript
	}
	meta = meta.withDefaults(t)

	page := htmlPage{
		Meta:     meta,
		Theme:    "dark",
		Date:     meta.ExportedAt.Format(time.RFC3339),
		Exported: formatTimestamp(meta.ExportedAt),
		Footer:   meta.ExportedAt.Format("January 2, 2006 at 3:04 PM"),
		Turns:    t.Len(),
	}
	if e.options.Theme == "light" {
		page.Theme = "light"
	}
	for _, turn := range t.Turns() {
		page.Messages = append(page.Messages, e.message(turn))
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *HTMLExporter) message(turn model.Turn) htmlMessage {
	m := htmlMessage{Role: string(turn.Role), Label: roleLabel(turn.Role)}
	if e.options.IncludeTimestamps && !turn.CreatedAt.IsZero() {
		m.Time = formatShortTimestamp(turn.CreatedAt)
	}
	if turn.Role == model.RoleAssistant {
		m.Body = template.HTML(e.formatter.Format(turn.Content))
	} else {
		m.Body = template.HTML(strings.ReplaceAll(html.EscapeString(turn.Content), "\n", "<br/>"))
	}
	return m
}

// FileExtension returns ".html".
func (e *HTMLExporter) FileExtension() string { return ".html" }

// MimeType returns "text/html".
func (e *HTMLExporter) MimeType() string { return "text/html" }

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <meta name="generator" content="doubtbot">
    <meta name="date" content="{{.Date}}">
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body { font: 16px/1.6 system-ui, sans-serif; padding: 24px; background: var(--page); color: var(--ink); }
        code, pre, .timestamp { font-family: ui-monospace, Menlo, Consolas, monospace; }
        .dark-theme { --page: #11111b; --panel: #1e1e2e; --ink: #cdd6f4; --dim: #6c7086; --rule: #313244; --you: #22d3ee; --bot: #a78bfa; }
        .light-theme { --page: #fafafa; --panel: #ffffff; --ink: #1f2937; --dim: #9ca3af; --rule: #e5e5e5; --you: #0891b2; --bot: #7c3aed; }
        .container { max-width: 860px; margin: 0 auto; background: var(--panel); border: 1px solid var(--rule); border-radius: 10px; }
        .header, .conversation, .footer { padding: 24px 28px; }
        .header { border-bottom: 1px solid var(--rule); }
        .header h1 { font-size: 24px; margin-bottom: 8px; }
        .metadata { display: flex; flex-wrap: wrap; gap: 14px; font-size: 14px; color: var(--dim); }
        .message { margin-bottom: 20px; padding-left: 14px; border-left: 3px solid var(--rule); }
        .user-message { border-left-color: var(--you); }
        .assistant-message { border-left-color: var(--bot); }
        .message-header { display: flex; justify-content: space-between; font-size: 14px; margin-bottom: 6px; }
        .role-label { font-weight: 600; }
        .timestamp { color: var(--dim); font-size: 13px; }
        .message-content h1, .message-content h2, .message-content h3 { margin: 10px 0 6px; }
        .code-block { margin: 12px 0; padding: 12px; overflow-x: auto; white-space: pre; font-size: 14px; border: 1px solid var(--rule); border-radius: 6px; }
        .code-inline { padding: 1px 5px; font-size: 14px; border: 1px solid var(--rule); border-radius: 4px; color: var(--bot); }
        li.list-disc { list-style: disc inside; }
        li.list-decimal { list-style: decimal inside; }
        .footer { border-top: 1px solid var(--rule); text-align: center; font-size: 13px; color: var(--dim); }
        @media print { body { padding: 0; } .message { break-inside: avoid; } }
    </style>
</head>
<body class="{{.Theme}}-theme">
    <div class="container">
        <header class="header">
            <h1>{{.Title}}</h1>
            <div class="metadata">
{{- if .Model}}
                <span class="meta-item"><strong>Model:</strong> {{.Model}}</span>
{{- end}}
                <span class="meta-item"><strong>Exported:</strong> {{.Exported}}</span>
                <span class="meta-item"><strong>Turns:</strong> {{.Turns}}</span>
            </div>
        </header>
        <main class="conversation">
{{- range .Messages}}
            <div class="message {{.Role}}-message">
                <div class="message-header">
                    <span class="role-label">{{.Label}}</span>
{{- if .Time}}
                    <span class="timestamp">{{.Time}}</span>
{{- end}}
                </div>
                <div class="message-content">{{.Body}}</div>
            </div>
{{- end}}
        </main>
        <footer class="footer">
            <p>Exported from <strong>doubtbot</strong> on {{.Footer}}</p>
        </footer>
    </div>
</body>
</html>
`))
