// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/doubtbot/internal/export"
)

// =============================================================================
// COMMAND HANDLER REGISTRY
// =============================================================================

// CommandHandler handles one slash command.
type CommandHandler func(m Model, args []string) (tea.Model, tea.Cmd)

// commandHandlers maps command names and aliases to handlers.
var commandHandlers = map[string]CommandHandler{
	"help":   handleHelpCommand,
	"?":      handleHelpCommand,
	"clear":  handleClearCommand,
	"c":      handleClearCommand,
	"export": handleExportCommand,
	"e":      handleExportCommand,
	"quit":   handleQuitCommand,
	"q":      handleQuitCommand,
	"exit":   handleQuitCommand,
}

// commandHelp is the one-line summary shown by /help.
const commandHelp = "/clear  /export [path]  /quit"

// runCommand dispatches a line starting with "/".
func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		return handleHelpCommand(m, nil)
	}

	handler, ok := commandHandlers[strings.ToLower(fields[0])]
	if !ok {
		m.notice = "Unknown command /" + fields[0] + "; try " + commandHelp
		return m, nil
	}
	return handler(m, fields[1:])
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

func handleHelpCommand(m Model, _ []string) (tea.Model, tea.Cmd) {
	m.notice = "Commands: " + commandHelp
	return m, nil
}

func handleClearCommand(m Model, _ []string) (tea.Model, tea.Cmd) {
	return m.clear()
}

func handleQuitCommand(m Model, _ []string) (tea.Model, tea.Cmd) {
	return m.quit()
}

// handleExportCommand writes the transcript to the given path, or to a
// generated HTML file name in the export directory.
func handleExportCommand(m Model, args []string) (tea.Model, tea.Cmd) {
	state := m.session.State()
	if state.Transcript.IsEmpty() {
		m.notice = "Nothing to export yet"
		return m, nil
	}

	path := strings.Join(args, " ")
	opts := export.DefaultOptions()
	opts.OutputDir = m.exportDir
	opts.IncludeTimestamps = m.cfg.UI.ShowTimestamps
	opts.VerbatimCodeBlocks = m.cfg.Format.VerbatimCodeBlocks

	transcript := state.Transcript
	meta := export.Meta{Model: m.modelID}
	m.notice = "Exporting..."
	return m, func() tea.Msg {
		exporter, err := export.ForPath(path, opts)
		if err != nil {
			return ExportDoneMsg{Err: err}
		}
		written, err := export.ToFile(transcript, exporter, meta, path, opts)
		return ExportDoneMsg{Path: written, Err: err}
	}
}
