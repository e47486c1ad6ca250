// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/doubtbot/internal/ui/components"
)

// jumpHint is shown while new content sits below the visible region.
const jumpHint = "v new messages below (End)"

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders header, transcript, indicator line, input and status bar.
// The layout heights must add up to reservedHeight plus the viewport.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header.View(),
		m.transcript.View(),
		m.renderIndicatorLine(),
		m.renderInput(),
		m.renderStatusBar(),
	)
}

// renderIndicatorLine shows the pending spinner on the left and the
// jump-to-bottom hint on the right.
func (m Model) renderIndicatorLine() string {
	left := m.pending.View()
	right := ""
	if m.ScrollState().ShowJumpAffordance {
		right = m.theme.JumpHint.Render(jumpHint)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderInput() string {
	line := m.input.View()
	if m.State().Pending {
		line = m.theme.InputBlurred.Render("> waiting for reply...")
	}
	return m.theme.InputBorder.Width(m.width).Render(line)
}

func (m Model) renderStatusBar() string {
	keys := m.keys
	keys.Jump.SetEnabled(m.ScrollState().ShowJumpAffordance)

	m.status.Shortcuts = keys.ShortHelp()
	m.status.TurnCount = m.State().Transcript.Len()
	m.status.Notice = m.notice

	switch {
	case m.State().Pending:
		m.status.Status = components.StatusPending
	case m.lastErr != nil:
		m.status.Status = components.StatusError
		if m.notice == "" {
			m.status.Notice = "Request failed (" + m.classify(m.lastErr) + ")"
		}
	default:
		m.status.Status = components.StatusReady
	}
	return m.status.View()
}
