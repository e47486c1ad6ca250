// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Output styling for the line-oriented commands.
//
// The TUI carries its own Theme; these styles cover ask, chat, stats and
// config. They render plain when ColorsEnabled is false.

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/doubtbot/internal/ui/styles"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

func fg(c lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

var (
	TitleStyle   = fg(styles.Cyan).Bold(true)
	SectionStyle = fg(styles.TextPrimary).Bold(true).MarginTop(1)
	SuccessStyle = fg(styles.Emerald).Bold(true)
	ErrorStyle   = fg(styles.Rose).Bold(true)
	DimStyle     = fg(styles.TextMuted)
	PromptStyle  = fg(styles.Cyan).Bold(true) // "you> " in chat

	labelStyle     = fg(styles.TextSecondary).Width(20)
	valueStyle     = fg(styles.TextPrimary)
	separatorStyle = fg(styles.Overlay)
)

// RenderSeparator renders a rule under a title. Non-positive widths get 40.
func RenderSeparator(width int) string {
	if width <= 0 {
		width = 40
	}
	return separatorStyle.Render(strings.Repeat("=", width))
}

// RenderField renders an indented label column followed by value.
func RenderField(label, value string) string {
	return "  " + labelStyle.Render(label) + valueStyle.Render(value)
}

// RenderOK renders a confirmation line.
func RenderOK(msg string) string { return styles.RenderSuccess(msg) }

// RenderWarning renders a non-fatal problem line.
func RenderWarning(msg string) string { return styles.RenderWarning(msg) }
