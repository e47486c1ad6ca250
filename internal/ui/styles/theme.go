// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the terminal front ends.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	HeaderModel lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserText       lipgloss.Style
	Timestamp      lipgloss.Style
	Fallback       lipgloss.Style

	// ==========================================================================
	// FORMATTED MARKUP
	// ==========================================================================

	CodeBlock  lipgloss.Style
	InlineCode lipgloss.Style
	Strong     lipgloss.Style
	Emphasis   lipgloss.Style
	Heading    [3]lipgloss.Style
	ListBullet lipgloss.Style
	ListNumber lipgloss.Style

	// ==========================================================================
	// STATUS AND INPUT
	// ==========================================================================

	Spinner      lipgloss.Style
	PendingText  lipgloss.Style
	JumpHint     lipgloss.Style
	InputPrompt  lipgloss.Style
	InputBorder  lipgloss.Style
	InputBlurred lipgloss.Style
	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	ErrorText    lipgloss.Style
}

// NewTheme creates a theme matched to the current terminal.
func NewTheme() *Theme {
	return NewThemeForProfile(termenv.ColorProfile(), termenv.HasDarkBackground())
}

// NewThemeForProfile creates a theme for an explicit color profile.
func NewThemeForProfile(profile termenv.Profile, isDark bool) *Theme {
	t := &Theme{
		IsDark:       isDark,
		ColorProfile: profile,
		Width:        80,
		Height:       24,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderBrand = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.HeaderModel = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.UserLabel = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.UserText = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.Fallback = lipgloss.NewStyle().
		Foreground(Rose)

	t.CodeBlock = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InlineCode = lipgloss.NewStyle().
		Foreground(Cyan).
		Background(OverlayDim)
	t.Strong = lipgloss.NewStyle().Bold(true)
	t.Emphasis = lipgloss.NewStyle().Italic(true)
	t.Heading = [3]lipgloss.Style{
		lipgloss.NewStyle().Foreground(Purple).Bold(true).Underline(true),
		lipgloss.NewStyle().Foreground(Purple).Bold(true),
		lipgloss.NewStyle().Foreground(TextSecondary).Bold(true),
	}
	t.ListBullet = lipgloss.NewStyle().Foreground(Purple)
	t.ListNumber = lipgloss.NewStyle().Foreground(Purple)

	t.Spinner = lipgloss.NewStyle().Foreground(Amber)
	t.PendingText = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)
	t.JumpHint = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.InputBorder = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), true, false, false, false).
		BorderForeground(Overlay)
	t.InputBlurred = lipgloss.NewStyle().Foreground(TextMuted)
	t.StatusBar = lipgloss.NewStyle().Foreground(TextMuted)
	t.ShortcutKey = lipgloss.NewStyle().Foreground(TextSecondary).Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)
	t.ErrorText = lipgloss.NewStyle().Foreground(Rose)
}

// SetSize updates the layout dimensions.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// HeadingStyle returns the style for a heading level, clamped to 1..3.
func (t *Theme) HeadingStyle(level int) lipgloss.Style {
	if level < 1 {
		level = 1
	}
	if level > len(t.Heading) {
		level = len(t.Heading)
	}
	return t.Heading[level-1]
}
