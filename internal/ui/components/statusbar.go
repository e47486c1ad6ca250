// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/doubtbot/internal/ui/styles"
	"github.com/jeranaias/doubtbot/internal/util"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Status is the request state shown at the left of the status bar.
type Status int

const (
	StatusReady Status = iota
	StatusPending
	StatusError
)

// String returns the display string for the status.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusPending:
		return "Waiting for reply"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Icon returns a text marker so the status reads without color.
func (s Status) Icon() string {
	switch s {
	case StatusReady:
		return "[OK]"
	case StatusPending:
		return "[..]"
	case StatusError:
		return "[!!]"
	default:
		return "[?]"
	}
}

// StatusBar is the bottom line: status, turn count, transient notice and
// key hints.
type StatusBar struct {
	Status    Status
	TurnCount int
	Notice    string
	Width     int
	Shortcuts []key.Binding
	theme     *styles.Theme
}

// NewStatusBar creates a status bar in the ready state.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		Status: StatusReady,
		Width:  80,
		theme:  theme,
	}
}

// SetWidth updates the status bar width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// View renders the status bar. Key hints are dropped first when the line
// is too narrow.
func (s *StatusBar) View() string {
	left := s.statusStyle().Render(s.Status.Icon()+" "+s.Status.String()) +
		s.theme.StatusBar.Render(fmt.Sprintf("  %d turns", s.TurnCount))
	if s.Notice != "" {
		left += s.theme.StatusBar.Render("  " + util.TruncateWidth(util.SingleLine(s.Notice), max(10, s.Width/2)))
	}

	right := s.renderShortcuts()
	gap := s.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		right = ""
		gap = s.Width - lipgloss.Width(left)
	}
	if gap < 0 {
		return lipgloss.NewStyle().MaxWidth(s.Width).Render(left)
	}
	return left + strings.Repeat(" ", gap) + right
}

func (s *StatusBar) renderShortcuts() string {
	hints := make([]string, 0, len(s.Shortcuts))
	for _, b := range s.Shortcuts {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		hints = append(hints, s.theme.ShortcutKey.Render(h.Key)+" "+s.theme.ShortcutDesc.Render(h.Desc))
	}
	return strings.Join(hints, "  ")
}

func (s *StatusBar) statusStyle() lipgloss.Style {
	switch s.Status {
	case StatusPending:
		return s.theme.Spinner
	case StatusError:
		return s.theme.ErrorText
	default:
		return lipgloss.NewStyle().Foreground(styles.Emerald)
	}
}
