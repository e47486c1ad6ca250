// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/doubtbot/internal/ui/styles"
	"github.com/jeranaias/doubtbot/internal/util"
)

// =============================================================================
// HEADER COMPONENT - Title bar with the model name
// =============================================================================

// Header is the one-line title bar.
type Header struct {
	Title     string
	ModelName string
	Width     int
	theme     *styles.Theme
}

// NewHeader creates a header titled "doubtbot".
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: "doubtbot",
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetModel updates the model name shown on the right.
func (h *Header) SetModel(name string) {
	h.ModelName = name
}

// View renders the header.
func (h *Header) View() string {
	width := h.Width
	if width < 20 {
		width = 20
	}
	inner := width - 2 // Padding(0, 1)

	brand := h.theme.HeaderBrand.Render(h.Title)
	model := ""
	if h.ModelName != "" {
		room := inner - lipgloss.Width(brand) - 1
		model = h.theme.HeaderModel.Render(util.TruncateWidth(h.ModelName, room))
	}

	gap := inner - lipgloss.Width(brand) - lipgloss.Width(model)
	if gap < 1 {
		gap = 1
	}
	return h.theme.Header.Width(width).Render(brand + strings.Repeat(" ", gap) + model)
}
