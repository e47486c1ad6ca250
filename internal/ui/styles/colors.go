// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// Palette. Each color has a light and a dark variant; lipgloss picks one
// from the terminal background.
var (
	Purple  = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"} // assistant label, headings
	Cyan    = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"} // user label, inline code
	Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}
	Amber   = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"} // "Thinking...", jump hint
	Rose    = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"} // fallback replies

	SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}
	Overlay    = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}
	OverlayDim = lipgloss.AdaptiveColor{Light: "#D4D4D4", Dark: "#45475A"}

	TextPrimary   = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
)

// Status lines start with a bracketed marker so they read the same with
// colors off.
var (
	errorMarker   = lipgloss.NewStyle().Foreground(Rose).Bold(true).SetString("[ERR]")
	warningMarker = lipgloss.NewStyle().Foreground(Amber).SetString("[WARN]")
	infoMarker    = lipgloss.NewStyle().Foreground(Cyan).SetString("[i]")
	successMarker = lipgloss.NewStyle().Foreground(Emerald).Bold(true).SetString("[OK]")
)

// RenderError prefixes message with the error marker.
func RenderError(message string) string { return errorMarker.String() + " " + message }

// RenderWarning prefixes message with the warning marker.
func RenderWarning(message string) string { return warningMarker.String() + " " + message }

// RenderInfo prefixes message with the info marker.
func RenderInfo(message string) string { return infoMarker.String() + " " + message }

// RenderSuccess prefixes message with the success marker.
func RenderSuccess(message string) string { return successMarker.String() + " " + message }
