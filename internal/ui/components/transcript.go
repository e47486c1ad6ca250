// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	lru "github.com/hashicorp/golang-lru"

	"github.com/jeranaias/doubtbot/internal/format"
	"github.com/jeranaias/doubtbot/internal/model"
	"github.com/jeranaias/doubtbot/internal/ui/styles"
)

// DefaultLineHeight is the number of geometry units reported per terminal
// line.
const DefaultLineHeight = 20

// renderCacheSize bounds the number of rendered turns kept between refreshes.
const renderCacheSize = 256

// =============================================================================
// TRANSCRIPT VIEW - Scrollable transcript backed by a bubbles viewport
// =============================================================================

// TranscriptView renders the transcript into a viewport and exposes that
// viewport as a scroll geometry. Heights and offsets are reported in lines
// multiplied by the line height, so one threshold value works for both
// terminal and pixel front ends.
//
// TranscriptView is a pointer type: the scroll controller keeps a reference
// to it while the surrounding Bubble Tea model is copied on every update.
type TranscriptView struct {
	viewport viewport.Model
	theme    *styles.Theme
	renderer format.Renderer
	turns    []model.Turn

	width      int
	height     int
	lineHeight int

	showTimestamps bool
	wordWrap       bool

	// rendered maps turn IDs to rendered blocks. Purged whenever anything
	// that affects rendering changes.
	rendered *lru.Cache
}

// NewTranscriptView creates an empty view that renders assistant turns
// with renderer.
func NewTranscriptView(theme *styles.Theme, renderer format.Renderer) *TranscriptView {
	if renderer == nil {
		renderer = format.Plain{}
	}
	vp := viewport.New(80, 20)
	vp.Style = lipgloss.NewStyle()

	tv := &TranscriptView{
		viewport:   vp,
		theme:      theme,
		renderer:   renderer,
		width:      80,
		height:     20,
		lineHeight: DefaultLineHeight,
		wordWrap:   true,
	}
	if cache, err := lru.New(renderCacheSize); err == nil {
		tv.rendered = cache
	}
	tv.refresh()
	return tv
}

// SetSize updates the viewport dimensions and re-renders.
func (tv *TranscriptView) SetSize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if width != tv.width {
		tv.purge()
	}
	tv.width = width
	tv.height = height
	tv.viewport.Width = width
	tv.viewport.Height = height
	tv.refresh()
}

// SetRenderer replaces the renderer used for assistant turns.
func (tv *TranscriptView) SetRenderer(r format.Renderer) {
	if r == nil {
		return
	}
	tv.renderer = r
	tv.purge()
	tv.refresh()
}

// SetLineHeight sets the geometry units per line. Values below 1 are
// treated as 1.
func (tv *TranscriptView) SetLineHeight(units int) {
	if units < 1 {
		units = 1
	}
	tv.lineHeight = units
}

// LineHeight returns the geometry units per line.
func (tv *TranscriptView) LineHeight() int {
	return tv.lineHeight
}

// SetShowTimestamps toggles the time shown next to each role label.
func (tv *TranscriptView) SetShowTimestamps(show bool) {
	tv.showTimestamps = show
	tv.purge()
	tv.refresh()
}

// SetWordWrap toggles wrapping of long lines to the view width.
func (tv *TranscriptView) SetWordWrap(wrap bool) {
	tv.wordWrap = wrap
	tv.purge()
	tv.refresh()
}

// SetTranscript replaces the rendered turns. The scroll offset is kept
// where it was; moving it is the scroll controller's job.
func (tv *TranscriptView) SetTranscript(t model.Transcript) {
	tv.turns = t.Turns()
	tv.refresh()
}

// refresh re-renders every turn into the viewport.
func (tv *TranscriptView) refresh() {
	offset := tv.viewport.YOffset
	tv.viewport.SetContent(tv.render())
	tv.viewport.SetYOffset(offset)
}

// purge drops every cached rendering.
func (tv *TranscriptView) purge() {
	if tv.rendered != nil {
		tv.rendered.Purge()
	}
}

// =============================================================================
// SCROLL GEOMETRY
// =============================================================================

// ContentHeight returns the rendered content height in geometry units.
func (tv *TranscriptView) ContentHeight() int {
	return tv.viewport.TotalLineCount() * tv.lineHeight
}

// ViewportHeight returns the visible height in geometry units.
func (tv *TranscriptView) ViewportHeight() int {
	return tv.viewport.Height * tv.lineHeight
}

// ScrollOffset returns the offset of the first visible line in geometry
// units.
func (tv *TranscriptView) ScrollOffset() int {
	return tv.viewport.YOffset * tv.lineHeight
}

// SetScrollOffset moves the view to offset, rounded up to a whole line.
func (tv *TranscriptView) SetScrollOffset(offset int) {
	if offset < 0 {
		offset = 0
	}
	tv.viewport.SetYOffset((offset + tv.lineHeight - 1) / tv.lineHeight)
}

// =============================================================================
// USER SCROLLING
// =============================================================================

// ScrollUp moves the view up by n lines.
func (tv *TranscriptView) ScrollUp(n int) {
	tv.viewport.LineUp(n)
}

// ScrollDown moves the view down by n lines.
func (tv *TranscriptView) ScrollDown(n int) {
	tv.viewport.LineDown(n)
}

// PageUp moves the view up by one page.
func (tv *TranscriptView) PageUp() {
	tv.viewport.ViewUp()
}

// PageDown moves the view down by one page.
func (tv *TranscriptView) PageDown() {
	tv.viewport.ViewDown()
}

// ScrollToTop moves the view to the first line.
func (tv *TranscriptView) ScrollToTop() {
	tv.viewport.GotoTop()
}

// AtTop reports whether the first line is visible.
func (tv *TranscriptView) AtTop() bool {
	return tv.viewport.AtTop()
}

// AtBottom reports whether the last line is visible.
func (tv *TranscriptView) AtBottom() bool {
	return tv.viewport.AtBottom()
}

// YOffset returns the first visible line.
func (tv *TranscriptView) YOffset() int {
	return tv.viewport.YOffset
}

// TotalLines returns the number of rendered lines.
func (tv *TranscriptView) TotalLines() int {
	return tv.viewport.TotalLineCount()
}

// View renders the visible region.
func (tv *TranscriptView) View() string {
	return tv.viewport.View()
}

// =============================================================================
// TURN RENDERING
// =============================================================================

func (tv *TranscriptView) render() string {
	if len(tv.turns) == 0 {
		return lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Italic(true).
			Width(tv.width).
			Align(lipgloss.Center).
			Padding(1, 0).
			Render("No messages yet. Type a question and press Enter.")
	}

	blocks := make([]string, 0, len(tv.turns))
	for _, turn := range tv.turns {
		blocks = append(blocks, tv.cachedTurn(turn))
	}
	return strings.Join(blocks, "\n\n")
}

// cachedTurn renders turn, reusing an earlier rendering of the same turn.
// Turns never change once appended, so the ID is a sufficient key.
func (tv *TranscriptView) cachedTurn(turn model.Turn) string {
	if tv.rendered == nil || turn.ID == "" {
		return tv.renderTurn(turn)
	}
	if block, ok := tv.rendered.Get(turn.ID); ok {
		return block.(string)
	}
	block := tv.renderTurn(turn)
	tv.rendered.Add(turn.ID, block)
	return block
}

func (tv *TranscriptView) renderTurn(turn model.Turn) string {
	var label, body string
	switch turn.Role {
	case model.RoleUser:
		label = tv.theme.UserLabel.Render(turn.Role.DisplayName())
		body = tv.theme.UserText.Render(tv.wrap(turn.Content))
	default:
		label = tv.theme.AssistantLabel.Render(turn.Role.DisplayName())
		if turn.Failed {
			body = tv.theme.Fallback.Render(tv.wrap(turn.Content))
		} else {
			body = tv.wrap(strings.TrimRight(tv.renderer.Render(turn.Content), "\n"))
		}
	}

	if tv.showTimestamps && !turn.CreatedAt.IsZero() {
		label += " " + tv.theme.Timestamp.Render(formatClock(turn.CreatedAt))
	}
	return label + "\n" + body
}

// wrap breaks lines wider than the view when word wrap is on.
func (tv *TranscriptView) wrap(text string) string {
	if !tv.wordWrap || tv.width < 10 {
		return text
	}
	return lipgloss.NewStyle().Width(tv.width - 1).Render(text)
}

// formatClock formats a time as "15:04", adding the date for other days.
func formatClock(t time.Time) string {
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("Jan 2, 15:04")
}
