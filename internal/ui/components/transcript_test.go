// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/doubtbot/internal/conversation"
	"github.com/jeranaias/doubtbot/internal/format"
	"github.com/jeranaias/doubtbot/internal/model"
	"github.com/jeranaias/doubtbot/internal/scroll"
	"github.com/jeranaias/doubtbot/internal/ui/styles"
)

func testTheme() *styles.Theme {
	return styles.NewThemeForProfile(termenv.Ascii, true)
}

func userTurns(n int) model.Transcript {
	tr := model.NewTranscript()
	for i := 0; i < n; i++ {
		tr = tr.Append(model.NewTurn(model.RoleUser, fmt.Sprintf("message %d", i)))
	}
	return tr
}

func newTestView(turns int) *TranscriptView {
	tv := NewTranscriptView(testTheme(), format.Plain{})
	tv.SetSize(40, 5)
	tv.SetTranscript(userTurns(turns))
	return tv
}

// =============================================================================
// GEOMETRY
// =============================================================================

func TestTranscriptView_GeometryUnits(t *testing.T) {
	tv := newTestView(20)

	require.Greater(t, tv.TotalLines(), 5)
	assert.Equal(t, tv.TotalLines()*DefaultLineHeight, tv.ContentHeight())
	assert.Equal(t, 5*DefaultLineHeight, tv.ViewportHeight())
	assert.Equal(t, 0, tv.ScrollOffset())

	// Offsets round up to whole lines.
	tv.SetScrollOffset(30)
	assert.Equal(t, 2, tv.YOffset())
	assert.Equal(t, 40, tv.ScrollOffset())

	tv.SetScrollOffset(scroll.MaxOffset(tv))
	assert.True(t, tv.AtBottom())
	assert.Equal(t, tv.ContentHeight()-tv.ViewportHeight(), tv.ScrollOffset())

	tv.SetScrollOffset(-5)
	assert.True(t, tv.AtTop())
}

func TestTranscriptView_LineHeight(t *testing.T) {
	tv := newTestView(20)

	tv.SetLineHeight(1)
	assert.Equal(t, tv.TotalLines(), tv.ContentHeight())

	tv.SetLineHeight(0)
	assert.Equal(t, 1, tv.LineHeight())
}

func TestTranscriptView_SetTranscriptKeepsOffset(t *testing.T) {
	tv := newTestView(20)
	tv.SetScrollOffset(3 * DefaultLineHeight)

	tv.SetTranscript(userTurns(25))

	assert.Equal(t, 3, tv.YOffset())
}

func TestTranscriptView_UserScrolling(t *testing.T) {
	tv := newTestView(20)

	tv.ScrollDown(4)
	assert.Equal(t, 4, tv.YOffset())
	tv.ScrollUp(1)
	assert.Equal(t, 3, tv.YOffset())
	tv.PageDown()
	assert.Equal(t, 8, tv.YOffset())
	tv.PageUp()
	assert.Equal(t, 3, tv.YOffset())
	tv.ScrollToTop()
	assert.True(t, tv.AtTop())
}

// Threshold 100 at the default line height is five lines.
func TestTranscriptView_DrivesScrollController(t *testing.T) {
	tv := newTestView(20)
	tv.SetScrollOffset(scroll.MaxOffset(tv))
	ctrl := scroll.New(tv)
	require.True(t, ctrl.State().IsAtBottom)

	tv.ScrollUp(5)
	ctrl.OnUserScroll()
	assert.True(t, ctrl.State().IsAtBottom)
	assert.False(t, ctrl.State().ShowJumpAffordance)

	tv.ScrollUp(1)
	ctrl.OnUserScroll()
	assert.False(t, ctrl.State().IsAtBottom)
	assert.True(t, ctrl.State().ShowJumpAffordance)

	before := tv.YOffset()
	tv.SetTranscript(userTurns(21))
	ctrl.OnTranscriptChanged(false)
	assert.Equal(t, before, tv.YOffset(), "reader position must be kept")
	assert.True(t, ctrl.State().ShowJumpAffordance)

	tv.SetTranscript(userTurns(22))
	ctrl.OnTranscriptChanged(true)
	assert.True(t, tv.AtBottom(), "pending forces the view to the bottom")

	tv.ScrollUp(10)
	ctrl.OnUserScroll()
	require.True(t, ctrl.JumpToBottom())
	assert.True(t, tv.AtBottom())
}

// =============================================================================
// RENDERING
// =============================================================================

func TestTranscriptView_RendersTurns(t *testing.T) {
	tv := NewTranscriptView(testTheme(), format.Plain{})
	tv.SetSize(60, 20)

	tr := model.NewTranscript(
		model.NewTurn(model.RoleUser, "What is Go?"),
		model.NewTurn(model.RoleAssistant, "A language."),
		model.Turn{ID: "f", Role: model.RoleAssistant, Content: conversation.FallbackReply, Failed: true},
	)
	tv.SetTranscript(tr)
	view := tv.View()

	assert.Contains(t, view, "You")
	assert.Contains(t, view, "What is Go?")
	assert.Contains(t, view, "Assistant")
	assert.Contains(t, view, "A language.")
	assert.Contains(t, view, "Sorry, I encountered an error. Please try again.")
}

func TestTranscriptView_Empty(t *testing.T) {
	tv := NewTranscriptView(testTheme(), nil)
	tv.SetSize(60, 10)
	assert.Contains(t, tv.View(), "No messages yet")
}

func TestTranscriptView_RendererAndTimestamps(t *testing.T) {
	tv := NewTranscriptView(testTheme(), format.Plain{})
	tv.SetSize(60, 10)
	turn := model.NewTurn(model.RoleAssistant, "**bold**")
	tv.SetTranscript(model.NewTranscript(turn))
	assert.Contains(t, tv.View(), "**bold**")

	tv.SetRenderer(format.New(format.HTML))
	assert.Contains(t, tv.View(), "<strong>bold</strong>")

	tv.SetShowTimestamps(true)
	assert.Contains(t, tv.View(), turn.CreatedAt.Format("15:04"))
}

// countingRenderer counts Render calls.
type countingRenderer struct{ calls int }

func (c *countingRenderer) Render(text string) string {
	c.calls++
	return text
}

// Only the failed flag selects the fallback style; a real reply that happens
// to read like the fallback still goes through the renderer.
func TestTranscriptView_FailedTurnsSkipRenderer(t *testing.T) {
	r := &countingRenderer{}
	tv := NewTranscriptView(testTheme(), r)
	tv.SetSize(60, 10)

	failed := model.Turn{ID: "f", Role: model.RoleAssistant, Content: conversation.FallbackReply, Failed: true}
	tv.SetTranscript(model.NewTranscript(failed))
	assert.Equal(t, 0, r.calls)

	genuine := model.NewTurn(model.RoleAssistant, conversation.FallbackReply)
	tv.SetTranscript(model.NewTranscript(failed, genuine))
	assert.Equal(t, 1, r.calls)
	assert.Contains(t, tv.View(), conversation.FallbackReply)
}

func TestTranscriptView_ReusesRenderedTurns(t *testing.T) {
	r := &countingRenderer{}
	tv := NewTranscriptView(testTheme(), r)
	tv.SetSize(60, 10)

	first := model.NewTurn(model.RoleAssistant, "one")
	tr := model.NewTranscript(first)
	tv.SetTranscript(tr)
	require.Equal(t, 1, r.calls)

	tv.SetTranscript(tr.Append(model.NewTurn(model.RoleAssistant, "two")))
	assert.Equal(t, 2, r.calls, "only the new turn is rendered")

	tv.SetSize(60, 12)
	assert.Equal(t, 2, r.calls, "height changes keep the cache")

	tv.SetSize(50, 12)
	assert.Equal(t, 4, r.calls, "width changes re-render everything")
}

func TestTranscriptView_WordWrap(t *testing.T) {
	long := strings.Repeat("word ", 30)
	tv := NewTranscriptView(testTheme(), format.Plain{})
	tv.SetSize(40, 10)
	tv.SetTranscript(model.NewTranscript(model.NewTurn(model.RoleUser, long)))
	wrapped := tv.TotalLines()

	tv.SetWordWrap(false)
	assert.Less(t, tv.TotalLines(), wrapped)
}

// =============================================================================
// HEADER AND STATUS BAR
// =============================================================================

func TestHeader_View(t *testing.T) {
	h := NewHeader(testTheme())
	h.SetWidth(50)
	h.SetModel("Gemini 2.0 Flash")

	view := h.View()
	assert.Contains(t, view, "doubtbot")
	assert.Contains(t, view, "Gemini 2.0 Flash")
	assert.Equal(t, 50, lipgloss.Width(view))
}

func TestStatusBar_View(t *testing.T) {
	s := NewStatusBar(testTheme())
	s.SetWidth(100)
	s.TurnCount = 2
	s.Shortcuts = []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		key.NewBinding(key.WithKeys("end"), key.WithHelp("end", "jump"), key.WithDisabled()),
	}

	view := s.View()
	assert.Contains(t, view, "[OK] Ready")
	assert.Contains(t, view, "2 turns")
	assert.Contains(t, view, "send")
	assert.NotContains(t, view, "jump")

	s.Status = StatusPending
	s.Notice = "exported to /tmp/x.html"
	view = s.View()
	assert.Contains(t, view, "Waiting for reply")
	assert.Contains(t, view, "exported")

	s.SetWidth(30)
	assert.NotContains(t, s.View(), "send", "hints are dropped when narrow")
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "Error", StatusError.String())
	assert.Equal(t, "[!!]", StatusError.Icon())
	assert.Equal(t, "Unknown", Status(99).String())
}
