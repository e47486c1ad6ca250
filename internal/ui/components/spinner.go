// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/doubtbot/internal/ui/styles"
)

// =============================================================================
// PENDING INDICATOR
// =============================================================================

// PendingIndicator is the loading line shown while a request is in flight.
type PendingIndicator struct {
	spinner   spinner.Model
	theme     *styles.Theme
	message   string
	startTime time.Time
	active    bool
}

// NewPendingIndicator creates an inactive indicator with an ASCII spinner.
func NewPendingIndicator(theme *styles.Theme) PendingIndicator {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	s.Style = theme.Spinner

	return PendingIndicator{
		spinner: s,
		theme:   theme,
		message: "Thinking",
	}
}

// SetMessage changes the text next to the spinner.
func (p *PendingIndicator) SetMessage(msg string) {
	p.message = msg
}

// Start activates the indicator and returns the first tick.
func (p *PendingIndicator) Start() tea.Cmd {
	p.active = true
	p.startTime = time.Now()
	return p.spinner.Tick
}

// Stop deactivates the indicator. Pending ticks are dropped by Update.
func (p *PendingIndicator) Stop() {
	p.active = false
}

// IsActive reports whether the indicator is running.
func (p *PendingIndicator) IsActive() bool {
	return p.active
}

// Elapsed returns the time since Start.
func (p *PendingIndicator) Elapsed() time.Duration {
	if p.startTime.IsZero() {
		return 0
	}
	return time.Since(p.startTime)
}

// Update advances the animation while active.
func (p PendingIndicator) Update(msg tea.Msg) (PendingIndicator, tea.Cmd) {
	if !p.active {
		return p, nil
	}
	var cmd tea.Cmd
	p.spinner, cmd = p.spinner.Update(msg)
	return p, cmd
}

// View renders the indicator, or "" when inactive.
func (p PendingIndicator) View() string {
	if !p.active {
		return ""
	}
	text := p.theme.PendingText.Render(p.message + "...")
	timer := p.theme.Timestamp.Render(" (" + formatElapsed(p.Elapsed()) + ")")
	return p.spinner.View() + " " + text + timer
}

// formatElapsed formats a duration as "4s" or "1m 5s".
func formatElapsed(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}
