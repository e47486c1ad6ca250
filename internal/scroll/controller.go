// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scroll decides when a transcript view follows new content.
//
// The controller snaps to the newest content when the reader is already
// near the bottom, or while a request is pending so the loading indicator
// stays visible. Otherwise it leaves the reader where they are and raises a
// jump-to-bottom affordance.
package scroll

// DefaultThreshold is the distance from the bottom, in geometry units, at or
// under which the view counts as "near the bottom".
const DefaultThreshold = 100

// Geometry is the scrollable view the controller drives. All values share a
// unit (pixels in a browser, lines in a terminal).
type Geometry interface {
	// ContentHeight is the full height of the scrollable content.
	ContentHeight() int
	// ViewportHeight is the visible height.
	ViewportHeight() int
	// ScrollOffset is the distance from the top of the content to the top
	// of the visible region.
	ScrollOffset() int
	// SetScrollOffset moves the visible region.
	SetScrollOffset(offset int)
}

// State is the controller's view of the viewport.
type State struct {
	IsAtBottom         bool
	ShowJumpAffordance bool
}

// Controller tracks one viewport bound to a transcript.
type Controller struct {
	geo       Geometry
	threshold int
	state     State
}

// Option configures a Controller.
type Option func(*Controller)

// WithThreshold sets the near-bottom threshold. Negative values are treated
// as zero.
func WithThreshold(threshold int) Option {
	return func(c *Controller) { c.SetThreshold(threshold) }
}

// New creates a controller for geo.
func New(geo Geometry, opts ...Option) *Controller {
	c := &Controller{geo: geo, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(c)
	}
	c.state.IsAtBottom = c.distanceFromBottom() <= c.threshold
	return c
}

// State returns the current scroll state.
func (c *Controller) State() State {
	return c.state
}

// Threshold returns the near-bottom threshold.
func (c *Controller) Threshold() int {
	return c.threshold
}

// SetThreshold changes the near-bottom threshold.
func (c *Controller) SetThreshold(threshold int) {
	if threshold < 0 {
		threshold = 0
	}
	c.threshold = threshold
}

// OnTranscriptChanged reacts to an appended turn or a pending flag change.
// It scrolls to the maximum offset when the view is near the bottom or a
// request is pending, and reports whether it scrolled.
func (c *Controller) OnTranscriptChanged(pending bool) bool {
	scrolled := false
	if c.distanceFromBottom() <= c.threshold || pending {
		c.scrollToMax()
		scrolled = true
	}

	distance := c.distanceFromBottom()
	c.state.IsAtBottom = distance <= c.threshold
	c.state.ShowJumpAffordance = distance > c.threshold && c.contentOverflows()
	return scrolled
}

// OnUserScroll records a scroll made by the reader. It never scrolls.
func (c *Controller) OnUserScroll() {
	distance := c.distanceFromBottom()
	c.state.IsAtBottom = distance <= c.threshold
	c.state.ShowJumpAffordance = distance > c.threshold
}

// JumpToBottom scrolls to the newest content. It only acts while the
// affordance is shown and reports whether it scrolled.
func (c *Controller) JumpToBottom() bool {
	if !c.state.ShowJumpAffordance {
		return false
	}
	c.scrollToMax()
	c.state.IsAtBottom = true
	c.state.ShowJumpAffordance = false
	return true
}

// DistanceFromBottom returns how far the visible region is from the end of
// the content.
func (c *Controller) DistanceFromBottom() int {
	return c.distanceFromBottom()
}

func (c *Controller) distanceFromBottom() int {
	return c.geo.ContentHeight() - c.geo.ScrollOffset() - c.geo.ViewportHeight()
}

func (c *Controller) contentOverflows() bool {
	return c.geo.ContentHeight() > c.geo.ViewportHeight()
}

func (c *Controller) scrollToMax() {
	c.geo.SetScrollOffset(MaxOffset(c.geo))
}

// MaxOffset returns the largest valid scroll offset for geo.
func MaxOffset(geo Geometry) int {
	if m := geo.ContentHeight() - geo.ViewportHeight(); m > 0 {
		return m
	}
	return 0
}
