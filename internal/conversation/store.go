// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"github.com/jeranaias/doubtbot/internal/scroll"
)

// Store owns a State and applies the scroll effects of each transition.
//
// Store is not safe for concurrent use. Every event is expected to arrive on
// the single goroutine that owns the view (the Bubble Tea update loop, the
// REPL loop, or one HTTP request).
type Store struct {
	state    State
	scroll   *scroll.Controller
	onChange func(State)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithScrollController attaches a scroll controller. It is notified after
// every transcript change and every user scroll.
func WithScrollController(c *scroll.Controller) StoreOption {
	return func(s *Store) { s.scroll = c }
}

// WithChangeHook registers fn to run after each transcript change and before
// the scroll controller measures the geometry. Views use it to re-render so
// the controller sees the new content height.
func WithChangeHook(fn func(State)) StoreOption {
	return func(s *Store) { s.onChange = fn }
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch applies ev and performs the scroll side effects. The returned
// Effects tell the caller whether a remote request must be started.
func (s *Store) Dispatch(ev Event) Effects {
	next, eff := Reduce(s.state, ev)
	if eff.Rejected {
		return eff
	}
	s.state = next

	if eff.TranscriptChanged {
		if s.onChange != nil {
			s.onChange(next)
		}
		if s.scroll != nil {
			s.scroll.OnTranscriptChanged(next.Pending)
		}
	}
	if eff.ObserveScroll && s.scroll != nil {
		s.scroll.OnUserScroll()
	}
	return eff
}

// State returns the current state.
func (s *Store) State() State {
	return s.state
}

// CanSubmit reports whether a new prompt would be accepted.
func (s *Store) CanSubmit() bool {
	return s.state.CanSubmit()
}

// Scroll returns the scroll state, or the zero state when no controller is
// attached.
func (s *Store) Scroll() scroll.State {
	if s.scroll == nil {
		return scroll.State{}
	}
	return s.scroll.State()
}

// ScrollController returns the attached controller, if any.
func (s *Store) ScrollController() *scroll.Controller {
	return s.scroll
}

// JumpToBottom forwards the jump affordance to the scroll controller.
func (s *Store) JumpToBottom() bool {
	if s.scroll == nil {
		return false
	}
	return s.scroll.JumpToBottom()
}
