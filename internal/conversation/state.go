// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation holds the chat state machine.
//
// State changes only through Reduce, a pure function from the current state
// and one event to the next state plus the side effects the caller must
// perform. Store serialises events and applies the scroll effects; Session
// runs the whole submit flow against a Generator.
package conversation

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/doubtbot/internal/model"
)

// FallbackReply is the assistant turn appended when the remote call fails.
const FallbackReply = "Sorry, I encountered an error. Please try again."

// =============================================================================
// STATE
// =============================================================================

// State is the conversation at one point in time.
type State struct {
	Transcript model.Transcript

	// Pending is true from the submission of a user turn until the assistant
	// turn (or the fallback) for it is appended.
	Pending bool

	// PendingTurnID is the ID of the user turn awaiting a reply.
	PendingTurnID string
}

// CanSubmit reports whether a new prompt would be accepted.
func (s State) CanSubmit() bool {
	return !s.Pending
}

// =============================================================================
// EVENTS
// =============================================================================

// Event is an input to Reduce.
type Event interface {
	isEvent()
}

// Submit asks to send a user prompt.
type Submit struct {
	Text string
}

// ResponseReceived carries the reply for the pending request.
type ResponseReceived struct {
	Text string
}

// ResponseFailed reports that the pending request failed.
type ResponseFailed struct {
	Err error
}

// Clear resets the transcript.
type Clear struct{}

// UserScrolled reports a scroll made by the reader.
type UserScrolled struct{}

func (Submit) isEvent()           {}
func (ResponseReceived) isEvent() {}
func (ResponseFailed) isEvent()   {}
func (Clear) isEvent()            {}
func (UserScrolled) isEvent()     {}

// =============================================================================
// EFFECTS
// =============================================================================

// Request is an outbound call the caller must make.
type Request struct {
	Prompt string
	TurnID string
}

// Effects lists what the caller must do after a transition.
type Effects struct {
	// Request is set when a remote call must be started.
	Request *Request

	// TranscriptChanged is set when a turn was appended, the transcript was
	// cleared, or the pending flag changed.
	TranscriptChanged bool

	// ObserveScroll is set when the scroll controller should re-measure
	// after a user scroll.
	ObserveScroll bool

	// Rejected is set when the event was not applicable in the current
	// state. The returned state equals the input state.
	Rejected bool

	// Failed is set when the fallback reply was appended.
	Failed bool
}

// =============================================================================
// REDUCER
// =============================================================================

// NormalizePrompt applies Unicode NFC normalisation and trims surrounding
// whitespace.
func NormalizePrompt(text string) string {
	return strings.TrimSpace(norm.NFC.String(text))
}

// Reduce returns the state after ev and the effects the caller must carry
// out. It never blocks and never mutates s.
func Reduce(s State, ev Event) (State, Effects) {
	switch ev := ev.(type) {
	case Submit:
		prompt := NormalizePrompt(ev.Text)
		if prompt == "" || s.Pending {
			return s, Effects{Rejected: true}
		}
		turn := model.NewTurn(model.RoleUser, prompt)
		next := State{
			Transcript:    s.Transcript.Append(turn),
			Pending:       true,
			PendingTurnID: turn.ID,
		}
		return next, Effects{
			Request:           &Request{Prompt: prompt, TurnID: turn.ID},
			TranscriptChanged: true,
		}

	case ResponseReceived:
		if !s.Pending {
			return s, Effects{Rejected: true}
		}
		return settle(s, ev.Text, false), Effects{TranscriptChanged: true}

	case ResponseFailed:
		if !s.Pending {
			return s, Effects{Rejected: true}
		}
		return settle(s, FallbackReply, true), Effects{TranscriptChanged: true, Failed: true}

	case Clear:
		if s.Pending {
			return s, Effects{Rejected: true}
		}
		return State{Transcript: s.Transcript.Reset()}, Effects{TranscriptChanged: true}

	case UserScrolled:
		return s, Effects{ObserveScroll: true}

	default:
		return s, Effects{Rejected: true}
	}
}

// settle appends the assistant turn and clears the pending flag.
func settle(s State, reply string, failed bool) State {
	turn := model.NewTurn(model.RoleAssistant, reply)
	turn.Failed = failed
	return State{Transcript: s.Transcript.Append(turn)}
}
