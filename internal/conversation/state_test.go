// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/doubtbot/internal/model"
)

func submitted(t *testing.T, text string) State {
	t.Helper()
	s, eff := Reduce(State{}, Submit{Text: text})
	require.False(t, eff.Rejected)
	return s
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestReduce_SubmitAppendsUserTurnAndRequests(t *testing.T) {
	s, eff := Reduce(State{}, Submit{Text: "Hi"})

	require.NotNil(t, eff.Request)
	assert.Equal(t, "Hi", eff.Request.Prompt)
	assert.True(t, eff.TranscriptChanged)
	assert.False(t, eff.Rejected)

	assert.True(t, s.Pending)
	assert.False(t, s.CanSubmit())
	require.Equal(t, 1, s.Transcript.Len())
	turn := s.Transcript.At(0)
	assert.Equal(t, model.RoleUser, turn.Role)
	assert.Equal(t, "Hi", turn.Content)
	assert.Equal(t, turn.ID, eff.Request.TurnID)
	assert.Equal(t, turn.ID, s.PendingTurnID)
}

func TestReduce_SubmitNormalizes(t *testing.T) {
	// "e" followed by a combining acute accent composes to U+00E9.
	s, eff := Reduce(State{}, Submit{Text: "  cafe\u0301 \n"})
	require.NotNil(t, eff.Request)
	assert.Equal(t, "caf\u00e9", eff.Request.Prompt)
	assert.Equal(t, "caf\u00e9", s.Transcript.At(0).Content)
}

func TestReduce_SubmitRejected(t *testing.T) {
	tests := []struct {
		name  string
		state State
		text  string
	}{
		{"empty", State{}, ""},
		{"whitespace", State{}, " \t\n "},
		{"pending", State{Pending: true}, "again"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, eff := Reduce(tt.state, Submit{Text: tt.text})
			assert.True(t, eff.Rejected)
			assert.Nil(t, eff.Request)
			assert.Equal(t, tt.state, s)
		})
	}
}

// =============================================================================
// RESPONSES
// =============================================================================

func TestReduce_ResponseReceived(t *testing.T) {
	s := submitted(t, "Hi")

	s, eff := Reduce(s, ResponseReceived{Text: "Hello!"})

	assert.True(t, eff.TranscriptChanged)
	assert.False(t, eff.Failed)
	assert.False(t, s.Pending)
	assert.Empty(t, s.PendingTurnID)
	require.Equal(t, 2, s.Transcript.Len())
	last, _ := s.Transcript.Last()
	assert.Equal(t, model.RoleAssistant, last.Role)
	assert.Equal(t, "Hello!", last.Content)
}

func TestReduce_ResponseFailedAppendsFallback(t *testing.T) {
	s := submitted(t, "Hi")

	s, eff := Reduce(s, ResponseFailed{Err: errors.New("boom")})

	assert.True(t, eff.TranscriptChanged)
	assert.True(t, eff.Failed)
	assert.False(t, s.Pending)
	last, _ := s.Transcript.Last()
	assert.Equal(t, model.RoleAssistant, last.Role)
	assert.Equal(t, FallbackReply, last.Content)
	assert.Equal(t, "Sorry, I encountered an error. Please try again.", last.Content)
	assert.True(t, last.Failed)
}

func TestReduce_ReplyMatchingFallbackIsNotFailed(t *testing.T) {
	s := submitted(t, "Say the error line")

	s, eff := Reduce(s, ResponseReceived{Text: FallbackReply})

	assert.False(t, eff.Failed)
	last, _ := s.Transcript.Last()
	assert.Equal(t, FallbackReply, last.Content)
	assert.False(t, last.Failed)
}

func TestReduce_StaleResponsesIgnored(t *testing.T) {
	for _, ev := range []Event{ResponseReceived{Text: "late"}, ResponseFailed{Err: errors.New("late")}} {
		s, eff := Reduce(State{}, ev)
		assert.True(t, eff.Rejected)
		assert.Equal(t, 0, s.Transcript.Len())
	}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	before := submitted(t, "Hi")
	snapshot := before.Transcript.Turns()

	_, _ = Reduce(before, ResponseReceived{Text: "Hello"})

	assert.True(t, before.Pending)
	assert.Equal(t, snapshot, before.Transcript.Turns())
}

// =============================================================================
// CLEAR AND SCROLL
// =============================================================================

func TestReduce_Clear(t *testing.T) {
	s := submitted(t, "Hi")
	s, _ = Reduce(s, ResponseReceived{Text: "Hello"})

	s, eff := Reduce(s, Clear{})

	assert.True(t, eff.TranscriptChanged)
	assert.Equal(t, 0, s.Transcript.Len())
	assert.True(t, s.CanSubmit())
}

func TestReduce_ClearRejectedWhilePending(t *testing.T) {
	s := submitted(t, "Hi")

	next, eff := Reduce(s, Clear{})

	assert.True(t, eff.Rejected)
	assert.Equal(t, 1, next.Transcript.Len())
	assert.True(t, next.Pending)
}

func TestReduce_UserScrolled(t *testing.T) {
	s := submitted(t, "Hi")

	next, eff := Reduce(s, UserScrolled{})

	assert.True(t, eff.ObserveScroll)
	assert.False(t, eff.TranscriptChanged)
	assert.Equal(t, s, next)
}

func TestNormalizePrompt(t *testing.T) {
	assert.Equal(t, "", NormalizePrompt("   "))
	assert.Equal(t, "a b", NormalizePrompt("\ta b\n"))
}
