// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TURN TESTS
// =============================================================================

func TestNewTurn(t *testing.T) {
	turn := NewTurn(RoleUser, "Hi")

	assert.Equal(t, RoleUser, turn.Role)
	assert.Equal(t, "Hi", turn.Content)
	assert.False(t, turn.CreatedAt.IsZero())
	_, err := uuid.Parse(turn.ID)
	assert.NoError(t, err, "ID should be a UUID")

	other := NewTurn(RoleUser, "Hi")
	assert.NotEqual(t, turn.ID, other.ID)
}

func TestRole_DisplayName(t *testing.T) {
	assert.Equal(t, "You", RoleUser.DisplayName())
	assert.Equal(t, "Assistant", RoleAssistant.DisplayName())
	assert.Equal(t, "bot", Role("bot").DisplayName())
	assert.True(t, RoleAssistant.Valid())
	assert.False(t, Role("system").Valid())
}

func TestTurn_Preview(t *testing.T) {
	tests := []struct {
		content string
		maxLen  int
		want    string
	}{
		{"short", 10, "short"},
		{"first line\nsecond", 20, "first line"},
		{"abcdefghijkl", 8, "abcde..."},
		{"héllo wörld", 8, "héllo..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Turn{Content: tt.content}.Preview(tt.maxLen))
	}
}

// =============================================================================
// TRANSCRIPT TESTS
// =============================================================================

func TestTranscript_AppendPreservesOrder(t *testing.T) {
	var tr Transcript
	assert.True(t, tr.IsEmpty())

	tr = tr.Append(NewTurn(RoleUser, "one"))
	tr = tr.Append(NewTurn(RoleAssistant, "two"))
	tr = tr.Append(NewTurn(RoleUser, "one"))

	require.Equal(t, 3, tr.Len())
	assert.Equal(t, "one", tr.At(0).Content)
	assert.Equal(t, "two", tr.At(1).Content)
	assert.Equal(t, "one", tr.At(2).Content, "duplicates are kept")
	assert.Equal(t, 2, tr.Count(RoleUser))
	assert.Equal(t, 1, tr.Count(RoleAssistant))
}

func TestTranscript_AppendDoesNotShareStorage(t *testing.T) {
	base := NewTranscript(NewTurn(RoleUser, "a"))
	left := base.Append(NewTurn(RoleAssistant, "left"))
	right := base.Append(NewTurn(RoleAssistant, "right"))

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, "left", left.At(1).Content)
	assert.Equal(t, "right", right.At(1).Content)
}

func TestTranscript_TurnsReturnsCopy(t *testing.T) {
	tr := NewTranscript(NewTurn(RoleUser, "original"))
	turns := tr.Turns()
	turns[0].Content = "changed"

	assert.Equal(t, "original", tr.At(0).Content)
}

func TestTranscript_LastAndReset(t *testing.T) {
	var tr Transcript
	_, ok := tr.Last()
	assert.False(t, ok)

	tr = tr.Append(NewTurn(RoleUser, "q")).Append(NewTurn(RoleAssistant, "a"))
	last, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, "a", last.Content)

	tr = tr.Reset()
	assert.Equal(t, 0, tr.Len())
}

// =============================================================================
// MODEL INFO TESTS
// =============================================================================

func TestResolveModelID(t *testing.T) {
	assert.Equal(t, "gemini-2.0-flash", ResolveModelID("flash"))
	assert.Equal(t, "gemini-2.5-pro", ResolveModelID(" PRO "))
	assert.Equal(t, "gemini-exp-1206", ResolveModelID("gemini-exp-1206"))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Gemini 2.0 Flash", DisplayName(DefaultModel))
	assert.Equal(t, "custom-model", DisplayName("custom-model"))
}

func TestGetModelInfo(t *testing.T) {
	info, ok := GetModelInfo("Flash")
	require.True(t, ok)
	assert.Equal(t, DefaultModel, info.ID)

	info, ok = GetModelInfo("gemini-2.5-pro")
	require.True(t, ok)
	assert.Equal(t, "Gemini 2.5 Pro", info.Name)

	_, ok = GetModelInfo("gemini-exp-1206")
	assert.False(t, ok)
}

func TestModelAliasesSorted(t *testing.T) {
	aliases := ModelAliases()
	require.Len(t, aliases, len(Models))
	assert.IsNonDecreasing(t, aliases)
}
