// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// Transcript is the ordered sequence of turns in one session. Insertion
// order is display order. Turns are never reordered or deduplicated.
//
// The zero value is an empty transcript ready to use. Transcript is not safe
// for concurrent use; it is owned by a single conversation state.
type Transcript struct {
	turns []Turn
}

// NewTranscript creates a transcript holding a copy of turns.
func NewTranscript(turns ...Turn) Transcript {
	out := make([]Turn, len(turns))
	copy(out, turns)
	return Transcript{turns: out}
}

// Append adds a turn to the end of the transcript and returns the new
// transcript. The receiver's backing storage is never shared with the
// result, so earlier copies stay unchanged.
func (t Transcript) Append(turn Turn) Transcript {
	turns := make([]Turn, len(t.turns), len(t.turns)+1)
	copy(turns, t.turns)
	return Transcript{turns: append(turns, turn)}
}

// Len returns the number of turns.
func (t Transcript) Len() int {
	return len(t.turns)
}

// IsEmpty reports whether the transcript has no turns.
func (t Transcript) IsEmpty() bool {
	return len(t.turns) == 0
}

// Turns returns a copy of the turns in display order.
func (t Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// At returns the turn at index i.
func (t Transcript) At(i int) Turn {
	return t.turns[i]
}

// Last returns the most recent turn.
func (t Transcript) Last() (Turn, bool) {
	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

// Reset returns an empty transcript.
func (t Transcript) Reset() Transcript {
	return Transcript{}
}

// Count returns the number of turns with the given role.
func (t Transcript) Count(role Role) int {
	n := 0
	for _, turn := range t.turns {
		if turn.Role == role {
			n++
		}
	}
	return n
}
