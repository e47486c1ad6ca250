// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role says who wrote a turn. The values match the JSON and YAML exports.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) String() string { return string(r) }

// DisplayName is the label shown above a turn: "You" or "Assistant".
func (r Role) DisplayName() string {
	if r == RoleUser {
		return "You"
	}
	if r == RoleAssistant {
		return "Assistant"
	}
	return string(r)
}

// Valid reports whether r is RoleUser or RoleAssistant.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAssistant }

// Turn is one utterance in the transcript. Turns are values; once appended
// they are never modified.
type Turn struct {
	ID        string    `json:"id" yaml:"id"`
	Role      Role      `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// Failed marks an assistant turn that stands in for a failed request.
	Failed bool `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// NewTurn stamps content with a random ID and the current time.
func NewTurn(role Role, content string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// Preview is the first line of the turn, cut to maxLen runes with "..." when
// longer. Export titles use it.
func (t Turn) Preview(maxLen int) string {
	first, _, _ := strings.Cut(t.Content, "\n")
	if r := []rune(first); maxLen > 3 && len(r) > maxLen {
		return string(r[:maxLen-3]) + "..."
	}
	return first
}
