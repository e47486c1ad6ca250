// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for a chat transcript.
//
// # Key Types
//
//   - Turn: one immutable utterance with a role and content
//   - Transcript: the ordered, append-only list of turns in a session
//   - Role: user or assistant
//   - ModelInfo: information about a Gemini model (ID, display name)
//
// # Usage
//
//	var tr model.Transcript
//	tr.Append(model.NewTurn(model.RoleUser, "Hi"))
//	last, _ := tr.Last()
package model
