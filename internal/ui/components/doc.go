// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the visual building blocks of the doubtbot TUI.

# Components

Header (header.go) - Title bar with the active model name.
TranscriptView (transcript.go) - Scrollable transcript on a bubbles viewport.
PendingIndicator (spinner.go) - Spinner line shown while a reply is pending.
StatusBar (statusbar.go) - Request status, turn count, notices and key hints.

# Scroll Geometry

TranscriptView implements scroll.Geometry. It reports heights and offsets in
lines multiplied by its line height (DefaultLineHeight units per line), so a
near-bottom threshold of 100 means five terminal lines at the default.

	tv := components.NewTranscriptView(theme, renderer)
	ctrl := scroll.New(tv, scroll.WithThreshold(100))
*/
package components
