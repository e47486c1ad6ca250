// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - What the attached terminal can do.
//
// ask and chat write markdown that is styled only when a person is reading
// it. Piped output stays plain, and NO_COLOR always wins.

package cli

import (
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Width bounds used when wrapping rendered replies.
const (
	DefaultTerminalWidth = 80
	MinTerminalWidth     = 40
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// IsTTY reports whether questions can be typed interactively.
func IsTTY() bool { return isTerminal(os.Stdin) }

// IsStdoutTTY reports whether replies are shown to a person.
func IsStdoutTTY() bool { return isTerminal(os.Stdout) }

// GetTerminalWidth returns the wrap width for rendered replies, clamped to
// MinTerminalWidth. Redirected output wraps at DefaultTerminalWidth.
func GetTerminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	switch {
	case err != nil, w <= 0:
		return DefaultTerminalWidth
	case w < MinTerminalWidth:
		return MinTerminalWidth
	}
	return w
}

var colorDecision = sync.OnceValue(func() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return os.Getenv("FORCE_COLOR") != "" || IsStdoutTTY()
})

// ColorsEnabled reports whether styled output should be written.
func ColorsEnabled() bool { return colorDecision() }

// GetColorProfile returns the profile replies and status lines render with.
func GetColorProfile() termenv.Profile {
	if ColorsEnabled() {
		return termenv.ColorProfile()
	}
	return termenv.Ascii
}

// HasDarkBackground asks the terminal for its background. Without one to
// ask, the dark palette is used.
func HasDarkBackground() bool {
	return !IsStdoutTTY() || termenv.HasDarkBackground()
}
