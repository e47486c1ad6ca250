// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the doubtbot terminal
front ends.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Color System (colors.go)

  - Purple - assistant turns and headings
  - Cyan - brand color, user turns, inline code
  - Emerald - healthy status
  - Amber - pending indicator and the jump-to-bottom hint
  - Rose - errors and the fallback reply

# Theme (theme.go)

Theme bundles the lipgloss styles used by the chat TUI and the line-mode
REPL. NewTheme inspects the terminal with termenv; NewThemeForProfile builds
a theme for an explicit profile, which tests use to get stable output.

	theme := styles.NewTheme()
	fmt.Println(theme.UserLabel.Render("You"))
*/
package styles
