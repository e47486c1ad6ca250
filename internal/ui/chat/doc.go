// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the full-screen chat view of the doubtbot TUI.

The view is a Bubble Tea model laid out as a header, the transcript viewport,
an indicator line (pending spinner and jump-to-bottom hint), the input field
and a status bar.

# Flow

Enter dispatches a Submit event to the conversation store. The store appends
the user turn, re-renders the transcript and lets the scroll controller snap
to the bottom because a request is now pending. The remote call runs as a
tea.Cmd and comes back as a ReplyMsg, which settles the request with either
the reply or the fallback turn. The input is blurred while pending.

# Keys

	Enter          send, or run a /command
	Up, Down       scroll one line
	PgUp, PgDn     scroll one page
	Home           scroll to the top
	End, Ctrl+B    jump to the newest content (when the hint is shown)
	Ctrl+L         clear the conversation
	Ctrl+C         quit

The mouse wheel scrolls by scroll.wheel_lines lines.

# Commands

	/clear            clear the conversation
	/export [path]    write the transcript; format follows the extension (HTML by default)
	/quit             exit
*/
package chat
