// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/doubtbot/internal/config"
	"github.com/jeranaias/doubtbot/internal/conversation"
)

// =============================================================================
// REQUEST MESSAGES
// =============================================================================

// ReplyMsg carries the outcome of a remote call back to the update loop.
type ReplyMsg struct {
	Result conversation.Result
}

// =============================================================================
// CONFIG MESSAGES
// =============================================================================

// ConfigReloadedMsg is sent when the config file changed on disk. Err is set
// when the new file could not be loaded; the running config is kept.
type ConfigReloadedMsg struct {
	Config *config.Config
	Err    error
}

// =============================================================================
// EXPORT MESSAGES
// =============================================================================

// ExportDoneMsg reports a finished /export.
type ExportDoneMsg struct {
	Path string
	Err  error
}
