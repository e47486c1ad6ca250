// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds the few helpers more than one doubtbot package needs:
// width-aware truncation for the status bar and previews, and atomic file
// replacement for config saves and transcript exports.
//
//	notice := util.TruncateWidth(util.SingleLine(msg), 40)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
