// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a transcript to a file.
//
// Supported formats:
//   - html: standalone page; assistant turns go through the HTML formatter
//     with literal text escaped, user turns are escaped verbatim
//   - markdown: YAML front matter followed by the raw turns
//   - json, yaml: the turn list with export metadata
//
// # Usage
//
//	exp, err := export.ForFormat("html", nil)
//	path, err := export.ToFile(transcript, exp, export.Meta{Model: id}, "")
//
// Files are written atomically with 0600 permissions.
package export
