// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package format

import "strconv"

// HTML emits the markup used by the web API and HTML exports. Class names
// are hooks for the export stylesheet.
var HTML = Dialect{
	Name: "html",
	CodeBlock: func(code string) string {
		return `<pre class="code-block">` + code + `</pre>`
	},
	InlineCode: func(code string) string {
		return `<code class="code-inline">` + code + `</code>`
	},
	Strong: func(text string) string {
		return `<strong>` + text + `</strong>`
	},
	Emphasis: func(text string) string {
		return `<em>` + text + `</em>`
	},
	Heading: func(level int, text string) string {
		n := strconv.Itoa(level)
		return `<h` + n + `>` + text + `</h` + n + `>`
	},
	UnorderedItem: func(text string) string {
		return `<li class="list-disc">` + text + `</li>`
	},
	// The item number is dropped; the renderer numbers decimal items.
	OrderedItem: func(_, text string) string {
		return `<li class="list-decimal">` + text + `</li>`
	},
	ParagraphBreak: "<br/><br/>",
}
