// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package format converts model replies written in lightweight markdown into
display markup.

The conversion is an ordered table of regular-expression rules. Each rule
runs over the output of the rule before it:

 1. fenced code blocks
 2. inline code
 3. **strong**
 4. *emphasis*
 5. headings (### before ## before #)
 6. list items ("- x", "* x", "N. x"), never wrapped in a list container
 7. blank lines become a paragraph break

The pipeline never fails. Delimiters without a partner are left as literal
text.

# Security

Literal text is not escaped unless WithEscapedText is set. HTML produced
from an untrusted reply can therefore carry arbitrary markup. Anything that
serves the HTML dialect to a browser should enable escaping.

# Dialects

HTML produces the markup used by the HTTP API and HTML exports. Terminal
produces lipgloss-styled text with chroma-highlighted code blocks for the
chat TUI and REPL. NewRenderer also offers a glamour renderer and a plain
pass-through.
*/
package format
