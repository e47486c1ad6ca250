// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package format

import (
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/muesli/termenv"

	"github.com/jeranaias/doubtbot/internal/ui/styles"
)

// languageHint matches a fence info string left at the start of a captured
// code block, e.g. "go\n" in "```go\n...```".
var languageHint = regexp.MustCompile(`^([A-Za-z0-9_+#.-]+)\n`)

// Terminal returns a dialect that emits ANSI-styled text for the chat TUI
// and the line-mode REPL. Code blocks are syntax highlighted unless the
// theme's color profile is Ascii.
func Terminal(theme *styles.Theme) Dialect {
	highlight := theme.ColorProfile != termenv.Ascii
	return Dialect{
		Name: "terminal",
		CodeBlock: func(code string) string {
			lang, body := splitLanguageHint(code)
			if highlight {
				body = highlightCode(body, lang)
			}
			return theme.CodeBlock.Render(body)
		},
		InlineCode: func(code string) string {
			return theme.InlineCode.Render(code)
		},
		Strong: func(text string) string {
			return theme.Strong.Render(text)
		},
		Emphasis: func(text string) string {
			return theme.Emphasis.Render(text)
		},
		Heading: func(level int, text string) string {
			return theme.HeadingStyle(level).Render(text)
		},
		UnorderedItem: func(text string) string {
			return "  " + theme.ListBullet.Render("•") + " " + text
		},
		OrderedItem: func(number, text string) string {
			return "  " + theme.ListNumber.Render(number+".") + " " + text
		},
		ParagraphBreak:     "\n\n",
		KeepListBlankLines: true,
	}
}

// splitLanguageHint separates an optional fence info string from the code.
func splitLanguageHint(code string) (lang, body string) {
	if m := languageHint.FindStringSubmatch(code); m != nil {
		lang = m[1]
		code = code[len(m[0]):]
	}
	return lang, strings.Trim(code, "\n")
}

// highlightCode applies syntax highlighting using chroma. On any failure the
// code is returned unchanged.
func highlightCode(code, language string) string {
	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
