// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package format

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// =============================================================================
// RULE TABLE
// =============================================================================

// Rule is one substitution in the formatting pipeline.
type Rule struct {
	// Name identifies the rule in tests and debug output.
	Name string

	// Pattern selects the spans the rule rewrites.
	Pattern *regexp.Regexp

	// Replace builds the markup for one match. groups[0] is the whole match,
	// groups[1:] are the capture groups (empty string when a group did not
	// participate).
	Replace func(groups []string) string
}

// Apply rewrites every non-overlapping match of the rule in text.
// Text without a match is returned unchanged.
func (r Rule) Apply(text string) string {
	matches := r.Pattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, loc := range matches {
		b.WriteString(text[last:loc[0]])
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if loc[2*i] >= 0 {
				groups[i] = text[loc[2*i]:loc[2*i+1]]
			}
		}
		b.WriteString(r.Replace(groups))
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// Rule names, in pipeline order.
const (
	RuleCodeBlock      = "code_block"
	RuleInlineCode     = "inline_code"
	RuleStrong         = "strong"
	RuleEmphasis       = "emphasis"
	RuleHeading3       = "heading_3"
	RuleHeading2       = "heading_2"
	RuleHeading1       = "heading_1"
	RuleUnorderedItem  = "unordered_item"
	RuleOrderedItem    = "ordered_item"
	RuleParagraphBreak = "paragraph_break"
)

var (
	codeBlockPattern      = regexp.MustCompile("(?s)```(.*?)```")
	inlineCodePattern     = regexp.MustCompile("`([^`]+)`")
	strongPattern         = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	emphasisPattern       = regexp.MustCompile(`\*([^*]+)\*`)
	heading3Pattern       = regexp.MustCompile(`(?m)^### (.*)$`)
	heading2Pattern       = regexp.MustCompile(`(?m)^## (.*)$`)
	heading1Pattern       = regexp.MustCompile(`(?m)^# (.*)$`)
	unorderedItemPattern  = regexp.MustCompile(`(?m)^(\s*)[-*] (.*)$`)
	orderedItemPattern    = regexp.MustCompile(`(?m)^(\s*)(\d+)\. (.*)$`)
	paragraphBreakPattern = regexp.MustCompile(`\n\n`)
)

// Dialect supplies the markup a rule emits. The pipeline order and the
// patterns are shared by every dialect; only the wrapping differs.
type Dialect struct {
	Name string

	CodeBlock     func(code string) string
	InlineCode    func(code string) string
	Strong        func(text string) string
	Emphasis      func(text string) string
	Heading       func(level int, text string) string
	UnorderedItem func(text string) string
	OrderedItem   func(number, text string) string

	// ParagraphBreak replaces every pair of consecutive newlines.
	ParagraphBreak string

	// KeepListBlankLines re-emits the blank lines a list item's leading
	// whitespace absorbed. Without it a blank line before a list vanishes.
	KeepListBlankLines bool
}

// listLead is what survives of the whitespace before a list marker.
func (d Dialect) listLead(ws string) string {
	if !d.KeepListBlankLines {
		return ""
	}
	return strings.Repeat("\n", strings.Count(ws, "\n"))
}

// Rules returns the ordered rule table for a dialect. Later rules operate on
// the output of earlier ones.
func Rules(d Dialect) []Rule {
	return []Rule{
		{Name: RuleCodeBlock, Pattern: codeBlockPattern, Replace: func(g []string) string { return d.CodeBlock(g[1]) }},
		{Name: RuleInlineCode, Pattern: inlineCodePattern, Replace: func(g []string) string { return d.InlineCode(g[1]) }},
		{Name: RuleStrong, Pattern: strongPattern, Replace: func(g []string) string { return d.Strong(g[1]) }},
		{Name: RuleEmphasis, Pattern: emphasisPattern, Replace: func(g []string) string { return d.Emphasis(g[1]) }},
		{Name: RuleHeading3, Pattern: heading3Pattern, Replace: func(g []string) string { return d.Heading(3, g[1]) }},
		{Name: RuleHeading2, Pattern: heading2Pattern, Replace: func(g []string) string { return d.Heading(2, g[1]) }},
		{Name: RuleHeading1, Pattern: heading1Pattern, Replace: func(g []string) string { return d.Heading(1, g[1]) }},
		{Name: RuleUnorderedItem, Pattern: unorderedItemPattern, Replace: func(g []string) string { return d.listLead(g[1]) + d.UnorderedItem(g[2]) }},
		{Name: RuleOrderedItem, Pattern: orderedItemPattern, Replace: func(g []string) string { return d.listLead(g[1]) + d.OrderedItem(g[2], g[3]) }},
		{Name: RuleParagraphBreak, Pattern: paragraphBreakPattern, Replace: func([]string) string { return d.ParagraphBreak }},
	}
}

// =============================================================================
// FORMATTER
// =============================================================================

// Formatter applies a dialect's rule table to model output.
//
// By default literal text is NOT escaped: anything the model returns that
// looks like markup is passed through as markup. Callers rendering HTML from
// an untrusted source should enable WithEscapedText.
type Formatter struct {
	dialect      Dialect
	rules        []Rule
	escape       bool
	verbatimCode bool
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithEscapedText HTML-escapes the input before any rule runs. Delimiters
// used by the rules are not affected by escaping.
func WithEscapedText(enabled bool) Option {
	return func(f *Formatter) { f.escape = enabled }
}

// WithVerbatimCodeBlocks shields fenced code block content from the inline
// rules that follow it.
func WithVerbatimCodeBlocks(enabled bool) Option {
	return func(f *Formatter) { f.verbatimCode = enabled }
}

// New creates a Formatter for the given dialect.
func New(d Dialect, opts ...Option) *Formatter {
	f := &Formatter{dialect: d, rules: Rules(d)}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Dialect returns the dialect name.
func (f *Formatter) Dialect() string {
	return f.dialect.Name
}

// Format runs the pipeline. It never fails: unmatched delimiters stay as
// literal characters.
func (f *Formatter) Format(text string) string {
	if f.escape {
		text = html.EscapeString(text)
	}

	if f.verbatimCode {
		// NUL delimits placeholders; input must not be able to forge one.
		text = strings.ReplaceAll(text, "\x00", "")
	}

	var stash []string
	for i, rule := range f.rules {
		if i == 0 && f.verbatimCode && rule.Name == RuleCodeBlock {
			rule = stashing(rule, &stash)
		}
		text = rule.Apply(text)
	}

	for i, block := range stash {
		text = strings.Replace(text, placeholder(i), block, 1)
	}
	return text
}

// Render implements Renderer.
func (f *Formatter) Render(text string) string {
	return f.Format(text)
}

// stashing wraps the code block rule so its output is replaced by a
// placeholder no later pattern can match.
func stashing(rule Rule, stash *[]string) Rule {
	replace := rule.Replace
	rule.Replace = func(g []string) string {
		*stash = append(*stash, replace(g))
		return placeholder(len(*stash) - 1)
	}
	return rule
}

func placeholder(i int) string {
	return fmt.Sprintf("\x00code%d\x00", i)
}

// defaultFormatter is the HTML formatter used by Format.
var defaultFormatter = New(HTML)

// Format converts model output to HTML markup with the default rule set.
func Format(text string) string {
	return defaultFormatter.Format(text)
}
