// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// args.go - Flags and words after a command name.

package cli

import (
	"strconv"
	"strings"
)

// ArgParser splits what follows a command into words and --flags.
//
// "--name value" and "--name=value" set a string flag. A bare "--name", or
// "--name=true" / "--name=false", sets a switch. The first word is the
// subcommand:
//
//	p := NewArgParser([]string{"set", "ui.renderer", "glamour", "--force"})
//	p.Subcommand()      // "set"
//	p.Positional(1)     // "ui.renderer"
//	p.BoolFlag("force") // true
type ArgParser struct {
	words    []string
	values   map[string]string
	switches map[string]bool
}

// NewArgParser parses raw.
func NewArgParser(raw []string) *ArgParser {
	p := &ArgParser{values: map[string]string{}, switches: map[string]bool{}}
	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		if arg == "-" || !strings.HasPrefix(arg, "-") {
			p.words = append(p.words, arg)
			continue
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		switch {
		case hasValue && (value == "true" || value == "false"):
			p.switches[name] = value == "true"
		case hasValue:
			p.values[name] = value
		case i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-"):
			i++
			p.values[name] = raw[i]
		default:
			p.switches[name] = true
		}
	}
	return p
}

func flagName(name string) string { return strings.TrimLeft(name, "-") }

// Subcommand returns the first word, or "".
func (p *ArgParser) Subcommand() string { return p.Positional(0) }

// Flag returns a string flag, or "" when unset.
func (p *ArgParser) Flag(name string) string { return p.values[flagName(name)] }

// FlagOrDefault returns a string flag, or def when unset or empty.
func (p *ArgParser) FlagOrDefault(name, def string) string {
	if v := p.Flag(name); v != "" {
		return v
	}
	return def
}

// FlagIntOrDefault returns an integer flag, or def when unset or not a number.
func (p *ArgParser) FlagIntOrDefault(name string, def int) int {
	n, err := strconv.Atoi(p.Flag(name))
	if err != nil {
		return def
	}
	return n
}

// BoolFlag reports whether a switch is on.
func (p *ArgParser) BoolFlag(name string) bool { return p.switches[flagName(name)] }

// HasFlag reports whether name was given at all, as a value or a switch.
func (p *ArgParser) HasFlag(name string) bool {
	name = flagName(name)
	_, isValue := p.values[name]
	_, isSwitch := p.switches[name]
	return isValue || isSwitch
}

// Positional returns word i, or "". Word 0 is the subcommand.
func (p *ArgParser) Positional(i int) string {
	if i < 0 || i >= len(p.words) {
		return ""
	}
	return p.words[i]
}

// PositionalFrom returns the words from index i on.
func (p *ArgParser) PositionalFrom(i int) []string {
	if i < 0 || i >= len(p.words) {
		return nil
	}
	return p.words[i:]
}

// JoinPositionalArgs joins the words from index i on with single spaces.
func JoinPositionalArgs(p *ArgParser, i int) string {
	return strings.Join(p.PositionalFrom(i), " ")
}
