// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package format

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/doubtbot/internal/ui/styles"
)

// Renderer turns an assistant reply into displayable text.
type Renderer interface {
	Render(text string) string
}

// Renderer names accepted by NewRenderer.
const (
	RendererBuiltin = "builtin"
	RendererGlamour = "glamour"
	RendererPlain   = "plain"
	RendererHTML    = "html"
)

// RendererNames lists the valid renderer names.
var RendererNames = []string{RendererBuiltin, RendererGlamour, RendererPlain, RendererHTML}

// ValidRenderer reports whether name is a known renderer.
func ValidRenderer(name string) bool {
	for _, n := range RendererNames {
		if n == name {
			return true
		}
	}
	return false
}

// NewRenderer builds the renderer selected by name. width is the word wrap
// column used by the glamour renderer (0 disables wrapping).
func NewRenderer(name string, theme *styles.Theme, width int, opts ...Option) (Renderer, error) {
	switch strings.ToLower(name) {
	case "", RendererBuiltin:
		return New(Terminal(theme), opts...), nil
	case RendererHTML:
		return New(HTML, opts...), nil
	case RendererGlamour:
		return NewGlamour(width)
	case RendererPlain:
		return Plain{}, nil
	default:
		return nil, fmt.Errorf("unknown renderer %q (valid: %s)", name, strings.Join(RendererNames, ", "))
	}
}

// Plain returns replies unchanged.
type Plain struct{}

// Render implements Renderer.
func (Plain) Render(text string) string { return text }

// Glamour renders replies as full markdown with glamour.
type Glamour struct {
	r *glamour.TermRenderer
}

// NewGlamour creates a glamour renderer with automatic style detection.
func NewGlamour(width int, opts ...glamour.TermRendererOption) (*Glamour, error) {
	base := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		base = append(base, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create glamour renderer: %w", err)
	}
	return &Glamour{r: r}, nil
}

// Render implements Renderer. Render errors fall back to the raw text.
func (g *Glamour) Render(text string) string {
	out, err := g.r.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
