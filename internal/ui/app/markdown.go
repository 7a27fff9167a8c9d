// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/assist-tui/internal/ui/styles"
)

// markdown renders text with glamour, rebuilding the renderer only when the
// wrap width changes. Render failures fall back to the plain text.
type markdown struct {
	theme    *styles.Theme
	width    int
	renderer *glamour.TermRenderer
}

func newMarkdown(theme *styles.Theme) *markdown {
	return &markdown{theme: theme}
}

func (m *markdown) render(text string, width int) string {
	width = max(20, width)
	if m.renderer == nil || m.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.theme.GlamourStyle()),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return text
		}
		m.renderer, m.width = r, width
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
