// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/assist-tui/internal/ui/styles"
	"github.com/jeranaias/assist-tui/internal/util"
)

// Header is the top line of every screen: brand, screen title and the
// logged-in user.
type Header struct {
	theme     *styles.Theme
	width     int
	title     string
	subject   string
	remaining time.Duration
}

// NewHeader creates a header.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{theme: theme, width: 80}
}

// SetWidth sets the header width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// SetTitle sets the screen title.
func (h *Header) SetTitle(title string) {
	h.title = title
}

// SetSubject sets the logged-in user's email; "" hides it.
func (h *Header) SetSubject(subject string) {
	h.subject = subject
}

// SetRemaining shows how long the session has left. Zero hides it.
func (h *Header) SetRemaining(d time.Duration) {
	h.remaining = d
}

// View renders the header.
func (h *Header) View() string {
	left := h.theme.HeaderBrand.Render("assist")
	if h.title != "" {
		left += h.theme.Muted.Render(" / ") + h.theme.HeaderUser.Render(h.title)
	}

	var right []string
	if h.subject != "" {
		right = append(right, h.subject)
	}
	if h.remaining > 0 && h.remaining < time.Hour {
		right = append(right, "session "+formatElapsed(h.remaining))
	}
	rightText := h.theme.HeaderUser.Render(strings.Join(right, "  "))

	inner := h.width - 2
	gap := inner - lipgloss.Width(left) - lipgloss.Width(rightText)
	if gap < 1 {
		rightText = ""
		gap = inner - lipgloss.Width(left)
		if gap < 0 {
			left = util.TruncateWidth(left, inner)
			gap = 0
		}
	}
	return h.theme.Header.Width(h.width).Render(left + strings.Repeat(" ", gap) + rightText)
}
