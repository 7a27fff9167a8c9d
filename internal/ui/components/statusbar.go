// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/assist-tui/internal/ui/styles"
)

// Shortcut is one key hint in the status bar.
type Shortcut struct {
	Key  string
	Desc string
}

// StatusBar is the bottom line: key hints on the left, a short status on
// the right.
type StatusBar struct {
	theme     *styles.Theme
	width     int
	shortcuts []Shortcut
	status    string
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme, width: 80}
}

// SetWidth sets the bar width.
func (s *StatusBar) SetWidth(width int) {
	s.width = width
}

// SetShortcuts replaces the key hints.
func (s *StatusBar) SetShortcuts(shortcuts ...Shortcut) {
	s.shortcuts = shortcuts
}

// SetStatus sets the right-hand text.
func (s *StatusBar) SetStatus(status string) {
	s.status = status
}

// View renders the bar, dropping hints from the right until it fits.
func (s *StatusBar) View() string {
	status := s.theme.Muted.Render(s.status)
	avail := s.width - 2 - lipgloss.Width(status) - 1

	var parts []string
	used := 0
	for _, sc := range s.shortcuts {
		part := s.theme.ShortcutKey.Render(sc.Key) + " " + s.theme.ShortcutDesc.Render(sc.Desc)
		w := lipgloss.Width(part)
		if len(parts) > 0 {
			w += 2
		}
		if used+w > avail {
			break
		}
		parts = append(parts, part)
		used += w
	}
	left := strings.Join(parts, "  ")

	gap := s.width - 2 - lipgloss.Width(left) - lipgloss.Width(status)
	if gap < 1 {
		gap = 1
	}
	return s.theme.StatusBar.Width(s.width).Render(left + strings.Repeat(" ", gap) + status)
}
