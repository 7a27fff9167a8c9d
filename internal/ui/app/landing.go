// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/assist-tui/internal/session"
	"github.com/jeranaias/assist-tui/internal/ui/components"
)

// landingScreen is shown to logged-out users.
type landingScreen struct {
	deps          Deps
	width, height int
}

func newLandingScreen(deps Deps) *landingScreen {
	return &landingScreen{deps: deps}
}

func (s *landingScreen) Init() tea.Cmd { return nil }

func (s *landingScreen) Title() string { return "Welcome" }

func (s *landingScreen) SetSize(w, h int) { s.width, s.height = w, h }

func (s *landingScreen) Shortcuts() []components.Shortcut {
	return []components.Shortcut{
		shortcut("l", "log in"),
		shortcut("r", "register"),
	}
}

func (s *landingScreen) Update(msg tea.Msg) tea.Cmd {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "l", "enter":
			return navigate(session.RouteLogin)
		case "r":
			return navigate(session.RouteRegister)
		}
	}
	return nil
}

func (s *landingScreen) View() string {
	t := s.deps.Theme
	lines := []string{
		t.Title.Render("Help assistants for your website"),
		"Create an assistant, give it your documents, and chat with it.",
		"",
		t.ShortcutKey.Render("l") + " log in    " + t.ShortcutKey.Render("r") + " create an account",
	}
	box := t.FormBox.Render(strings.Join(lines, "\n"))
	return lipgloss.Place(s.width, s.height, lipgloss.Center, lipgloss.Center, box)
}
