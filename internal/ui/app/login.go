// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/assist-tui/internal/session"
	"github.com/jeranaias/assist-tui/internal/ui/components"
)

type loginDoneMsg struct {
	err error
}

// loginScreen asks for email and password.
type loginScreen struct {
	deps    Deps
	form    *form
	email   int
	pass    int
	busy    bool
	errText string
	spinner components.Spinner
	width   int
	height  int
}

func newLoginScreen(deps Deps) *loginScreen {
	s := &loginScreen{deps: deps, form: newForm(deps.Theme), spinner: components.NewSpinner("Signing in")}
	s.email = s.form.add("Email", "you@example.com", false)
	s.pass = s.form.add("Password", "", true)
	return s
}

func (s *loginScreen) Init() tea.Cmd { return nil }

func (s *loginScreen) Title() string { return "Log in" }

func (s *loginScreen) Typing() bool { return true }

func (s *loginScreen) SetSize(w, h int) {
	s.width, s.height = w, h
	s.form.setWidth(max(10, min(40, w-24)))
}

func (s *loginScreen) Shortcuts() []components.Shortcut {
	return []components.Shortcut{
		shortcut("enter", "log in"),
		shortcutFor(keys.NextField),
		shortcut("C-r", "create account"),
		shortcut("esc", "home"),
	}
}

func (s *loginScreen) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case loginDoneMsg:
		s.busy = false
		s.spinner.Stop()
		if msg.err != nil {
			s.errText = components.MessageFor(msg.err)
			s.form.setValue(s.pass, "")
			return nil
		}
		s.deps.Toasts.AddSuccess("Welcome back, " + s.deps.Session.Subject() + ".")
		return navigate(session.RouteDashboard)

	case tea.KeyMsg:
		if s.busy {
			return nil
		}
		switch {
		case key.Matches(msg, keys.Back):
			return navigate(session.RouteLanding)
		case msg.String() == "ctrl+r":
			return navigate(session.RouteRegister)
		case key.Matches(msg, keys.Submit):
			if !s.form.last() && s.form.value(s.pass) == "" {
				return s.form.setFocus(s.pass)
			}
			return s.submit()
		}
		s.errText = ""
		return s.form.Update(msg)
	}

	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return cmd
}

func (s *loginScreen) submit() tea.Cmd {
	email := strings.TrimSpace(s.form.value(s.email))
	password := s.form.value(s.pass)
	if email == "" || password == "" {
		s.errText = "Email and password are required."
		return nil
	}
	s.busy = true
	store, ctx := s.deps.Session, s.deps.Ctx
	return tea.Batch(s.spinner.Start(), func() tea.Msg {
		_, err := store.Login(ctx, email, password)
		return loginDoneMsg{err: err}
	})
}

func (s *loginScreen) View() string {
	t := s.deps.Theme
	var b strings.Builder
	b.WriteString(t.Title.Render("Log in"))
	b.WriteString("\n")
	b.WriteString(s.form.View())
	b.WriteString("\n\n")
	switch {
	case s.busy:
		b.WriteString(s.spinner.View())
	case s.errText != "":
		b.WriteString(t.ErrorStyle.Render(s.errText))
	default:
		b.WriteString(t.Muted.Render("No account yet? Press C-r to register."))
	}
	return lipgloss.Place(s.width, s.height, lipgloss.Center, lipgloss.Center, t.FormBox.Render(b.String()))
}
