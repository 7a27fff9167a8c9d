// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/assist-tui/internal/session"
	"github.com/jeranaias/assist-tui/internal/ui/components"
)

// registeredRedirect is how long the success message stays before the
// login screen opens.
const registeredRedirect = 2 * time.Second

type registerDoneMsg struct {
	email string
	err   error
}

// registerScreen creates an account.
type registerScreen struct {
	deps    Deps
	form    *form
	email   int
	name    int
	pass    int
	confirm int
	busy    bool
	done    bool
	errText string
	spinner components.Spinner
	width   int
	height  int
}

func newRegisterScreen(deps Deps) *registerScreen {
	s := &registerScreen{deps: deps, form: newForm(deps.Theme), spinner: components.NewSpinner("Creating account")}
	s.email = s.form.add("Email", "you@example.com", false)
	s.name = s.form.add("Full name", "", false)
	s.pass = s.form.add("Password", "", true)
	s.confirm = s.form.add("Confirm password", "", true)
	return s
}

func (s *registerScreen) Init() tea.Cmd { return nil }

func (s *registerScreen) Title() string { return "Register" }

func (s *registerScreen) Typing() bool { return true }

func (s *registerScreen) SetSize(w, h int) {
	s.width, s.height = w, h
	s.form.setWidth(max(10, min(40, w-24)))
}

func (s *registerScreen) Shortcuts() []components.Shortcut {
	return []components.Shortcut{
		shortcut("enter", "register"),
		shortcutFor(keys.NextField),
		shortcut("esc", "home"),
	}
}

func (s *registerScreen) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case registerDoneMsg:
		s.busy = false
		s.spinner.Stop()
		if msg.err != nil {
			s.errText = components.MessageFor(msg.err)
			return nil
		}
		s.done = true
		s.deps.Toasts.AddSuccess("Account created for " + msg.email + ".")
		return navigateAfter(registeredRedirect, session.RouteLogin)

	case tea.KeyMsg:
		if s.busy || s.done {
			return nil
		}
		switch {
		case key.Matches(msg, keys.Back):
			return navigate(session.RouteLanding)
		case key.Matches(msg, keys.Submit):
			if !s.form.last() {
				return s.form.setFocus(s.form.focused() + 1)
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

func (s *registerScreen) submit() tea.Cmd {
	email := strings.TrimSpace(s.form.value(s.email))
	name := s.form.value(s.name)
	pass, confirm := s.form.value(s.pass), s.form.value(s.confirm)

	// Mismatch and blank fields are caught by the store without a request;
	// checking the passwords here keeps the message next to the form.
	if pass != confirm {
		s.errText = "Passwords do not match."
		return nil
	}

	s.busy = true
	store, ctx := s.deps.Session, s.deps.Ctx
	return tea.Batch(s.spinner.Start(), func() tea.Msg {
		_, err := store.Register(ctx, email, name, pass, confirm)
		return registerDoneMsg{email: email, err: err}
	})
}

func (s *registerScreen) View() string {
	t := s.deps.Theme
	var b strings.Builder
	b.WriteString(t.Title.Render("Create an account"))
	b.WriteString("\n")
	b.WriteString(s.form.View())
	b.WriteString("\n\n")
	switch {
	case s.done:
		b.WriteString(t.SuccessStyle.Render("Registration successful. Redirecting to login..."))
	case s.busy:
		b.WriteString(s.spinner.View())
	case s.errText != "":
		b.WriteString(t.ErrorStyle.Render(s.errText))
	default:
		b.WriteString(t.Muted.Render("All fields are required."))
	}
	return lipgloss.Place(s.width, s.height, lipgloss.Center, lipgloss.Center, t.FormBox.Render(b.String()))
}
