// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/assist-tui/internal/api"
	"github.com/jeranaias/assist-tui/internal/session"
	"github.com/jeranaias/assist-tui/internal/ui/components"
)

type profileLoadedMsg struct {
	user *api.User
	err  error
}

type loggedOutMsg struct {
	err error
}

// profileScreen shows the logged-in user.
type profileScreen struct {
	deps          Deps
	user          *api.User
	loading       bool
	errText       string
	width, height int
}

func newProfileScreen(deps Deps) *profileScreen {
	return &profileScreen{deps: deps, loading: true}
}

func (s *profileScreen) Init() tea.Cmd {
	client, ctx := s.deps.Client, s.deps.Ctx
	return func() tea.Msg {
		u, err := client.Me(ctx)
		return profileLoadedMsg{user: u, err: err}
	}
}

func (s *profileScreen) Title() string { return "Profile" }

func (s *profileScreen) SetSize(w, h int) { s.width, s.height = w, h }

func (s *profileScreen) Shortcuts() []components.Shortcut {
	return []components.Shortcut{
		shortcutFor(keys.Logout),
		shortcut("esc", "dashboard"),
	}
}

func (s *profileScreen) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case profileLoadedMsg:
		s.loading = false
		if msg.err != nil {
			s.errText = components.MessageFor(msg.err)
			s.deps.Toasts.NotifyError(msg.err)
			return nil
		}
		s.user = msg.user
	case loggedOutMsg:
		s.deps.Toasts.AddStatus("Logged out.")
		return navigate(session.RouteLogin)
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Back):
			return navigate(session.RouteDashboard)
		case key.Matches(msg, keys.Logout):
			return logoutCmd(s.deps)
		}
	}
	return nil
}

func (s *profileScreen) View() string {
	t := s.deps.Theme
	var b strings.Builder
	b.WriteString(t.Title.Render("Your profile"))
	b.WriteString("\n")
	switch {
	case s.loading:
		b.WriteString(t.Muted.Render("Loading..."))
	case s.user == nil:
		b.WriteString(t.ErrorStyle.Render(s.errText))
	default:
		status := t.SuccessStyle.Render("active")
		if !s.user.IsActive {
			status = t.WarningStyle.Render("inactive")
		}
		fmt.Fprintf(&b, "%s%s\n", t.Label.Render("Name"), s.user.FullName)
		fmt.Fprintf(&b, "%s%s\n", t.Label.Render("Email"), s.user.Email)
		fmt.Fprintf(&b, "%s%d\n", t.Label.Render("User ID"), s.user.ID)
		fmt.Fprintf(&b, "%s%s", t.Label.Render("Status"), status)
	}
	if exp, ok := s.deps.Session.ExpiresAt(); ok {
		b.WriteString("\n")
		b.WriteString(t.Label.Render("Session expires"))
		b.WriteString(components.FormatWhen(exp))
	}
	return t.Panel.Width(max(20, min(s.width-2, 70))).Render(b.String())
}

// logoutCmd logs out remotely and always clears the local session.
func logoutCmd(deps Deps) tea.Cmd {
	store, ctx, log := deps.Session, deps.Ctx, deps.Log
	return func() tea.Msg {
		err := store.Logout(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("logout")
		}
		return loggedOutMsg{err: err}
	}
}
