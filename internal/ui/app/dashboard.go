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
	"github.com/jeranaias/assist-tui/internal/util"
)

type assistantsLoadedMsg struct {
	assistants []api.Assistant
	err        error
}

type assistantDeletedMsg struct {
	id  int64
	err error
}

// dashboardScreen lists the user's assistants.
type dashboardScreen struct {
	deps       Deps
	assistants []api.Assistant
	cursor     int
	loading    bool
	errText    string
	confirm    int64
	width      int
	height     int
}

func newDashboardScreen(deps Deps) *dashboardScreen {
	return &dashboardScreen{deps: deps, loading: true}
}

func (s *dashboardScreen) Init() tea.Cmd {
	return s.load()
}

func (s *dashboardScreen) load() tea.Cmd {
	client, ctx := s.deps.Client, s.deps.Ctx
	return func() tea.Msg {
		list, err := client.ListAssistants(ctx)
		return assistantsLoadedMsg{assistants: list, err: err}
	}
}

func (s *dashboardScreen) Title() string { return "Dashboard" }

func (s *dashboardScreen) SetSize(w, h int) { s.width, s.height = w, h }

func (s *dashboardScreen) Shortcuts() []components.Shortcut {
	if s.confirm != 0 {
		return []components.Shortcut{shortcut("y", "confirm delete"), shortcut("any", "cancel")}
	}
	return []components.Shortcut{
		shortcut("enter", "open"),
		shortcut("c", "chat"),
		shortcut("n", "new"),
		shortcut("e", "edit"),
		shortcut("d", "delete"),
		shortcut("r", "refresh"),
		shortcut("p", "profile"),
		shortcutFor(keys.Logout),
	}
}

// selected returns the assistant under the cursor.
func (s *dashboardScreen) selected() *api.Assistant {
	if s.cursor < 0 || s.cursor >= len(s.assistants) {
		return nil
	}
	return &s.assistants[s.cursor]
}

func (s *dashboardScreen) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case assistantsLoadedMsg:
		s.loading = false
		if msg.err != nil {
			s.errText = components.MessageFor(msg.err)
			s.deps.Toasts.NotifyError(msg.err)
			return nil
		}
		s.errText = ""
		s.assistants = msg.assistants
		if s.cursor >= len(s.assistants) {
			s.cursor = max(0, len(s.assistants)-1)
		}
		return nil

	case assistantDeletedMsg:
		if msg.err != nil {
			s.deps.Toasts.NotifyError(msg.err)
			return nil
		}
		s.deps.Toasts.AddSuccess("Assistant deleted.")
		s.loading = true
		return s.load()

	case loggedOutMsg:
		s.deps.Toasts.AddStatus("Logged out.")
		return navigate(session.RouteLogin)

	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return nil
}

func (s *dashboardScreen) handleKey(msg tea.KeyMsg) tea.Cmd {
	if s.confirm != 0 {
		id := s.confirm
		s.confirm = 0
		if msg.String() != "y" {
			return nil
		}
		client, ctx := s.deps.Client, s.deps.Ctx
		return func() tea.Msg {
			return assistantDeletedMsg{id: id, err: client.DeleteAssistant(ctx, id)}
		}
	}

	switch {
	case key.Matches(msg, keys.Up):
		if s.cursor > 0 {
			s.cursor--
		}
		return nil
	case key.Matches(msg, keys.Down):
		if s.cursor < len(s.assistants)-1 {
			s.cursor++
		}
		return nil
	case key.Matches(msg, keys.Logout):
		return logoutCmd(s.deps)
	}

	switch msg.String() {
	case "n":
		return func() tea.Msg { return NavigateMsg{Route: session.RouteAssistant, Edit: true} }
	case "p":
		return navigate(session.RouteProfile)
	case "r":
		s.loading = true
		return s.load()
	}

	a := s.selected()
	if a == nil {
		return nil
	}
	switch msg.String() {
	case "enter":
		return navigateAssistant(session.RouteAssistant, a.ID)
	case "c":
		return navigateAssistant(session.RouteChat, a.ID)
	case "e":
		id := a.ID
		return func() tea.Msg { return NavigateMsg{Route: session.RouteAssistant, AssistantID: id, Edit: true} }
	case "d":
		s.confirm = a.ID
	}
	return nil
}

func (s *dashboardScreen) View() string {
	t := s.deps.Theme
	var b strings.Builder
	b.WriteString(t.Title.Render("Your assistants"))
	b.WriteString("\n")

	switch {
	case s.loading && len(s.assistants) == 0:
		b.WriteString(t.Muted.Render("Loading..."))
		return b.String()
	case s.errText != "" && len(s.assistants) == 0:
		b.WriteString(t.ErrorStyle.Render(s.errText))
		return b.String()
	case len(s.assistants) == 0:
		b.WriteString(t.Muted.Render("No assistants yet. Press n to create one."))
		return b.String()
	}

	width := max(20, s.width-4)
	for i, a := range s.assistants {
		style := t.ListItem
		marker := "  "
		if i == s.cursor {
			style = t.ListItemSelected
			marker = "> "
		}
		line := marker + util.TruncateWidth(a.Name, width/2)
		meta := fmt.Sprintf("  %s · %s", a.URL, strings.ToLower(a.Tone))
		b.WriteString(style.Render(line))
		b.WriteString(t.ListMeta.Render(util.TruncateWidth(meta, max(0, width-util.StringWidth(line)))))
		b.WriteString("\n")
	}

	if s.confirm != 0 {
		if a := s.selected(); a != nil {
			b.WriteString("\n")
			b.WriteString(t.WarningStyle.Render(fmt.Sprintf("Delete %q and all its files? (y/N)", a.Name)))
		}
	}
	return b.String()
}
