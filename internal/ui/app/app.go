// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/assist-tui/internal/logging"
	"github.com/jeranaias/assist-tui/internal/session"
	"github.com/jeranaias/assist-tui/internal/ui/components"
)

// Model is the root Bubble Tea model. It owns the route, the mounted
// screen and the chrome around it.
type Model struct {
	deps   Deps
	cancel context.CancelFunc

	route  session.Route
	screen screen

	header    *components.Header
	statusBar *components.StatusBar

	initCmd tea.Cmd

	width  int
	height int
}

// New creates the application starting at route. The route guard decides
// the actual first screen.
func New(deps Deps, start session.Route, assistantID int64) *Model {
	parent := deps.Ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	deps.Ctx = ctx
	if deps.Toasts == nil {
		deps.Toasts = components.NewToastManager()
	}
	if deps.Log == nil {
		deps.Log = logging.Default()
	}

	m := &Model{
		deps:      deps,
		cancel:    cancel,
		header:    components.NewHeader(deps.Theme),
		statusBar: components.NewStatusBar(deps.Theme),
		width:     80,
		height:    24,
	}
	m.initCmd = m.mount(NavigateMsg{Route: start, AssistantID: assistantID})
	return m
}

// Init starts the mounted screen and the background tickers.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.initCmd,
		session.TickCmd(),
		components.ToastTickCmd(),
	)
}

// Route returns the route of the mounted screen.
func (m *Model) Route() session.Route {
	return m.route
}

// Update routes messages to the application and the mounted screen.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit), msg.String() == "q" && !m.typing():
			m.shutdown()
			return m, tea.Quit
		case key.Matches(msg, keys.Dismiss):
			m.deps.Toasts.DismissNewest()
			return m, nil
		}

	case NavigateMsg:
		return m, m.mount(msg)

	case session.TickMsg:
		return m, tea.Batch(m.deps.Session.HandleTick(), session.TickCmd())

	case session.WarningMsg:
		m.deps.Toasts.AddWarning("Your session expires in " + msg.Remaining.Round(time.Second).String() + ".")
		return m, nil

	case session.ExpiredMsg:
		m.deps.Toasts.AddWarning("Your session has expired. Please log in again.")
		return m, m.mount(NavigateMsg{Route: session.RouteLogin})

	case components.ToastTickMsg:
		m.deps.Toasts.TickToasts()
		return m, components.ToastTickCmd()
	}

	cmd := m.screen.Update(msg)

	// Anything the screen did may have cleared the session (logout, or a
	// request rejected with an expired token).
	if guarded := m.deps.Session.Guard(m.route); guarded != m.route {
		return m, tea.Batch(cmd, m.mount(NavigateMsg{Route: guarded}))
	}
	return m, cmd
}

// mount replaces the current screen with the one for msg, after the route
// guard.
func (m *Model) mount(msg NavigateMsg) tea.Cmd {
	route := m.deps.Session.Guard(msg.Route)
	if route != msg.Route {
		msg = NavigateMsg{Route: route}
	}
	if m.screen != nil {
		if c, ok := m.screen.(closer); ok {
			c.Close()
		}
	}

	m.route = route
	m.screen = m.build(msg)
	m.screen.SetSize(m.bodySize())
	m.deps.Log.Debug().Str("route", string(route)).Int64("assistant_id", msg.AssistantID).Msg("navigate")
	return m.screen.Init()
}

func (m *Model) build(msg NavigateMsg) screen {
	switch msg.Route {
	case session.RouteLogin:
		return newLoginScreen(m.deps)
	case session.RouteRegister:
		return newRegisterScreen(m.deps)
	case session.RouteDashboard:
		return newDashboardScreen(m.deps)
	case session.RouteAssistant:
		if msg.Edit || msg.AssistantID == 0 {
			return newAssistantFormScreen(m.deps, msg.AssistantID)
		}
		return newAssistantScreen(m.deps, msg.AssistantID)
	case session.RouteChat:
		if msg.AssistantID == 0 {
			return newDashboardScreen(m.deps)
		}
		return newChatScreen(m.deps, msg.AssistantID)
	case session.RouteProfile:
		return newProfileScreen(m.deps)
	default:
		return newLandingScreen(m.deps)
	}
}

// typing reports whether the mounted screen is capturing text.
func (m *Model) typing() bool {
	t, ok := m.screen.(inputFocused)
	return ok && t.Typing()
}

func (m *Model) shutdown() {
	if c, ok := m.screen.(closer); ok {
		c.Close()
	}
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.deps.Theme.SetSize(width, height)
	m.header.SetWidth(width)
	m.statusBar.SetWidth(width)
	m.screen.SetSize(m.bodySize())
}

func (m *Model) bodySize() (int, int) {
	h := m.height - 2
	if h < 1 {
		h = 1
	}
	return m.width, h
}

// View renders header, screen, toasts and status bar.
func (m *Model) View() string {
	m.header.SetTitle(m.screen.Title())
	m.header.SetSubject(m.deps.Session.Subject())
	if remaining, ok := m.deps.Session.Remaining(); ok {
		m.header.SetRemaining(remaining)
	} else {
		m.header.SetRemaining(0)
	}

	shortcuts := append(m.screen.Shortcuts(), shortcutFor(keys.Quit))
	m.statusBar.SetShortcuts(shortcuts...)
	m.statusBar.SetStatus(string(m.route))

	bodyW, bodyH := m.bodySize()
	body := m.screen.View()

	if toasts := m.deps.Toasts.GetToasts(); len(toasts) > 0 {
		stack := components.RenderToastStack(toasts, bodyW, 0)
		stackH := lipgloss.Height(stack)
		if stackH < bodyH {
			body = lipgloss.NewStyle().MaxHeight(bodyH-stackH).Render(body)
			body = lipgloss.JoinVertical(lipgloss.Left,
				lipgloss.PlaceVertical(bodyH-stackH, lipgloss.Top, body),
				lipgloss.PlaceHorizontal(bodyW, lipgloss.Right, stack),
			)
		}
	}
	body = lipgloss.NewStyle().MaxHeight(bodyH).Render(body)
	body = lipgloss.PlaceVertical(bodyH, lipgloss.Top, body)

	return lipgloss.JoinVertical(lipgloss.Left, m.header.View(), body, m.statusBar.View())
}
