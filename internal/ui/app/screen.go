// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/assist-tui/internal/api"
	"github.com/jeranaias/assist-tui/internal/logging"
	"github.com/jeranaias/assist-tui/internal/metrics"
	"github.com/jeranaias/assist-tui/internal/session"
	"github.com/jeranaias/assist-tui/internal/ui/components"
	"github.com/jeranaias/assist-tui/internal/ui/styles"
)

// Deps are the collaborators every screen shares.
type Deps struct {
	Ctx            context.Context
	Session        *session.Store
	Client         *api.Client
	Theme          *styles.Theme
	Toasts         *components.ToastManager
	Metrics        *metrics.Metrics
	Log            *logging.Logger
	RevealInterval time.Duration
	Debounce       time.Duration
}

// screen is one page of the application. Screens are only sent messages
// while they are mounted.
type screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
	View() string
	Title() string
	Shortcuts() []components.Shortcut
	SetSize(width, height int)
}

// closer is implemented by screens that hold resources past unmount.
type closer interface {
	Close()
}

// inputFocused is implemented by screens that are currently capturing
// text, so single-letter shortcuts stay out of the way.
type inputFocused interface {
	Typing() bool
}

// =============================================================================
// NAVIGATION
// =============================================================================

// NavigateMsg asks the application to switch screens. The route guard is
// applied before the screen is built.
type NavigateMsg struct {
	Route       session.Route
	AssistantID int64
	Edit        bool
}

func navigate(route session.Route) tea.Cmd {
	return func() tea.Msg { return NavigateMsg{Route: route} }
}

func navigateAssistant(route session.Route, id int64) tea.Cmd {
	return func() tea.Msg { return NavigateMsg{Route: route, AssistantID: id} }
}

func navigateAfter(d time.Duration, route session.Route) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return NavigateMsg{Route: route} })
}

func shortcut(key, desc string) components.Shortcut {
	return components.Shortcut{Key: key, Desc: desc}
}
