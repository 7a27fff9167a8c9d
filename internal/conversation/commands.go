// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// InitializedMsg reports the end of Initialize. ID is the controller's.
type InitializedMsg struct {
	ID          int
	AssistantID int64
	Err         error
}

// ReplyMsg carries a delivery result back to the UI, which passes it to
// Finish. ID is the controller's.
type ReplyMsg struct {
	ID     int
	Result Result
}

// InitCmd runs Initialize off the UI loop.
func (c *Controller) InitCmd(ctx context.Context, assistantID int64) tea.Cmd {
	return func() tea.Msg {
		err := c.Initialize(ctx, assistantID)
		return InitializedMsg{ID: c.id, AssistantID: assistantID, Err: err}
	}
}

// SendCmd appends the user's message immediately and returns a command
// that delivers it, or nil when nothing can be sent right now.
func (c *Controller) SendCmd(ctx context.Context, content string) tea.Cmd {
	p, ok := c.Begin(content)
	if !ok {
		return nil
	}
	return func() tea.Msg {
		return ReplyMsg{ID: c.id, Result: p.Do(ctx)}
	}
}
