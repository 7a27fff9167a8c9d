// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// InitChat creates or resumes the conversation with an assistant and
// returns its id, the assistant and any prior history.
func (c *Client) InitChat(ctx context.Context, assistantID int64) (*ChatInit, error) {
	if assistantID <= 0 {
		return nil, &ValidationError{Field: "assistant_id", Reason: "must be positive"}
	}
	var out ChatInit
	if err := c.do(ctx, call{
		method: http.MethodPost,
		path:   assistantPath(assistantID) + "/chat/init",
		route:  "/help-assistant/:id/chat/init",
		body:   struct{}{},
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMessage posts a user message and returns the assistant's reply.
func (c *Client) SendMessage(ctx context.Context, assistantID, chatID int64, content string) (*Reply, error) {
	if chatID <= 0 {
		return nil, &ValidationError{Field: "chat_id", Reason: "must be positive"}
	}
	if strings.TrimSpace(content) == "" {
		return nil, &ValidationError{Field: "content", Reason: "required"}
	}
	var out Reply
	if err := c.do(ctx, call{
		method: http.MethodPost,
		path:   fmt.Sprintf("%s/chat/%d/message", assistantPath(assistantID), chatID),
		route:  "/help-assistant/:id/chat/:chatId/message",
		body:   messageBody{Content: content},
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
