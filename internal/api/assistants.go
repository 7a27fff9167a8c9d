// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
)

func assistantPath(id int64) string {
	return fmt.Sprintf("/help-assistant/%d", id)
}

// ListAssistants returns the caller's assistants.
func (c *Client) ListAssistants(ctx context.Context) ([]Assistant, error) {
	var out []Assistant
	if err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/help-assistant",
		route:  "/help-assistant",
	}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAssistant fetches one assistant.
func (c *Client) GetAssistant(ctx context.Context, id int64) (*Assistant, error) {
	if id <= 0 {
		return nil, &ValidationError{Field: "id", Reason: "must be positive"}
	}
	var out Assistant
	if err := c.do(ctx, call{
		method: http.MethodGet,
		path:   assistantPath(id),
		route:  "/help-assistant/:id",
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAssistant validates and creates an assistant.
func (c *Client) CreateAssistant(ctx context.Context, in AssistantInput) (*Assistant, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out Assistant
	if err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/help-assistant",
		route:  "/help-assistant",
		body:   in,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAssistant replaces an assistant's editable fields.
func (c *Client) UpdateAssistant(ctx context.Context, id int64, in AssistantInput) (*Assistant, error) {
	if id <= 0 {
		return nil, &ValidationError{Field: "id", Reason: "must be positive"}
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out Assistant
	if err := c.do(ctx, call{
		method: http.MethodPut,
		path:   assistantPath(id),
		route:  "/help-assistant/:id",
		body:   in,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAssistant removes an assistant.
func (c *Client) DeleteAssistant(ctx context.Context, id int64) error {
	if id <= 0 {
		return &ValidationError{Field: "id", Reason: "must be positive"}
	}
	return c.do(ctx, call{
		method: http.MethodDelete,
		path:   assistantPath(id),
		route:  "/help-assistant/:id",
	}, nil)
}

// Tone is one entry of the tone enum with its description.
type Tone struct {
	Name        string
	Description string
}

// Tones returns the tone enum sorted by name.
func (c *Client) Tones(ctx context.Context) ([]Tone, error) {
	var raw map[string]string
	if err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/help-assistant/tones",
		route:  "/help-assistant/tones",
	}, &raw); err != nil {
		return nil, err
	}
	tones := make([]Tone, 0, len(raw))
	for name, desc := range raw {
		tones = append(tones, Tone{Name: name, Description: desc})
	}
	sort.Slice(tones, func(i, j int) bool { return tones[i].Name < tones[j].Name })
	return tones, nil
}

// Models returns the models assistants can run on.
func (c *Client) Models(ctx context.Context) ([]ModelInfo, error) {
	var out modelList
	if err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/help-assistant/models",
		route:  "/help-assistant/models",
	}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
