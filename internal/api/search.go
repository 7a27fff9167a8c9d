// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"strings"
)

// Collection returns the knowledge-base collection backing an assistant.
func (c *Client) Collection(ctx context.Context, assistantID int64) (*Collection, error) {
	var out Collection
	if err := c.do(ctx, call{
		method: http.MethodGet,
		path:   assistantPath(assistantID) + "/collection",
		route:  "/help-assistant/:id/collection",
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search runs a knowledge-base lookup. Results keep the server's order.
func (c *Client) Search(ctx context.Context, assistantID int64, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &ValidationError{Field: "query", Reason: "required"}
	}
	var out searchResponse
	if err := c.do(ctx, call{
		method: http.MethodPost,
		path:   assistantPath(assistantID) + "/agent/search",
		route:  "/help-assistant/:id/agent/search",
		body:   searchBody{Query: query},
	}, &out); err != nil {
		return nil, err
	}
	return out.normalize(), nil
}
