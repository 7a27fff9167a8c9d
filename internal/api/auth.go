// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
)

// Login exchanges credentials for a bearer token. A rejected login is an
// *AuthError carrying the server's message.
func (c *Client) Login(ctx context.Context, creds Credentials) (*TokenResponse, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	var out TokenResponse
	err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     "/auth/login",
		route:    "/auth/login",
		body:     creds,
		public:   true,
		authFlow: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout tells the server the current token is finished.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/logout",
		route:  "/auth/logout",
	}, nil)
}

// Register creates an account. Rejections are *AuthError.
func (c *Client) Register(ctx context.Context, reg Registration) (*User, error) {
	var out User
	err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     "/users",
		route:    "/users",
		body:     reg,
		public:   true,
		authFlow: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the logged-in user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/users/me",
		route:  "/users/me",
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
