// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the logged-in identity.
//
// The Store keeps the bearer token and the user's email in memory and in
// the local key-value file, and is the only place either is written. The
// API client reads the token from it on every request, so clearing the
// store logs the whole application out at once.
//
// # Key Types
//
//   - Store: login, logout, registration and the token itself
//   - Route: screen names and the guard that redirects between them
//   - TickMsg, WarningMsg, ExpiredMsg: Bubble Tea messages for token expiry
//
// # Usage
//
//	kv, _ := storage.Open(cfg.StorePath())
//	store := session.New(kv)
//	_ = store.Load(ctx)
//	client := api.NewClient(cfg.API.BaseURL, store)
//	store.Attach(client)
//
//	if _, err := store.Login(ctx, email, password); err != nil {
//	    // *api.AuthError carries the server's message
//	}
//
// Route guard:
//
//	next := store.Guard(session.RouteChat) // RouteLogin when logged out
package session
