// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP+JSON client for the help-assistant backend.
//
// Every endpoint except login and registration is bearer-authenticated.
// The token is read from a TokenSource on each call, so logging out takes
// effect immediately for every component sharing the client.
//
// # Errors
//
// Failures are typed so callers can react without string matching:
//
//   - *AuthError: login or registration rejected, message shown verbatim
//   - *SessionExpiredError: the token is no longer accepted; clear the
//     session and return to login
//   - *APIError: any other non-2xx answer
//   - *NetworkError: the request never produced an answer
//   - *ValidationError: rejected client-side, nothing was sent
//
// Nothing is retried automatically.
//
// # Usage
//
//	client := api.NewClient(cfg.API.BaseURL, sessionStore).
//	    WithTimeout(cfg.Timeout()).
//	    WithRateLimit(cfg.API.RequestsPerSec)
//
//	assistants, err := client.ListAssistants(ctx)
package api
