// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrNotAuthenticated is returned before any network call when an
	// authenticated endpoint is used without a stored token.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrInvalidResponse indicates a 2xx response whose body is missing
	// required fields or is not valid JSON.
	ErrInvalidResponse = errors.New("invalid response from server")
)

// AuthError is returned when login or registration is rejected. Message is
// the server's detail text, shown to the user verbatim.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// SessionExpiredError means the stored token is no longer accepted. Callers
// clear the session and send the user back to login.
type SessionExpiredError struct {
	Status  int
	Message string
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("session expired: %s", e.Message)
}

// APIError is any other non-2xx response.
type APIError struct {
	Status  int
	Message string
	Method  string
	Path    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s failed (HTTP %d): %s", e.Method, e.Path, e.Status, e.Message)
}

// NetworkError wraps a transport failure: DNS, refused connection, timeout,
// cancelled context or a truncated body.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ValidationError is raised client-side before any request is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// IsSessionExpired reports whether err signals an expired session.
func IsSessionExpired(err error) bool {
	var se *SessionExpiredError
	return errors.As(err, &se)
}

// expiryMarkers are the backend detail fragments that mean the token is no
// longer valid. Matched case-insensitively.
var expiryMarkers = []string{
	"expired",
	"could not validate credentials",
	"invalid token",
}

// isExpiryMessage reports whether a 401/403 detail means the session is gone.
func isExpiryMessage(status int, msg string) bool {
	if status != http.StatusUnauthorized && status != http.StatusForbidden {
		return false
	}
	lower := strings.ToLower(msg)
	for _, marker := range expiryMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// errorBody covers the shapes the backend produces: FastAPI's
// {"detail": "..."}, its validation form {"detail": [{"msg": ...}]}, and
// the middleware's {"error": "...", "detail": ...}.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

type validationDetail struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// extractMessage pulls a human-readable message out of an error body,
// falling back to the HTTP status text.
func extractMessage(status int, body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if len(eb.Detail) > 0 && string(eb.Detail) != "null" {
			var s string
			if json.Unmarshal(eb.Detail, &s) == nil && s != "" {
				return s
			}
			var details []validationDetail
			if json.Unmarshal(eb.Detail, &details) == nil && len(details) > 0 {
				msgs := make([]string, 0, len(details))
				for _, d := range details {
					if field := lastLoc(d.Loc); field != "" {
						msgs = append(msgs, field+": "+d.Msg)
					} else {
						msgs = append(msgs, d.Msg)
					}
				}
				return strings.Join(msgs, "; ")
			}
		}
		if eb.Error != "" {
			return eb.Error
		}
		if eb.Message != "" {
			return eb.Message
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 && !strings.HasPrefix(text, "<") {
		return text
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}

func lastLoc(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok {
		return s
	}
	return ""
}
