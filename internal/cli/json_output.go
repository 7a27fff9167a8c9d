// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/jeranaias/assist-tui/internal/api"
)

// JSONResponse is the response envelope every command prints with --json.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// ExitCode mirrors the process exit status on failure
	ExitCode int `json:"exit_code,omitempty"`

	// Timestamp is the ISO8601 timestamp when the response was generated
	Timestamp string `json:"timestamp"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := UserMessage(err)
	return &JSONResponse{
		Success:   false,
		Error:     &msg,
		ExitCode:  GetExitCode(err),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the response as indented JSON.
func (r *JSONResponse) Print(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// VersionData is the data of the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// SessionData describes the stored session. The token itself is never
// printed.
type SessionData struct {
	Subject   string     `json:"subject"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// WhoamiData is the data of the whoami command.
type WhoamiData struct {
	User    *api.User   `json:"user"`
	Session SessionData `json:"session"`
}

// DownloadData is the data of files download.
type DownloadData struct {
	FileID int64  `json:"file_id"`
	Path   string `json:"path"`
	Bytes  int64  `json:"bytes"`
}

// SearchData is the data of the search command.
type SearchData struct {
	AssistantID int64              `json:"assistant_id"`
	Query       string             `json:"query"`
	Results     []api.SearchResult `json:"results"`
}

// ConfigValue is the data of config get.
type ConfigValue struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}
