// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// =============================================================================
// TIMESTAMPS
// =============================================================================

// Timestamp accepts the datetime layouts the backend emits, including
// naive ISO times without a zone (interpreted as UTC).
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// =============================================================================
// AUTH & USERS
// =============================================================================

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks required fields.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return &ValidationError{Field: "email", Reason: "required"}
	}
	if c.Password == "" {
		return &ValidationError{Field: "password", Reason: "required"}
	}
	return nil
}

// TokenResponse is the login response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

func (r *TokenResponse) Validate() error {
	if r.AccessToken == "" {
		return fmt.Errorf("%w: missing access_token", ErrInvalidResponse)
	}
	return nil
}

// Registration is the sign-up request body.
type Registration struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// User is a user profile.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	IsActive bool   `json:"is_active"`
}

func (u *User) Validate() error {
	if u.Email == "" {
		return fmt.Errorf("%w: user without email", ErrInvalidResponse)
	}
	return nil
}

// =============================================================================
// ASSISTANTS
// =============================================================================

// Authorization is a capability granted to an assistant.
type Authorization string

const (
	AuthCanSendEmail     Authorization = "CAN_SEND_EMAIL"
	AuthCanReadDocuments Authorization = "CAN_READ_DOCUMENTS"
)

// KnownAuthorizations lists every authorization the backend accepts.
var KnownAuthorizations = []Authorization{AuthCanSendEmail, AuthCanReadDocuments}

// DefaultTone is applied when an assistant is created without a tone.
const DefaultTone = "PROFESSIONAL"

// Assistant is a configured AI persona.
type Assistant struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id,omitempty"`
	Name           string          `json:"name"`
	URL            string          `json:"url"`
	Mission        string          `json:"mission"`
	Description    string          `json:"description,omitempty"`
	Tone           string          `json:"tone,omitempty"`
	Authorizations []Authorization `json:"authorizations"`
	OperatorName   string          `json:"operator_name"`
	OperatorPic    string          `json:"operator_pic,omitempty"`
	Model          string          `json:"model,omitempty"`
}

func (a *Assistant) Validate() error {
	if a.ID <= 0 {
		return fmt.Errorf("%w: assistant without id", ErrInvalidResponse)
	}
	return nil
}

// DisplayName is the operator name, falling back to the assistant name.
func (a *Assistant) DisplayName() string {
	if a == nil {
		return ""
	}
	if a.OperatorName != "" {
		return a.OperatorName
	}
	return a.Name
}

// HasAuthorization reports whether the assistant was granted auth.
func (a *Assistant) HasAuthorization(auth Authorization) bool {
	for _, have := range a.Authorizations {
		if have == auth {
			return true
		}
	}
	return false
}

// AssistantInput is the create/update body.
type AssistantInput struct {
	Name           string          `json:"name"`
	URL            string          `json:"url"`
	Mission        string          `json:"mission"`
	Description    string          `json:"description,omitempty"`
	Tone           string          `json:"tone"`
	Authorizations []Authorization `json:"authorizations"`
	OperatorName   string          `json:"operator_name"`
	OperatorPic    string          `json:"operator_pic,omitempty"`
	Model          string          `json:"model,omitempty"`
}

// InputFrom copies the editable fields of an existing assistant.
func InputFrom(a *Assistant) AssistantInput {
	return AssistantInput{
		Name:           a.Name,
		URL:            a.URL,
		Mission:        a.Mission,
		Description:    a.Description,
		Tone:           a.Tone,
		Authorizations: append([]Authorization(nil), a.Authorizations...),
		OperatorName:   a.OperatorName,
		OperatorPic:    a.OperatorPic,
		Model:          a.Model,
	}
}

// Normalize trims whitespace, applies the default tone and upper-cases
// enum values.
func (in *AssistantInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.URL = strings.TrimSpace(in.URL)
	in.Mission = strings.TrimSpace(in.Mission)
	in.Description = strings.TrimSpace(in.Description)
	in.OperatorName = strings.TrimSpace(in.OperatorName)
	in.Tone = strings.ToUpper(strings.TrimSpace(in.Tone))
	if in.Tone == "" {
		in.Tone = DefaultTone
	}
	for i, auth := range in.Authorizations {
		in.Authorizations[i] = Authorization(strings.ToUpper(strings.TrimSpace(string(auth))))
	}
	if in.Authorizations == nil {
		in.Authorizations = []Authorization{}
	}
}

// Validate checks required fields and known authorizations.
func (in AssistantInput) Validate() error {
	required := []struct{ field, value string }{
		{"name", in.Name},
		{"url", in.URL},
		{"mission", in.Mission},
		{"operator_name", in.OperatorName},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Reason: "required"}
		}
	}
	if u, err := url.Parse(in.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{Field: "url", Reason: fmt.Sprintf("%q is not an absolute URL", in.URL)}
	}
	for _, auth := range in.Authorizations {
		if !isKnownAuthorization(auth) {
			return &ValidationError{Field: "authorizations", Reason: fmt.Sprintf("unknown authorization %q", auth)}
		}
	}
	return nil
}

func isKnownAuthorization(auth Authorization) bool {
	for _, known := range KnownAuthorizations {
		if auth == known {
			return true
		}
	}
	return false
}

// ModelInfo describes a model an assistant may run on.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Provider    string `json:"provider,omitempty"`
}

// modelList accepts a bare array or an object wrapping it.
type modelList []ModelInfo

func (m *modelList) UnmarshalJSON(data []byte) error {
	var list []ModelInfo
	if err := json.Unmarshal(data, &list); err == nil {
		*m = list
		return nil
	}
	var wrapped struct {
		Models []ModelInfo `json:"models"`
		Data   []ModelInfo `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Models != nil {
		*m = wrapped.Models
	} else {
		*m = wrapped.Data
	}
	return nil
}

// =============================================================================
// CHAT
// =============================================================================

// Emitter identifies who produced a message.
type Emitter string

const (
	EmitterUser      Emitter = "USER"
	EmitterAssistant Emitter = "ASSISTANT"
)

// Sources is an ordered list of source document names. The backend stores
// them as a single string column, so it may arrive as a JSON array, a
// string holding a JSON array, a newline-separated string, or null.
type Sources []string

func (s *Sources) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("sources: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*s = nil
		return nil
	}
	if strings.HasPrefix(raw, "[") && json.Unmarshal([]byte(raw), &list) == nil {
		*s = list
		return nil
	}
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	*s = out
	return nil
}

// ChatMessage is a message as the backend reports it.
type ChatMessage struct {
	ID        int64     `json:"id,omitempty"`
	Content   string    `json:"content"`
	Emitter   Emitter   `json:"emitter,omitempty"`
	CreatedAt Timestamp `json:"created_at"`
	Sources   Sources   `json:"sources,omitempty"`
}

// ChatInit is the response to opening a conversation.
type ChatInit struct {
	ChatID    int64         `json:"chat_id"`
	Assistant *Assistant    `json:"assistant"`
	Messages  []ChatMessage `json:"messages"`
}

func (c *ChatInit) Validate() error {
	if c.ChatID <= 0 {
		return fmt.Errorf("%w: missing chat_id", ErrInvalidResponse)
	}
	for i, m := range c.Messages {
		if m.Emitter != EmitterUser && m.Emitter != EmitterAssistant {
			return fmt.Errorf("%w: message %d has emitter %q", ErrInvalidResponse, i, m.Emitter)
		}
	}
	return nil
}

// Reply is the response to sending a chat message.
type Reply struct {
	Message *ChatMessage `json:"message"`
	Sources Sources      `json:"sources,omitempty"`
}

func (r *Reply) Validate() error {
	if r.Message == nil {
		return fmt.Errorf("%w: reply without message", ErrInvalidResponse)
	}
	return nil
}

// AllSources merges top-level and per-message sources, top-level first.
func (r *Reply) AllSources() []string {
	if r == nil {
		return nil
	}
	var out []string
	out = append(out, r.Sources...)
	if r.Message != nil {
		out = append(out, r.Message.Sources...)
	}
	return out
}

type messageBody struct {
	Content string `json:"content"`
}

// =============================================================================
// FILES & COLLECTIONS
// =============================================================================

// File is an uploaded knowledge-base document.
type File struct {
	ID          int64     `json:"id"`
	AssistantID int64     `json:"help_assistant_id,omitempty"`
	Filename    string    `json:"filename"`
	FileType    string    `json:"file_type,omitempty"`
	FileSize    int64     `json:"file_size"`
	UploadedAt  Timestamp `json:"uploaded_at"`
}

func (f *File) Validate() error {
	if f.ID <= 0 || f.Filename == "" {
		return fmt.Errorf("%w: file without id or name", ErrInvalidResponse)
	}
	return nil
}

// Collection is the backend's knowledge-base grouping for an assistant.
type Collection struct {
	ID          int64     `json:"id"`
	ExternalID  string    `json:"albert_id"`
	AssistantID int64     `json:"help_assistant_id,omitempty"`
	CreatedAt   Timestamp `json:"created_at"`
}

// =============================================================================
// SEARCH
// =============================================================================

// SearchResult is one knowledge-base hit.
type SearchResult struct {
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Source  string  `json:"source,omitempty"`
}

type searchBody struct {
	Query string `json:"query"`
}

type rawSearchResult struct {
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

type searchResponse struct {
	Results []rawSearchResult `json:"results"`
}

// sourceKeys are checked in order for the document name.
var sourceKeys = []string{"document_name", "source", "filename", "file_name", "title"}

// normalize drops results without content, clamps scores into [0,1] and
// keeps the server's order.
func (r *searchResponse) normalize() []SearchResult {
	out := make([]SearchResult, 0, len(r.Results))
	for _, raw := range r.Results {
		if strings.TrimSpace(raw.Content) == "" {
			continue
		}
		res := SearchResult{Content: raw.Content, Score: clamp01(raw.Score)}
		for _, key := range sourceKeys {
			if v, ok := raw.Metadata[key].(string); ok && v != "" {
				res.Source = v
				break
			}
		}
		out = append(out, res)
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
