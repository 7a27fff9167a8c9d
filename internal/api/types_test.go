// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"fastapi detail", 400, `{"detail": "Email already registered"}`, "Email already registered"},
		{"validation list", 422, `{"detail": [{"loc": ["body", "email"], "msg": "field required"}, {"loc": [], "msg": "bad"}]}`, "email: field required; bad"},
		{"middleware error", 500, `{"error": "Internal Server Error", "detail": null}`, "Internal Server Error"},
		{"message", 409, `{"message": "conflict"}`, "conflict"},
		{"plain text", 502, `upstream unavailable`, "upstream unavailable"},
		{"html falls back", 503, `<html>oops</html>`, "Service Unavailable"},
		{"empty", 404, ``, "Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractMessage(tt.status, []byte(tt.body)))
		})
	}
}

func TestIsExpiryMessage(t *testing.T) {
	assert.True(t, isExpiryMessage(http.StatusUnauthorized, "Could not validate credentials"))
	assert.True(t, isExpiryMessage(http.StatusForbidden, "Invalid token or expired token."))
	assert.True(t, isExpiryMessage(http.StatusUnauthorized, "Signature has EXPIRED"))
	assert.False(t, isExpiryMessage(http.StatusBadRequest, "token expired"))
	assert.False(t, isExpiryMessage(http.StatusForbidden, "Not authorized to modify this help assistant"))
}

func TestSourcesUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want Sources
	}{
		{`null`, nil},
		{`["a.pdf", "b.md"]`, Sources{"a.pdf", "b.md"}},
		{`"[\"a.pdf\"]"`, Sources{"a.pdf"}},
		{`"a.pdf\nb.md\n"`, Sources{"a.pdf", "b.md"}},
		{`""`, nil},
	}
	for _, tt := range tests {
		var got Sources
		require.NoError(t, json.Unmarshal([]byte(tt.in), &got), tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	var bad Sources
	assert.Error(t, json.Unmarshal([]byte(`42`), &bad))
}

func TestTimestampLayouts(t *testing.T) {
	want := time.Date(2025, 1, 22, 12, 34, 56, 0, time.UTC)
	for _, in := range []string{
		`"2025-01-22T12:34:56Z"`,
		`"2025-01-22T12:34:56"`,
		`"2025-01-22 12:34:56"`,
		`"2025-01-22T13:34:56+01:00"`,
	} {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(in), &ts), in)
		assert.True(t, want.Equal(ts.Time), "%s parsed as %v", in, ts.Time)
	}

	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	assert.True(t, ts.IsZero())
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))

	out, err := json.Marshal(Timestamp{Time: want})
	require.NoError(t, err)
	assert.Equal(t, `"2025-01-22T12:34:56Z"`, string(out))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-3))
	assert.Equal(t, 1.0, clamp01(3))
	assert.Equal(t, 0.25, clamp01(0.25))
	assert.Equal(t, 0.0, clamp01(math.NaN()))
}

func TestAssistantInputNormalize(t *testing.T) {
	in := AssistantInput{Name: " Helpdesk ", Tone: " friendly", Authorizations: []Authorization{" can_send_email"}}
	in.Normalize()
	assert.Equal(t, "Helpdesk", in.Name)
	assert.Equal(t, "FRIENDLY", in.Tone)
	assert.Equal(t, []Authorization{AuthCanSendEmail}, in.Authorizations)

	empty := AssistantInput{}
	empty.Normalize()
	assert.Equal(t, DefaultTone, empty.Tone)
	assert.NotNil(t, empty.Authorizations)
}

func TestReplyAllSources(t *testing.T) {
	r := &Reply{
		Message: &ChatMessage{Content: "x", Sources: Sources{"b.md"}},
		Sources: Sources{"a.pdf"},
	}
	assert.Equal(t, []string{"a.pdf", "b.md"}, r.AllSources())
	assert.Nil(t, (*Reply)(nil).AllSources())
}
