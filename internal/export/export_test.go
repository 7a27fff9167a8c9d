// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/assist-tui/internal/api"
)

func sampleTranscript() *Transcript {
	at := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	return &Transcript{
		AssistantID:   3,
		AssistantName: "Support Bot",
		ChatID:        11,
		ExportedAt:    at,
		Messages: []TranscriptMessage{
			{Emitter: api.EmitterUser, Content: "How do refunds work?", CreatedAt: at},
			{Emitter: api.EmitterAssistant, Content: "Within **30 days**.", CreatedAt: at, Sources: []string{"faq.md"}},
			{Emitter: api.EmitterUser, Content: "Thanks", CreatedAt: at, Failed: true},
		},
	}
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleTranscript())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "# Conversation with Support Bot\n"))
	assert.Contains(t, md, "### You")
	assert.Contains(t, md, "Within **30 days**.")
	assert.Contains(t, md, "Sources: faq.md")
	assert.Contains(t, md, "*Not delivered.*")
	assert.Equal(t, 2, strings.Count(md, "---\n"), "separators only between messages")
}

func TestMarkdownExportEmpty(t *testing.T) {
	tr := sampleTranscript()
	tr.Messages = nil
	out, err := NewMarkdownExporter(&Options{}).Export(tr)
	require.NoError(t, err)
	assert.Contains(t, string(out), "*No messages.*")
}

func TestJSONExportRoundTrips(t *testing.T) {
	out, err := NewJSONExporter().Export(sampleTranscript())
	require.NoError(t, err)

	var back Transcript
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, int64(11), back.ChatID)
	require.Len(t, back.Messages, 3)
	assert.True(t, back.Messages[2].Failed)
}

func TestToFileNamesAndWrites(t *testing.T) {
	dir := t.TempDir()
	tr := sampleTranscript()
	tr.AssistantName = "Support/Bot: v2"

	path, err := ToFile(tr, NewMarkdownExporter(nil), &Options{OutputDir: dir})
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, "chat_Support-Bot-_v2_20250304_103000.md", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "How do refunds work?")
}

func TestForPath(t *testing.T) {
	assert.IsType(t, &JSONExporter{}, ForPath("chat.JSON", nil))
	assert.IsType(t, &MarkdownExporter{}, ForPath("chat.md", nil))
	assert.IsType(t, &MarkdownExporter{}, ForPath("chat", nil))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "conversation"},
		{"plain", "plain"},
		{"a b\tc", "a_b_c"},
		{`x/y\z:*?`, "x-y-z---"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
