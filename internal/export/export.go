// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/assist-tui/internal/api"
	"github.com/jeranaias/assist-tui/internal/conversation"
	"github.com/jeranaias/assist-tui/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a transcript in one format.
type Exporter interface {
	// Export converts a transcript to the target format.
	Export(t *Transcript) ([]byte, error)

	// FileExtension returns the extension including the dot, e.g. ".md".
	FileExtension() string
}

// Transcript is a snapshot of one conversation.
type Transcript struct {
	AssistantID   int64               `json:"assistant_id"`
	AssistantName string              `json:"assistant_name"`
	ChatID        int64               `json:"chat_id"`
	ExportedAt    time.Time           `json:"exported_at"`
	Messages      []TranscriptMessage `json:"messages"`
}

// TranscriptMessage is one exported message.
type TranscriptMessage struct {
	Emitter   api.Emitter `json:"emitter"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
	Sources   []string    `json:"sources,omitempty"`

	// Failed marks a user message that never reached the server.
	Failed bool `json:"failed,omitempty"`
}

// FromConversation snapshots the controller's history.
func FromConversation(c *conversation.Controller) *Transcript {
	t := &Transcript{
		AssistantID:   c.AssistantID(),
		AssistantName: c.Assistant().DisplayName(),
		ChatID:        c.ChatID(),
		ExportedAt:    time.Now(),
	}
	for _, m := range c.Messages() {
		t.Messages = append(t.Messages, TranscriptMessage{
			Emitter:   m.Emitter,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
			Sources:   m.Sources,
			Failed:    m.FromUser() && c.Failed(m.ID),
		})
	}
	return t
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is where files are saved. Default: current directory.
	OutputDir string

	// Path overrides the generated file name when set.
	Path string

	// IncludeTimestamps adds per-message times to Markdown.
	IncludeTimestamps bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeTimestamps: true,
	}
}

// ToFile renders t with exporter and writes it atomically. It returns the
// path written.
func ToFile(t *Transcript, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	path := opts.Path
	if path == "" {
		name := fmt.Sprintf("chat_%s_%s%s",
			sanitizeFilename(t.AssistantName),
			t.ExportedAt.Format("20060102_150405"),
			exporter.FileExtension(),
		)
		path = filepath.Join(opts.OutputDir, name)
	}

	if err := util.AtomicWriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// ForPath picks the exporter from path's extension; anything other than
// .json is Markdown.
func ForPath(path string, opts *Options) Exporter {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return NewJSONExporter()
	}
	return NewMarkdownExporter(opts)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(s, 50)

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "conversation"
	}
	return b.String()
}
