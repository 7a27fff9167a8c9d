// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"

	"github.com/jeranaias/assist-tui/internal/api"
)

// MarkdownExporter writes a readable transcript.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a Markdown exporter. nil uses DefaultOptions.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export renders t as Markdown.
func (e *MarkdownExporter) Export(t *Transcript) ([]byte, error) {
	var sb strings.Builder

	name := t.AssistantName
	if name == "" {
		name = "Assistant"
	}
	fmt.Fprintf(&sb, "# Conversation with %s\n\n", escapeMarkdown(name))
	fmt.Fprintf(&sb, "- Assistant: %d\n", t.AssistantID)
	fmt.Fprintf(&sb, "- Chat: %d\n", t.ChatID)
	fmt.Fprintf(&sb, "- Exported: %s\n\n", t.ExportedAt.Format("January 2, 2006 at 3:04 PM"))

	if len(t.Messages) == 0 {
		sb.WriteString("*No messages.*\n")
		return []byte(sb.String()), nil
	}

	for i, msg := range t.Messages {
		label := e.roleLabel(msg.Emitter, name)
		if e.options.IncludeTimestamps && !msg.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, msg.CreatedAt.Local().Format("15:04"))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}

		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		if msg.Failed {
			sb.WriteString("*Not delivered.*\n\n")
		}
		if len(msg.Sources) > 0 {
			fmt.Fprintf(&sb, "Sources: %s\n\n", strings.Join(msg.Sources, ", "))
		}

		if i < len(t.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

func (e *MarkdownExporter) roleLabel(emitter api.Emitter, assistant string) string {
	if emitter == api.EmitterUser {
		return "You"
	}
	return escapeMarkdown(assistant)
}

// escapeMarkdown escapes characters that would start emphasis or links.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `_`, `\_`, "`", "\\`", `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}
