// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export saves a conversation transcript as Markdown or JSON.
//
//	path, err := export.ToFile(export.FromConversation(conv), export.NewMarkdownExporter(nil), nil)
package export
