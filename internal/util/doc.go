// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the CLI and the TUI.
//
//   - TruncateRunes, TruncateWidth: UTF-8 and display-width aware truncation
//   - FirstLine: one-line previews of multi-line text
//   - AtomicWrite, AtomicWriteFile: crash-safe file writes with fsync
package util
