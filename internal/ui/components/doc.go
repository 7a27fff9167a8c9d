// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the shared pieces of the assist TUI screens.
//
//   - ToastManager: corner notifications; also the Notifier the chat and
//     search controllers report failures to
//   - Spinner: loading indicator built on bubbles/spinner
//   - Header, StatusBar: top and bottom lines of every screen
//
// Formatting helpers (FormatWhen, FormatSize, FormatScore) use go-humanize.
package components
