// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the interactive terminal client.
//
// Model is the root Bubble Tea model. It owns the current route and mounts
// one screen at a time: landing, login, register, dashboard, assistant
// detail and form, chat, and profile. Every navigation goes through the
// session route guard, and the guard is re-applied after each message so a
// session cleared by logout or expiry always lands back on the login
// screen.
//
// Screens talk to the backend through commands that run off the UI loop
// and report back with messages. Long-lived work is tagged (conversation
// replies, search sequence numbers, reveal generations) so results that
// arrive after the user moved on are ignored.
package app
