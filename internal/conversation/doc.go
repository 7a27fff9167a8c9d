// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation manages a chat with one assistant.
//
// A Controller moves through Uninitialized, Initializing, Ready and
// Sending, and ends in Closed. Sending is split in two so the UI can show
// the user's message before the server answers:
//
//	p, ok := ctrl.Begin(input)   // user message appended, state Sending
//	if ok {
//	    res := p.Do(ctx)         // network call, any goroutine
//	    ctrl.Finish(res)         // reply appended, state Ready
//	}
//
// Only one message is in flight at a time, and Finish ignores results for
// any other message. A failed delivery leaves the user's message in
// history and marks it with Failed.
package conversation
