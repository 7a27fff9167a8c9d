// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-interactive assist commands.
//
// Every command runs against an Env, which holds the output streams, the
// session store and the API client, so tests can drive commands with
// buffers and a fake backend.
//
// # Key Types
//
//   - Command: the command word, resolved by Parse
//   - Args: global flags plus the raw command arguments
//   - Env: streams, configuration, session and client
//   - JSONResponse: the envelope printed with --json
//
// # Usage
//
//	cmd, args := cli.Parse(os.Args[1:])
//	os.Exit(cli.Main(ctx, env, cmd, args))
//
// # Output
//
// Human output goes to Out unless --quiet is given; warnings and prompts
// go to Err. With --json every command prints exactly one JSONResponse,
// including failures, and the process exit code matches its exit_code
// field.
package cli
