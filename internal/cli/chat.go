// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/assist-tui/internal/api"
	"github.com/jeranaias/assist-tui/internal/config"
	"github.com/jeranaias/assist-tui/internal/conversation"
	"github.com/jeranaias/assist-tui/internal/export"
	"github.com/jeranaias/assist-tui/internal/reveal"
)

const chatHelp = `Commands:
  /history   Show the conversation so far
  /save [P]  Save the transcript (.md, or .json by extension)
  /help      Show this help
  /quit      Leave the chat (also /exit or Ctrl+D)`

// =============================================================================
// INPUT
// =============================================================================

// lineInput reads one line of user input. io.EOF ends the chat.
type lineInput interface {
	ReadLine(prompt string) (string, error)
	Close()
}

// historyInput provides line editing and persistent history on a terminal.
type historyInput struct {
	line        *liner.State
	historyFile string
}

func newHistoryInput() *historyInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	h := &historyInput{line: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(h.historyFile); err == nil {
		h.line.ReadHistory(f)
		f.Close()
	}
	return h
}

func (h *historyInput) ReadLine(prompt string) (string, error) {
	input, err := h.line.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		h.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history owner-readable only and restores the terminal.
func (h *historyInput) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(h.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			h.line.WriteHistory(f)
			f.Close()
		}
	}
	h.line.Close()
}

// streamInput reads piped input without prompting.
type streamInput struct {
	env *Env
}

func (s streamInput) ReadLine(string) (string, error) {
	line, err := s.env.reader().ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (streamInput) Close() {}

// =============================================================================
// REPL
// =============================================================================

// HandleChat handles "assist chat ID --plain": a line-based conversation.
// Without --plain, main opens the chat screen instead.
func HandleChat(ctx context.Context, env *Env, args Args) error {
	id, _, err := ChatTarget(args)
	if err != nil {
		return err
	}
	if args.JSON {
		return &ValidationError{Field: "--json", Reason: "chat is interactive and has no JSON output"}
	}

	conv := conversation.New(env.Client).
		WithSessionClearer(env.Session).
		WithLogger(env.logger().Component("conversation"))
	if err := conv.Initialize(ctx, id); err != nil {
		return err
	}
	defer conv.Close()

	var in lineInput = streamInput{env: env}
	if env.Interactive {
		in = newHistoryInput()
	}
	defer in.Close()

	name := conv.Assistant().DisplayName()
	if name == "" {
		name = "assistant"
	}
	if !args.Quiet {
		fmt.Fprintln(env.Out, TitleStyle.Render("Chatting with "+name))
		fmt.Fprintln(env.Out, DimStyle.Render("Type /help for commands, /quit to leave."))
		printHistory(env, conv, name)
	}

	for {
		line, err := in.ReadLine(PromptStyle.Render("you> "))
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "/quit", "/exit", "/q":
			return nil
		case "/history":
			printHistory(env, conv, name)
			continue
		case "/help", "/h", "/?":
			fmt.Fprintln(env.Out, chatHelp)
			continue
		}
		if line == "/save" || strings.HasPrefix(line, "/save ") {
			saveTranscript(env, conv, strings.TrimSpace(strings.TrimPrefix(line, "/save")))
			continue
		}

		if err := conv.Send(ctx, line); err != nil {
			if api.IsSessionExpired(err) || errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(env.Err, "%s %s\n", ErrorStyle.Render("[not delivered]"), UserMessage(err))
			continue
		}

		msgs := conv.Messages()
		if len(msgs) == 0 {
			continue
		}
		if err := printReply(ctx, env, name, msgs[len(msgs)-1]); err != nil {
			return err
		}
	}
}

// printHistory writes every message; failed sends are marked.
func printHistory(env *Env, conv *conversation.Controller, name string) {
	for _, m := range conv.Messages() {
		if m.FromUser() {
			marker := ""
			if conv.Failed(m.ID) {
				marker = " " + ErrorStyle.Render("(not delivered)")
			}
			fmt.Fprintf(env.Out, "%s %s%s\n", PromptStyle.Render("you>"), m.Content, marker)
			continue
		}
		fmt.Fprintf(env.Out, "%s %s\n", AssistantStyle.Render(name+">"), m.Content)
		printSources(env.Out, m.Sources)
	}
}

// printReply writes an assistant message, revealing it progressively on
// a terminal.
func printReply(ctx context.Context, env *Env, name string, m conversation.Message) error {
	fmt.Fprint(env.Out, AssistantStyle.Render(name+">")+" ")
	if !env.Interactive || env.RevealInterval <= 0 {
		fmt.Fprintln(env.Out, m.Content)
		printSources(env.Out, m.Sources)
		return nil
	}

	s := reveal.New(env.RevealInterval)
	s.Start(m.Content)
	shown := 0
	ticker := time.NewTicker(env.RevealInterval)
	defer ticker.Stop()
	for s.Step() {
		visible := s.Visible()
		fmt.Fprint(env.Out, visible[shown:])
		shown = len(visible)
		select {
		case <-ctx.Done():
			fmt.Fprintln(env.Out)
			return ctx.Err()
		case <-ticker.C:
		}
	}
	fmt.Fprintln(env.Out, s.Text()[shown:])
	printSources(env.Out, m.Sources)
	return nil
}

// saveTranscript writes the conversation to path, or to a generated name
// in the working directory.
func saveTranscript(env *Env, conv *conversation.Controller, path string) {
	opts := export.DefaultOptions()
	opts.Path = path
	written, err := export.ToFile(export.FromConversation(conv), export.ForPath(path, opts), opts)
	if err != nil {
		fmt.Fprintf(env.Err, "%s %v\n", ErrorStyle.Render("[ERROR]"), err)
		return
	}
	fmt.Fprintf(env.Out, "%s Saved %s\n", SuccessStyle.Render("[OK]"), written)
}

func printSources(w io.Writer, sources []string) {
	if len(sources) > 0 {
		fmt.Fprintln(w, DimStyle.Render("Sources: "+strings.Join(sources, ", ")))
	}
}
