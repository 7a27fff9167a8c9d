// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/assist-tui/internal/conversation"
	"github.com/jeranaias/assist-tui/internal/export"
	"github.com/jeranaias/assist-tui/internal/reveal"
	"github.com/jeranaias/assist-tui/internal/session"
	"github.com/jeranaias/assist-tui/internal/ui/components"
)

// transcriptSavedMsg reports a finished ctrl+s export.
type transcriptSavedMsg struct {
	path string
	err  error
}

// chatScreen is a conversation with one assistant. The newest reply is
// revealed progressively; everything else renders as markdown.
type chatScreen struct {
	deps Deps
	id   int64

	conv     *conversation.Controller
	reveal   *reveal.Scheduler
	revealID string

	viewport viewport.Model
	input    textinput.Model
	spinner  components.Spinner
	md       *markdown
	initErr  string

	width  int
	height int
}

func newChatScreen(deps Deps, id int64) *chatScreen {
	in := textinput.New()
	in.Placeholder = "Ask something..."
	in.Prompt = "> "
	in.CharLimit = 4000
	in.Focus()

	conv := conversation.New(deps.Client).
		WithNotifier(deps.Toasts).
		WithSessionClearer(deps.Session).
		WithMetrics(deps.Metrics).
		WithLogger(deps.Log.Component("conversation"))

	return &chatScreen{
		deps:     deps,
		id:       id,
		conv:     conv,
		reveal:   reveal.New(deps.RevealInterval),
		viewport: viewport.New(80, 20),
		input:    in,
		spinner:  components.NewThinkingSpinner(),
		md:       newMarkdown(deps.Theme),
	}
}

func (s *chatScreen) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, s.conv.InitCmd(s.deps.Ctx, s.id))
}

func (s *chatScreen) Title() string {
	if a := s.conv.Assistant(); a != nil {
		return "Chat · " + a.DisplayName()
	}
	return "Chat"
}

func (s *chatScreen) Typing() bool { return true }

func (s *chatScreen) SetSize(w, h int) {
	s.width, s.height = w, h
	s.input.Width = max(10, w-4)
	s.viewport.Width = w
	s.viewport.Height = max(1, h-3)
	s.refresh()
}

func (s *chatScreen) Shortcuts() []components.Shortcut {
	cuts := []components.Shortcut{
		shortcut("enter", "send"),
		shortcut("pgup/pgdn", "scroll"),
		shortcut("C-s", "save"),
	}
	if s.reveal.Active() {
		cuts = append(cuts, shortcut("C-f", "show all"))
	}
	if s.conv.State() == conversation.Uninitialized && s.initErr != "" {
		cuts = append(cuts, shortcut("C-r", "retry"))
	}
	return append(cuts, shortcut("esc", "back"))
}

// Close stops the reveal and discards the conversation.
func (s *chatScreen) Close() {
	s.reveal.Stop()
	s.conv.Close()
}

func (s *chatScreen) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case conversation.InitializedMsg:
		if msg.ID != s.conv.ID() {
			return nil
		}
		if msg.Err != nil {
			s.initErr = components.MessageFor(msg.Err)
		} else {
			s.initErr = ""
		}
		s.refresh()
		s.viewport.GotoBottom()
		return nil

	case conversation.ReplyMsg:
		// A reply for a chat screen that has since been left.
		if msg.ID != s.conv.ID() {
			return nil
		}
		s.spinner.Stop()
		err := s.conv.Finish(msg.Result)
		var cmd tea.Cmd
		if err == nil {
			if last, ok := s.lastMessage(); ok && !last.FromUser() {
				s.revealID = last.ID
				cmd = s.reveal.Start(last.Content)
			}
		}
		s.refresh()
		s.viewport.GotoBottom()
		return cmd

	case reveal.TickMsg:
		follow := s.viewport.AtBottom()
		cmd := s.reveal.Update(msg)
		s.refresh()
		if follow {
			s.viewport.GotoBottom()
		}
		return cmd

	case reveal.DoneMsg:
		if msg.ID == s.reveal.ID() {
			s.refresh()
		}
		return nil

	case transcriptSavedMsg:
		if msg.err != nil {
			s.deps.Toasts.NotifyError(msg.err)
			return nil
		}
		s.deps.Toasts.AddSuccess("Transcript saved to " + msg.path + ".")
		return nil

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return cmd
}

func (s *chatScreen) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Back):
		return navigateAssistant(session.RouteAssistant, s.id)
	case key.Matches(msg, keys.Submit):
		return s.send()
	case msg.String() == "ctrl+f":
		s.reveal.Finish()
		s.refresh()
		return nil
	case msg.String() == "ctrl+s":
		if st := s.conv.State(); st != conversation.Ready && st != conversation.Sending {
			return nil
		}
		t := export.FromConversation(s.conv)
		return func() tea.Msg {
			path, err := export.ToFile(t, export.NewMarkdownExporter(nil), nil)
			return transcriptSavedMsg{path: path, err: err}
		}
	case msg.String() == "ctrl+r":
		if s.conv.State() != conversation.Uninitialized {
			return nil
		}
		s.initErr = ""
		return s.conv.InitCmd(s.deps.Ctx, s.id)
	case msg.String() == "pgup", msg.String() == "pgdown", msg.String() == "up", msg.String() == "down":
		var cmd tea.Cmd
		s.viewport, cmd = s.viewport.Update(msg)
		return cmd
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return cmd
}

// send hands the input to the conversation and clears it right away. The
// user's message shows up in history before the reply arrives.
func (s *chatScreen) send() tea.Cmd {
	cmd := s.conv.SendCmd(s.deps.Ctx, s.input.Value())
	if cmd == nil {
		return nil
	}
	s.input.Reset()
	// A new exchange supersedes the previous reveal.
	s.reveal.Finish()
	s.refresh()
	s.viewport.GotoBottom()
	return tea.Batch(cmd, s.spinner.Start())
}

func (s *chatScreen) lastMessage() (conversation.Message, bool) {
	msgs := s.conv.Messages()
	if len(msgs) == 0 {
		return conversation.Message{}, false
	}
	return msgs[len(msgs)-1], true
}

func (s *chatScreen) refresh() {
	s.viewport.SetContent(s.history())
}

func (s *chatScreen) history() string {
	t := s.deps.Theme
	width := max(20, s.width-4)

	switch s.conv.State() {
	case conversation.Uninitialized:
		if s.initErr != "" {
			return t.ErrorStyle.Render(s.initErr) + "\n" + t.Muted.Render("Press C-r to try again.")
		}
		return t.Muted.Render("Connecting...")
	case conversation.Initializing:
		return t.Muted.Render("Connecting...")
	}

	msgs := s.conv.Messages()
	if len(msgs) == 0 {
		name := "the assistant"
		if a := s.conv.Assistant(); a != nil {
			name = a.DisplayName()
		}
		return t.Muted.Render("Say hello to " + name + ".")
	}

	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s.renderMessage(m, width))
	}
	return b.String()
}

func (s *chatScreen) renderMessage(m conversation.Message, width int) string {
	t := s.deps.Theme
	var b strings.Builder

	if m.FromUser() {
		b.WriteString(t.UserBubble.Width(width).Render(m.Content))
		if s.conv.Failed(m.ID) {
			b.WriteString("\n")
			b.WriteString(t.FailedMark.Render("not delivered"))
		}
	} else {
		if m.ID == s.revealID && s.reveal.Active() {
			b.WriteString(t.AssistantBubble.Width(width).Render(s.reveal.Visible() + t.Cursor.Render("▌")))
		} else {
			b.WriteString(s.md.render(m.Content, width))
		}
		if len(m.Sources) > 0 && !(m.ID == s.revealID && s.reveal.Active()) {
			b.WriteString("\n")
			b.WriteString(t.Sources.Render("Sources: " + strings.Join(m.Sources, ", ")))
		}
	}
	if !m.CreatedAt.IsZero() {
		b.WriteString("\n")
		b.WriteString(t.Timestamp.Render(components.FormatWhen(m.CreatedAt)))
	}
	return b.String()
}

func (s *chatScreen) View() string {
	var footer string
	switch {
	case s.spinner.IsActive():
		footer = s.spinner.View()
	case s.conv.State() == conversation.Ready:
		footer = ""
	default:
		footer = s.deps.Theme.Muted.Render(s.conv.State().String())
	}
	return s.viewport.View() + "\n" + footer + "\n" + s.input.View()
}
