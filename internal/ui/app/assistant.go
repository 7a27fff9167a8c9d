// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/assist-tui/internal/api"
	"github.com/jeranaias/assist-tui/internal/search"
	"github.com/jeranaias/assist-tui/internal/session"
	"github.com/jeranaias/assist-tui/internal/ui/components"
	"github.com/jeranaias/assist-tui/internal/util"
)

type assistantMode int

const (
	modeBrowse assistantMode = iota
	modeUpload
	modeSearch
)

type assistantLoadedMsg struct {
	assistant *api.Assistant
	err       error
}

type filesLoadedMsg struct {
	files []api.File
	err   error
}

type collectionLoadedMsg struct {
	collection *api.Collection
	err        error
}

type fileChangedMsg struct {
	verb string
	name string
	err  error
}

type fileSavedMsg struct {
	path string
	size int64
	err  error
}

// assistantScreen shows one assistant with its files and a knowledge-base
// search.
type assistantScreen struct {
	deps Deps
	id   int64
	mode assistantMode

	assistant  *api.Assistant
	files      []api.File
	collection *api.Collection
	cursor     int
	confirm    int64
	loadErr    string

	upload   textinput.Model
	query    textinput.Model
	search   *search.Controller
	md       *markdown
	spinner  components.Spinner
	transfer bool

	width  int
	height int
}

func newAssistantScreen(deps Deps, id int64) *assistantScreen {
	upload := textinput.New()
	upload.Placeholder = "path/to/document.pdf"
	upload.Prompt = "Upload: "
	upload.CharLimit = 1024

	query := textinput.New()
	query.Placeholder = "search the knowledge base"
	query.Prompt = "/ "
	query.CharLimit = 256

	ctl := search.New(deps.Client, id).
		WithContext(deps.Ctx).
		WithNotifier(deps.Toasts).
		WithMetrics(deps.Metrics)
	if deps.Debounce > 0 {
		ctl.WithDebounce(deps.Debounce)
	}

	return &assistantScreen{
		deps:    deps,
		id:      id,
		upload:  upload,
		query:   query,
		search:  ctl,
		md:      newMarkdown(deps.Theme),
		spinner: components.NewSpinner("Working"),
	}
}

func (s *assistantScreen) Init() tea.Cmd {
	client, ctx, id := s.deps.Client, s.deps.Ctx, s.id
	return tea.Batch(
		func() tea.Msg {
			a, err := client.GetAssistant(ctx, id)
			return assistantLoadedMsg{assistant: a, err: err}
		},
		s.loadFiles(),
		func() tea.Msg {
			c, err := client.Collection(ctx, id)
			return collectionLoadedMsg{collection: c, err: err}
		},
	)
}

func (s *assistantScreen) loadFiles() tea.Cmd {
	client, ctx, id := s.deps.Client, s.deps.Ctx, s.id
	return func() tea.Msg {
		files, err := client.ListFiles(ctx, id)
		return filesLoadedMsg{files: files, err: err}
	}
}

func (s *assistantScreen) Title() string {
	if s.assistant != nil {
		return s.assistant.Name
	}
	return "Assistant"
}

func (s *assistantScreen) Typing() bool { return s.mode != modeBrowse }

func (s *assistantScreen) SetSize(w, h int) {
	s.width, s.height = w, h
	s.upload.Width = max(10, w-12)
	s.query.Width = max(10, w-6)
}

func (s *assistantScreen) Shortcuts() []components.Shortcut {
	switch {
	case s.confirm != 0:
		return []components.Shortcut{shortcut("y", "confirm delete"), shortcut("any", "cancel")}
	case s.mode == modeUpload:
		return []components.Shortcut{shortcut("enter", "upload"), shortcut("esc", "cancel")}
	case s.mode == modeSearch:
		return []components.Shortcut{shortcut("type", "search"), shortcut("esc", "close search")}
	}
	return []components.Shortcut{
		shortcut("c", "chat"),
		shortcut("/", "search"),
		shortcut("u", "upload"),
		shortcut("o", "download"),
		shortcut("x", "delete file"),
		shortcut("e", "edit"),
		shortcut("esc", "dashboard"),
	}
}

func (s *assistantScreen) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case assistantLoadedMsg:
		if msg.err != nil {
			s.loadErr = components.MessageFor(msg.err)
			s.deps.Toasts.NotifyError(msg.err)
			return nil
		}
		s.assistant = msg.assistant
		return nil

	case filesLoadedMsg:
		if msg.err != nil {
			s.deps.Toasts.NotifyError(msg.err)
			return nil
		}
		s.files = msg.files
		if s.cursor >= len(s.files) {
			s.cursor = max(0, len(s.files)-1)
		}
		return nil

	case collectionLoadedMsg:
		if msg.err != nil {
			// New assistants may not have a collection yet.
			s.deps.Log.Debug().Err(msg.err).Int64("assistant_id", s.id).Msg("collection")
			return nil
		}
		s.collection = msg.collection
		return nil

	case fileChangedMsg:
		s.transfer = false
		s.spinner.Stop()
		if msg.err != nil {
			s.deps.Toasts.NotifyError(msg.err)
			return nil
		}
		s.deps.Toasts.AddSuccess(fmt.Sprintf("%s %s.", msg.verb, msg.name))
		return s.loadFiles()

	case fileSavedMsg:
		s.transfer = false
		s.spinner.Stop()
		if msg.err != nil {
			s.deps.Toasts.NotifyError(msg.err)
			return nil
		}
		s.deps.Toasts.AddSuccess(fmt.Sprintf("Saved %s (%s).", msg.path, components.FormatSize(msg.size)))
		return nil

	case search.DebounceMsg, search.ResultMsg:
		return s.search.Update(msg)

	case tea.KeyMsg:
		switch s.mode {
		case modeUpload:
			return s.updateUpload(msg)
		case modeSearch:
			return s.updateSearch(msg)
		}
		return s.updateBrowse(msg)
	}

	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return cmd
}

func (s *assistantScreen) updateBrowse(msg tea.KeyMsg) tea.Cmd {
	if s.confirm != 0 {
		id := s.confirm
		s.confirm = 0
		if msg.String() != "y" {
			return nil
		}
		name := s.fileName(id)
		client, ctx, aid := s.deps.Client, s.deps.Ctx, s.id
		s.transfer = true
		return tea.Batch(s.spinner.Start(), func() tea.Msg {
			return fileChangedMsg{verb: "Deleted", name: name, err: client.DeleteFile(ctx, aid, id)}
		})
	}

	switch {
	case key.Matches(msg, keys.Back):
		return navigate(session.RouteDashboard)
	case key.Matches(msg, keys.Up):
		if s.cursor > 0 {
			s.cursor--
		}
		return nil
	case key.Matches(msg, keys.Down):
		if s.cursor < len(s.files)-1 {
			s.cursor++
		}
		return nil
	}

	switch msg.String() {
	case "c":
		return navigateAssistant(session.RouteChat, s.id)
	case "e":
		id := s.id
		return func() tea.Msg { return NavigateMsg{Route: session.RouteAssistant, AssistantID: id, Edit: true} }
	case "/":
		s.mode = modeSearch
		return s.query.Focus()
	case "u":
		if s.transfer {
			return nil
		}
		s.mode = modeUpload
		s.upload.SetValue("")
		return s.upload.Focus()
	case "x":
		if f := s.selectedFile(); f != nil && !s.transfer {
			s.confirm = f.ID
		}
	case "o":
		if f := s.selectedFile(); f != nil && !s.transfer {
			return s.download(*f)
		}
	}
	return nil
}

func (s *assistantScreen) updateUpload(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Back):
		s.mode = modeBrowse
		s.upload.Blur()
		return nil
	case key.Matches(msg, keys.Submit):
		path := strings.TrimSpace(s.upload.Value())
		if path == "" {
			return nil
		}
		if _, err := api.CheckUpload(path); err != nil {
			s.deps.Toasts.NotifyError(err)
			return nil
		}
		s.mode = modeBrowse
		s.upload.Blur()
		s.transfer = true
		client, ctx, id := s.deps.Client, s.deps.Ctx, s.id
		return tea.Batch(s.spinner.Start(), func() tea.Msg {
			_, err := client.UploadFile(ctx, id, path)
			return fileChangedMsg{verb: "Uploaded", name: filepath.Base(path), err: err}
		})
	}
	var cmd tea.Cmd
	s.upload, cmd = s.upload.Update(msg)
	return cmd
}

func (s *assistantScreen) updateSearch(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, keys.Back) {
		s.mode = modeBrowse
		s.query.Blur()
		return nil
	}
	before := s.query.Value()
	var cmd tea.Cmd
	s.query, cmd = s.query.Update(msg)
	if s.query.Value() != before {
		return tea.Batch(cmd, s.search.SetQuery(s.query.Value()))
	}
	return cmd
}

// download saves the file under its own name in the working directory.
func (s *assistantScreen) download(f api.File) tea.Cmd {
	s.transfer = true
	client, ctx, id := s.deps.Client, s.deps.Ctx, s.id
	path := filepath.Base(f.Filename)
	return tea.Batch(s.spinner.Start(), func() tea.Msg {
		var buf bytes.Buffer
		n, err := client.DownloadFile(ctx, id, f.ID, &buf)
		if err == nil {
			err = util.AtomicWriteFile(path, buf.Bytes(), 0o644)
		}
		return fileSavedMsg{path: path, size: n, err: err}
	})
}

func (s *assistantScreen) selectedFile() *api.File {
	if s.cursor < 0 || s.cursor >= len(s.files) {
		return nil
	}
	return &s.files[s.cursor]
}

func (s *assistantScreen) fileName(id int64) string {
	for _, f := range s.files {
		if f.ID == id {
			return f.Filename
		}
	}
	return "file"
}

func (s *assistantScreen) View() string {
	t := s.deps.Theme
	width := max(20, s.width-4)
	var b strings.Builder

	switch {
	case s.assistant != nil:
		a := s.assistant
		b.WriteString(t.Title.Render(a.Name))
		b.WriteString("  ")
		b.WriteString(t.LinkStyle.Render(a.URL))
		b.WriteString("\n")
		b.WriteString(t.Subtitle.Render(fmt.Sprintf("%s · %s tone", a.DisplayName(), strings.ToLower(a.Tone))))
		b.WriteString("\n")
		b.WriteString(s.md.render(a.Mission, width))
		b.WriteString("\n")
		if a.Description != "" {
			b.WriteString(t.Muted.Render(a.Description))
			b.WriteString("\n")
		}
	case s.loadErr != "":
		b.WriteString(t.ErrorStyle.Render(s.loadErr))
		b.WriteString("\n")
	default:
		b.WriteString(t.Muted.Render("Loading..."))
		b.WriteString("\n")
	}

	if s.mode == modeSearch {
		b.WriteString("\n")
		b.WriteString(s.searchView(width))
		return b.String()
	}

	b.WriteString("\n")
	title := "Knowledge base"
	if s.collection != nil && s.collection.ExternalID != "" {
		title += t.Muted.Render("  " + s.collection.ExternalID)
	}
	b.WriteString(t.PanelTitle.Render(title))
	b.WriteString("\n")
	if len(s.files) == 0 {
		b.WriteString(t.Muted.Render("No documents. Press u to upload one."))
		b.WriteString("\n")
	}
	for i, f := range s.files {
		style, marker := t.ListItem, "  "
		if i == s.cursor {
			style, marker = t.ListItemSelected, "> "
		}
		line := marker + util.TruncateWidth(f.Filename, width/2)
		meta := "  " + components.FormatSize(f.FileSize)
		if !f.UploadedAt.IsZero() {
			meta += " · " + components.FormatWhen(f.UploadedAt.Time)
		}
		b.WriteString(style.Render(line))
		b.WriteString(t.ListMeta.Render(meta))
		b.WriteString("\n")
	}

	switch {
	case s.confirm != 0:
		b.WriteString("\n")
		b.WriteString(t.WarningStyle.Render(fmt.Sprintf("Delete %s? (y/N)", s.fileName(s.confirm))))
	case s.mode == modeUpload:
		b.WriteString("\n")
		b.WriteString(s.upload.View())
		b.WriteString("\n")
		b.WriteString(t.Muted.Render("Allowed: " + strings.Join(api.AllowedExtensions, " ")))
	case s.transfer:
		b.WriteString("\n")
		b.WriteString(s.spinner.View())
	}
	return b.String()
}

func (s *assistantScreen) searchView(width int) string {
	t := s.deps.Theme
	var b strings.Builder
	b.WriteString(s.query.View())
	b.WriteString("\n")

	results := s.search.Results()
	switch {
	case s.search.Loading():
		b.WriteString(t.Muted.Render("Searching..."))
	case s.search.Err() != nil:
		b.WriteString(t.ErrorStyle.Render(components.MessageFor(s.search.Err())))
	case s.search.Query() != "" && len(results) == 0:
		b.WriteString(t.Muted.Render("No results for " + fmt.Sprintf("%q", s.search.Query())))
	}
	for _, r := range results {
		b.WriteString("\n")
		b.WriteString(t.ScoreStyle(r.Score).Render(components.FormatScore(r.Score)))
		if r.Source != "" {
			b.WriteString(" ")
			b.WriteString(t.Sources.Render(r.Source))
		}
		b.WriteString("\n")
		b.WriteString(util.TruncateWidth(strings.Join(strings.Fields(r.Content), " "), width*2))
		b.WriteString("\n")
	}
	return b.String()
}
