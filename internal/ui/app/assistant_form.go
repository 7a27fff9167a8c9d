// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/assist-tui/internal/api"
	"github.com/jeranaias/assist-tui/internal/session"
	"github.com/jeranaias/assist-tui/internal/ui/components"
)

type formAssistantMsg struct {
	assistant *api.Assistant
	err       error
}

type tonesMsg struct {
	tones []api.Tone
	err   error
}

type modelsMsg struct {
	models []api.ModelInfo
	err    error
}

type assistantSavedMsg struct {
	assistant *api.Assistant
	err       error
}

// assistantFormScreen creates an assistant, or edits one when id is set.
type assistantFormScreen struct {
	deps Deps
	id   int64
	form *form

	name, url, mission, description, operator, pic int

	tones  []api.Tone
	tone   int
	models []api.ModelInfo
	model  int // -1 is the server default
	auths  map[api.Authorization]bool

	// pending tone and model from the edited assistant, applied once the
	// enums arrive
	wantTone  string
	wantModel string

	loading bool
	busy    bool
	errText string
	spinner components.Spinner
	width   int
	height  int
}

func newAssistantFormScreen(deps Deps, id int64) *assistantFormScreen {
	s := &assistantFormScreen{
		deps:     deps,
		id:       id,
		form:     newForm(deps.Theme),
		model:    -1,
		auths:    make(map[api.Authorization]bool),
		wantTone: api.DefaultTone,
		loading:  id != 0,
		spinner:  components.NewSpinner("Saving"),
	}
	s.name = s.form.add("Name", "Support bot", false)
	s.url = s.form.add("Website", "https://example.com", false)
	s.mission = s.form.add("Mission", "Answer questions about our product", false)
	s.description = s.form.add("Description", "optional", false)
	s.operator = s.form.add("Operator name", "Ada", false)
	s.pic = s.form.add("Operator picture", "optional URL", false)
	return s
}

func (s *assistantFormScreen) Init() tea.Cmd {
	client, ctx := s.deps.Client, s.deps.Ctx
	cmds := []tea.Cmd{
		func() tea.Msg {
			tones, err := client.Tones(ctx)
			return tonesMsg{tones: tones, err: err}
		},
		func() tea.Msg {
			models, err := client.Models(ctx)
			return modelsMsg{models: models, err: err}
		},
	}
	if s.id != 0 {
		id := s.id
		cmds = append(cmds, func() tea.Msg {
			a, err := client.GetAssistant(ctx, id)
			return formAssistantMsg{assistant: a, err: err}
		})
	}
	return tea.Batch(cmds...)
}

func (s *assistantFormScreen) Title() string {
	if s.id != 0 {
		return "Edit assistant"
	}
	return "New assistant"
}

func (s *assistantFormScreen) Typing() bool { return true }

func (s *assistantFormScreen) SetSize(w, h int) {
	s.width, s.height = w, h
	s.form.setWidth(max(10, min(60, w-24)))
}

func (s *assistantFormScreen) Shortcuts() []components.Shortcut {
	return []components.Shortcut{
		shortcut("C-s", "save"),
		shortcut("C-t", "tone"),
		shortcut("C-o", "model"),
		shortcut("C-e", "email"),
		shortcut("C-d", "documents"),
		shortcut("esc", "cancel"),
	}
}

func (s *assistantFormScreen) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case formAssistantMsg:
		s.loading = false
		if msg.err != nil {
			s.deps.Toasts.NotifyError(msg.err)
			return navigate(session.RouteDashboard)
		}
		s.fill(msg.assistant)
		return nil

	case tonesMsg:
		if msg.err != nil {
			s.deps.Log.Warn().Err(msg.err).Msg("load tones")
			return nil
		}
		s.tones = msg.tones
		s.selectTone()
		return nil

	case modelsMsg:
		if msg.err != nil {
			s.deps.Log.Warn().Err(msg.err).Msg("load models")
			return nil
		}
		s.models = msg.models
		s.selectModel()
		return nil

	case assistantSavedMsg:
		s.busy = false
		s.spinner.Stop()
		if msg.err != nil {
			s.errText = components.MessageFor(msg.err)
			return nil
		}
		if s.id != 0 {
			s.deps.Toasts.AddSuccess("Assistant updated.")
		} else {
			s.deps.Toasts.AddSuccess("Assistant created.")
		}
		return navigateAssistant(session.RouteAssistant, msg.assistant.ID)

	case tea.KeyMsg:
		if s.busy || s.loading {
			if key.Matches(msg, keys.Back) {
				return s.cancel()
			}
			return nil
		}
		switch {
		case key.Matches(msg, keys.Back):
			return s.cancel()
		case msg.String() == "ctrl+s":
			return s.save()
		case key.Matches(msg, keys.Submit):
			if s.form.last() {
				return s.save()
			}
			return s.form.setFocus(s.form.focused() + 1)
		case msg.String() == "ctrl+t":
			if len(s.tones) > 0 {
				s.tone = (s.tone + 1) % len(s.tones)
			}
			return nil
		case msg.String() == "ctrl+o":
			if len(s.models) > 0 {
				s.model++
				if s.model >= len(s.models) {
					s.model = -1
				}
			}
			return nil
		case msg.String() == "ctrl+e":
			s.auths[api.AuthCanSendEmail] = !s.auths[api.AuthCanSendEmail]
			return nil
		case msg.String() == "ctrl+d":
			s.auths[api.AuthCanReadDocuments] = !s.auths[api.AuthCanReadDocuments]
			return nil
		}
		s.errText = ""
		return s.form.Update(msg)
	}

	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return cmd
}

func (s *assistantFormScreen) cancel() tea.Cmd {
	if s.id != 0 {
		return navigateAssistant(session.RouteAssistant, s.id)
	}
	return navigate(session.RouteDashboard)
}

func (s *assistantFormScreen) fill(a *api.Assistant) {
	s.form.setValue(s.name, a.Name)
	s.form.setValue(s.url, a.URL)
	s.form.setValue(s.mission, a.Mission)
	s.form.setValue(s.description, a.Description)
	s.form.setValue(s.operator, a.OperatorName)
	s.form.setValue(s.pic, a.OperatorPic)
	for _, auth := range a.Authorizations {
		s.auths[auth] = true
	}
	if a.Tone != "" {
		s.wantTone = a.Tone
	}
	s.wantModel = a.Model
	s.selectTone()
	s.selectModel()
}

func (s *assistantFormScreen) selectTone() {
	for i, t := range s.tones {
		if strings.EqualFold(t.Name, s.wantTone) {
			s.tone = i
			return
		}
	}
}

func (s *assistantFormScreen) selectModel() {
	s.model = -1
	for i, m := range s.models {
		if m.ID == s.wantModel {
			s.model = i
			return
		}
	}
}

// input collects the form into a normalized request body.
func (s *assistantFormScreen) input() api.AssistantInput {
	in := api.AssistantInput{
		Name:         s.form.value(s.name),
		URL:          s.form.value(s.url),
		Mission:      s.form.value(s.mission),
		Description:  s.form.value(s.description),
		OperatorName: s.form.value(s.operator),
		OperatorPic:  strings.TrimSpace(s.form.value(s.pic)),
		Tone:         s.wantTone,
	}
	if s.tone < len(s.tones) {
		in.Tone = s.tones[s.tone].Name
	}
	if s.model >= 0 && s.model < len(s.models) {
		in.Model = s.models[s.model].ID
	}
	for _, auth := range api.KnownAuthorizations {
		if s.auths[auth] {
			in.Authorizations = append(in.Authorizations, auth)
		}
	}
	in.Normalize()
	return in
}

func (s *assistantFormScreen) save() tea.Cmd {
	in := s.input()
	if err := in.Validate(); err != nil {
		s.errText = components.MessageFor(err)
		return nil
	}
	s.busy = true
	client, ctx, id := s.deps.Client, s.deps.Ctx, s.id
	return tea.Batch(s.spinner.Start(), func() tea.Msg {
		var a *api.Assistant
		var err error
		if id != 0 {
			a, err = client.UpdateAssistant(ctx, id, in)
		} else {
			a, err = client.CreateAssistant(ctx, in)
		}
		return assistantSavedMsg{assistant: a, err: err}
	})
}

func (s *assistantFormScreen) View() string {
	t := s.deps.Theme
	var b strings.Builder
	b.WriteString(t.Title.Render(s.Title()))
	b.WriteString("\n")
	if s.loading {
		b.WriteString(t.Muted.Render("Loading..."))
		return t.FormBox.Render(b.String())
	}
	b.WriteString(s.form.View())
	b.WriteString("\n\n")

	tone := s.wantTone
	desc := ""
	if s.tone < len(s.tones) {
		tone = s.tones[s.tone].Name
		desc = s.tones[s.tone].Description
	}
	b.WriteString(t.Label.Render("Tone"))
	b.WriteString(strings.ToLower(tone))
	if desc != "" {
		b.WriteString(t.Muted.Render("  " + desc))
	}
	b.WriteString("\n")

	model := "server default"
	if s.model >= 0 && s.model < len(s.models) {
		model = s.models[s.model].ID
	}
	b.WriteString(t.Label.Render("Model"))
	b.WriteString(model)
	b.WriteString("\n")

	b.WriteString(t.Label.Render("Can send email"))
	b.WriteString(checkbox(s.auths[api.AuthCanSendEmail]))
	b.WriteString("\n")
	b.WriteString(t.Label.Render("Can read documents"))
	b.WriteString(checkbox(s.auths[api.AuthCanReadDocuments]))
	b.WriteString("\n\n")

	switch {
	case s.busy:
		b.WriteString(s.spinner.View())
	case s.errText != "":
		b.WriteString(t.ErrorStyle.Render(s.errText))
	default:
		b.WriteString(t.Muted.Render("C-s saves. Name, website, mission and operator name are required."))
	}
	return t.FormBox.Render(b.String())
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}
