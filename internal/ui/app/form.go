// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/assist-tui/internal/ui/styles"
)

// form is a vertical list of labelled text inputs with one focused.
type form struct {
	theme  *styles.Theme
	labels []string
	inputs []textinput.Model
	focus  int
	width  int
}

func newForm(theme *styles.Theme) *form {
	return &form{theme: theme, width: 40}
}

// add appends a field and returns its index.
func (f *form) add(label, placeholder string, secret bool) int {
	in := textinput.New()
	in.Placeholder = placeholder
	in.Prompt = ""
	in.CharLimit = 512
	in.Width = f.width
	if secret {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '*'
	}
	if len(f.inputs) == 0 {
		in.Focus()
	}
	f.labels = append(f.labels, label)
	f.inputs = append(f.inputs, in)
	return len(f.inputs) - 1
}

func (f *form) value(i int) string {
	return f.inputs[i].Value()
}

func (f *form) setValue(i int, v string) {
	f.inputs[i].SetValue(v)
}

func (f *form) focused() int {
	return f.focus
}

func (f *form) last() bool {
	return f.focus == len(f.inputs)-1
}

func (f *form) setWidth(w int) {
	f.width = w
	for i := range f.inputs {
		f.inputs[i].Width = w
	}
}

func (f *form) setFocus(i int) tea.Cmd {
	if i < 0 {
		i = len(f.inputs) - 1
	}
	if i >= len(f.inputs) {
		i = 0
	}
	f.inputs[f.focus].Blur()
	f.focus = i
	return f.inputs[i].Focus()
}

// Update moves focus on tab/shift+tab and feeds other keys to the focused
// input.
func (f *form) Update(msg tea.Msg) tea.Cmd {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, keys.NextField):
			return f.setFocus(f.focus + 1)
		case key.Matches(k, keys.PrevField):
			return f.setFocus(f.focus - 1)
		}
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

// View renders one "label  input" row per field.
func (f *form) View() string {
	var b strings.Builder
	for i, in := range f.inputs {
		label := f.theme.Label
		if i == f.focus {
			label = f.theme.LabelFocused
		}
		b.WriteString(label.Render(f.labels[i]))
		b.WriteString(in.View())
		if i < len(f.inputs)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
