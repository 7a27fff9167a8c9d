// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/assist-tui/internal/api"
)

const assistantsUsage = "assist assistants [list|show ID|create|update ID|delete ID|tones|models]"

// assistantFlags maps command-line flags onto AssistantInput fields.
var assistantFlags = []struct {
	flag string
	set  func(in *api.AssistantInput, v string)
}{
	{"name", func(in *api.AssistantInput, v string) { in.Name = v }},
	{"url", func(in *api.AssistantInput, v string) { in.URL = v }},
	{"mission", func(in *api.AssistantInput, v string) { in.Mission = v }},
	{"description", func(in *api.AssistantInput, v string) { in.Description = v }},
	{"tone", func(in *api.AssistantInput, v string) { in.Tone = v }},
	{"operator", func(in *api.AssistantInput, v string) { in.OperatorName = v }},
	{"pic", func(in *api.AssistantInput, v string) { in.OperatorPic = v }},
	{"model", func(in *api.AssistantInput, v string) { in.Model = v }},
	{"auth", func(in *api.AssistantInput, v string) { in.Authorizations = parseAuthorizations(v) }},
}

// HandleAssistants handles "assist assistants".
func HandleAssistants(ctx context.Context, env *Env, args Args) error {
	p := NewArgParser(args.Raw, "yes")

	switch sub := strings.ToLower(p.Subcommand()); sub {
	case "", "list", "ls":
		return listAssistants(ctx, env, args)
	case "show", "get":
		id, err := ParseID(p.Positional(1), "assistant id", "assist assistants show 3")
		if err != nil {
			return err
		}
		return showAssistant(ctx, env, args, id)
	case "create", "new":
		return createAssistant(ctx, env, args, p)
	case "update", "edit":
		id, err := ParseID(p.Positional(1), "assistant id", "assist assistants update 3 --tone FRIENDLY")
		if err != nil {
			return err
		}
		return updateAssistant(ctx, env, args, p, id)
	case "delete", "rm":
		id, err := ParseID(p.Positional(1), "assistant id", "assist assistants delete 3 --yes")
		if err != nil {
			return err
		}
		return deleteAssistant(ctx, env, args, id, p.BoolFlag("yes"))
	case "tones":
		return listTones(ctx, env, args)
	case "models":
		return listModels(ctx, env, args)
	default:
		return ErrUnknownSubcommand("assistants", sub, assistantsUsage)
	}
}

func listAssistants(ctx context.Context, env *Env, args Args) error {
	list, err := env.Client.ListAssistants(ctx)
	if err != nil {
		return err
	}
	return env.emit(args, "assistants list", list, func(w io.Writer) {
		if len(list) == 0 {
			fmt.Fprintln(w, DimStyle.Render("No assistants yet. Create one with 'assist assistants create'."))
			return
		}
		fmt.Fprintf(w, "%-6s %-24s %-20s %s\n", "ID", "NAME", "OPERATOR", "MISSION")
		for _, a := range list {
			fmt.Fprintf(w, "%-6d %-24s %-20s %s\n", a.ID, oneLine(a.Name, 24), oneLine(a.OperatorName, 20), oneLine(a.Mission, 40))
		}
	})
}

func showAssistant(ctx context.Context, env *Env, args Args, id int64) error {
	a, err := env.Client.GetAssistant(ctx, id)
	if err != nil {
		return err
	}
	return env.emit(args, "assistants show", a, func(w io.Writer) {
		printAssistant(w, a)
	})
}

func printAssistant(w io.Writer, a *api.Assistant) {
	fmt.Fprintln(w, TitleStyle.Render(a.Name))
	fmt.Fprintln(w, RenderSeparator())
	fmt.Fprintln(w, RenderField("ID", fmt.Sprint(a.ID)))
	fmt.Fprintln(w, RenderField("URL", a.URL))
	fmt.Fprintln(w, RenderField("Operator", a.OperatorName))
	if a.OperatorPic != "" {
		fmt.Fprintln(w, RenderField("Operator picture", a.OperatorPic))
	}
	fmt.Fprintln(w, RenderField("Tone", a.Tone))
	if a.Model != "" {
		fmt.Fprintln(w, RenderField("Model", a.Model))
	}
	fmt.Fprintln(w, RenderField("Authorizations", authorizationList(a.Authorizations)))
	fmt.Fprintln(w, RenderField("Mission", a.Mission))
	if a.Description != "" {
		fmt.Fprintln(w, RenderField("Description", a.Description))
	}
}

// applyAssistantFlags overrides in with every flag that was given.
func applyAssistantFlags(in *api.AssistantInput, p *ArgParser) {
	for _, f := range assistantFlags {
		if p.HasFlag(f.flag) {
			f.set(in, p.Flag(f.flag))
		}
	}
}

func createAssistant(ctx context.Context, env *Env, args Args, p *ArgParser) error {
	var in api.AssistantInput
	applyAssistantFlags(&in, p)
	in.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}

	a, err := env.Client.CreateAssistant(ctx, in)
	if err != nil {
		return err
	}
	env.logger().Info().Int64("assistant_id", a.ID).Msg("assistant created")
	return env.emit(args, "assistants create", a, func(w io.Writer) {
		fmt.Fprintf(w, "%s Created assistant %d (%s)\n", SuccessStyle.Render("[OK]"), a.ID, a.Name)
	})
}

func updateAssistant(ctx context.Context, env *Env, args Args, p *ArgParser, id int64) error {
	current, err := env.Client.GetAssistant(ctx, id)
	if err != nil {
		return err
	}
	in := api.InputFrom(current)
	applyAssistantFlags(&in, p)
	in.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}

	a, err := env.Client.UpdateAssistant(ctx, id, in)
	if err != nil {
		return err
	}
	return env.emit(args, "assistants update", a, func(w io.Writer) {
		fmt.Fprintf(w, "%s Updated assistant %d (%s)\n", SuccessStyle.Render("[OK]"), a.ID, a.Name)
	})
}

func deleteAssistant(ctx context.Context, env *Env, args Args, id int64, yes bool) error {
	if err := RequireConfirmation(env, yes, fmt.Sprintf("Delete assistant %d and its documents", id)); err != nil {
		return err
	}
	if err := env.Client.DeleteAssistant(ctx, id); err != nil {
		return err
	}
	env.logger().Info().Int64("assistant_id", id).Msg("assistant deleted")
	return env.emit(args, "assistants delete", map[string]int64{"deleted": id}, func(w io.Writer) {
		fmt.Fprintf(w, "%s Deleted assistant %d\n", SuccessStyle.Render("[OK]"), id)
	})
}

func listTones(ctx context.Context, env *Env, args Args) error {
	tones, err := env.Client.Tones(ctx)
	if err != nil {
		return err
	}
	return env.emit(args, "assistants tones", tones, func(w io.Writer) {
		for _, t := range tones {
			fmt.Fprintln(w, RenderField(t.Name, t.Description))
		}
	})
}

func listModels(ctx context.Context, env *Env, args Args) error {
	models, err := env.Client.Models(ctx)
	if err != nil {
		return err
	}
	return env.emit(args, "assistants models", models, func(w io.Writer) {
		if len(models) == 0 {
			fmt.Fprintln(w, DimStyle.Render("The server did not list any models."))
			return
		}
		for _, m := range models {
			label := m.Name
			if m.Provider != "" {
				label += " (" + m.Provider + ")"
			}
			fmt.Fprintln(w, RenderField(m.ID, label))
		}
	})
}
