// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/assist-tui/internal/ui/components"
)

// HandleSearch handles "assist search ID QUERY...".
func HandleSearch(ctx context.Context, env *Env, args Args) error {
	p := NewArgParser(args.Raw)
	id, err := ParseID(p.Positional(0), "assistant id", "assist search 3 refund policy")
	if err != nil {
		return err
	}
	query := strings.TrimSpace(strings.Join(p.PositionalFrom(1), " "))
	if query == "" {
		return ErrMissingArgument("query", "assist search 3 refund policy")
	}

	results, err := env.Client.Search(ctx, id, query)
	if err != nil {
		return err
	}
	data := SearchData{AssistantID: id, Query: query, Results: results}
	return env.emit(args, "search", data, func(w io.Writer) {
		if len(results) == 0 {
			fmt.Fprintln(w, DimStyle.Render("No results for "+query))
			return
		}
		width := GetTerminalWidth() - 8
		for i, r := range results {
			header := fmt.Sprintf("%d. %s", i+1, components.FormatScore(r.Score))
			if r.Source != "" {
				header += "  " + r.Source
			}
			fmt.Fprintln(w, LabelStyle.UnsetWidth().Render(header))
			fmt.Fprintln(w, "   "+oneLine(r.Content, width))
		}
	})
}
