// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/assist-tui/internal/api"
	"github.com/jeranaias/assist-tui/internal/apitest"
	"github.com/jeranaias/assist-tui/internal/search"
)

func TestSearchAgainstServer(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("ada@example.com", "Ada", "pw")
	a := srv.AddAssistant("ada@example.com", api.Assistant{Name: "Helper", URL: "https://example.com"})
	srv.SetSearchResults("vacation policy", []map[string]any{
		{"content": "Employees get 25 days.", "score": 0.82, "metadata": map[string]any{"document_name": "handbook.pdf"}},
		{"content": "", "score": 0.5},
		{"content": "Carry-over is capped.", "score": 1.7, "metadata": map[string]any{"source": "faq.md"}},
	})
	client := api.NewClient(srv.URL(), api.StaticToken(srv.Token("ada@example.com", time.Hour)))

	c := search.New(client, a.ID).WithDebounce(0)
	c.SetQuery("vacation")
	lookup := c.Update(c.SetQuery("vacation policy")())
	require.NotNil(t, lookup)
	c.Update(lookup())

	assert.Equal(t, []string{"vacation policy"}, srv.Queries())
	results := c.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "handbook.pdf", results[0].Source)
	assert.Equal(t, 1.0, results[1].Score)
}
