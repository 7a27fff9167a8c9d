// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/assist-tui/internal/api"
	"github.com/jeranaias/assist-tui/internal/metrics"
)

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, assistantID int64, query string) ([]api.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return []api.SearchResult{
		{Content: query + " one", Score: 0.9, Source: "a.md"},
		{Content: query + " two", Score: 0.4, Source: "b.md"},
	}, nil
}

func (f *fakeSearcher) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

type notes struct{ errs []error }

func (n *notes) NotifyError(err error) { n.errs = append(n.errs, err) }

// =============================================================================
// DEBOUNCE
// =============================================================================

func TestTypingIssuesOneLookup(t *testing.T) {
	f := &fakeSearcher{}
	c := New(f, 1)

	c.SetQuery("a")
	c.SetQuery("ab")
	c.SetQuery("abc")
	assert.Equal(t, "abc", c.Pending())

	// The first two ticks were superseded before they fired.
	assert.Nil(t, c.Update(DebounceMsg{ID: c.ID(), Seq: 1}))
	assert.Nil(t, c.Update(DebounceMsg{ID: c.ID(), Seq: 2}))
	lookup := c.Update(DebounceMsg{ID: c.ID(), Seq: 3})
	require.NotNil(t, lookup)
	assert.True(t, c.Loading())

	c.Update(lookup())
	assert.Equal(t, []string{"abc"}, f.calls())
	assert.Equal(t, "abc", c.Query())
	require.Len(t, c.Results(), 2)
	assert.False(t, c.Loading())
}

func TestTypingWithRealTicks(t *testing.T) {
	f := &fakeSearcher{}
	c := New(f, 1).WithDebounce(60 * time.Millisecond)

	var cmds []tea.Cmd
	for _, q := range []string{"a", "ab", "abc"} {
		cmds = append(cmds, c.SetQuery(q))
		time.Sleep(10 * time.Millisecond)
	}

	msgs := make(chan tea.Msg, len(cmds))
	for _, cmd := range cmds {
		go func(cmd tea.Cmd) { msgs <- cmd() }(cmd)
	}

	var lookups []tea.Cmd
	for range cmds {
		if next := c.Update(<-msgs); next != nil {
			lookups = append(lookups, next)
		}
	}
	require.Len(t, lookups, 1)
	c.Update(lookups[0]())
	assert.Equal(t, []string{"abc"}, f.calls())
}

func TestDefaultDebounce(t *testing.T) {
	c := New(&fakeSearcher{}, 1)
	assert.Equal(t, 500*time.Millisecond, c.Debounce())
	c.WithDebounce(-1)
	assert.Equal(t, 500*time.Millisecond, c.Debounce())
}

func TestZeroDebounceFiresImmediately(t *testing.T) {
	f := &fakeSearcher{}
	c := New(f, 1).WithDebounce(0)
	cmd := c.SetQuery("x")
	require.NotNil(t, cmd)
	lookup := c.Update(cmd())
	require.NotNil(t, lookup)
	c.Update(lookup())
	assert.Equal(t, []string{"x"}, f.calls())
}

func TestBlankQueryClears(t *testing.T) {
	f := &fakeSearcher{}
	c := New(f, 1).WithDebounce(0)
	c.Update(c.Update(c.SetQuery("x")())())
	require.NotEmpty(t, c.Results())

	assert.Nil(t, c.SetQuery("   "))
	assert.Empty(t, c.Results())
	assert.Empty(t, c.Query())
	assert.Equal(t, []string{"x"}, f.calls())
}

func TestQueryTrimmed(t *testing.T) {
	f := &fakeSearcher{}
	c := New(f, 1).WithDebounce(0)
	c.Update(c.Update(c.SetQuery("  hello  ")())())
	assert.Equal(t, []string{"hello"}, f.calls())
	assert.Equal(t, "  hello  ", c.Pending())
}

// =============================================================================
// STALE RESPONSES
// =============================================================================

func TestOutOfOrderResponses(t *testing.T) {
	f := &fakeSearcher{}
	m := metrics.New()
	c := New(f, 1).WithMetrics(m)

	c.SetQuery("a")
	lookupA := c.Update(DebounceMsg{ID: c.ID(), Seq: 1})
	require.NotNil(t, lookupA)
	c.SetQuery("ab")
	lookupAB := c.Update(DebounceMsg{ID: c.ID(), Seq: 2})
	require.NotNil(t, lookupAB)

	// "ab" answers first, then the slower "a".
	c.Update(lookupAB())
	c.Update(lookupA())

	assert.Equal(t, "ab", c.Query())
	results := c.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "ab one", results[0].Content)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchLookupsTotal.WithLabelValues("stale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchLookupsTotal.WithLabelValues("applied")))
}

func TestResponseAfterClearDropped(t *testing.T) {
	c := New(&fakeSearcher{}, 1)
	c.SetQuery("a")
	lookup := c.Update(DebounceMsg{ID: c.ID(), Seq: 1})
	c.SetQuery("")
	c.Update(lookup())
	assert.Empty(t, c.Results())
}

func TestResultsKeepServerOrder(t *testing.T) {
	c := New(&fakeSearcher{}, 1)
	c.SetQuery("q")
	lookup := c.Update(DebounceMsg{ID: c.ID(), Seq: 1})
	require.NotNil(t, lookup)
	c.Update(ResultMsg{ID: c.ID(), Seq: 1, Query: "q", Results: []api.SearchResult{
		{Content: "low", Score: 0.1},
		{Content: "high", Score: 0.9},
	}})
	results := c.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "low", results[0].Content)
}

func TestOtherControllersMessagesIgnored(t *testing.T) {
	a := New(&fakeSearcher{}, 1)
	b := New(&fakeSearcher{}, 1)
	a.SetQuery("x")
	b.SetQuery("y")
	assert.Nil(t, b.Update(DebounceMsg{ID: a.ID(), Seq: 1}))
	assert.False(t, b.Loading())
}

// =============================================================================
// FAILURES
// =============================================================================

func TestFailureClearsResultsAndNotifies(t *testing.T) {
	f := &fakeSearcher{}
	n := &notes{}
	c := New(f, 1).WithDebounce(0).WithNotifier(n)

	c.Update(c.Update(c.SetQuery("x")())())
	require.NotEmpty(t, c.Results())

	f.err = errors.New("vector store down")
	c.Update(c.Update(c.SetQuery("xy")())())
	assert.Empty(t, c.Results())
	assert.EqualError(t, c.Err(), "vector store down")
	require.Len(t, n.errs, 1)
	assert.Len(t, f.calls(), 2, "no retry")
}
