// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package search runs knowledge-base lookups as the user types.
//
// Every keystroke bumps a sequence number and schedules a DebounceMsg. Only
// the tick carrying the latest sequence issues a lookup, and only the
// response to the latest issued lookup is shown, so results never go
// backwards when responses arrive out of order.
package search

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/assist-tui/internal/api"
	"github.com/jeranaias/assist-tui/internal/logging"
	"github.com/jeranaias/assist-tui/internal/metrics"
)

// DefaultDebounce is the quiet period after the last keystroke.
const DefaultDebounce = 500 * time.Millisecond

// Searcher performs one lookup. *api.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, assistantID int64, query string) ([]api.SearchResult, error)
}

// Notifier receives lookup failures.
type Notifier interface {
	NotifyError(err error)
}

// DebounceMsg fires when the quiet period after keystroke Seq has passed.
type DebounceMsg struct {
	ID  int
	Seq uint64
}

// ResultMsg carries the response to lookup Seq.
type ResultMsg struct {
	ID      int
	Seq     uint64
	Query   string
	Results []api.SearchResult
	Err     error
}

var lastID int64

// Controller holds the query being typed and the results on screen.
type Controller struct {
	mu sync.Mutex

	id          int
	backend     Searcher
	assistantID int64
	debounce    time.Duration
	ctx         context.Context
	notifier    Notifier
	metrics     *metrics.Metrics
	log         *logging.Logger

	pending string
	seq     uint64
	issued  uint64
	query   string
	results []api.SearchResult
	loading bool
	err     error
}

// New creates a controller searching assistantID's knowledge base.
func New(backend Searcher, assistantID int64) *Controller {
	return &Controller{
		id:          int(atomic.AddInt64(&lastID, 1)),
		backend:     backend,
		assistantID: assistantID,
		debounce:    DefaultDebounce,
		ctx:         context.Background(),
		log:         logging.Default().Component("search"),
	}
}

// WithDebounce changes the quiet period. Zero issues the lookup on the
// next message loop turn.
func (c *Controller) WithDebounce(d time.Duration) *Controller {
	if d >= 0 {
		c.debounce = d
	}
	return c
}

// WithContext bounds lookups to ctx.
func (c *Controller) WithContext(ctx context.Context) *Controller {
	c.ctx = ctx
	return c
}

// WithNotifier sets where failures are reported.
func (c *Controller) WithNotifier(n Notifier) *Controller {
	c.notifier = n
	return c
}

// WithMetrics records lookup outcomes.
func (c *Controller) WithMetrics(m *metrics.Metrics) *Controller {
	c.metrics = m
	return c
}

// SetQuery records a keystroke. The pending text changes immediately; the
// lookup waits for the debounce tick. A blank query clears the results and
// makes every in-flight lookup stale.
func (c *Controller) SetQuery(text string) tea.Cmd {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = text
	c.seq++

	if strings.TrimSpace(text) == "" {
		c.issued = c.seq
		c.query = ""
		c.results = nil
		c.loading = false
		c.err = nil
		return nil
	}

	msg := DebounceMsg{ID: c.id, Seq: c.seq}
	if c.debounce == 0 {
		return func() tea.Msg { return msg }
	}
	return tea.Tick(c.debounce, func(time.Time) tea.Msg { return msg })
}

// Update handles this controller's DebounceMsg and ResultMsg.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case DebounceMsg:
		if msg.ID != c.id {
			return nil
		}
		return c.fire(msg.Seq)
	case ResultMsg:
		if msg.ID != c.id {
			return nil
		}
		c.apply(msg)
	}
	return nil
}

// fire issues the lookup for keystroke seq if nothing was typed since.
func (c *Controller) fire(seq uint64) tea.Cmd {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		c.metrics.RecordLookup("superseded")
		return nil
	}
	query := strings.TrimSpace(c.pending)
	if query == "" {
		c.mu.Unlock()
		return nil
	}
	c.issued = seq
	c.loading = true
	ctx, backend, assistantID, id := c.ctx, c.backend, c.assistantID, c.id
	c.mu.Unlock()

	c.log.Debug().Uint64("seq", seq).Str("query", query).Msg("lookup")
	return func() tea.Msg {
		results, err := backend.Search(ctx, assistantID, query)
		return ResultMsg{ID: id, Seq: seq, Query: query, Results: results, Err: err}
	}
}

func (c *Controller) apply(msg ResultMsg) {
	c.mu.Lock()
	if current := c.issued; msg.Seq != current {
		c.mu.Unlock()
		c.metrics.RecordLookup("stale")
		c.log.Debug().Uint64("seq", msg.Seq).Uint64("current", current).Msg("stale lookup dropped")
		return
	}
	c.loading = false
	c.query = msg.Query
	if msg.Err != nil {
		c.results = nil
		c.err = msg.Err
		c.mu.Unlock()
		c.metrics.RecordLookup("failed")
		c.log.Warn().Err(msg.Err).Msg("lookup failed")
		if c.notifier != nil {
			c.notifier.NotifyError(msg.Err)
		}
		return
	}
	c.results = msg.Results
	c.err = nil
	c.mu.Unlock()
	c.metrics.RecordLookup("applied")
}

// Pending returns the text typed so far.
func (c *Controller) Pending() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Query returns the query whose results are shown.
func (c *Controller) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Results returns the displayed results in server order.
func (c *Controller) Results() []api.SearchResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]api.SearchResult, len(c.results))
	copy(out, c.results)
	return out
}

// Loading reports whether the latest lookup is outstanding.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the failure of the latest lookup, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Debounce returns the quiet period.
func (c *Controller) Debounce() time.Duration { return c.debounce }

// ID distinguishes this controller's messages from others.
func (c *Controller) ID() int { return c.id }
