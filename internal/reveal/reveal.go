// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reveal animates text as if it were being typed.
//
// A Scheduler owns one piece of text and how much of it is visible. Each
// tick reveals a few more characters until the whole text is shown, then
// the ticks stop. Replacing the text or stopping the scheduler bumps a
// generation counter so ticks already in flight are ignored.
package reveal

import (
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	// DefaultInterval is the delay between ticks.
	DefaultInterval = 20 * time.Millisecond

	// ShortText is the longest text revealed one character per tick.
	ShortText = 100

	slowRate = 1
	fastRate = 3
)

var lastID int64

func nextID() int { return int(atomic.AddInt64(&lastID, 1)) }

// CharsPerTick returns how many characters each tick reveals for text.
func CharsPerTick(text string) int {
	if len([]rune(text)) <= ShortText {
		return slowRate
	}
	return fastRate
}

// TickMsg advances the scheduler identified by ID. Ticks from an older
// generation are dropped.
type TickMsg struct {
	ID  int
	Gen uint64
}

// DoneMsg is emitted once when the whole text has been revealed.
type DoneMsg struct {
	ID int
}

// Scheduler reveals one text incrementally.
type Scheduler struct {
	mu       sync.Mutex
	id       int
	interval time.Duration
	text     []rune
	revealed int
	gen      uint64
	active   bool
}

// New creates an idle scheduler. A non-positive interval uses
// DefaultInterval.
func New(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{id: nextID(), interval: interval}
}

// ID distinguishes this scheduler's ticks from others in the same program.
func (s *Scheduler) ID() int { return s.id }

// Start resets the visible length to zero and schedules the first tick.
// Empty text completes immediately.
func (s *Scheduler) Start(text string) tea.Cmd {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.text = []rune(text)
	s.revealed = 0
	s.active = len(s.text) > 0
	if !s.active {
		id := s.id
		return func() tea.Msg { return DoneMsg{ID: id} }
	}
	return s.tickLocked()
}

// SetText restarts the animation when text differs from the current text
// and is a no-op otherwise.
func (s *Scheduler) SetText(text string) tea.Cmd {
	s.mu.Lock()
	same := string(s.text) == text && (s.active || s.revealed > 0)
	s.mu.Unlock()
	if same {
		return nil
	}
	return s.Start(text)
}

// Stop cancels the animation. Ticks already scheduled are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.active = false
}

// Finish shows the whole text at once and cancels pending ticks.
func (s *Scheduler) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.revealed = len(s.text)
	s.active = false
}

// Update handles this scheduler's TickMsg and returns the next tick, or
// a DoneMsg command on completion.
func (s *Scheduler) Update(msg tea.Msg) tea.Cmd {
	tick, ok := msg.(TickMsg)
	if !ok || tick.ID != s.id {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tick.Gen != s.gen || !s.active {
		return nil
	}
	s.stepLocked()
	if s.active {
		return s.tickLocked()
	}
	id := s.id
	return func() tea.Msg { return DoneMsg{ID: id} }
}

// Step advances one tick synchronously. It reports false when there was
// nothing left to reveal.
func (s *Scheduler) Step() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return false
	}
	s.stepLocked()
	return true
}

func (s *Scheduler) stepLocked() {
	rate := slowRate
	if len(s.text) > ShortText {
		rate = fastRate
	}
	s.revealed += rate
	if s.revealed >= len(s.text) {
		s.revealed = len(s.text)
		s.active = false
	}
}

func (s *Scheduler) tickLocked() tea.Cmd {
	msg := TickMsg{ID: s.id, Gen: s.gen}
	return tea.Tick(s.interval, func(time.Time) tea.Msg { return msg })
}

// Visible returns the revealed prefix.
func (s *Scheduler) Visible() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.text[:s.revealed])
}

// Text returns the full text.
func (s *Scheduler) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.text)
}

// Revealed returns how many characters are visible.
func (s *Scheduler) Revealed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revealed
}

// Len returns the full text length in characters.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.text)
}

// Active reports whether more ticks are expected.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Done reports whether the whole text is visible.
func (s *Scheduler) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revealed == len(s.text)
}
