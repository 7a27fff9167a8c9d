// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TickInterval is how often the TUI checks the token's expiry.
const TickInterval = time.Second

// TickMsg drives expiry checks.
type TickMsg time.Time

// WarningMsg is sent once when the token is about to expire.
type WarningMsg struct {
	Remaining time.Duration
}

// ExpiredMsg is sent when the token has passed its exp claim. The store
// has already been cleared when this message is delivered.
type ExpiredMsg struct {
	Subject string
}

// TickCmd schedules the next expiry check.
func TickCmd() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// HandleTick checks the token and returns the messages due. It returns nil
// when there is nothing to report, including when no token carries an exp
// claim.
func (s *Store) HandleTick() tea.Cmd {
	remaining, ok := s.Remaining()
	if !ok {
		return nil
	}

	if remaining <= 0 {
		subject := s.Subject()
		if err := s.Clear(); err != nil {
			s.log.Warn().Err(err).Msg("clear expired session")
		}
		s.log.Info().Str("subject", subject).Msg("session expired")
		return func() tea.Msg { return ExpiredMsg{Subject: subject} }
	}

	s.mu.Lock()
	due := remaining <= s.warningBefore && !s.warningShown
	if due {
		s.warningShown = true
	}
	s.mu.Unlock()

	if due {
		return func() tea.Msg { return WarningMsg{Remaining: remaining} }
	}
	return nil
}

// SetWarningBefore changes how long before expiry WarningMsg is sent.
func (s *Store) SetWarningBefore(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warningBefore = d
}
