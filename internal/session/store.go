// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jeranaias/assist-tui/internal/api"
	"github.com/jeranaias/assist-tui/internal/logging"
	"github.com/jeranaias/assist-tui/internal/storage"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// KV persists the session between runs. *storage.Store satisfies it.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetMany(ctx context.Context, pairs map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// Authenticator performs the remote half of login, logout and sign-up.
// *api.Client satisfies it.
type Authenticator interface {
	Login(ctx context.Context, creds api.Credentials) (*api.TokenResponse, error)
	Logout(ctx context.Context) error
	Register(ctx context.Context, reg api.Registration) (*api.User, error)
}

// Session is a snapshot of the authenticated identity. Empty strings mean
// absent.
type Session struct {
	Token   string
	Subject string
}

// =============================================================================
// STORE
// =============================================================================

// Store is the single source of truth for whether the user is logged in.
// It implements api.TokenSource, so every outbound call reads the token
// from here at the moment it is sent.
type Store struct {
	mu      sync.RWMutex
	token   string
	subject string

	kv   KV
	auth Authenticator
	log  *logging.Logger

	now           func() time.Time
	warningBefore time.Duration
	warningShown  bool
}

// New creates a store backed by kv. Call Load to restore a previous
// session and Attach before Login/Logout/Register.
func New(kv KV) *Store {
	return &Store{
		kv:            kv,
		log:           logging.Default().Component("session"),
		now:           time.Now,
		warningBefore: 2 * time.Minute,
	}
}

// Attach sets the remote authenticator. It is separate from New because
// the API client itself reads its token from the store.
func (s *Store) Attach(auth Authenticator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = auth
}

// Load restores a persisted session, if any.
func (s *Store) Load(ctx context.Context) error {
	token, _, err := s.kv.Get(ctx, storage.KeyToken)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	subject, _, err := s.kv.Get(ctx, storage.KeyUsername)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.subject = subject
	s.warningShown = false
	return nil
}

func (s *Store) authenticator() (Authenticator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.auth == nil {
		return nil, errors.New("session: no authenticator attached")
	}
	return s.auth, nil
}

// Login sends credentials to the server. On success the token and the
// email are stored and persisted; on failure nothing changes and the error
// is the server's *api.AuthError (or a transport error).
func (s *Store) Login(ctx context.Context, email, password string) (Session, error) {
	auth, err := s.authenticator()
	if err != nil {
		return Session{}, err
	}
	email = strings.TrimSpace(email)

	resp, err := auth.Login(ctx, api.Credentials{Email: email, Password: password})
	if err != nil {
		return Session{}, err
	}

	if err := s.kv.SetMany(ctx, map[string]string{
		storage.KeyToken:    resp.AccessToken,
		storage.KeyUsername: email,
	}); err != nil {
		return Session{}, fmt.Errorf("persist session: %w", err)
	}

	s.mu.Lock()
	s.token = resp.AccessToken
	s.subject = email
	s.warningShown = false
	s.mu.Unlock()

	s.log.Info().Str("subject", email).Msg("logged in")
	return Session{Token: resp.AccessToken, Subject: email}, nil
}

// Register validates the form locally and creates the account. A password
// mismatch or blank field never reaches the network.
func (s *Store) Register(ctx context.Context, email, fullName, password, confirm string) (*api.User, error) {
	reg := api.Registration{
		Email:    strings.TrimSpace(email),
		FullName: strings.TrimSpace(fullName),
		Password: password,
	}
	switch {
	case reg.Email == "":
		return nil, &api.ValidationError{Field: "email", Reason: "required"}
	case reg.FullName == "":
		return nil, &api.ValidationError{Field: "full_name", Reason: "required"}
	case password == "":
		return nil, &api.ValidationError{Field: "password", Reason: "required"}
	case password != confirm:
		return nil, &api.ValidationError{Field: "confirm_password", Reason: "passwords do not match"}
	}

	auth, err := s.authenticator()
	if err != nil {
		return nil, err
	}
	return auth.Register(ctx, reg)
}

// Logout notifies the server best-effort, then clears local state no
// matter what the server said. The remote error is returned for logging
// only; the user is logged out either way.
func (s *Store) Logout(ctx context.Context) error {
	var remoteErr error
	if s.IsAuthenticated() {
		if auth, err := s.authenticator(); err == nil {
			remoteErr = auth.Logout(ctx)
		}
	}
	if remoteErr != nil {
		s.log.Warn().Err(remoteErr).Msg("remote logout failed, clearing local session anyway")
	}

	if err := s.Clear(); err != nil {
		return err
	}
	return remoteErr
}

// Clear drops the token and subject from memory and disk. In-memory state
// is cleared even if the disk write fails.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.subject = ""
	s.warningShown = false
	s.mu.Unlock()

	if err := s.kv.Delete(context.Background(), storage.KeyToken, storage.KeyUsername); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether a token is present.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// Token returns the current bearer token, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Subject returns the logged-in user's email, or "".
func (s *Store) Subject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subject
}

// Current returns a snapshot of the session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Session{Token: s.token, Subject: s.subject}
}

// =============================================================================
// TOKEN EXPIRY
// =============================================================================

// ExpiresAt decodes the token's exp claim. The signature is not verified;
// this only predicts when the server will start rejecting the token.
func (s *Store) ExpiresAt() (time.Time, bool) {
	token := s.Token()
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Remaining returns the time until the token expires. ok is false when
// there is no token or it carries no exp claim.
func (s *Store) Remaining() (time.Duration, bool) {
	exp, ok := s.ExpiresAt()
	if !ok {
		return 0, false
	}
	return exp.Sub(s.now()), true
}

// Expired reports whether the token is present and past its exp.
func (s *Store) Expired() bool {
	remaining, ok := s.Remaining()
	return ok && remaining <= 0
}
