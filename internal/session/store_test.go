// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/assist-tui/internal/api"
	"github.com/jeranaias/assist-tui/internal/apitest"
	"github.com/jeranaias/assist-tui/internal/session"
	"github.com/jeranaias/assist-tui/internal/storage"
)

func newStore(t *testing.T, srv *apitest.Server) (*session.Store, *storage.Store) {
	t.Helper()
	kv, err := storage.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	store := session.New(kv)
	if srv != nil {
		store.Attach(api.NewClient(srv.URL(), store))
	}
	return store, kv
}

// =============================================================================
// LOGIN / LOGOUT
// =============================================================================

func TestLoginStoresTokenAndSubject(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("ada@example.com", "Ada", "pw")
	store, kv := newStore(t, srv)
	ctx := context.Background()

	sess, err := store.Login(ctx, " ada@example.com ", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "ada@example.com", sess.Subject)
	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, sess, store.Current())

	token, ok, err := kv.Get(ctx, storage.KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sess.Token, token)

	subject, _, err := kv.Get(ctx, storage.KeyUsername)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", subject)
}

func TestLoginRejectedLeavesStateUntouched(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("ada@example.com", "Ada", "pw")
	store, kv := newStore(t, srv)

	_, err := store.Login(context.Background(), "ada@example.com", "wrong")
	var authErr *api.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Incorrect email or password", authErr.Message)
	assert.False(t, store.IsAuthenticated())

	keys, err := kv.Keys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLoginWithoutAuthenticator(t *testing.T) {
	store, _ := newStore(t, nil)
	_, err := store.Login(context.Background(), "a@b.c", "pw")
	assert.Error(t, err)
}

func TestLogoutRevokesAndClears(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("ada@example.com", "Ada", "pw")
	store, kv := newStore(t, srv)
	ctx := context.Background()

	sess, err := store.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	require.NoError(t, store.Logout(ctx))
	assert.True(t, srv.Revoked(sess.Token))
	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, store.Subject())

	keys, err := kv.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLogoutClearsEvenWhenServerFails(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("ada@example.com", "Ada", "pw")
	store, kv := newStore(t, srv)
	ctx := context.Background()

	_, err := store.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	srv.Fail(http.MethodPost, "/auth/logout", http.StatusInternalServerError, "boom")
	err = store.Logout(ctx)
	assert.Error(t, err)
	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, store.Token())

	_, ok, err := kv.Get(ctx, storage.KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLogoutClearsWhenServerUnreachable(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("ada@example.com", "Ada", "pw")
	store, _ := newStore(t, srv)
	ctx := context.Background()

	_, err := store.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	srv.Close()
	err = store.Logout(ctx)
	assert.True(t, api.IsNetwork(err))
	assert.False(t, store.IsAuthenticated())
}

func TestLogoutWhenLoggedOutSkipsServer(t *testing.T) {
	srv := apitest.New(t)
	store, _ := newStore(t, srv)

	require.NoError(t, store.Logout(context.Background()))
	assert.Equal(t, 0, srv.Calls(http.MethodPost, "/auth/logout"))
}

func TestLoadRestoresPersistedSession(t *testing.T) {
	kv, err := storage.OpenMemory()
	require.NoError(t, err)
	defer kv.Close()
	ctx := context.Background()

	require.NoError(t, kv.SetMany(ctx, map[string]string{
		storage.KeyToken:    "tok",
		storage.KeyUsername: "ada@example.com",
	}))

	store := session.New(kv)
	assert.False(t, store.IsAuthenticated())
	require.NoError(t, store.Load(ctx))
	assert.Equal(t, "tok", store.Token())
	assert.Equal(t, "ada@example.com", store.Subject())
}

// =============================================================================
// REGISTER
// =============================================================================

func TestRegisterValidatesBeforeCalling(t *testing.T) {
	srv := apitest.New(t)
	store, _ := newStore(t, srv)
	ctx := context.Background()

	tests := []struct {
		name                            string
		email, fullName, pass, confirm string
		field                           string
	}{
		{"blank email", " ", "Ada", "pw", "pw", "email"},
		{"blank name", "a@b.c", "", "pw", "pw", "full_name"},
		{"blank password", "a@b.c", "Ada", "", "", "password"},
		{"mismatch", "a@b.c", "Ada", "pw", "pw2", "confirm_password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Register(ctx, tt.email, tt.fullName, tt.pass, tt.confirm)
			var vErr *api.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
	assert.Equal(t, 0, srv.Calls(http.MethodPost, "/users"))
}

func TestRegisterCreatesAccountWithoutLoggingIn(t *testing.T) {
	srv := apitest.New(t)
	store, _ := newStore(t, srv)
	ctx := context.Background()

	u, err := store.Register(ctx, "grace@example.com", "Grace", "pw", "pw")
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", u.Email)
	assert.False(t, store.IsAuthenticated())

	_, err = store.Register(ctx, "grace@example.com", "Grace", "pw", "pw")
	var authErr *api.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Email already registered", authErr.Message)
}

// =============================================================================
// ROUTE GUARD
// =============================================================================

func TestResolve(t *testing.T) {
	tests := []struct {
		route         session.Route
		authenticated bool
		want          session.Route
	}{
		{session.RouteDashboard, false, session.RouteLogin},
		{session.RouteChat, false, session.RouteLogin},
		{session.RouteProfile, false, session.RouteLogin},
		{session.RouteAssistant, false, session.RouteLogin},
		{session.RouteDashboard, true, session.RouteDashboard},
		{session.RouteChat, true, session.RouteChat},

		{session.RouteLogin, true, session.RouteDashboard},
		{session.RouteRegister, true, session.RouteDashboard},
		{session.RouteLanding, true, session.RouteDashboard},
		{session.RouteLogin, false, session.RouteLogin},
		{session.RouteRegister, false, session.RouteRegister},
		{session.RouteLanding, false, session.RouteLanding},

		{"/nowhere", false, session.RouteLanding},
		{"/nowhere", true, session.RouteDashboard},
	}
	for _, tt := range tests {
		got := session.Resolve(tt.route, tt.authenticated)
		if got != tt.want {
			t.Errorf("Resolve(%q, %v) = %q, want %q", tt.route, tt.authenticated, got, tt.want)
		}
	}
}

func TestGuardFollowsStore(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("ada@example.com", "Ada", "pw")
	store, _ := newStore(t, srv)
	ctx := context.Background()

	assert.Equal(t, session.RouteLogin, store.Guard(session.RouteChat))

	_, err := store.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, session.RouteChat, store.Guard(session.RouteChat))
	assert.Equal(t, session.RouteDashboard, store.Guard(session.RouteLogin))

	require.NoError(t, store.Clear())
	assert.Equal(t, session.RouteLogin, store.Guard(session.RouteChat))
}

// =============================================================================
// EXPIRY
// =============================================================================

func loadToken(t *testing.T, token string) *session.Store {
	t.Helper()
	kv, err := storage.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	require.NoError(t, kv.Set(context.Background(), storage.KeyToken, token))
	store := session.New(kv)
	require.NoError(t, store.Load(context.Background()))
	return store
}

func TestExpiresAtDecodesClaim(t *testing.T) {
	srv := apitest.New(t)
	store := loadToken(t, srv.Token("ada@example.com", time.Hour))

	exp, ok := store.ExpiresAt()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)
	assert.False(t, store.Expired())
}

func TestExpiresAtOpaqueToken(t *testing.T) {
	store := loadToken(t, "not-a-jwt")
	_, ok := store.ExpiresAt()
	assert.False(t, ok)
	assert.False(t, store.Expired())
	assert.Nil(t, store.HandleTick())
}

func TestHandleTickExpires(t *testing.T) {
	srv := apitest.New(t)
	store := loadToken(t, srv.Token("ada@example.com", -time.Minute))
	assert.True(t, store.Expired())

	cmd := store.HandleTick()
	require.NotNil(t, cmd)
	_, ok := cmd().(session.ExpiredMsg)
	assert.True(t, ok)
	assert.False(t, store.IsAuthenticated())
}

func TestHandleTickWarnsOnce(t *testing.T) {
	srv := apitest.New(t)
	store := loadToken(t, srv.Token("ada@example.com", time.Minute))
	store.SetWarningBefore(5 * time.Minute)

	cmd := store.HandleTick()
	require.NotNil(t, cmd)
	msg, ok := cmd().(session.WarningMsg)
	require.True(t, ok)
	assert.True(t, msg.Remaining > 0)

	assert.Nil(t, store.HandleTick())
	assert.True(t, store.IsAuthenticated())
}

func TestTickCmd(t *testing.T) {
	if session.TickCmd() == nil {
		t.Fatal("TickCmd returned nil")
	}
}

var _ api.TokenSource = (*session.Store)(nil)
var _ session.Authenticator = (*api.Client)(nil)
var _ session.KV = (*storage.Store)(nil)

