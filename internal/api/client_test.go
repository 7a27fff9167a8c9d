// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/assist-tui/internal/api"
	"github.com/jeranaias/assist-tui/internal/apitest"
	"github.com/jeranaias/assist-tui/internal/metrics"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "correct horse"
)

// mutableToken lets tests swap the token between calls.
type mutableToken struct {
	v atomic.Value
}

func (m *mutableToken) Token() string {
	s, _ := m.v.Load().(string)
	return s
}

func (m *mutableToken) Set(s string) { m.v.Store(s) }

func newBackend(t *testing.T) (*apitest.Server, *api.Client, *mutableToken) {
	t.Helper()
	srv := apitest.New(t)
	srv.AddUser(testEmail, "Ada Lovelace", testPassword)
	tok := &mutableToken{}
	return srv, api.NewClient(srv.URL(), tok), tok
}

func login(t *testing.T, c *api.Client, tok *mutableToken) {
	t.Helper()
	resp, err := c.Login(context.Background(), api.Credentials{Email: testEmail, Password: testPassword})
	require.NoError(t, err)
	tok.Set(resp.AccessToken)
}

func sampleInput() api.AssistantInput {
	return api.AssistantInput{
		Name:           "Helpdesk",
		URL:            "https://help.example.com",
		Mission:        "Answer billing questions",
		OperatorName:   "Grace",
		Authorizations: []api.Authorization{"can_read_documents"},
	}
}

// =============================================================================
// AUTH
// =============================================================================

func TestLogin(t *testing.T) {
	_, c, tok := newBackend(t)
	login(t, c, tok)
	assert.NotEmpty(t, tok.Token())

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testEmail, me.Email)
	assert.Equal(t, "Ada Lovelace", me.FullName)
}

func TestLogin_RejectedIsAuthErrorWithServerMessage(t *testing.T) {
	_, c, _ := newBackend(t)

	_, err := c.Login(context.Background(), api.Credentials{Email: testEmail, Password: "wrong"})
	var authErr *api.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
	assert.Equal(t, "Incorrect email or password", authErr.Error())
}

func TestLogin_BlankFieldsNeverSent(t *testing.T) {
	srv, c, _ := newBackend(t)

	_, err := c.Login(context.Background(), api.Credentials{Email: " ", Password: "x"})
	var vErr *api.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "email", vErr.Field)
	assert.Zero(t, srv.Calls(http.MethodPost, "/auth/login"))
}

func TestRegister(t *testing.T) {
	_, c, _ := newBackend(t)
	ctx := context.Background()

	u, err := c.Register(ctx, api.Registration{Email: "grace@example.com", FullName: "Grace Hopper", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", u.Email)

	_, err = c.Register(ctx, api.Registration{Email: "grace@example.com", FullName: "Grace Hopper", Password: "pw"})
	var authErr *api.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Email already registered", authErr.Message)

	_, err = c.Register(ctx, api.Registration{Email: "nope", FullName: "X", Password: "pw"})
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "email: value is not a valid email address", authErr.Message)
}

func TestAuthenticatedCallWithoutToken(t *testing.T) {
	srv, c, _ := newBackend(t)

	_, err := c.Me(context.Background())
	assert.ErrorIs(t, err, api.ErrNotAuthenticated)
	assert.Zero(t, srv.Calls(http.MethodGet, "/users/me"))
}

func TestTokenReadOnEveryCall(t *testing.T) {
	_, c, tok := newBackend(t)
	login(t, c, tok)

	_, err := c.Me(context.Background())
	require.NoError(t, err)

	tok.Set("")
	_, err = c.Me(context.Background())
	assert.ErrorIs(t, err, api.ErrNotAuthenticated)
}

func TestLogoutRevokesToken(t *testing.T) {
	srv, c, tok := newBackend(t)
	login(t, c, tok)
	token := tok.Token()

	require.NoError(t, c.Logout(context.Background()))
	assert.True(t, srv.Revoked(token))

	_, err := c.Me(context.Background())
	assert.True(t, api.IsSessionExpired(err), "revoked token should read as expired, got %v", err)
}

func TestExpiredTokenIsSessionExpired(t *testing.T) {
	srv, c, tok := newBackend(t)
	tok.Set(srv.Token(testEmail, -time.Minute))

	_, err := c.ListAssistants(context.Background())
	var se *api.SessionExpiredError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Status)
}

// =============================================================================
// ERRORS
// =============================================================================

func TestErrorTaxonomy(t *testing.T) {
	srv, c, tok := newBackend(t)
	login(t, c, tok)
	ctx := context.Background()

	srv.Fail(http.MethodGet, "/users/me", http.StatusForbidden, "Token has expired")
	_, err := c.Me(ctx)
	assert.True(t, api.IsSessionExpired(err))

	srv.Fail(http.MethodGet, "/users/me", http.StatusForbidden, "Not authorized to access this help assistant")
	_, err = c.Me(ctx)
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "/users/me", apiErr.Path)

	srv.Fail(http.MethodGet, "/users/me", http.StatusInternalServerError, "boom")
	_, err = c.Me(ctx)
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, err.Error(), "boom")

	srv.Fail(http.MethodGet, "/users/me", 0, "")
	_, err = c.Me(ctx)
	var netErr *api.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, api.IsNetwork(err))
}

func TestUnreachableServerIsNetworkError(t *testing.T) {
	srv, c, tok := newBackend(t)
	login(t, c, tok)
	srv.Close()

	_, err := c.Me(context.Background())
	assert.True(t, api.IsNetwork(err), "got %v", err)
}

func TestInvalidResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/login":
			w.Write([]byte(`{"token_type": "bearer"}`))
		default:
			w.Write([]byte(`{not json`))
		}
	}))
	defer ts.Close()

	c := api.NewClient(ts.URL, api.StaticToken("t"))
	_, err := c.Login(context.Background(), api.Credentials{Email: "a@b.c", Password: "x"})
	assert.ErrorIs(t, err, api.ErrInvalidResponse)

	_, err = c.Me(context.Background())
	assert.ErrorIs(t, err, api.ErrInvalidResponse)
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"id": 1, "email": "a@b.c", "full_name": "A"}`))
	}))
	defer ts.Close()

	c := api.NewClient(ts.URL, api.StaticToken("secret-token")).WithUserAgent("assist-test/1.0")
	_, err := c.Me(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", got.Get("Authorization"))
	assert.Equal(t, "assist-test/1.0", got.Get("User-Agent"))
	assert.Len(t, got.Get(api.RequestIDHeader), 36)
}

func TestMetricsRecorded(t *testing.T) {
	_, c, tok := newBackend(t)
	m := metrics.New()
	c.WithMetrics(m)
	login(t, c, tok)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("POST", "/auth/login", "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RequestsInFlight))
}

func TestRateLimitRespectsContext(t *testing.T) {
	_, c, tok := newBackend(t)
	login(t, c, tok)
	c.WithRateLimit(0.001)

	_, err := c.Me(context.Background()) // consumes the burst
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Me(ctx)
	assert.True(t, api.IsNetwork(err), "got %v", err)
}

// =============================================================================
// ASSISTANTS
// =============================================================================

func TestAssistantCRUD(t *testing.T) {
	_, c, tok := newBackend(t)
	login(t, c, tok)
	ctx := context.Background()

	created, err := c.CreateAssistant(ctx, sampleInput())
	require.NoError(t, err)
	assert.Equal(t, api.DefaultTone, created.Tone)
	assert.True(t, created.HasAuthorization(api.AuthCanReadDocuments))
	assert.NotEmpty(t, created.OperatorPic)

	list, err := c.ListAssistants(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	in := api.InputFrom(created)
	in.Tone = "friendly"
	updated, err := c.UpdateAssistant(ctx, created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "FRIENDLY", updated.Tone)

	got, err := c.GetAssistant(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "FRIENDLY", got.Tone)

	require.NoError(t, c.DeleteAssistant(ctx, created.ID))
	_, err = c.GetAssistant(ctx, created.ID)
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Help assistant not found", apiErr.Message)
}

func TestAssistantValidation(t *testing.T) {
	srv, c, tok := newBackend(t)
	login(t, c, tok)

	in := sampleInput()
	in.Mission = "  "
	_, err := c.CreateAssistant(context.Background(), in)
	var vErr *api.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "mission", vErr.Field)

	in = sampleInput()
	in.Authorizations = []api.Authorization{"CAN_LAUNCH_MISSILES"}
	_, err = c.CreateAssistant(context.Background(), in)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "authorizations", vErr.Field)

	in = sampleInput()
	in.URL = "help.example.com"
	_, err = c.CreateAssistant(context.Background(), in)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "url", vErr.Field)

	assert.Zero(t, srv.Calls(http.MethodPost, "/help-assistant"))
}

func TestOtherUsersAssistantForbidden(t *testing.T) {
	srv, c, tok := newBackend(t)
	srv.AddUser("mallory@example.com", "Mallory", "pw")
	theirs := srv.AddAssistant("mallory@example.com", api.Assistant{Name: "Theirs"})
	login(t, c, tok)

	_, err := c.GetAssistant(context.Background(), theirs.ID)
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.False(t, api.IsSessionExpired(err))
}

func TestTonesAndModels(t *testing.T) {
	_, c, tok := newBackend(t)
	login(t, c, tok)

	tones, err := c.Tones(context.Background())
	require.NoError(t, err)
	require.Len(t, tones, 3)
	assert.Equal(t, "CONCISE", tones[0].Name)

	models, err := c.Models(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "mistral-small", models[0].ID)
}

// =============================================================================
// CHAT
// =============================================================================

func TestChatInitAndSend(t *testing.T) {
	srv, c, tok := newBackend(t)
	a := srv.AddAssistant(testEmail, api.Assistant{Name: "Helpdesk", OperatorName: "Grace"})
	login(t, c, tok)
	ctx := context.Background()

	init, err := c.InitChat(ctx, a.ID)
	require.NoError(t, err)
	assert.Positive(t, init.ChatID)
	assert.Equal(t, "Grace", init.Assistant.DisplayName())
	assert.Empty(t, init.Messages)

	reply, err := c.SendMessage(ctx, a.ID, init.ChatID, "hello")
	require.NoError(t, err)
	assert.Equal(t, "Grace here. You said: hello", reply.Message.Content)
	assert.False(t, reply.Message.CreatedAt.IsZero(), "naive timestamps must parse")

	again, err := c.InitChat(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, init.ChatID, again.ChatID)
	require.Len(t, again.Messages, 2)
	assert.Equal(t, api.EmitterUser, again.Messages[0].Emitter)
	assert.Equal(t, api.EmitterAssistant, again.Messages[1].Emitter)
}

func TestSendMessageValidation(t *testing.T) {
	_, c, tok := newBackend(t)
	login(t, c, tok)

	_, err := c.SendMessage(context.Background(), 1, 0, "hi")
	var vErr *api.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "chat_id", vErr.Field)

	_, err = c.SendMessage(context.Background(), 1, 5, " \n ")
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "content", vErr.Field)
}

// =============================================================================
// FILES & SEARCH
// =============================================================================

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestFileLifecycle(t *testing.T) {
	srv, c, tok := newBackend(t)
	a := srv.AddAssistant(testEmail, api.Assistant{Name: "Helpdesk"})
	login(t, c, tok)
	ctx := context.Background()

	const doc = "# Billing\n\nInvoices go out monthly.\n"
	path := writeTemp(t, "guide.md", doc)
	f, err := c.UploadFile(ctx, a.ID, path)
	require.NoError(t, err)
	assert.Equal(t, "guide.md", f.Filename)
	assert.Equal(t, int64(len(doc)), f.FileSize)
	assert.True(t, strings.HasPrefix(f.FileType, "text/plain"), f.FileType)

	files, err := c.ListFiles(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)

	var buf bytes.Buffer
	n, err := c.DownloadFile(ctx, a.ID, f.ID, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(doc)), n)
	assert.Contains(t, buf.String(), "Invoices")

	link, err := c.DownloadURL(a.ID, f.ID)
	require.NoError(t, err)
	assert.Contains(t, link, "/download?token=")
	resp, err := http.Get(link)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, c.DeleteFile(ctx, a.ID, f.ID))
	_, err = c.DownloadFile(ctx, a.ID, f.ID, &buf)
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestUploadRejectsExtension(t *testing.T) {
	srv, c, tok := newBackend(t)
	login(t, c, tok)

	_, err := c.UploadFile(context.Background(), 1, writeTemp(t, "payload.exe", "MZ"))
	var vErr *api.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, ".pdf, .md, .txt")
	assert.Zero(t, srv.Calls(http.MethodPost, "/help-assistant/:id/files"))
}

func TestSearchNormalizesResults(t *testing.T) {
	srv, c, tok := newBackend(t)
	a := srv.AddAssistant(testEmail, api.Assistant{Name: "Helpdesk"})
	srv.SetSearchResults("refunds", []map[string]any{
		{"content": "Refunds take 5 days", "score": 1.7, "metadata": map[string]any{"source": "policy.pdf"}},
		{"content": "", "score": 0.5},
		{"content": "Contact billing", "score": -0.2, "metadata": map[string]any{"document_name": "faq.md"}},
	})
	login(t, c, tok)

	results, err := c.Search(context.Background(), a.ID, "  refunds ")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, api.SearchResult{Content: "Refunds take 5 days", Score: 1, Source: "policy.pdf"}, results[0])
	assert.Equal(t, api.SearchResult{Content: "Contact billing", Score: 0, Source: "faq.md"}, results[1])
	assert.Equal(t, []string{"refunds"}, srv.Queries())

	_, err = c.Search(context.Background(), a.ID, " ")
	var vErr *api.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestCollection(t *testing.T) {
	srv, c, tok := newBackend(t)
	a := srv.AddAssistant(testEmail, api.Assistant{Name: "Helpdesk"})
	login(t, c, tok)

	col, err := c.Collection(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, col.AssistantID)
	assert.NotEmpty(t, col.ExternalID)
}
