// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/assist-tui/internal/api"
	"github.com/jeranaias/assist-tui/internal/apitest"
	"github.com/jeranaias/assist-tui/internal/config"
	"github.com/jeranaias/assist-tui/internal/logging"
	"github.com/jeranaias/assist-tui/internal/session"
	"github.com/jeranaias/assist-tui/internal/storage"
)

const testEmail = "ada@example.com"

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		bools    []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"list"},
			wantSub: "list",
		},
		{
			name:    "flag with value",
			args:    []string{"download", "7", "--out", "a.pdf"},
			wantSub: "download",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("out") != "a.pdf" {
					t.Errorf("Flag(out) = %q, want %q", p.Flag("out"), "a.pdf")
				}
				if p.Positional(1) != "7" {
					t.Errorf("Positional(1) = %q, want %q", p.Positional(1), "7")
				}
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"create", "--name=Support Bot"},
			wantSub: "create",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("name") != "Support Bot" {
					t.Errorf("Flag(name) = %q", p.Flag("name"))
				}
			},
		},
		{
			name:    "declared boolean does not swallow the next word",
			args:    []string{"delete", "--yes", "3"},
			bools:   []string{"yes"},
			wantSub: "delete",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("yes") {
					t.Error("BoolFlag(yes) should be true")
				}
				if p.Positional(1) != "3" {
					t.Errorf("Positional(1) = %q, want %q", p.Positional(1), "3")
				}
			},
		},
		{
			name:    "dash is a value for --out",
			args:    []string{"download", "7", "--out", "-"},
			wantSub: "download",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("out") != "-" {
					t.Errorf("Flag(out) = %q, want %q", p.Flag("out"), "-")
				}
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"3", "--", "--not-a-flag"},
			wantSub: "3",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Positional(1) != "--not-a-flag" {
					t.Errorf("Positional(1) = %q", p.Positional(1))
				}
				if p.HasFlag("not-a-flag") {
					t.Error("HasFlag(not-a-flag) should be false")
				}
			},
		},
		{
			name:    "empty",
			args:    nil,
			wantSub: "",
			validate: func(t *testing.T, p *ArgParser) {
				if p.PositionalCount() != 0 {
					t.Errorf("PositionalCount() = %d", p.PositionalCount())
				}
				if got := p.PositionalFrom(1); len(got) != 0 {
					t.Errorf("PositionalFrom(1) = %v", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args, tt.bools...)
			if p.Subcommand() != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", p.Subcommand(), tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"3", 3, false},
		{"", 0, true},
		{"0", 0, true},
		{"-2", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseID(tt.in, "assistant id", "assist chat 3")
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseID(%q) = %d, want %d", tt.in, got, tt.want)
		}
		if err != nil && GetExitCode(err) != ExitUsageError {
			t.Errorf("ParseID(%q) exit code = %d, want %d", tt.in, GetExitCode(err), ExitUsageError)
		}
	}
}

// =============================================================================
// COMMAND PARSING TESTS (cli.go)
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		argv    []string
		want    Command
		wantRaw []string
		check   func(*testing.T, Args)
	}{
		{argv: nil, want: CmdTUI},
		{argv: []string{"login", "--email", "a@b.c"}, want: CmdLogin, wantRaw: []string{"--email", "a@b.c"}},
		{argv: []string{"assistants", "show", "3"}, want: CmdAssistants, wantRaw: []string{"show", "3"}},
		{argv: []string{"files", "3", "list"}, want: CmdFiles, wantRaw: []string{"3", "list"}},
		{argv: []string{"search", "3", "refund", "policy"}, want: CmdSearch, wantRaw: []string{"3", "refund", "policy"}},
		{argv: []string{"chat", "3", "--plain"}, want: CmdChat, wantRaw: []string{"3", "--plain"}},
		{argv: []string{"--version"}, want: CmdVersion},
		{argv: []string{"frobnicate"}, want: CmdUnknown},
		{
			argv:    []string{"--json", "whoami", "--api", "http://h/api/v1", "-q"},
			want:    CmdWhoami,
			wantRaw: []string{},
			check: func(t *testing.T, a Args) {
				if !a.JSON || !a.Quiet {
					t.Errorf("JSON=%v Quiet=%v, want both true", a.JSON, a.Quiet)
				}
				if a.APIURL != "http://h/api/v1" {
					t.Errorf("APIURL = %q", a.APIURL)
				}
			},
		},
		{
			argv: []string{"--api=http://x/api/v1", "logout", "--verbose"},
			want: CmdLogout,
			check: func(t *testing.T, a Args) {
				if a.APIURL != "http://x/api/v1" || !a.Verbose {
					t.Errorf("APIURL=%q Verbose=%v", a.APIURL, a.Verbose)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.argv, " "), func(t *testing.T) {
			cmd, args := Parse(tt.argv)
			if cmd != tt.want {
				t.Errorf("Parse(%v) = %v, want %v", tt.argv, cmd, tt.want)
			}
			if tt.wantRaw != nil && strings.Join(args.Raw, " ") != strings.Join(tt.wantRaw, " ") {
				t.Errorf("Raw = %v, want %v", args.Raw, tt.wantRaw)
			}
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestChatTarget(t *testing.T) {
	_, args := Parse([]string{"chat", "--plain", "12"})
	id, plain, err := ChatTarget(args)
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
	assert.True(t, plain)

	_, args = Parse([]string{"chat"})
	_, _, err = ChatTarget(args)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

// =============================================================================
// EXIT CODE TESTS (errors.go)
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"cli validation", ErrMissingArgument("id", "x"), ExitUsageError},
		{"api validation", &api.ValidationError{Field: "name", Reason: "required"}, ExitUsageError},
		{"tty required", &TTYRequiredError{Operation: "prompt"}, ExitUsageError},
		{"config", config.ValidateErrors{{Field: "api.base_url", Message: "bad"}}, ExitConfigError},
		{"expired", &api.SessionExpiredError{Status: 401, Message: "expired"}, ExitAuthError},
		{"auth", &api.AuthError{Status: 401, Message: "Incorrect email or password"}, ExitAuthError},
		{"not authenticated", api.ErrNotAuthenticated, ExitAuthError},
		{"timeout", fmt.Errorf("call: %w", context.DeadlineExceeded), ExitTimeoutError},
		{"network", &api.NetworkError{Op: "GET /users/me", Err: errors.New("refused")}, ExitNetworkError},
		{"local not found", &NotFoundError{Resource: "file", ID: "9"}, ExitNotFoundError},
		{"api 404", &api.APIError{Status: http.StatusNotFound}, ExitNotFoundError},
		{"api 403", &api.APIError{Status: http.StatusForbidden}, ExitAuthError},
		{"api 422", &api.APIError{Status: http.StatusUnprocessableEntity}, ExitUsageError},
		{"api 500", &api.APIError{Status: http.StatusInternalServerError}, ExitGeneralError},
		{"cancelled", ErrCancelled, ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// =============================================================================
// COMMAND TESTS
// =============================================================================

type fixture struct {
	srv   *apitest.Server
	store *session.Store
	env   *Env
	out   *bytes.Buffer
	errs  *bytes.Buffer
}

func newFixture(t *testing.T, loggedIn bool) *fixture {
	t.Helper()
	t.Setenv("ASSIST_HOME", t.TempDir())

	srv := apitest.New(t)
	srv.AddUser(testEmail, "Ada Lovelace", "pw")

	kv, err := storage.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	store := session.New(kv)
	client := api.NewClient(srv.URL(), store)
	store.Attach(client)
	if loggedIn {
		_, err := store.Login(context.Background(), testEmail, "pw")
		require.NoError(t, err)
	}

	f := &fixture{srv: srv, store: store, out: &bytes.Buffer{}, errs: &bytes.Buffer{}}
	f.env = &Env{
		Out:     f.out,
		Err:     f.errs,
		In:      strings.NewReader(""),
		Config:  config.Default(),
		Session: store,
		Client:  client,
		Log:     logging.Nop(),
		ReadPassword: func(string) (string, error) {
			return "pw", nil
		},
	}
	return f
}

// run executes argv and returns the exit code.
func (f *fixture) run(argv ...string) int {
	cmd, args := Parse(argv)
	return Main(context.Background(), f.env, cmd, args)
}

// runJSON executes argv with --json and decodes the envelope.
func (f *fixture) runJSON(t *testing.T, argv ...string) (int, JSONResponse, json.RawMessage) {
	t.Helper()
	f.out.Reset()
	code := f.run(append([]string{"--json"}, argv...)...)

	var envelope struct {
		JSONResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(f.out.Bytes(), &envelope), f.out.String())
	return code, envelope.JSONResponse, envelope.Data
}

func TestLoginStoresSession(t *testing.T) {
	f := newFixture(t, false)

	code := f.run("login", "--email", testEmail)

	require.Equal(t, ExitSuccess, code, f.errs.String())
	assert.True(t, f.store.IsAuthenticated())
	assert.Equal(t, testEmail, f.store.Subject())
	assert.Contains(t, f.out.String(), "Logged in as "+testEmail)
}

func TestLoginRejectedExitsWithAuthCode(t *testing.T) {
	f := newFixture(t, false)
	f.env.ReadPassword = func(string) (string, error) { return "wrong", nil }

	code := f.run("login", testEmail)

	assert.Equal(t, ExitAuthError, code)
	assert.False(t, f.store.IsAuthenticated())
	assert.Contains(t, f.errs.String(), "Incorrect email or password")
}

func TestLoginWithoutTerminalNeedsEmail(t *testing.T) {
	f := newFixture(t, false)

	code := f.run("login")

	assert.Equal(t, ExitUsageError, code)
	assert.Zero(t, f.srv.Calls("POST", "/auth/login"))
}

func TestRegisterPasswordMismatchIsLocal(t *testing.T) {
	f := newFixture(t, false)
	answers := []string{"secret", "different"}
	f.env.ReadPassword = func(string) (string, error) {
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}

	code := f.run("register", "--email", "grace@example.com", "--name", "Grace Hopper")

	assert.Equal(t, ExitUsageError, code)
	assert.Zero(t, f.srv.Calls("POST", "/users"))
}

func TestRegisterCreatesAccount(t *testing.T) {
	f := newFixture(t, false)

	code, resp, data := f.runJSON(t, "register", "--email", "grace@example.com", "--name", "Grace Hopper")

	require.Equal(t, ExitSuccess, code)
	assert.True(t, resp.Success)
	var user api.User
	require.NoError(t, json.Unmarshal(data, &user))
	assert.Equal(t, "grace@example.com", user.Email)
	assert.False(t, f.store.IsAuthenticated())
}

func TestLogoutForgetsSession(t *testing.T) {
	f := newFixture(t, true)
	token := f.store.Token()

	code := f.run("logout")

	require.Equal(t, ExitSuccess, code)
	assert.False(t, f.store.IsAuthenticated())
	assert.True(t, f.srv.Revoked(token))
}

func TestLogoutWhenServerUnreachableStillForgets(t *testing.T) {
	f := newFixture(t, true)
	f.srv.Close()

	code := f.run("logout")

	assert.Equal(t, ExitSuccess, code)
	assert.False(t, f.store.IsAuthenticated())
	assert.Contains(t, f.errs.String(), "[WARN]")
}

func TestLogoutWhenNotLoggedIn(t *testing.T) {
	f := newFixture(t, false)

	assert.Equal(t, ExitSuccess, f.run("logout"))
	assert.Contains(t, f.out.String(), "Not logged in.")
	assert.Zero(t, f.srv.Calls("POST", "/auth/logout"))
}

func TestWhoamiJSON(t *testing.T) {
	f := newFixture(t, true)

	code, resp, data := f.runJSON(t, "whoami")

	require.Equal(t, ExitSuccess, code)
	assert.True(t, resp.Success)
	assert.Equal(t, "whoami", resp.Command)
	var who WhoamiData
	require.NoError(t, json.Unmarshal(data, &who))
	assert.Equal(t, testEmail, who.User.Email)
	assert.Equal(t, testEmail, who.Session.Subject)
	assert.NotNil(t, who.Session.ExpiresAt)
	assert.NotContains(t, string(data), f.store.Token())
}

func TestWhoamiNotLoggedIn(t *testing.T) {
	f := newFixture(t, false)

	code, resp, _ := f.runJSON(t, "whoami")

	assert.Equal(t, ExitAuthError, code)
	assert.False(t, resp.Success)
	assert.Equal(t, ExitAuthError, resp.ExitCode)
	require.NotNil(t, resp.Error)
}

func TestExpiredSessionIsClearedAndExitsWithAuthCode(t *testing.T) {
	f := newFixture(t, true)
	f.srv.Fail("GET", "/users/me", http.StatusUnauthorized, "Could not validate credentials")

	code := f.run("whoami")

	assert.Equal(t, ExitAuthError, code)
	assert.False(t, f.store.IsAuthenticated())
}

func TestAssistantsLifecycle(t *testing.T) {
	f := newFixture(t, true)

	code, _, data := f.runJSON(t, "assistants", "create",
		"--name", "Support Bot",
		"--url", "https://example.com",
		"--mission", "Answer billing questions",
		"--operator", "Ada",
		"--tone", "friendly",
		"--auth", "can_read_documents")
	require.Equal(t, ExitSuccess, code)
	var created api.Assistant
	require.NoError(t, json.Unmarshal(data, &created))
	assert.Equal(t, "FRIENDLY", created.Tone)
	assert.Equal(t, []api.Authorization{api.AuthCanReadDocuments}, created.Authorizations)

	id := fmt.Sprint(created.ID)

	f.out.Reset()
	require.Equal(t, ExitSuccess, f.run("assistants", "list"))
	assert.Contains(t, f.out.String(), "Support Bot")

	code, _, data = f.runJSON(t, "assistants", "update", id, "--mission", "Answer every question")
	require.Equal(t, ExitSuccess, code)
	var updated api.Assistant
	require.NoError(t, json.Unmarshal(data, &updated))
	assert.Equal(t, "Answer every question", updated.Mission)
	assert.Equal(t, "Support Bot", updated.Name, "fields without flags are kept")
	assert.Equal(t, "FRIENDLY", updated.Tone)

	// Not a terminal: deleting needs --yes.
	assert.Equal(t, ExitUsageError, f.run("assistants", "delete", id))
	assert.Zero(t, f.srv.Calls("DELETE", "/help-assistant/:id"))

	require.Equal(t, ExitSuccess, f.run("assistants", "delete", id, "--yes"))
	assert.Equal(t, ExitNotFoundError, f.run("assistants", "show", id))
}

func TestAssistantsDeleteConfirmationPrompt(t *testing.T) {
	f := newFixture(t, true)
	a := f.srv.AddAssistant(testEmail, api.Assistant{Name: "Bot", URL: "https://x.io", Mission: "m", OperatorName: "Op"})
	f.env.Interactive = true
	f.env.In = strings.NewReader("n\n")

	code := f.run("assistants", "delete", fmt.Sprint(a.ID))

	assert.Equal(t, ExitGeneralError, code)
	assert.Contains(t, f.errs.String(), "cancelled")
	assert.Zero(t, f.srv.Calls("DELETE", "/help-assistant/:id"))
}

func TestAssistantsCreateValidatesLocally(t *testing.T) {
	f := newFixture(t, true)

	code := f.run("assistants", "create", "--name", "Bot", "--url", "https://x.io", "--operator", "Op")

	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, f.errs.String(), "mission: required")
	assert.Zero(t, f.srv.Calls("POST", "/help-assistant"))
}

func TestAssistantsUnknownSubcommand(t *testing.T) {
	f := newFixture(t, true)
	assert.Equal(t, ExitUsageError, f.run("assistants", "explode"))
}

func TestAssistantsTones(t *testing.T) {
	f := newFixture(t, true)

	require.Equal(t, ExitSuccess, f.run("assistants", "tones"))
	assert.Contains(t, f.out.String(), api.DefaultTone)
}

func TestFilesUploadListDownload(t *testing.T) {
	f := newFixture(t, true)
	a := f.srv.AddAssistant(testEmail, api.Assistant{Name: "Bot", URL: "https://x.io", Mission: "m", OperatorName: "Op"})
	id := fmt.Sprint(a.ID)

	dir := t.TempDir()
	src := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(src, []byte("# Refunds\nWithin 30 days."), 0o644))

	code, _, data := f.runJSON(t, "files", id, "upload", src)
	require.Equal(t, ExitSuccess, code)
	var uploaded api.File
	require.NoError(t, json.Unmarshal(data, &uploaded))
	assert.Equal(t, "notes.md", uploaded.Filename)
	fileID := fmt.Sprint(uploaded.ID)

	f.out.Reset()
	require.Equal(t, ExitSuccess, f.run("files", id))
	assert.Contains(t, f.out.String(), "notes.md")

	dst := filepath.Join(dir, "out", "copy.md")
	code, _, data = f.runJSON(t, "files", id, "download", fileID, "--out", dst)
	require.Equal(t, ExitSuccess, code)
	var dl DownloadData
	require.NoError(t, json.Unmarshal(data, &dl))
	assert.Equal(t, int64(len("# Refunds\nWithin 30 days.")), dl.Bytes)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "# Refunds\nWithin 30 days.", string(got))

	f.out.Reset()
	require.Equal(t, ExitSuccess, f.run("files", id, "download", fileID, "--out", "-"))
	assert.Equal(t, "# Refunds\nWithin 30 days.", f.out.String())
}

func TestFilesDownloadMissingLeavesNoFile(t *testing.T) {
	f := newFixture(t, true)
	a := f.srv.AddAssistant(testEmail, api.Assistant{Name: "Bot", URL: "https://x.io", Mission: "m", OperatorName: "Op"})
	dir := t.TempDir()
	dst := filepath.Join(dir, "missing.pdf")

	code := f.run("files", fmt.Sprint(a.ID), "download", "99", "--out", dst)

	assert.Equal(t, ExitNotFoundError, code)
	_, err := os.Stat(dst)
	assert.True(t, os.IsNotExist(err))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file must be removed")
}

func TestFilesUploadRejectsUnsupportedType(t *testing.T) {
	f := newFixture(t, true)
	a := f.srv.AddAssistant(testEmail, api.Assistant{Name: "Bot", URL: "https://x.io", Mission: "m", OperatorName: "Op"})
	src := filepath.Join(t.TempDir(), "tool.exe")
	require.NoError(t, os.WriteFile(src, []byte("MZ"), 0o644))

	code := f.run("files", fmt.Sprint(a.ID), "upload", src)

	assert.Equal(t, ExitUsageError, code)
	assert.Zero(t, f.srv.Calls("POST", "/help-assistant/:id/files"))
}

func TestFilesURLContainsToken(t *testing.T) {
	f := newFixture(t, true)

	require.Equal(t, ExitSuccess, f.run("files", "3", "url", "4"))
	assert.Contains(t, f.out.String(), "/help-assistant/3/files/4/download?token=")
}

func TestCollection(t *testing.T) {
	f := newFixture(t, true)
	a := f.srv.AddAssistant(testEmail, api.Assistant{Name: "Bot", URL: "https://x.io", Mission: "m", OperatorName: "Op"})

	require.Equal(t, ExitSuccess, f.run("collection", fmt.Sprint(a.ID)))
	assert.Contains(t, f.out.String(), fmt.Sprintf("assistant_%d_collection", a.ID))
}

func TestSearchJSON(t *testing.T) {
	f := newFixture(t, true)
	a := f.srv.AddAssistant(testEmail, api.Assistant{Name: "Bot", URL: "https://x.io", Mission: "m", OperatorName: "Op"})
	f.srv.SetSearchResults("refund policy", []map[string]any{
		{"content": "Refunds within 30 days", "score": 0.9, "metadata": map[string]any{"document_name": "faq.md"}},
		{"content": "", "score": 0.5},
	})

	code, resp, data := f.runJSON(t, "search", fmt.Sprint(a.ID), "refund", "policy")

	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "search", resp.Command)
	var out SearchData
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "refund policy", out.Query)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "faq.md", out.Results[0].Source)
}

func TestSearchNeedsQuery(t *testing.T) {
	f := newFixture(t, true)
	assert.Equal(t, ExitUsageError, f.run("search", "3"))
}

func TestChatPlainPipedInput(t *testing.T) {
	f := newFixture(t, true)
	a := f.srv.AddAssistant(testEmail, api.Assistant{Name: "Bot", URL: "https://x.io", Mission: "m", OperatorName: "Ada"})
	f.env.In = strings.NewReader("hello\n/history\n/quit\n")

	code := f.run("chat", fmt.Sprint(a.ID), "--plain")

	require.Equal(t, ExitSuccess, code, f.errs.String())
	assert.Contains(t, f.out.String(), "Chatting with Ada")
	assert.Contains(t, f.out.String(), "Ada here. You said: hello")
	assert.Equal(t, 1, f.srv.Calls("POST", "/help-assistant/:id/chat/:chatId/message"))
}

func TestChatPlainSaveTranscript(t *testing.T) {
	f := newFixture(t, true)
	a := f.srv.AddAssistant(testEmail, api.Assistant{Name: "Bot", URL: "https://x.io", Mission: "m", OperatorName: "Ada"})
	path := filepath.Join(t.TempDir(), "chat.json")
	f.env.In = strings.NewReader("hello\n/save " + path + "\n")

	require.Equal(t, ExitSuccess, f.run("chat", fmt.Sprint(a.ID), "--plain"), f.errs.String())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var saved struct {
		AssistantName string `json:"assistant_name"`
		Messages      []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.Equal(t, "Ada", saved.AssistantName)
	require.Len(t, saved.Messages, 2)
	assert.Equal(t, "hello", saved.Messages[0].Content)
}

func TestChatPlainFailedSendContinues(t *testing.T) {
	f := newFixture(t, true)
	a := f.srv.AddAssistant(testEmail, api.Assistant{Name: "Bot", URL: "https://x.io", Mission: "m", OperatorName: "Ada"})
	f.srv.Fail("POST", "/help-assistant/:id/chat/:chatId/message", http.StatusBadGateway, "upstream down")
	f.env.In = strings.NewReader("hello\n/history\n")

	code := f.run("chat", fmt.Sprint(a.ID), "--plain")

	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, f.errs.String(), "[not delivered]")
	assert.Contains(t, f.out.String(), "(not delivered)")
}

func TestChatPlainRejectsJSON(t *testing.T) {
	f := newFixture(t, true)
	code, resp, _ := f.runJSON(t, "chat", "3", "--plain")
	assert.Equal(t, ExitUsageError, code)
	assert.False(t, resp.Success)
}

func TestConfigSetGet(t *testing.T) {
	f := newFixture(t, false)

	require.Equal(t, ExitSuccess, f.run("config", "set", "ui.theme", "dark"))

	path, err := config.ConfigPath()
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `theme = "dark"`)

	code, _, data := f.runJSON(t, "config", "get", "api.base_url")
	require.Equal(t, ExitSuccess, code)
	var v ConfigValue
	require.NoError(t, json.Unmarshal(data, &v))
	assert.Equal(t, config.Default().API.BaseURL, v.Value)

	assert.Equal(t, ExitUsageError, f.run("config", "get", "nope.key"))
}

func TestConfigSetRejectsInvalidValue(t *testing.T) {
	f := newFixture(t, false)

	code := f.run("config", "set", "ui.theme", "purple")

	assert.Equal(t, ExitConfigError, code)
	path, err := config.ConfigPath()
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t, false)

	code, resp, _ := f.runJSON(t, "frobnicate")

	assert.Equal(t, ExitUsageError, code)
	require.NotNil(t, resp.Error)
	assert.Contains(t, *resp.Error, "unknown command")
}

func TestVersionQuiet(t *testing.T) {
	f := newFixture(t, false)

	require.Equal(t, ExitSuccess, f.run("version", "-q"))
	assert.Empty(t, f.out.String())
}
