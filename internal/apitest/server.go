// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package apitest runs an in-memory fake of the help-assistant backend for
// tests. It speaks the same routes, JSON shapes and error bodies as the
// real service and mints real HS256 tokens, so the client, session and
// controllers can be exercised end to end without a network.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeranaias/assist-tui/internal/api"
)

// Prefix is the API version prefix every route lives under.
const Prefix = "/api/v1"

type user struct {
	api.User
	passwordHash []byte
}

// checkPassword reports whether password matches the stored hash.
func (u *user) checkPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)) == nil
}

type storedFile struct {
	api.File
	data []byte
}

type chat struct {
	id          int64
	assistantID int64
	owner       string
	messages    []api.ChatMessage
}

type failure struct {
	status int
	detail string
}

// Server is a fake backend bound to an httptest.Server.
type Server struct {
	srv    *httptest.Server
	secret []byte

	// TokenTTL is the lifetime of tokens minted by /auth/login.
	TokenTTL time.Duration

	// ReplyGate, when set, blocks chat replies until it yields a value or
	// is closed.
	ReplyGate chan struct{}

	// SearchHook runs before a search is answered. Tests use it to delay
	// or reorder lookups.
	SearchHook func(query string)

	mu         sync.Mutex
	nextID     int64
	users      map[string]*user
	assistants map[int64]*api.Assistant
	files      map[int64][]*storedFile
	chats      map[int64]*chat
	revoked    map[string]bool
	failures   map[string]failure
	calls      map[string]int
	queries    []string
	results    map[string][]map[string]any
}

// New starts a fake backend that shuts down when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		secret:     []byte("apitest-" + uuid.NewString()),
		TokenTTL:   time.Hour,
		users:      make(map[string]*user),
		assistants: make(map[int64]*api.Assistant),
		files:      make(map[int64][]*storedFile),
		chats:      make(map[int64]*chat),
		revoked:    make(map[string]bool),
		failures:   make(map[string]failure),
		calls:      make(map[string]int),
		results:    make(map[string][]map[string]any),
	}
	s.srv = httptest.NewServer(s.router())
	t.Cleanup(s.srv.Close)
	return s
}

// URL is the API base URL including the version prefix.
func (s *Server) URL() string {
	return s.srv.URL + Prefix
}

// Close stops the server early, e.g. to simulate an unreachable backend.
func (s *Server) Close() {
	s.srv.Close()
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(s.record())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"detail": "Method Not Allowed"})
	})

	v1 := r.Group(Prefix)
	v1.POST("/auth/login", s.login)
	v1.POST("/users", s.register)

	authed := v1.Group("/")
	authed.Use(s.authRequired())
	authed.POST("/auth/logout", s.logout)
	authed.GET("/users/me", s.me)

	authed.GET("/help-assistant", s.listAssistants)
	authed.POST("/help-assistant", s.createAssistant)
	authed.GET("/help-assistant/tones", s.tones)
	authed.GET("/help-assistant/models", s.models)
	authed.GET("/help-assistant/:id", s.getAssistant)
	authed.PUT("/help-assistant/:id", s.updateAssistant)
	authed.DELETE("/help-assistant/:id", s.deleteAssistant)

	authed.POST("/help-assistant/:id/chat/init", s.initChat)
	authed.POST("/help-assistant/:id/chat/:chatId/message", s.sendMessage)

	authed.GET("/help-assistant/:id/files", s.listFiles)
	authed.POST("/help-assistant/:id/files", s.uploadFile)
	authed.DELETE("/help-assistant/:id/files/:fileId", s.deleteFile)
	authed.GET("/help-assistant/:id/files/:fileId/download", s.downloadFile)

	authed.GET("/help-assistant/:id/collection", s.collection)
	authed.POST("/help-assistant/:id/agent/search", s.search)

	return r
}

// =============================================================================
// TEST CONTROLS
// =============================================================================

func routeKey(method, route string) string {
	return method + " " + route
}

// Fail makes every request to method+route answer with status and a
// {"detail": detail} body until ClearFailures. route uses the client's
// template form, e.g. "/help-assistant/:id/chat/:chatId/message". A status
// of 0 drops the connection instead.
func (s *Server) Fail(method, route string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[routeKey(method, route)] = failure{status: status, detail: detail}
}

// ClearFailures removes all injected failures.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]failure)
}

// Calls returns how many requests reached method+route.
func (s *Server) Calls(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[routeKey(method, route)]
}

// Queries returns the search queries received, in arrival order.
func (s *Server) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// SetSearchResults fixes the raw results returned for query.
func (s *Server) SetSearchResults(query string, results []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[query] = results
}

// AddUser registers a user directly and returns its id.
func (s *Server) AddUser(email, fullName, password string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.addUserLocked(email, fullName, password)
	if err != nil {
		panic("apitest: " + err.Error())
	}
	return u.ID
}

// addUserLocked stores a user with a bcrypt hash of password. MinCost
// keeps test logins fast.
func (s *Server) addUserLocked(email, fullName, password string) (*user, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	s.nextID++
	u := &user{
		User:         api.User{ID: s.nextID, Email: email, FullName: fullName, IsActive: true},
		passwordHash: hash,
	}
	s.users[strings.ToLower(email)] = u
	return u, nil
}

// AddAssistant stores an assistant owned by ownerEmail and returns it.
func (s *Server) AddAssistant(ownerEmail string, a api.Assistant) api.Assistant {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	a.ID = s.nextID
	if u, ok := s.users[strings.ToLower(ownerEmail)]; ok {
		a.UserID = u.ID
	}
	if a.Tone == "" {
		a.Tone = api.DefaultTone
	}
	stored := a
	s.assistants[a.ID] = &stored
	return a
}

// Token mints a token for email valid for ttl. A negative ttl yields an
// already-expired token.
func (s *Server) Token(email string, ttl time.Duration) string {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

// Revoked reports whether token was logged out.
func (s *Server) Revoked(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[token]
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

// record counts calls and applies injected failures.
func (s *Server) record() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := strings.TrimPrefix(c.FullPath(), Prefix)
		key := routeKey(c.Request.Method, route)

		s.mu.Lock()
		s.calls[key]++
		f, failing := s.failures[key]
		s.mu.Unlock()

		if !failing {
			c.Next()
			return
		}
		if f.status == 0 {
			if hj, ok := c.Writer.(http.Hijacker); ok {
				if conn, _, err := hj.Hijack(); err == nil {
					conn.Close()
				}
			}
			c.Abort()
			return
		}
		c.AbortWithStatusJSON(f.status, gin.H{"detail": f.detail})
	}
}

const ctxUser = "apitest.user"

// authRequired validates the bearer token (or ?token= for downloads) the
// way the backend does, answering 401 "Could not validate credentials".
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ""
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			raw = strings.TrimPrefix(h, "Bearer ")
		} else if q := c.Query("token"); q != "" {
			raw = q
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
			return
		}

		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
			return
		}

		s.mu.Lock()
		revoked := s.revoked[raw]
		u, ok := s.users[strings.ToLower(claims.Subject)]
		s.mu.Unlock()
		if revoked || !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
			return
		}

		c.Set(ctxUser, u)
		c.Set("apitest.token", raw)
		c.Next()
	}
}

func currentUser(c *gin.Context) *user {
	return c.MustGet(ctxUser).(*user)
}
