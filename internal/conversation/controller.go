// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jeranaias/assist-tui/internal/api"
	"github.com/jeranaias/assist-tui/internal/logging"
	"github.com/jeranaias/assist-tui/internal/metrics"
)

// =============================================================================
// STATE
// =============================================================================

// State is the lifecycle position of a conversation.
type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
	Sending
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Sending:
		return "sending"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidState is returned when an operation is not allowed in the
// controller's current state.
var ErrInvalidState = errors.New("conversation: invalid state")

// ErrEmptyMessage is returned by Send for blank content.
var ErrEmptyMessage = errors.New("conversation: message is empty")

var lastID int64

func nextID() int { return int(atomic.AddInt64(&lastID, 1)) }

// Message is one entry in the conversation history. Messages are never
// modified after they are appended.
type Message struct {
	ID        string
	Content   string
	Emitter   api.Emitter
	CreatedAt time.Time
	Sources   []string
}

// FromUser reports whether the user wrote the message.
func (m Message) FromUser() bool { return m.Emitter == api.EmitterUser }

// =============================================================================
// COLLABORATORS
// =============================================================================

// Backend opens conversations and delivers messages. *api.Client
// satisfies it.
type Backend interface {
	InitChat(ctx context.Context, assistantID int64) (*api.ChatInit, error)
	SendMessage(ctx context.Context, assistantID, chatID int64, content string) (*api.Reply, error)
}

// Notifier receives failures the user should see.
type Notifier interface {
	NotifyError(err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(err error)

func (f NotifierFunc) NotifyError(err error) { f(err) }

// SessionClearer forgets the logged-in session. *session.Store satisfies
// it.
type SessionClearer interface {
	Clear() error
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller drives one conversation with one assistant.
type Controller struct {
	mu sync.Mutex

	backend  Backend
	notifier Notifier
	session  SessionClearer
	metrics  *metrics.Metrics
	log      *logging.Logger
	now      func() time.Time

	id          int
	state       State
	pending     string
	assistantID int64
	chatID      int64
	assistant   *api.Assistant
	messages    []Message
	failed      map[string]bool
}

// New creates an uninitialized controller.
func New(backend Backend) *Controller {
	return &Controller{
		id:      nextID(),
		backend: backend,
		log:     logging.Default().Component("conversation"),
		now:     time.Now,
		failed:  make(map[string]bool),
	}
}

// WithNotifier sets where failures are reported.
func (c *Controller) WithNotifier(n Notifier) *Controller {
	c.notifier = n
	return c
}

// WithSessionClearer sets the session cleared when the server reports the
// token has expired.
func (c *Controller) WithSessionClearer(s SessionClearer) *Controller {
	c.session = s
	return c
}

// WithMetrics records message outcomes.
func (c *Controller) WithMetrics(m *metrics.Metrics) *Controller {
	c.metrics = m
	return c
}

// WithLogger replaces the logger.
func (c *Controller) WithLogger(l *logging.Logger) *Controller {
	c.log = l.Component("conversation")
	return c
}

// Initialize opens (or resumes) the conversation with assistantID and
// loads its history. It is only allowed before the first successful call;
// a failure returns the controller to Uninitialized so it can be retried.
func (c *Controller) Initialize(ctx context.Context, assistantID int64) error {
	c.mu.Lock()
	if c.state != Uninitialized {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: initialize while %s", ErrInvalidState, state)
	}
	c.state = Initializing
	c.assistantID = assistantID
	c.mu.Unlock()

	init, err := c.backend.InitChat(ctx, assistantID)

	c.mu.Lock()
	if c.state != Initializing {
		// Closed or reset while the call was in flight.
		c.mu.Unlock()
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: conversation closed during initialize", ErrInvalidState)
	}
	if err != nil {
		c.state = Uninitialized
		c.mu.Unlock()
		c.fail(err)
		return err
	}

	c.chatID = init.ChatID
	c.assistant = init.Assistant
	c.messages = make([]Message, 0, len(init.Messages)+2)
	for _, m := range init.Messages {
		c.messages = append(c.messages, fromAPI(m, nil))
	}
	c.state = Ready
	c.mu.Unlock()

	c.log.Debug().
		Int64("assistant_id", assistantID).
		Int64("chat_id", init.ChatID).
		Int("history", len(init.Messages)).
		Msg("conversation ready")
	return nil
}

// Pending is a message that has been appended locally and is waiting to
// be delivered.
type Pending struct {
	MessageID   string
	Content     string
	assistantID int64
	chatID      int64
	backend     Backend
}

// Result is the outcome of delivering a Pending message.
type Result struct {
	MessageID string
	Reply     *api.Reply
	Err       error
}

// Do delivers the message. It touches no controller state and may run on
// any goroutine.
func (p *Pending) Do(ctx context.Context) Result {
	reply, err := p.backend.SendMessage(ctx, p.assistantID, p.chatID, p.Content)
	return Result{MessageID: p.MessageID, Reply: reply, Err: err}
}

// Begin appends the user's message and moves to Sending. It returns false,
// changing nothing, unless the conversation is Ready and content has
// non-space characters. Content is stored and sent as typed.
func (c *Controller) Begin(content string) (*Pending, bool) {
	if strings.TrimSpace(content) == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Ready || c.chatID == 0 {
		return nil, false
	}

	msg := Message{
		ID:        ulid.Make().String(),
		Content:   content,
		Emitter:   api.EmitterUser,
		CreatedAt: c.now(),
	}
	c.messages = append(c.messages, msg)
	c.state = Sending
	c.pending = msg.ID

	return &Pending{
		MessageID:   msg.ID,
		Content:     content,
		assistantID: c.assistantID,
		chatID:      c.chatID,
		backend:     c.backend,
	}, true
}

// Finish applies a delivery result. On success the assistant's reply is
// appended; on failure the user's message stays in history marked as
// failed. Either way the conversation is Ready again. The delivery error
// is returned. A result for any message other than the one in flight is
// ignored.
func (c *Controller) Finish(r Result) error {
	c.mu.Lock()
	if c.state != Sending || r.MessageID != c.pending {
		c.mu.Unlock()
		c.log.Debug().Str("message_id", r.MessageID).Msg("dropping stale reply")
		return nil
	}
	c.state = Ready
	c.pending = ""
	if r.Err == nil && (r.Reply == nil || r.Reply.Message == nil) {
		r.Err = fmt.Errorf("%w: reply without message", api.ErrInvalidResponse)
	}
	if r.Err != nil {
		c.failed[r.MessageID] = true
		c.mu.Unlock()
		c.metrics.RecordMessage(string(api.EmitterUser), "failed")
		c.fail(r.Err)
		return r.Err
	}
	msg := fromAPI(*r.Reply.Message, r.Reply.AllSources())
	// The reply body carries no emitter.
	msg.Emitter = api.EmitterAssistant
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = c.now()
	}
	c.messages = append(c.messages, msg)
	c.mu.Unlock()

	c.metrics.RecordMessage(string(api.EmitterUser), "sent")
	c.metrics.RecordMessage(string(api.EmitterAssistant), "received")
	return nil
}

// Send delivers content synchronously.
func (c *Controller) Send(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}
	p, ok := c.Begin(content)
	if !ok {
		return fmt.Errorf("%w: send while %s", ErrInvalidState, c.State())
	}
	return c.Finish(p.Do(ctx))
}

// Close ends the conversation and discards its history. A closed
// controller accepts no further operations.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Closed
	c.clearLocked()
}

// Reset returns the controller to Uninitialized from any state.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Uninitialized
	c.clearLocked()
}

func (c *Controller) clearLocked() {
	c.pending = ""
	c.chatID = 0
	c.assistant = nil
	c.messages = nil
	c.failed = make(map[string]bool)
}

// fail reports err and clears the session when the server says the token
// is no longer valid.
func (c *Controller) fail(err error) {
	if api.IsSessionExpired(err) && c.session != nil {
		if cerr := c.session.Clear(); cerr != nil {
			c.log.Warn().Err(cerr).Msg("clear expired session")
		}
	}
	c.log.Warn().Err(err).Msg("conversation request failed")
	if c.notifier != nil {
		c.notifier.NotifyError(err)
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// ID identifies this controller in tea messages.
func (c *Controller) ID() int { return c.id }

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ChatID returns the server's conversation id, or 0 before Initialize.
func (c *Controller) ChatID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chatID
}

// AssistantID returns the assistant this conversation is with.
func (c *Controller) AssistantID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.assistantID
}

// Assistant returns the assistant metadata loaded by Initialize.
func (c *Controller) Assistant() *api.Assistant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.assistant
}

// Messages returns a copy of the history in insertion order.
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Failed reports whether the user message id could not be delivered.
func (c *Controller) Failed(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed[id]
}

// Busy reports whether a message is being delivered.
func (c *Controller) Busy() bool {
	return c.State() == Sending
}

func fromAPI(m api.ChatMessage, sources []string) Message {
	if sources == nil && len(m.Sources) > 0 {
		sources = []string(m.Sources)
	}
	return Message{
		ID:        ulid.Make().String(),
		Content:   m.Content,
		Emitter:   m.Emitter,
		CreatedAt: m.CreatedAt.Time,
		Sources:   dedupe(sources),
	}
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
