// Package chat holds the state of one conversation with the NL-to-SQL
// assistant: the backend session, the ordered message log, the in-flight
// flag and the latest SQL answer.
//
// Design decisions:
//   - Store is an explicit value created by the caller and passed to the
//     UI; there is no package-level instance.
//   - The transport call happens outside the lock, so a slow backend never
//     blocks readers.
//   - Actions never return errors. Failures land in LastError and in the
//     message log, and the conversation stays usable.
//   - Overlapping actions are allowed. Answers are appended in the order
//     they resolve and the last one to resolve wins the session id.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DachengChen/asksql/applog"
	"github.com/DachengChen/asksql/contract"
	"github.com/DachengChen/asksql/transport"
)

// fallbackError is shown when a failure carries no message of its own.
const fallbackError = "request failed"

// Snapshot is a consistent copy of the store state.
type Snapshot struct {
	SessionID   string
	Messages    []Message
	IsLoading   bool
	LastError   string
	LastSQL     *contract.SQLResponse
	LastClarify *contract.ClarifyResponse
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the single source of truth for one conversation.
type Store struct {
	transport transport.Transport
	now       func() time.Time

	mu         sync.Mutex
	generation uint64 // bumped by Reset; answers from older turns are dropped
	sessionID  string
	messages   []Message
	isLoading  bool
	lastError  string
	lastSQL    *contract.SQLResponse

	listenerMu sync.Mutex
	listeners  map[int]func(Snapshot)
	nextID     int
}

// NewStore creates an empty conversation that talks through t.
func NewStore(t transport.Transport, opts ...Option) *Store {
	s := &Store{
		transport: t,
		now:       time.Now,
		listeners: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ─────────────────────────────────────────────────────────────────
// Read side
// ─────────────────────────────────────────────────────────────────

// SessionID returns the backend session id, or "" before the first answer.
func (s *Store) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Messages returns a copy of the message log, oldest first.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// IsLoading reports whether an action is waiting on the transport.
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLoading
}

// LastError returns the message of the last failed action, or "".
func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// LastSQL returns the most recent SQL answer, or nil.
func (s *Store) LastSQL() *contract.SQLResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSQL
}

// LastClarify returns the payload of the newest clarify message, or nil.
func (s *Store) LastClarify() *contract.ClarifyResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lastClarify(s.messages)
}

// Snapshot returns every field at once.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:   s.sessionID,
		Messages:    append([]Message(nil), s.messages...),
		IsLoading:   s.isLoading,
		LastError:   s.lastError,
		LastSQL:     s.lastSQL,
		LastClarify: lastClarify(s.messages),
	}
}

// lastClarify scans newest to oldest.
func lastClarify(messages []Message) *contract.ClarifyResponse {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Kind == KindClarify {
			return messages[i].Clarify
		}
	}
	return nil
}

// OnChange registers fn to be called with a fresh snapshot after every
// mutation. fn runs on the goroutine that mutated the store and must not
// block. The returned func unregisters it.
func (s *Store) OnChange(fn func(Snapshot)) (unsubscribe func()) {
	s.listenerMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenerMu.Unlock()

	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

func (s *Store) notify(snap Snapshot) {
	s.listenerMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenerMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// ─────────────────────────────────────────────────────────────────
// Actions
// ─────────────────────────────────────────────────────────────────

// Reset clears the session, the log, the loading flag, the error and the
// cached SQL. It is idempotent.
func (s *Store) Reset() {
	s.mu.Lock()
	s.generation++
	s.sessionID = ""
	s.messages = nil
	s.isLoading = false
	s.lastError = ""
	s.lastSQL = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	applog.Event("CHAT", "conversation reset")
	s.notify(snap)
}

// PushSystemText appends a local notice to the log.
func (s *Store) PushSystemText(text string) {
	s.mu.Lock()
	s.messages = append(s.messages, textMessage(RoleSystem, text, s.now()))
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// SendMessage sends a free-text question. Blank input is ignored.
func (s *Store) SendMessage(ctx context.Context, text string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}
	s.turn(ctx, trimmed, nil)
}

// SubmitClarify answers the pending clarification. userVisibleText is
// shown in the log and sent as the message; answers travel alongside as
// structured values keyed by field key.
func (s *Store) SubmitClarify(ctx context.Context, userVisibleText string, answers map[string]any) {
	copied := make(map[string]any, len(answers))
	for k, v := range answers {
		copied[k] = v
	}
	s.turn(ctx, userVisibleText, copied)
}

// turn runs one request/response cycle.
func (s *Store) turn(ctx context.Context, text string, answers map[string]any) {
	s.mu.Lock()
	gen := s.generation
	s.lastError = ""
	s.messages = append(s.messages, textMessage(RoleUser, text, s.now()))
	s.isLoading = true
	req := &contract.ChatRequest{
		SessionID: s.sessionID,
		Message:   text,
		Answers:   answers,
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	defer func() {
		s.mu.Lock()
		if s.generation != gen {
			s.mu.Unlock()
			return
		}
		s.isLoading = false
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
	}()

	resp, err := s.transport.Send(ctx, req)

	var msg Message
	if err == nil {
		msg, err = assistantMessage(resp, s.now())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		applog.Event("CHAT", "dropping answer to %q: conversation was reset", text)
		return
	}
	if err != nil {
		s.failLocked(err)
		return
	}

	if next := resp.Session(); s.sessionID != "" && next != s.sessionID {
		applog.L().Warn("backend changed session mid-conversation",
			zap.String("from", s.sessionID), zap.String("to", next))
	}
	s.sessionID = resp.Session()
	s.messages = append(s.messages, msg)
	if sql, ok := resp.(*contract.SQLResponse); ok {
		s.lastSQL = sql
	}
}

func (s *Store) failLocked(err error) {
	text := err.Error()
	if text == "" {
		text = fallbackError
	}
	applog.Error("chat turn failed: %s", text)
	s.lastError = text
	s.messages = append(s.messages, textMessage(RoleSystem, fallbackError+": "+text, s.now()))
}
