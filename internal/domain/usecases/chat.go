package usecases

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/0xcro3dile/faqbot-go/internal/domain/entities"
)

const (
	DefaultIdleTimeout = 300 * time.Second

	// EmptyMessageReply is returned for blank input without consulting the engine.
	EmptyMessageReply = "Please enter a message."
)

// Answering is what the chat layer needs from the engine.
type Answering interface {
	Answer(ctx context.Context, message string) entities.Reply
}

type session struct {
	mu         sync.Mutex
	history    []entities.ChatMessage
	lastActive time.Time

	// inFlight counts Send calls using the session; guarded by ChatUseCase.mu.
	inFlight int
}

// ChatUseCase keeps per-session conversations in front of the engine.
type ChatUseCase struct {
	engine      Answering
	idleTimeout time.Duration
	pick        func(n int) int
	now         func() time.Time
	log         logrus.FieldLogger

	mu       sync.Mutex
	sessions map[string]*session
}

// ChatOption configures a ChatUseCase.
type ChatOption func(*ChatUseCase)

// WithIdleTimeout sets how long a session may stay silent before its
// history is cleared.
func WithIdleTimeout(d time.Duration) ChatOption {
	return func(c *ChatUseCase) {
		if d > 0 {
			c.idleTimeout = d
		}
	}
}

// WithPicker replaces the random choice among canned replies and suffixes.
func WithPicker(pick func(n int) int) ChatOption {
	return func(c *ChatUseCase) {
		c.pick = pick
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ChatOption {
	return func(c *ChatUseCase) {
		c.now = now
	}
}

// WithChatLogger sets the chat logger.
func WithChatLogger(log logrus.FieldLogger) ChatOption {
	return func(c *ChatUseCase) {
		c.log = log
	}
}

// NewChatUseCase creates a ChatUseCase.
func NewChatUseCase(engine Answering, options ...ChatOption) *ChatUseCase {
	c := &ChatUseCase{
		engine:      engine,
		idleTimeout: DefaultIdleTimeout,
		pick:        rand.Intn,
		now:         time.Now,
		log:         logrus.StandardLogger(),
		sessions:    make(map[string]*session),
	}
	for _, option := range options {
		option(c)
	}
	c.log = c.log.WithField("component", "chat")
	return c
}

// NewSession returns a fresh session id.
func (c *ChatUseCase) NewSession() string {
	id := uuid.NewString()

	c.mu.Lock()
	c.sessions[id] = &session{lastActive: c.now()}
	c.mu.Unlock()

	return id
}

// Send answers one user turn and records both sides in the session history.
// Unknown session ids start a new conversation under that id.
func (c *ChatUseCase) Send(ctx context.Context, sessionID, message string) entities.Reply {
	message = strings.TrimSpace(message)
	if message == "" {
		return entities.Reply{Text: EmptyMessageReply, Kind: entities.ReplyCanned}
	}

	s := c.acquire(sessionID)
	defer c.release(s)

	s.mu.Lock()
	now := c.now()
	if len(s.history) > 0 && now.Sub(s.lastActive) > c.idleTimeout {
		c.log.WithField("session", sessionID).Debug("session idle, clearing history")
		s.history = nil
	}
	s.lastActive = now
	s.history = append(s.history, entities.ChatMessage{Role: "user", Content: message, At: now})
	s.mu.Unlock()

	// The session lock is not held while the engine answers.
	reply := c.reply(ctx, message)

	s.mu.Lock()
	now = c.now()
	s.history = append(s.history, entities.ChatMessage{Role: "bot", Content: reply.Text, At: now})
	s.lastActive = now
	s.mu.Unlock()
	return reply
}

// History returns a copy of the session's turns, oldest first.
func (c *ChatUseCase) History(sessionID string) []entities.ChatMessage {
	c.mu.Lock()
	s, ok := c.sessions[sessionID]
	c.mu.Unlock()
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c.now().Sub(s.lastActive) > c.idleTimeout {
		return nil
	}
	return append([]entities.ChatMessage(nil), s.history...)
}

// Reset forgets a session.
func (c *ChatUseCase) Reset(sessionID string) {
	c.mu.Lock()
	delete(c.sessions, sessionID)
	c.mu.Unlock()
}

// PruneIdle drops sessions idle for longer than the idle timeout and
// returns how many were dropped. Sessions with a turn in progress are kept.
func (c *ChatUseCase) PruneIdle() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	pruned := 0
	for id, s := range c.sessions {
		if s.inFlight > 0 {
			continue
		}
		s.mu.Lock()
		idle := now.Sub(s.lastActive) > c.idleTimeout
		s.mu.Unlock()

		if idle {
			delete(c.sessions, id)
			pruned++
		}
	}
	return pruned
}

// Sessions returns the number of live sessions.
func (c *ChatUseCase) Sessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// acquire returns the session for id, creating it if needed, and pins it
// against PruneIdle until release.
func (c *ChatUseCase) acquire(id string) *session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[id]
	if !ok {
		s = &session{lastActive: c.now()}
		c.sessions[id] = s
	}
	s.inFlight++
	return s
}

func (c *ChatUseCase) release(s *session) {
	c.mu.Lock()
	s.inFlight--
	c.mu.Unlock()
}

func (c *ChatUseCase) reply(ctx context.Context, message string) entities.Reply {
	switch {
	case matchExact(greetingTriggers, message):
		return entities.Reply{Text: c.choose(greetingReplies), Kind: entities.ReplyCanned}
	case matchExact(ackTriggers, message):
		return entities.Reply{Text: c.choose(ackReplies), Kind: entities.ReplyCanned}
	}

	reply := c.engine.Answer(ctx, message)
	if reply.Kind == entities.ReplyAnswer {
		reply.Text += c.choose(answerSuffixes)
	}
	return reply
}

func (c *ChatUseCase) choose(options []string) string {
	return options[c.pick(len(options))]
}
