// Package conversation holds the chat session with a single avatar: it
// resolves the conversation, keeps the message log and runs the
// single-flight send protocol.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/memoria-app/memoria/internal/apperr"
	"github.com/memoria-app/memoria/internal/model/avatar"
	"github.com/memoria-app/memoria/internal/model/conversation"
)

var (
	ErrAvatarNotReady = errors.New("avatar is still a draft")
	ErrSuperseded     = errors.New("session was re-initialized")
	ErrSendCompleted  = errors.New("send already awaited")
)

// Suggestions are offered as starters while the log is empty.
var Suggestions = []string{"How are you?", "I miss you", "Tell me a story"}

// State of a session.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// API is the subset of the backend a session needs.
type API interface {
	GetAvatar(ctx context.Context, id int64) (avatar.Avatar, error)
	ListConversations(ctx context.Context) ([]conversation.Conversation, error)
	CreateConversation(ctx context.Context, avatarID int64) (conversation.Conversation, error)
	SendMessage(ctx context.Context, conversationID int64, text string) (conversation.Exchange, error)
}

// Session is safe for concurrent use. The lock is never held across a
// network call.
type Session struct {
	api    API
	logger *zap.Logger

	mu       sync.Mutex
	gen      uint64
	state    State
	err      error
	avatar   *avatar.Avatar
	conv     *conversation.Conversation
	messages []conversation.Message
	input    string
	pending  bool
}

// NewSession returns an uninitialized session.
func NewSession(api API, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{api: api, logger: logger}
}

// Initialize loads avatarID and adopts its conversation, creating one when
// none exists. The avatar and the conversation list are fetched in parallel.
// Any failure leaves the session Failed with nothing partially exposed.
func (s *Session) Initialize(ctx context.Context, avatarID int64) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.state = StateLoading
	s.err = nil
	s.avatar = nil
	s.conv = nil
	s.messages = nil
	s.pending = false
	s.mu.Unlock()

	if avatarID <= 0 {
		return s.fail(gen, apperr.Validation("avatar", "Invalid avatar id"))
	}

	var (
		av    avatar.Avatar
		convs []conversation.Conversation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		av, err = s.api.GetAvatar(gctx, avatarID)
		return err
	})
	g.Go(func() error {
		var err error
		convs, err = s.api.ListConversations(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return s.fail(gen, err)
	}

	if !av.Ready() {
		return s.fail(gen, fmt.Errorf("avatar %d: %w", avatarID, ErrAvatarNotReady))
	}

	conv, found := conversation.FindByAvatar(convs, avatarID)
	if !found {
		created, err := s.api.CreateConversation(ctx, avatarID)
		if err != nil {
			return s.fail(gen, err)
		}
		conv = created
		s.logger.Info("conversation created", zap.Int64("avatar_id", avatarID), zap.Int64("conversation_id", conv.ID))
	}

	messages := append([]conversation.Message(nil), conv.Messages...)
	conv.Messages = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return ErrSuperseded
	}
	s.state = StateReady
	s.avatar = &av
	s.conv = &conv
	s.messages = messages

	s.logger.Debug("session ready",
		zap.Int64("avatar_id", avatarID),
		zap.Int64("conversation_id", conv.ID),
		zap.Int("messages", len(messages)),
	)
	return nil
}

func (s *Session) fail(gen uint64, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return ErrSuperseded
	}
	s.state = StateFailed
	s.err = err
	s.logger.Warn("session initialization failed", zap.Error(err))
	return err
}

// Send is an accepted message awaiting its round trip.
type Send struct {
	session *Session
	gen     uint64
	convID  int64
	text    string
	done    bool
}

// Text returns the submitted text.
func (p *Send) Text() string {
	return p.text
}

// BeginSend is the synchronous half of SendMessage. It rejects blank text, a
// session without a conversation, and a second send while one is pending.
// On acceptance the input buffer is cleared and pending is set before it
// returns.
func (s *Session) BeginSend(text string) (*Send, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(text) == "" || s.conv == nil || s.state != StateReady || s.pending {
		return nil, false
	}

	s.pending = true
	s.input = ""
	return &Send{session: s, gen: s.gen, convID: s.conv.ID, text: text}, true
}

// Await performs the network call. On success the user message and the
// reply are appended together. On failure the text goes back to the input
// buffer and the log is untouched. Pending clears either way.
func (p *Send) Await(ctx context.Context) error {
	s := p.session

	s.mu.Lock()
	if p.done {
		s.mu.Unlock()
		return ErrSendCompleted
	}
	p.done = true
	s.mu.Unlock()

	exchange, err := s.api.SendMessage(ctx, p.convID, p.text)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != p.gen {
		return ErrSuperseded
	}
	s.pending = false

	if err != nil {
		s.input = p.text
		s.logger.Warn("send failed, draft restored", zap.Int64("conversation_id", p.convID), zap.Error(err))
		return err
	}

	s.messages = append(s.messages, exchange.UserMessage, exchange.AvatarMessage)
	return nil
}

// SendMessage sends text and waits for the reply. accepted is false when the
// send was rejected without touching the network.
func (s *Session) SendMessage(ctx context.Context, text string) (accepted bool, err error) {
	send, ok := s.BeginSend(text)
	if !ok {
		return false, nil
	}
	return true, send.Await(ctx)
}

// SetInput replaces the draft in the input buffer.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
}

// Input returns the draft in the input buffer.
func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// Messages returns a copy of the log.
func (s *Session) Messages() []conversation.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]conversation.Message(nil), s.messages...)
}

// Avatar returns the loaded avatar once the session is ready.
func (s *Session) Avatar() (avatar.Avatar, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.avatar == nil {
		return avatar.Avatar{}, false
	}
	return *s.avatar, true
}

// Conversation returns the adopted conversation without its messages.
func (s *Session) Conversation() (conversation.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conv == nil {
		return conversation.Conversation{}, false
	}
	return *s.conv, true
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the initialization error of a Failed session.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Pending reports whether a send is in flight.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}
