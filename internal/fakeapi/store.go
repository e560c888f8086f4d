package fakeapi

import (
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/memoria-app/memoria/internal/model/auth"
	"github.com/memoria-app/memoria/internal/model/avatar"
	"github.com/memoria-app/memoria/internal/model/conversation"
)

var (
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrAvatarNotFound       = errors.New("avatar not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrImageRequired        = errors.New("avatar has no profile image")
	ErrAvatarNotReady       = errors.New("avatar is not ready")
	ErrConversationExists   = errors.New("conversation already exists for avatar")
)

// FieldErrors maps a form field to its problems, rendered the way the
// frontend flattens them.
type FieldErrors map[string][]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e[k], " ")))
	}
	return strings.Join(parts, "; ")
}

type user struct {
	username  string
	email     string
	firstName string
	lastName  string
	password  []byte
}

type avatarRecord struct {
	owner string
	item  avatar.Avatar
}

type conversationRecord struct {
	owner string
	item  conversation.Conversation
}

// Store keeps every resource of the fake backend in memory.
type Store struct {
	mu            sync.RWMutex
	users         map[string]user
	access        map[string]string
	avatars       map[int64]*avatarRecord
	conversations map[int64]*conversationRecord
	nextAvatarID  int64
	nextConvID    int64
	nextMessageID int64
	requireImage  bool
	now           func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRequireImage makes finalize fail for avatars without a profile image.
func WithRequireImage(required bool) StoreOption {
	return func(s *Store) {
		s.requireImage = required
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore returns an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		users:         make(map[string]user),
		access:        make(map[string]string),
		avatars:       make(map[int64]*avatarRecord),
		conversations: make(map[int64]*conversationRecord),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates the form, creates the user and issues tokens.
func (s *Store) Register(req auth.RegisterRequest) (auth.Credentials, error) {
	errs := FieldErrors{}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		errs["username"] = append(errs["username"], "This field may not be blank.")
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			errs["email"] = append(errs["email"], "Enter a valid email address.")
		}
	}
	if len(req.Password) < 8 {
		errs["password"] = append(errs["password"], "This password is too short. It must contain at least 8 characters.")
	}
	if req.Password != req.Password2 {
		errs["password"] = append(errs["password"], "Password fields didn't match.")
	}

	var hash []byte
	if len(errs) == 0 {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
		if err != nil {
			errs["password"] = append(errs["password"], "Ensure this field has no more than 72 characters.")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists && username != "" {
		errs["username"] = append(errs["username"], "A user with that username already exists.")
	}
	if len(errs) > 0 {
		return auth.Credentials{}, errs
	}

	s.users[username] = user{
		username:  username,
		email:     req.Email,
		firstName: req.FirstName,
		lastName:  req.LastName,
		password:  hash,
	}
	return s.issueLocked(username), nil
}

// Login checks the password and issues a fresh token pair.
func (s *Store) Login(username, password string) (auth.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[strings.TrimSpace(username)]
	if !ok || bcrypt.CompareHashAndPassword(u.password, []byte(password)) != nil {
		return auth.Credentials{}, ErrInvalidCredentials
	}
	return s.issueLocked(u.username), nil
}

// Authenticate resolves an access token to its owner.
func (s *Store) Authenticate(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.access[token]
	return owner, ok
}

// Revoke invalidates an access token.
func (s *Store) Revoke(token string) {
	s.mu.Lock()
	delete(s.access, token)
	s.mu.Unlock()
}

func (s *Store) issueLocked(username string) auth.Credentials {
	creds := auth.Credentials{AccessToken: uuid.NewString(), RefreshToken: uuid.NewString()}
	s.access[creds.AccessToken] = username
	return creds
}

// CreateAvatar stores a draft avatar.
func (s *Store) CreateAvatar(owner string, fields avatar.Fields, imageName string) (avatar.Avatar, error) {
	errs := FieldErrors{}
	if strings.TrimSpace(fields.Name) == "" {
		errs["name"] = []string{"This field may not be blank."}
	}
	gender, err := avatar.ParseGender(string(fields.Gender))
	if err != nil {
		errs["gender"] = []string{fmt.Sprintf("\"%s\" is not a valid choice.", fields.Gender)}
	}
	if len(errs) > 0 {
		return avatar.Avatar{}, errs
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAvatarID++
	now := s.now().UTC()
	item := avatar.Avatar{
		ID:           s.nextAvatarID,
		Name:         strings.TrimSpace(fields.Name),
		Relationship: fields.Relationship,
		Description:  fields.Description,
		Gender:       gender,
		Status:       avatar.StatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if imageName != "" {
		item.ProfileImage = fmt.Sprintf("/media/avatars/%d/%s", item.ID, imageName)
	}

	s.avatars[item.ID] = &avatarRecord{owner: owner, item: item}
	return item, nil
}

// ListAvatars returns owner's avatars, newest first.
func (s *Store) ListAvatars(owner string) []avatar.Avatar {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]avatar.Avatar, 0)
	for _, rec := range s.avatars {
		if rec.owner == owner {
			items = append(items, rec.item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items
}

// GetAvatar returns one of owner's avatars.
func (s *Store) GetAvatar(owner string, id int64) (avatar.Avatar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.avatars[id]
	if !ok || rec.owner != owner {
		return avatar.Avatar{}, ErrAvatarNotFound
	}
	return rec.item, nil
}

// FinalizeAvatar moves a draft to ready. Finalizing a ready avatar is a no-op.
func (s *Store) FinalizeAvatar(owner string, id int64) (avatar.Avatar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.avatars[id]
	if !ok || rec.owner != owner {
		return avatar.Avatar{}, ErrAvatarNotFound
	}
	if s.requireImage && rec.item.ProfileImage == "" {
		return avatar.Avatar{}, ErrImageRequired
	}

	rec.item.Status = avatar.StatusReady
	rec.item.UpdatedAt = s.now().UTC()
	return rec.item, nil
}

// ListConversations returns owner's conversations with their messages.
func (s *Store) ListConversations(owner string) []conversation.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]conversation.Conversation, 0)
	for _, rec := range s.conversations {
		if rec.owner == owner {
			items = append(items, copyConversation(rec.item))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].UpdatedAt.After(items[j].UpdatedAt) })
	return items
}

// CreateConversation opens the single conversation between owner and avatarID.
func (s *Store) CreateConversation(owner string, avatarID int64) (conversation.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.avatars[avatarID]
	if !ok || rec.owner != owner {
		return conversation.Conversation{}, ErrAvatarNotFound
	}
	if rec.item.Status != avatar.StatusReady {
		return conversation.Conversation{}, ErrAvatarNotReady
	}
	for _, c := range s.conversations {
		if c.owner == owner && c.item.AvatarID == avatarID {
			return conversation.Conversation{}, ErrConversationExists
		}
	}

	s.nextConvID++
	now := s.now().UTC()
	item := conversation.Conversation{
		ID:         s.nextConvID,
		AvatarID:   avatarID,
		AvatarName: rec.item.Name,
		Title:      "Chat with " + rec.item.Name,
		Messages:   []conversation.Message{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.conversations[item.ID] = &conversationRecord{owner: owner, item: item}
	return copyConversation(item), nil
}

// Thread returns a conversation and its avatar for reply generation.
func (s *Store) Thread(owner string, convID int64) (conversation.Conversation, avatar.Avatar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.conversations[convID]
	if !ok || rec.owner != owner {
		return conversation.Conversation{}, avatar.Avatar{}, ErrConversationNotFound
	}
	av := s.avatars[rec.item.AvatarID]
	if av == nil {
		return conversation.Conversation{}, avatar.Avatar{}, ErrAvatarNotFound
	}
	return copyConversation(rec.item), av.item, nil
}

// AppendExchange stores the user message and the reply as one pair.
func (s *Store) AppendExchange(owner string, convID int64, text, reply string) (conversation.Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.conversations[convID]
	if !ok || rec.owner != owner {
		return conversation.Exchange{}, ErrConversationNotFound
	}

	now := s.now().UTC()
	s.nextMessageID++
	userMsg := conversation.Message{ID: s.nextMessageID, SenderType: conversation.SenderUser, TextContent: text, CreatedAt: now}
	s.nextMessageID++
	avatarMsg := conversation.Message{ID: s.nextMessageID, SenderType: conversation.SenderAvatar, TextContent: reply, CreatedAt: now}

	rec.item.Messages = append(rec.item.Messages, userMsg, avatarMsg)
	rec.item.UpdatedAt = now
	return conversation.Exchange{UserMessage: userMsg, AvatarMessage: avatarMsg}, nil
}

func copyConversation(c conversation.Conversation) conversation.Conversation {
	c.Messages = append([]conversation.Message{}, c.Messages...)
	return c
}
