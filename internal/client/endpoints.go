package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/memoria-app/memoria/internal/model/auth"
	"github.com/memoria-app/memoria/internal/model/avatar"
	"github.com/memoria-app/memoria/internal/model/conversation"
)

// ErrMissingID is returned when a create call answers without an id.
var ErrMissingID = errors.New("response missing id")

// Login exchanges a username and password for a token pair.
func (c *Client) Login(ctx context.Context, req auth.LoginRequest) (auth.Credentials, error) {
	r, err := jsonRequest("login", http.MethodPost, "/users/login/", req, false)
	if err != nil {
		return auth.Credentials{}, err
	}

	var creds auth.Credentials
	if err := c.do(ctx, r, &creds); err != nil {
		return auth.Credentials{}, err
	}
	return creds, nil
}

// Register creates an account and returns its initial token pair.
func (c *Client) Register(ctx context.Context, req auth.RegisterRequest) (auth.Credentials, error) {
	r, err := jsonRequest("register", http.MethodPost, "/users/register/", req, false)
	if err != nil {
		return auth.Credentials{}, err
	}

	var resp auth.RegisterResponse
	if err := c.do(ctx, r, &resp); err != nil {
		return auth.Credentials{}, err
	}
	return resp.Tokens, nil
}

// ListAvatars returns every avatar owned by the current user.
func (c *Client) ListAvatars(ctx context.Context) ([]avatar.Avatar, error) {
	var items []avatar.Avatar
	r := request{op: "list avatars", method: http.MethodGet, path: "/avatars/", protected: true}
	if err := c.do(ctx, r, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetAvatar fetches a single avatar.
func (c *Client) GetAvatar(ctx context.Context, id int64) (avatar.Avatar, error) {
	var item avatar.Avatar
	r := request{op: "get avatar", method: http.MethodGet, path: avatarPath(id), protected: true}
	if err := c.do(ctx, r, &item); err != nil {
		return avatar.Avatar{}, err
	}
	return item, nil
}

// CreateAvatar uploads the form fields and optional image as multipart data.
// The avatar comes back as a draft.
func (c *Client) CreateAvatar(ctx context.Context, fields avatar.Fields, image *avatar.Image) (avatar.Avatar, error) {
	const op = "create avatar"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	gender := fields.Gender
	if gender == "" {
		gender = avatar.GenderOther
	}
	formFields := [][2]string{
		{"name", fields.Name},
		{"relationship", fields.Relationship},
		{"description", fields.Description},
		{"gender", string(gender)},
	}
	for _, kv := range formFields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return avatar.Avatar{}, fmt.Errorf("%s: write field %s: %w", op, kv[0], err)
		}
	}

	if image != nil {
		part, err := mw.CreateFormFile("profile_image", filepath.Base(image.Filename))
		if err != nil {
			return avatar.Avatar{}, fmt.Errorf("%s: create file part: %w", op, err)
		}
		if _, err := part.Write(image.Data); err != nil {
			return avatar.Avatar{}, fmt.Errorf("%s: write file part: %w", op, err)
		}
	}

	if err := mw.Close(); err != nil {
		return avatar.Avatar{}, fmt.Errorf("%s: close multipart: %w", op, err)
	}

	r := request{
		op:          op,
		method:      http.MethodPost,
		path:        "/avatars/",
		body:        &buf,
		contentType: mw.FormDataContentType(),
		protected:   true,
	}

	var created avatar.Avatar
	if err := c.do(ctx, r, &created); err != nil {
		return avatar.Avatar{}, err
	}
	if created.ID == 0 {
		return avatar.Avatar{}, fmt.Errorf("%s: %w", op, ErrMissingID)
	}

	c.logger.Info("avatar created", zap.Int64("avatar_id", created.ID), zap.String("status", string(created.Status)))
	return created, nil
}

// FinalizeAvatar promotes a draft avatar to ready. It accepts either the
// avatar itself or a {message, avatar} wrapper.
func (c *Client) FinalizeAvatar(ctx context.Context, id int64) (avatar.Avatar, error) {
	const op = "finalize avatar"

	var raw json.RawMessage
	r := request{op: op, method: http.MethodPost, path: avatarPath(id) + "finalize/", protected: true}
	if err := c.do(ctx, r, &raw); err != nil {
		return avatar.Avatar{}, err
	}

	var wrapped avatar.FinalizeResponse
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Avatar != nil {
		return *wrapped.Avatar, nil
	}

	var item avatar.Avatar
	if err := json.Unmarshal(raw, &item); err != nil {
		return avatar.Avatar{}, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if item.ID == 0 {
		item.ID = id
	}
	return item, nil
}

// ListConversations returns every conversation of the current user.
func (c *Client) ListConversations(ctx context.Context) ([]conversation.Conversation, error) {
	var items []conversation.Conversation
	r := request{op: "list conversations", method: http.MethodGet, path: "/conversations/", protected: true}
	if err := c.do(ctx, r, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateConversation opens the conversation for avatarID.
func (c *Client) CreateConversation(ctx context.Context, avatarID int64) (conversation.Conversation, error) {
	const op = "create conversation"

	r, err := jsonRequest(op, http.MethodPost, "/conversations/", conversation.CreateRequest{AvatarID: avatarID}, true)
	if err != nil {
		return conversation.Conversation{}, err
	}

	var created conversation.Conversation
	if err := c.do(ctx, r, &created); err != nil {
		return conversation.Conversation{}, err
	}
	if created.ID == 0 {
		return conversation.Conversation{}, fmt.Errorf("%s: %w", op, ErrMissingID)
	}
	return created, nil
}

// SendMessage posts text and returns the stored user message and the reply.
func (c *Client) SendMessage(ctx context.Context, conversationID int64, text string) (conversation.Exchange, error) {
	path := "/conversations/" + strconv.FormatInt(conversationID, 10) + "/send_message/"
	r, err := jsonRequest("send message", http.MethodPost, path, conversation.SendMessageRequest{Text: text}, true)
	if err != nil {
		return conversation.Exchange{}, err
	}

	var exchange conversation.Exchange
	if err := c.do(ctx, r, &exchange); err != nil {
		return conversation.Exchange{}, err
	}
	return exchange, nil
}

func avatarPath(id int64) string {
	return "/avatars/" + strconv.FormatInt(id, 10) + "/"
}
