package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria-app/memoria/internal/apperr"
	"github.com/memoria-app/memoria/internal/model/avatar"
)

type stubAPI struct {
	items []avatar.Avatar
	err   error
}

func (s stubAPI) ListAvatars(context.Context) ([]avatar.Avatar, error) {
	return s.items, s.err
}

func TestList(t *testing.T) {
	items := []avatar.Avatar{
		{ID: 1, Name: "Grandpa John", Status: avatar.StatusReady},
		{ID: 2, Name: "Nana", Status: avatar.StatusDraft},
	}
	svc := NewService(stubAPI{items: items}, nil)

	got, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, items, got)
}

func TestListError(t *testing.T) {
	svc := NewService(stubAPI{err: &apperr.NetworkError{Op: "list avatars", Err: errors.New("refused")}}, nil)

	_, err := svc.List(context.Background())
	var netErr *apperr.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "Could not reach the server, please try again", apperr.UserMessage(err, MsgLoadFailed))
}

func TestChatPath(t *testing.T) {
	path, ok := ChatPath(avatar.Avatar{ID: 42, Status: avatar.StatusReady})
	assert.True(t, ok)
	assert.Equal(t, "/chat/42", path)

	_, ok = ChatPath(avatar.Avatar{ID: 43, Status: avatar.StatusDraft})
	assert.False(t, ok, "draft avatars are never chattable")

	assert.False(t, CanChat(avatar.Avatar{Status: avatar.StatusReady}), "missing id")
}
