package fakeapi_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria-app/memoria/internal/apperr"
	"github.com/memoria-app/memoria/internal/client"
	"github.com/memoria-app/memoria/internal/fakeapi"
	"github.com/memoria-app/memoria/internal/model/auth"
	"github.com/memoria-app/memoria/internal/model/avatar"
	"github.com/memoria-app/memoria/internal/model/conversation"
	"github.com/memoria-app/memoria/internal/service/account"
	convsvc "github.com/memoria-app/memoria/internal/service/conversation"
	"github.com/memoria-app/memoria/internal/service/credential"
	"github.com/memoria-app/memoria/internal/service/dashboard"
	"github.com/memoria-app/memoria/internal/service/gate"
	"github.com/memoria-app/memoria/internal/service/wizard"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type harness struct {
	backend *fakeapi.Store
	creds   *credential.MemoryStore
	gate    *gate.Gate
	api     *client.Client
	account *account.Service
}

func newHarness(t *testing.T, opts ...fakeapi.StoreOption) *harness {
	t.Helper()

	backend := fakeapi.NewStore(opts...)
	srv := httptest.NewServer(fakeapi.NewRouter(backend, fakeapi.EchoReplier{}, nil))
	t.Cleanup(srv.Close)

	creds := credential.NewMemoryStore()
	g := gate.New(nil)
	g.Resolve(creds)

	api := client.New(srv.URL+"/api", creds, client.WithTimeout(5*time.Second))
	acct := account.NewService(api, creds, g, nil)
	api.SetUnauthorizedHandler(acct.HandleUnauthorized)

	return &harness{backend: backend, creds: creds, gate: g, api: api, account: acct}
}

func (h *harness) signUp(t *testing.T) {
	t.Helper()
	err := h.account.Register(context.Background(), auth.RegisterRequest{
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "secret123",
		Password2: "secret123",
	})
	require.NoError(t, err)
}

func TestEndToEndMemorialFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	assert.Equal(t, gate.PhasePublic, h.gate.Phase())
	assert.Equal(t, gate.PathLogin, h.gate.Navigate(gate.PathDashboard).Redirect)

	h.signUp(t)
	assert.True(t, h.gate.Authenticated())
	assert.Equal(t, gate.PathDashboard, h.gate.Navigate(gate.PathLogin).Redirect)

	var (
		mu        sync.Mutex
		navigated string
	)
	w := wizard.New(h.api,
		wizard.WithScheduler(func(_ time.Duration, fn func()) { fn() }),
		wizard.WithNavigator(func(path string) {
			mu.Lock()
			navigated = path
			mu.Unlock()
		}),
	)
	w.SetFields(avatar.Fields{Name: "Grandpa John", Relationship: "grandfather"})
	require.NoError(t, w.Advance())
	require.NoError(t, w.AttachImage("photos/john.png", pngHeader))
	require.NoError(t, w.Submit(ctx))
	assert.Equal(t, wizard.StepSubmitted, w.Step())
	assert.Equal(t, wizard.MsgCreated, w.Success())

	mu.Lock()
	assert.Equal(t, gate.PathDashboard, navigated)
	mu.Unlock()

	avatars, err := dashboard.NewService(h.api, nil).List(ctx)
	require.NoError(t, err)
	require.Len(t, avatars, 1)
	assert.Equal(t, "Grandpa John", avatars[0].Name)
	assert.Equal(t, avatar.GenderOther, avatars[0].Gender)

	path, ok := dashboard.ChatPath(avatars[0])
	require.True(t, ok)
	decision := h.gate.Navigate(path)
	require.Equal(t, gate.ViewChat, decision.Render)

	session := convsvc.NewSession(h.api, nil)
	require.NoError(t, session.Initialize(ctx, decision.AvatarID))
	assert.Equal(t, convsvc.StateReady, session.State())
	assert.Empty(t, session.Messages())

	accepted, err := session.SendMessage(ctx, "I miss you")
	require.NoError(t, err)
	require.True(t, accepted)

	msgs := session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, conversation.SenderUser, msgs[0].SenderType)
	assert.Equal(t, "I miss you", msgs[0].TextContent)
	assert.Equal(t, conversation.SenderAvatar, msgs[1].SenderType)
	assert.False(t, session.Pending())

	// A second visit reuses the conversation and its history.
	again := convsvc.NewSession(h.api, nil)
	require.NoError(t, again.Initialize(ctx, decision.AvatarID))
	assert.Len(t, again.Messages(), 2)
	conv1, _ := session.Conversation()
	conv2, _ := again.Conversation()
	assert.Equal(t, conv1.ID, conv2.ID)
}

func TestEndToEndPartialSuccess(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, fakeapi.WithRequireImage(true))
	h.signUp(t)

	w := wizard.New(h.api, wizard.WithScheduler(func(time.Duration, func()) {}))
	w.SetFields(avatar.Fields{Name: "Nana"})
	require.NoError(t, w.Advance())

	err := w.Submit(ctx)
	var partial *apperr.PartialSuccessError
	require.ErrorAs(t, err, &partial)
	assert.Contains(t, w.Error(), "Please upload at least one image")

	id, ok := w.DraftID()
	require.True(t, ok)
	assert.Equal(t, partial.AvatarID, id)

	items, err := h.api.ListAvatars(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, avatar.StatusDraft, items[0].Status)
	_, chattable := dashboard.ChatPath(items[0])
	assert.False(t, chattable)
}

func TestEndToEndRevokedSessionSignsOut(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.signUp(t)

	creds, ok := h.creds.Get()
	require.True(t, ok)
	h.backend.Revoke(creds.AccessToken)

	_, err := dashboard.NewService(h.api, nil).List(ctx)
	require.Error(t, err)
	assert.True(t, apperr.IsAuth(err))

	_, ok = h.creds.Get()
	assert.False(t, ok)
	assert.False(t, h.gate.Authenticated())
	assert.Equal(t, gate.PathLogin, h.gate.Navigate(gate.PathDashboard).Redirect)

	require.NoError(t, h.account.Login(ctx, "alice", "secret123"))
	assert.True(t, h.gate.Authenticated())
}

func TestEndToEndLoginFailure(t *testing.T) {
	h := newHarness(t)
	h.signUp(t)
	require.NoError(t, h.account.Logout())

	err := h.account.Login(context.Background(), "alice", "wrong-password")
	var apiErr *apperr.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Status)
	assert.False(t, apperr.IsAuth(err), "a rejected login must not look like an expired session")
	assert.False(t, h.gate.Authenticated())
	assert.Equal(t, "No active account found with the given credentials", apperr.UserMessage(err, account.MsgLoginFailed))
}
