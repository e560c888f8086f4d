package gate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria-app/memoria/internal/model/auth"
	"github.com/memoria-app/memoria/internal/service/credential"
	"github.com/memoria-app/memoria/internal/service/gate"
)

func TestDecide(t *testing.T) {
	cases := []struct {
		name          string
		authenticated bool
		path          string
		want          gate.Decision
	}{
		{"anon login", false, "/login", gate.Decision{Render: gate.ViewLogin}},
		{"anon register", false, "/register", gate.Decision{Render: gate.ViewRegister}},
		{"anon dashboard", false, "/dashboard", gate.Decision{Redirect: "/login"}},
		{"anon create", false, "/avatar/create", gate.Decision{Redirect: "/login"}},
		{"anon chat", false, "/chat/42", gate.Decision{Redirect: "/login"}},
		{"anon root", false, "/", gate.Decision{Redirect: "/login"}},
		{"anon unknown", false, "/nowhere", gate.Decision{Redirect: "/login"}},
		{"auth login", true, "/login", gate.Decision{Redirect: "/dashboard"}},
		{"auth register", true, "/register", gate.Decision{Redirect: "/dashboard"}},
		{"auth dashboard", true, "/dashboard", gate.Decision{Render: gate.ViewDashboard}},
		{"auth create", true, "/avatar/create", gate.Decision{Render: gate.ViewAvatarCreate}},
		{"auth chat", true, "/chat/42", gate.Decision{Render: gate.ViewChat, AvatarID: 42}},
		{"auth chat trailing slash", true, "/chat/42/", gate.Decision{Render: gate.ViewChat, AvatarID: 42}},
		{"auth chat bad id", true, "/chat/abc", gate.Decision{Redirect: "/dashboard"}},
		{"auth chat zero id", true, "/chat/0", gate.Decision{Redirect: "/dashboard"}},
		{"auth root", true, "/", gate.Decision{Redirect: "/dashboard"}},
		{"auth unknown", true, "/settings", gate.Decision{Redirect: "/dashboard"}},
		{"auth query string", true, "/dashboard?tab=1", gate.Decision{Render: gate.ViewDashboard}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, gate.Decide(tc.authenticated, tc.path))
		})
	}
}

func TestGatePendingUntilResolved(t *testing.T) {
	g := gate.New(nil)
	assert.Equal(t, gate.PhaseUnresolved, g.Phase())

	decision := g.Navigate("/dashboard")
	assert.True(t, decision.Pending)
	assert.Empty(t, decision.Redirect)
	assert.Equal(t, gate.ViewNone, decision.Render)
}

func TestGateResolveFromStore(t *testing.T) {
	store := credential.NewMemoryStore()
	g := gate.New(nil)
	assert.Equal(t, gate.PhasePublic, g.Resolve(store))
	assert.Equal(t, gate.Decision{Redirect: "/login"}, g.Navigate("/chat/7"))

	store2 := credential.NewMemoryStore()
	require.NoError(t, store2.Set(auth.Credentials{AccessToken: "a", RefreshToken: "r"}))
	g2 := gate.New(nil)
	assert.Equal(t, gate.PhaseProtected, g2.Resolve(store2))
	assert.Equal(t, gate.Decision{Render: gate.ViewChat, AvatarID: 7}, g2.Navigate("/chat/7"))
}

func TestGateResolveOnlyOnce(t *testing.T) {
	store := credential.NewMemoryStore()
	g := gate.New(nil)
	g.Resolve(store)

	require.NoError(t, store.Set(auth.Credentials{AccessToken: "a", RefreshToken: "r"}))
	assert.Equal(t, gate.PhasePublic, g.Resolve(store), "second resolve must not re-read the store")
}

func TestGateSetAuthenticated(t *testing.T) {
	g := gate.New(nil)
	g.Resolve(credential.NewMemoryStore())

	g.SetAuthenticated(true)
	assert.True(t, g.Authenticated())
	assert.Equal(t, gate.Decision{Redirect: "/dashboard"}, g.Navigate("/login"))

	g.SetAuthenticated(false)
	assert.False(t, g.Authenticated())
	assert.Equal(t, gate.Decision{Redirect: "/login"}, g.Navigate("/dashboard"))
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "unresolved", gate.PhaseUnresolved.String())
	assert.Equal(t, "public", gate.PhasePublic.String())
	assert.Equal(t, "protected", gate.PhaseProtected.String())
	assert.Equal(t, "unknown", gate.Phase(99).String())
}

func TestChatPath(t *testing.T) {
	assert.Equal(t, "/chat/42", gate.ChatPath(42))
}
