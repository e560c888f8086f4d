// Package gate decides which view a navigation renders based on whether the
// user is authenticated.
package gate

import (
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/memoria-app/memoria/internal/service/credential"
)

// Route paths.
const (
	PathRoot         = "/"
	PathLogin        = "/login"
	PathRegister     = "/register"
	PathDashboard    = "/dashboard"
	PathAvatarCreate = "/avatar/create"
	PathChatPrefix   = "/chat/"
)

// Phase is the gate's view of the session.
type Phase int

const (
	PhaseUnresolved Phase = iota
	PhasePublic
	PhaseProtected
)

func (p Phase) String() string {
	switch p {
	case PhaseUnresolved:
		return "unresolved"
	case PhasePublic:
		return "public"
	case PhaseProtected:
		return "protected"
	default:
		return "unknown"
	}
}

// View names a renderable screen.
type View string

const (
	ViewNone         View = ""
	ViewLogin        View = "login"
	ViewRegister     View = "register"
	ViewDashboard    View = "dashboard"
	ViewAvatarCreate View = "avatar-create"
	ViewChat         View = "chat"
)

// Public reports whether v is reachable without credentials.
func (v View) Public() bool {
	return v == ViewLogin || v == ViewRegister
}

// Decision is the outcome of a navigation. Exactly one of Pending, Redirect or
// Render is meaningful.
type Decision struct {
	Pending  bool
	Redirect string
	Render   View
	AvatarID int64
}

// Match maps path onto a view. Unknown paths return ViewNone.
func Match(path string) (View, int64) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}

	switch path {
	case PathLogin:
		return ViewLogin, 0
	case PathRegister:
		return ViewRegister, 0
	case PathDashboard:
		return ViewDashboard, 0
	case PathAvatarCreate:
		return ViewAvatarCreate, 0
	}

	if rest, ok := strings.CutPrefix(path, PathChatPrefix); ok && !strings.Contains(rest, "/") {
		id, err := strconv.ParseInt(rest, 10, 64)
		if err == nil && id > 0 {
			return ViewChat, id
		}
	}
	return ViewNone, 0
}

// Decide is the pure routing rule.
func Decide(authenticated bool, path string) Decision {
	view, avatarID := Match(path)

	if view == ViewNone {
		if authenticated {
			return Decision{Redirect: PathDashboard}
		}
		return Decision{Redirect: PathLogin}
	}

	switch {
	case authenticated && view.Public():
		return Decision{Redirect: PathDashboard}
	case !authenticated && !view.Public():
		return Decision{Redirect: PathLogin}
	default:
		return Decision{Render: view, AvatarID: avatarID}
	}
}

// ChatPath returns the chat route for avatarID.
func ChatPath(avatarID int64) string {
	return PathChatPrefix + strconv.FormatInt(avatarID, 10)
}

// Gate tracks authentication state across navigations.
type Gate struct {
	mu     sync.RWMutex
	phase  Phase
	logger *zap.Logger
}

// New returns an unresolved gate.
func New(logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{logger: logger}
}

// Resolve consults store once. Later calls keep the resolved phase.
func (g *Gate) Resolve(store credential.Store) Phase {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != PhaseUnresolved {
		return g.phase
	}

	if _, ok := store.Get(); ok {
		g.phase = PhaseProtected
	} else {
		g.phase = PhasePublic
	}
	g.logger.Debug("auth gate resolved", zap.Stringer("phase", g.phase))
	return g.phase
}

// Phase returns the current phase.
func (g *Gate) Phase() Phase {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.phase
}

// Authenticated reports whether the gate is in the protected phase.
func (g *Gate) Authenticated() bool {
	return g.Phase() == PhaseProtected
}

// SetAuthenticated moves the gate after login, registration, logout or a 401.
func (g *Gate) SetAuthenticated(authenticated bool) {
	next := PhasePublic
	if authenticated {
		next = PhaseProtected
	}

	g.mu.Lock()
	prev := g.phase
	g.phase = next
	g.mu.Unlock()

	if prev != next {
		g.logger.Info("auth state changed", zap.Stringer("from", prev), zap.Stringer("to", next))
	}
}

// Navigate decides what path renders. Nothing renders until the gate resolves.
func (g *Gate) Navigate(path string) Decision {
	phase := g.Phase()
	if phase == PhaseUnresolved {
		return Decision{Pending: true}
	}
	return Decide(phase == PhaseProtected, path)
}
