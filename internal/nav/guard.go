// Package nav decides, per navigation attempt, whether a screen is
// rendered or the user is redirected. This is advisory UX routing only;
// the backend enforces authorization on every API call regardless.
package nav

import (
	"github.com/cuzradio/storectl/internal/session"
)

// Screen paths mirrored from the route tree.
const (
	ScreenRoot      = "/"
	ScreenLogin     = "/login"
	ScreenSignup    = "/signup"
	ScreenAdmin     = "/admin_routes"
	ScreenPrimary   = "/primary_routes"
	ScreenSecondary = "/secondary_routes"
	ScreenNotFound  = "/not-found"
)

// State is the guard's two-state machine, derived synchronously from the
// session store at resolution time. There is no intermediate loading state.
type State int

const (
	Anonymous State = iota
	Authenticated
)

// Verdict is the outcome of resolving one navigation attempt.
type Verdict struct {
	Render     bool
	Screen     string // screen to render when Render is true
	RedirectTo string // target screen otherwise
	From       string // original path preserved on login redirects
}

// Guard gates the protected route tree on authentication. It checks
// authentication only, not role: any authenticated user may enter any
// route tree, and the backend rejects the calls it will not serve.
type Guard struct {
	sessions session.Store
}

func New(sessions session.Store) *Guard { return &Guard{sessions: sessions} }

// State reads the current machine state from the session store.
func (g *Guard) State() State {
	if _, ok := g.sessions.Current(); ok {
		return Authenticated
	}
	return Anonymous
}

// protected reports whether path sits inside the authenticated layout.
func protected(path string) bool {
	switch path {
	case ScreenRoot, ScreenAdmin, ScreenPrimary, ScreenSecondary, ScreenNotFound:
		return true
	}
	return false
}

// Resolve maps a requested path to a verdict. Protected screens while
// anonymous redirect to login, preserving the origin so it can be resumed
// after authentication. Login and signup while authenticated redirect to
// the landing screen. Anything unmatched redirects to not-found.
func (g *Guard) Resolve(path string) Verdict {
	authed := g.State() == Authenticated
	switch {
	case protected(path):
		if !authed {
			return Verdict{RedirectTo: ScreenLogin, From: path}
		}
		return Verdict{Render: true, Screen: path}
	case path == ScreenLogin, path == ScreenSignup:
		if authed {
			return Verdict{RedirectTo: ScreenRoot}
		}
		return Verdict{Render: true, Screen: path}
	}
	return Verdict{RedirectTo: ScreenNotFound}
}
