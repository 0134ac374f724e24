package nav

import (
	"testing"

	"github.com/cuzradio/storectl/internal/model"
	"github.com/cuzradio/storectl/internal/session"
)

func authedStore(t *testing.T) *session.MemStore {
	t.Helper()
	st := session.NewMemStore()
	err := st.Establish(model.Session{
		AccessToken: "tok",
		Identity:    model.Identity{Username: "ada", Role: model.RolePrimary},
	})
	if err != nil {
		t.Fatalf("establish: %v", err)
	}
	return st
}

func TestResolve_AnonymousProtectedRedirectsToLogin(t *testing.T) {
	t.Parallel()
	g := New(session.NewMemStore())

	for _, path := range []string{ScreenRoot, ScreenAdmin, ScreenPrimary, ScreenSecondary, ScreenNotFound} {
		v := g.Resolve(path)
		if v.Render {
			t.Fatalf("Resolve(%s) anonymous: want redirect, got render", path)
		}
		if v.RedirectTo != ScreenLogin {
			t.Fatalf("Resolve(%s) redirect=%s, want %s", path, v.RedirectTo, ScreenLogin)
		}
		if v.From != path {
			t.Fatalf("Resolve(%s) From=%s, want original path preserved", path, v.From)
		}
	}
}

func TestResolve_AnonymousEntryPointsRender(t *testing.T) {
	t.Parallel()
	g := New(session.NewMemStore())

	for _, path := range []string{ScreenLogin, ScreenSignup} {
		v := g.Resolve(path)
		if !v.Render || v.Screen != path {
			t.Fatalf("Resolve(%s) anonymous: want render, got %+v", path, v)
		}
	}
}

func TestResolve_AuthenticatedEntryPointsRedirectHome(t *testing.T) {
	t.Parallel()
	g := New(authedStore(t))

	for _, path := range []string{ScreenLogin, ScreenSignup} {
		v := g.Resolve(path)
		if v.Render || v.RedirectTo != ScreenRoot {
			t.Fatalf("Resolve(%s) authenticated: got %+v, want redirect to %s", path, v, ScreenRoot)
		}
	}
}

// The guard checks authentication only, never role: a PRIMARY session may
// open the admin route tree, and the backend rejects the calls it will
// not serve.
func TestResolve_AuthenticatedReachesAnyRouteTree(t *testing.T) {
	t.Parallel()
	g := New(authedStore(t))

	for _, path := range []string{ScreenRoot, ScreenAdmin, ScreenPrimary, ScreenSecondary} {
		v := g.Resolve(path)
		if !v.Render || v.Screen != path {
			t.Fatalf("Resolve(%s): got %+v, want render", path, v)
		}
	}
}

func TestResolve_UnmatchedRedirectsToNotFound(t *testing.T) {
	t.Parallel()

	for _, g := range []*Guard{New(session.NewMemStore()), New(authedStore(t))} {
		v := g.Resolve("/nope")
		if v.Render || v.RedirectTo != ScreenNotFound {
			t.Fatalf("Resolve(/nope): got %+v, want redirect to %s", v, ScreenNotFound)
		}
	}
}

func TestState_TracksStoreChanges(t *testing.T) {
	t.Parallel()
	st := session.NewMemStore()
	g := New(st)

	if g.State() != Anonymous {
		t.Fatalf("initial state: want Anonymous")
	}
	_ = st.Establish(model.Session{AccessToken: "tok", Identity: model.Identity{Username: "u", Role: model.RoleAdmin}})
	if g.State() != Authenticated {
		t.Fatalf("after establish: want Authenticated")
	}
	_ = st.Clear()
	if g.State() != Anonymous {
		t.Fatalf("after clear: want Anonymous")
	}
}
