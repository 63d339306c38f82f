// Package guard gates protected views on a valid session. It is a pure
// gate: either the session is live and the view may load data, or the
// caller is redirected to the login entry point. No retries, no error
// states.
package guard

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-social-client/session"
)

// LoginRoute is the entry point unauthenticated callers are sent to.
const LoginRoute = "/login"

// Redirector receives the redirect a guard issues when no valid session
// exists. Implementations route the user agent; the guard never cares how.
type Redirector interface {
	Redirect(target string)
}

// RedirectorFunc adapts a function to the Redirector interface.
type RedirectorFunc func(target string)

func (f RedirectorFunc) Redirect(target string) { f(target) }

// Sessions is the slice of the session manager the guard consumes.
type Sessions interface {
	CurrentIdentity() *session.Identity
	Subscribe(fn func(session.Event)) func()
}

// Guard enforces that a view only operates while a session exists. It
// re-evaluates on every session transition, so a background expiry logout
// redirects even when the view itself never calls Enforce again.
type Guard struct {
	sessions   Sessions
	redirector Redirector

	mu          sync.Mutex
	unsubscribe func()
}

// New creates a Guard bound to the login entry point.
func New(sessions Sessions, redirector Redirector) (*Guard, error) {
	if sessions == nil {
		return nil, errors.New("[guard.New] sessions is required")
	}
	if redirector == nil {
		return nil, errors.New("[guard.New] redirector is required")
	}

	g := &Guard{sessions: sessions, redirector: redirector}
	g.unsubscribe = sessions.Subscribe(func(event session.Event) {
		if event == session.EventLogout {
			g.redirector.Redirect(LoginRoute)
		}
	})
	return g, nil
}

// Enforce reports whether the calling view may proceed. When no valid
// session exists it issues the redirect and the view must not load data.
func (g *Guard) Enforce() bool {
	if g.sessions.CurrentIdentity() == nil {
		g.redirector.Redirect(LoginRoute)
		return false
	}
	return true
}

// Teardown detaches the guard from session transitions. Call when the
// guarded view area is torn down. Idempotent.
func (g *Guard) Teardown() {
	g.mu.Lock()
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}
