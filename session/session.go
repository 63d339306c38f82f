// Package session owns the client's authentication state: the bearer token,
// the identity derived from it, and the validity window. It is the single
// source of truth for "who is logged in and until when" — views and the
// route guard read through it and never touch the token store directly.
package session

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-social-client/session/tokenstore"
)

const defaultLivenessInterval = 60 * time.Second

// Event describes a session state transition delivered to subscribers.
type Event int

const (
	EventLogin Event = iota
	EventLogout
)

// Manager holds the active session. At most one session exists per Manager;
// Login and Logout are the only mutation points, and both keep the persisted
// store in step with the in-memory state.
type Manager struct {
	store    tokenstore.Store
	nowTime  func() time.Time // injectable for testing
	interval time.Duration

	mu       sync.RWMutex
	token    string
	identity *Identity
	subs     map[int]func(Event)
	nextSub  int

	watchMu   sync.Mutex
	watchStop chan struct{}
	watchDone chan struct{}
}

// ManagerOption modifies a Manager during construction.
type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithLivenessInterval overrides the default 60s liveness check interval.
func WithLivenessInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.interval = d
	}
}

// NewManager creates a session Manager backed by the given token store.
func NewManager(store tokenstore.Store, options ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[NewManager] token store is required")
	}

	m := &Manager{
		store:    store,
		nowTime:  time.Now,
		interval: defaultLivenessInterval,
		subs:     map[int]func(Event){},
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Initialize restores a persisted session at process start. A missing,
// malformed, or already-expired token leaves the manager logged out and
// clears the store; decode failures never escape this method.
func (m *Manager) Initialize() error {
	raw, err := m.store.Load()
	if errors.Is(err, tokenstore.ErrNoToken) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "[Manager.Initialize] store.Load")
	}

	identity, err := decodeIdentity(raw)
	if err != nil || !identity.Valid(m.nowTime()) {
		log.Debug().Msg("discarding persisted token")
		if clearErr := m.store.Clear(); clearErr != nil {
			return errors.Wrap(clearErr, "[Manager.Initialize] store.Clear")
		}
		return nil
	}

	m.mu.Lock()
	m.token = raw
	m.identity = identity
	m.mu.Unlock()
	return nil
}

// Login decodes the issued token, persists it, and installs the session.
// This is the only path that creates a session. A token that cannot be
// decoded into the expected claim shape fails with ErrMalformedToken and
// leaves any prior session untouched; a token already past its expiry fails
// with ErrTokenExpired.
func (m *Manager) Login(rawToken string) (*Identity, error) {
	identity, err := decodeIdentity(rawToken)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Login] decodeIdentity")
	}
	if !identity.Valid(m.nowTime()) {
		return nil, errors.Wrap(ErrTokenExpired, "[Manager.Login] token already expired")
	}

	if err := m.store.Save(rawToken); err != nil {
		return nil, errors.Wrap(err, "[Manager.Login] store.Save")
	}

	m.mu.Lock()
	m.token = rawToken
	m.identity = identity
	m.mu.Unlock()

	log.Info().Int64("subject_id", identity.SubjectID).Msg("session established")
	m.notify(EventLogin)
	return identity, nil
}

// Logout clears the persisted token and drops the session. Idempotent:
// calling it with no active session is a no-op and notifies nobody.
func (m *Manager) Logout() error {
	m.mu.Lock()
	if m.identity == nil && m.token == "" {
		m.mu.Unlock()
		return nil
	}
	m.token = ""
	m.identity = nil
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		return errors.Wrap(err, "[Manager.Logout] store.Clear")
	}

	log.Info().Msg("session cleared")
	m.notify(EventLogout)
	return nil
}

// CurrentIdentity returns the identity of the active session, or nil when
// logged out. Pure read, no side effects.
func (m *Manager) CurrentIdentity() *Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.identity == nil {
		return nil
	}
	identity := *m.identity
	return &identity
}

// Token implements oauth2.TokenSource so the transport gateway attaches the
// bearer token to outgoing requests. Returns ErrNoSession when logged out or
// expired; the gateway surfaces that as an unauthorized request.
func (m *Manager) Token() (*oauth2.Token, error) {
	m.mu.RLock()
	token, identity := m.token, m.identity
	m.mu.RUnlock()

	if identity == nil {
		return nil, ErrNoSession
	}
	if !identity.Valid(m.nowTime()) {
		return nil, errors.Wrap(ErrNoSession, "session expired")
	}
	return &oauth2.Token{AccessToken: token, Expiry: identity.ExpiresAt}, nil
}

// Subscribe registers fn for session transitions and returns its
// unsubscribe function. Subscribers are invoked outside the manager's lock,
// so they may call back into the manager freely.
func (m *Manager) Subscribe(fn func(Event)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify(event Event) {
	m.mu.RLock()
	fns := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn(event)
	}
}
