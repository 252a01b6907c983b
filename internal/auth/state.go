package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ettoiadev/williamdiskpizza/internal/storage"
	"github.com/ettoiadev/williamdiskpizza/internal/types"
)

const (
	// DefaultProfileTimeout bounds a single admin-profile fetch.
	DefaultProfileTimeout = 3 * time.Second
	// DefaultWatchdogTimeout is the hard bound after which the manager
	// reports ready no matter what the bootstrap is doing.
	DefaultWatchdogTimeout = 10 * time.Second
)

// State is the combined auth view exposed to the rest of the application.
// Single writer (the manager), many readers.
type State struct {
	Principal       *Principal       `json:"principal"`
	Session         *Session         `json:"session"`
	Profile         *types.AdminUser `json:"profile"`
	Loading         bool             `json:"loading"`
	IsAuthenticated bool             `json:"is_authenticated"`
	IsAdmin         bool             `json:"is_admin"`
}

// Manager owns the auth state: it bootstraps the session, tracks provider
// change events and keeps the admin-profile record current. Profile fetch
// failures are downgraded to an absent profile, never to an auth failure.
type Manager struct {
	provider        Provider
	profiles        ProfileStore
	profileTimeout  time.Duration
	watchdogTimeout time.Duration

	mu       sync.RWMutex
	state    State
	inflight map[string]struct{}
	subs     map[chan State]struct{}

	closed    chan struct{}
	closeOnce sync.Once
	watchdog  *time.Timer
}

type Option func(*Manager)

func WithProfileTimeout(d time.Duration) Option {
	return func(m *Manager) { m.profileTimeout = d }
}

func WithWatchdogTimeout(d time.Duration) Option {
	return func(m *Manager) { m.watchdogTimeout = d }
}

func NewManager(provider Provider, profiles ProfileStore, opts ...Option) *Manager {
	m := &Manager{
		provider:        provider,
		profiles:        profiles,
		profileTimeout:  DefaultProfileTimeout,
		watchdogTimeout: DefaultWatchdogTimeout,
		state:           State{Loading: true},
		inflight:        make(map[string]struct{}),
		subs:            make(map[chan State]struct{}),
		closed:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start launches the session bootstrap, the watchdog and the provider event
// loop, then returns. Readers observe progress through Snapshot/Subscribe.
func (m *Manager) Start(ctx context.Context) {
	m.watchdog = time.AfterFunc(m.watchdogTimeout, func() {
		m.mu.Lock()
		stuck := m.state.Loading
		if stuck {
			m.state.Loading = false
		}
		m.mu.Unlock()

		if stuck {
			slog.Warn("Auth bootstrap watchdog fired, forcing ready state")
			m.notify()
		}
	})

	go m.bootstrap(ctx)
	go m.eventLoop()
}

// Close stops the event loop. Provider and stores stay open; they belong to
// the caller.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		if m.watchdog != nil {
			m.watchdog.Stop()
		}
		close(m.closed)
	})
}

func (m *Manager) bootstrap(ctx context.Context) {
	session, err := m.provider.GetSession(ctx)
	if err != nil {
		slog.Error("Failed to fetch session during bootstrap", slog.String("error", err.Error()))
		session = nil
	}

	m.applySession(session)

	if session != nil {
		m.fetchProfile(session.Principal.ID)
	}

	m.mu.Lock()
	m.state.Loading = false
	m.mu.Unlock()
	if m.watchdog != nil {
		m.watchdog.Stop()
	}
	m.notify()
}

func (m *Manager) eventLoop() {
	events := m.provider.Events()
	for {
		select {
		case <-m.closed:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			m.handleEvent(event)
		}
	}
}

// handleEvent updates principal and session synchronously; the profile
// catches up asynchronously.
func (m *Manager) handleEvent(event Event) {
	m.applySession(event.Session)

	if event.Session != nil {
		go m.fetchProfile(event.Session.Principal.ID)
	}
}

func (m *Manager) applySession(session *Session) {
	m.mu.Lock()
	m.state.Session = session
	if session != nil {
		principal := session.Principal
		m.state.Principal = &principal
		m.state.IsAuthenticated = true
	} else {
		m.state.Principal = nil
		m.state.Profile = nil
		m.state.IsAuthenticated = false
		m.state.IsAdmin = false
	}
	m.mu.Unlock()
	m.notify()
}

// fetchProfile loads the admin profile for the principal, bounded by the
// profile timeout. At most one fetch per principal is in flight; a request
// arriving while one is outstanding is a no-op.
func (m *Manager) fetchProfile(principalID string) {
	m.mu.Lock()
	if _, running := m.inflight[principalID]; running {
		m.mu.Unlock()
		return
	}
	m.inflight[principalID] = struct{}{}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.inflight, principalID)
		m.mu.Unlock()
	}()

	// The bound is independent of any caller context: the bootstrap must
	// terminate on its own schedule.
	ctx, cancel := context.WithTimeout(context.Background(), m.profileTimeout)
	defer cancel()

	profile, err := m.profiles.GetAdminByID(ctx, principalID)
	if err != nil {
		profile = nil
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Error("Failed to fetch admin profile, treating as absent",
				slog.String("principal_id", principalID),
				slog.String("error", err.Error()))
		}
	}

	m.mu.Lock()
	// The principal may have changed while the fetch was in flight.
	if m.state.Principal == nil || m.state.Principal.ID != principalID {
		m.mu.Unlock()
		return
	}
	m.state.Profile = profile
	m.state.IsAdmin = profile != nil && profile.Role == types.RoleAdmin
	m.mu.Unlock()
	m.notify()
}

// RefreshProfile re-fetches the profile for the current principal. A no-op
// when signed out or when a fetch is already running.
func (m *Manager) RefreshProfile() {
	m.mu.RLock()
	principal := m.state.Principal
	m.mu.RUnlock()

	if principal == nil {
		return
	}
	go m.fetchProfile(principal.ID)
}

// SignIn delegates to the provider and returns the session issued for
// these credentials. Shared state updates arrive through the provider's
// event stream; callers must hand the returned session to the principal
// who presented the credentials, never read it back from shared state,
// which another sign-in may have overwritten by then. The last-login
// write is best-effort and never fails the sign-in.
func (m *Manager) SignIn(ctx context.Context, email, pass string) (*Session, error) {
	session, err := m.provider.SignInWithPassword(ctx, email, pass)
	if err != nil {
		return nil, err
	}

	if err := m.profiles.UpdateLastLogin(ctx, session.Principal.ID); err != nil {
		slog.Warn("Failed to update last login",
			slog.String("principal_id", session.Principal.ID),
			slog.String("error", err.Error()))
	}

	return session, nil
}

// SignOut clears local state regardless of the provider outcome. Safe to
// call when already signed out.
func (m *Manager) SignOut(ctx context.Context) {
	if err := m.provider.SignOut(ctx); err != nil {
		slog.Error("Provider sign-out failed, clearing local state anyway", slog.String("error", err.Error()))
	}

	m.applySession(nil)
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe registers a listener for state snapshots. Slow listeners miss
// intermediate snapshots rather than blocking the writer.
func (m *Manager) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 8)

	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	unsubscribe := func() {
		m.mu.Lock()
		delete(m.subs, ch)
		m.mu.Unlock()
	}

	return ch, unsubscribe
}

func (m *Manager) notify() {
	m.mu.RLock()
	state := m.state
	for ch := range m.subs {
		select {
		case ch <- state:
		default:
		}
	}
	m.mu.RUnlock()
}
