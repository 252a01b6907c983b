package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ettoiadev/williamdiskpizza/internal/storage"
	"github.com/ettoiadev/williamdiskpizza/internal/types"
)

type fakeProvider struct {
	mu          sync.Mutex
	session     *Session
	sessionErr  error
	hangSession chan struct{}
	signOutErr  error
	signOuts    int
	events      chan Event
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{events: make(chan Event, 16)}
}

func (p *fakeProvider) GetSession(ctx context.Context) (*Session, error) {
	if p.hangSession != nil {
		select {
		case <-p.hangSession:
		case <-time.After(30 * time.Second):
		}
		return nil, errors.New("session fetch aborted")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session, p.sessionErr
}

func (p *fakeProvider) SignInWithPassword(ctx context.Context, email, pass string) (*Session, error) {
	session := &Session{
		Token:     "token",
		Principal: Principal{ID: "principal-1", Email: email},
		ExpiresAt: time.Now().Add(time.Hour),
	}
	p.events <- Event{Kind: EventSignedIn, Session: session}
	return session, nil
}

func (p *fakeProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.signOuts++
	err := p.signOutErr
	p.mu.Unlock()
	return err
}

func (p *fakeProvider) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	return nil
}

func (p *fakeProvider) Events() <-chan Event {
	return p.events
}

type fakeProfiles struct {
	mu         sync.Mutex
	calls      int
	profile    *types.AdminUser
	err        error
	delay      time.Duration
	lastLogins []string
}

func (f *fakeProfiles) GetAdminByID(ctx context.Context, id string) (*types.AdminUser, error) {
	f.mu.Lock()
	f.calls++
	profile, err, delay := f.profile, f.err, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (f *fakeProfiles) UpdateLastLogin(ctx context.Context, id string) error {
	f.mu.Lock()
	f.lastLogins = append(f.lastLogins, id)
	f.mu.Unlock()
	return nil
}

func (f *fakeProfiles) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func activeSession() *Session {
	return &Session{
		Token:     "token",
		Principal: Principal{ID: "principal-1", Email: "admin@williamdiskpizza.com.br"},
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not reached within timeout")
}

func TestBootstrapNoSession(t *testing.T) {
	provider := newFakeProvider()
	profiles := &fakeProfiles{}

	m := NewManager(provider, profiles)
	defer m.Close()
	m.Start(context.Background())

	waitFor(t, time.Second, func() bool { return !m.Snapshot().Loading })

	state := m.Snapshot()
	if state.IsAuthenticated {
		t.Fatal("Expected unauthenticated state without a session")
	}
	if state.IsAdmin {
		t.Fatal("Expected non-admin state without a session")
	}
	if profiles.callCount() != 0 {
		t.Fatalf("Expected no profile fetch without a session, got %d", profiles.callCount())
	}
}

func TestBootstrapWatchdogForcesReady(t *testing.T) {
	provider := newFakeProvider()
	provider.hangSession = make(chan struct{})
	defer close(provider.hangSession)
	profiles := &fakeProfiles{}

	m := NewManager(provider, profiles, WithWatchdogTimeout(50*time.Millisecond))
	defer m.Close()
	m.Start(context.Background())

	waitFor(t, time.Second, func() bool { return !m.Snapshot().Loading })

	if m.Snapshot().IsAuthenticated {
		t.Fatal("Expected unauthenticated state while session fetch hangs")
	}
}

func TestBootstrapProfileTimeoutKeepsAuthenticated(t *testing.T) {
	provider := newFakeProvider()
	provider.session = activeSession()
	profiles := &fakeProfiles{delay: time.Second}

	m := NewManager(provider, profiles, WithProfileTimeout(30*time.Millisecond))
	defer m.Close()
	m.Start(context.Background())

	waitFor(t, time.Second, func() bool { return !m.Snapshot().Loading })

	state := m.Snapshot()
	if !state.IsAuthenticated {
		t.Fatal("Expected authenticated state even when the profile fetch times out")
	}
	if state.Profile != nil {
		t.Fatal("Expected absent profile after fetch timeout")
	}
	if state.IsAdmin {
		t.Fatal("Expected non-admin state after fetch timeout")
	}
}

func TestBootstrapLoadsProfile(t *testing.T) {
	provider := newFakeProvider()
	provider.session = activeSession()
	profiles := &fakeProfiles{profile: &types.AdminUser{ID: "principal-1", Role: types.RoleAdmin}}

	m := NewManager(provider, profiles)
	defer m.Close()
	m.Start(context.Background())

	waitFor(t, time.Second, func() bool { return !m.Snapshot().Loading })

	state := m.Snapshot()
	if !state.IsAuthenticated || !state.IsAdmin {
		t.Fatalf("Expected authenticated admin, got auth=%v admin=%v", state.IsAuthenticated, state.IsAdmin)
	}
}

func TestProfileAbsenceIsNotAnError(t *testing.T) {
	provider := newFakeProvider()
	provider.session = activeSession()
	profiles := &fakeProfiles{err: storage.ErrNotFound}

	m := NewManager(provider, profiles)
	defer m.Close()
	m.Start(context.Background())

	waitFor(t, time.Second, func() bool { return !m.Snapshot().Loading })

	state := m.Snapshot()
	if !state.IsAuthenticated {
		t.Fatal("Expected authenticated state with no admin_users row")
	}
	if state.Profile != nil {
		t.Fatal("Expected nil profile with no admin_users row")
	}
	if state.IsAdmin {
		t.Fatal("Expected non-admin state with no admin_users row")
	}
}

func TestProfileFetchErrorIsSwallowed(t *testing.T) {
	provider := newFakeProvider()
	provider.session = activeSession()
	profiles := &fakeProfiles{err: errors.New("database unreachable")}

	m := NewManager(provider, profiles)
	defer m.Close()
	m.Start(context.Background())

	waitFor(t, time.Second, func() bool { return !m.Snapshot().Loading })

	state := m.Snapshot()
	if !state.IsAuthenticated {
		t.Fatal("Expected authenticated state despite profile fetch error")
	}
	if state.Profile != nil || state.IsAdmin {
		t.Fatal("Expected profile treated as absent on fetch error")
	}
}

func TestProfileFetchDeduplication(t *testing.T) {
	provider := newFakeProvider()
	provider.session = activeSession()
	profiles := &fakeProfiles{
		profile: &types.AdminUser{ID: "principal-1", Role: types.RoleEditor},
		delay:   50 * time.Millisecond,
	}

	m := NewManager(provider, profiles)
	defer m.Close()
	m.Start(context.Background())

	waitFor(t, time.Second, func() bool { return profiles.callCount() == 1 })

	// The bootstrap fetch is still sleeping; these must all be no-ops.
	m.RefreshProfile()
	m.RefreshProfile()
	m.RefreshProfile()

	waitFor(t, time.Second, func() bool { return m.Snapshot().Profile != nil })

	if got := profiles.callCount(); got != 1 {
		t.Fatalf("Expected exactly one in-flight profile fetch, got %d", got)
	}
}

func TestSignInUpdatesStateViaEvents(t *testing.T) {
	provider := newFakeProvider()
	profiles := &fakeProfiles{profile: &types.AdminUser{ID: "principal-1", Role: types.RoleAdmin}}

	m := NewManager(provider, profiles)
	defer m.Close()
	m.Start(context.Background())

	waitFor(t, time.Second, func() bool { return !m.Snapshot().Loading })

	session, err := m.SignIn(context.Background(), "admin@williamdiskpizza.com.br", "secret")
	if err != nil {
		t.Fatalf("Unexpected sign-in error: %v", err)
	}
	if session == nil || session.Principal.Email != "admin@williamdiskpizza.com.br" {
		t.Fatal("Expected the issued session for the presented credentials")
	}

	waitFor(t, time.Second, func() bool { return m.Snapshot().IsAdmin })

	profiles.mu.Lock()
	lastLogins := len(profiles.lastLogins)
	profiles.mu.Unlock()
	if lastLogins != 1 {
		t.Fatalf("Expected one last-login write, got %d", lastLogins)
	}
}

func TestSignOutIdempotent(t *testing.T) {
	provider := newFakeProvider()
	provider.session = activeSession()
	profiles := &fakeProfiles{profile: &types.AdminUser{ID: "principal-1", Role: types.RoleAdmin}}

	m := NewManager(provider, profiles)
	defer m.Close()
	m.Start(context.Background())

	waitFor(t, time.Second, func() bool { return !m.Snapshot().Loading })

	m.SignOut(context.Background())
	m.SignOut(context.Background())

	state := m.Snapshot()
	if state.IsAuthenticated || state.IsAdmin || state.Principal != nil || state.Profile != nil {
		t.Fatal("Expected fully cleared state after repeated sign-out")
	}
}

func TestSignOutClearsStateWhenProviderFails(t *testing.T) {
	provider := newFakeProvider()
	provider.session = activeSession()
	provider.signOutErr = errors.New("provider unreachable")
	profiles := &fakeProfiles{profile: &types.AdminUser{ID: "principal-1", Role: types.RoleAdmin}}

	m := NewManager(provider, profiles)
	defer m.Close()
	m.Start(context.Background())

	waitFor(t, time.Second, func() bool { return !m.Snapshot().Loading })

	m.SignOut(context.Background())

	if m.Snapshot().IsAuthenticated {
		t.Fatal("Expected local state cleared even when the provider call fails")
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	provider := newFakeProvider()
	provider.session = activeSession()
	profiles := &fakeProfiles{profile: &types.AdminUser{ID: "principal-1", Role: types.RoleAdmin}}

	m := NewManager(provider, profiles)
	defer m.Close()

	ch, unsubscribe := m.Subscribe()
	defer unsubscribe()

	m.Start(context.Background())

	deadline := time.After(time.Second)
	for {
		select {
		case state := <-ch:
			if !state.Loading && state.IsAdmin {
				return
			}
		case <-deadline:
			t.Fatal("Never observed a ready admin snapshot")
		}
	}
}
