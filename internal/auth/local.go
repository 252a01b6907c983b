package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ettoiadev/williamdiskpizza/internal/storage"
	"github.com/ettoiadev/williamdiskpizza/internal/types"
	"github.com/ettoiadev/williamdiskpizza/internal/utils/jwt"
	"github.com/ettoiadev/williamdiskpizza/internal/utils/password"
)

// ErrInvalidCredentials is the only error SignInWithPassword returns for a
// bad email or password, so the response never reveals which one was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

// CredentialStore is the slice of the admin store the provider needs.
type CredentialStore interface {
	GetAdminByEmail(ctx context.Context, email string) (*types.AdminUser, string, error)
	UpdateAdminPassword(ctx context.Context, id, passwordHash string) error
}

// LocalProvider implements Provider on top of the admin_users table and
// HMAC-signed JWTs.
type LocalProvider struct {
	store  CredentialStore
	secret string
	ttl    time.Duration

	mu      sync.Mutex
	current *Session
	events  chan Event
}

func NewLocalProvider(store CredentialStore, secret string, ttl time.Duration) *LocalProvider {
	return &LocalProvider{
		store:  store,
		secret: secret,
		ttl:    ttl,
		events: make(chan Event, 16),
	}
}

func (p *LocalProvider) GetSession(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return nil, nil
	}
	if time.Now().After(p.current.ExpiresAt) {
		p.current = nil
		return nil, nil
	}

	session := *p.current
	return &session, nil
}

func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, pass string) (*Session, error) {
	admin, hash, err := p.store.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !password.CheckPasswordHash(pass, hash) {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := jwt.CreateToken(admin.ID, admin.Email, p.secret, p.ttl)
	if err != nil {
		return nil, err
	}

	session := &Session{
		Token:     token,
		Principal: Principal{ID: admin.ID, Email: admin.Email},
		ExpiresAt: expiresAt,
	}

	p.mu.Lock()
	p.current = session
	p.mu.Unlock()

	p.emit(Event{Kind: EventSignedIn, Session: session})

	copied := *session
	return &copied, nil
}

func (p *LocalProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()

	p.emit(Event{Kind: EventSignedOut})
	return nil
}

// Refresh reissues the current session's token and emits a refresh event.
// A no-op when no session is active.
func (p *LocalProvider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	current := p.current
	p.mu.Unlock()

	if current == nil {
		return nil
	}

	token, expiresAt, err := jwt.CreateToken(current.Principal.ID, current.Principal.Email, p.secret, p.ttl)
	if err != nil {
		return err
	}

	session := &Session{
		Token:     token,
		Principal: current.Principal,
		ExpiresAt: expiresAt,
	}

	p.mu.Lock()
	p.current = session
	p.mu.Unlock()

	p.emit(Event{Kind: EventTokenRefreshed, Session: session})
	return nil
}

func (p *LocalProvider) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	hash, err := password.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return p.store.UpdateAdminPassword(ctx, userID, hash)
}

func (p *LocalProvider) Events() <-chan Event {
	return p.events
}

func (p *LocalProvider) emit(event Event) {
	select {
	case p.events <- event:
	default:
		slog.Warn("Auth event channel full, dropping event", slog.String("kind", string(event.Kind)))
	}
}
