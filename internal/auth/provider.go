package auth

import (
	"context"
	"time"

	"github.com/ettoiadev/williamdiskpizza/internal/types"
)

// Principal is the authenticated identity reported by the provider,
// distinct from the AdminUser privilege record.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session carries the access token issued for a principal.
type Session struct {
	Token     string    `json:"token"`
	Principal Principal `json:"principal"`
	ExpiresAt time.Time `json:"expires_at"`
}

type EventKind string

const (
	EventSignedIn       EventKind = "signed_in"
	EventSignedOut      EventKind = "signed_out"
	EventTokenRefreshed EventKind = "token_refreshed"
)

// Event is an auth-state change notification. Session is nil on sign-out.
type Event struct {
	Kind    EventKind
	Session *Session
}

// Provider issues and tracks sessions. GetSession returns (nil, nil) when no
// session exists; that is not an error.
type Provider interface {
	GetSession(ctx context.Context) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	UpdatePassword(ctx context.Context, userID, newPassword string) error
	Events() <-chan Event
}

// ProfileStore reads the privilege record for a principal. Absence of a
// record (storage.ErrNotFound) means authenticated-but-not-privileged.
type ProfileStore interface {
	GetAdminByID(ctx context.Context, id string) (*types.AdminUser, error)
	UpdateLastLogin(ctx context.Context, id string) error
}
