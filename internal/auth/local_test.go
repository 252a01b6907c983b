package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ettoiadev/williamdiskpizza/internal/storage"
	"github.com/ettoiadev/williamdiskpizza/internal/types"
	"github.com/ettoiadev/williamdiskpizza/internal/utils/password"
)

type fakeCredentials struct {
	admin *types.AdminUser
	hash  string
}

func (f *fakeCredentials) GetAdminByEmail(ctx context.Context, email string) (*types.AdminUser, string, error) {
	if f.admin == nil || f.admin.Email != email {
		return nil, "", storage.ErrNotFound
	}
	return f.admin, f.hash, nil
}

func (f *fakeCredentials) UpdateAdminPassword(ctx context.Context, id, hash string) error {
	f.hash = hash
	return nil
}

func testCredentials(t *testing.T) *fakeCredentials {
	t.Helper()

	hash, err := password.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	return &fakeCredentials{
		admin: &types.AdminUser{ID: "u1", Email: "admin@test.com", Role: types.RoleAdmin},
		hash:  hash,
	}
}

func TestSignInWithPassword(t *testing.T) {
	provider := NewLocalProvider(testCredentials(t), "secret", time.Hour)

	session, err := provider.SignInWithPassword(context.Background(), "admin@test.com", "correct-horse")
	if err != nil {
		t.Fatalf("Sign in failed: %v", err)
	}
	if session.Token == "" {
		t.Error("expected a token")
	}
	if session.Principal.ID != "u1" {
		t.Errorf("expected principal u1, got %s", session.Principal.ID)
	}

	got, err := provider.GetSession(context.Background())
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got == nil || got.Token != session.Token {
		t.Error("expected the signed-in session")
	}
}

func TestSignInWrongPassword(t *testing.T) {
	provider := NewLocalProvider(testCredentials(t), "secret", time.Hour)

	_, err := provider.SignInWithPassword(context.Background(), "admin@test.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignInUnknownEmail(t *testing.T) {
	provider := NewLocalProvider(testCredentials(t), "secret", time.Hour)

	_, err := provider.SignInWithPassword(context.Background(), "ghost@test.com", "correct-horse")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestExpiredSessionIsDropped(t *testing.T) {
	provider := NewLocalProvider(testCredentials(t), "secret", 10*time.Millisecond)

	if _, err := provider.SignInWithPassword(context.Background(), "admin@test.com", "correct-horse"); err != nil {
		t.Fatalf("Sign in failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	got, err := provider.GetSession(context.Background())
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got != nil {
		t.Error("expected no session after expiry")
	}
}

func TestSignOutClearsSession(t *testing.T) {
	provider := NewLocalProvider(testCredentials(t), "secret", time.Hour)

	if _, err := provider.SignInWithPassword(context.Background(), "admin@test.com", "correct-horse"); err != nil {
		t.Fatalf("Sign in failed: %v", err)
	}

	if err := provider.SignOut(context.Background()); err != nil {
		t.Fatalf("Sign out failed: %v", err)
	}

	got, err := provider.GetSession(context.Background())
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got != nil {
		t.Error("expected no session after sign out")
	}
}

func TestUpdatePasswordRehashes(t *testing.T) {
	creds := testCredentials(t)
	provider := NewLocalProvider(creds, "secret", time.Hour)

	if err := provider.UpdatePassword(context.Background(), "u1", "new-password-1"); err != nil {
		t.Fatalf("UpdatePassword failed: %v", err)
	}

	if !password.CheckPasswordHash("new-password-1", creds.hash) {
		t.Error("stored hash does not match the new password")
	}
}
