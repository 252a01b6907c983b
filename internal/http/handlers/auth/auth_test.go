package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/ettoiadev/williamdiskpizza/internal/auth"
	"github.com/ettoiadev/williamdiskpizza/internal/http/middleware"
	"github.com/ettoiadev/williamdiskpizza/internal/ratelimit"
	"github.com/ettoiadev/williamdiskpizza/internal/storage"
	"github.com/ettoiadev/williamdiskpizza/internal/types"
	"github.com/ettoiadev/williamdiskpizza/internal/utils/jwt"
	"github.com/ettoiadev/williamdiskpizza/internal/utils/password"
)

const testSecret = "test-secret"

type fakeAdmins struct {
	admins map[string]*types.AdminUser
	hashes map[string]string
}

func newFakeAdmins() *fakeAdmins {
	return &fakeAdmins{
		admins: make(map[string]*types.AdminUser),
		hashes: make(map[string]string),
	}
}

func (f *fakeAdmins) add(t *testing.T, id, email, pass string, role types.Role) {
	t.Helper()

	hash, err := password.HashPassword(pass)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	f.admins[id] = &types.AdminUser{ID: id, Email: email, Role: role}
	f.hashes[id] = hash
}

func (f *fakeAdmins) CreateAdmin(ctx context.Context, email, hash string, role types.Role) (*types.AdminUser, error) {
	admin := &types.AdminUser{ID: "u" + email, Email: email, Role: role}
	f.admins[admin.ID] = admin
	f.hashes[admin.ID] = hash
	return admin, nil
}

func (f *fakeAdmins) GetAdminByID(ctx context.Context, id string) (*types.AdminUser, error) {
	a, ok := f.admins[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return a, nil
}

func (f *fakeAdmins) GetAdminByEmail(ctx context.Context, email string) (*types.AdminUser, string, error) {
	for _, a := range f.admins {
		if a.Email == email {
			return a, f.hashes[a.ID], nil
		}
	}
	return nil, "", storage.ErrNotFound
}

func (f *fakeAdmins) ListAdmins(ctx context.Context) ([]types.AdminUser, error) {
	out := make([]types.AdminUser, 0, len(f.admins))
	for _, a := range f.admins {
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeAdmins) UpdateAdminRole(ctx context.Context, id string, role types.Role) error {
	a, ok := f.admins[id]
	if !ok {
		return storage.ErrNotFound
	}
	a.Role = role
	return nil
}

func (f *fakeAdmins) UpdateAdminPassword(ctx context.Context, id, hash string) error {
	if _, ok := f.admins[id]; !ok {
		return storage.ErrNotFound
	}
	f.hashes[id] = hash
	return nil
}

func (f *fakeAdmins) UpdateLastLogin(ctx context.Context, id string) error { return nil }

func (f *fakeAdmins) DeleteAdmin(ctx context.Context, id string) error {
	if _, ok := f.admins[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.admins, id)
	return nil
}

func setupLimiter(t *testing.T) *ratelimit.Limiter {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return ratelimit.NewLimiter(client, 10, 10)
}

func setupManager(t *testing.T, store *fakeAdmins) *auth.Manager {
	t.Helper()

	provider := auth.NewLocalProvider(store, testSecret, time.Hour)
	manager := auth.NewManager(provider, store)
	t.Cleanup(manager.Close)
	manager.Start(context.Background())

	return manager
}

func doLogin(t *testing.T, handler http.HandlerFunc, email, pass string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(map[string]string{"email": email, "password": pass})
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) auth.Session {
	t.Helper()

	var envelope struct {
		Data auth.Session `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return envelope.Data
}

func TestLoginReturnsCallerOwnSession(t *testing.T) {
	store := newFakeAdmins()
	store.add(t, "id-a", "a@williamdiskpizza.com.br", "password-a", types.RoleAdmin)
	store.add(t, "id-b", "b@williamdiskpizza.com.br", "password-b", types.RoleEditor)

	handler := Login(setupManager(t, store), setupLimiter(t))

	recA := doLogin(t, handler, "a@williamdiskpizza.com.br", "password-a")
	if recA.Code != http.StatusOK {
		t.Fatalf("expected 200 for A, got %d: %s", recA.Code, recA.Body.String())
	}

	// B signs in afterwards; A's response must still carry A's identity.
	recB := doLogin(t, handler, "b@williamdiskpizza.com.br", "password-b")
	if recB.Code != http.StatusOK {
		t.Fatalf("expected 200 for B, got %d: %s", recB.Code, recB.Body.String())
	}

	sessionA := decodeSession(t, recA)
	sessionB := decodeSession(t, recB)

	if sessionA.Principal.ID != "id-a" {
		t.Errorf("A's session carries principal %q, want id-a", sessionA.Principal.ID)
	}
	if sessionB.Principal.ID != "id-b" {
		t.Errorf("B's session carries principal %q, want id-b", sessionB.Principal.ID)
	}

	subjectA, err := jwt.ExtractUserIDFromToken(sessionA.Token, testSecret)
	if err != nil {
		t.Fatalf("A's token does not parse: %v", err)
	}
	if subjectA != "id-a" {
		t.Errorf("A's token is issued for %q, want id-a", subjectA)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	store := newFakeAdmins()
	store.add(t, "id-a", "a@williamdiskpizza.com.br", "password-a", types.RoleAdmin)

	handler := Login(setupManager(t, store), setupLimiter(t))

	rec := doLogin(t, handler, "a@williamdiskpizza.com.br", "wrong-guess")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func meFor(t *testing.T, store storage.AdminStore, userID string) auth.State {
	t.Helper()

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	Me(store)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data auth.State `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return envelope.Data
}

func TestMeReportsRequestPrincipal(t *testing.T) {
	store := newFakeAdmins()
	store.add(t, "id-a", "a@williamdiskpizza.com.br", "password-a", types.RoleAdmin)
	store.add(t, "id-b", "b@williamdiskpizza.com.br", "password-b", types.RoleEditor)

	// Both admins are signed in; each request must see its own identity,
	// whichever login happened last.
	manager := setupManager(t, store)
	if _, err := manager.SignIn(context.Background(), "a@williamdiskpizza.com.br", "password-a"); err != nil {
		t.Fatalf("A's sign-in failed: %v", err)
	}
	if _, err := manager.SignIn(context.Background(), "b@williamdiskpizza.com.br", "password-b"); err != nil {
		t.Fatalf("B's sign-in failed: %v", err)
	}

	stateA := meFor(t, store, "id-a")
	if stateA.Principal == nil || stateA.Principal.ID != "id-a" {
		t.Fatalf("A's request reports principal %+v, want id-a", stateA.Principal)
	}
	if stateA.Principal.Email != "a@williamdiskpizza.com.br" {
		t.Errorf("A's request reports email %q", stateA.Principal.Email)
	}
	if !stateA.IsAdmin {
		t.Error("A holds the admin role")
	}

	stateB := meFor(t, store, "id-b")
	if stateB.Principal == nil || stateB.Principal.ID != "id-b" {
		t.Fatalf("B's request reports principal %+v, want id-b", stateB.Principal)
	}
	if stateB.IsAdmin {
		t.Error("B is an editor, not an admin")
	}
}

func TestMeWithoutProfileRow(t *testing.T) {
	store := newFakeAdmins()

	state := meFor(t, store, "id-ghost")
	if !state.IsAuthenticated {
		t.Error("principal stays authenticated without a profile row")
	}
	if state.Profile != nil || state.IsAdmin {
		t.Error("expected no profile and no privileges")
	}
}
