package users

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ettoiadev/williamdiskpizza/internal/http/middleware"
	"github.com/ettoiadev/williamdiskpizza/internal/storage"
	"github.com/ettoiadev/williamdiskpizza/internal/types"
	"github.com/ettoiadev/williamdiskpizza/internal/utils/password"
)

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

func manage(t *testing.T, store storage.AdminStore, callerID string, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/functions/manage-users", bytes.NewReader(raw))
	if callerID != "" {
		ctx := context.WithValue(req.Context(), middleware.UserIDKey, callerID)
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()

	Manage(store)(rec, req)
	return rec
}

func TestManageCreate(t *testing.T) {
	store := newFakeAdmins()

	rec := manage(t, store, "caller", map[string]interface{}{
		"action":   "create",
		"email":    "editor@williamdiskpizza.com",
		"password": "sup3rsecret",
		"role":     "editor",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	admin, hash, err := store.GetAdminByEmail(context.Background(), "editor@williamdiskpizza.com")
	if err != nil {
		t.Fatalf("expected user to exist: %v", err)
	}
	if admin.Role != types.RoleEditor {
		t.Errorf("expected editor role, got %s", admin.Role)
	}
	if !password.CheckPasswordHash("sup3rsecret", hash) {
		t.Error("stored hash does not match the password")
	}
}

func TestManageCreateRejectsShortPassword(t *testing.T) {
	store := newFakeAdmins()

	rec := manage(t, store, "caller", map[string]interface{}{
		"action":   "create",
		"email":    "x@y.com",
		"password": "short",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(store.admins) != 0 {
		t.Error("expected no user to be created")
	}
}

func TestManageRejectsUnknownAction(t *testing.T) {
	rec := manage(t, newFakeAdmins(), "caller", map[string]interface{}{
		"action": "drop-table",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestManageUpdateRole(t *testing.T) {
	store := newFakeAdmins()
	store.admins["u1"] = &types.AdminUser{ID: "u1", Email: "a@b.com", Role: types.RoleEditor}

	rec := manage(t, store, "caller", map[string]interface{}{
		"action":  "update-role",
		"user_id": "u1",
		"role":    "admin",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.admins["u1"].Role != types.RoleAdmin {
		t.Errorf("expected admin role, got %s", store.admins["u1"].Role)
	}
}

func TestManageCannotDemoteSelf(t *testing.T) {
	store := newFakeAdmins()
	store.admins["u1"] = &types.AdminUser{ID: "u1", Email: "a@b.com", Role: types.RoleAdmin}

	rec := manage(t, store, "u1", map[string]interface{}{
		"action":  "update-role",
		"user_id": "u1",
		"role":    "editor",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if store.admins["u1"].Role != types.RoleAdmin {
		t.Error("role must not change")
	}
}

func TestManageCannotDeleteSelf(t *testing.T) {
	store := newFakeAdmins()
	store.admins["u1"] = &types.AdminUser{ID: "u1", Email: "a@b.com", Role: types.RoleAdmin}

	rec := manage(t, store, "u1", map[string]interface{}{
		"action":  "delete",
		"user_id": "u1",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if _, ok := store.admins["u1"]; !ok {
		t.Error("user must not be deleted")
	}
}

func TestManageDelete(t *testing.T) {
	store := newFakeAdmins()
	store.admins["u1"] = &types.AdminUser{ID: "u1", Email: "a@b.com", Role: types.RoleEditor}

	rec := manage(t, store, "caller", map[string]interface{}{
		"action":  "delete",
		"user_id": "u1",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := store.admins["u1"]; ok {
		t.Error("expected user to be deleted")
	}
}

func TestManageResetPasswordMissingUser(t *testing.T) {
	rec := manage(t, newFakeAdmins(), "caller", map[string]interface{}{
		"action":   "reset-password",
		"user_id":  "ghost",
		"password": "longenough",
	})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
