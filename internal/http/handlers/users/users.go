package users

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ettoiadev/williamdiskpizza/internal/http/middleware"
	"github.com/ettoiadev/williamdiskpizza/internal/storage"
	"github.com/ettoiadev/williamdiskpizza/internal/types"
	"github.com/ettoiadev/williamdiskpizza/internal/utils/password"
	"github.com/ettoiadev/williamdiskpizza/internal/utils/response"
)

// ManageRequest is the single-endpoint RPC body. The action field selects
// the operation; the remaining fields are read per action.
type ManageRequest struct {
	Action   string `json:"action" validate:"required,oneof=create update-role reset-password delete"`
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// List returns every admin user
// @Summary List admin users
// @Tags users
// @Produce json
// @Success 200 {object} response.Response "Admin users"
// @Security BearerAuth
// @Router /users [get]
func List(store storage.AdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admins, err := store.ListAdmins(r.Context())
		if err != nil {
			slog.Error("Failed to list admins", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to list users")))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Users retrieved", admins))
	}
}

// Manage executes an admin-user management action
// @Summary Manage admin users
// @Description Single RPC endpoint. The action field selects create, update-role, reset-password or delete.
// @Tags users
// @Accept json
// @Produce json
// @Param request body ManageRequest true "Management action"
// @Success 200 {object} response.Response "Action result"
// @Failure 400 {object} response.Response "Bad request"
// @Security BearerAuth
// @Router /functions/manage-users [post]
func Manage(store storage.AdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ManageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid request body")))
			return
		}

		validate := validator.New()
		if err := validate.Struct(req); err != nil {
			if ve, ok := err.(validator.ValidationErrors); ok {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		switch req.Action {
		case "create":
			create(w, r, store, req)
		case "update-role":
			updateRole(w, r, store, req)
		case "reset-password":
			resetPassword(w, r, store, req)
		case "delete":
			remove(w, r, store, req)
		}
	}
}

func create(w http.ResponseWriter, r *http.Request, store storage.AdminStore, req ManageRequest) {
	if req.Email == "" || req.Password == "" {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("email and password are required")))
		return
	}
	if len(req.Password) < 8 {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("password must be at least 8 characters")))
		return
	}

	role := types.RoleEditor
	if req.Role != "" {
		role = types.Role(req.Role)
		if role != types.RoleAdmin && role != types.RoleEditor {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid role")))
			return
		}
	}

	hash, err := password.HashPassword(req.Password)
	if err != nil {
		slog.Error("Failed to hash password", slog.String("error", err.Error()))
		response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to create user")))
		return
	}

	admin, err := store.CreateAdmin(r.Context(), req.Email, hash, role)
	if err != nil {
		slog.Error("Failed to create admin", slog.String("email", req.Email), slog.String("error", err.Error()))
		response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to create user")))
		return
	}

	response.WriteJSON(w, http.StatusOK, response.RequestOK("User created", admin))
}

func updateRole(w http.ResponseWriter, r *http.Request, store storage.AdminStore, req ManageRequest) {
	if req.UserID == "" {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("user_id is required")))
		return
	}

	role := types.Role(req.Role)
	if role != types.RoleAdmin && role != types.RoleEditor {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid role")))
		return
	}

	// Admins cannot demote themselves; the site would be left without one.
	if callerID, ok := middleware.GetUserIDFromContext(r.Context()); ok && callerID == req.UserID && role != types.RoleAdmin {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("cannot change your own role")))
		return
	}

	if err := store.UpdateAdminRole(r.Context(), req.UserID, role); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("user not found")))
			return
		}
		response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to update role")))
		return
	}

	response.WriteJSON(w, http.StatusOK, response.RequestOK("Role updated", nil))
}

func resetPassword(w http.ResponseWriter, r *http.Request, store storage.AdminStore, req ManageRequest) {
	if req.UserID == "" || req.Password == "" {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("user_id and password are required")))
		return
	}
	if len(req.Password) < 8 {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("password must be at least 8 characters")))
		return
	}

	hash, err := password.HashPassword(req.Password)
	if err != nil {
		slog.Error("Failed to hash password", slog.String("error", err.Error()))
		response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to reset password")))
		return
	}

	if err := store.UpdateAdminPassword(r.Context(), req.UserID, hash); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("user not found")))
			return
		}
		response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to reset password")))
		return
	}

	response.WriteJSON(w, http.StatusOK, response.RequestOK("Password reset", nil))
}

func remove(w http.ResponseWriter, r *http.Request, store storage.AdminStore, req ManageRequest) {
	if req.UserID == "" {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("user_id is required")))
		return
	}

	if callerID, ok := middleware.GetUserIDFromContext(r.Context()); ok && callerID == req.UserID {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("cannot delete your own account")))
		return
	}

	if err := store.DeleteAdmin(r.Context(), req.UserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("user not found")))
			return
		}
		response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to delete user")))
		return
	}

	response.WriteJSON(w, http.StatusOK, response.RequestOK("User deleted", nil))
}
