package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ettoiadev/williamdiskpizza/internal/auth"
	"github.com/ettoiadev/williamdiskpizza/internal/http/middleware"
	"github.com/ettoiadev/williamdiskpizza/internal/ratelimit"
	"github.com/ettoiadev/williamdiskpizza/internal/storage"
	"github.com/ettoiadev/williamdiskpizza/internal/types"
	"github.com/ettoiadev/williamdiskpizza/internal/utils/response"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type UpdatePasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// Login handles admin authentication
// @Summary Authenticate an admin user
// @Description Authenticate with email and password, returns the session token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login credentials"
// @Success 200 {object} response.Response "Authenticated"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 401 {object} response.Response "Invalid credentials"
// @Failure 429 {object} response.Response "Too many attempts"
// @Router /auth/login [post]
func Login(manager *auth.Manager, limiter *ratelimit.Limiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest

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

		addr := clientAddr(r)
		allowed, err := limiter.Allow(r.Context(), addr, "login")
		if err != nil {
			// A broken limiter must not lock everyone out
			slog.Warn("Rate limiter unavailable", slog.String("error", err.Error()))
			allowed = true
		}
		if !allowed {
			response.WriteJSON(w, http.StatusTooManyRequests, response.GeneralError(errors.New("too many login attempts, try again later")))
			return
		}

		// SignIn returns the session issued for exactly these credentials.
		// Reading it back from the provider instead would race with a
		// concurrent login and could hand this caller someone else's token.
		session, err := manager.SignIn(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(err))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to sign in")))
			return
		}

		if err := limiter.Reset(r.Context(), addr, "login"); err != nil {
			slog.Warn("Failed to reset login throttle", slog.String("error", err.Error()))
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Authenticated", session))
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Logout signs the current principal out
// @Summary Sign out
// @Description Clears the current session; safe to call when already signed out
// @Tags auth
// @Produce json
// @Success 200 {object} response.Response "Signed out"
// @Router /auth/logout [post]
func Logout(manager *auth.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		manager.SignOut(r.Context())
		response.WriteJSON(w, http.StatusOK, response.RequestOK("Signed out", nil))
	}
}

// Me returns the auth state of the requesting principal
// @Summary Current auth state
// @Description Returns the caller's principal, profile, and privilege flags
// @Tags auth
// @Produce json
// @Success 200 {object} response.Response "Auth state"
// @Failure 401 {object} response.Response "Unauthorized"
// @Security BearerAuth
// @Router /auth/me [get]
func Me(admins storage.AdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// The view is always built for the principal carried by this
		// request's token. A shared snapshot would report whichever
		// admin signed in last, to everyone.
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		state := auth.State{
			Principal:       &auth.Principal{ID: userID},
			IsAuthenticated: true,
		}

		profile, err := admins.GetAdminByID(r.Context(), userID)
		switch {
		case err == nil:
			state.Principal.Email = profile.Email
			state.Profile = profile
			state.IsAdmin = profile.Role == types.RoleAdmin
		case errors.Is(err, storage.ErrNotFound):
			// Authenticated but non-privileged; not an error.
		default:
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to load profile")))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Auth state", state))
	}
}

// UpdatePassword changes the authenticated principal's password
// @Summary Update own password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body UpdatePasswordRequest true "New password"
// @Success 200 {object} response.Response "Password updated"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 401 {object} response.Response "Unauthorized"
// @Security BearerAuth
// @Router /auth/password [put]
func UpdatePassword(provider auth.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		var req UpdatePasswordRequest
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

		if err := provider.UpdatePassword(r.Context(), userID, req.NewPassword); err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to update password")))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Password updated", nil))
	}
}
