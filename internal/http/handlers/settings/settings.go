package settings

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ettoiadev/williamdiskpizza/internal/cache"
	"github.com/ettoiadev/williamdiskpizza/internal/events"
	"github.com/ettoiadev/williamdiskpizza/internal/storage"
	"github.com/ettoiadev/williamdiskpizza/internal/utils/response"
)

type UpsertRequest struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

type BatchRequest struct {
	Settings []UpsertRequest `json:"settings"`
}

// List returns settings; all of them, or a subset via ?keys=a,b,c
// @Summary List settings
// @Tags settings
// @Produce json
// @Param keys query string false "Comma separated keys"
// @Success 200 {object} response.Response "Settings"
// @Router /settings [get]
func List(store storage.SettingsStore, cached *cache.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw := r.URL.Query().Get("keys"); raw != "" {
			keys := strings.Split(raw, ",")
			items, err := store.GetSettings(r.Context(), keys)
			if err != nil {
				slog.Error("Failed to get settings", slog.String("error", err.Error()))
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to get settings")))
				return
			}
			response.WriteJSON(w, http.StatusOK, response.RequestOK("Settings retrieved", items))
			return
		}

		items, err := cached.Settings(r.Context())
		if err != nil {
			slog.Error("Failed to list settings", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to list settings")))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Settings retrieved", items))
	}
}

// Get returns one setting by key
// @Summary Get a setting
// @Tags settings
// @Produce json
// @Param key path string true "Setting key"
// @Success 200 {object} response.Response "Setting"
// @Failure 404 {object} response.Response "Not found"
// @Router /settings/{key} [get]
func Get(store storage.SettingsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")

		item, err := store.GetSetting(r.Context(), key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("setting not found")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to get setting")))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Setting retrieved", item))
	}
}

// Upsert creates or replaces a single setting
// @Summary Upsert a setting
// @Tags settings
// @Accept json
// @Produce json
// @Param setting body UpsertRequest true "Setting"
// @Success 200 {object} response.Response "Setting saved"
// @Failure 400 {object} response.Response "Bad request"
// @Security BearerAuth
// @Router /settings [put]
func Upsert(store storage.SettingsStore, cached *cache.Service, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpsertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid request body")))
			return
		}

		if req.Key == "" || len(req.Value) == 0 {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("key and value are required")))
			return
		}

		item, err := store.UpsertSetting(r.Context(), storage.SettingInput{Key: req.Key, Value: req.Value})
		if err != nil {
			slog.Error("Failed to upsert setting", slog.String("key", req.Key), slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to save setting")))
			return
		}

		cached.InvalidateSettings(r.Context())
		publisher.PublishSettingsChanged()

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Setting saved", item))
	}
}

// UpsertBatch saves several settings in one transaction
// @Summary Upsert multiple settings
// @Tags settings
// @Accept json
// @Produce json
// @Param settings body BatchRequest true "Settings"
// @Success 200 {object} response.Response "Settings saved"
// @Failure 400 {object} response.Response "Bad request"
// @Security BearerAuth
// @Router /settings/batch [put]
func UpsertBatch(store storage.SettingsStore, cached *cache.Service, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid request body")))
			return
		}

		if len(req.Settings) == 0 {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("settings are required")))
			return
		}

		inputs := make([]storage.SettingInput, 0, len(req.Settings))
		for _, s := range req.Settings {
			if s.Key == "" || len(s.Value) == 0 {
				response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("key and value are required for every setting")))
				return
			}
			inputs = append(inputs, storage.SettingInput{Key: s.Key, Value: s.Value})
		}

		items, err := store.UpsertSettings(r.Context(), inputs)
		if err != nil {
			slog.Error("Failed to upsert settings", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to save settings")))
			return
		}

		cached.InvalidateSettings(r.Context())
		publisher.PublishSettingsChanged()

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Settings saved", items))
	}
}

// Delete removes a setting
// @Summary Delete a setting
// @Tags settings
// @Produce json
// @Param key path string true "Setting key"
// @Success 200 {object} response.Response "Setting deleted"
// @Failure 404 {object} response.Response "Not found"
// @Security BearerAuth
// @Router /settings/{key} [delete]
func Delete(store storage.SettingsStore, cached *cache.Service, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")

		if err := store.DeleteSetting(r.Context(), key); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("setting not found")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to delete setting")))
			return
		}

		cached.InvalidateSettings(r.Context())
		publisher.PublishSettingsChanged()

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Setting deleted", nil))
	}
}
