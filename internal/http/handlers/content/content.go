package content

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ettoiadev/williamdiskpizza/internal/cache"
	"github.com/ettoiadev/williamdiskpizza/internal/events"
	"github.com/ettoiadev/williamdiskpizza/internal/storage"
	"github.com/ettoiadev/williamdiskpizza/internal/types"
	"github.com/ettoiadev/williamdiskpizza/internal/utils/response"
)

type UpsertRequest struct {
	Section string          `json:"section" validate:"required"`
	Key     string          `json:"key" validate:"required"`
	Value   json.RawMessage `json:"value" validate:"required"`
	Type    string          `json:"type" validate:"required,oneof=text image json number"`
}

// GetAll returns every site content entry
// @Summary List site content
// @Description List all dynamic site content, ordered by section and key
// @Tags content
// @Produce json
// @Success 200 {object} response.Response "Content entries"
// @Router /content [get]
func GetAll(cached *cache.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := cached.ListContent(r.Context())
		if err != nil {
			slog.Error("Failed to list content", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to list content")))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Content retrieved", items))
	}
}

// GetSection returns one section's content entries
// @Summary Get content by section
// @Tags content
// @Produce json
// @Param section path string true "Section name"
// @Success 200 {object} response.Response "Section content"
// @Router /content/{section} [get]
func GetSection(cached *cache.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		section := r.PathValue("section")
		if section == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("section is required")))
			return
		}

		items, err := cached.ListContentBySection(r.Context(), section)
		if err != nil {
			slog.Error("Failed to get section content", slog.String("section", section), slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to get section content")))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Section content retrieved", items))
	}
}

// GetByKey returns a single content entry
// @Summary Get one content entry
// @Tags content
// @Produce json
// @Param section path string true "Section name"
// @Param key path string true "Entry key"
// @Success 200 {object} response.Response "Content entry"
// @Failure 404 {object} response.Response "Not found"
// @Router /content/{section}/{key} [get]
func GetByKey(store storage.ContentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		section := r.PathValue("section")
		key := r.PathValue("key")

		item, err := store.GetContent(r.Context(), section, key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("content not found")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to get content")))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Content retrieved", item))
	}
}

// Upsert creates or replaces a content entry
// @Summary Upsert a content entry
// @Tags content
// @Accept json
// @Produce json
// @Param entry body UpsertRequest true "Content entry"
// @Success 200 {object} response.Response "Content saved"
// @Failure 400 {object} response.Response "Bad request"
// @Security BearerAuth
// @Router /content [put]
func Upsert(store storage.ContentStore, cached *cache.Service, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpsertRequest
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

		item, err := store.UpsertContent(r.Context(), storage.ContentInput{
			Section: req.Section,
			Key:     req.Key,
			Value:   req.Value,
			Type:    types.ContentType(req.Type),
		})
		if err != nil {
			slog.Error("Failed to upsert content",
				slog.String("section", req.Section),
				slog.String("key", req.Key),
				slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to save content")))
			return
		}

		cached.InvalidateContent(r.Context(), req.Section)
		publisher.PublishContentUpdated(req.Section, req.Key)

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Content saved", item))
	}
}

// Delete removes a content entry
// @Summary Delete a content entry
// @Tags content
// @Produce json
// @Param section path string true "Section name"
// @Param key path string true "Entry key"
// @Success 200 {object} response.Response "Content deleted"
// @Failure 404 {object} response.Response "Not found"
// @Security BearerAuth
// @Router /content/{section}/{key} [delete]
func Delete(store storage.ContentStore, cached *cache.Service, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		section := r.PathValue("section")
		key := r.PathValue("key")

		if err := store.DeleteContent(r.Context(), section, key); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("content not found")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to delete content")))
			return
		}

		cached.InvalidateContent(r.Context(), section)
		publisher.PublishContentUpdated(section, key)

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Content deleted", nil))
	}
}
