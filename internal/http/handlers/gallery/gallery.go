package gallery

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ettoiadev/williamdiskpizza/internal/cache"
	"github.com/ettoiadev/williamdiskpizza/internal/events"
	"github.com/ettoiadev/williamdiskpizza/internal/storage"
	"github.com/ettoiadev/williamdiskpizza/internal/utils/response"
)

type ItemRequest struct {
	Title    string `json:"title" validate:"required"`
	ImageURL string `json:"image_url" validate:"required,url"`
	AltText  string `json:"alt_text"`
	Position int    `json:"position"`
	IsActive *bool  `json:"is_active"`
}

type ReorderRequest struct {
	Items []struct {
		ID       string `json:"id" validate:"required"`
		Position int    `json:"position"`
	} `json:"items" validate:"required,min=1,dive"`
}

// List returns gallery items; active-only unless ?all=true
// @Summary List gallery items
// @Tags gallery
// @Produce json
// @Param all query bool false "Include inactive items"
// @Success 200 {object} response.Response "Gallery items"
// @Router /gallery [get]
func List(store storage.GalleryStore, cached *cache.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("all") == "true" {
			items, err := store.ListGallery(r.Context(), false)
			if err != nil {
				slog.Error("Failed to list gallery", slog.String("error", err.Error()))
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to list gallery")))
				return
			}
			response.WriteJSON(w, http.StatusOK, response.RequestOK("Gallery retrieved", items))
			return
		}

		items, err := cached.ActiveGallery(r.Context())
		if err != nil {
			slog.Error("Failed to list gallery", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to list gallery")))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Gallery retrieved", items))
	}
}

// Create adds a gallery item
// @Summary Create a gallery item
// @Tags gallery
// @Accept json
// @Produce json
// @Param item body ItemRequest true "Gallery item"
// @Success 201 {object} response.Response "Gallery item created"
// @Failure 400 {object} response.Response "Bad request"
// @Security BearerAuth
// @Router /gallery [post]
func Create(store storage.GalleryStore, cached *cache.Service, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeItem(w, r)
		if !ok {
			return
		}

		active := true
		if req.IsActive != nil {
			active = *req.IsActive
		}

		item, err := store.CreateGalleryItem(r.Context(), storage.GalleryInput{
			Title:    req.Title,
			ImageURL: req.ImageURL,
			AltText:  req.AltText,
			Position: req.Position,
			IsActive: active,
		})
		if err != nil {
			slog.Error("Failed to create gallery item", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to create gallery item")))
			return
		}

		cached.InvalidateGallery(r.Context())
		publisher.PublishGalleryChanged()

		response.WriteJSON(w, http.StatusCreated, response.RequestOK("Gallery item created", item))
	}
}

// Update replaces a gallery item
// @Summary Update a gallery item
// @Tags gallery
// @Accept json
// @Produce json
// @Param id path string true "Item id"
// @Param item body ItemRequest true "Gallery item"
// @Success 200 {object} response.Response "Gallery item updated"
// @Failure 404 {object} response.Response "Not found"
// @Security BearerAuth
// @Router /gallery/{id} [put]
func Update(store storage.GalleryStore, cached *cache.Service, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		req, ok := decodeItem(w, r)
		if !ok {
			return
		}

		active := true
		if req.IsActive != nil {
			active = *req.IsActive
		}

		item, err := store.UpdateGalleryItem(r.Context(), id, storage.GalleryInput{
			Title:    req.Title,
			ImageURL: req.ImageURL,
			AltText:  req.AltText,
			Position: req.Position,
			IsActive: active,
		})
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("gallery item not found")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to update gallery item")))
			return
		}

		cached.InvalidateGallery(r.Context())
		publisher.PublishGalleryChanged()

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Gallery item updated", item))
	}
}

// SetActive toggles visibility of a gallery item
// @Summary Toggle a gallery item's visibility
// @Tags gallery
// @Accept json
// @Produce json
// @Param id path string true "Item id"
// @Success 200 {object} response.Response "Visibility updated"
// @Failure 404 {object} response.Response "Not found"
// @Security BearerAuth
// @Router /gallery/{id}/active [patch]
func SetActive(store storage.GalleryStore, cached *cache.Service, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		var req struct {
			IsActive bool `json:"is_active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid request body")))
			return
		}

		if err := store.SetGalleryActive(r.Context(), id, req.IsActive); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("gallery item not found")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to update gallery item")))
			return
		}

		cached.InvalidateGallery(r.Context())
		publisher.PublishGalleryChanged()

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Visibility updated", nil))
	}
}

// Reorder updates the display order of gallery items
// @Summary Reorder gallery items
// @Tags gallery
// @Accept json
// @Produce json
// @Param order body ReorderRequest true "New positions"
// @Success 200 {object} response.Response "Gallery reordered"
// @Failure 400 {object} response.Response "Bad request"
// @Security BearerAuth
// @Router /gallery/reorder [post]
func Reorder(store storage.GalleryStore, cached *cache.Service, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReorderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid request body")))
			return
		}

		if len(req.Items) == 0 {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("items are required")))
			return
		}

		updates := make([]storage.PositionUpdate, 0, len(req.Items))
		for _, it := range req.Items {
			if it.ID == "" {
				response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("item id is required")))
				return
			}
			updates = append(updates, storage.PositionUpdate{ID: it.ID, Position: it.Position})
		}

		if err := store.ReorderGallery(r.Context(), updates); err != nil {
			slog.Error("Failed to reorder gallery", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to reorder gallery")))
			return
		}

		cached.InvalidateGallery(r.Context())
		publisher.PublishGalleryChanged()

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Gallery reordered", nil))
	}
}

// Delete removes a gallery item
// @Summary Delete a gallery item
// @Tags gallery
// @Produce json
// @Param id path string true "Item id"
// @Success 200 {object} response.Response "Gallery item deleted"
// @Failure 404 {object} response.Response "Not found"
// @Security BearerAuth
// @Router /gallery/{id} [delete]
func Delete(store storage.GalleryStore, cached *cache.Service, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		if err := store.DeleteGalleryItem(r.Context(), id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("gallery item not found")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to delete gallery item")))
			return
		}

		cached.InvalidateGallery(r.Context())
		publisher.PublishGalleryChanged()

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Gallery item deleted", nil))
	}
}

func decodeItem(w http.ResponseWriter, r *http.Request) (ItemRequest, bool) {
	var req ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid request body")))
		return req, false
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok {
			response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
			return req, false
		}
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return req, false
	}

	return req, true
}
