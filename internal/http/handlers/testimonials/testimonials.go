package testimonials

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
	Name     string `json:"name" validate:"required"`
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Comment  string `json:"comment" validate:"required"`
	Location string `json:"location"`
	ImageURL string `json:"image_url"`
	Position int    `json:"position"`
	IsActive *bool  `json:"is_active"`
}

type ReorderRequest struct {
	Items []struct {
		ID       string `json:"id" validate:"required"`
		Position int    `json:"position"`
	} `json:"items" validate:"required,min=1,dive"`
}

// List returns testimonials; active-only unless ?all=true
// @Summary List testimonials
// @Tags testimonials
// @Produce json
// @Param all query bool false "Include inactive testimonials"
// @Success 200 {object} response.Response "Testimonials"
// @Router /testimonials [get]
func List(store storage.TestimonialStore, cached *cache.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("all") == "true" {
			items, err := store.ListTestimonials(r.Context(), false)
			if err != nil {
				slog.Error("Failed to list testimonials", slog.String("error", err.Error()))
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to list testimonials")))
				return
			}
			response.WriteJSON(w, http.StatusOK, response.RequestOK("Testimonials retrieved", items))
			return
		}

		items, err := cached.ActiveTestimonials(r.Context())
		if err != nil {
			slog.Error("Failed to list testimonials", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to list testimonials")))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Testimonials retrieved", items))
	}
}

// Stats returns the testimonial rating distribution and average
// @Summary Testimonial statistics
// @Tags testimonials
// @Produce json
// @Success 200 {object} response.Response "Statistics"
// @Security BearerAuth
// @Router /testimonials/stats [get]
func Stats(store storage.TestimonialStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.TestimonialStats(r.Context())
		if err != nil {
			slog.Error("Failed to compute testimonial stats", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to compute statistics")))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Statistics retrieved", stats))
	}
}

// Create adds a testimonial
// @Summary Create a testimonial
// @Tags testimonials
// @Accept json
// @Produce json
// @Param testimonial body ItemRequest true "Testimonial"
// @Success 201 {object} response.Response "Testimonial created"
// @Failure 400 {object} response.Response "Bad request"
// @Security BearerAuth
// @Router /testimonials [post]
func Create(store storage.TestimonialStore, cached *cache.Service, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeItem(w, r)
		if !ok {
			return
		}

		item, err := store.CreateTestimonial(r.Context(), toInput(req))
		if err != nil {
			slog.Error("Failed to create testimonial", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to create testimonial")))
			return
		}

		cached.InvalidateTestimonials(r.Context())
		publisher.PublishTestimonialChanged()

		response.WriteJSON(w, http.StatusCreated, response.RequestOK("Testimonial created", item))
	}
}

// Update replaces a testimonial
// @Summary Update a testimonial
// @Tags testimonials
// @Accept json
// @Produce json
// @Param id path string true "Testimonial id"
// @Param testimonial body ItemRequest true "Testimonial"
// @Success 200 {object} response.Response "Testimonial updated"
// @Failure 404 {object} response.Response "Not found"
// @Security BearerAuth
// @Router /testimonials/{id} [put]
func Update(store storage.TestimonialStore, cached *cache.Service, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		req, ok := decodeItem(w, r)
		if !ok {
			return
		}

		item, err := store.UpdateTestimonial(r.Context(), id, toInput(req))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("testimonial not found")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to update testimonial")))
			return
		}

		cached.InvalidateTestimonials(r.Context())
		publisher.PublishTestimonialChanged()

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Testimonial updated", item))
	}
}

// SetActive toggles visibility of a testimonial
// @Summary Toggle a testimonial's visibility
// @Tags testimonials
// @Accept json
// @Produce json
// @Param id path string true "Testimonial id"
// @Success 200 {object} response.Response "Visibility updated"
// @Failure 404 {object} response.Response "Not found"
// @Security BearerAuth
// @Router /testimonials/{id}/active [patch]
func SetActive(store storage.TestimonialStore, cached *cache.Service, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		var req struct {
			IsActive bool `json:"is_active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid request body")))
			return
		}

		if err := store.SetTestimonialActive(r.Context(), id, req.IsActive); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("testimonial not found")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to update testimonial")))
			return
		}

		cached.InvalidateTestimonials(r.Context())
		publisher.PublishTestimonialChanged()

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Visibility updated", nil))
	}
}

// Reorder updates the display order of testimonials
// @Summary Reorder testimonials
// @Tags testimonials
// @Accept json
// @Produce json
// @Param order body ReorderRequest true "New positions"
// @Success 200 {object} response.Response "Testimonials reordered"
// @Failure 400 {object} response.Response "Bad request"
// @Security BearerAuth
// @Router /testimonials/reorder [post]
func Reorder(store storage.TestimonialStore, cached *cache.Service, publisher events.Publisher) http.HandlerFunc {
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

		if err := store.ReorderTestimonials(r.Context(), updates); err != nil {
			slog.Error("Failed to reorder testimonials", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to reorder testimonials")))
			return
		}

		cached.InvalidateTestimonials(r.Context())
		publisher.PublishTestimonialChanged()

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Testimonials reordered", nil))
	}
}

// Delete removes a testimonial
// @Summary Delete a testimonial
// @Tags testimonials
// @Produce json
// @Param id path string true "Testimonial id"
// @Success 200 {object} response.Response "Testimonial deleted"
// @Failure 404 {object} response.Response "Not found"
// @Security BearerAuth
// @Router /testimonials/{id} [delete]
func Delete(store storage.TestimonialStore, cached *cache.Service, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		if err := store.DeleteTestimonial(r.Context(), id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("testimonial not found")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to delete testimonial")))
			return
		}

		cached.InvalidateTestimonials(r.Context())
		publisher.PublishTestimonialChanged()

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Testimonial deleted", nil))
	}
}

func toInput(req ItemRequest) storage.TestimonialInput {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	return storage.TestimonialInput{
		Name:     req.Name,
		Rating:   req.Rating,
		Comment:  req.Comment,
		Location: req.Location,
		ImageURL: req.ImageURL,
		Position: req.Position,
		IsActive: active,
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
