package media

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/ettoiadev/williamdiskpizza/internal/events"
	mediasvc "github.com/ettoiadev/williamdiskpizza/internal/services/media"
	"github.com/ettoiadev/williamdiskpizza/internal/storage"
	"github.com/ettoiadev/williamdiskpizza/internal/utils/response"
)

// maxUploadMemory caps the multipart parse buffer; larger parts spill to disk.
const maxUploadMemory = 10 << 20

type UpdateRequest struct {
	Name    string `json:"name"`
	AltText string `json:"alt_text"`
}

type StatsResponse struct {
	Count     int   `json:"count"`
	TotalSize int64 `json:"total_size"`
}

// Upload accepts one or more files under the "files" multipart field
// @Summary Upload media files
// @Description Upload one or more image files. Each file is validated, stored and recorded. A partial failure reports how many files failed.
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Files to upload"
// @Param folder formData string false "Target folder"
// @Param custom_name formData string false "Custom file name (single upload only)"
// @Param alt_text formData string false "Alt text"
// @Success 201 {object} response.Response "Uploaded media"
// @Failure 400 {object} response.Response "Validation failure"
// @Security BearerAuth
// @Router /media/upload [post]
func Upload(svc *mediasvc.Service, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid multipart form")))
			return
		}

		headers := r.MultipartForm.File["files"]
		if len(headers) == 0 {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("no files provided")))
			return
		}

		opts := mediasvc.UploadOptions{
			Folder:  r.FormValue("folder"),
			AltText: r.FormValue("alt_text"),
		}
		if len(headers) == 1 {
			opts.CustomName = r.FormValue("custom_name")
		}

		files := make([]mediasvc.File, 0, len(headers))
		opened := make([]multipart.File, 0, len(headers))
		defer func() {
			for _, f := range opened {
				f.Close()
			}
		}()

		for _, hdr := range headers {
			f, err := hdr.Open()
			if err != nil {
				response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("failed to read uploaded file")))
				return
			}
			opened = append(opened, f)

			files = append(files, mediasvc.File{
				Name:        hdr.Filename,
				ContentType: hdr.Header.Get("Content-Type"),
				Size:        hdr.Size,
				Content:     f,
			})
		}

		if len(files) == 1 {
			item, err := svc.Upload(r.Context(), files[0], opts)
			if err != nil {
				var ve *mediasvc.ValidationError
				if errors.As(err, &ve) {
					response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(ve))
					return
				}
				slog.Error("Upload failed", slog.String("file", files[0].Name), slog.String("error", err.Error()))
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("upload failed")))
				return
			}

			publisher.PublishMediaUploaded(item.ID, item.Name, item.URL)
			response.WriteJSON(w, http.StatusCreated, response.RequestOK("File uploaded", item))
			return
		}

		items, err := svc.UploadMany(r.Context(), files, opts)
		for _, item := range items {
			publisher.PublishMediaUploaded(item.ID, item.Name, item.URL)
		}
		if err != nil {
			// Some files made it; report the aggregate failure alongside them.
			response.WriteJSON(w, http.StatusMultiStatus, response.Response{
				Data:  items,
				Error: err.Error(),
			})
			return
		}

		response.WriteJSON(w, http.StatusCreated, response.RequestOK("Files uploaded", items))
	}
}

// List returns media rows, optionally filtered
// @Summary List media files
// @Tags media
// @Produce json
// @Param type query string false "Filter by MIME type"
// @Param search query string false "Search by name"
// @Success 200 {object} response.Response "Media files"
// @Security BearerAuth
// @Router /media [get]
func List(store storage.MediaStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := store.ListMedia(r.Context(), storage.MediaFilters{
			Type:   r.URL.Query().Get("type"),
			Search: r.URL.Query().Get("search"),
		})
		if err != nil {
			slog.Error("Failed to list media", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to list media")))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Media retrieved", items))
	}
}

// Get returns one media row
// @Summary Get a media file
// @Tags media
// @Produce json
// @Param id path string true "Media id"
// @Success 200 {object} response.Response "Media file"
// @Failure 404 {object} response.Response "Not found"
// @Security BearerAuth
// @Router /media/{id} [get]
func Get(store storage.MediaStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		item, err := store.GetMediaByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("media not found")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to get media")))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Media retrieved", item))
	}
}

// Update renames a media row or changes its alt text
// @Summary Update media metadata
// @Tags media
// @Accept json
// @Produce json
// @Param id path string true "Media id"
// @Param media body UpdateRequest true "New metadata"
// @Success 200 {object} response.Response "Media updated"
// @Failure 404 {object} response.Response "Not found"
// @Security BearerAuth
// @Router /media/{id} [patch]
func Update(store storage.MediaStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		var req UpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid request body")))
			return
		}

		if req.Name == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("name is required")))
			return
		}

		item, err := store.UpdateMedia(r.Context(), id, req.Name, req.AltText)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("media not found")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to update media")))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Media updated", item))
	}
}

// Delete removes a media file from storage and its row
// @Summary Delete a media file
// @Description Removes the object from storage and deletes the database row. A storage failure does not block the row delete.
// @Tags media
// @Produce json
// @Param id path string true "Media id"
// @Success 200 {object} response.Response "Media deleted"
// @Failure 404 {object} response.Response "Not found"
// @Security BearerAuth
// @Router /media/{id} [delete]
func Delete(svc *mediasvc.Service, store storage.MediaStore, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		item, err := store.GetMediaByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("media not found")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to get media")))
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("media not found")))
				return
			}
			slog.Error("Failed to delete media", slog.String("id", id), slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to delete media")))
			return
		}

		publisher.PublishMediaDeleted(item.ID, item.Name)

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Media deleted", nil))
	}
}

// Stats reports how many media rows exist and their combined size
// @Summary Media statistics
// @Tags media
// @Produce json
// @Success 200 {object} response.Response "Statistics"
// @Security BearerAuth
// @Router /media/stats [get]
func Stats(store storage.MediaStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := store.CountMedia(r.Context())
		if err != nil {
			slog.Error("Failed to count media", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to compute statistics")))
			return
		}

		size, err := store.TotalMediaSize(r.Context())
		if err != nil {
			slog.Error("Failed to sum media size", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to compute statistics")))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Statistics retrieved", StatsResponse{
			Count:     count,
			TotalSize: size,
		}))
	}
}
