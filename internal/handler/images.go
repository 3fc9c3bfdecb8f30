package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/leca/seo-images/internal/api"
	"github.com/leca/seo-images/internal/converter"
	"github.com/leca/seo-images/internal/jobs"
)

const maxPerPage = 100

// ListImages handles GET /seo-images/list.
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	page := 1
	perPage := h.Config.PerPage

	if v := r.URL.Query().Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		if pp, err := strconv.Atoi(v); err == nil && pp > 0 {
			perPage = min(pp, maxPerPage)
		}
	}
	search := api.SanitizeText(r.URL.Query().Get("search"))

	images, total, err := h.DB.ListImages(search, page, perPage)
	if err != nil {
		api.InternalError(w, "failed to list images", err)
		return
	}

	items := make([]imageView, 0, len(images))
	for _, img := range images {
		items = append(items, h.view(img))
	}
	api.WriteJSON(w, http.StatusOK, api.PaginatedResponse(items, api.NewResultInfo(page, perPage, total)))
}

// UploadImage handles POST /seo-images/upload with a multipart "file".
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	// Headroom over the file limit for the multipart framing; the precise
	// check happens in the converter.
	r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxUploadBytes()+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.UnprocessableEntity(w, converter.ErrTooLarge.Error())
			return
		}
		api.UnprocessableEntity(w, "file is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.UnprocessableEntity(w, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.UnprocessableEntity(w, "failed to read upload")
		return
	}
	up := converter.Upload{Filename: header.Filename, Data: data}

	if h.Queue != nil {
		h.enqueueUpload(w, up)
		return
	}

	img, err := h.Converter.Convert(r.Context(), up)
	if err != nil {
		if converter.IsValidationError(err) || errors.Is(err, converter.ErrInsufficientMemory) {
			api.UnprocessableEntity(w, err.Error())
			return
		}
		api.InternalError(w, "failed to convert image", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(h.view(img)))
}

// enqueueUpload validates synchronously so bad files still get a 422, then
// hands conversion to the worker queue.
func (h *Handler) enqueueUpload(w http.ResponseWriter, up converter.Upload) {
	if _, err := h.Converter.Validate(up); err != nil {
		api.UnprocessableEntity(w, err.Error())
		return
	}

	id, err := h.Queue.Enqueue("convert "+up.Filename, func(ctx context.Context) error {
		_, err := h.Converter.Convert(ctx, up)
		return err
	})
	if err != nil {
		if errors.Is(err, jobs.ErrQueueFull) || errors.Is(err, jobs.ErrQueueClosed) {
			api.ServiceUnavailable(w, err.Error())
			return
		}
		api.InternalError(w, "failed to queue upload", err)
		return
	}
	api.WriteJSON(w, http.StatusAccepted, api.SuccessResponse(map[string]string{
		"status": "queued",
		"job_id": id,
	}))
}

type updateMetaRequest struct {
	Alt   *string `json:"alt" validate:"omitempty,max=255"`
	Title *string `json:"title" validate:"omitempty,max=255"`
}

type metaView struct {
	ID         int64  `json:"id"`
	FolderPath string `json:"folder_path"`
	Basename   string `json:"basename"`
	Alt        string `json:"alt"`
	Title      string `json:"title"`
}

// UpdateMeta handles POST /seo-images/{id}/update-meta. Missing or null
// fields clear the stored value.
func (h *Handler) UpdateMeta(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(w, r)
	if !ok {
		return
	}

	var body updateMetaRequest
	if err := api.DecodeJSON(r, &body); err != nil {
		api.BadRequest(w, err.Error())
		return
	}
	if errs := api.Validate(body); errs != nil {
		api.ValidationFailed(w, errs)
		return
	}

	var alt, title string
	if body.Alt != nil {
		alt = api.SanitizeText(*body.Alt)
	}
	if body.Title != nil {
		title = api.SanitizeText(*body.Title)
	}

	img, err := h.DB.UpdateImageMeta(id, alt, title)
	if err != nil {
		api.InternalError(w, "failed to update image metadata", err)
		return
	}
	h.Cache.InvalidateAll(r.Context())

	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(metaView{
		ID:         img.ID,
		FolderPath: img.FolderPath,
		Basename:   img.Basename,
		Alt:        img.Alt,
		Title:      img.Title,
	}))
}

// DeleteImage handles DELETE /seo-images/{id}.
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(w, r)
	if !ok {
		return
	}
	if err := h.Converter.Delete(r.Context(), id); err != nil {
		api.InternalError(w, "failed to delete image", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(map[string]string{"status": "ok"}))
}

func imageID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		api.BadRequest(w, "invalid image id")
		return 0, false
	}
	return id, true
}
