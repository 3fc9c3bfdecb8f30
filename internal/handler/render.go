package handler

import (
	"net/http"
	"strings"

	"github.com/leca/seo-images/internal/api"
	"github.com/leca/seo-images/internal/render"
)

type renderRequest struct {
	FolderPath string               `json:"folder_path" validate:"required"`
	Options    render.PictureOptions `json:"options"`
}

// RenderPicture handles POST /seo-images/render. An unknown folder yields
// empty html.
func (h *Handler) RenderPicture(w http.ResponseWriter, r *http.Request) {
	var body renderRequest
	if err := api.DecodeJSON(r, &body); err != nil {
		api.BadRequest(w, err.Error())
		return
	}
	body.FolderPath = strings.TrimSpace(body.FolderPath)
	if errs := api.Validate(body); errs != nil {
		api.ValidationFailed(w, errs)
		return
	}

	html, err := h.Renderer.Picture(body.FolderPath, body.Options)
	if err != nil {
		api.InternalError(w, "failed to render picture", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(map[string]string{"html": string(html)}))
}
