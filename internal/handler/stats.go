package handler

import (
	"net/http"

	"github.com/leca/seo-images/internal/api"
)

// GetDashboard handles GET /seo-images/dashboard.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Dashboard.Stats(r.Context())
	if err != nil {
		api.InternalError(w, "failed to compute statistics", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(stats))
}

// GetSitemap handles GET /sitemap-images.xml.
func (h *Handler) GetSitemap(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(h.Sitemap.XML(r.Context()))
}
