package handler

import (
	"github.com/leca/seo-images/internal/cache"
	"github.com/leca/seo-images/internal/config"
	"github.com/leca/seo-images/internal/converter"
	"github.com/leca/seo-images/internal/dashboard"
	"github.com/leca/seo-images/internal/database"
	"github.com/leca/seo-images/internal/jobs"
	"github.com/leca/seo-images/internal/model"
	"github.com/leca/seo-images/internal/render"
	"github.com/leca/seo-images/internal/sitemap"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	DB        database.Database
	Converter *converter.Converter
	Resolver  *render.Resolver
	Renderer  *render.Renderer
	Dashboard *dashboard.Service
	Sitemap   *sitemap.Generator
	Cache     *cache.Store
	// Queue is nil unless uploads are converted in the background.
	Queue  *jobs.Queue
	Config *config.Config
}

type originalView struct {
	Exists bool    `json:"exists"`
	URL    *string `json:"url"`
	Size   int64   `json:"size"`
}

type sizeView struct {
	Width  int    `json:"width"`
	URL    string `json:"url"`
	Exists bool   `json:"exists"`
}

type formatView struct {
	Format   model.Format `json:"format"`
	Original originalView `json:"original"`
	Sizes    []sizeView   `json:"sizes"`
}

type imageView struct {
	ID         int64        `json:"id"`
	FolderPath string       `json:"folder_path"`
	Basename   string       `json:"basename"`
	PreviewURL string       `json:"preview_url"`
	Alt        string       `json:"alt"`
	Title      string       `json:"title"`
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	Formats    []formatView `json:"formats"`
}

// view describes img for the picker: its preview and, per format, the
// original and every configured width that exists.
func (h *Handler) view(img *model.ImageAsset) imageView {
	v := imageView{
		ID:         img.ID,
		FolderPath: img.FolderPath,
		Basename:   img.Basename,
		PreviewURL: h.Resolver.PreviewURL(img),
		Alt:        img.Alt,
		Title:      img.Title,
		Width:      img.Width,
		Height:     img.Height,
		Formats:    make([]formatView, 0, len(model.Formats)),
	}

	for _, f := range []model.Format{model.FormatJPG, model.FormatWebP, model.FormatAVIF} {
		fv := formatView{Format: f, Sizes: []sizeView{}}
		if h.Resolver.Exists(img, f, model.OriginalWidth) {
			u := h.Resolver.URL(img, f, model.OriginalWidth)
			fv.Original = originalView{Exists: true, URL: &u, Size: img.FileSizes.Get(f)}
		}
		for _, w := range h.Config.Sizes {
			if h.Resolver.Exists(img, f, w) {
				fv.Sizes = append(fv.Sizes, sizeView{Width: w, URL: h.Resolver.URL(img, f, w), Exists: true})
			}
		}
		v.Formats = append(v.Formats, fv)
	}
	return v
}
