// Package render builds public URLs for stored variants and the HTML
// markup that embeds them.
package render

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/leca/seo-images/internal/model"
	"github.com/leca/seo-images/internal/storage"
)

// previewWidth is the variant width shown in pickers and dashboards.
const previewWidth = 480

// Resolver turns (image, format, width) into absolute URLs through the
// image's own storage backend.
type Resolver struct {
	disks *storage.Disks
	base  *url.URL
}

// NewResolver creates a Resolver that resolves relative backend URLs
// against appURL.
func NewResolver(disks *storage.Disks, appURL string) (*Resolver, error) {
	base, err := url.Parse(appURL)
	if err != nil {
		return nil, fmt.Errorf("parse app url: %w", err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("app url %q must be absolute", appURL)
	}
	return &Resolver{disks: disks, base: base}, nil
}

// URL returns the absolute URL of the variant. It does not check that the
// variant exists.
func (r *Resolver) URL(img *model.ImageAsset, format model.Format, width int) string {
	store, err := r.disks.Get(img.Disk)
	if err != nil {
		slog.Warn("cannot build url", "id", img.ID, "error", err)
		return ""
	}
	ref, err := url.Parse(store.URL(img.VariantPath(format, width)))
	if err != nil {
		slog.Warn("storage returned an invalid url", "id", img.ID, "error", err)
		return ""
	}
	return r.base.ResolveReference(ref).String()
}

// Exists consults the existence index. Rows written before the index
// existed fall back to asking the storage backend.
func (r *Resolver) Exists(img *model.ImageAsset, format model.Format, width int) bool {
	if img.AvailableFormats != nil {
		return img.AvailableFormats.Has(format, width)
	}
	store, err := r.disks.Get(img.Disk)
	if err != nil {
		return false
	}
	ok, err := store.Exists(img.VariantPath(format, width))
	if err != nil {
		slog.Warn("storage probe failed", "id", img.ID, "format", format, "width", width, "error", err)
		return false
	}
	return ok
}

// PreviewURL picks the small webp, then the small jpg, then the original jpg.
func (r *Resolver) PreviewURL(img *model.ImageAsset) string {
	for _, f := range []model.Format{model.FormatWebP, model.FormatJPG} {
		if r.Exists(img, f, previewWidth) {
			return r.URL(img, f, previewWidth)
		}
	}
	return r.URL(img, model.FormatJPG, model.OriginalWidth)
}

// BestURL returns the original-size URL in the most compact format that
// exists, falling back to jpg.
func (r *Resolver) BestURL(img *model.ImageAsset) string {
	for _, f := range model.Formats {
		if r.Exists(img, f, model.OriginalWidth) {
			return r.URL(img, f, model.OriginalWidth)
		}
	}
	return r.URL(img, model.FormatJPG, model.OriginalWidth)
}
