// Package sitemap renders the Google image sitemap for all live images.
package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/leca/seo-images/internal/cache"
	"github.com/leca/seo-images/internal/database"
	"github.com/leca/seo-images/internal/model"
	"github.com/leca/seo-images/internal/render"
)

const (
	sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"
	imageNS   = "http://www.google.com/schemas/sitemap-image/1.1"
)

type urlset struct {
	XMLName xml.Name   `xml:"urlset"`
	NS      string     `xml:"xmlns,attr"`
	ImageNS string     `xml:"xmlns:image,attr"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc   string     `xml:"loc"`
	Image imageEntry `xml:"image:image"`
}

type imageEntry struct {
	Loc     string `xml:"image:loc"`
	Title   string `xml:"image:title,omitempty"`
	Caption string `xml:"image:caption,omitempty"`
	License string `xml:"image:license,omitempty"`
}

// Options configure page URLs and licensing.
type Options struct {
	// AppURL is the public base URL pages are resolved against.
	AppURL string
	// PageURLPattern, when set, makes <loc> point at the page showing the
	// image instead of the image itself. It may contain {id},
	// {folder_path} and {basename}.
	PageURLPattern string
	License        string
}

type Generator struct {
	db       database.Database
	resolver *render.Resolver
	cache    *cache.Store
	opts     Options
}

func NewGenerator(db database.Database, resolver *render.Resolver, store *cache.Store, opts Options) *Generator {
	opts.AppURL = strings.TrimRight(opts.AppURL, "/")
	return &Generator{db: db, resolver: resolver, cache: store, opts: opts}
}

// XML returns the sitemap document. Failures are logged and produce an
// empty but valid <urlset>; they are not cached.
func (g *Generator) XML(ctx context.Context) []byte {
	doc, err := cache.Remember(ctx, g.cache, cache.SitemapKey, g.build)
	if err != nil {
		slog.Error("sitemap generation failed", "error", err)
		empty, _ := encode(urlset{})
		return []byte(empty)
	}
	return []byte(doc)
}

func (g *Generator) build() (string, error) {
	imgs, err := g.db.ListAllImages()
	if err != nil {
		return "", fmt.Errorf("list images: %w", err)
	}

	set := urlset{URLs: make([]urlEntry, 0, len(imgs))}
	for _, img := range imgs {
		set.URLs = append(set.URLs, g.entry(img))
	}
	return encode(set)
}

func (g *Generator) entry(img *model.ImageAsset) urlEntry {
	imageURL := g.resolver.BestURL(img)

	loc := g.resolver.URL(img, model.FormatJPG, model.OriginalWidth)
	if g.opts.PageURLPattern != "" {
		page := strings.NewReplacer(
			"{id}", strconv.FormatInt(img.ID, 10),
			"{folder_path}", img.FolderPath,
			"{basename}", img.Basename,
		).Replace(g.opts.PageURLPattern)
		loc = g.opts.AppURL + "/" + strings.TrimLeft(page, "/")
	}

	title := img.Title
	if title == "" {
		title = img.Alt
	}
	if title == "" {
		title = img.Basename
	}

	return urlEntry{
		Loc: loc,
		Image: imageEntry{
			Loc:     imageURL,
			Title:   title,
			Caption: img.Alt,
			License: g.opts.License,
		},
	}
}

func encode(set urlset) (string, error) {
	set.NS, set.ImageNS = sitemapNS, imageNS
	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode sitemap: %w", err)
	}
	return xml.Header + string(out) + "\n", nil
}
