package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/leca/seo-images/internal/database"
	"github.com/leca/seo-images/internal/model"
)

// PictureOptions override what is rendered for one image. Zero values fall
// back to the stored metadata or defaults.
type PictureOptions struct {
	Alt           string `json:"alt"`
	Title         string `json:"title"`
	Class         string `json:"class"`
	Loading       string `json:"loading"`
	Sizes         string `json:"sizes"`
	FetchPriority string `json:"fetchpriority"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	// Fallback is the src used when the image is missing and fallback
	// rendering is enabled.
	Fallback string `json:"fallback"`
}

type source struct {
	Type   string
	Srcset string
	Sizes  string
}

type pictureView struct {
	Sources       []source
	Src           string
	Alt           string
	Title         string
	Class         string
	Width         int
	Height        int
	Loading       string
	FetchPriority string
}

var pictureTmpl = template.Must(template.New("picture").Parse(
	`<picture>` +
		`{{range .Sources}}<source type="{{.Type}}" srcset="{{.Srcset}}" sizes="{{.Sizes}}">{{end}}` +
		`<img src="{{.Src}}" alt="{{.Alt}}"` +
		`{{with .Title}} title="{{.}}"{{end}}` +
		`{{with .Class}} class="{{.}}"{{end}}` +
		`{{if .Width}} width="{{.Width}}"{{end}}` +
		`{{if .Height}} height="{{.Height}}"{{end}}` +
		` loading="{{.Loading}}" decoding="async"` +
		`{{with .FetchPriority}} fetchpriority="{{.}}"{{end}}>` +
		`</picture>`,
))

var missingTmpl = template.Must(template.New("missing").Parse(`<img src="{{.Src}}" alt="{{.Alt}}">`))

// Renderer produces the markup embedding stored images.
type Renderer struct {
	db                database.Database
	resolver          *Resolver
	breakpoints       []int
	fallbackOnMissing bool
}

// NewRenderer creates a Renderer. breakpoints are the configured variant
// widths used to synthesize the default sizes attribute.
func NewRenderer(db database.Database, resolver *Resolver, breakpoints []int, fallbackOnMissing bool) *Renderer {
	bp := slices.Clone(breakpoints)
	slices.Sort(bp)
	return &Renderer{db: db, resolver: resolver, breakpoints: slices.Compact(bp), fallbackOnMissing: fallbackOnMissing}
}

// Picture renders a <picture> element for the image stored at folderPath.
// A source is emitted per format, best compression first, only when the
// existence index holds at least one width for it; the fallback <img>
// always targets the original jpg. An unknown folder renders nothing, or a
// plain <img> of opts.Fallback when fallback rendering is on.
func (r *Renderer) Picture(folderPath string, opts PictureOptions) (template.HTML, error) {
	img, err := r.db.GetImageByFolder(strings.Trim(folderPath, `'" `))
	if errors.Is(err, database.ErrNotFound) {
		if !r.fallbackOnMissing {
			return "", nil
		}
		return execute(missingTmpl, pictureView{Src: opts.Fallback, Alt: opts.Alt})
	}
	if err != nil {
		return "", fmt.Errorf("render %s: %w", folderPath, err)
	}
	return r.PictureFor(img, opts)
}

// PictureFor renders the <picture> element for an already loaded image.
func (r *Renderer) PictureFor(img *model.ImageAsset, opts PictureOptions) (template.HTML, error) {
	sizes := opts.Sizes
	if sizes == "" {
		sizes = r.DefaultSizes()
	}

	view := pictureView{
		Src:           r.resolver.URL(img, model.FormatJPG, model.OriginalWidth),
		Alt:           firstNonEmpty(opts.Alt, img.Alt),
		Title:         firstNonEmpty(opts.Title, img.Title),
		Class:         opts.Class,
		Width:         img.Width,
		Height:        img.Height,
		Loading:       firstNonEmpty(opts.Loading, "lazy"),
		FetchPriority: opts.FetchPriority,
	}
	if opts.Width > 0 {
		view.Width = opts.Width
	}
	if opts.Height > 0 {
		view.Height = opts.Height
	}

	for _, format := range model.Formats {
		if srcset := r.srcset(img, format); srcset != "" {
			view.Sources = append(view.Sources, source{Type: format.MIMEType(), Srcset: srcset, Sizes: sizes})
		}
	}
	return execute(pictureTmpl, view)
}

// srcset lists the resized variants of format followed by the original,
// which is described by the source width. Empty when nothing exists.
func (r *Renderer) srcset(img *model.ImageAsset, format model.Format) string {
	var widths []int
	if img.AvailableFormats != nil {
		if !img.AvailableFormats.HasAny(format) {
			return ""
		}
		widths = img.AvailableFormats.Widths(format)
	} else {
		for _, w := range r.breakpoints {
			if w < img.Width && r.resolver.Exists(img, format, w) {
				widths = append(widths, w)
			}
		}
	}

	var entries []string
	for _, w := range widths {
		entries = append(entries, r.resolver.URL(img, format, w)+" "+strconv.Itoa(w)+"w")
	}
	if r.resolver.Exists(img, format, model.OriginalWidth) {
		entries = append(entries, r.resolver.URL(img, format, model.OriginalWidth)+" "+strconv.Itoa(img.Width)+"w")
	}
	return strings.Join(entries, ", ")
}

// DefaultSizes synthesizes a sizes attribute from the breakpoints, e.g.
// "(max-width: 480px) 480px, (max-width: 768px) 768px, 1200px".
func (r *Renderer) DefaultSizes() string {
	if len(r.breakpoints) == 0 {
		return "100vw"
	}
	last := len(r.breakpoints) - 1
	parts := make([]string, 0, len(r.breakpoints))
	for _, w := range r.breakpoints[:last] {
		parts = append(parts, fmt.Sprintf("(max-width: %dpx) %dpx", w, w))
	}
	parts = append(parts, fmt.Sprintf("%dpx", r.breakpoints[last]))
	return strings.Join(parts, ", ")
}

func execute(t *template.Template, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute %s template: %w", t.Name(), err)
	}
	return template.HTML(buf.String()), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// FuncMap exposes the renderer to html/template as seoimage and seoinput:
//
//	{{ seoimage "2024/05/01/cat" }}
//	{{ seoinput "cover" "single" }}
func (r *Renderer) FuncMap() template.FuncMap {
	return template.FuncMap{
		"seoimage": func(folderPath string, opts ...PictureOptions) template.HTML {
			var o PictureOptions
			if len(opts) > 0 {
				o = opts[0]
			}
			html, err := r.Picture(folderPath, o)
			if err != nil {
				slog.Error("seoimage render failed", "folder", folderPath, "error", err)
				return ""
			}
			return html
		},
		"seoinput": func(name string, mode ...string) template.HTML {
			m := ModeSingle
			if len(mode) > 0 {
				m = mode[0]
			}
			return Input(name, m)
		},
	}
}
