package render

import (
	"html/template"
	"strings"
)

// Picker modes.
const (
	ModeSingle   = "single"
	ModeMultiple = "multiple"
)

type inputView struct {
	Name      string
	Mode      string
	InputID   string
	PreviewID string
	Multiple  bool
}

var inputTmpl = template.Must(template.New("input").Parse(
	`<div class="seo-input-wrapper" data-input-name="{{.Name}}" data-mode="{{.Mode}}">` +
		`<input type="hidden" name="{{.Name}}" id="{{.InputID}}" value="{{if .Multiple}}[]{{end}}">` +
		`<div class="seo-input-preview" id="{{.PreviewID}}">` +
		`{{if .Multiple}}<div class="seo-gallery-preview"></div>` +
		`{{else}}<div class="seo-single-preview"><span class="seo-no-image">No image selected</span></div>{{end}}` +
		`</div>` +
		`<button type="button" class="btn btn-primary seo-input-open-btn" data-seoinput-open data-input-name="{{.Name}}" data-mode="{{.Mode}}">` +
		`{{if .Multiple}}Select gallery{{else}}Select image{{end}}` +
		`</button>` +
		`</div>`,
))

var idReplacer = strings.NewReplacer("[", "-", "]", "")

// Input renders the form widget the front-end image picker attaches to: a
// hidden input holding the chosen folder path (or a JSON array of them in
// multiple mode), a preview area and an open button. Unknown modes render
// as single.
func Input(name, mode string) template.HTML {
	name = strings.Trim(name, `'" `)
	mode = strings.ToLower(strings.Trim(mode, `'" `))
	if mode != ModeMultiple {
		mode = ModeSingle
	}

	id := idReplacer.Replace(name)
	html, err := execute(inputTmpl, inputView{
		Name:      name,
		Mode:      mode,
		InputID:   "seo-input-" + id,
		PreviewID: "seo-preview-" + id,
		Multiple:  mode == ModeMultiple,
	})
	if err != nil {
		return ""
	}
	return html
}
