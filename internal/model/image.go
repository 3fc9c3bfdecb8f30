package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Format is an output encoding produced for every image variant.
type Format string

const (
	FormatAVIF Format = "avif"
	FormatWebP Format = "webp"
	FormatJPG  Format = "jpg"
)

// Formats lists every output format in descending preference: best
// compression first, universally supported raster last.
var Formats = []Format{FormatAVIF, FormatWebP, FormatJPG}

// MIMEType returns the content type browsers expect for the format.
func (f Format) MIMEType() string {
	switch f {
	case FormatAVIF:
		return "image/avif"
	case FormatWebP:
		return "image/webp"
	case FormatJPG:
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// OriginalWidth is the width sentinel for the original-size variant.
const OriginalWidth = 0

// AvailableFormats is the existence index: for each format, the widths
// that were successfully written to storage. OriginalWidth stands for the
// un-resized variant and is serialized as JSON null.
type AvailableFormats map[Format][]int

// Add records width as present for format. Duplicates are ignored.
func (a AvailableFormats) Add(format Format, width int) {
	if slices.Contains(a[format], width) {
		return
	}
	a[format] = append(a[format], width)
}

// Has reports whether the variant (format, width) was written.
func (a AvailableFormats) Has(format Format, width int) bool {
	return slices.Contains(a[format], width)
}

// HasAny reports whether at least one width exists for format.
func (a AvailableFormats) HasAny(format Format) bool {
	return len(a[format]) > 0
}

// Widths returns the resized widths recorded for format in ascending
// order, excluding the original-size sentinel.
func (a AvailableFormats) Widths(format Format) []int {
	var out []int
	for _, w := range a[format] {
		if w != OriginalWidth {
			out = append(out, w)
		}
	}
	slices.Sort(out)
	return out
}

// MarshalJSON encodes the original-size sentinel as null.
func (a AvailableFormats) MarshalJSON() ([]byte, error) {
	out := make(map[Format][]*int, len(a))
	for format, widths := range a {
		list := make([]*int, 0, len(widths))
		for _, w := range widths {
			if w == OriginalWidth {
				list = append(list, nil)
				continue
			}
			list = append(list, &w)
		}
		out[format] = list
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes null entries back to OriginalWidth.
func (a *AvailableFormats) UnmarshalJSON(data []byte) error {
	var raw map[Format][]*int
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode available formats: %w", err)
	}
	out := make(AvailableFormats, len(raw))
	for format, widths := range raw {
		list := make([]int, 0, len(widths))
		for _, w := range widths {
			if w == nil {
				list = append(list, OriginalWidth)
				continue
			}
			list = append(list, *w)
		}
		out[format] = list
	}
	*a = out
	return nil
}

// FormatSizes holds the byte length of the original-size variant per format.
type FormatSizes struct {
	JPG  int64 `json:"jpg"`
	WebP int64 `json:"webp"`
	AVIF int64 `json:"avif"`
}

// Get returns the size recorded for format.
func (s FormatSizes) Get(format Format) int64 {
	switch format {
	case FormatJPG:
		return s.JPG
	case FormatWebP:
		return s.WebP
	case FormatAVIF:
		return s.AVIF
	}
	return 0
}

// Set records the size for format.
func (s *FormatSizes) Set(format Format, n int64) {
	switch format {
	case FormatJPG:
		s.JPG = n
	case FormatWebP:
		s.WebP = n
	case FormatAVIF:
		s.AVIF = n
	}
}

// Total is the sum across all formats.
func (s FormatSizes) Total() int64 {
	return s.JPG + s.WebP + s.AVIF
}

// ImageAsset is one uploaded source image and the bookkeeping for all of
// its generated variants.
type ImageAsset struct {
	ID                int64            `json:"id"`
	FolderPath        string           `json:"folder_path"`
	Basename          string           `json:"basename"`
	Disk              string           `json:"disk"`
	OriginalExtension string           `json:"original_extension"`
	OriginalMIME      string           `json:"original_mime"`
	Width             int              `json:"width"`
	Height            int              `json:"height"`
	Alt               string           `json:"alt"`
	Title             string           `json:"title"`
	FileSizes         FormatSizes      `json:"file_sizes"`
	AvailableFormats  AvailableFormats `json:"available_formats"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	DeletedAt         *time.Time       `json:"-"`
}

// VariantPath returns the storage path of the variant (format, width).
func (img *ImageAsset) VariantPath(format Format, width int) string {
	return VariantPath(img.FolderPath, img.Basename, format, width)
}

// VariantPath builds {folder}/{basename}[-{width}].{format}.
func VariantPath(folderPath, basename string, format Format, width int) string {
	if width == OriginalWidth {
		return fmt.Sprintf("%s/%s.%s", folderPath, basename, format)
	}
	return fmt.Sprintf("%s/%s-%d.%s", folderPath, basename, width, format)
}
