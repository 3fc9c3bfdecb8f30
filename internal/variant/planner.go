// Package variant decides which (format, width) renditions to produce for
// a source image.
package variant

import (
	"slices"

	"github.com/leca/seo-images/internal/model"
)

// Variant is one rendition of a source image. Width is
// model.OriginalWidth for the un-resized rendition.
type Variant struct {
	Format model.Format
	Width  int
}

// IsOriginal reports whether the variant keeps the source dimensions.
func (v Variant) IsOriginal() bool {
	return v.Width == model.OriginalWidth
}

// Plan returns every variant to attempt for a source of sourceWidth
// pixels. The original size is always planned in every format; a target
// width is planned only when it is strictly below the source width, so a
// target equal to the source is skipped rather than duplicating the
// original. Non-positive and repeated widths are ignored. Variants are
// grouped by width (original first, then ascending) so callers can resize
// once per width.
func Plan(sourceWidth int, widths []int, formats []model.Format) []Variant {
	targets := ResizeWidths(sourceWidth, widths)

	plan := make([]Variant, 0, len(formats)*(len(targets)+1))
	for _, f := range formats {
		plan = append(plan, Variant{Format: f, Width: model.OriginalWidth})
	}
	for _, w := range targets {
		for _, f := range formats {
			plan = append(plan, Variant{Format: f, Width: w})
		}
	}
	return plan
}

// ResizeWidths returns the configured widths that would be produced for a
// source of sourceWidth pixels, sorted ascending.
func ResizeWidths(sourceWidth int, widths []int) []int {
	var out []int
	for _, w := range widths {
		if w <= 0 || w >= sourceWidth || slices.Contains(out, w) {
			continue
		}
		out = append(out, w)
	}
	slices.Sort(out)
	return out
}
