package variant

import (
	"testing"

	"github.com/leca/seo-images/internal/model"
	"github.com/stretchr/testify/assert"
)

var defaultWidths = []int{480, 768, 1200, 1920}

func widthsFor(plan []Variant, format model.Format) []int {
	var out []int
	for _, v := range plan {
		if v.Format == format {
			out = append(out, v.Width)
		}
	}
	return out
}

func TestPlan_LargeSourceGetsEveryWidth(t *testing.T) {
	plan := Plan(4000, defaultWidths, model.Formats)

	assert.Len(t, plan, 15)
	for _, f := range model.Formats {
		assert.Equal(t, []int{model.OriginalWidth, 480, 768, 1200, 1920}, widthsFor(plan, f))
	}
}

func TestPlan_OriginalsComeFirst(t *testing.T) {
	plan := Plan(1000, defaultWidths, model.Formats)

	for i := range model.Formats {
		assert.True(t, plan[i].IsOriginal())
	}
	assert.Equal(t, 480, plan[3].Width)
}

func TestPlan_NoUpscaling(t *testing.T) {
	plan := Plan(800, defaultWidths, model.Formats)

	for _, v := range plan {
		assert.Less(t, v.Width, 800)
	}
	assert.Equal(t, []int{model.OriginalWidth, 480, 768}, widthsFor(plan, model.FormatJPG))
}

func TestPlan_WidthEqualToSourceIsSkipped(t *testing.T) {
	plan := Plan(768, defaultWidths, []model.Format{model.FormatJPG})
	assert.Equal(t, []int{model.OriginalWidth, 480}, widthsFor(plan, model.FormatJPG))
}

func TestPlan_WidthJustBelowSourceIsProduced(t *testing.T) {
	plan := Plan(769, defaultWidths, []model.Format{model.FormatJPG})
	assert.Equal(t, []int{model.OriginalWidth, 480, 768}, widthsFor(plan, model.FormatJPG))
}

func TestPlan_EmptyWidthListStillProducesOriginals(t *testing.T) {
	plan := Plan(2000, nil, model.Formats)

	assert.Len(t, plan, 3)
	for _, v := range plan {
		assert.True(t, v.IsOriginal())
	}
}

func TestPlan_SourceAtSmallestWidthOnlyOriginals(t *testing.T) {
	plan := Plan(480, defaultWidths, model.Formats)

	assert.Len(t, plan, 3)
	for _, v := range plan {
		assert.True(t, v.IsOriginal())
	}
}

func TestResizeWidths_SortsAndDeduplicates(t *testing.T) {
	got := ResizeWidths(2000, []int{1200, 480, 0, -5, 480, 768})
	assert.Equal(t, []int{480, 768, 1200}, got)
}
