package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailableFormats_AddAndHas(t *testing.T) {
	af := AvailableFormats{}
	af.Add(FormatJPG, OriginalWidth)
	af.Add(FormatJPG, 480)
	af.Add(FormatJPG, 480)

	assert.True(t, af.Has(FormatJPG, OriginalWidth))
	assert.True(t, af.Has(FormatJPG, 480))
	assert.False(t, af.Has(FormatJPG, 768))
	assert.False(t, af.Has(FormatWebP, OriginalWidth))
	assert.Len(t, af[FormatJPG], 2)

	assert.True(t, af.HasAny(FormatJPG))
	assert.False(t, af.HasAny(FormatAVIF))
}

func TestAvailableFormats_Widths(t *testing.T) {
	af := AvailableFormats{FormatWebP: {OriginalWidth, 1200, 480, 768}}
	assert.Equal(t, []int{480, 768, 1200}, af.Widths(FormatWebP))
	assert.Nil(t, af.Widths(FormatAVIF))
}

func TestAvailableFormats_JSONUsesNullForOriginal(t *testing.T) {
	af := AvailableFormats{FormatJPG: {OriginalWidth, 480}}

	data, err := json.Marshal(af)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jpg":[null,480]}`, string(data))

	var decoded AvailableFormats
	require.NoError(t, json.Unmarshal([]byte(`{"jpg":[null,480],"webp":[],"avif":[768]}`), &decoded))
	assert.True(t, decoded.Has(FormatJPG, OriginalWidth))
	assert.True(t, decoded.Has(FormatJPG, 480))
	assert.False(t, decoded.HasAny(FormatWebP))
	assert.True(t, decoded.Has(FormatAVIF, 768))
}

func TestAvailableFormats_UnmarshalInvalid(t *testing.T) {
	var decoded AvailableFormats
	err := json.Unmarshal([]byte(`["jpg"]`), &decoded)
	assert.Error(t, err)
}

func TestFormatSizes(t *testing.T) {
	var s FormatSizes
	s.Set(FormatJPG, 100)
	s.Set(FormatWebP, 50)
	s.Set(FormatAVIF, 25)

	assert.Equal(t, int64(100), s.Get(FormatJPG))
	assert.Equal(t, int64(50), s.Get(FormatWebP))
	assert.Equal(t, int64(25), s.Get(FormatAVIF))
	assert.Equal(t, int64(175), s.Total())
}

func TestVariantPath(t *testing.T) {
	assert.Equal(t, "2024/05/01/cat/cat.jpg", VariantPath("2024/05/01/cat", "cat", FormatJPG, OriginalWidth))
	assert.Equal(t, "2024/05/01/cat/cat-480.webp", VariantPath("2024/05/01/cat", "cat", FormatWebP, 480))

	img := &ImageAsset{FolderPath: "2024/05/01/dog-2", Basename: "dog-2"}
	assert.Equal(t, "2024/05/01/dog-2/dog-2-768.avif", img.VariantPath(FormatAVIF, 768))
}

func TestFormatMIMEType(t *testing.T) {
	assert.Equal(t, "image/avif", FormatAVIF.MIMEType())
	assert.Equal(t, "image/webp", FormatWebP.MIMEType())
	assert.Equal(t, "image/jpeg", FormatJPG.MIMEType())
	assert.Equal(t, "application/octet-stream", Format("bmp").MIMEType())
}
