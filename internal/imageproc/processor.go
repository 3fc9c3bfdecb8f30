// Package imageproc decodes uploaded images, resizes them, and encodes the
// results into the served output formats.
package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"
	"github.com/leca/seo-images/internal/model"
)

// Decode reads any registered raster format (jpeg, png, gif, webp, avif)
// and applies the EXIF orientation so width and height match what viewers
// display.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// Resize scales img to width pixels wide, preserving the aspect ratio.
func Resize(img image.Image, width int) image.Image {
	return imaging.Resize(img, width, 0, imaging.Lanczos)
}

// Encoder writes images in the output formats at fixed qualities.
type Encoder struct {
	qualities map[model.Format]int
}

// NewEncoder creates an Encoder. Qualities are 0-100.
func NewEncoder(jpgQuality, webpQuality, avifQuality int) *Encoder {
	return &Encoder{qualities: map[model.Format]int{
		model.FormatJPG:  jpgQuality,
		model.FormatWebP: webpQuality,
		model.FormatAVIF: avifQuality,
	}}
}

// Encode returns img encoded as format.
func (e *Encoder) Encode(img image.Image, format model.Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.encodeTo(&buf, img, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Encoder) encodeTo(w io.Writer, img image.Image, format model.Format) error {
	q := e.qualities[format]
	switch format {
	case model.FormatJPG:
		if err := imaging.Encode(w, flatten(img), imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
			return fmt.Errorf("encoding jpg: %w", err)
		}
	case model.FormatWebP:
		if err := webp.Encode(w, img, webp.Options{Quality: q}); err != nil {
			return fmt.Errorf("encoding webp: %w", err)
		}
	case model.FormatAVIF:
		return encodeAVIF(w, img, q)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
	return nil
}

// encodeAVIF is best-effort: a panic inside the codec is returned as an
// error so the other formats still get written.
func encodeAVIF(w io.Writer, img image.Image, quality int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("encoding avif: codec panic: %v", r)
		}
	}()
	if err := avif.Encode(w, img, avif.Options{Quality: quality, Speed: 8}); err != nil {
		return fmt.Errorf("encoding avif: %w", err)
	}
	return nil
}

// flatten composites img onto white, since JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}
