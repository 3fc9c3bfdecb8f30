// Package converter turns uploaded images into stored variants and keeps
// the database rows describing them in step with storage.
package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/leca/seo-images/internal/database"
	"github.com/leca/seo-images/internal/imageproc"
	"github.com/leca/seo-images/internal/metrics"
	"github.com/leca/seo-images/internal/model"
	"github.com/leca/seo-images/internal/storage"
	"github.com/leca/seo-images/internal/variant"
)

var (
	ErrEmptyUpload        = errors.New("no file uploaded")
	ErrTooLarge           = errors.New("file is too large")
	ErrUnsupportedType    = errors.New("unsupported file type")
	ErrDecode             = errors.New("file is not a readable image")
	ErrInsufficientMemory = errors.New("insufficient memory to process the file")
	ErrNoVariants         = errors.New("no variant could be written")
)

// IsValidationError reports whether err is caused by the upload itself
// rather than by the server.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyUpload) ||
		errors.Is(err, ErrTooLarge) ||
		errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrDecode)
}

// Upload is a file received from a client.
type Upload struct {
	Filename string
	Data     []byte
}

// Options configures a Converter.
type Options struct {
	Widths           []int
	MaxUploadBytes   int64
	AllowedMIMETypes []string
}

// Converter runs the upload pipeline: validate, decode, reserve a folder,
// write every planned variant, record the existence index.
type Converter struct {
	db      database.Database
	disks   *storage.Disks
	encoder *imageproc.Encoder
	opts    Options
	metrics *metrics.Metrics
	memory  memoryBudget

	// onChange runs after an image is created or removed.
	onChange func(context.Context)
	now      func() time.Time
}

// New creates a Converter. m may be nil.
func New(db database.Database, disks *storage.Disks, encoder *imageproc.Encoder, opts Options, m *metrics.Metrics) *Converter {
	return &Converter{
		db:       db,
		disks:    disks,
		encoder:  encoder,
		opts:     opts,
		metrics:  m,
		onChange: func(context.Context) {},
		now:      time.Now,
	}
}

// OnChange registers fn to run after every successful create or delete,
// typically to invalidate cached aggregates.
func (c *Converter) OnChange(fn func(context.Context)) {
	c.onChange = fn
}

// Validate checks size and sniffed MIME type without decoding, and returns
// the detected MIME type.
func (c *Converter) Validate(up Upload) (string, error) {
	if len(up.Data) == 0 {
		return "", ErrEmptyUpload
	}
	if c.opts.MaxUploadBytes > 0 && int64(len(up.Data)) > c.opts.MaxUploadBytes {
		return "", fmt.Errorf("%w: maximum is %d KB", ErrTooLarge, c.opts.MaxUploadBytes/1024)
	}

	mt := mimetype.Detect(up.Data)
	if len(c.opts.AllowedMIMETypes) > 0 {
		allowed := false
		for _, a := range c.opts.AllowedMIMETypes {
			if mt.Is(a) {
				allowed = true
				break
			}
		}
		if !allowed {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
		}
	}
	return mt.String(), nil
}

// Convert validates and decodes the upload, then writes all variants to
// the default disk and persists the row. Individual variant failures are
// logged and left out of the existence index.
func (c *Converter) Convert(ctx context.Context, up Upload) (*model.ImageAsset, error) {
	start := time.Now()
	img, err := c.convert(ctx, up)
	switch {
	case err == nil:
		c.metrics.ObserveUpload("ok", time.Since(start))
	case IsValidationError(err):
		c.metrics.ObserveUpload("rejected", 0)
	default:
		c.metrics.ObserveUpload("failed", 0)
	}
	return img, err
}

func (c *Converter) convert(ctx context.Context, up Upload) (*model.ImageAsset, error) {
	mime, err := c.Validate(up)
	if err != nil {
		return nil, err
	}

	size := int64(len(up.Data))
	release := c.memory.raise(size)
	defer release()
	if err := c.memory.check(size); err != nil {
		return nil, err
	}

	src, err := imageproc.Decode(up.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	diskName, store, err := c.disks.Default()
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	img := &model.ImageAsset{
		Disk:              diskName,
		OriginalExtension: extension(up.Filename),
		OriginalMIME:      mime,
		Width:             bounds.Dx(),
		Height:            bounds.Dy(),
	}

	dateDir := c.now().Format("2006/01/02")
	slug := Slugify(baseName(up.Filename))

	var written string
	err = c.db.CreateImage(img, folderCandidates(dateDir, slug), func(img *model.ImageAsset) error {
		written = img.FolderPath
		return c.writeVariants(ctx, store, src, img)
	})
	if err != nil {
		// Files may exist for a folder whose row never committed.
		if written != "" {
			if derr := store.DeleteDir(written); derr != nil {
				slog.Warn("failed to clean up variants", "folder", written, "error", derr)
			}
		}
		return nil, fmt.Errorf("convert %s: %w", up.Filename, err)
	}

	slog.Info("image converted",
		"id", img.ID,
		"folder", img.FolderPath,
		"width", img.Width,
		"height", img.Height,
		"bytes", img.FileSizes.Total(),
	)
	c.onChange(ctx)
	return img, nil
}

// writeVariants encodes and stores every planned variant of src. The plan
// is grouped by width, so each target width is resized exactly once.
func (c *Converter) writeVariants(ctx context.Context, store storage.Storage, src image.Image, img *model.ImageAsset) error {
	img.AvailableFormats = model.AvailableFormats{}
	img.FileSizes = model.FormatSizes{}

	frame := src
	frameWidth := model.OriginalWidth
	for _, v := range variant.Plan(img.Width, c.opts.Widths, model.Formats) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if v.Width != frameWidth {
			frame = imageproc.Resize(src, v.Width)
			frameWidth = v.Width
		}

		path := img.VariantPath(v.Format, v.Width)
		data, err := c.encoder.Encode(frame, v.Format)
		if err != nil {
			slog.Warn("variant encode failed", "path", path, "error", err)
			c.metrics.ObserveVariant(string(v.Format), "encode_error")
			continue
		}
		n, err := store.Put(path, bytes.NewReader(data))
		if err != nil {
			slog.Warn("variant write failed", "path", path, "error", err)
			c.metrics.ObserveVariant(string(v.Format), "write_error")
			continue
		}

		img.AvailableFormats.Add(v.Format, v.Width)
		if v.IsOriginal() {
			img.FileSizes.Set(v.Format, n)
		}
		c.metrics.ObserveVariant(string(v.Format), "ok")
	}

	if len(img.AvailableFormats) == 0 {
		return ErrNoVariants
	}
	return nil
}

// Delete removes every file of the image and tombstones its row.
func (c *Converter) Delete(ctx context.Context, id int64) error {
	img, err := c.db.GetImage(id)
	if err != nil {
		return fmt.Errorf("delete image %d: %w", id, err)
	}
	if err := c.DeleteFiles(img); err != nil {
		return err
	}
	if err := c.db.SoftDeleteImage(id); err != nil {
		return fmt.Errorf("delete image %d: %w", id, err)
	}

	slog.Info("image deleted", "id", id, "folder", img.FolderPath)
	c.onChange(ctx)
	return nil
}

// DeleteFiles removes the image folder from the disk it was written to.
func (c *Converter) DeleteFiles(img *model.ImageAsset) error {
	store, err := c.disks.Get(img.Disk)
	if err != nil {
		return err
	}
	if err := store.DeleteDir(img.FolderPath); err != nil {
		return fmt.Errorf("delete files of image %d: %w", img.ID, err)
	}
	return nil
}
