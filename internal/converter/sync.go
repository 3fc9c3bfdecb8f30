package converter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leca/seo-images/internal/model"
)

// SyncResult summarizes a SyncFormats run.
type SyncResult struct {
	Total   int
	Updated int
	Failed  int
}

// SyncProgress is called after each row is processed. err is nil when the
// row was updated.
type SyncProgress func(done, total int, img *model.ImageAsset, err error)

// SyncFormats rebuilds the existence index of rows that have none by
// probing their disk for every format at the original size and at each
// configured width. A failing row is counted and skipped.
func (c *Converter) SyncFormats(ctx context.Context, progress SyncProgress) (SyncResult, error) {
	images, err := c.db.ListImagesMissingFormats()
	if err != nil {
		return SyncResult{}, fmt.Errorf("sync formats: %w", err)
	}

	res := SyncResult{Total: len(images)}
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		err := c.syncImage(img)
		if err != nil {
			res.Failed++
			slog.Warn("sync formats failed", "id", img.ID, "folder", img.FolderPath, "error", err)
		} else {
			res.Updated++
		}
		if progress != nil {
			progress(i+1, res.Total, img, err)
		}
	}

	if res.Updated > 0 {
		c.onChange(ctx)
	}
	return res, nil
}

func (c *Converter) syncImage(img *model.ImageAsset) error {
	store, err := c.disks.Get(img.Disk)
	if err != nil {
		return err
	}

	widths := append([]int{model.OriginalWidth}, c.opts.Widths...)
	af := model.AvailableFormats{}
	for _, format := range model.Formats {
		af[format] = []int{}
		for _, w := range widths {
			ok, err := store.Exists(img.VariantPath(format, w))
			if err != nil {
				return err
			}
			if ok {
				af.Add(format, w)
			}
		}
	}

	img.AvailableFormats = af
	return c.db.SetAvailableFormats(img.ID, af)
}
