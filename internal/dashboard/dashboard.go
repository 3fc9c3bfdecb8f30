// Package dashboard aggregates storage statistics for the admin dashboard.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/leca/seo-images/internal/cache"
	"github.com/leca/seo-images/internal/database"
	"github.com/leca/seo-images/internal/model"
	"github.com/leca/seo-images/internal/render"
)

const (
	recentDays   = 7
	largestLimit = 5
)

type Distribution struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type LargeImage struct {
	ID          int64   `json:"id"`
	Basename    string  `json:"basename"`
	FolderPath  string  `json:"folder_path"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	TotalSizeMB float64 `json:"total_size_mb"`
	PreviewURL  string  `json:"preview_url"`
}

type Size struct {
	TotalMB float64 `json:"total_mb"`
	TotalGB float64 `json:"total_gb"`
}

// Stats is the dashboard payload.
type Stats struct {
	TotalImages        int                           `json:"total_images"`
	TotalStorageMB     float64                       `json:"total_storage_mb"`
	TotalStorageGB     float64                       `json:"total_storage_gb"`
	FormatDistribution map[model.Format]Distribution `json:"format_distribution"`
	RecentUploads      []DayCount                    `json:"recent_uploads"`
	LargestImages      []LargeImage                  `json:"largest_images"`
	FormatSizes        map[model.Format]Size         `json:"format_sizes"`
}

// Service computes and memoizes Stats.
type Service struct {
	db       database.Database
	resolver *render.Resolver
	cache    *cache.Store
	now      func() time.Time
}

func NewService(db database.Database, resolver *render.Resolver, store *cache.Store) *Service {
	return &Service{db: db, resolver: resolver, cache: store, now: time.Now}
}

// Stats returns the cached statistics, computing them on a miss. Each
// aggregate that fails is logged and reported as zero or empty, and the
// degraded result is not cached.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	stats, err := cache.Remember(ctx, s.cache, cache.DashboardKey, s.compute)
	if err != nil {
		slog.Warn("dashboard: serving incomplete statistics", "error", err)
	}
	return stats, nil
}

func (s *Service) compute() (Stats, error) {
	var errs []error
	fail := func(what string, err error) {
		slog.Error("dashboard: "+what, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", what, err))
	}

	stats := Stats{
		FormatDistribution: make(map[model.Format]Distribution, len(model.Formats)),
		FormatSizes:        make(map[model.Format]Size, len(model.Formats)),
	}

	recent, err := s.recentUploads()
	if err != nil {
		fail("recent uploads", err)
	}
	stats.RecentUploads = recent

	largest, err := s.largestImages()
	if err != nil {
		fail("largest images", err)
	}
	stats.LargestImages = largest

	total, err := s.db.CountImages()
	if err != nil {
		fail("count images", err)
	}
	stats.TotalImages = total

	sizes, err := s.db.SumFileSizes()
	if err != nil {
		fail("sum file sizes", err)
	}
	stats.TotalStorageMB = round(megabytes(sizes.Total()), 2)
	stats.TotalStorageGB = round(gigabytes(sizes.Total()), 2)
	for _, f := range model.Formats {
		n := sizes.Get(f)
		stats.FormatSizes[f] = Size{TotalMB: round(megabytes(n), 2), TotalGB: round(gigabytes(n), 2)}
	}

	counts, err := s.db.FormatCounts()
	if err != nil {
		fail("format counts", err)
	}
	var sum int
	for _, f := range model.Formats {
		sum += counts[f]
	}
	for _, f := range model.Formats {
		d := Distribution{Count: counts[f]}
		if sum > 0 {
			d.Percentage = round(float64(counts[f])/float64(sum)*100, 1)
		}
		stats.FormatDistribution[f] = d
	}
	return stats, errors.Join(errs...)
}

// recentUploads is zero-filled and oldest first, ending today (UTC). The
// zero-filled week is returned even on error.
func (s *Service) recentUploads() ([]DayCount, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(recentDays - 1))

	counts, err := s.db.CountUploadsByDay(since)

	out := make([]DayCount, 0, recentDays)
	for i := 0; i < recentDays; i++ {
		day := since.AddDate(0, 0, i).Format(time.DateOnly)
		out = append(out, DayCount{Date: day, Count: counts[day]})
	}
	return out, err
}

func (s *Service) largestImages() ([]LargeImage, error) {
	imgs, err := s.db.LargestImages(largestLimit)
	if err != nil {
		return []LargeImage{}, err
	}
	out := make([]LargeImage, 0, len(imgs))
	for _, img := range imgs {
		out = append(out, LargeImage{
			ID:          img.ID,
			Basename:    img.Basename,
			FolderPath:  img.FolderPath,
			Width:       img.Width,
			Height:      img.Height,
			TotalSizeMB: round(megabytes(img.FileSizes.Total()), 2),
			PreviewURL:  s.resolver.PreviewURL(img),
		})
	}
	return out, nil
}

func megabytes(n int64) float64 { return float64(n) / (1 << 20) }
func gigabytes(n int64) float64 { return float64(n) / (1 << 30) }

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
