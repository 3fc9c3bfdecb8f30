package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/leca/seo-images/internal/model"
)

func (s *SQLDB) CountImages() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM seo_images WHERE ` + live).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count images: %w", err)
	}
	return count, nil
}

func (s *SQLDB) SumFileSizes() (model.FormatSizes, error) {
	var sizes model.FormatSizes
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(file_size_jpg), 0), COALESCE(SUM(file_size_webp), 0), COALESCE(SUM(file_size_avif), 0)
		FROM seo_images WHERE `+live,
	).Scan(&sizes.JPG, &sizes.WebP, &sizes.AVIF)
	if err != nil {
		return model.FormatSizes{}, fmt.Errorf("sum file sizes: %w", err)
	}
	return sizes, nil
}

// CountUploadsByDay returns upload counts keyed by UTC date (YYYY-MM-DD)
// for rows created at or after since. Days without uploads are absent.
func (s *SQLDB) CountUploadsByDay(since time.Time) (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT SUBSTR(created_at, 1, 10) AS day, COUNT(*)
		FROM seo_images
		WHERE `+live+` AND created_at >= ?
		GROUP BY day`,
		formatTime(since),
	)
	if err != nil {
		return nil, fmt.Errorf("count uploads by day: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("scan upload count: %w", err)
		}
		counts[day] = n
	}
	return counts, rows.Err()
}

// LargestImages orders live images by the summed size of their original
// variants.
func (s *SQLDB) LargestImages(limit int) ([]*model.ImageAsset, error) {
	rows, err := s.db.Query(`SELECT `+imageColumns+` FROM seo_images
		WHERE `+live+`
		ORDER BY (file_size_jpg + file_size_webp + file_size_avif) DESC, id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("largest images: %w", err)
	}
	defer rows.Close()
	return scanImages(rows)
}

// FormatCounts counts, per format, the live images whose existence index
// holds at least one width for it.
func (s *SQLDB) FormatCounts() (map[model.Format]int, error) {
	rows, err := s.db.Query(`SELECT available_formats FROM seo_images WHERE ` + live)
	if err != nil {
		return nil, fmt.Errorf("format counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Format]int, len(model.Formats))
	for _, f := range model.Formats {
		counts[f] = 0
	}
	for rows.Next() {
		var col sql.NullString
		if err := rows.Scan(&col); err != nil {
			return nil, fmt.Errorf("scan available formats: %w", err)
		}
		af, err := decodeFormats(col)
		if err != nil {
			return nil, err
		}
		for _, f := range model.Formats {
			if af.HasAny(f) {
				counts[f]++
			}
		}
	}
	return counts, rows.Err()
}
