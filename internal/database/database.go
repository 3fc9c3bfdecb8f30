package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/leca/seo-images/internal/model"
)

var (
	// ErrNotFound is returned when no live row matches.
	ErrNotFound = errors.New("image not found")

	// ErrFolderExhausted is returned when every folder candidate offered to
	// CreateImage was already taken.
	ErrFolderExhausted = errors.New("no free folder path")
)

// FolderCandidate returns the folder path and basename to try on the given
// attempt, starting at 1.
type FolderCandidate func(attempt int) (folderPath, basename string)

// Database defines the persistence interface for image assets.
type Database interface {
	// CreateImage reserves a unique folder for img by committing a pending
	// row, retrying with the next candidate on a folder collision. It then
	// calls fill with no transaction open, and finally stores the resulting
	// sizes and existence index and makes the row visible. Pending rows are
	// hidden from every other method. If fill or the final update fails the
	// pending row is deleted and the folder is free again.
	CreateImage(img *model.ImageAsset, next FolderCandidate, fill func(*model.ImageAsset) error) error

	GetImage(id int64) (*model.ImageAsset, error)
	GetImageByFolder(folderPath string) (*model.ImageAsset, error)

	// ListImages returns one page of live images, newest first, optionally
	// filtered by a substring of basename, alt or title, and the total
	// number of matches.
	ListImages(search string, page, perPage int) ([]*model.ImageAsset, int, error)
	ListAllImages() ([]*model.ImageAsset, error)

	UpdateImageMeta(id int64, alt, title string) (*model.ImageAsset, error)
	SetAvailableFormats(id int64, af model.AvailableFormats) error

	// ListImagesMissingFormats returns live rows with no existence index.
	ListImagesMissingFormats() ([]*model.ImageAsset, error)

	SoftDeleteImage(id int64) error

	// Statistics
	CountImages() (int, error)
	SumFileSizes() (model.FormatSizes, error)
	CountUploadsByDay(since time.Time) (map[string]int, error)
	LargestImages(limit int) ([]*model.ImageAsset, error)
	FormatCounts() (map[model.Format]int, error)

	Close() error
}

// Open connects to the database for driver ("sqlite" or "mysql") and
// applies the schema.
func Open(driver, dsn string) (Database, error) {
	switch driver {
	case "sqlite":
		return NewSQLiteDB(dsn)
	case "mysql":
		return NewMySQLDB(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
