package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leca/seo-images/internal/model"
)

// likeEscaper quotes LIKE wildcards for ESCAPE '!', which both dialects
// read the same way.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// maxFolderAttempts bounds the slug-2, slug-3, ... retry loop.
const maxFolderAttempts = 100

// dialect captures what differs between the supported SQL engines. Both
// use "?" placeholders, so queries are shared.
type dialect struct {
	name              string
	schema            []string
	isUniqueViolation func(error) bool
}

// Compile-time check that SQLDB implements Database.
var _ Database = (*SQLDB)(nil)

// SQLDB implements Database on database/sql.
type SQLDB struct {
	db      *sql.DB
	dialect dialect
}

func newSQLDB(db *sql.DB, d dialect, migrate bool) (*SQLDB, error) {
	if migrate {
		for _, stmt := range d.schema {
			if _, err := db.Exec(stmt); err != nil {
				db.Close()
				return nil, fmt.Errorf("run %s migrations: %w", d.name, err)
			}
		}
	}
	return &SQLDB{db: db, dialect: d}, nil
}

// Close closes the underlying database connection.
func (s *SQLDB) Close() error {
	return s.db.Close()
}

const imageColumns = `id, folder_path, basename, disk, original_extension, original_mime,
	width, height, alt, title, file_size_jpg, file_size_webp, file_size_avif,
	available_formats, created_at, updated_at, deleted_at`

// live filters out tombstoned rows and rows whose upload is still running.
const live = `deleted_at IS NULL AND pending = 0`

func (s *SQLDB) CreateImage(img *model.ImageAsset, next FolderCandidate, fill func(*model.ImageAsset) error) error {
	now := time.Now().UTC().Truncate(time.Second)
	img.CreatedAt, img.UpdatedAt = now, now

	if err := s.reserveFolder(img, next); err != nil {
		return err
	}

	err := fill(img)
	if err == nil {
		err = s.publish(img)
	}
	if err != nil {
		if rerr := s.release(img.ID); rerr != nil {
			err = errors.Join(err, rerr)
		}
		img.ID = 0
		return err
	}
	return nil
}

// reserveFolder commits a pending row for the first free candidate. The
// unique index on folder_path also covers pending rows, so concurrent
// uploads of the same name never share a folder.
func (s *SQLDB) reserveFolder(img *model.ImageAsset, next FolderCandidate) error {
	for attempt := 1; attempt <= maxFolderAttempts; attempt++ {
		img.FolderPath, img.Basename = next(attempt)

		res, err := s.db.Exec(`
			INSERT INTO seo_images (folder_path, basename, disk, original_extension, original_mime,
				width, height, alt, title, pending, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			img.FolderPath, img.Basename, img.Disk, img.OriginalExtension, img.OriginalMIME,
			img.Width, img.Height, img.Alt, img.Title,
			formatTime(img.CreatedAt), formatTime(img.UpdatedAt),
		)
		if err != nil {
			if s.dialect.isUniqueViolation(err) {
				continue
			}
			return fmt.Errorf("insert image: %w", err)
		}
		if img.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("read image id: %w", err)
		}
		return nil
	}
	return ErrFolderExhausted
}

// publish records the variant results and makes the row visible.
func (s *SQLDB) publish(img *model.ImageAsset) error {
	afJSON, err := encodeFormats(img.AvailableFormats)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(`
		UPDATE seo_images SET file_size_jpg = ?, file_size_webp = ?, file_size_avif = ?, available_formats = ?, pending = 0
		WHERE id = ? AND pending = 1`,
		img.FileSizes.JPG, img.FileSizes.WebP, img.FileSizes.AVIF, afJSON, img.ID,
	)
	if err != nil {
		return fmt.Errorf("record variants: %w", err)
	}
	return checkRowsAffected(res)
}

// release frees the folder of an upload that did not complete.
func (s *SQLDB) release(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM seo_images WHERE id = ? AND pending = 1`, id); err != nil {
		return fmt.Errorf("release image %d: %w", id, err)
	}
	return nil
}

func (s *SQLDB) GetImage(id int64) (*model.ImageAsset, error) {
	row := s.db.QueryRow(`SELECT `+imageColumns+` FROM seo_images WHERE id = ? AND `+live, id)
	return scanImage(row)
}

func (s *SQLDB) GetImageByFolder(folderPath string) (*model.ImageAsset, error) {
	row := s.db.QueryRow(`SELECT `+imageColumns+` FROM seo_images WHERE folder_path = ? AND `+live, folderPath)
	return scanImage(row)
}

func (s *SQLDB) ListImages(search string, page, perPage int) ([]*model.ImageAsset, int, error) {
	where := live
	var args []interface{}
	if search != "" {
		like := "%" + likeEscaper.Replace(search) + "%"
		where += ` AND (basename LIKE ? ESCAPE '!' OR alt LIKE ? ESCAPE '!' OR title LIKE ? ESCAPE '!')`
		args = append(args, like, like, like)
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM seo_images WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count images: %w", err)
	}

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * perPage
	rows, err := s.db.Query(`SELECT `+imageColumns+` FROM seo_images WHERE `+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		append(args, perPage, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	images, err := scanImages(rows)
	if err != nil {
		return nil, 0, err
	}
	return images, total, nil
}

func (s *SQLDB) ListAllImages() ([]*model.ImageAsset, error) {
	rows, err := s.db.Query(`SELECT ` + imageColumns + ` FROM seo_images
		WHERE ` + live + ` ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list all images: %w", err)
	}
	defer rows.Close()
	return scanImages(rows)
}

func (s *SQLDB) UpdateImageMeta(id int64, alt, title string) (*model.ImageAsset, error) {
	res, err := s.db.Exec(`
		UPDATE seo_images SET alt = ?, title = ?, updated_at = ?
		WHERE id = ? AND `+live,
		alt, title, formatTime(time.Now()), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update image meta: %w", err)
	}
	if err := checkRowsAffected(res); err != nil {
		return nil, err
	}
	return s.GetImage(id)
}

func (s *SQLDB) SetAvailableFormats(id int64, af model.AvailableFormats) error {
	afJSON, err := encodeFormats(af)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(`
		UPDATE seo_images SET available_formats = ?, updated_at = ?
		WHERE id = ? AND `+live,
		afJSON, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update available formats: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *SQLDB) ListImagesMissingFormats() ([]*model.ImageAsset, error) {
	rows, err := s.db.Query(`SELECT ` + imageColumns + ` FROM seo_images
		WHERE ` + live + `
		AND (available_formats IS NULL OR available_formats IN ('', '[]', '{}', 'null'))
		ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list images missing formats: %w", err)
	}
	defer rows.Close()
	return scanImages(rows)
}

// SoftDeleteImage tombstones the row. The folder path stays reserved.
func (s *SQLDB) SoftDeleteImage(id int64) error {
	now := formatTime(time.Now())
	res, err := s.db.Exec(`
		UPDATE seo_images SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND `+live,
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return checkRowsAffected(res)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanImage(row scannable) (*model.ImageAsset, error) {
	img := &model.ImageAsset{}
	var formats, deletedAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&img.ID, &img.FolderPath, &img.Basename, &img.Disk, &img.OriginalExtension, &img.OriginalMIME,
		&img.Width, &img.Height, &img.Alt, &img.Title,
		&img.FileSizes.JPG, &img.FileSizes.WebP, &img.FileSizes.AVIF,
		&formats, &createdAt, &updatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan image: %w", err)
	}

	img.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	img.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	if deletedAt.Valid {
		t, _ := time.Parse(time.RFC3339, deletedAt.String)
		img.DeletedAt = &t
	}
	if img.AvailableFormats, err = decodeFormats(formats); err != nil {
		return nil, fmt.Errorf("image %d: %w", img.ID, err)
	}
	return img, nil
}

func scanImages(rows *sql.Rows) ([]*model.ImageAsset, error) {
	var images []*model.ImageAsset
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// decodeFormats returns nil for rows that predate the existence index.
func decodeFormats(col sql.NullString) (model.AvailableFormats, error) {
	switch {
	case !col.Valid:
		return nil, nil
	case col.String == "", col.String == "[]", col.String == "{}", col.String == "null":
		return nil, nil
	}
	var af model.AvailableFormats
	if err := json.Unmarshal([]byte(col.String), &af); err != nil {
		return nil, err
	}
	return af, nil
}

func encodeFormats(af model.AvailableFormats) (interface{}, error) {
	if af == nil {
		return nil, nil
	}
	data, err := json.Marshal(af)
	if err != nil {
		return nil, fmt.Errorf("marshal available formats: %w", err)
	}
	return string(data), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
