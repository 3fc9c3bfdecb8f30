package database

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/leca/seo-images/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *SQLDB {
	t.Helper()
	// File-backed so WAL and busy_timeout apply as in production.
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "seo-images.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func candidates(folderBase, slug string) FolderCandidate {
	return func(attempt int) (string, string) {
		name := slug
		if attempt > 1 {
			name = fmt.Sprintf("%s-%d", slug, attempt)
		}
		return folderBase + "/" + name, name
	}
}

func writeJPGOnly(img *model.ImageAsset) error {
	img.AvailableFormats = model.AvailableFormats{model.FormatJPG: {model.OriginalWidth, 480}}
	img.FileSizes = model.FormatSizes{JPG: 1000}
	return nil
}

func createTestImage(t *testing.T, db *SQLDB, slug string) *model.ImageAsset {
	t.Helper()
	img := &model.ImageAsset{
		Disk:              "public",
		OriginalExtension: "png",
		OriginalMIME:      "image/png",
		Width:             1600,
		Height:            900,
	}
	require.NoError(t, db.CreateImage(img, candidates("2024/05/01", slug), writeJPGOnly))
	return img
}

func TestCreateAndGetImage(t *testing.T) {
	db := newTestDB(t)

	img := &model.ImageAsset{
		Disk:              "public",
		OriginalExtension: "jpg",
		OriginalMIME:      "image/jpeg",
		Width:             2000,
		Height:            1000,
		Alt:               "A cat",
	}
	err := db.CreateImage(img, candidates("2024/05/01", "cat"), func(img *model.ImageAsset) error {
		assert.NotZero(t, img.ID)
		img.AvailableFormats = model.AvailableFormats{
			model.FormatJPG:  {model.OriginalWidth, 480, 768},
			model.FormatWebP: {model.OriginalWidth},
		}
		img.FileSizes = model.FormatSizes{JPG: 300, WebP: 200}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "2024/05/01/cat", img.FolderPath)
	assert.Equal(t, "cat", img.Basename)

	got, err := db.GetImage(img.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024/05/01/cat", got.FolderPath)
	assert.Equal(t, "A cat", got.Alt)
	assert.Equal(t, 2000, got.Width)
	assert.Equal(t, model.FormatSizes{JPG: 300, WebP: 200}, got.FileSizes)
	assert.True(t, got.AvailableFormats.Has(model.FormatJPG, 768))
	assert.True(t, got.AvailableFormats.Has(model.FormatWebP, model.OriginalWidth))
	assert.False(t, got.AvailableFormats.HasAny(model.FormatAVIF))
	assert.Equal(t, img.CreatedAt, got.CreatedAt)

	byFolder, err := db.GetImageByFolder("2024/05/01/cat")
	require.NoError(t, err)
	assert.Equal(t, img.ID, byFolder.ID)

	_, err = db.GetImage(9999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetImageByFolder("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateImage_CollidingSlugsGetDistinctFolders(t *testing.T) {
	db := newTestDB(t)

	first := createTestImage(t, db, "cat")
	second := createTestImage(t, db, "cat")
	third := createTestImage(t, db, "cat")

	assert.Equal(t, "2024/05/01/cat", first.FolderPath)
	assert.Equal(t, "2024/05/01/cat-2", second.FolderPath)
	assert.Equal(t, "cat-2", second.Basename)
	assert.Equal(t, "2024/05/01/cat-3", third.FolderPath)
}

func TestCreateImage_TombstonedFolderStaysReserved(t *testing.T) {
	db := newTestDB(t)

	first := createTestImage(t, db, "dog")
	require.NoError(t, db.SoftDeleteImage(first.ID))

	second := createTestImage(t, db, "dog")
	assert.Equal(t, "2024/05/01/dog-2", second.FolderPath)
}

func TestCreateImage_FillFailureReleasesFolder(t *testing.T) {
	db := newTestDB(t)

	boom := errors.New("no variant written")
	img := &model.ImageAsset{Disk: "public"}
	err := db.CreateImage(img, candidates("2024/05/01", "broken"), func(*model.ImageAsset) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, img.ID)

	_, err = db.GetImageByFolder("2024/05/01/broken")
	assert.ErrorIs(t, err, ErrNotFound)

	// The folder is free again.
	again := createTestImage(t, db, "broken")
	assert.Equal(t, "2024/05/01/broken", again.FolderPath)
}

func TestCreateImage_RowInvisibleUntilFillReturns(t *testing.T) {
	db := newTestDB(t)
	createTestImage(t, db, "visible")

	img := &model.ImageAsset{Disk: "public"}
	err := db.CreateImage(img, candidates("2024/05/01", "late"), func(img *model.ImageAsset) error {
		_, err := db.GetImageByFolder(img.FolderPath)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = db.GetImage(img.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		_, total, err := db.ListImages("", 1, 9)
		assert.NoError(t, err)
		assert.Equal(t, 1, total)
		count, err := db.CountImages()
		assert.NoError(t, err)
		assert.Equal(t, 1, count)
		missing, err := db.ListImagesMissingFormats()
		assert.NoError(t, err)
		assert.Empty(t, missing)

		assert.ErrorIs(t, db.SoftDeleteImage(img.ID), ErrNotFound)
		return writeJPGOnly(img)
	})
	require.NoError(t, err)

	_, err = db.GetImageByFolder("2024/05/01/late")
	assert.NoError(t, err)
}

func TestCreateImage_OtherWritesProceedDuringFill(t *testing.T) {
	db := newTestDB(t)
	other := createTestImage(t, db, "other")

	var second *model.ImageAsset
	var concurrentErr error
	err := db.CreateImage(&model.ImageAsset{Disk: "public"}, candidates("2024/05/01", "slow"), func(img *model.ImageAsset) error {
		errc := make(chan error, 1)
		go func() {
			if _, err := db.UpdateImageMeta(other.ID, "edited during upload", ""); err != nil {
				errc <- err
				return
			}
			next := &model.ImageAsset{Disk: "public"}
			err := db.CreateImage(next, candidates("2024/05/01", "slow"), writeJPGOnly)
			second = next
			errc <- err
		}()

		select {
		case concurrentErr = <-errc:
		case <-time.After(10 * time.Second):
			concurrentErr = errors.New("writes blocked while fill was running")
		}
		return writeJPGOnly(img)
	})
	require.NoError(t, err)
	require.NoError(t, concurrentErr)

	got, err := db.GetImage(other.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited during upload", got.Alt)

	// The pending folder was already reserved.
	assert.Equal(t, "2024/05/01/slow-2", second.FolderPath)
	_, err = db.GetImageByFolder("2024/05/01/slow")
	assert.NoError(t, err)
}

func TestCreateImage_Exhausted(t *testing.T) {
	db := newTestDB(t)
	createTestImage(t, db, "same")

	img := &model.ImageAsset{Disk: "public"}
	err := db.CreateImage(img, func(int) (string, string) { return "2024/05/01/same", "same" }, writeJPGOnly)
	assert.ErrorIs(t, err, ErrFolderExhausted)
}

func TestListImages(t *testing.T) {
	db := newTestDB(t)

	var created []*model.ImageAsset
	for i := 0; i < 5; i++ {
		created = append(created, createTestImage(t, db, fmt.Sprintf("photo-%d", i)))
	}
	_, err := db.UpdateImageMeta(created[0].ID, "sunset over the sea", "")
	require.NoError(t, err)

	page1, total, err := db.ListImages("", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page1, 2)
	// Newest first; rows created within the same second fall back to id.
	assert.Equal(t, "photo-4", page1[0].Basename)
	assert.Equal(t, "photo-3", page1[1].Basename)

	page3, _, err := db.ListImages("", 3, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, "photo-0", page3[0].Basename)

	found, total, err := db.ListImages("sunset", 1, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, created[0].ID, found[0].ID)

	found, total, err = db.ListImages("photo-2", 1, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "photo-2", found[0].Basename)
}

func TestListImages_WildcardsMatchLiterally(t *testing.T) {
	db := newTestDB(t)
	plain := createTestImage(t, db, "plain")
	createTestImage(t, db, "other")
	_, err := db.UpdateImageMeta(plain.ID, "100% organic_cotton!", "")
	require.NoError(t, err)

	for _, term := range []string{"_", "%", "!", "0% o", "n_c"} {
		found, total, err := db.ListImages(term, 1, 9)
		require.NoError(t, err, term)
		if term == "n_c" {
			assert.Zero(t, total, term)
			continue
		}
		require.Equal(t, 1, total, term)
		assert.Equal(t, plain.ID, found[0].ID, term)
	}
}

func TestSoftDeleteHidesImage(t *testing.T) {
	db := newTestDB(t)
	img := createTestImage(t, db, "gone")
	createTestImage(t, db, "kept")

	require.NoError(t, db.SoftDeleteImage(img.ID))

	_, err := db.GetImage(img.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, total, err := db.ListImages("gone", 1, 9)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)

	all, err := db.ListAllImages()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "kept", all[0].Basename)

	assert.ErrorIs(t, db.SoftDeleteImage(img.ID), ErrNotFound)
	assert.ErrorIs(t, db.SoftDeleteImage(12345), ErrNotFound)
}

func TestUpdateImageMeta(t *testing.T) {
	db := newTestDB(t)
	img := createTestImage(t, db, "meta")

	got, err := db.UpdateImageMeta(img.ID, "new alt", "new title")
	require.NoError(t, err)
	assert.Equal(t, "new alt", got.Alt)
	assert.Equal(t, "new title", got.Title)
	assert.Equal(t, img.FolderPath, got.FolderPath)

	// Writing identical values still succeeds.
	_, err = db.UpdateImageMeta(img.ID, "new alt", "new title")
	assert.NoError(t, err)

	_, err = db.UpdateImageMeta(999, "a", "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMissingFormatsAndBackfill(t *testing.T) {
	db := newTestDB(t)
	img := createTestImage(t, db, "legacy")
	createTestImage(t, db, "indexed")

	_, err := db.db.Exec(`UPDATE seo_images SET available_formats = NULL WHERE id = ?`, img.ID)
	require.NoError(t, err)

	legacy, err := db.GetImage(img.ID)
	require.NoError(t, err)
	assert.Nil(t, legacy.AvailableFormats)

	missing, err := db.ListImagesMissingFormats()
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, img.ID, missing[0].ID)

	af := model.AvailableFormats{model.FormatWebP: {model.OriginalWidth}}
	require.NoError(t, db.SetAvailableFormats(img.ID, af))

	missing, err = db.ListImagesMissingFormats()
	require.NoError(t, err)
	assert.Empty(t, missing)

	assert.ErrorIs(t, db.SetAvailableFormats(999, af), ErrNotFound)
}

func TestStatistics(t *testing.T) {
	db := newTestDB(t)

	small := createTestImage(t, db, "small")
	big := &model.ImageAsset{Disk: "public", Width: 4000, Height: 3000}
	require.NoError(t, db.CreateImage(big, candidates("2024/05/01", "big"), func(img *model.ImageAsset) error {
		img.AvailableFormats = model.AvailableFormats{
			model.FormatJPG:  {model.OriginalWidth},
			model.FormatWebP: {model.OriginalWidth},
			model.FormatAVIF: {model.OriginalWidth},
		}
		img.FileSizes = model.FormatSizes{JPG: 5000, WebP: 3000, AVIF: 2000}
		return nil
	}))
	deleted := createTestImage(t, db, "deleted")
	require.NoError(t, db.SoftDeleteImage(deleted.ID))

	count, err := db.CountImages()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	sizes, err := db.SumFileSizes()
	require.NoError(t, err)
	assert.Equal(t, model.FormatSizes{JPG: 6000, WebP: 3000, AVIF: 2000}, sizes)

	largest, err := db.LargestImages(5)
	require.NoError(t, err)
	require.Len(t, largest, 2)
	assert.Equal(t, big.ID, largest[0].ID)
	assert.Equal(t, small.ID, largest[1].ID)

	counts, err := db.FormatCounts()
	require.NoError(t, err)
	assert.Equal(t, map[model.Format]int{model.FormatJPG: 2, model.FormatWebP: 1, model.FormatAVIF: 1}, counts)

	today := time.Now().UTC().Format("2006-01-02")
	byDay, err := db.CountUploadsByDay(time.Now().UTC().AddDate(0, 0, -6).Truncate(24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{today: 2}, byDay)

	byDay, err = db.CountUploadsByDay(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, byDay)
}

func TestStatisticsEmpty(t *testing.T) {
	db := newTestDB(t)

	sizes, err := db.SumFileSizes()
	require.NoError(t, err)
	assert.Zero(t, sizes.Total())

	largest, err := db.LargestImages(5)
	require.NoError(t, err)
	assert.Empty(t, largest)
}

func TestOpen(t *testing.T) {
	db, err := Open("sqlite", filepath.Join(t.TempDir(), "open.db"))
	require.NoError(t, err)
	db.Close()

	_, err = Open("postgres", "x")
	assert.Error(t, err)
}
