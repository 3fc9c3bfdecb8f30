package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Compile-time check that FileSystem implements Storage.
var _ Storage = (*FileSystem)(nil)

// FileSystem implements Storage on the local filesystem. Files live under
// basePath and are served publicly under urlPrefix.
type FileSystem struct {
	basePath  string
	urlPrefix string
}

// NewFileSystem creates a FileSystem rooted at basePath whose files are
// reachable at urlPrefix (for example "/storage").
func NewFileSystem(basePath, urlPrefix string) *FileSystem {
	return &FileSystem{basePath: basePath, urlPrefix: strings.TrimRight(urlPrefix, "/")}
}

// Root returns the directory files are stored under.
func (fs *FileSystem) Root() string {
	return fs.basePath
}

// fullPath maps a slash-separated relative path under basePath, refusing
// anything that would escape it.
func (fs *FileSystem) fullPath(rel string) (string, error) {
	clean := path.Clean("/" + rel)
	if clean == "/" {
		return "", fmt.Errorf("invalid storage path %q", rel)
	}
	return filepath.Join(fs.basePath, filepath.FromSlash(clean)), nil
}

// Put writes data using an atomic temp file + rename in the target directory.
func (fs *FileSystem) Put(rel string, data io.Reader) (int64, error) {
	dst, err := fs.fullPath(rel)
	if err != nil {
		return 0, err
	}
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmp, data)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return 0, fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return 0, fmt.Errorf("renaming temp file to %s: %w", dst, err)
	}
	tmpPath = ""

	return n, nil
}

func (fs *FileSystem) Exists(rel string) (bool, error) {
	p, err := fs.fullPath(rel)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if err == nil {
		return !info.IsDir(), nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking file %s: %w", p, err)
}

// DeleteDir is idempotent.
func (fs *FileSystem) DeleteDir(rel string) error {
	dir, err := fs.fullPath(rel)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing directory %s: %w", dir, err)
	}
	return nil
}

func (fs *FileSystem) URL(rel string) string {
	return fs.urlPrefix + "/" + strings.TrimLeft(rel, "/")
}
