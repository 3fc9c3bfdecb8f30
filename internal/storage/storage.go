package storage

import (
	"fmt"
	"io"
	"sort"
)

// Storage is a backend that holds variant files addressed by relative,
// slash-separated paths such as "2024/05/01/cat/cat-480.webp".
type Storage interface {
	// Put writes data to path, creating parent directories as needed, and
	// returns the number of bytes written.
	Put(path string, data io.Reader) (int64, error)

	// Exists reports whether a file is present at path.
	Exists(path string) (bool, error)

	// DeleteDir removes dir and everything under it. Removing a missing
	// directory is not an error.
	DeleteDir(dir string) error

	// URL returns the public URL of path. It may be relative to the
	// application URL.
	URL(path string) string
}

// Disks is the set of named storage backends. Each image row records the
// disk it was written to, so rows keep resolving after the default changes.
type Disks struct {
	byName      map[string]Storage
	defaultName string
}

// NewDisks creates a registry whose default backend is defaultName.
func NewDisks(defaultName string) *Disks {
	return &Disks{byName: make(map[string]Storage), defaultName: defaultName}
}

// Register adds or replaces the backend called name.
func (d *Disks) Register(name string, s Storage) {
	d.byName[name] = s
}

// Get returns the backend called name.
func (d *Disks) Get(name string) (Storage, error) {
	s, ok := d.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown storage disk %q", name)
	}
	return s, nil
}

// Default returns the name and backend new uploads are written to.
func (d *Disks) Default() (string, Storage, error) {
	s, err := d.Get(d.defaultName)
	if err != nil {
		return "", nil, err
	}
	return d.defaultName, s, nil
}

// Names lists the registered disks in sorted order.
func (d *Disks) Names() []string {
	names := make([]string, 0, len(d.byName))
	for name := range d.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
