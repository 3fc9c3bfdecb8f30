package storage

import (
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
)

var _ Storage = (*FTP)(nil)

// ftpConn is the subset of *ftp.ServerConn the backend uses.
type ftpConn interface {
	Stor(path string, r io.Reader) error
	MakeDir(path string) error
	FileSize(path string) (int64, error)
	RemoveDirRecur(path string) error
	Quit() error
}

// FTP implements Storage on a remote FTP server. A single control
// connection is opened lazily and shared under a mutex; it is dropped and
// redialed after any transport error.
type FTP struct {
	baseURL string
	dial    func() (ftpConn, error)

	mu   sync.Mutex
	conn ftpConn
}

// NewFTP creates an FTP backend. Files are publicly reachable under baseURL.
func NewFTP(host, port, user, password, baseURL string) *FTP {
	if port == "" {
		port = "21"
	}
	addr := host + ":" + port
	return &FTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		dial: func() (ftpConn, error) {
			conn, err := ftp.Dial(addr, ftp.DialWithTimeout(10*time.Second))
			if err != nil {
				return nil, fmt.Errorf("failed to connect to FTP: %w", err)
			}
			if err := conn.Login(user, password); err != nil {
				conn.Quit()
				return nil, fmt.Errorf("failed to login to FTP: %w", err)
			}
			return conn, nil
		},
	}
}

// withConn runs fn on the shared connection, connecting first if needed.
func (f *FTP) withConn(fn func(ftpConn) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conn == nil {
		conn, err := f.dial()
		if err != nil {
			return err
		}
		f.conn = conn
	}

	err := fn(f.conn)
	if err != nil && !isFileUnavailable(err) {
		f.conn.Quit()
		f.conn = nil
	}
	return err
}

func (f *FTP) Put(rel string, data io.Reader) (int64, error) {
	rel = strings.TrimLeft(rel, "/")
	cr := &countingReader{r: data}
	err := f.withConn(func(c ftpConn) error {
		// MakeDir fails for directories that already exist, so those
		// errors are ignored and Stor reports any real problem.
		dir := path.Dir(rel)
		if dir != "." {
			parts := strings.Split(dir, "/")
			for i := range parts {
				c.MakeDir(strings.Join(parts[:i+1], "/"))
			}
		}
		return c.Stor(rel, cr)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload %s: %w", rel, err)
	}
	return cr.n, nil
}

func (f *FTP) Exists(rel string) (bool, error) {
	rel = strings.TrimLeft(rel, "/")
	err := f.withConn(func(c ftpConn) error {
		_, err := c.FileSize(rel)
		return err
	})
	if err == nil {
		return true, nil
	}
	if isFileUnavailable(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", rel, err)
}

func (f *FTP) DeleteDir(rel string) error {
	rel = strings.TrimLeft(rel, "/")
	err := f.withConn(func(c ftpConn) error {
		return c.RemoveDirRecur(rel)
	})
	if err != nil && !isFileUnavailable(err) {
		return fmt.Errorf("failed to delete %s: %w", rel, err)
	}
	return nil
}

func (f *FTP) URL(rel string) string {
	return f.baseURL + "/" + strings.TrimLeft(rel, "/")
}

// Close ends the control connection if one is open.
func (f *FTP) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return nil
	}
	err := f.conn.Quit()
	f.conn = nil
	return err
}

// isFileUnavailable matches the 550 reply servers send for missing paths.
func isFileUnavailable(err error) bool {
	var tpErr *textproto.Error
	return errors.As(err, &tpErr) && tpErr.Code == ftp.StatusFileUnavailable
}
