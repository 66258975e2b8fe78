// Package local stores archived audio in a directory on the local filesystem.
package local

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kbukum/audiotranscriber/logger"
	"github.com/kbukum/audiotranscriber/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderLocal, func(cfg storage.Config, _ *logger.Logger) (storage.Storage, error) {
		return NewStorage(cfg.BasePath)
	})
}

// Storage implements storage.Storage using the local filesystem.
type Storage struct {
	basePath string
}

// NewStorage creates the base directory if needed.
func NewStorage(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("local: base_path is required")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create base directory: %w", err)
	}
	return &Storage{basePath: abs}, nil
}

// resolve maps an object path to a file under basePath; ".." cannot escape it.
func (s *Storage) resolve(path string) string {
	return filepath.Join(s.basePath, filepath.Clean("/"+path))
}

// Upload writes reader to a temporary file and renames it into place, so a
// failed upload never leaves a partial object behind.
func (s *Storage) Upload(_ context.Context, path string, reader io.Reader) error {
	fullPath := s.resolve(path)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("storage: create directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("storage: create file: %w", err)
	}
	tmp := f.Name()

	if _, err := io.Copy(f, reader); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("storage: write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("storage: close file: %w", err)
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("storage: rename file: %w", err)
	}
	return nil
}

// Download returns a reader for the local file at the given path.
func (s *Storage) Download(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(s.resolve(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage: file not found: %s", path)
		}
		return nil, fmt.Errorf("storage: open file: %w", err)
	}
	return f, nil
}

// Delete removes a local file. Returns nil if the file does not exist.
func (s *Storage) Delete(_ context.Context, path string) error {
	if err := os.Remove(s.resolve(path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete file: %w", err)
	}
	return nil
}

// Exists checks whether a local file exists.
func (s *Storage) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(s.resolve(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat file: %w", err)
	}
	return true, nil
}

// URL returns a file:// URL for the local file.
func (s *Storage) URL(_ context.Context, path string) (string, error) {
	u := &url.URL{Scheme: "file", Path: s.resolve(path)}
	return u.String(), nil
}

// List returns metadata for all files whose relative path starts with prefix,
// sorted by path.
func (s *Storage) List(_ context.Context, prefix string) ([]storage.FileInfo, error) {
	var files []storage.FileInfo

	err := filepath.Walk(s.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), ".upload-") {
			return nil
		}
		relPath, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)
		if !strings.HasPrefix(relPath, prefix) {
			return nil
		}
		ct := mime.TypeByExtension(filepath.Ext(path))
		if ct == "" {
			ct = "application/octet-stream"
		}
		files = append(files, storage.FileInfo{
			Path:         relPath,
			Size:         info.Size(),
			LastModified: info.ModTime(),
			ContentType:  ct,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list files: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

var _ storage.Storage = (*Storage)(nil)
