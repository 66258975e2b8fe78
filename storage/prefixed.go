package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrTooLarge is returned by Upload when the object exceeds the size limit.
var ErrTooLarge = errors.New("storage: object exceeds size limit")

// Prefixed scopes a Storage under a key prefix and enforces a size limit on
// uploads. Paths passed in and returned by List are relative to the prefix.
type Prefixed struct {
	backend Storage
	prefix  string
	maxSize int64
}

var _ Storage = (*Prefixed)(nil)

// NewPrefixed wraps backend. A maxSize of zero disables the limit.
func NewPrefixed(backend Storage, prefix string, maxSize int64) *Prefixed {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Prefixed{backend: backend, prefix: prefix, maxSize: maxSize}
}

func (p *Prefixed) key(name string) string {
	return p.prefix + strings.TrimPrefix(path.Clean("/"+name), "/")
}

// Upload writes reader under the prefix, failing with ErrTooLarge when more
// than maxSize bytes are read. Readers that report their length, such as
// bytes.Reader, are checked up front and passed through unwrapped so
// backends can still seek them.
func (p *Prefixed) Upload(ctx context.Context, name string, reader io.Reader) error {
	if p.maxSize > 0 {
		if sized, ok := reader.(interface{ Len() int }); ok {
			if int64(sized.Len()) > p.maxSize {
				return ErrTooLarge
			}
		} else {
			reader = &limitedReader{r: reader, remaining: p.maxSize}
		}
	}
	return p.backend.Upload(ctx, p.key(name), reader)
}

func (p *Prefixed) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	return p.backend.Download(ctx, p.key(name))
}

func (p *Prefixed) Delete(ctx context.Context, name string) error {
	return p.backend.Delete(ctx, p.key(name))
}

func (p *Prefixed) Exists(ctx context.Context, name string) (bool, error) {
	return p.backend.Exists(ctx, p.key(name))
}

func (p *Prefixed) URL(ctx context.Context, name string) (string, error) {
	return p.backend.URL(ctx, p.key(name))
}

func (p *Prefixed) List(ctx context.Context, prefix string) ([]FileInfo, error) {
	files, err := p.backend.List(ctx, p.prefix+prefix)
	if err != nil {
		return nil, err
	}
	for i := range files {
		files[i].Path = strings.TrimPrefix(files[i].Path, p.prefix)
	}
	return files, nil
}

// limitedReader fails instead of truncating once the limit is passed.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(b []byte) (int, error) {
	n, err := l.r.Read(b)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}
