// Package media stores uploaded photo and video files and hands out the
// references posts point at.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrTooLarge        = errors.New("media file too large")
	ErrUnsupportedType = errors.New("unsupported media type")
)

// Store saves media and releases it again once the owning post is gone.
type Store interface {
	Save(ctx context.Context, filename string, r io.Reader) (ref string, isVideo bool, err error)
	Release(ctx context.Context, ref string) error
}

var extensions = map[string]bool{
	".jpg":  false,
	".jpeg": false,
	".png":  false,
	".gif":  false,
	".webp": false,
	".mp4":  true,
	".mov":  true,
	".webm": true,
}

// IsVideoName reports whether filename has a known video extension.
func IsVideoName(filename string) bool {
	return extensions[strings.ToLower(filepath.Ext(filename))]
}

// LocalStore keeps media on the local filesystem under Dir and serves it
// from BaseURL.
type LocalStore struct {
	dir      string
	baseURL  string
	maxBytes int64
	logger   *zap.Logger
}

// NewLocalStore creates dir if needed. maxBytes <= 0 disables the size cap.
func NewLocalStore(dir, baseURL string, maxBytes int64, logger *zap.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &LocalStore{
		dir:      dir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
		logger:   logger.Named("media"),
	}, nil
}

// Save writes r under a fresh random name that keeps the extension of
// filename.
func (s *LocalStore) Save(ctx context.Context, filename string, r io.Reader) (string, bool, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	isVideo, ok := extensions[ext]
	if !ok {
		return "", false, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	name := uuid.NewString() + ext
	full := filepath.Join(s.dir, name)
	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", false, fmt.Errorf("create media file: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.maxBytes > 0 && n > s.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(full)
		return "", false, fmt.Errorf("write media file: %w", err)
	}

	s.logger.Debug("media saved", zap.String("name", name), zap.Int64("bytes", n))
	return s.baseURL + "/" + name, isVideo, nil
}

// Release deletes a file previously returned by Save. References that
// point elsewhere are left alone.
func (s *LocalStore) Release(ctx context.Context, ref string) error {
	name, ok := s.localName(ref)
	if !ok {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove media file: %w", err)
	}
	return nil
}

func (s *LocalStore) localName(ref string) (string, bool) {
	if !strings.HasPrefix(ref, s.baseURL+"/") {
		return "", false
	}
	name := strings.TrimPrefix(ref, s.baseURL+"/")
	if name == "" || name != path.Base(name) || name == "." || name == ".." {
		return "", false
	}
	return name, true
}

// Handler serves stored files. Mount it under the path part of BaseURL.
func (s *LocalStore) Handler(prefix string) http.Handler {
	return http.StripPrefix(prefix, http.FileServer(http.Dir(s.dir)))
}

// Dir returns the directory files are stored in.
func (s *LocalStore) Dir() string {
	return s.dir
}
