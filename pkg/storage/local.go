package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrInvalidName is returned for stored names that would escape the upload directory.
var ErrInvalidName = errors.New("invalid stored file name")

// Object describes a stored file.
type Object struct {
	Name string
	URL  string
	Size int64
}

// Local keeps uploads in one flat directory served under a public path.
type Local struct {
	dir        string
	publicPath string
	logger     zerolog.Logger
	now        func() time.Time
}

// NewLocal creates the directory when missing.
func NewLocal(dir, publicPath string, logger zerolog.Logger) (*Local, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("upload directory must be provided")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	return &Local{
		dir:        dir,
		publicPath: "/" + strings.Trim(publicPath, "/"),
		logger:     logger.With().Str("component", "local_storage").Logger(),
		now:        time.Now,
	}, nil
}

// Dir returns the directory files are written to.
func (l *Local) Dir() string {
	return l.dir
}

// Save writes the reader under a fresh `<unix-millis>-<hex>.<ext>` name.
func (l *Local) Save(ctx context.Context, ext string, reader io.Reader) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	suffix, err := randomHex(8)
	if err != nil {
		return Object{}, err
	}
	name := fmt.Sprintf("%d-%s", l.now().UnixMilli(), suffix)
	if ext = strings.Trim(strings.ToLower(ext), ". "); ext != "" {
		name += "." + ext
	}

	path := filepath.Join(l.dir, name)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Object{}, fmt.Errorf("create stored file: %w", err)
	}

	written, copyErr := io.Copy(file, reader)
	closeErr := file.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(path)
		if copyErr != nil {
			return Object{}, fmt.Errorf("write stored file: %w", copyErr)
		}
		return Object{}, fmt.Errorf("close stored file: %w", closeErr)
	}

	l.logger.Debug().Str("file", name).Int64("bytes", written).Msg("file stored")
	return Object{Name: name, URL: l.URL(name), Size: written}, nil
}

// Delete removes a stored file. Missing files are not an error.
func (l *Local) Delete(_ context.Context, name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return ErrInvalidName
	}
	if err := os.Remove(filepath.Join(l.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stored file: %w", err)
	}
	return nil
}

// URL returns the public path of a stored file.
func (l *Local) URL(name string) string {
	return l.publicPath + "/" + name
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate file name: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
