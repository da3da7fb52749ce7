package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/arx-deidentifier/gta-benchmark/internal/utils/encoding"
	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
	"github.com/arx-deidentifier/gta-benchmark/pkg/interfaces"
)

// FileSourceConfig contains configuration for reference tables on disk
type FileSourceConfig struct {
	BasePath string `json:"base_path" mapstructure:"base_path"`
}

// FileSource reads reference tables from a directory
type FileSource struct {
	config *FileSourceConfig
	logger *logrus.Logger
	mu     sync.RWMutex
	closed bool
}

var _ interfaces.ReferencePublisher = (*FileSource)(nil)

// NewFileSource creates a new file source
func NewFileSource(config *FileSourceConfig, logger *logrus.Logger) (*FileSource, error) {
	if config == nil {
		return nil, errors.NewConfigurationError(errors.CodeInvalidSource, "FileSourceConfig cannot be nil")
	}

	if config.BasePath == "" {
		return nil, errors.NewConfigurationError(errors.CodeInvalidSource, "BasePath is required")
	}

	if logger == nil {
		logger = logrus.New()
	}

	info, err := os.Stat(config.BasePath)
	if err != nil {
		return nil, errors.WrapStorageError(err, errors.CodeObjectNotFound,
			fmt.Sprintf("Base path does not exist: %s", config.BasePath))
	}
	if !info.IsDir() {
		return nil, errors.NewConfigurationError(errors.CodeInvalidSource,
			fmt.Sprintf("Base path is not a directory: %s", config.BasePath))
	}

	return &FileSource{
		config: config,
		logger: logger,
	}, nil
}

// Open opens a table below the base path. Names ending in .gz are decompressed.
func (fs *FileSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.closed {
		return nil, errors.WrapStorageError(errors.ErrSourceClosed, errors.CodeNotConnected, "file source closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := fs.resolve(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapStorageError(errors.ErrSourceNotFound, errors.CodeObjectNotFound,
				fmt.Sprintf("Table '%s' not found", name)).WithContext("path", path)
		}
		return nil, errors.WrapStorageError(err, errors.CodeReadFailed, fmt.Sprintf("Failed to open '%s'", path))
	}

	fs.logger.WithFields(logrus.Fields{
		"path": path,
	}).Debug("Opened reference table")

	rc, err := encoding.DecompressReader(name, f)
	if err != nil {
		return nil, errors.WrapStorageError(err, errors.CodeReadFailed, fmt.Sprintf("Failed to decompress '%s'", path))
	}
	return rc, nil
}

// Put writes a table below the base path, replacing any previous version
func (fs *FileSource) Put(ctx context.Context, name string, body io.Reader) error {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.closed {
		return errors.WrapStorageError(errors.ErrSourceClosed, errors.CodeNotConnected, "file source closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := fs.resolve(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapStorageError(err, errors.CodeConnectionFailed, "Failed to create table directory")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return errors.WrapStorageError(err, errors.CodeConnectionFailed, "Failed to create temporary file")
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.WrapStorageError(err, errors.CodeConnectionFailed, fmt.Sprintf("Failed to write '%s'", path))
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.WrapStorageError(err, errors.CodeConnectionFailed, fmt.Sprintf("Failed to replace '%s'", path))
	}

	fs.logger.WithFields(logrus.Fields{
		"path": path,
		"size": size,
	}).Info("Published reference table")
	return nil
}

// resolve keeps names inside the base path
func (fs *FileSource) resolve(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.NewConfigurationError(errors.CodeInvalidSource,
			fmt.Sprintf("table name '%s' escapes the base path", name))
	}
	return filepath.Join(fs.config.BasePath, clean), nil
}

// Close marks the source closed
func (fs *FileSource) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.closed = true
	return nil
}
