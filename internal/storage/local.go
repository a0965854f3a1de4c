package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage stores objects as files under a base directory.
// Writes go to a temporary file first and are renamed into place, so a
// reader never sees a partial thumbnail or archive.
type LocalStorage struct {
	basePath string
	logger   *slog.Logger
}

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(cfg LocalConfig, logger *slog.Logger) (*LocalStorage, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("local storage: base path is required")
	}
	absPath, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("resolve base path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	logger.Info("initialized local storage", "base_path", absPath)

	return &LocalStorage{basePath: absPath, logger: logger}, nil
}

func (s *LocalStorage) Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.resolvePath(key)
	if err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}
	if !opts.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return &StorageError{Op: "put", Key: key, Err: ErrKeyExists}
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &StorageError{Op: "put", Key: key, Err: fmt.Errorf("create directory: %w", err)}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return &StorageError{Op: "put", Key: key, Err: fmt.Errorf("create temp file: %w", err)}
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	src := data
	if opts.MaxSize > 0 {
		src = io.LimitReader(data, opts.MaxSize+1)
	}
	written, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return &StorageError{Op: "put", Key: key, Err: fmt.Errorf("write file: %w", err)}
	}
	if opts.MaxSize > 0 && written > opts.MaxSize {
		return &StorageError{Op: "put", Key: key, Err: ErrTooLarge}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &StorageError{Op: "put", Key: key, Err: fmt.Errorf("rename into place: %w", err)}
	}

	s.logger.Debug("stored object",
		"key", key,
		"size", written,
		"content_type", DetectContentType(opts.ContentType, key),
	)
	return nil
}

func (s *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}
	path, err := s.resolvePath(key)
	if err != nil {
		return nil, ObjectInfo{}, &StorageError{Op: "get", Key: key, Err: err}
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ObjectInfo{}, &StorageError{Op: "get", Key: key, Err: ErrNotFound}
		}
		return nil, ObjectInfo{}, &StorageError{Op: "get", Key: key, Err: err}
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, ObjectInfo{}, &StorageError{Op: "get", Key: key, Err: err}
	}

	return file, ObjectInfo{
		Key:          key,
		Size:         stat.Size(),
		ContentType:  DetectContentType("", key),
		LastModified: stat.ModTime(),
	}, nil
}

func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := s.resolvePath(key)
	if err != nil {
		return false, &StorageError{Op: "exists", Key: key, Err: err}
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &StorageError{Op: "exists", Key: key, Err: err}
	}
	return true, nil
}

// resolvePath maps a key to a file under the base directory.
func (s *LocalStorage) resolvePath(key string) (string, error) {
	if !validKey(key) {
		return "", ErrInvalidKey
	}
	full := filepath.Join(s.basePath, filepath.FromSlash(key))
	if !strings.HasPrefix(full, s.basePath+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return full, nil
}
