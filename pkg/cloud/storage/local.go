// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage implements Storage for local filesystem.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local filesystem storage backend.
func NewLocalStorage(cfg *Config) (*LocalStorage, error) {
	if cfg.LocalBasePath == "" {
		return nil, fmt.Errorf("local base path is required")
	}

	if err := os.MkdirAll(cfg.LocalBasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	return &LocalStorage{
		basePath: cfg.LocalBasePath,
	}, nil
}

// fullPath maps key under basePath, refusing keys that escape it.
func (l *LocalStorage) fullPath(key string) (string, error) {
	path := filepath.Join(l.basePath, filepath.FromSlash(key))
	rel, err := filepath.Rel(l.basePath, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes %s", key, l.basePath)
	}
	return path, nil
}

// Upload uploads data from a reader to local filesystem.
func (l *LocalStorage) Upload(_ context.Context, key string, reader io.Reader, size int64, opts *UploadOptions) error {
	path, err := l.fullPath(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if opts != nil && opts.ProgressFunc != nil {
		reader = &progressReader{
			reader:       reader,
			total:        size,
			progressFunc: opts.ProgressFunc,
		}
	}

	_, err = io.Copy(f, reader)
	return err
}

// UploadFile uploads a local file (copy).
func (l *LocalStorage) UploadFile(ctx context.Context, key string, localPath string, opts *UploadOptions) error {
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source file: %w", err)
	}

	return l.Upload(ctx, key, src, info.Size(), opts)
}

// Download downloads data to a writer.
func (l *LocalStorage) Download(_ context.Context, key string, writer io.Writer, opts *DownloadOptions) error {
	path, err := l.fullPath(key)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if opts != nil && opts.ProgressFunc != nil {
		total := int64(-1)
		if info, err := f.Stat(); err == nil {
			total = info.Size()
		}
		reader = &progressReader{reader: f, total: total, progressFunc: opts.ProgressFunc}
	}

	_, err = io.Copy(writer, reader)
	return err
}

// DownloadFile downloads to a local file (copy).
func (l *LocalStorage) DownloadFile(ctx context.Context, key string, localPath string, opts *DownloadOptions) error {
	if ok, err := l.Exists(ctx, key); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	return l.Download(ctx, key, dst, opts)
}

// Exists checks if a file exists.
func (l *LocalStorage) Exists(_ context.Context, key string) (bool, error) {
	path, err := l.fullPath(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Provider returns the storage provider type.
func (*LocalStorage) Provider() Provider {
	return ProviderLocal
}

// Bucket returns the base path.
func (l *LocalStorage) Bucket() string {
	return l.basePath
}

// Close releases any resources.
func (*LocalStorage) Close() error {
	return nil
}
