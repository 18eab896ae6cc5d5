// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package storage moves artifacts to and from the distribution store: S3 for
// publishing, the public HTTP channel for nodes fetching releases, and the
// local filesystem for tests and air-gapped setups.
package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Provider represents a storage provider type.
type Provider string

const (
	ProviderS3    Provider = "s3"
	ProviderHTTP  Provider = "http"
	ProviderLocal Provider = "local"

	// ACLPublicRead makes an uploaded object readable from the HTTP channel.
	ACLPublicRead = "public-read"
)

var (
	ErrNotFound = errors.New("object not found")
	ErrReadOnly = errors.New("storage is read-only")
)

// UploadOptions configures upload behavior.
type UploadOptions struct {
	// ContentType for the uploaded object
	ContentType string
	// ACL (e.g., "private", "public-read")
	ACL string
	// ProgressFunc reports upload progress
	ProgressFunc func(bytesUploaded, totalBytes int64)
}

// DownloadOptions configures download behavior.
type DownloadOptions struct {
	// ProgressFunc reports download progress. totalBytes is -1 when unknown.
	ProgressFunc func(bytesDownloaded, totalBytes int64)
}

// Storage defines the artifact store operations hydra uses.
type Storage interface {
	// Upload uploads data from a reader to the storage.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, opts *UploadOptions) error

	// UploadFile uploads a local file to storage.
	UploadFile(ctx context.Context, key string, localPath string, opts *UploadOptions) error

	// Download downloads data from storage to a writer.
	Download(ctx context.Context, key string, writer io.Writer, opts *DownloadOptions) error

	// DownloadFile downloads from storage to a local file.
	DownloadFile(ctx context.Context, key string, localPath string, opts *DownloadOptions) error

	// Exists checks if an object exists.
	Exists(ctx context.Context, key string) (bool, error)

	// Provider returns the storage provider type.
	Provider() Provider

	// Bucket returns the bucket, base URL or base path.
	Bucket() string

	// Close releases any resources.
	Close() error
}

// Config holds configuration for storage backends.
type Config struct {
	Provider Provider
	Bucket   string
	Region   string
	Endpoint string // Custom endpoint for S3-compatible stores (MinIO, R2, etc.)

	// AWS-specific
	AWSProfile       string
	AWSAccessKey     string
	AWSSecretKey     string
	AWSSessionToken  string
	AWSAssumeRoleARN string

	// HTTP-specific
	BaseURL string

	// Local-specific
	LocalBasePath string

	// Common options
	PathStyle  bool // Use path-style URLs (for MinIO, etc.)
	MaxRetries int
	Timeout    time.Duration
}

// New creates a new Storage instance based on the config.
func New(ctx context.Context, cfg *Config) (Storage, error) {
	switch cfg.Provider {
	case ProviderS3:
		return NewS3Storage(ctx, cfg)
	case ProviderHTTP:
		return NewHTTPStorage(cfg)
	case ProviderLocal:
		return NewLocalStorage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Provider)
	}
}

// ParseURI parses a storage URI and returns config.
// Supported formats:
//   - s3://bucket/path
//   - https://host/path (read-only channel)
//   - file:///local/path
func ParseURI(uri string) (*Config, string, error) {
	if strings.HasPrefix(uri, "s3://") {
		parts := strings.SplitN(strings.TrimPrefix(uri, "s3://"), "/", 2)
		bucket := parts[0]
		key := ""
		if len(parts) > 1 {
			key = parts[1]
		}
		return &Config{Provider: ProviderS3, Bucket: bucket}, key, nil
	}

	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return &Config{Provider: ProviderHTTP, BaseURL: strings.TrimRight(uri, "/")}, "", nil
	}

	if strings.HasPrefix(uri, "file://") {
		path := strings.TrimPrefix(uri, "file://")
		dir := filepath.Dir(path)
		key := filepath.Base(path)
		return &Config{Provider: ProviderLocal, LocalBasePath: dir}, key, nil
	}

	return nil, "", fmt.Errorf("unsupported URI scheme: %s", uri)
}

// JoinKey joins key segments with forward slashes regardless of platform.
func JoinKey(parts ...string) string {
	var kept []string
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}

// Fetch reads a whole (small) object into memory.
func Fetch(ctx context.Context, s Storage, key string) ([]byte, error) {
	var b bytes.Buffer
	if err := s.Download(ctx, key, &b, nil); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// ComputeChecksum calculates SHA256 checksum of a file.
func ComputeChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// progressReader wraps a reader to report progress.
type progressReader struct {
	reader       io.Reader
	total        int64
	read         int64
	progressFunc func(bytesRead, totalBytes int64)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.read += int64(n)
	if pr.progressFunc != nil {
		pr.progressFunc(pr.read, pr.total)
	}
	return n, err
}
