// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cavaliergopher/grab/v3"
)

const grabPollInterval = 250 * time.Millisecond

// HTTPStorage reads objects from a public distribution channel. Large files
// go through grab so interrupted downloads resume. It cannot write.
type HTTPStorage struct {
	baseURL string
	client  *http.Client
	grab    *grab.Client
}

func NewHTTPStorage(cfg *Config) (*HTTPStorage, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("http storage requires a base URL")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	g := grab.NewClient()
	g.UserAgent = "hydra"
	return &HTTPStorage{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		grab:    g,
	}, nil
}

// URL returns the public URL of key.
func (h *HTTPStorage) URL(key string) string {
	return h.baseURL + "/" + strings.TrimLeft(key, "/")
}

func (*HTTPStorage) Upload(context.Context, string, io.Reader, int64, *UploadOptions) error {
	return ErrReadOnly
}

func (*HTTPStorage) UploadFile(context.Context, string, string, *UploadOptions) error {
	return ErrReadOnly
}

func statusError(url string, code int) error {
	if code == http.StatusNotFound || code == http.StatusForbidden {
		// S3 public buckets answer 403 for missing keys when listing is off
		return fmt.Errorf("%w: %s (%d)", ErrNotFound, url, code)
	}
	return fmt.Errorf("GET %s: unexpected status %d", url, code)
}

// Download streams a small object into writer.
func (h *HTTPStorage) Download(ctx context.Context, key string, writer io.Writer, opts *DownloadOptions) error {
	url := h.URL(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(url, resp.StatusCode)
	}
	var reader io.Reader = resp.Body
	if opts != nil && opts.ProgressFunc != nil {
		reader = &progressReader{reader: resp.Body, total: resp.ContentLength, progressFunc: opts.ProgressFunc}
	}
	_, err = io.Copy(writer, reader)
	return err
}

// DownloadFile fetches key into localPath with grab, reporting progress
// while the transfer runs.
func (h *HTTPStorage) DownloadFile(ctx context.Context, key string, localPath string, opts *DownloadOptions) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	url := h.URL(key)
	req, err := grab.NewRequest(localPath, url)
	if err != nil {
		return err
	}
	req = req.WithContext(ctx)

	resp := h.grab.Do(req)
	ticker := time.NewTicker(grabPollInterval)
	defer ticker.Stop()

Loop:
	for {
		select {
		case <-ticker.C:
			if opts != nil && opts.ProgressFunc != nil {
				opts.ProgressFunc(resp.BytesComplete(), resp.Size())
			}
		case <-resp.Done:
			break Loop
		}
	}

	if err := resp.Err(); err != nil {
		var code grab.StatusCodeError
		if errors.As(err, &code) {
			return statusError(url, int(code))
		}
		return fmt.Errorf("GET %s: %w", url, err)
	}
	if opts != nil && opts.ProgressFunc != nil {
		opts.ProgressFunc(resp.BytesComplete(), resp.Size())
	}
	return nil
}

// Exists issues a HEAD request for key.
func (h *HTTPStorage) Exists(ctx context.Context, key string) (bool, error) {
	url := h.URL(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("HEAD %s: %w", url, err)
	}
	resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case errors.Is(statusError(url, resp.StatusCode), ErrNotFound):
		return false, nil
	default:
		return false, statusError(url, resp.StatusCode)
	}
}

func (*HTTPStorage) Provider() Provider {
	return ProviderHTTP
}

func (h *HTTPStorage) Bucket() string {
	return h.baseURL
}

func (*HTTPStorage) Close() error {
	return nil
}
