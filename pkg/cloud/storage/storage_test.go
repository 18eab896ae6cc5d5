// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		name         string
		uri          string
		wantProvider Provider
		wantBucket   string
		wantBasePath string
		wantBaseURL  string
		wantKey      string
		wantErr      bool
	}{
		{
			name:         "s3 uri",
			uri:          "s3://shipchain-network-dist/networks/alpha",
			wantProvider: ProviderS3,
			wantBucket:   "shipchain-network-dist",
			wantKey:      "networks/alpha",
		},
		{
			name:         "s3 uri bucket only",
			uri:          "s3://my-bucket",
			wantProvider: ProviderS3,
			wantBucket:   "my-bucket",
		},
		{
			name:         "https channel",
			uri:          "https://dist.example.com/",
			wantProvider: ProviderHTTP,
			wantBaseURL:  "https://dist.example.com",
		},
		{
			name:         "file uri",
			uri:          "file:///var/dist/jumps.json",
			wantProvider: ProviderLocal,
			wantBasePath: "/var/dist",
			wantKey:      "jumps.json",
		},
		{
			name:    "unsupported scheme",
			uri:     "gs://bucket/key",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, key, err := ParseURI(tt.uri)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseURI() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseURI() unexpected error: %v", err)
			}
			if cfg.Provider != tt.wantProvider {
				t.Errorf("ParseURI() provider = %v, want %v", cfg.Provider, tt.wantProvider)
			}
			if cfg.Bucket != tt.wantBucket {
				t.Errorf("ParseURI() bucket = %v, want %v", cfg.Bucket, tt.wantBucket)
			}
			if cfg.LocalBasePath != tt.wantBasePath {
				t.Errorf("ParseURI() basePath = %v, want %v", cfg.LocalBasePath, tt.wantBasePath)
			}
			if cfg.BaseURL != tt.wantBaseURL {
				t.Errorf("ParseURI() baseURL = %v, want %v", cfg.BaseURL, tt.wantBaseURL)
			}
			if key != tt.wantKey {
				t.Errorf("ParseURI() key = %v, want %v", key, tt.wantKey)
			}
		})
	}
}

func TestJoinKey(t *testing.T) {
	require.Equal(t, "archive/v1.2.0/shipchain", JoinKey("archive", "/v1.2.0/", "shipchain"))
	require.Equal(t, "jumps.json", JoinKey("", "jumps.json"))
}

func TestLocalStorage(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	store, err := NewLocalStorage(&Config{Provider: ProviderLocal, LocalBasePath: tmpDir})
	require.NoError(t, err)
	defer store.Close()

	t.Run("Provider", func(t *testing.T) {
		if got := store.Provider(); got != ProviderLocal {
			t.Errorf("Provider() = %v, want %v", got, ProviderLocal)
		}
	})

	t.Run("Upload and Fetch", func(t *testing.T) {
		key := "networks/alpha/hydra.json"
		require.NoError(t, store.Upload(ctx, key, strings.NewReader(`{"name":"alpha"}`), 16, nil))

		exists, err := store.Exists(ctx, key)
		require.NoError(t, err)
		require.True(t, exists)

		data, err := Fetch(ctx, store, key)
		require.NoError(t, err)
		require.Equal(t, `{"name":"alpha"}`, string(data))
	})

	t.Run("Missing key", func(t *testing.T) {
		_, err := Fetch(ctx, store, "nope.json")
		require.ErrorIs(t, err, ErrNotFound)

		err = store.DownloadFile(ctx, "nope.json", filepath.Join(t.TempDir(), "out"), nil)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Key escaping base path", func(t *testing.T) {
		err := store.Upload(ctx, "../outside", strings.NewReader("x"), 1, nil)
		require.Error(t, err)
		_, statErr := os.Stat(filepath.Join(filepath.Dir(tmpDir), "outside"))
		require.True(t, os.IsNotExist(statErr))
	})

	t.Run("UploadFile reports progress", func(t *testing.T) {
		src := filepath.Join(t.TempDir(), "payload")
		require.NoError(t, os.WriteFile(src, []byte("0123456789"), 0o644))
		var last int64
		err := store.UploadFile(ctx, "payload", src, &UploadOptions{
			ProgressFunc: func(done, total int64) {
				last = done
				require.Equal(t, int64(10), total)
			},
		})
		require.NoError(t, err)
		require.Equal(t, int64(10), last)

		exists, err := store.Exists(ctx, "payload")
		require.NoError(t, err)
		require.True(t, exists)
	})
}

func channelServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/jumpstart/jumps.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"100":"alpha-100.tar.gz"}`))
	})
	mux.HandleFunc("/latest/shipchain", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("#!/bin/sh\necho shipchain\n"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPStorage(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	srv := channelServer(t)

	store, err := New(ctx, &Config{Provider: ProviderHTTP, BaseURL: srv.URL + "/"})
	require.NoError(err)
	require.Equal(ProviderHTTP, store.Provider())

	data, err := Fetch(ctx, store, "jumpstart/jumps.json")
	require.NoError(err)
	require.JSONEq(`{"100":"alpha-100.tar.gz"}`, string(data))

	ok, err := store.Exists(ctx, "latest/shipchain")
	require.NoError(err)
	require.True(ok)
	ok, err = store.Exists(ctx, "latest/missing")
	require.NoError(err)
	require.False(ok)

	dst := filepath.Join(t.TempDir(), "bin", "shipchain")
	require.NoError(store.DownloadFile(ctx, "latest/shipchain", dst, nil))
	body, err := os.ReadFile(dst)
	require.NoError(err)
	require.Contains(string(body), "echo shipchain")

	err = store.DownloadFile(ctx, "latest/missing", filepath.Join(t.TempDir(), "x"), nil)
	require.ErrorIs(err, ErrNotFound)

	_, err = Fetch(ctx, store, "networks/ghost/hydra.json")
	require.ErrorIs(err, ErrNotFound)

	require.True(errors.Is(store.Upload(ctx, "k", strings.NewReader(""), 0, nil), ErrReadOnly))
}

func TestComputeChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("hydra"), 0o644))
	sum, err := ComputeChecksum(path)
	require.NoError(t, err)
	require.Len(t, sum, 64)
}
