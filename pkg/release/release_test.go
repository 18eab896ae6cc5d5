// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package release

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/luxfi/hydra/pkg/cloud/storage"
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	require.Equal(t, "latest/shipchain", Key("", "shipchain"))
	require.Equal(t, "latest/shipchain", Key("latest", "shipchain"))
	require.Equal(t, "archive/v1.2.3/tgoracle", Key("v1.2.3", "tgoracle"))
}

func TestCleanVersion(t *testing.T) {
	v, err := CleanVersion("1.2.3")
	require.NoError(t, err)
	require.Equal(t, "v1.2.3", v)

	v, err = CleanVersion("build-1042\n")
	require.NoError(t, err)
	require.Equal(t, "build-1042", v)

	_, err = CleanVersion("../x")
	require.Error(t, err)
	_, err = CleanVersion("")
	require.Error(t, err)
}

func TestMakeDistAndUpload(t *testing.T) {
	require := require.New(t)
	build := filepath.Join(t.TempDir(), "shipchain")
	require.NoError(os.WriteFile(build, []byte("#!/bin/true\n"), 0o755))
	distDir := filepath.Join(t.TempDir(), "dist")

	m, err := MakeDist(build, distDir, "v2.1.0", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(err)
	require.Equal(&Manifest{
		Version:  "v2.1.0",
		Released: "Wed May  1 12:00:00 2024",
		Files:    []string{"./shipchain", "./manifest.json"},
	}, m)
	info, err := os.Stat(filepath.Join(distDir, "shipchain"))
	require.NoError(err)
	require.NotZero(info.Mode() & 0o100)

	base := t.TempDir()
	store, err := storage.NewLocalStorage(&storage.Config{LocalBasePath: base})
	require.NoError(err)
	keys, err := NewUploader(store, ux.New(nil, io.Discard), nil).Upload(context.Background(), distDir)
	require.NoError(err)
	require.ElementsMatch([]string{
		"archive/v2.1.0/manifest.json", "latest/manifest.json",
		"archive/v2.1.0/shipchain", "latest/shipchain",
	}, keys)

	data, err := storage.Fetch(context.Background(), store, "latest/shipchain")
	require.NoError(err)
	require.Equal("#!/bin/true\n", string(data))
}

func TestUploadWithoutDist(t *testing.T) {
	store, err := storage.NewLocalStorage(&storage.Config{LocalBasePath: t.TempDir()})
	require.NoError(t, err)
	_, err = NewUploader(store, ux.New(nil, io.Discard), nil).Upload(context.Background(), t.TempDir())
	require.ErrorIs(t, err, ErrNoDist)
}
