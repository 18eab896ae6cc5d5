// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package snapshot

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/luxfi/hydra/pkg/cloud/storage"
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func tarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func newStore(t *testing.T) storage.Storage {
	t.Helper()
	s, err := storage.NewLocalStorage(&storage.Config{Provider: storage.ProviderLocal, LocalBasePath: t.TempDir()})
	require.NoError(t, err)
	return s
}

func put(t *testing.T, s storage.Storage, key string, data []byte) {
	t.Helper()
	require.NoError(t, s.Upload(context.Background(), key, bytes.NewReader(data), int64(len(data)), nil))
}

func newJumpstarter(s storage.Storage) *Jumpstarter {
	return NewJumpstarter(s, ux.New(nil, io.Discard), nil, io.Discard)
}

// nodeFixture lays out a node directory with stale chain data and files a
// jumpstart must never touch.
func nodeFixture(t *testing.T) string {
	dir := filepath.Join(t.TempDir(), "alpha")
	writeFile(t, filepath.Join(dir, "app.db", "OLD"), "stale")
	writeFile(t, filepath.Join(dir, "receipts_db", "OLD"), "stale")
	writeFile(t, filepath.Join(dir, "chaindata", "data", "blockstore.db", "OLD"), "stale")
	writeFile(t, filepath.Join(dir, "chaindata", "config", "priv_validator.json"), "sentinel-key")
	writeFile(t, filepath.Join(dir, "loom.yaml"), "sentinel-yaml")
	writeFile(t, filepath.Join(dir, ".bootstrap.json"), "sentinel-bootstrap")
	writeFile(t, filepath.Join(dir, "app.dbx", "keep"), "sentinel-prefix")
	return dir
}

func TestApplyKeepsSentinels(t *testing.T) {
	require := require.New(t)
	store := newStore(t)
	put(t, store, "jumpstart/alpha/jumps.json", []byte(`{"120000": "alpha-120000.tar.gz"}`))
	put(t, store, "jumpstart/alpha/alpha-120000.tar.gz", tarGz(t, map[string]string{
		"app.db/CURRENT":                   "new-app",
		"chaindata/data/blockstore.db/NEW": "new-blocks",
		"chaindata/data/state.db/MANIFEST": "new-state",
	}))
	dir := nodeFixture(t)

	require.NoError(newJumpstarter(store).Apply(context.Background(), "alpha", dir, "120000"))

	require.Equal("new-app", readFile(t, filepath.Join(dir, "app.db", "CURRENT")))
	require.Equal("new-blocks", readFile(t, filepath.Join(dir, "chaindata", "data", "blockstore.db", "NEW")))
	require.NoFileExists(filepath.Join(dir, "app.db", "OLD"))
	require.NoFileExists(filepath.Join(dir, "chaindata", "data", "blockstore.db", "OLD"))
	require.NoDirExists(filepath.Join(dir, "receipts_db"))
	require.NoFileExists(filepath.Join(dir, "alpha-120000.tar.gz"))

	require.Equal("sentinel-key", readFile(t, filepath.Join(dir, "chaindata", "config", "priv_validator.json")))
	require.Equal("sentinel-yaml", readFile(t, filepath.Join(dir, "loom.yaml")))
	require.Equal("sentinel-bootstrap", readFile(t, filepath.Join(dir, ".bootstrap.json")))
	require.Equal("sentinel-prefix", readFile(t, filepath.Join(dir, "app.dbx", "keep")))
}

func TestApplyUnknownLabel(t *testing.T) {
	store := newStore(t)
	put(t, store, "jumpstart/alpha/jumps.json", []byte(`{"120000": "alpha-120000.tar.gz", "90000": "alpha-90000.tar.gz"}`))
	dir := nodeFixture(t)

	err := newJumpstarter(store).Apply(context.Background(), "alpha", dir, "latest")
	require.ErrorIs(t, err, ErrLabelNotFound)
	require.ErrorContains(t, err, "120000, 90000")
	require.FileExists(t, filepath.Join(dir, "app.db", "OLD"))
}

func TestApplyWithoutIndexIsSkipped(t *testing.T) {
	dir := nodeFixture(t)
	require.NoError(t, newJumpstarter(newStore(t)).Apply(context.Background(), "alpha", dir, "120000"))
	require.FileExists(t, filepath.Join(dir, "app.db", "OLD"))
}

func TestExtractRefusesTraversal(t *testing.T) {
	dest := t.TempDir()
	data := tarGz(t, map[string]string{"../escape": "x"})
	_, err := Extract(bytes.NewReader(data), "evil.tar.gz", dest, nil)
	require.ErrorIs(t, err, ErrUnsafeArchive)
	require.NoFileExists(t, filepath.Join(filepath.Dir(dest), "escape"))
}

func TestExtractUnknownFormat(t *testing.T) {
	_, err := Extract(bytes.NewReader(nil), "snapshot.rar", t.TempDir(), nil)
	require.ErrorIs(t, err, ErrUnknownArchive)
}

func TestRemoveDataDirsRejectsEscape(t *testing.T) {
	_, err := RemoveDataDirs(t.TempDir(), []string{"../other"})
	require.ErrorIs(t, err, ErrUnsafeArchive)
	_, err = RemoveDataDirs(t.TempDir(), []string{"."})
	require.ErrorIs(t, err, ErrUnsafeArchive)
}

func TestPublishThenApply(t *testing.T) {
	for _, c := range []Compression{Gzip, Zstd} {
		t.Run(string(c), func(t *testing.T) {
			require := require.New(t)
			store := newStore(t)
			put(t, store, "jumpstart/alpha/jumps.json", []byte(`{"1": "alpha-1.tar.gz"}`))

			src := nodeFixture(t)
			writeFile(t, filepath.Join(src, "app.db", "CURRENT"), "published")
			archive, err := newJumpstarter(store).Publish(context.Background(), "alpha", src, "500", c)
			require.NoError(err)
			require.Equal("alpha-500"+c.Ext(), archive)

			idx, err := FetchIndex(context.Background(), store, "alpha")
			require.NoError(err)
			require.Equal(Index{"1": "alpha-1.tar.gz", "500": archive}, idx)

			dst := filepath.Join(t.TempDir(), "alpha")
			writeFile(t, filepath.Join(dst, "loom.yaml"), "mine")
			require.NoError(newJumpstarter(store).Apply(context.Background(), "alpha", dst, "500"))
			require.Equal("published", readFile(t, filepath.Join(dst, "app.db", "CURRENT")))
			require.Equal("stale", readFile(t, filepath.Join(dst, "receipts_db", "OLD")))
			require.Equal("mine", readFile(t, filepath.Join(dst, "loom.yaml")))
			require.NoFileExists(filepath.Join(dst, "chaindata", "config", "priv_validator.json"))
		})
	}
}

func TestFormatBytes(t *testing.T) {
	require.Equal(t, "512 B", FormatBytes(512))
	require.Equal(t, "1.5 KB", FormatBytes(1536))
	require.Equal(t, "2.0 GB", FormatBytes(2*1024*1024*1024))
}
