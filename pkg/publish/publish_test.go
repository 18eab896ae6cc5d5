// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package publish

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/luxfi/hydra/pkg/cloud/storage"
	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/models"
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/stretchr/testify/require"
)

func readyRecord(t *testing.T) *models.NetworkRecord {
	t.Helper()
	rec := models.NewNetworkRecord("alpha", 2, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, rec.SetAddresses([]string{"10.0.0.1", "10.0.0.2"}))
	require.NoError(t, rec.Transition(models.StatusReady))
	rec.NodeData["10.0.0.1"] = models.BootstrapRecord{
		PublicKey:     "pub1",
		NodeKey:       "nk1",
		HexAddress:    "0xaabb",
		Base64Address: "qrs=",
	}
	return rec
}

func writeConfig(t *testing.T, dir string) {
	t.Helper()
	for _, rel := range Files {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("content of "+rel), 0o644))
	}
}

func newStore(t *testing.T) storage.Storage {
	t.Helper()
	s, err := storage.NewLocalStorage(&storage.Config{LocalBasePath: t.TempDir()})
	require.NoError(t, err)
	return s
}

func TestPublishRoundTrip(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	store := newStore(t)
	networkDir := t.TempDir()
	writeConfig(t, networkDir)
	rec := readyRecord(t)

	keys, err := NewPublisher(store, ux.New(nil, io.Discard), nil).Publish(ctx, rec, networkDir)
	require.NoError(err)
	require.Equal([]string{
		"networks/alpha/hydra.json",
		"networks/alpha/chaindata/config/genesis.json",
		"networks/alpha/loom.yaml",
		"networks/alpha/genesis.json",
	}, keys)

	got, err := FetchRecord(ctx, store, "alpha")
	require.NoError(err)
	require.Empty(cmp.Diff(rec, got))

	files, err := FetchFiles(ctx, store, "alpha")
	require.NoError(err)
	require.Len(files, 3)
	require.Equal("content of "+constants.ChainConfigFileName, string(files[constants.ChainConfigFileName]))
}

func TestPublishRequiresConfiguration(t *testing.T) {
	store := newStore(t)
	networkDir := t.TempDir()
	writeConfig(t, networkDir)
	require.NoError(t, os.Remove(filepath.Join(networkDir, constants.AppGenesisFileName)))

	_, err := NewPublisher(store, ux.New(nil, io.Discard), nil).Publish(context.Background(), readyRecord(t), networkDir)
	require.ErrorIs(t, err, ErrNotConfigured)

	ok, err := store.Exists(context.Background(), RecordKey("alpha"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPublishRequiresBootstrappedNodes(t *testing.T) {
	rec := readyRecord(t)
	rec.NodeData = map[string]models.BootstrapRecord{}
	_, err := NewPublisher(newStore(t), ux.New(nil, io.Discard), nil).Publish(context.Background(), rec, t.TempDir())
	require.ErrorContains(t, err, "no bootstrapped nodes")
}

func TestFetchFilesMissing(t *testing.T) {
	_, err := FetchFiles(context.Background(), newStore(t), "alpha")
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.ErrorContains(t, err, "chaindata/config/genesis.json")
}

func TestPublishTwiceReplaces(t *testing.T) {
	require := require.New(t)
	store := newStore(t)
	networkDir := t.TempDir()
	writeConfig(t, networkDir)
	var out bytes.Buffer
	p := NewPublisher(store, ux.New(nil, &out), nil)

	_, err := p.Publish(context.Background(), readyRecord(t), networkDir)
	require.NoError(err)
	require.NotContains(out.String(), "Replacing")

	rec := readyRecord(t)
	rec.Version = "build-2"
	_, err = p.Publish(context.Background(), rec, networkDir)
	require.NoError(err)
	require.Contains(out.String(), "Replacing the published configuration of network alpha")

	got, err := FetchRecord(context.Background(), store, "alpha")
	require.NoError(err)
	require.Equal("build-2", got.Version)
}
