// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/luxfi/hydra/pkg/models"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, hooks ...Hook) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "networks.json"), nil, hooks...)
}

func readyRecord(name string, addrs ...string) *models.NetworkRecord {
	rec := models.NewNetworkRecord(name, len(addrs), created)
	rec.Status = models.StatusReady
	rec.Addresses = addrs
	for i, a := range addrs {
		rec.Outputs[fmt.Sprintf("IP%d", i)] = a
	}
	return rec
}

type recordingHook struct {
	mu      sync.Mutex
	changes [][2]*models.NetworkRecord
}

func (h *recordingHook) RecordChanged(prev, next *models.NetworkRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.changes = append(h.changes, [2]*models.NetworkRecord{prev, next})
}

func TestReadMissingIsEmpty(t *testing.T) {
	s := newTestStore(t)
	require.Empty(t, s.Read())
	_, err := s.Get("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReadCorruptIsEmpty(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t)
	require.NoError(os.WriteFile(s.Path(), []byte("{not json"), 0o644))

	require.Empty(s.Read())

	// a write after corruption keeps the broken file aside
	require.NoError(s.Write(readyRecord("alpha", "10.0.0.1")))
	aside, err := os.ReadFile(s.Path() + ".corrupt")
	require.NoError(err)
	require.Equal("{not json", string(aside))
	require.Len(s.Read(), 1)
}

func TestWriteSurvivesRestart(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t)

	rec := readyRecord("alpha", "10.0.0.1", "10.0.0.2")
	rec.NodeData["10.0.0.2"] = models.BootstrapRecord{PublicKey: "pk", NodeKey: "nk", HexAddress: "0x01", Base64Address: "AQ=="}
	require.NoError(s.Write(rec))

	restarted := New(s.Path(), nil)
	got, err := restarted.Get("alpha")
	require.NoError(err)
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Fatalf("record changed across restart (-want +got):\n%s", diff)
	}
}

func TestWriteReplacesWithoutMerge(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t)

	first := readyRecord("alpha", "10.0.0.1")
	first.Outputs["ID0"] = "i-123"
	first.NodeData["10.0.0.1"] = models.BootstrapRecord{NodeKey: "nk"}
	require.NoError(s.Write(first))

	second := models.NewNetworkRecord("alpha", 2, created)
	require.NoError(s.Write(second))

	got, err := s.Get("alpha")
	require.NoError(err)
	require.Equal(models.StatusProvisioning, got.Status)
	require.Empty(got.Outputs)
	require.Empty(got.NodeData)
	require.Empty(got.Addresses)
	require.Equal(2, got.Size)
}

func TestRemove(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t)

	require.NoError(s.Write(readyRecord("alpha", "10.0.0.1")))
	require.NoError(s.Write(readyRecord("beta", "10.0.0.2")))
	require.NoError(s.Remove("alpha"))
	require.NoError(s.Remove("never-registered"))

	require.Equal([]string{"beta"}, s.Names())
}

func TestInvalidEntriesAreSkippedButKept(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t)
	require.NoError(os.WriteFile(s.Path(), []byte(`{"broken": {"name": "broken", "status": "Ready", "size": 3, "ips": []}}`), 0o644))

	require.Empty(s.Read())
	require.NoError(s.Write(readyRecord("alpha", "10.0.0.1")))

	data, err := os.ReadFile(s.Path())
	require.NoError(err)
	require.Contains(string(data), `"broken"`)
	require.Equal([]string{"alpha"}, s.Names())
}

func TestConcurrentWritesAreSerialized(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Write(readyRecord(fmt.Sprintf("net-%02d", i), fmt.Sprintf("10.0.0.%d", i)))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(err)
	}
	require.Len(s.Read(), 20)
}

func TestHooksSeeTransitions(t *testing.T) {
	require := require.New(t)
	hook := &recordingHook{}
	s := newTestStore(t, hook)

	rec := models.NewNetworkRecord("alpha", 1, created)
	require.NoError(s.Write(rec))
	rec.Status = models.StatusReady
	rec.Addresses = []string{"10.0.0.1"}
	require.NoError(s.Write(rec))
	require.NoError(s.Remove("alpha"))

	require.Len(hook.changes, 3)
	require.Nil(hook.changes[0][0])
	require.Equal(models.StatusProvisioning, hook.changes[0][1].Status)
	require.Equal(models.StatusProvisioning, hook.changes[1][0].Status)
	require.Equal(models.StatusReady, hook.changes[1][1].Status)
	require.Nil(hook.changes[2][1])
}
