// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package bootstrap

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/luxfi/hydra/pkg/models"
	"github.com/luxfi/hydra/pkg/registry"
	"github.com/luxfi/hydra/pkg/ssh"
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/stretchr/testify/require"
)

type fakeNodes struct {
	mu      sync.Mutex
	records map[string]models.BootstrapRecord
	errs    map[string]error
	// readyAfter makes a node answer only from that attempt on
	readyAfter map[string]int
	calls      map[string]int
	commands   []string
}

func (f *fakeNodes) Run(_ context.Context, address string, cmd ssh.Command) (ssh.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[address]++
	f.commands = append(f.commands, cmd.String())
	if err := f.errs[address]; err != nil {
		return ssh.Result{}, err
	}
	if f.calls[address] < f.readyAfter[address] {
		return ssh.Result{}, &ssh.CommandError{Address: address, Command: cmd.String(), ExitStatus: 1, Stderr: "No such file or directory"}
	}
	rec, ok := f.records[address]
	if !ok {
		return ssh.Result{}, ssh.ErrUnreachable
	}
	data, _ := json.Marshal(rec)
	return ssh.Result{Stdout: string(data)}, nil
}

func (*fakeNodes) Copy(context.Context, string, string, string) error {
	return nil
}

func nodeRecord(i int) models.BootstrapRecord {
	raw := []byte{0xab, byte(i)}
	return models.BootstrapRecord{
		ValidatorAddress: fmt.Sprintf("VALADDR%d", i),
		HexAddress:       "0x" + hex.EncodeToString(raw),
		Base64Address:    base64.StdEncoding.EncodeToString(raw),
		PublicKey:        fmt.Sprintf("pub%d", i),
		NodeKey:          fmt.Sprintf("nodekey%d", i),
		SoftwareVersion:  "build-1",
	}
}

func readyNetwork(t *testing.T, addrs ...string) *registry.Store {
	t.Helper()
	store := registry.New(filepath.Join(t.TempDir(), "networks.json"), nil)
	rec := models.NewNetworkRecord("alpha", len(addrs), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rec.Status = models.StatusReady
	require.NoError(t, rec.SetAddresses(addrs))
	require.NoError(t, store.Write(rec))
	return store
}

func fastPolicy(parallelism int) Policy {
	return Policy{Attempts: 3, Interval: time.Millisecond, Parallelism: parallelism}
}

func newCollector(exec ssh.Executor, store *registry.Store, policy Policy) *Collector {
	return NewCollector(exec, store, ux.New(nil, io.Discard), nil, policy, io.Discard)
}

func TestCollectPartial(t *testing.T) {
	for _, parallelism := range []int{1, 3} {
		t.Run(fmt.Sprintf("parallelism=%d", parallelism), func(t *testing.T) {
			require := require.New(t)
			addrs := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}
			store := readyNetwork(t, addrs...)
			nodes := &fakeNodes{records: map[string]models.BootstrapRecord{
				"10.0.0.1": nodeRecord(1),
				"10.0.0.3": nodeRecord(3),
			}}

			outcome, err := newCollector(nodes, store, fastPolicy(parallelism)).Collect(context.Background(), "alpha")
			require.NoError(err)
			require.ElementsMatch([]string{"10.0.0.1", "10.0.0.3"}, outcome.Collected)
			require.Len(outcome.Failed, 1)
			require.Equal("10.0.0.2", outcome.Failed[0].Address)
			require.ErrorIs(outcome.Failed[0], ssh.ErrUnreachable)
			require.Equal(3, nodes.calls["10.0.0.2"])

			stored, err := store.Get("alpha")
			require.NoError(err)
			require.Equal(models.StatusBootstrapIncomplete, stored.Status)
			require.Len(stored.NodeData, 2)
			require.Equal(nodeRecord(3), stored.NodeData["10.0.0.3"])
			require.Equal([]string{"10.0.0.2"}, stored.Missing())
		})
	}
}

func TestCollectNoneFails(t *testing.T) {
	require := require.New(t)
	store := readyNetwork(t, "10.0.0.1", "10.0.0.2", "10.0.0.3")
	nodes := &fakeNodes{}

	_, err := newCollector(nodes, store, fastPolicy(2)).Collect(context.Background(), "alpha")
	require.ErrorIs(err, ErrBootstrapFailed)
	require.ErrorContains(err, "10.0.0.2")

	stored, err := store.Get("alpha")
	require.NoError(err)
	require.Equal(models.StatusBootstrapping, stored.Status)
	require.Empty(stored.NodeData)
}

func TestCollectRetriesUntilReady(t *testing.T) {
	require := require.New(t)
	store := readyNetwork(t, "10.0.0.1")
	nodes := &fakeNodes{
		records:    map[string]models.BootstrapRecord{"10.0.0.1": nodeRecord(1)},
		readyAfter: map[string]int{"10.0.0.1": 3},
	}

	outcome, err := newCollector(nodes, store, fastPolicy(1)).Collect(context.Background(), "alpha")
	require.NoError(err)
	require.Equal(3, nodes.calls["10.0.0.1"])
	require.Equal(models.StatusBootstrapped, outcome.Record.Status)
	require.Equal("cat alpha/.bootstrap.json", nodes.commands[0])
}

func TestCollectAuthFailureIsNotRetried(t *testing.T) {
	store := readyNetwork(t, "10.0.0.1", "10.0.0.2")
	nodes := &fakeNodes{
		records: map[string]models.BootstrapRecord{"10.0.0.2": nodeRecord(2)},
		errs:    map[string]error{"10.0.0.1": fmt.Errorf("%w: 10.0.0.1", ssh.ErrAuthFailed)},
	}

	outcome, err := newCollector(nodes, store, fastPolicy(1)).Collect(context.Background(), "alpha")
	require.NoError(t, err)
	require.Equal(t, 1, nodes.calls["10.0.0.1"])
	require.ErrorIs(t, outcome.Failed[0], ssh.ErrAuthFailed)
}

func TestCollectResumesMissingOnly(t *testing.T) {
	require := require.New(t)
	addrs := []string{"10.0.0.1", "10.0.0.2"}
	store := readyNetwork(t, addrs...)
	first := &fakeNodes{records: map[string]models.BootstrapRecord{"10.0.0.1": nodeRecord(1)}}
	_, err := newCollector(first, store, fastPolicy(1)).Collect(context.Background(), "alpha")
	require.NoError(err)

	second := &fakeNodes{records: map[string]models.BootstrapRecord{"10.0.0.1": nodeRecord(9), "10.0.0.2": nodeRecord(2)}}
	outcome, err := newCollector(second, store, fastPolicy(1)).Collect(context.Background(), "alpha")
	require.NoError(err)
	require.Equal([]string{"10.0.0.2"}, outcome.Collected)
	require.Zero(second.calls["10.0.0.1"])

	stored, err := store.Get("alpha")
	require.NoError(err)
	require.Equal(models.StatusBootstrapped, stored.Status)
	require.Equal(nodeRecord(1), stored.NodeData["10.0.0.1"])
}

func TestCollectRejectsUnreadyNetwork(t *testing.T) {
	store := registry.New(filepath.Join(t.TempDir(), "networks.json"), nil)
	require.NoError(t, store.Write(models.NewNetworkRecord("alpha", 1, time.Now())))

	_, err := newCollector(&fakeNodes{}, store, fastPolicy(1)).Collect(context.Background(), "alpha")
	require.ErrorIs(t, err, ErrNotCollectable)
}

func TestCollectInvalidRecordRetried(t *testing.T) {
	store := readyNetwork(t, "10.0.0.1")
	bad := nodeRecord(1)
	bad.Base64Address = "AAAA"
	nodes := &fakeNodes{records: map[string]models.BootstrapRecord{"10.0.0.1": bad}}

	_, err := newCollector(nodes, store, fastPolicy(1)).Collect(context.Background(), "alpha")
	require.ErrorIs(t, err, ErrBootstrapFailed)
	require.ErrorIs(t, err, models.ErrInvalidBootstrap)
	require.Equal(t, 3, nodes.calls["10.0.0.1"])
}

type writeCounter struct {
	mu     sync.Mutex
	writes int
}

func (w *writeCounter) RecordChanged(_, _ *models.NetworkRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes++
}

func TestCollectWritesEveryNodeOutcome(t *testing.T) {
	require := require.New(t)
	counter := &writeCounter{}
	store := registry.New(filepath.Join(t.TempDir(), "networks.json"), nil, counter)
	rec := models.NewNetworkRecord("alpha", 3, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rec.Status = models.StatusReady
	require.NoError(rec.SetAddresses([]string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}))
	require.NoError(store.Write(rec))
	counter.writes = 0

	nodes := &fakeNodes{records: map[string]models.BootstrapRecord{"10.0.0.1": nodeRecord(1)}}
	_, err := newCollector(nodes, store, fastPolicy(2)).Collect(context.Background(), "alpha")
	require.NoError(err)

	// Bootstrapping, one write per node, BootstrapIncomplete
	require.Equal(5, counter.writes)
}
