// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bootstrap collects the identity each provisioned node reports
// about itself once its unattended install has finished.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/models"
	"github.com/luxfi/hydra/pkg/registry"
	"github.com/luxfi/hydra/pkg/ssh"
	"github.com/luxfi/hydra/pkg/ux"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrBootstrapFailed = errors.New("no node returned bootstrap data")
	ErrNotCollectable  = errors.New("network is not ready for bootstrap collection")
)

// NodeError is a node that ran out of attempts.
type NodeError struct {
	Network  string
	Address  string
	Attempts uint
	Err      error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s of network %s: no bootstrap data after %d attempts: %v", e.Address, e.Network, e.Attempts, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// Policy bounds how long a node is waited for.
type Policy struct {
	Attempts    uint
	Interval    time.Duration
	Parallelism int
}

func DefaultPolicy() Policy {
	return Policy{
		Attempts:    constants.BootstrapAttempts,
		Interval:    constants.BootstrapAttemptInterval,
		Parallelism: constants.BootstrapParallelism,
	}
}

// Outcome summarizes one collection run.
type Outcome struct {
	Record    *models.NetworkRecord
	Collected []string
	Failed    []*NodeError
}

type Collector struct {
	exec   ssh.Executor
	store  *registry.Store
	ul     *ux.UserLog
	log    *zap.Logger
	policy Policy
	out    io.Writer

	// mu guards the record being filled in and orders registry writes.
	mu sync.Mutex
}

func NewCollector(exec ssh.Executor, store *registry.Store, ul *ux.UserLog, log *zap.Logger, policy Policy, out io.Writer) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	if policy.Attempts == 0 {
		policy.Attempts = 1
	}
	if policy.Parallelism < 1 {
		policy.Parallelism = 1
	}
	if out == nil {
		out = io.Discard
	}
	return &Collector{exec: exec, store: store, ul: ul, log: log, policy: policy, out: out}
}

// RemotePath is where a node publishes its bootstrap record, relative to
// the remote user's home.
func RemotePath(network string) string {
	return path.Join(network, constants.BootstrapFileName)
}

// Collect fetches the bootstrap record of every node of network that has
// none yet. The registry is written after each node's outcome. Zero
// collected nodes is ErrBootstrapFailed; a partial set leaves the network
// BootstrapIncomplete and is not an error.
func (c *Collector) Collect(ctx context.Context, network string) (*Outcome, error) {
	rec, err := c.store.Get(network)
	if err != nil {
		return nil, err
	}
	if !rec.Status.Collectable() {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotCollectable, network, rec.Status)
	}
	if rec.Status == models.StatusReady {
		if err := rec.Transition(models.StatusBootstrapping); err != nil {
			return nil, err
		}
		if err := c.store.Write(rec); err != nil {
			return nil, err
		}
	}

	pending := rec.Missing()
	outcome := &Outcome{Record: rec}
	if len(pending) > 0 {
		c.ul.PrintToUser("Collecting bootstrap data from %d of %d nodes of %s", len(pending), len(rec.Addresses), network)
		if err := c.collectNodes(ctx, rec, pending, outcome); err != nil {
			return outcome, err
		}
	}
	return outcome, c.finish(rec, outcome)
}

func (c *Collector) collectNodes(ctx context.Context, rec *models.NetworkRecord, pending []string, outcome *Outcome) error {
	spinners := ux.NewNodeSpinners(c.ul, c.out, pending)
	defer spinners.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.policy.Parallelism)
	for _, addr := range pending {
		g.Go(func() error {
			data, err := c.fetch(gctx, rec.Name, addr, spinners)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				nodeErr := &NodeError{Network: rec.Name, Address: addr, Attempts: c.policy.Attempts, Err: err}
				spinners.Fail(addr, "gave up")
				c.log.Warn("node bootstrap exhausted", zap.String("network", rec.Name), zap.String("address", addr), zap.Error(err))
				return c.recordFailure(rec, nodeErr, outcome)
			}
			spinners.Done(addr, data.HexAddress)
			return c.record(rec, addr, data, outcome)
		})
	}
	return g.Wait()
}

func (c *Collector) record(rec *models.NetworkRecord, addr string, data models.BootstrapRecord, outcome *Outcome) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec.NodeData[addr] = data
	outcome.Collected = append(outcome.Collected, addr)
	if err := c.store.Write(rec); err != nil {
		return fmt.Errorf("failed recording node %s of network %s: %w", addr, rec.Name, err)
	}
	return nil
}

// recordFailure persists the record after a node ran out of attempts. The
// record itself is unchanged, the write marks the outcome for hooks.
func (c *Collector) recordFailure(rec *models.NetworkRecord, nodeErr *NodeError, outcome *Outcome) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	outcome.Failed = append(outcome.Failed, nodeErr)
	if err := c.store.Write(rec); err != nil {
		return fmt.Errorf("failed recording node %s of network %s: %w", nodeErr.Address, rec.Name, err)
	}
	return nil
}

func (c *Collector) fetch(ctx context.Context, network, addr string, spinners *ux.NodeSpinners) (models.BootstrapRecord, error) {
	cmd := ssh.Cat(RemotePath(network))
	var attempt uint
	op := func() (models.BootstrapRecord, error) {
		attempt++
		spinners.Update(addr, fmt.Sprintf("attempt %d/%d", attempt, c.policy.Attempts))
		res, err := c.exec.Run(ctx, addr, cmd)
		if err != nil {
			if errors.Is(err, ssh.ErrAuthFailed) || errors.Is(err, ssh.ErrKeyFile) {
				return models.BootstrapRecord{}, backoff.Permanent(err)
			}
			return models.BootstrapRecord{}, err
		}
		return models.ParseBootstrapRecord([]byte(res.Stdout))
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.policy.Interval)),
		backoff.WithMaxTries(c.policy.Attempts),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.log.Debug("bootstrap data not ready",
				zap.String("network", network),
				zap.String("address", addr),
				zap.Uint("attempt", attempt),
				zap.Duration("retry_in", wait),
				zap.Error(err))
		}),
	)
}

func (c *Collector) finish(rec *models.NetworkRecord, outcome *Outcome) error {
	if len(rec.NodeData) == 0 {
		errs := make([]error, 0, len(outcome.Failed)+1)
		errs = append(errs, fmt.Errorf("%w: network %s", ErrBootstrapFailed, rec.Name))
		for _, f := range outcome.Failed {
			errs = append(errs, f)
		}
		return errors.Join(errs...)
	}

	next := models.StatusBootstrapped
	if len(rec.NodeData) < len(rec.Addresses) {
		next = models.StatusBootstrapIncomplete
	}
	if err := rec.Transition(next); err != nil {
		return err
	}
	if next == models.StatusBootstrapped {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := c.store.Write(rec); err != nil {
		return err
	}

	if next == models.StatusBootstrapIncomplete {
		c.ul.Warn("network %s bootstrapped %d of %d nodes, missing: %v", rec.Name, len(rec.NodeData), len(rec.Addresses), rec.Missing())
		return nil
	}
	c.ul.GreenCheckmarkToUser("network %s bootstrapped all %d nodes", rec.Name, len(rec.Addresses))
	return nil
}
