// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package provision drives a network's infrastructure stack from submission
// to a terminal status, recording every step in the registry so an
// interrupted run can be resumed.
package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/luxfi/hydra/pkg/cloud/stack"
	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/models"
	"github.com/luxfi/hydra/pkg/prompts"
	"github.com/luxfi/hydra/pkg/registry"
	"github.com/luxfi/hydra/pkg/ux"
	"go.uber.org/zap"
)

var (
	ErrStackCreateFailed = errors.New("stack creation failed")
	ErrIncompleteOutputs = errors.New("stack returned fewer node addresses than requested")
	ErrStackNotFound     = errors.New("stack not found")
	ErrKeyPairNotFound   = errors.New("EC2 key pair not found")
	ErrStackDeleteFailed = errors.New("stack deletion failed")
)

// StackDescription is a point-in-time view of a stack.
type StackDescription struct {
	ID           string
	Status       string
	StatusReason string
	Outputs      map[string]string
}

// StackAPI is the infrastructure provider.
type StackAPI interface {
	CreateStack(ctx context.Context, name, templateBody string) (string, error)
	DescribeStack(ctx context.Context, handle string) (StackDescription, error)
	DeleteStack(ctx context.Context, handle string) error
}

// KeyPairChecker confirms the SSH key pair exists before anything is created.
type KeyPairChecker interface {
	KeyPairExists(ctx context.Context, name string) (bool, error)
}

// FailurePolicy decides what happens to a stack that failed to create.
type FailurePolicy int

const (
	FailureAsk FailurePolicy = iota
	FailureDelete
	FailureKeep
)

type Request struct {
	Network   string
	Size      int
	Version   string
	Params    stack.Params
	Force     bool
	OnFailure FailurePolicy
}

type Option func(*Provisioner)

// WithPollInterval sets the wait between two stack status polls.
func WithPollInterval(d time.Duration) Option {
	return func(p *Provisioner) { p.pollInterval = d }
}

func WithSlowWarning(d time.Duration) Option {
	return func(p *Provisioner) { p.slowWarnAfter = d }
}

func WithKeyPairChecker(k KeyPairChecker) Option {
	return func(p *Provisioner) { p.keys = k }
}

// WithSleep replaces the poll wait, used by tests.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(p *Provisioner) { p.sleep = sleep }
}

func WithClock(now func() time.Time) Option {
	return func(p *Provisioner) { p.now = now }
}

type Provisioner struct {
	api           StackAPI
	keys          KeyPairChecker
	store         *registry.Store
	prompt        prompts.Prompter
	ul            *ux.UserLog
	log           *zap.Logger
	pollInterval  time.Duration
	slowWarnAfter time.Duration
	sleep         func(context.Context, time.Duration) error
	now           func() time.Time
}

func New(api StackAPI, store *registry.Store, prompt prompts.Prompter, ul *ux.UserLog, log *zap.Logger, opts ...Option) *Provisioner {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Provisioner{
		api:           api,
		store:         store,
		prompt:        prompt,
		ul:            ul,
		log:           log,
		pollInterval:  constants.StackPollInterval,
		slowWarnAfter: constants.StackSlowWarnAfter,
		sleep:         sleepCtx,
		now:           time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// DefaultNetworkName returns a short random network name.
func DefaultNetworkName() string {
	return uuid.NewString()[:constants.DefaultNetworkIDChars]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Provision creates the stack for req and waits until it is Ready. An
// existing record still in Provisioning with a stack handle is resumed
// instead of submitting a second stack. Replacing a record deletes its
// stack first, so the handle is never dropped while the stack is alive.
// A zero req.Size asks for the number of nodes.
func (p *Provisioner) Provision(ctx context.Context, req Request) (*models.NetworkRecord, error) {
	existing, err := p.store.Get(req.Network)
	if err == nil {
		if existing.Status == models.StatusProvisioning && existing.StackID != "" && !req.Force {
			if req.Size != 0 && req.Size != existing.Size {
				p.ul.Warn("network %s is being provisioned with %d nodes, ignoring size %d", req.Network, existing.Size, req.Size)
			}
			p.ul.PrintToUser("Resuming provisioning of network %s (stack %s)", req.Network, existing.StackID)
			return p.Poll(ctx, existing, req.OnFailure)
		}
		ok, err := prompts.Confirm(p.prompt, req.Force,
			fmt.Sprintf("Network %s is already registered with status %s. Replace it?", req.Network, existing.Status))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", constants.ErrNetworkExists, req.Network)
		}
	} else {
		existing = nil
	}

	if req.Size == 0 {
		size, err := p.captureSize()
		if err != nil {
			return nil, err
		}
		req.Size = size
	}

	params := req.Params
	params.NetworkName = req.Network
	params.Size = req.Size
	params.Version = req.Version
	if params.StackName == "" {
		params.StackName = stack.Name("", req.Network)
	}

	if p.keys != nil {
		found, err := p.keys.KeyPairExists(ctx, params.KeyName)
		if err != nil {
			return nil, fmt.Errorf("failed checking key pair %s: %w", params.KeyName, err)
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrKeyPairNotFound, params.KeyName)
		}
	}

	tmpl, err := stack.Build(params)
	if err != nil {
		return nil, err
	}
	body, err := tmpl.JSON()
	if err != nil {
		return nil, fmt.Errorf("failed rendering template for %s: %w", req.Network, err)
	}

	if existing != nil && existing.StackID != "" {
		if err := p.removeStack(ctx, existing.Name, existing.StackID); err != nil {
			return nil, err
		}
	}

	rec := models.NewNetworkRecord(req.Network, req.Size, p.now())
	rec.Version = req.Version
	if err := p.store.Write(rec); err != nil {
		return nil, err
	}

	p.ul.PrintToUser("Creating stack %s with %d nodes", params.StackName, req.Size)
	handle, err := p.api.CreateStack(ctx, params.StackName, body)
	if err != nil {
		if terr := rec.Transition(models.StatusCreateFailed); terr == nil {
			_ = p.store.Write(rec)
		}
		return rec, fmt.Errorf("%w: network %s: %w", ErrStackCreateFailed, req.Network, err)
	}
	rec.StackID = handle
	if err := p.store.Write(rec); err != nil {
		return rec, err
	}
	p.log.Info("stack submitted", zap.String("network", req.Network), zap.String("stack", handle))
	return p.Poll(ctx, rec, req.OnFailure)
}

// Poll waits for the stack behind rec to reach a terminal status.
func (p *Provisioner) Poll(ctx context.Context, rec *models.NetworkRecord, onFailure FailurePolicy) (*models.NetworkRecord, error) {
	tracker := ux.NewStepTracker(p.ul, p.slowWarnAfter)
	tracker.Start(fmt.Sprintf("Waiting for network %s stack to complete", rec.Name))
	for {
		desc, err := p.api.DescribeStack(ctx, rec.StackID)
		if err != nil {
			tracker.Failed(err.Error())
			return rec, fmt.Errorf("failed describing stack of network %s: %w", rec.Name, err)
		}
		if desc.Status != rec.StackStatus {
			p.log.Info("stack status", zap.String("network", rec.Name), zap.String("status", desc.Status))
		}
		rec.StackStatus = desc.Status
		if err := p.store.Write(rec); err != nil {
			return rec, err
		}

		switch Classify(desc.Status) {
		case PhaseSucceeded:
			if err := p.complete(rec, desc); err != nil {
				tracker.Failed(err.Error())
				return rec, err
			}
			tracker.Complete(fmt.Sprintf("%d nodes", len(rec.Addresses)))
			return rec, nil
		case PhaseFailed:
			tracker.Failed(desc.Status)
			return rec, p.fail(ctx, rec, desc, onFailure)
		}

		tracker.CheckWarn()
		if err := p.sleep(ctx, p.pollInterval); err != nil {
			return rec, err
		}
	}
}

func (p *Provisioner) complete(rec *models.NetworkRecord, desc StackDescription) error {
	addresses := make([]string, 0, rec.Size)
	for i := 0; i < rec.Size; i++ {
		addr := desc.Outputs[stack.AddressOutputKey(i)]
		if addr == "" {
			break
		}
		addresses = append(addresses, addr)
	}
	rec.Outputs = desc.Outputs
	if len(addresses) != rec.Size {
		if err := rec.Transition(models.StatusCreateFailed); err != nil {
			return err
		}
		if err := p.store.Write(rec); err != nil {
			return err
		}
		return fmt.Errorf("%w: network %s has %d of %d addresses", ErrIncompleteOutputs, rec.Name, len(addresses), rec.Size)
	}
	if err := rec.SetAddresses(addresses); err != nil {
		return err
	}
	if err := rec.Transition(models.StatusReady); err != nil {
		return err
	}
	return p.store.Write(rec)
}

func (p *Provisioner) captureSize() (int, error) {
	size, err := p.prompt.CapturePositiveInt("How many nodes should the network have?",
		[]prompts.Comparator{{Label: "one node", Type: prompts.MoreThanEq, Value: 1}})
	if errors.Is(err, prompts.ErrNonInteractive) {
		return constants.DefaultNetworkSize, nil
	}
	return size, err
}

func (p *Provisioner) fail(ctx context.Context, rec *models.NetworkRecord, desc StackDescription, policy FailurePolicy) error {
	if err := rec.Transition(models.StatusCreateFailed); err != nil {
		return err
	}
	if err := p.store.Write(rec); err != nil {
		return err
	}
	failure := fmt.Errorf("%w: network %s stack status %s", ErrStackCreateFailed, rec.Name, desc.Status)
	if desc.StatusReason != "" {
		failure = fmt.Errorf("%w (%s)", failure, desc.StatusReason)
	}

	remove := false
	switch policy {
	case FailureDelete:
		remove = true
	case FailureAsk:
		ok, err := p.prompt.CaptureYesNo(fmt.Sprintf("Stack for network %s failed with %s. Delete it?", rec.Name, desc.Status))
		switch {
		case errors.Is(err, prompts.ErrNonInteractive):
			p.ul.Warn("leaving failed stack %s for inspection", rec.StackID)
		case err != nil:
			return errors.Join(failure, err)
		default:
			remove = ok
		}
	}
	if !remove {
		return failure
	}
	if err := p.api.DeleteStack(ctx, rec.StackID); err != nil && !errors.Is(err, ErrStackNotFound) {
		return errors.Join(failure, fmt.Errorf("failed deleting stack %s: %w", rec.StackID, err))
	}
	p.ul.PrintToUser("Deleting stack %s", rec.StackID)
	return failure
}
