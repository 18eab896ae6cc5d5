// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/prompts"
	"github.com/luxfi/hydra/pkg/ux"
)

// Deprovision deletes the stack of a network and removes its registry entry.
func (p *Provisioner) Deprovision(ctx context.Context, name string, force bool) error {
	rec, err := p.store.Get(name)
	if err != nil {
		return err
	}
	ok, err := prompts.Confirm(p.prompt, force, fmt.Sprintf("Delete network %s and all of its %d nodes?", name, rec.Size))
	if err != nil {
		return err
	}
	if !ok {
		return constants.ErrUserAborted
	}
	return p.deprovision(ctx, name, rec.StackID)
}

func (p *Provisioner) deprovision(ctx context.Context, name, handle string) error {
	if handle != "" {
		err := p.api.DeleteStack(ctx, handle)
		switch {
		case errors.Is(err, ErrStackNotFound):
			p.ul.Warn("stack of network %s is already gone", name)
		case err != nil:
			return fmt.Errorf("failed deleting stack of network %s: %w", name, err)
		default:
			p.ul.PrintToUser("Deleting stack %s", handle)
		}
	}
	return p.store.Remove(name)
}

// removeStack deletes the stack behind handle and waits until the provider
// reports it gone. The registry entry is left untouched.
func (p *Provisioner) removeStack(ctx context.Context, name, handle string) error {
	err := p.api.DeleteStack(ctx, handle)
	switch {
	case errors.Is(err, ErrStackNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed deleting stack of network %s: %w", name, err)
	}
	tracker := ux.NewStepTracker(p.ul, p.slowWarnAfter)
	tracker.Start(fmt.Sprintf("Deleting stack %s of network %s", handle, name))
	for {
		desc, err := p.api.DescribeStack(ctx, handle)
		switch {
		case errors.Is(err, ErrStackNotFound), err == nil && desc.Status == statusDeleteComplete:
			tracker.Complete("")
			return nil
		case err != nil:
			tracker.Failed(err.Error())
			return fmt.Errorf("failed describing stack of network %s: %w", name, err)
		case desc.Status == statusDeleteFailed:
			tracker.Failed(desc.Status)
			return fmt.Errorf("%w: network %s stack %s", ErrStackDeleteFailed, name, handle)
		}
		tracker.CheckWarn()
		if err := p.sleep(ctx, p.pollInterval); err != nil {
			return err
		}
	}
}

// DeprovisionAll deprovisions every registered network after one
// confirmation. It keeps going past failures and reports them together.
func (p *Provisioner) DeprovisionAll(ctx context.Context, force bool) error {
	records := p.store.Read()
	if len(records) == 0 {
		p.ul.PrintToUser("No networks registered")
		return nil
	}
	ok, err := prompts.Confirm(p.prompt, force, fmt.Sprintf("Delete all %d registered networks?", len(records)))
	if err != nil {
		return err
	}
	if !ok {
		return constants.ErrUserAborted
	}
	var errs []error
	for _, name := range p.store.Names() {
		if err := p.deprovision(ctx, name, records[name].StackID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
