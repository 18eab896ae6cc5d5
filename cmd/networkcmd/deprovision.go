// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package networkcmd

import (
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/spf13/cobra"
)

func newDeprovisionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "deprovision [networkName]",
		Short:        "Delete the stack of a network and forget it",
		Args:         cobra.MaximumNArgs(1),
		RunE:         deprovisionNetwork,
		SilenceUsage: true,
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "do not ask for confirmation")
	return cmd
}

func newDeprovisionAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "deprovision-all",
		Short:        "Delete the stacks of every registered network",
		Args:         cobra.NoArgs,
		RunE:         deprovisionAll,
		SilenceUsage: true,
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "do not ask for confirmation")
	return cmd
}

func deprovisionNetwork(cmd *cobra.Command, args []string) error {
	network, err := networkArg(args)
	if err != nil {
		return err
	}
	p, err := newProvisioner(cmd.Context())
	if err != nil {
		return err
	}
	if err := p.Deprovision(cmd.Context(), network, force); err != nil {
		return err
	}
	ux.Logger.GreenCheckmarkToUser("Network %s deprovisioned", network)
	return nil
}

func deprovisionAll(cmd *cobra.Command, _ []string) error {
	if len(app.Registry().Names()) == 0 {
		ux.Logger.PrintToUser("No networks registered")
		return nil
	}
	p, err := newProvisioner(cmd.Context())
	if err != nil {
		return err
	}
	return p.DeprovisionAll(cmd.Context(), force)
}
