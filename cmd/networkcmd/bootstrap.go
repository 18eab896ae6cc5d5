// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package networkcmd

import (
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/spf13/cobra"
)

func newBootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap [networkName]",
		Short: "Collect bootstrap data from the nodes of a network",
		Long: `The network bootstrap command reads the bootstrap record every node
writes once it has joined. Nodes that already delivered their record are
skipped, so the command can be rerun until the network is Bootstrapped.

Each node is retried according to provision.bootstrap.attempts and
provision.bootstrap.interval. A network where only some nodes answered
is left BootstrapIncomplete and the command still succeeds.`,
		Args:         cobra.MaximumNArgs(1),
		RunE:         bootstrapNetwork,
		SilenceUsage: true,
	}
}

func bootstrapNetwork(cmd *cobra.Command, args []string) error {
	network, err := networkArg(args)
	if err != nil {
		return err
	}
	return collect(cmd, network)
}

func collect(cmd *cobra.Command, network string) error {
	c, err := newCollector()
	if err != nil {
		return err
	}
	outcome, err := c.Collect(cmd.Context(), network)
	if err != nil {
		return err
	}
	for _, f := range outcome.Failed {
		ux.Logger.Warn("%s", f)
	}
	return nil
}
