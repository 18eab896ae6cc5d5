// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package clientcmd

import (
	"github.com/luxfi/hydra/pkg/node"
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/spf13/cobra"
)

var (
	setDefault  bool
	install     bool
	noConfigure bool
	serviceUser string
)

func newJoinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join-network",
		Short: "Bootstrap, configure and start this node in one step",
		Long: `The client join-network command takes a fresh machine into a network:

  1. bootstrap the node directory
  2. apply the --jumpstart snapshot, if given
  3. install the published configuration, unless --no-configure
  4. install and start the systemd unit, if --install

A network that is not published yet leaves the node bootstrapped but not
configured; rerun 'hydra client configure' once it is.`,
		Args:         cobra.NoArgs,
		RunE:         joinNetwork,
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&nodeVersion, "version", "", "version to download (default latest)")
	cmd.Flags().BoolVar(&destroy, "destroy", false, "delete an existing node directory first")
	cmd.Flags().StringVar(&block, "jumpstart", "", "snapshot label to apply after bootstrapping")
	cmd.Flags().BoolVar(&setDefault, "set-default", false, "save the network as the default network")
	cmd.Flags().BoolVar(&install, "install", false, "install and start the systemd unit")
	cmd.Flags().BoolVar(&noConfigure, "no-configure", false, "stop after bootstrapping")
	cmd.Flags().StringVar(&serviceUser, "user", "", "user the service runs as (default provision.ssh_user)")
	addConfigureFlags(cmd)
	return cmd
}

func joinNetwork(cmd *cobra.Command, _ []string) error {
	network, nodeDir, err := resolveNetwork()
	if err != nil {
		return err
	}
	settings, err := configureOptions()
	if err != nil {
		return err
	}
	if setDefault {
		if err := app.WriteDefaultNetwork(network); err != nil {
			return err
		}
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	j, err := newJumpstarter()
	if err != nil {
		return err
	}
	err = node.Join(cmd.Context(), c, j, newServices(), network, nodeDir, node.JoinOptions{
		Version:   settings.Version,
		Destroy:   destroy,
		Jumpstart: block,
		Configure: !noConfigure,
		Install:   install,
		User:      unitFor(network, nodeDir, serviceUser).User,
		Settings:  settings,
	})
	if err != nil {
		return err
	}
	ux.Logger.GreenCheckmarkToUser("Node joined network %s", network)
	return nil
}
