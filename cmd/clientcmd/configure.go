// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package clientcmd

import (
	"errors"

	"github.com/luxfi/hydra/pkg/node"
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/spf13/cobra"
)

var (
	peers          []string
	pex            bool
	addrBookStrict bool
	privatePeers   bool
)

func newConfigureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Install the published network configuration on this node",
		Long: `The client configure command fetches the files published with
'hydra network publish' and installs them into the node directory. It
patches chaindata/config/config.toml and writes start_blockchain.sh with
every other node as a persistent peer.

When the configuration is not published yet the command warns and leaves
the node untouched.`,
		Args:         cobra.NoArgs,
		RunE:         configureNode,
		SilenceUsage: true,
	}
	addConfigureFlags(cmd)
	return cmd
}

func addConfigureFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&peers, "peer", nil, "peer as <nodekey>@<address>, overrides the published peers")
	cmd.Flags().BoolVar(&pex, "pex", true, "enable peer exchange (--pex=false to turn it off)")
	cmd.Flags().BoolVar(&addrBookStrict, "addr-book-strict", false, "only accept routable peer addresses")
	cmd.Flags().BoolVar(&privatePeers, "private-peers", false, "do not gossip the addresses of the network's nodes")
}

func configureOptions() (node.ConfigureOptions, error) {
	parsed, err := parsePeers(peers)
	if err != nil {
		return node.ConfigureOptions{}, err
	}
	if len(parsed) == 0 {
		parsed = nil
	}
	ver, err := normalizedVersion()
	if err != nil {
		return node.ConfigureOptions{}, err
	}
	return node.ConfigureOptions{
		Peers:            parsed,
		Version:          ver,
		Pex:              pex,
		AddrBookStrict:   addrBookStrict,
		PrivatePeers:     privatePeers,
		ValidatorMetrics: app.Conf.Hydra.ValidatorMetrics,
	}, nil
}

func configureNode(cmd *cobra.Command, _ []string) error {
	network, nodeDir, err := resolveNetwork()
	if err != nil {
		return err
	}
	opts, err := configureOptions()
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	err = c.Configure(cmd.Context(), network, nodeDir, opts)
	if errors.Is(err, node.ErrConfigUnavailable) {
		return nil
	}
	if err != nil {
		return err
	}
	ux.Logger.GreenCheckmarkToUser("Node of network %s configured", network)
	return nil
}
