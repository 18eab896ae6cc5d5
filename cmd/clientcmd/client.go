// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package clientcmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/luxfi/hydra/pkg/application"
	"github.com/luxfi/hydra/pkg/node"
	"github.com/luxfi/hydra/pkg/nodeconfig"
	"github.com/luxfi/hydra/pkg/snapshot"
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/spf13/cobra"
)

var (
	app *application.Hydra

	networkName string
)

// NewCmd creates the client command run on the nodes themselves.
func NewCmd(injectedApp *application.Hydra) *cobra.Command {
	app = injectedApp
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Bootstrap, configure and supervise the node on this machine",
		Long: `The client command suite runs on a node. Instance user data calls
'hydra client join-network' on first boot; the other commands repeat
single steps of that flow.

COMMANDS:

  bootstrap          Download the node binaries and initialize the node
  configure          Install the published network configuration
  jumpstart          Replace chain data with a published snapshot
  join-network       Bootstrap, jumpstart, configure and install in one go
  install-service    Install and start the systemd unit
  uninstall-service  Stop and remove the systemd unit
  start|stop|restart Control the node service
  make-jumpstart     Publish the chain data of this node as a snapshot

The node directory is <workdir>/<name>.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVarP(&networkName, "name", "n", "", "network name (default $HYDRA_NETWORK or the saved default)")

	cmd.AddCommand(newBootstrapCmd())
	cmd.AddCommand(newConfigureCmd())
	cmd.AddCommand(newJumpstartCmd())
	cmd.AddCommand(newJoinCmd())
	cmd.AddCommand(newMakeJumpstartCmd())
	cmd.AddCommand(newServiceCmds()...)
	return cmd
}

func resolveNetwork() (string, string, error) {
	network, err := app.ResolveNetworkName(networkName)
	if err != nil {
		return "", "", err
	}
	return network, app.GetNodeDir(network), nil
}

func newClient() (*node.Client, error) {
	channel, err := app.ChannelStore()
	if err != nil {
		return nil, err
	}
	return node.NewClient(channel, node.NewExecRunner(app.Log), ux.Logger, app.Log, os.Stdout, app.Conf.Hydra.BinaryName), nil
}

func newJumpstarter() (*snapshot.Jumpstarter, error) {
	channel, err := app.ChannelStore()
	if err != nil {
		return nil, err
	}
	return snapshot.NewJumpstarter(channel, ux.Logger, app.Log, os.Stdout), nil
}

func newServices() *node.Services {
	return node.NewServices(node.NewExecRunner(app.Log), node.NewProcessFinder(), ux.Logger, app.Log)
}

func unitFor(network, nodeDir, user string) nodeconfig.Unit {
	if user == "" {
		user = app.Conf.Provision.SSHUser
	}
	return nodeconfig.Unit{Network: network, Binary: app.Conf.Hydra.BinaryName, User: user, Dir: nodeDir}
}

// parsePeers reads --peer values of the form <nodekey>@<address>.
func parsePeers(values []string) ([]nodeconfig.Peer, error) {
	peers := make([]nodeconfig.Peer, 0, len(values))
	for _, v := range values {
		key, addr, ok := strings.Cut(v, "@")
		if !ok || key == "" || addr == "" {
			return nil, fmt.Errorf("invalid peer %q: want <nodekey>@<address>", v)
		}
		peers = append(peers, nodeconfig.Peer{Address: addr, NodeKey: key})
	}
	return peers, nil
}
