// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package networkcmd

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/genesis"
	"github.com/luxfi/hydra/pkg/models"
	"github.com/luxfi/hydra/pkg/nodeconfig"
	"github.com/luxfi/hydra/pkg/ssh"
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/spf13/cobra"
)

func newConfigureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure [networkName]",
		Short: "Generate the genesis, chain config and start files of a network",
		Long: `The network configure command takes the genesis files of the first node
as a base and rewrites them so that every collected node is a validator.
It writes under networks/<name>/ in the working directory:

  chaindata/config/genesis.json   engine genesis
  genesis.json                    application genesis
  loom.yaml                       chain config
  nodes/<i>-<address>/            start script and systemd unit per node

The output is byte-identical for the same registry record and base files.`,
		Args:         cobra.MaximumNArgs(1),
		RunE:         configureNetwork,
		SilenceUsage: true,
	}
}

func configureNetwork(cmd *cobra.Command, args []string) error {
	network, err := networkArg(args)
	if err != nil {
		return err
	}
	rec, err := app.Registry().Get(network)
	if err != nil {
		return err
	}
	nodes := rec.Nodes()
	if len(nodes) == 0 {
		return fmt.Errorf("%w: network %s is %s", genesis.ErrNoValidators, network, rec.Status)
	}
	if rec.Status == models.StatusBootstrapIncomplete {
		ux.Logger.Warn("network %s is missing bootstrap data from %v, configuring %d nodes", network, rec.Missing(), len(nodes))
	}

	exec, err := app.Executor()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	first := nodes[0].Address
	chainBase, err := readRemote(ctx, exec, first, path.Join(network, constants.ChainGenesisPath))
	if err != nil {
		return err
	}
	appBase, err := readRemote(ctx, exec, first, path.Join(network, constants.AppGenesisFileName))
	if err != nil {
		return err
	}

	chainGenesis, err := genesis.ChainGenesis(chainBase, nodes)
	if err != nil {
		return err
	}
	appGenesis, err := genesis.AppGenesis(appBase, nodes, app.Conf.Provision.DPoS, app.Conf.Provision.Gateway)
	if err != nil {
		return err
	}
	chainConfig, err := genesis.NetworkChainConfig(app.Conf.Loom, app.Conf.Provision.Gateway).Marshal()
	if err != nil {
		return err
	}

	dir := app.GetNetworkDir(network)
	files := map[string][]byte{
		constants.ChainGenesisPath:    chainGenesis,
		constants.AppGenesisFileName:  appGenesis,
		constants.ChainConfigFileName: chainConfig,
	}
	for rel, data := range files {
		if err := writeFile(filepath.Join(dir, filepath.FromSlash(rel)), data); err != nil {
			return err
		}
	}

	user := app.Conf.Provision.SSHUser
	artifacts, err := nodeconfig.Assemble(rec, app.Conf.Hydra.BinaryName, user, path.Join("/home", user, network))
	if err != nil {
		return err
	}
	for _, a := range artifacts {
		if err := a.Write(dir); err != nil {
			return fmt.Errorf("failed writing files of node %s: %w", a.Address, err)
		}
	}
	ux.Logger.GreenCheckmarkToUser("Configured network %s with %d validators in %s", network, len(nodes), dir)
	return nil
}

func readRemote(ctx context.Context, exec ssh.Executor, address, file string) ([]byte, error) {
	res, err := exec.Run(ctx, address, ssh.Cat(file))
	if err != nil {
		return nil, fmt.Errorf("failed reading %s: %w", file, err)
	}
	return []byte(res.Stdout), nil
}

func writeFile(file string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(file), constants.DefaultPerms755); err != nil {
		return err
	}
	return os.WriteFile(file, data, constants.WriteReadReadPerms)
}
