// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package clientcmd

import (
	"github.com/luxfi/hydra/pkg/release"
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/spf13/cobra"
)

var (
	nodeVersion string
	destroy     bool
)

func newBootstrapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Download the node binaries and initialize the node directory",
		Long: `The client bootstrap command downloads the node binary and the oracle
binaries from the distribution channel, initializes the node and writes
.bootstrap.json, which the operator collects with 'hydra network bootstrap'.`,
		Args:         cobra.NoArgs,
		RunE:         bootstrapNode,
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&nodeVersion, "version", "", "version to download (default latest)")
	cmd.Flags().BoolVar(&destroy, "destroy", false, "delete an existing node directory first")
	return cmd
}

func normalizedVersion() (string, error) {
	if nodeVersion == "" || nodeVersion == "latest" {
		return "", nil
	}
	return release.CleanVersion(nodeVersion)
}

func bootstrapNode(cmd *cobra.Command, _ []string) error {
	network, nodeDir, err := resolveNetwork()
	if err != nil {
		return err
	}
	ver, err := normalizedVersion()
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	if err := c.Bootstrap(cmd.Context(), nodeDir, ver, destroy); err != nil {
		return err
	}
	ux.Logger.GreenCheckmarkToUser("Node of network %s bootstrapped in %s", network, nodeDir)
	return nil
}
