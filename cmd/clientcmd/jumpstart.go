// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package clientcmd

import (
	"fmt"
	"os"

	"github.com/luxfi/hydra/pkg/snapshot"
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/spf13/cobra"
)

var (
	block       string
	label       string
	compression string
)

func newJumpstartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jumpstart",
		Short: "Replace the chain data of this node with a published snapshot",
		Long: `The client jumpstart command looks up the snapshot labelled --block in the
network's jumps.json, removes the chain data directories of the node and
extracts the snapshot in their place. Keys and configuration are kept.

Stop the node before running it.`,
		Args:         cobra.NoArgs,
		RunE:         jumpstartNode,
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&block, "block", "", "snapshot label, usually a block height")
	_ = cmd.MarkFlagRequired("block")
	return cmd
}

func jumpstartNode(cmd *cobra.Command, _ []string) error {
	network, nodeDir, err := resolveNetwork()
	if err != nil {
		return err
	}
	j, err := newJumpstarter()
	if err != nil {
		return err
	}
	if err := j.Apply(cmd.Context(), network, nodeDir, block); err != nil {
		return err
	}
	ux.Logger.GreenCheckmarkToUser("Node of network %s jumpstarted to %s", network, block)
	return nil
}

func newMakeJumpstartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "make-jumpstart",
		Short:        "Publish the chain data of this node as a jumpstart snapshot",
		Args:         cobra.NoArgs,
		RunE:         makeJumpstart,
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&label, "label", "", "snapshot label, usually the current block height")
	cmd.Flags().StringVar(&compression, "compression", string(snapshot.Gzip), "archive compression: gzip or zstd")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

func makeJumpstart(cmd *cobra.Command, _ []string) error {
	network, nodeDir, err := resolveNetwork()
	if err != nil {
		return err
	}
	c := snapshot.Compression(compression)
	if c != snapshot.Gzip && c != snapshot.Zstd {
		return fmt.Errorf("invalid --compression %q: use gzip or zstd", compression)
	}
	ctx := cmd.Context()
	store, err := app.DistStore(ctx, "", "")
	if err != nil {
		return err
	}
	defer store.Close()

	archive, err := snapshot.NewJumpstarter(store, ux.Logger, app.Log, os.Stdout).Publish(ctx, network, nodeDir, label, c)
	if err != nil {
		return err
	}
	ux.Logger.GreenCheckmarkToUser("Published jumpstart %s as %s", archive, label)
	return nil
}
