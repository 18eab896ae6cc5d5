// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package networkcmd

import (
	"github.com/luxfi/hydra/pkg/publish"
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/spf13/cobra"
)

func newPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish [networkName]",
		Short: "Upload the network configuration to the dist bucket",
		Long: `The network publish command uploads the registry record and the files
generated by 'hydra network configure' to networks/<name>/ in the dist
bucket. Nodes read them from there when they run 'hydra client configure'.`,
		Args:         cobra.MaximumNArgs(1),
		RunE:         publishNetwork,
		SilenceUsage: true,
	}
}

func publishNetwork(cmd *cobra.Command, args []string) error {
	network, err := networkArg(args)
	if err != nil {
		return err
	}
	rec, err := app.Registry().Get(network)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := app.DistStore(ctx, "", "")
	if err != nil {
		return err
	}
	defer store.Close()

	keys, err := publish.NewPublisher(store, ux.Logger, app.Log).Publish(ctx, rec, app.GetNetworkDir(network))
	if err != nil {
		return err
	}
	ux.Logger.GreenCheckmarkToUser("Published %d files of network %s to %s", len(keys), network, store.Bucket())
	return nil
}
