// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package networkcmd

import (
	"errors"
	"fmt"

	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/models"
	"github.com/luxfi/hydra/pkg/provision"
	"github.com/luxfi/hydra/pkg/release"
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/spf13/cobra"
)

var (
	size         int
	nodeVersion  string
	force        bool
	onFailure    string
	noBootstrap  bool
	setAsDefault bool
)

func failurePolicy(s string) (provision.FailurePolicy, error) {
	switch s {
	case "ask":
		return provision.FailureAsk, nil
	case "delete":
		return provision.FailureDelete, nil
	case "keep":
		return provision.FailureKeep, nil
	}
	return provision.FailureAsk, fmt.Errorf("invalid --on-failure %q: use ask, delete or keep", s)
}

func newProvisionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision [networkName]",
		Short: "Create the AWS stack of a network and collect bootstrap data",
		Long: `The network provision command creates a CloudFormation stack with one
EC2 instance per node and waits until every instance address is known.
It then collects the bootstrap data each node publishes when it joins.

When no name is given and none is configured a random six character name
is generated. Without --size the number of nodes is asked for. A network left in Provisioning by an interrupted run is
resumed instead of submitting a second stack.`,
		Args:         cobra.MaximumNArgs(1),
		RunE:         provisionNetwork,
		SilenceUsage: true,
	}
	cmd.Flags().IntVar(&size, "size", 0, "number of nodes (asked when omitted, 4 when non-interactive)")
	cmd.Flags().StringVar(&nodeVersion, "version", "", "node software version to install (default latest)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing registry entry without asking")
	cmd.Flags().StringVar(&onFailure, "on-failure", "ask", "what to do with a failed stack: ask, delete or keep")
	cmd.Flags().BoolVar(&noBootstrap, "no-bootstrap", false, "stop once the stack is ready")
	cmd.Flags().BoolVar(&setAsDefault, "set-default", false, "save the network as the default network")
	return cmd
}

func provisionNetwork(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("size") && size < 1 {
		return fmt.Errorf("invalid --size %d: must be at least 1", size)
	}
	policy, err := failurePolicy(onFailure)
	if err != nil {
		return err
	}
	if err := app.Conf.ValidateProvision(); err != nil {
		return err
	}
	if nodeVersion != "" {
		if nodeVersion, err = release.CleanVersion(nodeVersion); err != nil {
			return err
		}
	}

	network, err := networkArg(args)
	if errors.Is(err, constants.ErrNoNetworkName) {
		network = provision.DefaultNetworkName()
	} else if err != nil {
		return err
	}
	ux.Logger.PrintToUser("Provisioning network %s in %s", network, app.Conf.Provision.AWSRegion)

	ctx := cmd.Context()
	p, err := newProvisioner(ctx)
	if err != nil {
		return err
	}
	rec, err := p.Provision(ctx, provision.Request{
		Network:   network,
		Size:      size,
		Version:   nodeVersion,
		Params:    stackParams(app.Conf, network),
		Force:     force,
		OnFailure: policy,
	})
	if err != nil {
		return err
	}
	ux.Logger.GreenCheckmarkToUser("Network %s is %s with %d nodes", rec.Name, rec.Status, len(rec.Addresses))

	if setAsDefault {
		if err := app.WriteDefaultNetwork(network); err != nil {
			return err
		}
	}
	if noBootstrap || rec.Status != models.StatusReady {
		return nil
	}
	return collect(cmd, network)
}
