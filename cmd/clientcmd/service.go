// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package clientcmd

import (
	"context"

	"github.com/luxfi/hydra/pkg/node"
	"github.com/luxfi/hydra/pkg/nodeconfig"
	"github.com/spf13/cobra"
)

type serviceAction func(s *node.Services, ctx context.Context, u nodeconfig.Unit) error

func newServiceCmds() []*cobra.Command {
	actions := []struct {
		use, short string
		run        serviceAction
	}{
		{"install-service", "Install, enable and start the systemd unit of the node", (*node.Services).Install},
		{"uninstall-service", "Stop, disable and remove the systemd unit of the node", (*node.Services).Uninstall},
		{"start", "Start the node service", (*node.Services).Start},
		{"stop", "Stop the node service, or the node process when no unit is installed", (*node.Services).Stop},
		{"restart", "Restart the node service", (*node.Services).Restart},
	}
	cmds := make([]*cobra.Command, 0, len(actions))
	for _, a := range actions {
		run := a.run
		cmd := &cobra.Command{
			Use:          a.use,
			Short:        a.short,
			Args:         cobra.NoArgs,
			SilenceUsage: true,
			RunE: func(cmd *cobra.Command, _ []string) error {
				network, nodeDir, err := resolveNetwork()
				if err != nil {
					return err
				}
				user, _ := cmd.Flags().GetString("user")
				return run(newServices(), cmd.Context(), unitFor(network, nodeDir, user))
			},
		}
		cmd.Flags().String("user", "", "user the service runs as (default provision.ssh_user)")
		cmds = append(cmds, cmd)
	}
	return cmds
}
