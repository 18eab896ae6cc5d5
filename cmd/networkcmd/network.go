// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package networkcmd

import (
	"context"
	"os"

	"github.com/luxfi/hydra/pkg/application"
	"github.com/luxfi/hydra/pkg/bootstrap"
	"github.com/luxfi/hydra/pkg/cloud/awscloud"
	"github.com/luxfi/hydra/pkg/cloud/stack"
	"github.com/luxfi/hydra/pkg/config"
	"github.com/luxfi/hydra/pkg/journal"
	"github.com/luxfi/hydra/pkg/provision"
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/spf13/cobra"
)

var (
	app *application.Hydra
	jrn *journal.Journal
)

// NewCmd creates the network command for operating on provisioned networks.
func NewCmd(injectedApp *application.Hydra) *cobra.Command {
	app = injectedApp
	cmd := &cobra.Command{
		Use:   "network",
		Short: "Provision and configure validator networks",
		Long: `The network command suite runs on the operator's machine.

COMMANDS:

  provision         Create the AWS stack of a network and collect node data
  bootstrap         Collect bootstrap data from nodes that have none yet
  configure         Generate genesis, chain config and node start files
  publish           Upload the network configuration to the dist bucket
  deprovision       Delete a network's stack and registry entry
  deprovision-all   Delete every registered network
  ssh-first-node    Open an interactive shell on the first node
  run-on-all-nodes  Run a shell command on every node
  list              List registered networks
  status            Show one network and its nodes
  history           Show the status transitions of a network
  set-default       Save the network used when none is given

NOTES:

  - The registry lives in hydra.json under the working directory
  - Generated files are written to networks/<name>/ under the working directory`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newProvisionCmd())
	cmd.AddCommand(newBootstrapCmd())
	cmd.AddCommand(newConfigureCmd())
	cmd.AddCommand(newPublishCmd())
	cmd.AddCommand(newDeprovisionCmd())
	cmd.AddCommand(newDeprovisionAllCmd())
	cmd.AddCommand(newSSHFirstNodeCmd())
	cmd.AddCommand(newRunOnAllNodesCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newSetDefaultCmd())

	return cmd
}

// SetJournal makes the transition journal available to 'network history'.
func SetJournal(j *journal.Journal) {
	jrn = j
}

func networkArg(args []string) (string, error) {
	explicit := ""
	if len(args) > 0 {
		explicit = args[0]
	}
	return app.ResolveNetworkName(explicit)
}

func newProvisioner(ctx context.Context) (*provision.Provisioner, error) {
	p := app.Conf.Provision
	awsCfg, err := awscloud.LoadConfig(ctx, p.AWSProfile, p.AWSRegion)
	if err != nil {
		return nil, err
	}
	return provision.New(
		awscloud.NewStacks(awsCfg, map[string]string{"app": "hydra"}),
		app.Registry(),
		app.Prompt,
		ux.Logger,
		app.Log,
		provision.WithPollInterval(p.PollInterval),
		provision.WithKeyPairChecker(awscloud.NewKeyPairs(awsCfg)),
	), nil
}

func newCollector() (*bootstrap.Collector, error) {
	exec, err := app.Executor()
	if err != nil {
		return nil, err
	}
	b := app.Conf.Provision.Bootstrap
	policy := bootstrap.Policy{Attempts: b.Attempts, Interval: b.Interval, Parallelism: b.Parallelism}
	return bootstrap.NewCollector(exec, app.Registry(), ux.Logger, app.Log, policy, os.Stdout), nil
}

// stackParams maps the provision section of the config to template inputs.
func stackParams(conf *config.Config, network string) stack.Params {
	p := conf.Provision
	params := stack.Params{
		StackName:      stack.Name(p.StackPrefix, network),
		AMI:            p.AMI,
		InstanceType:   p.InstanceType,
		KeyName:        p.KeyName,
		ChannelURL:     conf.Hydra.ChannelURL,
		InstallCommand: p.InstallCommand,
		DistBucket:     p.DistBucket,
		HostedZoneName: p.HostedZoneName,
		CertificateARN: p.CertificateARN,
	}
	if conf.UsesExistingVPC() {
		params.Existing = &stack.ExistingNetwork{
			VPCID:              p.VPCID,
			SubnetID:           p.SubnetID,
			Subnet2ID:          p.Subnet2ID,
			SecurityGroupID:    p.SecurityGroupID,
			ALBSecurityGroupID: p.ALBSecurityGroupID,
		}
	}
	return params
}
