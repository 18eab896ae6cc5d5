// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"fmt"
	"os"

	"github.com/luxfi/hydra/pkg/cloud/awscloud"
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "info",
		Short:        "Show the resolved configuration and the AWS identity in use",
		Args:         cobra.NoArgs,
		RunE:         info,
		SilenceUsage: true,
	}
}

func info(cmd *cobra.Command, _ []string) error {
	out, err := yaml.Marshal(app.Conf)
	if err != nil {
		return err
	}
	ux.Logger.PrintToUser("Working directory: %s", app.GetWorkdir())
	ux.Logger.PrintToUser("Registry:          %s", app.GetRegistryPath())
	ux.Logger.PrintLineSeparator()
	_, _ = fmt.Fprint(cmd.OutOrStdout(), string(out))
	ux.Logger.PrintLineSeparator()

	if key, err := app.Conf.ResolvedKeyPath(); err == nil {
		if _, statErr := os.Stat(key); statErr != nil {
			ux.Logger.Warn("SSH key %s is not readable: %s", key, statErr)
		} else {
			ux.Logger.PrintToUser("SSH key:  %s", key)
		}
	}

	p := app.Conf.Provision
	awsCfg, err := awscloud.LoadConfig(cmd.Context(), p.AWSProfile, p.AWSRegion)
	if err != nil {
		ux.Logger.Warn("%s", err)
		return nil
	}
	id, err := awscloud.CallerIdentity(cmd.Context(), awsCfg)
	if err != nil {
		ux.Logger.Warn("AWS profile %s: %s", p.AWSProfile, err)
		return nil
	}
	ux.Logger.PrintToUser("AWS account: %s", id.Account)
	ux.Logger.PrintToUser("AWS caller:  %s", id.ARN)
	return nil
}
