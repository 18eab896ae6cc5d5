// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package networkcmd

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/luxfi/hydra/pkg/ssh"
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/spf13/cobra"
)

func newSSHFirstNodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "ssh-first-node [networkName]",
		Short:        "Open an interactive shell on the first node of a network",
		Args:         cobra.MaximumNArgs(1),
		RunE:         sshFirstNode,
		SilenceUsage: true,
	}
}

func sshFirstNode(_ *cobra.Command, args []string) error {
	network, err := networkArg(args)
	if err != nil {
		return err
	}
	rec, err := app.Registry().Get(network)
	if err != nil {
		return err
	}
	if len(rec.Addresses) == 0 {
		return fmt.Errorf("network %s has no node addresses yet (status %s)", network, rec.Status)
	}
	cfg, err := app.SSHConfig()
	if err != nil {
		return err
	}
	argv := cfg.InteractiveArgs(rec.Addresses[0])
	bin, err := exec.LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("ssh client not found: %w", err)
	}
	app.Log.Debug("exec " + strings.Join(argv, " "))
	return execInteractive(bin, argv)
}

func newRunOnAllNodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-on-all-nodes [networkName] -- <command>",
		Short: "Run a shell command on every node of a network",
		Long: `The network run-on-all-nodes command runs a shell command on every node
and prints one row per node. The command fails when any node fails.

  hydra network run-on-all-nodes alpha -- sudo systemctl status alpha`,
		Args:         cobra.MinimumNArgs(1),
		RunE:         runOnAllNodes,
		SilenceUsage: true,
	}
}

func runOnAllNodes(cmd *cobra.Command, args []string) error {
	var nameArgs, commandArgs []string
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		nameArgs, commandArgs = args[:dash], args[dash:]
	} else {
		commandArgs = args
	}
	if len(commandArgs) == 0 {
		return fmt.Errorf("no command given")
	}
	network, err := networkArg(nameArgs)
	if err != nil {
		return err
	}
	rec, err := app.Registry().Get(network)
	if err != nil {
		return err
	}
	executor, err := app.Executor()
	if err != nil {
		return err
	}

	line := strings.Join(commandArgs, " ")
	results, err := ssh.RunAll(cmd.Context(), executor, rec.Addresses, ssh.Shell(line), app.Conf.Provision.Bootstrap.Parallelism)
	if err != nil {
		return err
	}

	table := ux.DefaultTable(cmd.OutOrStdout(), "Node", "Address", "Result", "Output")
	for _, r := range results.GetResults() {
		status, out := "ok", strings.TrimSpace(r.Output)
		if r.Err != nil {
			status, out = "failed", r.Err.Error()
		}
		_ = table.Append([]string{fmt.Sprint(r.Index), r.Address, status, out})
	}
	if err := table.Render(); err != nil {
		return err
	}
	if failed := results.GetErrorHostMap(); len(failed) > 0 {
		return fmt.Errorf("command failed on %d of %d nodes of %s", len(failed), results.Len(), network)
	}
	return nil
}
