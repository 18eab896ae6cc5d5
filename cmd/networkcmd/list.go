// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package networkcmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/hydra/pkg/prompts"
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/spf13/cobra"
)

var errNoJournal = errors.New("transition journal unavailable, see the log for details")

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "list",
		Short:        "List registered networks",
		Args:         cobra.NoArgs,
		RunE:         listNetworks,
		SilenceUsage: true,
	}
}

func listNetworks(cmd *cobra.Command, _ []string) error {
	records := app.Registry().Read()
	if len(records) == 0 {
		ux.Logger.PrintToUser("No networks registered")
		return nil
	}
	def, err := app.ReadDefaultNetwork()
	if err != nil {
		app.Log.Warn("failed reading default network file: " + err.Error())
	}
	table := ux.DefaultTable(cmd.OutOrStdout(), "Network", "Status", "Nodes", "Collected", "Version", "Created")
	for _, name := range app.Registry().Names() {
		rec := records[name]
		label := name
		if name == def {
			label += " *"
		}
		_ = table.Append([]string{
			label,
			rec.Status.String(),
			fmt.Sprintf("%d/%d", len(rec.Addresses), rec.Size),
			fmt.Sprint(len(rec.NodeData)),
			rec.Version,
			rec.CreatedAt.Format(time.RFC3339),
		})
	}
	return table.Render()
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "status [networkName]",
		Short:        "Show a network and the bootstrap data of its nodes",
		Args:         cobra.MaximumNArgs(1),
		RunE:         networkStatus,
		SilenceUsage: true,
	}
}

func networkStatus(cmd *cobra.Command, args []string) error {
	network, err := networkArg(args)
	if err != nil {
		return err
	}
	rec, err := app.Registry().Get(network)
	if err != nil {
		return err
	}
	ux.Logger.PrintToUser("Network:  %s", rec.Name)
	ux.Logger.PrintToUser("Status:   %s", rec.Status)
	if rec.StackID != "" {
		ux.Logger.PrintToUser("Stack:    %s (%s)", rec.StackID, rec.StackStatus)
	}
	ux.Logger.PrintToUser("Nodes:    %d of %d collected", len(rec.NodeData), rec.Size)

	if len(rec.Addresses) == 0 {
		return nil
	}
	table := ux.DefaultTable(cmd.OutOrStdout(), "Node", "Address", "Validator", "Node Key", "Version", "Bootstrapped")
	for i, addr := range rec.Addresses {
		row := []string{fmt.Sprint(i), addr, "-", "-", "-", "-"}
		if data, ok := rec.NodeData[addr]; ok {
			row = []string{fmt.Sprint(i), addr, data.HexAddress, data.NodeKey, data.SoftwareVersion, data.Bootstrapped}
		}
		_ = table.Append(row)
	}
	return table.Render()
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "history [networkName]",
		Short:        "Show the recorded status changes of a network",
		Args:         cobra.MaximumNArgs(1),
		RunE:         networkHistory,
		SilenceUsage: true,
	}
}

func networkHistory(cmd *cobra.Command, args []string) error {
	if jrn == nil {
		return errNoJournal
	}
	network, err := networkArg(args)
	if err != nil {
		return err
	}
	entries, err := jrn.History(cmd.Context(), network)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		ux.Logger.PrintToUser("No recorded changes for network %s", network)
		return nil
	}
	table := ux.DefaultTable(cmd.OutOrStdout(), "Time", "From", "To", "Stack", "Collected")
	for _, e := range entries {
		_ = table.Append([]string{
			e.At.Local().Format(time.DateTime),
			e.From,
			e.To,
			e.StackStatus,
			fmt.Sprintf("%d/%d", e.Collected, e.Size),
		})
	}
	return table.Render()
}

func newSetDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "set-default networkName",
		Short:        "Save the network used when no name is given",
		Args:         cobra.ExactArgs(1),
		RunE:         setDefault,
		SilenceUsage: true,
	}
}

func setDefault(_ *cobra.Command, args []string) error {
	if err := prompts.ValidateNetworkName(args[0]); err != nil {
		return err
	}
	if _, err := app.Registry().Get(args[0]); err != nil {
		ux.Logger.Warn("network %s is not registered here", args[0])
	}
	if err := app.WriteDefaultNetwork(args[0]); err != nil {
		return err
	}
	ux.Logger.GreenCheckmarkToUser("Default network set to %s", args[0])
	return nil
}
