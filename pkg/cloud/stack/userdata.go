// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stack

import (
	"fmt"
	"strings"

	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/ssh"
)

// defaultInstall fetches the hydra binary from the distribution channel.
func defaultInstall(channelURL string) string {
	if channelURL == "" {
		channelURL = constants.DefaultChannelURL
	}
	src := strings.TrimRight(channelURL, "/") + "/" + constants.ReleaseLatestPrefix + "/hydra"
	return fmt.Sprintf("curl -fsSL %s -o /usr/local/bin/hydra && chmod +x /usr/local/bin/hydra", ssh.Quote(src))
}

// UserData returns the boot script lines of a node instance. The node joins
// the network without configuring it; configuration happens once every node
// has reported its bootstrap data.
func UserData(p Params) []string {
	install := p.InstallCommand
	if install == "" {
		install = defaultInstall(p.ChannelURL)
	}
	join := ssh.NewCommand("hydra", "client", "join-network",
		"--name="+p.NetworkName, "--set-default", "--install", "--no-configure")
	if p.ChannelURL != "" {
		join.Args = append(join.Args, "--channel-url="+p.ChannelURL)
	}
	if p.Version != "" {
		join.Args = append(join.Args, "--version="+p.Version)
	}
	return []string{
		"#!/bin/bash -xe\n",
		"apt update -y -q\n",
		"apt install -y -q htop tmux jq curl || true\n",
		install + "\n",
		fmt.Sprintf("su -l -c %s %s\n", ssh.Quote(join.String()), constants.RemoteSSHUser),
	}
}
