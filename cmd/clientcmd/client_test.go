// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package clientcmd

import (
	"testing"

	"github.com/luxfi/hydra/pkg/nodeconfig"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestParsePeers(t *testing.T) {
	require := require.New(t)

	got, err := parsePeers([]string{"nk1@10.0.0.1", "nk2@10.0.0.2"})
	require.NoError(err)
	require.Equal([]nodeconfig.Peer{
		{Address: "10.0.0.1", NodeKey: "nk1"},
		{Address: "10.0.0.2", NodeKey: "nk2"},
	}, got)

	for _, bad := range []string{"10.0.0.1", "@10.0.0.1", "nk1@"} {
		_, err := parsePeers([]string{bad})
		require.ErrorContains(err, bad)
	}
}

func TestServiceCommands(t *testing.T) {
	var names []string
	for _, c := range newServiceCmds() {
		names = append(names, c.Name())
		require.NotNil(t, c.Flags().Lookup("user"))
	}
	require.Equal(t, []string{"install-service", "uninstall-service", "start", "stop", "restart"}, names)
}

func TestConfigureFlagDefaults(t *testing.T) {
	for _, cmd := range []*cobra.Command{newConfigureCmd(), newJoinCmd()} {
		t.Run(cmd.Name(), func(t *testing.T) {
			require := require.New(t)
			require.Equal("true", cmd.Flags().Lookup("pex").DefValue)
			require.Equal("false", cmd.Flags().Lookup("addr-book-strict").DefValue)
			require.Equal("false", cmd.Flags().Lookup("private-peers").DefValue)

			require.NoError(cmd.Flags().Parse([]string{"--pex=false"}))
			require.False(pex)
			pex = true
		})
	}
}
