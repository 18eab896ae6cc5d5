// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/genesis"
	"github.com/luxfi/hydra/pkg/nodeconfig"
	"github.com/luxfi/hydra/pkg/publish"
	"go.uber.org/zap"
)

// ErrConfigUnavailable means the published configuration of a network could
// not be fetched. The node directory is left untouched.
var ErrConfigUnavailable = errors.New("network configuration unavailable")

type ConfigureOptions struct {
	// Peers overrides the peers of the published record.
	Peers          []nodeconfig.Peer
	Version        string
	Pex            bool
	AddrBookStrict bool
	PrivatePeers   bool
	// ValidatorMetrics turns on the prometheus endpoint and the telegraf
	// reporting set up by ConfigureMetrics.
	ValidatorMetrics bool
}

// Configure installs the published configuration of network into nodeDir,
// patches the engine config and writes the start script. Everything is
// fetched before the first file is written.
func (c *Client) Configure(ctx context.Context, network, nodeDir string, opts ConfigureOptions) error {
	if _, err := os.Stat(nodeDir); err != nil {
		return fmt.Errorf("%w: %s", constants.ErrMissingNodeDir, nodeDir)
	}

	peers := opts.Peers
	if len(peers) == 0 {
		rec, err := publish.FetchRecord(ctx, c.channel, network)
		if err != nil {
			return c.unavailable(network, err)
		}
		peers = nodeconfig.PeersFromRecord(rec)
	}
	if len(peers) == 0 {
		return c.unavailable(network, fmt.Errorf("network %s has no bootstrapped peers", network))
	}
	files, err := publish.FetchFiles(ctx, c.channel, network)
	if err != nil {
		return c.unavailable(network, err)
	}
	if err := validateFiles(files); err != nil {
		return c.unavailable(network, err)
	}
	for _, p := range peers {
		c.log.Info("peer", zap.String("network", network), zap.String("address", p.Address), zap.String("nodekey", p.NodeKey))
	}

	self, err := c.UpdateHelperFiles(ctx, nodeDir, opts.Version)
	if err != nil {
		return err
	}
	for _, rel := range publish.Files {
		path := filepath.Join(nodeDir, rel)
		if err := os.MkdirAll(filepath.Dir(path), constants.DefaultPerms755); err != nil {
			return err
		}
		if err := os.WriteFile(path, files[rel], constants.WriteReadReadPerms); err != nil {
			return fmt.Errorf("failed writing %s: %w", rel, err)
		}
		c.ul.PrintToUser("Installed %s", rel)
	}

	if err := c.patchEngineConfig(ctx, nodeDir, peers, opts); err != nil {
		return err
	}

	script, err := nodeconfig.StartScript(c.binary, peers, self.NodeKey)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(nodeDir, constants.StartupScriptName), script, constants.DefaultPerms755); err != nil {
		return err
	}
	c.ul.GreenCheckmarkToUser("Configured %s for network %s (%d nodes)", nodeDir, network, len(peers))

	if !opts.ValidatorMetrics {
		return nil
	}
	err = c.ConfigureMetrics(ctx, nodeDir)
	if errors.Is(err, ErrNoValidatorInfo) {
		c.ul.Warn("Skipping metrics reporting: %v", err)
		return nil
	}
	return err
}

func (c *Client) unavailable(network string, err error) error {
	c.ul.Warn("Unable to get configuration of network %s: %v", network, err)
	return fmt.Errorf("%w: %w", ErrConfigUnavailable, err)
}

func validateFiles(files map[string][]byte) error {
	for _, rel := range []string{constants.ChainGenesisPath, constants.AppGenesisFileName} {
		if !json.Valid(files[rel]) {
			return fmt.Errorf("published %s is not valid JSON", rel)
		}
	}
	_, err := genesis.ParseChainConfig(files[constants.ChainConfigFileName])
	return err
}

func (c *Client) patchEngineConfig(ctx context.Context, nodeDir string, peers []nodeconfig.Peer, opts ConfigureOptions) error {
	path := filepath.Join(nodeDir, constants.EngineConfigPath)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed reading %s: %w", constants.EngineConfigPath, err)
	}
	ip, err := c.externalIP(ctx)
	if err != nil {
		c.ul.Warn("Leaving p2p.external_address unchanged: %v", err)
		ip = ""
	}
	eo := nodeconfig.EngineOptions{
		ExternalIP:     ip,
		Pex:            opts.Pex,
		AddrBookStrict: opts.AddrBookStrict,
		Prometheus:     opts.ValidatorMetrics,
	}
	if opts.PrivatePeers {
		eo.PrivatePeerIDs = nodeconfig.PrivatePeerIDs(peers)
	}
	patched, changes, err := nodeconfig.PatchEngineConfig(data, eo)
	if err != nil {
		return err
	}
	for _, ch := range changes {
		c.ul.Info("Editing %s: %s = %v", constants.EngineConfigPath, ch.Key, ch.Value)
	}
	return os.WriteFile(path, patched, constants.WriteReadReadPerms)
}
