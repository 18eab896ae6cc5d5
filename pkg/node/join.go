// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"context"
	"errors"

	"github.com/luxfi/hydra/pkg/nodeconfig"
	"github.com/luxfi/hydra/pkg/snapshot"
)

type JoinOptions struct {
	Version   string
	Destroy   bool
	Jumpstart string
	Configure bool
	Install   bool
	User      string
	Settings  ConfigureOptions
}

// Join takes a fresh machine all the way into network: bootstrap, an
// optional jumpstart, configuration and an optional service install.
func Join(ctx context.Context, c *Client, j *snapshot.Jumpstarter, s *Services, network, nodeDir string, opts JoinOptions) error {
	if err := c.Bootstrap(ctx, nodeDir, opts.Version, opts.Destroy); err != nil {
		return err
	}
	if opts.Jumpstart != "" {
		if err := j.Apply(ctx, network, nodeDir, opts.Jumpstart); err != nil {
			return err
		}
	}
	if !opts.Configure {
		return nil
	}
	settings := opts.Settings
	settings.Version = opts.Version
	if err := c.Configure(ctx, network, nodeDir, settings); err != nil {
		if errors.Is(err, ErrConfigUnavailable) {
			c.ul.Warn("Node %s was bootstrapped but not configured, skipping service installation", nodeDir)
			return nil
		}
		return err
	}
	if !opts.Install {
		return nil
	}
	return s.Install(ctx, nodeconfig.Unit{Network: network, Binary: c.binary, User: opts.User, Dir: nodeDir})
}
