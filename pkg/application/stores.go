// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/luxfi/hydra/pkg/cloud/storage"
	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/ssh"
)

// ChannelStore returns the read side of the distribution channel. A
// file:// channel URL reads from a local directory.
func (app *Hydra) ChannelStore() (storage.Storage, error) {
	url := app.Conf.Hydra.ChannelURL
	if dir, ok := strings.CutPrefix(url, "file://"); ok {
		return storage.NewLocalStorage(&storage.Config{Provider: storage.ProviderLocal, LocalBasePath: dir})
	}
	return storage.NewHTTPStorage(&storage.Config{Provider: storage.ProviderHTTP, BaseURL: url})
}

// DistStore returns the writable distribution bucket. profile selects the
// AWS credentials; an empty profile uses the provisioning profile.
func (app *Hydra) DistStore(ctx context.Context, bucket, profile string) (storage.Storage, error) {
	if bucket == "" {
		bucket = app.Conf.Provision.DistBucket
	}
	if bucket == "" {
		return nil, constants.ErrNoDistBucket
	}
	if profile == "" {
		profile = app.Conf.Provision.AWSProfile
	}
	s, err := storage.New(ctx, &storage.Config{
		Provider:   storage.ProviderS3,
		Bucket:     bucket,
		Region:     app.Conf.Provision.AWSRegion,
		AWSProfile: profile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed opening bucket %s: %w", bucket, err)
	}
	return s, nil
}

func (app *Hydra) SSHConfig() (ssh.Config, error) {
	if err := app.Conf.ValidateSSH(); err != nil {
		return ssh.Config{}, err
	}
	key, err := app.Conf.ResolvedKeyPath()
	if err != nil {
		return ssh.Config{}, err
	}
	p := app.Conf.Provision
	return ssh.Config{
		User:           p.SSHUser,
		Port:           p.SSHPort,
		KeyPath:        key,
		Timeout:        p.SSHTimeout,
		StrictHostKeys: p.StrictHostKeyChecking,
	}, nil
}

// Executor returns the SSH executor for provisioned hosts.
func (app *Hydra) Executor() (ssh.Executor, error) {
	cfg, err := app.SSHConfig()
	if err != nil {
		return nil, err
	}
	return ssh.NewGophExecutor(cfg, app.Log), nil
}
