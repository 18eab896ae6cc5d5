// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/luxfi/hydra/pkg/constants"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	require := require.New(t)
	cfg := New()

	require.Equal(constants.StackPollInterval, cfg.Provision.PollInterval)
	require.Equal(uint(10), cfg.Provision.Bootstrap.Attempts)
	require.Equal(30*time.Second, cfg.Provision.Bootstrap.Interval)
	require.Equal(1, cfg.Provision.Bootstrap.Parallelism)
	require.Equal("ubuntu", cfg.Provision.SSHUser)
	require.Equal("shipchain-network-dist", cfg.Provision.DistBucket)
	require.Equal(cfg.Provision.DistBucket, cfg.Release.DistBucket)
	require.False(cfg.UsesExistingVPC())
}

func TestLoadFromFileAndEnv(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "hydra.yaml")
	require.NoError(os.WriteFile(path, []byte(`
hydra:
  channel_url: https://dist.example.com/
provision:
  aws_ec2_key_name: ops
  bootstrap:
    attempts: 4
    interval: 5s
    parallelism: 3
`), 0o644))

	t.Setenv("HYDRA_PROVISION_AWS_REGION", "eu-west-1")

	v := viper.New()
	v.SetConfigFile(path)
	ConfigureEnv(v)
	require.NoError(v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(err)
	require.Equal("https://dist.example.com", cfg.Hydra.ChannelURL)
	require.Equal("ops", cfg.Provision.KeyName)
	require.Equal("eu-west-1", cfg.Provision.AWSRegion)
	require.Equal(uint(4), cfg.Provision.Bootstrap.Attempts)
	require.Equal(5*time.Second, cfg.Provision.Bootstrap.Interval)
	require.Equal(3, cfg.Provision.Bootstrap.Parallelism)
}

func TestResolvedKeyPath(t *testing.T) {
	require := require.New(t)
	home, err := homedir.Dir()
	require.NoError(err)

	cfg := New()
	cfg.Provision.KeyName = "ops"
	path, err := cfg.ResolvedKeyPath()
	require.NoError(err)
	require.Equal(filepath.Join(home, ".ssh", "ops.pem"), path)

	cfg.Provision.KeyPath = "/etc/keys/fixed.pem"
	path, err = cfg.ResolvedKeyPath()
	require.NoError(err)
	require.Equal("/etc/keys/fixed.pem", path)
}

func TestValidateProvision(t *testing.T) {
	require := require.New(t)

	cfg := New()
	require.ErrorIs(cfg.ValidateProvision(), constants.ErrNoKeyPair)
	require.ErrorIs(cfg.ValidateSSH(), constants.ErrNoKeyPair)

	cfg.Provision.KeyName = "ops"
	require.NoError(cfg.ValidateProvision())
	require.NoError(cfg.ValidateSSH())

	cfg.Provision.AMI = ""
	require.ErrorIs(cfg.ValidateProvision(), constants.ErrNoAMI)

	cfg.Provision.AMI = "ami-1"
	cfg.Provision.VPCID = "vpc-1"
	cfg.Provision.SubnetID = "subnet-1"
	err := cfg.ValidateProvision()
	require.ErrorContains(err, "provision.alb_sg_id, provision.aws_sg_id, provision.aws_subnet2_id missing")
}
