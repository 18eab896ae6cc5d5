// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/luxfi/hydra/pkg/constants"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

type Config struct {
	Hydra     HydraConfig     `mapstructure:"hydra" yaml:"hydra"`
	Provision ProvisionConfig `mapstructure:"provision" yaml:"provision"`
	Loom      LoomConfig      `mapstructure:"loom" yaml:"loom"`
	Release   ReleaseConfig   `mapstructure:"release" yaml:"release"`
}

type HydraConfig struct {
	Workdir            string `mapstructure:"workdir" yaml:"workdir"`
	ChannelURL         string `mapstructure:"channel_url" yaml:"channel_url"`
	BinaryName         string `mapstructure:"binary_name" yaml:"binary_name"`
	ValidatorMetrics   bool   `mapstructure:"validator_metrics" yaml:"validator_metrics"`
	DefaultNetworkFile string `mapstructure:"default_network_file" yaml:"default_network_file"`
}

type ProvisionConfig struct {
	AWSProfile   string `mapstructure:"aws_profile" yaml:"aws_profile"`
	AWSRegion    string `mapstructure:"aws_region" yaml:"aws_region"`
	KeyName      string `mapstructure:"aws_ec2_key_name" yaml:"aws_ec2_key_name"`
	KeyPath      string `mapstructure:"aws_ec2_key_path" yaml:"aws_ec2_key_path"`
	AMI          string `mapstructure:"aws_ec2_ami_id" yaml:"aws_ec2_ami_id"`
	InstanceType string `mapstructure:"aws_ec2_instance_type" yaml:"aws_ec2_instance_type"`

	// Existing networking. When VPCID is empty the stack creates its own.
	VPCID              string `mapstructure:"aws_vpc_id" yaml:"aws_vpc_id"`
	SubnetID           string `mapstructure:"aws_subnet_id" yaml:"aws_subnet_id"`
	Subnet2ID          string `mapstructure:"aws_subnet2_id" yaml:"aws_subnet2_id"`
	SecurityGroupID    string `mapstructure:"aws_sg_id" yaml:"aws_sg_id"`
	ALBSecurityGroupID string `mapstructure:"alb_sg_id" yaml:"alb_sg_id"`

	HostedZoneName string `mapstructure:"hosted_zone_name" yaml:"hosted_zone_name"`
	CertificateARN string `mapstructure:"certificate_arn" yaml:"certificate_arn"`
	DistBucket     string `mapstructure:"dist_bucket" yaml:"dist_bucket"`
	InstallCommand string `mapstructure:"install_command" yaml:"install_command"`
	StackPrefix    string `mapstructure:"stack_prefix" yaml:"stack_prefix"`

	PollInterval          time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	SSHUser               string        `mapstructure:"ssh_user" yaml:"ssh_user"`
	SSHPort               uint          `mapstructure:"ssh_port" yaml:"ssh_port"`
	SSHTimeout            time.Duration `mapstructure:"ssh_timeout" yaml:"ssh_timeout"`
	StrictHostKeyChecking bool          `mapstructure:"strict_host_key_checking" yaml:"strict_host_key_checking"`

	Bootstrap BootstrapConfig `mapstructure:"bootstrap" yaml:"bootstrap"`
	DPoS      DPoSConfig      `mapstructure:"dpos" yaml:"dpos"`
	Gateway   GatewayConfig   `mapstructure:"gateway" yaml:"gateway"`
}

type BootstrapConfig struct {
	Attempts    uint          `mapstructure:"attempts" yaml:"attempts"`
	Interval    time.Duration `mapstructure:"interval" yaml:"interval"`
	Parallelism int           `mapstructure:"parallelism" yaml:"parallelism"`
}

type DPoSConfig struct {
	ValidatorCount      int `mapstructure:"validator_count" yaml:"validator_count"`
	ElectionCycleLength int `mapstructure:"election_cycle_length" yaml:"election_cycle_length"`
}

type GatewayConfig struct {
	EthereumURI                   string `mapstructure:"ethereum_uri" yaml:"ethereum_uri"`
	MainnetTGContractHexAddress   string `mapstructure:"mainnet_tg_contract_hex_address" yaml:"mainnet_tg_contract_hex_address"`
	MainnetLCTGContractHexAddress string `mapstructure:"mainnet_lctg_contract_hex_address" yaml:"mainnet_lctg_contract_hex_address"`
	MainnetPollInterval           int    `mapstructure:"mainnet_poll_interval" yaml:"mainnet_poll_interval"`
	DAppChainPollInterval         int    `mapstructure:"dappchain_poll_interval" yaml:"dappchain_poll_interval"`
	OracleLogLevel                string `mapstructure:"oracle_log_level" yaml:"oracle_log_level"`
	OracleStartupDelay            int    `mapstructure:"oracle_startup_delay" yaml:"oracle_startup_delay"`
	OracleReconnectInterval       int    `mapstructure:"oracle_reconnect_interval" yaml:"oracle_reconnect_interval"`
	FirstMainnetBlockNum          int64  `mapstructure:"first_mainnet_block_num" yaml:"first_mainnet_block_num"`
}

type LoomConfig struct {
	LoomLogLevel       string `mapstructure:"loom_log_level" yaml:"loom_log_level"`
	ContractLogLevel   string `mapstructure:"contract_log_level" yaml:"contract_log_level"`
	BlockchainLogLevel string `mapstructure:"blockchain_log_level" yaml:"blockchain_log_level"`
}

type ReleaseConfig struct {
	AWSProfile      string `mapstructure:"aws_profile" yaml:"aws_profile"`
	DistBucket      string `mapstructure:"dist_bucket" yaml:"dist_bucket"`
	DistDir         string `mapstructure:"distdir" yaml:"distdir"`
	BuildBinaryPath string `mapstructure:"build_binary_path" yaml:"build_binary_path"`
}

// SetDefaults registers every key with viper so environment overrides
// resolve even for keys absent from the config file.
func SetDefaults(v *viper.Viper) {
	defaults := map[string]any{
		"hydra.workdir":              ".",
		"hydra.channel_url":          constants.DefaultChannelURL,
		"hydra.binary_name":          constants.DefaultBinaryName,
		"hydra.validator_metrics":    false,
		"hydra.default_network_file": constants.DefaultNetworkFileName,

		"provision.aws_profile":              constants.DefaultAWSProfile,
		"provision.aws_region":               constants.DefaultAWSRegion,
		"provision.aws_ec2_key_name":         "",
		"provision.aws_ec2_key_path":         constants.DefaultKeyPathTemplate,
		"provision.aws_ec2_ami_id":           constants.DefaultAMI,
		"provision.aws_ec2_instance_type":    constants.DefaultInstanceType,
		"provision.aws_vpc_id":               "",
		"provision.aws_subnet_id":            "",
		"provision.aws_subnet2_id":           "",
		"provision.aws_sg_id":                "",
		"provision.alb_sg_id":                "",
		"provision.hosted_zone_name":         "",
		"provision.certificate_arn":          "",
		"provision.dist_bucket":              "",
		"provision.install_command":          "",
		"provision.stack_prefix":             constants.DefaultStackPrefix,
		"provision.poll_interval":            constants.StackPollInterval,
		"provision.ssh_user":                 constants.RemoteSSHUser,
		"provision.ssh_port":                 constants.SSHDefaultPort,
		"provision.ssh_timeout":              constants.SSHTimeout,
		"provision.strict_host_key_checking": false,
		"provision.bootstrap.attempts":       constants.BootstrapAttempts,
		"provision.bootstrap.interval":       constants.BootstrapAttemptInterval,
		"provision.bootstrap.parallelism":    constants.BootstrapParallelism,

		"provision.dpos.validator_count":       21,
		"provision.dpos.election_cycle_length": 604800,

		"provision.gateway.ethereum_uri":                      "",
		"provision.gateway.mainnet_tg_contract_hex_address":   "",
		"provision.gateway.mainnet_lctg_contract_hex_address": "",
		"provision.gateway.mainnet_poll_interval":             10,
		"provision.gateway.dappchain_poll_interval":           10,
		"provision.gateway.oracle_log_level":                  "info",
		"provision.gateway.oracle_startup_delay":              5,
		"provision.gateway.oracle_reconnect_interval":         5,
		"provision.gateway.first_mainnet_block_num":           1,

		"loom.loom_log_level":       "info",
		"loom.contract_log_level":   "info",
		"loom.blockchain_log_level": "error",

		"release.aws_profile":       constants.DefaultAWSProfile,
		"release.dist_bucket":       "",
		"release.distdir":           "./dist",
		"release.build_binary_path": "./loomchain/" + constants.DefaultBinaryName,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// ConfigureEnv makes HYDRA_<SECTION>_<KEY> override <section>.<key>.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes the viper state into a Config.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed decoding configuration: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// New returns a Config holding only the defaults.
func New() *Config {
	cfg, err := Load(viper.New())
	if err != nil {
		// defaults always decode
		panic(err)
	}
	return cfg
}

// ApplyDefaults fills values derived from other settings.
func (c *Config) ApplyDefaults() {
	if c.Provision.DistBucket == "" {
		c.Provision.DistBucket = c.Provision.AWSProfile + "-network-dist"
	}
	if c.Release.DistBucket == "" {
		c.Release.DistBucket = c.Provision.DistBucket
	}
	if c.Provision.Bootstrap.Parallelism < 1 {
		c.Provision.Bootstrap.Parallelism = 1
	}
	if c.Provision.Bootstrap.Attempts == 0 {
		c.Provision.Bootstrap.Attempts = 1
	}
	c.Hydra.ChannelURL = strings.TrimRight(c.Hydra.ChannelURL, "/")
}

// WorkdirPath returns the absolute working directory.
func (c *Config) WorkdirPath() (string, error) {
	dir, err := homedir.Expand(c.Hydra.Workdir)
	if err != nil {
		return "", err
	}
	return filepath.Abs(dir)
}

// ResolvedKeyPath returns the private key used for SSH. A %s in
// aws_ec2_key_path is replaced by the key pair name.
func (c *Config) ResolvedKeyPath() (string, error) {
	p := c.Provision.KeyPath
	if p == "" {
		p = constants.DefaultKeyPathTemplate
	}
	if strings.Contains(p, "%s") {
		p = fmt.Sprintf(p, c.Provision.KeyName)
	}
	return homedir.Expand(p)
}

// UsesExistingVPC reports whether the stack attaches to operator networking.
func (c *Config) UsesExistingVPC() bool {
	return c.Provision.VPCID != ""
}

// ValidateProvision checks the settings a provisioning run needs before any
// remote call is made.
func (c *Config) ValidateProvision() error {
	p := c.Provision
	if p.KeyName == "" {
		return constants.ErrNoKeyPair
	}
	if p.AMI == "" {
		return constants.ErrNoAMI
	}
	if p.VPCID != "" {
		var missing []string
		for key, val := range map[string]string{
			"aws_subnet_id":  p.SubnetID,
			"aws_subnet2_id": p.Subnet2ID,
			"aws_sg_id":      p.SecurityGroupID,
			"alb_sg_id":      p.ALBSecurityGroupID,
		} {
			if val == "" {
				missing = append(missing, "provision."+key)
			}
		}
		if len(missing) > 0 {
			slices.Sort(missing)
			return fmt.Errorf("aws_vpc_id is set but %s missing", strings.Join(missing, ", "))
		}
	}
	return nil
}

// ValidateSSH checks that an SSH key is configured.
func (c *Config) ValidateSSH() error {
	if c.Provision.KeyName == "" && strings.Contains(c.Provision.KeyPath, "%s") {
		return constants.ErrNoKeyPair
	}
	return nil
}
