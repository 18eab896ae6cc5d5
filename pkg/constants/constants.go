// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package constants

import (
	"time"
)

const (
	DefaultPerms755        = 0o755
	WriteReadReadPerms     = 0o644
	WriteReadUserOnlyPerms = 0o600

	BaseDirName = ".hydra"
	LogDir      = "logs"
	LogFileName = "hydra.log"

	MaxLogFileSize   = 50
	MaxNumOfLogFiles = 5
	RetainOldFiles   = 0 // retain all old log files

	DefaultConfigFileName = "hydra"
	DefaultConfigFileType = "yaml"
	EnvPrefix             = "HYDRA"
	EnvNetworkName        = "HYDRA_NETWORK"
	DotEnvFileName        = ".env"

	RegistryFileName       = "networks.json"
	JournalFileName        = "journal.db"
	DefaultNetworkFileName = ".hydra-network"
	NetworksDirName        = "networks"
	PublishedRecordName    = "hydra.json"

	// node directory layout
	BootstrapFileName     = ".bootstrap.json"
	ChainGenesisPath      = "chaindata/config/genesis.json"
	PrivValidatorPath     = "chaindata/config/priv_validator.json"
	EngineConfigPath      = "chaindata/config/config.toml"
	AppGenesisFileName    = "genesis.json"
	ChainConfigFileName   = "loom.yaml"
	StartupScriptName     = "start_blockchain.sh"
	NodePubKeyFileName    = "node_pub.key"
	NodePrivKeyFileName   = "node_priv.key"
	NodeAddrB64FileName   = "node_addr.b64"
	JumpstartIndexName    = "jumps.json"
	JumpstartPrefix       = "jumpstart"
	ReleaseLatestPrefix   = "latest"
	ReleaseArchivePrefix  = "archive"
	ReleaseManifestName   = "manifest.json"
	DefaultBinaryName     = "shipchain"
	DefaultChannelURL     = "https://shipchain-network-dist.s3.amazonaws.com"
	SystemdUnitDir        = "/etc/systemd/system"
	DefaultServiceUser    = "ubuntu"
	GenesisTimeFixed      = "1970-01-01T00:00:00Z"
	ValidatorPower        = "1000"
	ValidatorPubKeyType   = "tendermint/PubKeyEd25519"
	DefaultChainID        = "default"
	P2PPort               = 46656
	RPCPort               = 46657
	ProxyAppPort          = 46658
	ExternalIPServiceURL  = "https://ifconfig.co"
	ValidatorInfoFileName = ".validator-info.json"
	MetricsDatabaseURL    = "https://metrics.network.shipchain.io:8086"
	TelegrafSyslogPort    = 6514
	RsyslogDropInPath     = "/etc/rsyslog.d/50-telegraf.conf"
	TelegrafConfigPath    = "/etc/telegraf/telegraf.conf"
	InfluxAptListPath     = "/etc/apt/sources.list.d/influxdb.list"
	InfluxRepoURL         = "https://repos.influxdata.com"
	NetworkNameMaxLength  = 100
	DefaultStackPrefix    = "shipchain"
	DefaultNetworkIDChars = 6
	DefaultNetworkSize    = 4

	// AWS defaults
	DefaultAWSProfile      = "shipchain"
	DefaultAWSRegion       = "us-east-1"
	DefaultAMI             = "ami-0a313d6098716f372"
	DefaultInstanceType    = "m5.xlarge"
	DefaultKeyPathTemplate = "~/.ssh/%s.pem"

	// SSH constants
	RemoteSSHUser  = "ubuntu"
	SSHDefaultPort = 22
	SSHTimeout     = 30 * time.Second

	// Provisioning and bootstrap waits
	StackPollInterval        = 10 * time.Second
	StackSlowWarnAfter       = 10 * time.Minute
	BootstrapAttempts        = 10
	BootstrapAttemptInterval = 30 * time.Second
	BootstrapParallelism     = 1

	APIRequestTimeout      = 30 * time.Second
	APIRequestLargeTimeout = 2 * time.Hour
)

// JumpstartDataDirs are the only node directories a jumpstart may replace.
var JumpstartDataDirs = []string{"app.db", "receipts_db", "chaindata/data"}

// OracleBinaries are fetched alongside the node binary during bootstrap.
var OracleBinaries = []string{"tgoracle", "loomcoin_tgoracle"}
