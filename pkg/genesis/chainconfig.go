// Copyright (C) 2022-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package genesis

import (
	"bytes"
	"fmt"

	"github.com/luxfi/hydra/pkg/config"
	"github.com/luxfi/hydra/pkg/constants"
	"gopkg.in/yaml.v3"
)

type Toggle struct {
	ContractEnabled bool `yaml:"ContractEnabled"`
}

type Gateway struct {
	ContractEnabled           bool   `yaml:"ContractEnabled"`
	OracleEnabled             bool   `yaml:"OracleEnabled"`
	EthereumURI               string `yaml:"EthereumURI"`
	MainnetContractHexAddress string `yaml:"MainnetContractHexAddress"`
	MainnetPrivateKeyPath     string `yaml:"MainnetPrivateKeyPath"`
	MainnetPollInterval       int    `yaml:"MainnetPollInterval"`
	DAppChainPrivateKeyPath   string `yaml:"DAppChainPrivateKeyPath"`
	DAppChainReadURI          string `yaml:"DAppChainReadURI"`
	DAppChainWriteURI         string `yaml:"DAppChainWriteURI"`
	DAppChainEventsURI        string `yaml:"DAppChainEventsURI"`
	DAppChainPollInterval     int    `yaml:"DAppChainPollInterval"`
	OracleLogLevel            string `yaml:"OracleLogLevel"`
	OracleLogDestination      string `yaml:"OracleLogDestination"`
	OracleStartupDelay        int    `yaml:"OracleStartupDelay"`
	OracleReconnectInterval   int    `yaml:"OracleReconnectInterval"`
}

type AuthChain struct {
	TxType      string `yaml:"TxType"`
	AccountType int    `yaml:"AccountType,omitempty"`
}

type Auth struct {
	Chains map[string]AuthChain `yaml:"Chains"`
}

// ChainConfig is the loom.yaml read by the node binary.
type ChainConfig struct {
	ChainID                 string  `yaml:"ChainID"`
	RegistryVersion         int     `yaml:"RegistryVersion"`
	DPOSVersion             int     `yaml:"DPOSVersion"`
	ReceiptsVersion         int     `yaml:"ReceiptsVersion"`
	LoomLogLevel            string  `yaml:"LoomLogLevel,omitempty"`
	ContractLogLevel        string  `yaml:"ContractLogLevel,omitempty"`
	BlockchainLogLevel      string  `yaml:"BlockchainLogLevel,omitempty"`
	EVMAccountsEnabled      bool    `yaml:"EVMAccountsEnabled"`
	TransferGateway         Gateway `yaml:"TransferGateway"`
	LoomCoinTransferGateway Gateway `yaml:"LoomCoinTransferGateway"`
	ChainConfig             Toggle  `yaml:"ChainConfig"`
	Auth                    Auth    `yaml:"Auth"`
}

func gateway(name, mainnetContract string, gw config.GatewayConfig) Gateway {
	rpc := fmt.Sprintf("localhost:%d", constants.ProxyAppPort)
	return Gateway{
		ContractEnabled:           true,
		EthereumURI:               gw.EthereumURI,
		MainnetContractHexAddress: mainnetContract,
		MainnetPrivateKeyPath:     "oracle_eth_priv.key",
		MainnetPollInterval:       gw.MainnetPollInterval,
		DAppChainPrivateKeyPath:   constants.NodePrivKeyFileName,
		DAppChainReadURI:          "http://" + rpc + "/query",
		DAppChainWriteURI:         "http://" + rpc + "/rpc",
		DAppChainEventsURI:        "ws://" + rpc + "/queryws",
		DAppChainPollInterval:     gw.DAppChainPollInterval,
		OracleLogLevel:            gw.OracleLogLevel,
		OracleLogDestination:      "file://" + name + "-oracle.log",
		OracleStartupDelay:        gw.OracleStartupDelay,
		OracleReconnectInterval:   gw.OracleReconnectInterval,
	}
}

// NetworkChainConfig returns the loom.yaml shared by every node of a network.
func NetworkChainConfig(loom config.LoomConfig, gw config.GatewayConfig) ChainConfig {
	return ChainConfig{
		ChainID:                 constants.DefaultChainID,
		RegistryVersion:         2,
		DPOSVersion:             3,
		ReceiptsVersion:         2,
		LoomLogLevel:            loom.LoomLogLevel,
		ContractLogLevel:        loom.ContractLogLevel,
		BlockchainLogLevel:      loom.BlockchainLogLevel,
		EVMAccountsEnabled:      true,
		TransferGateway:         gateway("TransferGateway", gw.MainnetTGContractHexAddress, gw),
		LoomCoinTransferGateway: gateway("LoomCoinTransferGateway", gw.MainnetLCTGContractHexAddress, gw),
		ChainConfig:             Toggle{ContractEnabled: true},
		Auth: Auth{Chains: map[string]AuthChain{
			"default": {TxType: "loom"},
			"eth":     {TxType: "eth", AccountType: 1},
		}},
	}
}

// BootstrapChainConfig is the minimal loom.yaml a node is initialized with
// before it joins a network.
func BootstrapChainConfig() ChainConfig {
	return ChainConfig{
		ChainID:         constants.DefaultChainID,
		RegistryVersion: 2,
		DPOSVersion:     3,
		ReceiptsVersion: 2,
		ChainConfig:     Toggle{ContractEnabled: true},
		Auth: Auth{Chains: map[string]AuthChain{
			"default": {TxType: "loom"},
			"eth":     {TxType: "eth", AccountType: 1},
		}},
	}
}

// Marshal renders c as YAML with four-space indentation.
func (c ChainConfig) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(4)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed encoding %s: %w", constants.ChainConfigFileName, err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ParseChainConfig(data []byte) (ChainConfig, error) {
	var c ChainConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return ChainConfig{}, fmt.Errorf("failed to parse %s: %w", constants.ChainConfigFileName, err)
	}
	return c, nil
}
