// Copyright (C) 2022-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package genesis

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/luxfi/hydra/pkg/config"
	"github.com/luxfi/hydra/pkg/models"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const engineBase = `{
  "genesis_time": "2019-03-04T10:00:00.123Z",
  "chain_id": "default",
  "consensus_params": {"block_size": {"max_bytes": "22020096"}},
  "validators": [{"name": "", "power": "10", "pub_key": {"type": "tendermint/PubKeyEd25519", "value": "stale"}}],
  "app_hash": ""
}`

const appBase = `{
  "contracts": [
    {"vm": "plugin", "format": "plugin", "name": "coin", "location": "coin:1.0.0", "init": {"accounts": []}},
    {"vm": "plugin", "format": "plugin", "name": "dposV3", "location": "dposV3:3.0.0",
     "init": {"params": {"validatorCount": "21", "electionCycleLength": "604800"}, "validators": []}},
    {"vm": "plugin", "format": "plugin", "name": "chainconfig", "location": "chainconfig:1.0.0", "init": {}},
    {"vm": "plugin", "format": "plugin", "name": "gateway", "location": "gateway:2.0.0", "init": null},
    {"vm": "plugin", "format": "plugin", "name": "loomcoin-gateway", "location": "loomcoin-gateway:2.0.0"}
  ]
}`

func network(n int) *models.NetworkRecord {
	rec := models.NewNetworkRecord("alpha", n, time.Now())
	rec.Status = models.StatusBootstrapped
	for i := 0; i < n; i++ {
		addr := fmt.Sprintf("10.0.0.%d", i+1)
		rec.Addresses = append(rec.Addresses, addr)
		rec.NodeData[addr] = models.BootstrapRecord{
			PublicKey:     fmt.Sprintf("pub%d", i),
			NodeKey:       fmt.Sprintf("nk%d", i),
			Base64Address: base64.StdEncoding.EncodeToString([]byte{byte(i)}),
		}
	}
	return rec
}

func TestChainGenesis(t *testing.T) {
	require := require.New(t)
	out, err := ChainGenesis([]byte(engineBase), network(2).Nodes())
	require.NoError(err)

	var doc struct {
		GenesisTime     string          `json:"genesis_time"`
		ChainID         string          `json:"chain_id"`
		ConsensusParams json.RawMessage `json:"consensus_params"`
		Validators      []Validator     `json:"validators"`
	}
	require.NoError(json.Unmarshal(out, &doc))
	require.Equal("1970-01-01T00:00:00Z", doc.GenesisTime)
	require.Equal("default", doc.ChainID)
	require.NotEmpty(doc.ConsensusParams)
	require.Equal([]Validator{
		{Power: "1000", PubKey: PubKey{Type: "tendermint/PubKeyEd25519", Value: "pub0"}},
		{Power: "1000", PubKey: PubKey{Type: "tendermint/PubKeyEd25519", Value: "pub1"}},
	}, doc.Validators)
	require.Contains(string(out), "\n    \"validators\": [")

	_, err = ChainGenesis([]byte(engineBase), nil)
	require.ErrorIs(err, ErrNoValidators)
	_, err = ChainGenesis([]byte("{"), network(1).Nodes())
	require.Error(err)
}

func TestAppGenesis(t *testing.T) {
	require := require.New(t)
	dpos := config.DPoSConfig{ValidatorCount: 4, ElectionCycleLength: 3600}
	gw := config.GatewayConfig{FirstMainnetBlockNum: 7000000}

	out, err := AppGenesis([]byte(appBase), network(3).Nodes(), dpos, gw)
	require.NoError(err)

	var doc struct {
		Contracts []struct {
			Name string         `json:"name"`
			Init map[string]any `json:"init"`
		} `json:"contracts"`
	}
	require.NoError(json.Unmarshal(out, &doc))
	require.Len(doc.Contracts, 5)

	dposInit := doc.Contracts[1].Init
	params := dposInit["params"].(map[string]any)
	require.Equal("4", params["validatorCount"])
	require.Equal("3600", params["electionCycleLength"])
	require.Equal(map[string]any{"chain_id": "default", "local": "AA=="}, params["oracleAddress"])
	require.Len(dposInit["validators"], 3)
	require.Equal(map[string]any{"pubKey": "pub2", "power": "1000"}, dposInit["validators"].([]any)[2])

	require.Len(doc.Contracts[2].Init["features"], 3)

	for _, gwIdx := range []int{3, 4} {
		gwInit := doc.Contracts[gwIdx].Init
		require.Equal("7000000", gwInit["first_mainnet_block_num"])
		require.Len(gwInit["oracles"], 3)
		require.Equal(map[string]any{"chain_id": "default", "local": "AA=="}, gwInit["owner"])
	}
	require.Equal(map[string]any{"accounts": []any{}}, doc.Contracts[0].Init)
}

func TestGenesisIgnoresNodeDataOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "nodes")
		base := network(n)
		perm := rapid.Permutation(base.Addresses).Draw(t, "insertion")

		shuffled := base.Clone()
		shuffled.NodeData = map[string]models.BootstrapRecord{}
		for _, addr := range perm {
			shuffled.NodeData[addr] = base.NodeData[addr]
		}

		want, err := ChainGenesis([]byte(engineBase), base.Nodes())
		require.NoError(t, err)
		got, err := ChainGenesis([]byte(engineBase), shuffled.Nodes())
		require.NoError(t, err)
		require.Equal(t, string(want), string(got))

		dpos := config.DPoSConfig{ValidatorCount: n, ElectionCycleLength: 60}
		wantApp, err := AppGenesis([]byte(appBase), base.Nodes(), dpos, config.GatewayConfig{})
		require.NoError(t, err)
		gotApp, err := AppGenesis([]byte(appBase), shuffled.Nodes(), dpos, config.GatewayConfig{})
		require.NoError(t, err)
		require.Equal(t, string(wantApp), string(gotApp))
	})
}

func TestChainConfigYAML(t *testing.T) {
	require := require.New(t)
	cfg := NetworkChainConfig(
		config.LoomConfig{LoomLogLevel: "info"},
		config.GatewayConfig{EthereumURI: "wss://eth", MainnetTGContractHexAddress: "0xtg", MainnetLCTGContractHexAddress: "0xlctg"},
	)
	out, err := cfg.Marshal()
	require.NoError(err)
	require.Contains(string(out), "ChainID: default\n")
	require.Contains(string(out), "TransferGateway:\n    ContractEnabled: true\n")
	require.Contains(string(out), "OracleLogDestination: file://LoomCoinTransferGateway-oracle.log")

	back, err := ParseChainConfig(out)
	require.NoError(err)
	require.Equal(cfg, back)
	require.Equal("0xlctg", back.LoomCoinTransferGateway.MainnetContractHexAddress)
	require.Equal("http://localhost:46658/query", back.TransferGateway.DAppChainReadURI)
	require.Equal(1, back.Auth.Chains["eth"].AccountType)
}
