// Copyright (C) 2022-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package genesis assembles the documents every node of a network must
// start from identically: the consensus engine genesis, the application
// genesis and the node chain config.
package genesis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/luxfi/hydra/pkg/config"
	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/models"
)

var ErrNoValidators = errors.New("no collected nodes to build a validator set from")

const jsonIndent = "    "

var chainConfigFeatures = []string{"auth:sigtx:eth", "auth:sigtx:default", "tg:check-txhash"}

type PubKey struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Validator is one entry of the engine genesis validator set.
type Validator struct {
	Name   string `json:"name"`
	Power  string `json:"power"`
	PubKey PubKey `json:"pub_key"`
}

// Address is a chain-qualified account address.
type Address struct {
	ChainID string `json:"chain_id"`
	Local   string `json:"local"`
}

type dposValidator struct {
	PubKey string `json:"pubKey"`
	Power  string `json:"power"`
}

type feature struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Validators returns the engine validator set in address order.
func Validators(nodes []models.NodeEntry) []Validator {
	vals := make([]Validator, 0, len(nodes))
	for _, n := range nodes {
		vals = append(vals, Validator{
			Power:  constants.ValidatorPower,
			PubKey: PubKey{Type: constants.ValidatorPubKeyType, Value: n.Record.PublicKey},
		})
	}
	return vals
}

// OracleAddresses returns the base64 address of every node in address order.
func OracleAddresses(nodes []models.NodeEntry) []Address {
	addrs := make([]Address, 0, len(nodes))
	for _, n := range nodes {
		addrs = append(addrs, Address{ChainID: constants.DefaultChainID, Local: n.Record.Base64Address})
	}
	return addrs
}

func decode(name string, base []byte) (map[string]any, error) {
	doc := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(base))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return doc, nil
}

// Encode renders v as four-space indented JSON with a trailing newline.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", jsonIndent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ChainGenesis rewrites the engine genesis base taken from a node so that
// its validator set is the collected nodes. Unknown fields are kept.
func ChainGenesis(base []byte, nodes []models.NodeEntry) ([]byte, error) {
	if len(nodes) == 0 {
		return nil, ErrNoValidators
	}
	doc, err := decode(constants.ChainGenesisPath, base)
	if err != nil {
		return nil, err
	}
	doc["genesis_time"] = constants.GenesisTimeFixed
	doc["validators"] = Validators(nodes)
	return Encode(doc)
}

// AppGenesis rewrites the contract section of the application genesis:
// the DPoS contract gets the validator set and election params, chainconfig
// gets its features pending, and every gateway is owned by the first node.
func AppGenesis(base []byte, nodes []models.NodeEntry, dpos config.DPoSConfig, gw config.GatewayConfig) ([]byte, error) {
	if len(nodes) == 0 {
		return nil, ErrNoValidators
	}
	doc, err := decode(constants.AppGenesisFileName, base)
	if err != nil {
		return nil, err
	}
	contracts, ok := doc["contracts"].([]any)
	if !ok {
		return nil, fmt.Errorf("%s has no contracts list", constants.AppGenesisFileName)
	}
	oracles := OracleAddresses(nodes)

	for i, c := range contracts {
		contract, ok := c.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s contract %d is not an object", constants.AppGenesisFileName, i)
		}
		name, _ := contract["name"].(string)
		switch {
		case name == "dposV3":
			initArgs := child(contract, "init")
			params := child(initArgs, "params")
			params["validatorCount"] = strconv.Itoa(dpos.ValidatorCount)
			params["electionCycleLength"] = strconv.Itoa(dpos.ElectionCycleLength)
			params["oracleAddress"] = oracles[0]
			vals := make([]dposValidator, 0, len(nodes))
			for _, n := range nodes {
				vals = append(vals, dposValidator{PubKey: n.Record.PublicKey, Power: constants.ValidatorPower})
			}
			initArgs["validators"] = vals
		case name == "chainconfig":
			initArgs := child(contract, "init")
			features := make([]feature, 0, len(chainConfigFeatures))
			for _, f := range chainConfigFeatures {
				features = append(features, feature{Name: f, Status: "WAITING"})
			}
			initArgs["features"] = features
		case strings.Contains(name, "gateway"):
			contract["init"] = map[string]any{
				"owner":                   oracles[0],
				"oracles":                 oracles,
				"first_mainnet_block_num": strconv.FormatInt(gw.FirstMainnetBlockNum, 10),
			}
		}
	}
	return Encode(doc)
}

// child returns parent[key] as an object, creating it when absent.
func child(parent map[string]any, key string) map[string]any {
	if m, ok := parent[key].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	parent[key] = m
	return m
}
