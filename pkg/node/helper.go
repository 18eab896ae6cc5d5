// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/models"
	"github.com/luxfi/hydra/pkg/version"
	"go.uber.org/zap"
)

type privValidator struct {
	Address string `json:"address"`
	PubKey  struct {
		Value string `json:"value"`
	} `json:"pub_key"`
	PrivKey struct {
		Value string `json:"value"`
	} `json:"priv_key"`
}

func readPrivValidator(nodeDir string) (privValidator, error) {
	var pv privValidator
	data, err := os.ReadFile(filepath.Join(nodeDir, constants.PrivValidatorPath))
	if err != nil {
		return pv, err
	}
	if err := json.Unmarshal(data, &pv); err != nil {
		return pv, fmt.Errorf("failed to parse %s: %w", constants.PrivValidatorPath, err)
	}
	if pv.PubKey.Value == "" || pv.PrivKey.Value == "" {
		return pv, fmt.Errorf("%s has no key pair", constants.PrivValidatorPath)
	}
	return pv, nil
}

// NodeKey returns the p2p node key of the node in nodeDir.
func (c *Client) NodeKey(ctx context.Context, nodeDir string) (string, error) {
	out, err := c.exec(ctx, nodeDir, "nodekey")
	if err != nil {
		return "", fmt.Errorf("failed reading node key: %w", err)
	}
	return strings.TrimSpace(out.Stdout), nil
}

// UpdateHelperFiles derives the identity of the node in nodeDir and writes
// .bootstrap.json and the key files the operator collects.
func (c *Client) UpdateHelperFiles(ctx context.Context, nodeDir, ver string) (models.BootstrapRecord, error) {
	nodeKey, err := c.NodeKey(ctx, nodeDir)
	if err != nil {
		return models.BootstrapRecord{}, err
	}
	pv, err := readPrivValidator(nodeDir)
	if err != nil {
		return models.BootstrapRecord{}, err
	}
	out, err := c.exec(ctx, nodeDir, "call", "pubkey", pv.PubKey.Value)
	if err != nil {
		return models.BootstrapRecord{}, fmt.Errorf("failed deriving address: %w", err)
	}
	hexAddr, err := models.HexAddressFromCallOutput(out.Stdout)
	if err != nil {
		return models.BootstrapRecord{}, err
	}
	b64Addr, err := models.Base64FromHexAddress(hexAddr)
	if err != nil {
		return models.BootstrapRecord{}, err
	}

	rec := models.BootstrapRecord{
		Bootstrapped:     c.now().UTC().Format(time.ANSIC),
		ValidatorAddress: pv.Address,
		HexAddress:       hexAddr,
		Base64Address:    b64Addr,
		PublicKey:        pv.PubKey.Value,
		NodeKey:          nodeKey,
		SoftwareVersion:  ver,
		By:               version.By(),
	}
	c.ul.PrintToUser("Your validator address is: %s", rec.ValidatorAddress)
	c.ul.PrintToUser("Your validator public key is: %s", rec.PublicKey)
	c.ul.PrintToUser("Your node key is: %s", rec.NodeKey)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return models.BootstrapRecord{}, err
	}
	files := []struct {
		name string
		data []byte
		perm os.FileMode
	}{
		{constants.BootstrapFileName, data, constants.WriteReadReadPerms},
		{constants.NodePubKeyFileName, []byte(rec.PublicKey), constants.WriteReadReadPerms},
		{constants.NodePrivKeyFileName, []byte(pv.PrivKey.Value), constants.WriteReadUserOnlyPerms},
		{constants.NodeAddrB64FileName, []byte(rec.Base64Address), constants.WriteReadReadPerms},
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(nodeDir, f.name), f.data, f.perm); err != nil {
			return models.BootstrapRecord{}, fmt.Errorf("failed writing %s: %w", f.name, err)
		}
	}
	c.log.Info("helper files written", zap.String("dir", nodeDir), zap.String("hex_address", rec.HexAddress))
	return rec, nil
}
