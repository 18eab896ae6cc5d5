// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package models

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// pubkeyCallPrefixLen is the number of leading characters of the
// `call pubkey` output that precede the address bytes.
const pubkeyCallPrefixLen = 10

var ErrInvalidBootstrap = errors.New("invalid bootstrap record")

// BootstrapRecord is the identity a node reports in its .bootstrap.json.
// HexAddress is canonical; Base64Address is derived from it.
type BootstrapRecord struct {
	Bootstrapped     string `json:"bootstrapped,omitempty"`
	ValidatorAddress string `json:"address"`
	HexAddress       string `json:"hex_address"`
	Base64Address    string `json:"b64_address"`
	PublicKey        string `json:"pubkey"`
	NodeKey          string `json:"nodekey"`
	SoftwareVersion  string `json:"shipchain_version"`
	By               string `json:"by,omitempty"`
}

// HexAddressFromCallOutput turns the output of `<binary> call pubkey` into a
// 0x-prefixed hex address.
func HexAddressFromCallOutput(out string) (string, error) {
	out = strings.TrimSpace(out)
	if len(out) <= pubkeyCallPrefixLen {
		return "", fmt.Errorf("%w: unexpected pubkey output %q", ErrInvalidBootstrap, out)
	}
	addr := out[pubkeyCallPrefixLen:]
	if _, err := hex.DecodeString(addr); err != nil {
		return "", fmt.Errorf("%w: address %q is not hex: %w", ErrInvalidBootstrap, addr, err)
	}
	return "0x" + addr, nil
}

// Base64FromHexAddress encodes the bytes of a hex address in standard base64.
func Base64FromHexAddress(hexAddr string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(hexAddr, "0x"))
	if err != nil {
		return "", fmt.Errorf("%w: address %q is not hex: %w", ErrInvalidBootstrap, hexAddr, err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func (b BootstrapRecord) Validate() error {
	switch {
	case b.PublicKey == "":
		return fmt.Errorf("%w: missing pubkey", ErrInvalidBootstrap)
	case b.NodeKey == "":
		return fmt.Errorf("%w: missing nodekey", ErrInvalidBootstrap)
	case b.HexAddress == "":
		return fmt.Errorf("%w: missing hex_address", ErrInvalidBootstrap)
	}
	b64, err := Base64FromHexAddress(b.HexAddress)
	if err != nil {
		return err
	}
	if b.Base64Address != b64 {
		return fmt.Errorf("%w: b64_address %q does not encode hex_address %q", ErrInvalidBootstrap, b.Base64Address, b.HexAddress)
	}
	return nil
}

// ParseBootstrapRecord decodes and validates a .bootstrap.json document.
func ParseBootstrapRecord(data []byte) (BootstrapRecord, error) {
	var rec BootstrapRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return BootstrapRecord{}, fmt.Errorf("%w: %w", ErrInvalidBootstrap, err)
	}
	if err := rec.Validate(); err != nil {
		return BootstrapRecord{}, err
	}
	return rec, nil
}
