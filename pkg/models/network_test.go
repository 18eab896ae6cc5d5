// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package models

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to NetworkStatus
		ok       bool
	}{
		{StatusProvisioning, StatusReady, true},
		{StatusProvisioning, StatusCreateFailed, true},
		{StatusProvisioning, StatusProvisioning, true},
		{StatusReady, StatusBootstrapping, true},
		{StatusBootstrapping, StatusBootstrapped, true},
		{StatusBootstrapping, StatusBootstrapIncomplete, true},
		{StatusBootstrapIncomplete, StatusBootstrapped, true},
		{StatusReady, StatusCreateFailed, false},
		{StatusBootstrapping, StatusReady, false},
		{StatusBootstrapped, StatusBootstrapping, false},
		{StatusCreateFailed, StatusReady, false},
		{StatusBootstrapped, StatusBootstrapIncomplete, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			rec := NewNetworkRecord("net", 1, time.Now())
			rec.Status = tt.from
			err := rec.Transition(tt.to)
			if tt.ok {
				require.NoError(t, err)
				require.Equal(t, tt.to, rec.Status)
			} else {
				require.ErrorIs(t, err, ErrInvalidTransition)
				require.Equal(t, tt.from, rec.Status)
			}
		})
	}
}

func TestNodesFollowAddressOrder(t *testing.T) {
	require := require.New(t)

	rec := NewNetworkRecord("net", 3, time.Now())
	require.NoError(rec.SetAddresses([]string{"10.0.0.3", "10.0.0.1", "10.0.0.2"}))
	rec.NodeData["10.0.0.2"] = BootstrapRecord{NodeKey: "b"}
	rec.NodeData["10.0.0.3"] = BootstrapRecord{NodeKey: "c"}

	nodes := rec.Nodes()
	require.Len(nodes, 2)
	require.Equal("10.0.0.3", nodes[0].Address)
	require.Equal(0, nodes[0].Index)
	require.Equal("10.0.0.2", nodes[1].Address)
	require.Equal(2, nodes[1].Index)
	require.Equal([]string{"10.0.0.1"}, rec.Missing())
}

func TestSetAddressesIsWriteOnce(t *testing.T) {
	require := require.New(t)

	rec := NewNetworkRecord("net", 2, time.Now())
	require.NoError(rec.SetAddresses([]string{"a", "b"}))
	require.NoError(rec.SetAddresses([]string{"a", "b"}))
	require.ErrorIs(rec.SetAddresses([]string{"b", "a"}), ErrInvalidRecord)
}

func TestValidate(t *testing.T) {
	rec := NewNetworkRecord("net", 2, time.Now())
	require.NoError(t, rec.Validate())

	rec.Status = StatusReady
	require.ErrorIs(t, rec.Validate(), ErrInvalidRecord)

	rec.Addresses = []string{"a", "b"}
	require.NoError(t, rec.Validate())

	rec.NodeData["c"] = BootstrapRecord{}
	require.ErrorIs(t, rec.Validate(), ErrInvalidRecord)

	rec.Status = "Sideways"
	require.ErrorIs(t, rec.Validate(), ErrInvalidRecord)
}

func TestCloneIsDeep(t *testing.T) {
	rec := NewNetworkRecord("net", 1, time.Now())
	rec.Addresses = []string{"a"}
	rec.Outputs["IP0"] = "a"

	c := rec.Clone()
	c.Addresses[0] = "z"
	c.Outputs["IP0"] = "z"
	c.NodeData["a"] = BootstrapRecord{}

	require.Equal(t, "a", rec.Addresses[0])
	require.Equal(t, "a", rec.Outputs["IP0"])
	require.Empty(t, rec.NodeData)
}

func TestHexAddressFromCallOutput(t *testing.T) {
	require := require.New(t)

	hexAddr, err := HexAddressFromCallOutput("default:0xa1b2c3d4e5f60718293a4b5c6d7e8f9012345678\n")
	require.NoError(err)
	require.Equal("0xa1b2c3d4e5f60718293a4b5c6d7e8f9012345678", hexAddr)

	_, err = HexAddressFromCallOutput("short")
	require.ErrorIs(err, ErrInvalidBootstrap)

	_, err = HexAddressFromCallOutput("default:0xnothexatall")
	require.ErrorIs(err, ErrInvalidBootstrap)
}

func TestBase64IsEncodingOfHex(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "raw")
		hexAddr := "0x" + hex.EncodeToString(raw)

		b64, err := Base64FromHexAddress(hexAddr)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		decoded, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if "0x"+hex.EncodeToString(decoded) != hexAddr {
			t.Fatalf("round trip mismatch: %s -> %s", hexAddr, b64)
		}

		rec := BootstrapRecord{PublicKey: "pk", NodeKey: "nk", HexAddress: hexAddr, Base64Address: b64}
		if err := rec.Validate(); err != nil {
			t.Fatalf("validate: %v", err)
		}
	})
}

func TestParseBootstrapRecord(t *testing.T) {
	require := require.New(t)

	rec, err := ParseBootstrapRecord([]byte(`{
  "bootstrapped": "Mon Jan  2 15:04:05 2006",
  "address": "ABCDEF",
  "hex_address": "0x0102",
  "b64_address": "AQI=",
  "pubkey": "pub",
  "nodekey": "node",
  "shipchain_version": null,
  "by": "hydra-bootstrap-1.0.0"
}`))
	require.NoError(err)
	require.Equal("node", rec.NodeKey)
	require.Empty(rec.SoftwareVersion)

	_, err = ParseBootstrapRecord([]byte(`{"hex_address": "0x0102", "b64_address": "AAAA", "pubkey": "p", "nodekey": "n"}`))
	require.True(errors.Is(err, ErrInvalidBootstrap))

	_, err = ParseBootstrapRecord([]byte(`{"pubkey": `))
	require.ErrorIs(err, ErrInvalidBootstrap)
}
