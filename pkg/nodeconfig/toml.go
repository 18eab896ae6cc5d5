// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package nodeconfig

import (
	"fmt"

	"github.com/luxfi/hydra/pkg/constants"
	"github.com/pelletier/go-toml/v2"
)

// EngineOptions are the config.toml settings owned by this tool.
type EngineOptions struct {
	ExternalIP     string
	Pex            bool
	AddrBookStrict bool
	PrivatePeerIDs string
	Prometheus     bool
}

// Change is one key that PatchEngineConfig set.
type Change struct {
	Key   string
	Value any
}

// PatchEngineConfig sets the peering and listen keys of an engine
// config.toml and leaves every other key as it was.
func PatchEngineConfig(data []byte, opts EngineOptions) ([]byte, []Change, error) {
	doc := map[string]any{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", constants.EngineConfigPath, err)
	}

	var changes []Change
	set := func(table, key string, value any) {
		target := doc
		name := key
		if table != "" {
			t, ok := doc[table].(map[string]any)
			if !ok {
				t = map[string]any{}
				doc[table] = t
			}
			target = t
			name = table + "." + key
		}
		target[key] = value
		changes = append(changes, Change{Key: name, Value: value})
	}

	set("p2p", "pex", opts.Pex)
	if opts.ExternalIP != "" {
		set("p2p", "external_address", fmt.Sprintf("tcp://%s:%d", opts.ExternalIP, constants.P2PPort))
	}
	set("p2p", "addr_book_strict", opts.AddrBookStrict)
	set("p2p", "private_peer_ids", opts.PrivatePeerIDs)
	set("", "proxy_app", fmt.Sprintf("tcp://0.0.0.0:%d", constants.ProxyAppPort))
	set("rpc", "laddr", fmt.Sprintf("tcp://0.0.0.0:%d", constants.RPCPort))
	set("p2p", "laddr", fmt.Sprintf("tcp://0.0.0.0:%d", constants.P2PPort))
	set("instrumentation", "prometheus", opts.Prometheus)

	out, err := toml.Marshal(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed encoding %s: %w", constants.EngineConfigPath, err)
	}
	return out, changes, nil
}
