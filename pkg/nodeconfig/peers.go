// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package nodeconfig renders the per-node artifacts derived from a
// network's collected bootstrap data: the persistent peer list, the
// startup script, the systemd unit and the engine config.toml.
package nodeconfig

import (
	"fmt"
	"strings"

	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/models"
)

type Peer struct {
	Address string
	NodeKey string
	PubKey  string
}

func (p Peer) URL() string {
	return fmt.Sprintf("tcp://%s@%s:%d", p.NodeKey, p.Address, constants.P2PPort)
}

// PeersFromRecord lists the collected nodes of rec in address order.
func PeersFromRecord(rec *models.NetworkRecord) []Peer {
	nodes := rec.Nodes()
	peers := make([]Peer, 0, len(nodes))
	for _, n := range nodes {
		peers = append(peers, Peer{Address: n.Address, NodeKey: n.Record.NodeKey, PubKey: n.Record.PublicKey})
	}
	return peers
}

// PersistentPeers renders the --persistent-peers value for the node whose
// node key is self. The node itself is never listed.
func PersistentPeers(peers []Peer, self string) string {
	urls := make([]string, 0, len(peers))
	for _, p := range peers {
		if p.NodeKey == self {
			continue
		}
		urls = append(urls, p.URL())
	}
	return strings.Join(urls, ",")
}

// PrivatePeerIDs is the p2p.private_peer_ids value hiding every peer.
func PrivatePeerIDs(peers []Peer) string {
	ids := make([]string, 0, len(peers))
	for _, p := range peers {
		ids = append(ids, p.NodeKey)
	}
	return strings.Join(ids, ",")
}
