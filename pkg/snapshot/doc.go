// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package snapshot fetches and publishes jumpstarts: archives of a node's
// chain state that let a new node skip replaying the chain from genesis.
//
// A network's jumpstarts live under jumpstart/<network>/ in the artifact
// store, next to a jumps.json index mapping a label (usually a block
// height) to the archive name:
//
//	{"120000": "alpha-120000.tar.gz"}
//
// Applying a jumpstart only ever removes the data directories listed in
// constants.JumpstartDataDirs before extracting over the node directory.
package snapshot
