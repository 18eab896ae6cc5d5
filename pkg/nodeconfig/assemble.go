// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package nodeconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/models"
)

// Artifacts is the startup script and unit of one node.
type Artifacts struct {
	Index       int
	Address     string
	StartScript []byte
	ServiceName string
	Unit        []byte
}

// Assemble renders the artifacts of every collected node of rec, in
// address order. remoteDir is the node directory on the hosts.
func Assemble(rec *models.NetworkRecord, binary, user, remoteDir string) ([]Artifacts, error) {
	peers := PeersFromRecord(rec)
	u := Unit{Network: rec.Name, Binary: binary, User: user, Dir: remoteDir}
	unitBody, err := u.Render()
	if err != nil {
		return nil, err
	}

	out := make([]Artifacts, 0, len(peers))
	for _, n := range rec.Nodes() {
		script, err := StartScript(binary, peers, n.Record.NodeKey)
		if err != nil {
			return nil, err
		}
		out = append(out, Artifacts{
			Index:       n.Index,
			Address:     n.Address,
			StartScript: script,
			ServiceName: u.ServiceName(),
			Unit:        unitBody,
		})
	}
	return out, nil
}

// Dir is where the artifacts of one node are written locally.
func (a Artifacts) Dir(networkDir string) string {
	return filepath.Join(networkDir, "nodes", fmt.Sprintf("%d-%s", a.Index, a.Address))
}

// Write stores the artifacts under networkDir. The script is executable.
func (a Artifacts) Write(networkDir string) error {
	dir := a.Dir(networkDir)
	if err := os.MkdirAll(dir, constants.DefaultPerms755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, constants.StartupScriptName), a.StartScript, constants.DefaultPerms755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, a.ServiceName), a.Unit, constants.WriteReadReadPerms)
}
