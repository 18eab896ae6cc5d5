// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package nodeconfig

import (
	"bytes"
	"fmt"
	"path"
	"text/template"

	"github.com/luxfi/hydra/pkg/constants"
)

const startScriptTemplate = `#!/bin/bash

cd "${0%/*}/"
./{{ .Binary }} run --persistent-peers {{ .Peers }}
`

const unitTemplate = `[Unit]
Description={{ .Network }} Loom Node
After=network.target

[Service]
Type=simple
User={{ .User }}
WorkingDirectory={{ .Dir }}
ExecStart={{ .ExecStart }}
Restart=always
RestartSec=2
StartLimitInterval=0
LimitNOFILE=500000
StandardOutput=syslog
StandardError=syslog

[Install]
WantedBy=multi-user.target
`

var (
	startScript = template.Must(template.New("start").Parse(startScriptTemplate))
	unit        = template.Must(template.New("unit").Parse(unitTemplate))
)

// StartScript renders start_blockchain.sh for the node with node key self.
func StartScript(binary string, peers []Peer, self string) ([]byte, error) {
	var buf bytes.Buffer
	err := startScript.Execute(&buf, struct{ Binary, Peers string }{binary, PersistentPeers(peers, self)})
	if err != nil {
		return nil, fmt.Errorf("failed rendering %s: %w", constants.StartupScriptName, err)
	}
	return buf.Bytes(), nil
}

// Unit describes the systemd service of one node.
type Unit struct {
	Network string
	Binary  string
	User    string
	Dir     string
}

// ServiceName is <network>.service for the node binary and
// <network>.<binary>.service for auxiliary binaries such as oracles.
func (u Unit) ServiceName() string {
	if u.Binary == "" || u.Binary == constants.DefaultBinaryName {
		return u.Network + ".service"
	}
	return u.Network + "." + u.Binary + ".service"
}

func (u Unit) UnitPath() string {
	return path.Join(constants.SystemdUnitDir, u.ServiceName())
}

func (u Unit) execStart() string {
	if u.Binary == "" || u.Binary == constants.DefaultBinaryName {
		return path.Join(u.Dir, constants.StartupScriptName)
	}
	return path.Join(u.Dir, u.Binary)
}

func (u Unit) Render() ([]byte, error) {
	if u.User == "" {
		u.User = constants.DefaultServiceUser
	}
	var buf bytes.Buffer
	err := unit.Execute(&buf, struct {
		Unit
		ExecStart string
	}{u, u.execStart()})
	if err != nil {
		return nil, fmt.Errorf("failed rendering %s: %w", u.ServiceName(), err)
	}
	return buf.Bytes(), nil
}
