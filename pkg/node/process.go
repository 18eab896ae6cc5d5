// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"path/filepath"

	"github.com/shirou/gopsutil/process"
)

// ProcessFinder locates running processes by executable.
type ProcessFinder interface {
	// FindExecutable returns the pids of processes running the binary at path.
	FindExecutable(path string) ([]int32, error)
}

type systemProcesses struct{}

func NewProcessFinder() ProcessFinder {
	return systemProcesses{}
}

func (systemProcesses) FindExecutable(path string) ([]int32, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}
	want := filepath.Clean(path)
	name := filepath.Base(want)
	var pids []int32
	for _, p := range procs {
		n, err := p.Name()
		if err != nil || n != name {
			// ignore processes that exited while scanning
			continue
		}
		exe, err := p.Exe()
		if err != nil {
			continue
		}
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		if filepath.Clean(exe) == want {
			pids = append(pids, p.Pid)
		}
	}
	return pids, nil
}
