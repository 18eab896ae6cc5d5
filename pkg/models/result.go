// Copyright (C) 2022-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package models

import (
	"slices"
	"sync"
)

// NodeResult is the outcome of one remote operation against one node.
type NodeResult struct {
	Index   int
	Address string
	Output  string
	Err     error
}

// NodeResults collects per-node outcomes from concurrent workers.
type NodeResults struct {
	results []NodeResult
	lock    sync.Mutex
}

func (nr *NodeResults) AddResult(index int, address, output string, err error) {
	nr.lock.Lock()
	defer nr.lock.Unlock()
	nr.results = append(nr.results, NodeResult{
		Index:   index,
		Address: address,
		Output:  output,
		Err:     err,
	})
}

// GetResults returns all results sorted by node index.
func (nr *NodeResults) GetResults() []NodeResult {
	nr.lock.Lock()
	defer nr.lock.Unlock()
	out := slices.Clone(nr.results)
	slices.SortFunc(out, func(a, b NodeResult) int { return a.Index - b.Index })
	return out
}

func (nr *NodeResults) Len() int {
	nr.lock.Lock()
	defer nr.lock.Unlock()
	return len(nr.results)
}

// GetErrorHostMap returns a map from node address to error for failed nodes.
func (nr *NodeResults) GetErrorHostMap() map[string]error {
	nr.lock.Lock()
	defer nr.lock.Unlock()
	hostErrors := make(map[string]error)
	for _, node := range nr.results {
		if node.Err != nil {
			hostErrors[node.Address] = node.Err
		}
	}
	return hostErrors
}

func (nr *NodeResults) HasErrors() bool {
	return len(nr.GetErrorHostMap()) > 0
}
