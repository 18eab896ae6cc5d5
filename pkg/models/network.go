// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package models contains the persisted records shared by the provisioning,
// bootstrap and configuration workflows.
package models

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"
)

// NetworkStatus is the lifecycle state of a registered network.
type NetworkStatus string

const (
	StatusProvisioning        NetworkStatus = "Provisioning"
	StatusCreateFailed        NetworkStatus = "CreateFailed"
	StatusReady               NetworkStatus = "Ready"
	StatusBootstrapping       NetworkStatus = "Bootstrapping"
	StatusBootstrapped        NetworkStatus = "Bootstrapped"
	StatusBootstrapIncomplete NetworkStatus = "BootstrapIncomplete"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidRecord     = errors.New("invalid network record")
)

// forward lists the statuses reachable from each status.
var forward = map[NetworkStatus][]NetworkStatus{
	StatusProvisioning:        {StatusReady, StatusCreateFailed},
	StatusReady:               {StatusBootstrapping},
	StatusBootstrapping:       {StatusBootstrapped, StatusBootstrapIncomplete},
	StatusBootstrapIncomplete: {StatusBootstrapped},
}

func (s NetworkStatus) String() string {
	return string(s)
}

func (s NetworkStatus) Valid() bool {
	switch s {
	case StatusProvisioning, StatusCreateFailed, StatusReady,
		StatusBootstrapping, StatusBootstrapped, StatusBootstrapIncomplete:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is s itself or a forward step from s.
func (s NetworkStatus) CanTransitionTo(next NetworkStatus) bool {
	if s == next {
		return true
	}
	return slices.Contains(forward[s], next)
}

// Collectable reports whether bootstrap collection may run in this status.
func (s NetworkStatus) Collectable() bool {
	return s == StatusReady || s == StatusBootstrapping || s == StatusBootstrapIncomplete
}

// NetworkRecord is the registry entry for one named network.
type NetworkRecord struct {
	Name        string                     `json:"name"`
	Status      NetworkStatus              `json:"status"`
	StackID     string                     `json:"stack_id,omitempty"`
	StackStatus string                     `json:"stack_status,omitempty"`
	Size        int                        `json:"size"`
	Version     string                     `json:"version,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	Addresses   []string                   `json:"ips"`
	Outputs     map[string]string          `json:"outputs"`
	NodeData    map[string]BootstrapRecord `json:"node_data"`
}

// NodeEntry pairs a node address with its collected bootstrap record.
type NodeEntry struct {
	Index   int
	Address string
	Record  BootstrapRecord
}

func NewNetworkRecord(name string, size int, createdAt time.Time) *NetworkRecord {
	return &NetworkRecord{
		Name:      name,
		Status:    StatusProvisioning,
		Size:      size,
		CreatedAt: createdAt.UTC(),
		Addresses: []string{},
		Outputs:   map[string]string{},
		NodeData:  map[string]BootstrapRecord{},
	}
}

// Transition moves the record to next, refusing backward moves.
func (r *NetworkRecord) Transition(next NetworkStatus) error {
	if !r.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: network %s %s -> %s", ErrInvalidTransition, r.Name, r.Status, next)
	}
	r.Status = next
	return nil
}

// SetAddresses assigns node addresses once; reassigning different ones fails.
func (r *NetworkRecord) SetAddresses(addresses []string) error {
	if len(r.Addresses) > 0 && !slices.Equal(r.Addresses, addresses) {
		return fmt.Errorf("%w: network %s already has addresses assigned", ErrInvalidRecord, r.Name)
	}
	r.Addresses = slices.Clone(addresses)
	return nil
}

// Nodes returns collected nodes in address order. Uncollected nodes are skipped.
func (r *NetworkRecord) Nodes() []NodeEntry {
	entries := make([]NodeEntry, 0, len(r.NodeData))
	for i, addr := range r.Addresses {
		rec, ok := r.NodeData[addr]
		if !ok {
			continue
		}
		entries = append(entries, NodeEntry{Index: i, Address: addr, Record: rec})
	}
	return entries
}

// Missing returns the addresses that have no collected bootstrap record.
func (r *NetworkRecord) Missing() []string {
	var missing []string
	for _, addr := range r.Addresses {
		if _, ok := r.NodeData[addr]; !ok {
			missing = append(missing, addr)
		}
	}
	return missing
}

// Validate checks the structural invariants of a record read from disk.
func (r *NetworkRecord) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidRecord)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: network %s has unknown status %q", ErrInvalidRecord, r.Name, r.Status)
	}
	if r.Size < 0 {
		return fmt.Errorf("%w: network %s has negative size", ErrInvalidRecord, r.Name)
	}
	switch r.Status {
	case StatusProvisioning, StatusCreateFailed:
	default:
		if len(r.Addresses) != r.Size {
			return fmt.Errorf("%w: network %s has %d addresses, expected %d",
				ErrInvalidRecord, r.Name, len(r.Addresses), r.Size)
		}
	}
	for addr := range r.NodeData {
		if !slices.Contains(r.Addresses, addr) {
			return fmt.Errorf("%w: network %s has node data for unknown address %s", ErrInvalidRecord, r.Name, addr)
		}
	}
	return nil
}

// Clone returns a deep copy of the record.
func (r *NetworkRecord) Clone() *NetworkRecord {
	c := *r
	c.Addresses = slices.Clone(r.Addresses)
	c.Outputs = maps.Clone(r.Outputs)
	c.NodeData = maps.Clone(r.NodeData)
	if c.Outputs == nil {
		c.Outputs = map[string]string{}
	}
	if c.NodeData == nil {
		c.NodeData = map[string]BootstrapRecord{}
	}
	return &c
}
