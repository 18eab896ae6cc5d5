// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/luxfi/hydra/pkg/cloud/storage"
	"github.com/luxfi/hydra/pkg/constants"
)

var (
	ErrLabelNotFound  = errors.New("jumpstart label not found")
	ErrIndexNotFound  = errors.New("no jumpstart index published")
	ErrUnsafeArchive  = errors.New("unsafe archive member")
	ErrUnknownArchive = errors.New("unknown archive format")
)

// Index maps a jumpstart label to its archive name.
type Index map[string]string

// Key is the store key of a file published for network's jumpstarts.
func Key(network, file string) string {
	return storage.JoinKey(constants.JumpstartPrefix, network, file)
}

// FetchIndex reads the jumps.json of network.
func FetchIndex(ctx context.Context, store storage.Storage, network string) (Index, error) {
	data, err := storage.Fetch(ctx, store, Key(network, constants.JumpstartIndexName))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w for network %s", ErrIndexNotFound, network)
		}
		return nil, err
	}
	idx := Index{}
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse %s of network %s: %w", constants.JumpstartIndexName, network, err)
	}
	return idx, nil
}

// Lookup returns the archive for label. There is no fallback label.
func (idx Index) Lookup(network, label string) (string, error) {
	archive, ok := idx[label]
	if !ok || archive == "" {
		return "", fmt.Errorf("%w: network %s has no jumpstart %q (available: %s)",
			ErrLabelNotFound, network, label, strings.Join(idx.Labels(), ", "))
	}
	if strings.ContainsAny(archive, `/\`) || archive == ".." {
		return "", fmt.Errorf("%w: archive name %q", ErrUnsafeArchive, archive)
	}
	return archive, nil
}

func (idx Index) Labels() []string {
	labels := make([]string, 0, len(idx))
	for l := range idx {
		labels = append(labels, l)
	}
	slices.Sort(labels)
	return labels
}
