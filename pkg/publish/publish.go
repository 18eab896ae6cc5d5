// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package publish makes a configured network available to its nodes through
// the distribution channel, and reads it back on the node side.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/luxfi/hydra/pkg/cloud/storage"
	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/models"
	"github.com/luxfi/hydra/pkg/ux"
	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("network configuration not generated, run 'hydra network configure' first")

// Files are the per-network configuration files every node installs,
// relative to the network directory.
var Files = []string{
	constants.ChainGenesisPath,
	constants.ChainConfigFileName,
	constants.AppGenesisFileName,
}

// Key is the store key of a file published for network.
func Key(network, rel string) string {
	return storage.JoinKey(constants.NetworksDirName, network, filepath.ToSlash(rel))
}

func RecordKey(network string) string {
	return Key(network, constants.PublishedRecordName)
}

type Publisher struct {
	store storage.Storage
	ul    *ux.UserLog
	log   *zap.Logger
}

func NewPublisher(store storage.Storage, ul *ux.UserLog, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{store: store, ul: ul, log: log}
}

// Publish uploads the registry record of rec and the configuration files
// found in networkDir. Nothing is uploaded unless every file is present.
// A previous publication of the same network is overwritten.
func (p *Publisher) Publish(ctx context.Context, rec *models.NetworkRecord, networkDir string) ([]string, error) {
	if len(rec.Nodes()) == 0 {
		return nil, fmt.Errorf("network %s has no bootstrapped nodes to publish", rec.Name)
	}
	contents := make(map[string][]byte, len(Files)+1)
	for _, rel := range Files {
		data, err := os.ReadFile(filepath.Join(networkDir, rel))
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s missing for network %s", ErrNotConfigured, rel, rec.Name)
		}
		if err != nil {
			return nil, err
		}
		contents[rel] = data
	}
	record, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, err
	}
	contents[constants.PublishedRecordName] = record

	replaced, err := p.store.Exists(ctx, RecordKey(rec.Name))
	if err != nil {
		return nil, fmt.Errorf("failed checking published record of %s: %w", rec.Name, err)
	}
	if replaced {
		p.ul.PrintToUser("Replacing the published configuration of network %s", rec.Name)
	}

	order := append([]string{constants.PublishedRecordName}, Files...)
	keys := make([]string, 0, len(order))
	for _, rel := range order {
		key := Key(rec.Name, rel)
		data := contents[rel]
		err := p.store.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), &storage.UploadOptions{
			ACL:         storage.ACLPublicRead,
			ContentType: contentType(rel),
		})
		if err != nil {
			return keys, fmt.Errorf("failed publishing %s of network %s: %w", rel, rec.Name, err)
		}
		p.log.Info("published", zap.String("network", rec.Name), zap.String("key", key), zap.Int("bytes", len(data)))
		p.ul.GreenCheckmarkToUser("Published %s", key)
		keys = append(keys, key)
	}
	return keys, nil
}

func contentType(rel string) string {
	if filepath.Ext(rel) == ".json" {
		return "application/json"
	}
	return "application/x-yaml"
}

// FetchRecord reads the published record of network.
func FetchRecord(ctx context.Context, store storage.Storage, network string) (*models.NetworkRecord, error) {
	data, err := storage.Fetch(ctx, store, RecordKey(network))
	if err != nil {
		return nil, fmt.Errorf("failed fetching network details of %s: %w", network, err)
	}
	var rec models.NetworkRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed parsing network details of %s: %w", network, err)
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("published record of %s is invalid: %w", network, err)
	}
	return &rec, nil
}

// FetchFiles downloads every published configuration file of network. It
// fails on the first file that cannot be fetched.
func FetchFiles(ctx context.Context, store storage.Storage, network string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(Files))
	for _, rel := range Files {
		data, err := storage.Fetch(ctx, store, Key(network, rel))
		if err != nil {
			return nil, fmt.Errorf("failed fetching %s of network %s: %w", rel, network, err)
		}
		out[rel] = data
	}
	return out, nil
}
