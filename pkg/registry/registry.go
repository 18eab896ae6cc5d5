// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package registry persists network records in a single JSON document.
//
// Writes are serialized inside one process only. Two hydra processes writing
// the same registry file concurrently is undefined behavior: the last rename
// wins and the other process's change is lost.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/models"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("network not found in registry")

// Hook observes persisted changes. next is nil when a record was removed.
type Hook interface {
	RecordChanged(prev, next *models.NetworkRecord)
}

type Store struct {
	path  string
	log   *zap.Logger
	hooks []Hook
	mu    sync.Mutex
}

func New(path string, log *zap.Logger, hooks ...Hook) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, log: log, hooks: hooks}
}

func (s *Store) Path() string {
	return s.path
}

// Read returns every valid record. A missing or unreadable registry reads as
// empty, and records that fail validation are left out.
func (s *Store) Read() map[string]*models.NetworkRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := s.load()
	if err != nil {
		s.log.Warn("registry unreadable, treating as empty", zap.String("path", s.path), zap.Error(err))
		return map[string]*models.NetworkRecord{}
	}
	return s.decode(raw)
}

// Get returns the record for name.
func (s *Store) Get(name string) (*models.NetworkRecord, error) {
	rec, ok := s.Read()[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return rec, nil
}

// Names returns the registered network names in sorted order.
func (s *Store) Names() []string {
	var names []string
	for name := range s.Read() {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Write replaces the entry for rec.Name wholesale and persists the registry.
func (s *Store) Write(rec *models.NetworkRecord) error {
	if rec == nil || rec.Name == "" {
		return errors.New("registry: refusing to write a record without a name")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed encoding network %s: %w", rec.Name, err)
	}

	s.mu.Lock()
	raw := s.loadForUpdate()
	prev := s.decodeOne(rec.Name, raw[rec.Name])
	raw[rec.Name] = data
	err = s.persist(raw)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed persisting network %s: %w", rec.Name, err)
	}

	next := rec.Clone()
	for _, h := range s.hooks {
		h.RecordChanged(prev, next)
	}
	return nil
}

// Remove deletes the entry for name. Removing an unknown name is a no-op.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	raw := s.loadForUpdate()
	entry, ok := raw[name]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	prev := s.decodeOne(name, entry)
	delete(raw, name)
	err := s.persist(raw)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed removing network %s: %w", name, err)
	}

	s.log.Info("deregistered network", zap.String("network", name))
	for _, h := range s.hooks {
		h.RecordChanged(prev, nil)
	}
	return nil
}

func (s *Store) load() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	raw := map[string]json.RawMessage{}
	if len(data) == 0 {
		return raw, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]json.RawMessage{}
	}
	return raw, nil
}

// loadForUpdate reads the registry before a write. A corrupt file is moved
// aside so the write does not destroy it.
func (s *Store) loadForUpdate() map[string]json.RawMessage {
	raw, err := s.load()
	if err == nil {
		return raw
	}
	aside := s.path + ".corrupt"
	if renameErr := os.Rename(s.path, aside); renameErr != nil {
		s.log.Warn("registry unreadable and could not be moved aside",
			zap.String("path", s.path), zap.Error(err), zap.NamedError("rename", renameErr))
	} else {
		s.log.Warn("registry unreadable, moved aside", zap.String("path", aside), zap.Error(err))
	}
	return map[string]json.RawMessage{}
}

func (s *Store) decode(raw map[string]json.RawMessage) map[string]*models.NetworkRecord {
	records := make(map[string]*models.NetworkRecord, len(raw))
	for name, entry := range raw {
		if rec := s.decodeOne(name, entry); rec != nil {
			records[name] = rec
		}
	}
	return records
}

func (s *Store) decodeOne(name string, entry json.RawMessage) *models.NetworkRecord {
	if entry == nil {
		return nil
	}
	var rec models.NetworkRecord
	if err := json.Unmarshal(entry, &rec); err != nil {
		s.log.Warn("skipping unreadable registry entry", zap.String("network", name), zap.Error(err))
		return nil
	}
	if rec.Name == "" {
		rec.Name = name
	}
	if err := rec.Validate(); err != nil {
		s.log.Warn("skipping invalid registry entry", zap.String("network", name), zap.Error(err))
		return nil
	}
	if rec.Outputs == nil {
		rec.Outputs = map[string]string{}
	}
	if rec.NodeData == nil {
		rec.NodeData = map[string]models.BootstrapRecord{}
	}
	return &rec
}

// persist writes the whole registry to a temp file and renames it over the
// registry path.
func (s *Store) persist(raw map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, constants.DefaultPerms755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, constants.WriteReadReadPerms); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}
