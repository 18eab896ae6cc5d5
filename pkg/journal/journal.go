// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package journal keeps the history of network status changes in a local
// sqlite database. It observes the registry and never feeds back into it.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/models"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	schema = `CREATE TABLE IF NOT EXISTS transitions(
	network TEXT NOT NULL,
	from_status TEXT NOT NULL,
	to_status TEXT NOT NULL,
	stack_status TEXT NOT NULL,
	collected INTEGER NOT NULL,
	size INTEGER NOT NULL,
	ts INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transitions_network ON transitions(network, ts);`

	writeTimeout = 2 * time.Second

	// Removed is recorded as to_status when a record leaves the registry.
	Removed = "Removed"
)

// Entry is one recorded change.
type Entry struct {
	Network     string
	From        string
	To          string
	StackStatus string
	Collected   int
	Size        int
	At          time.Time
}

type Journal struct {
	db  *sql.DB
	log *zap.Logger
	now func() time.Time
}

// Open opens or creates the journal at path.
func Open(ctx context.Context, path string, log *zap.Logger) (*Journal, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), constants.DefaultPerms755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed opening journal %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed initializing journal %s: %w", path, err)
	}
	return &Journal{db: db, log: log, now: time.Now}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordChanged appends a row when the status or stack status changed.
// Failures are logged; the registry write already happened.
func (j *Journal) RecordChanged(prev, next *models.NetworkRecord) {
	e := Entry{At: j.now().UTC()}
	switch {
	case next == nil && prev == nil:
		return
	case next == nil:
		e.Network, e.From, e.To, e.Size = prev.Name, string(prev.Status), Removed, prev.Size
	default:
		e.Network, e.To, e.StackStatus, e.Size = next.Name, string(next.Status), next.StackStatus, next.Size
		e.Collected = len(next.NodeData)
		if prev != nil {
			e.From = string(prev.Status)
			if prev.Status == next.Status && prev.StackStatus == next.StackStatus && len(prev.NodeData) == len(next.NodeData) {
				return
			}
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := j.Append(ctx, e); err != nil {
		j.log.Warn("journal write failed", zap.String("network", e.Network), zap.Error(err))
	}
}

func (j *Journal) Append(ctx context.Context, e Entry) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO transitions(network, from_status, to_status, stack_status, collected, size, ts) VALUES(?,?,?,?,?,?,?)`,
		e.Network, e.From, e.To, e.StackStatus, e.Collected, e.Size, e.At.UnixNano())
	return err
}

// History returns the entries of network, oldest first.
func (j *Journal) History(ctx context.Context, network string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT network, from_status, to_status, stack_status, collected, size, ts FROM transitions WHERE network = ? ORDER BY ts, rowid`,
		network)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			ts int64
		)
		if err := rows.Scan(&e.Network, &e.From, &e.To, &e.StackStatus, &e.Collected, &e.Size, &ts); err != nil {
			return nil, err
		}
		e.At = time.Unix(0, ts).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
