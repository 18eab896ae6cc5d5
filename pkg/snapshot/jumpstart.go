// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/luxfi/hydra/pkg/cloud/storage"
	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/ux"
	"go.uber.org/zap"
)

type Jumpstarter struct {
	store storage.Storage
	ul    *ux.UserLog
	log   *zap.Logger
	out   io.Writer
	dirs  []string
}

func NewJumpstarter(store storage.Storage, ul *ux.UserLog, log *zap.Logger, out io.Writer) *Jumpstarter {
	if log == nil {
		log = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	return &Jumpstarter{store: store, ul: ul, log: log, out: out, dirs: constants.JumpstartDataDirs}
}

// Apply replaces the chain state of the node in nodeDir with the
// jumpstart published for network under label. A network with no index
// is skipped with a warning; an unknown label is ErrLabelNotFound.
func (j *Jumpstarter) Apply(ctx context.Context, network, nodeDir, label string) error {
	j.ul.PrintToUser("Attempting to jumpstart %s to block %s", network, label)
	idx, err := FetchIndex(ctx, j.store, network)
	if err != nil {
		j.log.Debug("jumpstart index unavailable", zap.String("network", network), zap.Error(err))
		j.ul.Warn("no jumpstart data found for network %s, continuing without jumpstart", network)
		return nil
	}
	archive, err := idx.Lookup(network, label)
	if err != nil {
		return err
	}
	if _, err := os.Stat(nodeDir); err != nil {
		return fmt.Errorf("%w: %s", constants.ErrMissingNodeDir, nodeDir)
	}

	local := filepath.Join(nodeDir, archive)
	if err := j.download(ctx, network, archive, local); err != nil {
		_ = os.Remove(local)
		return fmt.Errorf("unable to download jumpstart file %s: %w", archive, err)
	}

	removed, err := RemoveDataDirs(nodeDir, j.dirs)
	if err != nil {
		return err
	}
	j.log.Info("removed node data", zap.Strings("dirs", removed.Removed), zap.Int64("bytes", removed.BytesFreed))

	if err := j.extract(local, nodeDir); err != nil {
		return err
	}

	if err := os.Remove(local); err != nil {
		j.ul.Warn("unable to clean up jumpstart archive: %v", err)
	}
	j.ul.GreenCheckmarkToUser("Jumpstarted %s to block %s (%s replaced)", network, label, FormatBytes(removed.BytesFreed))
	return nil
}

func (j *Jumpstarter) download(ctx context.Context, network, archive, local string) error {
	bar := ux.NewBytesBar(j.out, -1, "Downloading "+archive)
	defer func() { _ = bar.Finish() }()
	return j.store.DownloadFile(ctx, Key(network, archive), local, &storage.DownloadOptions{
		ProgressFunc: func(done, total int64) {
			if total > 0 && bar.GetMax64() != total {
				bar.ChangeMax64(total)
			}
			_ = bar.Set64(done)
		},
	})
}

func (j *Jumpstarter) extract(archivePath, nodeDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	j.ul.PrintToUser("Extracting jumpstart contents")
	bar := ux.NewBytesBar(j.out, info.Size(), "Extracting")
	defer func() { _ = bar.Finish() }()
	n, err := Extract(io.TeeReader(f, bar), filepath.Base(archivePath), nodeDir, func(member string) {
		j.log.Debug("extracted", zap.String("member", member))
	})
	if err != nil {
		return err
	}
	j.log.Info("jumpstart extracted", zap.Int("members", n), zap.String("dir", nodeDir))
	j.ul.PrintToUser("Extracted %s files", ux.ConvertToStringWithThousandSeparator(uint64(n)))
	return nil
}

// Publish archives the data dirs of nodeDir, uploads the archive and adds
// label to the network's index.
func (j *Jumpstarter) Publish(ctx context.Context, network, nodeDir, label string, c Compression) (string, error) {
	if _, err := os.Stat(nodeDir); err != nil {
		return "", fmt.Errorf("%w: %s", constants.ErrMissingNodeDir, nodeDir)
	}
	idx, err := FetchIndex(ctx, j.store, network)
	switch {
	case errors.Is(err, ErrIndexNotFound):
		idx = Index{}
	case err != nil:
		return "", err
	}

	archive := ArchiveName(network, label, c)
	tmp, err := os.CreateTemp("", "jumpstart-*"+c.Ext())
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	members, err := Create(tmp, c, nodeDir, j.dirs)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("failed creating %s: %w", archive, err)
	}
	j.log.Info("jumpstart archived", zap.String("archive", archive), zap.Int("members", members))

	info, err := os.Stat(tmp.Name())
	if err != nil {
		return "", err
	}
	bar := ux.NewBytesBar(j.out, info.Size(), "Uploading "+archive)
	err = j.store.UploadFile(ctx, Key(network, archive), tmp.Name(), &storage.UploadOptions{
		ACL:          storage.ACLPublicRead,
		ContentType:  "application/octet-stream",
		ProgressFunc: func(done, _ int64) { _ = bar.Set64(done) },
	})
	_ = bar.Finish()
	if err != nil {
		return "", fmt.Errorf("failed uploading %s: %w", archive, err)
	}

	idx[label] = archive
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return "", err
	}
	err = j.store.Upload(ctx, Key(network, constants.JumpstartIndexName), bytes.NewReader(data), int64(len(data)), &storage.UploadOptions{
		ACL:         storage.ACLPublicRead,
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed updating %s: %w", constants.JumpstartIndexName, err)
	}
	return archive, nil
}
