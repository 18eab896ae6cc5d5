// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package release prepares node binaries for distribution and uploads them
// to the distribution channel nodes bootstrap from.
package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/luxfi/hydra/pkg/cloud/storage"
	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/luxfi/hydra/pkg/version"
	"go.uber.org/zap"
)

var ErrNoDist = errors.New("no distribution prepared, run 'hydra release make-dist' first")

// Manifest describes one prepared release.
type Manifest struct {
	Version  string   `json:"version"`
	Released string   `json:"released"`
	Files    []string `json:"files"`
}

// Key is the store key of file for version. An empty version or "latest"
// addresses the latest release.
func Key(ver, file string) string {
	if ver == "" || ver == constants.ReleaseLatestPrefix {
		return storage.JoinKey(constants.ReleaseLatestPrefix, file)
	}
	return storage.JoinKey(constants.ReleaseArchivePrefix, ver, file)
}

// CleanVersion canonicalizes semantic versions and passes anything else
// through, refusing only values that cannot be used as a key segment.
func CleanVersion(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if v, err := version.Normalize(raw); err == nil {
		return v, nil
	}
	if raw == "" || strings.ContainsAny(raw, "/\\ ") || raw == "." || raw == ".." {
		return "", fmt.Errorf("unusable release version %q", raw)
	}
	return raw, nil
}

// MakeDist copies the built binary into distDir and writes manifest.json.
func MakeDist(buildBinary, distDir, ver string, now time.Time) (*Manifest, error) {
	ver, err := CleanVersion(ver)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(distDir, constants.DefaultPerms755); err != nil {
		return nil, err
	}
	name := filepath.Base(buildBinary)
	if err := copyFile(buildBinary, filepath.Join(distDir, name), constants.DefaultPerms755); err != nil {
		return nil, fmt.Errorf("failed copying %s into %s: %w", buildBinary, distDir, err)
	}
	m := &Manifest{
		Version:  ver,
		Released: now.UTC().Format(time.ANSIC),
		Files:    []string{"./" + name, "./" + constants.ReleaseManifestName},
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(distDir, constants.ReleaseManifestName), data, constants.WriteReadReadPerms); err != nil {
		return nil, err
	}
	return m, nil
}

// ReadManifest loads the manifest of a prepared distribution.
func ReadManifest(distDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(distDir, constants.ReleaseManifestName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoDist, distDir)
	}
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid %s in %s: %w", constants.ReleaseManifestName, distDir, err)
	}
	if m.Version, err = CleanVersion(m.Version); err != nil {
		return nil, err
	}
	return &m, nil
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

type Uploader struct {
	store storage.Storage
	ul    *ux.UserLog
	log   *zap.Logger
}

func NewUploader(store storage.Storage, ul *ux.UserLog, log *zap.Logger) *Uploader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Uploader{store: store, ul: ul, log: log}
}

// Upload publishes every file of distDir under archive/<version>/ and
// latest/. It returns the uploaded keys.
func (u *Uploader) Upload(ctx context.Context, distDir string) ([]string, error) {
	m, err := ReadManifest(distDir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(distDir)
	if err != nil {
		return nil, err
	}
	u.ul.PrintToUser("Uploading distribution %s to %s", m.Version, u.store.Bucket())

	var keys []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		local := filepath.Join(distDir, e.Name())
		for _, ver := range []string{m.Version, constants.ReleaseLatestPrefix} {
			key := Key(ver, e.Name())
			err := u.store.UploadFile(ctx, key, local, &storage.UploadOptions{ACL: storage.ACLPublicRead})
			if err != nil {
				return keys, fmt.Errorf("failed uploading %s to %s: %w", e.Name(), key, err)
			}
			u.log.Debug("uploaded", zap.String("file", local), zap.String("key", key))
			keys = append(keys, key)
		}
	}
	u.ul.GreenCheckmarkToUser("Release %s uploaded (%d objects)", m.Version, len(keys))
	return keys, nil
}
