// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package snapshot

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// CleanupResult reports what RemoveDataDirs removed.
type CleanupResult struct {
	Removed    []string
	Missing    []string
	BytesFreed int64
}

// RemoveDataDirs removes each of dirs under nodeDir and nothing else. The
// dirs must be relative and stay inside nodeDir. A missing dir is skipped.
func RemoveDataDirs(nodeDir string, dirs []string) (CleanupResult, error) {
	var result CleanupResult
	for _, d := range dirs {
		target, err := within(nodeDir, d)
		if err != nil {
			return result, err
		}
		if _, err := os.Lstat(target); err != nil {
			if os.IsNotExist(err) {
				result.Missing = append(result.Missing, d)
				continue
			}
			return result, fmt.Errorf("cleanup of existing data failed: %w", err)
		}
		size := dirSize(target)
		if err := os.RemoveAll(target); err != nil {
			return result, fmt.Errorf("cleanup of existing data failed: %w", err)
		}
		result.Removed = append(result.Removed, d)
		result.BytesFreed += size
	}
	return result, nil
}

// within resolves rel under root, rejecting anything that escapes it.
func within(root, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: absolute path %q", ErrUnsafeArchive, rel)
	}
	target := filepath.Join(root, filepath.FromSlash(rel))
	r, err := filepath.Rel(root, target)
	if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes %s", ErrUnsafeArchive, rel, root)
	}
	return target, nil
}

func dirSize(path string) int64 {
	var size int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size
}

// FormatBytes formats bytes in human-readable form
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
