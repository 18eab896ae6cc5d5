// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package snapshot

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

type Compression string

const (
	Gzip Compression = "gzip"
	Zstd Compression = "zstd"
)

func (c Compression) Ext() string {
	if c == Zstd {
		return ".tar.zst"
	}
	return ".tar.gz"
}

// ArchiveName is the conventional archive name for a label.
func ArchiveName(network, label string, c Compression) string {
	return network + "-" + label + c.Ext()
}

func compressionOf(name string) (Compression, bool, error) {
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return Gzip, true, nil
	case strings.HasSuffix(name, ".tar.zst"):
		return Zstd, true, nil
	case strings.HasSuffix(name, ".tar"):
		return "", false, nil
	}
	return "", false, fmt.Errorf("%w: %s", ErrUnknownArchive, name)
}

func decompress(r io.Reader, name string) (io.Reader, func(), error) {
	c, compressed, err := compressionOf(name)
	if err != nil {
		return nil, nil, err
	}
	if !compressed {
		return r, func() {}, nil
	}
	if c == Zstd {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	}
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, err
	}
	return gz, func() { _ = gz.Close() }, nil
}

// Extract unpacks the archive read from r into destDir one member at a
// time. onMember is called after each member is written. Members that
// would land outside destDir are refused.
func Extract(r io.Reader, name, destDir string, onMember func(string)) (int, error) {
	plain, closeFn, err := decompress(r, name)
	if err != nil {
		return 0, fmt.Errorf("unable to open %s: %w", name, err)
	}
	defer closeFn()

	tr := tar.NewReader(plain)
	count := 0
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("unable to read %s after %d members: %w", name, count, err)
		}
		if err := extractMember(tr, hdr, destDir); err != nil {
			return count, fmt.Errorf("unable to extract %s from %s: %w", hdr.Name, name, err)
		}
		count++
		if onMember != nil {
			onMember(hdr.Name)
		}
	}
}

func extractMember(tr *tar.Reader, hdr *tar.Header, destDir string) error {
	clean := strings.TrimPrefix(filepath.ToSlash(filepath.Clean(hdr.Name)), "./")
	if clean == "." || clean == "" {
		return nil
	}
	target, err := within(destDir, clean)
	if err != nil {
		return err
	}
	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, 0o755)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fs.FileMode(hdr.Mode)&fs.ModePerm)
		if err != nil {
			return err
		}
		if _, err := io.Copy(f, tr); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	case tar.TypeSymlink:
		if filepath.IsAbs(hdr.Linkname) {
			return fmt.Errorf("%w: absolute link target %q", ErrUnsafeArchive, hdr.Linkname)
		}
		if _, err := within(destDir, filepath.Join(filepath.Dir(clean), hdr.Linkname)); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		_ = os.Remove(target)
		return os.Symlink(hdr.Linkname, target)
	}
	return fmt.Errorf("%w: unsupported type %q", ErrUnsafeArchive, hdr.Typeflag)
}

// Create archives dirs of nodeDir into w with paths relative to nodeDir.
// Missing dirs are skipped.
func Create(w io.Writer, c Compression, nodeDir string, dirs []string) (int, error) {
	var (
		out   io.WriteCloser
		err   error
		count int
	)
	if c == Zstd {
		out, err = zstd.NewWriter(w)
		if err != nil {
			return 0, err
		}
	} else {
		out = gzip.NewWriter(w)
	}
	tw := tar.NewWriter(out)

	for _, d := range dirs {
		root, err := within(nodeDir, d)
		if err != nil {
			return count, err
		}
		if _, err := os.Lstat(root); os.IsNotExist(err) {
			continue
		}
		err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := addMember(tw, nodeDir, path, entry); err != nil {
				return err
			}
			count++
			return nil
		})
		if err != nil {
			return count, fmt.Errorf("failed archiving %s: %w", d, err)
		}
	}
	if err := tw.Close(); err != nil {
		return count, err
	}
	return count, out.Close()
}

func addMember(tw *tar.Writer, nodeDir, path string, entry fs.DirEntry) error {
	info, err := entry.Info()
	if err != nil {
		return err
	}
	link := ""
	if info.Mode()&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(path); err != nil {
			return err
		}
	}
	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(nodeDir, path)
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(rel)
	if info.IsDir() {
		hdr.Name += "/"
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}
