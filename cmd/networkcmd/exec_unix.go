// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

//go:build !windows

package networkcmd

import (
	"os"

	"golang.org/x/sys/unix"
)

// execInteractive replaces the current process with bin.
func execInteractive(bin string, argv []string) error {
	return unix.Exec(bin, argv, os.Environ())
}
