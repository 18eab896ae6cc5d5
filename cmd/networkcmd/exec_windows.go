// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

//go:build windows

package networkcmd

import (
	"os"
	"os/exec"
)

// execInteractive runs bin attached to the terminal and waits for it.
func execInteractive(bin string, argv []string) error {
	c := exec.Command(bin, argv[1:]...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}
