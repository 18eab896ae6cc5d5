// Copyright (C) 2023, Lux Partners Limited, All rights reserved.
// See the file LICENSE for licensing terms.
package ssh

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnreachable = errors.New("host unreachable")
	ErrAuthFailed  = errors.New("ssh authentication failed")
	ErrKeyFile     = errors.New("cannot load ssh private key")
)

// CommandError is returned when a remote command exits non-zero.
type CommandError struct {
	Address    string
	Command    string
	ExitStatus int
	Stderr     string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q on %s exited with status %d", e.Command, e.Address, e.ExitStatus)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// classifyConnectError maps a dial or handshake error to ErrAuthFailed or
// ErrUnreachable.
func classifyConnectError(address string, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "unable to authenticate") || strings.Contains(msg, "no supported methods remain") {
		return fmt.Errorf("%w: %s: %w", ErrAuthFailed, address, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrUnreachable, address, err)
}
