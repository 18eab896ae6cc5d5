// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package node implements the commands run on a node's own machine: laying
// out the node directory, configuring it for a network and managing the
// systemd service that runs it.
package node

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Output is what a finished local process printed.
type Output struct {
	Stdout string
	Stderr string
}

// Runner runs local processes.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (Output, error)
}

// ExecError is returned when a local process exits non-zero.
type ExecError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%q exited with status %d: %s", e.Command, e.ExitCode, strings.TrimSpace(e.Stderr))
}

type ExecRunner struct {
	log *zap.Logger
}

func NewExecRunner(log *zap.Logger) *ExecRunner {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExecRunner{log: log}
}

func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (Output, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // G204: commands are built from fixed names
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	line := strings.Join(append([]string{name}, args...), " ")
	r.log.Debug("exec", zap.String("cmd", line), zap.String("dir", dir))
	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, &ExecError{Command: line, ExitCode: exitErr.ExitCode(), Stderr: out.Stderr}
	}
	if err != nil {
		return out, fmt.Errorf("failed to run %q: %w", line, err)
	}
	return out, nil
}
