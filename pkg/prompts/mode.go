// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package prompts

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// Environment variable names for non-interactive mode.
const (
	// EnvNonInteractive forces non-interactive mode.
	// Set to "1", "true", "yes", or "on" to enable.
	EnvNonInteractive = "HYDRA_NON_INTERACTIVE"

	// EnvCI is a common CI environment variable.
	// When truthy, implies non-interactive.
	EnvCI = "CI"
)

// stdinIsTTY is a variable so tests can pin the terminal check.
var stdinIsTTY = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// isTruthyEnv accepts 1, true, t, yes, y, on (case-insensitive).
func isTruthyEnv(key string) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// IsInteractive returns true if prompting is allowed.
//
// Interactive mode is enabled when ALL of:
//   - stdin is a TTY (not piped/redirected)
//   - HYDRA_NON_INTERACTIVE is not truthy
//   - CI is not truthy
func IsInteractive() bool {
	if isTruthyEnv(EnvNonInteractive) || isTruthyEnv(EnvCI) {
		return false
	}
	return stdinIsTTY()
}

// IsNonInteractive reports whether prompting must be avoided, either because
// the caller asked for it or because the environment forbids it.
func IsNonInteractive(flag bool) bool {
	if flag {
		return true
	}
	return !IsInteractive()
}

// NewPrompterForMode returns a NonInteractivePrompter that fails fast when
// prompting is not possible, and the terminal prompter otherwise.
func NewPrompterForMode(nonInteractiveFlag bool) Prompter {
	if IsNonInteractive(nonInteractiveFlag) {
		return NewNonInteractivePrompter()
	}
	return NewPrompter()
}
