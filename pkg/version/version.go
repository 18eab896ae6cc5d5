// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package version

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is set at build time with -ldflags "-X .../pkg/version.Version=v1.2.3".
var Version = "v0.0.0-dev"

var ErrInvalidVersion = errors.New("version must be a legal semantic version (ex: v1.1.1)")

// Normalize returns v in canonical vMAJOR.MINOR.PATCH form. A missing
// leading "v" is added.
func Normalize(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ErrInvalidVersion
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, v)
	}
	return semver.Canonical(v), nil
}

// Compare normalizes both versions and compares them like semver.Compare.
func Compare(a, b string) (int, error) {
	na, err := Normalize(a)
	if err != nil {
		return 0, err
	}
	nb, err := Normalize(b)
	if err != nil {
		return 0, err
	}
	return semver.Compare(na, nb), nil
}

// By is the value nodes record as the author of their bootstrap file.
func By() string {
	return "hydra-bootstrap-" + Version
}
