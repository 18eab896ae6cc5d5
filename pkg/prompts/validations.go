// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package prompts

import (
	"regexp"

	"github.com/luxfi/hydra/pkg/constants"
)

var networkNameRegexp = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]*$`)

// ValidateNetworkName accepts letters, digits and dashes, not starting with a dash.
func ValidateNetworkName(input string) error {
	if input == "" {
		return constants.ErrNoNetworkName
	}
	if len(input) > constants.NetworkNameMaxLength || !networkNameRegexp.MatchString(input) {
		return constants.ErrInvalidNetworkName
	}
	return nil
}
