// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package provision

import "strings"

// Phase is where a stack creation stands.
type Phase int

const (
	// PhaseUnknown is the zero value
	PhaseUnknown Phase = iota
	// PhaseSubmitted is set once the stack handle exists
	PhaseSubmitted
	// PhasePolling covers every non-terminal provider status
	PhasePolling
	// PhaseSucceeded is reached on CREATE_COMPLETE
	PhaseSucceeded
	// PhaseFailed is reached on a rollback, failure or delete status
	PhaseFailed
)

const (
	statusCreateComplete = "CREATE_COMPLETE"
	statusDeleteComplete = "DELETE_COMPLETE"
	statusDeleteFailed   = "DELETE_FAILED"
)

func (p Phase) String() string {
	switch p {
	case PhaseSubmitted:
		return "Submitted"
	case PhasePolling:
		return "Polling"
	case PhaseSucceeded:
		return "Succeeded"
	case PhaseFailed:
		return "Failed"
	}
	return "Unknown"
}

func (p Phase) Terminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// Classify maps a raw provider stack status to a phase.
func Classify(status string) Phase {
	switch {
	case status == statusCreateComplete:
		return PhaseSucceeded
	case strings.HasPrefix(status, "ROLLBACK_"),
		strings.HasSuffix(status, "_FAILED"),
		strings.HasPrefix(status, "DELETE_"):
		return PhaseFailed
	case status == "":
		return PhaseSubmitted
	}
	return PhasePolling
}
