// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package prompts

import (
	"testing"

	"github.com/luxfi/hydra/pkg/constants"
	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/require"
)

func pinTTY(t *testing.T, tty bool) {
	prev := stdinIsTTY
	stdinIsTTY = func() bool { return tty }
	t.Cleanup(func() { stdinIsTTY = prev })
}

func TestIsInteractive_EnvVar(t *testing.T) {
	tests := []struct {
		envValue    string
		interactive bool
	}{
		{"1", false},
		{"true", false},
		{"YES", false},
		{" on ", false},
		{"0", true},
		{"false", true},
		{"no", true},
		{"", true},
	}

	for _, tc := range tests {
		t.Run("HYDRA_NON_INTERACTIVE="+tc.envValue, func(t *testing.T) {
			pinTTY(t, true)
			t.Setenv(EnvCI, "")
			t.Setenv(EnvNonInteractive, tc.envValue)
			require.Equal(t, tc.interactive, IsInteractive())
		})
	}
}

func TestIsInteractive_CI(t *testing.T) {
	pinTTY(t, true)
	t.Setenv(EnvNonInteractive, "")
	t.Setenv(EnvCI, "true")
	require.False(t, IsInteractive())
}

func TestIsInteractive_NoTTY(t *testing.T) {
	pinTTY(t, false)
	t.Setenv(EnvNonInteractive, "")
	t.Setenv(EnvCI, "")
	require.False(t, IsInteractive())
}

func TestNewPrompterForMode(t *testing.T) {
	pinTTY(t, true)
	t.Setenv(EnvNonInteractive, "")
	t.Setenv(EnvCI, "")

	_, ok := NewPrompterForMode(true).(*NonInteractivePrompter)
	require.True(t, ok, "explicit flag forces the non-interactive prompter")

	_, ok = NewPrompterForMode(false).(*realPrompter)
	require.True(t, ok)
}

func TestValidateNetworkName(t *testing.T) {
	require.NoError(t, ValidateNetworkName("alpha"))
	require.NoError(t, ValidateNetworkName("3f9a1c"))
	require.NoError(t, ValidateNetworkName("stage-2"))
	require.ErrorIs(t, ValidateNetworkName(""), constants.ErrNoNetworkName)
	require.ErrorIs(t, ValidateNetworkName("-alpha"), constants.ErrInvalidNetworkName)
	require.ErrorIs(t, ValidateNetworkName("alpha beta"), constants.ErrInvalidNetworkName)
	require.ErrorIs(t, ValidateNetworkName("a/b"), constants.ErrInvalidNetworkName)
}

func TestComparatorValidate(t *testing.T) {
	c := Comparator{Label: "max nodes", Type: LessThanEq, Value: 4}
	require.NoError(t, c.Validate(4))
	require.ErrorContains(t, c.Validate(5), "max nodes (4)")

	c = Comparator{Label: "one node", Type: MoreThanEq, Value: 1}
	require.Error(t, c.Validate(0))
	require.NoError(t, c.Validate(1))
}

func TestCapturePositiveInt(t *testing.T) {
	prev := promptUIRunner
	t.Cleanup(func() { promptUIRunner = prev })

	comparators := []Comparator{{Label: "one node", Type: MoreThanEq, Value: 1}}
	promptUIRunner = func(prompt promptui.Prompt) (string, error) {
		require.Error(t, prompt.Validate("0"))
		require.Error(t, prompt.Validate("-3"))
		require.Error(t, prompt.Validate("four"))
		require.NoError(t, prompt.Validate("4"))
		return "4", nil
	}
	n, err := NewPrompter().CapturePositiveInt("How many nodes?", comparators)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	promptUIRunner = func(promptui.Prompt) (string, error) { return "", promptui.ErrInterrupt }
	_, err = NewPrompter().CapturePositiveInt("How many nodes?", comparators)
	require.ErrorIs(t, err, promptui.ErrInterrupt)
}
