// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package prompts

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

const (
	Yes = "Yes"
	No  = "No"

	LessThanEq = "Less Than Or Eq"
	MoreThanEq = "More Than Or Eq"
)

// promptUIRunner is a variable for testing purposes to allow mocking prompt.Run()
var promptUIRunner = func(prompt promptui.Prompt) (string, error) {
	return prompt.Run()
}

// promptUISelectRunner is a variable for testing purposes to allow mocking select.Run()
var promptUISelectRunner = func(sel promptui.Select) (int, string, error) {
	return sel.Run()
}

type Comparator struct {
	Label string // Label that identifies reference value
	Type  string // Less Than Eq or More than Eq
	Value uint64 // Value to Compare To
}

func (comparator *Comparator) Validate(val uint64) error {
	switch comparator.Type {
	case LessThanEq:
		if val > comparator.Value {
			return fmt.Errorf("the value must be smaller than or equal to %s (%d)", comparator.Label, comparator.Value)
		}
	case MoreThanEq:
		if val < comparator.Value {
			return fmt.Errorf("the value must be bigger than or equal to %s (%d)", comparator.Label, comparator.Value)
		}
	}
	return nil
}

type Prompter interface {
	CaptureYesNo(promptStr string) (bool, error)
	CaptureNoYes(promptStr string) (bool, error)
	CapturePositiveInt(promptStr string, comparators []Comparator) (int, error)
}

type realPrompter struct{}

// NewPrompter returns a Prompter backed by the terminal.
func NewPrompter() Prompter {
	return &realPrompter{}
}

func yesNoBase(promptStr string, orderedOptions []string) (bool, error) {
	prompt := promptui.Select{
		Label: promptStr,
		Items: orderedOptions,
	}

	_, decision, err := promptUISelectRunner(prompt)
	if err != nil {
		return false, err
	}
	return decision == Yes, nil
}

func (*realPrompter) CaptureYesNo(promptStr string) (bool, error) {
	return yesNoBase(promptStr, []string{Yes, No})
}

// CaptureNoYes is CaptureYesNo with No preselected, for destructive actions.
func (*realPrompter) CaptureNoYes(promptStr string) (bool, error) {
	return yesNoBase(promptStr, []string{No, Yes})
}

func (*realPrompter) CapturePositiveInt(promptStr string, comparators []Comparator) (int, error) {
	prompt := promptui.Prompt{
		Label: promptStr,
		Validate: func(input string) error {
			val, err := strconv.Atoi(input)
			if err != nil {
				return err
			}
			if val < 0 {
				return errors.New("input is less than 0")
			}
			for _, comparator := range comparators {
				if err := comparator.Validate(uint64(val)); err != nil {
					return err
				}
			}
			return nil
		},
	}

	amountStr, err := promptUIRunner(prompt)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(amountStr)
}

// Confirm asks a yes/no question unless force is set. A declined prompt
// returns false with a nil error.
func Confirm(p Prompter, force bool, promptStr string) (bool, error) {
	if force {
		return true, nil
	}
	return p.CaptureNoYes(promptStr)
}
