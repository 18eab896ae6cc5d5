// Code generated manually for testing. Update as needed.

package mocks

import (
	"github.com/luxfi/hydra/pkg/prompts"
	"github.com/stretchr/testify/mock"
)

// Prompter is a mock implementation of prompts.Prompter
type Prompter struct {
	mock.Mock
}

func (m *Prompter) CaptureYesNo(promptStr string) (bool, error) {
	args := m.Called(promptStr)
	return args.Bool(0), args.Error(1)
}

func (m *Prompter) CaptureNoYes(promptStr string) (bool, error) {
	args := m.Called(promptStr)
	return args.Bool(0), args.Error(1)
}

func (m *Prompter) CapturePositiveInt(promptStr string, comparators []prompts.Comparator) (int, error) {
	args := m.Called(promptStr, comparators)
	return args.Int(0), args.Error(1)
}

var _ prompts.Prompter = (*Prompter)(nil)
