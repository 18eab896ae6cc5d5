// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ux

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var Logger *UserLog

// UserLog prints operator-facing lines and mirrors them to the log file.
type UserLog struct {
	log    *zap.Logger
	writer io.Writer
	mu     sync.Mutex
}

func NewUserLog(log *zap.Logger, userwriter io.Writer) {
	if Logger == nil {
		Logger = &UserLog{
			log:    log,
			writer: userwriter,
		}
	}
}

// New returns a UserLog that is not installed as the package Logger.
func New(log *zap.Logger, userwriter io.Writer) *UserLog {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserLog{log: log, writer: userwriter}
}

func (ul *UserLog) println(line string) {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	_, _ = fmt.Fprintln(ul.writer, line)
}

// PrintToUser prints msg directly to the user writer.
func (ul *UserLog) PrintToUser(msg string, args ...interface{}) {
	formattedMsg := fmt.Sprintf(msg, args...)
	ul.println(formattedMsg)
	ul.log.Debug(formattedMsg)
}

// Info logs an info message without printing it
func (ul *UserLog) Info(msg string, args ...interface{}) {
	ul.log.Info(fmt.Sprintf(msg, args...))
}

// Warn prints a yellow warning. Warnings never change the exit status.
func (ul *UserLog) Warn(msg string, args ...interface{}) {
	formattedMsg := fmt.Sprintf(msg, args...)
	ul.println(color.YellowString("! %s", formattedMsg))
	ul.log.Warn(formattedMsg)
}

// Error logs an error message
func (ul *UserLog) Error(msg string, args ...interface{}) {
	ul.log.Error(fmt.Sprintf(msg, args...))
}

// PrintLineSeparator prints a line separator
func (ul *UserLog) PrintLineSeparator(msg ...string) {
	separator := "=========================================="
	if len(msg) > 0 && msg[0] != "" {
		separator = msg[0]
	}
	ul.println(separator)
}

func (ul *UserLog) RedXToUser(msg string, args ...interface{}) {
	formattedMsg := fmt.Sprintf(msg, args...)
	ul.println(color.RedString("✗ ") + formattedMsg)
	ul.log.Error(formattedMsg)
}

func (ul *UserLog) GreenCheckmarkToUser(msg string, args ...interface{}) {
	formattedMsg := fmt.Sprintf(msg, args...)
	ul.println(color.GreenString("✓ ") + formattedMsg)
	ul.log.Info(formattedMsg)
}

// StepTracker tracks progress of multi-step operations with elapsed time
type StepTracker struct {
	stepStart    time.Time
	warnAfter    time.Duration
	warningShown bool
	stepName     string
	ul           *UserLog
}

// NewStepTracker creates a tracker that warns if a step takes longer than warnAfter
func NewStepTracker(ul *UserLog, warnAfter time.Duration) *StepTracker {
	return &StepTracker{
		ul:        ul,
		warnAfter: warnAfter,
	}
}

// Start begins tracking a new step
func (st *StepTracker) Start(stepName string) {
	st.stepStart = time.Now()
	st.stepName = stepName
	st.warningShown = false
	st.ul.PrintToUser("%s...", stepName)
}

func (st *StepTracker) Elapsed() time.Duration {
	return time.Since(st.stepStart)
}

// CheckWarn prints a warning once the step has run past the threshold.
// Returns true if the warning was printed.
func (st *StepTracker) CheckWarn() bool {
	if st.warningShown {
		return false
	}
	elapsed := st.Elapsed()
	if elapsed > st.warnAfter {
		st.ul.Warn("%s taking longer than expected (%s)", st.stepName, elapsed.Round(time.Second))
		st.warningShown = true
		return true
	}
	return false
}

// Complete marks the step as done with success
func (st *StepTracker) Complete(suffix string) {
	elapsed := st.Elapsed()
	if suffix != "" {
		st.ul.GreenCheckmarkToUser("%s (%.1fs) - %s", st.stepName, elapsed.Seconds(), suffix)
	} else {
		st.ul.GreenCheckmarkToUser("%s (%.1fs)", st.stepName, elapsed.Seconds())
	}
}

// Failed marks the step as failed with an error
func (st *StepTracker) Failed(reason string) {
	elapsed := st.Elapsed()
	st.ul.RedXToUser("%s (%.1fs) - FAILED: %s", st.stepName, elapsed.Seconds(), reason)
}

// ConvertToStringWithThousandSeparator formats n as 1_234_567.
func ConvertToStringWithThousandSeparator(input uint64) string {
	p := message.NewPrinter(language.English)
	s := p.Sprintf("%d", input)
	return strings.ReplaceAll(s, ",", "_")
}
