// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ux

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/chelnak/ysmrr"
	"github.com/k0kubun/go-ansi"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

const progressThrottle = 65 * time.Millisecond

// IsTerminal checks if the writer is a terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewBytesBar returns a byte counting progress bar. It renders nothing when w
// is not a terminal. total of -1 renders a spinner.
func NewBytesBar(w io.Writer, total int64, description string) *progressbar.ProgressBar {
	if !IsTerminal(w) {
		return progressbar.DefaultBytesSilent(total, description)
	}
	if w == os.Stdout {
		w = ansi.NewAnsiStdout()
	}
	return progressbar.NewOptions64(
		total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(progressThrottle),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s[reset]", description)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w)
		}),
	)
}

// NodeSpinners shows one spinner per node while nodes are worked on
// concurrently. On a non-terminal it prints one line per final outcome.
type NodeSpinners struct {
	ul       *UserLog
	manager  ysmrr.SpinnerManager
	spinners map[string]*ysmrr.Spinner
	mu       sync.Mutex
}

func NewNodeSpinners(ul *UserLog, w io.Writer, addresses []string) *NodeSpinners {
	ns := &NodeSpinners{ul: ul, spinners: map[string]*ysmrr.Spinner{}}
	if !IsTerminal(w) {
		return ns
	}
	ns.manager = ysmrr.NewSpinnerManager()
	for _, addr := range addresses {
		ns.spinners[addr] = ns.manager.AddSpinner(addr + ": waiting")
	}
	ns.manager.Start()
	return ns
}

func (ns *NodeSpinners) Update(address, msg string) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if s, ok := ns.spinners[address]; ok {
		s.UpdateMessage(address + ": " + msg)
	}
}

func (ns *NodeSpinners) Done(address, msg string) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if s, ok := ns.spinners[address]; ok {
		s.CompleteWithMessage(address + ": " + msg)
		return
	}
	ns.ul.GreenCheckmarkToUser("%s: %s", address, msg)
}

func (ns *NodeSpinners) Fail(address, msg string) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if s, ok := ns.spinners[address]; ok {
		s.ErrorWithMessage(address + ": " + msg)
		return
	}
	ns.ul.RedXToUser("%s: %s", address, msg)
}

func (ns *NodeSpinners) Stop() {
	if ns.manager != nil {
		ns.manager.Stop()
	}
}
