// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/nodeconfig"
	"github.com/luxfi/hydra/pkg/ux"
	"go.uber.org/zap"
)

const stopGrace = time.Second

// Services manages the systemd unit that runs a node.
type Services struct {
	runner  Runner
	procs   ProcessFinder
	ul      *ux.UserLog
	log     *zap.Logger
	unitDir string
	grace   time.Duration
}

type ServicesOption func(*Services)

// WithUnitDir changes where installed units are looked up.
func WithUnitDir(dir string) ServicesOption {
	return func(s *Services) { s.unitDir = dir }
}

func WithStopGrace(d time.Duration) ServicesOption {
	return func(s *Services) { s.grace = d }
}

func NewServices(runner Runner, procs ProcessFinder, ul *ux.UserLog, log *zap.Logger, opts ...ServicesOption) *Services {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Services{
		runner:  runner,
		procs:   procs,
		ul:      ul,
		log:     log,
		unitDir: constants.SystemdUnitDir,
		grace:   stopGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Services) unitPath(u nodeconfig.Unit) string {
	return filepath.Join(s.unitDir, u.ServiceName())
}

// Installed reports whether the unit file of u exists.
func (s *Services) Installed(u nodeconfig.Unit) bool {
	_, err := os.Stat(s.unitPath(u))
	return err == nil
}

func (s *Services) sudo(ctx context.Context, args ...string) error {
	s.log.Info("sudo", zap.Strings("args", args))
	_, err := s.runner.Run(ctx, "", "sudo", args...)
	return err
}

func (s *Services) systemctl(ctx context.Context, args ...string) error {
	return s.sudo(ctx, append([]string{"systemctl"}, args...)...)
}

// Install renders the unit into the node directory, copies it into place
// and enables and starts it.
func (s *Services) Install(ctx context.Context, u nodeconfig.Unit) error {
	body, err := u.Render()
	if err != nil {
		return err
	}
	local := filepath.Join(u.Dir, u.ServiceName())
	if err := os.WriteFile(local, body, constants.WriteReadReadPerms); err != nil {
		return err
	}
	target := s.unitPath(u)
	s.ul.PrintToUser("Installing %s as %s", target, u.User)
	steps := [][]string{
		{"cp", local, target},
		{"chown", "root:root", target},
		{"systemctl", "daemon-reload"},
		{"systemctl", "enable", u.ServiceName()},
		{"systemctl", "start", u.ServiceName()},
	}
	for _, step := range steps {
		if err := s.sudo(ctx, step...); err != nil {
			return fmt.Errorf("failed installing %s: %w", u.ServiceName(), err)
		}
	}
	s.ul.GreenCheckmarkToUser("Installed %s", u.ServiceName())
	return nil
}

// Uninstall stops and disables the unit and removes its file.
func (s *Services) Uninstall(ctx context.Context, u nodeconfig.Unit) error {
	if !s.Installed(u) {
		return fmt.Errorf("%w: %s", constants.ErrServiceNotInstalled, s.unitPath(u))
	}
	name := u.ServiceName()
	s.ul.PrintToUser("Uninstalling %s", name)
	// stop and disable may fail on a unit that is already stopped
	for _, step := range [][]string{{"stop", name}, {"disable", name}, {"reset-failed", name}} {
		if err := s.systemctl(ctx, step...); err != nil {
			s.log.Warn("systemctl step failed", zap.Strings("step", step), zap.Error(err))
		}
	}
	if err := s.sudo(ctx, "rm", "-f", s.unitPath(u)); err != nil {
		return err
	}
	return s.systemctl(ctx, "daemon-reload")
}

// Start starts the unit. Without an installed unit it only warns.
func (s *Services) Start(ctx context.Context, u nodeconfig.Unit) error {
	if !s.Installed(u) {
		s.ul.Warn("Service not installed. You will need to restart your node manually.")
		return nil
	}
	if err := s.systemctl(ctx, "start", u.ServiceName()); err != nil {
		return err
	}
	s.ul.GreenCheckmarkToUser("Started %s", u.ServiceName())
	return nil
}

// Stop stops the unit, or kills the node binary running from the node
// directory when no unit is installed.
func (s *Services) Stop(ctx context.Context, u nodeconfig.Unit) error {
	if s.Installed(u) {
		if err := s.systemctl(ctx, "stop", u.ServiceName()); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.grace):
		}
		if err := s.systemctl(ctx, "kill", u.ServiceName()); err != nil {
			s.log.Debug("systemctl kill", zap.Error(err))
		}
		s.ul.GreenCheckmarkToUser("Stopped %s", u.ServiceName())
		return nil
	}

	s.ul.PrintToUser("Service not installed. Attempting to stop executable.")
	binary := u.Binary
	if binary == "" {
		binary = constants.DefaultBinaryName
	}
	exe := filepath.Join(u.Dir, binary)
	pids, err := s.procs.FindExecutable(exe)
	if err != nil {
		return fmt.Errorf("failed scanning for %s: %w", exe, err)
	}
	if len(pids) == 0 {
		s.ul.PrintToUser("No matching executable running. Continuing.")
		return nil
	}
	var errs []error
	for _, pid := range pids {
		s.ul.PrintToUser("Found matching executable running as PID %d", pid)
		if err := s.sudo(ctx, "kill", strconv.Itoa(int(pid))); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Services) Restart(ctx context.Context, u nodeconfig.Unit) error {
	if err := s.Stop(ctx, u); err != nil {
		return err
	}
	return s.Start(ctx, u)
}
