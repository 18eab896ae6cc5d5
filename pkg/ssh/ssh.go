// Copyright (C) 2023, Lux Partners Limited, All rights reserved.
// See the file LICENSE for licensing terms.

// Package ssh runs commands and copies files on provisioned hosts.
package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/hydra/pkg/constants"
	"github.com/melbahja/goph"
	"go.uber.org/zap"
	cryptossh "golang.org/x/crypto/ssh"
)

// Result is the captured output of a remote command.
type Result struct {
	Stdout     string
	Stderr     string
	ExitStatus int
}

// Executor runs a single command or copy against one host. It never retries.
type Executor interface {
	Run(ctx context.Context, address string, cmd Command) (Result, error)
	Copy(ctx context.Context, address, localPath, remotePath string) error
}

type Config struct {
	User           string
	Port           uint
	KeyPath        string
	Timeout        time.Duration
	StrictHostKeys bool
}

// GophExecutor is the Executor backed by goph. The private key is loaded
// once, on first use.
type GophExecutor struct {
	cfg Config
	log *zap.Logger

	authOnce sync.Once
	auth     goph.Auth
	authErr  error
}

func NewGophExecutor(cfg Config, log *zap.Logger) *GophExecutor {
	if cfg.User == "" {
		cfg.User = constants.RemoteSSHUser
	}
	if cfg.Port == 0 {
		cfg.Port = constants.SSHDefaultPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = constants.SSHTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GophExecutor{cfg: cfg, log: log}
}

// scriptLog formats a line of remote output with the host it came from.
func scriptLog(address string, line string) string {
	return fmt.Sprintf("[%s] %s", address, line)
}

func (e *GophExecutor) loadAuth() (goph.Auth, error) {
	e.authOnce.Do(func() {
		e.log.Debug("loading ssh key", zap.String("path", e.cfg.KeyPath))
		e.auth, e.authErr = goph.Key(e.cfg.KeyPath, "")
		if e.authErr != nil {
			e.authErr = fmt.Errorf("%w %s: %w", ErrKeyFile, e.cfg.KeyPath, e.authErr)
		}
	})
	return e.auth, e.authErr
}

func (e *GophExecutor) hostKeyCallback() (cryptossh.HostKeyCallback, error) {
	if e.cfg.StrictHostKeys {
		return goph.DefaultKnownHosts()
	}
	return cryptossh.InsecureIgnoreHostKey(), nil
}

func (e *GophExecutor) connect(ctx context.Context, address string) (*goph.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	auth, err := e.loadAuth()
	if err != nil {
		return nil, err
	}
	callback, err := e.hostKeyCallback()
	if err != nil {
		return nil, err
	}
	client, err := goph.NewConn(&goph.Config{
		User:     e.cfg.User,
		Addr:     address,
		Port:     e.cfg.Port,
		Auth:     auth,
		Timeout:  e.cfg.Timeout,
		Callback: callback,
	})
	if err != nil {
		return nil, classifyConnectError(address, err)
	}
	return client, nil
}

func (e *GophExecutor) Run(ctx context.Context, address string, cmd Command) (Result, error) {
	line := cmd.String()
	e.log.Info(scriptLog(address, "run: "+line))

	client, err := e.connect(ctx, address)
	if err != nil {
		return Result{}, err
	}
	defer client.Close()

	session, err := client.CommandContext(ctx, line)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: opening session: %w", ErrUnreachable, address, err)
	}
	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	err = session.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	e.log.Debug(scriptLog(address, "output"), zap.String("stdout", res.Stdout), zap.String("stderr", res.Stderr))
	if err == nil {
		return res, nil
	}

	var exitErr *cryptossh.ExitError
	if errors.As(err, &exitErr) {
		res.ExitStatus = exitErr.ExitStatus()
		return res, &CommandError{
			Address:    address,
			Command:    line,
			ExitStatus: res.ExitStatus,
			Stderr:     res.Stderr,
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	return res, fmt.Errorf("%w: %s: %w", ErrUnreachable, address, err)
}

func (e *GophExecutor) Copy(ctx context.Context, address, localPath, remotePath string) error {
	e.log.Info(scriptLog(address, fmt.Sprintf("copy: %s -> %s", localPath, remotePath)))

	client, err := e.connect(ctx, address)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Upload(localPath, remotePath); err != nil {
		return fmt.Errorf("copying %s to %s:%s: %w", localPath, address, remotePath, err)
	}
	return nil
}

// InteractiveArgs returns the argv of the system ssh client for an
// interactive login on address.
func (c Config) InteractiveArgs(address string) []string {
	user := c.User
	if user == "" {
		user = constants.RemoteSSHUser
	}
	args := []string{"ssh", "-i", c.KeyPath}
	if c.Port != 0 && c.Port != constants.SSHDefaultPort {
		args = append(args, "-p", fmt.Sprint(c.Port))
	}
	if !c.StrictHostKeys {
		args = append(args, "-o", "StrictHostKeyChecking=no")
	}
	return append(args, user+"@"+address)
}
