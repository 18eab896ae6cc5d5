// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/luxfi/hydra/pkg/cloud/storage"
	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/genesis"
	"github.com/luxfi/hydra/pkg/release"
	"github.com/luxfi/hydra/pkg/ux"
	"go.uber.org/zap"
)

const (
	privValidatorPoll = 250 * time.Millisecond
	privValidatorWait = 10 * time.Second
)

// Client lays out and configures the node directories of one machine.
type Client struct {
	channel    storage.Storage
	runner     Runner
	ul         *ux.UserLog
	log        *zap.Logger
	out        io.Writer
	binary     string
	externalIP func(context.Context) (string, error)
	platform   func(context.Context) (string, error)
	now        func() time.Time

	metricsPaths MetricsPaths
}

type Option func(*Client)

// WithExternalIP replaces the lookup of the address advertised to peers.
func WithExternalIP(f func(context.Context) (string, error)) Option {
	return func(c *Client) { c.externalIP = f }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func NewClient(channel storage.Storage, runner Runner, ul *ux.UserLog, log *zap.Logger, out io.Writer, binary string, opts ...Option) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	if binary == "" {
		binary = constants.DefaultBinaryName
	}
	c := &Client{
		channel: channel,
		runner:  runner,
		ul:      ul,
		log:     log,
		out:     out,
		binary:  binary,
		now:     time.Now,

		platform:     hostPlatform,
		metricsPaths: defaultMetricsPaths(),
	}
	c.externalIP = func(ctx context.Context) (string, error) {
		return LookupExternalIP(ctx, nil, constants.ExternalIPServiceURL)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Binary() string {
	return c.binary
}

// binaries returns every executable a node directory needs.
func (c *Client) binaries() []string {
	return append([]string{c.binary}, constants.OracleBinaries...)
}

func (c *Client) exec(ctx context.Context, nodeDir string, args ...string) (Output, error) {
	return c.runner.Run(ctx, nodeDir, "./"+c.binary, args...)
}

// Bootstrap creates nodeDir, installs the release binaries of ver (latest
// when empty), initializes the chain and writes the helper files.
func (c *Client) Bootstrap(ctx context.Context, nodeDir, ver string, destroy bool) error {
	if _, err := os.Stat(nodeDir); err == nil {
		if !destroy {
			return fmt.Errorf("%w: %s", constants.ErrExistingNodeDir, nodeDir)
		}
		c.ul.Warn("Deleting existing node directory %s", nodeDir)
		if err := os.RemoveAll(nodeDir); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(nodeDir, constants.DefaultPerms755); err != nil {
		return fmt.Errorf("could not create node directory %s: %w", nodeDir, err)
	}

	for _, bin := range c.binaries() {
		if err := c.downloadBinary(ctx, nodeDir, ver, bin); err != nil {
			return err
		}
	}

	if got, err := BinaryVersion(ctx, c.runner, filepath.Join(nodeDir, c.binary)); err == nil {
		c.log.Debug("installed binary", zap.String("binary", c.binary), zap.String("version", got))
	}

	chainConfig, err := genesis.BootstrapChainConfig().Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(nodeDir, constants.ChainConfigFileName), chainConfig, constants.WriteReadReadPerms); err != nil {
		return err
	}

	c.ul.PrintToUser("Initializing %s...", c.binary)
	if _, err := c.exec(ctx, nodeDir, "init"); err != nil {
		return fmt.Errorf("failed initializing %s: %w", nodeDir, err)
	}
	if err := c.waitForPrivValidator(ctx, nodeDir); err != nil {
		return err
	}
	if _, err := c.UpdateHelperFiles(ctx, nodeDir, ver); err != nil {
		return err
	}
	c.ul.GreenCheckmarkToUser("Bootstrapped %s", nodeDir)
	return nil
}

func (c *Client) downloadBinary(ctx context.Context, nodeDir, ver, bin string) error {
	key := release.Key(ver, bin)
	local := filepath.Join(nodeDir, bin)
	bar := ux.NewBytesBar(c.out, -1, "Downloading "+bin)
	err := c.channel.DownloadFile(ctx, key, local, &storage.DownloadOptions{
		ProgressFunc: func(done, total int64) {
			if total > 0 && bar.GetMax64() != total {
				bar.ChangeMax64(total)
			}
			_ = bar.Set64(done)
		},
	})
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("failed downloading %s: %w", key, err)
	}
	info, err := os.Stat(local)
	if err != nil {
		return err
	}
	return os.Chmod(local, info.Mode()|0o111)
}

// init writes priv_validator.json shortly after it returns.
func (c *Client) waitForPrivValidator(ctx context.Context, nodeDir string) error {
	path := filepath.Join(nodeDir, constants.PrivValidatorPath)
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		_, err := os.Stat(path)
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(privValidatorPoll)),
		backoff.WithMaxElapsedTime(privValidatorWait),
	)
	if err != nil {
		return fmt.Errorf("%s not written by init: %w", path, err)
	}
	return nil
}

// BinaryVersion returns the first line the binary prints for `version`.
// Release binaries print it on stderr.
func BinaryVersion(ctx context.Context, r Runner, path string) (string, error) {
	out, err := r.Run(ctx, filepath.Dir(path), path, "version")
	if err != nil {
		return "", err
	}
	text := out.Stderr
	if strings.TrimSpace(text) == "" {
		text = out.Stdout
	}
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	if line == "" {
		return "", errors.New(path + " printed no version")
	}
	return strings.TrimSpace(line), nil
}
