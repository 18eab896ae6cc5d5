// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/nodeconfig"
	"github.com/shirou/gopsutil/host"
	"go.uber.org/zap"
)

var ErrNoValidatorInfo = errors.New("validator info not set")

const telegrafInstallDocs = "https://docs.influxdata.com/telegraf/v1.10/introduction/installation/"

// ValidatorInfo is the metrics identity of a validator, kept in the node
// directory.
type ValidatorInfo struct {
	NodeKey      string `json:"node_key"`
	InfluxDBPass string `json:"influxdb_pass"`
}

// MetricsPaths are the system files the metrics step writes.
type MetricsPaths struct {
	RsyslogDropIn  string
	TelegrafConfig string
	AptList        string
}

func defaultMetricsPaths() MetricsPaths {
	return MetricsPaths{
		RsyslogDropIn:  constants.RsyslogDropInPath,
		TelegrafConfig: constants.TelegrafConfigPath,
		AptList:        constants.InfluxAptListPath,
	}
}

// WithMetricsPaths changes where the rsyslog and telegraf files go.
func WithMetricsPaths(p MetricsPaths) Option {
	return func(c *Client) { c.metricsPaths = p }
}

// WithPlatform replaces the lookup of the distribution name.
func WithPlatform(f func(context.Context) (string, error)) Option {
	return func(c *Client) { c.platform = f }
}

func hostPlatform(ctx context.Context) (string, error) {
	platform, _, _, err := host.PlatformInformationWithContext(ctx)
	return platform, err
}

func ReadValidatorInfo(nodeDir string) (ValidatorInfo, error) {
	var info ValidatorInfo
	data, err := os.ReadFile(filepath.Join(nodeDir, constants.ValidatorInfoFileName))
	if errors.Is(err, os.ErrNotExist) {
		return info, fmt.Errorf("%w: write %s in %s before enabling validator metrics",
			ErrNoValidatorInfo, constants.ValidatorInfoFileName, nodeDir)
	}
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("failed parsing %s: %w", constants.ValidatorInfoFileName, err)
	}
	if info.NodeKey == "" || info.InfluxDBPass == "" {
		return info, fmt.Errorf("%w: %s needs node_key and influxdb_pass", ErrNoValidatorInfo, constants.ValidatorInfoFileName)
	}
	return info, nil
}

// ConfigureMetrics forwards the node's logs through rsyslog to telegraf,
// installs telegraf on Ubuntu and points it at the metrics database. The
// validator info is checked before anything on the system changes.
func (c *Client) ConfigureMetrics(ctx context.Context, nodeDir string) error {
	info, err := ReadValidatorInfo(nodeDir)
	if err != nil {
		return err
	}
	if err := c.configureRsyslog(ctx); err != nil {
		return err
	}
	installed, err := c.installTelegraf(ctx)
	if err != nil {
		return err
	}
	if !installed {
		return nil
	}
	return c.configureTelegraf(ctx, nodeDir, info)
}

func (c *Client) sudo(ctx context.Context, args ...string) error {
	c.log.Info("sudo", zap.Strings("args", args))
	_, err := c.runner.Run(ctx, "", "sudo", args...)
	return err
}

// installFile writes data to a temporary file and moves it into place as root.
func (c *Client) installFile(ctx context.Context, dst string, data []byte) error {
	tmp, err := os.CreateTemp("", filepath.Base(dst)+"-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := c.sudo(ctx, "mv", tmp.Name(), dst); err != nil {
		return fmt.Errorf("failed installing %s: %w", dst, err)
	}
	return nil
}

func (c *Client) configureRsyslog(ctx context.Context) error {
	c.ul.PrintToUser("Configuring system log reporting")
	conf, err := nodeconfig.RsyslogDropIn(c.binary)
	if err != nil {
		return err
	}
	if err := c.installFile(ctx, c.metricsPaths.RsyslogDropIn, conf); err != nil {
		return err
	}
	return c.sudo(ctx, "systemctl", "restart", "rsyslog")
}

// installTelegraf reports false when the distribution needs a manual install.
func (c *Client) installTelegraf(ctx context.Context) (bool, error) {
	platform, err := c.platform(ctx)
	if err != nil {
		return false, fmt.Errorf("failed detecting distribution: %w", err)
	}
	platform = strings.ToLower(platform)
	if platform != "ubuntu" {
		c.ul.Warn("Automated telegraf installation not supported for %s. See %s", platform, telegrafInstallDocs)
		return false, nil
	}
	c.ul.PrintToUser("Installing telegraf for metrics reporting")
	out, err := c.runner.Run(ctx, "", "lsb_release", "-cs")
	if err != nil {
		return false, fmt.Errorf("failed reading release codename: %w", err)
	}
	codename := strings.TrimSpace(out.Stdout)

	if err := c.sudo(ctx, "apt-key", "adv", "--fetch-keys", constants.InfluxRepoURL+"/influxdb.key"); err != nil {
		return false, err
	}
	list := fmt.Sprintf("deb %s/%s %s stable\n", constants.InfluxRepoURL, platform, codename)
	if err := c.installFile(ctx, c.metricsPaths.AptList, []byte(list)); err != nil {
		return false, err
	}
	for _, args := range [][]string{
		{"apt-get", "update"},
		{"apt-get", "install", "-y", "telegraf"},
		{"systemctl", "enable", "telegraf"},
	} {
		if err := c.sudo(ctx, args...); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (c *Client) configureTelegraf(ctx context.Context, nodeDir string, info ValidatorInfo) error {
	c.ul.PrintToUser("Updating telegraf config")
	moniker := ""
	if engine, err := os.ReadFile(filepath.Join(nodeDir, constants.EngineConfigPath)); err == nil {
		moniker = nodeconfig.Moniker(engine)
	}
	if moniker == "" {
		if moniker, _ = os.Hostname(); moniker == "" {
			moniker = "unknown"
		}
	}
	current, err := os.ReadFile(c.metricsPaths.TelegrafConfig)
	if err != nil {
		return fmt.Errorf("failed reading %s: %w", c.metricsPaths.TelegrafConfig, err)
	}
	conf, err := nodeconfig.PatchTelegrafConfig(current, moniker, nodeconfig.MetricsCredentials{
		Username: info.NodeKey,
		Password: info.InfluxDBPass,
	})
	if err != nil {
		return err
	}
	if err := c.installFile(ctx, c.metricsPaths.TelegrafConfig, conf); err != nil {
		return err
	}
	return c.sudo(ctx, "systemctl", "restart", "telegraf")
}
