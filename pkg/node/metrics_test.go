// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/require"
)

const installedTelegraf = `[agent]
interval = "10s"

[global_tags]
dc = "us-east-1"
`

func metricsNode(t *testing.T, withInfo bool) string {
	t.Helper()
	nodeDir := t.TempDir()
	cfg := filepath.Join(nodeDir, constants.EngineConfigPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg), 0o755))
	require.NoError(t, os.WriteFile(cfg, []byte(engineConfig), 0o644))
	if withInfo {
		info := `{"node_key": "nk-self", "influxdb_pass": "s3cret"}`
		require.NoError(t, os.WriteFile(filepath.Join(nodeDir, constants.ValidatorInfoFileName), []byte(info), 0o600))
	}
	return nodeDir
}

func metricsClient(t *testing.T, runner Runner, platform string, out *bytes.Buffer) (*Client, MetricsPaths) {
	t.Helper()
	dir := t.TempDir()
	paths := MetricsPaths{
		RsyslogDropIn:  "/etc/rsyslog.d/50-telegraf.conf",
		TelegrafConfig: filepath.Join(dir, "telegraf.conf"),
		AptList:        "/etc/apt/sources.list.d/influxdb.list",
	}
	require.NoError(t, os.WriteFile(paths.TelegrafConfig, []byte(installedTelegraf), 0o644))
	c := NewClient(newChannel(t, "latest"), runner, ux.New(nil, out), nil, nil, "",
		WithMetricsPaths(paths),
		WithPlatform(func(context.Context) (string, error) { return platform, nil }),
	)
	return c, paths
}

// withoutTempPaths drops the temporary source of every "sudo mv".
func withoutTempPaths(calls []string) []string {
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		if f := strings.Fields(c); len(f) == 4 && f[1] == "mv" {
			c = "sudo mv " + f[3]
		}
		out = append(out, c)
	}
	return out
}

func TestConfigureMetricsUbuntu(t *testing.T) {
	require := require.New(t)
	runner := &fakeNode{}
	c, paths := metricsClient(t, runner, "Ubuntu", &bytes.Buffer{})

	require.NoError(c.ConfigureMetrics(context.Background(), metricsNode(t, true)))
	require.Equal([]string{
		"sudo mv /etc/rsyslog.d/50-telegraf.conf",
		"sudo systemctl restart rsyslog",
		"lsb_release -cs",
		"sudo apt-key adv --fetch-keys https://repos.influxdata.com/influxdb.key",
		"sudo mv /etc/apt/sources.list.d/influxdb.list",
		"sudo apt-get update",
		"sudo apt-get install -y telegraf",
		"sudo systemctl enable telegraf",
		"sudo mv " + paths.TelegrafConfig,
		"sudo systemctl restart telegraf",
	}, withoutTempPaths(runner.Calls()))

	require.Contains(string(runner.installed[paths.RsyslogDropIn]), `if $msg contains "shipchain" or $programname == "start_blockchain.sh" then @@(o)127.0.0.1:6514`)
	require.Equal("deb https://repos.influxdata.com/ubuntu jammy stable\n", string(runner.installed[paths.AptList]))

	var conf struct {
		Agent      map[string]any `toml:"agent"`
		GlobalTags map[string]any `toml:"global_tags"`
		Outputs    struct {
			InfluxDB []struct {
				URLs     []string `toml:"urls"`
				Username string   `toml:"username"`
				Password string   `toml:"password"`
			} `toml:"influxdb"`
		} `toml:"outputs"`
		Inputs struct {
			Syslog     []map[string]any `toml:"syslog"`
			Prometheus []struct {
				URLs []string `toml:"urls"`
			} `toml:"prometheus"`
		} `toml:"inputs"`
	}
	require.NoError(toml.Unmarshal(runner.installed[paths.TelegrafConfig], &conf))
	require.Equal("10s", conf.Agent["interval"])
	require.Equal("5s", conf.Agent["flush_jitter"])
	require.Equal("us-east-1", conf.GlobalTags["dc"])
	require.Equal("node", conf.GlobalTags["moniker"])
	require.Len(conf.Outputs.InfluxDB, 1)
	require.Equal("nk-self", conf.Outputs.InfluxDB[0].Username)
	require.Equal("s3cret", conf.Outputs.InfluxDB[0].Password)
	require.Equal([]string{constants.MetricsDatabaseURL}, conf.Outputs.InfluxDB[0].URLs)
	require.Equal("tcp://:6514", conf.Inputs.Syslog[0]["server"])
	require.Equal([]string{"http://localhost:46658/metrics"}, conf.Inputs.Prometheus[0].URLs)
}

func TestConfigureMetricsOtherDistribution(t *testing.T) {
	require := require.New(t)
	runner := &fakeNode{}
	var out bytes.Buffer
	c, _ := metricsClient(t, runner, "centos", &out)

	require.NoError(c.ConfigureMetrics(context.Background(), metricsNode(t, true)))
	require.Equal([]string{
		"sudo mv /etc/rsyslog.d/50-telegraf.conf",
		"sudo systemctl restart rsyslog",
	}, withoutTempPaths(runner.Calls()))
	require.Contains(out.String(), "not supported for centos")
}

func TestConfigureMetricsRequiresValidatorInfo(t *testing.T) {
	runner := &fakeNode{}
	c, _ := metricsClient(t, runner, "ubuntu", &bytes.Buffer{})

	err := c.ConfigureMetrics(context.Background(), metricsNode(t, false))
	require.ErrorIs(t, err, ErrNoValidatorInfo)
	require.Empty(t, runner.Calls())

	nodeDir := metricsNode(t, false)
	require.NoError(t, os.WriteFile(filepath.Join(nodeDir, constants.ValidatorInfoFileName), []byte(`{"node_key": "nk"}`), 0o600))
	_, err = ReadValidatorInfo(nodeDir)
	require.ErrorIs(t, err, ErrNoValidatorInfo)
}

func TestConfigureSkipsMetricsWithoutValidatorInfo(t *testing.T) {
	require := require.New(t)
	channel := newChannel(t, "latest")
	publishNetwork(t, channel, true)
	nodeDir := filepath.Join(t.TempDir(), "alpha")
	runner := &fakeNode{}
	var out bytes.Buffer
	client := NewClient(channel, runner, ux.New(nil, &out), nil, nil, "",
		WithExternalIP(func(context.Context) (string, error) { return "203.0.113.7", nil }),
		WithPlatform(func(context.Context) (string, error) { return "ubuntu", nil }),
	)
	require.NoError(client.Bootstrap(context.Background(), nodeDir, "", false))

	require.NoError(client.Configure(context.Background(), "alpha", nodeDir, ConfigureOptions{ValidatorMetrics: true}))
	require.Contains(out.String(), "Skipping metrics reporting")
	for _, call := range runner.Calls() {
		require.False(strings.HasPrefix(call, "sudo"), call)
	}

	raw, err := os.ReadFile(filepath.Join(nodeDir, constants.EngineConfigPath))
	require.NoError(err)
	var doc struct {
		Instrumentation struct {
			Prometheus bool `toml:"prometheus"`
		} `toml:"instrumentation"`
	}
	require.NoError(toml.Unmarshal(raw, &doc))
	require.True(doc.Instrumentation.Prometheus)
}
