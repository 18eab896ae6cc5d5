// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package nodeconfig

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/luxfi/hydra/pkg/constants"
	"github.com/pelletier/go-toml/v2"
)

var rsyslogTemplate = template.Must(template.New("rsyslog").Parse(`$ActionQueueType LinkedList
$ActionQueueFileName srvrfwd
$ActionResumeRetryCount -1
$ActionQueueSaveOnShutdown on
if $msg contains "{{ .Binary }}" or $programname == "{{ .Script }}" then @@(o)127.0.0.1:{{ .Port }};RSYSLOG_SyslogProtocol23Format
`))

// RsyslogDropIn forwards the log lines of the node to the local telegraf
// syslog listener.
func RsyslogDropIn(binary string) ([]byte, error) {
	var buf bytes.Buffer
	err := rsyslogTemplate.Execute(&buf, struct {
		Binary string
		Script string
		Port   int
	}{binary, constants.StartupScriptName, constants.TelegrafSyslogPort})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Moniker returns the moniker of an engine config.toml, or "" when unset.
func Moniker(engineConfig []byte) string {
	var doc struct {
		Moniker string `toml:"moniker"`
	}
	if err := toml.Unmarshal(engineConfig, &doc); err != nil {
		return ""
	}
	return doc.Moniker
}

// MetricsCredentials authenticate a validator against the metrics database.
type MetricsCredentials struct {
	Username string
	Password string
}

// PatchTelegrafConfig points an installed telegraf.conf at the metrics
// database and adds the node's syslog, prometheus and network inputs.
// Tables it does not own are kept.
func PatchTelegrafConfig(data []byte, moniker string, creds MetricsCredentials) ([]byte, error) {
	doc := map[string]any{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse telegraf config: %w", err)
	}
	table := func(name string) map[string]any {
		t, ok := doc[name].(map[string]any)
		if !ok {
			t = map[string]any{}
			doc[name] = t
		}
		return t
	}

	table("global_tags")["moniker"] = moniker
	// spread the flushes of all validators
	table("agent")["flush_jitter"] = "5s"
	table("outputs")["influxdb"] = []map[string]any{{
		"urls":                   []string{constants.MetricsDatabaseURL},
		"skip_database_creation": true,
		"username":               creds.Username,
		"password":               creds.Password,
		"tagexclude":             []string{"url"},
	}}
	inputs := table("inputs")
	inputs["syslog"] = []map[string]any{{"server": fmt.Sprintf("tcp://:%d", constants.TelegrafSyslogPort)}}
	inputs["prometheus"] = []map[string]any{{"urls": []string{fmt.Sprintf("http://localhost:%d/metrics", constants.ProxyAppPort)}}}
	inputs["net"] = []map[string]any{{"ignore_protocol_stats": true}}

	out, err := toml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed encoding telegraf config: %w", err)
	}
	return out, nil
}
