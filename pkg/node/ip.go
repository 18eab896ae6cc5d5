// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const ipLookupTimeout = 10 * time.Second

// ipv4Client only dials IPv4 so the lookup reports the address peers reach
// the node on.
func ipv4Client() *http.Client {
	dialer := &net.Dialer{Timeout: ipLookupTimeout}
	return &http.Client{
		Timeout: ipLookupTimeout,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
				return dialer.DialContext(ctx, "tcp4", addr)
			},
		},
	}
}

// LookupExternalIP asks url for the public address of this machine. A nil
// client dials over IPv4 only.
func LookupExternalIP(ctx context.Context, client *http.Client, url string) (string, error) {
	if client == nil {
		client = ipv4Client()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("external address lookup failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("external address lookup failed: %s returned %s", url, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", err
	}
	ip := strings.TrimSpace(string(body))
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("external address lookup returned %q", ip)
	}
	return ip, nil
}
