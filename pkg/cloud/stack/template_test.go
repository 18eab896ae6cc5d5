// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stack

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func baseParams() Params {
	return Params{
		StackName:   Name("", "alpha"),
		NetworkName: "alpha",
		Size:        3,
		AMI:         "ami-1",
		KeyName:     "ops",
		DistBucket:  "shipchain-network-dist",
	}
}

func TestName(t *testing.T) {
	require.Equal(t, "shipchain-network-alpha", Name("", "alpha"))
	require.Equal(t, "acme-network-alpha", Name("acme", "alpha"))
}

func TestBuildDeclaresOneInstanceAndAddressPerNode(t *testing.T) {
	require := require.New(t)
	tmpl, err := Build(baseParams())
	require.NoError(err)

	instances := 0
	for _, r := range tmpl.Resources {
		if r.Type == "AWS::EC2::Instance" {
			instances++
		}
	}
	require.Equal(3, instances)
	for i := 0; i < 3; i++ {
		require.Contains(tmpl.Outputs, AddressOutputKey(i))
		require.Contains(tmpl.Outputs, InstanceOutputKey(i))
	}
	require.NotContains(tmpl.Outputs, AddressOutputKey(3))
	require.Contains(tmpl.Resources, "VPC")
	require.Contains(tmpl.Resources, "InstanceSecurityGroup")
	require.NotContains(tmpl.Resources, "NetworkDNSRecord")

	body, err := tmpl.JSON()
	require.NoError(err)
	var decoded map[string]any
	require.NoError(json.Unmarshal([]byte(body), &decoded))
	require.Equal("2010-09-09", decoded["AWSTemplateFormatVersion"])
}

func TestBuildWithExistingNetwork(t *testing.T) {
	require := require.New(t)
	p := baseParams()
	p.Existing = &ExistingNetwork{VPCID: "vpc-1", SubnetID: "subnet-a", Subnet2ID: "subnet-b", SecurityGroupID: "sg-1", ALBSecurityGroupID: "sg-2"}
	p.HostedZoneName = "network.example.io"
	p.CertificateARN = "arn:aws:acm:us-east-1:1:certificate/x"

	tmpl, err := Build(p)
	require.NoError(err)
	require.NotContains(tmpl.Resources, "VPC")
	require.NotContains(tmpl.Resources, "InstanceSecurityGroup")

	nic := tmpl.Resources["node1"].Properties["NetworkInterfaces"].([]map[string]any)[0]
	require.Equal("subnet-b", nic["SubnetId"])
	require.Equal([]any{"sg-1"}, nic["GroupSet"])

	require.Equal("HTTPS", tmpl.Resources["ALBListener"].Properties["Protocol"])
	require.Equal("alpha.network.example.io.", tmpl.Resources["NetworkDNSRecord"].Properties["Name"])
}

func TestBuildRejectsBadParams(t *testing.T) {
	p := baseParams()
	p.Size = 0
	p.KeyName = ""
	_, err := Build(p)
	require.ErrorIs(t, err, ErrInvalidParams)
	require.ErrorContains(t, err, "size must be at least 1, key pair name")
}

func TestUserDataJoinsNetworkWithoutConfiguring(t *testing.T) {
	p := baseParams()
	p.Version = "v1.4.0"
	script := strings.Join(UserData(p), "")
	require.True(t, strings.HasPrefix(script, "#!/bin/bash -xe\n"))
	require.Contains(t, script, "/latest/hydra")
	require.Contains(t, script, `su -l -c 'hydra client join-network --name=alpha --set-default --install --no-configure --version=v1.4.0' ubuntu`)

	p.InstallCommand = "pip3 install hydra==1.0"
	require.Contains(t, strings.Join(UserData(p), ""), "pip3 install hydra==1.0\n")
}
