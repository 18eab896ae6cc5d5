// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package stack builds the CloudFormation template for a network: one EC2
// instance per node plus the VPC, security groups and load balancer they
// share. Node i exposes its public address as output IP<i>.
package stack

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/luxfi/hydra/pkg/constants"
)

const formatVersion = "2010-09-09"

var ErrInvalidParams = errors.New("invalid stack parameters")

type Template struct {
	AWSTemplateFormatVersion string              `json:"AWSTemplateFormatVersion"`
	Description              string              `json:"Description,omitempty"`
	Resources                map[string]Resource `json:"Resources"`
	Outputs                  map[string]Output   `json:"Outputs,omitempty"`
}

type Resource struct {
	Type       string         `json:"Type"`
	DependsOn  string         `json:"DependsOn,omitempty"`
	Properties map[string]any `json:"Properties"`
}

type Output struct {
	Description string `json:"Description,omitempty"`
	Value       any    `json:"Value"`
}

// ExistingNetwork attaches the stack to operator-managed networking instead
// of creating a VPC.
type ExistingNetwork struct {
	VPCID              string
	SubnetID           string
	Subnet2ID          string
	SecurityGroupID    string
	ALBSecurityGroupID string
}

type Params struct {
	StackName      string
	NetworkName    string
	Size           int
	AMI            string
	InstanceType   string
	KeyName        string
	Version        string
	ChannelURL     string
	InstallCommand string
	DistBucket     string
	HostedZoneName string
	CertificateARN string
	Existing       *ExistingNetwork
}

func Ref(name string) map[string]any {
	return map[string]any{"Ref": name}
}

func GetAtt(resource, attr string) map[string]any {
	return map[string]any{"Fn::GetAtt": []string{resource, attr}}
}

func Base64(v any) map[string]any {
	return map[string]any{"Fn::Base64": v}
}

func Join(delim string, parts ...any) map[string]any {
	return map[string]any{"Fn::Join": []any{delim, parts}}
}

func Select(index int, list any) map[string]any {
	return map[string]any{"Fn::Select": []any{strconv.Itoa(index), list}}
}

func GetAZs(region string) map[string]any {
	return map[string]any{"Fn::GetAZs": region}
}

func appTags() []map[string]any {
	return []map[string]any{{"Key": "Application", "Value": Ref("AWS::StackId")}}
}

// Name returns the CloudFormation stack name of a network.
func Name(prefix, network string) string {
	if prefix == "" {
		prefix = constants.DefaultStackPrefix
	}
	return prefix + "-network-" + network
}

func AddressOutputKey(i int) string {
	return fmt.Sprintf("IP%d", i)
}

func InstanceOutputKey(i int) string {
	return fmt.Sprintf("ID%d", i)
}

func (p Params) validate() error {
	var problems []string
	if p.StackName == "" {
		problems = append(problems, "stack name")
	}
	if p.NetworkName == "" {
		problems = append(problems, "network name")
	}
	if p.Size < 1 {
		problems = append(problems, "size must be at least 1")
	}
	if p.AMI == "" {
		problems = append(problems, "AMI")
	}
	if p.KeyName == "" {
		problems = append(problems, "key pair name")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidParams, strings.Join(problems, ", "))
	}
	return nil
}

// Build assembles the template described by p.
func Build(p Params) (*Template, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	t := &Template{
		AWSTemplateFormatVersion: formatVersion,
		Description:              fmt.Sprintf("%d node network %s", p.Size, p.NetworkName),
		Resources:                map[string]Resource{},
		Outputs:                  map[string]Output{},
	}

	refs := t.addNetworking(p)
	t.addInstanceProfile(p)
	instances := make([]string, 0, p.Size)
	for i := 0; i < p.Size; i++ {
		instances = append(instances, t.addInstance(p, refs, i))
	}
	t.addALB(p, refs, instances)
	if p.HostedZoneName != "" {
		t.addDNS(p)
	}
	return t, nil
}

// JSON renders the template body submitted to CloudFormation.
func (t *Template) JSON() (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type networkRefs struct {
	vpc     any
	subnets []any
	sg      any
	albSG   any
}

func (t *Template) add(name, typ string, props map[string]any) {
	t.Resources[name] = Resource{Type: typ, Properties: props}
}

func (t *Template) addNetworking(p Params) networkRefs {
	if e := p.Existing; e != nil {
		return networkRefs{
			vpc:     e.VPCID,
			subnets: []any{e.SubnetID, e.Subnet2ID},
			sg:      e.SecurityGroupID,
			albSG:   e.ALBSecurityGroupID,
		}
	}

	t.add("VPC", "AWS::EC2::VPC", map[string]any{"CidrBlock": "10.0.0.0/16", "Tags": appTags()})
	t.add("InternetGateway", "AWS::EC2::InternetGateway", map[string]any{"Tags": appTags()})
	t.add("AttachGateway", "AWS::EC2::VPCGatewayAttachment", map[string]any{
		"VpcId":             Ref("VPC"),
		"InternetGatewayId": Ref("InternetGateway"),
	})
	t.add("RouteTable", "AWS::EC2::RouteTable", map[string]any{"VpcId": Ref("VPC"), "Tags": appTags()})
	t.Resources["Route"] = Resource{
		Type:      "AWS::EC2::Route",
		DependsOn: "AttachGateway",
		Properties: map[string]any{
			"GatewayId":            Ref("InternetGateway"),
			"DestinationCidrBlock": "0.0.0.0/0",
			"RouteTableId":         Ref("RouteTable"),
		},
	}
	t.add("NetworkAcl", "AWS::EC2::NetworkAcl", map[string]any{"VpcId": Ref("VPC"), "Tags": appTags()})

	for i, subnet := range []string{"Subnet", "Subnet2"} {
		t.add(subnet, "AWS::EC2::Subnet", map[string]any{
			"CidrBlock":        fmt.Sprintf("10.0.%d.0/24", i),
			"VpcId":            Ref("VPC"),
			"AvailabilityZone": Select(i, GetAZs("")),
			"Tags":             appTags(),
		})
		t.add(subnet+"RouteTableAssociation", "AWS::EC2::SubnetRouteTableAssociation", map[string]any{
			"SubnetId":     Ref(subnet),
			"RouteTableId": Ref("RouteTable"),
		})
		t.add(subnet+"NetworkAclAssociation", "AWS::EC2::SubnetNetworkAclAssociation", map[string]any{
			"SubnetId":     Ref(subnet),
			"NetworkAclId": Ref("NetworkAcl"),
		})
	}

	for _, e := range aclEntries {
		props := map[string]any{
			"NetworkAclId": Ref("NetworkAcl"),
			"RuleNumber":   strconv.Itoa(e.rule),
			"Protocol":     e.protocol,
			"Egress":       strconv.FormatBool(e.egress),
			"RuleAction":   "allow",
			"CidrBlock":    "0.0.0.0/0",
		}
		if e.protocol == "1" {
			props["Icmp"] = map[string]any{"Code": -1, "Type": -1}
		} else {
			props["PortRange"] = map[string]any{"From": strconv.Itoa(e.from), "To": strconv.Itoa(e.to)}
		}
		t.add(e.name, "AWS::EC2::NetworkAclEntry", props)
	}

	t.add("ALBSecurityGroup", "AWS::EC2::SecurityGroup", map[string]any{
		"GroupDescription":     "ALB allows traffic from public, is used to terminate SSL",
		"SecurityGroupIngress": []map[string]any{ingress("tcp", constants.ProxyAppPort)},
		"VpcId":                Ref("VPC"),
	})
	t.add("InstanceSecurityGroup", "AWS::EC2::SecurityGroup", map[string]any{
		"GroupDescription": "Enable tendermint and SSH for all nodes",
		"SecurityGroupIngress": []map[string]any{
			ingress("tcp", constants.SSHDefaultPort),
			ingress("tcp", constants.P2PPort),
			ingress("tcp", constants.ProxyAppPort),
			ingress("icmp", -1),
		},
		"VpcId": Ref("VPC"),
	})

	return networkRefs{
		vpc:     Ref("VPC"),
		subnets: []any{Ref("Subnet"), Ref("Subnet2")},
		sg:      Ref("InstanceSecurityGroup"),
		albSG:   Ref("ALBSecurityGroup"),
	}
}

type aclEntry struct {
	name     string
	rule     int
	protocol string
	from, to int
	egress   bool
}

var aclEntries = []aclEntry{
	{"InboundSSHNetworkAclEntry", 100, "6", 22, 22, false},
	{"InboundResponsePortsNetworkAclEntry", 101, "6", 1024, 65535, false},
	{"InboundICMPNetworkAclEntry", 102, "1", 0, 0, false},
	{"InboundHttpsNetworkAclEntry", 103, "6", 443, 443, false},
	{"OutBoundHTTPNetworkAclEntry", 100, "6", 80, 80, true},
	{"OutBoundHTTPSNetworkAclEntry", 101, "6", 443, 443, true},
	{"OutBoundResponsePortsNetworkAclEntry", 102, "6", 1024, 65535, true},
	{"OutboundICMPNetworkAclEntry", 103, "1", 0, 0, true},
}

func ingress(protocol string, port int) map[string]any {
	return map[string]any{
		"IpProtocol": protocol,
		"FromPort":   strconv.Itoa(port),
		"ToPort":     strconv.Itoa(port),
		"CidrIp":     "0.0.0.0/0",
	}
}

func (t *Template) addInstanceProfile(p Params) {
	bucketARN := "arn:aws:s3:::" + p.DistBucket
	t.add("Role", "AWS::IAM::Role", map[string]any{
		"RoleName": p.StackName + "-role",
		"Policies": []map[string]any{{
			"PolicyName": p.StackName + "-s3-policy",
			"PolicyDocument": map[string]any{
				"Version": "2012-10-17",
				"Statement": []map[string]any{
					{
						"Effect":   "Allow",
						"Action":   []string{"s3:ListAllMyBuckets", "s3:HeadBucket"},
						"Resource": "*",
					},
					{
						"Effect": "Allow",
						"Action": "s3:*",
						"Resource": []string{
							bucketARN,
							fmt.Sprintf("%s/%s/%s/*", bucketARN, constants.JumpstartPrefix, p.NetworkName),
						},
					},
				},
			},
		}},
		"AssumeRolePolicyDocument": map[string]any{
			"Version": "2008-10-17",
			"Statement": []map[string]any{{
				"Action":    []string{"sts:AssumeRole"},
				"Effect":    "Allow",
				"Principal": map[string]any{"Service": []string{"ec2.amazonaws.com"}},
			}},
		},
	})
	t.add("InstanceProfile", "AWS::IAM::InstanceProfile", map[string]any{
		"Roles": []any{Ref("Role")},
	})
}

func (t *Template) addInstance(p Params, refs networkRefs, i int) string {
	name := fmt.Sprintf("node%d", i)
	instanceType := p.InstanceType
	if instanceType == "" {
		instanceType = constants.DefaultInstanceType
	}
	t.add(name, "AWS::EC2::Instance", map[string]any{
		"IamInstanceProfile": Ref("InstanceProfile"),
		"ImageId":            p.AMI,
		"InstanceType":       instanceType,
		"KeyName":            p.KeyName,
		"NetworkInterfaces": []map[string]any{{
			"GroupSet":                 []any{refs.sg},
			"AssociatePublicIpAddress": "true",
			"DeviceIndex":              "0",
			"DeleteOnTermination":      "true",
			"SubnetId":                 refs.subnets[i%len(refs.subnets)],
		}},
		"UserData": Base64(Join("", toAny(UserData(p))...)),
		"Tags":     []map[string]any{{"Key": "Name", "Value": fmt.Sprintf("%s-%s", p.StackName, name)}},
	})
	t.Outputs[InstanceOutputKey(i)] = Output{
		Description: "InstanceId of the newly created EC2 instance",
		Value:       Ref(name),
	}
	t.Outputs[AddressOutputKey(i)] = Output{
		Description: "Public IP address of the newly created EC2 instance",
		Value:       GetAtt(name, "PublicIp"),
	}
	return name
}

func (t *Template) addALB(p Params, refs networkRefs, instances []string) {
	t.add("ALB", "AWS::ElasticLoadBalancingV2::LoadBalancer", map[string]any{
		"LoadBalancerAttributes": []map[string]any{{"Key": "idle_timeout.timeout_seconds", "Value": "3600"}},
		"Subnets":                refs.subnets,
		"Type":                   "application",
		"Scheme":                 "internet-facing",
		"IpAddressType":          "ipv4",
		"SecurityGroups":         []any{refs.albSG},
	})
	targets := make([]map[string]any, 0, len(instances))
	for _, inst := range instances {
		targets = append(targets, map[string]any{"Id": Ref(inst)})
	}
	t.add("DefaultTargetGroup", "AWS::ElasticLoadBalancingV2::TargetGroup", map[string]any{
		"Port":                constants.ProxyAppPort,
		"Protocol":            "HTTP",
		"Targets":             targets,
		"HealthCheckProtocol": "HTTP",
		"HealthCheckPath":     "/rpc",
		"TargetGroupAttributes": []map[string]any{
			{"Key": "stickiness.enabled", "Value": "true"},
			{"Key": "stickiness.type", "Value": "lb_cookie"},
			{"Key": "stickiness.lb_cookie.duration_seconds", "Value": "86400"},
		},
		"VpcId": refs.vpc,
	})
	listener := map[string]any{
		"DefaultActions":  []map[string]any{{"Type": "forward", "TargetGroupArn": Ref("DefaultTargetGroup")}},
		"LoadBalancerArn": Ref("ALB"),
		"Port":            constants.ProxyAppPort,
		"Protocol":        "HTTP",
	}
	if p.CertificateARN != "" {
		listener["Protocol"] = "HTTPS"
		listener["SslPolicy"] = "ELBSecurityPolicy-TLS-1-2-2017-01"
		listener["Certificates"] = []map[string]any{{"CertificateArn": p.CertificateARN}}
	}
	t.add("ALBListener", "AWS::ElasticLoadBalancingV2::Listener", listener)
	t.Outputs["ALBDNSName"] = Output{Description: "Load balancer DNS name", Value: GetAtt("ALB", "DNSName")}
}

func (t *Template) addDNS(p Params) {
	zone := strings.TrimSuffix(p.HostedZoneName, ".") + "."
	t.add("NetworkDNSRecord", "AWS::Route53::RecordSet", map[string]any{
		"HostedZoneName": zone,
		"Comment":        fmt.Sprintf("DNS name for %s network ALB", p.StackName),
		"Name":           p.NetworkName + "." + zone,
		"Type":           "A",
		"AliasTarget": map[string]any{
			"DNSName":      GetAtt("ALB", "DNSName"),
			"HostedZoneId": GetAtt("ALB", "CanonicalHostedZoneID"),
		},
	})
}

func toAny(lines []string) []any {
	out := make([]any, len(lines))
	for i, l := range lines {
		out[i] = l
	}
	return out
}
