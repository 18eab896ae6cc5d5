// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package constants

import "errors"

var (
	ErrNoKeyPair           = errors.New("no EC2 key pair configured: set provision.aws_ec2_key_name in hydra.yaml or HYDRA_PROVISION_AWS_EC2_KEY_NAME")
	ErrNoAMI               = errors.New("no AMI configured: set provision.aws_ec2_ami_id")
	ErrNoNetworkName       = errors.New("no network name given: pass it as an argument, set " + EnvNetworkName + ", or run 'hydra network set-default'")
	ErrInvalidNetworkName  = errors.New("invalid network name: use letters, digits and dashes, not starting with a dash")
	ErrNoDistBucket        = errors.New("no distribution bucket configured: set provision.dist_bucket")
	ErrNetworkExists       = errors.New("network already registered")
	ErrUserAborted         = errors.New("aborted by user")
	ErrExistingNodeDir     = errors.New("node directory exists, use --destroy to delete it")
	ErrMissingNodeDir      = errors.New("node directory does not exist, run 'hydra client bootstrap' first")
	ErrServiceNotInstalled = errors.New("service not installed")
)
