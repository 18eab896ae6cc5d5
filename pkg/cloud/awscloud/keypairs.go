// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package awscloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/luxfi/hydra/pkg/provision"
)

type ec2Client interface {
	DescribeKeyPairs(ctx context.Context, in *ec2.DescribeKeyPairsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeKeyPairsOutput, error)
}

// KeyPairs checks EC2 key pairs in the configured region.
type KeyPairs struct {
	client ec2Client
}

var _ provision.KeyPairChecker = (*KeyPairs)(nil)

func NewKeyPairs(cfg aws.Config) *KeyPairs {
	return &KeyPairs{client: ec2.NewFromConfig(cfg)}
}

func (k *KeyPairs) KeyPairExists(ctx context.Context, name string) (bool, error) {
	out, err := k.client.DescribeKeyPairs(ctx, &ec2.DescribeKeyPairsInput{KeyNames: []string{name}})
	if err != nil {
		if code, _, ok := apiErrorCode(err); ok && code == "InvalidKeyPair.NotFound" {
			return false, nil
		}
		return false, fmt.Errorf("failed describing key pair %s: %w", name, err)
	}
	for _, kp := range out.KeyPairs {
		if aws.ToString(kp.KeyName) == name {
			return true, nil
		}
	}
	return false, nil
}
