// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package awscloud adapts the AWS SDK to the provisioning interfaces.
package awscloud

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

// LoadConfig loads the shared AWS configuration for profile and region.
// An empty profile falls back to the default credential chain.
func LoadConfig(ctx context.Context, profile, region string) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config for profile %q: %w", profile, err)
	}
	return cfg, nil
}

func apiErrorCode(err error) (string, string, bool) {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode(), apiErr.ErrorMessage(), true
	}
	return "", "", false
}

type stsClient interface {
	GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

type Identity struct {
	Account string
	ARN     string
	UserID  string
}

// CallerIdentity reports which account and principal the credentials map to.
func CallerIdentity(ctx context.Context, cfg aws.Config) (Identity, error) {
	return callerIdentity(ctx, sts.NewFromConfig(cfg))
}

func callerIdentity(ctx context.Context, client stsClient) (Identity, error) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		if code, msg, ok := apiErrorCode(err); ok && strings.Contains(code, "Token") {
			return Identity{}, fmt.Errorf("AWS credentials rejected (%s): %s", code, msg)
		}
		return Identity{}, fmt.Errorf("failed resolving AWS caller identity: %w", err)
	}
	return Identity{
		Account: aws.ToString(out.Account),
		ARN:     aws.ToString(out.Arn),
		UserID:  aws.ToString(out.UserId),
	}, nil
}
