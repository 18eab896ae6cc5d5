// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package awscloud

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/luxfi/hydra/pkg/provision"
)

type cloudFormationClient interface {
	CreateStack(ctx context.Context, in *cloudformation.CreateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error)
	DescribeStacks(ctx context.Context, in *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
	DeleteStack(ctx context.Context, in *cloudformation.DeleteStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error)
}

// Stacks implements provision.StackAPI on CloudFormation.
type Stacks struct {
	client cloudFormationClient
	tags   map[string]string
}

var _ provision.StackAPI = (*Stacks)(nil)

func NewStacks(cfg aws.Config, tags map[string]string) *Stacks {
	return &Stacks{client: cloudformation.NewFromConfig(cfg), tags: tags}
}

func (s *Stacks) CreateStack(ctx context.Context, name, templateBody string) (string, error) {
	in := &cloudformation.CreateStackInput{
		StackName:    aws.String(name),
		TemplateBody: aws.String(templateBody),
		Capabilities: []cftypes.Capability{cftypes.CapabilityCapabilityIam, cftypes.CapabilityCapabilityNamedIam},
	}
	for k, v := range s.tags {
		in.Tags = append(in.Tags, cftypes.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	out, err := s.client.CreateStack(ctx, in)
	if err != nil {
		return "", fmt.Errorf("failed creating stack %s: %w", name, err)
	}
	return aws.ToString(out.StackId), nil
}

func (s *Stacks) DescribeStack(ctx context.Context, handle string) (provision.StackDescription, error) {
	out, err := s.client.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(handle)})
	if err != nil {
		return provision.StackDescription{}, mapStackError(handle, err)
	}
	if len(out.Stacks) == 0 {
		return provision.StackDescription{}, fmt.Errorf("%w: %s", provision.ErrStackNotFound, handle)
	}
	st := out.Stacks[0]
	desc := provision.StackDescription{
		ID:           aws.ToString(st.StackId),
		Status:       string(st.StackStatus),
		StatusReason: aws.ToString(st.StackStatusReason),
		Outputs:      make(map[string]string, len(st.Outputs)),
	}
	for _, o := range st.Outputs {
		desc.Outputs[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return desc, nil
}

func (s *Stacks) DeleteStack(ctx context.Context, handle string) error {
	if _, err := s.client.DeleteStack(ctx, &cloudformation.DeleteStackInput{StackName: aws.String(handle)}); err != nil {
		return mapStackError(handle, err)
	}
	return nil
}

// mapStackError turns CloudFormation's "does not exist" validation error
// into provision.ErrStackNotFound.
func mapStackError(handle string, err error) error {
	if code, msg, ok := apiErrorCode(err); ok && code == "ValidationError" && strings.Contains(msg, "does not exist") {
		return fmt.Errorf("%w: %s", provision.ErrStackNotFound, handle)
	}
	return fmt.Errorf("stack %s: %w", handle, err)
}
