// Package inspect verifies a deployed network against its plan by reading
// live EC2 state. It never modifies anything.
package inspect

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// EC2API is the subset of the EC2 client the inspector reads from.
type EC2API interface {
	DescribeVpcs(ctx context.Context, params *awsec2.DescribeVpcsInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeVpcsOutput, error)
	DescribeSubnets(ctx context.Context, params *awsec2.DescribeSubnetsInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeSubnetsOutput, error)
	DescribeInternetGateways(ctx context.Context, params *awsec2.DescribeInternetGatewaysInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeInternetGatewaysOutput, error)
	DescribeRouteTables(ctx context.Context, params *awsec2.DescribeRouteTablesInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeRouteTablesOutput, error)
	DescribeNatGateways(ctx context.Context, params *awsec2.DescribeNatGatewaysInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeNatGatewaysOutput, error)
	DescribeVpcEndpoints(ctx context.Context, params *awsec2.DescribeVpcEndpointsInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeVpcEndpointsOutput, error)
	DescribeClientVpnEndpoints(ctx context.Context, params *awsec2.DescribeClientVpnEndpointsInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeClientVpnEndpointsOutput, error)
	DescribeClientVpnTargetNetworks(ctx context.Context, params *awsec2.DescribeClientVpnTargetNetworksInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeClientVpnTargetNetworksOutput, error)
	DescribeClientVpnAuthorizationRules(ctx context.Context, params *awsec2.DescribeClientVpnAuthorizationRulesInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeClientVpnAuthorizationRulesOutput, error)
}

// STSAPI is the subset of the STS client used to identify the caller.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// LoadConfig loads an AWS config with optional profile and region overrides.
func LoadConfig(ctx context.Context, profile, region string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

// NewEC2 returns an EC2 client for cfg.
func NewEC2(cfg aws.Config) EC2API {
	return awsec2.NewFromConfig(cfg)
}

// AccountID returns the account the credentials belong to.
func AccountID(ctx context.Context, api STSAPI) (string, error) {
	out, err := api.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("GetCallerIdentity: %w", err)
	}
	return aws.ToString(out.Account), nil
}

// NewSTS returns an STS client for cfg.
func NewSTS(cfg aws.Config) STSAPI {
	return sts.NewFromConfig(cfg)
}

// VPC is a live VPC matched by name tag.
type VPC struct {
	ID    string
	CIDR  string
	State string
}

// FindExistingVPCs returns the VPCs tagged vpc_name=<vpcName>.
func FindExistingVPCs(ctx context.Context, api EC2API, vpcName string) ([]VPC, error) {
	var vpcs []VPC
	p := awsec2.NewDescribeVpcsPaginator(api, &awsec2.DescribeVpcsInput{
		Filters: []types.Filter{
			{Name: aws.String("tag:vpc_name"), Values: []string{vpcName}},
		},
	})
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeVpcs: %w", err)
		}
		for _, v := range out.Vpcs {
			vpcs = append(vpcs, VPC{
				ID:    aws.ToString(v.VpcId),
				CIDR:  aws.ToString(v.CidrBlock),
				State: string(v.State),
			})
		}
	}
	return vpcs, nil
}

func vpcFilter(name, vpcID string) []types.Filter {
	return []types.Filter{{Name: aws.String(name), Values: []string{vpcID}}}
}

func hasTagKey(tags []types.Tag, key string) bool {
	for _, t := range tags {
		if aws.ToString(t.Key) == key {
			return true
		}
	}
	return false
}
