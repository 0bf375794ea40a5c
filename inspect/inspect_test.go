package inspect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stewartpark/eks-network/topology"
)

type fakeEC2 struct {
	vpcs        []types.Vpc
	subnets     []types.Subnet
	igws        []types.InternetGateway
	routeTables []types.RouteTable
	nats        []types.NatGateway
	endpoints   []types.VpcEndpoint
	vpns        []types.ClientVpnEndpoint
	targets     []types.TargetNetwork
	rules       []types.AuthorizationRule

	err        error
	vpcFilters []types.Filter
}

func (f *fakeEC2) DescribeVpcs(ctx context.Context, params *awsec2.DescribeVpcsInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeVpcsOutput, error) {
	f.vpcFilters = params.Filters
	return &awsec2.DescribeVpcsOutput{Vpcs: f.vpcs}, f.err
}
func (f *fakeEC2) DescribeSubnets(ctx context.Context, params *awsec2.DescribeSubnetsInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeSubnetsOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &awsec2.DescribeSubnetsOutput{Subnets: f.subnets}, nil
}
func (f *fakeEC2) DescribeInternetGateways(ctx context.Context, params *awsec2.DescribeInternetGatewaysInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeInternetGatewaysOutput, error) {
	return &awsec2.DescribeInternetGatewaysOutput{InternetGateways: f.igws}, nil
}
func (f *fakeEC2) DescribeRouteTables(ctx context.Context, params *awsec2.DescribeRouteTablesInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeRouteTablesOutput, error) {
	return &awsec2.DescribeRouteTablesOutput{RouteTables: f.routeTables}, nil
}
func (f *fakeEC2) DescribeNatGateways(ctx context.Context, params *awsec2.DescribeNatGatewaysInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeNatGatewaysOutput, error) {
	return &awsec2.DescribeNatGatewaysOutput{NatGateways: f.nats}, nil
}
func (f *fakeEC2) DescribeVpcEndpoints(ctx context.Context, params *awsec2.DescribeVpcEndpointsInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeVpcEndpointsOutput, error) {
	return &awsec2.DescribeVpcEndpointsOutput{VpcEndpoints: f.endpoints}, nil
}
func (f *fakeEC2) DescribeClientVpnEndpoints(ctx context.Context, params *awsec2.DescribeClientVpnEndpointsInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeClientVpnEndpointsOutput, error) {
	return &awsec2.DescribeClientVpnEndpointsOutput{ClientVpnEndpoints: f.vpns}, nil
}
func (f *fakeEC2) DescribeClientVpnTargetNetworks(ctx context.Context, params *awsec2.DescribeClientVpnTargetNetworksInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeClientVpnTargetNetworksOutput, error) {
	return &awsec2.DescribeClientVpnTargetNetworksOutput{ClientVpnTargetNetworks: f.targets}, nil
}
func (f *fakeEC2) DescribeClientVpnAuthorizationRules(ctx context.Context, params *awsec2.DescribeClientVpnAuthorizationRulesInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeClientVpnAuthorizationRulesOutput, error) {
	return &awsec2.DescribeClientVpnAuthorizationRulesOutput{AuthorizationRules: f.rules}, nil
}

type fakeSTS struct {
	account string
	err     error
}

func (f *fakeSTS) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{Account: aws.String(f.account)}, nil
}

// healthyFake returns live state matching plan exactly.
func healthyFake(plan *topology.Plan) *fakeEC2 {
	f := &fakeEC2{
		igws: []types.InternetGateway{{InternetGatewayId: aws.String("igw-1")}},
	}
	public, private := plan.Subnets()
	var privateIDs []string
	for i := range public {
		pubID := fmt.Sprintf("subnet-pub-%d", i)
		privID := fmt.Sprintf("subnet-priv-%d", i)
		natID := fmt.Sprintf("nat-%d", i)
		privateIDs = append(privateIDs, privID)

		f.subnets = append(f.subnets,
			types.Subnet{SubnetId: aws.String(pubID), CidrBlock: aws.String(public[i].CIDR),
				AvailabilityZone: aws.String(public[i].Zone), MapPublicIpOnLaunch: aws.Bool(true)},
			types.Subnet{SubnetId: aws.String(privID), CidrBlock: aws.String(private[i].CIDR),
				AvailabilityZone: aws.String(private[i].Zone), MapPublicIpOnLaunch: aws.Bool(false)},
		)
		f.nats = append(f.nats, types.NatGateway{
			NatGatewayId: aws.String(natID), SubnetId: aws.String(pubID), State: types.NatGatewayStateAvailable,
		})
		f.routeTables = append(f.routeTables,
			types.RouteTable{
				RouteTableId: aws.String(fmt.Sprintf("rtb-pub-%d", i)),
				Associations: []types.RouteTableAssociation{{SubnetId: aws.String(pubID)}},
				Routes: []types.Route{
					{DestinationCidrBlock: aws.String("10.0.0.0/16"), GatewayId: aws.String("local")},
					{DestinationCidrBlock: aws.String(topology.AnyCidr), GatewayId: aws.String("igw-1")},
				},
			},
			types.RouteTable{
				RouteTableId: aws.String(fmt.Sprintf("rtb-priv-%d", i)),
				Associations: []types.RouteTableAssociation{{SubnetId: aws.String(privID)}},
				Routes: []types.Route{
					{DestinationCidrBlock: aws.String(topology.AnyCidr), NatGatewayId: aws.String(natID)},
				},
			},
		)
	}

	for _, svc := range topology.SSMServices {
		f.endpoints = append(f.endpoints, types.VpcEndpoint{
			VpcEndpointId:     aws.String("vpce-" + svc),
			ServiceName:       aws.String(topology.ServiceName("us-west-2", svc)),
			VpcEndpointType:   types.VpcEndpointTypeInterface,
			PrivateDnsEnabled: aws.Bool(true),
			SubnetIds:         privateIDs,
		})
	}

	if plan.HasVPN() {
		f.vpns = []types.ClientVpnEndpoint{{
			ClientVpnEndpointId: aws.String("cvpn-endpoint-1"),
			ClientCidrBlock:     aws.String(topology.ClientVPNCidr),
			SplitTunnel:         aws.Bool(true),
			Tags:                []types.Tag{{Key: aws.String(plan.Name + ":client-vpn-endpoint"), Value: aws.String("x")}},
		}}
		for _, id := range privateIDs {
			f.targets = append(f.targets, types.TargetNetwork{TargetNetworkId: aws.String(id)})
		}
		f.rules = []types.AuthorizationRule{{DestinationCidr: aws.String(plan.Args.VPCCidr), AccessAll: aws.Bool(true)}}
	}
	return f
}

func failedNames(r *Report) []string {
	var names []string
	for _, c := range r.Failures() {
		names = append(names, c.Name)
	}
	return names
}

func TestInspectHealthy(t *testing.T) {
	tests := []struct {
		name string
		args topology.Args
	}{
		{name: "default", args: topology.Args{}},
		{name: "three zones", args: topology.Args{AZCount: 3}},
		{name: "with vpn", args: topology.Args{ClientVPNCertificateArn: "arn:cert"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := topology.Build("eks-vpc", tt.args, []string{"us-west-2a", "us-west-2b"})

			report, err := Inspect(context.Background(), healthyFake(plan), plan, "vpc-1")
			require.NoError(t, err)
			assert.False(t, report.Failed(), "unexpected failures: %v", report.Failures())
			assert.Equal(t, "vpc-1", report.VpcID)
		})
	}
}

func TestInspectDetectsProblems(t *testing.T) {
	tests := []struct {
		name   string
		args   topology.Args
		mutate func(f *fakeEC2)
		want   []string
	}{
		{
			name: "private route crosses zones",
			mutate: func(f *fakeEC2) {
				f.routeTables[1].Routes[0].NatGatewayId = aws.String("nat-1")
			},
			want: []string{"route eks-vpc-private-route-table-0"},
		},
		{
			name: "public route without internet gateway",
			mutate: func(f *fakeEC2) {
				f.routeTables[0].Routes = f.routeTables[0].Routes[:1]
			},
			want: []string{"route eks-vpc-public-route-table-0"},
		},
		{
			name: "missing private subnet",
			mutate: func(f *fakeEC2) {
				f.subnets = f.subnets[:3]
			},
			want: []string{"subnet eks-vpc-private-1", "route eks-vpc-private-route-table-1"},
		},
		{
			name: "public subnet without public ips",
			mutate: func(f *fakeEC2) {
				f.subnets[2].MapPublicIpOnLaunch = aws.Bool(false)
			},
			want: []string{"subnet eks-vpc-public-1"},
		},
		{
			name: "missing endpoint",
			mutate: func(f *fakeEC2) {
				f.endpoints = f.endpoints[:2]
			},
			want: []string{"endpoint ec2messages"},
		},
		{
			name: "unexpected vpn",
			mutate: func(f *fakeEC2) {
				f.vpns = []types.ClientVpnEndpoint{{
					ClientVpnEndpointId: aws.String("cvpn-endpoint-9"),
					Tags:                []types.Tag{{Key: aws.String("eks-vpc:client-vpn-endpoint")}},
				}}
			},
			want: []string{"client vpn"},
		},
		{
			name: "vpn missing association",
			args: topology.Args{ClientVPNCertificateArn: "arn:cert"},
			mutate: func(f *fakeEC2) {
				f.targets = f.targets[:1]
			},
			want: []string{"vpn associations"},
		},
		{
			name: "vpn missing authorization",
			args: topology.Args{ClientVPNCertificateArn: "arn:cert"},
			mutate: func(f *fakeEC2) {
				f.rules = nil
			},
			want: []string{"vpn authorization"},
		},
		{
			name: "vpn configured but absent",
			args: topology.Args{ClientVPNCertificateArn: "arn:cert"},
			mutate: func(f *fakeEC2) {
				f.vpns = nil
			},
			want: []string{"client vpn"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := topology.Build("eks-vpc", tt.args, nil)
			f := healthyFake(plan)
			tt.mutate(f)

			report, err := Inspect(context.Background(), f, plan, "vpc-1")
			require.NoError(t, err)
			assert.True(t, report.Failed())
			assert.Equal(t, tt.want, failedNames(report))
		})
	}
}

func TestInspectErrors(t *testing.T) {
	plan := topology.Build("eks-vpc", topology.Args{}, nil)

	_, err := Inspect(context.Background(), &fakeEC2{}, plan, "")
	assert.Error(t, err)

	_, err = Inspect(context.Background(), &fakeEC2{err: errors.New("throttled")}, plan, "vpc-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DescribeSubnets")
}

func TestFindExistingVPCs(t *testing.T) {
	f := &fakeEC2{vpcs: []types.Vpc{
		{VpcId: aws.String("vpc-1"), CidrBlock: aws.String("10.0.0.0/16"), State: types.VpcStateAvailable},
	}}

	vpcs, err := FindExistingVPCs(context.Background(), f, "eks-vpc")
	require.NoError(t, err)
	assert.Equal(t, []VPC{{ID: "vpc-1", CIDR: "10.0.0.0/16", State: "available"}}, vpcs)

	require.Len(t, f.vpcFilters, 1)
	assert.Equal(t, "tag:vpc_name", aws.ToString(f.vpcFilters[0].Name))
	assert.Equal(t, []string{"eks-vpc"}, f.vpcFilters[0].Values)
}

func TestAccountID(t *testing.T) {
	id, err := AccountID(context.Background(), &fakeSTS{account: "123456789012"})
	require.NoError(t, err)
	assert.Equal(t, "123456789012", id)

	_, err = AccountID(context.Background(), &fakeSTS{err: errors.New("expired token")})
	assert.Error(t, err)
}

func TestReportRender(t *testing.T) {
	r := &Report{}
	r.ok("internet gateway", "%s", "igw-1")
	r.fail("endpoint ssm", "not found")

	var sb strings.Builder
	r.Render(&sb)
	out := sb.String()

	assert.Contains(t, out, "CHECK")
	assert.Contains(t, out, "internet gateway")
	assert.Contains(t, out, "igw-1")
	assert.Contains(t, out, "fail")
	assert.True(t, r.Failed())
	assert.Len(t, r.Failures(), 1)
}
