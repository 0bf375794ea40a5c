package infra

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2clientvpn"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"

	"github.com/stewartpark/eks-network/topology"
)

// EksVpcArgs configures the network component. Zero values take the defaults
// from the topology package.
type EksVpcArgs struct {
	topology.Args

	// Region used for endpoint service names. Empty means the aws:region
	// config value, then the provider's region.
	Region string
}

// EksVpc is the EKS-ready VPC: public and private subnets per zone, a NAT
// gateway per zone, SSM interface endpoints and an optional client VPN.
type EksVpc struct {
	pulumi.ResourceState

	Vpc            *ec2.Vpc
	PublicSubnets  []*ec2.Subnet
	PrivateSubnets []*ec2.Subnet
	NatGateways    []*ec2.NatGateway
	SSMEndpoints   []*ec2.VpcEndpoint
	VpnEndpoint    *ec2clientvpn.Endpoint // nil without a certificate ARN

	Plan *topology.Plan
}

// PublicSubnetIDs returns the public subnet ids in index order.
func (c *EksVpc) PublicSubnetIDs() pulumi.StringArray {
	return subnetIDs(c.PublicSubnets)
}

// PrivateSubnetIDs returns the private subnet ids in index order.
func (c *EksVpc) PrivateSubnetIDs() pulumi.StringArray {
	return subnetIDs(c.PrivateSubnets)
}

func subnetIDs(subnets []*ec2.Subnet) pulumi.StringArray {
	ids := make(pulumi.StringArray, 0, len(subnets))
	for _, s := range subnets {
		ids = append(ids, s.ID())
	}
	return ids
}

// NewEksVpc declares the network under a single component resource.
func NewEksVpc(ctx *pulumi.Context, name string, args *EksVpcArgs, opts ...pulumi.ResourceOption) (*EksVpc, error) {
	if args == nil {
		args = &EksVpcArgs{}
	}
	c := &EksVpc{}
	if err := ctx.RegisterComponentResource(topology.TypeComponent, name, c, opts...); err != nil {
		return nil, err
	}
	parent := pulumi.Parent(c)

	zones, err := aws.GetAvailabilityZones(ctx, &aws.GetAvailabilityZonesArgs{
		State: pulumi.StringRef("available"),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability zones: %w", err)
	}

	region, err := resolveRegion(ctx, args.Region, parent)
	if err != nil {
		return nil, err
	}

	c.Plan = topology.Build(name, args.Args, zones.Names)
	a := c.Plan.Args
	n := c.Plan.Names()

	c.Vpc, err = ec2.NewVpc(ctx, n.VPC(), &ec2.VpcArgs{
		CidrBlock:          pulumi.String(a.VPCCidr),
		EnableDnsHostnames: pulumi.Bool(true),
		EnableDnsSupport:   pulumi.Bool(true),
		Tags:               pulumi.ToStringMap(n.VPCTags(a.Tags)),
	}, parent)
	if err != nil {
		return nil, err
	}

	igw, err := ec2.NewInternetGateway(ctx, n.InternetGateway(), &ec2.InternetGatewayArgs{
		VpcId: c.Vpc.ID(),
		Tags:  pulumi.ToStringMap(n.InternetGatewayTags()),
	}, parent)
	if err != nil {
		return nil, err
	}

	for i := 0; i < a.AZCount; i++ {
		if err := c.provisionZone(ctx, n, i, topology.ZoneFor(zones.Names, i), igw, parent); err != nil {
			return nil, err
		}
	}

	if err := c.provisionSSMEndpoints(ctx, n, region, parent); err != nil {
		return nil, err
	}

	if a.VPNEnabled() {
		if err := c.provisionClientVPN(ctx, n, a.ClientVPNCertificateArn, parent); err != nil {
			return nil, err
		}
	}

	outputs := pulumi.Map{
		"vpcId":          c.Vpc.ID(),
		"publicSubnets":  c.PublicSubnetIDs(),
		"privateSubnets": c.PrivateSubnetIDs(),
	}
	if c.VpnEndpoint != nil {
		outputs["vpnId"] = c.VpnEndpoint.ID()
	}
	if err := ctx.RegisterResourceOutputs(c, outputs); err != nil {
		return nil, err
	}
	return c, nil
}

func resolveRegion(ctx *pulumi.Context, region string, opts ...pulumi.InvokeOption) (string, error) {
	if region != "" {
		return region, nil
	}
	if r := config.Get(ctx, "aws:region"); r != "" {
		return r, nil
	}
	res, err := aws.GetRegion(ctx, &aws.GetRegionArgs{}, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to resolve region: %w", err)
	}
	return res.Name, nil
}

// provisionZone declares the public and private halves for subnet index i.
func (c *EksVpc) provisionZone(ctx *pulumi.Context, n topology.Names, i int, zone string,
	igw *ec2.InternetGateway, parent pulumi.ResourceOrInvokeOption) error {
	var az pulumi.StringPtrInput
	if zone != "" {
		az = pulumi.String(zone)
	}

	public, err := ec2.NewSubnet(ctx, n.PublicSubnet(i), &ec2.SubnetArgs{
		VpcId:               c.Vpc.ID(),
		CidrBlock:           pulumi.String(topology.PublicSubnetCIDR(i)),
		AvailabilityZone:    az,
		MapPublicIpOnLaunch: pulumi.Bool(true),
		Tags:                pulumi.ToStringMap(n.PublicSubnetTags(i)),
	}, parent)
	if err != nil {
		return err
	}
	c.PublicSubnets = append(c.PublicSubnets, public)

	publicRT, err := ec2.NewRouteTable(ctx, n.PublicRouteTable(i), &ec2.RouteTableArgs{
		VpcId: c.Vpc.ID(),
		Routes: ec2.RouteTableRouteArray{
			&ec2.RouteTableRouteArgs{
				CidrBlock: pulumi.String(topology.AnyCidr),
				GatewayId: igw.ID(),
			},
		},
		Tags: pulumi.ToStringMap(n.PublicRouteTableTags(i)),
	}, parent)
	if err != nil {
		return err
	}

	_, err = ec2.NewRouteTableAssociation(ctx, n.PublicRouteTableAssoc(i), &ec2.RouteTableAssociationArgs{
		SubnetId:     public.ID(),
		RouteTableId: publicRT.ID(),
	}, parent)
	if err != nil {
		return err
	}

	eip, err := ec2.NewEip(ctx, n.NatEIP(i), &ec2.EipArgs{
		Domain: pulumi.String("vpc"),
	}, parent)
	if err != nil {
		return err
	}

	nat, err := ec2.NewNatGateway(ctx, n.NatGateway(i), &ec2.NatGatewayArgs{
		AllocationId: eip.ID(),
		SubnetId:     public.ID(),
		Tags:         pulumi.ToStringMap(n.NatGatewayTags(i)),
	}, parent)
	if err != nil {
		return err
	}
	c.NatGateways = append(c.NatGateways, nat)

	private, err := ec2.NewSubnet(ctx, n.PrivateSubnet(i), &ec2.SubnetArgs{
		VpcId:            c.Vpc.ID(),
		CidrBlock:        pulumi.String(topology.PrivateSubnetCIDR(i)),
		AvailabilityZone: az,
		Tags:             pulumi.ToStringMap(n.PrivateSubnetTags(i)),
	}, parent)
	if err != nil {
		return err
	}
	c.PrivateSubnets = append(c.PrivateSubnets, private)

	privateRT, err := ec2.NewRouteTable(ctx, n.PrivateRouteTable(i), &ec2.RouteTableArgs{
		VpcId: c.Vpc.ID(),
		Routes: ec2.RouteTableRouteArray{
			&ec2.RouteTableRouteArgs{
				CidrBlock:    pulumi.String(topology.AnyCidr),
				NatGatewayId: nat.ID(),
			},
		},
		Tags: pulumi.ToStringMap(n.PrivateRouteTableTags(i)),
	}, parent)
	if err != nil {
		return err
	}

	_, err = ec2.NewRouteTableAssociation(ctx, n.PrivateRouteTableAssoc(i), &ec2.RouteTableAssociationArgs{
		SubnetId:     private.ID(),
		RouteTableId: privateRT.ID(),
	}, parent)
	return err
}

func (c *EksVpc) provisionSSMEndpoints(ctx *pulumi.Context, n topology.Names, region string,
	parent pulumi.ResourceOrInvokeOption) error {
	sg, err := ec2.NewSecurityGroup(ctx, n.SSMSecurityGroup(), &ec2.SecurityGroupArgs{
		VpcId:       c.Vpc.ID(),
		Description: pulumi.String("Security Group for SSM Endpoints"),
		Ingress: ec2.SecurityGroupIngressArray{
			&ec2.SecurityGroupIngressArgs{
				Protocol:   pulumi.String("tcp"),
				FromPort:   pulumi.Int(443),
				ToPort:     pulumi.Int(443),
				CidrBlocks: pulumi.StringArray{c.Vpc.CidrBlock},
			},
		},
		Egress: ec2.SecurityGroupEgressArray{
			&ec2.SecurityGroupEgressArgs{
				Protocol:   pulumi.String("-1"),
				FromPort:   pulumi.Int(0),
				ToPort:     pulumi.Int(0),
				CidrBlocks: pulumi.StringArray{pulumi.String(topology.AnyCidr)},
			},
		},
		Tags: pulumi.ToStringMap(n.SSMSecurityGroupTags()),
	}, parent)
	if err != nil {
		return err
	}

	for _, svc := range topology.SSMServices {
		ep, err := ec2.NewVpcEndpoint(ctx, n.SSMEndpoint(svc), &ec2.VpcEndpointArgs{
			VpcId:             c.Vpc.ID(),
			ServiceName:       pulumi.String(topology.ServiceName(region, svc)),
			VpcEndpointType:   pulumi.String("Interface"),
			SubnetIds:         c.PrivateSubnetIDs(),
			PrivateDnsEnabled: pulumi.Bool(true),
			SecurityGroupIds:  pulumi.StringArray{sg.ID()},
			Tags:              pulumi.ToStringMap(n.SSMEndpointTags(svc)),
		}, parent)
		if err != nil {
			return err
		}
		c.SSMEndpoints = append(c.SSMEndpoints, ep)
	}
	return nil
}

func (c *EksVpc) provisionClientVPN(ctx *pulumi.Context, n topology.Names, certArn string,
	parent pulumi.ResourceOrInvokeOption) error {
	vpn, err := ec2clientvpn.NewEndpoint(ctx, n.ClientVPN(), &ec2clientvpn.EndpointArgs{
		Description:          pulumi.String("VPN for devops"),
		ServerCertificateArn: pulumi.String(certArn),
		ClientCidrBlock:      pulumi.String(topology.ClientVPNCidr),
		SplitTunnel:          pulumi.Bool(true),
		AuthenticationOptions: ec2clientvpn.EndpointAuthenticationOptionArray{
			&ec2clientvpn.EndpointAuthenticationOptionArgs{
				Type:                    pulumi.String("certificate-authentication"),
				RootCertificateChainArn: pulumi.String(certArn),
			},
		},
		ConnectionLogOptions: &ec2clientvpn.EndpointConnectionLogOptionsArgs{
			Enabled: pulumi.Bool(false),
		},
		Tags: pulumi.ToStringMap(n.ClientVPNTags()),
	}, parent)
	if err != nil {
		return err
	}
	c.VpnEndpoint = vpn

	for i, subnet := range c.PrivateSubnets {
		_, err := ec2clientvpn.NewNetworkAssociation(ctx, n.VPNAssoc(i), &ec2clientvpn.NetworkAssociationArgs{
			ClientVpnEndpointId: vpn.ID(),
			SubnetId:            subnet.ID(),
		}, parent)
		if err != nil {
			return err
		}
	}

	_, err = ec2clientvpn.NewAuthorizationRule(ctx, n.VPNAuthRule(), &ec2clientvpn.AuthorizationRuleArgs{
		ClientVpnEndpointId: vpn.ID(),
		TargetNetworkCidr:   c.Vpc.CidrBlock,
		AuthorizeAllGroups:  pulumi.Bool(true),
	}, parent)
	return err
}
