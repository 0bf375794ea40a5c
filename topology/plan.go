package topology

import (
	"fmt"
	"net/netip"
)

// Pulumi type tokens of the resources the builder declares.
const (
	TypeComponent        = "custom:network:EksVpc"
	TypeVPC              = "aws:ec2/vpc:Vpc"
	TypeInternetGateway  = "aws:ec2/internetGateway:InternetGateway"
	TypeSubnet           = "aws:ec2/subnet:Subnet"
	TypeRouteTable       = "aws:ec2/routeTable:RouteTable"
	TypeRouteTableAssoc  = "aws:ec2/routeTableAssociation:RouteTableAssociation"
	TypeEIP              = "aws:ec2/eip:Eip"
	TypeNatGateway       = "aws:ec2/natGateway:NatGateway"
	TypeSecurityGroup    = "aws:ec2/securityGroup:SecurityGroup"
	TypeVpcEndpoint      = "aws:ec2/vpcEndpoint:VpcEndpoint"
	TypeClientVPN        = "aws:ec2clientvpn/endpoint:Endpoint"
	TypeVPNAssociation   = "aws:ec2clientvpn/networkAssociation:NetworkAssociation"
	TypeVPNAuthorization = "aws:ec2clientvpn/authorizationRule:AuthorizationRule"
)

// Resource is one planned declaration.
type Resource struct {
	Type      string
	Name      string
	Index     int // subnet index, -1 for singletons
	CIDR      string
	Zone      string
	Tags      map[string]string
	DependsOn []string
}

// Plan is the full set of declarations for one deployment, in declaration
// order.
type Plan struct {
	Name      string
	Args      Args
	Zones     []string
	Resources []Resource
}

// Build lays out every resource the builder declares for name and args.
// Zones may be nil when the region is not known; subnets then carry no zone.
func Build(name string, args Args, zones []string) *Plan {
	args = args.WithDefaults()
	n := Names{Prefix: name, Cluster: args.ClusterName}
	p := &Plan{Name: name, Args: args, Zones: zones}

	single := func(r Resource) {
		r.Index = -1
		p.Resources = append(p.Resources, r)
	}

	single(Resource{Type: TypeVPC, Name: n.VPC(), CIDR: args.VPCCidr, Tags: n.VPCTags(args.Tags)})
	single(Resource{Type: TypeInternetGateway, Name: n.InternetGateway(), Tags: n.InternetGatewayTags(),
		DependsOn: []string{n.VPC()}})

	for i := 0; i < args.AZCount; i++ {
		zone := ZoneFor(zones, i)
		p.Resources = append(p.Resources,
			Resource{Type: TypeSubnet, Name: n.PublicSubnet(i), Index: i, CIDR: PublicSubnetCIDR(i), Zone: zone,
				Tags: n.PublicSubnetTags(i), DependsOn: []string{n.VPC()}},
			Resource{Type: TypeRouteTable, Name: n.PublicRouteTable(i), Index: i, CIDR: AnyCidr,
				Tags: n.PublicRouteTableTags(i), DependsOn: []string{n.VPC(), n.InternetGateway()}},
			Resource{Type: TypeRouteTableAssoc, Name: n.PublicRouteTableAssoc(i), Index: i,
				DependsOn: []string{n.PublicSubnet(i), n.PublicRouteTable(i)}},
			Resource{Type: TypeEIP, Name: n.NatEIP(i), Index: i},
			Resource{Type: TypeNatGateway, Name: n.NatGateway(i), Index: i, Tags: n.NatGatewayTags(i),
				DependsOn: []string{n.NatEIP(i), n.PublicSubnet(i)}},
			Resource{Type: TypeSubnet, Name: n.PrivateSubnet(i), Index: i, CIDR: PrivateSubnetCIDR(i), Zone: zone,
				Tags: n.PrivateSubnetTags(i), DependsOn: []string{n.VPC()}},
			Resource{Type: TypeRouteTable, Name: n.PrivateRouteTable(i), Index: i, CIDR: AnyCidr,
				Tags: n.PrivateRouteTableTags(i), DependsOn: []string{n.VPC(), n.NatGateway(i)}},
			Resource{Type: TypeRouteTableAssoc, Name: n.PrivateRouteTableAssoc(i), Index: i,
				DependsOn: []string{n.PrivateSubnet(i), n.PrivateRouteTable(i)}},
		)
	}

	privateSubnets := p.names(TypeSubnet, n.PrivateSubnet)

	single(Resource{Type: TypeSecurityGroup, Name: n.SSMSecurityGroup(), Tags: n.SSMSecurityGroupTags(),
		DependsOn: []string{n.VPC()}})
	for _, svc := range SSMServices {
		deps := append([]string{n.VPC(), n.SSMSecurityGroup()}, privateSubnets...)
		single(Resource{Type: TypeVpcEndpoint, Name: n.SSMEndpoint(svc), Tags: n.SSMEndpointTags(svc), DependsOn: deps})
	}

	if args.VPNEnabled() {
		single(Resource{Type: TypeClientVPN, Name: n.ClientVPN(), CIDR: ClientVPNCidr, Tags: n.ClientVPNTags()})
		for i, subnet := range privateSubnets {
			p.Resources = append(p.Resources, Resource{Type: TypeVPNAssociation, Name: n.VPNAssoc(i), Index: i,
				DependsOn: []string{n.ClientVPN(), subnet}})
		}
		single(Resource{Type: TypeVPNAuthorization, Name: n.VPNAuthRule(), CIDR: args.VPCCidr,
			DependsOn: []string{n.ClientVPN(), n.VPC()}})
	}

	return p
}

func (p *Plan) names(typ string, nameFor func(int) string) []string {
	var out []string
	for _, r := range p.Resources {
		if r.Type == typ && r.Index >= 0 && r.Name == nameFor(r.Index) {
			out = append(out, r.Name)
		}
	}
	return out
}

// Names returns the naming helper used to build the plan.
func (p *Plan) Names() Names {
	return Names{Prefix: p.Name, Cluster: p.Args.ClusterName}
}

// Count returns how many resources of the given type token are planned.
func (p *Plan) Count(typ string) int {
	n := 0
	for _, r := range p.Resources {
		if r.Type == typ {
			n++
		}
	}
	return n
}

// Lookup finds a planned resource by logical name.
func (p *Plan) Lookup(name string) (Resource, bool) {
	for _, r := range p.Resources {
		if r.Name == name {
			return r, true
		}
	}
	return Resource{}, false
}

// HasVPN reports whether the plan includes the client VPN subsystem.
func (p *Plan) HasVPN() bool {
	return p.Count(TypeClientVPN) > 0
}

// Subnets returns the planned subnets, public ones first, each in index order.
func (p *Plan) Subnets() (public, private []Resource) {
	n := p.Names()
	for _, r := range p.Resources {
		if r.Type != TypeSubnet {
			continue
		}
		if r.Name == n.PublicSubnet(r.Index) {
			public = append(public, r)
		} else {
			private = append(private, r)
		}
	}
	return public, private
}

// Overlaps returns every pair of planned subnets whose CIDRs intersect.
// Unparseable CIDRs are reported as overlapping with themselves.
func (p *Plan) Overlaps() [][2]string {
	type block struct {
		name   string
		prefix netip.Prefix
	}
	var blocks []block
	var out [][2]string
	for _, r := range p.Resources {
		if r.Type != TypeSubnet {
			continue
		}
		pfx, err := netip.ParsePrefix(r.CIDR)
		if err != nil {
			out = append(out, [2]string{r.Name, r.Name})
			continue
		}
		blocks = append(blocks, block{name: r.Name, prefix: pfx.Masked()})
	}
	for i := range blocks {
		for j := i + 1; j < len(blocks); j++ {
			if blocks[i].prefix.Overlaps(blocks[j].prefix) {
				out = append(out, [2]string{blocks[i].name, blocks[j].name})
			}
		}
	}
	return out
}

// Summary is a one-line description of resource counts, for logs.
func (p *Plan) Summary() string {
	public, private := p.Subnets()
	return fmt.Sprintf("%d public subnets, %d private subnets, %d NAT gateways, %d endpoints, vpn=%t",
		len(public), len(private), p.Count(TypeNatGateway), p.Count(TypeVpcEndpoint), p.HasVPN())
}
