package topology

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   Args
		want Args
	}{
		{
			name: "empty args",
			in:   Args{},
			want: Args{VPCCidr: DefaultVPCCidr, ClusterName: DefaultClusterName, AZCount: DefaultAZCount},
		},
		{
			name: "explicit values kept",
			in:   Args{VPCCidr: "10.1.0.0/16", ClusterName: "prod", AZCount: 3},
			want: Args{VPCCidr: "10.1.0.0/16", ClusterName: "prod", AZCount: 3},
		},
		{
			name: "negative az count is not corrected",
			in:   Args{AZCount: -1},
			want: Args{VPCCidr: DefaultVPCCidr, ClusterName: DefaultClusterName, AZCount: -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.WithDefaults())
		})
	}
}

func TestWithDefaultsCopiesTags(t *testing.T) {
	in := Args{Tags: map[string]string{"team": "platform"}}
	out := in.WithDefaults()
	out.Tags["team"] = "changed"
	assert.Equal(t, "platform", in.Tags["team"])
}

func TestSubnetCIDRs(t *testing.T) {
	tests := []struct {
		i       int
		public  string
		private string
	}{
		{0, "10.0.0.0/24", "10.0.16.0/20"},
		{1, "10.0.1.0/24", "10.0.32.0/20"},
		{2, "10.0.2.0/24", "10.0.48.0/20"},
		{5, "10.0.5.0/24", "10.0.96.0/20"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("index %d", tt.i), func(t *testing.T) {
			assert.Equal(t, tt.public, PublicSubnetCIDR(tt.i))
			assert.Equal(t, tt.private, PrivateSubnetCIDR(tt.i))
		})
	}
}

func TestZoneFor(t *testing.T) {
	zones := []string{"us-west-2a", "us-west-2b", "us-west-2c"}

	assert.Equal(t, "us-west-2a", ZoneFor(zones, 0))
	assert.Equal(t, "us-west-2c", ZoneFor(zones, 2))
	assert.Equal(t, "us-west-2a", ZoneFor(zones, 3), "zones are reused cyclically")
	assert.Equal(t, "us-west-2b", ZoneFor(zones, 7))
	assert.Equal(t, "", ZoneFor(nil, 1))
}

func TestVPCTags(t *testing.T) {
	n := Names{Prefix: "eks-vpc", Cluster: "demo"}

	tags := n.VPCTags(map[string]string{"team": "platform", "name": "override"})

	assert.Equal(t, map[string]string{
		"name":                       "override",
		"vpc_name":                   "eks-vpc",
		"kubernetes.io/cluster/demo": "shared",
		"team":                       "platform",
	}, tags)
}

func TestPerIndexNamesAndTags(t *testing.T) {
	n := Names{Prefix: "net", Cluster: "demo"}

	assert.Equal(t, "net-igw-a", n.InternetGateway())
	assert.Equal(t, "net-public-1", n.PublicSubnet(1))
	assert.Equal(t, "net-private-route-table-assoc-0", n.PrivateRouteTableAssoc(0))
	assert.Equal(t, "net-nat-eip-2", n.NatEIP(2))
	assert.Equal(t, "net-ssm-endpoint-ssmmessages", n.SSMEndpoint("ssmmessages"))
	assert.Equal(t, "net-devops-vpn", n.ClientVPN())
	assert.Equal(t, "net-vpn-assoc-1", n.VPNAssoc(1))
	assert.Equal(t, "net-vpc-auth-rule", n.VPNAuthRule())

	assert.Equal(t, map[string]string{
		"net:subnet-private":              "net-subnet-private-1",
		"kubernetes.io/role/internal-elb": "1",
		"kubernetes.io/cluster/demo":      "shared",
		"karpenter.sh/discovery":          "demo",
	}, n.PrivateSubnetTags(1))
	assert.Equal(t, "1", n.PublicSubnetTags(0)["kubernetes.io/role/elb"])
	assert.Equal(t, "net-nat-gateway-3", n.NatGatewayTags(3)["net:nat-gateway"])
	assert.Equal(t, "net-client-vpn-endpoint", n.ClientVPNTags()["net:client-vpn-endpoint"])
}

func TestServiceName(t *testing.T) {
	assert.Equal(t, "com.amazonaws.eu-west-1.ec2messages", ServiceName("eu-west-1", "ec2messages"))
}

func TestBuildDefaultTopology(t *testing.T) {
	p := Build("eks-vpc", Args{}, []string{"us-west-2a", "us-west-2b"})

	public, private := p.Subnets()
	require.Len(t, public, 2)
	require.Len(t, private, 2)
	assert.Equal(t, "10.0.0.0/24", public[0].CIDR)
	assert.Equal(t, "10.0.1.0/24", public[1].CIDR)
	assert.Equal(t, "10.0.16.0/20", private[0].CIDR)
	assert.Equal(t, "10.0.32.0/20", private[1].CIDR)
	assert.Equal(t, "us-west-2b", private[1].Zone)

	assert.Equal(t, 1, p.Count(TypeVPC))
	assert.Equal(t, 1, p.Count(TypeInternetGateway))
	assert.Equal(t, 2, p.Count(TypeNatGateway))
	assert.Equal(t, 2, p.Count(TypeEIP))
	assert.Equal(t, 4, p.Count(TypeRouteTable))
	assert.Equal(t, 4, p.Count(TypeRouteTableAssoc))
	assert.Equal(t, 1, p.Count(TypeSecurityGroup))
	assert.Equal(t, 3, p.Count(TypeVpcEndpoint))
	assert.Equal(t, 0, p.Count(TypeClientVPN))
	assert.Equal(t, 0, p.Count(TypeVPNAssociation))
	assert.Equal(t, 0, p.Count(TypeVPNAuthorization))
	assert.False(t, p.HasVPN())
}

func TestBuildWithVPN(t *testing.T) {
	p := Build("eks-vpc", Args{ClientVPNCertificateArn: "arn:aws:acm:us-west-2:123456789012:certificate/abc"}, nil)

	assert.True(t, p.HasVPN())
	assert.Equal(t, 1, p.Count(TypeClientVPN))
	assert.Equal(t, 2, p.Count(TypeVPNAssociation))
	assert.Equal(t, 1, p.Count(TypeVPNAuthorization))
	assert.Equal(t, 3, p.Count(TypeVpcEndpoint), "ssm endpoints do not depend on the vpn option")

	vpn, ok := p.Lookup("eks-vpc-devops-vpn")
	require.True(t, ok)
	assert.Equal(t, ClientVPNCidr, vpn.CIDR)

	assoc, ok := p.Lookup("eks-vpc-vpn-assoc-1")
	require.True(t, ok)
	assert.Contains(t, assoc.DependsOn, "eks-vpc-private-1")
}

func TestBuildPrivateRouteTargetsSameIndexNat(t *testing.T) {
	for n := 1; n <= 6; n++ {
		p := Build("net", Args{AZCount: n}, nil)
		names := p.Names()
		for i := 0; i < n; i++ {
			rt, ok := p.Lookup(names.PrivateRouteTable(i))
			require.True(t, ok)
			assert.Contains(t, rt.DependsOn, names.NatGateway(i))

			nat, ok := p.Lookup(names.NatGateway(i))
			require.True(t, ok)
			assert.Contains(t, nat.DependsOn, names.PublicSubnet(i))
		}
	}
}

func TestBuildSubnetsNeverOverlap(t *testing.T) {
	for n := 1; n <= 15; n++ {
		p := Build("net", Args{AZCount: n}, nil)
		public, private := p.Subnets()
		assert.Len(t, public, n)
		assert.Len(t, private, n)
		assert.Empty(t, p.Overlaps(), "az count %d", n)
	}
}

func TestOverlapsReportsConflicts(t *testing.T) {
	p := &Plan{Resources: []Resource{
		{Type: TypeSubnet, Name: "a", CIDR: "10.0.16.0/20"},
		{Type: TypeSubnet, Name: "b", CIDR: "10.0.17.0/24"},
		{Type: TypeSubnet, Name: "c", CIDR: "10.0.256.0/20"},
	}}

	assert.ElementsMatch(t, [][2]string{{"c", "c"}, {"a", "b"}}, p.Overlaps())
}

func TestSummary(t *testing.T) {
	p := Build("net", Args{AZCount: 3}, nil)
	assert.True(t, strings.HasPrefix(p.Summary(), "3 public subnets, 3 private subnets, 3 NAT gateways"))
}
