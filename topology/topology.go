// Package topology describes the EKS network layout without touching a cloud
// API: defaults, subnet CIDRs, zone selection, and the naming and tagging
// scheme shared by the Pulumi program, the graph renderer and the inspector.
package topology

import (
	"fmt"
	"maps"
)

const (
	DefaultVPCName     = "eks-vpc"
	DefaultVPCCidr     = "10.0.0.0/16"
	DefaultClusterName = "interview-k8s-cluster"
	DefaultAZCount     = 2

	// ClientVPNCidr is the address pool handed out to VPN clients.
	ClientVPNCidr = "10.100.0.0/22"

	AnyCidr = "0.0.0.0/0"
)

// SSMServices are the interface endpoints every deployment gets, in
// declaration order.
var SSMServices = []string{"ssm", "ssmmessages", "ec2messages"}

// Args is the builder configuration. Zero values mean "use the default".
type Args struct {
	VPCCidr                 string
	ClusterName             string
	AZCount                 int
	ClientVPNCertificateArn string
	Tags                    map[string]string
}

// WithDefaults returns a copy of a with empty fields filled in.
// AZCount of zero is treated as unset; negative counts pass through so the
// engine rejects them at apply time.
func (a Args) WithDefaults() Args {
	out := a
	if out.VPCCidr == "" {
		out.VPCCidr = DefaultVPCCidr
	}
	if out.ClusterName == "" {
		out.ClusterName = DefaultClusterName
	}
	if out.AZCount == 0 {
		out.AZCount = DefaultAZCount
	}
	if a.Tags != nil {
		out.Tags = maps.Clone(a.Tags)
	}
	return out
}

// VPNEnabled reports whether the client VPN subsystem should be declared.
func (a Args) VPNEnabled() bool {
	return a.ClientVPNCertificateArn != ""
}

// PublicSubnetCIDR returns the /24 for public subnet i.
func PublicSubnetCIDR(i int) string {
	return fmt.Sprintf("10.0.%d.0/24", i)
}

// PrivateSubnetCIDR returns the /20 for private subnet i. The ranges start at
// 10.0.16.0, clear of the public /24s for up to 15 zones.
func PrivateSubnetCIDR(i int) string {
	return fmt.Sprintf("10.0.%d.0/20", (i+1)*16)
}

// ZoneFor picks the zone for subnet index i, cycling when there are more
// subnets than zones. It returns "" when no zones are known.
func ZoneFor(zones []string, i int) string {
	if len(zones) == 0 {
		return ""
	}
	return zones[i%len(zones)]
}

// ClusterTagKey is the Kubernetes cluster-discovery tag key.
func ClusterTagKey(cluster string) string {
	return "kubernetes.io/cluster/" + cluster
}

// ServiceName returns the regional service name for an interface endpoint.
func ServiceName(region, service string) string {
	return fmt.Sprintf("com.amazonaws.%s.%s", region, service)
}

// Names derives logical resource names and tags from the builder name.
type Names struct {
	Prefix  string
	Cluster string
}

func (n Names) VPC() string             { return n.Prefix }
func (n Names) InternetGateway() string { return n.Prefix + "-igw-a" }
func (n Names) PublicSubnet(i int) string {
	return fmt.Sprintf("%s-public-%d", n.Prefix, i)
}
func (n Names) PublicRouteTable(i int) string {
	return fmt.Sprintf("%s-public-route-table-%d", n.Prefix, i)
}
func (n Names) PublicRouteTableAssoc(i int) string {
	return fmt.Sprintf("%s-public-route-table-assoc-%d", n.Prefix, i)
}
func (n Names) NatEIP(i int) string { return fmt.Sprintf("%s-nat-eip-%d", n.Prefix, i) }
func (n Names) NatGateway(i int) string {
	return fmt.Sprintf("%s-nat-gateway-%d", n.Prefix, i)
}
func (n Names) PrivateSubnet(i int) string {
	return fmt.Sprintf("%s-private-%d", n.Prefix, i)
}
func (n Names) PrivateRouteTable(i int) string {
	return fmt.Sprintf("%s-private-route-table-%d", n.Prefix, i)
}
func (n Names) PrivateRouteTableAssoc(i int) string {
	return fmt.Sprintf("%s-private-route-table-assoc-%d", n.Prefix, i)
}
func (n Names) SSMSecurityGroup() string { return n.Prefix + "-ssm-endpoint-sg" }
func (n Names) SSMEndpoint(service string) string {
	return n.Prefix + "-ssm-endpoint-" + service
}
func (n Names) ClientVPN() string { return n.Prefix + "-devops-vpn" }
func (n Names) VPNAssoc(i int) string {
	return fmt.Sprintf("%s-vpn-assoc-%d", n.Prefix, i)
}
func (n Names) VPNAuthRule() string { return n.Prefix + "-vpc-auth-rule" }

// VPCTags returns the VPC tags. Extra tags are applied last and win.
func (n Names) VPCTags(extra map[string]string) map[string]string {
	tags := map[string]string{
		"name":                   n.Prefix,
		"vpc_name":               n.Prefix,
		ClusterTagKey(n.Cluster): "shared",
	}
	maps.Copy(tags, extra)
	return tags
}

func (n Names) InternetGatewayTags() map[string]string {
	return map[string]string{
		n.Prefix + ":internet-gateway": n.InternetGateway(),
		n.Prefix + ":igw":              n.InternetGateway(),
	}
}

func (n Names) PublicSubnetTags(i int) map[string]string {
	return map[string]string{
		n.Prefix + ":subnet-public": fmt.Sprintf("%s-subnet-public-%d", n.Prefix, i),
		"kubernetes.io/role/elb":    "1",
		ClusterTagKey(n.Cluster):    "shared",
	}
}

func (n Names) PublicRouteTableTags(i int) map[string]string {
	return map[string]string{
		n.Prefix + ":route-table-public": fmt.Sprintf("%s-route-table-public-%d", n.Prefix, i),
	}
}

func (n Names) NatGatewayTags(i int) map[string]string {
	return map[string]string{
		n.Prefix + ":nat-gateway": n.NatGateway(i),
	}
}

func (n Names) PrivateSubnetTags(i int) map[string]string {
	return map[string]string{
		n.Prefix + ":subnet-private":      fmt.Sprintf("%s-subnet-private-%d", n.Prefix, i),
		"kubernetes.io/role/internal-elb": "1",
		ClusterTagKey(n.Cluster):          "shared",
		"karpenter.sh/discovery":          n.Cluster,
	}
}

func (n Names) PrivateRouteTableTags(i int) map[string]string {
	return map[string]string{
		n.Prefix + ":route-table-private": fmt.Sprintf("%s-route-table-private-%d", n.Prefix, i),
	}
}

func (n Names) SSMSecurityGroupTags() map[string]string {
	return map[string]string{
		n.Prefix + ":ssm-endpoint-sg": n.SSMSecurityGroup(),
	}
}

func (n Names) SSMEndpointTags(service string) map[string]string {
	return map[string]string{
		n.Prefix + ":ssm-endpoint": n.SSMEndpoint(service),
	}
}

func (n Names) ClientVPNTags() map[string]string {
	return map[string]string{
		n.Prefix + ":client-vpn-endpoint": n.Prefix + "-client-vpn-endpoint",
	}
}
