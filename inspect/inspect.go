package inspect

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"golang.org/x/sync/errgroup"

	"github.com/stewartpark/eks-network/topology"
)

// liveState is everything read from EC2 for one VPC.
type liveState struct {
	subnets     []types.Subnet
	igws        []types.InternetGateway
	routeTables []types.RouteTable
	nats        []types.NatGateway
	endpoints   []types.VpcEndpoint
	vpns        []types.ClientVpnEndpoint

	targets []types.TargetNetwork
	rules   []types.AuthorizationRule
}

// Inspect reads the live state of vpcID and checks it against plan.
func Inspect(ctx context.Context, api EC2API, plan *topology.Plan, vpcID string) (*Report, error) {
	if vpcID == "" {
		return nil, fmt.Errorf("no VPC id to inspect")
	}

	live, err := fetch(ctx, api, plan, vpcID)
	if err != nil {
		return nil, err
	}

	r := &Report{VpcID: vpcID}
	ids := checkSubnets(r, plan, live)
	checkRouting(r, plan, live, ids)
	checkEndpoints(r, live, ids.private)
	checkVPN(r, plan, live, ids.private)
	return r, nil
}

func fetch(ctx context.Context, api EC2API, plan *topology.Plan, vpcID string) (*liveState, error) {
	live := &liveState{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p := awsec2.NewDescribeSubnetsPaginator(api, &awsec2.DescribeSubnetsInput{Filters: vpcFilter("vpc-id", vpcID)})
		for p.HasMorePages() {
			out, err := p.NextPage(gctx)
			if err != nil {
				return fmt.Errorf("DescribeSubnets: %w", err)
			}
			live.subnets = append(live.subnets, out.Subnets...)
		}
		return nil
	})

	g.Go(func() error {
		p := awsec2.NewDescribeInternetGatewaysPaginator(api, &awsec2.DescribeInternetGatewaysInput{
			Filters: vpcFilter("attachment.vpc-id", vpcID),
		})
		for p.HasMorePages() {
			out, err := p.NextPage(gctx)
			if err != nil {
				return fmt.Errorf("DescribeInternetGateways: %w", err)
			}
			live.igws = append(live.igws, out.InternetGateways...)
		}
		return nil
	})

	g.Go(func() error {
		p := awsec2.NewDescribeRouteTablesPaginator(api, &awsec2.DescribeRouteTablesInput{Filters: vpcFilter("vpc-id", vpcID)})
		for p.HasMorePages() {
			out, err := p.NextPage(gctx)
			if err != nil {
				return fmt.Errorf("DescribeRouteTables: %w", err)
			}
			live.routeTables = append(live.routeTables, out.RouteTables...)
		}
		return nil
	})

	g.Go(func() error {
		p := awsec2.NewDescribeNatGatewaysPaginator(api, &awsec2.DescribeNatGatewaysInput{Filter: vpcFilter("vpc-id", vpcID)})
		for p.HasMorePages() {
			out, err := p.NextPage(gctx)
			if err != nil {
				return fmt.Errorf("DescribeNatGateways: %w", err)
			}
			for _, nat := range out.NatGateways {
				if nat.State == types.NatGatewayStateDeleted || nat.State == types.NatGatewayStateDeleting {
					continue
				}
				live.nats = append(live.nats, nat)
			}
		}
		return nil
	})

	g.Go(func() error {
		p := awsec2.NewDescribeVpcEndpointsPaginator(api, &awsec2.DescribeVpcEndpointsInput{Filters: vpcFilter("vpc-id", vpcID)})
		for p.HasMorePages() {
			out, err := p.NextPage(gctx)
			if err != nil {
				return fmt.Errorf("DescribeVpcEndpoints: %w", err)
			}
			live.endpoints = append(live.endpoints, out.VpcEndpoints...)
		}
		return nil
	})

	// Client VPN endpoints cannot be filtered by VPC or tag server-side.
	tagKey := plan.Name + ":client-vpn-endpoint"
	g.Go(func() error {
		p := awsec2.NewDescribeClientVpnEndpointsPaginator(api, &awsec2.DescribeClientVpnEndpointsInput{})
		for p.HasMorePages() {
			out, err := p.NextPage(gctx)
			if err != nil {
				return fmt.Errorf("DescribeClientVpnEndpoints: %w", err)
			}
			for _, ep := range out.ClientVpnEndpoints {
				if ep.Status != nil && ep.Status.Code == types.ClientVpnEndpointStatusCodeDeleted {
					continue
				}
				if hasTagKey(ep.Tags, tagKey) {
					live.vpns = append(live.vpns, ep)
				}
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(live.vpns) != 1 {
		return live, nil
	}
	vpnID := live.vpns[0].ClientVpnEndpointId

	tp := awsec2.NewDescribeClientVpnTargetNetworksPaginator(api, &awsec2.DescribeClientVpnTargetNetworksInput{ClientVpnEndpointId: vpnID})
	for tp.HasMorePages() {
		out, err := tp.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeClientVpnTargetNetworks: %w", err)
		}
		live.targets = append(live.targets, out.ClientVpnTargetNetworks...)
	}

	rp := awsec2.NewDescribeClientVpnAuthorizationRulesPaginator(api, &awsec2.DescribeClientVpnAuthorizationRulesInput{ClientVpnEndpointId: vpnID})
	for rp.HasMorePages() {
		out, err := rp.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeClientVpnAuthorizationRules: %w", err)
		}
		live.rules = append(live.rules, out.AuthorizationRules...)
	}
	return live, nil
}

// subnetIDs holds the live subnet id for each planned index, "" when missing.
type subnetIDs struct {
	public  []string
	private []string
}

func checkSubnets(r *Report, plan *topology.Plan, live *liveState) subnetIDs {
	byCIDR := map[string]types.Subnet{}
	for _, s := range live.subnets {
		byCIDR[aws.ToString(s.CidrBlock)] = s
	}

	match := func(planned []topology.Resource, public bool) []string {
		ids := make([]string, len(planned))
		for i, res := range planned {
			s, ok := byCIDR[res.CIDR]
			if !ok {
				r.fail("subnet "+res.Name, "no subnet with CIDR %s", res.CIDR)
				continue
			}
			ids[i] = aws.ToString(s.SubnetId)
			if public && !aws.ToBool(s.MapPublicIpOnLaunch) {
				r.fail("subnet "+res.Name, "%s does not map public IPs on launch", ids[i])
				continue
			}
			r.ok("subnet "+res.Name, "%s %s %s", ids[i], res.CIDR, aws.ToString(s.AvailabilityZone))
		}
		return ids
	}

	public, private := plan.Subnets()
	ids := subnetIDs{public: match(public, true), private: match(private, false)}

	if overlaps := plan.Overlaps(); len(overlaps) > 0 {
		r.fail("subnet CIDRs", "%d overlapping pairs", len(overlaps))
	}
	return ids
}

// routeTableFor returns the route table explicitly associated with subnetID.
func routeTableFor(live *liveState, subnetID string) (types.RouteTable, bool) {
	for _, rt := range live.routeTables {
		for _, a := range rt.Associations {
			if aws.ToString(a.SubnetId) == subnetID {
				return rt, true
			}
		}
	}
	return types.RouteTable{}, false
}

func defaultRoute(rt types.RouteTable) (types.Route, bool) {
	for _, route := range rt.Routes {
		if aws.ToString(route.DestinationCidrBlock) == topology.AnyCidr {
			return route, true
		}
	}
	return types.Route{}, false
}

func checkRouting(r *Report, plan *topology.Plan, live *liveState, ids subnetIDs) {
	n := plan.Names()

	if len(live.igws) == 1 {
		r.ok("internet gateway", "%s", aws.ToString(live.igws[0].InternetGatewayId))
	} else {
		r.fail("internet gateway", "expected 1 attached, found %d", len(live.igws))
	}

	natSubnet := map[string]string{}
	for _, nat := range live.nats {
		natSubnet[aws.ToString(nat.NatGatewayId)] = aws.ToString(nat.SubnetId)
	}

	for i, subnetID := range ids.public {
		name := "route " + n.PublicRouteTable(i)
		if subnetID == "" {
			r.fail(name, "public subnet %d missing", i)
			continue
		}
		rt, ok := routeTableFor(live, subnetID)
		if !ok {
			r.fail(name, "no route table associated with %s", subnetID)
			continue
		}
		route, ok := defaultRoute(rt)
		if !ok || !strings.HasPrefix(aws.ToString(route.GatewayId), "igw-") {
			r.fail(name, "%s has no default route to an internet gateway", aws.ToString(rt.RouteTableId))
			continue
		}
		r.ok(name, "%s -> %s", topology.AnyCidr, aws.ToString(route.GatewayId))
	}

	for i, subnetID := range ids.private {
		name := "route " + n.PrivateRouteTable(i)
		if subnetID == "" {
			r.fail(name, "private subnet %d missing", i)
			continue
		}
		rt, ok := routeTableFor(live, subnetID)
		if !ok {
			r.fail(name, "no route table associated with %s", subnetID)
			continue
		}
		route, ok := defaultRoute(rt)
		natID := aws.ToString(route.NatGatewayId)
		if !ok || natID == "" {
			r.fail(name, "%s has no default route to a NAT gateway", aws.ToString(rt.RouteTableId))
			continue
		}
		want := ""
		if i < len(ids.public) {
			want = ids.public[i]
		}
		if got := natSubnet[natID]; got == "" || got != want {
			r.fail(name, "%s is not in public subnet %d", natID, i)
			continue
		}
		r.ok(name, "%s -> %s in %s", topology.AnyCidr, natID, want)
	}
}

func checkEndpoints(r *Report, live *liveState, privateIDs []string) {
	for _, svc := range topology.SSMServices {
		name := "endpoint " + svc
		idx := slices.IndexFunc(live.endpoints, func(ep types.VpcEndpoint) bool {
			return strings.HasSuffix(aws.ToString(ep.ServiceName), "."+svc)
		})
		if idx < 0 {
			r.fail(name, "not found")
			continue
		}
		ep := live.endpoints[idx]
		if ep.VpcEndpointType != types.VpcEndpointTypeInterface {
			r.fail(name, "type is %s", ep.VpcEndpointType)
			continue
		}
		if !aws.ToBool(ep.PrivateDnsEnabled) {
			r.fail(name, "private DNS disabled")
			continue
		}
		if missing := missingFrom(ep.SubnetIds, privateIDs); len(missing) > 0 {
			r.fail(name, "not placed in %s", strings.Join(missing, ", "))
			continue
		}
		r.ok(name, "%s %s", aws.ToString(ep.VpcEndpointId), aws.ToString(ep.ServiceName))
	}
}

func checkVPN(r *Report, plan *topology.Plan, live *liveState, privateIDs []string) {
	if !plan.HasVPN() {
		if len(live.vpns) == 0 {
			r.ok("client vpn", "not configured")
		} else {
			r.fail("client vpn", "not configured but %d endpoint(s) found", len(live.vpns))
		}
		return
	}

	if len(live.vpns) != 1 {
		r.fail("client vpn", "expected 1 endpoint, found %d", len(live.vpns))
		return
	}
	vpn := live.vpns[0]
	vpnID := aws.ToString(vpn.ClientVpnEndpointId)
	if !aws.ToBool(vpn.SplitTunnel) {
		r.fail("client vpn", "%s is not split-tunnel", vpnID)
	} else {
		r.ok("client vpn", "%s %s", vpnID, aws.ToString(vpn.ClientCidrBlock))
	}

	var associated []string
	for _, t := range live.targets {
		associated = append(associated, aws.ToString(t.TargetNetworkId))
	}
	if missing := missingFrom(associated, privateIDs); len(missing) > 0 {
		r.fail("vpn associations", "missing %s", strings.Join(missing, ", "))
	} else {
		r.ok("vpn associations", "%d private subnets", len(privateIDs))
	}

	cidr := plan.Args.VPCCidr
	authorized := slices.ContainsFunc(live.rules, func(rule types.AuthorizationRule) bool {
		return aws.ToString(rule.DestinationCidr) == cidr && aws.ToBool(rule.AccessAll)
	})
	if authorized {
		r.ok("vpn authorization", "all groups -> %s", cidr)
	} else {
		r.fail("vpn authorization", "no rule for all groups to %s", cidr)
	}
}

// missingFrom returns the non-empty ids in want that are not in have.
func missingFrom(have, want []string) []string {
	var missing []string
	for _, id := range want {
		if id != "" && !slices.Contains(have, id) {
			missing = append(missing, id)
		}
	}
	return missing
}
