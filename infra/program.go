package infra

import (
	"fmt"

	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"

	"github.com/stewartpark/eks-network/topology"
)

// Stack config keys read by the program, in the project namespace.
const (
	keyVPCName     = "vpcName"
	keyVPCCidr     = "vpcCidr"
	keyClusterName = "clusterName"
	keyAZCount     = "azCount"
	keyCertArn     = "clientVpnCertificateArn"
	keyTags        = "tags"
)

// DefineInfrastructure is the Pulumi program that provisions the network.
// cfg seeds the region override; everything else comes from stack config so
// a hand-edited stack file behaves the same as the CLI.
func DefineInfrastructure(cfg *InfraConfig) pulumi.RunFunc {
	return func(ctx *pulumi.Context) error {
		conf := config.New(ctx, "")

		name := conf.Get(keyVPCName)
		if name == "" {
			name = topology.DefaultVPCName
		}

		var tags map[string]string
		if conf.Get(keyTags) != "" {
			if err := conf.TryObject(keyTags, &tags); err != nil {
				return fmt.Errorf("invalid %s config: %w", keyTags, err)
			}
		}

		args := &EksVpcArgs{
			Args: topology.Args{
				VPCCidr:                 conf.Get(keyVPCCidr),
				ClusterName:             conf.Get(keyClusterName),
				AZCount:                 conf.GetInt(keyAZCount),
				ClientVPNCertificateArn: conf.Get(keyCertArn),
				Tags:                    tags,
			},
		}
		if cfg != nil {
			args.Region = cfg.Region
		}

		vpc, err := NewEksVpc(ctx, name, args)
		if err != nil {
			return err
		}

		ctx.Export("vpcId", vpc.Vpc.ID())
		ctx.Export("publicSubnets", vpc.PublicSubnetIDs())
		ctx.Export("privateSubnets", vpc.PrivateSubnetIDs())
		if vpc.VpnEndpoint != nil {
			ctx.Export("vpnId", vpc.VpnEndpoint.ID())
		}
		return nil
	}
}
