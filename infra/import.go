package infra

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/stewartpark/eks-network/inspect"
)

// VPCFinder looks up VPCs by their vpc_name tag.
type VPCFinder func(ctx context.Context, vpcName string) ([]inspect.VPC, error)

// DefaultVPCFinder queries EC2 with the config's profile and region.
func DefaultVPCFinder(cfg *InfraConfig) VPCFinder {
	return func(ctx context.Context, vpcName string) ([]inspect.VPC, error) {
		awsCfg, err := inspect.LoadConfig(ctx, cfg.Profile, cfg.Region)
		if err != nil {
			return nil, err
		}
		return inspect.FindExistingVPCs(ctx, inspect.NewEC2(awsCfg), vpcName)
	}
}

// findVPCs is swapped in tests.
var findVPCs = DefaultVPCFinder

// warnExisting logs a warning when an empty stack is about to create a VPC
// whose name is already taken by one created outside this state. Lookup
// failures are not fatal; up will surface real credential problems.
func warnExisting(ctx context.Context, cfg *InfraConfig, log *zap.SugaredLogger) []inspect.VPC {
	name := cfg.Name()
	vpcs, err := findVPCs(cfg)(ctx, name)
	if err != nil {
		log.Debugw("existing VPC lookup failed", "vpc_name", name, zap.Error(err))
		return nil
	}
	if len(vpcs) == 0 {
		log.Info("no existing VPC found")
		return nil
	}

	ids := make([]string, 0, len(vpcs))
	for _, v := range vpcs {
		ids = append(ids, v.ID)
	}
	log.Warnw("VPC with this name already exists outside this stack; up will create another one",
		"vpc_name", name, "vpc_ids", strings.Join(ids, ","))
	return vpcs
}
