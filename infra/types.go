package infra

import (
	"github.com/stewartpark/eks-network/topology"
)

// InfraConfig holds all parameters needed to provision the network.
type InfraConfig struct {
	Stack   string
	Region  string
	Profile string

	VPCName                 string
	VPCCidr                 string
	ClusterName             string
	AZCount                 int
	ClientVPNCertificateArn string
	Tags                    map[string]string
}

// TopologyArgs converts the config into builder arguments.
func (c *InfraConfig) TopologyArgs() topology.Args {
	return topology.Args{
		VPCCidr:                 c.VPCCidr,
		ClusterName:             c.ClusterName,
		AZCount:                 c.AZCount,
		ClientVPNCertificateArn: c.ClientVPNCertificateArn,
		Tags:                    c.Tags,
	}
}

// Name returns the builder name, falling back to the default VPC name.
func (c *InfraConfig) Name() string {
	if c.VPCName == "" {
		return topology.DefaultVPCName
	}
	return c.VPCName
}

// StackOutputs is the typed view of the stack's exported values.
type StackOutputs struct {
	VpcID            string   `json:"vpcId"`
	PublicSubnetIDs  []string `json:"publicSubnets"`
	PrivateSubnetIDs []string `json:"privateSubnets"`
	VpnEndpointID    string   `json:"vpnId,omitempty"`
}

// Empty reports whether the stack has not been deployed yet.
func (o *StackOutputs) Empty() bool {
	return o.VpcID == ""
}

// Changes counts planned or applied operations by kind.
type Changes struct {
	Create  int
	Update  int
	Delete  int
	Replace int
	Same    int
}

// Any reports whether anything other than "same" is in the summary.
func (c Changes) Any() bool {
	return c.Create+c.Update+c.Delete+c.Replace > 0
}
