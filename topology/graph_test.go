package topology

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteGraphDOT(t *testing.T) {
	p := Build("eks-vpc", Args{}, []string{"us-west-2a", "us-west-2b"})

	var sb strings.Builder
	require.NoError(t, p.WriteGraph(&sb, FormatDOT))
	out := sb.String()

	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, "cluster_")
	assert.Contains(t, out, "us-west-2b")
	assert.Contains(t, out, "eks-vpc-nat-gateway-1")
	assert.Contains(t, out, "ec2.NatGateway")
	assert.NotContains(t, out, "devops-vpn")
}

func TestWriteGraphMermaidWithVPN(t *testing.T) {
	p := Build("eks-vpc", Args{ClientVPNCertificateArn: "arn:cert"}, nil)

	var sb strings.Builder
	require.NoError(t, p.WriteGraph(&sb, FormatMermaid))
	out := sb.String()

	assert.Contains(t, out, "-->")
	assert.Contains(t, out, "eks-vpc-devops-vpn")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatDOT, f)

	f, err = ParseFormat("mermaid")
	require.NoError(t, err)
	assert.Equal(t, FormatMermaid, f)

	_, err = ParseFormat("png")
	assert.Error(t, err)
}

func TestShortType(t *testing.T) {
	assert.Equal(t, "ec2.NatGateway", shortType(TypeNatGateway))
	assert.Equal(t, "ec2clientvpn.Endpoint", shortType(TypeClientVPN))
	assert.Equal(t, "weird", shortType("weird"))
}
