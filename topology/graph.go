package topology

import (
	"fmt"
	"io"
	"strings"

	"github.com/emicklei/dot"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for markdown rendering.
	FormatMermaid Format = "mermaid"
)

// ParseFormat maps a flag value onto a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatDOT, "":
		return FormatDOT, nil
	case FormatMermaid:
		return FormatMermaid, nil
	}
	return "", fmt.Errorf("unknown format: %s (use 'dot' or 'mermaid')", s)
}

// WriteGraph renders the plan's dependency graph to w. Per-zone resources are
// grouped into one cluster per subnet index.
func (p *Plan) WriteGraph(w io.Writer, format Format) error {
	g := p.graph()

	var out string
	if format == FormatMermaid {
		out = dot.MermaidGraph(g, dot.MermaidTopToBottom)
	} else {
		out = g.String()
	}
	_, err := io.WriteString(w, out)
	return err
}

func (p *Plan) graph() *dot.Graph {
	g := dot.NewGraph(dot.Directed)
	g.Attr("rankdir", "TB")
	g.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})

	clusters := map[int]*dot.Graph{}
	cluster := func(i int) *dot.Graph {
		if c, ok := clusters[i]; ok {
			return c
		}
		c := g.Subgraph(fmt.Sprintf("cluster_az_%d", i), dot.ClusterOption{})
		label := fmt.Sprintf("index %d", i)
		if zone := ZoneFor(p.Zones, i); zone != "" {
			label = zone
		}
		c.Attr("label", label)
		c.Attr("style", "rounded")
		clusters[i] = c
		return c
	}

	nodes := map[string]dot.Node{}
	for _, r := range p.Resources {
		parent := g
		// VPN associations are per private subnet but belong with the VPN.
		if r.Index >= 0 && r.Type != TypeVPNAssociation {
			parent = cluster(r.Index)
		}
		n := parent.Node(r.Name)
		n.Label(nodeLabel(r))
		if r.Type == TypeClientVPN || r.Type == TypeVPNAssociation || r.Type == TypeVPNAuthorization {
			n.Attr("style", "dashed")
		}
		nodes[r.Name] = n
	}

	for _, r := range p.Resources {
		for _, dep := range r.DependsOn {
			to, ok := nodes[dep]
			if !ok {
				continue
			}
			g.Edge(nodes[r.Name], to)
		}
	}
	return g
}

func nodeLabel(r Resource) string {
	parts := []string{r.Name, "[" + shortType(r.Type) + "]"}
	if r.CIDR != "" {
		parts = append(parts, r.CIDR)
	}
	return strings.Join(parts, "\\n")
}

// shortType turns "aws:ec2/natGateway:NatGateway" into "ec2.NatGateway".
func shortType(token string) string {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return token
	}
	mod := parts[1]
	if i := strings.Index(mod, "/"); i >= 0 {
		mod = mod[:i]
	}
	return mod + "." + parts[2]
}
