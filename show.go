package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/stewartpark/eks-network/infra"
	"github.com/stewartpark/eks-network/inspect"
	"github.com/stewartpark/eks-network/topology"
)

func newOutputsCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "outputs",
		Short: "Print the stack outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			so, err := opts.stackOptions(opts.logger("outputs"))
			if err != nil {
				return err
			}

			outputs, err := infra.Outputs(cmd.Context(), cfg.infraConfig(), so)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), outputs)
			}
			if outputs.Empty() {
				fmt.Fprintln(cmd.OutOrStdout(), "Stack has no outputs. Run 'eks-network up' first.")
				return nil
			}
			printOutputs(cmd.OutOrStdout(), outputs)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print outputs as JSON")
	return cmd
}

func newGraphCmd(opts *rootOptions) *cobra.Command {
	var (
		format string
		zones  []string
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the resource plan as a dependency graph",
		Long: `Graph lays out every resource up would declare, without contacting AWS.

Examples:
    eks-network graph | dot -Tsvg > network.svg
    eks-network graph --format mermaid --zones us-west-2a,us-west-2b`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := topology.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}

			plan := planFor(cfg.infraConfig(), zones)
			if overlaps := plan.Overlaps(); len(overlaps) > 0 {
				log := opts.logger("graph")
				for _, o := range overlaps {
					log.Warnw("subnet ranges overlap", "a", o[0], "b", o[1])
				}
			}
			return plan.WriteGraph(cmd.OutOrStdout(), f)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().StringSliceVar(&zones, "zones", nil, "Availability zone names to label subnets with")
	return cmd
}

func newInspectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Check the deployed network against the plan",
		Long: `Inspect reads the deployed VPC from EC2 and checks subnets, routing, the SSM
endpoints and the client VPN against what up declares. It changes nothing.
Exits non-zero when any check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			ic := cfg.infraConfig()
			log := opts.logger("inspect")
			so, err := opts.stackOptions(log)
			if err != nil {
				return err
			}

			outputs, err := infra.Outputs(ctx, ic, so)
			if err != nil {
				return err
			}
			if outputs.Empty() {
				return fmt.Errorf("stack %q has no vpcId output; run 'eks-network up' first", ic.Stack)
			}

			awsCfg, err := inspect.LoadConfig(ctx, ic.Profile, ic.Region)
			if err != nil {
				return err
			}
			logIdentity(ctx, ic, log)

			log.Infow("inspecting", "vpcId", outputs.VpcID)
			report, err := inspect.Inspect(ctx, inspect.NewEC2(awsCfg), planFor(ic, nil), outputs.VpcID)
			if err != nil {
				return err
			}
			report.Render(cmd.OutOrStdout())

			if report.Failed() {
				return fmt.Errorf("%d of %d checks failed", len(report.Failures()), len(report.Checks))
			}
			return nil
		},
	}
}

// printChanges writes a one-line change summary to stdout.
func printChanges(c infra.Changes) {
	if !c.Any() {
		fmt.Println("No changes.")
		return
	}
	var parts []string
	for _, p := range []struct {
		n    int
		verb string
	}{
		{c.Create, "create"},
		{c.Update, "update"},
		{c.Replace, "replace"},
		{c.Delete, "delete"},
		{c.Same, "unchanged"},
	} {
		if p.n > 0 {
			parts = append(parts, strconv.Itoa(p.n)+" "+p.verb)
		}
	}
	fmt.Println(strings.Join(parts, ", "))
}

func printOutputs(w io.Writer, o *infra.StackOutputs) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Output", "Value"})
	table.SetAutoWrapText(false)
	table.Append([]string{"vpcId", o.VpcID})
	table.Append([]string{"publicSubnets", strings.Join(o.PublicSubnetIDs, ", ")})
	table.Append([]string{"privateSubnets", strings.Join(o.PrivateSubnetIDs, ", ")})
	if o.VpnEndpointID != "" {
		table.Append([]string{"vpnId", o.VpnEndpointID})
	}
	table.Render()
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
