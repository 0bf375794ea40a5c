// Command eks-network provisions the network an EKS cluster lives in: a VPC
// with public and private subnets per zone, NAT egress, SSM endpoints and an
// optional client VPN.
//
// Usage:
//
//	eks-network configure      Create or update the config file
//	eks-network preview        Show what up would change
//	eks-network up             Provision or reconcile the network
//	eks-network down           Destroy the network
//	eks-network outputs        Print stack outputs
//	eks-network graph          Render the resource plan as DOT or Mermaid
//	eks-network inspect        Check the deployed network against the plan
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/stewartpark/eks-network/infra"
	"github.com/stewartpark/eks-network/logging"
)

var version = "dev"

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath  string
	stack       string
	region      string
	profile     string
	vpcName     string
	vpcCidr     string
	clusterName string
	azCount     int
	certArn     string
	tags        []string
	debug       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&rootOptions{})
}

func buildRootCmd(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "eks-network",
		Short: "Provision the VPC an EKS cluster runs in",
		Long: `eks-network declares a VPC for EKS with Pulumi: one public and one private
subnet per availability zone, a NAT gateway per zone, SSM interface endpoints
and, when a certificate ARN is configured, a split-tunnel client VPN.

State is kept locally under ~/.config/eks-network/state.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := rootCmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "Path to config.yaml (default ~/.config/eks-network/config.yaml)")
	f.StringVar(&opts.stack, "stack", "", "Pulumi stack name (default: dev)")
	f.StringVar(&opts.region, "region", "", "AWS region (default: us-west-2)")
	f.StringVar(&opts.profile, "profile", "", "AWS shared config profile")
	f.StringVar(&opts.vpcName, "vpc-name", "", "VPC name and resource name prefix (default: eks-vpc)")
	f.StringVar(&opts.vpcCidr, "vpc-cidr", "", "VPC CIDR block (default: 10.0.0.0/16)")
	f.StringVar(&opts.clusterName, "cluster-name", "", "EKS cluster name used in subnet tags")
	f.IntVar(&opts.azCount, "az-count", 0, "Number of availability zones (default: 2)")
	f.StringVar(&opts.certArn, "client-vpn-cert-arn", "", "ACM certificate ARN; enables the client VPN")
	f.StringArrayVar(&opts.tags, "tag", nil, "Extra tag as key=value (repeatable)")
	f.BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		newConfigureCmd(opts),
		newPreviewCmd(opts),
		newUpCmd(opts),
		newDownCmd(opts),
		newRefreshCmd(opts),
		newOutputsCmd(opts),
		newGraphCmd(opts),
		newInspectCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

// config loads the config file and applies any flags the user set on cmd.
func (o *rootOptions) config(cmd *cobra.Command) (*Config, error) {
	cfg, _, err := loadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := o.apply(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *rootOptions) apply(cmd *cobra.Command, cfg *Config) error {
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}

	if changed("stack") {
		cfg.Stack = o.stack
	}
	if changed("region") {
		cfg.Region = o.region
	}
	if changed("profile") {
		cfg.Profile = o.profile
	}
	if changed("vpc-name") {
		cfg.VPCName = o.vpcName
	}
	if changed("vpc-cidr") {
		cfg.VPCCidr = o.vpcCidr
	}
	if changed("cluster-name") {
		cfg.ClusterName = o.clusterName
	}
	if changed("az-count") {
		cfg.AZCount = o.azCount
	}
	if changed("client-vpn-cert-arn") {
		cfg.ClientVPNCertificateArn = o.certArn
	}
	if changed("tag") {
		tags, err := parseTags(o.tags)
		if err != nil {
			return err
		}
		if cfg.Tags == nil {
			cfg.Tags = make(map[string]string, len(tags))
		}
		for k, v := range tags {
			cfg.Tags[k] = v
		}
	}

	cfg.applyDefaults()
	return nil
}

func (o *rootOptions) logger(name string) *zap.SugaredLogger {
	return logging.Redirect(os.Stderr, o.debug, name)
}

// stackOptions returns infra options writing progress and logs to stderr.
func (o *rootOptions) stackOptions(log *zap.SugaredLogger) (infra.Options, error) {
	stateDir, err := StateDir()
	if err != nil {
		return infra.Options{}, fmt.Errorf("failed to resolve state dir: %w", err)
	}
	return infra.Options{StateDir: stateDir, Progress: os.Stderr, Log: log}, nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}

func newConfigureCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Create or update the config file interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, existed, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}
			if err := runInteractiveSetup(cfg, !existed); err != nil {
				return err
			}
			cfg.applyDefaults()

			path := configPathOrDefault(opts.configPath)
			if err := saveConfig(path, cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			fmt.Printf("Configuration saved to %s\n", path)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("eks-network %s\n", version)
		},
	}
}
