package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stewartpark/eks-network/infra"
	"github.com/stewartpark/eks-network/inspect"
	"github.com/stewartpark/eks-network/logging"
	"github.com/stewartpark/eks-network/topology"
	"github.com/stewartpark/eks-network/tui"
)

var errPendingChanges = errors.New("changes pending; rerun with --yes to apply")

func newPreviewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Show what up would change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			ic := cfg.infraConfig()
			log := opts.logger("preview")
			so, err := opts.stackOptions(log)
			if err != nil {
				return err
			}

			changes, err := infra.Preview(cmd.Context(), ic, so)
			if err != nil {
				return err
			}
			printChanges(changes)
			return nil
		},
	}
}

func newUpCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Provision or reconcile the network",
		Long: `Up previews the stack, asks for confirmation when anything would change and
then applies. In a terminal the operation runs in a fullscreen view; with --yes
or without a terminal it logs to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			ic := cfg.infraConfig()
			if yes || !isTerminal() {
				return runUpPlain(cmd.Context(), opts, ic, yes)
			}
			return runUpTUI(cmd.Context(), opts, ic)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Apply without confirmation")
	return cmd
}

func newDownCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Destroy the network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			ic := cfg.infraConfig()
			if yes || !isTerminal() {
				return runDownPlain(cmd.Context(), opts, ic, yes)
			}
			return runDownTUI(cmd.Context(), opts, ic)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Destroy without confirmation")
	return cmd
}

func newRefreshCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Sync local state with what exists in AWS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			log := opts.logger("refresh")
			so, err := opts.stackOptions(log)
			if err != nil {
				return err
			}
			return infra.Refresh(cmd.Context(), cfg.infraConfig(), so)
		},
	}
}

// ── up ───────────────────────────────────────────────────────────

func runUpPlain(ctx context.Context, opts *rootOptions, ic *infra.InfraConfig, yes bool) error {
	log := opts.logger("up")
	so, err := opts.stackOptions(log)
	if err != nil {
		return err
	}
	logIdentity(ctx, ic, log)
	log.Infow("plan", "vpc", ic.Name(), "stack", ic.Stack, "region", ic.Region,
		"resources", planFor(ic, nil).Summary())

	if !yes {
		changes, err := infra.Preview(ctx, ic, so)
		if err != nil {
			return err
		}
		if changes.Any() {
			printChanges(changes)
			return errPendingChanges
		}
	}

	outputs, _, err := infra.Up(ctx, ic, so)
	if err != nil {
		return err
	}
	printOutputs(os.Stdout, outputs)
	return nil
}

func runUpTUI(ctx context.Context, opts *rootOptions, ic *infra.InfraConfig) error {
	stateDir, err := StateDir()
	if err != nil {
		return fmt.Errorf("failed to resolve state dir: %w", err)
	}

	opProg := tui.NewOperationProgram(tui.OpKindUp, opInfo(ic))

	// preview → confirm → apply → done
	return opProg.Run(func(logs io.Writer) error {
		log := logging.Redirect(logs, opts.debug, "up")
		so := infra.Options{StateDir: stateDir, Progress: logs, Log: log}
		logIdentity(ctx, ic, log)

		opProg.Step(tui.OpPhasePreview, "Previewing network changes...")
		changes, err := infra.Preview(ctx, ic, so)
		if err != nil {
			return err
		}

		if changes.Any() {
			if err := opProg.Confirm(ctx, &changes); err != nil {
				return err
			}
		} else {
			log.Info("no changes, reconciling outputs")
		}

		opProg.Step(tui.OpPhaseApply, "Provisioning network...")
		outputs, applied, err := infra.Up(ctx, ic, so)
		if err != nil {
			return err
		}

		opProg.Report(applied, outputs)
		log.Infow("network provisioned", "vpcId", outputs.VpcID)
		return nil
	})
}

// ── down ─────────────────────────────────────────────────────────

func runDownPlain(ctx context.Context, opts *rootOptions, ic *infra.InfraConfig, yes bool) error {
	if !yes {
		return errors.New("refusing to destroy without --yes outside a terminal")
	}
	log := opts.logger("down")
	so, err := opts.stackOptions(log)
	if err != nil {
		return err
	}
	logIdentity(ctx, ic, log)

	changes, err := infra.Down(ctx, ic, so)
	if err != nil {
		return err
	}
	printChanges(changes)
	return nil
}

func runDownTUI(ctx context.Context, opts *rootOptions, ic *infra.InfraConfig) error {
	stateDir, err := StateDir()
	if err != nil {
		return fmt.Errorf("failed to resolve state dir: %w", err)
	}

	opProg := tui.NewOperationProgram(tui.OpKindDown, opInfo(ic))

	return opProg.Run(func(logs io.Writer) error {
		log := logging.Redirect(logs, opts.debug, "down")
		so := infra.Options{StateDir: stateDir, Progress: logs, Log: log}
		logIdentity(ctx, ic, log)

		if err := opProg.Confirm(ctx, nil); err != nil {
			return err
		}

		opProg.Step(tui.OpPhaseDestroy, "Destroying network...")
		changes, err := infra.Down(ctx, ic, so)
		if err != nil {
			return err
		}

		opProg.Report(changes, nil)
		log.Info("network destroyed")
		return nil
	})
}

// ── helpers ──────────────────────────────────────────────────────

func opInfo(ic *infra.InfraConfig) tui.OpInfo {
	return tui.OpInfo{
		Version: version,
		Stack:   ic.Stack,
		Region:  ic.Region,
		VPCName: ic.Name(),
		Plan:    planFor(ic, nil).Summary(),
	}
}

func planFor(ic *infra.InfraConfig, zones []string) *topology.Plan {
	return topology.Build(ic.Name(), ic.TopologyArgs(), zones)
}

// logIdentity logs which AWS account the credentials resolve to. Failures
// only show at debug level; the engine reports credential errors itself.
func logIdentity(ctx context.Context, ic *infra.InfraConfig, log *zap.SugaredLogger) {
	awsCfg, err := inspect.LoadConfig(ctx, ic.Profile, ic.Region)
	if err != nil {
		log.Debugw("failed to load AWS config", zap.Error(err))
		return
	}
	account, err := inspect.AccountID(ctx, inspect.NewSTS(awsCfg))
	if err != nil {
		log.Debugw("caller identity lookup failed", zap.Error(err))
		return
	}
	log.Infow("aws identity", "account", account, "region", ic.Region)
}
