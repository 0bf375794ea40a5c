package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pulumi/pulumi/sdk/v3/go/auto"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optdestroy"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optpreview"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optrefresh"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optup"
	"github.com/pulumi/pulumi/sdk/v3/go/common/tokens"
	"github.com/pulumi/pulumi/sdk/v3/go/common/workspace"
	"go.uber.org/zap"

	"github.com/stewartpark/eks-network/topology"
)

const (
	projectName  = "eks-network"
	DefaultStack = "dev"
)

// Options carries where a stack operation keeps state and reports progress.
type Options struct {
	StateDir string
	Progress io.Writer
	Log      *zap.SugaredLogger
}

func (o Options) progress() io.Writer {
	if o.Progress == nil {
		return io.Discard
	}
	return o.Progress
}

func (o Options) log() *zap.SugaredLogger {
	if o.Log == nil {
		return zap.NewNop().Sugar()
	}
	return o.Log
}

func stackName(cfg *InfraConfig) string {
	if cfg.Stack == "" {
		return DefaultStack
	}
	return cfg.Stack
}

func getOrCreateStack(ctx context.Context, cfg *InfraConfig, opts Options) (auto.Stack, error) {
	if err := os.MkdirAll(opts.StateDir, 0700); err != nil {
		return auto.Stack{}, fmt.Errorf("failed to create state dir: %w", err)
	}

	backendURL := "file://" + opts.StateDir

	project := workspace.Project{
		Name:    tokens.PackageName(projectName),
		Runtime: workspace.NewProjectRuntimeInfo("go", nil),
		Backend: &workspace.ProjectBackend{URL: backendURL},
	}

	envVars := map[string]string{
		"PULUMI_CONFIG_PASSPHRASE": "", // no encryption for local state
	}
	if cfg.Profile != "" {
		envVars["AWS_PROFILE"] = cfg.Profile
	}

	s, err := auto.UpsertStackInlineSource(ctx, stackName(cfg), projectName,
		DefineInfrastructure(cfg),
		auto.EnvVars(envVars),
		auto.Project(project),
	)
	if err != nil {
		return auto.Stack{}, fmt.Errorf("failed to create/select stack: %w", err)
	}

	if err := applyStackConfig(ctx, s, cfg, opts.log()); err != nil {
		return auto.Stack{}, err
	}
	return s, nil
}

// stackConfig maps the CLI config onto stack config keys. Empty values are
// returned separately so stale keys can be removed.
func stackConfig(cfg *InfraConfig) (set auto.ConfigMap, unset []string, err error) {
	set = auto.ConfigMap{}
	put := func(key, value string) {
		if value == "" {
			unset = append(unset, key)
			return
		}
		set[key] = auto.ConfigValue{Value: value}
	}

	put("aws:region", cfg.Region)
	put("aws:profile", cfg.Profile)
	put(keyVPCName, cfg.VPCName)
	put(keyVPCCidr, cfg.VPCCidr)
	put(keyClusterName, cfg.ClusterName)
	if cfg.AZCount != 0 {
		put(keyAZCount, strconv.Itoa(cfg.AZCount))
	} else {
		put(keyAZCount, "")
	}
	put(keyCertArn, cfg.ClientVPNCertificateArn)

	if len(cfg.Tags) > 0 {
		raw, err := json.Marshal(cfg.Tags)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode tags: %w", err)
		}
		put(keyTags, string(raw))
	} else {
		put(keyTags, "")
	}
	return set, unset, nil
}

func applyStackConfig(ctx context.Context, s auto.Stack, cfg *InfraConfig, log *zap.SugaredLogger) error {
	set, unset, err := stackConfig(cfg)
	if err != nil {
		return err
	}
	if err := s.SetAllConfig(ctx, set); err != nil {
		return fmt.Errorf("failed to set stack config: %w", err)
	}
	for _, key := range unset {
		if err := s.RemoveConfig(ctx, key); err != nil {
			log.Debugw("config key not removed", "key", key, zap.Error(err))
		}
	}
	return nil
}

// refreshOrCheck refreshes a stack that already tracks resources. An empty
// stack is instead checked for a same-named VPC created outside this state.
func refreshOrCheck(ctx context.Context, s auto.Stack, cfg *InfraConfig, opts Options) {
	log := opts.log()
	info, err := s.Info(ctx)
	if err == nil && info.ResourceCount != nil && *info.ResourceCount > 0 {
		log.Infof("refreshing state from cloud (%d resources)...", *info.ResourceCount)
		_, err = s.Refresh(ctx, optrefresh.ProgressStreams(opts.progress()))
		if err != nil {
			log.Warnw("refresh failed", zap.Error(err))
		}
		return
	}

	log.Info("empty stack, checking for an existing VPC...")
	warnExisting(ctx, cfg, log)
}

// warnOverlaps logs each pair of planned subnets whose ranges collide. The
// engine still gets the plan as declared.
func warnOverlaps(cfg *InfraConfig, log *zap.SugaredLogger) int {
	overlaps := topology.Build(cfg.Name(), cfg.TopologyArgs(), nil).Overlaps()
	for _, o := range overlaps {
		log.Warnw("subnet ranges overlap", "a", o[0], "b", o[1])
	}
	return len(overlaps)
}

// Refresh syncs the stack state with the cloud.
func Refresh(ctx context.Context, cfg *InfraConfig, opts Options) error {
	s, err := getOrCreateStack(ctx, cfg, opts)
	if err != nil {
		return err
	}

	opts.log().Info("refreshing state...")
	if _, err := s.Refresh(ctx, optrefresh.ProgressStreams(opts.progress())); err != nil {
		return fmt.Errorf("pulumi refresh failed: %w", err)
	}
	return nil
}

// Up provisions or reconciles the network and returns the stack outputs.
func Up(ctx context.Context, cfg *InfraConfig, opts Options) (*StackOutputs, Changes, error) {
	log := opts.log()
	s, err := getOrCreateStack(ctx, cfg, opts)
	if err != nil {
		return nil, Changes{}, err
	}

	refreshOrCheck(ctx, s, cfg, opts)
	warnOverlaps(cfg, log)

	log.Info("running up...")
	result, err := s.Up(ctx, optup.ProgressStreams(opts.progress()))
	if err != nil {
		return nil, Changes{}, fmt.Errorf("pulumi up failed: %w", err)
	}

	var changes Changes
	if result.Summary.ResourceChanges != nil {
		changes = changesFrom(*result.Summary.ResourceChanges)
		log.Infof("up complete: %d created, %d updated, %d replaced, %d unchanged",
			changes.Create, changes.Update, changes.Replace, changes.Same)
	} else {
		log.Info("up complete")
	}

	return outputsFrom(result.Outputs), changes, nil
}

// Down destroys the network and removes the stack from local state.
func Down(ctx context.Context, cfg *InfraConfig, opts Options) (Changes, error) {
	log := opts.log()
	s, err := getOrCreateStack(ctx, cfg, opts)
	if err != nil {
		return Changes{}, err
	}

	refreshOrCheck(ctx, s, cfg, opts)

	log.Info("destroying infrastructure...")
	result, err := s.Destroy(ctx, optdestroy.ProgressStreams(opts.progress()))
	if err != nil {
		return Changes{}, fmt.Errorf("pulumi destroy failed: %w", err)
	}

	var changes Changes
	if result.Summary.ResourceChanges != nil {
		changes = changesFrom(*result.Summary.ResourceChanges)
		log.Infof("destroy complete: %d deleted", changes.Delete)
	} else {
		log.Info("destroy complete")
	}

	if err := s.Workspace().RemoveStack(ctx, s.Name()); err != nil {
		log.Warnw("failed to remove stack from state", "stack", s.Name(), zap.Error(err))
	}
	return changes, nil
}

// Preview shows what would change without applying.
func Preview(ctx context.Context, cfg *InfraConfig, opts Options) (Changes, error) {
	log := opts.log()
	s, err := getOrCreateStack(ctx, cfg, opts)
	if err != nil {
		return Changes{}, err
	}

	refreshOrCheck(ctx, s, cfg, opts)
	warnOverlaps(cfg, log)

	log.Info("previewing changes...")
	result, err := s.Preview(ctx, optpreview.ProgressStreams(opts.progress()))
	if err != nil {
		return Changes{}, fmt.Errorf("pulumi preview failed: %w", err)
	}

	summary := make(map[string]int, len(result.ChangeSummary))
	for op, n := range result.ChangeSummary {
		summary[string(op)] = n
	}
	changes := changesFrom(summary)
	log.Infof("preview: %d to create, %d to update, %d to replace, %d to delete, %d unchanged",
		changes.Create, changes.Update, changes.Replace, changes.Delete, changes.Same)

	return changes, nil
}

// Outputs reads the current stack outputs without running the program.
func Outputs(ctx context.Context, cfg *InfraConfig, opts Options) (*StackOutputs, error) {
	s, err := getOrCreateStack(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	out, err := s.Outputs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read stack outputs: %w", err)
	}
	return outputsFrom(out), nil
}

func changesFrom(m map[string]int) Changes {
	return Changes{
		Create:  m["create"],
		Update:  m["update"],
		Delete:  m["delete"],
		Replace: m["replace"],
		Same:    m["same"],
	}
}

func outputsFrom(m auto.OutputMap) *StackOutputs {
	out := &StackOutputs{}
	if v, ok := m["vpcId"].Value.(string); ok {
		out.VpcID = v
	}
	if v, ok := m["vpnId"].Value.(string); ok {
		out.VpnEndpointID = v
	}
	out.PublicSubnetIDs = stringList(m["publicSubnets"].Value)
	out.PrivateSubnetIDs = stringList(m["privateSubnets"].Value)
	return out
}

func stringList(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
