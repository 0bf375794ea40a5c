package main

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stewartpark/eks-network/infra"
	"github.com/stewartpark/eks-network/topology"
)

// Config holds CLI configuration loaded from config.yaml.
type Config struct {
	VPCName                 string            `yaml:"vpc_name"`
	VPCCidr                 string            `yaml:"vpc_cidr"`
	ClusterName             string            `yaml:"cluster_name"`
	AZCount                 int               `yaml:"az_count"`
	ClientVPNCertificateArn string            `yaml:"client_vpn_certificate_arn"`
	Tags                    map[string]string `yaml:"tags,omitempty"`
	Region                  string            `yaml:"region"`
	Profile                 string            `yaml:"profile"`
	Stack                   string            `yaml:"stack"`
}

const defaultRegion = "us-west-2"

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "eks-network"), nil
}

func defaultConfigPath() string {
	dir, err := configDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

func configPathOrDefault(path string) string {
	if path != "" {
		return path
	}
	return defaultConfigPath()
}

// loadConfig reads the config file at path. A missing file is not an error;
// the returned bool reports whether a file was read.
func loadConfig(path string) (*Config, bool, error) {
	path = configPathOrDefault(path)
	cfg := &Config{}

	data, err := os.ReadFile(path) //nolint:gosec // path from known config dir or flag
	if errors.Is(err, fs.ErrNotExist) {
		cfg.applyDefaults()
		return cfg, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, true, nil
}

// applyDefaults fills in default values for empty config fields.
func (c *Config) applyDefaults() {
	if c.VPCName == "" {
		c.VPCName = topology.DefaultVPCName
	}
	if c.VPCCidr == "" {
		c.VPCCidr = topology.DefaultVPCCidr
	}
	if c.ClusterName == "" {
		c.ClusterName = topology.DefaultClusterName
	}
	if c.AZCount == 0 {
		c.AZCount = topology.DefaultAZCount
	}
	if c.Region == "" {
		c.Region = defaultRegion
	}
	if c.Stack == "" {
		c.Stack = infra.DefaultStack
	}
}

// saveConfig writes c to path, creating the config dir if needed.
func saveConfig(path string, c *Config) error {
	path = configPathOrDefault(path)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// infraConfig converts the file config into the provisioning config.
func (c *Config) infraConfig() *infra.InfraConfig {
	return &infra.InfraConfig{
		Stack:                   c.Stack,
		Region:                  c.Region,
		Profile:                 c.Profile,
		VPCName:                 c.VPCName,
		VPCCidr:                 c.VPCCidr,
		ClusterName:             c.ClusterName,
		AZCount:                 c.AZCount,
		ClientVPNCertificateArn: c.ClientVPNCertificateArn,
		Tags:                    c.Tags,
	}
}

// StateDir returns the local Pulumi state directory path.
func StateDir() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state"), nil
}

// parseTags turns repeated k=v flag values into a map.
func parseTags(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	tags := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid tag %q, expected key=value", p)
		}
		tags[k] = v
	}
	return tags, nil
}

// formatTags renders tags as sorted k=v pairs separated by commas.
func formatTags(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+tags[k])
	}
	return strings.Join(parts, ",")
}

// promptString prompts the user for a string value with a default.
func promptString(r *bufio.Reader, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("  %s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("  %s: ", label)
	}
	input, _ := r.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

// promptInt prompts the user for an integer value with a default.
func promptInt(r *bufio.Reader, label string, defaultVal int) int {
	fmt.Printf("  %s [%d]: ", label, defaultVal)
	input, _ := r.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil {
		return defaultVal
	}
	return val
}
