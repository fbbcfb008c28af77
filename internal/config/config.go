// Package config loads the YAML configuration: temporary directory,
// resource limits, security policy and delegate programs.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/pixelcodec/internal/delegate"
	"github.com/ironsheep/pixelcodec/internal/policy"
)

// Config represents the complete configuration
type Config struct {
	TemporaryPath string           `yaml:"temporary_path"`
	Resources     ResourcesConfig  `yaml:"resources"`
	Policies      []PolicyConfig   `yaml:"policies"`
	Delegates     []DelegateConfig `yaml:"delegates"`
}

// ResourcesConfig contains resource limits
type ResourcesConfig struct {
	Memory    string `yaml:"memory"`     // byte size such as 512MiB; empty means unlimited
	MemoryMap string `yaml:"memory_map"` // "anonymous" maps stream buffers, "heap" or empty allocates them
}

// PolicyConfig is one policy rule applied to every pattern it lists
type PolicyConfig struct {
	Domain   string   `yaml:"domain"`   // coder, delegate, path, module, resource, cache
	Rights   string   `yaml:"rights"`   // none, read, write, execute, all; "|" separated
	Patterns []string `yaml:"patterns"` // shell globs, case-insensitive except for paths
}

// DelegateConfig defines one external conversion program
type DelegateConfig struct {
	Decode  string `yaml:"decode,omitempty"`
	Encode  string `yaml:"encode,omitempty"`
	Command string `yaml:"command"`
	Format  string `yaml:"format"` // native format produced (decode) or consumed (encode)
}

// Default returns a configuration with no policies and no delegates.
func Default() *Config {
	cfg := &Config{}
	_ = Validate(cfg)
	return cfg
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates YAML configuration data
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Policy builds the security policy described by the configuration.
func (c *Config) Policy() (*policy.Policy, error) {
	var rules []policy.Rule
	for _, pc := range c.Policies {
		domain, err := policy.ParseDomain(pc.Domain)
		if err != nil {
			return nil, err
		}
		rights, err := policy.ParseRights(pc.Rights)
		if err != nil {
			return nil, err
		}
		for _, pattern := range pc.Patterns {
			rules = append(rules, policy.Rule{Domain: domain, Rights: rights, Pattern: pattern})
		}
	}

	settings := map[string]string{}
	if c.Resources.Memory != "" {
		settings[policy.MemorySetting] = c.Resources.Memory
	}
	if strings.EqualFold(c.Resources.MemoryMap, "anonymous") {
		settings[policy.MemoryMapSetting] = "anonymous"
	}
	return policy.New(rules, settings)
}

// DelegateTable builds the delegate table described by the configuration.
func (c *Config) DelegateTable() *delegate.Table {
	ds := make([]delegate.Delegate, 0, len(c.Delegates))
	for _, dc := range c.Delegates {
		ds = append(ds, delegate.Delegate{
			Decode:  dc.Decode,
			Encode:  dc.Encode,
			Command: dc.Command,
			Format:  dc.Format,
		})
	}
	return delegate.NewTable(ds)
}

// Apply installs the configured policy as the process-wide default.
func (c *Config) Apply() error {
	p, err := c.Policy()
	if err != nil {
		return err
	}
	policy.SetDefault(p)
	return nil
}
