package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ironsheep/pixelcodec/internal/policy"
)

// Validate checks if the configuration is valid and fills in defaults
func Validate(cfg *Config) error {
	if cfg.TemporaryPath == "" {
		cfg.TemporaryPath = os.TempDir()
	}

	// Validate resources
	if m := cfg.Resources.Memory; m != "" && m != "unlimited" {
		if _, err := humanize.ParseBytes(m); err != nil {
			return fmt.Errorf("resources.memory: %w", err)
		}
	}
	switch strings.ToLower(cfg.Resources.MemoryMap) {
	case "", "heap", "anonymous":
	default:
		return fmt.Errorf("resources.memory_map must be heap or anonymous, got %q", cfg.Resources.MemoryMap)
	}

	// Validate policies
	for i, pc := range cfg.Policies {
		if _, err := policy.ParseDomain(pc.Domain); err != nil {
			return fmt.Errorf("policies[%d]: %w", i, err)
		}
		if _, err := policy.ParseRights(pc.Rights); err != nil {
			return fmt.Errorf("policies[%d]: %w", i, err)
		}
		if len(pc.Patterns) == 0 {
			return fmt.Errorf("policies[%d]: at least one pattern is required", i)
		}
	}

	// Validate delegates
	for i, dc := range cfg.Delegates {
		if (dc.Decode == "") == (dc.Encode == "") {
			return fmt.Errorf("delegates[%d]: exactly one of decode or encode is required", i)
		}
		if strings.TrimSpace(dc.Command) == "" {
			return fmt.Errorf("delegates[%d]: command is required", i)
		}
		if dc.Format == "" {
			return fmt.Errorf("delegates[%d]: format is required", i)
		}
	}

	return nil
}
