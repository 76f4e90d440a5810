package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables honoured by ApplyEnv.
const (
	EnvHostiles = "COMMON_HOSTILES" // comma-separated mob names
	EnvCommand  = "COMMAND"         // chat command word, e.g. "rodent"
)

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): project config, global config, defaults.
// Missing files are not errors; malformed YAML returns an error.
func Load(globalPath, projectPath string) (*Config, error) {
	cfg := DefaultConfig()

	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	return cfg, nil
}

// DefaultPaths returns the conventional global and project config paths:
// ~/.rodentbot/config.yaml and .rodentbot/config.yaml.
func DefaultPaths() (global, project string, err error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".rodentbot", "config.yaml"),
		filepath.Join(".rodentbot", "config.yaml"), nil
}

// LoadDefault loads configuration from the conventional paths and applies
// environment overrides.
func LoadDefault() (*Config, error) {
	global, project, err := DefaultPaths()
	if err != nil {
		return nil, err
	}
	cfg, err := Load(global, project)
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg, os.LookupEnv)
	return cfg, nil
}

// mergeConfigFile decodes a YAML file over base. Keys present in the file
// replace the corresponding settings; absent keys keep their current value.
func mergeConfigFile(base *Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, base); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from the environment. lookup is usually
// os.LookupEnv.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvHostiles); ok {
		var names []string
		for _, n := range strings.Split(v, ",") {
			n = strings.ToLower(strings.TrimSpace(n))
			if n != "" {
				names = append(names, n)
			}
		}
		if len(names) > 0 {
			cfg.Defense.Hostiles = names
		}
	}
	if v, ok := lookup(EnvCommand); ok {
		if v = strings.TrimSpace(v); v != "" {
			cfg.Command.Prefix = "!" + strings.TrimPrefix(v, "!") + " "
		}
	}
}

// Validate checks settings that would make the agent misbehave.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Command.Prefix) == "" {
		errs = append(errs, errors.New("command.prefix must not be empty"))
	}
	if c.Defense.Radius <= 0 {
		errs = append(errs, fmt.Errorf("defense.radius must be positive, got %v", c.Defense.Radius))
	}
	if c.Defense.FleeDistance <= 0 {
		errs = append(errs, fmt.Errorf("defense.flee_distance must be positive, got %v", c.Defense.FleeDistance))
	}
	if c.Defense.LostTargetGrace < 0 {
		errs = append(errs, fmt.Errorf("defense.lost_target_grace must not be negative, got %d", c.Defense.LostTargetGrace))
	}
	for name, d := range map[string]int64{
		"defense.tick": int64(c.Defense.Tick),
		"guard.tick":   int64(c.Guard.Tick),
		"sustain.tick": int64(c.Sustain.Tick),
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Sustain.Threshold < 0 || c.Sustain.Threshold > 20 {
		errs = append(errs, fmt.Errorf("sustain.threshold must be within 0..20, got %d", c.Sustain.Threshold))
	}
	if c.Tasks.FlattenMaxSide < 1 {
		errs = append(errs, fmt.Errorf("tasks.flatten_max_side must be at least 1, got %d", c.Tasks.FlattenMaxSide))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
