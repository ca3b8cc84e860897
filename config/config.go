// Package config loads tendril.yml, the project-level configuration for
// the git tracking core.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/tendrilhq/tendril-core/errors"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// Config is the parsed tendril.yml.
type Config struct {
	Version string `yaml:"version,omitempty"`

	Git     GitConfig     `yaml:"git,omitempty"`
	Watcher WatcherConfig `yaml:"watcher,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`

	// Extensions holds sections this package doesn't interpret. Host
	// applications decode them with UnmarshalExtension.
	Extensions map[string]interface{} `yaml:"extensions,omitempty"`
}

// GitConfig controls the worktree/status engine.
type GitConfig struct {
	// Binary overrides the git executable name. Default "git".
	Binary string `yaml:"binary,omitempty"`
	// BaseBranch pins the base branch instead of detecting it.
	BaseBranch string `yaml:"base_branch,omitempty"`
	// StatusTTLMs is the status snapshot cache lifetime.
	StatusTTLMs int `yaml:"status_ttl_ms,omitempty"`
	// RepoScanTTLMs is the multi-repo scan cache lifetime.
	RepoScanTTLMs int `yaml:"repo_scan_ttl_ms,omitempty"`
	// ExcludeLockFiles adds lock-file names to the built-in diff
	// exclusion list.
	ExcludeLockFiles []string `yaml:"exclude_lock_files,omitempty"`
}

// WatcherConfig controls the branch watcher.
type WatcherConfig struct {
	// DebounceMs is the quiet period after the last HEAD event.
	DebounceMs int `yaml:"debounce_ms,omitempty"`
	// RecordFile overrides where branch records are persisted.
	RecordFile string `yaml:"record_file,omitempty"`
}

// LoggingConfig mirrors the TENDRIL_LOG_* environment variables.
// Env vars win over config values.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}
	return LoadFromBytes(data)
}

// LoadDefault searches upward from the current directory for tendril.yml
// and loads it. A missing config file yields the defaults, not an error.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}
	return LoadFrom(cwd)
}

// LoadFrom searches upward from startDir for a config file and loads it,
// falling back to defaults when none exists.
func LoadFrom(startDir string) (*Config, error) {
	path, err := FindConfigFile(startDir)
	if err != nil {
		if errors.Is(err, errors.ErrCodeConfigNotFound) {
			cfg := &Config{}
			cfg.SetDefaults()
			return cfg, nil
		}
		return nil, err
	}
	return Load(path)
}

// LoadFromBytes parses configuration content after expanding ${VAR}
// environment references.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindConfigFile searches from startDir up to the filesystem root for a
// tendril config file.
func FindConfigFile(startDir string) (string, error) {
	configNames := []string{
		"tendril.yml",
		"tendril.yaml",
		".tendril.yml",
		".tendril.yaml",
	}

	dir := startDir
	for {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

// SetDefaults fills in default values.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	if c.Git.Binary == "" {
		c.Git.Binary = "git"
	}
	if c.Git.StatusTTLMs == 0 {
		c.Git.StatusTTLMs = 1000
	}
	if c.Git.RepoScanTTLMs == 0 {
		c.Git.RepoScanTTLMs = 5 * 60 * 1000
	}
	if c.Watcher.DebounceMs == 0 {
		c.Watcher.DebounceMs = 100
	}
}

// Validate checks structural constraints.
func (c *Config) Validate() error {
	if c.Git.StatusTTLMs < 0 {
		return errors.ConfigInvalid("git.status_ttl_ms must not be negative")
	}
	if c.Git.RepoScanTTLMs < 0 {
		return errors.ConfigInvalid("git.repo_scan_ttl_ms must not be negative")
	}
	if c.Watcher.DebounceMs < 0 {
		return errors.ConfigInvalid("watcher.debounce_ms must not be negative")
	}
	for _, name := range c.Git.ExcludeLockFiles {
		if strings.ContainsAny(name, "/\\") {
			return errors.ConfigInvalid(
				fmt.Sprintf("git.exclude_lock_files entry %q must be a bare file name", name))
		}
	}
	if f := c.Logging.Format; f != "" && f != "text" && f != "json" {
		return errors.ConfigInvalid(fmt.Sprintf("logging.format %q must be text or json", f))
	}
	return nil
}

// UnmarshalExtension decodes a named extension section into the target
// struct. The target must be a pointer. A missing section leaves the
// target zero-valued; that is not an error.
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "yaml",
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}
	return nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment
// variable values.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}
