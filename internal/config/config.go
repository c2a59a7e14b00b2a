package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/gilad12-coder/agentic-tdd/internal/constants"
)

// Default performance and cache settings
const (
	// DefaultMaxGoroutines bounds how many files are checked at once
	DefaultMaxGoroutines = 4

	// DefaultTimeoutSeconds bounds a whole check run
	DefaultTimeoutSeconds = 120

	// DefaultCacheSize is the number of memoized file results
	DefaultCacheSize = constants.DefaultCacheSize
)

// Config represents the main configuration structure
type Config struct {
	// Profiles locates the profile table and the fallback profile
	Profiles ProfilesConfig `json:"profiles" mapstructure:"profiles" yaml:"profiles"`

	// Output holds output formatting configuration
	Output OutputConfig `json:"output" mapstructure:"output" yaml:"output"`

	// Analysis holds file collection configuration
	Analysis AnalysisConfig `json:"analysis" mapstructure:"analysis" yaml:"analysis"`

	// Performance bounds concurrency and run time
	Performance PerformanceConfig `json:"performance" mapstructure:"performance" yaml:"performance"`

	// Cache controls result memoization across watch re-runs
	Cache CacheConfig `json:"cache" mapstructure:"cache" yaml:"cache"`
}

// ProfilesConfig holds profile table settings
type ProfilesConfig struct {
	// Path is the profile table; relative paths resolve against the spec directory
	Path string `json:"path" mapstructure:"path" yaml:"path"`

	// Default is used when a spec names no profile
	Default string `json:"default" mapstructure:"default" yaml:"default"`
}

// OutputConfig holds configuration for output formatting
type OutputConfig struct {
	// Format specifies the output format: text, json, yaml
	Format string `json:"format" mapstructure:"format" yaml:"format"`

	// ShowDetails prints metrics alongside violations in text output
	ShowDetails bool `json:"show_details" mapstructure:"show_details" yaml:"show_details"`

	// Progress draws a progress bar on interactive terminals
	Progress bool `json:"progress" mapstructure:"progress" yaml:"progress"`
}

// AnalysisConfig holds file collection configuration
type AnalysisConfig struct {
	// IncludePatterns specifies file patterns to include
	IncludePatterns []string `json:"include_patterns" mapstructure:"include_patterns" yaml:"include_patterns"`

	// ExcludePatterns specifies file patterns to exclude
	ExcludePatterns []string `json:"exclude_patterns" mapstructure:"exclude_patterns" yaml:"exclude_patterns"`

	// Recursive controls whether directories are walked
	Recursive bool `json:"recursive" mapstructure:"recursive" yaml:"recursive"`

	// RespectGitignore skips files matched by .gitignore in the walked root
	RespectGitignore bool `json:"respect_gitignore" mapstructure:"respect_gitignore" yaml:"respect_gitignore"`
}

// PerformanceConfig bounds the parallel executor
type PerformanceConfig struct {
	// MaxGoroutines is the number of files checked concurrently
	MaxGoroutines int `json:"max_goroutines" mapstructure:"max_goroutines" yaml:"max_goroutines"`

	// TimeoutSeconds bounds the whole run
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// CacheConfig controls the result cache
type CacheConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled" yaml:"enabled"`
	Size    int  `json:"size" mapstructure:"size" yaml:"size"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Profiles: ProfilesConfig{
			Path:    constants.DefaultProfilesFile,
			Default: constants.DefaultProfileName,
		},
		Output: OutputConfig{
			Format:      constants.OutputFormatText,
			ShowDetails: false,
			Progress:    true,
		},
		Analysis: AnalysisConfig{
			IncludePatterns: []string{"**/*.py"},
			ExcludePatterns: []string{
				".git",
				".venv",
				"venv",
				"__pycache__",
				".mypy_cache",
				".pytest_cache",
				".tox",
				"build",
				"dist",
				"*.egg-info",
			},
			Recursive:        true,
			RespectGitignore: true,
		},
		Performance: PerformanceConfig{
			MaxGoroutines:  DefaultMaxGoroutines,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    DefaultCacheSize,
		},
	}
}

// LoadConfig loads configuration from file or returns default config
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigWithTarget(configPath, "")
}

// LoadConfigWithTarget loads configuration, discovering a config file from
// targetPath upward when configPath is empty
func LoadConfigWithTarget(configPath string, targetPath string) (*Config, error) {
	if configPath == "" {
		configPath = findDefaultConfig(targetPath)
	}
	return loadConfigFromFile(configPath)
}

// loadConfigFromFile reads a config file over the defaults. TDDGATE_*
// environment variables override file values.
func loadConfigFromFile(configPath string) (*Config, error) {
	// Create a new viper instance to avoid race conditions
	v := viper.New()
	v.SetEnvPrefix(constants.EnvVarPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindDefaults(v, DefaultConfig())

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// bindDefaults registers every key so AutomaticEnv can see it
func bindDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("profiles.path", c.Profiles.Path)
	v.SetDefault("profiles.default", c.Profiles.Default)
	v.SetDefault("output.format", c.Output.Format)
	v.SetDefault("output.show_details", c.Output.ShowDetails)
	v.SetDefault("output.progress", c.Output.Progress)
	v.SetDefault("analysis.include_patterns", c.Analysis.IncludePatterns)
	v.SetDefault("analysis.exclude_patterns", c.Analysis.ExcludePatterns)
	v.SetDefault("analysis.recursive", c.Analysis.Recursive)
	v.SetDefault("analysis.respect_gitignore", c.Analysis.RespectGitignore)
	v.SetDefault("performance.max_goroutines", c.Performance.MaxGoroutines)
	v.SetDefault("performance.timeout_seconds", c.Performance.TimeoutSeconds)
	v.SetDefault("cache.enabled", c.Cache.Enabled)
	v.SetDefault("cache.size", c.Cache.Size)
}

// configCandidates are looked up in each directory, in order
var configCandidates = []string{
	"tddgate.yaml",
	"tddgate.yml",
	constants.ConfigFileName,
	".tddgate.yml",
	".tddgate.toml",
	"tddgate.json",
}

// searchConfigInDirectory searches for configuration files in a specific directory
func searchConfigInDirectory(dir string) string {
	for _, candidate := range configCandidates {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// findDefaultConfig walks from targetPath up to the filesystem root, then
// tries the working directory and the XDG config directory
func findDefaultConfig(targetPath string) string {
	if targetPath != "" {
		if absPath, err := filepath.Abs(targetPath); err == nil {
			if info, err := os.Stat(absPath); err == nil && !info.IsDir() {
				absPath = filepath.Dir(absPath)
			}
			for dir := absPath; ; dir = filepath.Dir(dir) {
				if config := searchConfigInDirectory(dir); config != "" {
					return config
				}
				if filepath.Dir(dir) == dir {
					break
				}
			}
		}
	}

	if config := searchConfigInDirectory("."); config != "" {
		return config
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configHome = filepath.Join(home, ".config")
		}
	}
	if configHome != "" {
		if config := searchConfigInDirectory(filepath.Join(configHome, constants.ToolName)); config != "" {
			return config
		}
	}

	if envConfig := os.Getenv(constants.EnvVarPrefix + "_CONFIG"); envConfig != "" {
		if _, err := os.Stat(envConfig); err == nil {
			return envConfig
		}
	}
	return ""
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	validFormats := map[string]bool{
		constants.OutputFormatText: true,
		constants.OutputFormatJSON: true,
		constants.OutputFormatYAML: true,
	}
	if !validFormats[c.Output.Format] {
		return fmt.Errorf("invalid output.format '%s', must be one of: text, json, yaml", c.Output.Format)
	}

	if c.Profiles.Default == "" {
		return fmt.Errorf("profiles.default cannot be empty")
	}

	if len(c.Analysis.IncludePatterns) == 0 {
		return fmt.Errorf("analysis.include_patterns cannot be empty")
	}

	if c.Performance.MaxGoroutines < 0 {
		return fmt.Errorf("performance.max_goroutines must be >= 0, got %d", c.Performance.MaxGoroutines)
	}
	if c.Performance.TimeoutSeconds < 0 {
		return fmt.Errorf("performance.timeout_seconds must be >= 0, got %d", c.Performance.TimeoutSeconds)
	}

	if c.Cache.Enabled && c.Cache.Size < 1 {
		return fmt.Errorf("cache.size must be >= 1 when the cache is enabled, got %d", c.Cache.Size)
	}
	return nil
}

// ResolveProfilesPath returns the profile table path for a spec. An explicit
// path wins; a relative configured path is taken next to the spec.
func (c *Config) ResolveProfilesPath(explicit, specPath string) string {
	if explicit != "" {
		return explicit
	}
	path := c.Profiles.Path
	if path == "" {
		path = constants.DefaultProfilesFile
	}
	if filepath.IsAbs(path) || specPath == "" {
		return path
	}
	return filepath.Join(filepath.Dir(specPath), path)
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, path string) error {
	// Create a new viper instance to avoid race conditions
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("profiles", config.Profiles)
	v.Set("output", config.Output)
	v.Set("analysis", config.Analysis)
	v.Set("performance", config.Performance)
	v.Set("cache", config.Cache)

	return v.WriteConfig()
}
