package service

import (
	"github.com/gilad12-coder/agentic-tdd/domain"
	"github.com/gilad12-coder/agentic-tdd/internal/config"
)

// ConfigurationLoaderImpl bridges the tool configuration and check requests
type ConfigurationLoaderImpl struct{}

// NewConfigurationLoader creates a new configuration loader service
func NewConfigurationLoader() *ConfigurationLoaderImpl {
	return &ConfigurationLoaderImpl{}
}

// LoadConfig loads the configuration at path, or discovers one from target
func (c *ConfigurationLoaderImpl) LoadConfig(path, target string) (*config.Config, error) {
	cfg, err := config.LoadConfigWithTarget(path, target)
	if err != nil {
		return nil, domain.NewConfigError("failed to load configuration file", err)
	}
	return cfg, nil
}

// LoadDefaultConfig loads a discovered configuration, falling back to the
// built-in defaults when discovery or parsing fails
func (c *ConfigurationLoaderImpl) LoadDefaultConfig() *config.Config {
	if cfg, err := config.LoadConfigWithTarget("", ""); err == nil {
		return cfg
	}
	return config.DefaultConfig()
}

// MergeRequest fills unset request fields from the configuration. Values set
// on the request (from CLI flags) win.
func (c *ConfigurationLoaderImpl) MergeRequest(cfg *config.Config, req domain.CheckRequest) domain.CheckRequest {
	merged := req
	if cfg == nil {
		return merged
	}

	if merged.OutputFormat == "" {
		merged.OutputFormat = domain.OutputFormat(cfg.Output.Format)
	}
	if !merged.ShowDetails {
		merged.ShowDetails = cfg.Output.ShowDetails
	}
	if len(merged.IncludePatterns) == 0 {
		merged.IncludePatterns = append([]string{}, cfg.Analysis.IncludePatterns...)
	}
	if len(merged.ExcludePatterns) == 0 {
		merged.ExcludePatterns = append([]string{}, cfg.Analysis.ExcludePatterns...)
	}
	if !merged.Recursive {
		merged.Recursive = cfg.Analysis.Recursive
	}
	if merged.SpecPath != "" && merged.ConstraintsPath == "" {
		merged.ProfilesPath = cfg.ResolveProfilesPath(merged.ProfilesPath, merged.SpecPath)
	}
	return merged
}
