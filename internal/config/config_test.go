package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config == nil {
		t.Fatal("DefaultConfig should not return nil")
	}

	if config.Profiles.Path != "constraint_profiles.yaml" {
		t.Errorf("Expected profiles path constraint_profiles.yaml, got %s", config.Profiles.Path)
	}
	if config.Profiles.Default != "default" {
		t.Errorf("Expected default profile 'default', got '%s'", config.Profiles.Default)
	}

	if config.Output.Format != "text" {
		t.Errorf("Expected Format 'text', got '%s'", config.Output.Format)
	}
	if !config.Output.Progress {
		t.Error("Progress should be enabled by default")
	}

	if !config.Analysis.Recursive {
		t.Error("Recursive should be true by default")
	}
	if !config.Analysis.RespectGitignore {
		t.Error("RespectGitignore should be true by default")
	}

	if config.Performance.MaxGoroutines != DefaultMaxGoroutines {
		t.Errorf("Expected MaxGoroutines %d, got %d", DefaultMaxGoroutines, config.Performance.MaxGoroutines)
	}
	if config.Performance.TimeoutSeconds != DefaultTimeoutSeconds {
		t.Errorf("Expected TimeoutSeconds %d, got %d", DefaultTimeoutSeconds, config.Performance.TimeoutSeconds)
	}

	if !config.Cache.Enabled || config.Cache.Size != DefaultCacheSize {
		t.Errorf("Expected enabled cache of %d entries, got %+v", DefaultCacheSize, config.Cache)
	}
}

func TestConfig_Validate_Valid(t *testing.T) {
	config := DefaultConfig()

	if err := config.Validate(); err != nil {
		t.Errorf("Default config should be valid, got error: %v", err)
	}
}

func TestConfig_Validate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"output format", func(c *Config) { c.Output.Format = "html" }, "output.format"},
		{"default profile", func(c *Config) { c.Profiles.Default = "" }, "profiles.default"},
		{"include patterns", func(c *Config) { c.Analysis.IncludePatterns = nil }, "include_patterns"},
		{"goroutines", func(c *Config) { c.Performance.MaxGoroutines = -1 }, "max_goroutines"},
		{"timeout", func(c *Config) { c.Performance.TimeoutSeconds = -5 }, "timeout_seconds"},
		{"cache size", func(c *Config) { c.Cache.Size = 0 }, "cache.size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)

			err := config.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestConfig_Validate_DisabledCacheIgnoresSize(t *testing.T) {
	config := DefaultConfig()
	config.Cache.Enabled = false
	config.Cache.Size = 0

	if err := config.Validate(); err != nil {
		t.Errorf("Disabled cache should not require a size, got %v", err)
	}
}

func TestConfig_ValidOutputFormats(t *testing.T) {
	config := DefaultConfig()

	for _, format := range []string{"text", "json", "yaml"} {
		config.Output.Format = format
		if err := config.Validate(); err != nil {
			t.Errorf("Format '%s' should be valid, got error: %v", format, err)
		}
	}
}

func TestLoadConfig_Default(t *testing.T) {
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig with empty path failed: %v", err)
	}

	defaultCfg := DefaultConfig()
	if config.Performance.MaxGoroutines != defaultCfg.Performance.MaxGoroutines {
		t.Error("Loaded config should match default")
	}
	if config.Profiles.Default != defaultCfg.Profiles.Default {
		t.Error("Loaded config should match default")
	}
}

func TestLoadConfig_NonExistent(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/tddgate.yaml")
	if err == nil {
		t.Error("Expected error for non-existent config file")
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tddgate.yaml")
	content := `profiles:
  default: strict
output:
  format: json
performance:
  max_goroutines: 2
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Profiles.Default != "strict" {
		t.Errorf("Expected default profile 'strict', got '%s'", config.Profiles.Default)
	}
	if config.Output.Format != "json" {
		t.Errorf("Expected format json, got %s", config.Output.Format)
	}
	if config.Performance.MaxGoroutines != 2 {
		t.Errorf("Expected 2 goroutines, got %d", config.Performance.MaxGoroutines)
	}
	// Unset keys keep their defaults
	if config.Performance.TimeoutSeconds != DefaultTimeoutSeconds {
		t.Errorf("Expected default timeout, got %d", config.Performance.TimeoutSeconds)
	}
	if config.Profiles.Path != "constraint_profiles.yaml" {
		t.Errorf("Expected default profiles path, got %s", config.Profiles.Path)
	}
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tddgate.yaml")
	if err := os.WriteFile(path, []byte("output:\n  format: csv\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("Expected invalid configuration error, got %v", err)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("TDDGATE_OUTPUT_FORMAT", "yaml")

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Output.Format != "yaml" {
		t.Errorf("Expected env override to yaml, got %s", config.Output.Format)
	}
}

func TestSearchConfigInDirectory(t *testing.T) {
	tempDir := t.TempDir()

	configPath := filepath.Join(tempDir, ".tddgate.yaml")
	if err := os.WriteFile(configPath, []byte("output:\n  format: text\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if result := searchConfigInDirectory(tempDir); result != configPath {
		t.Errorf("Expected %s, got %s", configPath, result)
	}

	if result := searchConfigInDirectory(t.TempDir()); result != "" {
		t.Error("Expected empty string for directory without config")
	}
}

func TestLoadConfigWithTarget_WalksUpward(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "pkg", "sub")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("Failed to create dirs: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "tddgate.yaml"), []byte("output:\n  show_details: true\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	target := filepath.Join(nested, "mod.py")
	if err := os.WriteFile(target, []byte("x = 1\n"), 0644); err != nil {
		t.Fatalf("Failed to write target: %v", err)
	}

	config, err := LoadConfigWithTarget("", target)
	if err != nil {
		t.Fatalf("LoadConfigWithTarget failed: %v", err)
	}
	if !config.Output.ShowDetails {
		t.Error("Expected config discovered above the target to be loaded")
	}
}

func TestResolveProfilesPath(t *testing.T) {
	config := DefaultConfig()

	if got := config.ResolveProfilesPath("explicit.yaml", "specs/task.yaml"); got != "explicit.yaml" {
		t.Errorf("Explicit path should win, got %s", got)
	}
	want := filepath.Join("specs", "constraint_profiles.yaml")
	if got := config.ResolveProfilesPath("", "specs/task.yaml"); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}

	config.Profiles.Path = "/etc/profiles.yaml"
	if got := config.ResolveProfilesPath("", "specs/task.yaml"); got != "/etc/profiles.yaml" {
		t.Errorf("Absolute path should be kept, got %s", got)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tddgate.yaml")
	original := DefaultConfig()
	original.Profiles.Default = "security"
	original.Performance.MaxGoroutines = 8

	if err := SaveConfig(original, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Profiles.Default != "security" {
		t.Errorf("Expected saved default profile, got %s", loaded.Profiles.Default)
	}
	if loaded.Performance.MaxGoroutines != 8 {
		t.Errorf("Expected 8 goroutines, got %d", loaded.Performance.MaxGoroutines)
	}
}

func TestGetProfilesTemplate_IsValidYAML(t *testing.T) {
	for _, name := range StrictnessNames() {
		t.Run(name, func(t *testing.T) {
			var doc map[string]any
			if err := yaml.Unmarshal([]byte(GetProfilesTemplate(Strictness(name))), &doc); err != nil {
				t.Fatalf("Template is not valid YAML: %v", err)
			}
			profiles, ok := doc["profiles"].(map[string]any)
			if !ok {
				t.Fatalf("Template has no profiles mapping")
			}
			for _, profile := range []string{"default", "security", "library"} {
				if _, ok := profiles[profile]; !ok {
					t.Errorf("Template is missing profile %s", profile)
				}
			}
		})
	}
}

func TestGetProfilesTemplate_UsesPreset(t *testing.T) {
	template := GetProfilesTemplate(StrictnessStrict)
	if !strings.Contains(template, "max_cyclomatic_complexity: 6") {
		t.Error("Strict template should carry the strict complexity limit")
	}
	if !strings.Contains(template, `max_time_complexity: "O(n)"`) {
		t.Error("Strict template should carry the strict time complexity limit")
	}
}

func TestStrictnessNames_Ordered(t *testing.T) {
	got := StrictnessNames()
	want := []string{"relaxed", "standard", "strict"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
