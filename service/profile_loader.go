package service

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"

	"github.com/sahilm/fuzzy"
	"gopkg.in/yaml.v3"

	"github.com/gilad12-coder/agentic-tdd/domain"
	"github.com/gilad12-coder/agentic-tdd/internal/constants"
)

// ProfileLoaderImpl implements domain.ProfileLoader on YAML files
type ProfileLoaderImpl struct {
	logger *slog.Logger
}

// NewProfileLoader creates a profile loader. A nil logger discards output.
func NewProfileLoader(logger *slog.Logger) *ProfileLoaderImpl {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ProfileLoaderImpl{logger: logger}
}

// LoadProfiles reads a profiles file with top-level `profiles` and
// `functions` sections
func (l *ProfileLoaderImpl) LoadProfiles(path string) (*domain.ProfileTable, error) {
	raw, err := readYAMLMap(path, "profiles")
	if err != nil {
		return nil, err
	}

	table := &domain.ProfileTable{
		Profiles:  make(map[string]domain.Profile),
		Functions: make(map[string]domain.FunctionOverride),
	}

	profiles, err := asMap(raw["profiles"], "profiles")
	if err != nil {
		return nil, err
	}
	for _, name := range sortedKeys(profiles) {
		entry, err := asMap(profiles[name], "profiles."+name)
		if err != nil {
			return nil, err
		}
		profile, err := l.decodeProfile(name, entry)
		if err != nil {
			return nil, err
		}
		table.Profiles[name] = profile
	}

	functions, err := asMap(raw["functions"], "functions")
	if err != nil {
		return nil, err
	}
	for _, name := range sortedKeys(functions) {
		entry, err := asMap(functions[name], "functions."+name)
		if err != nil {
			return nil, err
		}
		override, err := decodeOverride(name, entry)
		if err != nil {
			return nil, err
		}
		table.Functions[name] = override
	}

	l.logger.Debug("loaded profiles",
		slog.String("path", path),
		slog.Int("profiles", len(table.Profiles)),
		slog.Int("function_overrides", len(table.Functions)))
	return table, nil
}

// ResolveConstraints picks the profile for the spec (or for one of its
// functions) and applies the matching function override on top
func (l *ProfileLoaderImpl) ResolveConstraints(spec *domain.ParsedSpec, table *domain.ProfileTable, functionName string) (*domain.TaskConstraints, error) {
	if spec == nil || table == nil {
		return nil, domain.NewInvalidInputError("spec and profile table are required", nil)
	}

	profileName := selectProfileName(spec, functionName)
	profile, ok := table.Profiles[profileName]
	if !ok {
		return nil, domain.NewProfileNotFoundError(profileName)
	}

	tc := &domain.TaskConstraints{
		Primary:     profile.Primary,
		Secondary:   profile.Secondary,
		TargetFiles: append([]string{}, spec.TargetFiles...),
		Guidance:    append([]string{}, profile.Guidance...),
	}

	overrideKey := functionName
	if overrideKey == "" {
		overrideKey = spec.Name
	}
	override, ok := table.Functions[overrideKey]
	if !ok || override.IsEmpty() {
		return tc, nil
	}

	primary, unused, err := tc.Primary.ApplyOverrides(override.Primary)
	if err != nil {
		return nil, fmt.Errorf("function %s primary override: %w", overrideKey, err)
	}
	l.warnUnused("functions."+overrideKey+".primary", unused)

	secondary, unused, err := tc.Secondary.ApplyOverrides(override.Secondary)
	if err != nil {
		return nil, fmt.Errorf("function %s secondary override: %w", overrideKey, err)
	}
	l.warnUnused("functions."+overrideKey+".secondary", unused)

	tc.Primary = primary
	tc.Secondary = secondary
	if override.HasGuidance {
		tc.Guidance = append([]string{}, override.Guidance...)
	}

	l.logger.Debug("applied function override",
		slog.String("function", overrideKey),
		slog.String("profile", profileName))
	return tc, nil
}

// LoadTaskConstraints reads a standalone constraints file with `primary`,
// `secondary`, `target_files` and `guidance` keys
func (l *ProfileLoaderImpl) LoadTaskConstraints(path string) (*domain.TaskConstraints, error) {
	raw, err := readYAMLMap(path, "constraints")
	if err != nil {
		return nil, err
	}

	tc := &domain.TaskConstraints{TargetFiles: []string{}, Guidance: []string{}}
	for _, gate := range []struct {
		key    string
		target *domain.ConstraintSet
	}{
		{"primary", &tc.Primary},
		{"secondary", &tc.Secondary},
	} {
		section, err := asMap(raw[gate.key], gate.key)
		if err != nil {
			return nil, err
		}
		cs, unused, err := domain.DecodeConstraintSet(section)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", gate.key, err)
		}
		l.warnUnused(gate.key, unused)
		*gate.target = cs
	}

	if tc.TargetFiles, err = asStrings(raw["target_files"], "target_files"); err != nil {
		return nil, err
	}
	if tc.Guidance, err = asStrings(raw["guidance"], "guidance"); err != nil {
		return nil, err
	}
	return tc, nil
}

// SuggestProfiles returns up to three profile names resembling name, best first
func SuggestProfiles(name string, table *domain.ProfileTable) []string {
	if table == nil || name == "" {
		return nil
	}
	matches := fuzzy.Find(name, table.Names())
	var suggestions []string
	for i, match := range matches {
		if i == 3 {
			break
		}
		suggestions = append(suggestions, match.Str)
	}
	return suggestions
}

func (l *ProfileLoaderImpl) decodeProfile(name string, entry map[string]any) (domain.Profile, error) {
	var profile domain.Profile

	primary, err := asMap(entry["primary"], "profiles."+name+".primary")
	if err != nil {
		return profile, err
	}
	cs, unused, err := domain.DecodeConstraintSet(primary)
	if err != nil {
		return profile, fmt.Errorf("profile %s primary: %w", name, err)
	}
	l.warnUnused("profiles."+name+".primary", unused)
	profile.Primary = cs

	secondary, err := asMap(entry["secondary"], "profiles."+name+".secondary")
	if err != nil {
		return profile, err
	}
	cs, unused, err = domain.DecodeConstraintSet(secondary)
	if err != nil {
		return profile, fmt.Errorf("profile %s secondary: %w", name, err)
	}
	l.warnUnused("profiles."+name+".secondary", unused)
	profile.Secondary = cs

	if profile.Guidance, err = asStrings(entry["guidance"], "profiles."+name+".guidance"); err != nil {
		return profile, err
	}
	return profile, nil
}

func decodeOverride(name string, entry map[string]any) (domain.FunctionOverride, error) {
	var override domain.FunctionOverride
	var err error

	if override.Primary, err = asMap(entry["primary"], "functions."+name+".primary"); err != nil {
		return override, err
	}
	if override.Secondary, err = asMap(entry["secondary"], "functions."+name+".secondary"); err != nil {
		return override, err
	}
	if value, ok := entry["guidance"]; ok {
		override.HasGuidance = true
		if override.Guidance, err = asStrings(value, "functions."+name+".guidance"); err != nil {
			return override, err
		}
	}
	return override, nil
}

func (l *ProfileLoaderImpl) warnUnused(section string, keys []string) {
	for _, key := range keys {
		l.logger.Warn("ignoring unknown constraint", slog.String("section", section), slog.String("key", key))
	}
}

func selectProfileName(spec *domain.ParsedSpec, functionName string) string {
	if functionName != "" {
		if fn := spec.FindFunction(functionName); fn != nil && fn.ConstraintProfile != "" {
			return fn.ConstraintProfile
		}
	}
	if spec.ConstraintProfile == "" {
		return constants.DefaultProfileName
	}
	return spec.ConstraintProfile
}

// readYAMLMap reads a YAML document whose root must be a non-empty mapping
func readYAMLMap(path, kind string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewFileNotFoundError(path, err)
		}
		return nil, domain.NewInvalidInputError(fmt.Sprintf("failed to read %s file %s", kind, path), err)
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("invalid YAML in %s", path), err)
	}
	if raw == nil {
		return nil, domain.NewInvalidInputError(kind+" file is empty", nil)
	}
	root, err := asMap(raw, kind)
	if err != nil {
		return nil, err
	}
	if len(root) == 0 {
		return nil, domain.NewInvalidInputError(kind+" file is empty", nil)
	}
	return root, nil
}

// asMap converts a decoded YAML mapping to map[string]any. nil stays nil.
func asMap(value any, path string) (map[string]any, error) {
	switch m := value.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return m, nil
	case map[any]any:
		converted := make(map[string]any, len(m))
		for k, v := range m {
			converted[fmt.Sprint(k)] = v
		}
		return converted, nil
	}
	return nil, domain.NewConfigError(fmt.Sprintf("%s must be a mapping, got %T", path, value), nil)
}

// asStrings converts a decoded YAML sequence of scalars to strings. nil
// gives an empty slice.
func asStrings(value any, path string) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return []string{}, nil
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			result = append(result, fmt.Sprint(item))
		}
		return result, nil
	case []string:
		return append([]string{}, v...), nil
	}
	return nil, domain.NewConfigError(fmt.Sprintf("%s must be a list, got %T", path, value), nil)
}

// sortedKeys returns the keys of m in order
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
