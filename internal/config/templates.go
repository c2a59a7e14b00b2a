package config

import (
	"sort"
	"strconv"
	"strings"
)

// Strictness represents the threshold level written by `init`
type Strictness string

const (
	StrictnessRelaxed  Strictness = "relaxed"
	StrictnessStandard Strictness = "standard"
	StrictnessStrict   Strictness = "strict"
)

// StrictnessPreset holds the primary-gate thresholds for a strictness level
type StrictnessPreset struct {
	MaxCyclomaticComplexity int
	MaxCognitiveComplexity  int
	MaxLinesPerFunction     int
	MaxParameters           int
	MaxNestedDepth          int
	MaxReturnStatements     int
	MaxLocalVariables       int
	MaxTimeComplexity       string
}

// GetStrictnessPresets returns presets for different strictness levels
func GetStrictnessPresets() map[Strictness]StrictnessPreset {
	return map[Strictness]StrictnessPreset{
		StrictnessRelaxed: {
			MaxCyclomaticComplexity: 15,
			MaxCognitiveComplexity:  25,
			MaxLinesPerFunction:     80,
			MaxParameters:           8,
			MaxNestedDepth:          5,
			MaxReturnStatements:     6,
			MaxLocalVariables:       20,
			MaxTimeComplexity:       "O(n^3)",
		},
		StrictnessStandard: {
			MaxCyclomaticComplexity: 10,
			MaxCognitiveComplexity:  15,
			MaxLinesPerFunction:     50,
			MaxParameters:           5,
			MaxNestedDepth:          4,
			MaxReturnStatements:     4,
			MaxLocalVariables:       15,
			MaxTimeComplexity:       "O(n^2)",
		},
		StrictnessStrict: {
			MaxCyclomaticComplexity: 6,
			MaxCognitiveComplexity:  8,
			MaxLinesPerFunction:     30,
			MaxParameters:           4,
			MaxNestedDepth:          3,
			MaxReturnStatements:     3,
			MaxLocalVariables:       10,
			MaxTimeComplexity:       "O(n)",
		},
	}
}

// StrictnessNames lists the known strictness levels in order
func StrictnessNames() []string {
	names := make([]string, 0, 3)
	for s := range GetStrictnessPresets() {
		names = append(names, string(s))
	}
	sort.Slice(names, func(i, j int) bool {
		return strictnessOrder(Strictness(names[i])) < strictnessOrder(Strictness(names[j]))
	})
	return names
}

func strictnessOrder(s Strictness) int {
	switch s {
	case StrictnessRelaxed:
		return 0
	case StrictnessStandard:
		return 1
	default:
		return 2
	}
}

// GetProfilesTemplate returns a documented constraint_profiles.yaml. The
// `default` profile uses the preset; `security` and `library` are fixed.
func GetProfilesTemplate(strictness Strictness) string {
	preset, ok := GetStrictnessPresets()[strictness]
	if !ok {
		preset = GetStrictnessPresets()[StrictnessStandard]
	}

	return `# tddgate constraint profiles (` + string(strictness) + `)
#
# Each profile has two gates. The primary gate must pass before the
# secondary gate is evaluated. Any key may be omitted; omitted keys are
# not checked.

profiles:
  default:
    primary:
      max_cyclomatic_complexity: ` + strconv.Itoa(preset.MaxCyclomaticComplexity) + `
      max_cognitive_complexity: ` + strconv.Itoa(preset.MaxCognitiveComplexity) + `
      max_lines_per_function: ` + strconv.Itoa(preset.MaxLinesPerFunction) + `
      max_parameters: ` + strconv.Itoa(preset.MaxParameters) + `
      max_nested_depth: ` + strconv.Itoa(preset.MaxNestedDepth) + `
      max_time_complexity: "` + preset.MaxTimeComplexity + `"
      no_bare_except: true
      no_mutable_defaults: true
      no_eval: true
      no_exec: true
    secondary:
      max_return_statements: ` + strconv.Itoa(preset.MaxReturnStatements) + `
      max_local_variables: ` + strconv.Itoa(preset.MaxLocalVariables) + `
      require_docstrings: true
      no_print_statements: true
      no_debugger_statements: true
      no_try_except_pass: true
    guidance:
      - Keep functions small and single-purpose.
      - Prefer early returns over deep nesting.

  security:
    primary:
      no_eval: true
      no_exec: true
      no_unsafe_deserialization: true
      no_unsafe_yaml: true
      no_shell_true: true
      no_hardcoded_secrets: true
      no_requests_without_timeout: true
    secondary:
      no_bare_except: true
      no_open_without_context_manager: true
    guidance:
      - Never pass untrusted input to eval, exec or a shell.

  library:
    primary:
      require_type_annotations: true
      require_docstrings: true
      no_star_imports: true
      no_global_state: true
    secondary:
      no_nested_imports: true
      no_shadowing_builtins: true
      no_loop_variable_closure: true
      no_mutable_call_in_defaults: true

# Per-function overrides, keyed by function name. Fields are merged into the
# resolved profile; a guidance list replaces the profile guidance.
functions: {}
`
}

// FormatStrictnessHelp renders the strictness levels for flag help text
func FormatStrictnessHelp() string {
	return strings.Join(StrictnessNames(), ", ")
}
