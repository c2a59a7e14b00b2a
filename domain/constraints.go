package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// ConstraintSet is a set of optional code quality constraints.
// A nil field means "do not check". Boolean toggles only run when set to true.
type ConstraintSet struct {
	// Structural thresholds
	MaxCyclomaticComplexity *int    `json:"max_cyclomatic_complexity,omitempty" yaml:"max_cyclomatic_complexity,omitempty" mapstructure:"max_cyclomatic_complexity" validate:"omitempty,min=1"`
	MaxLinesPerFunction     *int    `json:"max_lines_per_function,omitempty" yaml:"max_lines_per_function,omitempty" mapstructure:"max_lines_per_function" validate:"omitempty,min=1"`
	MaxTotalLines           *int    `json:"max_total_lines,omitempty" yaml:"max_total_lines,omitempty" mapstructure:"max_total_lines" validate:"omitempty,min=1"`
	MaxTimeComplexity       *string `json:"max_time_complexity,omitempty" yaml:"max_time_complexity,omitempty" mapstructure:"max_time_complexity"`
	MaxParameters           *int    `json:"max_parameters,omitempty" yaml:"max_parameters,omitempty" mapstructure:"max_parameters" validate:"omitempty,min=0"`
	MaxNestedDepth          *int    `json:"max_nested_depth,omitempty" yaml:"max_nested_depth,omitempty" mapstructure:"max_nested_depth" validate:"omitempty,min=1"`
	MaxReturnStatements     *int    `json:"max_return_statements,omitempty" yaml:"max_return_statements,omitempty" mapstructure:"max_return_statements" validate:"omitempty,min=1"`
	RequireDocstrings       *bool   `json:"require_docstrings,omitempty" yaml:"require_docstrings,omitempty" mapstructure:"require_docstrings"`
	NoPrintStatements       *bool   `json:"no_print_statements,omitempty" yaml:"no_print_statements,omitempty" mapstructure:"no_print_statements"`
	NoStarImports           *bool   `json:"no_star_imports,omitempty" yaml:"no_star_imports,omitempty" mapstructure:"no_star_imports"`
	NoMutableDefaults       *bool   `json:"no_mutable_defaults,omitempty" yaml:"no_mutable_defaults,omitempty" mapstructure:"no_mutable_defaults"`
	NoGlobalState           *bool   `json:"no_global_state,omitempty" yaml:"no_global_state,omitempty" mapstructure:"no_global_state"`

	// AllowedImports is checked whenever it is non-nil, even when empty
	AllowedImports []string `json:"allowed_imports,omitempty" yaml:"allowed_imports,omitempty" mapstructure:"allowed_imports"`

	// Correctness
	NoBareExcept                *bool `json:"no_bare_except,omitempty" yaml:"no_bare_except,omitempty" mapstructure:"no_bare_except"`
	NoTryExceptPass             *bool `json:"no_try_except_pass,omitempty" yaml:"no_try_except_pass,omitempty" mapstructure:"no_try_except_pass"`
	NoReturnInFinally           *bool `json:"no_return_in_finally,omitempty" yaml:"no_return_in_finally,omitempty" mapstructure:"no_return_in_finally"`
	NoUnreachableCode           *bool `json:"no_unreachable_code,omitempty" yaml:"no_unreachable_code,omitempty" mapstructure:"no_unreachable_code"`
	NoDuplicateDictKeys         *bool `json:"no_duplicate_dict_keys,omitempty" yaml:"no_duplicate_dict_keys,omitempty" mapstructure:"no_duplicate_dict_keys"`
	NoLoopVariableClosure       *bool `json:"no_loop_variable_closure,omitempty" yaml:"no_loop_variable_closure,omitempty" mapstructure:"no_loop_variable_closure"`
	NoMutableCallInDefaults     *bool `json:"no_mutable_call_in_defaults,omitempty" yaml:"no_mutable_call_in_defaults,omitempty" mapstructure:"no_mutable_call_in_defaults"`
	NoShadowingBuiltins         *bool `json:"no_shadowing_builtins,omitempty" yaml:"no_shadowing_builtins,omitempty" mapstructure:"no_shadowing_builtins"`
	NoOpenWithoutContextManager *bool `json:"no_open_without_context_manager,omitempty" yaml:"no_open_without_context_manager,omitempty" mapstructure:"no_open_without_context_manager"`

	// Security
	NoEval                   *bool `json:"no_eval,omitempty" yaml:"no_eval,omitempty" mapstructure:"no_eval"`
	NoExec                   *bool `json:"no_exec,omitempty" yaml:"no_exec,omitempty" mapstructure:"no_exec"`
	NoUnsafeDeserialization  *bool `json:"no_unsafe_deserialization,omitempty" yaml:"no_unsafe_deserialization,omitempty" mapstructure:"no_unsafe_deserialization"`
	NoUnsafeYAML             *bool `json:"no_unsafe_yaml,omitempty" yaml:"no_unsafe_yaml,omitempty" mapstructure:"no_unsafe_yaml"`
	NoShellTrue              *bool `json:"no_shell_true,omitempty" yaml:"no_shell_true,omitempty" mapstructure:"no_shell_true"`
	NoHardcodedSecrets       *bool `json:"no_hardcoded_secrets,omitempty" yaml:"no_hardcoded_secrets,omitempty" mapstructure:"no_hardcoded_secrets"`
	NoRequestsWithoutTimeout *bool `json:"no_requests_without_timeout,omitempty" yaml:"no_requests_without_timeout,omitempty" mapstructure:"no_requests_without_timeout"`

	// Maintainability
	MaxCognitiveComplexity *int  `json:"max_cognitive_complexity,omitempty" yaml:"max_cognitive_complexity,omitempty" mapstructure:"max_cognitive_complexity" validate:"omitempty,min=1"`
	MaxLocalVariables      *int  `json:"max_local_variables,omitempty" yaml:"max_local_variables,omitempty" mapstructure:"max_local_variables" validate:"omitempty,min=1"`
	NoDebuggerStatements   *bool `json:"no_debugger_statements,omitempty" yaml:"no_debugger_statements,omitempty" mapstructure:"no_debugger_statements"`
	NoNestedImports        *bool `json:"no_nested_imports,omitempty" yaml:"no_nested_imports,omitempty" mapstructure:"no_nested_imports"`
	RequireTypeAnnotations *bool `json:"require_type_annotations,omitempty" yaml:"require_type_annotations,omitempty" mapstructure:"require_type_annotations"`
}

// constraintValidate checks ConstraintSet floors and required spec fields
var constraintValidate *validator.Validate

func init() {
	constraintValidate = validator.New()
	constraintValidate.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"mapstructure", "yaml"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})
}

// Validate enforces the floors of the integer thresholds
func (cs ConstraintSet) Validate() error {
	err := constraintValidate.Struct(cs)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return NewConfigError("invalid constraint set", err)
	}

	messages := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		messages = append(messages, fmt.Sprintf("%s must be >= %s (got %v)", fe.Field(), fe.Param(), fe.Value()))
	}
	return NewConfigError("invalid constraint set: "+strings.Join(messages, "; "), nil)
}

// IsEmpty reports whether no checker would run for this set
func (cs ConstraintSet) IsEmpty() bool {
	v := reflect.ValueOf(cs)
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		switch field.Kind() {
		case reflect.Ptr:
			if field.IsNil() {
				continue
			}
			if b, ok := field.Interface().(*bool); ok && !*b {
				continue
			}
			return false
		case reflect.Slice:
			if !field.IsNil() {
				return false
			}
		}
	}
	return true
}

// ToMap returns the set fields keyed by their YAML names. Nil fields are
// omitted; an empty but non-nil AllowedImports is kept.
func (cs ConstraintSet) ToMap() map[string]any {
	result := make(map[string]any)
	v := reflect.ValueOf(cs)
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if field.IsNil() {
			continue
		}
		key := t.Field(i).Tag.Get("mapstructure")
		switch field.Kind() {
		case reflect.Ptr:
			result[key] = field.Elem().Interface()
		case reflect.Slice:
			result[key] = append([]string{}, field.Interface().([]string)...)
		}
	}
	return result
}

// DecodeConstraintSet builds a ConstraintSet from a raw map such as one
// decoded from YAML. Unknown keys are ignored and returned so callers can
// warn about them.
func DecodeConstraintSet(raw map[string]any) (ConstraintSet, []string, error) {
	var cs ConstraintSet
	var metadata mapstructure.Metadata

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cs,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		Metadata:         &metadata,
	})
	if err != nil {
		return ConstraintSet{}, nil, NewConfigError("failed to create decoder", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return ConstraintSet{}, nil, NewConfigError("invalid constraint set", err)
	}
	if err := cs.Validate(); err != nil {
		return ConstraintSet{}, nil, err
	}

	sort.Strings(metadata.Unused)
	return cs, metadata.Unused, nil
}

// ApplyOverrides merges a flat override map onto the set. Keys in the
// override replace the base value; an explicit nil clears the field.
func (cs ConstraintSet) ApplyOverrides(overrides map[string]any) (ConstraintSet, []string, error) {
	merged := cs.ToMap()
	for key, value := range overrides {
		if value == nil {
			delete(merged, key)
			continue
		}
		merged[key] = value
	}
	return DecodeConstraintSet(merged)
}

// Fingerprint returns a stable digest of the set, used as a cache key
func (cs ConstraintSet) Fingerprint() string {
	// json.Marshal sorts map keys
	data, err := json.Marshal(cs.ToMap())
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Int returns a pointer to v, for building constraint sets in code
func Int(v int) *int { return &v }

// Bool returns a pointer to v
func Bool(v bool) *bool { return &v }

// String returns a pointer to v
func String(v string) *string { return &v }
