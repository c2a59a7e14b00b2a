package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FunctionSpec describes one function of a multi-function task
type FunctionSpec struct {
	Name              string           `json:"name" yaml:"name" validate:"required"`
	Description       string           `json:"description" yaml:"description"`
	Signature         string           `json:"signature,omitempty" yaml:"signature,omitempty"`
	Examples          []map[string]any `json:"examples,omitempty" yaml:"examples,omitempty"`
	ConstraintProfile string           `json:"constraint_profile,omitempty" yaml:"constraint_profile,omitempty"`
}

// ParsedSpec is a task specification loaded from YAML
type ParsedSpec struct {
	Name              string           `json:"name" yaml:"name" validate:"required"`
	Description       string           `json:"description" yaml:"description"`
	Examples          []map[string]any `json:"examples,omitempty" yaml:"examples,omitempty"`
	Signature         string           `json:"signature,omitempty" yaml:"signature,omitempty"`
	ConstraintProfile string           `json:"constraint_profile" yaml:"constraint_profile"`
	TargetFiles       []string         `json:"target_files,omitempty" yaml:"target_files,omitempty"`
	Functions         []FunctionSpec   `json:"functions,omitempty" yaml:"functions,omitempty" validate:"dive"`
}

// FindFunction returns the function spec with the given name, or nil
func (s *ParsedSpec) FindFunction(name string) *FunctionSpec {
	for i := range s.Functions {
		if s.Functions[i].Name == name {
			return &s.Functions[i]
		}
	}
	return nil
}

// Validate checks the required fields of the spec and its functions
func (s *ParsedSpec) Validate() error {
	err := constraintValidate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return NewInvalidInputError("invalid spec", err)
	}
	messages := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		messages = append(messages, fmt.Sprintf("%s is %s", fe.Namespace(), fe.Tag()))
	}
	return NewValidationError("invalid spec: " + strings.Join(messages, "; "))
}

// Profile is a named pair of constraint sets with guidance for the author
type Profile struct {
	Primary   ConstraintSet `json:"primary" yaml:"primary"`
	Secondary ConstraintSet `json:"secondary" yaml:"secondary"`
	Guidance  []string      `json:"guidance,omitempty" yaml:"guidance,omitempty"`
}

// FunctionOverride holds raw per-function override maps. They stay untyped
// so an explicit null can clear a field of the base profile.
type FunctionOverride struct {
	Primary     map[string]any `json:"primary,omitempty" yaml:"primary,omitempty"`
	Secondary   map[string]any `json:"secondary,omitempty" yaml:"secondary,omitempty"`
	Guidance    []string       `json:"guidance,omitempty" yaml:"guidance,omitempty"`
	HasGuidance bool           `json:"-" yaml:"-"`
}

// IsEmpty reports whether the override changes nothing
func (o FunctionOverride) IsEmpty() bool {
	return len(o.Primary) == 0 && len(o.Secondary) == 0 && !o.HasGuidance
}

// ProfileTable is a loaded profiles file
type ProfileTable struct {
	Profiles  map[string]Profile          `json:"profiles" yaml:"profiles"`
	Functions map[string]FunctionOverride `json:"functions,omitempty" yaml:"functions,omitempty"`
}

// Names returns the profile names in the table, sorted
func (t *ProfileTable) Names() []string {
	names := make([]string, 0, len(t.Profiles))
	for name := range t.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
