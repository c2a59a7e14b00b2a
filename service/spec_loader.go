package service

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/gilad12-coder/agentic-tdd/domain"
	"github.com/gilad12-coder/agentic-tdd/internal/constants"
)

// SpecLoaderImpl implements domain.SpecLoader on YAML spec files
type SpecLoaderImpl struct {
	defaultProfile string
}

// NewSpecLoader creates a spec loader
func NewSpecLoader() *SpecLoaderImpl {
	return &SpecLoaderImpl{defaultProfile: constants.DefaultProfileName}
}

// WithDefaultProfile sets the profile used by specs that name none
func (l *SpecLoaderImpl) WithDefaultProfile(name string) *SpecLoaderImpl {
	if name != "" {
		l.defaultProfile = name
	}
	return l
}

// LoadSpec reads and validates a task spec. A missing constraint_profile
// falls back to the default profile.
func (l *SpecLoaderImpl) LoadSpec(path string) (*domain.ParsedSpec, error) {
	raw, err := readYAMLMap(path, "spec")
	if err != nil {
		return nil, err
	}

	// Round-trip through YAML so the struct tags drive decoding
	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("invalid spec %s", path), err)
	}
	var spec domain.ParsedSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("invalid spec %s", path), err)
	}

	if spec.ConstraintProfile == "" {
		spec.ConstraintProfile = l.defaultProfile
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}
