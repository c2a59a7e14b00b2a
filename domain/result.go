package domain

// Metrics maps a metric key to its value: an int, a string, []int or []string
type Metrics map[string]any

// ConstraintResult is the outcome of checking one constraint set
type ConstraintResult struct {
	Passed     bool     `json:"passed" yaml:"passed"`
	Violations []string `json:"violations" yaml:"violations"`
	Metrics    Metrics  `json:"metrics" yaml:"metrics"`
}

// NewConstraintResult builds a result whose Passed flag is derived from the
// violations, so the two can never disagree
func NewConstraintResult(violations []string, metrics Metrics) *ConstraintResult {
	if violations == nil {
		violations = []string{}
	}
	if metrics == nil {
		metrics = Metrics{}
	}
	return &ConstraintResult{
		Passed:     len(violations) == 0,
		Violations: violations,
		Metrics:    metrics,
	}
}

// TaskConstraints pairs the primary and secondary gates of a task
type TaskConstraints struct {
	Primary     ConstraintSet `json:"primary" yaml:"primary"`
	Secondary   ConstraintSet `json:"secondary" yaml:"secondary"`
	TargetFiles []string      `json:"target_files" yaml:"target_files"`
	Guidance    []string      `json:"guidance" yaml:"guidance"`
}
