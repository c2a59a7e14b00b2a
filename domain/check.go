package domain

import (
	"context"
	"io"
)

// OutputFormat represents the supported output formats
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// CheckRequest represents a request to check Python files against a task's constraints
type CheckRequest struct {
	// Input files or directories; when empty the resolved target files are used
	Paths []string

	// Constraint sources: either a spec plus a profile table, or a
	// standalone constraints file
	SpecPath        string
	ProfilesPath    string
	ConstraintsPath string
	FunctionName    string

	// File collection
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Configuration
	ConfigPath string

	// Output configuration
	OutputFormat OutputFormat
	OutputWriter io.Writer
	ShowDetails  bool
}

// FileCheckResult holds the outcome of both gates for one file
type FileCheckResult struct {
	FilePath  string            `json:"file_path" yaml:"file_path"`
	Passed    bool              `json:"passed" yaml:"passed"`
	Primary   *ConstraintResult `json:"primary,omitempty" yaml:"primary,omitempty"`
	Secondary *ConstraintResult `json:"secondary,omitempty" yaml:"secondary,omitempty"`
	Error     string            `json:"error,omitempty" yaml:"error,omitempty"`
	Cached    bool              `json:"cached,omitempty" yaml:"cached,omitempty"`
}

// CheckSummary provides aggregate statistics
type CheckSummary struct {
	FilesChecked    int `json:"files_checked" yaml:"files_checked"`
	FilesPassed     int `json:"files_passed" yaml:"files_passed"`
	FilesFailed     int `json:"files_failed" yaml:"files_failed"`
	FilesErrored    int `json:"files_errored" yaml:"files_errored"`
	TotalViolations int `json:"total_violations" yaml:"total_violations"`
}

// CheckReport represents the result of a check run
type CheckReport struct {
	RunID       string            `json:"run_id" yaml:"run_id"`
	Passed      bool              `json:"passed" yaml:"passed"`
	ExitCode    int               `json:"exit_code" yaml:"exit_code"`
	Profile     string            `json:"profile,omitempty" yaml:"profile,omitempty"`
	Function    string            `json:"function,omitempty" yaml:"function,omitempty"`
	Files       []FileCheckResult `json:"files" yaml:"files"`
	Guidance    []string          `json:"guidance,omitempty" yaml:"guidance,omitempty"`
	Summary     CheckSummary      `json:"summary" yaml:"summary"`
	Duration    int64             `json:"duration_ms" yaml:"duration_ms"`
	GeneratedAt string            `json:"generated_at" yaml:"generated_at"`
	Version     string            `json:"version" yaml:"version"`
}

// ConstraintService evaluates Python source against constraint sets
type ConstraintService interface {
	// Evaluate checks source against a single constraint set
	Evaluate(ctx context.Context, source []byte, cs ConstraintSet) (*ConstraintResult, error)

	// Check runs the primary gate and, only when it passes, the secondary gate
	Check(ctx context.Context, source []byte, tc TaskConstraints) (primary, secondary *ConstraintResult, err error)
}

// ProfileLoader loads profile tables and resolves them into task constraints
type ProfileLoader interface {
	LoadProfiles(path string) (*ProfileTable, error)
	ResolveConstraints(spec *ParsedSpec, table *ProfileTable, functionName string) (*TaskConstraints, error)
	LoadTaskConstraints(path string) (*TaskConstraints, error)
}

// SpecLoader loads task specifications
type SpecLoader interface {
	LoadSpec(path string) (*ParsedSpec, error)
}

// FileReader defines Python-specific file operations
type FileReader interface {
	CollectPythonFiles(paths []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error)
	ReadFile(path string) ([]byte, error)
	FileExists(path string) (bool, error)
}

// ReportFormatter writes a check report in the requested format
type ReportFormatter interface {
	Format(report *CheckReport, format OutputFormat) (string, error)
	Write(report *CheckReport, format OutputFormat, writer io.Writer) error
}
