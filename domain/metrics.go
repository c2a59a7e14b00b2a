package domain

import (
	"context"
	"io"
)

// SortCriteria orders a function metrics report
type SortCriteria string

const (
	SortByComplexity SortCriteria = "complexity"
	SortByCognitive  SortCriteria = "cognitive"
	SortByLines      SortCriteria = "lines"
	SortByName       SortCriteria = "name"
	SortByLocation   SortCriteria = "location"
)

// FunctionMetrics holds the per-function measurements behind the max_*
// constraints, so a failing file can be traced to the function responsible
type FunctionMetrics struct {
	Name           string `json:"name" yaml:"name"`
	FilePath       string `json:"file_path" yaml:"file_path"`
	StartLine      int    `json:"start_line" yaml:"start_line"`
	EndLine        int    `json:"end_line" yaml:"end_line"`
	Cyclomatic     int    `json:"cyclomatic_complexity" yaml:"cyclomatic_complexity"`
	Cognitive      int    `json:"cognitive_complexity" yaml:"cognitive_complexity"`
	Lines          int    `json:"lines" yaml:"lines"`
	Parameters     int    `json:"parameters" yaml:"parameters"`
	Returns        int    `json:"return_statements" yaml:"return_statements"`
	Locals         int    `json:"local_variables" yaml:"local_variables"`
	NestingDepth   int    `json:"nesting_depth" yaml:"nesting_depth"`
	TimeComplexity string `json:"time_complexity" yaml:"time_complexity"`
}

// MetricsSummary aggregates a metrics report
type MetricsSummary struct {
	FilesAnalyzed     int     `json:"files_analyzed" yaml:"files_analyzed"`
	TotalFunctions    int     `json:"total_functions" yaml:"total_functions"`
	AverageComplexity float64 `json:"average_complexity" yaml:"average_complexity"`
	MaxComplexity     int     `json:"max_complexity" yaml:"max_complexity"`
	MaxCognitive      int     `json:"max_cognitive_complexity" yaml:"max_cognitive_complexity"`
}

// MetricsRequest asks for per-function metrics of the given files
type MetricsRequest struct {
	Paths        []string
	SortBy       SortCriteria
	OutputFormat OutputFormat
	OutputWriter io.Writer
}

// MetricsResponse is a per-function metrics report
type MetricsResponse struct {
	Functions   []FunctionMetrics `json:"functions" yaml:"functions"`
	Summary     MetricsSummary    `json:"summary" yaml:"summary"`
	Errors      []string          `json:"errors,omitempty" yaml:"errors,omitempty"`
	GeneratedAt string            `json:"generated_at" yaml:"generated_at"`
	Version     string            `json:"version" yaml:"version"`
}

// MetricsService measures the functions of Python files
type MetricsService interface {
	Analyze(ctx context.Context, req MetricsRequest) (*MetricsResponse, error)
}
