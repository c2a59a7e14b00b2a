package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/gilad12-coder/agentic-tdd/domain"
	"github.com/gilad12-coder/agentic-tdd/internal/analyzer"
	"github.com/gilad12-coder/agentic-tdd/internal/parser"
	"github.com/gilad12-coder/agentic-tdd/internal/version"
)

// MetricsServiceImpl implements domain.MetricsService
type MetricsServiceImpl struct {
	progress domain.ProgressManager
}

// NewMetricsService creates a metrics service
func NewMetricsService() *MetricsServiceImpl {
	return &MetricsServiceImpl{}
}

// NewMetricsServiceWithProgress creates a metrics service with progress reporting
func NewMetricsServiceWithProgress(pm domain.ProgressManager) *MetricsServiceImpl {
	return &MetricsServiceImpl{progress: pm}
}

// Analyze measures every function of every file. Unreadable or unparseable
// files are reported in Errors and skipped.
func (s *MetricsServiceImpl) Analyze(ctx context.Context, req domain.MetricsRequest) (*domain.MetricsResponse, error) {
	var functions []domain.FunctionMetrics
	var errors []string
	filesProcessed := 0

	var task domain.TaskProgress = &NoOpTaskProgress{}
	if s.progress != nil {
		task = s.progress.StartTask("Measuring functions", len(req.Paths))
	}
	defer task.Complete()

	for _, filePath := range req.Paths {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("metrics analysis cancelled: %w", err)
		}

		fileFunctions, err := s.analyzeFile(ctx, filePath)
		task.Increment(1)
		if err != nil {
			errors = append(errors, fmt.Sprintf("[%s] %v", filePath, err))
			continue
		}
		functions = append(functions, fileFunctions...)
		filesProcessed++
	}

	if filesProcessed == 0 && len(errors) > 0 {
		return nil, domain.NewAnalysisError("no file could be analyzed", nil)
	}

	sorted := sortFunctionMetrics(functions, req.SortBy)
	return &domain.MetricsResponse{
		Functions:   sorted,
		Summary:     summarizeMetrics(sorted, filesProcessed),
		Errors:      errors,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Version:     version.Version,
	}, nil
}

func (s *MetricsServiceImpl) analyzeFile(ctx context.Context, filePath string) ([]domain.FunctionMetrics, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	tree, err := parser.ParseSource(ctx, filePath, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}
	return MeasureFunctions(filePath, tree), nil
}

// MeasureFunctions measures each def of a parsed module in source order
func MeasureFunctions(filePath string, tree *parser.Node) []domain.FunctionMetrics {
	defs := analyzer.Functions(tree)
	measured := make([]domain.FunctionMetrics, 0, len(defs))
	for _, fn := range defs {
		measured = append(measured, domain.FunctionMetrics{
			Name:           fn.Name,
			FilePath:       filePath,
			StartLine:      fn.Location.StartLine,
			EndLine:        fn.Location.EndLine,
			Cyclomatic:     analyzer.CalculateComplexity(fn).Complexity,
			Cognitive:      analyzer.CognitiveComplexity(fn),
			Lines:          analyzer.FunctionLines(fn),
			Parameters:     len(fn.ExplicitParams()),
			Returns:        analyzer.ReturnStatements(fn),
			Locals:         len(analyzer.LocalVariables(fn)),
			NestingDepth:   analyzer.NestingDepth(fn),
			TimeComplexity: analyzer.TimeComplexityLabel(analyzer.LoopDepth(fn)),
		})
	}
	return measured
}

// sortFunctionMetrics orders functions by the given criteria; ties keep
// source order
func sortFunctionMetrics(functions []domain.FunctionMetrics, sortBy domain.SortCriteria) []domain.FunctionMetrics {
	sorted := make([]domain.FunctionMetrics, len(functions))
	copy(sorted, functions)

	var less func(a, b domain.FunctionMetrics) bool
	switch sortBy {
	case domain.SortByName:
		less = func(a, b domain.FunctionMetrics) bool { return a.Name < b.Name }
	case domain.SortByCognitive:
		less = func(a, b domain.FunctionMetrics) bool { return a.Cognitive > b.Cognitive }
	case domain.SortByLines:
		less = func(a, b domain.FunctionMetrics) bool { return a.Lines > b.Lines }
	case domain.SortByLocation:
		less = func(a, b domain.FunctionMetrics) bool {
			if a.FilePath != b.FilePath {
				return a.FilePath < b.FilePath
			}
			return a.StartLine < b.StartLine
		}
	default:
		less = func(a, b domain.FunctionMetrics) bool { return a.Cyclomatic > b.Cyclomatic }
	}
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	return sorted
}

func summarizeMetrics(functions []domain.FunctionMetrics, filesProcessed int) domain.MetricsSummary {
	summary := domain.MetricsSummary{
		FilesAnalyzed:  filesProcessed,
		TotalFunctions: len(functions),
	}
	if len(functions) == 0 {
		return summary
	}

	total := 0
	for _, fn := range functions {
		total += fn.Cyclomatic
		summary.MaxComplexity = max(summary.MaxComplexity, fn.Cyclomatic)
		summary.MaxCognitive = max(summary.MaxCognitive, fn.Cognitive)
	}
	summary.AverageComplexity = float64(total) / float64(len(functions))
	return summary
}
