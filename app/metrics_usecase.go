package app

import (
	"context"
	"fmt"

	"github.com/gilad12-coder/agentic-tdd/domain"
	"github.com/gilad12-coder/agentic-tdd/service"
)

// MetricsUseCase orchestrates the per-function metrics workflow
type MetricsUseCase struct {
	service    domain.MetricsService
	fileHelper *FileHelper
	formatter  *service.OutputFormatterImpl
}

// NewMetricsUseCase creates a new metrics use case
func NewMetricsUseCase(svc domain.MetricsService) *MetricsUseCase {
	return &MetricsUseCase{
		service:    svc,
		fileHelper: NewFileHelper(),
		formatter:  service.NewOutputFormatter(),
	}
}

// WithFileHelper replaces the file helper used to collect files
func (uc *MetricsUseCase) WithFileHelper(fh *FileHelper) *MetricsUseCase {
	uc.fileHelper = fh
	return uc
}

// Execute collects Python files under the request paths, measures them and
// writes the report when an output writer is set
func (uc *MetricsUseCase) Execute(ctx context.Context, req domain.MetricsRequest, recursive bool, includePatterns, excludePatterns []string) (*domain.MetricsResponse, error) {
	if err := validateMetricsRequest(req); err != nil {
		return nil, domain.NewInvalidInputError("invalid request", err)
	}

	files, err := ResolveFilePaths(uc.fileHelper, req.Paths, recursive, includePatterns, excludePatterns)
	if err != nil {
		return nil, domain.NewFileNotFoundError("failed to collect files", err)
	}
	if len(files) == 0 {
		return nil, domain.NewInvalidInputError("no Python files found in the specified paths", nil)
	}
	req.Paths = files

	response, err := uc.service.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	if req.OutputWriter != nil {
		if err := uc.formatter.WriteMetrics(response, req.OutputFormat, req.OutputWriter); err != nil {
			return response, err
		}
	}
	return response, nil
}

func validateMetricsRequest(req domain.MetricsRequest) error {
	if len(req.Paths) == 0 {
		return fmt.Errorf("no input paths specified")
	}
	switch req.SortBy {
	case "", domain.SortByComplexity, domain.SortByCognitive, domain.SortByLines,
		domain.SortByName, domain.SortByLocation:
		return nil
	}
	return fmt.Errorf("unknown sort criteria %q", req.SortBy)
}
