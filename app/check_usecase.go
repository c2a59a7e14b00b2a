package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gilad12-coder/agentic-tdd/domain"
	"github.com/gilad12-coder/agentic-tdd/internal/config"
	"github.com/gilad12-coder/agentic-tdd/internal/constants"
	"github.com/gilad12-coder/agentic-tdd/internal/version"
	"github.com/gilad12-coder/agentic-tdd/service"
)

// ConfigLoader loads the tool configuration and applies it to a request
type ConfigLoader interface {
	LoadConfig(path, target string) (*config.Config, error)
	MergeRequest(cfg *config.Config, req domain.CheckRequest) domain.CheckRequest
}

// CheckUseCase orchestrates checking Python files against a task's two gates
type CheckUseCase struct {
	constraints  domain.ConstraintService
	profiles     domain.ProfileLoader
	specs        domain.SpecLoader
	configLoader ConfigLoader
	fileReader   domain.FileReader
	formatter    domain.ReportFormatter
	executor     domain.ParallelExecutor
	cache        *service.ResultCache
	logger       *slog.Logger
}

// resolvedTask is the constraint source of a check run
type resolvedTask struct {
	constraints *domain.TaskConstraints
	profile     string
	baseDir     string
}

// Execute runs the check workflow and writes the report when the request
// carries an output writer. The report is returned even when files fail.
func (uc *CheckUseCase) Execute(ctx context.Context, req domain.CheckRequest) (*domain.CheckReport, error) {
	startTime := time.Now()

	req, err := uc.prepareRequest(req)
	if err != nil {
		return nil, err
	}

	task, err := uc.resolveConstraints(req)
	if err != nil {
		return nil, err
	}

	files, err := uc.collectFiles(req, task)
	if err != nil {
		return nil, err
	}
	uc.logger.Debug("collected files", "count", len(files), "profile", task.profile)

	results := make([]domain.FileCheckResult, len(files))
	tasks := make([]domain.ExecutableTask, len(files))
	for i, file := range files {
		tasks[i] = &fileCheckTask{
			path:        file,
			constraints: *task.constraints,
			result:      &results[i],
			uc:          uc,
		}
	}

	if err := uc.executor.Execute(ctx, tasks); err != nil {
		// Per-file failures are recorded on the results; only a cancelled or
		// timed out run aborts the report.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("check run aborted: %w", err)
		}
		uc.logger.Warn("some files could not be checked", "error", err)
	}

	report := buildReport(results, task, req.FunctionName)
	report.Duration = time.Since(startTime).Milliseconds()

	if req.OutputWriter != nil {
		formatter := uc.formatter
		if formatter == nil {
			formatter = service.NewOutputFormatter().WithDetails(req.ShowDetails)
		}
		if err := formatter.Write(report, req.OutputFormat, req.OutputWriter); err != nil {
			return report, err
		}
	}
	return report, nil
}

// prepareRequest merges the discovered configuration into the request
func (uc *CheckUseCase) prepareRequest(req domain.CheckRequest) (domain.CheckRequest, error) {
	if req.ConstraintsPath == "" && req.SpecPath == "" {
		return req, domain.NewInvalidInputError("either a spec or a constraints file is required", nil)
	}
	if req.ConstraintsPath != "" && req.SpecPath != "" {
		return req, domain.NewInvalidInputError("a spec and a constraints file cannot be combined", nil)
	}
	if uc.configLoader == nil {
		return req, nil
	}

	target := ""
	if len(req.Paths) > 0 {
		target = req.Paths[0]
	} else if req.SpecPath != "" {
		target = filepath.Dir(req.SpecPath)
	}

	cfg, err := uc.configLoader.LoadConfig(req.ConfigPath, target)
	if err != nil {
		return req, err
	}
	return uc.configLoader.MergeRequest(cfg, req), nil
}

func (uc *CheckUseCase) resolveConstraints(req domain.CheckRequest) (*resolvedTask, error) {
	if req.ConstraintsPath != "" {
		tc, err := uc.profiles.LoadTaskConstraints(req.ConstraintsPath)
		if err != nil {
			return nil, err
		}
		return &resolvedTask{constraints: tc}, nil
	}

	spec, err := uc.specs.LoadSpec(req.SpecPath)
	if err != nil {
		return nil, err
	}
	if req.FunctionName != "" && len(spec.Functions) > 0 && spec.FindFunction(req.FunctionName) == nil {
		uc.logger.Warn("function not declared in spec", "function", req.FunctionName, "spec", spec.Name)
	}

	profilesPath := req.ProfilesPath
	if profilesPath == "" {
		profilesPath = filepath.Join(filepath.Dir(req.SpecPath), constants.DefaultProfilesFile)
	}
	table, err := uc.profiles.LoadProfiles(profilesPath)
	if err != nil {
		return nil, err
	}

	tc, err := uc.profiles.ResolveConstraints(spec, table, req.FunctionName)
	if err != nil {
		return nil, withSuggestions(err, spec, table)
	}

	profile := spec.ConstraintProfile
	if fn := spec.FindFunction(req.FunctionName); fn != nil && fn.ConstraintProfile != "" {
		profile = fn.ConstraintProfile
	}
	return &resolvedTask{constraints: tc, profile: profile, baseDir: filepath.Dir(req.SpecPath)}, nil
}

// withSuggestions appends "did you mean" hints to an unknown-profile error
func withSuggestions(err error, spec *domain.ParsedSpec, table *domain.ProfileTable) error {
	if !domain.HasCode(err, domain.ErrCodeProfileNotFound) {
		return err
	}
	suggestions := service.SuggestProfiles(spec.ConstraintProfile, table)
	for _, fn := range spec.Functions {
		if len(suggestions) > 0 {
			break
		}
		suggestions = service.SuggestProfiles(fn.ConstraintProfile, table)
	}
	if len(suggestions) == 0 {
		return err
	}
	return fmt.Errorf("%w (did you mean: %s?)", err, strings.Join(suggestions, ", "))
}

func (uc *CheckUseCase) collectFiles(req domain.CheckRequest, task *resolvedTask) ([]string, error) {
	paths := req.Paths
	if len(paths) == 0 {
		for _, target := range task.constraints.TargetFiles {
			if !filepath.IsAbs(target) && task.baseDir != "" {
				if exists, _ := uc.fileReader.FileExists(target); !exists {
					target = filepath.Join(task.baseDir, target)
				}
			}
			paths = append(paths, target)
		}
	}
	if len(paths) == 0 {
		return nil, domain.NewInvalidInputError("no input paths specified and no target files declared", nil)
	}

	files, err := uc.fileReader.CollectPythonFiles(paths, req.Recursive, req.IncludePatterns, req.ExcludePatterns)
	if err != nil {
		return nil, domain.NewFileNotFoundError("failed to collect files", err)
	}
	if len(files) == 0 {
		return nil, domain.NewInvalidInputError("no Python files found in the specified paths", nil)
	}
	return files, nil
}

// checkFile runs both gates on one file, consulting the cache first
func (uc *CheckUseCase) checkFile(ctx context.Context, path string, tc domain.TaskConstraints) (domain.FileCheckResult, error) {
	result := domain.FileCheckResult{FilePath: path}

	source, err := uc.fileReader.ReadFile(path)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read file: %v", err)
		return result, domain.NewFileNotFoundError(path, err)
	}

	key := ""
	if uc.cache != nil {
		key = service.CacheKey(source, tc)
		if cached, ok := uc.cache.Get(key); ok {
			result.Primary, result.Secondary = cached.Primary, cached.Secondary
			result.Passed = cached.Primary.Passed && cached.Secondary.Passed
			result.Cached = true
			return result, nil
		}
	}

	primary, secondary, err := uc.constraints.Check(ctx, source, tc)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	result.Primary, result.Secondary = primary, secondary
	result.Passed = primary.Passed && secondary.Passed
	if uc.cache != nil {
		uc.cache.Add(key, service.CachedCheck{Primary: primary, Secondary: secondary})
	}
	return result, nil
}

// buildReport aggregates per-file results into a report
func buildReport(results []domain.FileCheckResult, task *resolvedTask, function string) *domain.CheckReport {
	report := &domain.CheckReport{
		RunID:       uuid.NewString(),
		Profile:     task.profile,
		Function:    function,
		Files:       results,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Version:     version.Version,
	}

	for _, r := range results {
		report.Summary.FilesChecked++
		switch {
		case r.Error != "":
			report.Summary.FilesErrored++
		case r.Passed:
			report.Summary.FilesPassed++
		default:
			report.Summary.FilesFailed++
		}
		if r.Primary != nil {
			report.Summary.TotalViolations += len(r.Primary.Violations)
		}
		if r.Secondary != nil {
			report.Summary.TotalViolations += len(r.Secondary.Violations)
		}
	}

	switch {
	case report.Summary.FilesErrored > 0:
		report.ExitCode = constants.ExitError
	case report.Summary.FilesFailed > 0:
		report.ExitCode = constants.ExitViolations
	default:
		report.ExitCode = constants.ExitPassed
	}
	report.Passed = report.ExitCode == constants.ExitPassed
	if !report.Passed {
		report.Guidance = task.constraints.Guidance
	}
	return report
}

// fileCheckTask adapts one file check to the parallel executor
type fileCheckTask struct {
	path        string
	constraints domain.TaskConstraints
	result      *domain.FileCheckResult
	uc          *CheckUseCase
}

func (t *fileCheckTask) Name() string { return t.path }

func (t *fileCheckTask) IsEnabled() bool { return true }

func (t *fileCheckTask) Execute(ctx context.Context) (interface{}, error) {
	result, err := t.uc.checkFile(ctx, t.path, t.constraints)
	*t.result = result
	return result, err
}

// CheckUseCaseBuilder provides a builder pattern for creating CheckUseCase
type CheckUseCaseBuilder struct {
	constraints  domain.ConstraintService
	profiles     domain.ProfileLoader
	specs        domain.SpecLoader
	configLoader ConfigLoader
	fileReader   domain.FileReader
	formatter    domain.ReportFormatter
	executor     domain.ParallelExecutor
	cache        *service.ResultCache
	logger       *slog.Logger
}

// NewCheckUseCaseBuilder creates a new builder
func NewCheckUseCaseBuilder() *CheckUseCaseBuilder {
	return &CheckUseCaseBuilder{}
}

// WithConstraintService sets the constraint service
func (b *CheckUseCaseBuilder) WithConstraintService(s domain.ConstraintService) *CheckUseCaseBuilder {
	b.constraints = s
	return b
}

// WithProfileLoader sets the profile loader
func (b *CheckUseCaseBuilder) WithProfileLoader(l domain.ProfileLoader) *CheckUseCaseBuilder {
	b.profiles = l
	return b
}

// WithSpecLoader sets the spec loader
func (b *CheckUseCaseBuilder) WithSpecLoader(l domain.SpecLoader) *CheckUseCaseBuilder {
	b.specs = l
	return b
}

// WithConfigLoader sets the configuration loader
func (b *CheckUseCaseBuilder) WithConfigLoader(l ConfigLoader) *CheckUseCaseBuilder {
	b.configLoader = l
	return b
}

// WithFileReader sets the file reader
func (b *CheckUseCaseBuilder) WithFileReader(r domain.FileReader) *CheckUseCaseBuilder {
	b.fileReader = r
	return b
}

// WithFormatter sets the report formatter. Without one, each run uses a text
// formatter honouring the request's ShowDetails.
func (b *CheckUseCaseBuilder) WithFormatter(f domain.ReportFormatter) *CheckUseCaseBuilder {
	b.formatter = f
	return b
}

// WithExecutor sets the parallel executor
func (b *CheckUseCaseBuilder) WithExecutor(e domain.ParallelExecutor) *CheckUseCaseBuilder {
	b.executor = e
	return b
}

// WithCache sets the result cache
func (b *CheckUseCaseBuilder) WithCache(c *service.ResultCache) *CheckUseCaseBuilder {
	b.cache = c
	return b
}

// WithLogger sets the logger
func (b *CheckUseCaseBuilder) WithLogger(l *slog.Logger) *CheckUseCaseBuilder {
	b.logger = l
	return b
}

// Build creates the CheckUseCase, filling unset collaborators with defaults
func (b *CheckUseCaseBuilder) Build() (*CheckUseCase, error) {
	if b.constraints == nil {
		return nil, fmt.Errorf("constraint service is required")
	}

	uc := &CheckUseCase{
		constraints:  b.constraints,
		profiles:     b.profiles,
		specs:        b.specs,
		configLoader: b.configLoader,
		fileReader:   b.fileReader,
		formatter:    b.formatter,
		executor:     b.executor,
		cache:        b.cache,
		logger:       b.logger,
	}

	if uc.logger == nil {
		uc.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if uc.profiles == nil {
		uc.profiles = service.NewProfileLoader(uc.logger)
	}
	if uc.specs == nil {
		uc.specs = service.NewSpecLoader()
	}
	if uc.fileReader == nil {
		uc.fileReader = NewFileHelper()
	}
	if uc.executor == nil {
		uc.executor = service.NewParallelExecutor().WithLogger(uc.logger)
	}

	return uc, nil
}
