package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gilad12-coder/agentic-tdd/domain"
	"github.com/gilad12-coder/agentic-tdd/internal/config"
)

// Default values for parallel executor
const (
	// DefaultMaxConcurrency is used when the configured value is not positive
	DefaultMaxConcurrency = 4
	DefaultTimeout        = 2 * time.Minute

	defaultProgressDescription = "Checking files"
)

// TaskError represents a single task failure
type TaskError struct {
	TaskName string
	Err      error
}

// Error implements the error interface
func (e TaskError) Error() string {
	return fmt.Sprintf("[%s] %v", e.TaskName, e.Err)
}

// Unwrap returns the underlying error
func (e TaskError) Unwrap() error {
	return e.Err
}

// AggregatedError collects task failures in submission order
type AggregatedError struct {
	Errors []TaskError
}

// Error implements the error interface
func (e *AggregatedError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d tasks failed:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Unwrap exposes every task error to errors.Is and errors.As
func (e *AggregatedError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		errs[i] = err
	}
	return errs
}

// ParallelExecutorImpl implements domain.ParallelExecutor on an errgroup
type ParallelExecutorImpl struct {
	maxConcurrency int
	timeout        time.Duration
	progress       domain.ProgressManager
	description    string
	logger         *slog.Logger
	mu             sync.RWMutex
}

// NewParallelExecutor creates an executor using one goroutine per CPU
func NewParallelExecutor() *ParallelExecutorImpl {
	return &ParallelExecutorImpl{
		maxConcurrency: runtime.NumCPU(),
		timeout:        DefaultTimeout,
		description:    defaultProgressDescription,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// NewParallelExecutorFromConfig creates an executor from performance settings
func NewParallelExecutorFromConfig(cfg *config.PerformanceConfig) *ParallelExecutorImpl {
	executor := NewParallelExecutor()
	executor.maxConcurrency = DefaultMaxConcurrency
	if cfg == nil {
		return executor
	}
	if cfg.MaxGoroutines > 0 {
		executor.maxConcurrency = cfg.MaxGoroutines
	}
	if timeout := time.Duration(cfg.TimeoutSeconds) * time.Second; timeout > 0 {
		executor.timeout = timeout
	}
	return executor
}

// NewParallelExecutorWithProgress creates an executor that reports each
// finished task to pm
func NewParallelExecutorWithProgress(cfg *config.PerformanceConfig, pm domain.ProgressManager) *ParallelExecutorImpl {
	executor := NewParallelExecutorFromConfig(cfg)
	executor.progress = pm
	return executor
}

// WithLogger sets the logger that records task failures
func (e *ParallelExecutorImpl) WithLogger(logger *slog.Logger) *ParallelExecutorImpl {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// Execute runs the enabled tasks with bounded concurrency under one timeout.
// Every task runs even when others fail; failures come back together.
func (e *ParallelExecutorImpl) Execute(ctx context.Context, tasks []domain.ExecutableTask) error {
	enabledTasks := filterEnabledTasks(tasks)
	if len(enabledTasks) == 0 {
		return nil
	}

	e.mu.RLock()
	maxConcurrency := e.maxConcurrency
	timeout := e.timeout
	description := e.description
	e.mu.RUnlock()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var progress domain.TaskProgress = &NoOpTaskProgress{}
	if e.progress != nil {
		progress = e.progress.StartTask(description, len(enabledTasks))
	}
	defer progress.Complete()

	g, gCtx := errgroup.WithContext(timeoutCtx)
	g.SetLimit(maxConcurrency)

	var errMu sync.Mutex
	failures := make(map[int]TaskError)

	for i, t := range enabledTasks {
		g.Go(func() error {
			var err error
			if err = gCtx.Err(); err == nil {
				_, err = t.Execute(gCtx)
			}
			progress.Increment(1)

			if err != nil {
				e.logger.Debug("task failed", slog.String("task", t.Name()), slog.Any("error", err))
				errMu.Lock()
				failures[i] = TaskError{TaskName: t.Name(), Err: err}
				errMu.Unlock()
			}
			// Failures are collected, not returned, so siblings keep running
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) == 0 {
		return nil
	}
	indexes := make([]int, 0, len(failures))
	for i := range failures {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	aggregated := &AggregatedError{Errors: make([]TaskError, 0, len(indexes))}
	for _, i := range indexes {
		aggregated.Errors = append(aggregated.Errors, failures[i])
	}
	return aggregated
}

// SetMaxConcurrency sets the maximum number of concurrent tasks
func (e *ParallelExecutorImpl) SetMaxConcurrency(max int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if max > 0 {
		e.maxConcurrency = max
	}
}

// SetTimeout sets the timeout for a whole Execute call
func (e *ParallelExecutorImpl) SetTimeout(timeout time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if timeout > 0 {
		e.timeout = timeout
	}
}

// SetDescription sets the progress bar label
func (e *ParallelExecutorImpl) SetDescription(description string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if description != "" {
		e.description = description
	}
}

func filterEnabledTasks(tasks []domain.ExecutableTask) []domain.ExecutableTask {
	enabled := make([]domain.ExecutableTask, 0, len(tasks))
	for _, t := range tasks {
		if t.IsEnabled() {
			enabled = append(enabled, t)
		}
	}
	return enabled
}
