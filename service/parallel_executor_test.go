package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gilad12-coder/agentic-tdd/domain"
	"github.com/gilad12-coder/agentic-tdd/internal/config"
)

// mockTask implements domain.ExecutableTask for testing
type mockTask struct {
	name     string
	enabled  bool
	execFunc func(ctx context.Context) (interface{}, error)
}

func (t *mockTask) Name() string {
	return t.name
}

func (t *mockTask) Execute(ctx context.Context) (interface{}, error) {
	if t.execFunc != nil {
		return t.execFunc(ctx)
	}
	return nil, nil
}

func (t *mockTask) IsEnabled() bool {
	return t.enabled
}

func newMockTask(name string, execFunc func(ctx context.Context) (interface{}, error)) *mockTask {
	return &mockTask{name: name, enabled: true, execFunc: execFunc}
}

// countingProgress records progress calls
type countingProgress struct {
	mu          sync.Mutex
	description string
	total       int
	increments  int
	completed   bool
}

func (p *countingProgress) StartTask(description string, total int) domain.TaskProgress {
	p.description = description
	p.total = total
	return p
}

func (p *countingProgress) IsInteractive() bool { return true }

func (p *countingProgress) Close() {}

func (p *countingProgress) Increment(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.increments += n
}

func (p *countingProgress) Describe(string) {}

func (p *countingProgress) Complete() {
	p.completed = true
}

func TestNewParallelExecutor(t *testing.T) {
	executor := NewParallelExecutor()

	if executor.maxConcurrency <= 0 {
		t.Errorf("maxConcurrency should be > 0, got %d", executor.maxConcurrency)
	}
	if executor.timeout != DefaultTimeout {
		t.Errorf("timeout should be %v, got %v", DefaultTimeout, executor.timeout)
	}
	if executor.description != "Checking files" {
		t.Errorf("unexpected default description %q", executor.description)
	}
}

func TestNewParallelExecutorFromConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *config.PerformanceConfig
		concurrency int
		timeout     time.Duration
	}{
		{"configured", &config.PerformanceConfig{MaxGoroutines: 8, TimeoutSeconds: 30}, 8, 30 * time.Second},
		{"zero values", &config.PerformanceConfig{}, DefaultMaxConcurrency, DefaultTimeout},
		{"nil config", nil, DefaultMaxConcurrency, DefaultTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := NewParallelExecutorFromConfig(tt.cfg)
			if executor.maxConcurrency != tt.concurrency {
				t.Errorf("maxConcurrency should be %d, got %d", tt.concurrency, executor.maxConcurrency)
			}
			if executor.timeout != tt.timeout {
				t.Errorf("timeout should be %v, got %v", tt.timeout, executor.timeout)
			}
		})
	}
}

func TestParallelExecutor_EmptyTaskList(t *testing.T) {
	if err := NewParallelExecutor().Execute(context.Background(), nil); err != nil {
		t.Errorf("empty task list should return nil, got %v", err)
	}
}

func TestParallelExecutor_AllTasksSucceed(t *testing.T) {
	var executed atomic.Int32
	tasks := make([]domain.ExecutableTask, 0, 5)
	for _, name := range []string{"a.py", "b.py", "c.py", "d.py", "e.py"} {
		tasks = append(tasks, newMockTask(name, func(ctx context.Context) (interface{}, error) {
			executed.Add(1)
			return nil, nil
		}))
	}

	if err := NewParallelExecutor().Execute(context.Background(), tasks); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if executed.Load() != 5 {
		t.Errorf("expected 5 tasks executed, got %d", executed.Load())
	}
}

func TestParallelExecutor_FailuresKeepSubmissionOrder(t *testing.T) {
	executor := NewParallelExecutor()
	executor.SetMaxConcurrency(4)

	var executed atomic.Int32
	tasks := []domain.ExecutableTask{
		newMockTask("first.py", func(ctx context.Context) (interface{}, error) {
			time.Sleep(20 * time.Millisecond)
			executed.Add(1)
			return nil, errors.New("first failed")
		}),
		newMockTask("ok.py", func(ctx context.Context) (interface{}, error) {
			executed.Add(1)
			return nil, nil
		}),
		newMockTask("third.py", func(ctx context.Context) (interface{}, error) {
			executed.Add(1)
			return nil, errors.New("third failed")
		}),
	}

	err := executor.Execute(context.Background(), tasks)
	var aggregated *AggregatedError
	if !errors.As(err, &aggregated) {
		t.Fatalf("expected AggregatedError, got %T", err)
	}
	if executed.Load() != 3 {
		t.Errorf("all tasks should run despite failures, got %d", executed.Load())
	}
	if len(aggregated.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(aggregated.Errors))
	}
	if aggregated.Errors[0].TaskName != "first.py" || aggregated.Errors[1].TaskName != "third.py" {
		t.Errorf("errors out of order: %v", aggregated.Errors)
	}
}

func TestParallelExecutor_Timeout(t *testing.T) {
	executor := NewParallelExecutor()
	executor.SetTimeout(20 * time.Millisecond)

	tasks := []domain.ExecutableTask{
		newMockTask("slow.py", func(ctx context.Context) (interface{}, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
				return nil, nil
			}
		}),
	}

	err := executor.Execute(context.Background(), tasks)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestParallelExecutor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var executed atomic.Int32
	tasks := []domain.ExecutableTask{
		newMockTask("a.py", func(ctx context.Context) (interface{}, error) {
			executed.Add(1)
			return nil, nil
		}),
	}

	err := NewParallelExecutor().Execute(ctx, tasks)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if executed.Load() != 0 {
		t.Errorf("no task should run on a cancelled context, got %d", executed.Load())
	}
}

func TestParallelExecutor_DisabledTasksSkipped(t *testing.T) {
	var executed atomic.Int32
	run := func(ctx context.Context) (interface{}, error) {
		executed.Add(1)
		return nil, nil
	}
	tasks := []domain.ExecutableTask{
		newMockTask("on.py", run),
		&mockTask{name: "off.py", enabled: false, execFunc: run},
	}

	if err := NewParallelExecutor().Execute(context.Background(), tasks); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if executed.Load() != 1 {
		t.Errorf("expected only the enabled task to run, got %d", executed.Load())
	}
}

func TestParallelExecutor_ConcurrencyLimit(t *testing.T) {
	executor := NewParallelExecutor()
	executor.SetMaxConcurrency(2)

	var current, peak atomic.Int32
	tasks := make([]domain.ExecutableTask, 0, 8)
	for i := 0; i < 8; i++ {
		tasks = append(tasks, newMockTask("task", func(ctx context.Context) (interface{}, error) {
			n := current.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			current.Add(-1)
			return nil, nil
		}))
	}

	if err := executor.Execute(context.Background(), tasks); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if peak.Load() > 2 {
		t.Errorf("concurrency exceeded limit: peak %d", peak.Load())
	}
}

func TestParallelExecutor_Setters_IgnoreInvalid(t *testing.T) {
	executor := NewParallelExecutor()
	executor.SetMaxConcurrency(3)
	executor.SetMaxConcurrency(0)
	executor.SetTimeout(time.Second)
	executor.SetTimeout(-1)
	executor.SetDescription("Re-checking")
	executor.SetDescription("")

	if executor.maxConcurrency != 3 {
		t.Errorf("maxConcurrency should stay 3, got %d", executor.maxConcurrency)
	}
	if executor.timeout != time.Second {
		t.Errorf("timeout should stay 1s, got %v", executor.timeout)
	}
	if executor.description != "Re-checking" {
		t.Errorf("description should stay set, got %q", executor.description)
	}
}

func TestParallelExecutor_ProgressIntegration(t *testing.T) {
	pm := &countingProgress{}
	executor := NewParallelExecutorWithProgress(&config.PerformanceConfig{MaxGoroutines: 2}, pm)

	tasks := []domain.ExecutableTask{
		newMockTask("a.py", nil),
		newMockTask("b.py", func(ctx context.Context) (interface{}, error) { return nil, errors.New("boom") }),
		newMockTask("c.py", nil),
	}
	_ = executor.Execute(context.Background(), tasks)

	if pm.description != "Checking files" || pm.total != 3 {
		t.Errorf("unexpected progress task %q/%d", pm.description, pm.total)
	}
	if pm.increments != 3 {
		t.Errorf("expected 3 increments including the failure, got %d", pm.increments)
	}
	if !pm.completed {
		t.Error("progress should be completed")
	}
}

func TestAggregatedError_Error(t *testing.T) {
	single := &AggregatedError{Errors: []TaskError{{TaskName: "a.py", Err: errors.New("bad")}}}
	if single.Error() != "[a.py] bad" {
		t.Errorf("unexpected single error text %q", single.Error())
	}

	multi := &AggregatedError{Errors: []TaskError{
		{TaskName: "a.py", Err: errors.New("bad")},
		{TaskName: "b.py", Err: errors.New("worse")},
	}}
	text := multi.Error()
	if !strings.HasPrefix(text, "2 tasks failed:") || !strings.Contains(text, "2. [b.py] worse") {
		t.Errorf("unexpected multi error text %q", text)
	}

	if (&AggregatedError{}).Error() != "no errors" {
		t.Error("empty aggregated error should say no errors")
	}
}

func TestAggregatedError_Unwrap(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := &AggregatedError{Errors: []TaskError{
		{TaskName: "a.py", Err: errors.New("other")},
		{TaskName: "b.py", Err: sentinel},
	}}

	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should find an error past the first")
	}
	var taskErr TaskError
	if !errors.As(err, &taskErr) || taskErr.TaskName != "a.py" {
		t.Errorf("errors.As should find the first TaskError, got %+v", taskErr)
	}
}
