package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilad12-coder/agentic-tdd/domain"
	"github.com/gilad12-coder/agentic-tdd/internal/testutil"
)

func TestMetricsService_Analyze(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteTestFile(t, dir, "shapes.py", `def area(w, h):
    return w * h


def grid(rows, cols):
    cells = []
    for r in range(rows):
        for c in range(cols):
            if r == c:
                cells.append((r, c))
    return cells
`)

	resp, err := NewMetricsService().Analyze(context.Background(), domain.MetricsRequest{Paths: []string{path}})
	require.NoError(t, err)
	require.Len(t, resp.Functions, 2)

	grid := resp.Functions[0]
	assert.Equal(t, "grid", grid.Name, "default sort is by complexity, highest first")
	assert.Equal(t, 4, grid.Cyclomatic)
	assert.Equal(t, 2, grid.Parameters)
	assert.Equal(t, 3, grid.NestingDepth)
	assert.Equal(t, "O(n^2)", grid.TimeComplexity)
	assert.Equal(t, 5, grid.StartLine)
	assert.Equal(t, 11, grid.EndLine)
	assert.Equal(t, 7, grid.Lines)

	area := resp.Functions[1]
	assert.Equal(t, 1, area.Cyclomatic)
	assert.Equal(t, 1, area.Returns)
	assert.Equal(t, 0, area.Locals)
	assert.Equal(t, "O(1)", area.TimeComplexity)

	assert.Equal(t, 1, resp.Summary.FilesAnalyzed)
	assert.Equal(t, 2, resp.Summary.TotalFunctions)
	assert.Equal(t, 4, resp.Summary.MaxComplexity)
	assert.InDelta(t, 2.5, resp.Summary.AverageComplexity, 0.001)
}

func TestMetricsService_SortByName(t *testing.T) {
	path := testutil.WriteTestFile(t, t.TempDir(), "m.py", "def b():\n    pass\n\n\ndef a():\n    pass\n")

	resp, err := NewMetricsService().Analyze(context.Background(), domain.MetricsRequest{
		Paths:  []string{path},
		SortBy: domain.SortByName,
	})
	require.NoError(t, err)
	assert.Equal(t, "a", resp.Functions[0].Name)
	assert.Equal(t, "b", resp.Functions[1].Name)
}

func TestMetricsService_BadFilesReported(t *testing.T) {
	dir := t.TempDir()
	good := testutil.WriteTestFile(t, dir, "good.py", "def ok():\n    pass\n")
	bad := testutil.WriteTestFile(t, dir, "bad.py", "def broken(:\n")

	resp, err := NewMetricsService().Analyze(context.Background(), domain.MetricsRequest{Paths: []string{good, bad}})
	require.NoError(t, err)
	assert.Len(t, resp.Functions, 1)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0], "bad.py")
}

func TestMetricsService_AllFilesFail(t *testing.T) {
	_, err := NewMetricsService().Analyze(context.Background(), domain.MetricsRequest{Paths: []string{"/nonexistent.py"}})
	assert.True(t, domain.HasCode(err, domain.ErrCodeAnalysisError))
}

func TestMetricsService_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMetricsService().Analyze(ctx, domain.MetricsRequest{Paths: []string{"a.py"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOutputFormatter_WriteMetrics(t *testing.T) {
	resp := &domain.MetricsResponse{
		Functions: []domain.FunctionMetrics{{Name: "grid", FilePath: "shapes.py", StartLine: 5, EndLine: 11, Cyclomatic: 4, TimeComplexity: "O(n^2)"}},
		Summary:   domain.MetricsSummary{FilesAnalyzed: 1, TotalFunctions: 1, MaxComplexity: 4},
	}

	var buf bytes.Buffer
	require.NoError(t, NewOutputFormatter().WriteMetrics(resp, domain.OutputFormatText, &buf))
	out := buf.String()
	assert.True(t, strings.Contains(out, "shapes.py:5-11"))
	assert.True(t, strings.Contains(out, "O(n^2)"))
	assert.True(t, strings.Contains(out, "Max complexity: 4"))

	buf.Reset()
	require.NoError(t, NewOutputFormatter().WriteMetrics(resp, domain.OutputFormatJSON, &buf))
	assert.Contains(t, buf.String(), `"cyclomatic_complexity": 4`)
}
