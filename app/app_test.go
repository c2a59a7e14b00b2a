package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilad12-coder/agentic-tdd/domain"
	"github.com/gilad12-coder/agentic-tdd/internal/constants"
	"github.com/gilad12-coder/agentic-tdd/internal/testutil"
	"github.com/gilad12-coder/agentic-tdd/service"
)

func TestFileHelperCollectPythonFiles(t *testing.T) {
	tempDir := t.TempDir()

	for _, f := range []string{"a.py", "b.py", "c.PY", "notes.txt", "script.pyc"} {
		testutil.WriteTestFile(t, tempDir, f, "x = 1\n")
	}

	files, err := NewFileHelper().CollectPythonFiles([]string{tempDir}, true, nil, nil)
	if err != nil {
		t.Fatalf("CollectPythonFiles failed: %v", err)
	}
	if len(files) != 3 {
		t.Errorf("Expected 3 Python files, got %d: %v", len(files), files)
	}
}

func TestFileHelperIsValidPythonFile(t *testing.T) {
	helper := NewFileHelper()

	tests := []struct {
		path     string
		expected bool
	}{
		{"main.py", true},
		{"pkg/module.py", true},
		{"UPPER.PY", true},
		{"stub.pyi", false},
		{"cache.pyc", false},
		{"main.go", false},
		{"py", false},
	}

	for _, tt := range tests {
		if got := helper.IsValidPythonFile(tt.path); got != tt.expected {
			t.Errorf("IsValidPythonFile(%s) = %v, expected %v", tt.path, got, tt.expected)
		}
	}
}

func TestFileHelperFileExists(t *testing.T) {
	helper := NewFileHelper()
	path := testutil.WriteTestFile(t, t.TempDir(), "present.py", "")

	exists, err := helper.FileExists(path)
	if err != nil || !exists {
		t.Errorf("Expected %s to exist, got %v (%v)", path, exists, err)
	}

	exists, err = helper.FileExists("/nonexistent/file.py")
	if err != nil || exists {
		t.Errorf("Expected missing file to not exist, got %v (%v)", exists, err)
	}

	exists, _ = helper.FileExists(filepath.Dir(path))
	if exists {
		t.Error("Expected a directory to not count as a file")
	}
}

func TestFileHelperExcludePatterns(t *testing.T) {
	tempDir := t.TempDir()
	testutil.WriteTestFile(t, tempDir, "src/app.py", "")
	testutil.WriteTestFile(t, tempDir, "src/app_test.py", "")
	testutil.WriteTestFile(t, tempDir, ".venv/lib/site.py", "")
	testutil.WriteTestFile(t, tempDir, "__pycache__/app.py", "")

	files, err := NewFileHelper().CollectPythonFiles(
		[]string{tempDir}, true, nil, []string{".venv", "__pycache__", "*_test.py"})
	if err != nil {
		t.Fatalf("CollectPythonFiles failed: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "app.py" {
		t.Errorf("Expected only src/app.py, got %v", files)
	}
}

func TestFileHelperIncludePatterns(t *testing.T) {
	tempDir := t.TempDir()
	testutil.WriteTestFile(t, tempDir, "src/pkg/core.py", "")
	testutil.WriteTestFile(t, tempDir, "scripts/run.py", "")

	files, err := NewFileHelper().CollectPythonFiles([]string{tempDir}, true, []string{"src/**/*.py"}, nil)
	if err != nil {
		t.Fatalf("CollectPythonFiles failed: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "core.py" {
		t.Errorf("Expected only src/pkg/core.py, got %v", files)
	}
}

func TestFileHelperNonRecursive(t *testing.T) {
	tempDir := t.TempDir()
	testutil.WriteTestFile(t, tempDir, "top.py", "")
	testutil.WriteTestFile(t, tempDir, "nested/deep.py", "")

	files, err := NewFileHelper().CollectPythonFiles([]string{tempDir}, false, nil, nil)
	if err != nil {
		t.Fatalf("CollectPythonFiles failed: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "top.py" {
		t.Errorf("Expected only top.py, got %v", files)
	}
}

func TestFileHelperRespectsGitignore(t *testing.T) {
	tempDir := t.TempDir()
	testutil.WriteTestFile(t, tempDir, ".gitignore", "generated/\nscratch.py\n")
	testutil.WriteTestFile(t, tempDir, "main.py", "")
	testutil.WriteTestFile(t, tempDir, "scratch.py", "")
	testutil.WriteTestFile(t, tempDir, "generated/models.py", "")

	files, err := NewFileHelper().WithGitignore(true).CollectPythonFiles([]string{tempDir}, true, nil, nil)
	if err != nil {
		t.Fatalf("CollectPythonFiles failed: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "main.py" {
		t.Errorf("Expected only main.py, got %v", files)
	}

	files, err = NewFileHelper().CollectPythonFiles([]string{tempDir}, true, nil, nil)
	if err != nil {
		t.Fatalf("CollectPythonFiles failed: %v", err)
	}
	if len(files) != 3 {
		t.Errorf("Expected gitignore to be ignored when disabled, got %v", files)
	}
}

func TestResolveFilePaths(t *testing.T) {
	tempDir := t.TempDir()
	testFile := testutil.WriteTestFile(t, tempDir, "test.py", "x = 1\n")
	helper := NewFileHelper()

	files, err := ResolveFilePaths(helper, []string{testFile}, true, nil, nil)
	if err != nil {
		t.Fatalf("ResolveFilePaths failed: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("Expected 1 file, got %d", len(files))
	}

	files, err = ResolveFilePaths(helper, []string{tempDir}, true, nil, nil)
	if err != nil {
		t.Fatalf("ResolveFilePaths failed: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("Expected 1 file, got %d", len(files))
	}

	if _, err := ResolveFilePaths(helper, []string{filepath.Join(tempDir, "missing")}, true, nil, nil); err == nil {
		t.Error("Expected an error for a missing path")
	}
}

const checkProfiles = `profiles:
  default:
    primary:
      max_cyclomatic_complexity: 10
    secondary:
      no_print_statements: true
    guidance:
      - Split long functions.
  strict:
    primary:
      max_cyclomatic_complexity: 1
    guidance:
      - Keep every function linear.
`

const cleanSource = `def add(a, b):
    return a + b
`

const branchySource = `def sign(n):
    if n < 0:
        return -1
    if n > 0:
        return 1
    return 0
`

// taskDir lays out a spec, its profiles and the given Python files
func taskDir(t *testing.T, profile string, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	spec := "name: sign\ndescription: Return the sign of n.\nconstraint_profile: " + profile + "\ntarget_files:\n"
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		testutil.WriteTestFile(t, dir, name, files[name])
		spec += "  - " + name + "\n"
	}
	testutil.WriteTestFile(t, dir, "spec.yaml", spec)
	testutil.WriteTestFile(t, dir, constants.DefaultProfilesFile, checkProfiles)
	return dir
}

func newCheckUseCase(t *testing.T) *CheckUseCase {
	t.Helper()
	cache, err := service.NewResultCache(16)
	require.NoError(t, err)
	uc, err := NewCheckUseCaseBuilder().
		WithConstraintService(service.NewConstraintService(nil)).
		WithCache(cache).
		Build()
	require.NoError(t, err)
	return uc
}

func TestCheckUseCase_Passes(t *testing.T) {
	dir := taskDir(t, "default", map[string]string{"add.py": cleanSource})

	report, err := newCheckUseCase(t).Execute(context.Background(), domain.CheckRequest{
		SpecPath: filepath.Join(dir, "spec.yaml"),
	})
	require.NoError(t, err)

	assert.True(t, report.Passed)
	assert.Equal(t, constants.ExitPassed, report.ExitCode)
	assert.Equal(t, "default", report.Profile)
	assert.Empty(t, report.Guidance)
	assert.Equal(t, domain.CheckSummary{FilesChecked: 1, FilesPassed: 1}, report.Summary)
	_, err = uuid.Parse(report.RunID)
	assert.NoError(t, err)

	require.Len(t, report.Files, 1)
	assert.Equal(t, filepath.Join(dir, "add.py"), report.Files[0].FilePath)
	assert.Equal(t, 1, report.Files[0].Primary.Metrics["cyclomatic_complexity"])
}

func TestCheckUseCase_Violations(t *testing.T) {
	dir := taskDir(t, "strict", map[string]string{"sign.py": branchySource})

	report, err := newCheckUseCase(t).Execute(context.Background(), domain.CheckRequest{
		SpecPath: filepath.Join(dir, "spec.yaml"),
	})
	require.NoError(t, err)

	assert.False(t, report.Passed)
	assert.Equal(t, constants.ExitViolations, report.ExitCode)
	assert.Equal(t, []string{"Keep every function linear."}, report.Guidance)
	assert.Equal(t, 1, report.Summary.FilesFailed)
	assert.Equal(t, 1, report.Summary.TotalViolations)
	assert.Equal(t, []string{"Cyclomatic complexity 3 > max 1"}, report.Files[0].Primary.Violations)
}

func TestCheckUseCase_SecondaryGate(t *testing.T) {
	dir := taskDir(t, "default", map[string]string{"noisy.py": cleanSource + "\nprint(add(1, 2))\n"})

	report, err := newCheckUseCase(t).Execute(context.Background(), domain.CheckRequest{
		SpecPath: filepath.Join(dir, "spec.yaml"),
	})
	require.NoError(t, err)

	file := report.Files[0]
	assert.True(t, file.Primary.Passed)
	assert.False(t, file.Secondary.Passed)
	assert.Equal(t, []string{"Print statement at line 4"}, file.Secondary.Violations)
	assert.Equal(t, constants.ExitViolations, report.ExitCode)
}

func TestCheckUseCase_ParseErrorExitsWithError(t *testing.T) {
	dir := taskDir(t, "default", map[string]string{"broken.py": "def broken(:\n", "add.py": cleanSource})

	report, err := newCheckUseCase(t).Execute(context.Background(), domain.CheckRequest{
		SpecPath: filepath.Join(dir, "spec.yaml"),
	})
	require.NoError(t, err)

	assert.Equal(t, constants.ExitError, report.ExitCode)
	assert.Equal(t, 1, report.Summary.FilesErrored)
	assert.Equal(t, 1, report.Summary.FilesPassed)
	assert.NotEmpty(t, report.Files[1].Error, "files keep target_files order")
}

func TestCheckUseCase_ExplicitPathsOverrideTargets(t *testing.T) {
	dir := taskDir(t, "strict", map[string]string{"sign.py": branchySource})
	other := testutil.WriteTestFile(t, t.TempDir(), "other.py", cleanSource)

	report, err := newCheckUseCase(t).Execute(context.Background(), domain.CheckRequest{
		Paths:    []string{other},
		SpecPath: filepath.Join(dir, "spec.yaml"),
	})
	require.NoError(t, err)
	require.Len(t, report.Files, 1)
	assert.Equal(t, other, report.Files[0].FilePath)
	assert.True(t, report.Passed)
}

func TestCheckUseCase_ConstraintsFile(t *testing.T) {
	dir := t.TempDir()
	target := testutil.WriteTestFile(t, dir, "sign.py", branchySource)
	constraints := testutil.WriteTestFile(t, dir, "constraints.yaml",
		"primary:\n  max_return_statements: 2\ntarget_files:\n  - "+target+"\n")

	report, err := newCheckUseCase(t).Execute(context.Background(), domain.CheckRequest{ConstraintsPath: constraints})
	require.NoError(t, err)
	assert.Equal(t, []string{"Function has 3 return statements > max 2"}, report.Files[0].Primary.Violations)
	assert.Empty(t, report.Profile)
}

func TestCheckUseCase_FunctionOverride(t *testing.T) {
	dir := taskDir(t, "strict", map[string]string{"sign.py": branchySource})
	profiles := checkProfiles + "functions:\n  sign:\n    primary:\n      max_cyclomatic_complexity: 5\n"
	testutil.WriteTestFile(t, dir, constants.DefaultProfilesFile, profiles)

	report, err := newCheckUseCase(t).Execute(context.Background(), domain.CheckRequest{
		SpecPath: filepath.Join(dir, "spec.yaml"),
	})
	require.NoError(t, err)
	assert.True(t, report.Passed)
}

func TestCheckUseCase_UnknownProfileSuggests(t *testing.T) {
	dir := taskDir(t, "strct", map[string]string{"sign.py": branchySource})

	_, err := newCheckUseCase(t).Execute(context.Background(), domain.CheckRequest{
		SpecPath: filepath.Join(dir, "spec.yaml"),
	})
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrCodeProfileNotFound))
	assert.Contains(t, err.Error(), "did you mean: strict?")
}

func TestCheckUseCase_InvalidRequests(t *testing.T) {
	uc := newCheckUseCase(t)

	_, err := uc.Execute(context.Background(), domain.CheckRequest{})
	assert.True(t, domain.HasCode(err, domain.ErrCodeInvalidInput))

	_, err = uc.Execute(context.Background(), domain.CheckRequest{SpecPath: "a.yaml", ConstraintsPath: "b.yaml"})
	assert.True(t, domain.HasCode(err, domain.ErrCodeInvalidInput))

	dir := t.TempDir()
	constraints := testutil.WriteTestFile(t, dir, "constraints.yaml", "primary:\n  no_eval: true\n")
	_, err = uc.Execute(context.Background(), domain.CheckRequest{ConstraintsPath: constraints})
	assert.True(t, domain.HasCode(err, domain.ErrCodeInvalidInput), "no paths and no target files")

	_, err = uc.Execute(context.Background(), domain.CheckRequest{ConstraintsPath: constraints, Paths: []string{dir}})
	assert.True(t, domain.HasCode(err, domain.ErrCodeInvalidInput), "directory without Python files")
}

func TestCheckUseCase_CachesResults(t *testing.T) {
	dir := taskDir(t, "default", map[string]string{"add.py": cleanSource})
	uc := newCheckUseCase(t)
	req := domain.CheckRequest{SpecPath: filepath.Join(dir, "spec.yaml")}

	first, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Files[0].Cached)

	second, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Files[0].Cached)
	assert.Equal(t, first.Files[0].Primary, second.Files[0].Primary)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestCheckUseCase_WritesReport(t *testing.T) {
	dir := taskDir(t, "default", map[string]string{"add.py": cleanSource})
	var buf bytes.Buffer

	report, err := newCheckUseCase(t).Execute(context.Background(), domain.CheckRequest{
		SpecPath:     filepath.Join(dir, "spec.yaml"),
		OutputFormat: domain.OutputFormatJSON,
		OutputWriter: &buf,
	})
	require.NoError(t, err)

	var decoded domain.CheckReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, report.RunID, decoded.RunID)
	assert.True(t, decoded.Passed)
}

func TestCheckUseCase_ConfigSuppliesProfilesPath(t *testing.T) {
	dir := taskDir(t, "strict", map[string]string{"sign.py": branchySource})
	require.NoError(t, os.Remove(filepath.Join(dir, constants.DefaultProfilesFile)))
	testutil.WriteTestFile(t, dir, "profiles/custom.yaml", checkProfiles)
	configPath := testutil.WriteTestFile(t, dir, "tddgate.yaml", "profiles:\n  path: profiles/custom.yaml\n")

	uc, err := NewCheckUseCaseBuilder().
		WithConstraintService(service.NewConstraintService(nil)).
		WithConfigLoader(service.NewConfigurationLoader()).
		Build()
	require.NoError(t, err)

	report, err := uc.Execute(context.Background(), domain.CheckRequest{
		SpecPath:   filepath.Join(dir, "spec.yaml"),
		ConfigPath: configPath,
	})
	require.NoError(t, err)
	assert.Equal(t, constants.ExitViolations, report.ExitCode)
}

func TestCheckUseCase_Cancelled(t *testing.T) {
	dir := taskDir(t, "default", map[string]string{"add.py": cleanSource})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newCheckUseCase(t).Execute(ctx, domain.CheckRequest{SpecPath: filepath.Join(dir, "spec.yaml")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckUseCaseBuilder_RequiresConstraintService(t *testing.T) {
	_, err := NewCheckUseCaseBuilder().Build()
	assert.Error(t, err)
}

func TestMetricsUseCase(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTestFile(t, dir, "sign.py", branchySource)
	testutil.WriteTestFile(t, dir, "add.py", cleanSource)
	var buf bytes.Buffer

	uc := NewMetricsUseCase(service.NewMetricsService())
	resp, err := uc.Execute(context.Background(), domain.MetricsRequest{
		Paths:        []string{dir},
		SortBy:       domain.SortByName,
		OutputFormat: domain.OutputFormatText,
		OutputWriter: &buf,
	}, true, nil, nil)
	require.NoError(t, err)

	require.Len(t, resp.Functions, 2)
	assert.Equal(t, "add", resp.Functions[0].Name)
	assert.Equal(t, 3, resp.Functions[1].Cyclomatic)
	assert.Contains(t, buf.String(), "Function Metrics")
}

func TestMetricsUseCase_InvalidRequest(t *testing.T) {
	uc := NewMetricsUseCase(service.NewMetricsService())

	_, err := uc.Execute(context.Background(), domain.MetricsRequest{}, true, nil, nil)
	assert.True(t, domain.HasCode(err, domain.ErrCodeInvalidInput))

	_, err = uc.Execute(context.Background(), domain.MetricsRequest{Paths: []string{"."}, SortBy: "speed"}, true, nil, nil)
	assert.True(t, domain.HasCode(err, domain.ErrCodeInvalidInput))
}
