package service

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/gilad12-coder/agentic-tdd/domain"
)

func sampleReport() *domain.CheckReport {
	return &domain.CheckReport{
		RunID:    "run-1",
		Passed:   false,
		ExitCode: 1,
		Profile:  "default",
		Files: []domain.FileCheckResult{
			{
				FilePath:  "clean.py",
				Passed:    true,
				Primary:   domain.NewConstraintResult(nil, domain.Metrics{"cyclomatic_complexity": 1}),
				Secondary: domain.NewConstraintResult(nil, domain.Metrics{}),
			},
			{
				FilePath:  "messy.py",
				Passed:    false,
				Primary:   domain.NewConstraintResult([]string{"Cyclomatic complexity 6 > max 3"}, domain.Metrics{"cyclomatic_complexity": 6}),
				Secondary: domain.NewConstraintResult(nil, domain.Metrics{}),
			},
			{
				FilePath: "broken.py",
				Error:    "[PARSE_ERROR] failed to parse broken.py",
			},
		},
		Guidance:    []string{"Prefer early returns."},
		Summary:     domain.CheckSummary{FilesChecked: 3, FilesPassed: 1, FilesFailed: 1, FilesErrored: 1, TotalViolations: 1},
		Duration:    12,
		GeneratedAt: "2026-01-01T00:00:00Z",
		Version:     "dev",
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, map[string]interface{}{"name": "test", "value": 42}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Failed to parse output as JSON: %v", err)
	}
	if result["name"] != "test" {
		t.Errorf("Expected name to be 'test', got %v", result["name"])
	}
}

func TestOutputFormatter_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := NewOutputFormatter().Write(sampleReport(), domain.OutputFormatJSON, &buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var decoded struct {
		RunID    string `json:"run_id"`
		ExitCode int    `json:"exit_code"`
		Files    []struct {
			FilePath string `json:"file_path"`
			Primary  *struct {
				Violations []string `json:"violations"`
			} `json:"primary"`
		} `json:"files"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not JSON: %v", err)
	}
	if decoded.RunID != "run-1" || decoded.ExitCode != 1 {
		t.Errorf("Unexpected header %+v", decoded)
	}
	if len(decoded.Files) != 3 || decoded.Files[1].Primary.Violations[0] != "Cyclomatic complexity 6 > max 3" {
		t.Errorf("Unexpected files %+v", decoded.Files)
	}
}

func TestOutputFormatter_YAML(t *testing.T) {
	out, err := NewOutputFormatter().Format(sampleReport(), domain.OutputFormatYAML)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	var decoded map[string]any
	if err := yaml.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("Output is not YAML: %v", err)
	}
	if decoded["run_id"] != "run-1" {
		t.Errorf("Expected run_id run-1, got %v", decoded["run_id"])
	}
}

func TestOutputFormatter_Text(t *testing.T) {
	out, err := NewOutputFormatter().Format(sampleReport(), domain.OutputFormatText)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	for _, want := range []string{
		"PASS  clean.py",
		"FAIL  messy.py",
		"[primary] Cyclomatic complexity 6 > max 3",
		"ERROR broken.py",
		"Guidance:",
		"Prefer early returns.",
		"Files checked: 3",
		"Errored: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Text output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "cyclomatic_complexity =") {
		t.Error("Metrics should only be shown with details enabled")
	}
}

func TestOutputFormatter_TextDetails(t *testing.T) {
	out, err := NewOutputFormatter().WithDetails(true).Format(sampleReport(), domain.OutputFormatText)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if !strings.Contains(out, "primary.cyclomatic_complexity = 6") {
		t.Errorf("Expected metric details in output:\n%s", out)
	}
}

func TestOutputFormatter_TextHidesSecondaryAfterPrimaryFailure(t *testing.T) {
	report := sampleReport()
	report.Files[1].Secondary = domain.NewConstraintResult([]string{"should not show"}, nil)

	out, err := NewOutputFormatter().Format(report, domain.OutputFormatText)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if strings.Contains(out, "should not show") {
		t.Error("Secondary violations must not be printed when the primary gate failed")
	}
}

func TestOutputFormatter_Unsupported(t *testing.T) {
	_, err := NewOutputFormatter().Format(sampleReport(), domain.OutputFormat("html"))
	if !domain.HasCode(err, domain.ErrCodeUnsupportedFormat) {
		t.Errorf("Expected UNSUPPORTED_FORMAT, got %v", err)
	}
}

func TestOutputFormatter_NilReport(t *testing.T) {
	err := NewOutputFormatter().Write(nil, domain.OutputFormatJSON, &bytes.Buffer{})
	if !domain.HasCode(err, domain.ErrCodeOutputError) {
		t.Errorf("Expected OUTPUT_ERROR, got %v", err)
	}
}
