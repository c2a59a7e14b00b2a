package service

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gilad12-coder/agentic-tdd/domain"
)

// OutputFormatterImpl implements domain.ReportFormatter
type OutputFormatterImpl struct {
	showDetails bool
}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter() *OutputFormatterImpl {
	return &OutputFormatterImpl{}
}

// WithDetails makes text output list every collected metric
func (f *OutputFormatterImpl) WithDetails(show bool) *OutputFormatterImpl {
	f.showDetails = show
	return f
}

// WriteJSON writes data as indented JSON to the writer
func WriteJSON(writer io.Writer, data interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// WriteYAML writes data as YAML to the writer
func WriteYAML(writer io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

// Format renders the report as a string
func (f *OutputFormatterImpl) Format(report *domain.CheckReport, format domain.OutputFormat) (string, error) {
	var sb strings.Builder
	if err := f.Write(report, format, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Write writes the report in the specified format
func (f *OutputFormatterImpl) Write(report *domain.CheckReport, format domain.OutputFormat, writer io.Writer) error {
	if report == nil {
		return domain.NewOutputError("no report to write", nil)
	}

	var err error
	switch format {
	case domain.OutputFormatJSON:
		err = WriteJSON(writer, report)
	case domain.OutputFormatYAML:
		err = WriteYAML(writer, report)
	case domain.OutputFormatText, "":
		err = f.writeText(report, writer)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
	if err != nil {
		return domain.NewOutputError("failed to write report", err)
	}
	return nil
}

// writeText writes the report as plain text
func (f *OutputFormatterImpl) writeText(report *domain.CheckReport, writer io.Writer) error {
	fmt.Fprintf(writer, "\n=== tddgate Check Report ===\n\n")
	if report.Profile != "" {
		fmt.Fprintf(writer, "Profile: %s\n", report.Profile)
	}
	if report.Function != "" {
		fmt.Fprintf(writer, "Function: %s\n", report.Function)
	}
	fmt.Fprintf(writer, "Generated: %s\n", report.GeneratedAt)
	fmt.Fprintf(writer, "Run: %s\n\n", report.RunID)

	for _, file := range report.Files {
		fmt.Fprintf(writer, "%s %s\n", fileStatus(file), file.FilePath)
		if file.Error != "" {
			fmt.Fprintf(writer, "    error: %s\n", file.Error)
			continue
		}
		f.writeGate(writer, "primary", file.Primary)
		if file.Primary != nil && file.Primary.Passed {
			f.writeGate(writer, "secondary", file.Secondary)
		}
	}

	if !report.Passed && len(report.Guidance) > 0 {
		fmt.Fprintf(writer, "\nGuidance:\n")
		for _, g := range report.Guidance {
			fmt.Fprintf(writer, "  - %s\n", g)
		}
	}

	s := report.Summary
	fmt.Fprintf(writer, "\nSummary:\n")
	fmt.Fprintf(writer, "  Files checked: %d\n", s.FilesChecked)
	fmt.Fprintf(writer, "  Passed: %d\n", s.FilesPassed)
	fmt.Fprintf(writer, "  Failed: %d\n", s.FilesFailed)
	if s.FilesErrored > 0 {
		fmt.Fprintf(writer, "  Errored: %d\n", s.FilesErrored)
	}
	fmt.Fprintf(writer, "  Violations: %d\n", s.TotalViolations)
	fmt.Fprintf(writer, "  Duration: %dms\n", report.Duration)
	return nil
}

func (f *OutputFormatterImpl) writeGate(writer io.Writer, gate string, result *domain.ConstraintResult) {
	if result == nil {
		return
	}
	for _, v := range result.Violations {
		fmt.Fprintf(writer, "    [%s] %s\n", gate, v)
	}
	if !f.showDetails || len(result.Metrics) == 0 {
		return
	}
	keys := make([]string, 0, len(result.Metrics))
	for k := range result.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(writer, "    %s.%s = %v\n", gate, k, result.Metrics[k])
	}
}

func fileStatus(file domain.FileCheckResult) string {
	switch {
	case file.Error != "":
		return "ERROR"
	case file.Passed:
		return "PASS "
	default:
		return "FAIL "
	}
}

// WriteMetrics writes a function metrics report in the specified format
func (f *OutputFormatterImpl) WriteMetrics(response *domain.MetricsResponse, format domain.OutputFormat, writer io.Writer) error {
	if response == nil {
		return domain.NewOutputError("no metrics to write", nil)
	}

	var err error
	switch format {
	case domain.OutputFormatJSON:
		err = WriteJSON(writer, response)
	case domain.OutputFormatYAML:
		err = WriteYAML(writer, response)
	case domain.OutputFormatText, "":
		err = f.writeMetricsText(response, writer)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
	if err != nil {
		return domain.NewOutputError("failed to write metrics", err)
	}
	return nil
}

// writeMetricsText writes the metrics report as an aligned table
func (f *OutputFormatterImpl) writeMetricsText(response *domain.MetricsResponse, writer io.Writer) error {
	fmt.Fprintf(writer, "\n=== Function Metrics ===\n\n")
	fmt.Fprintf(writer, "%-32s %4s %4s %5s %5s %4s %5s %5s  %s\n",
		"Function", "CC", "COG", "LINES", "PARAM", "RET", "LOCAL", "DEPTH", "TIME")
	for _, fn := range response.Functions {
		fmt.Fprintf(writer, "%-32s %4d %4d %5d %5d %4d %5d %5d  %s\n",
			fn.Name, fn.Cyclomatic, fn.Cognitive, fn.Lines, fn.Parameters,
			fn.Returns, fn.Locals, fn.NestingDepth, fn.TimeComplexity)
		fmt.Fprintf(writer, "    %s:%d-%d\n", fn.FilePath, fn.StartLine, fn.EndLine)
	}

	if len(response.Errors) > 0 {
		fmt.Fprintf(writer, "\nErrors:\n")
		for _, e := range response.Errors {
			fmt.Fprintf(writer, "  - %s\n", e)
		}
	}

	s := response.Summary
	fmt.Fprintf(writer, "\nSummary:\n")
	fmt.Fprintf(writer, "  Files analyzed: %d\n", s.FilesAnalyzed)
	fmt.Fprintf(writer, "  Total functions: %d\n", s.TotalFunctions)
	fmt.Fprintf(writer, "  Average complexity: %.2f\n", s.AverageComplexity)
	fmt.Fprintf(writer, "  Max complexity: %d\n", s.MaxComplexity)
	fmt.Fprintf(writer, "  Max cognitive complexity: %d\n", s.MaxCognitive)
	return nil
}
