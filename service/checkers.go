package service

import (
	"fmt"

	"github.com/gilad12-coder/agentic-tdd/domain"
	"github.com/gilad12-coder/agentic-tdd/internal/analyzer"
	"github.com/gilad12-coder/agentic-tdd/internal/parser"
)

// checkers is the fixed evaluation order. Metric keys and violation wording
// are part of the output contract.
var checkers = []checker{
	threshold("cyclomatic_complexity", "cyclomatic_complexity",
		func(cs domain.ConstraintSet) *int { return cs.MaxCyclomaticComplexity },
		func(in *checkInput) int { return analyzer.MaxCyclomaticComplexity(in.tree) },
		"Cyclomatic complexity %d > max %d"),
	threshold("lines_per_function", "lines_per_function",
		func(cs domain.ConstraintSet) *int { return cs.MaxLinesPerFunction },
		func(in *checkInput) int { return analyzer.MaxFunctionLines(in.tree) },
		"Function has %d lines > max %d"),
	threshold("total_lines", "total_lines",
		func(cs domain.ConstraintSet) *int { return cs.MaxTotalLines },
		func(in *checkInput) int { return analyzer.TotalLines(in.source) },
		"Total lines %d > max %d"),
	{Name: "docstrings", Run: checkDocstrings},
	{Name: "time_complexity", Run: checkTimeComplexity},
	threshold("parameters", "max_parameters",
		func(cs domain.ConstraintSet) *int { return cs.MaxParameters },
		func(in *checkInput) int { return analyzer.MaxParameters(in.tree) },
		"Function has %d parameters > max %d"),
	threshold("nested_depth", "max_nested_depth",
		func(cs domain.ConstraintSet) *int { return cs.MaxNestedDepth },
		func(in *checkInput) int { return analyzer.MaxNestingDepth(in.tree) },
		"Nesting depth %d > max %d"),
	threshold("return_statements", "max_return_statements",
		func(cs domain.ConstraintSet) *int { return cs.MaxReturnStatements },
		func(in *checkInput) int { return analyzer.MaxReturnStatements(in.tree) },
		"Function has %d return statements > max %d"),
	lineToggle("print_statements", "print_statements",
		func(cs domain.ConstraintSet) *bool { return cs.NoPrintStatements },
		analyzer.PrintCalls, "Print statement at line %d"),
	nameToggle("star_imports", "star_imports",
		func(cs domain.ConstraintSet) *bool { return cs.NoStarImports },
		analyzer.StarImports, "Star import: from %s import *"),
	nameToggle("mutable_defaults", "mutable_defaults",
		func(cs domain.ConstraintSet) *bool { return cs.NoMutableDefaults },
		analyzer.MutableDefaults, "Mutable default argument in %s"),
	nameToggle("global_state", "global_state",
		func(cs domain.ConstraintSet) *bool { return cs.NoGlobalState },
		analyzer.GlobalState, "Global mutable state: %s"),
	{Name: "allowed_imports", Run: checkAllowedImports},
	lineToggle("bare_except", "bare_excepts",
		func(cs domain.ConstraintSet) *bool { return cs.NoBareExcept },
		analyzer.BareExcepts, "Bare except at line %d"),
	lineToggle("try_except_pass", "try_except_pass",
		func(cs domain.ConstraintSet) *bool { return cs.NoTryExceptPass },
		analyzer.TryExceptPass, "Silenced exception (except/pass) at line %d"),
	lineToggle("return_in_finally", "return_in_finally",
		func(cs domain.ConstraintSet) *bool { return cs.NoReturnInFinally },
		analyzer.ReturnInFinally, "Return/break/continue in finally block at line %d"),
	lineToggle("unreachable_code", "unreachable_code",
		func(cs domain.ConstraintSet) *bool { return cs.NoUnreachableCode },
		analyzer.UnreachableCode, "Unreachable code at line %d"),
	lineToggle("duplicate_dict_keys", "duplicate_dict_keys",
		func(cs domain.ConstraintSet) *bool { return cs.NoDuplicateDictKeys },
		analyzer.DuplicateDictKeys, "Duplicate dictionary key at line %d"),
	lineToggle("loop_variable_closures", "loop_variable_closures",
		func(cs domain.ConstraintSet) *bool { return cs.NoLoopVariableClosure },
		analyzer.LoopVariableClosures, "Closure captures loop variable at line %d"),
	nameToggle("mutable_call_defaults", "mutable_call_defaults",
		func(cs domain.ConstraintSet) *bool { return cs.NoMutableCallInDefaults },
		analyzer.MutableCallDefaults, "Function call in default argument in %s"),
	nameToggle("shadowed_builtins", "shadowed_builtins",
		func(cs domain.ConstraintSet) *bool { return cs.NoShadowingBuiltins },
		analyzer.ShadowedBuiltins, "Shadows builtin: %s"),
	lineToggle("open_without_with", "open_without_with",
		func(cs domain.ConstraintSet) *bool { return cs.NoOpenWithoutContextManager },
		analyzer.OpenWithoutWith, "open() without context manager at line %d"),
	lineToggle("eval", "eval_calls",
		func(cs domain.ConstraintSet) *bool { return cs.NoEval },
		analyzer.EvalCalls, "eval() call at line %d"),
	lineToggle("exec", "exec_calls",
		func(cs domain.ConstraintSet) *bool { return cs.NoExec },
		analyzer.ExecCalls, "exec() call at line %d"),
	lineToggle("unsafe_deserialization", "unsafe_deserialization",
		func(cs domain.ConstraintSet) *bool { return cs.NoUnsafeDeserialization },
		analyzer.UnsafeDeserialization, "Unsafe deserialization at line %d"),
	lineToggle("unsafe_yaml", "unsafe_yaml",
		func(cs domain.ConstraintSet) *bool { return cs.NoUnsafeYAML },
		analyzer.UnsafeYAML, "Unsafe yaml.load() without SafeLoader at line %d"),
	lineToggle("shell_true", "shell_true",
		func(cs domain.ConstraintSet) *bool { return cs.NoShellTrue },
		analyzer.ShellTrue, "subprocess with shell=True at line %d"),
	nameToggle("hardcoded_secrets", "hardcoded_secrets",
		func(cs domain.ConstraintSet) *bool { return cs.NoHardcodedSecrets },
		analyzer.HardcodedSecrets, "Hardcoded secret in variable: %s"),
	lineToggle("requests_timeout", "requests_no_timeout",
		func(cs domain.ConstraintSet) *bool { return cs.NoRequestsWithoutTimeout },
		analyzer.RequestsWithoutTimeout, "HTTP request without timeout at line %d"),
	threshold("cognitive_complexity", "cognitive_complexity",
		func(cs domain.ConstraintSet) *int { return cs.MaxCognitiveComplexity },
		func(in *checkInput) int { return analyzer.MaxCognitiveComplexity(in.tree) },
		"Cognitive complexity %d > max %d"),
	threshold("local_variables", "max_local_variables",
		func(cs domain.ConstraintSet) *int { return cs.MaxLocalVariables },
		func(in *checkInput) int { return analyzer.MaxLocalVariables(in.tree) },
		"Function has %d local variables > max %d"),
	lineToggle("debugger_statements", "debugger_statements",
		func(cs domain.ConstraintSet) *bool { return cs.NoDebuggerStatements },
		analyzer.DebuggerStatements, "Debugger statement at line %d"),
	lineToggle("nested_imports", "nested_imports",
		func(cs domain.ConstraintSet) *bool { return cs.NoNestedImports },
		analyzer.NestedImports, "Nested import at line %d"),
	nameToggle("type_annotations", "unannotated_functions",
		func(cs domain.ConstraintSet) *bool { return cs.RequireTypeAnnotations },
		analyzer.UnannotatedFunctions, "Missing type annotations in %s"),
}

// threshold builds a checker comparing an integer metric against a maximum
func threshold(name, key string, limit func(domain.ConstraintSet) *int, measure func(*checkInput) int, format string) checker {
	return checker{Name: name, Run: func(in *checkInput) checkOutcome {
		maxValue := limit(in.cs)
		if maxValue == nil {
			return checkOutcome{}
		}
		value := measure(in)
		outcome := checkOutcome{Ran: true, MetricKey: key, Value: value}
		if value > *maxValue {
			outcome.Violations = []string{fmt.Sprintf(format, value, *maxValue)}
		}
		return outcome
	}}
}

// lineToggle builds a checker reporting one violation per flagged line
func lineToggle(name, key string, enabled func(domain.ConstraintSet) *bool, detect func(*parser.Node) []int, format string) checker {
	return checker{Name: name, Run: func(in *checkInput) checkOutcome {
		if !isOn(enabled(in.cs)) {
			return checkOutcome{}
		}
		lines := detect(in.tree)
		if lines == nil {
			lines = []int{}
		}
		outcome := checkOutcome{Ran: true, MetricKey: key, Value: lines}
		for _, line := range lines {
			outcome.Violations = append(outcome.Violations, fmt.Sprintf(format, line))
		}
		return outcome
	}}
}

// nameToggle builds a checker reporting one violation per flagged name
func nameToggle(name, key string, enabled func(domain.ConstraintSet) *bool, detect func(*parser.Node) []string, format string) checker {
	return checker{Name: name, Run: func(in *checkInput) checkOutcome {
		if !isOn(enabled(in.cs)) {
			return checkOutcome{}
		}
		names := detect(in.tree)
		if names == nil {
			names = []string{}
		}
		outcome := checkOutcome{Ran: true, MetricKey: key, Value: names}
		for _, n := range names {
			outcome.Violations = append(outcome.Violations, fmt.Sprintf(format, n))
		}
		return outcome
	}}
}

func isOn(flag *bool) bool {
	return flag != nil && *flag
}

func checkDocstrings(in *checkInput) checkOutcome {
	if !isOn(in.cs.RequireDocstrings) {
		return checkOutcome{}
	}
	issues := analyzer.DocstringIssues(in.tree)
	if issues == nil {
		issues = []string{}
	}
	return checkOutcome{
		Ran:        true,
		MetricKey:  "missing_docstrings",
		Value:      issues,
		Violations: append([]string(nil), issues...),
	}
}

func checkTimeComplexity(in *checkInput) checkOutcome {
	if in.cs.MaxTimeComplexity == nil {
		return checkOutcome{}
	}
	limit := *in.cs.MaxTimeComplexity
	estimated := analyzer.EstimateTimeComplexity(in.tree)
	outcome := checkOutcome{Ran: true, MetricKey: "time_complexity", Value: estimated}
	if analyzer.ComplexityRank(estimated) > analyzer.ComplexityRank(limit) {
		outcome.Violations = []string{fmt.Sprintf("Time complexity %s exceeds max %s", estimated, limit)}
	}
	return outcome
}

// checkAllowedImports runs whenever an allow-list is present, even an empty one
func checkAllowedImports(in *checkInput) checkOutcome {
	if in.cs.AllowedImports == nil {
		return checkOutcome{}
	}
	forbidden := analyzer.ForbiddenImports(in.tree, in.cs.AllowedImports)
	if forbidden == nil {
		forbidden = []string{}
	}
	outcome := checkOutcome{Ran: true, MetricKey: "forbidden_imports", Value: forbidden}
	for _, imp := range forbidden {
		outcome.Violations = append(outcome.Violations, "Forbidden import: "+imp)
	}
	return outcome
}
