package analyzer

import (
	"fmt"

	"github.com/gilad12-coder/agentic-tdd/internal/parser"
)

// ComplexityResult holds cyclomatic complexity metrics for a function or method
type ComplexityResult struct {
	Complexity        int
	FunctionName      string
	StartLine         int
	EndLine           int
	IfStatements      int
	LoopStatements    int
	ExceptionHandlers int
	MatchCases        int
	LogicalOperators  int
	TernaryOperators  int
	Comprehensions    int
	Assertions        int
}

func (cr *ComplexityResult) GetComplexity() int      { return cr.Complexity }
func (cr *ComplexityResult) GetFunctionName() string { return cr.FunctionName }

func (cr *ComplexityResult) GetDetailedMetrics() map[string]int {
	return map[string]int{
		"if_statements":      cr.IfStatements,
		"loop_statements":    cr.LoopStatements,
		"exception_handlers": cr.ExceptionHandlers,
		"match_cases":        cr.MatchCases,
		"logical_operators":  cr.LogicalOperators,
		"ternary_operators":  cr.TernaryOperators,
		"comprehensions":     cr.Comprehensions,
		"assertions":         cr.Assertions,
	}
}

func (cr *ComplexityResult) String() string {
	return fmt.Sprintf("Function: %s, Complexity: %d", cr.FunctionName, cr.Complexity)
}

// CalculateComplexity computes the cyclomatic complexity of one function.
//
// Counting starts at 1 and adds one per decision point found in the body:
// if/elif, conditional expressions, loops (plus their else), except
// handlers (plus a try-else), every extra operand of and/or, every
// comprehension generator and its filters, every assert, and every
// refutable match case.
// Nested functions and classes are scored on their own.
func CalculateComplexity(fn *parser.Node) *ComplexityResult {
	if fn == nil {
		return &ComplexityResult{Complexity: 0}
	}

	result := &ComplexityResult{
		Complexity:   1,
		FunctionName: fn.Name,
		StartLine:    fn.Location.StartLine,
		EndLine:      fn.Location.EndLine,
	}

	for _, stmt := range fn.Body {
		stmt.Walk(func(n *parser.Node) bool {
			switch n.Type {
			case parser.NodeFunctionDef, parser.NodeClassDef:
				return false
			case parser.NodeIf:
				result.IfStatements++
				result.Complexity++
			case parser.NodeIfExp:
				result.TernaryOperators++
				result.Complexity++
			case parser.NodeFor, parser.NodeWhile:
				result.LoopStatements++
				result.Complexity++
				if len(n.Orelse) > 0 {
					result.Complexity++
				}
			case parser.NodeTry:
				result.ExceptionHandlers += len(n.Handlers)
				result.Complexity += len(n.Handlers)
				if len(n.Orelse) > 0 {
					result.Complexity++
				}
			case parser.NodeBoolOp:
				if len(n.Elts) > 1 {
					result.LogicalOperators += len(n.Elts) - 1
					result.Complexity += len(n.Elts) - 1
				}
			case parser.NodeComprehension:
				result.Comprehensions++
				result.Complexity += 1 + len(n.Ifs)
			case parser.NodeAssert:
				result.Assertions++
				result.Complexity++
			case parser.NodeMatch:
				result.Complexity += refutableCases(n)
				result.MatchCases += len(n.Cases)
			}
			return true
		})
	}

	return result
}

// refutableCases counts match cases, discounting one irrefutable catch-all
func refutableCases(match *parser.Node) int {
	count := len(match.Cases)
	for _, c := range match.Cases {
		if c.Operator == "_" {
			count--
			break
		}
	}
	if count < 0 {
		return 0
	}
	return count
}

// CalculateFileComplexity scores every function in the module, methods and
// nested functions included
func CalculateFileComplexity(module *parser.Node) []*ComplexityResult {
	var results []*ComplexityResult
	for _, fn := range Functions(module) {
		results = append(results, CalculateComplexity(fn))
	}
	return results
}

// MaxCyclomaticComplexity returns the highest function complexity, or 1 when
// the module defines no functions
func MaxCyclomaticComplexity(module *parser.Node) int {
	maxComplexity := 1
	for _, result := range CalculateFileComplexity(module) {
		if result.Complexity > maxComplexity {
			maxComplexity = result.Complexity
		}
	}
	return maxComplexity
}

// Functions returns every def and async def in the module in source order
func Functions(module *parser.Node) []*parser.Node {
	var functions []*parser.Node
	module.Walk(func(n *parser.Node) bool {
		if n.IsFunction() {
			functions = append(functions, n)
		}
		return true
	})
	return functions
}
