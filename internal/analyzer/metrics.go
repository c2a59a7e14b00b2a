package analyzer

import (
	"fmt"

	"github.com/gilad12-coder/agentic-tdd/internal/parser"
)

// TotalLines counts lines the way str.splitlines does: a trailing line
// break does not open a new line, and \r\n counts once
func TotalLines(source []byte) int {
	text := []rune(string(source))
	lines := 0
	start := 0
	for i := 0; i < len(text); i++ {
		if !isLineBreak(text[i]) {
			continue
		}
		if text[i] == '\r' && i+1 < len(text) && text[i+1] == '\n' {
			i++
		}
		lines++
		start = i + 1
	}
	if start < len(text) {
		lines++
	}
	return lines
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

// FunctionLines is the inclusive line span of a def, decorators excluded
func FunctionLines(fn *parser.Node) int {
	return fn.Location.EndLine - fn.Location.StartLine + 1
}

// MaxFunctionLines returns the longest function span, 0 when there are none
func MaxFunctionLines(module *parser.Node) int {
	longest := 0
	for _, fn := range Functions(module) {
		longest = max(longest, FunctionLines(fn))
	}
	return longest
}

// NestingDepth is the deepest chain of if/for/while/try/with blocks inside a
// function. Blocks inside nested functions still count toward it.
func NestingDepth(fn *parser.Node) int {
	return blockDepth(fn, 0, isNestingBlock)
}

// MaxNestingDepth returns the deepest nesting over all functions
func MaxNestingDepth(module *parser.Node) int {
	deepest := 0
	for _, fn := range Functions(module) {
		deepest = max(deepest, NestingDepth(fn))
	}
	return deepest
}

// LoopDepth is the deepest chain of for/while loops inside a function
func LoopDepth(fn *parser.Node) int {
	return blockDepth(fn, 0, isLoop)
}

// MaxLoopDepth returns the deepest loop nesting over all functions
func MaxLoopDepth(module *parser.Node) int {
	deepest := 0
	for _, fn := range Functions(module) {
		deepest = max(deepest, LoopDepth(fn))
	}
	return deepest
}

func blockDepth(node *parser.Node, depth int, counts func(*parser.Node) bool) int {
	deepest := depth
	for _, child := range node.Children {
		childDepth := depth
		if counts(child) {
			childDepth++
		}
		deepest = max(deepest, blockDepth(child, childDepth, counts))
	}
	return deepest
}

func isNestingBlock(n *parser.Node) bool {
	switch n.Type {
	case parser.NodeIf, parser.NodeFor, parser.NodeWhile, parser.NodeTry, parser.NodeWith:
		return true
	}
	return false
}

func isLoop(n *parser.Node) bool {
	return n.Type == parser.NodeFor || n.Type == parser.NodeWhile
}

var complexityRanks = map[string]int{
	"O(1)":       0,
	"O(log n)":   1,
	"O(n)":       2,
	"O(n log n)": 3,
	"O(n^2)":     4,
	"O(n^3)":     5,
	"O(2^n)":     6,
}

// unknownComplexityRank orders unrecognized labels after every known class
const unknownComplexityRank = 7

// ComplexityRank orders a big-O label. Labels outside the known table rank
// above all of them.
func ComplexityRank(label string) int {
	if rank, ok := complexityRanks[label]; ok {
		return rank
	}
	return unknownComplexityRank
}

// EstimateTimeComplexity derives a big-O label from the deepest loop
// nesting. It is a heuristic: a single loop reads as O(n) whatever it
// iterates over, and recursion is not considered.
func EstimateTimeComplexity(module *parser.Node) string {
	return TimeComplexityLabel(MaxLoopDepth(module))
}

// TimeComplexityLabel maps a loop nesting depth to its big-O label
func TimeComplexityLabel(depth int) string {
	switch depth {
	case 0:
		return "O(1)"
	case 1:
		return "O(n)"
	case 2:
		return "O(n^2)"
	case 3:
		return "O(n^3)"
	default:
		return fmt.Sprintf("O(n^%d)", depth)
	}
}

// MaxParameters returns the largest positional parameter count over all
// functions, ignoring self and cls. *args, **kwargs and keyword-only
// parameters are not counted.
func MaxParameters(module *parser.Node) int {
	most := 0
	for _, fn := range Functions(module) {
		most = max(most, len(fn.ExplicitParams()))
	}
	return most
}

// ReturnStatements counts return statements in a function's own body
func ReturnStatements(fn *parser.Node) int {
	count := 0
	fn.WalkScope(func(n *parser.Node) bool {
		if n.Type == parser.NodeReturn {
			count++
		}
		return true
	})
	return count
}

// MaxReturnStatements returns the most return statements in any function
func MaxReturnStatements(module *parser.Node) int {
	most := 0
	for _, fn := range Functions(module) {
		most = max(most, ReturnStatements(fn))
	}
	return most
}

// LocalVariables returns the distinct names a function binds by plain
// assignment (targets, loop variables, with-as, walrus), excluding its
// parameters. Nested function bodies contribute too.
func LocalVariables(fn *parser.Node) []string {
	params := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		params[p.Name] = true
	}

	seen := make(map[string]bool)
	var names []string
	for _, child := range fn.Children {
		child.Walk(func(n *parser.Node) bool {
			if n.Type == parser.NodeName && n.Store && !params[n.Name] && !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
			return true
		})
	}
	return names
}

// MaxLocalVariables returns the most locals bound by any function
func MaxLocalVariables(module *parser.Node) int {
	most := 0
	for _, fn := range Functions(module) {
		most = max(most, len(LocalVariables(fn)))
	}
	return most
}
