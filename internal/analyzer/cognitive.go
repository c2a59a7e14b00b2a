package analyzer

import "github.com/gilad12-coder/agentic-tdd/internal/parser"

// CognitiveComplexity scores how hard a function is to follow.
//
// Structural statements (if, loops, except handlers, conditional
// expressions) cost 1 plus the current nesting level; elif and else cost a
// flat 1; each and/or chain costs 1; break and continue cost 1. Entering a
// loop body, an if/elif/else body, a handler body or a nested function or
// lambda raises the nesting level. The if condition itself is not scored.
func CognitiveComplexity(fn *parser.Node) int {
	return cognitiveChildren(fn, 0)
}

// MaxCognitiveComplexity returns the highest cognitive complexity over all
// functions, 0 when there are none
func MaxCognitiveComplexity(module *parser.Node) int {
	highest := 0
	for _, fn := range Functions(module) {
		if score := CognitiveComplexity(fn); score > highest {
			highest = score
		}
	}
	return highest
}

func cognitiveChildren(node *parser.Node, nesting int) int {
	total := 0
	for _, child := range node.Children {
		total += cognitiveNode(child, nesting)
	}
	return total
}

func cognitiveStatements(stmts []*parser.Node, nesting int) int {
	total := 0
	for _, stmt := range stmts {
		total += cognitiveNode(stmt, nesting)
	}
	return total
}

func cognitiveNode(node *parser.Node, nesting int) int {
	switch node.Type {
	case parser.NodeIf:
		return cognitiveIf(node, nesting)
	case parser.NodeFor, parser.NodeWhile:
		return 1 + nesting + cognitiveChildren(node, nesting+1)
	case parser.NodeBoolOp:
		return 1 + cognitiveChildren(node, nesting)
	case parser.NodeIfExp:
		return 1 + nesting + cognitiveChildren(node, nesting)
	case parser.NodeTry:
		total := cognitiveStatements(node.Body, nesting)
		for _, handler := range node.Handlers {
			total += 1 + nesting + cognitiveStatements(handler.Body, nesting+1)
		}
		total += cognitiveStatements(node.Orelse, nesting)
		total += cognitiveStatements(node.Finalbody, nesting)
		return total
	case parser.NodeBreak, parser.NodeContinue:
		return 1
	case parser.NodeFunctionDef, parser.NodeLambda:
		return cognitiveChildren(node, nesting+1)
	}
	return cognitiveChildren(node, nesting)
}

func cognitiveIf(node *parser.Node, nesting int) int {
	return 1 + nesting + cognitiveStatements(node.Body, nesting+1) + cognitiveElse(node, nesting)
}

// cognitiveElse scores the orelse of an if: an elif chain costs a flat 1 per
// link, a final else costs 1
func cognitiveElse(node *parser.Node, nesting int) int {
	if len(node.Orelse) == 0 {
		return 0
	}
	if len(node.Orelse) == 1 && node.Orelse[0].Type == parser.NodeIf {
		elif := node.Orelse[0]
		return 1 + cognitiveStatements(elif.Body, nesting+1) + cognitiveElse(elif, nesting)
	}
	return 1 + cognitiveStatements(node.Orelse, nesting+1)
}
