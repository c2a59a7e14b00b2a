package analyzer

import "github.com/gilad12-coder/agentic-tdd/internal/parser"

var debuggerModules = map[string]bool{"pdb": true, "ipdb": true, "pudb": true}

// DebuggerStatements returns the line of every breakpoint() call and every
// import of pdb, ipdb or pudb
func DebuggerStatements(module *parser.Node) []int {
	var lines []int
	module.WalkBreadthFirst(func(n *parser.Node) {
		switch n.Type {
		case parser.NodeCall:
			if n.IsNameCall("breakpoint") {
				lines = append(lines, n.Line())
			}
		case parser.NodeImport:
			for _, alias := range n.Names {
				if debuggerModules[alias.Name] {
					lines = append(lines, n.Line())
					break
				}
			}
		case parser.NodeImportFrom:
			if debuggerModules[n.Module] {
				lines = append(lines, n.Line())
			}
		}
	})
	return lines
}

// NestedImports returns the line of every import statement inside a
// function body. An import in a nested function is reported once for each
// enclosing function.
func NestedImports(module *parser.Node) []int {
	var lines []int
	module.WalkBreadthFirst(func(fn *parser.Node) {
		if !fn.IsFunction() {
			return
		}
		fn.WalkBreadthFirst(func(n *parser.Node) {
			if n.Type == parser.NodeImport || n.Type == parser.NodeImportFrom {
				lines = append(lines, n.Line())
			}
		})
	})
	return lines
}

// UnannotatedFunctions returns functions missing a return annotation or an
// annotation on any positional parameter other than self and cls
func UnannotatedFunctions(module *parser.Node) []string {
	var names []string
	module.WalkBreadthFirst(func(n *parser.Node) {
		if !n.IsFunction() {
			return
		}
		if n.Returns == nil {
			names = append(names, n.Name)
			return
		}
		for _, param := range n.ExplicitParams() {
			if param.Annotation == nil {
				names = append(names, n.Name)
				return
			}
		}
	})
	return names
}
