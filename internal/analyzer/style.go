package analyzer

import (
	"strings"

	"github.com/gilad12-coder/agentic-tdd/internal/parser"
)

// DocstringIssues reports defs and classes without a docstring, and functions
// whose docstring lacks an Args: section (when they take parameters) or a
// Returns: section (when they return a value). Each definition yields at
// most one issue.
func DocstringIssues(module *parser.Node) []string {
	var issues []string
	module.WalkBreadthFirst(func(n *parser.Node) {
		if n.Type != parser.NodeFunctionDef && n.Type != parser.NodeClassDef {
			return
		}
		doc, ok := n.Docstring()
		if !ok {
			issues = append(issues, "Missing docstring: "+n.Name)
			return
		}
		if n.Type == parser.NodeClassDef {
			return
		}
		if len(n.ExplicitParams()) > 0 && !strings.Contains(doc, "Args:") {
			issues = append(issues, n.Name+": missing Args section in docstring")
		} else if returnsValue(n) && !strings.Contains(doc, "Returns:") {
			issues = append(issues, n.Name+": missing Returns section in docstring")
		}
	})
	return issues
}

// returnsValue reports a `return <value>` anywhere under fn, nested defs included
func returnsValue(fn *parser.Node) bool {
	found := false
	fn.Walk(func(n *parser.Node) bool {
		if n.Type == parser.NodeReturn && n.Expr != nil {
			found = true
		}
		return !found
	})
	return found
}

// PrintCalls returns the line of every print(...) call
func PrintCalls(module *parser.Node) []int {
	return callLines(module, func(call *parser.Node) bool {
		return call.IsNameCall("print")
	})
}

// StarImports returns the module of every `from X import *`. Relative
// imports without a module name report "".
func StarImports(module *parser.Node) []string {
	var modules []string
	module.WalkBreadthFirst(func(n *parser.Node) {
		if n.Type != parser.NodeImportFrom {
			return
		}
		for _, alias := range n.Names {
			if alias.Name == "*" {
				modules = append(modules, n.Module)
				break
			}
		}
	})
	return modules
}

// MutableDefaults returns functions with a list, dict or set literal as a
// parameter default
func MutableDefaults(module *parser.Node) []string {
	return functionsWithDefault(module, func(def *parser.Node) bool {
		switch def.Type {
		case parser.NodeList, parser.NodeDict, parser.NodeSet:
			return true
		}
		return false
	})
}

// GlobalState returns module-level names assigned with plain `=` that are
// not UPPER_CASE constants
func GlobalState(module *parser.Node) []string {
	var names []string
	for _, stmt := range module.Body {
		if stmt.Type != parser.NodeAssign {
			continue
		}
		for _, target := range stmt.Targets {
			if target.Type == parser.NodeName && target.Name != strings.ToUpper(target.Name) {
				names = append(names, target.Name)
			}
		}
	}
	return names
}

// ForbiddenImports returns every imported module missing from allowed. Plain
// imports are matched by their full dotted name; from-imports by their
// module, and relative imports with no module are skipped.
func ForbiddenImports(module *parser.Node, allowed []string) []string {
	permitted := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		permitted[name] = true
	}

	var forbidden []string
	module.WalkBreadthFirst(func(n *parser.Node) {
		switch n.Type {
		case parser.NodeImport:
			for _, alias := range n.Names {
				if !permitted[alias.Name] {
					forbidden = append(forbidden, alias.Name)
				}
			}
		case parser.NodeImportFrom:
			if n.Module != "" && !permitted[n.Module] {
				forbidden = append(forbidden, n.Module)
			}
		}
	})
	return forbidden
}

// callLines returns the line of every call matching pred
func callLines(module *parser.Node, pred func(call *parser.Node) bool) []int {
	var lines []int
	module.WalkBreadthFirst(func(n *parser.Node) {
		if n.Type == parser.NodeCall && pred(n) {
			lines = append(lines, n.Line())
		}
	})
	return lines
}

// functionsWithDefault names each function having at least one parameter
// default matching pred
func functionsWithDefault(module *parser.Node, pred func(def *parser.Node) bool) []string {
	var names []string
	module.WalkBreadthFirst(func(n *parser.Node) {
		if !n.IsFunction() {
			return
		}
		for _, param := range n.Params {
			if param.Default != nil && pred(param.Default) {
				names = append(names, n.Name)
				return
			}
		}
	})
	return names
}
