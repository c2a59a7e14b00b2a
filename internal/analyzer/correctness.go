package analyzer

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/gilad12-coder/agentic-tdd/internal/parser"
)

// BareExcepts returns the line of every `except:` without an exception type
func BareExcepts(module *parser.Node) []int {
	return handlerLines(module, func(h *parser.Node) bool {
		return h.ExcType == nil
	})
}

// TryExceptPass returns the line of every handler whose body is only `pass`
func TryExceptPass(module *parser.Node) []int {
	return handlerLines(module, func(h *parser.Node) bool {
		return len(h.Body) == 1 && h.Body[0].Type == parser.NodePass
	})
}

func handlerLines(module *parser.Node, pred func(handler *parser.Node) bool) []int {
	var lines []int
	module.WalkBreadthFirst(func(n *parser.Node) {
		if n.Type == parser.NodeExceptHandler && pred(n) {
			lines = append(lines, n.Line())
		}
	})
	return lines
}

// ReturnInFinally returns the line of every return, break or continue inside
// a finally block. Definitions nested in the block are not entered.
func ReturnInFinally(module *parser.Node) []int {
	var lines []int
	module.WalkBreadthFirst(func(n *parser.Node) {
		if n.Type != parser.NodeTry {
			return
		}
		for _, stmt := range n.Finalbody {
			stmt.Walk(func(child *parser.Node) bool {
				switch child.Type {
				case parser.NodeFunctionDef:
					return false
				case parser.NodeReturn, parser.NodeBreak, parser.NodeContinue:
					lines = append(lines, child.Line())
				}
				return true
			})
		}
	})
	return lines
}

// UnreachableCode returns the line of the statement directly following a
// return, raise, break or continue in the same block
func UnreachableCode(module *parser.Node) []int {
	var lines []int
	module.WalkBreadthFirst(func(n *parser.Node) {
		for _, block := range [][]*parser.Node{n.Body, n.Orelse, n.Finalbody} {
			for i, stmt := range block {
				if stmt.IsTerminal() && i < len(block)-1 {
					lines = append(lines, block[i+1].Line())
				}
			}
		}
	})
	return lines
}

// DuplicateDictKeys returns the line of every literal key already seen in
// the same dict display. Keys compare by value, so 1, 1.0 and True collide.
func DuplicateDictKeys(module *parser.Node) []int {
	var lines []int
	module.WalkBreadthFirst(func(n *parser.Node) {
		if n.Type != parser.NodeDict {
			return
		}
		seen := make(map[string]bool)
		for _, key := range n.Keys {
			k, ok := constantKey(key)
			if !ok {
				continue
			}
			if seen[k] {
				lines = append(lines, key.Line())
				continue
			}
			seen[k] = true
		}
	})
	return lines
}

// constantKey maps a literal to a string that is equal for equal values
func constantKey(n *parser.Node) (string, bool) {
	if n == nil || n.Type != parser.NodeConstant {
		return "", false
	}
	switch n.Kind {
	case parser.ConstStr:
		return "s:" + n.StringValue(), true
	case parser.ConstBytes:
		return "b:" + n.StringValue(), true
	case parser.ConstBool:
		if v, _ := n.Value.(bool); v {
			return "n:1", true
		}
		return "n:0", true
	case parser.ConstInt:
		if v, ok := n.Value.(*big.Int); ok {
			return "n:" + v.String(), true
		}
	case parser.ConstFloat:
		if f, ok := n.Value.(float64); ok {
			return floatKey(f), true
		}
		return "f:" + n.Raw, true
	case parser.ConstComplex:
		imag := strings.TrimSuffix(n.StringValue(), "j")
		if f, err := strconv.ParseFloat(imag, 64); err == nil {
			if f == 0 {
				return "n:0", true
			}
			return "c:" + strconv.FormatFloat(f, 'g', -1, 64), true
		}
		return "c:" + imag, true
	case parser.ConstNone:
		return "none", true
	case parser.ConstEllipsis:
		return "ellipsis", true
	}
	return "", false
}

func floatKey(f float64) string {
	if !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) {
		i, _ := new(big.Float).SetFloat64(f).Int(nil)
		return "n:" + i.String()
	}
	return "f:" + strconv.FormatFloat(f, 'g', -1, 64)
}

// LoopVariableClosures returns the line of every lambda or def inside a for
// loop that reads a loop variable without binding it as a parameter default
func LoopVariableClosures(module *parser.Node) []int {
	var lines []int
	module.WalkBreadthFirst(func(loop *parser.Node) {
		if loop.Type != parser.NodeFor {
			return
		}
		loopVars := make(map[string]bool)
		collectTargetNames(loop.Target, loopVars)
		if len(loopVars) == 0 {
			return
		}

		loop.WalkBreadthFirst(func(closure *parser.Node) {
			if closure == loop || (closure.Type != parser.NodeLambda && closure.Type != parser.NodeFunctionDef) {
				return
			}
			if capturesLoopVariable(closure, loopVars) {
				lines = append(lines, closure.Line())
			}
		})
	})
	return lines
}

func collectTargetNames(target *parser.Node, names map[string]bool) {
	if target == nil {
		return
	}
	switch target.Type {
	case parser.NodeName:
		names[target.Name] = true
	case parser.NodeTuple, parser.NodeList:
		for _, elt := range target.Elts {
			collectTargetNames(elt, names)
		}
	case parser.NodeStarred:
		collectTargetNames(target.Expr, names)
	}
}

func capturesLoopVariable(closure *parser.Node, loopVars map[string]bool) bool {
	bound := make(map[string]bool)
	for _, param := range closure.Params {
		if param.Default != nil {
			bound[param.Name] = true
		}
	}

	captured := false
	closure.Walk(func(n *parser.Node) bool {
		if n.Type == parser.NodeName && loopVars[n.Name] && !bound[n.Name] {
			captured = true
		}
		return !captured
	})
	return captured
}

// immutableFactories are calls that are fine as parameter defaults
var immutableFactories = map[string]bool{
	"frozenset": true,
	"tuple":     true,
	"bytes":     true,
	"int":       true,
	"float":     true,
	"str":       true,
	"bool":      true,
	"complex":   true,
	"Field":     true,
	"field":     true,
	"dataclass": true,
	"property":  true,
}

// MutableCallDefaults returns functions with a call as a parameter default,
// other than calls to known immutable constructors
func MutableCallDefaults(module *parser.Node) []string {
	return functionsWithDefault(module, func(def *parser.Node) bool {
		return def.Type == parser.NodeCall && !immutableFactories[def.CalledName()]
	})
}

// ShadowedBuiltins returns, once each, the built-in names reused as a def
// name or a plain assignment target
func ShadowedBuiltins(module *parser.Node) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if IsBuiltin(name) && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	module.WalkBreadthFirst(func(n *parser.Node) {
		switch n.Type {
		case parser.NodeFunctionDef:
			add(n.Name)
		case parser.NodeAssign:
			for _, target := range n.Targets {
				if target.Type == parser.NodeName {
					add(target.Name)
				}
			}
		}
	})
	return names
}

// OpenWithoutWith returns the line of every open(...) call that is not the
// context expression of a with item
func OpenWithoutWith(module *parser.Node) []int {
	managed := make(map[*parser.Node]bool)
	module.Walk(func(n *parser.Node) bool {
		if n.Type == parser.NodeWithItem && n.Expr != nil {
			managed[n.Expr] = true
		}
		return true
	})

	return callLines(module, func(call *parser.Node) bool {
		return call.IsNameCall("open") && !managed[call]
	})
}
