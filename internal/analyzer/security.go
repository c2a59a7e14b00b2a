package analyzer

import (
	"strings"

	"github.com/gilad12-coder/agentic-tdd/internal/parser"
)

// EvalCalls returns the line of every eval(...) call
func EvalCalls(module *parser.Node) []int {
	return callLines(module, func(call *parser.Node) bool {
		return call.IsNameCall("eval")
	})
}

// ExecCalls returns the line of every exec(...) call
func ExecCalls(module *parser.Node) []int {
	return callLines(module, func(call *parser.Node) bool {
		return call.IsNameCall("exec")
	})
}

var (
	deserializerModules = map[string]bool{"pickle": true, "marshal": true}
	deserializerAttrs   = map[string]bool{"load": true, "loads": true, "Unpickler": true}
)

// UnsafeDeserialization returns the line of every pickle or marshal
// load/loads/Unpickler call
func UnsafeDeserialization(module *parser.Node) []int {
	return callLines(module, func(call *parser.Node) bool {
		receiver, attr, ok := call.AttributeCall()
		return ok && deserializerModules[receiver] && deserializerAttrs[attr]
	})
}

// UnsafeYAML returns the line of every yaml.load(...) call without a Loader
// keyword
func UnsafeYAML(module *parser.Node) []int {
	return callLines(module, func(call *parser.Node) bool {
		receiver, attr, ok := call.AttributeCall()
		return ok && receiver == "yaml" && attr == "load" && call.Keyword("Loader") == nil
	})
}

// ShellTrue returns the line of every call passing the literal shell=True
func ShellTrue(module *parser.Node) []int {
	return callLines(module, func(call *parser.Node) bool {
		kw := call.Keyword("shell")
		if kw == nil || kw.Expr == nil {
			return false
		}
		value := kw.Expr
		return value.Type == parser.NodeConstant && value.Kind == parser.ConstBool && value.Value == true
	})
}

var secretNames = map[string]bool{
	"password":    true,
	"passwd":      true,
	"secret":      true,
	"token":       true,
	"api_key":     true,
	"apikey":      true,
	"access_key":  true,
	"secret_key":  true,
	"private_key": true,
}

// HardcodedSecrets returns every variable with a credential-like name that
// is assigned a string literal
func HardcodedSecrets(module *parser.Node) []string {
	var names []string
	module.WalkBreadthFirst(func(n *parser.Node) {
		if n.Type != parser.NodeAssign || !n.Expr.IsStringConstant() {
			return
		}
		for _, target := range n.Targets {
			if target.Type == parser.NodeName && secretNames[strings.ToLower(target.Name)] {
				names = append(names, target.Name)
			}
		}
	})
	return names
}

var httpVerbs = map[string]bool{
	"get":     true,
	"post":    true,
	"put":     true,
	"delete":  true,
	"patch":   true,
	"head":    true,
	"options": true,
}

// RequestsWithoutTimeout returns the line of every requests.<verb>(...) call
// without a timeout keyword
func RequestsWithoutTimeout(module *parser.Node) []int {
	return callLines(module, func(call *parser.Node) bool {
		receiver, attr, ok := call.AttributeCall()
		return ok && receiver == "requests" && httpVerbs[attr] && call.Keyword("timeout") == nil
	})
}
