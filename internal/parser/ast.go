package parser

import "fmt"

// NodeType represents the type of AST node
type NodeType string

// Python AST node types. Names follow the CPython ast module so the analyzers
// read like the rules they implement.
const (
	// Module and definitions
	NodeModule      NodeType = "Module"
	NodeFunctionDef NodeType = "FunctionDef"
	NodeClassDef    NodeType = "ClassDef"
	NodeLambda      NodeType = "Lambda"
	NodeArg         NodeType = "arg"
	NodeDecorator   NodeType = "Decorator"

	// Control flow statements
	NodeIf            NodeType = "If"
	NodeFor           NodeType = "For"
	NodeWhile         NodeType = "While"
	NodeTry           NodeType = "Try"
	NodeExceptHandler NodeType = "ExceptHandler"
	NodeWith          NodeType = "With"
	NodeWithItem      NodeType = "withitem"
	NodeMatch         NodeType = "Match"
	NodeMatchCase     NodeType = "match_case"
	NodeReturn        NodeType = "Return"
	NodeRaise         NodeType = "Raise"
	NodeBreak         NodeType = "Break"
	NodeContinue      NodeType = "Continue"
	NodePass          NodeType = "Pass"

	// Simple statements
	NodeAssign     NodeType = "Assign"
	NodeAnnAssign  NodeType = "AnnAssign"
	NodeAugAssign  NodeType = "AugAssign"
	NodeImport     NodeType = "Import"
	NodeImportFrom NodeType = "ImportFrom"
	NodeAlias      NodeType = "alias"
	NodeGlobal     NodeType = "Global"
	NodeNonlocal   NodeType = "Nonlocal"
	NodeAssert     NodeType = "Assert"
	NodeDelete     NodeType = "Delete"
	NodeExpr       NodeType = "Expr"

	// Expressions
	NodeCall          NodeType = "Call"
	NodeKeyword       NodeType = "keyword"
	NodeAttribute     NodeType = "Attribute"
	NodeSubscript     NodeType = "Subscript"
	NodeName          NodeType = "Name"
	NodeConstant      NodeType = "Constant"
	NodeJoinedStr     NodeType = "JoinedStr"
	NodeDict          NodeType = "Dict"
	NodeList          NodeType = "List"
	NodeTuple         NodeType = "Tuple"
	NodeSet           NodeType = "Set"
	NodeStarred       NodeType = "Starred"
	NodeBoolOp        NodeType = "BoolOp"
	NodeIfExp         NodeType = "IfExp"
	NodeNamedExpr     NodeType = "NamedExpr"
	NodeListComp      NodeType = "ListComp"
	NodeSetComp       NodeType = "SetComp"
	NodeDictComp      NodeType = "DictComp"
	NodeGeneratorExp  NodeType = "GeneratorExp"
	NodeComprehension NodeType = "comprehension"
)

// ConstKind classifies a Constant node's literal
type ConstKind string

const (
	ConstStr      ConstKind = "str"
	ConstBytes    ConstKind = "bytes"
	ConstInt      ConstKind = "int"
	ConstFloat    ConstKind = "float"
	ConstComplex  ConstKind = "complex"
	ConstBool     ConstKind = "bool"
	ConstNone     ConstKind = "none"
	ConstEllipsis ConstKind = "ellipsis"
)

// ArgKind is the binding kind of a function parameter
type ArgKind int

const (
	ArgPositionalOnly ArgKind = iota
	ArgPositional
	ArgVarPositional
	ArgKeywordOnly
	ArgVarKeyword
)

// Location represents the position of a node in the source code
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// String returns a string representation of the location
func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.StartLine, l.StartCol)
}

// Node represents an AST node.
//
// Children holds every direct child in source order and is what the walk
// primitives traverse. The named fields below are views into Children for
// the node types that have them.
type Node struct {
	Type     NodeType
	Children []*Node
	Location Location
	Parent   *Node

	// Name is the def/class name, the Name id, the attribute name, the
	// keyword argument name, the parameter name or the imported name.
	Name string

	// Literal payload for Constant nodes
	Value interface{}
	Kind  ConstKind
	Raw   string

	// Statement lists
	Body      []*Node
	Orelse    []*Node
	Finalbody []*Node
	Handlers  []*Node
	Cases     []*Node

	// Function fields
	Params     []*Node
	Decorators []*Node
	Returns    *Node // return annotation
	Async      bool

	// Parameter fields
	ArgKind    ArgKind
	Annotation *Node
	Default    *Node

	// Statement and expression slots
	Test       *Node
	Target     *Node
	Targets    []*Node
	Iter       *Node
	Expr       *Node // value of Return/Assign/Expr/keyword/Attribute/Starred/NamedExpr
	Func       *Node
	Args       []*Node
	Keywords   []*Node
	Keys       []*Node // Dict keys, nil entry for a ** spread
	Elts       []*Node
	Items      []*Node // With items
	Generators []*Node
	Ifs        []*Node
	ExcType    *Node

	// Import fields
	Module string
	AsName string
	Level  int
	Names  []*Node

	Operator string
	Store    bool // Name/Tuple/List/Starred used as an assignment target
}

// NewNode creates a new AST node
func NewNode(nodeType NodeType) *Node {
	return &Node{
		Type:     nodeType,
		Children: []*Node{},
	}
}

// AddChild adds a child node
func (n *Node) AddChild(child *Node) {
	if child == nil {
		return
	}
	child.Parent = n
	n.Children = append(n.Children, child)
}

// Walk traverses the AST depth-first in source order and calls the visitor
// for each node. If the visitor returns false, the node's subtree is skipped.
func (n *Node) Walk(visitor func(*Node) bool) {
	if n == nil {
		return
	}
	if !visitor(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(visitor)
	}
}

// WalkScope is Walk bounded to the current function scope: nested function
// definitions are visited themselves but their subtrees are not entered.
// The receiver is always entered, even when it is a function.
func (n *Node) WalkScope(visitor func(*Node) bool) {
	if n == nil {
		return
	}
	if !visitor(n) {
		return
	}
	for _, child := range n.Children {
		child.walkScopeChild(visitor)
	}
}

func (n *Node) walkScopeChild(visitor func(*Node) bool) {
	if !visitor(n) || n.Type == NodeFunctionDef {
		return
	}
	for _, child := range n.Children {
		child.walkScopeChild(visitor)
	}
}

// WalkBreadthFirst visits every node of the subtree level by level, the
// order Python's ast.walk yields. Detectors use it so reported lines come
// out in the same order other Python tooling prints them.
func (n *Node) WalkBreadthFirst(visitor func(*Node)) {
	if n == nil {
		return
	}
	queue := []*Node{n}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		visitor(node)
		queue = append(queue, node.Children...)
	}
}

// Find returns every node in the subtree (receiver included) matching pred
func (n *Node) Find(pred func(*Node) bool) []*Node {
	var found []*Node
	n.Walk(func(node *Node) bool {
		if pred(node) {
			found = append(found, node)
		}
		return true
	})
	return found
}

// String returns a string representation of the node
func (n *Node) String() string {
	if n.Name != "" {
		return fmt.Sprintf("%s(%s) at %s", n.Type, n.Name, n.Location)
	}
	return fmt.Sprintf("%s at %s", n.Type, n.Location)
}

// Line returns the 1-based start line
func (n *Node) Line() int {
	return n.Location.StartLine
}

// IsFunction returns true for def and async def
func (n *Node) IsFunction() bool {
	return n != nil && n.Type == NodeFunctionDef
}

// IsTerminal returns true for statements after which control never falls through
func (n *Node) IsTerminal() bool {
	switch n.Type {
	case NodeReturn, NodeRaise, NodeBreak, NodeContinue:
		return true
	}
	return false
}

// IsStringConstant reports whether the node is a str literal (not bytes, not an f-string)
func (n *Node) IsStringConstant() bool {
	return n != nil && n.Type == NodeConstant && n.Kind == ConstStr
}

// StringValue returns the literal text of a str constant
func (n *Node) StringValue() string {
	if s, ok := n.Value.(string); ok {
		return s
	}
	return ""
}

// IsNameCall reports whether the node is a call of a bare name, e.g. print(...)
func (n *Node) IsNameCall(name string) bool {
	return n.Type == NodeCall && n.Func != nil && n.Func.Type == NodeName && n.Func.Name == name
}

// CalledName returns the name of a called function: the id for name calls, the
// attribute for method calls, "" otherwise
func (n *Node) CalledName() string {
	if n.Type != NodeCall || n.Func == nil {
		return ""
	}
	switch n.Func.Type {
	case NodeName, NodeAttribute:
		return n.Func.Name
	}
	return ""
}

// AttributeCall reports the receiver name and attribute of calls shaped like
// recv.attr(...), where recv is a bare name
func (n *Node) AttributeCall() (receiver, attr string, ok bool) {
	if n.Type != NodeCall || n.Func == nil || n.Func.Type != NodeAttribute {
		return "", "", false
	}
	obj := n.Func.Expr
	if obj == nil || obj.Type != NodeName {
		return "", "", false
	}
	return obj.Name, n.Func.Name, true
}

// Keyword returns the keyword argument with the given name, or nil
func (n *Node) Keyword(name string) *Node {
	for _, kw := range n.Keywords {
		if kw.Name == name {
			return kw
		}
	}
	return nil
}

// PositionalParams returns the parameters Python lists in args.args, in
// declaration order. Positional-only parameters are not among them.
func (n *Node) PositionalParams() []*Node {
	var params []*Node
	for _, p := range n.Params {
		if p.ArgKind == ArgPositional {
			params = append(params, p)
		}
	}
	return params
}

// ExplicitParams returns positional parameters excluding a conventional self/cls
func (n *Node) ExplicitParams() []*Node {
	var params []*Node
	for _, p := range n.PositionalParams() {
		if p.Name == "self" || p.Name == "cls" {
			continue
		}
		params = append(params, p)
	}
	return params
}

// Docstring returns the docstring of a def or class and whether one exists
func (n *Node) Docstring() (string, bool) {
	if len(n.Body) == 0 {
		return "", false
	}
	first := n.Body[0]
	if first.Type != NodeExpr || !first.Expr.IsStringConstant() {
		return "", false
	}
	return first.Expr.StringValue(), true
}
