package parser

import (
	"math/big"
	"strconv"
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
)

// ASTBuilder builds our internal AST from the tree-sitter Python CST
type ASTBuilder struct {
	filename string
	source   []byte
}

// NewASTBuilder creates a new AST builder
func NewASTBuilder(filename string, source []byte) *ASTBuilder {
	return &ASTBuilder{
		filename: filename,
		source:   source,
	}
}

// Build builds the Module node from the tree-sitter root
func (b *ASTBuilder) Build(tsNode *sitter.Node) *Node {
	if tsNode == nil {
		return nil
	}

	node := NewNode(NodeModule)
	node.Location = b.getLocation(tsNode)
	node.Body = b.buildStatements(tsNode)
	for _, stmt := range node.Body {
		node.AddChild(stmt)
	}
	return node
}

// Statements

// buildStatements converts the statements of a module or block
func (b *ASTBuilder) buildStatements(tsNode *sitter.Node) []*Node {
	if tsNode == nil {
		return nil
	}
	var stmts []*Node
	for _, child := range b.namedChildren(tsNode) {
		if stmt := b.buildStatement(child); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

func (b *ASTBuilder) buildStatement(tsNode *sitter.Node) *Node {
	switch tsNode.Type() {
	case "function_definition":
		return b.buildFunctionDef(tsNode, nil)
	case "class_definition":
		return b.buildClassDef(tsNode, nil)
	case "decorated_definition":
		return b.buildDecorated(tsNode)
	case "if_statement":
		return b.buildIf(tsNode)
	case "for_statement":
		return b.buildFor(tsNode)
	case "while_statement":
		return b.buildWhile(tsNode)
	case "try_statement":
		return b.buildTry(tsNode)
	case "with_statement":
		return b.buildWith(tsNode)
	case "match_statement":
		return b.buildMatch(tsNode)
	case "return_statement":
		node := b.newNode(NodeReturn, tsNode)
		if children := b.namedChildren(tsNode); len(children) > 0 {
			node.Expr = b.buildExpr(children[0])
			node.AddChild(node.Expr)
		}
		return node
	case "raise_statement", "assert_statement", "delete_statement":
		types := map[string]NodeType{
			"raise_statement":  NodeRaise,
			"assert_statement": NodeAssert,
			"delete_statement": NodeDelete,
		}
		node := b.newNode(types[tsNode.Type()], tsNode)
		for _, child := range b.namedChildren(tsNode) {
			node.AddChild(b.buildExpr(child))
		}
		return node
	case "pass_statement":
		return b.newNode(NodePass, tsNode)
	case "break_statement":
		return b.newNode(NodeBreak, tsNode)
	case "continue_statement":
		return b.newNode(NodeContinue, tsNode)
	case "global_statement":
		return b.buildNameList(NodeGlobal, tsNode)
	case "nonlocal_statement":
		return b.buildNameList(NodeNonlocal, tsNode)
	case "import_statement":
		return b.buildImport(tsNode)
	case "import_from_statement", "future_import_statement":
		return b.buildImportFrom(tsNode)
	case "expression_statement":
		return b.buildExpressionStatement(tsNode)
	default:
		return b.buildGenericNode(tsNode)
	}
}

func (b *ASTBuilder) buildDecorated(tsNode *sitter.Node) *Node {
	var decorators []*Node
	for _, child := range b.namedChildren(tsNode) {
		if child.Type() != "decorator" {
			continue
		}
		dec := b.newNode(NodeDecorator, child)
		for _, expr := range b.namedChildren(child) {
			dec.AddChild(b.buildExpr(expr))
		}
		decorators = append(decorators, dec)
	}

	def := tsNode.ChildByFieldName("definition")
	if def == nil {
		return b.buildGenericNode(tsNode)
	}
	switch def.Type() {
	case "function_definition":
		return b.buildFunctionDef(def, decorators)
	case "class_definition":
		return b.buildClassDef(def, decorators)
	}
	return b.buildGenericNode(tsNode)
}

func (b *ASTBuilder) buildFunctionDef(tsNode *sitter.Node, decorators []*Node) *Node {
	node := b.newNode(NodeFunctionDef, tsNode)
	node.Async = b.hasToken(tsNode, "async")

	if nameNode := tsNode.ChildByFieldName("name"); nameNode != nil {
		node.Name = b.text(nameNode)
	}

	node.Decorators = decorators
	for _, dec := range decorators {
		node.AddChild(dec)
	}

	if paramsNode := tsNode.ChildByFieldName("parameters"); paramsNode != nil {
		node.Params = b.buildParameters(paramsNode)
		for _, param := range node.Params {
			node.AddChild(param)
		}
	}

	if returnType := tsNode.ChildByFieldName("return_type"); returnType != nil {
		node.Returns = b.buildExpr(returnType)
		node.AddChild(node.Returns)
	}

	node.Body = b.buildStatements(tsNode.ChildByFieldName("body"))
	for _, stmt := range node.Body {
		node.AddChild(stmt)
	}

	b.fixEndLine(node)
	return node
}

func (b *ASTBuilder) buildClassDef(tsNode *sitter.Node, decorators []*Node) *Node {
	node := b.newNode(NodeClassDef, tsNode)

	if nameNode := tsNode.ChildByFieldName("name"); nameNode != nil {
		node.Name = b.text(nameNode)
	}

	node.Decorators = decorators
	for _, dec := range decorators {
		node.AddChild(dec)
	}

	if bases := tsNode.ChildByFieldName("superclasses"); bases != nil {
		args, keywords := b.buildArguments(bases)
		node.Args = args
		node.Keywords = keywords
		for _, arg := range args {
			node.AddChild(arg)
		}
		for _, kw := range keywords {
			node.AddChild(kw)
		}
	}

	node.Body = b.buildStatements(tsNode.ChildByFieldName("body"))
	for _, stmt := range node.Body {
		node.AddChild(stmt)
	}

	b.fixEndLine(node)
	return node
}

// buildIf builds an If node; elif clauses become nested If nodes in Orelse,
// the way CPython represents them
func (b *ASTBuilder) buildIf(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeIf, tsNode)
	node.Test = b.buildExpr(tsNode.ChildByFieldName("condition"))
	node.AddChild(node.Test)
	node.Body = b.buildStatements(tsNode.ChildByFieldName("consequence"))
	for _, stmt := range node.Body {
		node.AddChild(stmt)
	}

	var chain []*Node
	current := node
	for _, alt := range b.childrenByFieldName(tsNode, "alternative") {
		switch alt.Type() {
		case "elif_clause":
			elif := b.newNode(NodeIf, alt)
			elif.Test = b.buildExpr(alt.ChildByFieldName("condition"))
			elif.AddChild(elif.Test)
			elif.Body = b.buildStatements(alt.ChildByFieldName("consequence"))
			for _, stmt := range elif.Body {
				elif.AddChild(stmt)
			}
			current.Orelse = []*Node{elif}
			current.AddChild(elif)
			chain = append(chain, elif)
			current = elif
		case "else_clause":
			current.Orelse = b.buildStatements(alt.ChildByFieldName("body"))
			for _, stmt := range current.Orelse {
				current.AddChild(stmt)
			}
		}
	}

	for i := len(chain) - 1; i >= 0; i-- {
		b.fixEndLine(chain[i])
	}
	b.fixEndLine(node)
	return node
}

func (b *ASTBuilder) buildFor(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeFor, tsNode)
	node.Async = b.hasToken(tsNode, "async")
	node.Target = b.buildTarget(tsNode.ChildByFieldName("left"))
	node.AddChild(node.Target)
	node.Iter = b.buildExprList(b.childrenByFieldName(tsNode, "right"), tsNode)
	node.AddChild(node.Iter)
	node.Body = b.buildStatements(tsNode.ChildByFieldName("body"))
	for _, stmt := range node.Body {
		node.AddChild(stmt)
	}
	b.buildLoopElse(node, tsNode)
	b.fixEndLine(node)
	return node
}

func (b *ASTBuilder) buildWhile(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeWhile, tsNode)
	node.Test = b.buildExpr(tsNode.ChildByFieldName("condition"))
	node.AddChild(node.Test)
	node.Body = b.buildStatements(tsNode.ChildByFieldName("body"))
	for _, stmt := range node.Body {
		node.AddChild(stmt)
	}
	b.buildLoopElse(node, tsNode)
	b.fixEndLine(node)
	return node
}

func (b *ASTBuilder) buildLoopElse(node *Node, tsNode *sitter.Node) {
	alt := tsNode.ChildByFieldName("alternative")
	if alt == nil || alt.Type() != "else_clause" {
		return
	}
	node.Orelse = b.buildStatements(alt.ChildByFieldName("body"))
	for _, stmt := range node.Orelse {
		node.AddChild(stmt)
	}
}

func (b *ASTBuilder) buildTry(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeTry, tsNode)
	node.Body = b.buildStatements(tsNode.ChildByFieldName("body"))
	for _, stmt := range node.Body {
		node.AddChild(stmt)
	}

	for _, child := range b.namedChildren(tsNode) {
		switch child.Type() {
		case "except_clause", "except_group_clause":
			handler := b.buildExceptHandler(child)
			node.Handlers = append(node.Handlers, handler)
			node.AddChild(handler)
		case "else_clause":
			node.Orelse = b.buildStatements(child.ChildByFieldName("body"))
			for _, stmt := range node.Orelse {
				node.AddChild(stmt)
			}
		case "finally_clause":
			node.Finalbody = b.buildStatements(b.firstChildOfType(child, "block"))
			for _, stmt := range node.Finalbody {
				node.AddChild(stmt)
			}
		}
	}

	b.fixEndLine(node)
	return node
}

func (b *ASTBuilder) buildExceptHandler(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeExceptHandler, tsNode)

	var exprs []*sitter.Node
	var block *sitter.Node
	for _, child := range b.namedChildren(tsNode) {
		if child.Type() == "block" {
			block = child
			continue
		}
		exprs = append(exprs, child)
	}

	if len(exprs) > 0 {
		first := exprs[0]
		if first.Type() == "as_pattern" {
			parts := b.namedChildren(first)
			if len(parts) > 0 {
				node.ExcType = b.buildExpr(parts[0])
			}
			if alias := b.firstChildOfType(first, "as_pattern_target"); alias != nil {
				node.AsName = b.text(alias)
			}
		} else {
			node.ExcType = b.buildExpr(first)
			if len(exprs) > 1 {
				node.AsName = b.text(exprs[1])
			}
		}
		node.AddChild(node.ExcType)
	}

	node.Body = b.buildStatements(block)
	for _, stmt := range node.Body {
		node.AddChild(stmt)
	}

	b.fixEndLine(node)
	return node
}

func (b *ASTBuilder) buildWith(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeWith, tsNode)
	node.Async = b.hasToken(tsNode, "async")

	if clause := b.firstChildOfType(tsNode, "with_clause"); clause != nil {
		for _, item := range b.namedChildren(clause) {
			if item.Type() != "with_item" {
				continue
			}
			withItem := b.buildWithItem(item)
			node.Items = append(node.Items, withItem)
			node.AddChild(withItem)
		}
	}

	node.Body = b.buildStatements(tsNode.ChildByFieldName("body"))
	for _, stmt := range node.Body {
		node.AddChild(stmt)
	}

	b.fixEndLine(node)
	return node
}

func (b *ASTBuilder) buildWithItem(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeWithItem, tsNode)

	value := tsNode.ChildByFieldName("value")
	if value == nil {
		if children := b.namedChildren(tsNode); len(children) > 0 {
			value = children[0]
		}
	}
	if value == nil {
		return node
	}

	var target *sitter.Node
	if value.Type() == "as_pattern" {
		parts := b.namedChildren(value)
		if alias := b.firstChildOfType(value, "as_pattern_target"); alias != nil {
			if inner := b.namedChildren(alias); len(inner) > 0 {
				target = inner[0]
			}
		}
		if len(parts) > 0 {
			value = parts[0]
		}
	} else if alias := tsNode.ChildByFieldName("alias"); alias != nil {
		target = alias
	}

	node.Expr = b.buildExpr(value)
	node.AddChild(node.Expr)
	if target != nil {
		node.Target = b.buildTarget(target)
		node.AddChild(node.Target)
	}
	return node
}

func (b *ASTBuilder) buildMatch(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeMatch, tsNode)
	for _, subject := range b.childrenByFieldName(tsNode, "subject") {
		node.AddChild(b.buildExpr(subject))
	}

	clauses := b.childrenOfType(tsNode, "case_clause")
	if block := tsNode.ChildByFieldName("body"); block != nil {
		clauses = append(clauses, b.childrenOfType(block, "case_clause")...)
	}
	for _, clause := range clauses {
		matchCase := b.buildMatchCase(clause)
		node.Cases = append(node.Cases, matchCase)
		node.AddChild(matchCase)
	}

	b.fixEndLine(node)
	return node
}

func (b *ASTBuilder) buildMatchCase(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeMatchCase, tsNode)

	var patterns []string
	for _, child := range b.namedChildren(tsNode) {
		switch child.Type() {
		case "case_pattern":
			patterns = append(patterns, strings.TrimSpace(b.text(child)))
		case "if_clause":
			if guard := b.namedChildren(child); len(guard) > 0 {
				node.Test = b.buildExpr(guard[0])
				node.AddChild(node.Test)
			}
		}
	}
	// An unguarded wildcard or bare capture pattern makes the case irrefutable
	if len(patterns) == 1 && isIdentifier(patterns[0]) && node.Test == nil {
		node.Operator = "_"
	}

	node.Body = b.buildStatements(tsNode.ChildByFieldName("consequence"))
	for _, stmt := range node.Body {
		node.AddChild(stmt)
	}

	b.fixEndLine(node)
	return node
}

func (b *ASTBuilder) buildNameList(nodeType NodeType, tsNode *sitter.Node) *Node {
	node := b.newNode(nodeType, tsNode)
	for _, child := range b.namedChildren(tsNode) {
		alias := b.newNode(NodeAlias, child)
		alias.Name = b.text(child)
		node.Names = append(node.Names, alias)
	}
	return node
}

func (b *ASTBuilder) buildImport(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeImport, tsNode)
	for _, child := range b.namedChildren(tsNode) {
		if alias := b.buildAlias(child); alias != nil {
			node.Names = append(node.Names, alias)
			node.AddChild(alias)
		}
	}
	return node
}

func (b *ASTBuilder) buildImportFrom(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeImportFrom, tsNode)

	if tsNode.Type() == "future_import_statement" {
		node.Module = "__future__"
	} else if module := tsNode.ChildByFieldName("module_name"); module != nil {
		if module.Type() == "relative_import" {
			for _, part := range b.namedChildren(module) {
				switch part.Type() {
				case "import_prefix":
					node.Level = len(strings.TrimSpace(b.text(part)))
				case "dotted_name":
					node.Module = b.text(part)
				}
			}
		} else {
			node.Module = b.text(module)
		}
	}

	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child == nil {
			continue
		}
		if child.Type() == "wildcard_import" {
			alias := b.newNode(NodeAlias, child)
			alias.Name = "*"
			node.Names = append(node.Names, alias)
			node.AddChild(alias)
			continue
		}
		if tsNode.FieldNameForChild(i) != "name" {
			continue
		}
		if alias := b.buildAlias(child); alias != nil {
			node.Names = append(node.Names, alias)
			node.AddChild(alias)
		}
	}
	return node
}

func (b *ASTBuilder) buildAlias(tsNode *sitter.Node) *Node {
	switch tsNode.Type() {
	case "dotted_name", "identifier":
		alias := b.newNode(NodeAlias, tsNode)
		alias.Name = b.text(tsNode)
		return alias
	case "aliased_import":
		alias := b.newNode(NodeAlias, tsNode)
		if name := tsNode.ChildByFieldName("name"); name != nil {
			alias.Name = b.text(name)
		}
		if asName := tsNode.ChildByFieldName("alias"); asName != nil {
			alias.AsName = b.text(asName)
		}
		return alias
	}
	return nil
}

func (b *ASTBuilder) buildExpressionStatement(tsNode *sitter.Node) *Node {
	children := b.namedChildren(tsNode)
	if len(children) == 1 {
		switch children[0].Type() {
		case "assignment":
			return b.buildAssignment(children[0])
		case "augmented_assignment":
			return b.buildAugAssignment(children[0])
		}
	}

	node := b.newNode(NodeExpr, tsNode)
	node.Expr = b.buildExprList(children, tsNode)
	node.AddChild(node.Expr)
	return node
}

// buildAssignment builds Assign or AnnAssign. Chained assignments
// (a = b = 1) collapse into one Assign with several targets.
func (b *ASTBuilder) buildAssignment(tsNode *sitter.Node) *Node {
	left := tsNode.ChildByFieldName("left")
	right := tsNode.ChildByFieldName("right")

	if annotation := tsNode.ChildByFieldName("type"); annotation != nil {
		node := b.newNode(NodeAnnAssign, tsNode)
		node.Target = b.buildTarget(left)
		node.AddChild(node.Target)
		node.Annotation = b.buildExpr(annotation)
		node.AddChild(node.Annotation)
		if right != nil {
			node.Expr = b.buildExpr(right)
			node.AddChild(node.Expr)
		}
		return node
	}

	node := b.newNode(NodeAssign, tsNode)
	node.Targets = append(node.Targets, b.buildTarget(left))
	for right != nil && right.Type() == "assignment" && right.ChildByFieldName("type") == nil {
		node.Targets = append(node.Targets, b.buildTarget(right.ChildByFieldName("left")))
		right = right.ChildByFieldName("right")
	}
	for _, target := range node.Targets {
		node.AddChild(target)
	}
	node.Expr = b.buildExpr(right)
	node.AddChild(node.Expr)
	return node
}

func (b *ASTBuilder) buildAugAssignment(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeAugAssign, tsNode)
	node.Target = b.buildTarget(tsNode.ChildByFieldName("left"))
	node.AddChild(node.Target)
	if op := tsNode.ChildByFieldName("operator"); op != nil {
		node.Operator = b.text(op)
	}
	node.Expr = b.buildExpr(tsNode.ChildByFieldName("right"))
	node.AddChild(node.Expr)
	return node
}

// Targets

// buildTarget builds an assignment target, marking names bound by it as Store
func (b *ASTBuilder) buildTarget(tsNode *sitter.Node) *Node {
	if tsNode == nil {
		return nil
	}
	switch tsNode.Type() {
	case "identifier", "keyword_identifier":
		node := b.newNode(NodeName, tsNode)
		node.Name = b.text(tsNode)
		node.Store = true
		return node
	case "pattern_list", "tuple_pattern", "expression_list", "tuple":
		return b.buildTargetSequence(NodeTuple, tsNode)
	case "list_pattern", "list":
		return b.buildTargetSequence(NodeList, tsNode)
	case "list_splat_pattern", "list_splat":
		node := b.newNode(NodeStarred, tsNode)
		if inner := b.namedChildren(tsNode); len(inner) > 0 {
			node.Expr = b.buildTarget(inner[0])
			node.AddChild(node.Expr)
		}
		node.Store = true
		return node
	case "parenthesized_expression":
		if inner := b.namedChildren(tsNode); len(inner) == 1 {
			return b.buildTarget(inner[0])
		}
	}
	return b.buildExpr(tsNode)
}

func (b *ASTBuilder) buildTargetSequence(nodeType NodeType, tsNode *sitter.Node) *Node {
	node := b.newNode(nodeType, tsNode)
	node.Store = true
	for _, child := range b.namedChildren(tsNode) {
		elt := b.buildTarget(child)
		node.Elts = append(node.Elts, elt)
		node.AddChild(elt)
	}
	return node
}

// Expressions

// buildExprList builds one expression, or a Tuple when several are given
func (b *ASTBuilder) buildExprList(children []*sitter.Node, parent *sitter.Node) *Node {
	switch len(children) {
	case 0:
		return nil
	case 1:
		return b.buildExpr(children[0])
	}
	node := b.newNode(NodeTuple, parent)
	for _, child := range children {
		elt := b.buildExpr(child)
		node.Elts = append(node.Elts, elt)
		node.AddChild(elt)
	}
	return node
}

func (b *ASTBuilder) buildExpr(tsNode *sitter.Node) *Node {
	if tsNode == nil {
		return nil
	}

	switch tsNode.Type() {
	case "identifier", "keyword_identifier":
		node := b.newNode(NodeName, tsNode)
		node.Name = b.text(tsNode)
		return node
	case "string":
		return b.buildString(tsNode)
	case "concatenated_string":
		return b.buildConcatenatedString(tsNode)
	case "integer", "float":
		return b.buildNumber(tsNode)
	case "true", "false":
		node := b.newConstant(tsNode, ConstBool)
		node.Value = tsNode.Type() == "true"
		return node
	case "none":
		return b.newConstant(tsNode, ConstNone)
	case "ellipsis":
		return b.newConstant(tsNode, ConstEllipsis)
	case "call":
		return b.buildCall(tsNode)
	case "attribute":
		node := b.newNode(NodeAttribute, tsNode)
		node.Expr = b.buildExpr(tsNode.ChildByFieldName("object"))
		node.AddChild(node.Expr)
		if attr := tsNode.ChildByFieldName("attribute"); attr != nil {
			node.Name = b.text(attr)
		}
		return node
	case "subscript":
		node := b.newNode(NodeSubscript, tsNode)
		node.Expr = b.buildExpr(tsNode.ChildByFieldName("value"))
		node.AddChild(node.Expr)
		for _, sub := range b.childrenByFieldName(tsNode, "subscript") {
			node.AddChild(b.buildExpr(sub))
		}
		return node
	case "parenthesized_expression":
		inner := b.namedChildren(tsNode)
		if len(inner) == 1 {
			return b.buildExpr(inner[0])
		}
		return b.buildGenericNode(tsNode)
	case "boolean_operator":
		return b.buildBoolOp(tsNode)
	case "conditional_expression":
		node := b.newNode(NodeIfExp, tsNode)
		parts := b.namedChildren(tsNode)
		for i, part := range parts {
			expr := b.buildExpr(part)
			if i == 1 {
				node.Test = expr
			}
			node.AddChild(expr)
		}
		return node
	case "lambda":
		return b.buildLambda(tsNode)
	case "named_expression":
		node := b.newNode(NodeNamedExpr, tsNode)
		node.Target = b.buildTarget(tsNode.ChildByFieldName("name"))
		node.AddChild(node.Target)
		node.Expr = b.buildExpr(tsNode.ChildByFieldName("value"))
		node.AddChild(node.Expr)
		return node
	case "list":
		return b.buildSequence(NodeList, tsNode)
	case "tuple", "expression_list", "pattern_list", "tuple_pattern":
		return b.buildSequence(NodeTuple, tsNode)
	case "set":
		return b.buildSequence(NodeSet, tsNode)
	case "dictionary":
		return b.buildDict(tsNode)
	case "list_comprehension":
		return b.buildComprehension(NodeListComp, tsNode)
	case "set_comprehension":
		return b.buildComprehension(NodeSetComp, tsNode)
	case "dictionary_comprehension":
		return b.buildComprehension(NodeDictComp, tsNode)
	case "generator_expression":
		return b.buildComprehension(NodeGeneratorExp, tsNode)
	case "list_splat", "list_splat_pattern":
		node := b.newNode(NodeStarred, tsNode)
		if inner := b.namedChildren(tsNode); len(inner) > 0 {
			node.Expr = b.buildExpr(inner[0])
			node.AddChild(node.Expr)
		}
		return node
	default:
		return b.buildGenericNode(tsNode)
	}
}

func (b *ASTBuilder) buildCall(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeCall, tsNode)
	node.Func = b.buildExpr(tsNode.ChildByFieldName("function"))
	node.AddChild(node.Func)

	argsNode := tsNode.ChildByFieldName("arguments")
	if argsNode == nil {
		return node
	}
	if argsNode.Type() == "generator_expression" {
		gen := b.buildExpr(argsNode)
		node.Args = []*Node{gen}
		node.AddChild(gen)
		return node
	}

	node.Args, node.Keywords = b.buildArguments(argsNode)
	for _, arg := range node.Args {
		node.AddChild(arg)
	}
	for _, kw := range node.Keywords {
		node.AddChild(kw)
	}
	return node
}

// buildArguments splits an argument_list into positional args and keywords
func (b *ASTBuilder) buildArguments(tsNode *sitter.Node) (args []*Node, keywords []*Node) {
	for _, child := range b.namedChildren(tsNode) {
		switch child.Type() {
		case "keyword_argument":
			kw := b.newNode(NodeKeyword, child)
			if name := child.ChildByFieldName("name"); name != nil {
				kw.Name = b.text(name)
			}
			kw.Expr = b.buildExpr(child.ChildByFieldName("value"))
			kw.AddChild(kw.Expr)
			keywords = append(keywords, kw)
		case "dictionary_splat":
			kw := b.newNode(NodeKeyword, child)
			if inner := b.namedChildren(child); len(inner) > 0 {
				kw.Expr = b.buildExpr(inner[0])
				kw.AddChild(kw.Expr)
			}
			keywords = append(keywords, kw)
		default:
			args = append(args, b.buildExpr(child))
		}
	}
	return args, keywords
}

// buildBoolOp flattens chains of the same operator like CPython does:
// a and b and c is one BoolOp with three values, (a and b) and c is not
func (b *ASTBuilder) buildBoolOp(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeBoolOp, tsNode)
	node.Operator = b.boolOperator(tsNode)

	var collect func(ts *sitter.Node)
	collect = func(ts *sitter.Node) {
		for _, side := range []*sitter.Node{ts.ChildByFieldName("left"), ts.ChildByFieldName("right")} {
			if side == nil {
				continue
			}
			if side.Type() == "boolean_operator" && b.boolOperator(side) == node.Operator {
				collect(side)
				continue
			}
			node.AddChild(b.buildExpr(side))
		}
	}
	collect(tsNode)
	node.Elts = node.Children
	return node
}

func (b *ASTBuilder) boolOperator(tsNode *sitter.Node) string {
	if op := tsNode.ChildByFieldName("operator"); op != nil {
		return b.text(op)
	}
	return ""
}

func (b *ASTBuilder) buildLambda(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeLambda, tsNode)
	if params := tsNode.ChildByFieldName("parameters"); params != nil {
		node.Params = b.buildParameters(params)
		for _, param := range node.Params {
			node.AddChild(param)
		}
	}
	if body := b.buildExpr(tsNode.ChildByFieldName("body")); body != nil {
		node.Expr = body
		node.AddChild(body)
	}
	return node
}

func (b *ASTBuilder) buildSequence(nodeType NodeType, tsNode *sitter.Node) *Node {
	node := b.newNode(nodeType, tsNode)
	for _, child := range b.namedChildren(tsNode) {
		elt := b.buildExpr(child)
		node.Elts = append(node.Elts, elt)
		node.AddChild(elt)
	}
	return node
}

func (b *ASTBuilder) buildDict(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeDict, tsNode)
	for _, child := range b.namedChildren(tsNode) {
		switch child.Type() {
		case "pair":
			key := b.buildExpr(child.ChildByFieldName("key"))
			node.Keys = append(node.Keys, key)
			node.AddChild(key)
			node.AddChild(b.buildExpr(child.ChildByFieldName("value")))
		case "dictionary_splat":
			node.Keys = append(node.Keys, nil)
			for _, inner := range b.namedChildren(child) {
				node.AddChild(b.buildExpr(inner))
			}
		}
	}
	return node
}

func (b *ASTBuilder) buildComprehension(nodeType NodeType, tsNode *sitter.Node) *Node {
	node := b.newNode(nodeType, tsNode)

	if body := tsNode.ChildByFieldName("body"); body != nil {
		if body.Type() == "pair" {
			node.AddChild(b.buildExpr(body.ChildByFieldName("key")))
			node.AddChild(b.buildExpr(body.ChildByFieldName("value")))
		} else {
			node.AddChild(b.buildExpr(body))
		}
	}

	var current *Node
	for _, child := range b.namedChildren(tsNode) {
		switch child.Type() {
		case "for_in_clause":
			current = b.newNode(NodeComprehension, child)
			current.Async = b.hasToken(child, "async")
			current.Target = b.buildTarget(child.ChildByFieldName("left"))
			current.AddChild(current.Target)
			current.Iter = b.buildExprList(b.childrenByFieldName(child, "right"), child)
			current.AddChild(current.Iter)
			node.Generators = append(node.Generators, current)
			node.AddChild(current)
		case "if_clause":
			if current == nil {
				continue
			}
			if cond := b.namedChildren(child); len(cond) > 0 {
				test := b.buildExpr(cond[0])
				current.Ifs = append(current.Ifs, test)
				current.AddChild(test)
			}
		}
	}
	return node
}

// buildParameters builds arg nodes from a parameters or lambda_parameters node
func (b *ASTBuilder) buildParameters(tsNode *sitter.Node) []*Node {
	var params []*Node
	kind := ArgPositional

	for _, child := range b.namedChildren(tsNode) {
		switch child.Type() {
		case "positional_separator":
			for _, p := range params {
				if p.ArgKind == ArgPositional {
					p.ArgKind = ArgPositionalOnly
				}
			}
			continue
		case "keyword_separator":
			kind = ArgKeywordOnly
			continue
		}

		param := b.newNode(NodeArg, child)
		param.ArgKind = kind

		nameNode := child
		switch child.Type() {
		case "default_parameter", "typed_default_parameter":
			nameNode = child.ChildByFieldName("name")
			if typ := child.ChildByFieldName("type"); typ != nil {
				param.Annotation = b.buildExpr(typ)
			}
			param.Default = b.buildExpr(child.ChildByFieldName("value"))
		case "typed_parameter":
			if inner := b.namedChildren(child); len(inner) > 0 {
				nameNode = inner[0]
			}
			if typ := child.ChildByFieldName("type"); typ != nil {
				param.Annotation = b.buildExpr(typ)
			}
		}

		if nameNode != nil {
			switch nameNode.Type() {
			case "list_splat_pattern":
				param.ArgKind = ArgVarPositional
				kind = ArgKeywordOnly
				nameNode = b.firstNamedChild(nameNode)
			case "dictionary_splat_pattern":
				param.ArgKind = ArgVarKeyword
				nameNode = b.firstNamedChild(nameNode)
			}
		}
		if nameNode != nil {
			param.Name = b.text(nameNode)
		}

		param.AddChild(param.Annotation)
		param.AddChild(param.Default)
		params = append(params, param)
	}

	return params
}

// Literals

func (b *ASTBuilder) buildString(tsNode *sitter.Node) *Node {
	raw := b.text(tsNode)
	prefix := strings.ToLower(stringPrefix(raw))

	if strings.Contains(prefix, "f") {
		node := b.newNode(NodeJoinedStr, tsNode)
		node.Raw = raw
		for _, child := range b.namedChildren(tsNode) {
			if child.Type() != "interpolation" {
				continue
			}
			expr := child.ChildByFieldName("expression")
			if expr == nil {
				expr = b.firstNamedChild(child)
			}
			node.AddChild(b.buildExpr(expr))
		}
		return node
	}

	kind := ConstStr
	if strings.Contains(prefix, "b") {
		kind = ConstBytes
	}
	node := b.newConstant(tsNode, kind)
	node.Value = stringLiteralValue(raw)
	return node
}

func (b *ASTBuilder) buildConcatenatedString(tsNode *sitter.Node) *Node {
	parts := b.namedChildren(tsNode)
	var built []*Node
	for _, part := range parts {
		built = append(built, b.buildExpr(part))
	}

	for _, part := range built {
		if part.Type == NodeJoinedStr {
			node := b.newNode(NodeJoinedStr, tsNode)
			node.Raw = b.text(tsNode)
			for _, p := range built {
				for _, child := range p.Children {
					node.AddChild(child)
				}
			}
			return node
		}
	}

	kind := ConstStr
	var value strings.Builder
	for _, part := range built {
		if part.Kind == ConstBytes {
			kind = ConstBytes
		}
		value.WriteString(part.StringValue())
	}
	node := b.newConstant(tsNode, kind)
	node.Value = value.String()
	return node
}

func (b *ASTBuilder) buildNumber(tsNode *sitter.Node) *Node {
	raw := b.text(tsNode)
	clean := strings.ReplaceAll(raw, "_", "")

	if strings.HasSuffix(clean, "j") || strings.HasSuffix(clean, "J") {
		node := b.newConstant(tsNode, ConstComplex)
		node.Value = strings.ToLower(clean)
		return node
	}

	if tsNode.Type() == "integer" {
		node := b.newConstant(tsNode, ConstInt)
		if v, ok := new(big.Int).SetString(clean, 0); ok {
			node.Value = v
		} else if v, ok := new(big.Int).SetString(strings.TrimLeft(clean, "0"), 10); ok {
			node.Value = v
		} else {
			node.Value = new(big.Int)
		}
		return node
	}

	node := b.newConstant(tsNode, ConstFloat)
	if f, err := strconv.ParseFloat(clean, 64); err == nil {
		node.Value = f
	} else {
		node.Value = clean
	}
	return node
}

// buildGenericNode builds a node for syntax without a dedicated type; its
// children are still converted so walks see names and calls inside it
func (b *ASTBuilder) buildGenericNode(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeType(tsNode.Type()), tsNode)
	for _, child := range b.namedChildren(tsNode) {
		node.AddChild(b.buildExpr(child))
	}
	return node
}

// Helper methods

func (b *ASTBuilder) newNode(nodeType NodeType, tsNode *sitter.Node) *Node {
	node := NewNode(nodeType)
	node.Location = b.getLocation(tsNode)
	return node
}

func (b *ASTBuilder) newConstant(tsNode *sitter.Node, kind ConstKind) *Node {
	node := b.newNode(NodeConstant, tsNode)
	node.Kind = kind
	node.Raw = b.text(tsNode)
	return node
}

// fixEndLine sets a compound statement's end line to that of its last AST
// child so comments trailing the block do not count as part of it
func (b *ASTBuilder) fixEndLine(node *Node) {
	end := node.Location.StartLine
	for _, child := range node.Children {
		if child.Location.EndLine > end {
			end = child.Location.EndLine
		}
	}
	node.Location.EndLine = end
}

// getLocation extracts location information from a tree-sitter node
func (b *ASTBuilder) getLocation(tsNode *sitter.Node) Location {
	return Location{
		File:      b.filename,
		StartLine: int(tsNode.StartPoint().Row) + 1,
		StartCol:  int(tsNode.StartPoint().Column),
		EndLine:   int(tsNode.EndPoint().Row) + 1,
		EndCol:    int(tsNode.EndPoint().Column),
	}
}

func (b *ASTBuilder) text(tsNode *sitter.Node) string {
	return tsNode.Content(b.source)
}

// namedChildren returns the named children of a node, skipping comments
func (b *ASTBuilder) namedChildren(tsNode *sitter.Node) []*sitter.Node {
	var children []*sitter.Node
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		child := tsNode.NamedChild(i)
		if child != nil && !b.isTrivia(child) {
			children = append(children, child)
		}
	}
	return children
}

func (b *ASTBuilder) firstNamedChild(tsNode *sitter.Node) *sitter.Node {
	if children := b.namedChildren(tsNode); len(children) > 0 {
		return children[0]
	}
	return nil
}

// childrenByFieldName gets every child bound to a field name; tree-sitter's
// ChildByFieldName only returns the first
func (b *ASTBuilder) childrenByFieldName(tsNode *sitter.Node, fieldName string) []*sitter.Node {
	var children []*sitter.Node
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child != nil && tsNode.FieldNameForChild(i) == fieldName && !b.isTrivia(child) {
			children = append(children, child)
		}
	}
	return children
}

func (b *ASTBuilder) childrenOfType(tsNode *sitter.Node, nodeType string) []*sitter.Node {
	var children []*sitter.Node
	for _, child := range b.namedChildren(tsNode) {
		if child.Type() == nodeType {
			children = append(children, child)
		}
	}
	return children
}

func (b *ASTBuilder) firstChildOfType(tsNode *sitter.Node, nodeType string) *sitter.Node {
	for _, child := range b.namedChildren(tsNode) {
		if child.Type() == nodeType {
			return child
		}
	}
	return nil
}

// hasToken reports whether an anonymous keyword token such as async is a direct child
func (b *ASTBuilder) hasToken(tsNode *sitter.Node, token string) bool {
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child != nil && !child.IsNamed() && child.Type() == token {
			return true
		}
	}
	return false
}

// isTrivia checks if a node is trivia (comments, line continuations)
func (b *ASTBuilder) isTrivia(tsNode *sitter.Node) bool {
	nodeType := tsNode.Type()
	return nodeType == "comment" ||
		nodeType == "line_continuation" ||
		nodeType == ""
}

func isIdentifier(text string) bool {
	if text == "" {
		return false
	}
	for i, r := range text {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}
