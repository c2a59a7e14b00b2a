package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// SyntaxIssue is source tree-sitter accepts but CPython 3 rejects
type SyntaxIssue struct {
	Line    int
	Message string
}

// Validate walks an error-free tree and returns the first construct the
// CPython 3 grammar does not allow, or nil
func (b *ASTBuilder) Validate(root *sitter.Node) *SyntaxIssue {
	if root == nil {
		return nil
	}
	return b.validateNode(root, nil)
}

func (b *ASTBuilder) validateNode(tsNode, parent *sitter.Node) *SyntaxIssue {
	if issue := b.checkNode(tsNode, parent); issue != nil {
		return issue
	}
	for _, child := range b.namedChildren(tsNode) {
		if issue := b.validateNode(child, tsNode); issue != nil {
			return issue
		}
	}
	return nil
}

func (b *ASTBuilder) checkNode(tsNode, parent *sitter.Node) *SyntaxIssue {
	switch tsNode.Type() {
	case "print_statement", "exec_statement":
		keyword := strings.TrimSuffix(tsNode.Type(), "_statement")
		return issueAt(tsNode, "Missing parentheses in call to '"+keyword+"'")
	case "block":
		return b.checkBlock(tsNode, parent)
	case "parameters", "lambda_parameters":
		return b.checkParameters(tsNode)
	case "argument_list":
		return b.checkArguments(tsNode)
	case "for_in_clause":
		if len(b.childrenByFieldName(tsNode, "right")) > 1 {
			return issueAt(tsNode, "unparenthesized tuple in comprehension iterable")
		}
	case "integer":
		return b.checkInteger(tsNode)
	case "assignment":
		return b.checkAssignment(tsNode)
	case "augmented_assignment":
		if right := tsNode.ChildByFieldName("right"); isAssignment(right) {
			return issueAt(right, "invalid syntax: chained augmented assignment")
		}
	}
	return nil
}

// checkBlock requires at least one statement, indented deeper than the
// header when it starts on a later line
func (b *ASTBuilder) checkBlock(block, header *sitter.Node) *SyntaxIssue {
	stmts := b.namedChildren(block)
	if len(stmts) == 0 {
		return &SyntaxIssue{Line: int(block.EndPoint().Row) + 1, Message: "expected an indented block"}
	}
	if header == nil {
		return nil
	}
	first := stmts[0]
	if first.StartPoint().Row > header.StartPoint().Row && first.StartPoint().Column <= header.StartPoint().Column {
		return issueAt(first, "expected an indented block")
	}
	return nil
}

func (b *ASTBuilder) checkParameters(tsNode *sitter.Node) *SyntaxIssue {
	seenDefault, keywordOnly := false, false
	for _, param := range b.namedChildren(tsNode) {
		switch param.Type() {
		case "default_parameter", "typed_default_parameter":
			seenDefault = true
		case "list_splat_pattern", "keyword_separator":
			keywordOnly = true
		case "typed_parameter":
			if inner := b.firstNamedChild(param); inner != nil {
				switch inner.Type() {
				case "list_splat_pattern":
					keywordOnly = true
					continue
				case "dictionary_splat_pattern":
					continue
				}
			}
			if seenDefault && !keywordOnly {
				return issueAt(param, "parameter without a default follows parameter with a default")
			}
		case "identifier":
			if seenDefault && !keywordOnly {
				return issueAt(param, "parameter without a default follows parameter with a default")
			}
		}
	}
	return nil
}

func (b *ASTBuilder) checkArguments(tsNode *sitter.Node) *SyntaxIssue {
	seenKeyword, seenDictSplat := false, false
	for _, arg := range b.namedChildren(tsNode) {
		switch arg.Type() {
		case "keyword_argument":
			seenKeyword = true
		case "dictionary_splat":
			seenDictSplat = true
		case "list_splat":
			if seenDictSplat {
				return issueAt(arg, "iterable argument unpacking follows keyword argument unpacking")
			}
		default:
			if seenDictSplat {
				return issueAt(arg, "positional argument follows keyword argument unpacking")
			}
			if seenKeyword {
				return issueAt(arg, "positional argument follows keyword argument")
			}
		}
	}
	return nil
}

// checkInteger rejects leading zeros in decimal literals and Python 2 long suffixes
func (b *ASTBuilder) checkInteger(tsNode *sitter.Node) *SyntaxIssue {
	clean := strings.ReplaceAll(b.text(tsNode), "_", "")
	if strings.HasSuffix(clean, "l") || strings.HasSuffix(clean, "L") {
		return issueAt(tsNode, "invalid decimal literal")
	}
	if strings.HasSuffix(clean, "j") || strings.HasSuffix(clean, "J") {
		return nil
	}
	if len(clean) > 1 && clean[0] == '0' && clean[1] >= '0' && clean[1] <= '9' && strings.Trim(clean, "0") != "" {
		return issueAt(tsNode, "leading zeros in decimal integer literals are not permitted")
	}
	return nil
}

func (b *ASTBuilder) checkAssignment(tsNode *sitter.Node) *SyntaxIssue {
	right := tsNode.ChildByFieldName("right")
	if right != nil && right.Type() == "augmented_assignment" {
		return issueAt(right, "invalid syntax: chained augmented assignment")
	}
	if tsNode.ChildByFieldName("type") == nil {
		return nil
	}
	if isAssignment(right) {
		return issueAt(right, "invalid syntax: annotated assignment cannot be chained")
	}
	if left := tsNode.ChildByFieldName("left"); left != nil {
		switch left.Type() {
		case "tuple", "pattern_list", "tuple_pattern", "expression_list":
			return issueAt(left, "only single target (not tuple) can be annotated")
		case "list", "list_pattern":
			return issueAt(left, "only single target (not list) can be annotated")
		}
	}
	return nil
}

func isAssignment(tsNode *sitter.Node) bool {
	return tsNode != nil && (tsNode.Type() == "assignment" || tsNode.Type() == "augmented_assignment")
}

func issueAt(tsNode *sitter.Node, message string) *SyntaxIssue {
	return &SyntaxIssue{Line: int(tsNode.StartPoint().Row) + 1, Message: message}
}
