package parser

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ErrSyntax is returned (wrapped) when the source is not valid Python 3
var ErrSyntax = errors.New("invalid python syntax")

// Parser wraps tree-sitter parser for Python.
// A Parser is not safe for concurrent use.
type Parser struct {
	parser   *sitter.Parser
	language *sitter.Language
}

// NewParser creates a new Python parser
func NewParser() *Parser {
	parser := sitter.NewParser()
	lang := python.GetLanguage()
	parser.SetLanguage(lang)

	return &Parser{
		parser:   parser,
		language: lang,
	}
}

// ParseFile parses a Python file
func (p *Parser) ParseFile(filename string, source []byte) (*Node, error) {
	return p.ParseFileCtx(context.Background(), filename, source)
}

// ParseFileCtx parses a Python file, aborting when ctx is cancelled
func (p *Parser) ParseFileCtx(ctx context.Context, filename string, source []byte) (*Node, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", filename, err)
	}
	defer tree.Close()

	rootNode := tree.RootNode()
	if rootNode == nil {
		return nil, fmt.Errorf("no root node in parse tree for %s", filename)
	}

	if rootNode.HasError() {
		if bad := firstError(rootNode); bad != nil {
			return nil, fmt.Errorf("%w: %s line %d", ErrSyntax, filename, bad.StartPoint().Row+1)
		}
		return nil, fmt.Errorf("%w: %s", ErrSyntax, filename)
	}

	builder := NewASTBuilder(filename, source)
	if issue := builder.Validate(rootNode); issue != nil {
		return nil, fmt.Errorf("%w: %s line %d: %s", ErrSyntax, filename, issue.Line, issue.Message)
	}

	// Build our internal AST from tree-sitter CST
	return builder.Build(rootNode), nil
}

// Parse parses Python source code
func (p *Parser) Parse(source []byte) (*Node, error) {
	return p.ParseFile("<input>", source)
}

// ParseString parses Python source code from a string
func (p *Parser) ParseString(source string) (*Node, error) {
	return p.Parse([]byte(source))
}

// Close closes the parser and frees resources
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}

// ParseSource parses source with a short-lived parser, the usual entry point
// for callers that may run on several goroutines
func ParseSource(ctx context.Context, filename string, source []byte) (*Node, error) {
	p := NewParser()
	defer p.Close()
	return p.ParseFileCtx(ctx, filename, source)
}

// firstError finds the first ERROR or MISSING node in pre-order
func firstError(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil || !child.HasError() && !child.IsMissing() {
			continue
		}
		if found := firstError(child); found != nil {
			return found
		}
	}
	return nil
}
