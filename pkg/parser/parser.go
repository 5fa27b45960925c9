package parser

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/mbodiai/pyinfer/pkg/ast"
)

// ModuleParser wraps a tree-sitter parser configured for Python modules.
// It is not safe for concurrent use.
type ModuleParser struct {
	parser *sitter.Parser
}

// NewModuleParser constructs a parser with the Python grammar loaded.
func NewModuleParser() (*ModuleParser, error) {
	lang := sitter.NewLanguage(python.Language())
	if lang == nil {
		return nil, fmt.Errorf("parser: python language not available")
	}

	p := sitter.NewParser()
	if err := p.SetLanguage(lang); err != nil {
		p.Close()
		return nil, fmt.Errorf("parser: %w", err)
	}

	return &ModuleParser{parser: p}, nil
}

// Close releases parser resources.
func (p *ModuleParser) Close() {
	if p == nil || p.parser == nil {
		return
	}
	p.parser.Close()
	p.parser = nil
}

// SyntaxError reports the first error node of a failed parse.
type SyntaxError struct {
	Path       string
	Position   ast.Position
	Missing    string
	Incomplete bool
}

func (e *SyntaxError) Error() string {
	loc := fmt.Sprintf("%d:%d", e.Position.Line, e.Position.Column)
	if e.Path != "" {
		loc = e.Path + ":" + loc
	}
	if e.Missing != "" {
		return fmt.Sprintf("parser: %s: syntax error, missing %q", loc, e.Missing)
	}
	return fmt.Sprintf("parser: %s: syntax error", loc)
}

// ParseModule parses Python source into a module named name.
func (p *ModuleParser) ParseModule(name, path string, source []byte) (*ast.Module, error) {
	if p == nil || p.parser == nil {
		return nil, fmt.Errorf("parser: nil parser")
	}

	tree := p.parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("parser: parse %s failed", name)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.Kind() != "module" {
		return nil, fmt.Errorf("parser: unexpected root node")
	}
	if root.HasError() {
		return nil, syntaxErrorAt(root, path, len(source))
	}

	body, err := parseBlockChildren(root, source)
	if err != nil {
		return nil, err
	}
	module := ast.NewModule(name, path, body)
	annotateSpan(module, root)
	return module, nil
}

func syntaxErrorAt(root *sitter.Node, path string, sourceLen int) *SyntaxError {
	node := firstErrorNode(root)
	if node == nil {
		node = root
	}
	serr := &SyntaxError{Path: path, Position: spanFromNode(node).Start}
	if node.IsMissing() {
		serr.Missing = node.Kind()
	}
	serr.Incomplete = int(node.EndByte()) >= sourceLen
	return serr
}

func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.IsError() || node.IsMissing() {
		return node
	}
	if !node.HasError() {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if found := firstErrorNode(node.Child(i)); found != nil {
			return found
		}
	}
	return nil
}
