package parser

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mbodiai/pyinfer/pkg/ast"
)

func parseIdentifier(node *sitter.Node, source []byte) (*ast.Identifier, error) {
	if node == nil || node.Kind() != "identifier" {
		return nil, fmt.Errorf("parser: expected identifier")
	}
	id := ast.NewIdentifier(sliceContent(node, source))
	annotateSpan(id, node)
	return id, nil
}

func sliceContent(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := int(node.StartByte())
	end := int(node.EndByte())
	if start < 0 || end < start || end > len(source) {
		return ""
	}
	return string(source[start:end])
}

func namedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, node.NamedChildCount())
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || isIgnorableNode(child) {
			continue
		}
		out = append(out, child)
	}
	return out
}

func hasChildKind(node *sitter.Node, kind string) bool {
	if node == nil {
		return false
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil && child.Kind() == kind {
			return true
		}
	}
	return false
}

func parseDottedName(node *sitter.Node, source []byte) []string {
	if node == nil {
		return nil
	}
	if node.Kind() == "identifier" {
		return []string{sliceContent(node, source)}
	}
	var parts []string
	for _, child := range namedChildren(node) {
		if child.Kind() == "identifier" {
			parts = append(parts, sliceContent(child, source))
		}
	}
	return parts
}

// containsYield reports whether a yield appears in node's subtree outside
// nested scopes.
func containsYield(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "yield":
			return true
		case "function_definition", "class_definition", "lambda", "decorated_definition":
			continue
		}
		if containsYield(child) {
			return true
		}
	}
	return false
}

func stringPrefix(node *sitter.Node, source []byte) string {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == "string_start" {
			text := sliceContent(child, source)
			return strings.ToLower(strings.TrimRight(text, `'"`))
		}
	}
	return ""
}

func isIgnorableNode(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	switch node.Kind() {
	case "comment", "line_continuation":
		return true
	default:
		return false
	}
}
