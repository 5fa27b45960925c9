package parser

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mbodiai/pyinfer/pkg/ast"
)

func parseExpressions(nodes []*sitter.Node, source []byte) ([]ast.Expression, error) {
	out := make([]ast.Expression, 0, len(nodes))
	for _, node := range nodes {
		expr, err := parseExpression(node, source)
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
	}
	return out, nil
}

func parseExpression(node *sitter.Node, source []byte) (ast.Expression, error) {
	if node == nil {
		return nil, fmt.Errorf("parser: nil expression")
	}
	expr, err := parseExpressionKind(node, source)
	if err != nil {
		return nil, err
	}
	return annotateExpression(expr, node), nil
}

func parseExpressionKind(node *sitter.Node, source []byte) (ast.Expression, error) {
	switch node.Kind() {
	case "identifier":
		return parseIdentifier(node, source)
	case "integer", "float":
		raw := sliceContent(node, source)
		if strings.HasSuffix(raw, "j") || strings.HasSuffix(raw, "J") {
			return ast.NewComplexLiteral(raw), nil
		}
		if node.Kind() == "integer" {
			return ast.NewIntegerLiteral(raw), nil
		}
		return ast.NewFloatLiteral(raw), nil
	case "string":
		return parseString(node, source), nil
	case "concatenated_string":
		var (
			b     strings.Builder
			bytes bool
		)
		for _, child := range namedChildren(node) {
			if child.Kind() != "string" {
				continue
			}
			lit := parseString(child, source)
			b.WriteString(lit.Value)
			bytes = bytes || lit.Bytes
		}
		return ast.NewStringLiteral(b.String(), bytes), nil
	case "true":
		return ast.NewBooleanLiteral(true), nil
	case "false":
		return ast.NewBooleanLiteral(false), nil
	case "none":
		return ast.NewNoneLiteral(), nil
	case "list", "list_pattern":
		elems, err := parseElements(node, source)
		if err != nil {
			return nil, err
		}
		return ast.NewListLiteral(elems), nil
	case "tuple", "expression_list", "pattern_list", "tuple_pattern":
		elems, err := parseElements(node, source)
		if err != nil {
			return nil, err
		}
		return ast.NewTupleLiteral(elems), nil
	case "set":
		elems, err := parseElements(node, source)
		if err != nil {
			return nil, err
		}
		return ast.NewSetLiteral(elems), nil
	case "dictionary":
		return parseDictionary(node, source)
	case "list_comprehension":
		return parseComprehension(node, ast.ComprehensionList, source)
	case "set_comprehension":
		return parseComprehension(node, ast.ComprehensionSet, source)
	case "dictionary_comprehension":
		return parseComprehension(node, ast.ComprehensionDict, source)
	case "generator_expression":
		return parseComprehension(node, ast.ComprehensionGenerator, source)
	case "call":
		return parseCall(node, source)
	case "attribute":
		object, err := parseExpression(node.ChildByFieldName("object"), source)
		if err != nil {
			return nil, err
		}
		name, err := parseIdentifier(node.ChildByFieldName("attribute"), source)
		if err != nil {
			return nil, err
		}
		return ast.NewAttribute(object, name), nil
	case "subscript":
		return parseSubscript(node, source)
	case "generic_type":
		return parseGenericType(node, source)
	case "member_type":
		parts := namedChildren(node)
		if len(parts) != 2 {
			return ast.NewUnsupported(node.Kind()), nil
		}
		object, err := parseExpression(parts[0], source)
		if err != nil {
			return nil, err
		}
		name, err := parseIdentifier(parts[1], source)
		if err != nil {
			return nil, err
		}
		return ast.NewAttribute(object, name), nil
	case "union_type":
		parts := namedChildren(node)
		if len(parts) != 2 {
			return ast.NewUnsupported(node.Kind()), nil
		}
		exprs, err := parseExpressions(parts, source)
		if err != nil {
			return nil, err
		}
		return ast.NewBinaryExpression("|", exprs[0], exprs[1]), nil
	case "binary_operator", "boolean_operator":
		left, err := parseExpression(node.ChildByFieldName("left"), source)
		if err != nil {
			return nil, err
		}
		right, err := parseExpression(node.ChildByFieldName("right"), source)
		if err != nil {
			return nil, err
		}
		operator := strings.TrimSpace(sliceContent(node.ChildByFieldName("operator"), source))
		return ast.NewBinaryExpression(operator, left, right), nil
	case "not_operator":
		operand, err := parseExpression(node.ChildByFieldName("argument"), source)
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpression("not", operand), nil
	case "unary_operator":
		operand, err := parseExpression(node.ChildByFieldName("argument"), source)
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpression(sliceContent(node.ChildByFieldName("operator"), source), operand), nil
	case "comparison_operator":
		return parseComparison(node, source)
	case "conditional_expression":
		parts := namedChildren(node)
		if len(parts) != 3 {
			return nil, fmt.Errorf("parser: malformed conditional expression")
		}
		exprs, err := parseExpressions(parts, source)
		if err != nil {
			return nil, err
		}
		return ast.NewConditionalExpression(exprs[0], exprs[1], exprs[2]), nil
	case "lambda":
		params, err := parseParameters(node.ChildByFieldName("parameters"), source)
		if err != nil {
			return nil, err
		}
		body, err := parseExpression(node.ChildByFieldName("body"), source)
		if err != nil {
			return nil, err
		}
		return ast.NewLambda(params, body), nil
	case "yield":
		from := hasChildKind(node, "from")
		inner := namedChildren(node)
		if len(inner) == 0 {
			return ast.NewYield(nil, from), nil
		}
		value, err := parseExpression(inner[0], source)
		if err != nil {
			return nil, err
		}
		return ast.NewYield(value, from), nil
	case "parenthesized_expression", "type", "as_pattern_target", "await":
		inner := namedChildren(node)
		if len(inner) != 1 {
			return ast.NewUnsupported(node.Kind()), nil
		}
		return parseExpressionKind(inner[0], source)
	case "named_expression":
		return parseExpressionKind(node.ChildByFieldName("value"), source)
	default:
		return ast.NewUnsupported(node.Kind()), nil
	}
}

func parseString(node *sitter.Node, source []byte) *ast.StringLiteral {
	var b strings.Builder
	for _, child := range namedChildren(node) {
		if child.Kind() == "string_content" {
			b.WriteString(sliceContent(child, source))
		}
	}
	prefix := stringPrefix(node, source)
	lit := ast.NewStringLiteral(b.String(), strings.Contains(prefix, "b"))
	annotateSpan(lit, node)
	return lit
}

func parseElements(node *sitter.Node, source []byte) ([]ast.Expression, error) {
	var elems []ast.Expression
	for _, child := range namedChildren(node) {
		expr, err := parseExpression(child, source)
		if err != nil {
			return nil, err
		}
		elems = append(elems, expr)
	}
	return elems, nil
}

func parseDictionary(node *sitter.Node, source []byte) (ast.Expression, error) {
	var entries []*ast.DictEntry
	for _, child := range namedChildren(node) {
		if child.Kind() != "pair" {
			continue
		}
		key, err := parseExpression(child.ChildByFieldName("key"), source)
		if err != nil {
			return nil, err
		}
		value, err := parseExpression(child.ChildByFieldName("value"), source)
		if err != nil {
			return nil, err
		}
		entry := ast.NewDictEntry(key, value)
		annotateSpan(entry, child)
		entries = append(entries, entry)
	}
	return ast.NewDictLiteral(entries), nil
}

func parseComprehension(node *sitter.Node, kind ast.ComprehensionKind, source []byte) (ast.Expression, error) {
	bodyNode := node.ChildByFieldName("body")
	if bodyNode == nil {
		return nil, fmt.Errorf("parser: comprehension missing body")
	}
	var (
		key     ast.Expression
		element ast.Expression
		err     error
	)
	if kind == ast.ComprehensionDict && bodyNode.Kind() == "pair" {
		key, err = parseExpression(bodyNode.ChildByFieldName("key"), source)
		if err != nil {
			return nil, err
		}
		element, err = parseExpression(bodyNode.ChildByFieldName("value"), source)
	} else {
		element, err = parseExpression(bodyNode, source)
	}
	if err != nil {
		return nil, err
	}

	var clause *sitter.Node
	for _, child := range namedChildren(node) {
		if child.Kind() == "for_in_clause" {
			clause = child
			break
		}
	}
	if clause == nil {
		return nil, fmt.Errorf("parser: comprehension missing for clause")
	}
	target, err := parseExpression(clause.ChildByFieldName("left"), source)
	if err != nil {
		return nil, err
	}
	iterable, err := parseExpression(clause.ChildByFieldName("right"), source)
	if err != nil {
		return nil, err
	}
	return ast.NewComprehension(kind, key, element, target, iterable), nil
}

func parseCall(node *sitter.Node, source []byte) (ast.Expression, error) {
	callee, err := parseExpression(node.ChildByFieldName("function"), source)
	if err != nil {
		return nil, err
	}
	argsNode := node.ChildByFieldName("arguments")
	var args []*ast.Argument
	if argsNode != nil && argsNode.Kind() == "generator_expression" {
		gen, err := parseExpression(argsNode, source)
		if err != nil {
			return nil, err
		}
		args = append(args, ast.NewArgument("", gen, 0))
	} else if argsNode != nil {
		for _, child := range namedChildren(argsNode) {
			arg, err := parseArgument(child, source)
			if err != nil {
				return nil, err
			}
			annotateSpan(arg, child)
			args = append(args, arg)
		}
	}
	return ast.NewCall(callee, args), nil
}

func parseArgument(node *sitter.Node, source []byte) (*ast.Argument, error) {
	switch node.Kind() {
	case "keyword_argument":
		value, err := parseExpression(node.ChildByFieldName("value"), source)
		if err != nil {
			return nil, err
		}
		return ast.NewArgument(sliceContent(node.ChildByFieldName("name"), source), value, 0), nil
	case "list_splat", "dictionary_splat":
		star := 1
		if node.Kind() == "dictionary_splat" {
			star = 2
		}
		inner := namedChildren(node)
		if len(inner) == 0 {
			return nil, fmt.Errorf("parser: empty splat argument")
		}
		value, err := parseExpression(inner[0], source)
		if err != nil {
			return nil, err
		}
		return ast.NewArgument("", value, star), nil
	default:
		value, err := parseExpression(node, source)
		if err != nil {
			return nil, err
		}
		return ast.NewArgument("", value, 0), nil
	}
}

func parseSubscript(node *sitter.Node, source []byte) (ast.Expression, error) {
	object, err := parseExpression(node.ChildByFieldName("value"), source)
	if err != nil {
		return nil, err
	}
	var indexes []ast.Expression
	for _, child := range namedChildren(node) {
		if sameNode(child, node.ChildByFieldName("value")) {
			continue
		}
		if child.Kind() == "slice" {
			slice := ast.NewUnsupported("slice")
			annotateSpan(slice, child)
			indexes = append(indexes, slice)
			continue
		}
		idx, err := parseExpression(child, source)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}
	var index ast.Expression
	switch len(indexes) {
	case 0:
		return nil, fmt.Errorf("parser: subscript missing index")
	case 1:
		index = indexes[0]
	default:
		index = ast.NewTupleLiteral(indexes)
	}
	return ast.NewSubscript(object, index), nil
}

// parseGenericType turns an annotation such as Dict[str, int] into the
// subscript it would be outside a type position.
func parseGenericType(node *sitter.Node, source []byte) (ast.Expression, error) {
	var (
		object  ast.Expression
		indexes []ast.Expression
	)
	for _, child := range namedChildren(node) {
		if child.Kind() == "type_parameter" {
			params, err := parseExpressions(namedChildren(child), source)
			if err != nil {
				return nil, err
			}
			indexes = append(indexes, params...)
			continue
		}
		if object != nil {
			continue
		}
		expr, err := parseExpression(child, source)
		if err != nil {
			return nil, err
		}
		object = expr
	}
	if object == nil || len(indexes) == 0 {
		return ast.NewUnsupported(node.Kind()), nil
	}
	index := indexes[0]
	if len(indexes) > 1 {
		index = ast.NewTupleLiteral(indexes)
	}
	return ast.NewSubscript(object, index), nil
}

func parseComparison(node *sitter.Node, source []byte) (ast.Expression, error) {
	var (
		operators []string
		operands  []ast.Expression
	)
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || isIgnorableNode(child) {
			continue
		}
		if child.IsNamed() {
			expr, err := parseExpression(child, source)
			if err != nil {
				return nil, err
			}
			operands = append(operands, expr)
			continue
		}
		op := strings.TrimSpace(sliceContent(child, source))
		// `not in` and `is not` arrive as two tokens.
		if n := len(operators); n > 0 && len(operands) == n && (op == "in" || op == "not") {
			operators[n-1] = operators[n-1] + " " + op
			continue
		}
		operators = append(operators, op)
	}
	return ast.NewCompareExpression(operators, operands), nil
}
