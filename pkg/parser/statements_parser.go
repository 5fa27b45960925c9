package parser

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mbodiai/pyinfer/pkg/ast"
)

// parseBlockChildren parses the statements directly under a module or
// block node.
func parseBlockChildren(node *sitter.Node, source []byte) ([]ast.Statement, error) {
	body := make([]ast.Statement, 0, node.NamedChildCount())
	for _, child := range namedChildren(node) {
		stmts, err := parseStatement(child, source)
		if err != nil {
			return nil, err
		}
		body = append(body, stmts...)
	}
	return body, nil
}

func parseBlock(node *sitter.Node, source []byte) ([]ast.Statement, error) {
	if node == nil {
		return nil, nil
	}
	return parseBlockChildren(node, source)
}

// parseStatement returns zero or more statements; a bare block flattens
// into its children.
func parseStatement(node *sitter.Node, source []byte) ([]ast.Statement, error) {
	if node == nil {
		return nil, nil
	}
	var (
		stmt ast.Statement
		err  error
	)
	switch node.Kind() {
	case "expression_statement":
		stmt, err = parseExpressionStatement(node, source)
	case "return_statement":
		stmt, err = parseReturnStatement(node, source)
	case "function_definition":
		stmt, err = parseFunctionDefinition(node, nil, source)
	case "class_definition":
		stmt, err = parseClassDefinition(node, nil, source)
	case "decorated_definition":
		// Keeps the span of the inner definition.
		stmt, err := parseDecoratedDefinition(node, source)
		if err != nil {
			return nil, err
		}
		return []ast.Statement{stmt}, nil
	case "import_statement":
		stmt, err = parseImportStatement(node, source)
	case "import_from_statement":
		stmt, err = parseImportFrom(node, source)
	case "future_import_statement":
		stmt = ast.NewPassStatement("from __future__")
	case "if_statement":
		stmt, err = parseIfStatement(node, source)
	case "for_statement":
		stmt, err = parseForStatement(node, source)
	case "while_statement":
		stmt, err = parseWhileStatement(node, source)
	case "with_statement":
		stmt, err = parseWithStatement(node, source)
	case "try_statement":
		stmt, err = parseTryStatement(node, source)
	case "block":
		return parseBlockChildren(node, source)
	default:
		keyword := strings.TrimSuffix(node.Kind(), "_statement")
		stmt = ast.NewPassStatement(keyword)
	}
	if err != nil {
		return nil, err
	}
	if stmt == nil {
		return nil, nil
	}
	return []ast.Statement{annotateStatement(stmt, node)}, nil
}

func parseExpressionStatement(node *sitter.Node, source []byte) (ast.Statement, error) {
	children := namedChildren(node)
	if len(children) == 1 {
		child := children[0]
		switch child.Kind() {
		case "assignment":
			return parseAssignment(child, source)
		case "augmented_assignment":
			return parseAugmentedAssignment(child, source)
		}
	}
	exprs, err := parseExpressions(children, source)
	if err != nil {
		return nil, err
	}
	if len(exprs) == 1 {
		return ast.NewExpressionStatement(exprs[0]), nil
	}
	tuple := ast.NewTupleLiteral(exprs)
	annotateSpan(tuple, node)
	return ast.NewExpressionStatement(tuple), nil
}

func parseAssignment(node *sitter.Node, source []byte) (ast.Statement, error) {
	var targets []ast.Expression
	current := node
	var (
		value      ast.Expression
		annotation ast.Expression
	)
	for current != nil {
		target, err := parseExpression(current.ChildByFieldName("left"), source)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
		if typeNode := current.ChildByFieldName("type"); typeNode != nil && annotation == nil {
			annotation, err = parseExpression(typeNode, source)
			if err != nil {
				return nil, err
			}
		}
		right := current.ChildByFieldName("right")
		if right == nil {
			break
		}
		if right.Kind() == "assignment" {
			current = right
			continue
		}
		value, err = parseExpression(right, source)
		if err != nil {
			return nil, err
		}
		break
	}
	return ast.NewAssignment(targets, value, annotation, ""), nil
}

func parseAugmentedAssignment(node *sitter.Node, source []byte) (ast.Statement, error) {
	target, err := parseExpression(node.ChildByFieldName("left"), source)
	if err != nil {
		return nil, err
	}
	value, err := parseExpression(node.ChildByFieldName("right"), source)
	if err != nil {
		return nil, err
	}
	operator := sliceContent(node.ChildByFieldName("operator"), source)
	return ast.NewAssignment([]ast.Expression{target}, value, nil, operator), nil
}

func parseReturnStatement(node *sitter.Node, source []byte) (ast.Statement, error) {
	children := namedChildren(node)
	if len(children) == 0 {
		return ast.NewReturnStatement(nil), nil
	}
	exprs, err := parseExpressions(children, source)
	if err != nil {
		return nil, err
	}
	if len(exprs) == 1 {
		return ast.NewReturnStatement(exprs[0]), nil
	}
	return ast.NewReturnStatement(ast.NewTupleLiteral(exprs)), nil
}

func parseDecoratedDefinition(node *sitter.Node, source []byte) (ast.Statement, error) {
	var decorators []ast.Expression
	for _, child := range namedChildren(node) {
		if child.Kind() != "decorator" {
			continue
		}
		inner := namedChildren(child)
		if len(inner) == 0 {
			continue
		}
		expr, err := parseExpression(inner[0], source)
		if err != nil {
			return nil, err
		}
		decorators = append(decorators, expr)
	}
	def := node.ChildByFieldName("definition")
	if def == nil {
		return nil, fmt.Errorf("parser: decorated definition missing definition")
	}
	var (
		stmt ast.Statement
		err  error
	)
	switch def.Kind() {
	case "function_definition":
		stmt, err = parseFunctionDefinition(def, decorators, source)
	case "class_definition":
		stmt, err = parseClassDefinition(def, decorators, source)
	default:
		return nil, fmt.Errorf("parser: unsupported decorated %q", def.Kind())
	}
	if err != nil {
		return nil, err
	}
	// Positions identify the def line, not the first decorator.
	annotateSpan(stmt, def)
	return stmt, nil
}

func parseFunctionDefinition(node *sitter.Node, decorators []ast.Expression, source []byte) (ast.Statement, error) {
	name, err := parseIdentifier(node.ChildByFieldName("name"), source)
	if err != nil {
		return nil, err
	}
	params, err := parseParameters(node.ChildByFieldName("parameters"), source)
	if err != nil {
		return nil, err
	}
	var returns ast.Expression
	if rt := node.ChildByFieldName("return_type"); rt != nil {
		returns, err = parseExpression(rt, source)
		if err != nil {
			return nil, err
		}
	}
	bodyNode := node.ChildByFieldName("body")
	body, err := parseBlock(bodyNode, source)
	if err != nil {
		return nil, err
	}
	isAsync := hasChildKind(node, "async")
	fn := ast.NewFunctionDefinition(name, params, body, returns, decorators, containsYield(bodyNode), isAsync)
	annotateSpan(fn, node)
	return fn, nil
}

func parseParameters(node *sitter.Node, source []byte) ([]*ast.Parameter, error) {
	if node == nil {
		return nil, nil
	}
	var params []*ast.Parameter
	for _, child := range namedChildren(node) {
		param, err := parseParameter(child, source)
		if err != nil {
			return nil, err
		}
		if param != nil {
			annotateSpan(param, child)
			params = append(params, param)
		}
	}
	return params, nil
}

func parseParameter(node *sitter.Node, source []byte) (*ast.Parameter, error) {
	switch node.Kind() {
	case "identifier":
		id, err := parseIdentifier(node, source)
		if err != nil {
			return nil, err
		}
		return ast.NewParameter(id, nil, nil, ast.ParameterPositional), nil
	case "list_splat_pattern", "dictionary_splat_pattern":
		kind := ast.ParameterVarArgs
		if node.Kind() == "dictionary_splat_pattern" {
			kind = ast.ParameterKwArgs
		}
		inner := namedChildren(node)
		if len(inner) == 0 {
			return nil, nil
		}
		id, err := parseIdentifier(inner[0], source)
		if err != nil {
			return nil, err
		}
		return ast.NewParameter(id, nil, nil, kind), nil
	case "typed_parameter":
		inner := namedChildren(node)
		if len(inner) == 0 {
			return nil, fmt.Errorf("parser: typed parameter missing name")
		}
		param, err := parseParameter(inner[0], source)
		if err != nil || param == nil {
			return param, err
		}
		if typ := node.ChildByFieldName("type"); typ != nil {
			param.Annotation, err = parseExpression(typ, source)
			if err != nil {
				return nil, err
			}
		}
		return param, nil
	case "default_parameter", "typed_default_parameter":
		id, err := parseIdentifier(node.ChildByFieldName("name"), source)
		if err != nil {
			return nil, err
		}
		var annotation ast.Expression
		if typ := node.ChildByFieldName("type"); typ != nil {
			annotation, err = parseExpression(typ, source)
			if err != nil {
				return nil, err
			}
		}
		def, err := parseExpression(node.ChildByFieldName("value"), source)
		if err != nil {
			return nil, err
		}
		return ast.NewParameter(id, annotation, def, ast.ParameterPositional), nil
	default:
		// keyword_separator, positional_separator
		return nil, nil
	}
}

func parseClassDefinition(node *sitter.Node, decorators []ast.Expression, source []byte) (ast.Statement, error) {
	name, err := parseIdentifier(node.ChildByFieldName("name"), source)
	if err != nil {
		return nil, err
	}
	var bases []ast.Expression
	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		for _, child := range namedChildren(supers) {
			if child.Kind() == "keyword_argument" {
				continue
			}
			base, err := parseExpression(child, source)
			if err != nil {
				return nil, err
			}
			bases = append(bases, base)
		}
	}
	body, err := parseBlock(node.ChildByFieldName("body"), source)
	if err != nil {
		return nil, err
	}
	class := ast.NewClassDefinition(name, bases, body, decorators)
	annotateSpan(class, node)
	return class, nil
}

func parseImportStatement(node *sitter.Node, source []byte) (ast.Statement, error) {
	var names []*ast.ImportName
	for _, child := range namedChildren(node) {
		name := parseImportName(child, source)
		if name != nil {
			names = append(names, name)
		}
	}
	return ast.NewImportStatement(names), nil
}

func parseImportName(node *sitter.Node, source []byte) *ast.ImportName {
	var name *ast.ImportName
	switch node.Kind() {
	case "dotted_name", "identifier":
		name = ast.NewImportName(parseDottedName(node, source), "")
	case "aliased_import":
		alias := sliceContent(node.ChildByFieldName("alias"), source)
		name = ast.NewImportName(parseDottedName(node.ChildByFieldName("name"), source), alias)
	default:
		return nil
	}
	annotateSpan(name, node)
	return name
}

func parseImportFrom(node *sitter.Node, source []byte) (ast.Statement, error) {
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode == nil {
		return nil, fmt.Errorf("parser: import from missing module")
	}
	var (
		module []string
		level  int
	)
	if moduleNode.Kind() == "relative_import" {
		for i := uint(0); i < moduleNode.ChildCount(); i++ {
			child := moduleNode.Child(i)
			switch child.Kind() {
			case "import_prefix":
				level = strings.Count(sliceContent(child, source), ".")
			case "dotted_name":
				module = parseDottedName(child, source)
			}
		}
	} else {
		module = parseDottedName(moduleNode, source)
	}

	var names []*ast.ImportName
	wildcard := false
	for _, child := range namedChildren(node) {
		if sameNode(child, moduleNode) {
			continue
		}
		if child.Kind() == "wildcard_import" {
			wildcard = true
			continue
		}
		if name := parseImportName(child, source); name != nil {
			names = append(names, name)
		}
	}
	return ast.NewImportFrom(module, level, names, wildcard), nil
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Kind() == b.Kind() && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

func parseIfStatement(node *sitter.Node, source []byte) (ast.Statement, error) {
	cond, err := parseExpression(node.ChildByFieldName("condition"), source)
	if err != nil {
		return nil, err
	}
	body, err := parseBlock(node.ChildByFieldName("consequence"), source)
	if err != nil {
		return nil, err
	}

	// elif chains nest as ifs in the alternative block.
	var clauses []*sitter.Node
	for _, child := range namedChildren(node) {
		if child.Kind() == "elif_clause" || child.Kind() == "else_clause" {
			clauses = append(clauses, child)
		}
	}
	alternative, err := parseIfClauses(clauses, source)
	if err != nil {
		return nil, err
	}
	return ast.NewIfStatement(cond, body, alternative), nil
}

func parseIfClauses(clauses []*sitter.Node, source []byte) ([]ast.Statement, error) {
	if len(clauses) == 0 {
		return nil, nil
	}
	clause := clauses[0]
	if clause.Kind() == "else_clause" {
		return parseBlock(clause.ChildByFieldName("body"), source)
	}
	cond, err := parseExpression(clause.ChildByFieldName("condition"), source)
	if err != nil {
		return nil, err
	}
	body, err := parseBlock(clause.ChildByFieldName("consequence"), source)
	if err != nil {
		return nil, err
	}
	rest, err := parseIfClauses(clauses[1:], source)
	if err != nil {
		return nil, err
	}
	elif := ast.NewIfStatement(cond, body, rest)
	annotateSpan(elif, clause)
	return []ast.Statement{elif}, nil
}

func parseElse(node *sitter.Node, source []byte) ([]ast.Statement, error) {
	alt := node.ChildByFieldName("alternative")
	if alt == nil {
		return nil, nil
	}
	return parseBlock(alt.ChildByFieldName("body"), source)
}

func parseForStatement(node *sitter.Node, source []byte) (ast.Statement, error) {
	target, err := parseExpression(node.ChildByFieldName("left"), source)
	if err != nil {
		return nil, err
	}
	iterable, err := parseExpression(node.ChildByFieldName("right"), source)
	if err != nil {
		return nil, err
	}
	body, err := parseBlock(node.ChildByFieldName("body"), source)
	if err != nil {
		return nil, err
	}
	orelse, err := parseElse(node, source)
	if err != nil {
		return nil, err
	}
	return ast.NewForStatement(target, iterable, body, orelse), nil
}

func parseWhileStatement(node *sitter.Node, source []byte) (ast.Statement, error) {
	cond, err := parseExpression(node.ChildByFieldName("condition"), source)
	if err != nil {
		return nil, err
	}
	body, err := parseBlock(node.ChildByFieldName("body"), source)
	if err != nil {
		return nil, err
	}
	orelse, err := parseElse(node, source)
	if err != nil {
		return nil, err
	}
	return ast.NewWhileStatement(cond, body, orelse), nil
}

func parseWithStatement(node *sitter.Node, source []byte) (ast.Statement, error) {
	var items []*ast.WithItem
	for _, child := range namedChildren(node) {
		if child.Kind() != "with_clause" {
			continue
		}
		for _, itemNode := range namedChildren(child) {
			if itemNode.Kind() != "with_item" {
				continue
			}
			item, err := parseWithItem(itemNode, source)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}
	body, err := parseBlock(node.ChildByFieldName("body"), source)
	if err != nil {
		return nil, err
	}
	return ast.NewWithStatement(items, body), nil
}

func parseWithItem(node *sitter.Node, source []byte) (*ast.WithItem, error) {
	valueNode := node.ChildByFieldName("value")
	if valueNode == nil {
		return nil, fmt.Errorf("parser: with item missing value")
	}
	var item *ast.WithItem
	if valueNode.Kind() == "as_pattern" {
		inner := namedChildren(valueNode)
		if len(inner) == 0 {
			return nil, fmt.Errorf("parser: empty as pattern")
		}
		value, err := parseExpression(inner[0], source)
		if err != nil {
			return nil, err
		}
		var target ast.Expression
		if alias := valueNode.ChildByFieldName("alias"); alias != nil {
			aliasChildren := namedChildren(alias)
			targetNode := alias
			if len(aliasChildren) == 1 {
				targetNode = aliasChildren[0]
			}
			target, err = parseExpression(targetNode, source)
			if err != nil {
				return nil, err
			}
		}
		item = ast.NewWithItem(value, target)
	} else {
		value, err := parseExpression(valueNode, source)
		if err != nil {
			return nil, err
		}
		item = ast.NewWithItem(value, nil)
	}
	annotateSpan(item, node)
	return item, nil
}

func parseTryStatement(node *sitter.Node, source []byte) (ast.Statement, error) {
	body, err := parseBlock(node.ChildByFieldName("body"), source)
	if err != nil {
		return nil, err
	}
	var (
		handlers []*ast.ExceptClause
		orelse   []ast.Statement
		finally  []ast.Statement
	)
	for _, child := range namedChildren(node) {
		switch child.Kind() {
		case "except_clause", "except_group_clause":
			handler, err := parseExceptClause(child, source)
			if err != nil {
				return nil, err
			}
			handlers = append(handlers, handler)
		case "else_clause":
			orelse, err = parseBlock(child.ChildByFieldName("body"), source)
			if err != nil {
				return nil, err
			}
		case "finally_clause":
			for _, inner := range namedChildren(child) {
				if inner.Kind() == "block" {
					finally, err = parseBlock(inner, source)
					if err != nil {
						return nil, err
					}
				}
			}
		}
	}
	return ast.NewTryStatement(body, handlers, orelse, finally), nil
}

// parseExceptClause reads `except T as name:` positionally: the grammar's
// field names differ between releases.
func parseExceptClause(node *sitter.Node, source []byte) (*ast.ExceptClause, error) {
	var (
		typ   ast.Expression
		name  *ast.Identifier
		body  []ast.Statement
		exprs []*sitter.Node
		err   error
	)
	for _, child := range namedChildren(node) {
		if child.Kind() == "block" {
			body, err = parseBlock(child, source)
			if err != nil {
				return nil, err
			}
			continue
		}
		exprs = append(exprs, child)
	}
	if len(exprs) == 1 && exprs[0].Kind() == "as_pattern" {
		inner := namedChildren(exprs[0])
		exprs = inner
		if alias := asPatternAlias(inner); alias != nil {
			exprs = []*sitter.Node{inner[0], alias}
		}
	}
	if len(exprs) > 0 {
		typ, err = parseExpression(exprs[0], source)
		if err != nil {
			return nil, err
		}
	}
	if len(exprs) > 1 && exprs[1].Kind() == "identifier" {
		name, err = parseIdentifier(exprs[1], source)
		if err != nil {
			return nil, err
		}
	}
	clause := ast.NewExceptClause(typ, name, body)
	annotateSpan(clause, node)
	return clause, nil
}

func asPatternAlias(nodes []*sitter.Node) *sitter.Node {
	if len(nodes) < 2 {
		return nil
	}
	last := nodes[len(nodes)-1]
	if last.Kind() == "as_pattern_target" {
		if inner := namedChildren(last); len(inner) == 1 {
			return inner[0]
		}
	}
	return last
}
