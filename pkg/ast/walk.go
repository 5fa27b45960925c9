package ast

// Blocks returns the nested statement blocks of a compound statement.
// Function and class bodies are not included: they open a new scope.
func Blocks(stmt Statement) [][]Statement {
	switch s := stmt.(type) {
	case *IfStatement:
		return [][]Statement{s.Body, s.Alternative}
	case *ForStatement:
		return [][]Statement{s.Body, s.Orelse}
	case *WhileStatement:
		return [][]Statement{s.Body, s.Orelse}
	case *WithStatement:
		return [][]Statement{s.Body}
	case *TryStatement:
		blocks := [][]Statement{s.Body}
		for _, h := range s.Handlers {
			if h != nil {
				blocks = append(blocks, h.Body)
			}
		}
		return append(blocks, s.Orelse, s.Finally)
	default:
		return nil
	}
}

// Walk visits every statement in body in source order, descending into
// compound statements but not into nested function or class bodies.
// Returning false from visit skips the statement's nested blocks.
func Walk(body []Statement, visit func(Statement) bool) {
	for _, stmt := range body {
		if stmt == nil {
			continue
		}
		if !visit(stmt) {
			continue
		}
		for _, block := range Blocks(stmt) {
			Walk(block, visit)
		}
	}
}

// Find returns the innermost statement whose span starts on line and
// covers col, searching nested function and class bodies too.
func Find(body []Statement, line, col int) Statement {
	var found Statement
	for _, stmt := range body {
		if stmt == nil || !covers(stmt.Span(), line, col) {
			continue
		}
		found = stmt
		var nested []Statement
		switch s := stmt.(type) {
		case *FunctionDefinition:
			nested = s.Body
		case *ClassDefinition:
			nested = s.Body
		}
		if inner := Find(nested, line, col); inner != nil {
			return inner
		}
		for _, block := range Blocks(stmt) {
			if inner := Find(block, line, col); inner != nil {
				return inner
			}
		}
	}
	return found
}

// Contains reports whether node's span covers line:col.
func Contains(node Node, line, col int) bool {
	return node != nil && covers(node.Span(), line, col)
}

func covers(span Span, line, col int) bool {
	if line < span.Start.Line || line > span.End.Line {
		return false
	}
	if line == span.Start.Line && col < span.Start.Column {
		return false
	}
	if line == span.End.Line && col > span.End.Column {
		return false
	}
	return true
}
