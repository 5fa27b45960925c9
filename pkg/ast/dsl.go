package ast

// Builders used by tests and by code that synthesises trees.

func ID(name string) *Identifier {
	return NewIdentifier(name)
}

func Int(raw string) *IntegerLiteral {
	return NewIntegerLiteral(raw)
}

func Flt(raw string) *FloatLiteral {
	return NewFloatLiteral(raw)
}

func Str(value string) *StringLiteral {
	return NewStringLiteral(value, false)
}

func Bool(value bool) *BooleanLiteral {
	return NewBooleanLiteral(value)
}

func None() *NoneLiteral {
	return NewNoneLiteral()
}

func List(elements ...Expression) *ListLiteral {
	return NewListLiteral(elements)
}

func Tuple(elements ...Expression) *TupleLiteral {
	return NewTupleLiteral(elements)
}

func Arg(value Expression) *Argument {
	return NewArgument("", value, 0)
}

func CallExpr(callee Expression, args ...Expression) *Call {
	out := make([]*Argument, 0, len(args))
	for _, arg := range args {
		out = append(out, Arg(arg))
	}
	return NewCall(callee, out)
}

func Attr(object Expression, name string) *Attribute {
	return NewAttribute(object, ID(name))
}

func Bin(operator string, left, right Expression) *BinaryExpression {
	return NewBinaryExpression(operator, left, right)
}

func Expr(expr Expression) *ExpressionStatement {
	return NewExpressionStatement(expr)
}

func Assign(target Expression, value Expression) *Assignment {
	return NewAssignment([]Expression{target}, value, nil, "")
}

func Param(name string) *Parameter {
	return NewParameter(ID(name), nil, nil, ParameterPositional)
}

func Ret(value Expression) *ReturnStatement {
	return NewReturnStatement(value)
}

func Fn(name string, params []*Parameter, body ...Statement) *FunctionDefinition {
	return NewFunctionDefinition(ID(name), params, body, nil, nil, false, false)
}

func Class(name string, bases []Expression, body ...Statement) *ClassDefinition {
	return NewClassDefinition(ID(name), bases, body, nil)
}

func Mod(name string, body ...Statement) *Module {
	return NewModule(name, name+".py", body)
}

// At sets a single-line span starting at line:col and returns the node.
func At[T Node](node T, line, col int) T {
	SetSpan(node, Span{Start: Position{Line: line, Column: col}, End: Position{Line: line, Column: col + 1}})
	return node
}
