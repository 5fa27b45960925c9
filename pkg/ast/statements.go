package ast

type ExpressionStatement struct {
	nodeImpl
	statementMarker

	Expression Expression `json:"expression"`
}

func NewExpressionStatement(expr Expression) *ExpressionStatement {
	return &ExpressionStatement{nodeImpl: newNodeImpl(NodeExpressionStatement), Expression: expr}
}

// Assignment covers plain (`a = b = v`), annotated (`a: T = v`) and
// augmented (`a += v`) assignments. Operator is empty for plain and
// annotated forms.
type Assignment struct {
	nodeImpl
	statementMarker

	Targets    []Expression `json:"targets"`
	Value      Expression   `json:"value,omitempty"`
	Annotation Expression   `json:"annotation,omitempty"`
	Operator   string       `json:"operator,omitempty"`
}

func NewAssignment(targets []Expression, value Expression, annotation Expression, operator string) *Assignment {
	return &Assignment{nodeImpl: newNodeImpl(NodeAssignment), Targets: targets, Value: value, Annotation: annotation, Operator: operator}
}

type ParameterKind string

const (
	ParameterPositional ParameterKind = "positional"
	ParameterVarArgs    ParameterKind = "varargs"
	ParameterKwArgs     ParameterKind = "kwargs"
)

type Parameter struct {
	nodeImpl

	Name       *Identifier   `json:"name"`
	Annotation Expression    `json:"annotation,omitempty"`
	Default    Expression    `json:"default,omitempty"`
	Kind       ParameterKind `json:"kind"`
}

func NewParameter(name *Identifier, annotation, def Expression, kind ParameterKind) *Parameter {
	if kind == "" {
		kind = ParameterPositional
	}
	return &Parameter{nodeImpl: newNodeImpl(NodeParameter), Name: name, Annotation: annotation, Default: def, Kind: kind}
}

type FunctionDefinition struct {
	nodeImpl
	statementMarker

	ID          *Identifier  `json:"id"`
	Params      []*Parameter `json:"params"`
	Body        []Statement  `json:"body"`
	Returns     Expression   `json:"returns,omitempty"`
	Decorators  []Expression `json:"decorators,omitempty"`
	IsGenerator bool         `json:"isGenerator,omitempty"`
	IsAsync     bool         `json:"isAsync,omitempty"`
}

func NewFunctionDefinition(id *Identifier, params []*Parameter, body []Statement, returns Expression, decorators []Expression, isGenerator, isAsync bool) *FunctionDefinition {
	return &FunctionDefinition{
		nodeImpl:    newNodeImpl(NodeFunctionDefinition),
		ID:          id,
		Params:      params,
		Body:        body,
		Returns:     returns,
		Decorators:  decorators,
		IsGenerator: isGenerator,
		IsAsync:     isAsync,
	}
}

type ClassDefinition struct {
	nodeImpl
	statementMarker

	ID         *Identifier  `json:"id"`
	Bases      []Expression `json:"bases,omitempty"`
	Body       []Statement  `json:"body"`
	Decorators []Expression `json:"decorators,omitempty"`
}

func NewClassDefinition(id *Identifier, bases []Expression, body []Statement, decorators []Expression) *ClassDefinition {
	return &ClassDefinition{nodeImpl: newNodeImpl(NodeClassDefinition), ID: id, Bases: bases, Body: body, Decorators: decorators}
}

type ReturnStatement struct {
	nodeImpl
	statementMarker

	Value Expression `json:"value,omitempty"`
}

func NewReturnStatement(value Expression) *ReturnStatement {
	return &ReturnStatement{nodeImpl: newNodeImpl(NodeReturnStatement), Value: value}
}

// ImportName is one `a.b.c as d` entry of an import.
type ImportName struct {
	nodeImpl

	Path  []string `json:"path"`
	Alias string   `json:"alias,omitempty"`
}

func NewImportName(path []string, alias string) *ImportName {
	return &ImportName{nodeImpl: newNodeImpl(NodeImportName), Path: path, Alias: alias}
}

// BoundName is the name the import introduces into the enclosing scope.
func (n *ImportName) BoundName() string {
	if n == nil {
		return ""
	}
	if n.Alias != "" {
		return n.Alias
	}
	if len(n.Path) == 0 {
		return ""
	}
	return n.Path[0]
}

type ImportStatement struct {
	nodeImpl
	statementMarker

	Names []*ImportName `json:"names"`
}

func NewImportStatement(names []*ImportName) *ImportStatement {
	return &ImportStatement{nodeImpl: newNodeImpl(NodeImportStatement), Names: names}
}

type ImportFrom struct {
	nodeImpl
	statementMarker

	Module   []string      `json:"module"`
	Level    int           `json:"level,omitempty"`
	Names    []*ImportName `json:"names,omitempty"`
	Wildcard bool          `json:"wildcard,omitempty"`
}

func NewImportFrom(module []string, level int, names []*ImportName, wildcard bool) *ImportFrom {
	return &ImportFrom{nodeImpl: newNodeImpl(NodeImportFrom), Module: module, Level: level, Names: names, Wildcard: wildcard}
}

type IfStatement struct {
	nodeImpl
	statementMarker

	Condition   Expression  `json:"condition"`
	Body        []Statement `json:"body"`
	Alternative []Statement `json:"alternative,omitempty"`
}

func NewIfStatement(condition Expression, body, alternative []Statement) *IfStatement {
	return &IfStatement{nodeImpl: newNodeImpl(NodeIfStatement), Condition: condition, Body: body, Alternative: alternative}
}

type ForStatement struct {
	nodeImpl
	statementMarker

	Target   Expression  `json:"target"`
	Iterable Expression  `json:"iterable"`
	Body     []Statement `json:"body"`
	Orelse   []Statement `json:"orelse,omitempty"`
}

func NewForStatement(target, iterable Expression, body, orelse []Statement) *ForStatement {
	return &ForStatement{nodeImpl: newNodeImpl(NodeForStatement), Target: target, Iterable: iterable, Body: body, Orelse: orelse}
}

type WhileStatement struct {
	nodeImpl
	statementMarker

	Condition Expression  `json:"condition"`
	Body      []Statement `json:"body"`
	Orelse    []Statement `json:"orelse,omitempty"`
}

func NewWhileStatement(condition Expression, body, orelse []Statement) *WhileStatement {
	return &WhileStatement{nodeImpl: newNodeImpl(NodeWhileStatement), Condition: condition, Body: body, Orelse: orelse}
}

type WithItem struct {
	nodeImpl

	Value  Expression `json:"value"`
	Target Expression `json:"target,omitempty"`
}

func NewWithItem(value, target Expression) *WithItem {
	return &WithItem{nodeImpl: newNodeImpl(NodeWithItem), Value: value, Target: target}
}

type WithStatement struct {
	nodeImpl
	statementMarker

	Items []*WithItem `json:"items"`
	Body  []Statement `json:"body"`
}

func NewWithStatement(items []*WithItem, body []Statement) *WithStatement {
	return &WithStatement{nodeImpl: newNodeImpl(NodeWithStatement), Items: items, Body: body}
}

type ExceptClause struct {
	nodeImpl

	Type Expression  `json:"type,omitempty"`
	Name *Identifier `json:"name,omitempty"`
	Body []Statement `json:"body"`
}

func NewExceptClause(typ Expression, name *Identifier, body []Statement) *ExceptClause {
	return &ExceptClause{nodeImpl: newNodeImpl(NodeExceptClause), Type: typ, Name: name, Body: body}
}

type TryStatement struct {
	nodeImpl
	statementMarker

	Body     []Statement     `json:"body"`
	Handlers []*ExceptClause `json:"handlers,omitempty"`
	Orelse   []Statement     `json:"orelse,omitempty"`
	Finally  []Statement     `json:"finally,omitempty"`
}

func NewTryStatement(body []Statement, handlers []*ExceptClause, orelse, finally []Statement) *TryStatement {
	return &TryStatement{nodeImpl: newNodeImpl(NodeTryStatement), Body: body, Handlers: handlers, Orelse: orelse, Finally: finally}
}

// PassStatement also represents `break`, `continue`, `global` and other
// statements that bind nothing.
type PassStatement struct {
	nodeImpl
	statementMarker

	Keyword string `json:"keyword"`
}

func NewPassStatement(keyword string) *PassStatement {
	return &PassStatement{nodeImpl: newNodeImpl(NodePassStatement), Keyword: keyword}
}
