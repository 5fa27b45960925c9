package ast

type NodeType string

const (
	NodeModule                NodeType = "Module"
	NodeIdentifier            NodeType = "Identifier"
	NodeIntegerLiteral        NodeType = "IntegerLiteral"
	NodeFloatLiteral          NodeType = "FloatLiteral"
	NodeComplexLiteral        NodeType = "ComplexLiteral"
	NodeStringLiteral         NodeType = "StringLiteral"
	NodeBooleanLiteral        NodeType = "BooleanLiteral"
	NodeNoneLiteral           NodeType = "NoneLiteral"
	NodeListLiteral           NodeType = "ListLiteral"
	NodeTupleLiteral          NodeType = "TupleLiteral"
	NodeSetLiteral            NodeType = "SetLiteral"
	NodeDictLiteral           NodeType = "DictLiteral"
	NodeDictEntry             NodeType = "DictEntry"
	NodeComprehension         NodeType = "Comprehension"
	NodeCall                  NodeType = "Call"
	NodeArgument              NodeType = "Argument"
	NodeAttribute             NodeType = "Attribute"
	NodeSubscript             NodeType = "Subscript"
	NodeBinaryExpression      NodeType = "BinaryExpression"
	NodeUnaryExpression       NodeType = "UnaryExpression"
	NodeCompareExpression     NodeType = "CompareExpression"
	NodeConditionalExpression NodeType = "ConditionalExpression"
	NodeLambda                NodeType = "Lambda"
	NodeYield                 NodeType = "Yield"
	NodeUnsupported           NodeType = "Unsupported"
	NodeExpressionStatement   NodeType = "ExpressionStatement"
	NodeAssignment            NodeType = "Assignment"
	NodeParameter             NodeType = "Parameter"
	NodeFunctionDefinition    NodeType = "FunctionDefinition"
	NodeClassDefinition       NodeType = "ClassDefinition"
	NodeReturnStatement       NodeType = "ReturnStatement"
	NodeImportName            NodeType = "ImportName"
	NodeImportStatement       NodeType = "ImportStatement"
	NodeImportFrom            NodeType = "ImportFrom"
	NodeIfStatement           NodeType = "IfStatement"
	NodeForStatement          NodeType = "ForStatement"
	NodeWhileStatement        NodeType = "WhileStatement"
	NodeWithItem              NodeType = "WithItem"
	NodeWithStatement         NodeType = "WithStatement"
	NodeExceptClause          NodeType = "ExceptClause"
	NodeTryStatement          NodeType = "TryStatement"
	NodePassStatement         NodeType = "PassStatement"
)

type Node interface {
	NodeType() NodeType
	Span() Span
	isNode()
}

// Position is a 1-based source location.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

type nodeImpl struct {
	Type NodeType `json:"type"`
	span Span
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (n nodeImpl) Span() Span         { return n.span }
func (nodeImpl) isNode()              {}
func (n *nodeImpl) setSpan(span Span) { n.span = span }

// SetSpan annotates the node with the provided span.
func SetSpan(node Node, span Span) {
	if node == nil {
		return
	}
	if setter, ok := node.(interface{ setSpan(Span) }); ok {
		setter.setSpan(span)
	}
}

// Marker interfaces.

type Expression interface {
	Node
	expressionNode()
}

type expressionMarker struct{}

func (expressionMarker) expressionNode() {}

type Statement interface {
	Node
	statementNode()
}

type statementMarker struct{}

func (statementMarker) statementNode() {}

// Module is a single parsed source file.
type Module struct {
	nodeImpl

	Name    string      `json:"name"`
	Path    string      `json:"path,omitempty"`
	Body    []Statement `json:"body"`
	Builtin bool        `json:"builtin,omitempty"`
}

func NewModule(name, path string, body []Statement) *Module {
	return &Module{nodeImpl: newNodeImpl(NodeModule), Name: name, Path: path, Body: body}
}

// Identifier

type Identifier struct {
	nodeImpl
	expressionMarker

	Name string `json:"name"`
}

func NewIdentifier(name string) *Identifier {
	return &Identifier{nodeImpl: newNodeImpl(NodeIdentifier), Name: name}
}

// Literals

type IntegerLiteral struct {
	nodeImpl
	expressionMarker

	Raw string `json:"raw"`
}

func NewIntegerLiteral(raw string) *IntegerLiteral {
	return &IntegerLiteral{nodeImpl: newNodeImpl(NodeIntegerLiteral), Raw: raw}
}

type FloatLiteral struct {
	nodeImpl
	expressionMarker

	Raw string `json:"raw"`
}

func NewFloatLiteral(raw string) *FloatLiteral {
	return &FloatLiteral{nodeImpl: newNodeImpl(NodeFloatLiteral), Raw: raw}
}

type ComplexLiteral struct {
	nodeImpl
	expressionMarker

	Raw string `json:"raw"`
}

func NewComplexLiteral(raw string) *ComplexLiteral {
	return &ComplexLiteral{nodeImpl: newNodeImpl(NodeComplexLiteral), Raw: raw}
}

type StringLiteral struct {
	nodeImpl
	expressionMarker

	Value string `json:"value"`
	Bytes bool   `json:"bytes,omitempty"`
}

func NewStringLiteral(value string, bytes bool) *StringLiteral {
	return &StringLiteral{nodeImpl: newNodeImpl(NodeStringLiteral), Value: value, Bytes: bytes}
}

type BooleanLiteral struct {
	nodeImpl
	expressionMarker

	Value bool `json:"value"`
}

func NewBooleanLiteral(value bool) *BooleanLiteral {
	return &BooleanLiteral{nodeImpl: newNodeImpl(NodeBooleanLiteral), Value: value}
}

type NoneLiteral struct {
	nodeImpl
	expressionMarker
}

func NewNoneLiteral() *NoneLiteral {
	return &NoneLiteral{nodeImpl: newNodeImpl(NodeNoneLiteral)}
}

// Collections

type ListLiteral struct {
	nodeImpl
	expressionMarker

	Elements []Expression `json:"elements"`
}

func NewListLiteral(elements []Expression) *ListLiteral {
	return &ListLiteral{nodeImpl: newNodeImpl(NodeListLiteral), Elements: elements}
}

type TupleLiteral struct {
	nodeImpl
	expressionMarker

	Elements []Expression `json:"elements"`
}

func NewTupleLiteral(elements []Expression) *TupleLiteral {
	return &TupleLiteral{nodeImpl: newNodeImpl(NodeTupleLiteral), Elements: elements}
}

type SetLiteral struct {
	nodeImpl
	expressionMarker

	Elements []Expression `json:"elements"`
}

func NewSetLiteral(elements []Expression) *SetLiteral {
	return &SetLiteral{nodeImpl: newNodeImpl(NodeSetLiteral), Elements: elements}
}

type DictEntry struct {
	nodeImpl

	Key   Expression `json:"key"`
	Value Expression `json:"value"`
}

func NewDictEntry(key, value Expression) *DictEntry {
	return &DictEntry{nodeImpl: newNodeImpl(NodeDictEntry), Key: key, Value: value}
}

type DictLiteral struct {
	nodeImpl
	expressionMarker

	Entries []*DictEntry `json:"entries"`
}

func NewDictLiteral(entries []*DictEntry) *DictLiteral {
	return &DictLiteral{nodeImpl: newNodeImpl(NodeDictLiteral), Entries: entries}
}

type ComprehensionKind string

const (
	ComprehensionList      ComprehensionKind = "list"
	ComprehensionSet       ComprehensionKind = "set"
	ComprehensionDict      ComprehensionKind = "dict"
	ComprehensionGenerator ComprehensionKind = "generator"
)

// Comprehension covers list/set/dict comprehensions and generator
// expressions. Only the first for-clause is kept.
type Comprehension struct {
	nodeImpl
	expressionMarker

	Kind     ComprehensionKind `json:"kind"`
	Key      Expression        `json:"key,omitempty"`
	Element  Expression        `json:"element"`
	Target   Expression        `json:"target"`
	Iterable Expression        `json:"iterable"`
}

func NewComprehension(kind ComprehensionKind, key, element, target, iterable Expression) *Comprehension {
	return &Comprehension{nodeImpl: newNodeImpl(NodeComprehension), Kind: kind, Key: key, Element: element, Target: target, Iterable: iterable}
}

// Calls and access

type Argument struct {
	nodeImpl

	Name  string     `json:"name,omitempty"`
	Value Expression `json:"value"`
	Star  int        `json:"star,omitempty"`
}

func NewArgument(name string, value Expression, star int) *Argument {
	return &Argument{nodeImpl: newNodeImpl(NodeArgument), Name: name, Value: value, Star: star}
}

type Call struct {
	nodeImpl
	expressionMarker

	Callee    Expression  `json:"callee"`
	Arguments []*Argument `json:"arguments"`
}

func NewCall(callee Expression, args []*Argument) *Call {
	return &Call{nodeImpl: newNodeImpl(NodeCall), Callee: callee, Arguments: args}
}

type Attribute struct {
	nodeImpl
	expressionMarker

	Object Expression  `json:"object"`
	Name   *Identifier `json:"name"`
}

func NewAttribute(object Expression, name *Identifier) *Attribute {
	return &Attribute{nodeImpl: newNodeImpl(NodeAttribute), Object: object, Name: name}
}

type Subscript struct {
	nodeImpl
	expressionMarker

	Object Expression `json:"object"`
	Index  Expression `json:"index"`
}

func NewSubscript(object, index Expression) *Subscript {
	return &Subscript{nodeImpl: newNodeImpl(NodeSubscript), Object: object, Index: index}
}

// Operators

type BinaryExpression struct {
	nodeImpl
	expressionMarker

	Operator string     `json:"operator"`
	Left     Expression `json:"left"`
	Right    Expression `json:"right"`
}

func NewBinaryExpression(operator string, left, right Expression) *BinaryExpression {
	return &BinaryExpression{nodeImpl: newNodeImpl(NodeBinaryExpression), Operator: operator, Left: left, Right: right}
}

type UnaryExpression struct {
	nodeImpl
	expressionMarker

	Operator string     `json:"operator"`
	Operand  Expression `json:"operand"`
}

func NewUnaryExpression(operator string, operand Expression) *UnaryExpression {
	return &UnaryExpression{nodeImpl: newNodeImpl(NodeUnaryExpression), Operator: operator, Operand: operand}
}

type CompareExpression struct {
	nodeImpl
	expressionMarker

	Operators []string     `json:"operators"`
	Operands  []Expression `json:"operands"`
}

func NewCompareExpression(operators []string, operands []Expression) *CompareExpression {
	return &CompareExpression{nodeImpl: newNodeImpl(NodeCompareExpression), Operators: operators, Operands: operands}
}

type ConditionalExpression struct {
	nodeImpl
	expressionMarker

	Body      Expression `json:"body"`
	Condition Expression `json:"condition"`
	Orelse    Expression `json:"orelse"`
}

func NewConditionalExpression(body, condition, orelse Expression) *ConditionalExpression {
	return &ConditionalExpression{nodeImpl: newNodeImpl(NodeConditionalExpression), Body: body, Condition: condition, Orelse: orelse}
}

type Lambda struct {
	nodeImpl
	expressionMarker

	Params []*Parameter `json:"params"`
	Body   Expression   `json:"body"`
}

func NewLambda(params []*Parameter, body Expression) *Lambda {
	return &Lambda{nodeImpl: newNodeImpl(NodeLambda), Params: params, Body: body}
}

type Yield struct {
	nodeImpl
	expressionMarker

	Value Expression `json:"value,omitempty"`
	From  bool       `json:"from,omitempty"`
}

func NewYield(value Expression, from bool) *Yield {
	return &Yield{nodeImpl: newNodeImpl(NodeYield), Value: value, From: from}
}

// Unsupported stands in for syntax the evaluator does not model. It infers
// to nothing.
type Unsupported struct {
	nodeImpl
	expressionMarker

	Kind string `json:"kind"`
}

func NewUnsupported(kind string) *Unsupported {
	return &Unsupported{nodeImpl: newNodeImpl(NodeUnsupported), Kind: kind}
}
