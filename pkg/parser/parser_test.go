package parser_test

import (
	"errors"
	"testing"

	"github.com/mbodiai/pyinfer/pkg/ast"
	"github.com/mbodiai/pyinfer/pkg/parser"
)

func parseSource(t *testing.T, source string) *ast.Module {
	t.Helper()
	mp, err := parser.NewModuleParser()
	if err != nil {
		t.Fatalf("NewModuleParser: %v", err)
	}
	t.Cleanup(func() { mp.Close() })

	mod, err := mp.ParseModule("sample", "sample.py", []byte(source))
	if err != nil {
		t.Fatalf("ParseModule returned error: %v", err)
	}
	if mod == nil {
		t.Fatalf("ParseModule returned nil module")
	}
	return mod
}

func TestParseModuleIgnoresComments(t *testing.T) {
	mod := parseSource(t, `
# leading comment
def main():
    # body comment
    return 1
`)
	if mod.Name != "sample" || mod.Path != "sample.py" {
		t.Fatalf("unexpected module identity %q %q", mod.Name, mod.Path)
	}
	if len(mod.Body) != 1 {
		t.Fatalf("expected single statement in module body, got %d", len(mod.Body))
	}
	fn, ok := mod.Body[0].(*ast.FunctionDefinition)
	if !ok {
		t.Fatalf("expected FunctionDefinition, got %T", mod.Body[0])
	}
	if fn.ID.Name != "main" || len(fn.Body) != 1 {
		t.Fatalf("unexpected function %#v", fn)
	}
	if _, ok := fn.Body[0].(*ast.ReturnStatement); !ok {
		t.Fatalf("expected return statement, got %T", fn.Body[0])
	}
}

func TestParseModuleStatementSpans(t *testing.T) {
	mod := parseSource(t, "x = 1\n\ndef f(a, b=2, *rest, **kw):\n    return a\n")
	if len(mod.Body) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(mod.Body))
	}
	if got := mod.Body[0].Span().Start; got != (ast.Position{Line: 1, Column: 1}) {
		t.Fatalf("assignment starts at %+v", got)
	}
	fn := mod.Body[1].(*ast.FunctionDefinition)
	if got := fn.Span().Start; got != (ast.Position{Line: 3, Column: 1}) {
		t.Fatalf("function starts at %+v", got)
	}
	if len(fn.Params) != 4 {
		t.Fatalf("expected 4 parameters, got %d", len(fn.Params))
	}
	kinds := []ast.ParameterKind{ast.ParameterPositional, ast.ParameterPositional, ast.ParameterVarArgs, ast.ParameterKwArgs}
	for i, want := range kinds {
		if fn.Params[i].Kind != want {
			t.Fatalf("param %d kind = %s, want %s", i, fn.Params[i].Kind, want)
		}
	}
	if fn.Params[1].Default == nil {
		t.Fatalf("expected default on b")
	}
	ret := fn.Body[0].(*ast.ReturnStatement)
	if got := ret.Span().Start; got != (ast.Position{Line: 4, Column: 5}) {
		t.Fatalf("return starts at %+v", got)
	}
}

func TestParseDecoratedDefinitionKeepsDefinitionSpan(t *testing.T) {
	mod := parseSource(t, "@staticmethod\ndef f():\n    pass\n")
	fn, ok := mod.Body[0].(*ast.FunctionDefinition)
	if !ok {
		t.Fatalf("expected FunctionDefinition, got %T", mod.Body[0])
	}
	if len(fn.Decorators) != 1 {
		t.Fatalf("expected one decorator, got %d", len(fn.Decorators))
	}
	if fn.Span().Start.Line != 2 {
		t.Fatalf("expected definition on line 2, got %+v", fn.Span().Start)
	}
}

func TestParseChainedAssignment(t *testing.T) {
	mod := parseSource(t, "a = b = [1, 2.5, 'x']\n")
	assign, ok := mod.Body[0].(*ast.Assignment)
	if !ok {
		t.Fatalf("expected Assignment, got %T", mod.Body[0])
	}
	if len(assign.Targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(assign.Targets))
	}
	list, ok := assign.Value.(*ast.ListLiteral)
	if !ok || len(list.Elements) != 3 {
		t.Fatalf("expected 3-element list, got %#v", assign.Value)
	}
	if _, ok := list.Elements[0].(*ast.IntegerLiteral); !ok {
		t.Fatalf("expected integer, got %T", list.Elements[0])
	}
	if _, ok := list.Elements[1].(*ast.FloatLiteral); !ok {
		t.Fatalf("expected float, got %T", list.Elements[1])
	}
	str, ok := list.Elements[2].(*ast.StringLiteral)
	if !ok || str.Value != "x" || str.Bytes {
		t.Fatalf("expected string x, got %#v", list.Elements[2])
	}
}

func TestParseExpressions(t *testing.T) {
	mod := parseSource(t, `
y = f(1, key=b"raw", *args)
z = obj.attr[0]
w = a if c else -b
v = a < b <= c
u = x not in y
g = [i for i in range(3)]
n = 2j
`)
	value := func(i int) ast.Expression {
		t.Helper()
		assign, ok := mod.Body[i].(*ast.Assignment)
		if !ok {
			t.Fatalf("statement %d: expected Assignment, got %T", i, mod.Body[i])
		}
		return assign.Value
	}

	call, ok := value(0).(*ast.Call)
	if !ok || len(call.Arguments) != 3 {
		t.Fatalf("expected call with 3 args, got %#v", value(0))
	}
	if call.Arguments[1].Name != "key" {
		t.Fatalf("expected keyword argument, got %#v", call.Arguments[1])
	}
	if raw, ok := call.Arguments[1].Value.(*ast.StringLiteral); !ok || !raw.Bytes || raw.Value != "raw" {
		t.Fatalf("expected bytes literal, got %#v", call.Arguments[1].Value)
	}
	if call.Arguments[2].Star != 1 {
		t.Fatalf("expected star argument, got %d", call.Arguments[2].Star)
	}

	sub, ok := value(1).(*ast.Subscript)
	if !ok {
		t.Fatalf("expected Subscript, got %T", value(1))
	}
	if attr, ok := sub.Object.(*ast.Attribute); !ok || attr.Name.Name != "attr" {
		t.Fatalf("expected attribute object, got %#v", sub.Object)
	}

	cond, ok := value(2).(*ast.ConditionalExpression)
	if !ok {
		t.Fatalf("expected ConditionalExpression, got %T", value(2))
	}
	if unary, ok := cond.Orelse.(*ast.UnaryExpression); !ok || unary.Operator != "-" {
		t.Fatalf("expected unary minus, got %#v", cond.Orelse)
	}

	cmp, ok := value(3).(*ast.CompareExpression)
	if !ok || len(cmp.Operands) != 3 || len(cmp.Operators) != 2 {
		t.Fatalf("expected chained comparison, got %#v", value(3))
	}
	notIn, ok := value(4).(*ast.CompareExpression)
	if !ok || len(notIn.Operators) != 1 || notIn.Operators[0] != "not in" {
		t.Fatalf("expected not in, got %#v", value(4))
	}

	comp, ok := value(5).(*ast.Comprehension)
	if !ok || comp.Kind != ast.ComprehensionList {
		t.Fatalf("expected list comprehension, got %#v", value(5))
	}
	if _, ok := comp.Iterable.(*ast.Call); !ok {
		t.Fatalf("expected call iterable, got %T", comp.Iterable)
	}
	if _, ok := value(6).(*ast.ComplexLiteral); !ok {
		t.Fatalf("expected complex literal, got %T", value(6))
	}
}

func TestParseGeneratorFunction(t *testing.T) {
	mod := parseSource(t, `
def gen():
    def inner():
        yield 1
    return inner

def counter():
    yield 1
`)
	if mod.Body[0].(*ast.FunctionDefinition).IsGenerator {
		t.Fatalf("nested yield must not mark outer function as generator")
	}
	if !mod.Body[1].(*ast.FunctionDefinition).IsGenerator {
		t.Fatalf("expected counter to be a generator")
	}
}

func TestParseImports(t *testing.T) {
	mod := parseSource(t, "import os.path as p, sys\nfrom ..pkg import a as b, c\nfrom mod import *\n")
	imp := mod.Body[0].(*ast.ImportStatement)
	if len(imp.Names) != 2 || imp.Names[0].BoundName() != "p" || imp.Names[1].BoundName() != "sys" {
		t.Fatalf("unexpected import names %#v", imp.Names)
	}
	from := mod.Body[1].(*ast.ImportFrom)
	if from.Level != 2 || len(from.Module) != 1 || from.Module[0] != "pkg" {
		t.Fatalf("unexpected relative import %#v", from)
	}
	if len(from.Names) != 2 || from.Names[0].BoundName() != "b" {
		t.Fatalf("unexpected imported names %#v", from.Names)
	}
	if !mod.Body[2].(*ast.ImportFrom).Wildcard {
		t.Fatalf("expected wildcard import")
	}
}

func TestParseControlFlow(t *testing.T) {
	mod := parseSource(t, `
if a:
    x = 1
elif b:
    x = 2
else:
    x = 3
for i in items:
    pass
while True:
    break
with open(p) as fh:
    pass
try:
    pass
except ValueError as err:
    pass
finally:
    pass
`)
	ifStmt := mod.Body[0].(*ast.IfStatement)
	elif, ok := ifStmt.Alternative[0].(*ast.IfStatement)
	if !ok || len(elif.Alternative) != 1 {
		t.Fatalf("expected elif chain, got %#v", ifStmt.Alternative)
	}
	if _, ok := mod.Body[1].(*ast.ForStatement); !ok {
		t.Fatalf("expected for, got %T", mod.Body[1])
	}
	while := mod.Body[2].(*ast.WhileStatement)
	if pass, ok := while.Body[0].(*ast.PassStatement); !ok || pass.Keyword != "break" {
		t.Fatalf("expected break placeholder, got %#v", while.Body[0])
	}
	with := mod.Body[3].(*ast.WithStatement)
	if len(with.Items) != 1 || with.Items[0].Target == nil {
		t.Fatalf("expected with target, got %#v", with.Items)
	}
	try := mod.Body[4].(*ast.TryStatement)
	if len(try.Handlers) != 1 || try.Handlers[0].Name == nil || try.Handlers[0].Name.Name != "err" {
		t.Fatalf("unexpected handlers %#v", try.Handlers)
	}
	if len(try.Finally) != 1 {
		t.Fatalf("expected finally body")
	}
}

func TestParseGenericAnnotations(t *testing.T) {
	mod := parseSource(t, `
x: Dict[str, int] = {}
def f(a: List[int], b: typing.Optional[str], c: int | None) -> Optional[int]:
    return None
`)
	if len(mod.Body) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(mod.Body))
	}

	assign, ok := mod.Body[0].(*ast.Assignment)
	if !ok {
		t.Fatalf("expected Assignment, got %T", mod.Body[0])
	}
	dict, ok := assign.Annotation.(*ast.Subscript)
	if !ok {
		t.Fatalf("expected subscript annotation, got %T", assign.Annotation)
	}
	if id, ok := dict.Object.(*ast.Identifier); !ok || id.Name != "Dict" {
		t.Fatalf("unexpected generic %#v", dict.Object)
	}
	if args, ok := dict.Index.(*ast.TupleLiteral); !ok || len(args.Elements) != 2 {
		t.Fatalf("expected two type arguments, got %#v", dict.Index)
	}

	fn, ok := mod.Body[1].(*ast.FunctionDefinition)
	if !ok {
		t.Fatalf("expected FunctionDefinition, got %T", mod.Body[1])
	}
	list, ok := fn.Params[0].Annotation.(*ast.Subscript)
	if !ok {
		t.Fatalf("expected subscript annotation on a, got %T", fn.Params[0].Annotation)
	}
	if id, ok := list.Index.(*ast.Identifier); !ok || id.Name != "int" {
		t.Fatalf("unexpected List argument %#v", list.Index)
	}
	qualified, ok := fn.Params[1].Annotation.(*ast.Subscript)
	if !ok {
		t.Fatalf("expected subscript annotation on b, got %T", fn.Params[1].Annotation)
	}
	if attr, ok := qualified.Object.(*ast.Attribute); !ok || attr.Name.Name != "Optional" {
		t.Fatalf("expected typing.Optional, got %#v", qualified.Object)
	}
	if union, ok := fn.Params[2].Annotation.(*ast.BinaryExpression); !ok || union.Operator != "|" {
		t.Fatalf("expected union annotation on c, got %T", fn.Params[2].Annotation)
	}
	if _, ok := fn.Returns.(*ast.Subscript); !ok {
		t.Fatalf("expected subscript return annotation, got %T", fn.Returns)
	}
}

func TestParseModuleSyntaxError(t *testing.T) {
	mp, err := parser.NewModuleParser()
	if err != nil {
		t.Fatalf("NewModuleParser: %v", err)
	}
	t.Cleanup(func() { mp.Close() })

	_, err = mp.ParseModule("broken", "broken.py", []byte("def f(:\n    pass\n"))
	if err == nil {
		t.Fatalf("expected syntax error")
	}
	var serr *parser.SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SyntaxError, got %T", err)
	}
	if serr.Path != "broken.py" || serr.Position.Line != 1 {
		t.Fatalf("unexpected error location %+v", serr)
	}
}

func TestParseModuleIncompleteInput(t *testing.T) {
	mp, err := parser.NewModuleParser()
	if err != nil {
		t.Fatalf("NewModuleParser: %v", err)
	}
	t.Cleanup(func() { mp.Close() })

	_, err = mp.ParseModule("repl", "", []byte("x = ("))
	var serr *parser.SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SyntaxError, got %v", err)
	}
	if !serr.Incomplete {
		t.Fatalf("expected incomplete input, got %+v", serr)
	}
}
