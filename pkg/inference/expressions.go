package inference

import (
	"fmt"

	"github.com/mbodiai/pyinfer/pkg/ast"
	"github.com/mbodiai/pyinfer/pkg/recursion"
)

func (e *Evaluator) infer(scope *Scope, expr ast.Expression) []Value {
	switch ex := expr.(type) {
	case nil:
		return nil
	case *ast.Identifier:
		values, found := e.lookup(scope, ex.Name)
		if !found {
			e.note(scope, ex, SeverityError, fmt.Sprintf("undefined name %q", ex.Name))
		}
		return values
	case *ast.IntegerLiteral:
		return []Value{e.builtinInstance("int")}
	case *ast.FloatLiteral:
		return []Value{e.builtinInstance("float")}
	case *ast.ComplexLiteral:
		return []Value{e.builtinInstance("complex")}
	case *ast.StringLiteral:
		if ex.Bytes {
			return []Value{e.builtinInstance("bytes")}
		}
		return []Value{e.builtinInstance("str")}
	case *ast.BooleanLiteral:
		return []Value{e.builtinInstance("bool")}
	case *ast.NoneLiteral:
		return []Value{e.none()}
	case *ast.ListLiteral:
		return []Value{e.literal(ex, scope, func() Value {
			return &List{Items: e.inferAll(scope, ex.Elements)}
		})}
	case *ast.SetLiteral:
		return []Value{e.literal(ex, scope, func() Value {
			return &Set{Items: e.inferAll(scope, ex.Elements)}
		})}
	case *ast.TupleLiteral:
		return []Value{e.literal(ex, scope, func() Value {
			items := make([][]Value, 0, len(ex.Elements))
			for _, el := range ex.Elements {
				items = append(items, e.infer(scope, el))
			}
			return &Tuple{Items: items}
		})}
	case *ast.DictLiteral:
		return []Value{e.literal(ex, scope, func() Value {
			d := &Dict{}
			for _, entry := range ex.Entries {
				d.Keys = merge(d.Keys, e.infer(scope, entry.Key)...)
				d.Values = merge(d.Values, e.infer(scope, entry.Value)...)
			}
			return d
		})}
	case *ast.Comprehension:
		return []Value{e.literal(ex, scope, func() Value {
			return e.comprehension(scope, ex)
		})}
	case *ast.Call:
		return e.inferCall(scope, ex)
	case *ast.Attribute:
		return e.inferAttribute(scope, ex)
	case *ast.Subscript:
		return e.subscript(e.infer(scope, ex.Object), ex.Index, e.infer(scope, ex.Index))
	case *ast.BinaryExpression:
		left := e.infer(scope, ex.Left)
		right := e.infer(scope, ex.Right)
		return e.binaryValues(ex.Operator, left, right)
	case *ast.UnaryExpression:
		return e.unaryValues(ex.Operator, e.infer(scope, ex.Operand))
	case *ast.CompareExpression:
		for _, operand := range ex.Operands {
			e.infer(scope, operand)
		}
		return []Value{e.builtinInstance("bool")}
	case *ast.ConditionalExpression:
		e.infer(scope, ex.Condition)
		return merge(e.infer(scope, ex.Body), e.infer(scope, ex.Orelse)...)
	case *ast.Lambda:
		return []Value{e.lambda(ex, scope)}
	case *ast.Yield:
		// The value sent into a generator is unknown.
		e.infer(scope, ex.Value)
		return nil
	default:
		return nil
	}
}

func (e *Evaluator) inferAll(scope *Scope, exprs []ast.Expression) []Value {
	var out []Value
	for _, expr := range exprs {
		out = merge(out, e.infer(scope, expr)...)
	}
	return out
}

// literal returns the container built for node in scope, building it once.
func (e *Evaluator) literal(node ast.Node, scope *Scope, build func() Value) Value {
	key := valueKey{node: node, scope: scope}
	if v, ok := e.literals[key]; ok {
		return v
	}
	v := build()
	e.literals[key] = v
	return v
}

func (e *Evaluator) comprehension(scope *Scope, c *ast.Comprehension) Value {
	inner := newScope(scopeComprehension, scope.module, scope, nil)
	values := e.iterate(e.infer(scope, c.Iterable))
	for _, name := range targetNames(c.Target) {
		vs, _ := e.unpack(c.Target, values, name)
		inner.bind(name, vs)
	}
	elements := e.infer(inner, c.Element)
	switch c.Kind {
	case ast.ComprehensionSet:
		return &Set{Items: elements}
	case ast.ComprehensionDict:
		return &Dict{Keys: e.infer(inner, c.Key), Values: elements}
	case ast.ComprehensionGenerator:
		return &Generator{Items: elements}
	default:
		return &List{Items: elements}
	}
}

func (e *Evaluator) inferCall(scope *Scope, call *ast.Call) []Value {
	callees := e.infer(scope, call.Callee)
	args := e.arguments(scope, call.Arguments)
	var out []Value
	for _, callee := range callees {
		out = merge(out, e.execute(&Execution{Callee: callee, Args: args, Node: call}, scope)...)
	}
	return out
}

func (e *Evaluator) arguments(scope *Scope, args []*ast.Argument) []Argument {
	out := make([]Argument, 0, len(args))
	for _, arg := range args {
		out = append(out, Argument{
			Name:   arg.Name,
			Values: e.infer(scope, arg.Value),
			Star:   arg.Star,
		})
	}
	return out
}

var binaryDunders = map[string]string{
	"+":  "__add__",
	"-":  "__sub__",
	"*":  "__mul__",
	"/":  "__truediv__",
	"//": "__floordiv__",
	"%":  "__mod__",
	"**": "__pow__",
	"@":  "__matmul__",
	"&":  "__and__",
	"|":  "__or__",
	"^":  "__xor__",
	"<<": "__lshift__",
	">>": "__rshift__",
}

var numericRank = map[string]int{
	"bool":    0,
	"int":     1,
	"float":   2,
	"complex": 3,
}

var rankNames = []string{"bool", "int", "float", "complex"}

func (e *Evaluator) binaryValues(op string, left, right []Value) []Value {
	if op == "and" || op == "or" {
		return merge(left, right...)
	}
	var out []Value
	for _, l := range left {
		for _, r := range right {
			out = merge(out, e.binary(op, l, r)...)
		}
	}
	return out
}

func (e *Evaluator) binary(op string, l, r Value) []Value {
	if rank, ok := e.numericResult(op, l, r); ok {
		return []Value{e.builtinInstance(rankNames[rank])}
	}
	switch lv := l.(type) {
	case *List:
		if rv, ok := r.(*List); ok && op == "+" {
			return []Value{&List{Items: merge(append([]Value(nil), lv.Items...), rv.Items...)}}
		}
		if op == "*" {
			return []Value{lv}
		}
	case *Tuple:
		if rv, ok := r.(*Tuple); ok && op == "+" {
			items := append(append([][]Value(nil), lv.Items...), rv.Items...)
			return []Value{&Tuple{Items: items}}
		}
		if op == "*" {
			return []Value{&Tuple{Items: [][]Value{lv.all()}}}
		}
	case *Set:
		if _, ok := r.(*Set); ok {
			return []Value{lv}
		}
	case *Dict:
		if _, ok := r.(*Dict); ok && op == "|" {
			return []Value{lv}
		}
	}
	if li, ok := l.(*Instance); ok && op == "*" && e.isBuiltinNamed(li, "int", "bool") {
		switch r.(type) {
		case *List, *Tuple:
			return []Value{r}
		}
	}
	dunder, ok := binaryDunders[op]
	if !ok {
		return nil
	}
	if out := e.callDunder(l, dunder, r); len(out) > 0 {
		return out
	}
	return e.callDunder(r, "__r"+dunder[2:], l)
}

// numericResult applies numeric promotion between builtin numbers.
func (e *Evaluator) numericResult(op string, l, r Value) (int, bool) {
	li, lok := l.(*Instance)
	ri, rok := r.(*Instance)
	if !lok || !rok || !li.Class.Builtin() || !ri.Class.Builtin() {
		return 0, false
	}
	lr, lok := numericRank[li.Class.ClassName()]
	rr, rok := numericRank[ri.Class.ClassName()]
	if !lok || !rok {
		return 0, false
	}
	if _, ok := binaryDunders[op]; !ok {
		return 0, false
	}
	rank := max(lr, rr, 1)
	if op == "/" {
		rank = max(rank, 2)
	}
	return rank, true
}

func (e *Evaluator) isBuiltinNamed(inst *Instance, names ...string) bool {
	if !inst.Class.Builtin() {
		return false
	}
	for _, n := range names {
		if inst.Class.ClassName() == n {
			return true
		}
	}
	return false
}

func (e *Evaluator) callDunder(receiver Value, name string, arg Value) []Value {
	inst, ok := receiver.(*Instance)
	if !ok {
		return nil
	}
	methods, found := e.attribute(inst, name)
	if !found {
		return nil
	}
	var out []Value
	for _, m := range methods {
		out = merge(out, e.Execute(&Execution{Callee: m, Args: []Argument{{Values: []Value{arg}}}})...)
	}
	return out
}

var unaryDunders = map[string]string{
	"-": "__neg__",
	"+": "__pos__",
	"~": "__invert__",
}

func (e *Evaluator) unaryValues(op string, operand []Value) []Value {
	if op == "not" {
		return []Value{e.builtinInstance("bool")}
	}
	var out []Value
	for _, v := range operand {
		inst, ok := v.(*Instance)
		if !ok {
			continue
		}
		if rank, numeric := numericRank[inst.Class.ClassName()]; numeric && inst.Class.Builtin() {
			out = merge(out, e.builtinInstance(rankNames[max(rank, 1)]))
			continue
		}
		methods, found := e.attribute(inst, unaryDunders[op])
		if !found {
			continue
		}
		for _, m := range methods {
			out = merge(out, e.Execute(&Execution{Callee: m})...)
		}
	}
	return out
}

// subscript infers values[index]. Built-in containers run under a
// container execution.
func (e *Evaluator) subscript(values []Value, index ast.Expression, indexValues []Value) []Value {
	var out []Value
	for _, v := range values {
		switch val := v.(type) {
		case *List, *Tuple, *Dict, *Set:
			out = merge(out, e.containerItem(val, index)...)
		case *Instance:
			methods, found := e.attribute(val, "__getitem__")
			if !found {
				continue
			}
			for _, m := range methods {
				out = merge(out, e.Execute(&Execution{Callee: m, Args: []Argument{{Values: indexValues}}})...)
			}
		case *Class:
			// Generic alias such as list[int].
			out = merge(out, val)
		}
	}
	return out
}

func (e *Evaluator) containerItem(container Value, index ast.Expression) []Value {
	release, ok := e.enterContainer(container, "__getitem__")
	defer release()
	if !ok {
		return nil
	}
	if isSlice(index) {
		return []Value{container}
	}
	switch c := container.(type) {
	case *List:
		return c.Items
	case *Set:
		return c.Items
	case *Dict:
		return c.Values
	case *Tuple:
		if i, ok := constantIndex(index); ok {
			if i < 0 {
				i += len(c.Items)
			}
			if i >= 0 && i < len(c.Items) {
				return c.Items[i]
			}
		}
		return c.all()
	}
	return nil
}

func (e *Evaluator) enterContainer(container Value, method string) (func(), bool) {
	release, ok := e.executions.Enter(recursion.Execution{
		Target: recursion.TargetID{Module: BuiltinsModule, Name: container.Name() + "." + method},
		Kind:   recursion.KindContainer,
	})
	if !ok {
		e.cuts++
	}
	return release, ok
}

func isSlice(index ast.Expression) bool {
	u, ok := index.(*ast.Unsupported)
	return ok && u.Kind == "slice"
}

func constantIndex(index ast.Expression) (int, bool) {
	negate := false
	if u, ok := index.(*ast.UnaryExpression); ok && u.Operator == "-" {
		negate = true
		index = u.Operand
	}
	lit, ok := index.(*ast.IntegerLiteral)
	if !ok {
		return 0, false
	}
	var n int
	if _, err := fmt.Sscanf(lit.Raw, "%d", &n); err != nil {
		return 0, false
	}
	if negate {
		n = -n
	}
	return n, true
}
