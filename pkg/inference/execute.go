package inference

import (
	"fmt"

	"github.com/mbodiai/pyinfer/pkg/ast"
	"github.com/mbodiai/pyinfer/pkg/recursion"
)

// Argument is one inferred call argument. Star is 1 for *args and 2 for
// **kwargs.
type Argument struct {
	Name   string
	Values []Value
	Star   int
}

// Execution is one call of a callable value.
type Execution struct {
	Callee Value
	Args   []Argument
	// Node is the call site, if any. Instances are keyed by it.
	Node ast.Node
}

// Execute infers the result of calling exec.Callee. Function bodies run
// under the execution guard; a refused execution yields nothing.
func (e *Evaluator) Execute(exec *Execution) []Value {
	if exec == nil {
		return nil
	}
	return e.execute(exec, nil)
}

// execute is Execute with the caller's scope, used to attribute
// diagnostics to the call site.
func (e *Evaluator) execute(exec *Execution, site *Scope) []Value {
	switch callee := exec.Callee.(type) {
	case *Function:
		return e.executeFunction(callee, nil, exec, site)
	case *BoundMethod:
		return e.executeFunction(callee.Function, callee.Self, exec, site)
	case *Class:
		return e.instantiate(callee, exec)
	case *Instance:
		if callee.Class.Builtin() {
			return nil
		}
		methods, found := e.attribute(callee, "__call__")
		if !found {
			return nil
		}
		var out []Value
		for _, m := range methods {
			out = merge(out, e.execute(&Execution{Callee: m, Args: exec.Args, Node: exec.Node}, site)...)
		}
		return out
	default:
		return nil
	}
}

func (e *Evaluator) executeFunction(fn *Function, self Value, exec *Execution, site *Scope) []Value {
	if fn.Def != nil && fn.Def.IsGenerator {
		scope := e.bindArguments(fn, self, exec.Args)
		return []Value{&Generator{Function: fn, scope: scope}}
	}

	guarded := fn.execution()
	release, ok := e.executions.Enter(guarded)
	defer release()
	if !ok {
		e.cuts++
		if site != nil && exec.Node != nil {
			e.note(site, exec.Node, SeverityInfo,
				fmt.Sprintf("execution of %s blocked (%s)", guarded.Target.Name, e.reporter.last))
		}
		return nil
	}

	if fn.builtin() {
		if handler, ok := builtinHandlers[fn.QualifiedName()]; ok {
			if out, handled := handler(e, self, exec.Args); handled {
				return out
			}
		}
	}

	scope := e.bindArguments(fn, self, exec.Args)
	if fn.Lambda != nil {
		return e.infer(scope, fn.Lambda.Body)
	}
	return e.returnValues(scope, fn.Def)
}

// returnValues infers a function body's results: the return annotation
// when it names a type, otherwise every return statement.
func (e *Evaluator) returnValues(scope *Scope, def *ast.FunctionDefinition) []Value {
	if def.Returns != nil {
		if vs := e.annotationValues(scope.parent, def.Returns); len(vs) > 0 {
			return vs
		}
	}
	var (
		out     []Value
		returns bool
	)
	ast.Walk(def.Body, func(stmt ast.Statement) bool {
		ret, ok := stmt.(*ast.ReturnStatement)
		if !ok {
			return true
		}
		returns = true
		if ret.Value == nil {
			out = merge(out, e.none())
			return true
		}
		out = merge(out, e.infer(scope, ret.Value)...)
		return true
	})
	if !returns {
		return []Value{e.none()}
	}
	return out
}

// bindArguments opens a scope for one execution of fn with args bound to
// its parameters.
func (e *Evaluator) bindArguments(fn *Function, self Value, args []Argument) *Scope {
	var body []ast.Statement
	if fn.Def != nil {
		body = fn.Def.Body
	}
	scope := newScope(scopeFunction, fn.Module, fn.closure, body)

	var positional [][]Value
	if self != nil {
		positional = append(positional, []Value{self})
	}
	keywords := make(map[string][]Value)
	for _, arg := range args {
		switch {
		case arg.Name != "":
			keywords[arg.Name] = merge(keywords[arg.Name], arg.Values...)
		case arg.Star == 1:
			positional = append(positional, e.spread(arg.Values)...)
		case arg.Star == 0:
			positional = append(positional, arg.Values)
		}
	}

	next := 0
	for _, p := range fn.params() {
		name := p.Name.Name
		switch p.Kind {
		case ast.ParameterVarArgs:
			rest := &Tuple{}
			if next < len(positional) {
				rest.Items = positional[next:]
				next = len(positional)
			}
			scope.bind(name, []Value{rest})
		case ast.ParameterKwArgs:
			d := &Dict{}
			for _, vs := range keywords {
				d.Keys = merge(d.Keys, e.builtinInstance("str"))
				d.Values = merge(d.Values, vs...)
			}
			scope.bind(name, []Value{d})
		default:
			var values []Value
			if next < len(positional) {
				values = positional[next]
				next++
			} else if vs, ok := keywords[name]; ok {
				values = vs
				delete(keywords, name)
			} else if p.Annotation != nil {
				values = e.annotationValues(fn.closure, p.Annotation)
			}
			if len(values) == 0 && p.Default != nil {
				values = e.infer(fn.closure, p.Default)
			}
			scope.bind(name, values)
		}
	}
	return scope
}

// spread expands a *args argument into positional slots where the length is
// known.
func (e *Evaluator) spread(values []Value) [][]Value {
	if len(values) == 1 {
		if t, ok := values[0].(*Tuple); ok {
			return t.Items
		}
	}
	return [][]Value{e.iterate(values)}
}

// instance returns the instance of cls created at site. Builtin classes
// share one instance.
func (e *Evaluator) instance(cls *Class, args []Argument, site ast.Node) *Instance {
	if cls.Builtin() {
		return e.builtinInstance(cls.ClassName())
	}
	key := valueKey{node: site, cls: cls}
	if inst, ok := e.instances[key]; ok {
		return inst
	}
	inst := &Instance{Class: cls, args: args}
	e.instances[key] = inst
	return inst
}

func (e *Evaluator) instantiate(cls *Class, exec *Execution) []Value {
	if cls.Builtin() {
		if ctor, ok := builtinConstructors[cls.ClassName()]; ok {
			return ctor(e, exec.Args)
		}
	}
	return []Value{e.instance(cls, exec.Args, exec.Node)}
}

// iterate infers the items produced by iterating each value.
func (e *Evaluator) iterate(values []Value) []Value {
	var out []Value
	for _, v := range values {
		out = merge(out, e.iterateOne(v)...)
	}
	return out
}

func (e *Evaluator) iterateOne(v Value) []Value {
	switch val := v.(type) {
	case *List, *Tuple, *Set, *Dict:
		release, ok := e.enterContainer(val, "__iter__")
		defer release()
		if !ok {
			return nil
		}
		switch c := val.(type) {
		case *List:
			return c.Items
		case *Tuple:
			return c.all()
		case *Set:
			return c.Items
		case *Dict:
			return c.Keys
		}
	case *Generator:
		return e.generatorItems(val)
	case *Instance:
		if next, found := e.attribute(val, "__next__"); found {
			var out []Value
			for _, m := range next {
				out = merge(out, e.Execute(&Execution{Callee: m})...)
			}
			return out
		}
		iter, found := e.attribute(val, "__iter__")
		if !found {
			return nil
		}
		var out []Value
		for _, m := range iter {
			for _, it := range e.Execute(&Execution{Callee: m}) {
				if it == v {
					continue
				}
				out = merge(out, e.iterateOne(it)...)
			}
		}
		return out
	}
	return nil
}

// generatorItems infers everything a generator yields under a generator
// execution.
func (e *Evaluator) generatorItems(g *Generator) []Value {
	target := recursion.TargetID{Module: BuiltinsModule, Name: "generator"}
	if g.Function != nil {
		target = g.Function.execution().Target
	}
	release, ok := e.executions.Enter(recursion.Execution{Target: target, Kind: recursion.KindGenerator})
	defer release()
	if !ok {
		e.cuts++
		return nil
	}
	if g.Function == nil || g.Function.Def == nil {
		return g.Items
	}

	var out []Value
	yielded := func(y *ast.Yield) {
		switch {
		case y.Value == nil:
			out = merge(out, e.none())
		case y.From:
			out = merge(out, e.iterate(e.infer(g.scope, y.Value))...)
		default:
			out = merge(out, e.infer(g.scope, y.Value)...)
		}
	}
	ast.Walk(g.Function.Def.Body, func(stmt ast.Statement) bool {
		switch s := stmt.(type) {
		case *ast.ExpressionStatement:
			if y, ok := s.Expression.(*ast.Yield); ok {
				yielded(y)
			}
		case *ast.Assignment:
			if y, ok := s.Value.(*ast.Yield); ok {
				yielded(y)
			}
		}
		return true
	})
	return out
}
