package inference

import (
	"github.com/mbodiai/pyinfer/pkg/ast"
)

// statementValues infers what stmt evaluates to. Compound statements infer
// their header expressions so analysis sees every name they use.
func (e *Evaluator) statementValues(scope *Scope, stmt ast.Statement) []Value {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		return e.infer(scope, s.Expression)
	case *ast.Assignment:
		for _, target := range s.Targets {
			e.inferTargetObject(scope, target)
		}
		return e.assignedValues(scope, s)
	case *ast.ReturnStatement:
		if s.Value == nil {
			return []Value{e.none()}
		}
		return e.infer(scope, s.Value)
	case *ast.FunctionDefinition:
		for _, dec := range s.Decorators {
			e.infer(scope, dec)
		}
		for _, p := range s.Params {
			if p.Default != nil {
				e.infer(scope, p.Default)
			}
			if p.Annotation != nil {
				e.annotationValues(scope, p.Annotation)
			}
		}
		return []Value{e.function(s, scope)}
	case *ast.ClassDefinition:
		for _, base := range s.Bases {
			e.infer(scope, base)
		}
		return []Value{e.class(s, scope)}
	case *ast.ImportStatement:
		var out []Value
		for _, n := range s.Names {
			out = merge(out, e.importValues(scope, n)...)
		}
		return out
	case *ast.ImportFrom:
		var out []Value
		for _, n := range s.Names {
			out = merge(out, e.importFromValues(scope, s, n)...)
		}
		return out
	case *ast.IfStatement:
		return e.infer(scope, s.Condition)
	case *ast.WhileStatement:
		return e.infer(scope, s.Condition)
	case *ast.ForStatement:
		return e.iterate(e.infer(scope, s.Iterable))
	case *ast.WithStatement:
		var out []Value
		for _, item := range s.Items {
			out = merge(out, e.withValues(scope, item)...)
		}
		return out
	case *ast.TryStatement:
		for _, h := range s.Handlers {
			if h != nil && h.Type != nil {
				e.infer(scope, h.Type)
			}
		}
		return nil
	default:
		return nil
	}
}

// bindingValues infers the values stmt binds to name.
func (e *Evaluator) bindingValues(scope *Scope, stmt ast.Statement, name string) []Value {
	switch s := stmt.(type) {
	case *ast.Assignment:
		values := e.assignedValues(scope, s)
		var out []Value
		for _, target := range s.Targets {
			if vs, ok := e.unpack(target, values, name); ok {
				out = merge(out, vs...)
			}
		}
		return out
	case *ast.FunctionDefinition:
		return []Value{e.function(s, scope)}
	case *ast.ClassDefinition:
		return []Value{e.class(s, scope)}
	case *ast.ImportStatement:
		var out []Value
		for _, n := range s.Names {
			if n.BoundName() == name {
				out = merge(out, e.importValues(scope, n)...)
			}
		}
		return out
	case *ast.ImportFrom:
		var out []Value
		for _, n := range s.Names {
			if n.BoundName() == name {
				out = merge(out, e.importFromValues(scope, s, n)...)
			}
		}
		return out
	case *ast.ForStatement:
		values := e.iterate(e.infer(scope, s.Iterable))
		vs, _ := e.unpack(s.Target, values, name)
		return vs
	case *ast.WithStatement:
		var out []Value
		for _, item := range s.Items {
			if item.Target == nil {
				continue
			}
			if vs, ok := e.unpack(item.Target, e.withValues(scope, item), name); ok {
				out = merge(out, vs...)
			}
		}
		return out
	case *ast.TryStatement:
		var out []Value
		for _, h := range s.Handlers {
			if h == nil || h.Name == nil || h.Name.Name != name || h.Type == nil {
				continue
			}
			out = merge(out, e.exceptionInstances(e.infer(scope, h.Type))...)
		}
		return out
	default:
		return nil
	}
}

func (e *Evaluator) assignedValues(scope *Scope, s *ast.Assignment) []Value {
	if s.Annotation != nil {
		if vs := e.annotationValues(scope, s.Annotation); len(vs) > 0 || s.Value == nil {
			if s.Value != nil {
				e.infer(scope, s.Value)
			}
			return vs
		}
	}
	if s.Value == nil {
		return nil
	}
	if s.Operator != "" && len(s.Targets) == 1 {
		op := s.Operator[:len(s.Operator)-1]
		left := e.infer(scope, s.Targets[0])
		right := e.infer(scope, s.Value)
		return e.binaryValues(op, left, right)
	}
	return e.infer(scope, s.Value)
}

// inferTargetObject infers the object part of attribute and subscript
// targets, which are read rather than bound.
func (e *Evaluator) inferTargetObject(scope *Scope, target ast.Expression) {
	switch t := target.(type) {
	case *ast.Attribute:
		e.infer(scope, t.Object)
	case *ast.Subscript:
		e.infer(scope, t.Object)
		e.infer(scope, t.Index)
	case *ast.TupleLiteral:
		for _, el := range t.Elements {
			e.inferTargetObject(scope, el)
		}
	case *ast.ListLiteral:
		for _, el := range t.Elements {
			e.inferTargetObject(scope, el)
		}
	}
}

// unpack returns the values name receives when values are assigned to
// target. ok is false when target does not bind name.
func (e *Evaluator) unpack(target ast.Expression, values []Value, name string) ([]Value, bool) {
	var elements []ast.Expression
	switch t := target.(type) {
	case *ast.Identifier:
		if t.Name == name {
			return values, true
		}
		return nil, false
	case *ast.TupleLiteral:
		elements = t.Elements
	case *ast.ListLiteral:
		elements = t.Elements
	default:
		return nil, false
	}
	for i, el := range elements {
		if vs, ok := e.unpack(el, e.nth(values, i, len(elements)), name); ok {
			return vs, true
		}
	}
	return nil, false
}

// nth picks element i of an n-element unpacking.
func (e *Evaluator) nth(values []Value, i, n int) []Value {
	var out []Value
	for _, v := range values {
		if t, ok := v.(*Tuple); ok && len(t.Items) == n {
			out = merge(out, t.Items[i]...)
			continue
		}
		out = merge(out, e.iterate([]Value{v})...)
	}
	return out
}

func (e *Evaluator) withValues(scope *Scope, item *ast.WithItem) []Value {
	var out []Value
	for _, v := range e.infer(scope, item.Value) {
		inst, ok := v.(*Instance)
		if !ok || inst.Class.Builtin() {
			out = merge(out, v)
			continue
		}
		enter, found := e.attribute(inst, "__enter__")
		if !found {
			out = merge(out, v)
			continue
		}
		for _, m := range enter {
			out = merge(out, e.Execute(&Execution{Callee: m})...)
		}
	}
	return out
}

func (e *Evaluator) exceptionInstances(types []Value) []Value {
	var out []Value
	for _, t := range types {
		switch typ := t.(type) {
		case *Class:
			out = merge(out, e.instance(typ, nil, nil))
		case *Tuple:
			out = merge(out, e.exceptionInstances(typ.all())...)
		}
	}
	return out
}

// function returns the function value for def in scope.
func (e *Evaluator) function(def *ast.FunctionDefinition, scope *Scope) *Function {
	key := valueKey{node: def, scope: scope}
	if fn, ok := e.functions[key]; ok {
		return fn
	}
	fn := &Function{Def: def, Module: scope.module, Owner: scope.owner, closure: scope.closure()}
	e.functions[key] = fn
	return fn
}

func (e *Evaluator) lambda(l *ast.Lambda, scope *Scope) *Function {
	key := valueKey{node: l, scope: scope}
	if fn, ok := e.functions[key]; ok {
		return fn
	}
	fn := &Function{Lambda: l, Module: scope.module, closure: scope.closure()}
	e.functions[key] = fn
	return fn
}

// class returns the class value for def in scope.
func (e *Evaluator) class(def *ast.ClassDefinition, scope *Scope) *Class {
	key := valueKey{node: def, scope: scope}
	if cls, ok := e.classes[key]; ok {
		return cls
	}
	cls := &Class{Def: def, Module: scope.module}
	cls.scope = newScope(scopeClass, scope.module, scope, def.Body)
	cls.scope.owner = cls
	e.classes[key] = cls
	return cls
}

// analysisScope is the scope of def's body when it is inspected without a
// call: parameters come from defaults and annotations, and a method's
// first parameter is an instance of its class.
func (e *Evaluator) analysisScope(scope *Scope, def *ast.FunctionDefinition) *Scope {
	fn := e.function(def, scope)
	var self Value
	if scope.owner != nil && !fn.hasDecorator("staticmethod") {
		if fn.hasDecorator("classmethod") {
			self = scope.owner
		} else {
			self = e.instance(scope.owner, nil, nil)
		}
	}
	return e.bindArguments(fn, self, nil)
}

// annotationValues turns a type annotation into the values it describes.
func (e *Evaluator) annotationValues(scope *Scope, expr ast.Expression) []Value {
	switch ann := expr.(type) {
	case *ast.StringLiteral:
		values, _ := e.lookup(scope, ann.Value)
		return e.instancesOf(values)
	case *ast.NoneLiteral:
		return []Value{e.none()}
	case *ast.BinaryExpression:
		if ann.Operator == "|" {
			return merge(e.annotationValues(scope, ann.Left), e.annotationValues(scope, ann.Right)...)
		}
	case *ast.Subscript:
		return e.genericAnnotation(scope, ann)
	case *ast.Identifier:
		switch ann.Name {
		case "Any":
			return nil
		case "List", "Dict", "Set", "Tuple", "FrozenSet":
			return e.instancesOf([]Value{e.builtinClass(typingAliases[ann.Name])})
		}
	}
	return e.instancesOf(e.infer(scope, expr))
}

var typingAliases = map[string]string{
	"List":      "list",
	"Dict":      "dict",
	"Set":       "set",
	"FrozenSet": "frozenset",
	"Tuple":     "tuple",
}

func (e *Evaluator) genericAnnotation(scope *Scope, ann *ast.Subscript) []Value {
	name := ""
	switch obj := ann.Object.(type) {
	case *ast.Identifier:
		name = obj.Name
	case *ast.Attribute:
		name = obj.Name.Name
	}
	args := []ast.Expression{ann.Index}
	if t, ok := ann.Index.(*ast.TupleLiteral); ok {
		args = t.Elements
	}
	arg := func(i int) []Value {
		if i >= len(args) {
			return nil
		}
		return e.annotationValues(scope, args[i])
	}
	switch name {
	case "Optional":
		return merge(arg(0), e.none())
	case "Union":
		var out []Value
		for i := range args {
			out = merge(out, arg(i)...)
		}
		return out
	case "List", "list":
		return []Value{&List{Items: arg(0)}}
	case "Set", "set", "FrozenSet", "frozenset":
		return []Value{&Set{Items: arg(0)}}
	case "Dict", "dict":
		return []Value{&Dict{Keys: arg(0), Values: arg(1)}}
	case "Tuple", "tuple":
		items := make([][]Value, 0, len(args))
		for i := range args {
			items = append(items, arg(i))
		}
		return []Value{&Tuple{Items: items}}
	default:
		return e.annotationValues(scope, ann.Object)
	}
}

// instancesOf maps classes to their instances and drops everything else.
func (e *Evaluator) instancesOf(values []Value) []Value {
	var out []Value
	for _, v := range values {
		if cls, ok := v.(*Class); ok {
			out = merge(out, e.instance(cls, nil, nil))
		}
	}
	return out
}
