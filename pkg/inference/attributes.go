package inference

import (
	"fmt"

	"github.com/mbodiai/pyinfer/pkg/ast"
)

func (e *Evaluator) inferAttribute(scope *Scope, attr *ast.Attribute) []Value {
	objects := e.infer(scope, attr.Object)
	name := attr.Name.Name
	var (
		out     []Value
		missing Value
		unknown bool
	)
	for _, obj := range objects {
		vs, found := e.attribute(obj, name)
		out = merge(out, vs...)
		switch {
		case found:
		case e.closedNamespace(obj):
			missing = obj
		default:
			unknown = true
		}
	}
	if len(out) == 0 && missing != nil && !unknown {
		e.note(scope, attr.Name, SeverityError, fmt.Sprintf("%s has no attribute %q", Describe(missing), name))
	}
	return out
}

// closedNamespace reports whether a failed lookup on v is certain: the
// value is a module or an instance of a class whose bases are all known
// and which does not define __getattr__.
func (e *Evaluator) closedNamespace(v Value) bool {
	switch val := v.(type) {
	case *ModuleValue:
		return len(e.moduleScope(val.Module).wildcards) == 0
	case *Instance:
		if val.Class.Builtin() {
			return false
		}
		classes, complete := e.mro(val.Class)
		if !complete {
			return false
		}
		for _, cls := range classes {
			if len(cls.scope.bindings("__getattr__")) > 0 {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// attribute resolves v.name.
func (e *Evaluator) attribute(v Value, name string) ([]Value, bool) {
	switch val := v.(type) {
	case *ModuleValue:
		return e.moduleAttribute(val.Module, name)
	case *Instance:
		return e.instanceAttribute(val, name)
	case *Class:
		return e.classAttribute(val, name)
	case *List, *Tuple, *Dict, *Set, *Generator:
		cls := e.builtinClass(v.Name())
		if cls == nil {
			return nil, false
		}
		return e.memberOf(cls, name, v)
	default:
		return nil, false
	}
}

func (e *Evaluator) classAttribute(cls *Class, name string) ([]Value, bool) {
	classes, _ := e.mro(cls)
	for _, c := range classes {
		vs, found := e.lookupLocal(c.scope, name)
		if !found {
			continue
		}
		var out []Value
		for _, v := range vs {
			if fn, ok := v.(*Function); ok && fn.hasDecorator("classmethod") {
				out = merge(out, &BoundMethod{Function: fn, Self: cls})
				continue
			}
			out = merge(out, v)
		}
		return out, true
	}
	return nil, false
}

// instanceAttribute looks in self.<name> assignments of every method, then
// in the class bodies along the MRO.
func (e *Evaluator) instanceAttribute(inst *Instance, name string) ([]Value, bool) {
	classes, _ := e.mro(inst.Class)
	var (
		out   []Value
		found bool
	)
	for _, cls := range classes {
		if cls.Builtin() {
			continue
		}
		vs, ok := e.selfAssignments(inst, cls, name)
		if ok {
			found = true
			out = merge(out, vs...)
		}
	}
	if vs, ok := e.memberOf(inst.Class, name, inst); ok {
		found = true
		out = merge(out, vs...)
	}
	return out, found
}

// memberOf finds name along cls's MRO and binds functions to self.
func (e *Evaluator) memberOf(cls *Class, name string, self Value) ([]Value, bool) {
	classes, _ := e.mro(cls)
	for _, c := range classes {
		vs, found := e.lookupLocal(c.scope, name)
		if !found {
			continue
		}
		var out []Value
		for _, v := range vs {
			fn, ok := v.(*Function)
			if !ok {
				out = merge(out, v)
				continue
			}
			switch {
			case fn.hasDecorator("staticmethod"):
				out = merge(out, fn)
			case fn.hasDecorator("classmethod"):
				out = merge(out, &BoundMethod{Function: fn, Self: c})
			case fn.hasDecorator("property"):
				out = merge(out, e.Execute(&Execution{Callee: &BoundMethod{Function: fn, Self: self}})...)
			default:
				out = merge(out, &BoundMethod{Function: fn, Self: self})
			}
		}
		return out, true
	}
	return nil, false
}

// selfAssignments infers `self.name = value` statements in the methods of
// cls, with self bound to inst. __init__ sees the constructor arguments.
func (e *Evaluator) selfAssignments(inst *Instance, cls *Class, name string) ([]Value, bool) {
	var (
		out   []Value
		found bool
	)
	for _, stmt := range cls.Def.Body {
		def, ok := stmt.(*ast.FunctionDefinition)
		if !ok || len(def.Params) == 0 {
			continue
		}
		selfName := def.Params[0].Name.Name
		var assignments []*ast.Assignment
		ast.Walk(def.Body, func(s ast.Statement) bool {
			if assign, ok := s.(*ast.Assignment); ok && assignsSelfAttr(assign, selfName, name) {
				assignments = append(assignments, assign)
			}
			return true
		})
		if len(assignments) == 0 {
			continue
		}
		found = true
		fn := e.function(def, cls.scope)
		if fn.hasDecorator("staticmethod") || fn.hasDecorator("classmethod") {
			continue
		}
		var args []Argument
		if def.ID.Name == "__init__" {
			args = inst.args
		}
		scope := e.bindArguments(fn, inst, args)
		for _, assign := range assignments {
			values := e.guardStatement(scope, assign, func() []Value {
				return e.assignedValues(scope, assign)
			})
			out = merge(out, values...)
		}
	}
	return out, found
}

func assignsSelfAttr(assign *ast.Assignment, selfName, name string) bool {
	for _, target := range assign.Targets {
		attr, ok := target.(*ast.Attribute)
		if !ok || attr.Name.Name != name {
			continue
		}
		if id, ok := attr.Object.(*ast.Identifier); ok && id.Name == selfName {
			return true
		}
	}
	return false
}

// mro lists cls and its bases depth first, ending with object. complete is
// false when some base could not be inferred to a class.
func (e *Evaluator) mro(cls *Class) (classes []*Class, complete bool) {
	complete = true
	seen := make(map[*Class]bool)
	var visit func(c *Class)
	visit = func(c *Class) {
		if seen[c] {
			return
		}
		seen[c] = true
		classes = append(classes, c)
		parent := c.scope.parent
		for _, base := range c.Def.Bases {
			var resolved bool
			for _, v := range e.infer(parent, base) {
				if b, ok := v.(*Class); ok {
					resolved = true
					visit(b)
				}
			}
			if !resolved {
				complete = false
			}
		}
	}
	visit(cls)
	if object := e.builtinClass("object"); object != nil && !seen[object] {
		classes = append(classes, object)
	}
	return classes, complete
}

func (e *Evaluator) moduleAttribute(module *ast.Module, name string) ([]Value, bool) {
	if vs, ok := e.lookupLocal(e.moduleScope(module), name); ok {
		return vs, true
	}
	if sub := e.importModule(module.Name + "." + name); sub != nil {
		return []Value{&ModuleValue{Module: sub}}, true
	}
	return nil, false
}
