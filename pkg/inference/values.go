package inference

import (
	"fmt"
	"strings"

	"github.com/mbodiai/pyinfer/pkg/ast"
	"github.com/mbodiai/pyinfer/pkg/recursion"
)

// Value is one possible result of inferring an expression.
type Value interface {
	// Name is the Python type name of the value, as type(v).__name__.
	Name() string
}

// Instance is an object of a class. Instances of builtin classes are shared
// per class.
type Instance struct {
	Class *Class
	args  []Argument
}

func (i *Instance) Name() string { return i.Class.ClassName() }

// Class is a class definition bound in a particular scope.
type Class struct {
	Def    *ast.ClassDefinition
	Module *ast.Module
	scope  *Scope
}

func (c *Class) Name() string { return "type" }

// ClassName is the name the class was defined with.
func (c *Class) ClassName() string {
	if c.Def == nil || c.Def.ID == nil {
		return "?"
	}
	return c.Def.ID.Name
}

// Builtin reports whether the class comes from the builtin module.
func (c *Class) Builtin() bool {
	return c.Module != nil && c.Module.Builtin
}

// Function is a def or lambda closed over the scope it was defined in.
type Function struct {
	Def    *ast.FunctionDefinition
	Lambda *ast.Lambda
	Module *ast.Module
	// Owner is the class whose body defines the function, if any.
	Owner   *Class
	closure *Scope
}

func (f *Function) Name() string { return "function" }

// FuncName is the defined name, or "<lambda>".
func (f *Function) FuncName() string {
	if f.Def != nil && f.Def.ID != nil {
		return f.Def.ID.Name
	}
	return "<lambda>"
}

// QualifiedName prefixes the owning class, as in "list.append".
func (f *Function) QualifiedName() string {
	if f.Owner != nil {
		return f.Owner.ClassName() + "." + f.FuncName()
	}
	return f.FuncName()
}

func (f *Function) params() []*ast.Parameter {
	if f.Def != nil {
		return f.Def.Params
	}
	if f.Lambda != nil {
		return f.Lambda.Params
	}
	return nil
}

func (f *Function) node() ast.Node {
	if f.Def != nil {
		return f.Def
	}
	return f.Lambda
}

func (f *Function) builtin() bool {
	return f.Module != nil && f.Module.Builtin
}

func (f *Function) hasDecorator(name string) bool {
	if f.Def == nil {
		return false
	}
	for _, dec := range f.Def.Decorators {
		if id, ok := dec.(*ast.Identifier); ok && id.Name == name {
			return true
		}
	}
	return false
}

func (f *Function) execution() recursion.Execution {
	exec := recursion.Execution{
		Target: recursion.TargetID{
			Position: f.node().Span().Start,
			Name:     f.QualifiedName(),
		},
		Kind:    recursion.KindFunction,
		Builtin: f.builtin(),
	}
	if f.Module != nil {
		exec.Target.Module = recursion.ModuleID(f.Module.Name)
	}
	if exec.Builtin {
		exec.Kind = recursion.KindBuiltin
	}
	return exec
}

// BoundMethod is a function with its first parameter fixed.
type BoundMethod struct {
	Function *Function
	Self     Value
}

func (m *BoundMethod) Name() string { return "method" }

// List holds the union of its element values.
type List struct {
	Items []Value
}

func (l *List) Name() string { return "list" }

// Tuple keeps element values per position.
type Tuple struct {
	Items [][]Value
}

func (t *Tuple) Name() string { return "tuple" }

func (t *Tuple) all() []Value {
	var out []Value
	for _, item := range t.Items {
		out = merge(out, item...)
	}
	return out
}

type Set struct {
	Items []Value
}

func (s *Set) Name() string { return "set" }

type Dict struct {
	Keys   []Value
	Values []Value
}

func (d *Dict) Name() string { return "dict" }

// Generator is either a suspended generator function or a generator
// expression whose items are already known.
type Generator struct {
	Function *Function
	Items    []Value
	scope    *Scope
}

func (g *Generator) Name() string { return "generator" }

type ModuleValue struct {
	Module *ast.Module
}

func (m *ModuleValue) Name() string { return "module" }

// Describe renders a value for people: "int", "class Point",
// "list[int, str]".
func Describe(v Value) string {
	return describe(v, 0)
}

func describe(v Value, depth int) string {
	if depth > 3 {
		return "..."
	}
	switch val := v.(type) {
	case *Instance:
		return val.Class.ClassName()
	case *Class:
		return "class " + val.ClassName()
	case *Function:
		return "def " + val.QualifiedName()
	case *BoundMethod:
		return "method " + val.Function.QualifiedName()
	case *List:
		return generic("list", depth, val.Items)
	case *Set:
		return generic("set", depth, val.Items)
	case *Tuple:
		if len(val.Items) == 0 {
			return "tuple"
		}
		parts := make([]string, 0, len(val.Items))
		for _, item := range val.Items {
			parts = append(parts, union(item, depth+1))
		}
		return "tuple[" + strings.Join(parts, ", ") + "]"
	case *Dict:
		if len(val.Keys) == 0 && len(val.Values) == 0 {
			return "dict"
		}
		return fmt.Sprintf("dict[%s, %s]", union(val.Keys, depth+1), union(val.Values, depth+1))
	case *Generator:
		return "generator"
	case *ModuleValue:
		return "module " + val.Module.Name
	case nil:
		return "<nil>"
	default:
		return v.Name()
	}
}

func generic(name string, depth int, items []Value) string {
	if len(items) == 0 {
		return name
	}
	return name + "[" + union(items, depth+1) + "]"
}

func union(values []Value, depth int) string {
	if len(values) == 0 {
		return "?"
	}
	seen := make(map[string]bool, len(values))
	parts := make([]string, 0, len(values))
	for _, v := range values {
		s := describe(v, depth)
		if seen[s] {
			continue
		}
		seen[s] = true
		parts = append(parts, s)
	}
	return strings.Join(parts, " | ")
}

// merge appends src to dst, skipping values already present.
func merge(dst []Value, src ...Value) []Value {
outer:
	for _, v := range src {
		if v == nil {
			continue
		}
		for _, have := range dst {
			if have == v {
				continue outer
			}
		}
		dst = append(dst, v)
	}
	return dst
}
