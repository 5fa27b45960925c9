package inference

import (
	"github.com/mbodiai/pyinfer/pkg/ast"
)

type scopeKind int

const (
	scopeModule scopeKind = iota
	scopeClass
	scopeFunction
	scopeComprehension
)

// Scope is a lexical scope: a module body, a class body, one execution of
// a function, or a comprehension. Names bound by statements are inferred
// lazily on lookup.
type Scope struct {
	kind   scopeKind
	module *ast.Module
	parent *Scope
	body   []ast.Statement
	// owner is set on class scopes.
	owner *Class

	bound     map[string][]Value
	index     map[string][]ast.Statement
	wildcards []*ast.ImportFrom
}

func newScope(kind scopeKind, module *ast.Module, parent *Scope, body []ast.Statement) *Scope {
	return &Scope{
		kind:   kind,
		module: module,
		parent: parent,
		body:   body,
		bound:  make(map[string][]Value),
	}
}

// Module returns the module the scope belongs to.
func (s *Scope) Module() *ast.Module {
	return s.module
}

func (s *Scope) bind(name string, values []Value) {
	s.bound[name] = merge(s.bound[name], values...)
}

// closure is the scope functions defined here close over. Class bodies are
// not visible from their methods.
func (s *Scope) closure() *Scope {
	if s.kind == scopeClass {
		return s.parent
	}
	return s
}

func (s *Scope) bindings(name string) []ast.Statement {
	if s.index == nil {
		s.buildIndex()
	}
	return s.index[name]
}

func (s *Scope) buildIndex() {
	s.index = make(map[string][]ast.Statement)
	add := func(name string, stmt ast.Statement) {
		if name != "" {
			s.index[name] = append(s.index[name], stmt)
		}
	}
	ast.Walk(s.body, func(stmt ast.Statement) bool {
		switch st := stmt.(type) {
		case *ast.Assignment:
			for _, target := range st.Targets {
				for _, name := range targetNames(target) {
					add(name, stmt)
				}
			}
		case *ast.FunctionDefinition:
			add(st.ID.Name, stmt)
		case *ast.ClassDefinition:
			add(st.ID.Name, stmt)
		case *ast.ImportStatement:
			for _, n := range st.Names {
				add(n.BoundName(), stmt)
			}
		case *ast.ImportFrom:
			if st.Wildcard {
				s.wildcards = append(s.wildcards, st)
			}
			for _, n := range st.Names {
				add(n.BoundName(), stmt)
			}
		case *ast.ForStatement:
			for _, name := range targetNames(st.Target) {
				add(name, stmt)
			}
		case *ast.WithStatement:
			for _, item := range st.Items {
				for _, name := range targetNames(item.Target) {
					add(name, stmt)
				}
			}
		case *ast.TryStatement:
			for _, h := range st.Handlers {
				if h != nil && h.Name != nil {
					add(h.Name.Name, stmt)
				}
			}
		}
		return true
	})
}

// targetNames lists the plain names an assignment target binds.
func targetNames(target ast.Expression) []string {
	switch t := target.(type) {
	case *ast.Identifier:
		return []string{t.Name}
	case *ast.TupleLiteral:
		var out []string
		for _, el := range t.Elements {
			out = append(out, targetNames(el)...)
		}
		return out
	case *ast.ListLiteral:
		var out []string
		for _, el := range t.Elements {
			out = append(out, targetNames(el)...)
		}
		return out
	default:
		return nil
	}
}

var moduleDunders = map[string]bool{
	"__name__": true,
	"__file__": true,
	"__doc__":  true,
}

// lookup resolves name outward from scope, ending at the builtin module.
// found is false when no scope binds the name at all.
func (e *Evaluator) lookup(scope *Scope, name string) (values []Value, found bool) {
	for s := scope; s != nil; s = s.parent {
		if vs, ok := e.lookupLocal(s, name); ok {
			return vs, true
		}
	}
	return nil, false
}

// lookupLocal resolves name in scope alone.
func (e *Evaluator) lookupLocal(s *Scope, name string) ([]Value, bool) {
	vs, found := s.bound[name]
	if stmts := s.bindings(name); len(stmts) > 0 {
		found = true
		for _, stmt := range stmts {
			vs = merge(vs, e.inferBinding(s, stmt, name)...)
		}
	}
	if found {
		return vs, true
	}
	if s.kind == scopeModule && moduleDunders[name] {
		return []Value{e.builtinInstance("str")}, true
	}
	for _, imp := range s.wildcards {
		if vs, ok := e.wildcardLookup(s, imp, name); ok {
			return vs, true
		}
	}
	return nil, false
}
