// Package typer derives Cython type declarations for a Python module from
// its annotations and, where those are missing, from inference.
package typer

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/mbodiai/pyinfer/pkg/ast"
	"github.com/mbodiai/pyinfer/pkg/inference"
)

var cythonTypes = map[string]string{
	"int":      "long",
	"float":    "double",
	"str":      "str",
	"bool":     "bint",
	"bytes":    "bytes",
	"list":     "list",
	"dict":     "dict",
	"set":      "set",
	"tuple":    "tuple",
	"Any":      "object",
	"Optional": "object",
	"Union":    "object",
	"None":     "void",
	"NoneType": "void",
	"complex":  "double complex",
}

// CythonType maps a Python type name to its Cython spelling. Unknown names
// are objects.
func CythonType(pythonName string) string {
	if t, ok := cythonTypes[pythonName]; ok {
		return t
	}
	return "object"
}

// Local is one typed name.
type Local struct {
	Name string
	Type string
}

// Declaration is the set of declarations emitted before one line: a
// function's locals and return type, or a module-level declare.
type Declaration struct {
	// Position is where the owning def or assignment starts.
	Position ast.Position
	Function bool
	Locals   []Local
	// Returns is empty when the return type is unknown.
	Returns string
}

func (d *Declaration) add(name, typ string) {
	if name == "" || typ == "" {
		return
	}
	for _, l := range d.Locals {
		if l.Name == name {
			return
		}
	}
	d.Locals = append(d.Locals, Local{Name: name, Type: typ})
}

// Analyse collects declarations for every function in module and for its
// module-level annotated assignments, ordered by position.
func Analyse(ev *inference.Evaluator, module *ast.Module) []Declaration {
	a := analyser{ev: ev, module: module}
	a.visit(module.Body, false, true)
	sort.SliceStable(a.decls, func(i, j int) bool {
		pi, pj := a.decls[i].Position, a.decls[j].Position
		if pi.Line != pj.Line {
			return pi.Line < pj.Line
		}
		return pi.Column < pj.Column
	})
	return a.decls
}

type analyser struct {
	ev     *inference.Evaluator
	module *ast.Module
	decls  []Declaration
}

func (a *analyser) visit(body []ast.Statement, inClass, topLevel bool) {
	ast.Walk(body, func(stmt ast.Statement) bool {
		switch s := stmt.(type) {
		case *ast.FunctionDefinition:
			if d := a.function(s, inClass); len(d.Locals) > 0 || d.Returns != "" {
				a.decls = append(a.decls, d)
			}
			a.visit(s.Body, false, false)
		case *ast.ClassDefinition:
			a.visit(s.Body, true, false)
		case *ast.Assignment:
			if !topLevel || s.Annotation == nil || len(s.Targets) != 1 {
				return true
			}
			id, ok := s.Targets[0].(*ast.Identifier)
			if !ok {
				return true
			}
			d := Declaration{Position: s.Span().Start}
			d.add(id.Name, annotationType(s.Annotation))
			a.decls = append(a.decls, d)
		}
		return true
	})
}

func (a *analyser) function(def *ast.FunctionDefinition, method bool) Declaration {
	d := Declaration{Position: def.Span().Start, Function: true}
	ctx, ok := a.ev.FunctionContext(a.module, def)

	params := def.Params
	if method && !hasDecorator(def, "staticmethod") && len(params) > 0 {
		params = params[1:]
	}
	for _, p := range params {
		if p.Kind == ast.ParameterVarArgs || p.Kind == ast.ParameterKwArgs {
			continue
		}
		switch {
		case p.Annotation != nil:
			d.add(p.Name.Name, annotationType(p.Annotation))
		case ok:
			d.add(p.Name.Name, valuesType(a.ev.Lookup(ctx, p.Name.Name), false))
		}
	}

	ast.Walk(def.Body, func(stmt ast.Statement) bool {
		s, isAssign := stmt.(*ast.Assignment)
		if !isAssign || s.Annotation == nil || len(s.Targets) != 1 {
			return true
		}
		if id, isName := s.Targets[0].(*ast.Identifier); isName {
			d.add(id.Name, annotationType(s.Annotation))
		}
		return true
	})

	switch {
	case def.Returns != nil:
		d.Returns = annotationType(def.Returns)
	case ok:
		d.Returns = valuesType(a.ev.ReturnValues(ctx, def), true)
	}
	return d
}

func hasDecorator(def *ast.FunctionDefinition, name string) bool {
	for _, dec := range def.Decorators {
		if id, ok := dec.(*ast.Identifier); ok && id.Name == name {
			return true
		}
	}
	return false
}

// annotationType maps an annotation expression to a Cython type.
func annotationType(expr ast.Expression) string {
	switch e := expr.(type) {
	case *ast.Identifier:
		return CythonType(e.Name)
	case *ast.Attribute:
		return CythonType(e.Name.Name)
	case *ast.NoneLiteral:
		return "void"
	case *ast.Subscript:
		switch genericName(e.Object) {
		case "Optional":
			if inner := annotationType(e.Index); inner != "void" {
				return inner
			}
			return "object"
		case "List", "list":
			return "list"
		case "Dict", "dict":
			return "dict"
		case "Set", "set", "FrozenSet", "frozenset":
			return "set"
		case "Tuple", "tuple":
			return "tuple"
		default:
			return "object"
		}
	default:
		return "object"
	}
}

func genericName(expr ast.Expression) string {
	switch e := expr.(type) {
	case *ast.Identifier:
		return e.Name
	case *ast.Attribute:
		return e.Name.Name
	}
	return ""
}

// valuesType picks one Cython type for inferred values: a single type
// name, double for mixed numbers, object otherwise. None only counts for
// return types.
func valuesType(values []inference.Value, returns bool) string {
	seen := make(map[string]bool)
	for _, v := range values {
		name := v.Name()
		if inst, ok := v.(*inference.Instance); ok && !inst.Class.Builtin() {
			name = "object"
		}
		seen[CythonType(name)] = true
	}
	if len(seen) > 1 && !returns {
		delete(seen, "void")
	}
	switch {
	case len(seen) == 0:
		return ""
	case len(seen) == 1:
		for t := range seen {
			if t == "void" && !returns {
				return ""
			}
			return t
		}
	case len(seen) == 2 && seen["long"] && seen["double"]:
		return "double"
	}
	return "object"
}

// Inject returns source with an `import cython` header and the
// declarations inserted before their owning lines, indented to the owner's
// column.
func Inject(source []byte, decls []Declaration) []byte {
	byLine := make(map[int][]Declaration)
	for _, d := range decls {
		byLine[d.Position.Line] = append(byLine[d.Position.Line], d)
	}

	var out bytes.Buffer
	out.WriteString("import cython\n")
	lines := bytes.SplitAfter(source, []byte("\n"))
	for i, line := range lines {
		if len(line) == 0 {
			continue
		}
		for _, d := range byLine[i+1] {
			indent := strings.Repeat(" ", max(d.Position.Column-1, 0))
			for _, decl := range d.lines() {
				out.WriteString(indent)
				out.WriteString(decl)
				out.WriteByte('\n')
			}
		}
		out.Write(line)
	}
	return out.Bytes()
}

func (d Declaration) lines() []string {
	pairs := make([]string, 0, len(d.Locals))
	for _, l := range d.Locals {
		pairs = append(pairs, fmt.Sprintf("%s='%s'", l.Name, l.Type))
	}
	if !d.Function {
		if len(pairs) == 0 {
			return nil
		}
		return []string{"cython.declare(" + strings.Join(pairs, ", ") + ")"}
	}
	var out []string
	if len(pairs) > 0 {
		out = append(out, "@cython.locals("+strings.Join(pairs, ", ")+")")
	}
	if d.Returns != "" {
		out = append(out, "@cython.returns("+d.Returns+")")
	}
	return out
}
