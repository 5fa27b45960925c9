package inference

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/mbodiai/pyinfer/pkg/ast"
	"github.com/mbodiai/pyinfer/pkg/parser"
)

// BuiltinsModule is the name of the trusted builtin module.
const BuiltinsModule = "builtins"

//go:embed builtins.py
var builtinsSource []byte

var (
	builtinsOnce   sync.Once
	builtinsModule *ast.Module
	builtinsErr    error
)

// loadBuiltins parses the builtin stub once per process. The tree is never
// mutated afterwards, so evaluators share it.
func loadBuiltins() (*ast.Module, error) {
	builtinsOnce.Do(func() {
		p, err := parser.NewModuleParser()
		if err != nil {
			builtinsErr = err
			return
		}
		defer p.Close()
		mod, err := p.ParseModule(BuiltinsModule, "builtins.py", builtinsSource)
		if err != nil {
			builtinsErr = err
			return
		}
		mod.Builtin = true
		builtinsModule = mod
	})
	return builtinsModule, builtinsErr
}

func (e *Evaluator) builtinClass(name string) *Class {
	values, _ := e.lookupLocal(e.moduleScope(e.builtins), name)
	for _, v := range values {
		if cls, ok := v.(*Class); ok {
			return cls
		}
	}
	return nil
}

// builtinInstance returns the shared instance of a builtin class.
func (e *Evaluator) builtinInstance(name string) *Instance {
	if inst, ok := e.shared[name]; ok {
		return inst
	}
	cls := e.builtinClass(name)
	if cls == nil {
		panic(fmt.Sprintf("inference: builtin class %q missing from stub", name))
	}
	inst := &Instance{Class: cls}
	e.shared[name] = inst
	return inst
}

func (e *Evaluator) none() *Instance {
	return e.builtinInstance("NoneType")
}

type builtinHandler func(e *Evaluator, self Value, args []Argument) ([]Value, bool)

// builtinHandlers replace stub bodies whose result depends on the
// arguments or on the receiver's elements.
var builtinHandlers map[string]builtinHandler

// builtinConstructors build values for calls of builtin classes.
var builtinConstructors map[string]func(e *Evaluator, args []Argument) []Value

func init() {
	builtinHandlers = map[string]builtinHandler{
		"iter":            handleIter,
		"reversed":        handleIter,
		"filter":          handleFilter,
		"next":            handleNext,
		"sorted":          handleSorted,
		"enumerate":       handleEnumerate,
		"zip":             handleZip,
		"map":             handleMap,
		"min":             handleMinMax,
		"max":             handleMinMax,
		"getattr":         handleGetattr,
		"list.pop":        handleElements,
		"list.copy":       returnSelf,
		"set.pop":         handleElements,
		"set.copy":        returnSelf,
		"set.union":       returnSelf,
		"dict.copy":       returnSelf,
		"dict.keys":       handleDictKeys,
		"dict.values":     handleDictValues,
		"dict.items":      handleDictItems,
		"dict.get":        handleDictGet,
		"dict.pop":        handleDictGet,
		"dict.setdefault": handleDictGet,
		"generator.send":  handleElements,
	}

	builtinConstructors = map[string]func(e *Evaluator, args []Argument) []Value{
		"list":      constructList,
		"set":       constructSet,
		"frozenset": constructSet,
		"tuple":     constructTuple,
		"dict":      constructDict,
		"type":      constructType,
	}
}

func arg(args []Argument, i int) []Value {
	if i >= len(args) || args[i].Name != "" {
		return nil
	}
	return args[i].Values
}

func returnSelf(_ *Evaluator, self Value, _ []Argument) ([]Value, bool) {
	return []Value{self}, true
}

func handleIter(e *Evaluator, _ Value, args []Argument) ([]Value, bool) {
	return []Value{&Generator{Items: e.iterate(arg(args, 0))}}, true
}

func handleFilter(e *Evaluator, _ Value, args []Argument) ([]Value, bool) {
	return []Value{&Generator{Items: e.iterate(arg(args, 1))}}, true
}

func handleSorted(e *Evaluator, _ Value, args []Argument) ([]Value, bool) {
	return []Value{&List{Items: e.iterate(arg(args, 0))}}, true
}

func handleGetattr(_ *Evaluator, _ Value, args []Argument) ([]Value, bool) {
	return arg(args, 2), true
}

// handleElements returns the receiver's elements, as list.pop does.
func handleElements(e *Evaluator, self Value, _ []Argument) ([]Value, bool) {
	return e.iterate([]Value{self}), true
}

func handleNext(e *Evaluator, _ Value, args []Argument) ([]Value, bool) {
	return merge(e.iterate(arg(args, 0)), arg(args, 1)...), true
}

func handleEnumerate(e *Evaluator, _ Value, args []Argument) ([]Value, bool) {
	pair := &Tuple{Items: [][]Value{{e.builtinInstance("int")}, e.iterate(arg(args, 0))}}
	return []Value{&Generator{Items: []Value{pair}}}, true
}

func handleZip(e *Evaluator, _ Value, args []Argument) ([]Value, bool) {
	row := &Tuple{}
	for _, a := range args {
		if a.Name != "" {
			continue
		}
		row.Items = append(row.Items, e.iterate(a.Values))
	}
	return []Value{&Generator{Items: []Value{row}}}, true
}

func handleMap(e *Evaluator, _ Value, args []Argument) ([]Value, bool) {
	items := e.iterate(arg(args, 1))
	var out []Value
	for _, fn := range arg(args, 0) {
		out = merge(out, e.Execute(&Execution{Callee: fn, Args: []Argument{{Values: items}}})...)
	}
	return []Value{&Generator{Items: out}}, true
}

func handleMinMax(e *Evaluator, _ Value, args []Argument) ([]Value, bool) {
	positional := 0
	var out []Value
	for _, a := range args {
		if a.Name == "" {
			positional++
			out = merge(out, a.Values...)
		}
	}
	if positional == 1 {
		return e.iterate(out), true
	}
	return out, true
}

func handleDictKeys(_ *Evaluator, self Value, _ []Argument) ([]Value, bool) {
	d, ok := self.(*Dict)
	if !ok {
		return nil, false
	}
	return []Value{&List{Items: d.Keys}}, true
}

func handleDictValues(_ *Evaluator, self Value, _ []Argument) ([]Value, bool) {
	d, ok := self.(*Dict)
	if !ok {
		return nil, false
	}
	return []Value{&List{Items: d.Values}}, true
}

func handleDictItems(_ *Evaluator, self Value, _ []Argument) ([]Value, bool) {
	d, ok := self.(*Dict)
	if !ok {
		return nil, false
	}
	return []Value{&List{Items: []Value{&Tuple{Items: [][]Value{d.Keys, d.Values}}}}}, true
}

func handleDictGet(_ *Evaluator, self Value, args []Argument) ([]Value, bool) {
	d, ok := self.(*Dict)
	if !ok {
		return nil, false
	}
	return merge(append([]Value(nil), d.Values...), arg(args, 1)...), true
}

func constructList(e *Evaluator, args []Argument) []Value {
	return []Value{&List{Items: e.iterate(arg(args, 0))}}
}

func constructSet(e *Evaluator, args []Argument) []Value {
	return []Value{&Set{Items: e.iterate(arg(args, 0))}}
}

func constructTuple(e *Evaluator, args []Argument) []Value {
	items := e.iterate(arg(args, 0))
	if len(items) == 0 {
		return []Value{&Tuple{}}
	}
	return []Value{&Tuple{Items: [][]Value{items}}}
}

func constructType(e *Evaluator, args []Argument) []Value {
	if len(args) != 1 {
		return []Value{e.builtinClass("type")}
	}
	return e.classesOf(args[0].Values)
}

func constructDict(e *Evaluator, args []Argument) []Value {
	d := &Dict{}
	for _, a := range args {
		switch {
		case a.Name != "":
			d.Keys = merge(d.Keys, e.builtinInstance("str"))
			d.Values = merge(d.Values, a.Values...)
		case a.Star == 0:
			for _, v := range a.Values {
				if src, ok := v.(*Dict); ok {
					d.Keys = merge(d.Keys, src.Keys...)
					d.Values = merge(d.Values, src.Values...)
					continue
				}
				for _, pair := range e.iterate([]Value{v}) {
					if t, ok := pair.(*Tuple); ok && len(t.Items) == 2 {
						d.Keys = merge(d.Keys, t.Items[0]...)
						d.Values = merge(d.Values, t.Items[1]...)
					}
				}
			}
		}
	}
	return []Value{d}
}

// classesOf maps values to their classes, as type(v).
func (e *Evaluator) classesOf(values []Value) []Value {
	var out []Value
	for _, v := range values {
		switch val := v.(type) {
		case *Instance:
			out = merge(out, val.Class)
		case *Class:
			out = merge(out, e.builtinClass("type"))
		default:
			if cls := e.builtinClass(v.Name()); cls != nil {
				out = merge(out, cls)
			}
		}
	}
	return out
}
