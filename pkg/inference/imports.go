package inference

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/mbodiai/pyinfer/pkg/ast"
)

// Importer resolves dotted module names to parsed modules.
type Importer interface {
	Import(name string) (*ast.Module, error)
}

// ErrModuleNotFound is returned by importers that do not know a module.
var ErrModuleNotFound = errors.New("module not found")

// MapImporter serves modules from memory, keyed by dotted name.
type MapImporter map[string]*ast.Module

func (m MapImporter) Import(name string) (*ast.Module, error) {
	if mod, ok := m[name]; ok {
		return mod, nil
	}
	return nil, fmt.Errorf("import %s: %w", name, ErrModuleNotFound)
}

// importModule resolves and caches name. Failures are cached as nil.
func (e *Evaluator) importModule(name string) *ast.Module {
	if name == "" {
		return nil
	}
	if name == BuiltinsModule {
		return e.builtins
	}
	if mod, ok := e.modules[name]; ok {
		return mod
	}
	var mod *ast.Module
	if e.importer != nil {
		var err error
		mod, err = e.importer.Import(name)
		if err != nil {
			e.logger.Debug("import failed", "module", name, "error", err)
			mod = nil
		}
	}
	e.modules[name] = mod
	return mod
}

func (e *Evaluator) importValues(scope *Scope, n *ast.ImportName) []Value {
	full := strings.Join(n.Path, ".")
	mod := e.importModule(full)
	if mod == nil {
		e.note(scope, n, SeverityInfo, fmt.Sprintf("unresolved import %q", full))
		return nil
	}
	if n.Alias != "" || len(n.Path) == 1 {
		return []Value{&ModuleValue{Module: mod}}
	}
	// `import a.b` binds a.
	if top := e.importModule(n.Path[0]); top != nil {
		return []Value{&ModuleValue{Module: top}}
	}
	return nil
}

func (e *Evaluator) importFromValues(scope *Scope, from *ast.ImportFrom, n *ast.ImportName) []Value {
	base := resolveImport(scope.module, from.Level, from.Module)
	mod := e.importModule(base)
	if mod == nil {
		e.note(scope, from, SeverityInfo, fmt.Sprintf("unresolved import %q", displayImport(from)))
		return nil
	}
	name := strings.Join(n.Path, ".")
	if vs, ok := e.moduleAttribute(mod, name); ok {
		return vs
	}
	e.note(scope, n, SeverityError, fmt.Sprintf("cannot import %q from %q", name, mod.Name))
	return nil
}

// wildcardLookup resolves name through `from m import *`. The statement
// guard stops cycles of wildcard imports.
func (e *Evaluator) wildcardLookup(scope *Scope, from *ast.ImportFrom, name string) ([]Value, bool) {
	var found bool
	values := e.guardStatement(scope, from, func() []Value {
		mod := e.importModule(resolveImport(scope.module, from.Level, from.Module))
		if mod == nil || strings.HasPrefix(name, "_") {
			return nil
		}
		vs, ok := e.lookupLocal(e.moduleScope(mod), name)
		found = ok
		return vs
	})
	return values, found
}

// resolveImport turns a possibly relative import into an absolute dotted
// name. It returns "" when the import climbs above the top package.
func resolveImport(module *ast.Module, level int, parts []string) string {
	if level == 0 {
		return strings.Join(parts, ".")
	}
	if module == nil {
		return ""
	}
	pkg := strings.Split(module.Name, ".")
	if path.Base(module.Path) != "__init__.py" {
		pkg = pkg[:len(pkg)-1]
	}
	if level-1 > len(pkg) {
		return ""
	}
	pkg = pkg[:len(pkg)-(level-1)]
	return strings.Join(append(pkg, parts...), ".")
}

func displayImport(from *ast.ImportFrom) string {
	return strings.Repeat(".", from.Level) + strings.Join(from.Module, ".")
}
