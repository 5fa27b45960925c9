package driver

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mbodiai/pyinfer/pkg/ast"
	"github.com/mbodiai/pyinfer/pkg/inference"
	"github.com/mbodiai/pyinfer/pkg/parser"
)

// Failure is a source file that could not be read or parsed.
type Failure struct {
	Path string
	Err  error
}

// Program is a set of parsed modules keyed by dotted name. It serves
// imports for evaluators and is read-only once loaded, so concurrent
// evaluators may share it.
type Program struct {
	modules  map[string]*ast.Module
	Failures []Failure
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{modules: make(map[string]*ast.Module)}
}

// Add registers mod under its name. A second module with the same name is
// rejected.
func (p *Program) Add(mod *ast.Module) error {
	if mod == nil {
		return fmt.Errorf("driver: nil module")
	}
	if existing, ok := p.modules[mod.Name]; ok {
		return fmt.Errorf("driver: module %s defined by both %s and %s", mod.Name, existing.Path, mod.Path)
	}
	p.modules[mod.Name] = mod
	return nil
}

// Import implements inference.Importer.
func (p *Program) Import(name string) (*ast.Module, error) {
	if mod, ok := p.modules[name]; ok {
		return mod, nil
	}
	return nil, fmt.Errorf("driver: import %s: %w", name, inference.ErrModuleNotFound)
}

// Module returns the module named name, if loaded.
func (p *Program) Module(name string) (*ast.Module, bool) {
	mod, ok := p.modules[name]
	return mod, ok
}

// Modules returns the loaded modules ordered by name.
func (p *Program) Modules() []*ast.Module {
	names := make([]string, 0, len(p.modules))
	for name := range p.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*ast.Module, 0, len(names))
	for _, name := range names {
		out = append(out, p.modules[name])
	}
	return out
}

// Len returns the number of loaded modules.
func (p *Program) Len() int {
	return len(p.modules)
}

func (p *Program) addSource(mp *parser.ModuleParser, name, filePath string, source []byte) {
	mod, err := mp.ParseModule(name, filePath, source)
	if err != nil {
		p.Failures = append(p.Failures, Failure{Path: filePath, Err: err})
		return
	}
	if err := p.Add(mod); err != nil {
		p.Failures = append(p.Failures, Failure{Path: filePath, Err: err})
	}
}

// LoadPaths parses every *.py file named by paths, walking directories.
// Module names are dotted paths relative to the enclosing package root:
// the nearest ancestor directory without an __init__.py. Unreadable and
// unparsable files are recorded in Failures; the error result is reserved
// for paths that do not exist.
func LoadPaths(mp *parser.ModuleParser, paths []string, cfg Config) (*Program, error) {
	prog := NewProgram()
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("driver: resolve %s: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("driver: %w", err)
		}
		if !info.IsDir() {
			root := packageRoot(filepath.Dir(abs))
			prog.loadFile(mp, root, abs)
			continue
		}
		root := packageRoot(abs)
		err = filepath.WalkDir(abs, func(filePath string, d fs.DirEntry, err error) error {
			if err != nil {
				prog.Failures = append(prog.Failures, Failure{Path: filePath, Err: err})
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			rel := relSlash(root, filePath)
			if d.IsDir() {
				if filePath != abs && (skippedDir(d.Name()) || cfg.Excluded(rel)) {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(d.Name(), ".py") || cfg.Excluded(rel) {
				return nil
			}
			prog.loadFile(mp, root, filePath)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("driver: walk %s: %w", abs, err)
		}
	}
	return prog, nil
}

func (p *Program) loadFile(mp *parser.ModuleParser, root, filePath string) {
	source, err := os.ReadFile(filePath)
	if err != nil {
		p.Failures = append(p.Failures, Failure{Path: filePath, Err: fmt.Errorf("driver: read %s: %w", filePath, err)})
		return
	}
	name := ModuleName(relSlash(root, filePath))
	if existing, seen := p.modules[name]; seen && existing.Path == filePath {
		return
	}
	p.addSource(mp, name, filePath, source)
}

// packageRoot climbs out of package directories.
func packageRoot(dir string) string {
	for {
		if _, err := os.Stat(filepath.Join(dir, "__init__.py")); err != nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

func skippedDir(name string) bool {
	return name == "__pycache__" || (strings.HasPrefix(name, ".") && name != "." && name != "..")
}

func relSlash(root, filePath string) string {
	rel, err := filepath.Rel(root, filePath)
	if err != nil {
		return filepath.ToSlash(filePath)
	}
	return filepath.ToSlash(rel)
}

// ModuleName turns a slash-separated path relative to a package root into
// a dotted module name: "pkg/sub/mod.py" is "pkg.sub.mod" and
// "pkg/__init__.py" is "pkg".
func ModuleName(rel string) string {
	rel = strings.TrimSuffix(path.Clean(rel), ".py")
	parts := strings.Split(rel, "/")
	if len(parts) > 1 && parts[len(parts)-1] == "__init__" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, ".")
}
