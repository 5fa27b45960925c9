package inference

import (
	"errors"
	"testing"

	"github.com/mbodiai/pyinfer/pkg/ast"
)

func TestResolveImport(t *testing.T) {
	mod := &ast.Module{Name: "pkg.sub.mod", Path: "pkg/sub/mod.py"}
	pkgInit := &ast.Module{Name: "pkg.sub", Path: "pkg/sub/__init__.py"}
	cases := []struct {
		name   string
		module *ast.Module
		level  int
		parts  []string
		want   string
	}{
		{"absolute", mod, 0, []string{"os", "path"}, "os.path"},
		{"sibling", mod, 1, []string{"other"}, "pkg.sub.other"},
		{"parent", mod, 2, []string{"top"}, "pkg.top"},
		{"package itself", mod, 1, nil, "pkg.sub"},
		{"from package init", pkgInit, 1, []string{"mod"}, "pkg.sub.mod"},
		{"init parent", pkgInit, 2, []string{"x"}, "pkg.x"},
		{"too far", mod, 4, []string{"x"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolveImport(tc.module, tc.level, tc.parts); got != tc.want {
				t.Fatalf("resolveImport(%s, %d, %v) = %q, want %q", tc.module.Name, tc.level, tc.parts, got, tc.want)
			}
		})
	}
}

func TestMapImporterUnknownModule(t *testing.T) {
	_, err := MapImporter{}.Import("nowhere")
	if !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("expected ErrModuleNotFound, got %v", err)
	}
}

func TestFailedImportsAreCached(t *testing.T) {
	calls := 0
	ev, err := New(WithImporter(importerFunc(func(name string) (*ast.Module, error) {
		calls++
		return nil, ErrModuleNotFound
	})))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ev.importModule("gone") != nil || ev.importModule("gone") != nil {
		t.Fatalf("expected nil module")
	}
	if calls != 1 {
		t.Fatalf("expected one importer call, got %d", calls)
	}
	if ev.importModule(BuiltinsModule) != ev.Builtins() {
		t.Fatalf("builtins must resolve to the stub module")
	}
}

type importerFunc func(name string) (*ast.Module, error)

func (f importerFunc) Import(name string) (*ast.Module, error) { return f(name) }
