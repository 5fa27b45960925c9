package typer

import (
	"strings"
	"testing"

	"github.com/mbodiai/pyinfer/pkg/ast"
	"github.com/mbodiai/pyinfer/pkg/inference"
	"github.com/mbodiai/pyinfer/pkg/parser"
)

func analyseSource(t *testing.T, source string) []Declaration {
	t.Helper()
	mp, err := parser.NewModuleParser()
	if err != nil {
		t.Fatalf("NewModuleParser: %v", err)
	}
	defer mp.Close()
	mod, err := mp.ParseModule("sample", "sample.py", []byte(source))
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	ev, err := inference.New()
	if err != nil {
		t.Fatalf("inference.New: %v", err)
	}
	return Analyse(ev, mod)
}

func TestCythonType(t *testing.T) {
	cases := map[string]string{
		"int":      "long",
		"float":    "double",
		"bool":     "bint",
		"None":     "void",
		"complex":  "double complex",
		"list":     "list",
		"Optional": "object",
		"Point":    "object",
	}
	for in, want := range cases {
		if got := CythonType(in); got != want {
			t.Fatalf("CythonType(%q) = %q, want %q", in, got, want)
		}
	}
}

const annotatedSource = `from typing import List, Dict, Optional

def add_numbers(a: int, b: float) -> float:
    return a + b

class Point:
    x: float
    y: float

    def __init__(self, x: float, y: float):
        self.x = x
        self.y = y

    def distance(self, other: "Point") -> float:
        return ((self.x - other.x) ** 2 + (self.y - other.y) ** 2) ** 0.5

def process_items(items: List[int], mapping: Dict[str, float]) -> Optional[float]:
    total: float = 0.0
    for item in items:
        if str(item) in mapping:
            total += mapping[str(item)]
    return total if total > 0 else None
`

func TestAnalyseAnnotations(t *testing.T) {
	decls := analyseSource(t, annotatedSource)
	if len(decls) != 4 {
		t.Fatalf("expected 4 declarations, got %+v", decls)
	}

	add := decls[0]
	if add.Position != (ast.Position{Line: 3, Column: 1}) || !add.Function {
		t.Fatalf("unexpected add_numbers declaration %+v", add)
	}
	if len(add.Locals) != 2 || add.Locals[0] != (Local{"a", "long"}) || add.Locals[1] != (Local{"b", "double"}) {
		t.Fatalf("unexpected add_numbers locals %+v", add.Locals)
	}
	if add.Returns != "double" {
		t.Fatalf("unexpected add_numbers return %q", add.Returns)
	}

	ctor := decls[1]
	if ctor.Position != (ast.Position{Line: 10, Column: 5}) {
		t.Fatalf("unexpected __init__ position %+v", ctor.Position)
	}
	if len(ctor.Locals) != 2 || ctor.Locals[0].Name != "x" || ctor.Returns != "void" {
		t.Fatalf("self must be skipped and None returns are void: %+v", ctor)
	}

	distance := decls[2]
	if len(distance.Locals) != 1 || distance.Locals[0] != (Local{"other", "object"}) {
		t.Fatalf("unexpected distance locals %+v", distance.Locals)
	}

	process := decls[3]
	want := []Local{{"items", "list"}, {"mapping", "dict"}, {"total", "double"}}
	if len(process.Locals) != len(want) {
		t.Fatalf("unexpected process_items locals %+v", process.Locals)
	}
	for i := range want {
		if process.Locals[i] != want[i] {
			t.Fatalf("local %d: got %+v, want %+v", i, process.Locals[i], want[i])
		}
	}
	if process.Returns != "double" {
		t.Fatalf("Optional[float] should return double, got %q", process.Returns)
	}
}

func TestInjectAnnotatedSource(t *testing.T) {
	decls := analyseSource(t, annotatedSource)
	out := string(Inject([]byte(annotatedSource), decls))
	for _, want := range []string{
		"import cython\nfrom typing import List, Dict, Optional\n",
		"@cython.locals(a='long', b='double')\n@cython.returns(double)\ndef add_numbers(",
		"    @cython.locals(x='double', y='double')\n    @cython.returns(void)\n    def __init__(",
		"    @cython.locals(other='object')\n    @cython.returns(double)\n    def distance(",
		"@cython.locals(items='list', mapping='dict', total='double')\n@cython.returns(double)\ndef process_items(",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestInjectInferredTypes(t *testing.T) {
	source := `import os

limit: int = 10


def scale(v, factor=2.0):
    return factor


class Box:
    def size(self, n=1):
        return n

    @staticmethod
    def make(flag=True):
        pass
`
	want := `import cython
import os

cython.declare(limit='long')
limit: int = 10


@cython.locals(factor='double')
@cython.returns(double)
def scale(v, factor=2.0):
    return factor


class Box:
    @cython.locals(n='long')
    @cython.returns(long)
    def size(self, n=1):
        return n

    @staticmethod
    @cython.locals(flag='bint')
    @cython.returns(void)
    def make(flag=True):
        pass
`
	got := string(Inject([]byte(source), analyseSource(t, source)))
	if got != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", got, want)
	}
}
