package inference

import (
	"sort"

	"github.com/mbodiai/pyinfer/pkg/ast"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityInfo  Severity = "info"
)

// Diagnostic is a problem found while analyzing a module.
type Diagnostic struct {
	Message  string
	Node     ast.Node
	Severity Severity
}

type diagnosticSink struct {
	module *ast.Module
	seen   map[diagnosticKey]bool
	out    []Diagnostic
}

type diagnosticKey struct {
	node    ast.Node
	message string
}

// note records a diagnostic when an analysis of scope's module is running.
func (e *Evaluator) note(scope *Scope, node ast.Node, severity Severity, message string) {
	sink := e.sink
	if sink == nil || scope == nil || scope.module != sink.module || node == nil {
		return
	}
	key := diagnosticKey{node: node, message: message}
	if sink.seen[key] {
		return
	}
	sink.seen[key] = true
	sink.out = append(sink.out, Diagnostic{Message: message, Node: node, Severity: severity})
}

// Analyze infers every statement of module, including function and class
// bodies, and returns the diagnostics found in module sorted by position.
func (e *Evaluator) Analyze(module *ast.Module) []Diagnostic {
	if module == nil {
		return nil
	}
	sink := &diagnosticSink{module: module, seen: make(map[diagnosticKey]bool)}
	prev := e.sink
	e.sink = sink
	defer func() { e.sink = prev }()

	e.analyzeBody(e.moduleScope(module), module.Body)

	sort.SliceStable(sink.out, func(i, j int) bool {
		a, b := sink.out[i].Node.Span().Start, sink.out[j].Node.Span().Start
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	stats := e.Stats()
	e.logger.Debug("analyzed module",
		"module", module.Name,
		"diagnostics", len(sink.out),
		"executions", stats.Executions,
		"blocked", stats.Blocked,
	)
	return sink.out
}

func (e *Evaluator) analyzeBody(scope *Scope, body []ast.Statement) {
	ast.Walk(body, func(stmt ast.Statement) bool {
		e.InferStatement(Context{Scope: scope}, stmt)
		switch s := stmt.(type) {
		case *ast.FunctionDefinition:
			e.analyzeBody(e.analysisScope(scope, s), s.Body)
		case *ast.ClassDefinition:
			e.analyzeBody(e.class(s, scope).scope, s.Body)
		}
		return true
	})
}
