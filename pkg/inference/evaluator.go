// Package inference infers the possible values of Python statements and
// expressions without running them. Every statement inference and every
// execution passes through the guards in package recursion.
package inference

import (
	"fmt"
	"log/slog"

	"github.com/mbodiai/pyinfer/pkg/ast"
	"github.com/mbodiai/pyinfer/pkg/recursion"
)

// Context says where an expression is evaluated.
type Context struct {
	Scope *Scope
}

// Module returns the module of the context's scope.
func (c Context) Module() *ast.Module {
	if c.Scope == nil {
		return nil
	}
	return c.Scope.module
}

// Evaluator owns one statement guard and one execution guard for its
// lifetime. It is not safe for concurrent use.
type Evaluator struct {
	statements *recursion.StatementGuard
	executions *recursion.ExecutionGuard
	reporter   *guardReporter
	logger     *slog.Logger
	importer   Importer

	builtins  *ast.Module
	scopes    map[*ast.Module]*Scope
	modules   map[string]*ast.Module
	functions map[valueKey]*Function
	classes   map[valueKey]*Class
	instances map[valueKey]*Instance
	shared    map[string]*Instance
	literals  map[valueKey]Value
	memo      map[memoKey][]Value

	// cuts counts refusals by either guard; results computed while it
	// changed are partial and are not memoized.
	cuts int
	sink *diagnosticSink
}

type valueKey struct {
	node  ast.Node
	scope *Scope
	cls   *Class
}

type memoKey struct {
	scope *Scope
	stmt  ast.Statement
	name  string
}

type config struct {
	settings recursion.Settings
	reporter recursion.Reporter
	logger   *slog.Logger
	importer Importer
}

// Option configures an Evaluator.
type Option func(*config)

// WithSettings replaces the default recursion budgets.
func WithSettings(settings recursion.Settings) Option {
	return func(c *config) { c.settings = settings }
}

// WithReporter sends guard diagnostics to reporter instead of the logger.
func WithReporter(reporter recursion.Reporter) Option {
	return func(c *config) { c.reporter = reporter }
}

// WithLogger sets the logger for evaluator and guard diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithImporter resolves import statements.
func WithImporter(importer Importer) Option {
	return func(c *config) { c.importer = importer }
}

// New builds an evaluator with fresh guards.
func New(opts ...Option) (*Evaluator, error) {
	cfg := config{settings: recursion.DefaultSettings()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.reporter == nil {
		cfg.reporter = recursion.NewLogReporter(cfg.logger)
	}

	reporter := &guardReporter{next: cfg.reporter}
	executions, err := recursion.NewExecutionGuard(cfg.settings, reporter)
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}
	builtins, err := loadBuiltins()
	if err != nil {
		return nil, fmt.Errorf("inference: load builtins: %w", err)
	}

	return &Evaluator{
		statements: recursion.NewStatementGuard(reporter),
		executions: executions,
		reporter:   reporter,
		logger:     cfg.logger.With("component", "inference"),
		importer:   cfg.importer,
		builtins:   builtins,
		scopes:     make(map[*ast.Module]*Scope),
		modules:    make(map[string]*ast.Module),
		functions:  make(map[valueKey]*Function),
		classes:    make(map[valueKey]*Class),
		instances:  make(map[valueKey]*Instance),
		shared:     make(map[string]*Instance),
		literals:   make(map[valueKey]Value),
		memo:       make(map[memoKey][]Value),
	}, nil
}

// Stats returns the execution guard counters.
func (e *Evaluator) Stats() recursion.Stats {
	return e.executions.Stats()
}

// StatementStack returns the statements currently being inferred, oldest
// first.
func (e *Evaluator) StatementStack() []ast.Statement {
	return e.statements.NodeStatements()
}

// Builtins returns the parsed builtin module.
func (e *Evaluator) Builtins() *ast.Module {
	return e.builtins
}

// ModuleContext returns the context of module's top level.
func (e *Evaluator) ModuleContext(module *ast.Module) Context {
	return Context{Scope: e.moduleScope(module)}
}

func (e *Evaluator) moduleScope(module *ast.Module) *Scope {
	if scope, ok := e.scopes[module]; ok {
		return scope
	}
	var parent *Scope
	if !module.Builtin {
		parent = e.moduleScope(e.builtins)
	}
	scope := newScope(scopeModule, module, parent, module.Body)
	e.scopes[module] = scope
	return scope
}

// InferName resolves a name at the top level of module, falling back to
// builtins.
func (e *Evaluator) InferName(module *ast.Module, name string) []Value {
	values, _ := e.lookup(e.moduleScope(module), name)
	return values
}

// InferExpression infers expr in ctx.
func (e *Evaluator) InferExpression(ctx Context, expr ast.Expression) []Value {
	if ctx.Scope == nil {
		return nil
	}
	return e.infer(ctx.Scope, expr)
}

// InferStatement infers stmt in ctx under the statement guard. A statement
// already being inferred further up the stack yields nothing.
func (e *Evaluator) InferStatement(ctx Context, stmt ast.Statement) []Value {
	if ctx.Scope == nil || stmt == nil {
		return nil
	}
	scope := ctx.Scope
	return e.guardStatement(scope, stmt, func() []Value {
		return e.statementValues(scope, stmt)
	})
}

// InferPosition infers the innermost statement covering line:col.
func (e *Evaluator) InferPosition(module *ast.Module, line, col int) (ast.Statement, []Value) {
	scope, stmt := e.scopeAt(e.moduleScope(module), module.Body, line, col)
	if stmt == nil {
		return nil, nil
	}
	return stmt, e.InferStatement(Context{Scope: scope}, stmt)
}

// FunctionContext returns the context of def's body as the linter sees it:
// parameters come from annotations and defaults, and a method's first
// parameter is an instance of its class.
func (e *Evaluator) FunctionContext(module *ast.Module, def *ast.FunctionDefinition) (Context, bool) {
	if def == nil {
		return Context{}, false
	}
	start := def.Span().Start
	scope, stmt := e.scopeAt(e.moduleScope(module), module.Body, start.Line, start.Column)
	if stmt != def {
		return Context{}, false
	}
	return Context{Scope: e.analysisScope(scope, def)}, true
}

// Lookup resolves name outward from ctx.
func (e *Evaluator) Lookup(ctx Context, name string) []Value {
	if ctx.Scope == nil {
		return nil
	}
	values, _ := e.lookup(ctx.Scope, name)
	return values
}

// ReturnValues infers what def returns in the function context ctx.
func (e *Evaluator) ReturnValues(ctx Context, def *ast.FunctionDefinition) []Value {
	if ctx.Scope == nil || def == nil {
		return nil
	}
	if def.IsGenerator {
		return []Value{&Generator{scope: ctx.Scope}}
	}
	return e.returnValues(ctx.Scope, def)
}

func (e *Evaluator) scopeAt(scope *Scope, body []ast.Statement, line, col int) (*Scope, ast.Statement) {
	var found ast.Statement
	ast.Walk(body, func(stmt ast.Statement) bool {
		if !ast.Contains(stmt, line, col) {
			return false
		}
		found = stmt
		return true
	})
	switch s := found.(type) {
	case *ast.FunctionDefinition:
		if ast.Find(s.Body, line, col) != nil {
			return e.scopeAt(e.analysisScope(scope, s), s.Body, line, col)
		}
	case *ast.ClassDefinition:
		if ast.Find(s.Body, line, col) != nil {
			return e.scopeAt(e.class(s, scope).scope, s.Body, line, col)
		}
	}
	return scope, found
}

func (e *Evaluator) guardStatement(scope *Scope, stmt ast.Statement, infer func() []Value) []Value {
	release, ok := e.statements.Enter(recursion.NewIdentity(scope.module, stmt))
	defer release()
	if !ok {
		e.cuts++
		e.note(scope, stmt, SeverityInfo, "recursive definition cut short")
		return nil
	}
	return infer()
}

// inferBinding infers the values stmt binds to name in scope.
func (e *Evaluator) inferBinding(scope *Scope, stmt ast.Statement, name string) []Value {
	key := memoKey{scope: scope, stmt: stmt, name: name}
	if values, ok := e.memo[key]; ok {
		return values
	}
	before := e.cuts
	values := e.guardStatement(scope, stmt, func() []Value {
		return e.bindingValues(scope, stmt, name)
	})
	if e.cuts == before && scope.kind != scopeFunction {
		e.memo[key] = values
	}
	return values
}

// guardReporter forwards to the configured reporter and remembers the last
// block reason for diagnostics.
type guardReporter struct {
	next recursion.Reporter
	last recursion.BlockReason
}

func (r *guardReporter) StatementRecursion(current, matched ast.Statement, pos ast.Position) {
	r.next.StatementRecursion(current, matched, pos)
}

func (r *guardReporter) ExecutionBlocked(exec recursion.Execution, reason recursion.BlockReason, stats recursion.Stats) {
	r.last = reason
	r.next.ExecutionBlocked(exec, reason, stats)
}

func (r *guardReporter) UnbalancedPop(guard string) {
	r.next.UnbalancedPop(guard)
}
