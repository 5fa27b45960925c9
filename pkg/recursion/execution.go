package recursion

import (
	"fmt"

	"github.com/mbodiai/pyinfer/pkg/ast"
)

// Kind classifies what an execution runs.
type Kind int

// Only KindFunction executions outside builtin code are checked beyond the
// absolute budget.
const (
	KindFunction Kind = iota
	KindContainer
	KindGenerator
	KindBuiltin
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindContainer:
		return "container"
	case KindGenerator:
		return "generator"
	case KindBuiltin:
		return "builtin"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// TargetID identifies a callable independent of its arguments: the module
// and position of its definition plus its name.
type TargetID struct {
	Module   ModuleID
	Position ast.Position
	Name     string
}

func (t TargetID) String() string {
	return fmt.Sprintf("%s:%d:%d:%s", t.Module, t.Position.Line, t.Position.Column, t.Name)
}

// Execution is the guard's view of one invocation.
type Execution struct {
	Target TargetID
	Kind   Kind
	// Builtin is set when the execution's enclosing module is the builtin
	// module.
	Builtin bool
}

func (e Execution) exempt() bool {
	if e.Builtin {
		return true
	}
	switch e.Kind {
	case KindContainer, KindGenerator, KindBuiltin:
		return true
	default:
		return false
	}
}

// Stats is a snapshot of the execution counters.
type Stats struct {
	Executions     int
	UniqueTargets  int
	Depth          int
	Blocked        int
	UnbalancedPops int
}

// ExecutionGuard bounds executions by recursion depth, call-graph breadth
// and total count.
type ExecutionGuard struct {
	settings Settings
	reporter Reporter

	executions int
	seen       map[TargetID]struct{}
	path       []TargetID
	depth      int
	blocked    int
	unbalanced int
}

// NewExecutionGuard validates settings and returns a fresh guard. A nil
// reporter discards diagnostics.
func NewExecutionGuard(settings Settings, reporter Reporter) (*ExecutionGuard, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &ExecutionGuard{
		settings: settings,
		reporter: reporter,
		seen:     make(map[TargetID]struct{}),
	}, nil
}

// Push records exec and reports whether it must be refused. The counters
// and path are updated either way, so Pop is always required.
func (g *ExecutionGuard) Push(exec Execution) bool {
	target := exec.Target
	onPath := g.onPath(target)
	_, seenBefore := g.seen[target]

	g.seen[target] = struct{}{}
	g.path = append(g.path, target)
	g.depth++
	g.executions++

	reason, blocked := g.check(exec, onPath, seenBefore)
	if blocked {
		g.blocked++
		g.reporter.ExecutionBlocked(exec, reason, g.Stats())
	}
	return blocked
}

func (g *ExecutionGuard) check(exec Execution, onPath, seenBefore bool) (BlockReason, bool) {
	if g.executions > g.settings.MaxExecutions {
		return ReasonExecutionBudget, true
	}
	if exec.exempt() {
		return "", false
	}
	if onPath && g.depth > g.settings.MaxFunctionRecursionLevel {
		return ReasonFunctionRecursion, true
	}
	if seenBefore && len(g.seen) > g.settings.MaxUntilExecutionUnique {
		return ReasonUniqueTargets, true
	}
	if g.executions > g.settings.MaxExecutionsWithoutBuiltins {
		return ReasonNonBuiltinBudget, true
	}
	return "", false
}

func (g *ExecutionGuard) onPath(target TargetID) bool {
	for _, t := range g.path {
		if t == target {
			return true
		}
	}
	return false
}

// Pop unwinds the most recent Push. An unmatched Pop is reported and
// otherwise ignored.
func (g *ExecutionGuard) Pop() {
	if len(g.path) == 0 {
		g.unbalanced++
		g.reporter.UnbalancedPop("execution")
		return
	}
	g.path = g.path[:len(g.path)-1]
	g.depth--
}

// Enter pushes exec and returns the release that pops it. ok is false when
// the execution is refused; release must still be called.
func (g *ExecutionGuard) Enter(exec Execution) (release func(), ok bool) {
	blocked := g.Push(exec)
	return g.Pop, !blocked
}

// Stats returns the current counters.
func (g *ExecutionGuard) Stats() Stats {
	return Stats{
		Executions:     g.executions,
		UniqueTargets:  len(g.seen),
		Depth:          g.depth,
		Blocked:        g.blocked,
		UnbalancedPops: g.unbalanced,
	}
}

// Path returns the targets from the outermost execution to the current one.
func (g *ExecutionGuard) Path() []TargetID {
	out := make([]TargetID, len(g.path))
	copy(out, g.path)
	return out
}

// Settings returns the budgets the guard was built with.
func (g *ExecutionGuard) Settings() Settings {
	return g.settings
}
