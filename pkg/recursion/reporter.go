package recursion

import (
	"context"
	"log/slog"

	"github.com/mbodiai/pyinfer/pkg/ast"
)

// BlockReason says which check refused an execution.
type BlockReason string

const (
	ReasonExecutionBudget   BlockReason = "max_executions"
	ReasonFunctionRecursion BlockReason = "max_function_recursion_level"
	ReasonUniqueTargets     BlockReason = "max_until_execution_unique"
	ReasonNonBuiltinBudget  BlockReason = "max_executions_without_builtins"
)

// Reporter receives guard diagnostics. Calls are fire and forget.
type Reporter interface {
	StatementRecursion(current, matched ast.Statement, pos ast.Position)
	ExecutionBlocked(exec Execution, reason BlockReason, stats Stats)
	UnbalancedPop(guard string)
}

// NopReporter drops everything.
type NopReporter struct{}

func (NopReporter) StatementRecursion(ast.Statement, ast.Statement, ast.Position) {}
func (NopReporter) ExecutionBlocked(Execution, BlockReason, Stats)                {}
func (NopReporter) UnbalancedPop(string)                                          {}

// LogReporter writes diagnostics to a structured logger.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter wraps logger; a nil logger uses slog.Default().
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger.With("component", "recursion")}
}

func (r *LogReporter) StatementRecursion(current, matched ast.Statement, pos ast.Position) {
	r.logger.Warn("caught statement recursion",
		"statement", describe(current),
		"against", describe(matched),
		"line", pos.Line,
		"column", pos.Column,
	)
}

func (r *LogReporter) ExecutionBlocked(exec Execution, reason BlockReason, stats Stats) {
	if !r.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	r.logger.Debug("execution blocked",
		"target", exec.Target.String(),
		"kind", exec.Kind.String(),
		"reason", string(reason),
		"depth", stats.Depth,
		"executions", stats.Executions,
		"unique", stats.UniqueTargets,
	)
}

func (r *LogReporter) UnbalancedPop(guard string) {
	r.logger.Warn("pop without matching push", "guard", guard)
}

func describe(stmt ast.Statement) string {
	if stmt == nil {
		return "<nil>"
	}
	return string(stmt.NodeType())
}
