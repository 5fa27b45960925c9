package recursion

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mbodiai/pyinfer/pkg/ast"
)

func roomySettings() Settings {
	return Settings{
		MaxExecutions:                10_000,
		MaxExecutionsWithoutBuiltins: 10_000,
		MaxFunctionRecursionLevel:    1_000,
		MaxUntilExecutionUnique:      1_000,
	}
}

func fn(name string, line int) Execution {
	return Execution{
		Target: TargetID{Module: "app", Position: ast.Position{Line: line, Column: 1}, Name: name},
		Kind:   KindFunction,
	}
}

func mustGuard(t *testing.T, settings Settings, reporter Reporter) *ExecutionGuard {
	t.Helper()
	g, err := NewExecutionGuard(settings, reporter)
	if err != nil {
		t.Fatalf("NewExecutionGuard: %v", err)
	}
	return g
}

func TestExecutionGuardFreshTargetAccepted(t *testing.T) {
	g := mustGuard(t, DefaultSettings(), nil)
	if g.Push(fn("f", 1)) {
		t.Fatalf("expected fresh target to be accepted")
	}
	g.Pop()
	stats := g.Stats()
	if stats.Executions != 1 || stats.UniqueTargets != 1 || stats.Depth != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestExecutionGuardBreadthCeiling(t *testing.T) {
	const n = 3
	settings := roomySettings()
	settings.MaxUntilExecutionUnique = n
	rep := &recordingReporter{}
	g := mustGuard(t, settings, rep)

	for i := 0; i <= n; i++ {
		if g.Push(fn(fmt.Sprintf("f%d", i), i+1)) {
			t.Fatalf("distinct target %d refused", i)
		}
		g.Pop()
	}
	if got := g.Stats().UniqueTargets; got != n+1 {
		t.Fatalf("expected %d unique targets, got %d", n+1, got)
	}
	if !g.Push(fn("f0", 1)) {
		t.Fatalf("expected revisit past breadth ceiling to be refused")
	}
	g.Pop()
	if len(rep.blocked) != 1 || rep.blocked[0] != ReasonUniqueTargets {
		t.Fatalf("expected unique-target block, got %v", rep.blocked)
	}
}

func TestExecutionGuardBreadthAllowsRevisitWithinCeiling(t *testing.T) {
	settings := roomySettings()
	settings.MaxUntilExecutionUnique = 3
	g := mustGuard(t, settings, nil)
	for i := 0; i < 3; i++ {
		g.Push(fn(fmt.Sprintf("f%d", i), i+1))
		g.Pop()
	}
	if g.Push(fn("f1", 2)) {
		t.Fatalf("revisit at the ceiling should be accepted")
	}
	g.Pop()
}

func TestExecutionGuardDepthCeiling(t *testing.T) {
	const depth = 4
	settings := roomySettings()
	settings.MaxFunctionRecursionLevel = depth
	g := mustGuard(t, settings, nil)

	target := fn("rec", 1)
	for level := 1; level <= depth; level++ {
		if g.Push(target) {
			t.Fatalf("push at depth %d refused", level)
		}
	}
	if !g.Push(target) {
		t.Fatalf("expected push at depth %d to be refused", depth+1)
	}
	for i := 0; i <= depth; i++ {
		g.Pop()
	}
	if stats := g.Stats(); stats.Depth != 0 || len(g.Path()) != 0 {
		t.Fatalf("expected full unwind, got %+v path=%v", stats, g.Path())
	}
}

func TestExecutionGuardDepthIgnoresDistinctTargets(t *testing.T) {
	settings := roomySettings()
	settings.MaxFunctionRecursionLevel = 2
	g := mustGuard(t, settings, nil)
	for i := 0; i < 6; i++ {
		if g.Push(fn(fmt.Sprintf("f%d", i), i+1)) {
			t.Fatalf("distinct nested target %d refused", i)
		}
	}
}

func TestExecutionGuardGlobalBudgetIsAbsolute(t *testing.T) {
	settings := roomySettings()
	settings.MaxExecutions = 5
	g := mustGuard(t, settings, nil)
	for i := 0; i < 5; i++ {
		if g.Push(fn(fmt.Sprintf("f%d", i), i+1)) {
			t.Fatalf("push %d within budget refused", i)
		}
		g.Pop()
	}
	for i := 0; i < 3; i++ {
		if !g.Push(fn(fmt.Sprintf("fresh%d", i), 100+i)) {
			t.Fatalf("fresh push %d past budget accepted", i)
		}
		g.Pop()
	}
	builtin := Execution{Target: TargetID{Module: "builtins", Name: "len"}, Kind: KindBuiltin, Builtin: true}
	if !g.Push(builtin) {
		t.Fatalf("builtin push past absolute budget accepted")
	}
	g.Pop()
}

func TestExecutionGuardExemptions(t *testing.T) {
	settings := roomySettings()
	settings.MaxFunctionRecursionLevel = 1
	settings.MaxUntilExecutionUnique = 1
	settings.MaxExecutionsWithoutBuiltins = 1
	g := mustGuard(t, settings, nil)

	cases := []Execution{
		{Target: TargetID{Module: "app", Name: "list"}, Kind: KindContainer},
		{Target: TargetID{Module: "app", Name: "gen"}, Kind: KindGenerator},
		{Target: TargetID{Module: "builtins", Name: "len"}, Kind: KindBuiltin},
		{Target: TargetID{Module: "builtins", Name: "sorted"}, Kind: KindFunction, Builtin: true},
	}
	for _, exec := range cases {
		for i := 0; i < 3; i++ {
			if g.Push(exec) {
				t.Fatalf("exempt %s execution refused at depth %d", exec.Target, i+1)
			}
		}
	}

	functions := mustGuard(t, settings, nil)
	if functions.Push(fn("f", 1)) {
		t.Fatalf("first function execution refused")
	}
	if !functions.Push(fn("f", 1)) {
		t.Fatalf("function executions must stay limited under the same settings")
	}
}

func TestExecutionGuardNonBuiltinBudget(t *testing.T) {
	settings := roomySettings()
	settings.MaxExecutionsWithoutBuiltins = 2
	rep := &recordingReporter{}
	g := mustGuard(t, settings, rep)

	container := Execution{Target: TargetID{Module: "app", Name: "items"}, Kind: KindContainer}
	for i := 0; i < 4; i++ {
		if g.Push(container) {
			t.Fatalf("container push %d refused", i)
		}
		g.Pop()
	}
	if !g.Push(fn("f", 1)) {
		t.Fatalf("expected function push past non-builtin budget to be refused")
	}
	g.Pop()
	if len(rep.blocked) != 1 || rep.blocked[0] != ReasonNonBuiltinBudget {
		t.Fatalf("unexpected block reasons %v", rep.blocked)
	}
}

func TestExecutionGuardBlockedPushStillCounts(t *testing.T) {
	settings := roomySettings()
	settings.MaxFunctionRecursionLevel = 1
	g := mustGuard(t, settings, nil)
	target := fn("rec", 1)
	g.Push(target)
	if !g.Push(target) {
		t.Fatalf("expected refusal")
	}
	stats := g.Stats()
	if stats.Depth != 2 || len(g.Path()) != 2 || stats.Blocked != 1 {
		t.Fatalf("refused push must still update path and depth, got %+v", stats)
	}
	g.Pop()
	g.Pop()
	if g.Stats().Depth != 0 {
		t.Fatalf("expected depth 0 after pops")
	}
}

func TestExecutionGuardUnbalancedPopIsReported(t *testing.T) {
	rep := &recordingReporter{}
	g := mustGuard(t, DefaultSettings(), rep)
	g.Pop()
	stats := g.Stats()
	if stats.Depth != 0 || stats.UnbalancedPops != 1 {
		t.Fatalf("unexpected stats after unmatched pop %+v", stats)
	}
	if len(rep.unbalanced) != 1 || rep.unbalanced[0] != "execution" {
		t.Fatalf("expected unbalanced pop report, got %v", rep.unbalanced)
	}
}

func TestExecutionGuardEnterAlwaysReleases(t *testing.T) {
	settings := roomySettings()
	settings.MaxExecutions = 1
	g := mustGuard(t, settings, nil)

	run := func() bool {
		release, ok := g.Enter(fn("f", 1))
		defer release()
		return ok
	}
	if !run() {
		t.Fatalf("first enter refused")
	}
	if run() {
		t.Fatalf("second enter past budget accepted")
	}
	if got := g.Stats().Depth; got != 0 {
		t.Fatalf("expected depth 0, got %d", got)
	}
}

func TestNewExecutionGuardRejectsNonPositiveSettings(t *testing.T) {
	_, err := NewExecutionGuard(Settings{MaxExecutions: 0, MaxExecutionsWithoutBuiltins: -1, MaxFunctionRecursionLevel: 3, MaxUntilExecutionUnique: 3}, nil)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(verr.Issues) != 2 {
		t.Fatalf("expected 2 issues, got %v", verr.Issues)
	}
	if !strings.Contains(err.Error(), "max_executions must be positive") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestSettingsWithDefaults(t *testing.T) {
	got := Settings{MaxExecutions: 10, MaxUntilExecutionUnique: -2}.WithDefaults()
	if got.MaxExecutions != 10 || got.MaxFunctionRecursionLevel != DefaultMaxFunctionRecursionLevel {
		t.Fatalf("unexpected defaults %+v", got)
	}
	if got.MaxUntilExecutionUnique != -2 {
		t.Fatalf("negative value must survive for validation, got %d", got.MaxUntilExecutionUnique)
	}
	if err := got.Validate(); err == nil {
		t.Fatalf("expected validation failure")
	}
}
