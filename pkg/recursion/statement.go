package recursion

import "github.com/mbodiai/pyinfer/pkg/ast"

// ModuleID names the module a statement belongs to.
type ModuleID string

// Identity is one statement evaluated in one module.
type Identity struct {
	Module    ModuleID
	Position  ast.Position
	Builtin   bool
	Statement ast.Statement
}

// NewIdentity builds the identity of stmt inside module.
func NewIdentity(module *ast.Module, stmt ast.Statement) Identity {
	id := Identity{Statement: stmt}
	if module != nil {
		id.Module = ModuleID(module.Name)
		id.Builtin = module.Builtin
	}
	if stmt != nil {
		id.Position = stmt.Span().Start
	}
	return id
}

// Matches reports whether two identities denote the same recursion.
// Builtin statements never match: the builtin module is finite.
func (id Identity) Matches(other Identity) bool {
	if id.Builtin || other.Builtin {
		return false
	}
	return id.Module == other.Module && id.Position == other.Position
}

// StatementGuard detects a statement being inferred while its own inference
// is still in progress.
type StatementGuard struct {
	chain    []Identity
	reporter Reporter
}

// NewStatementGuard returns an empty guard. A nil reporter discards
// diagnostics.
func NewStatementGuard(reporter Reporter) *StatementGuard {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &StatementGuard{reporter: reporter}
}

// Push records id as the innermost statement. It returns true, leaving the
// chain unchanged, when an ancestor matches id.
func (g *StatementGuard) Push(id Identity) bool {
	g.chain = append(g.chain, id)
	if matched, ok := g.ancestor(id); ok {
		g.reporter.StatementRecursion(id.Statement, matched.Statement, id.Position)
		g.Pop()
		return true
	}
	return false
}

// Pop drops the innermost statement. Popping an empty guard does nothing.
func (g *StatementGuard) Pop() {
	if len(g.chain) == 0 {
		return
	}
	g.chain[len(g.chain)-1] = Identity{}
	g.chain = g.chain[:len(g.chain)-1]
}

// Enter pushes id and returns the matching release. When the push is
// refused ok is false and release does nothing.
func (g *StatementGuard) Enter(id Identity) (release func(), ok bool) {
	if g.Push(id) {
		return func() {}, false
	}
	return g.Pop, true
}

func (g *StatementGuard) ancestor(id Identity) (Identity, bool) {
	for i := len(g.chain) - 2; i >= 0; i-- {
		if g.chain[i].Matches(id) {
			return g.chain[i], true
		}
	}
	return Identity{}, false
}

// NodeStatements returns the statements on the chain, oldest first.
func (g *StatementGuard) NodeStatements() []ast.Statement {
	out := make([]ast.Statement, 0, len(g.chain))
	for _, id := range g.chain {
		out = append(out, id.Statement)
	}
	return out
}

// Depth is the current chain length.
func (g *StatementGuard) Depth() int {
	return len(g.chain)
}
