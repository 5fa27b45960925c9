// Package recursion keeps the static evaluator from re-evaluating its way
// into infinite loops.
//
// Two guards share the same push/pop shape but keep independent state:
//
//   - StatementGuard tracks the chain of statements currently being
//     inferred and refuses a statement that is already on that chain in the
//     same module at the same position.
//   - ExecutionGuard tracks executions (a callable invoked from somewhere)
//     and, besides refusing deep self-recursion, enforces global budgets on
//     the total number of executions and on call-graph breadth.
//
// A refused push is not an error. The evaluator answers it by inferring
// nothing for that branch. Every Push must be paired with exactly one Pop;
// the Enter helpers return a release function meant to be deferred.
//
// Guards are not safe for concurrent use. Each evaluator owns its own pair.
package recursion
