// Package solver defines the satisfiability-oracle boundary the engine
// calls into at every merge, branch fork, and require/assert. No Go SMT
// binding exists in the reference corpus this project was grounded on
// (see DESIGN.md), so this package ships only the interface plus a
// best-effort reference implementation built on syntactic simplification
// and constant folding; a production deployment is expected to swap in
// a real decision procedure behind the same interface.
package solver

import (
	"context"

	"github.com/bossjoker1/formula/symvalue"
)

// Solver is the satisfiability oracle the formula and driver packages
// depend on. Implementations must be safe for concurrent use by
// independent Scopes, but a single Scope is used by one goroutine only
// (the engine never explores two branches of a call stack concurrently).
type Solver interface {
	// Sat reports whether constraint is satisfiable in a fresh scope.
	Sat(ctx context.Context, constraint *symvalue.Expr) (bool, error)
	// Implies reports whether a implies b (equivalently, a && !b is unsat).
	Implies(ctx context.Context, a, b *symvalue.Expr) (bool, error)
	// Simplify rewrites e to logically equivalent, smaller form.
	Simplify(e *symvalue.Expr) *symvalue.Expr
	// Scope opens a fresh assertion stack (push/pop) for incremental queries.
	Scope() Scope
}

// Scope is a single push/pop assertion stack, mirroring the "fresh scope
// per query" pattern every example repo's pooled-connection code uses
// for request-scoped resources.
type Scope interface {
	Assert(e *symvalue.Expr)
	Check(ctx context.Context) (bool, error)
	Push()
	Pop()
	Close()
}
