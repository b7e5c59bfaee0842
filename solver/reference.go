package solver

import (
	"context"

	"github.com/bossjoker1/formula/symvalue"
)

// reference is a best-effort Solver: it folds constants, re-folds And
// nodes, and detects the syntactically obvious contradictions (a literal
// false conjunct, two equality constraints on the same variable pinning
// it to different constants, or a top-level conjunct alongside its own
// negation; Or nodes are not flattened and nested And nodes are not
// searched for negations). It does not decide general
// bit-vector or integer arithmetic; anything it cannot disprove is
// reported satisfiable. This under-approximates unsat, which is the safe
// direction for a summarizer: a path that is reported sat when it is
// actually unreachable just yields an extra, never-taken branch in the
// output formula instead of a dropped one.
type reference struct{}

// NewReference returns the standard-library reference Solver.
func NewReference() Solver { return &reference{} }

func (r *reference) Sat(_ context.Context, constraint *symvalue.Expr) (bool, error) {
	simplified := r.Simplify(constraint)
	return !simplified.IsFalse(), nil
}

func (r *reference) Implies(_ context.Context, a, b *symvalue.Expr) (bool, error) {
	// a => b  iff  a && !b is unsat.
	conj := symvalue.And(a, symvalue.Not(b))
	simplified := r.Simplify(conj)
	return simplified.IsFalse(), nil
}

func (r *reference) Simplify(e *symvalue.Expr) *symvalue.Expr {
	e = foldTree(e)
	if eqs := collectEqualityConstants(e); hasConflictingEquality(eqs) {
		return symvalue.Bool(false)
	}
	conjuncts := []*symvalue.Expr{e}
	if e.Kind == symvalue.KindOp && e.Op == symvalue.OpAndAnd {
		conjuncts = e.Args
	}
	seen := make(map[string]bool, len(conjuncts))
	for _, c := range conjuncts {
		seen[c.String()] = true
	}
	for _, c := range conjuncts {
		if c.Kind == symvalue.KindOp && c.Op == symvalue.OpNot && len(c.Args) == 1 && seen[c.Args[0].String()] {
			return symvalue.Bool(false)
		}
	}
	return e
}

func (r *reference) Scope() Scope {
	return &refScope{solver: r}
}

// refScope accumulates a conjunction of asserted constraints across a
// push/pop stack; Check re-simplifies the full conjunction each time,
// which is adequate at the scale a single function's path exploration
// produces (a handful of branch conditions deep).
type refScope struct {
	solver  *reference
	frames  [][]*symvalue.Expr
}

func (s *refScope) Assert(e *symvalue.Expr) {
	if len(s.frames) == 0 {
		s.frames = append(s.frames, nil)
	}
	top := len(s.frames) - 1
	s.frames[top] = append(s.frames[top], e)
}

func (s *refScope) Check(ctx context.Context) (bool, error) {
	var all []*symvalue.Expr
	for _, f := range s.frames {
		all = append(all, f...)
	}
	return s.solver.Sat(ctx, symvalue.And(all...))
}

func (s *refScope) Push() { s.frames = append(s.frames, nil) }

func (s *refScope) Pop() {
	if len(s.frames) > 0 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

func (s *refScope) Close() { s.frames = nil }

// foldTree recursively constant-folds an expression tree bottom-up.
func foldTree(e *symvalue.Expr) *symvalue.Expr {
	if e == nil || e.Kind != symvalue.KindOp {
		return e
	}
	args := make([]*symvalue.Expr, len(e.Args))
	for i, a := range e.Args {
		args[i] = foldTree(a)
	}
	if len(args) == 2 {
		if folded := symvalue.FoldConst(e.Op, args[0], args[1]); folded != nil {
			return folded
		}
	}
	if e.Op == symvalue.OpAndAnd {
		return symvalue.And(args...)
	}
	if e.Op == symvalue.OpNot && len(args) == 1 {
		if args[0].IsTrue() {
			return symvalue.Bool(false)
		}
		if args[0].IsFalse() {
			return symvalue.Bool(true)
		}
	}
	return &symvalue.Expr{Kind: symvalue.KindOp, Sort: e.Sort, Op: e.Op, Args: args}
}

// collectEqualityConstants walks an And-tree collecting (varName -> set
// of constant strings it is equated to) so hasConflictingEquality can
// spot `x == 1 && x == 2`.
func collectEqualityConstants(e *symvalue.Expr) map[string]map[string]bool {
	out := map[string]map[string]bool{}
	var walk func(*symvalue.Expr)
	walk = func(n *symvalue.Expr) {
		if n == nil || n.Kind != symvalue.KindOp {
			return
		}
		if n.Op == symvalue.OpAndAnd {
			for _, a := range n.Args {
				walk(a)
			}
			return
		}
		if n.Op == symvalue.OpEq && len(n.Args) == 2 {
			lhs, rhs := n.Args[0], n.Args[1]
			if lhs.Kind == symvalue.KindVar && rhs.IsConst() {
				addEquality(out, lhs.Name, rhs.String())
			} else if rhs.Kind == symvalue.KindVar && lhs.IsConst() {
				addEquality(out, rhs.Name, lhs.String())
			}
		}
	}
	walk(e)
	return out
}

func addEquality(m map[string]map[string]bool, name, constant string) {
	if m[name] == nil {
		m[name] = map[string]bool{}
	}
	m[name][constant] = true
}

func hasConflictingEquality(m map[string]map[string]bool) bool {
	for _, constants := range m {
		if len(constants) > 1 {
			return true
		}
	}
	return false
}
