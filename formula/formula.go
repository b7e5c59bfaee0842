// Package formula implements the per-path formula bookkeeping: a
// FormulaMap from variable identity to the (possibly branch-split) set
// of symbolic expressions that variable can hold, each paired with the
// path constraint under which it holds. This mirrors FFormula.py's
// ExpressionWithConstraint/FFormula pair from the Python original.
package formula

import (
	"context"
	"fmt"

	"github.com/bossjoker1/formula/formulaerr"
	"github.com/bossjoker1/formula/solver"
	"github.com/bossjoker1/formula/symvalue"
	"github.com/bossjoker1/formula/varident"
)

// Entry pairs a value expression with the constraint under which the
// variable takes that value.
type Entry struct {
	Expr       *symvalue.Expr
	Constraint *symvalue.Expr
}

func (e Entry) String() string {
	return fmt.Sprintf("(%s | %s)", e.Expr, e.Constraint)
}

// Formula is the multiset of Entry values a single variable can hold
// along the paths explored so far. Order is insertion order; duplicate
// (expr, constraint) pairs are suppressed on Add to match the Python
// original's set-based __str__ dedup without reordering entries.
type Formula struct {
	Entries []Entry
}

// New builds a Formula from one initial entry.
func New(expr, constraint *symvalue.Expr) *Formula {
	return &Formula{Entries: []Entry{{Expr: expr, Constraint: constraint}}}
}

// Add appends an entry unless an identical (by S-expression text) entry
// is already present.
func (f *Formula) Add(expr, constraint *symvalue.Expr) {
	key := expr.String() + "|" + constraint.String()
	for _, e := range f.Entries {
		if e.Expr.String()+"|"+e.Constraint.String() == key {
			return
		}
	}
	f.Entries = append(f.Entries, Entry{Expr: expr, Constraint: constraint})
}

// Copy returns a deep-enough copy (Entry values are immutable Expr
// pointers, so only the slice header needs duplicating).
func (f *Formula) Copy() *Formula {
	cp := &Formula{Entries: make([]Entry, len(f.Entries))}
	copy(cp.Entries, f.Entries)
	return cp
}

func (f *Formula) String() string {
	s := "{"
	for i, e := range f.Entries {
		if i > 0 {
			s += ", "
		}
		s += e.String()
	}
	return s + "}"
}

// Map is a FormulaMap: VarId -> Formula. VarId.Key() is used as the
// backing map key since VarId's composite kinds hold pointer fields.
type Map struct {
	byKey map[string]*Formula
	ids   map[string]varident.VarId
}

// NewMap returns an empty FormulaMap.
func NewMap() *Map {
	return &Map{byKey: make(map[string]*Formula), ids: make(map[string]varident.VarId)}
}

// Get returns the Formula bound to id, or nil if unbound.
func (m *Map) Get(id varident.VarId) *Formula {
	return m.byKey[id.Key()]
}

// Set binds id to f outright, replacing any existing binding — used for
// assignment, as opposed to ExtendOrAssign's accumulate-on-merge semantics.
func (m *Map) Set(id varident.VarId, f *Formula) {
	k := id.Key()
	m.byKey[k] = f
	m.ids[k] = id
}

// ExtendOrAssign adds entries to id's existing Formula, or assigns f as
// id's Formula if it had none yet. This is the promote-on-terminal-node
// operation from Function.py's addFFormula: state-variable formulas
// accumulate across every path that reaches a terminal node instead of
// being overwritten.
func (m *Map) ExtendOrAssign(id varident.VarId, f *Formula) {
	existing := m.Get(id)
	if existing == nil {
		m.Set(id, f.Copy())
		return
	}
	for _, e := range f.Entries {
		existing.Add(e.Expr, e.Constraint)
	}
}

// Delete removes id's binding, used to drop temporaries between nodes.
func (m *Map) Delete(id varident.VarId) {
	k := id.Key()
	delete(m.byKey, k)
	delete(m.ids, k)
}

// Ids returns every VarId currently bound, in no particular order.
func (m *Map) Ids() []varident.VarId {
	out := make([]varident.VarId, 0, len(m.ids))
	for _, id := range m.ids {
		out = append(out, id)
	}
	return out
}

// Copy deep-copies every bound Formula (but not the VarIds, which are
// immutable value types once constructed).
func (m *Map) Copy() *Map {
	cp := NewMap()
	for k, f := range m.byKey {
		cp.byKey[k] = f.Copy()
		cp.ids[k] = m.ids[k]
	}
	return cp
}

// ClearTemporaries drops every binding whose VarId reports IsTemp, the
// per-node cache-clear the original performs between CFG nodes.
func (m *Map) ClearTemporaries() {
	for k, id := range m.ids {
		if id.IsTemp() {
			delete(m.byKey, k)
			delete(m.ids, k)
		}
	}
}

// MergeBinary combines two operand Formulas under op by pair-wise
// zipping: lhs.Entries[i] pairs only with rhs.Entries[i], truncated to
// min(len(lhs.Entries), len(rhs.Entries)) — matching the Python
// original's zip(lexp, rexp), not a cross product. Each surviving pair
// forms op(lexp, rexp) constrained by lcons && rcons, kept only if the
// solver reports that conjunction satisfiable. If no pair survives, the
// path is dead and formulaerr.EmptyMergeErr is returned so the driver
// can drop it.
func MergeBinary(ctx context.Context, s solver.Solver, op symvalue.BinaryOp, lhs, rhs *Formula) (*Formula, error) {
	n := len(lhs.Entries)
	if len(rhs.Entries) < n {
		n = len(rhs.Entries)
	}
	out := &Formula{}
	for i := 0; i < n; i++ {
		l, r := lhs.Entries[i], rhs.Entries[i]
		constraint := symvalue.And(l.Constraint, r.Constraint)
		sat, err := s.Sat(ctx, constraint)
		if err != nil {
			return nil, err
		}
		if !sat {
			continue
		}
		value := symvalue.FoldConst(op, l.Expr, r.Expr)
		if value == nil {
			value = symvalue.BinOp(op, l.Expr, r.Expr)
		}
		out.Add(value, constraint)
	}
	if len(out.Entries) == 0 {
		return nil, formulaerr.EmptyMergeErr(op.String())
	}
	return out, nil
}

// ExpandIf flattens a Formula's entries into an If-expression chain
// (mirroring the z3 If(cond, e1, If(cond2, e2, ...)) nesting the original
// builds when a variable needs to be summarized as one expression rather
// than a (expr, constraint) multiset — used by summaryfmt, by the
// driver's branch fork, by require/assert and ABI encoding in interp, and
// for external-call arguments in callproc).
func ExpandIf(f *Formula, fallback *symvalue.Expr) *symvalue.Expr {
	if len(f.Entries) == 0 {
		return fallback
	}
	result := f.Entries[len(f.Entries)-1].Expr
	for i := len(f.Entries) - 2; i >= 0; i-- {
		e := f.Entries[i]
		result = symvalue.If(e.Constraint, e.Expr, result)
	}
	return result
}

// ReconstructIf is the inverse operation: given a nested If-expression
// tree (as ExpandIf produces, or as a resolved external call might
// return), it folds the tree back into a flat Formula of
// (expr, constraint) entries, each constraint conjoined with the
// branch's accumulated condition path.
func ReconstructIf(e *symvalue.Expr) *Formula {
	out := &Formula{}
	var walk func(n *symvalue.Expr, accumulated *symvalue.Expr)
	walk = func(n *symvalue.Expr, accumulated *symvalue.Expr) {
		if n.Kind != symvalue.KindIf {
			out.Add(n, accumulated)
			return
		}
		walk(n.Then, symvalue.And(accumulated, n.Cond))
		walk(n.Else, symvalue.And(accumulated, symvalue.Not(n.Cond)))
	}
	walk(e, symvalue.Bool(true))
	return out
}

// Implied returns whichever of a, b the solver proves implies the other
// (the stronger constraint, equivalent to a && b), avoiding a needless
// conjunction with a subsumed condition. If neither implies the other,
// a && b is returned unchanged. The driver does not call it: path
// constraints are always conjoined with symvalue.And, with or without
// the --refined flag.
func Implied(ctx context.Context, s solver.Solver, a, b *symvalue.Expr) (*symvalue.Expr, error) {
	aImpliesB, err := s.Implies(ctx, a, b)
	if err != nil {
		return nil, err
	}
	if aImpliesB {
		return a, nil
	}
	bImpliesA, err := s.Implies(ctx, b, a)
	if err != nil {
		return nil, err
	}
	if bImpliesA {
		return b, nil
	}
	return symvalue.And(a, b), nil
}
