package symvalue

import (
	"fmt"
	"strings"
)

// ExprKind tags the shape of an Expr node.
type ExprKind uint8

const (
	KindConst ExprKind = iota
	KindVar
	KindOp
	KindSelect
	KindStore
	KindIf
	KindApply
)

// Expr is an immutable node in the symbolic expression tree. Only the
// fields relevant to Kind are populated; constructors below enforce that.
type Expr struct {
	Kind ExprKind
	Sort Sort

	// KindConst
	ConstInt  int64  // valid when Sort.Kind is SortInt or SortBitVec and fits int64
	ConstBig  string // decimal string form, authoritative for SortBitVec constants
	ConstBool bool
	ConstStr  string

	// KindVar
	Name string

	// KindOp
	Op   BinaryOp
	Args []*Expr // len 1 for unary (Not, Neg), len 2 for binary, len N for N-ary And/Or folds

	// KindSelect / KindStore: Array holds the base array/mapping expr
	Array *Expr
	Index *Expr
	Value *Expr // KindStore only

	// KindIf
	Cond *Expr
	Then *Expr
	Else *Expr

	// KindApply: an uninterpreted function application (used for ABI-opaque
	// external call results and hash/keccak-like builtins).
	Func string
}

// Int builds an integer constant.
func Int(v int64) *Expr { return &Expr{Kind: KindConst, Sort: IntSort, ConstInt: v} }

// BitVec builds a fixed-width bit-vector constant from a decimal string,
// matching how large uint256 literals arrive from the IR as text.
func BitVec(decimal string, width int) *Expr {
	return &Expr{Kind: KindConst, Sort: BitVecSort(width), ConstBig: decimal}
}

// Bool builds a boolean constant.
func Bool(v bool) *Expr { return &Expr{Kind: KindConst, Sort: BoolSort, ConstBool: v} }

// Str builds a string constant.
func Str(v string) *Expr { return &Expr{Kind: KindConst, Sort: StringSort, ConstStr: v} }

// Var builds a free symbolic variable of the given sort and name. Two Var
// nodes are considered the same logical symbol only if Name and Sort both
// match; the interpreter is responsible for picking stable, unique names.
func Var(name string, sort Sort) *Expr {
	return &Expr{Kind: KindVar, Sort: sort, Name: name}
}

// BinOp builds an n-ary (but usually binary) operator application. The
// result sort is resolved by ResultSort.
func BinOp(op BinaryOp, args ...*Expr) *Expr {
	return &Expr{Kind: KindOp, Sort: ResultSort(op, args), Op: op, Args: args}
}

// Not builds a boolean negation.
func Not(x *Expr) *Expr { return &Expr{Kind: KindOp, Sort: BoolSort, Op: OpNot, Args: []*Expr{x}} }

// Select builds an array-read expression: array[index].
func Select(array, index *Expr, elemSort Sort) *Expr {
	return &Expr{Kind: KindSelect, Sort: elemSort, Array: array, Index: index}
}

// Store builds an array-write expression: array[index] = value, yielding
// the updated array as a new value (the original is left untouched).
func Store(array, index, value *Expr) *Expr {
	return &Expr{Kind: KindStore, Sort: array.Sort, Array: array, Index: index, Value: value}
}

// If builds a conditional expression: cond ? then : els.
func If(cond, then, els *Expr) *Expr {
	return &Expr{Kind: KindIf, Sort: then.Sort, Cond: cond, Then: then, Else: els}
}

// Apply builds an uninterpreted function application, used when a value's
// exact derivation is opaque (e.g. keccak256 of symbolic input, or the
// return value of an unresolved external call).
func Apply(fn string, sort Sort, args ...*Expr) *Expr {
	return &Expr{Kind: KindApply, Sort: sort, Func: fn, Args: args}
}

// IsConst reports whether e is a literal constant.
func (e *Expr) IsConst() bool { return e != nil && e.Kind == KindConst }

// IsTrue reports whether e is the boolean literal true.
func (e *Expr) IsTrue() bool { return e.IsConst() && e.Sort.Kind == SortBool && e.ConstBool }

// IsFalse reports whether e is the boolean literal false.
func (e *Expr) IsFalse() bool { return e.IsConst() && e.Sort.Kind == SortBool && !e.ConstBool }

// And folds a list of boolean expressions with And, dropping bare `true`
// terms and short-circuiting to `false` if any term is `false`. An empty
// list yields `true`, matching z3's And() with zero args.
func And(terms ...*Expr) *Expr {
	var kept []*Expr
	for _, t := range terms {
		if t == nil || t.IsTrue() {
			continue
		}
		if t.IsFalse() {
			return Bool(false)
		}
		kept = append(kept, t)
	}
	switch len(kept) {
	case 0:
		return Bool(true)
	case 1:
		return kept[0]
	default:
		return &Expr{Kind: KindOp, Sort: BoolSort, Op: OpAndAnd, Args: kept}
	}
}

// String renders e as an S-expression, used for logging and the
// summaryfmt output formatter.
func (e *Expr) String() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case KindConst:
		switch e.Sort.Kind {
		case SortBool:
			return fmt.Sprintf("%v", e.ConstBool)
		case SortString:
			return fmt.Sprintf("%q", e.ConstStr)
		case SortBitVec:
			if e.ConstBig != "" {
				return e.ConstBig
			}
			return fmt.Sprintf("%d", e.ConstInt)
		default:
			return fmt.Sprintf("%d", e.ConstInt)
		}
	case KindVar:
		return e.Name
	case KindOp:
		parts := make([]string, len(e.Args))
		for i, a := range e.Args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("(%s %s)", e.Op, strings.Join(parts, " "))
	case KindSelect:
		return fmt.Sprintf("(select %s %s)", e.Array.String(), e.Index.String())
	case KindStore:
		return fmt.Sprintf("(store %s %s %s)", e.Array.String(), e.Index.String(), e.Value.String())
	case KindIf:
		return fmt.Sprintf("(ite %s %s %s)", e.Cond.String(), e.Then.String(), e.Else.String())
	case KindApply:
		parts := make([]string, len(e.Args))
		for i, a := range e.Args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("(%s %s)", e.Func, strings.Join(parts, " "))
	default:
		return "<invalid-expr>"
	}
}
