package symvalue

import (
	"math/big"

	"github.com/holiman/uint256"
)

// BinaryOp enumerates the IR's binary operators, matching the canonical
// table of arithmetic, comparison, boolean, and bitwise operations a
// Solidity three-address IR emits.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAndAnd
	OpOrOr
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpPow
	OpNot // unary, kept in the same enum for table symmetry
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEq:
		return "="
	case OpNeq:
		return "distinct"
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpAndAnd:
		return "and"
	case OpOrOr:
		return "or"
	case OpAnd:
		return "bvand"
	case OpOr:
		return "bvor"
	case OpXor:
		return "bvxor"
	case OpShl:
		return "bvshl"
	case OpShr:
		return "bvlshr"
	case OpPow:
		return "^"
	case OpNot:
		return "not"
	default:
		return "?"
	}
}

// isComparison reports whether op always yields a Bool regardless of its
// operands' sort.
func isComparison(op BinaryOp) bool {
	switch op {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpAndAnd, OpOrOr:
		return true
	default:
		return false
	}
}

// ResultSort resolves the sort of applying op to args, matching the
// Python original's untyped z3 overloads: comparisons and logical
// connectives always produce Bool; every other operator preserves its
// first operand's sort (Solidity binary ops are always same-sort).
func ResultSort(op BinaryOp, args []*Expr) Sort {
	if isComparison(op) {
		return BoolSort
	}
	if len(args) == 0 {
		return IntSort
	}
	return args[0].Sort
}

// FoldConst attempts constant folding for a binary application over two
// literal Expr operands, mirroring the arithmetic the reference solver
// otherwise has to discharge via a full decision procedure. Returns nil
// if either operand is not a constant of a supported sort, leaving the
// caller to build a symbolic BinOp node instead.
func FoldConst(op BinaryOp, lhs, rhs *Expr) *Expr {
	if lhs == nil || rhs == nil || !lhs.IsConst() || !rhs.IsConst() {
		return nil
	}
	switch lhs.Sort.Kind {
	case SortBool:
		if rhs.Sort.Kind != SortBool {
			return nil
		}
		return foldBool(op, lhs.ConstBool, rhs.ConstBool)
	case SortInt, SortBitVec:
		a, aok := asBig(lhs)
		b, bok := asBig(rhs)
		if !aok || !bok {
			return nil
		}
		return foldInt(op, a, b, lhs.Sort)
	default:
		return nil
	}
}

func foldBool(op BinaryOp, a, b bool) *Expr {
	switch op {
	case OpAndAnd:
		return Bool(a && b)
	case OpOrOr:
		return Bool(a || b)
	case OpEq:
		return Bool(a == b)
	case OpNeq:
		return Bool(a != b)
	default:
		return nil
	}
}

func asBig(e *Expr) (*big.Int, bool) {
	if e.ConstBig != "" {
		v, ok := new(big.Int).SetString(e.ConstBig, 10)
		return v, ok
	}
	return big.NewInt(e.ConstInt), true
}

// foldInt performs the fold using uint256 for bit-vector sorts whose
// operands fit in 256 bits, so add/sub/mul wrap modulo 2^256 and shifts
// and bitwise ops follow a 256-bit word whatever the sort's width; other
// bit-vector operands and Int-sorted values use unbounded math/big
// arithmetic instead. An Int-sorted result that does not fit in an int64
// is left unfolded (nil).
func foldInt(op BinaryOp, a, b *big.Int, sort Sort) *Expr {
	switch op {
	case OpEq:
		return Bool(a.Cmp(b) == 0)
	case OpNeq:
		return Bool(a.Cmp(b) != 0)
	case OpLt:
		return Bool(a.Cmp(b) < 0)
	case OpLte:
		return Bool(a.Cmp(b) <= 0)
	case OpGt:
		return Bool(a.Cmp(b) > 0)
	case OpGte:
		return Bool(a.Cmp(b) >= 0)
	}

	if sort.Kind == SortBitVec && b.Sign() >= 0 && fitsUint256(a) && fitsUint256(b) {
		ua, _ := uint256.FromBig(a)
		ub, _ := uint256.FromBig(b)
		res := new(uint256.Int)
		switch op {
		case OpAdd:
			res.Add(ua, ub)
		case OpSub:
			res.Sub(ua, ub)
		case OpMul:
			res.Mul(ua, ub)
		case OpDiv:
			if ub.IsZero() {
				return BitVec("0", sort.Width)
			}
			res.Div(ua, ub)
		case OpMod:
			if ub.IsZero() {
				return BitVec("0", sort.Width)
			}
			res.Mod(ua, ub)
		case OpAnd:
			res.And(ua, ub)
		case OpOr:
			res.Or(ua, ub)
		case OpXor:
			res.Xor(ua, ub)
		case OpShl:
			res.Lsh(ua, uint(ub.Uint64()))
		case OpShr:
			res.Rsh(ua, uint(ub.Uint64()))
		case OpPow:
			res.Exp(ua, ub)
		default:
			return nil
		}
		return BitVec(res.ToBig().String(), sort.Width)
	}

	res := new(big.Int)
	switch op {
	case OpAdd:
		res.Add(a, b)
	case OpSub:
		res.Sub(a, b)
	case OpMul:
		res.Mul(a, b)
	case OpDiv:
		if b.Sign() == 0 {
			return Int(0)
		}
		res.Div(a, b)
	case OpMod:
		if b.Sign() == 0 {
			return Int(0)
		}
		res.Mod(a, b)
	case OpAnd:
		res.And(a, b)
	case OpOr:
		res.Or(a, b)
	case OpXor:
		res.Xor(a, b)
	case OpShl:
		res.Lsh(a, uint(b.Uint64()))
	case OpShr:
		res.Rsh(a, uint(b.Uint64()))
	case OpPow:
		res.Exp(a, b, nil)
	default:
		return nil
	}
	if sort.Kind == SortBitVec {
		return BitVec(res.String(), sort.Width)
	}
	if !res.IsInt64() {
		return nil
	}
	return Int(res.Int64())
}

func fitsUint256(v *big.Int) bool {
	return v.Sign() >= 0 && v.BitLen() <= 256
}
