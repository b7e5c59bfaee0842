// Package symvalue implements the symbolic expression tree the engine
// builds in place of z3's ExprRef: constants, free variables, n-ary
// operator applications, array select/store, conditionals, and
// uninterpreted function applications. Expr values are immutable and
// safe to share across forked path contexts.
package symvalue

import "fmt"

// Sort names the domain an Expr inhabits, mirroring the small set of z3
// sorts the original tool actually uses (Int, Bool, String, and fixed
// width bit-vectors for addresses and machine words).
type Sort struct {
	Kind  SortKind
	Width int // meaningful only for SortBitVec
}

type SortKind uint8

const (
	SortInt SortKind = iota
	SortBool
	SortString
	SortBitVec
	SortArray
)

func (s Sort) String() string {
	switch s.Kind {
	case SortInt:
		return "Int"
	case SortBool:
		return "Bool"
	case SortString:
		return "String"
	case SortBitVec:
		return fmt.Sprintf("BitVec(%d)", s.Width)
	case SortArray:
		return "Array"
	default:
		return "Unknown"
	}
}

var (
	IntSort    = Sort{Kind: SortInt}
	BoolSort   = Sort{Kind: SortBool}
	StringSort = Sort{Kind: SortString}
)

// BitVecSort returns a bit-vector sort of the given width. Solidity's
// machine word is 256 bits; addresses are carried as 160-bit bit-vectors
// per the contract "this" address convention.
func BitVecSort(width int) Sort { return Sort{Kind: SortBitVec, Width: width} }

// AddressSort is the 160-bit bit-vector sort used for `address` values.
var AddressSort = BitVecSort(160)

// WordSort is the 256-bit bit-vector sort used for `bytes`, lengths,
// unpacked tuple elements and values whose type is unknown; typesys maps
// `uintN`/`intN` to IntSort, not to WordSort.
var WordSort = BitVecSort(256)
