// Package typesys bridges Solidity source-level types to symvalue.Sort,
// and — when the resolver could not recover a type at all — falls back
// to heuristically classifying a raw literal by shape.
package typesys

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bossjoker1/formula/formulaerr"
	"github.com/bossjoker1/formula/symvalue"
)

// FromSolidityType maps a Solidity type string (as it appears in compiled
// IR, e.g. "uint256", "address", "bool", "mapping(address => uint256)",
// "bytes32") to a symvalue.Sort. Mapping and array types resolve to the
// sort of their value/element type, since they are represented as
// symvalue arrays keyed by index rather than as sorts in their own right.
func FromSolidityType(t string) (symvalue.Sort, error) {
	t = strings.TrimSpace(t)
	switch {
	case t == "bool":
		return symvalue.BoolSort, nil
	case t == "address" || t == "address payable":
		return symvalue.AddressSort, nil
	case t == "string":
		return symvalue.StringSort, nil
	case strings.HasPrefix(t, "bytes") && t != "bytes":
		return bytesNSort(t)
	case t == "bytes":
		return symvalue.WordSort, nil
	case strings.HasPrefix(t, "uint") || strings.HasPrefix(t, "int"):
		return intNSort(t)
	case strings.HasPrefix(t, "mapping("):
		return valueSortOfMapping(t)
	case strings.HasSuffix(t, "]") && strings.Contains(t, "["):
		return elemSortOfArray(t)
	default:
		return symvalue.Sort{}, formulaerr.New(formulaerr.TypeUnknown, "unrecognized solidity type").
			WithContext("type", t)
	}
}

func bytesNSort(t string) (symvalue.Sort, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(t, "bytes"))
	if err != nil || n <= 0 || n > 32 {
		return symvalue.Sort{}, formulaerr.New(formulaerr.TypeUnknown, "invalid fixed-size bytes type").WithContext("type", t)
	}
	return symvalue.BitVecSort(n * 8), nil
}

// intNSort maps every uintN/intN width to the unbounded integer sort: the
// engine does not model 256-bit (or narrower) modular wrap-around, so a
// Solidity integer type — regardless of declared width — is just an
// Int. The width is still validated so a malformed type string surfaces
// as an error rather than silently resolving to Int.
func intNSort(t string) (symvalue.Sort, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(t, "u"), "int")
	if digits == "" {
		return symvalue.IntSort, nil
	}
	width, err := strconv.Atoi(digits)
	if err != nil || width <= 0 || width > 256 || width%8 != 0 {
		return symvalue.Sort{}, formulaerr.New(formulaerr.TypeUnknown, "invalid integer width").WithContext("type", t)
	}
	return symvalue.IntSort, nil
}

// IsUnsignedInteger reports whether t is a Solidity uintN type (any
// width), used to decide whether a freshly created symbolic value of
// this type needs a "≥ 0" fact asserted into the solver on creation.
func IsUnsignedInteger(t string) bool {
	return strings.HasPrefix(strings.TrimSpace(t), "uint")
}

func valueSortOfMapping(t string) (symvalue.Sort, error) {
	arrow := strings.LastIndex(t, "=>")
	if arrow < 0 {
		return symvalue.Sort{}, formulaerr.New(formulaerr.TypeUnknown, "malformed mapping type").WithContext("type", t)
	}
	valueType := strings.TrimSuffix(strings.TrimSpace(t[arrow+2:]), ")")
	return FromSolidityType(valueType)
}

func elemSortOfArray(t string) (symvalue.Sort, error) {
	idx := strings.LastIndex(t, "[")
	return FromSolidityType(t[:idx])
}

// InferFromValue heuristically classifies a raw 32-byte storage value
// when no ABI or source is available (offline mode, or the resolver
// could not locate the callee). This sharpens the "type unknown"
// disposition with a best-effort guess instead of always defaulting
// to a 256-bit integer.
func InferFromValue(value common.Hash) symvalue.Sort {
	if value == (common.Hash{}) {
		return symvalue.BoolSort
	}
	v := value.Big()
	if v.Cmp(big.NewInt(0)) == 0 || v.Cmp(big.NewInt(1)) == 0 {
		return symvalue.BoolSort
	}
	if looksLikeAddress(value) {
		return symvalue.AddressSort
	}
	if v.Cmp(big.NewInt(10000)) <= 0 {
		return symvalue.WordSort
	}
	return symvalue.BitVecSort(256)
}

// looksLikeAddress mirrors the teacher's storage-slot heuristic: the top
// 12 bytes must be zero and the bottom 20 bytes must not all be zero;
// a value with fewer than 4 nonzero bytes is additionally treated as an
// integer when it is small enough to plausibly be a counter (<2^32).
func looksLikeAddress(value common.Hash) bool {
	b := value.Bytes()
	for i := 0; i < 12; i++ {
		if b[i] != 0 {
			return false
		}
	}
	nonZero := 0
	for i := 12; i < 32; i++ {
		if b[i] != 0 {
			nonZero++
		}
	}
	if nonZero == 0 {
		return false
	}
	if nonZero < 4 {
		if value.Big().Cmp(big.NewInt(4294967296)) < 0 {
			return false
		}
	}
	return true
}
