// Package varident defines VarId, the identity the engine uses as a
// FormulaMap key. It plays the role of slither's Variable subclasses
// (StateVariable, LocalVariable, TemporaryVariable, ReferenceVariable)
// plus the two composite identities the original tool added on top
// (FMap for mapping/array reads, FTuple for unpacked multi-returns).
package varident

import "fmt"

// Kind tags which concrete identity a VarId carries.
type Kind uint8

const (
	StateVar Kind = iota
	Local
	Param
	Temp
	Ref
	FMap
	FTuple
)

// VarId is a structurally-comparable variable identity. Two VarIds are
// the same logical variable iff Equal reports true (equivalently, their
// Key strings match), matching the Python original's __eq__/__hash__
// pairs on FMap/FTuple. Go's == is reliable only for the flat kinds:
// Map and Tuple allocate fresh pointers, so == on two FMap or FTuple
// identities built separately is false.
type VarId struct {
	Kind Kind

	// StateVar / Local / Param / Temp / Ref
	Contract string
	Func     string
	Name     string

	// FMap: map[index]
	Map   *VarId
	Index *VarId

	// FTuple: tuple.(index)
	Tuple     *VarId
	TupleIdx  int
	ElemType  string
}

// State builds a contract state-variable identity.
func State(contract, name string) VarId {
	return VarId{Kind: StateVar, Contract: contract, Name: name}
}

// LocalVar builds a local-variable identity scoped to a function.
func LocalVar(contract, fn, name string) VarId {
	return VarId{Kind: Local, Contract: contract, Func: fn, Name: name}
}

// ParamVar builds a parameter identity scoped to a function.
func ParamVar(contract, fn, name string) VarId {
	return VarId{Kind: Param, Contract: contract, Func: fn, Name: name}
}

// TempVar builds a temporary (SSA-introduced) variable identity.
func TempVar(contract, fn, name string) VarId {
	return VarId{Kind: Temp, Contract: contract, Func: fn, Name: name}
}

// RefVar builds a reference-variable identity (the IR's indirection node
// for index/member accesses before they are folded into an FMap).
func RefVar(contract, fn, name string) VarId {
	return VarId{Kind: Ref, Contract: contract, Func: fn, Name: name}
}

// Map builds the composite identity for `m[index]`. Map and Index are
// pointers so VarId stays comparable (struct equality deref through the
// same interned *VarId if the caller pools them, or simply compares the
// pointed-to values via Equal below — direct == on the struct is NOT
// sufficient for pointer fields and callers needing map keys should use
// the string form from Key()).
func Map(base VarId, index VarId) VarId {
	m, i := base, index
	return VarId{Kind: FMap, Map: &m, Index: &i}
}

// Tuple builds the composite identity for unpacking the i-th component of
// a multi-value return (ret_0, ret_1, ... in the original's convention).
func Tuple(base VarId, index int, elemType string) VarId {
	t := base
	return VarId{Kind: FTuple, Tuple: &t, TupleIdx: index, ElemType: elemType}
}

// Equal reports structural equality, recursing into Map/Index/Tuple so
// pointer identity never matters — only matching FormulaMap's semantics.
func (v VarId) Equal(o VarId) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case FMap:
		return v.Map.Equal(*o.Map) && v.Index.Equal(*o.Index)
	case FTuple:
		return v.Tuple.Equal(*o.Tuple) && v.TupleIdx == o.TupleIdx && v.ElemType == o.ElemType
	default:
		return v.Contract == o.Contract && v.Func == o.Func && v.Name == o.Name
	}
}

// Key returns a string uniquely identifying v, suitable for use as a Go
// map key since VarId itself contains pointer fields for composite kinds.
func (v VarId) Key() string {
	switch v.Kind {
	case FMap:
		return fmt.Sprintf("map(%s,%s)", v.Map.Key(), v.Index.Key())
	case FTuple:
		return fmt.Sprintf("tuple(%s,%d,%s)", v.Tuple.Key(), v.TupleIdx, v.ElemType)
	default:
		return fmt.Sprintf("%d(%s.%s.%s)", v.Kind, v.Contract, v.Func, v.Name)
	}
}

func (v VarId) String() string {
	switch v.Kind {
	case FMap:
		return fmt.Sprintf("%s[%s]", v.Map.String(), v.Index.String())
	case FTuple:
		return fmt.Sprintf("%s.(%d)", v.Tuple.String(), v.TupleIdx)
	case StateVar:
		return fmt.Sprintf("%s.%s", v.Contract, v.Name)
	default:
		return fmt.Sprintf("%s.%s.%s", v.Contract, v.Func, v.Name)
	}
}

// IsTemp reports whether v is a temporary or a reference variable, the
// kinds cleared between CFG nodes (mirrors
// FFuncContext.clearTempVariableCache in the original).
func (v VarId) IsTemp() bool { return v.Kind == Temp || v.Kind == Ref }
