package interp

import (
	"strings"

	"github.com/bossjoker1/formula/symir"
	"github.com/bossjoker1/formula/varident"
)

// Scope resolves a bare IR variable name to its VarId within one function
// activation, playing the role slither's Variable subclassing plays in
// the Python original (StateVariable vs LocalVariable vs
// TemporaryVariable are distinguished by Python type; the IR here only
// has strings, so Scope classifies by declaration membership and the
// extractor's naming convention for compiler-introduced temporaries).
type Scope struct {
	Contract *symir.Contract
	Function *symir.Function
}

// NewScope builds a Scope for one function activation.
func NewScope(c *symir.Contract, f *symir.Function) *Scope {
	return &Scope{Contract: c, Function: f}
}

// Resolve classifies name and returns its VarId.
func (s *Scope) Resolve(name string) varident.VarId {
	switch {
	case strings.HasPrefix(name, "TMP"):
		return varident.TempVar(s.Contract.Name, s.Function.Name, name)
	case strings.HasPrefix(name, "REF"):
		return varident.RefVar(s.Contract.Name, s.Function.Name, name)
	case s.isParam(name):
		return varident.ParamVar(s.Contract.Name, s.Function.Name, name)
	case s.isStateVar(name):
		return varident.State(s.Contract.Name, name)
	default:
		return varident.LocalVar(s.Contract.Name, s.Function.Name, name)
	}
}

// TypeOf returns the declared/inferred Solidity type string for name,
// checking parameters, state variables, then the function's local type
// table, in that precedence order (matches how a param can shadow a
// contract-level state variable of the same name).
func (s *Scope) TypeOf(name string) (string, bool) {
	for _, p := range s.Function.Params {
		if p.Name == name {
			return p.Type, true
		}
	}
	for _, p := range s.Function.Returns {
		if p.Name == name {
			return p.Type, true
		}
	}
	if t, ok := s.Contract.StateVarTypes[name]; ok {
		return t, true
	}
	if t, ok := s.Function.VarTypes[name]; ok {
		return t, true
	}
	return "", false
}

func (s *Scope) isParam(name string) bool {
	for _, p := range s.Function.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (s *Scope) isStateVar(name string) bool {
	_, ok := s.Contract.StateVarTypes[name]
	return ok
}
