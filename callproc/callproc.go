// Package callproc implements the inter-procedural call matrix §4.5
// describes: pushing a callee frame for internal/library calls, merging
// its terminal-node state back into the caller on return, and resolving
// high-level/low-level calls to an opaque uninterpreted-function value
// via the ContractResolver when no further inlining is possible.
package callproc

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bossjoker1/formula/execctx"
	"github.com/bossjoker1/formula/formula"
	"github.com/bossjoker1/formula/formulaerr"
	"github.com/bossjoker1/formula/interp"
	"github.com/bossjoker1/formula/resolver"
	"github.com/bossjoker1/formula/symir"
	"github.com/bossjoker1/formula/symvalue"
	"github.com/bossjoker1/formula/varident"
)

// Registry looks up a same-module function by contract and name, the
// Go counterpart of slither's cross-referenced Contract/Function graph
// for InternalCall/LibraryCall targets.
type Registry interface {
	Lookup(contract, name string) (*symir.Contract, *symir.Function, bool)
}

// MapRegistry is the simplest Registry: a flat map of contracts.
type MapRegistry map[string]*symir.Contract

func (r MapRegistry) Lookup(contract, name string) (*symir.Contract, *symir.Function, bool) {
	c, ok := r[contract]
	if !ok {
		return nil, nil, false
	}
	fn, ok := c.Functions[name]
	return c, fn, ok
}

// Frame is a pushed callee activation the driver's call stack carries
// until the callee's CFG reaches a terminal node.
type Frame struct {
	CallerCtx   *execctx.Ctx
	CallerScope *interp.Scope
	CallerNode  symir.NodeID
	CalleeCtx   *execctx.Ctx
	CalleeScope *interp.Scope
	CalleeFunc  *symir.Function
}

// BeginInternal resolves an InternalCall/LibraryCall instruction against
// reg, builds the callee's fresh Ctx (globalFuncConstraint seeded from
// the caller, per SPEC_FULL's supplemented-feature restoration of that
// detail), binds each argument's formula onto the matching parameter
// identity, records the caller-argument alias for each parameter
// (FFuncContext.py's mapIndex2Var), and marks the caller ctx as
// awaiting this call's return.
func BeginInternal(callerCtx *execctx.Ctx, callerScope *interp.Scope, reg Registry, instr symir.Instruction) (*Frame, error) {
	contract, fn, ok := reg.Lookup(callerScope.Contract.Name, instr.Callee)
	if !ok {
		return nil, formulaerr.UnresolvedCalleeErr(instr.Callee, nil)
	}

	calleeCtx := execctx.New()
	calleeCtx.GlobalConstraint = callerCtx.GlobalConstraint
	calleeScope := interp.NewScope(contract, fn)

	for i, param := range fn.Params {
		if i >= len(instr.Args) {
			break
		}
		argID := callerScope.Resolve(instr.Args[i])
		argFormula := callerCtx.FormulaMap.Get(argID)
		if argFormula == nil {
			continue
		}
		paramID := calleeScope.Resolve(param.Name)
		calleeCtx.FormulaMap.Set(paramID, argFormula.Copy())
		calleeCtx.ParamAlias[paramID.Key()] = argID
	}

	destID := callerScope.Resolve(instr.Dest)
	callerCtx.PendingCall = true
	callerCtx.CallerRetVar = &destID

	return &Frame{
		CallerCtx:   callerCtx,
		CallerScope: callerScope,
		CallerNode:  instr.Node,
		CalleeCtx:   calleeCtx,
		CalleeScope: calleeScope,
		CalleeFunc:  fn,
	}, nil
}

// Complete propagates a finished callee frame's state back onto the
// caller: binds CallerRetVar from ret_0 and, for every ret_i the callee
// bound, the FTuple identity CallerRetVar.(i) that the caller's Unpack
// instructions read; merges every state-rooted formula the callee
// produced into the caller's view (state is shared per-contract address
// space; an FMap index that is an aliased parameter is re-keyed through
// ParamAlias to the caller's argument); and clears PendingCall and
// CallerRetVar.
func Complete(f *Frame) error {
	caller, callee := f.CallerCtx, f.CalleeCtx

	if f.CallerCtx.CallerRetVar != nil {
		dest := *f.CallerCtx.CallerRetVar
		for i := 0; ; i++ {
			retID := varident.LocalVar(f.CalleeFunc.Contract, f.CalleeFunc.Name, fmt.Sprintf("ret_%d", i))
			retFormula := callee.FormulaMap.Get(retID)
			if retFormula == nil {
				break
			}
			if i == 0 {
				caller.FormulaMap.Set(dest, retFormula.Copy())
			}
			caller.FormulaMap.Set(varident.Tuple(dest, i, ""), retFormula.Copy())
		}
	}

	var rekey func(varident.VarId) varident.VarId
	rekey = func(v varident.VarId) varident.VarId {
		if v.Kind != varident.FMap {
			return v
		}
		index := *v.Index
		if alias, ok := callee.ParamAlias[index.Key()]; ok {
			index = alias
		}
		return varident.Map(rekey(*v.Map), index)
	}

	for _, id := range callee.FormulaMap.Ids() {
		if !RootedInStateVar(id) {
			continue
		}
		calleeFormula := callee.FormulaMap.Get(id)
		if calleeFormula == nil {
			continue
		}
		caller.FormulaMap.ExtendOrAssign(rekey(id), calleeFormula)
	}

	caller.GlobalConstraint = symvalue.And(caller.GlobalConstraint, callee.GlobalConstraint)
	caller.PendingCall = false
	caller.CallerRetVar = nil
	return nil
}

// RootedInStateVar reports whether id is a state variable, or an FMap
// identity whose base chain bottoms out at one — the filter that
// distinguishes a function's state-rooted Summary from its full,
// unrestricted mergeFormulas accumulator. It matters both for
// propagating a callee's storage writes (e.g. balances[addr] = v) back
// onto the caller once the callee frame completes, and for restricting
// a function's own top-level FormulaMap to state-variable-rooted keys.
func RootedInStateVar(id varident.VarId) bool {
	switch id.Kind {
	case varident.StateVar:
		return true
	case varident.FMap:
		return RootedInStateVar(*id.Map)
	default:
		return false
	}
}

// ResolveExternal handles HighLevelCall/LowLevelCall: it asks res for
// the target's ABI (best-effort; failures degrade to an opaque selector
// name rather than aborting the path, matching the "type unknown"
// disposition's spirit for unresolved calls) and binds the call's
// destination to an uninterpreted function application standing in for
// the externally-computed result.
func ResolveExternal(ctx context.Context, res resolver.ContractResolver, chainID int64, c *execctx.Ctx, scope *interp.Scope, instr symir.Instruction) error {
	fnLabel := instr.Selector
	if res != nil && instr.TargetExpr != "" {
		if addr, err := res.ResolveAddress(ctx, chainID, instr.TargetExpr); err == nil {
			if model, err := res.ContractFor(ctx, chainID, addr); err == nil {
				if sig, ok := res.SelectorToSignature(model, selectorBytes(instr.Selector)); ok {
					fnLabel = sig
				}
			}
		}
	}

	args := make([]*symvalue.Expr, 0, len(instr.Args))
	for _, a := range instr.Args {
		argID := scope.Resolve(a)
		f := c.FormulaMap.Get(argID)
		if f == nil {
			continue
		}
		args = append(args, formula.ExpandIf(f, symvalue.Int(0)))
	}

	result := symvalue.Apply("extcall#"+fnLabel, symvalue.WordSort, args...)
	destID := scope.Resolve(instr.Dest)
	c.FormulaMap.Set(destID, formula.New(result, symvalue.Bool(true)))
	return nil
}

func selectorBytes(hex string) [4]byte {
	var out [4]byte
	b := common.FromHex(hex)
	copy(out[:], b)
	return out
}
