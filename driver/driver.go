// Package driver walks a Function's CFG with a work-list of execctx.Ctx
// path states, forking at every branch, bounding IFLOOP unrolling, and
// dispatching internal/external calls through callproc. It is the Go
// shape of Function.py's buildCFG/analyzeIR driving loop.
package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/bossjoker1/formula/callproc"
	"github.com/bossjoker1/formula/execctx"
	"github.com/bossjoker1/formula/formula"
	"github.com/bossjoker1/formula/formulaerr"
	"github.com/bossjoker1/formula/interp"
	"github.com/bossjoker1/formula/resolver"
	"github.com/bossjoker1/formula/solver"
	"github.com/bossjoker1/formula/symir"
	"github.com/bossjoker1/formula/symvalue"
	"github.com/bossjoker1/formula/typesys"
	"github.com/bossjoker1/formula/varident"
)

// defaultMaxIter matches config.LoadConfig's fallback for an Engine built
// outside the CLI (tests, or a caller that skips config entirely).
const defaultMaxIter = 4

// Engine is the symbolic execution driver: one Solver/Registry/Resolver
// triple shared across every function it is asked to analyze.
type Engine struct {
	Solver   solver.Solver
	Registry callproc.Registry
	Resolver resolver.ContractResolver
	ChainID  int64
	MaxIter  int
	Stats    *Stats
}

// New builds an Engine. res may be nil for contracts whose IR contains no
// high-level/low-level calls (offline mode with a fully self-contained
// contract); with a nil Resolver an external call is not resolved and
// its destination is bound to an opaque uninterpreted result labelled by
// the call's raw selector.
func New(s solver.Solver, reg callproc.Registry, res resolver.ContractResolver, chainID int64, maxIter int) *Engine {
	if maxIter <= 0 {
		maxIter = defaultMaxIter
	}
	return &Engine{Solver: s, Registry: reg, Resolver: res, ChainID: chainID, MaxIter: maxIter, Stats: NewStats()}
}

// Analyze seeds a fresh path context from fn's declared parameters and
// walks its CFG to termination, returning the FormulaMap summarizing the
// state-variable-rooted identities (state variables and FMap entries over
// them) across every surviving terminal path; locals, parameters,
// temporaries and ret_i bindings are not included.
func (e *Engine) Analyze(ctx context.Context, contract *symir.Contract, fn *symir.Function) (*formula.Map, error) {
	runID := uuid.New()
	started := time.Now()
	log.Info("starting function analysis", "run", runID, "contract", contract.Name, "function", fn.Name)

	scope := interp.NewScope(contract, fn)
	initial := execctx.New()
	if err := seedParams(initial, scope, fn); err != nil {
		e.Stats.RecordRun(started, false)
		return nil, err
	}

	summary, _, err := e.run(ctx, contract, fn, scope, initial)
	e.Stats.RecordRun(started, err == nil)
	if err != nil {
		log.Warn("function analysis failed", "run", runID, "contract", contract.Name, "function", fn.Name, "err", err)
		return nil, err
	}
	log.Info("finished function analysis", "run", runID, "contract", contract.Name, "function", fn.Name)
	return summary, nil
}

// seedParams binds every declared parameter to a fresh named symbolic
// value, the entry-node counterpart of variableFormula's lazy fallback
// for a function's own parameters. A uintN-typed parameter additionally
// asserts "≥ 0" into GlobalConstraint on creation.
func seedParams(c *execctx.Ctx, scope *interp.Scope, fn *symir.Function) error {
	for _, p := range fn.Params {
		sort, err := typesys.FromSolidityType(p.Type)
		if err != nil {
			sort = symvalue.WordSort
		}
		id := varident.ParamVar(fn.Contract, fn.Name, p.Name)
		varExpr := symvalue.Var(id.String(), sort)
		if typesys.IsUnsignedInteger(p.Type) {
			c.GlobalConstraint = symvalue.And(c.GlobalConstraint, symvalue.BinOp(symvalue.OpGte, varExpr, symvalue.Int(0)))
		}
		c.FormulaMap.Set(id, formula.New(varExpr, symvalue.Bool(true)))
	}
	return nil
}

// pathState is one work-list entry: a path's context paired with the
// node it is about to evaluate.
type pathState struct {
	ctx  *execctx.Ctx
	node symir.NodeID
}

// run is the work-list loop itself, used both for a top-level Analyze
// call and recursively for every internal/library call's callee, whose
// own terminal-node promotions become the FormulaMap callproc.Complete
// merges back onto the caller. It returns two accumulators: summary,
// restricted to state-variable-rooted identities (the Glossary's
// "Summary", what a top-level Analyze call reports), and merged, the
// unrestricted mergeFormulas accumulator every live identity — locals,
// temporaries, ret_i included — folds into, which callproc.Complete
// needs intact to recover a callee's ret_0.
func (e *Engine) run(ctx context.Context, contract *symir.Contract, fn *symir.Function, scope *interp.Scope, initial *execctx.Ctx) (summary *formula.Map, merged *formula.Map, err error) {
	summary = formula.NewMap()
	merged = formula.NewMap()
	worklist := []pathState{{ctx: initial, node: fn.Entry}}

	for len(worklist) > 0 {
		ps := worklist[0]
		worklist = worklist[1:]
		e.Stats.RecordNodeVisited()

		node, ok := fn.Nodes[ps.node]
		if !ok {
			return nil, nil, formulaerr.MalformedIRErr("missing-node", string(ps.node))
		}

		dropped, err := e.evalInstructions(ctx, contract, scope, ps.ctx, node)
		if err != nil {
			return nil, nil, err
		}
		ps.ctx.ClearTempCache()
		if dropped {
			e.Stats.RecordPathDropped()
			continue
		}

		switch {
		case node.Kind == symir.NodeThrow:
			e.Stats.RecordPathDropped()

		case node.Kind == symir.NodeIf || node.Kind == symir.NodeIfLoop:
			next, err := e.fork(ctx, node, ps)
			if err != nil {
				return nil, nil, err
			}
			worklist = append(worklist, next...)

		case node.Kind == symir.NodePlaceholder:
			promote(summary, merged, ps.ctx)
			e.Stats.RecordPathCompleted()
			worklist = nil

		case node.Kind == symir.NodeReturn || len(node.Succs) == 0:
			promote(summary, merged, ps.ctx)
			e.Stats.RecordPathCompleted()

		default:
			worklist = append(worklist, pathState{ctx: ps.ctx, node: node.Succs[0]})
		}
	}

	return summary, merged, nil
}

// evalInstructions runs node's straight-line instructions against c,
// dispatching calls through callproc as they are encountered. A
// recoverable error (unsat require/assert, empty merge, revert) kills
// this path without aborting the analysis; any other error propagates.
func (e *Engine) evalInstructions(ctx context.Context, contract *symir.Contract, scope *interp.Scope, c *execctx.Ctx, node *symir.Node) (dropped bool, err error) {
	for _, instr := range node.Instructions {
		pending, stepErr := interp.Step(ctx, e.Solver, c, scope, instr)
		if stepErr != nil {
			if formulaerr.IsRecoverable(stepErr) {
				return true, nil
			}
			return false, stepErr
		}
		if pending == nil {
			continue
		}
		if callErr := e.resolveCall(ctx, contract, scope, c, pending.Instr); callErr != nil {
			if formulaerr.IsRecoverable(callErr) {
				return true, nil
			}
			return false, callErr
		}
	}
	return false, nil
}

// resolveCall dispatches the call kinds interp.Step defers to the
// driver: internal/library calls recurse into the callee's own CFG via
// run, high-level/low-level calls go through callproc.ResolveExternal.
func (e *Engine) resolveCall(ctx context.Context, contract *symir.Contract, scope *interp.Scope, c *execctx.Ctx, instr symir.Instruction) error {
	switch instr.CallKind {
	case symir.CallInternal, symir.CallLibrary:
		calleeContract, calleeFn, ok := e.Registry.Lookup(contract.Name, instr.Callee)
		if !ok {
			return formulaerr.UnresolvedCalleeErr(instr.Callee, nil)
		}
		frame, err := callproc.BeginInternal(c, scope, e.Registry, instr)
		if err != nil {
			return err
		}
		_, calleeMerged, err := e.run(ctx, calleeContract, calleeFn, frame.CalleeScope, frame.CalleeCtx)
		if err != nil {
			return err
		}
		frame.CalleeCtx.FormulaMap = calleeMerged
		e.Stats.RecordCallResolved()
		return callproc.Complete(frame)

	case symir.CallHighLevel, symir.CallLowLevel:
		e.Stats.RecordExternalCall()
		return callproc.ResolveExternal(ctx, e.Resolver, e.ChainID, c, scope, instr)

	default:
		return formulaerr.MalformedIRErr(fmt.Sprintf("call-kind:%d", instr.CallKind), string(instr.Node))
	}
}

// fork evaluates an If/IfLoop node's branch condition and returns the
// work-list entries for whichever of its two successors the solver
// reports reachable. IfLoop's true (back-edge) successor is additionally
// bounded by MaxIter, the IFLOOP unrolling cutoff.
func (e *Engine) fork(ctx context.Context, node *symir.Node, ps pathState) ([]pathState, error) {
	if ps.ctx.CondExprIf == nil {
		return nil, formulaerr.MalformedIRErr("if-without-condition", string(node.ID))
	}
	cond := formula.ExpandIf(ps.ctx.CondExprIf, symvalue.Bool(true))

	var next []pathState

	withinBound := true
	if node.Kind == symir.NodeIfLoop {
		count := ps.ctx.Visit(execctx.NodeID(node.ID))
		withinBound = count <= e.MaxIter
	}
	if withinBound {
		trueCtx := ps.ctx.Clone()
		trueCtx.PushCond(cond)
		sat, err := e.Solver.Sat(ctx, symvalue.And(trueCtx.GlobalConstraint, trueCtx.BranchCond))
		if err != nil {
			return nil, err
		}
		if sat {
			next = append(next, pathState{ctx: trueCtx, node: node.TrueSucc})
		} else {
			e.Stats.RecordPathDropped()
		}
	} else {
		e.Stats.RecordLoopBound()
	}

	falseCtx := ps.ctx.Clone()
	falseCtx.PushCond(symvalue.Not(cond))
	sat, err := e.Solver.Sat(ctx, symvalue.And(falseCtx.GlobalConstraint, falseCtx.BranchCond))
	if err != nil {
		return nil, err
	}
	if sat {
		next = append(next, pathState{ctx: falseCtx, node: node.FalseSucc})
	} else {
		e.Stats.RecordPathDropped()
	}

	return next, nil
}

// promote folds every binding a terminal path reached into merged,
// accumulating across every path the work-list explores rather than
// overwriting, first tightening each entry's stored constraint by
// ANDing in c.GlobalConstraint. It additionally folds the
// state-variable-rooted subset into summary — the function's own
// top-level Summary, reusing callproc.RootedInStateVar so the filter
// matches the one callproc.Complete applies when propagating a callee's
// writes back onto its caller.
func promote(summary, merged *formula.Map, c *execctx.Ctx) {
	for _, id := range c.FormulaMap.Ids() {
		f := c.FormulaMap.Get(id)
		if f == nil {
			continue
		}
		tightened := tightenToGlobalConstraint(f, c.GlobalConstraint)
		merged.ExtendOrAssign(id, tightened)
		if callproc.RootedInStateVar(id) {
			summary.ExtendOrAssign(id, tightened)
		}
	}
}

// tightenToGlobalConstraint returns a copy of f with global conjoined
// into every entry's constraint.
func tightenToGlobalConstraint(f *formula.Formula, global *symvalue.Expr) *formula.Formula {
	out := &formula.Formula{}
	for _, e := range f.Entries {
		out.Add(e.Expr, symvalue.And(e.Constraint, global))
	}
	return out
}
