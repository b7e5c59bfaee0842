// Package execctx holds Ctx, the per-path execution context the driver
// forks at every branch and pushes/pops as a stack frame at every
// internal call. It is the Go shape of FFuncContext.py/FFuncContext
// (embedded variant) from the Python original.
package execctx

import (
	"github.com/bossjoker1/formula/formula"
	"github.com/bossjoker1/formula/symir"
	"github.com/bossjoker1/formula/symvalue"
	"github.com/bossjoker1/formula/varident"
)

// NodeID identifies a CFG node within its owning function, used for
// diagnostics (loop-bound warnings, malformed-IR errors) and for the
// node path trail kept for debugging.
type NodeID string

// Ctx is the live symbolic state of one execution path through one
// function activation.
type Ctx struct {
	// FormulaMap is this path's working variable -> Formula bindings.
	FormulaMap *formula.Map

	// GlobalConstraint is the conjunction of every require/assert this
	// path has passed so far (FFuncContext.globalFuncConstraint).
	GlobalConstraint *symvalue.Expr

	// RefMap resolves a Ref identity to the concrete identity it points
	// to within the current node's evaluation; cleared between nodes.
	RefMap map[string]varident.VarId

	// ParamAlias maps a callee parameter's identity back to the caller's
	// original argument identity (FFuncContext.py's mapIndex2Var), used
	// to propagate the callee's post-state writes onto the caller's view
	// of an aliased storage/reference argument after a call returns.
	ParamAlias map[string]varident.VarId

	// MapVar2Exp is a per-identity table of symbolic array/mapping values
	// (FFuncContext.py's mapVar2Exp). New allocates it and Clone copies
	// it; no package writes entries into it.
	MapVar2Exp map[string]*symvalue.Expr

	// CondStack is the nested branch-condition trail accumulated while
	// descending into an If subtree; BranchCond is its conjunction.
	CondStack  []*symvalue.Expr
	BranchCond *symvalue.Expr

	// CondExprIf holds the branch-condition Formula the interpreter
	// computed for the node currently being evaluated (InstrCondition),
	// consumed by the driver immediately afterward to fork the path.
	CondExprIf *formula.Formula

	// PendingCall is set by callproc.BeginInternal while a callee frame
	// for this path is active and cleared by callproc.Complete (the
	// WaitCall flag from Function.py's buildCFG). The driver does not
	// read it: it runs the callee to completion before evaluating the
	// caller's next instruction.
	PendingCall bool

	// DeferredIRs mirrors returnIRs in the Python original. Clone copies
	// it; nothing fills or replays it, since the driver evaluates the
	// caller's remaining instructions directly after the callee returns.
	DeferredIRs []symir.Instruction

	// CallerRetVar is the caller-side identity the callee's return value
	// will be bound to once the call resolves.
	CallerRetVar *varident.VarId

	// LoopCount tracks, per IFLOOP node, how many times this path has
	// evaluated it, compared against the engine's MaxIter.
	LoopCount map[NodeID]int

	// NodePath records, in order, the nodes passed to Visit (the driver
	// calls it only for IFLOOP nodes); nothing else reads it.
	NodePath []NodeID
}

// New creates an empty Ctx ready to begin interpreting a function's entry
// node.
func New() *Ctx {
	return &Ctx{
		FormulaMap:       formula.NewMap(),
		GlobalConstraint: symvalue.Bool(true),
		RefMap:           make(map[string]varident.VarId),
		ParamAlias:       make(map[string]varident.VarId),
		MapVar2Exp:       make(map[string]*symvalue.Expr),
		BranchCond:       symvalue.Bool(true),
		LoopCount:        make(map[NodeID]int),
	}
}

// Clone deep-copies c for forking at a branch: the FormulaMap is
// deep-copied so each branch's subsequent writes are independent, while
// ParamAlias/MapVar2Exp (immutable once populated during this call
// activation) are shallow-copied, matching FFuncContext.py's copy().
func (c *Ctx) Clone() *Ctx {
	cp := &Ctx{
		FormulaMap:       c.FormulaMap.Copy(),
		GlobalConstraint: c.GlobalConstraint,
		RefMap:           cloneVarMap(c.RefMap),
		ParamAlias:       cloneVarMap(c.ParamAlias),
		MapVar2Exp:       cloneExprMap(c.MapVar2Exp),
		CondStack:        append([]*symvalue.Expr(nil), c.CondStack...),
		BranchCond:       c.BranchCond,
		CondExprIf:       c.CondExprIf,
		PendingCall:      c.PendingCall,
		DeferredIRs:      append([]symir.Instruction(nil), c.DeferredIRs...),
		CallerRetVar:     c.CallerRetVar,
		LoopCount:        cloneLoopCount(c.LoopCount),
		NodePath:         append([]NodeID(nil), c.NodePath...),
	}
	return cp
}

// PushCond narrows BranchCond by cond, storing the new conjunction of
// CondStack in BranchCond; used when descending into one side of an IF
// node.
func (c *Ctx) PushCond(cond *symvalue.Expr) {
	c.CondStack = append(c.CondStack, cond)
	c.BranchCond = symvalue.And(c.CondStack...)
}

// ClearRefMap drops the per-node reference map, mirroring
// FFuncContext.clearRefMap.
func (c *Ctx) ClearRefMap() {
	c.RefMap = make(map[string]varident.VarId)
}

// ClearTempCache drops temporaries and the ref map, mirroring
// FFuncContext.clearTempVariableCache's per-node reset.
func (c *Ctx) ClearTempCache() {
	c.FormulaMap.ClearTemporaries()
	c.ClearRefMap()
}

// Visit appends id to NodePath and bumps id's loop counter on every call,
// the first included, reporting the new count.
func (c *Ctx) Visit(id NodeID) int {
	c.NodePath = append(c.NodePath, id)
	c.LoopCount[id]++
	return c.LoopCount[id]
}

func cloneVarMap(m map[string]varident.VarId) map[string]varident.VarId {
	cp := make(map[string]varident.VarId, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func cloneExprMap(m map[string]*symvalue.Expr) map[string]*symvalue.Expr {
	cp := make(map[string]*symvalue.Expr, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func cloneLoopCount(m map[NodeID]int) map[NodeID]int {
	cp := make(map[NodeID]int, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
