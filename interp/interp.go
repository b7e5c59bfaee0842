// Package interp dispatches a single IR instruction against an
// execctx.Ctx, mutating its FormulaMap (and, for require/assert/revert,
// its GlobalConstraint). This is the Go counterpart of Function.py's
// analyzeIR/handleCallIR dispatch chain.
package interp

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/bossjoker1/formula/execctx"
	"github.com/bossjoker1/formula/formula"
	"github.com/bossjoker1/formula/formulaerr"
	"github.com/bossjoker1/formula/solver"
	"github.com/bossjoker1/formula/symir"
	"github.com/bossjoker1/formula/symvalue"
	"github.com/bossjoker1/formula/typesys"
	"github.com/bossjoker1/formula/varident"
)

// PendingCall is returned by Step when instr is a call the driver (via
// callproc) must resolve before interpretation of this path can
// continue: internal/library calls need a callee frame pushed, and
// high-level/low-level calls need the ContractResolver consulted.
type PendingCall struct {
	Instr symir.Instruction
	Scope *Scope
}

// Step interprets instr against ctx using scope to resolve variable
// names. It returns a non-nil *PendingCall when the driver must take
// over (internal/library/high-level/low-level calls); otherwise ctx is
// mutated in place and the return value is nil.
func Step(ctx context.Context, s solver.Solver, c *execctx.Ctx, scope *Scope, instr symir.Instruction) (*PendingCall, error) {
	switch instr.Kind {
	case symir.InstrBinary:
		return nil, stepBinary(ctx, s, c, scope, instr)
	case symir.InstrUnary:
		return nil, stepUnary(c, scope, instr)
	case symir.InstrAssignment:
		return nil, stepAssignment(c, scope, instr)
	case symir.InstrTypeConversion:
		return nil, stepTypeConversion(c, scope, instr)
	case symir.InstrIndex, symir.InstrMember:
		return nil, stepIndexOrMember(c, scope, instr)
	case symir.InstrLength:
		return nil, stepLength(c, scope, instr)
	case symir.InstrCondition:
		return nil, stepCondition(c, scope, instr)
	case symir.InstrUnpack:
		return nil, stepUnpack(c, scope, instr)
	case symir.InstrReturn:
		return nil, stepReturn(c, scope, instr)
	case symir.InstrCall:
		return stepCall(ctx, s, c, scope, instr)
	default:
		return nil, formulaerr.MalformedIRErr(fmt.Sprintf("%d", instr.Kind), string(instr.Node))
	}
}

// variableFormula returns id's bound Formula, synthesizing a fresh named
// symbolic value of the appropriate sort if id has not been bound yet —
// the Go counterpart of Function.py's handleVariableExpr fallback. A
// fresh uintN-sorted symbol additionally asserts "≥ 0" into the path's
// GlobalConstraint, matching the symbolic value model's non-negativity
// guarantee for unsigned integers.
func variableFormula(c *execctx.Ctx, scope *Scope, name string) (*formula.Formula, varident.VarId, error) {
	id := scope.Resolve(name)
	if f := c.FormulaMap.Get(id); f != nil {
		return f, id, nil
	}
	sort, unsigned, err := sortFor(scope, name)
	if err != nil {
		return nil, id, err
	}
	varExpr := symvalue.Var(id.String(), sort)
	if unsigned {
		assertNonNegative(c, varExpr)
	}
	fresh := formula.New(varExpr, symvalue.Bool(true))
	c.FormulaMap.Set(id, fresh)
	return fresh, id, nil
}

// assertNonNegative conjoins "v >= 0" into c's GlobalConstraint.
func assertNonNegative(c *execctx.Ctx, v *symvalue.Expr) {
	c.GlobalConstraint = symvalue.And(c.GlobalConstraint, symvalue.BinOp(symvalue.OpGte, v, symvalue.Int(0)))
}

func sortFor(scope *Scope, name string) (symvalue.Sort, bool, error) {
	if t, ok := scope.TypeOf(name); ok {
		sort, err := typesys.FromSolidityType(t)
		if err == nil {
			return sort, typesys.IsUnsignedInteger(t), nil
		}
	}
	// No declared type available (a compiler temporary): default to the
	// 256-bit machine word, Solidity's natural stack slot width.
	return symvalue.WordSort, false, nil
}

func binOpFromString(name string) (symvalue.BinaryOp, bool) {
	m := map[string]symvalue.BinaryOp{
		"+": symvalue.OpAdd, "-": symvalue.OpSub, "*": symvalue.OpMul,
		"/": symvalue.OpDiv, "%": symvalue.OpMod,
		"==": symvalue.OpEq, "!=": symvalue.OpNeq,
		"<": symvalue.OpLt, "<=": symvalue.OpLte, ">": symvalue.OpGt, ">=": symvalue.OpGte,
		"&&": symvalue.OpAndAnd, "||": symvalue.OpOrOr,
		"&": symvalue.OpAnd, "|": symvalue.OpOr, "^": symvalue.OpXor,
		"<<": symvalue.OpShl, ">>": symvalue.OpShr, "**": symvalue.OpPow,
	}
	op, ok := m[name]
	return op, ok
}

func stepBinary(ctx context.Context, s solver.Solver, c *execctx.Ctx, scope *Scope, instr symir.Instruction) error {
	op, ok := binOpFromString(instr.Op)
	if !ok {
		return formulaerr.MalformedIRErr("Binary:"+instr.Op, string(instr.Node))
	}
	lhs, _, err := variableFormula(c, scope, instr.Lhs)
	if err != nil {
		return err
	}
	rhs, _, err := variableFormula(c, scope, instr.Rhs)
	if err != nil {
		return err
	}
	merged, err := formula.MergeBinary(ctx, s, op, lhs, rhs)
	if err != nil {
		return err
	}
	destID := scope.Resolve(instr.Dest)
	c.FormulaMap.Set(destID, merged)
	return nil
}

func stepUnary(c *execctx.Ctx, scope *Scope, instr symir.Instruction) error {
	operand, _, err := variableFormula(c, scope, instr.Lhs)
	if err != nil {
		return err
	}
	out := &formula.Formula{}
	for _, e := range operand.Entries {
		var negated *symvalue.Expr
		if instr.Op == "!" {
			negated = symvalue.Not(e.Expr)
		} else {
			negated = symvalue.BinOp(symvalue.OpSub, symvalue.Int(0), e.Expr)
		}
		out.Add(negated, e.Constraint)
	}
	c.FormulaMap.Set(scope.Resolve(instr.Dest), out)
	return nil
}

func stepAssignment(c *execctx.Ctx, scope *Scope, instr symir.Instruction) error {
	src, _, err := variableFormula(c, scope, instr.Src)
	if err != nil {
		return err
	}
	c.FormulaMap.Set(scope.Resolve(instr.Dest), src.Copy())
	return nil
}

func stepTypeConversion(c *execctx.Ctx, scope *Scope, instr symir.Instruction) error {
	src, _, err := variableFormula(c, scope, instr.Src)
	if err != nil {
		return err
	}
	targetSort, err := typesys.FromSolidityType(instr.TargetType)
	if err != nil {
		return err
	}
	out := &formula.Formula{}
	for _, e := range src.Entries {
		out.Add(convertValue(e.Expr, targetSort), e.Constraint)
	}
	c.FormulaMap.Set(scope.Resolve(instr.Dest), out)
	return nil
}

// negOneAsAddress is the Solidity idiom `address(-1)` == `type(uint112).max`
// (2^112 - 1), preserved as-is in summaries rather than wrapped like any
// other integer-to-address conversion.
var negOneAsAddress = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 112), big.NewInt(1))

// addressModulus is 2^160, the modulus an Int2BV(160) conversion wraps
// an arbitrary integer value into.
var addressModulus = new(big.Int).Lsh(big.NewInt(1), 160)

// convertValue rewrites src's value for a conversion to targetSort. Only
// conversions to address need a value rewrite: every other target sort
// is a pure relabeling, since the engine does not model fixed-width
// wrap-around for plain integers.
func convertValue(src *symvalue.Expr, targetSort symvalue.Sort) *symvalue.Expr {
	if targetSort != symvalue.AddressSort {
		relabeled := *src
		relabeled.Sort = targetSort
		return &relabeled
	}
	v, ok := constValue(src)
	if !ok {
		return symvalue.Apply("int2bv160", symvalue.AddressSort, src)
	}
	if v.Cmp(big.NewInt(-1)) == 0 {
		return symvalue.BitVec(negOneAsAddress.String(), 160)
	}
	wrapped := new(big.Int).Mod(v, addressModulus)
	return symvalue.BitVec(wrapped.String(), 160)
}

// constValue extracts e's constant integer value, mirroring
// symvalue.FoldConst's own constant-reading convention (ConstBig
// authoritative when set, ConstInt otherwise).
func constValue(e *symvalue.Expr) (*big.Int, bool) {
	if !e.IsConst() {
		return nil, false
	}
	if e.ConstBig != "" {
		return new(big.Int).SetString(e.ConstBig, 10)
	}
	return big.NewInt(e.ConstInt), true
}

// stepIndexOrMember resolves `base[key]` / `base.key` to an FMap
// identity and registers a Ref pointing at it, matching
// getRefPointsTo/refMap population in the Python original.
func stepIndexOrMember(c *execctx.Ctx, scope *Scope, instr symir.Instruction) error {
	baseID := scope.Resolve(instr.Base)
	keyID := scope.Resolve(instr.Key)
	mapID := varident.Map(baseID, keyID)

	destID := scope.Resolve(instr.Dest)
	c.RefMap[destID.Key()] = mapID

	if existing := c.FormulaMap.Get(mapID); existing != nil {
		c.FormulaMap.Set(destID, existing.Copy())
		return nil
	}
	sort, _, err := sortFor(scope, instr.Base)
	if err != nil {
		sort = symvalue.WordSort
	}
	fresh := formula.New(symvalue.Var(mapID.String(), sort), symvalue.Bool(true))
	c.FormulaMap.Set(mapID, fresh.Copy())
	c.FormulaMap.Set(destID, fresh)
	return nil
}

func stepLength(c *execctx.Ctx, scope *Scope, instr symir.Instruction) error {
	lenID := varident.LocalVar(scope.Contract.Name, scope.Function.Name, instr.Of+".length")
	f := c.FormulaMap.Get(lenID)
	if f == nil {
		f = formula.New(symvalue.Var(lenID.String(), symvalue.WordSort), symvalue.Bool(true))
		c.FormulaMap.Set(lenID, f.Copy())
	}
	c.FormulaMap.Set(scope.Resolve(instr.Dest), f.Copy())
	return nil
}

func stepCondition(c *execctx.Ctx, scope *Scope, instr symir.Instruction) error {
	f, _, err := variableFormula(c, scope, instr.CondVar)
	if err != nil {
		return err
	}
	c.CondExprIf = f
	return nil
}

func stepUnpack(c *execctx.Ctx, scope *Scope, instr symir.Instruction) error {
	tupleID := scope.Resolve(instr.TupleVar)
	elemID := varident.Tuple(tupleID, instr.TupleIdx, "")
	f := c.FormulaMap.Get(elemID)
	if f == nil {
		f = formula.New(symvalue.Var(elemID.String(), symvalue.WordSort), symvalue.Bool(true))
		c.FormulaMap.Set(elemID, f.Copy())
	}
	c.FormulaMap.Set(scope.Resolve(instr.Dest), f.Copy())
	return nil
}

// stepReturn binds ret_0..ret_i for every returned variable, matching
// Function.py's handleRetIR naming convention.
func stepReturn(c *execctx.Ctx, scope *Scope, instr symir.Instruction) error {
	for i, name := range instr.RetVars {
		f, _, err := variableFormula(c, scope, name)
		if err != nil {
			return err
		}
		retID := varident.LocalVar(scope.Contract.Name, scope.Function.Name, fmt.Sprintf("ret_%d", i))
		c.FormulaMap.Set(retID, f.Copy())
	}
	return nil
}

// stepCall handles the builtin call matrix directly (require/assert
// narrow GlobalConstraint; revert kills the path; abi.encodeWithSelector
// synthesizes an uninterpreted bytes value) and defers every other call
// kind to the driver/callproc layer via PendingCall.
func stepCall(ctx context.Context, s solver.Solver, c *execctx.Ctx, scope *Scope, instr symir.Instruction) (*PendingCall, error) {
	switch instr.CallKind {
	case symir.CallRequire, symir.CallAssert:
		return nil, stepRequireAssert(ctx, s, c, scope, instr)
	case symir.CallRevert:
		return nil, formulaerr.UnsatConstraintErr(string(instr.Node))
	case symir.CallABIEncode:
		return nil, stepABIEncode(c, scope, instr)
	default:
		return &PendingCall{Instr: instr, Scope: scope}, nil
	}
}

func stepRequireAssert(ctx context.Context, s solver.Solver, c *execctx.Ctx, scope *Scope, instr symir.Instruction) error {
	if len(instr.Args) == 0 {
		return formulaerr.MalformedIRErr("Call:require", string(instr.Node))
	}
	f, _, err := variableFormula(c, scope, instr.Args[0])
	if err != nil {
		return err
	}
	cond := formula.ExpandIf(f, symvalue.Bool(true))
	narrowed := symvalue.And(c.GlobalConstraint, cond)
	sat, err := s.Sat(ctx, narrowed)
	if err != nil {
		return err
	}
	if !sat {
		return formulaerr.UnsatConstraintErr(string(instr.Node))
	}
	c.GlobalConstraint = narrowed
	return nil
}

// stepABIEncode synthesizes an uninterpreted function application over
// the selector and encoded arguments' current formulas, since the exact
// byte layout of abi.encodeWithSelector is not semantically meaningful
// to the properties this engine checks.
func stepABIEncode(c *execctx.Ctx, scope *Scope, instr symir.Instruction) error {
	args := make([]*symvalue.Expr, 0, len(instr.Args)+1)
	args = append(args, symvalue.Str(instr.Selector))
	for _, a := range instr.Args {
		f, _, err := variableFormula(c, scope, a)
		if err != nil {
			return err
		}
		args = append(args, formula.ExpandIf(f, symvalue.Int(0)))
	}
	fnName := "abi.encodeWithSelector#" + shortHash(instr.Selector)
	encoded := symvalue.Apply(fnName, symvalue.WordSort, args...)
	c.FormulaMap.Set(scope.Resolve(instr.Dest), formula.New(encoded, symvalue.Bool(true)))
	return nil
}

func shortHash(s string) string {
	h := sha256.Sum256([]byte(s))
	var n uint32
	n = binary.BigEndian.Uint32(h[:4])
	return fmt.Sprintf("%08x", n)
}
