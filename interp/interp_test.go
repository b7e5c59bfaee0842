package interp

import (
	"context"
	"testing"

	"github.com/bossjoker1/formula/execctx"
	"github.com/bossjoker1/formula/solver"
	"github.com/bossjoker1/formula/symir"
	"github.com/bossjoker1/formula/varident"
)

func testScope() *Scope {
	contract := &symir.Contract{
		Name:          "Vault",
		StateVarTypes: map[string]string{"balance": "uint256"},
	}
	fn := &symir.Function{
		Name:     "deposit",
		Contract: "Vault",
		Params:   []symir.Param{{Name: "amount", Type: "uint256"}},
	}
	return NewScope(contract, fn)
}

func TestStepBinaryMergesOperands(t *testing.T) {
	s := solver.NewReference()
	c := execctx.New()
	scope := testScope()

	instr := symir.Instruction{Kind: symir.InstrBinary, Op: "+", Lhs: "balance", Rhs: "amount", Dest: "TMP0"}
	if _, err := Step(context.Background(), s, c, scope, instr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dest := scope.Resolve("TMP0")
	f := c.FormulaMap.Get(dest)
	if f == nil || len(f.Entries) != 1 {
		t.Fatalf("expected exactly one entry for freshly-merged symbols, got %v", f)
	}
}

func TestStepRequireAcceptsTautology(t *testing.T) {
	s := solver.NewReference()
	c := execctx.New()
	scope := testScope()

	// amount == amount
	eqInstr := symir.Instruction{Kind: symir.InstrBinary, Op: "==", Lhs: "amount", Rhs: "amount", Dest: "TMP1"}
	if _, err := Step(context.Background(), s, c, scope, eqInstr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reqInstr := symir.Instruction{Kind: symir.InstrCall, CallKind: symir.CallRequire, Args: []string{"TMP1"}, Node: "n1"}
	if _, err := Step(context.Background(), s, c, scope, reqInstr); err != nil {
		t.Fatalf("unexpected error on a tautological require: %v", err)
	}
}

func TestStepIndexRegistersRefMap(t *testing.T) {
	s := solver.NewReference()
	c := execctx.New()
	scope := testScope()

	instr := symir.Instruction{Kind: symir.InstrIndex, Base: "balance", Key: "amount", Dest: "REF0"}
	if _, err := Step(context.Background(), s, c, scope, instr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	destID := scope.Resolve("REF0")
	if _, ok := c.RefMap[destID.Key()]; !ok {
		t.Error("expected RefMap to register the FMap identity for the indexed ref")
	}

	mapID := varident.Map(scope.Resolve("balance"), scope.Resolve("amount"))
	if c.FormulaMap.Get(mapID) == nil {
		t.Error("expected the FMap identity itself to be bound in the FormulaMap")
	}
}

func TestStepCallHighLevelReturnsPendingCall(t *testing.T) {
	s := solver.NewReference()
	c := execctx.New()
	scope := testScope()

	instr := symir.Instruction{Kind: symir.InstrCall, CallKind: symir.CallHighLevel, Callee: "transfer", Args: []string{"amount"}}
	pending, err := Step(context.Background(), s, c, scope, instr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pending == nil {
		t.Fatal("expected a PendingCall for a high-level call")
	}
}

func TestStepRevertIsUnsatConstraintError(t *testing.T) {
	s := solver.NewReference()
	c := execctx.New()
	scope := testScope()

	instr := symir.Instruction{Kind: symir.InstrCall, CallKind: symir.CallRevert, Node: "n9"}
	_, err := Step(context.Background(), s, c, scope, instr)
	if err == nil {
		t.Fatal("expected revert to report an error")
	}
}
