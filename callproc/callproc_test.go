package callproc

import (
	"context"
	"strings"
	"testing"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bossjoker1/formula/execctx"
	"github.com/bossjoker1/formula/formula"
	"github.com/bossjoker1/formula/interp"
	"github.com/bossjoker1/formula/resolver"
	"github.com/bossjoker1/formula/symir"
	"github.com/bossjoker1/formula/symvalue"
	"github.com/bossjoker1/formula/varident"
)

func vaultAndTransfer() (*symir.Contract, *interp.Scope) {
	transfer := &symir.Function{
		Name:     "transfer",
		Contract: "Vault",
		Params:   []symir.Param{{Name: "to", Type: "address"}},
	}
	withdraw := &symir.Function{
		Name:     "withdraw",
		Contract: "Vault",
		Params:   []symir.Param{{Name: "amount", Type: "uint256"}},
	}
	contract := &symir.Contract{
		Name:          "Vault",
		StateVarTypes: map[string]string{"balance": "uint256"},
		Functions:     map[string]*symir.Function{"transfer": transfer, "withdraw": withdraw},
	}
	return contract, interp.NewScope(contract, withdraw)
}

func TestBeginInternalSeedsCalleeFromCaller(t *testing.T) {
	contract, callerScope := vaultAndTransfer()
	reg := MapRegistry{"Vault": contract}

	callerCtx := execctx.New()
	callerCtx.GlobalConstraint = symvalue.BinOp(symvalue.OpGt, symvalue.Var("x", symvalue.WordSort), symvalue.Int(0))
	amountID := callerScope.Resolve("amount")
	callerCtx.FormulaMap.Set(amountID, formula.New(symvalue.Int(5), symvalue.Bool(true)))

	instr := symir.Instruction{Kind: symir.InstrCall, CallKind: symir.CallInternal, Callee: "transfer", Args: []string{"amount"}, Dest: "TMP0"}
	frame, err := BeginInternal(callerCtx, callerScope, reg, instr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.CalleeCtx.GlobalConstraint != callerCtx.GlobalConstraint {
		t.Error("expected callee GlobalConstraint to be seeded from the caller")
	}
	if !callerCtx.PendingCall {
		t.Error("expected caller to be marked PendingCall")
	}

	toID := frame.CalleeScope.Resolve("to")
	if frame.CalleeCtx.FormulaMap.Get(toID) == nil {
		t.Error("expected the callee's first param to be bound from the caller's argument")
	}
}

func TestBeginInternalUnresolvedCallee(t *testing.T) {
	contract, callerScope := vaultAndTransfer()
	reg := MapRegistry{"Vault": contract}
	callerCtx := execctx.New()

	instr := symir.Instruction{Kind: symir.InstrCall, CallKind: symir.CallInternal, Callee: "doesNotExist"}
	if _, err := BeginInternal(callerCtx, callerScope, reg, instr); err == nil {
		t.Fatal("expected an unresolved-callee error")
	}
}

func TestCompletePropagatesStateAndBindsReturn(t *testing.T) {
	contract, callerScope := vaultAndTransfer()
	reg := MapRegistry{"Vault": contract}
	callerCtx := execctx.New()

	instr := symir.Instruction{Kind: symir.InstrCall, CallKind: symir.CallInternal, Callee: "transfer", Args: []string{}, Dest: "TMP0"}
	frame, err := BeginInternal(callerCtx, callerScope, reg, instr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	retID := varident.LocalVar("Vault", "transfer", "ret_0")
	frame.CalleeCtx.FormulaMap.Set(retID, formula.New(symvalue.Bool(true), symvalue.Bool(true)))

	balanceID := varident.State("Vault", "balance")
	frame.CalleeCtx.FormulaMap.Set(balanceID, formula.New(symvalue.Int(100), symvalue.Bool(true)))

	if err := Complete(frame); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	destID := callerScope.Resolve("TMP0")
	if got := callerCtx.FormulaMap.Get(destID); got == nil {
		t.Error("expected the caller's destination var to be bound from ret_0")
	}
	if got := callerCtx.FormulaMap.Get(balanceID); got == nil {
		t.Error("expected the callee's state-variable write to propagate back to the caller")
	}
	if callerCtx.PendingCall {
		t.Error("expected PendingCall to be cleared after Complete")
	}
}

func TestCompletePropagatesMappingWriteRootedInStateVar(t *testing.T) {
	contract, callerScope := vaultAndTransfer()
	reg := MapRegistry{"Vault": contract}
	callerCtx := execctx.New()

	instr := symir.Instruction{Kind: symir.InstrCall, CallKind: symir.CallInternal, Callee: "transfer", Dest: "TMP0"}
	frame, err := BeginInternal(callerCtx, callerScope, reg, instr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	balances := varident.State("Vault", "balances")
	key := varident.ParamVar("Vault", "transfer", "to")
	mapID := varident.Map(balances, key)
	frame.CalleeCtx.FormulaMap.Set(mapID, formula.New(symvalue.Int(42), symvalue.Bool(true)))

	if err := Complete(frame); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if callerCtx.FormulaMap.Get(mapID) == nil {
		t.Error("expected the mapping write rooted in a state variable to propagate to the caller")
	}
}

type fakeResolver struct{}

func (fakeResolver) ResolveAddress(_ context.Context, _ int64, raw string) (common.Address, error) {
	return common.HexToAddress(raw), nil
}

func (fakeResolver) ContractFor(_ context.Context, _ int64, addr common.Address) (*resolver.ContractModel, error) {
	abi, _ := gethabi.JSON(strings.NewReader(`[]`))
	return &resolver.ContractModel{Address: addr, ABI: &abi}, nil
}

func (fakeResolver) SourceCodeFor(context.Context, int64, common.Address) (string, error) {
	return "", nil
}

func (fakeResolver) SelectorToSignature(*resolver.ContractModel, [4]byte) (string, bool) {
	return "", false
}

func TestResolveExternalBindsUninterpretedResult(t *testing.T) {
	_, scope := vaultAndTransfer()
	c := execctx.New()

	instr := symir.Instruction{Kind: symir.InstrCall, CallKind: symir.CallHighLevel, Selector: "0xa9059cbb", Dest: "TMP1"}
	if err := ResolveExternal(context.Background(), fakeResolver{}, 1, c, scope, instr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	destID := scope.Resolve("TMP1")
	f := c.FormulaMap.Get(destID)
	if f == nil || len(f.Entries) != 1 {
		t.Fatalf("expected exactly one bound entry for the external call result, got %v", f)
	}
	if f.Entries[0].Expr.Kind != symvalue.KindApply {
		t.Errorf("expected an uninterpreted function application, got %v", f.Entries[0].Expr.Kind)
	}
}
