package solver

import (
	"context"
	"testing"

	"github.com/bossjoker1/formula/symvalue"
)

func TestSatOfPlainTrue(t *testing.T) {
	s := NewReference()
	ok, err := s.Sat(context.Background(), symvalue.Bool(true))
	if err != nil || !ok {
		t.Fatalf("expected true to be sat, got ok=%v err=%v", ok, err)
	}
}

func TestSatOfConstantFalse(t *testing.T) {
	s := NewReference()
	ok, err := s.Sat(context.Background(), symvalue.Bool(false))
	if err != nil || ok {
		t.Fatalf("expected false to be unsat, got ok=%v err=%v", ok, err)
	}
}

func TestSatOfFoldedArithmeticContradiction(t *testing.T) {
	s := NewReference()
	// 1 + 1 == 3  folds to false.
	expr := symvalue.BinOp(symvalue.OpEq,
		symvalue.BinOp(symvalue.OpAdd, symvalue.Int(1), symvalue.Int(1)),
		symvalue.Int(3))
	ok, err := s.Sat(context.Background(), expr)
	if err != nil || ok {
		t.Fatalf("expected folded arithmetic contradiction to be unsat, got ok=%v err=%v", ok, err)
	}
}

func TestSatOfConflictingEquality(t *testing.T) {
	s := NewReference()
	x := symvalue.Var("x", symvalue.WordSort)
	c := symvalue.And(
		symvalue.BinOp(symvalue.OpEq, x, symvalue.Int(1)),
		symvalue.BinOp(symvalue.OpEq, x, symvalue.Int(2)),
	)
	ok, err := s.Sat(context.Background(), c)
	if err != nil || ok {
		t.Fatalf("expected x==1 && x==2 to be unsat, got ok=%v err=%v", ok, err)
	}
}

func TestImpliesTrivialTautology(t *testing.T) {
	s := NewReference()
	x := symvalue.Var("x", symvalue.WordSort)
	a := symvalue.BinOp(symvalue.OpEq, x, symvalue.Int(5))
	ok, err := s.Implies(context.Background(), a, a)
	if err != nil || !ok {
		t.Fatalf("expected a to imply itself, got ok=%v err=%v", ok, err)
	}
}

func TestScopePushPop(t *testing.T) {
	s := NewReference()
	scope := s.Scope()
	defer scope.Close()

	x := symvalue.Var("x", symvalue.WordSort)
	scope.Assert(symvalue.BinOp(symvalue.OpEq, x, symvalue.Int(1)))

	ok, err := scope.Check(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected x==1 alone to be sat, got ok=%v err=%v", ok, err)
	}

	scope.Push()
	scope.Assert(symvalue.BinOp(symvalue.OpEq, x, symvalue.Int(2)))
	ok, err = scope.Check(context.Background())
	if err != nil || ok {
		t.Fatalf("expected x==1 && x==2 to be unsat, got ok=%v err=%v", ok, err)
	}

	scope.Pop()
	ok, err = scope.Check(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected popping the conflicting frame to restore sat, got ok=%v err=%v", ok, err)
	}
}
