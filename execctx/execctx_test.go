package execctx

import (
	"testing"

	"github.com/bossjoker1/formula/formula"
	"github.com/bossjoker1/formula/symvalue"
	"github.com/bossjoker1/formula/varident"
)

func TestCloneIsolatesFormulaMap(t *testing.T) {
	c := New()
	id := varident.State("Vault", "total")
	c.FormulaMap.Set(id, formula.New(symvalue.Int(1), symvalue.Bool(true)))

	clone := c.Clone()
	clone.FormulaMap.Set(id, formula.New(symvalue.Int(2), symvalue.Bool(true)))

	if c.FormulaMap.Get(id).Entries[0].Expr.String() != "1" {
		t.Error("mutating the clone's FormulaMap affected the original")
	}
}

func TestPushCondAccumulates(t *testing.T) {
	c := New()
	a := symvalue.Var("a", symvalue.BoolSort)
	b := symvalue.Var("b", symvalue.BoolSort)

	c.PushCond(a)
	c.PushCond(b)

	if c.BranchCond.String() != symvalue.And(a, b).String() {
		t.Errorf("expected conjunction of pushed conditions, got %s", c.BranchCond)
	}
}

func TestClearTempCacheDropsOnlyTemporaries(t *testing.T) {
	c := New()
	state := varident.State("Vault", "total")
	temp := varident.TempVar("Vault", "f", "t0")
	c.FormulaMap.Set(state, formula.New(symvalue.Int(1), symvalue.Bool(true)))
	c.FormulaMap.Set(temp, formula.New(symvalue.Int(2), symvalue.Bool(true)))
	c.RefMap["r0"] = temp

	c.ClearTempCache()

	if c.FormulaMap.Get(state) == nil {
		t.Error("expected state var to survive ClearTempCache")
	}
	if c.FormulaMap.Get(temp) != nil {
		t.Error("expected temp var to be cleared")
	}
	if len(c.RefMap) != 0 {
		t.Error("expected RefMap to be cleared")
	}
}

func TestVisitTracksLoopCount(t *testing.T) {
	c := New()
	if got := c.Visit("n1"); got != 1 {
		t.Errorf("expected first visit count 1, got %d", got)
	}
	if got := c.Visit("n1"); got != 2 {
		t.Errorf("expected second visit count 2, got %d", got)
	}
	if len(c.NodePath) != 2 {
		t.Errorf("expected NodePath length 2, got %d", len(c.NodePath))
	}
}
