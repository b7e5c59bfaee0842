package driver

import (
	"context"
	"testing"

	"github.com/bossjoker1/formula/callproc"
	"github.com/bossjoker1/formula/solver"
	"github.com/bossjoker1/formula/symir"
	"github.com/bossjoker1/formula/varident"
)

func branchingContract() (*symir.Contract, *symir.Function) {
	fn := &symir.Function{
		Name:     "check",
		Contract: "Gate",
		Params:   []symir.Param{{Name: "x", Type: "uint256"}},
		Entry:    "entry",
		Nodes: map[symir.NodeID]*symir.Node{
			"entry": {
				ID:           "entry",
				Kind:         symir.NodeIf,
				Instructions: []symir.Instruction{{Kind: symir.InstrCondition, CondVar: "x", Node: "entry"}},
				TrueSucc:     "retTrue",
				FalseSucc:    "retFalse",
			},
			"retTrue": {
				ID:   "retTrue",
				Kind: symir.NodeReturn,
				Instructions: []symir.Instruction{
					{Kind: symir.InstrAssignment, Dest: "total", Src: "x", Node: "retTrue"},
					{Kind: symir.InstrReturn, RetVars: []string{"x"}, Node: "retTrue"},
				},
			},
			"retFalse": {
				ID:   "retFalse",
				Kind: symir.NodeReturn,
				Instructions: []symir.Instruction{
					{Kind: symir.InstrUnary, Op: "-", Lhs: "x", Dest: "total", Node: "retFalse"},
					{Kind: symir.InstrReturn, RetVars: []string{"x"}, Node: "retFalse"},
				},
			},
		},
	}
	contract := &symir.Contract{
		Name:          "Gate",
		Functions:     map[string]*symir.Function{"check": fn},
		StateVarTypes: map[string]string{"total": "uint256"},
	}
	return contract, fn
}

func loopingContract(maxIter int) (*symir.Contract, *symir.Function, *Engine) {
	fn := &symir.Function{
		Name:     "spin",
		Contract: "Loop",
		Params:   []symir.Param{{Name: "x", Type: "uint256"}},
		Entry:    "loop",
		Nodes: map[symir.NodeID]*symir.Node{
			"loop": {
				ID:           "loop",
				Kind:         symir.NodeIfLoop,
				Instructions: []symir.Instruction{{Kind: symir.InstrCondition, CondVar: "x", Node: "loop"}},
				TrueSucc:     "loop",
				FalseSucc:    "done",
				IsLoopHeader: true,
			},
			"done": {
				ID:   "done",
				Kind: symir.NodeReturn,
				Instructions: []symir.Instruction{
					{Kind: symir.InstrAssignment, Dest: "count", Src: "x", Node: "done"},
					{Kind: symir.InstrReturn, RetVars: []string{"x"}, Node: "done"},
				},
			},
		},
	}
	contract := &symir.Contract{
		Name:          "Loop",
		Functions:     map[string]*symir.Function{"spin": fn},
		StateVarTypes: map[string]string{"count": "uint256"},
	}
	engine := New(solver.NewReference(), callproc.MapRegistry{"Loop": contract}, nil, 1, maxIter)
	return contract, fn, engine
}

func TestAnalyzeForksAndPromotesBothBranches(t *testing.T) {
	contract, fn := branchingContract()
	engine := New(solver.NewReference(), callproc.MapRegistry{"Gate": contract}, nil, 1, 4)

	result, err := engine.Analyze(context.Background(), contract, fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	totalID := varident.State("Gate", "total")
	f := result.Get(totalID)
	if f == nil {
		t.Fatal("expected the state-variable-rooted total to be bound in the function summary")
	}
	if len(f.Entries) != 2 {
		t.Errorf("expected both branches to contribute a distinct entry, got %d", len(f.Entries))
	}

	if result.Get(varident.LocalVar("Gate", "check", "ret_0")) != nil {
		t.Error("expected ret_0 to be excluded from the state-variable-rooted summary")
	}

	snap := engine.Stats.Snapshot()
	if snap.PathsCompleted != 2 {
		t.Errorf("expected 2 completed paths, got %d", snap.PathsCompleted)
	}
	if snap.RunsCompleted != 1 {
		t.Errorf("expected 1 completed run, got %d", snap.RunsCompleted)
	}
}

func TestAnalyzeBoundsLoopUnrolling(t *testing.T) {
	contract, fn, engine := loopingContract(2)

	result, err := engine.Analyze(context.Background(), contract, fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Get(varident.State("Loop", "count")) == nil {
		t.Error("expected the loop exit path to bind the state-variable-rooted count")
	}

	snap := engine.Stats.Snapshot()
	if snap.LoopBoundHits < 1 {
		t.Error("expected at least one loop-bound cutoff to be recorded")
	}
	if snap.PathsCompleted < 1 {
		t.Error("expected at least one path to reach the loop's exit node")
	}
}

func TestAnalyzeMissingNodeIsMalformedIR(t *testing.T) {
	fn := &symir.Function{
		Name:  "broken",
		Entry: "nowhere",
		Nodes: map[symir.NodeID]*symir.Node{},
	}
	contract := &symir.Contract{Name: "Broken", Functions: map[string]*symir.Function{"broken": fn}}
	engine := New(solver.NewReference(), callproc.MapRegistry{"Broken": contract}, nil, 1, 4)

	if _, err := engine.Analyze(context.Background(), contract, fn); err == nil {
		t.Fatal("expected a malformed-IR error for a missing entry node")
	}
}
