package summaryfmt

import (
	"strings"
	"testing"

	"github.com/bossjoker1/formula/formula"
	"github.com/bossjoker1/formula/symvalue"
	"github.com/bossjoker1/formula/varident"
)

func sampleMap() *formula.Map {
	m := formula.NewMap()
	m.Set(varident.State("Vault", "balance"), formula.New(symvalue.Int(100), symvalue.Bool(true)))
	m.Set(varident.LocalVar("Vault", "withdraw", "ret_0"), formula.New(symvalue.Bool(true), symvalue.Bool(true)))
	return m
}

func TestRowsSortedByVariableName(t *testing.T) {
	rows := Rows(sampleMap())
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Var.String() > rows[1].Var.String() {
		t.Error("expected rows sorted by variable display name")
	}
}

func TestSExprRendersOneLinePerVariable(t *testing.T) {
	out := SExpr(Rows(sampleMap()))
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out)
	}
	for _, l := range lines {
		if !strings.HasPrefix(l, "(= ") || !strings.HasSuffix(l, ")") {
			t.Errorf("expected an (= var expr) line, got %q", l)
		}
	}
}

func TestWriteTableIncludesTitleAndValues(t *testing.T) {
	var b strings.Builder
	WriteTable(&b, "Vault.balance summary", Rows(sampleMap()))
	out := b.String()
	if !strings.Contains(out, "Vault.balance summary") {
		t.Error("expected the title line to be rendered")
	}
	if !strings.Contains(out, "100") {
		t.Error("expected the balance's value to appear in the table")
	}
}
